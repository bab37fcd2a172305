package models

import (
	"strconv"
	"strings"
	"time"
)

// Category classifies the kind of loan obligation.
type Category string

const (
	CategoryFinancialReporting  Category = "financial_reporting"
	CategoryCovenantCompliance  Category = "covenant_compliance"
	CategoryInsurance           Category = "insurance"
	CategoryReserveFunding      Category = "reserve_funding"
	CategoryPropertyManagement  Category = "property_management"
	CategoryLeasing             Category = "leasing"
	CategoryCapitalImprovements Category = "capital_improvements"
	CategoryTaxEscrow           Category = "tax_escrow"
	CategoryEnvironmental       Category = "environmental"
	CategoryLegalEntity         Category = "legal_entity"
	CategoryOther               Category = "other"
)

// ValidCategories is the set of all valid requirement categories.
var ValidCategories = []Category{
	CategoryFinancialReporting,
	CategoryCovenantCompliance,
	CategoryInsurance,
	CategoryReserveFunding,
	CategoryPropertyManagement,
	CategoryLeasing,
	CategoryCapitalImprovements,
	CategoryTaxEscrow,
	CategoryEnvironmental,
	CategoryLegalEntity,
	CategoryOther,
}

// IsValid returns true if the category is recognized.
func (c Category) IsValid() bool {
	for _, v := range ValidCategories {
		if c == v {
			return true
		}
	}
	return false
}

// Severity indicates the consequence of missing a requirement.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// ValidSeverities is the set of all valid severities.
var ValidSeverities = []Severity{
	SeverityLow,
	SeverityMedium,
	SeverityHigh,
	SeverityCritical,
}

// IsValid returns true if the severity is recognized.
func (s Severity) IsValid() bool {
	for _, v := range ValidSeverities {
		if s == v {
			return true
		}
	}
	return false
}

// Rank returns an ordering value for severity comparison. Higher is worse.
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 0
	case SeverityMedium:
		return 1
	case SeverityHigh:
		return 2
	case SeverityCritical:
		return 3
	}
	return -1
}

// MaxSeverity returns the higher of two severities.
func MaxSeverity(a, b Severity) Severity {
	if b.Rank() > a.Rank() {
		return b
	}
	return a
}

// Status tracks compliance with a requirement. The pipeline never infers
// actual compliance; status is set by external callers and defaults to unknown.
type Status string

const (
	StatusUnknown      Status = "unknown"
	StatusCompliant    Status = "compliant"
	StatusNonCompliant Status = "non_compliant"
	StatusAtRisk       Status = "at_risk"
)

// ValidStatuses is the set of all valid compliance statuses.
var ValidStatuses = []Status{
	StatusUnknown,
	StatusCompliant,
	StatusNonCompliant,
	StatusAtRisk,
}

// IsValid returns true if the status is recognized.
func (s Status) IsValid() bool {
	for _, v := range ValidStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// Frequency describes how often a deadline recurs.
type Frequency string

const (
	FrequencyOneTime   Frequency = "one_time"
	FrequencyMonthly   Frequency = "monthly"
	FrequencyQuarterly Frequency = "quarterly"
	FrequencyAnnually  Frequency = "annually"
	FrequencyCustom    Frequency = "custom"
)

// ValidFrequencies is the set of all valid deadline frequencies.
var ValidFrequencies = []Frequency{
	FrequencyOneTime,
	FrequencyMonthly,
	FrequencyQuarterly,
	FrequencyAnnually,
	FrequencyCustom,
}

// IsValid returns true if the frequency is recognized.
func (f Frequency) IsValid() bool {
	for _, v := range ValidFrequencies {
		if f == v {
			return true
		}
	}
	return false
}

// Operator is a threshold comparison operator.
type Operator string

const (
	OpGTE Operator = ">="
	OpLTE Operator = "<="
	OpGT  Operator = ">"
	OpLT  Operator = "<"
	OpEQ  Operator = "=="
)

// ValidOperators is the set of all valid threshold operators.
var ValidOperators = []Operator{OpGTE, OpLTE, OpGT, OpLT, OpEQ}

// IsValid returns true if the operator is recognized.
func (o Operator) IsValid() bool {
	for _, v := range ValidOperators {
		if o == v {
			return true
		}
	}
	return false
}

// Threshold is a numeric covenant test, e.g. DSCR >= 1.25x.
type Threshold struct {
	Metric   string   `json:"metric"`
	Operator Operator `json:"operator"`
	Value    float64  `json:"value"`
	Unit     string   `json:"unit,omitempty"`
}

// Validate checks that the threshold is well formed.
func (t Threshold) Validate() error {
	if strings.TrimSpace(t.Metric) == "" {
		return &ValidationError{Field: "threshold.metric", Reason: "must not be empty"}
	}
	if !t.Operator.IsValid() {
		return &ValidationError{Field: "threshold.operator", Reason: "must be one of >=, <=, >, <, =="}
	}
	return nil
}

// Human returns a readable rendering of the threshold.
func (t Threshold) Human() string {
	unit := t.Unit
	switch t.Operator {
	case OpGTE:
		return t.Metric + " must be at least " + formatValue(t.Value) + unit
	case OpLTE:
		return t.Metric + " must not exceed " + formatValue(t.Value) + unit
	case OpGT:
		return t.Metric + " must be greater than " + formatValue(t.Value) + unit
	case OpLT:
		return t.Metric + " must be less than " + formatValue(t.Value) + unit
	}
	return t.Metric + " " + string(t.Operator) + " " + formatValue(t.Value) + unit
}

// Rule is the structured recurrence behind a deadline description.
// For custom frequencies either IntervalDays is set or Computable is false.
type Rule struct {
	DayOfMonth         int        `json:"day_of_month,omitempty"`
	DaysAfterPeriodEnd int        `json:"days_after_period_end,omitempty"`
	DaysBeforeEvent    int        `json:"days_before_event,omitempty"`
	Month              time.Month `json:"month,omitempty"`
	Day                int        `json:"day,omitempty"`
	IntervalDays       int        `json:"interval_days,omitempty"`
	SpecificDate       *time.Time `json:"specific_date,omitempty"`
	Computable         bool       `json:"computable"`
}

// Deadline is a time obligation attached to a requirement. Description is
// the original phrasing and is retained verbatim even after parsing.
type Deadline struct {
	Description string    `json:"description"`
	Frequency   Frequency `json:"frequency"`
	Rule        Rule      `json:"rule"`
}

// Validate checks the deadline's frequency and rule consistency.
func (d Deadline) Validate() error {
	if !d.Frequency.IsValid() {
		return &ValidationError{Field: "deadline.frequency", Reason: "unrecognized frequency"}
	}
	if d.Frequency == FrequencyCustom && d.Rule.Computable && d.Rule.IntervalDays <= 0 {
		return &ValidationError{Field: "deadline.rule", Reason: "custom frequency requires interval_days or non-computable flag"}
	}
	return nil
}

// Requirement is one operational obligation extracted from a loan document.
// Requirements are immutable after normalization except for Status, which an
// external caller may update.
type Requirement struct {
	ID                   string     `json:"id"`
	Title                string     `json:"title"`
	Category             Category   `json:"category"`
	Description          string     `json:"description"`
	PlainLanguageSummary string     `json:"plain_language_summary"`
	SourceText           string     `json:"source_text"`
	DocumentRef          string     `json:"document_reference,omitempty"`
	Deadline             *Deadline  `json:"deadline,omitempty"`
	Threshold            *Threshold `json:"threshold,omitempty"`
	Severity             Severity   `json:"severity"`
	CurePeriodDays       int        `json:"cure_period_days,omitempty"`
	Status               Status     `json:"status"`
	Notes                string     `json:"notes,omitempty"`
	LastChecked          *time.Time `json:"last_checked,omitempty"`
}

// NewRequirement constructs a validated requirement. Invalid enum values,
// an empty title, or a malformed threshold/deadline fail construction.
func NewRequirement(id, title string, category Category, summary string, severity Severity) (*Requirement, error) {
	if strings.TrimSpace(id) == "" {
		return nil, &ValidationError{Field: "id", Reason: "must not be empty"}
	}
	if strings.TrimSpace(title) == "" {
		return nil, &ValidationError{Field: "title", Reason: "must not be empty"}
	}
	if !category.IsValid() {
		return nil, &ValidationError{Field: "category", Reason: "unrecognized category"}
	}
	if strings.TrimSpace(summary) == "" {
		return nil, &ValidationError{Field: "plain_language_summary", Reason: "must not be empty"}
	}
	if !severity.IsValid() {
		return nil, &ValidationError{Field: "severity", Reason: "unrecognized severity"}
	}
	return &Requirement{
		ID:                   id,
		Title:                title,
		Category:             category,
		PlainLanguageSummary: summary,
		Severity:             severity,
		Status:               StatusUnknown,
	}, nil
}

// Validate re-checks the requirement's invariants, including attached
// deadline and threshold.
func (r *Requirement) Validate() error {
	if strings.TrimSpace(r.Title) == "" {
		return &ValidationError{Field: "title", Reason: "must not be empty"}
	}
	if !r.Category.IsValid() {
		return &ValidationError{Field: "category", Reason: "unrecognized category"}
	}
	if !r.Severity.IsValid() {
		return &ValidationError{Field: "severity", Reason: "unrecognized severity"}
	}
	if !r.Status.IsValid() {
		return &ValidationError{Field: "status", Reason: "unrecognized status"}
	}
	if strings.TrimSpace(r.PlainLanguageSummary) == "" {
		return &ValidationError{Field: "plain_language_summary", Reason: "must not be empty"}
	}
	if r.Deadline != nil {
		if err := r.Deadline.Validate(); err != nil {
			return err
		}
	}
	if r.Threshold != nil {
		if err := r.Threshold.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// SetStatus updates the compliance status after validating the enum.
func (r *Requirement) SetStatus(s Status, notes string, at time.Time) error {
	if !s.IsValid() {
		return &ValidationError{Field: "status", Reason: "unrecognized status"}
	}
	r.Status = s
	if notes != "" {
		r.Notes = notes
	}
	t := at.UTC()
	r.LastChecked = &t
	return nil
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
