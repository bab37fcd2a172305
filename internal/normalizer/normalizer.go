// Package normalizer validates and canonicalizes raw extraction-oracle
// output into typed requirements: category and severity coercion, threshold
// parsing, deduplication, and stable ID assignment.
package normalizer

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/loanguard/loanguard/internal/deadline"
	"github.com/loanguard/loanguard/internal/models"
)

// NormalizationError reports a candidate that cannot be turned into a
// requirement. Such candidates are dropped with a warning; they are never
// fatal to the batch.
type NormalizationError struct {
	Index  int
	Reason string
}

func (e *NormalizationError) Error() string {
	return fmt.Sprintf("candidate %d: %s", e.Index, e.Reason)
}

// Report summarizes what happened to a batch of candidates.
type Report struct {
	Total      int `json:"total"`
	Normalized int `json:"normalized"`
	Dropped    int `json:"dropped"`
	Duplicates int `json:"duplicates"`
}

// Normalizer turns raw oracle candidates into validated requirements.
type Normalizer struct {
	resolver *deadline.Resolver
	logger   *slog.Logger
}

// New creates a normalizer. The resolver structures each candidate's
// deadline so severity can account for reporting frequency.
func New(resolver *deadline.Resolver, logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{resolver: resolver, logger: logger}
}

// Normalize runs the full pipeline over a candidate batch. Output order is
// deterministic for identical input: candidates keep their first-seen order
// and IDs are assigned sequentially (REQ-001, REQ-002, ...) to survivors.
func (n *Normalizer) Normalize(candidates []RawCandidate) ([]models.Requirement, Report) {
	report := Report{Total: len(candidates)}

	type keyed struct {
		key string
		req models.Requirement
	}
	var ordered []keyed
	index := make(map[string]int)

	for i, c := range candidates {
		if c.Empty() {
			nerr := &NormalizationError{Index: i, Reason: "no title and no description"}
			n.logger.Warn("dropping unusable candidate", "error", nerr)
			report.Dropped++
			continue
		}

		req := n.build(c)

		key := strings.ToLower(strings.TrimSpace(req.Title)) + "|" + string(req.Category)
		if at, seen := index[key]; seen {
			// Duplicate: keep whichever carries more source context.
			if len(req.SourceText) > len(ordered[at].req.SourceText) {
				req.ID = ordered[at].req.ID
				ordered[at].req = req
			}
			report.Duplicates++
			continue
		}
		index[key] = len(ordered)
		ordered = append(ordered, keyed{key: key, req: req})
	}

	reqs := make([]models.Requirement, 0, len(ordered))
	for i := range ordered {
		ordered[i].req.ID = fmt.Sprintf("REQ-%03d", i+1)
		reqs = append(reqs, ordered[i].req)
	}
	report.Normalized = len(reqs)

	n.logger.Info("normalized candidates",
		"total", report.Total, "normalized", report.Normalized,
		"dropped", report.Dropped, "duplicates", report.Duplicates)
	return reqs, report
}

// build coerces a single non-empty candidate into a requirement.
func (n *Normalizer) build(c RawCandidate) models.Requirement {
	title := strings.TrimSpace(c.Title)
	desc := strings.TrimSpace(c.Description)
	if title == "" {
		title = firstSentence(desc)
	}

	summary := strings.TrimSpace(c.PlainLanguageSummary)
	if summary == "" {
		if desc != "" {
			summary = desc
		} else {
			summary = title
		}
	}

	category := n.coerceCategory(c.Category, title+" "+desc+" "+summary)

	var dl *models.Deadline
	if c.Deadline != nil && strings.TrimSpace(c.Deadline.Description) != "" {
		d := n.resolver.FromRaw(c.Deadline.Description, c.Deadline.Frequency,
			c.Deadline.DaysAfterPeriodEnd, c.Deadline.DayOfMonth)
		dl = &d
	} else if guess := n.resolver.Parse(summary); guess.Rule.Computable {
		// The oracle gave no deadline but the summary states one plainly.
		dl = &guess
	}

	th := n.coerceThreshold(c.Threshold, title, desc+" "+summary)

	req := models.Requirement{
		Title:                title,
		Category:             category,
		Description:          desc,
		PlainLanguageSummary: summary,
		SourceText:           strings.TrimSpace(c.OriginalText),
		DocumentRef:          strings.TrimSpace(c.DocumentReference),
		Deadline:             dl,
		Threshold:            th,
		CurePeriodDays:       c.CurePeriodDays,
		Status:               models.StatusUnknown,
	}
	req.Severity = n.assignSeverity(req, c.Severity)
	return req
}

// --- category coercion ---

// categoryKeywords maps each category to the text signals that select it.
// The exact tables are heuristic configuration; classification must be
// stable, not legally authoritative.
var categoryKeywords = map[models.Category][]string{
	models.CategoryCovenantCompliance: {
		"dscr", "ltv", "debt yield", "debt service coverage", "loan-to-value",
		"covenant", "coverage ratio", "net worth", "liquidity",
	},
	models.CategoryInsurance: {
		"insur", "policy", "casualty", "liability coverage", "replacement cost",
	},
	models.CategoryFinancialReporting: {
		"financial statement", "rent roll", "operating statement", "budget",
		"audit", "report", "statement", "tax return",
	},
	models.CategoryReserveFunding: {
		"reserve", "replacement deposit", "capital reserve", "frf",
	},
	models.CategoryTaxEscrow: {
		"escrow", "real estate tax", "property tax", "impound",
	},
	models.CategoryLeasing: {
		"lease", "tenant", "sublease", "rental agreement", "occupancy agreement",
	},
	models.CategoryPropertyManagement: {
		"property manager", "management agreement", "managing agent", "property management",
	},
	models.CategoryCapitalImprovements: {
		"capital improvement", "capex", "renovation", "repair", "deferred maintenance",
	},
	models.CategoryEnvironmental: {
		"environmental", "hazardous", "asbestos", "remediation", "phase i",
	},
	models.CategoryLegalEntity: {
		"single purpose entity", "special purpose", "organizational document",
		"entity", "separateness", "bankruptcy remote",
	},
}

// coerceCategory maps a free-text category guess onto the closed
// enumeration. A valid guess wins outright; otherwise keywords are scored
// over the candidate's text, with ties broken toward the higher-severity
// category to avoid under-flagging.
func (n *Normalizer) coerceCategory(guess, text string) models.Category {
	normalized := models.Category(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(guess)), " ", "_"))
	if normalized.IsValid() {
		return normalized
	}

	lower := strings.ToLower(text)
	best := models.CategoryOther
	bestScore := 0
	for _, cat := range models.ValidCategories {
		score := 0
		for _, kw := range categoryKeywords[cat] {
			if strings.Contains(lower, kw) {
				score++
			}
		}
		if score > bestScore || (score == bestScore && score > 0 && categoryBaseSeverity(cat).Rank() > categoryBaseSeverity(best).Rank()) {
			best = cat
			bestScore = score
		}
	}
	return best
}

// --- threshold parsing ---

// metricAliases map text signals to canonical metric labels.
var metricAliases = []struct {
	signal string
	metric string
}{
	{"debt service coverage", "DSCR"},
	{"dscr", "DSCR"},
	{"loan-to-value", "LTV"},
	{"loan to value", "LTV"},
	{"ltv", "LTV"},
	{"debt yield", "Debt Yield"},
	{"occupancy", "Occupancy"},
	{"net worth", "Net Worth"},
	{"liquidity", "Liquidity"},
	{"deposit", "Monthly Deposit"},
}

// coerceThreshold validates an oracle-supplied threshold or, failing that,
// scans the candidate's text for a comparison pattern. It never fabricates a
// threshold: no recognizable pattern means no threshold.
func (n *Normalizer) coerceThreshold(raw *RawThreshold, title, text string) *models.Threshold {
	if raw != nil {
		t := models.Threshold{
			Metric:   strings.TrimSpace(raw.Metric),
			Operator: models.Operator(strings.TrimSpace(raw.Operator)),
			Value:    raw.Value,
			Unit:     strings.TrimSpace(raw.Unit),
		}
		if t.Metric == "" {
			t.Metric = metricFor(title + " " + text)
		}
		if t.Validate() == nil {
			return &t
		}
		n.logger.Warn("discarding malformed oracle threshold", "metric", raw.Metric, "operator", raw.Operator)
	}

	op, value, unit, ok := ParseComparison(text)
	if !ok {
		return nil
	}
	metric := metricFor(title + " " + text)
	if metric == "" {
		metric = title
	}
	t := models.Threshold{Metric: metric, Operator: op, Value: value, Unit: unit}
	if t.Validate() != nil {
		return nil
	}
	return &t
}

func metricFor(text string) string {
	lower := strings.ToLower(text)
	for _, a := range metricAliases {
		if strings.Contains(lower, a.signal) {
			return a.metric
		}
	}
	return ""
}

// --- severity assignment ---

// categoryBaseSeverity is the deterministic default consequence of missing
// a requirement in each category.
func categoryBaseSeverity(cat models.Category) models.Severity {
	switch cat {
	case models.CategoryCovenantCompliance, models.CategoryInsurance:
		return models.SeverityCritical
	case models.CategoryLeasing, models.CategoryEnvironmental, models.CategoryLegalEntity:
		return models.SeverityHigh
	case models.CategoryFinancialReporting, models.CategoryReserveFunding,
		models.CategoryTaxEscrow, models.CategoryPropertyManagement,
		models.CategoryCapitalImprovements:
		return models.SeverityMedium
	}
	return models.SeverityLow
}

// assignSeverity combines the category/frequency table with threshold
// presence. An oracle hint may raise the result but never lower it.
func (n *Normalizer) assignSeverity(req models.Requirement, hint string) models.Severity {
	sev := categoryBaseSeverity(req.Category)

	// Routine monthly reporting is an administrative matter; quarterly and
	// annual packages are material deliverables.
	if req.Category == models.CategoryFinancialReporting && req.Deadline != nil {
		switch req.Deadline.Frequency {
		case models.FrequencyQuarterly, models.FrequencyAnnually:
			sev = models.SeverityHigh
		default:
			sev = models.SeverityMedium
		}
	}

	if req.Threshold != nil {
		sev = models.MaxSeverity(sev, models.SeverityHigh)
	}

	if h := models.Severity(strings.ToLower(strings.TrimSpace(hint))); h.IsValid() {
		sev = models.MaxSeverity(sev, h)
	}
	return sev
}

func firstSentence(s string) string {
	for _, sep := range []string{". ", "; ", "\n"} {
		if i := strings.Index(s, sep); i > 0 {
			return s[:i]
		}
	}
	if len(s) > 80 {
		return strings.TrimSpace(s[:80])
	}
	return s
}
