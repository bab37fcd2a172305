package models

import "time"

// LoanProfile is the aggregate of all requirements extracted from one loan
// document. Requirements are owned exclusively by their profile; IDs are
// unique within it and never reused.
type LoanProfile struct {
	LoanID             string        `json:"loan_id"`
	LoanName           string        `json:"loan_name,omitempty"`
	PropertyName       string        `json:"property_name,omitempty"`
	BorrowerName       string        `json:"borrower_name,omitempty"`
	LenderName         string        `json:"lender_name,omitempty"`
	OriginalLoanAmount float64       `json:"original_loan_amount,omitempty"`
	OriginationDate    string        `json:"origination_date,omitempty"`
	MaturityDate       string        `json:"maturity_date,omitempty"`
	SourceDocument     string        `json:"source_document,omitempty"`
	ExtractedAt        time.Time     `json:"extracted_at"`
	Incomplete         bool          `json:"incomplete,omitempty"`
	Requirements       []Requirement `json:"requirements"`
}

// Requirement returns the requirement with the given ID, or nil.
func (p *LoanProfile) Requirement(id string) *Requirement {
	for i := range p.Requirements {
		if p.Requirements[i].ID == id {
			return &p.Requirements[i]
		}
	}
	return nil
}

// Summary holds compliance counts for a loan profile.
type Summary struct {
	LoanID            string         `json:"loan_id"`
	PropertyName      string         `json:"property_name,omitempty"`
	TotalRequirements int            `json:"total_requirements"`
	CriticalItems     int            `json:"critical_items"`
	NonCompliantCount int            `json:"non_compliant_count"`
	AtRiskCount       int            `json:"at_risk_count"`
	ByCategory        map[string]int `json:"by_category"`
	ByStatus          map[string]int `json:"by_status"`
	Incomplete        bool           `json:"incomplete,omitempty"`
}

// Summarize computes compliance counts over the profile's requirements.
func (p *LoanProfile) Summarize() Summary {
	s := Summary{
		LoanID:            p.LoanID,
		PropertyName:      p.PropertyName,
		TotalRequirements: len(p.Requirements),
		ByCategory:        make(map[string]int),
		ByStatus:          make(map[string]int),
		Incomplete:        p.Incomplete,
	}
	for i := range p.Requirements {
		r := &p.Requirements[i]
		s.ByCategory[string(r.Category)]++
		s.ByStatus[string(r.Status)]++
		if r.Severity == SeverityCritical {
			s.CriticalItems++
		}
		switch r.Status {
		case StatusNonCompliant:
			s.NonCompliantCount++
		case StatusAtRisk:
			s.AtRiskCount++
		}
	}
	return s
}
