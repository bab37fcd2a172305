package extract

import (
	"context"

	"github.com/loanguard/loanguard/internal/normalizer"
)

// DemoLoanID identifies the canned demo loan used in mock mode and tests.
const DemoLoanID = "DEMO-001"

// MockOracle returns a fixed candidate set regardless of input. It is the
// documented mock mode: no API key required, same structural shape as a
// real run. Duplicate candidates across chunks collapse in normalization.
type MockOracle struct{}

// NewMockOracle creates the mock oracle.
func NewMockOracle() *MockOracle { return &MockOracle{} }

// Extract returns the demo candidates for any chunk.
func (m *MockOracle) Extract(_ context.Context, _ string) (*Result, error) {
	return &Result{
		LoanInfo:   DemoLoanInfo(),
		Candidates: DemoCandidates(),
	}, nil
}

// DemoLoanInfo is the loan-level metadata for the demo loan.
func DemoLoanInfo() normalizer.RawLoanInfo {
	return normalizer.RawLoanInfo{
		BorrowerName:    "Sample Borrower LLC",
		LenderName:      "Sample Bank, N.A.",
		PropertyName:    "123 Main Street Office Building",
		LoanAmount:      10000000,
		OriginationDate: "2024-01-15",
		MaturityDate:    "2029-01-15",
	}
}

// DemoCandidates is the canonical demo dataset: the categories a typical
// commercial loan exercises, at least one covenant with a threshold, and at
// least one monthly and one annual deadline.
func DemoCandidates() []normalizer.RawCandidate {
	return []normalizer.RawCandidate{
		{
			Title:                "Quarterly Financial Statements",
			Category:             "financial_reporting",
			Description:          "Borrower must deliver quarterly unaudited financial statements",
			PlainLanguageSummary: "Send your quarterly financial statements to the lender within 45 days after each quarter ends",
			OriginalText:         "Borrower shall deliver to Lender within forty-five (45) days after the end of each fiscal quarter...",
			DocumentReference:    "Section 5.1.1",
			Deadline: &normalizer.RawDeadline{
				Description:        "45 days after quarter end",
				Frequency:          "quarterly",
				DaysAfterPeriodEnd: 45,
			},
			Severity: "high",
		},
		{
			Title:                "Annual Audited Financials",
			Category:             "financial_reporting",
			Description:          "Borrower must deliver annual audited financial statements",
			PlainLanguageSummary: "Have a CPA audit your financials and send the report within 120 days after year end",
			OriginalText:         "Borrower shall deliver to Lender within one hundred twenty (120) days after the end of each fiscal year, audited financial statements...",
			DocumentReference:    "Section 5.1.2",
			Deadline: &normalizer.RawDeadline{
				Description:        "120 days after fiscal year end",
				Frequency:          "annually",
				DaysAfterPeriodEnd: 120,
			},
			Severity: "critical",
		},
		{
			Title:                "DSCR Covenant",
			Category:             "covenant_compliance",
			Description:          "Maintain minimum Debt Service Coverage Ratio",
			PlainLanguageSummary: "Your property's net operating income divided by your loan payments must be at least 1.25x",
			OriginalText:         "Borrower shall maintain a Debt Service Coverage Ratio of not less than 1.25:1.00...",
			DocumentReference:    "Section 6.2",
			Deadline: &normalizer.RawDeadline{
				Description: "Tested quarterly",
				Frequency:   "quarterly",
			},
			Threshold: &normalizer.RawThreshold{
				Metric:   "DSCR",
				Operator: ">=",
				Value:    1.25,
				Unit:     "x",
			},
			Severity:       "critical",
			CurePeriodDays: 30,
		},
		{
			Title:                "Property Insurance",
			Category:             "insurance",
			Description:          "Maintain property insurance with specified coverage",
			PlainLanguageSummary: "Keep your property insured for full replacement cost. Send proof to lender before each renewal.",
			OriginalText:         "Borrower shall maintain property insurance in an amount not less than the full replacement cost...",
			DocumentReference:    "Section 4.1",
			Deadline: &normalizer.RawDeadline{
				Description: "30 days before policy expiration",
				Frequency:   "annually",
			},
			Severity: "critical",
		},
		{
			Title:                "Replacement Reserve Deposits",
			Category:             "reserve_funding",
			Description:          "Monthly deposits to replacement reserve",
			PlainLanguageSummary: "Deposit $2,500 monthly into your replacement reserve account",
			OriginalText:         "Borrower shall deposit with Lender on each Payment Date the sum of $2,500...",
			DocumentReference:    "Section 7.3",
			Deadline: &normalizer.RawDeadline{
				Description: "Monthly with mortgage payment",
				Frequency:   "monthly",
				DayOfMonth:  1,
			},
			Threshold: &normalizer.RawThreshold{
				Metric:   "Monthly Deposit",
				Operator: ">=",
				Value:    2500,
				Unit:     "$",
			},
			Severity: "medium",
		},
		{
			Title:                "Monthly Rent Roll",
			Category:             "financial_reporting",
			Description:          "Submit monthly rent roll",
			PlainLanguageSummary: "Send a current rent roll showing all tenants, lease terms, and rental rates by the 15th of each month",
			OriginalText:         "Borrower shall deliver to Lender by the fifteenth (15th) day of each calendar month a current rent roll...",
			DocumentReference:    "Section 5.1.4",
			Deadline: &normalizer.RawDeadline{
				Description: "By the 15th of each month",
				Frequency:   "monthly",
				DayOfMonth:  15,
			},
			Severity: "medium",
		},
		{
			Title:                "Major Lease Approval",
			Category:             "leasing",
			Description:          "Lender approval required for major leases",
			PlainLanguageSummary: "Get lender approval before signing any lease over 10,000 SF or with a tenant getting more than 3 months free rent",
			OriginalText:         "Borrower shall not enter into any lease for more than 10,000 square feet or containing concessions in excess of three (3) months free rent without Lender's prior written consent...",
			DocumentReference:    "Section 8.2",
			Deadline: &normalizer.RawDeadline{
				Description: "Prior to lease execution",
				Frequency:   "as_needed",
			},
			Severity: "high",
		},
		{
			Title:                "Annual Operating Budget",
			Category:             "financial_reporting",
			Description:          "Submit annual operating budget",
			PlainLanguageSummary: "Submit next year's operating budget for lender approval by November 15th each year",
			OriginalText:         "Not later than November 15 of each year, Borrower shall submit to Lender for approval the proposed annual operating budget...",
			DocumentReference:    "Section 5.1.5",
			Deadline: &normalizer.RawDeadline{
				Description: "November 15 annually",
				Frequency:   "annually",
			},
			Severity: "medium",
		},
	}
}
