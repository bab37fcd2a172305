package normalizer

import (
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loanguard/loanguard/internal/deadline"
	"github.com/loanguard/loanguard/internal/models"
)

func newTestNormalizer() *Normalizer {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return New(deadline.NewResolver(time.December, 31, logger), logger)
}

func TestNormalizeAssignsSequentialIDs(t *testing.T) {
	n := newTestNormalizer()

	reqs, report := n.Normalize([]RawCandidate{
		{Title: "Quarterly Financials", Category: "financial_reporting", Description: "Deliver quarterly statements"},
		{Title: "Property Insurance", Category: "insurance", Description: "Maintain coverage"},
		{Title: "DSCR Covenant", Category: "covenant_compliance", Description: "Maintain DSCR of not less than 1.25x"},
	})

	require.Len(t, reqs, 3)
	assert.Equal(t, "REQ-001", reqs[0].ID)
	assert.Equal(t, "REQ-002", reqs[1].ID)
	assert.Equal(t, "REQ-003", reqs[2].ID)
	assert.Equal(t, 3, report.Normalized)
	assert.Zero(t, report.Dropped)
}

func TestNormalizeDropsEmptyCandidates(t *testing.T) {
	n := newTestNormalizer()

	reqs, report := n.Normalize([]RawCandidate{
		{},
		{Title: "Rent Roll", Category: "financial_reporting", Description: "Monthly rent roll"},
		{OriginalText: "Section 9.9 text with no title or description"},
	})

	require.Len(t, reqs, 1)
	assert.Equal(t, "REQ-001", reqs[0].ID)
	assert.Equal(t, 2, report.Dropped)
}

func TestNormalizeDedupKeepsLongerSourceText(t *testing.T) {
	n := newTestNormalizer()

	reqs, report := n.Normalize([]RawCandidate{
		{Title: "DSCR Covenant", Category: "covenant_compliance", Description: "Maintain DSCR", OriginalText: "short"},
		{Title: "dscr covenant", Category: "covenant_compliance", Description: "Maintain DSCR", OriginalText: "a much longer verbatim excerpt from the loan agreement"},
		{Title: "Rent Roll", Category: "financial_reporting", Description: "Monthly rent roll"},
	})

	require.Len(t, reqs, 2)
	assert.Equal(t, 1, report.Duplicates)
	assert.Equal(t, "REQ-001", reqs[0].ID)
	assert.Equal(t, "a much longer verbatim excerpt from the loan agreement", reqs[0].SourceText)
	assert.Equal(t, "REQ-002", reqs[1].ID)
}

func TestNormalizeSameTitleDifferentCategoryNotDuplicates(t *testing.T) {
	n := newTestNormalizer()

	reqs, _ := n.Normalize([]RawCandidate{
		{Title: "Annual Certificate", Category: "insurance", Description: "Evidence of insurance"},
		{Title: "Annual Certificate", Category: "legal_entity", Description: "Entity compliance certificate"},
	})

	assert.Len(t, reqs, 2)
}

func TestNormalizeIsDeterministic(t *testing.T) {
	n := newTestNormalizer()
	candidates := []RawCandidate{
		{Title: "Quarterly Financials", Category: "financial_reporting", Description: "Deliver quarterly statements"},
		{Title: "Property Insurance", Category: "insurance", Description: "Maintain coverage"},
	}

	first, _ := n.Normalize(candidates)
	second, _ := n.Normalize(candidates)
	assert.Equal(t, first, second)
}

func TestCategoryCoercionValidGuessWins(t *testing.T) {
	n := newTestNormalizer()

	reqs, _ := n.Normalize([]RawCandidate{
		{Title: "Odd One", Category: "Tax Escrow", Description: "pay into the account"},
	})
	require.Len(t, reqs, 1)
	assert.Equal(t, models.CategoryTaxEscrow, reqs[0].Category, "case and spaces normalize onto the enum")
}

func TestCategoryCoercionFallsBackToKeywords(t *testing.T) {
	n := newTestNormalizer()

	reqs, _ := n.Normalize([]RawCandidate{
		{Title: "Coverage Requirement", Category: "misc", Description: "Borrower shall maintain casualty insurance on the property"},
		{Title: "Mystery Obligation", Category: "misc", Description: "something entirely unclassifiable"},
	})
	require.Len(t, reqs, 2)
	assert.Equal(t, models.CategoryInsurance, reqs[0].Category)
	assert.Equal(t, models.CategoryOther, reqs[1].Category)
}

func TestTitleFallsBackToFirstSentence(t *testing.T) {
	n := newTestNormalizer()

	reqs, _ := n.Normalize([]RawCandidate{
		{Description: "Deliver annual budget to Lender. Budget must be approved before year end."},
	})
	require.Len(t, reqs, 1)
	assert.Equal(t, "Deliver annual budget to Lender", reqs[0].Title)
}

func TestThresholdFromOracleStructure(t *testing.T) {
	n := newTestNormalizer()

	reqs, _ := n.Normalize([]RawCandidate{{
		Title:       "DSCR Covenant",
		Category:    "covenant_compliance",
		Description: "Maintain minimum DSCR",
		Threshold:   &RawThreshold{Metric: "DSCR", Operator: ">=", Value: 1.25, Unit: "x"},
	}})
	require.Len(t, reqs, 1)
	require.NotNil(t, reqs[0].Threshold)
	assert.Equal(t, models.OpGTE, reqs[0].Threshold.Operator)
	assert.Equal(t, 1.25, reqs[0].Threshold.Value)
}

func TestThresholdParsedFromTextWhenOracleOmitsIt(t *testing.T) {
	n := newTestNormalizer()

	reqs, _ := n.Normalize([]RawCandidate{{
		Title:       "DSCR Covenant",
		Category:    "covenant_compliance",
		Description: "Borrower shall maintain a Debt Service Coverage Ratio of not less than 1.25:1.00",
	}})
	require.Len(t, reqs, 1)
	require.NotNil(t, reqs[0].Threshold)
	assert.Equal(t, models.OpGTE, reqs[0].Threshold.Operator)
	assert.Equal(t, 1.25, reqs[0].Threshold.Value)
	assert.Equal(t, "DSCR", reqs[0].Threshold.Metric)
}

func TestMalformedOracleThresholdDiscarded(t *testing.T) {
	n := newTestNormalizer()

	reqs, _ := n.Normalize([]RawCandidate{{
		Title:       "Odd Covenant",
		Category:    "other",
		Description: "no parseable comparison here",
		Threshold:   &RawThreshold{Metric: "Thing", Operator: "=>", Value: 1},
	}})
	require.Len(t, reqs, 1)
	assert.Nil(t, reqs[0].Threshold)
}

func TestSeverityTable(t *testing.T) {
	n := newTestNormalizer()

	reqs, _ := n.Normalize([]RawCandidate{
		{
			Title: "Quarterly Financials", Category: "financial_reporting",
			Description: "Deliver quarterly statements",
			Deadline:    &RawDeadline{Description: "45 days after quarter end", Frequency: "quarterly", DaysAfterPeriodEnd: 45},
		},
		{
			Title: "Monthly Rent Roll", Category: "financial_reporting",
			Description: "Deliver rent roll",
			Deadline:    &RawDeadline{Description: "By the 15th of each month", Frequency: "monthly", DayOfMonth: 15},
		},
		{Title: "Property Insurance", Category: "insurance", Description: "Maintain coverage"},
		{
			Title: "Reserve Deposits", Category: "reserve_funding",
			Description: "Deposit not less than $2,500 monthly",
		},
	})
	require.Len(t, reqs, 4)

	assert.Equal(t, models.SeverityHigh, reqs[0].Severity, "quarterly reporting is a material deliverable")
	assert.Equal(t, models.SeverityMedium, reqs[1].Severity, "monthly reporting is administrative")
	assert.Equal(t, models.SeverityCritical, reqs[2].Severity)
	assert.Equal(t, models.SeverityHigh, reqs[3].Severity, "a threshold bumps severity to at least high")
	require.NotNil(t, reqs[3].Threshold)
}

func TestSeverityHintRaisesButNeverLowers(t *testing.T) {
	n := newTestNormalizer()

	reqs, _ := n.Normalize([]RawCandidate{
		{Title: "Budget", Category: "financial_reporting", Description: "Annual budget", Severity: "critical"},
		{Title: "Insurance", Category: "insurance", Description: "Maintain coverage", Severity: "low"},
		{Title: "Repairs", Category: "capital_improvements", Description: "Complete repairs", Severity: "urgent"},
	})
	require.Len(t, reqs, 3)

	assert.Equal(t, models.SeverityCritical, reqs[0].Severity, "valid hint raises")
	assert.Equal(t, models.SeverityCritical, reqs[1].Severity, "hint never lowers the table value")
	assert.Equal(t, models.SeverityMedium, reqs[2].Severity, "invalid hint is ignored")
}

func TestDeadlineGuessedFromSummaryWhenOracleOmitsIt(t *testing.T) {
	n := newTestNormalizer()

	reqs, _ := n.Normalize([]RawCandidate{{
		Title:                "Rent Roll",
		Category:             "financial_reporting",
		Description:          "Deliver rent roll",
		PlainLanguageSummary: "Send the rent roll by the 15th of each month",
	}})
	require.Len(t, reqs, 1)
	require.NotNil(t, reqs[0].Deadline)
	assert.Equal(t, models.FrequencyMonthly, reqs[0].Deadline.Frequency)
	assert.Equal(t, 15, reqs[0].Deadline.Rule.DayOfMonth)
}
