package alerts

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

func newTestChecker() *Checker {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewChecker(deadline.NewResolver(time.December, 31, logger), DefaultHorizon(), logger)
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func profileWith(reqs ...models.Requirement) *models.LoanProfile {
	return &models.LoanProfile{LoanID: "LOAN-TEST", Requirements: reqs}
}

func monthlyReq(id string, day int, severity models.Severity, status models.Status) models.Requirement {
	return models.Requirement{
		ID: id, Title: "Monthly Deliverable " + id,
		Category: models.CategoryFinancialReporting,
		Severity: severity, Status: status,
		Deadline: &models.Deadline{
			Frequency: models.FrequencyMonthly,
			Rule:      models.Rule{DayOfMonth: day, Computable: true},
		},
	}
}

func TestCheckDeadlineWithinAnyWindow(t *testing.T) {
	c := newTestChecker()
	ref := date(2026, 3, 10)

	// Due Mar 15, five days out, inside the 7-day window.
	alerts := c.Check(profileWith(monthlyReq("REQ-001", 15, models.SeverityMedium, models.StatusUnknown)), ref)
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertDeadlineUpcoming, alerts[0].Type)
	assert.Equal(t, "REQ-001", alerts[0].RequirementID)
	require.NotNil(t, alerts[0].Due)
	assert.Equal(t, date(2026, 3, 15), *alerts[0].Due)
	assert.Contains(t, alerts[0].Message, "due in 5 days")
}

func TestCheckDeadlineOutsideWindowIsSilent(t *testing.T) {
	c := newTestChecker()

	// Due Mar 25, fifteen days out: too far for a medium item.
	alerts := c.Check(profileWith(monthlyReq("REQ-001", 25, models.SeverityMedium, models.StatusUnknown)), date(2026, 3, 10))
	assert.Empty(t, alerts)
}

func TestCheckCriticalGetsLongerWindow(t *testing.T) {
	c := newTestChecker()
	ref := date(2026, 3, 10)

	// Fifteen days out: silent for medium, alerted for critical.
	alerts := c.Check(profileWith(monthlyReq("REQ-001", 25, models.SeverityCritical, models.StatusUnknown)), ref)
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertDeadlineUpcoming, alerts[0].Type)
	assert.Equal(t, models.SeverityCritical, alerts[0].Severity)
}

func TestCheckCompliantProducesNoDeadlineAlert(t *testing.T) {
	c := newTestChecker()

	alerts := c.Check(profileWith(monthlyReq("REQ-001", 15, models.SeverityCritical, models.StatusCompliant)), date(2026, 3, 10))
	assert.Empty(t, alerts)
}

func TestCheckOverdueOneTimeDeadline(t *testing.T) {
	c := newTestChecker()
	due := date(2026, 1, 31)
	req := models.Requirement{
		ID: "REQ-001", Title: "Estoppel Certificate",
		Category: models.CategoryLegalEntity,
		Severity: models.SeverityHigh, Status: models.StatusNonCompliant,
		Deadline: &models.Deadline{
			Frequency: models.FrequencyOneTime,
			Rule:      models.Rule{SpecificDate: &due, Computable: true},
		},
	}

	alerts := c.Check(profileWith(req), date(2026, 3, 10))
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertDeadlineOverdue, alerts[0].Type)
	assert.Contains(t, alerts[0].Message, "was due 2026-01-31")
	require.NotNil(t, alerts[0].Due)
	assert.Equal(t, due, *alerts[0].Due)
}

func TestCheckCovenantAtRiskAndBreach(t *testing.T) {
	c := newTestChecker()
	threshold := &models.Threshold{Metric: "DSCR", Operator: models.OpGTE, Value: 1.25, Unit: "x"}

	atRisk := models.Requirement{
		ID: "REQ-001", Title: "DSCR Covenant",
		Category: models.CategoryCovenantCompliance,
		Severity: models.SeverityCritical, Status: models.StatusAtRisk,
		Threshold: threshold,
	}
	breached := models.Requirement{
		ID: "REQ-002", Title: "LTV Covenant",
		Category: models.CategoryCovenantCompliance,
		Severity: models.SeverityCritical, Status: models.StatusNonCompliant,
		Threshold: &models.Threshold{Metric: "LTV", Operator: models.OpLTE, Value: 75, Unit: "%"},
	}
	healthy := models.Requirement{
		ID: "REQ-003", Title: "Liquidity Covenant",
		Category: models.CategoryCovenantCompliance,
		Severity: models.SeverityHigh, Status: models.StatusCompliant,
		Threshold: &models.Threshold{Metric: "Liquidity", Operator: models.OpGTE, Value: 500000, Unit: "$"},
	}

	alerts := c.Check(profileWith(atRisk, breached, healthy), date(2026, 3, 10))
	require.Len(t, alerts, 2)

	assert.Equal(t, AlertCovenantAtRisk, alerts[0].Type)
	assert.Equal(t, "REQ-001", alerts[0].RequirementID)
	assert.Contains(t, alerts[0].Message, "DSCR must be at least 1.25x")

	assert.Equal(t, AlertCovenantBreach, alerts[1].Type)
	assert.Equal(t, "REQ-002", alerts[1].RequirementID)
	assert.Contains(t, alerts[1].Message, "in breach")
}

func TestCheckCovenantWithoutThresholdIsSilent(t *testing.T) {
	c := newTestChecker()
	req := models.Requirement{
		ID: "REQ-001", Title: "General Covenant",
		Category: models.CategoryCovenantCompliance,
		Severity: models.SeverityHigh, Status: models.StatusAtRisk,
	}

	alerts := c.Check(profileWith(req), date(2026, 3, 10))
	assert.Empty(t, alerts)
}

func TestCheckOrdersByDueDateCovenantsLast(t *testing.T) {
	c := newTestChecker()
	ref := date(2026, 3, 10)

	covenant := models.Requirement{
		ID: "REQ-001", Title: "DSCR Covenant",
		Category: models.CategoryCovenantCompliance,
		Severity: models.SeverityCritical, Status: models.StatusAtRisk,
		Threshold: &models.Threshold{Metric: "DSCR", Operator: models.OpGTE, Value: 1.25, Unit: "x"},
	}
	later := monthlyReq("REQ-002", 16, models.SeverityMedium, models.StatusUnknown)
	sooner := monthlyReq("REQ-003", 12, models.SeverityMedium, models.StatusUnknown)

	alerts := c.Check(profileWith(covenant, later, sooner), ref)
	require.Len(t, alerts, 3)
	assert.Equal(t, "REQ-003", alerts[0].RequirementID)
	assert.Equal(t, "REQ-002", alerts[1].RequirementID)
	assert.Equal(t, "REQ-001", alerts[2].RequirementID, "undated covenant alerts sort last")
}
