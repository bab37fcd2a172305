// Package alerts derives actionable warnings from a loan profile. Alerts
// are plain data for callers to render or route; nothing here sends email
// or talks to the network.
package alerts

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/loanguard/loanguard/internal/deadline"
	"github.com/loanguard/loanguard/internal/metrics"
	"github.com/loanguard/loanguard/internal/models"
)

// AlertType identifies what triggered an alert.
type AlertType string

const (
	AlertDeadlineUpcoming AlertType = "deadline_upcoming"
	AlertDeadlineOverdue  AlertType = "deadline_overdue"
	AlertCovenantAtRisk   AlertType = "covenant_at_risk"
	AlertCovenantBreach   AlertType = "covenant_breach"
)

// Alert is one warning derived from the profile state.
type Alert struct {
	Type          AlertType       `json:"type"`
	LoanID        string          `json:"loan_id"`
	RequirementID string          `json:"requirement_id"`
	Title         string          `json:"title"`
	Severity      models.Severity `json:"severity"`
	Message       string          `json:"message"`
	Due           *time.Time      `json:"due,omitempty"`
}

// Horizon controls how far ahead deadline alerts look. Critical items get
// the longer window.
type Horizon struct {
	AnyDays      int
	CriticalDays int
}

// DefaultHorizon alerts on anything due within a week and critical items
// due within a month.
func DefaultHorizon() Horizon {
	return Horizon{AnyDays: 7, CriticalDays: 30}
}

// Checker scans profiles for conditions worth flagging.
type Checker struct {
	resolver *deadline.Resolver
	horizon  Horizon
	logger   *slog.Logger
}

// NewChecker creates a checker.
func NewChecker(resolver *deadline.Resolver, horizon Horizon, logger *slog.Logger) *Checker {
	if horizon.AnyDays <= 0 {
		horizon = DefaultHorizon()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Checker{resolver: resolver, horizon: horizon, logger: logger}
}

// Check evaluates the profile as of ref and returns alerts ordered by due
// date, covenant alerts last. Compliant requirements never produce
// deadline alerts.
func (c *Checker) Check(profile *models.LoanProfile, ref time.Time) []Alert {
	var out []Alert

	for _, r := range profile.Requirements {
		out = append(out, c.checkDeadline(profile.LoanID, r, ref)...)
		out = append(out, c.checkCovenant(profile.LoanID, r)...)
	}

	sort.SliceStable(out, func(i, j int) bool {
		di, dj := out[i].Due, out[j].Due
		switch {
		case di == nil && dj == nil:
			return out[i].RequirementID < out[j].RequirementID
		case di == nil:
			return false
		case dj == nil:
			return true
		case di.Equal(*dj):
			return out[i].RequirementID < out[j].RequirementID
		default:
			return di.Before(*dj)
		}
	})

	for range out {
		metrics.Inc(metrics.AlertsEmitted)
	}
	c.logger.Debug("alert check complete", "loan_id", profile.LoanID, "alerts", len(out))
	return out
}

func (c *Checker) checkDeadline(loanID string, r models.Requirement, ref time.Time) []Alert {
	if r.Deadline == nil || r.Status == models.StatusCompliant {
		return nil
	}

	// A one-time deadline with a known date in the past is overdue rather
	// than upcoming.
	if r.Deadline.Rule.SpecificDate != nil && r.Deadline.Rule.SpecificDate.Before(ref) &&
		r.Deadline.Frequency == models.FrequencyOneTime {
		due := *r.Deadline.Rule.SpecificDate
		return []Alert{{
			Type:          AlertDeadlineOverdue,
			LoanID:        loanID,
			RequirementID: r.ID,
			Title:         r.Title,
			Severity:      r.Severity,
			Message:       fmt.Sprintf("%s was due %s and has not been marked compliant", r.Title, due.Format("2006-01-02")),
			Due:           &due,
		}}
	}

	due := c.resolver.Next(*r.Deadline, ref)
	if due == nil {
		return nil
	}
	days := daysUntil(ref, *due)

	window := c.horizon.AnyDays
	if r.Severity == models.SeverityCritical {
		window = c.horizon.CriticalDays
	}
	if days > window {
		return nil
	}

	return []Alert{{
		Type:          AlertDeadlineUpcoming,
		LoanID:        loanID,
		RequirementID: r.ID,
		Title:         r.Title,
		Severity:      r.Severity,
		Message:       fmt.Sprintf("%s is due in %d days (%s)", r.Title, days, due.Format("2006-01-02")),
		Due:           due,
	}}
}

func (c *Checker) checkCovenant(loanID string, r models.Requirement) []Alert {
	if r.Threshold == nil {
		return nil
	}
	switch r.Status {
	case models.StatusAtRisk:
		return []Alert{{
			Type:          AlertCovenantAtRisk,
			LoanID:        loanID,
			RequirementID: r.ID,
			Title:         r.Title,
			Severity:      r.Severity,
			Message:       fmt.Sprintf("%s is at risk: required %s", r.Title, r.Threshold.Human()),
		}}
	case models.StatusNonCompliant:
		return []Alert{{
			Type:          AlertCovenantBreach,
			LoanID:        loanID,
			RequirementID: r.ID,
			Title:         r.Title,
			Severity:      r.Severity,
			Message:       fmt.Sprintf("%s is in breach: required %s", r.Title, r.Threshold.Human()),
		}}
	default:
		return nil
	}
}

func daysUntil(ref, due time.Time) int {
	rd := time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, time.UTC)
	dd := time.Date(due.Year(), due.Month(), due.Day(), 0, 0, 0, 0, time.UTC)
	return int(dd.Sub(rd).Hours() / 24)
}
