// Package query answers questions about an extracted loan profile: filtered
// requirement listings, upcoming deadlines, and natural-language lookups.
package query

import (
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/loanguard/loanguard/internal/deadline"
	"github.com/loanguard/loanguard/internal/metrics"
	"github.com/loanguard/loanguard/internal/models"
)

// Filter selects requirements. All set fields must match (conjunction); the
// zero value matches everything.
type Filter struct {
	Category string `json:"category,omitempty"`
	Severity string `json:"severity,omitempty"`
	Status   string `json:"status,omitempty"`
	Search   string `json:"search,omitempty"`
}

// UpcomingDeadline pairs a requirement with its next due date. Due is nil
// for requirements whose deadline cannot be computed from the profile alone.
type UpcomingDeadline struct {
	Requirement models.Requirement `json:"requirement"`
	Due         *time.Time         `json:"due,omitempty"`
	DaysUntil   int                `json:"days_until"`
}

// Answer is one ranked result from a natural-language question.
type Answer struct {
	Requirement models.Requirement `json:"requirement"`
	Score       float64            `json:"score"`
}

// Engine evaluates queries against a loan profile. It never mutates the
// profile and never calls the network.
type Engine struct {
	resolver *deadline.Resolver
	scorer   Scorer
	topK     int
	minScore float64
	logger   *slog.Logger
}

// NewEngine creates a query engine. A nil scorer defaults to lexical
// overlap scoring.
func NewEngine(resolver *deadline.Resolver, scorer Scorer, topK int, minScore float64, logger *slog.Logger) *Engine {
	if scorer == nil {
		scorer = NewLexicalScorer()
	}
	if topK <= 0 {
		topK = 3
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		resolver: resolver,
		scorer:   scorer,
		topK:     topK,
		minScore: minScore,
		logger:   logger,
	}
}

// Requirements returns the profile's requirements matching the filter, in
// requirement-ID order. A filter that matches nothing, including an enum
// value outside the known set, yields an empty slice, never an error.
func (e *Engine) Requirements(profile *models.LoanProfile, f Filter) []models.Requirement {
	metrics.Inc(metrics.QueriesTotal)

	search := strings.ToLower(strings.TrimSpace(f.Search))
	out := make([]models.Requirement, 0, len(profile.Requirements))
	for _, r := range profile.Requirements {
		if f.Category != "" && r.Category != models.Category(f.Category) {
			continue
		}
		if f.Severity != "" && r.Severity != models.Severity(f.Severity) {
			continue
		}
		if f.Status != "" && r.Status != models.Status(f.Status) {
			continue
		}
		if search != "" && !matchesSearch(r, search) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Deadlines returns every requirement that has a deadline, ordered by next
// due date ascending. Requirements whose next date cannot be computed sort
// last, in ID order. withinDays > 0 keeps only computable deadlines due
// within that many calendar days of ref, the same day count DaysUntil
// reports.
func (e *Engine) Deadlines(profile *models.LoanProfile, ref time.Time, withinDays int) []UpcomingDeadline {
	var out []UpcomingDeadline
	for _, r := range profile.Requirements {
		if r.Deadline == nil {
			continue
		}
		due := e.resolver.Next(*r.Deadline, ref)
		if withinDays > 0 {
			if due == nil {
				continue
			}
			if daysBetween(ref, *due) > withinDays {
				continue
			}
		}
		ud := UpcomingDeadline{Requirement: r, Due: due}
		if due != nil {
			ud.DaysUntil = daysBetween(ref, *due)
		}
		out = append(out, ud)
	}

	sort.SliceStable(out, func(i, j int) bool {
		di, dj := out[i].Due, out[j].Due
		switch {
		case di == nil && dj == nil:
			return out[i].Requirement.ID < out[j].Requirement.ID
		case di == nil:
			return false
		case dj == nil:
			return true
		case di.Equal(*dj):
			return out[i].Requirement.ID < out[j].Requirement.ID
		default:
			return di.Before(*dj)
		}
	})
	return out
}

// Ask ranks requirements against a natural-language question and returns
// the top matches above the score floor. Ties break toward the lower
// requirement ID so identical inputs always rank identically.
func (e *Engine) Ask(profile *models.LoanProfile, question string) []Answer {
	metrics.Inc(metrics.AsksTotal)

	var answers []Answer
	for _, r := range profile.Requirements {
		score := e.scorer.Score(question, r)
		if score < e.minScore || score == 0 {
			continue
		}
		answers = append(answers, Answer{Requirement: r, Score: score})
	}

	sort.SliceStable(answers, func(i, j int) bool {
		if answers[i].Score == answers[j].Score {
			return answers[i].Requirement.ID < answers[j].Requirement.ID
		}
		return answers[i].Score > answers[j].Score
	})

	if len(answers) > e.topK {
		answers = answers[:e.topK]
	}
	e.logger.Debug("question answered", "loan_id", profile.LoanID, "matches", len(answers))
	return answers
}

func matchesSearch(r models.Requirement, search string) bool {
	for _, field := range []string{r.Title, r.Description, r.PlainLanguageSummary, r.SourceText} {
		if strings.Contains(strings.ToLower(field), search) {
			return true
		}
	}
	return false
}

// daysBetween counts whole calendar days from a to b, negative when b is
// in the past.
func daysBetween(a, b time.Time) int {
	ad := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	bd := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(bd.Sub(ad).Hours() / 24)
}
