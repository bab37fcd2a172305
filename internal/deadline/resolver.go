// Package deadline parses natural-language deadline descriptions into
// structured recurrence rules and computes next occurrences.
package deadline

import (
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/loanguard/loanguard/internal/models"
)

const semiAnnualIntervalDays = 182

// Resolver parses deadline descriptions and computes due dates relative to
// a reference date. FiscalYearEnd anchors "days after year end" rules.
type Resolver struct {
	fiscalYearEndMonth time.Month
	fiscalYearEndDay   int
	logger             *slog.Logger
}

// NewResolver creates a resolver with the given fiscal year end. A zero
// month defaults to December 31 (calendar year end).
func NewResolver(fyMonth time.Month, fyDay int, logger *slog.Logger) *Resolver {
	if fyMonth == 0 {
		fyMonth = time.December
		fyDay = 31
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{fiscalYearEndMonth: fyMonth, fiscalYearEndDay: fyDay, logger: logger}
}

var (
	// Numbers near "days", tolerating the legal "forty-five (45) days" form.
	reDaysNumber = regexp.MustCompile(`(\d+)\s*\)?\s*(?:calendar\s+|business\s+)?days?\b`)

	// "by the 15th (day) of each (calendar) month", tolerating "fifteenth (15th)".
	reDayOfMonth = regexp.MustCompile(`(?i)(?:\(\s*)?(\d{1,2})(?:st|nd|rd|th)?\s*\)?\s*(?:day\s+)?of\s+(?:each|every|the)\s+(?:calendar\s+)?month`)

	reMonthDay  = regexp.MustCompile(`(?i)\b(january|february|march|april|may|june|july|august|september|october|november|december)\s+(\d{1,2})(?:st|nd|rd|th)?\b(?:,?\s*(\d{4}))?`)
	reISODate   = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)
	reEveryDays = regexp.MustCompile(`(?i)every\s+(\d+)\s+days?`)
)

var monthNames = map[string]time.Month{
	"january": time.January, "february": time.February, "march": time.March,
	"april": time.April, "may": time.May, "june": time.June, "july": time.July,
	"august": time.August, "september": time.September, "october": time.October,
	"november": time.November, "december": time.December,
}

// Parse converts a natural-language deadline description into a structured
// deadline. It never fails: unrecognized phrasing yields a custom,
// non-computable deadline with the description as the only authoritative
// source. Parsing is deterministic and idempotent.
func (r *Resolver) Parse(description string) models.Deadline {
	d := models.Deadline{Description: description, Frequency: models.FrequencyCustom}
	lower := strings.ToLower(description)

	// "N days before <event>" (policy expiration, lease execution): the event
	// date is outside the document, so the occurrence is not computable.
	if m := reDaysNumber.FindStringSubmatch(lower); m != nil && strings.Contains(lower, "before") {
		n, _ := strconv.Atoi(m[1])
		d.Frequency = models.FrequencyOneTime
		d.Rule = models.Rule{DaysBeforeEvent: n, Computable: false}
		return d
	}

	// Offset-from-period-end rules: "within N days after each quarter ends",
	// "120 days after fiscal year end", "N days after the end of each month".
	if m := reDaysNumber.FindStringSubmatch(lower); m != nil && mentionsAfter(lower) {
		n, _ := strconv.Atoi(m[1])
		switch {
		case strings.Contains(lower, "quarter"):
			d.Frequency = models.FrequencyQuarterly
			d.Rule = models.Rule{DaysAfterPeriodEnd: n, Computable: true}
			return d
		case strings.Contains(lower, "year"):
			d.Frequency = models.FrequencyAnnually
			d.Rule = models.Rule{DaysAfterPeriodEnd: n, Computable: true}
			return d
		case strings.Contains(lower, "month"):
			d.Frequency = models.FrequencyMonthly
			d.Rule = models.Rule{DaysAfterPeriodEnd: n, Computable: true}
			return d
		default:
			// "within N days after <event>": the anchor event date is not
			// known to the resolver, so the occurrence cannot be computed.
			d.Frequency = models.FrequencyOneTime
			d.Rule = models.Rule{DaysAfterPeriodEnd: n, Computable: false}
			return d
		}
	}

	// "by the 15th of each month"
	if m := reDayOfMonth.FindStringSubmatch(description); m != nil {
		day, _ := strconv.Atoi(m[1])
		if day >= 1 && day <= 31 {
			d.Frequency = models.FrequencyMonthly
			d.Rule = models.Rule{DayOfMonth: day, Computable: true}
			return d
		}
	}

	// Explicit dates: ISO form first, then "November 15, 2027" or an annual
	// fixed date like "November 15 each year".
	if m := reISODate.FindStringSubmatch(description); m != nil {
		if t, err := time.Parse("2006-01-02", m[0]); err == nil {
			d.Frequency = models.FrequencyOneTime
			d.Rule = models.Rule{SpecificDate: &t, Computable: true}
			return d
		}
	}
	if m := reMonthDay.FindStringSubmatch(description); m != nil {
		month := monthNames[strings.ToLower(m[1])]
		day, _ := strconv.Atoi(m[2])
		if day >= 1 && day <= 31 {
			if m[3] != "" {
				year, _ := strconv.Atoi(m[3])
				t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
				d.Frequency = models.FrequencyOneTime
				d.Rule = models.Rule{SpecificDate: &t, Computable: true}
				return d
			}
			d.Frequency = models.FrequencyAnnually
			d.Rule = models.Rule{Month: month, Day: day, Computable: true}
			return d
		}
	}

	if m := reEveryDays.FindStringSubmatch(lower); m != nil {
		n, _ := strconv.Atoi(m[1])
		if n > 0 {
			d.Frequency = models.FrequencyCustom
			d.Rule = models.Rule{IntervalDays: n, Computable: true}
			return d
		}
	}

	switch {
	case strings.Contains(lower, "semi-annual") || strings.Contains(lower, "semiannual") || strings.Contains(lower, "twice a year"):
		d.Frequency = models.FrequencyCustom
		d.Rule = models.Rule{IntervalDays: semiAnnualIntervalDays, Computable: true}
	case strings.Contains(lower, "quarterly") || strings.Contains(lower, "each quarter") || strings.Contains(lower, "every quarter"):
		d.Frequency = models.FrequencyQuarterly
		d.Rule = models.Rule{Computable: true}
	case strings.Contains(lower, "monthly") || strings.Contains(lower, "each month") || strings.Contains(lower, "every month") || strings.Contains(lower, "per month"):
		d.Frequency = models.FrequencyMonthly
		d.Rule = models.Rule{DayOfMonth: 1, Computable: true}
	case strings.Contains(lower, "annually") || strings.Contains(lower, "annual") || strings.Contains(lower, "each year") || strings.Contains(lower, "yearly") || strings.Contains(lower, "per annum"):
		d.Frequency = models.FrequencyAnnually
		d.Rule = models.Rule{Computable: true}
	case strings.Contains(lower, "one-time") || strings.Contains(lower, "one time") || strings.Contains(lower, "at closing"):
		d.Frequency = models.FrequencyOneTime
		d.Rule = models.Rule{Computable: false}
	default:
		d.Frequency = models.FrequencyCustom
		d.Rule = models.Rule{Computable: false}
		r.logger.Debug("deadline not parseable, keeping description only", "description", truncate(description, 80))
	}
	return d
}

func mentionsAfter(lower string) bool {
	return strings.Contains(lower, "after") || strings.Contains(lower, "following") || strings.Contains(lower, "within")
}

// Next computes the earliest occurrence of the deadline on or after ref.
// It returns nil when the rule is non-computable. For one-time deadlines it
// returns the fixed date, or nil when the anchor date is unknown.
func (r *Resolver) Next(d models.Deadline, ref time.Time) *time.Time {
	if !d.Rule.Computable {
		return nil
	}
	ref = dateOnly(ref)

	switch d.Frequency {
	case models.FrequencyOneTime:
		if d.Rule.SpecificDate != nil {
			t := dateOnly(*d.Rule.SpecificDate)
			return &t
		}
		return nil

	case models.FrequencyMonthly:
		if d.Rule.DaysAfterPeriodEnd > 0 {
			// Start the scan far enough back that the first candidate period
			// end precedes ref by more than the offset; a large offset can
			// make a months-old period the earliest one still due.
			for k := -(d.Rule.DaysAfterPeriodEnd/28 + 2); ; k++ {
				end := endOfMonth(ref.AddDate(0, k, 0))
				due := end.AddDate(0, 0, d.Rule.DaysAfterPeriodEnd)
				if !due.Before(ref) {
					return &due
				}
			}
		}
		day := d.Rule.DayOfMonth
		if day <= 0 {
			day = 1
		}
		due := dayInMonth(ref.Year(), ref.Month(), day)
		if due.Before(ref) {
			next := ref.AddDate(0, 1, -ref.Day()+1) // first of next month
			due = dayInMonth(next.Year(), next.Month(), day)
		}
		return &due

	case models.FrequencyQuarterly:
		for k := -(d.Rule.DaysAfterPeriodEnd/90 + 2); ; k++ {
			end := quarterEnd(ref, k)
			due := end.AddDate(0, 0, d.Rule.DaysAfterPeriodEnd)
			if !due.Before(ref) {
				return &due
			}
		}

	case models.FrequencyAnnually:
		if d.Rule.Month != 0 {
			due := dayInMonth(ref.Year(), d.Rule.Month, d.Rule.Day)
			if due.Before(ref) {
				due = dayInMonth(ref.Year()+1, d.Rule.Month, d.Rule.Day)
			}
			return &due
		}
		for year := ref.Year() - d.Rule.DaysAfterPeriodEnd/365 - 2; ; year++ {
			end := dayInMonth(year, r.fiscalYearEndMonth, r.fiscalYearEndDay)
			due := end.AddDate(0, 0, d.Rule.DaysAfterPeriodEnd)
			if !due.Before(ref) {
				return &due
			}
		}

	case models.FrequencyCustom:
		if d.Rule.IntervalDays <= 0 {
			return nil
		}
		// Anchor custom intervals at the start of the reference year so the
		// schedule is deterministic for a given reference date.
		due := time.Date(ref.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
		for due.Before(ref) {
			due = due.AddDate(0, 0, d.Rule.IntervalDays)
		}
		return &due
	}
	return nil
}

// FromRaw builds a deadline from oracle-supplied structured fields, falling
// back to parsing the description when the structure is missing or invalid.
// Frequencies outside the closed enumeration (the source documents use
// "semi_annual", "as_needed", "upon_request") map onto custom rules.
func (r *Resolver) FromRaw(description, frequency string, daysAfterPeriodEnd, dayOfMonth int) models.Deadline {
	parsed := r.Parse(description)

	freq := models.Frequency(strings.ToLower(strings.TrimSpace(frequency)))
	switch strings.ToLower(strings.TrimSpace(frequency)) {
	case "annual":
		freq = models.FrequencyAnnually
	case "semi_annual", "semi-annual":
		return models.Deadline{
			Description: description,
			Frequency:   models.FrequencyCustom,
			Rule:        models.Rule{IntervalDays: semiAnnualIntervalDays, Computable: true},
		}
	case "as_needed", "upon_request":
		return models.Deadline{
			Description: description,
			Frequency:   models.FrequencyCustom,
			Rule:        models.Rule{Computable: false},
		}
	}
	if !freq.IsValid() {
		return parsed
	}

	d := models.Deadline{Description: description, Frequency: freq}
	switch freq {
	case models.FrequencyMonthly:
		switch {
		case dayOfMonth > 0:
			d.Rule = models.Rule{DayOfMonth: dayOfMonth, Computable: true}
		case daysAfterPeriodEnd > 0:
			d.Rule = models.Rule{DaysAfterPeriodEnd: daysAfterPeriodEnd, Computable: true}
		case parsed.Frequency == freq:
			d.Rule = parsed.Rule
		default:
			d.Rule = models.Rule{DayOfMonth: 1, Computable: true}
		}
	case models.FrequencyQuarterly, models.FrequencyAnnually:
		switch {
		case daysAfterPeriodEnd > 0:
			d.Rule = models.Rule{DaysAfterPeriodEnd: daysAfterPeriodEnd, Computable: true}
		case parsed.Frequency == freq:
			d.Rule = parsed.Rule
		case parsed.Rule.DaysBeforeEvent > 0:
			d.Rule = parsed.Rule
		default:
			d.Rule = models.Rule{Computable: true}
		}
	case models.FrequencyOneTime, models.FrequencyCustom:
		if parsed.Frequency == freq {
			d.Rule = parsed.Rule
		} else {
			d.Rule = models.Rule{Computable: false}
		}
	}
	return d
}

// --- date helpers ---

func dateOnly(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func endOfMonth(t time.Time) time.Time {
	firstOfNext := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
	return firstOfNext.AddDate(0, 0, -1)
}

// quarterEnd returns the end of the calendar quarter k quarters after the
// quarter containing ref (k may be negative).
func quarterEnd(ref time.Time, k int) time.Time {
	q := (int(ref.Month()) - 1) / 3
	firstOfQuarter := time.Date(ref.Year(), time.Month(q*3+1), 1, 0, 0, 0, 0, time.UTC)
	return firstOfQuarter.AddDate(0, (k+1)*3, 0).AddDate(0, 0, -1)
}

// dayInMonth clamps day to the month's length, so "the 31st of each month"
// lands on February 28/29.
func dayInMonth(year int, month time.Month, day int) time.Time {
	if day <= 0 {
		day = 1
	}
	last := endOfMonth(time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)).Day()
	if day > last {
		day = last
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) > n {
		return string(runes[:n]) + "..."
	}
	return s
}
