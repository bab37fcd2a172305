package normalizer

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/loanguard/loanguard/internal/models"
)

// comparatorPhrases are matched in order; longer phrases come first so
// "not less than" never reads as "less than".
var comparatorPhrases = []struct {
	phrase string
	op     models.Operator
}{
	{"not less than", models.OpGTE},
	{"no less than", models.OpGTE},
	{"at least", models.OpGTE},
	{"a minimum of", models.OpGTE},
	{"minimum of", models.OpGTE},
	{"not to exceed", models.OpLTE},
	{"not exceed", models.OpLTE},
	{"no more than", models.OpLTE},
	{"no greater than", models.OpLTE},
	{"at most", models.OpLTE},
	{"a maximum of", models.OpLTE},
	{"maximum of", models.OpLTE},
	{"in excess of", models.OpGT},
	{"greater than", models.OpGT},
	{"more than", models.OpGT},
	{"not fall below", models.OpGTE},
	{"not be below", models.OpGTE},
	{"not below", models.OpGTE},
	{"less than", models.OpLT},
	{"below", models.OpLT},
	{"equal to", models.OpEQ},
}

var symbolOpRe = regexp.MustCompile(`(>=|<=|==|>|<)\s*(\$)?\s*([0-9][0-9,]*(?:\.[0-9]+)?)\s*(x\b|%|:1(?:\.0+)?)?`)

var numberRe = regexp.MustCompile(`(\$)?\s*([0-9][0-9,]*(?:\.[0-9]+)?)\s*(x\b|%|:1(?:\.0+)?)?`)

// ParseComparison scans free text for a numeric comparison such as
// "at least 1.25x", "not less than 1.25:1.00" or ">= 0.65". It returns
// ok=false when no comparison is present; a bare number with neither a
// comparator nor a unit is never treated as a threshold.
func ParseComparison(text string) (models.Operator, float64, string, bool) {
	if m := symbolOpRe.FindStringSubmatch(text); m != nil {
		value, err := parseNumber(m[3])
		if err == nil {
			return models.Operator(m[1]), value, unitOf(m[2], m[4]), true
		}
	}

	lower := strings.ToLower(text)
	for _, cp := range comparatorPhrases {
		idx := strings.Index(lower, cp.phrase)
		if idx < 0 {
			continue
		}
		rest := text[idx+len(cp.phrase):]
		m := numberRe.FindStringSubmatch(rest)
		if m == nil {
			continue
		}
		value, err := parseNumber(m[2])
		if err != nil {
			continue
		}
		unit := unitOf(m[1], m[3])
		// Without a unit or a recognizable metric nearby, a comparator plus a
		// bare number ("more than 3 months free rent") is not a covenant test.
		if unit == "" && metricFor(text) == "" {
			return "", 0, "", false
		}
		return cp.op, value, unit, true
	}
	return "", 0, "", false
}

func parseNumber(s string) (float64, error) {
	return strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
}

func unitOf(dollar, suffix string) string {
	if dollar == "$" {
		return "$"
	}
	switch {
	case suffix == "%":
		return "%"
	case strings.HasPrefix(suffix, "x"), strings.HasPrefix(suffix, ":1"):
		return "x"
	}
	return ""
}
