package normalizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loanguard/loanguard/internal/models"
)

func TestParseComparisonPhrases(t *testing.T) {
	cases := []struct {
		text  string
		op    models.Operator
		value float64
		unit  string
	}{
		{"a Debt Service Coverage Ratio of not less than 1.25:1.00", models.OpGTE, 1.25, "x"},
		{"maintain a minimum of 1.20x coverage on the DSCR test", models.OpGTE, 1.20, "x"},
		{"loan-to-value not to exceed 75%", models.OpLTE, 75, "%"},
		{"occupancy shall not be below 85%", models.OpGTE, 85, "%"},
		{"occupancy has been below 85%", models.OpLT, 85, "%"},
		{"deposit at least $2,500", models.OpGTE, 2500, "$"},
		{"net worth in excess of $5,000,000", models.OpGT, 5000000, "$"},
	}

	for _, tc := range cases {
		op, value, unit, ok := ParseComparison(tc.text)
		require.True(t, ok, "expected a comparison in %q", tc.text)
		assert.Equal(t, tc.op, op, tc.text)
		assert.Equal(t, tc.value, value, tc.text)
		assert.Equal(t, tc.unit, unit, tc.text)
	}
}

func TestParseComparisonSymbols(t *testing.T) {
	op, value, unit, ok := ParseComparison("DSCR >= 1.25x at all times")
	require.True(t, ok)
	assert.Equal(t, models.OpGTE, op)
	assert.Equal(t, 1.25, value)
	assert.Equal(t, "x", unit)
}

func TestParseComparisonRejectsBareNumbers(t *testing.T) {
	// A comparator plus a unitless number with no recognizable metric is
	// prose, not a covenant test.
	_, _, _, ok := ParseComparison("concessions in excess of three (3) months free rent")
	assert.False(t, ok)

	_, _, _, ok = ParseComparison("the Property consists of 4 buildings")
	assert.False(t, ok)
}

func TestParseComparisonLongestPhraseWins(t *testing.T) {
	op, value, _, ok := ParseComparison("DSCR of not less than 1.15x")
	require.True(t, ok)
	assert.Equal(t, models.OpGTE, op, `"not less than" must not read as "less than"`)
	assert.Equal(t, 1.15, value)
}
