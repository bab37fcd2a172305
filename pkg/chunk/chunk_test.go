package chunk

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitEmptyInput(t *testing.T) {
	assert.Nil(t, Split("", 100, 10))
	assert.Nil(t, Split("   \n\t ", 100, 10))
}

func TestSplitShortTextIsSingleChunk(t *testing.T) {
	chunks := Split("Borrower shall deliver quarterly statements.", 1000, 100)
	require.Len(t, chunks, 1)
	assert.Equal(t, "Borrower shall deliver quarterly statements.", chunks[0])
}

func TestSplitZeroMaxSizeIsSingleChunk(t *testing.T) {
	text := strings.Repeat("word ", 100)
	chunks := Split(text, 0, 0)
	assert.Len(t, chunks, 1)
}

func TestSplitRespectsMaxSize(t *testing.T) {
	text := strings.Repeat("The borrower shall comply with every covenant. ", 50)
	chunks := Split(text, 200, 0)
	require.Greater(t, len(chunks), 1)
	for i, c := range chunks {
		assert.LessOrEqual(t, len(c), 200, "chunk %d exceeds max size", i)
		assert.NotEmpty(t, c)
	}
}

func TestSplitPrefersSentenceBoundaries(t *testing.T) {
	text := strings.Repeat("The borrower shall comply with every covenant. ", 50)
	chunks := Split(text, 200, 0)
	require.Greater(t, len(chunks), 1)
	for i, c := range chunks[:len(chunks)-1] {
		assert.True(t, strings.HasSuffix(c, "."), "chunk %d should end at a sentence boundary: %q", i, c)
	}
}

func TestSplitCoversAllText(t *testing.T) {
	text := strings.Repeat("Clause one applies here. ", 40)
	chunks := Split(text, 150, 0)

	total := 0
	for _, c := range chunks {
		total += len(c)
	}
	// Trimmed boundary whitespace is the only loss.
	assert.GreaterOrEqual(t, total, len(strings.TrimSpace(text))-2*len(chunks))
}

func TestSplitOverlapRepeatsBoundaryText(t *testing.T) {
	text := strings.Repeat("The borrower shall comply with every covenant. ", 50)
	chunks := Split(text, 200, 40)
	require.Greater(t, len(chunks), 1)

	// The tail of each chunk reappears at the head of the next.
	tail := chunks[0][len(chunks[0])-20:]
	assert.Contains(t, chunks[1], tail)
}

func TestSplitWordBoundaryFallback(t *testing.T) {
	// No sentence terminators at all: splits still land on spaces.
	text := strings.Repeat("covenant compliance reporting ", 30)
	chunks := Split(text, 100, 0)
	require.Greater(t, len(chunks), 1)
	for i, c := range chunks {
		assert.False(t, strings.HasPrefix(c, " "), "chunk %d starts mid-gap", i)
		assert.LessOrEqual(t, len(c), 100)
	}
}

func TestSplitHardCutWithoutAnyBoundary(t *testing.T) {
	text := strings.Repeat("x", 250)
	chunks := Split(text, 100, 0)
	require.Len(t, chunks, 3)
	assert.Equal(t, 100, len(chunks[0]))
	assert.Equal(t, 100, len(chunks[1]))
	assert.Equal(t, 50, len(chunks[2]))
}
