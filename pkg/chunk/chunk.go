// Package chunk splits long document text into bounded pieces for the
// extraction oracle.
package chunk

import "strings"

// Split breaks text into chunks of at most maxSize characters with the given
// overlap between adjacent chunks. Boundaries prefer sentence ends, then
// word ends; splitting mid-sentence is avoided on a best-effort basis only.
func Split(text string, maxSize, overlap int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if maxSize <= 0 || len(text) <= maxSize {
		return []string{text}
	}
	if overlap < 0 {
		overlap = 0
	}

	var chunks []string
	start := 0
	for start < len(text) {
		end := start + maxSize
		if end >= len(text) {
			chunks = append(chunks, strings.TrimSpace(text[start:]))
			break
		}

		cut := boundary(text, start, end)
		chunks = append(chunks, strings.TrimSpace(text[start:cut]))

		next := cut - overlap
		if next <= start {
			next = cut
		}
		start = next
	}

	// Drop empties produced by whitespace-only regions.
	out := chunks[:0]
	for _, c := range chunks {
		if c != "" {
			out = append(out, c)
		}
	}
	return out
}

// boundary finds the best cut point in text[start:end], scanning backwards
// for a sentence terminator, then any whitespace, else cutting hard at end.
func boundary(text string, start, end int) int {
	window := text[start:end]

	if i := lastSentenceEnd(window); i > len(window)/2 {
		return start + i
	}
	if i := strings.LastIndexAny(window, " \t\n"); i > len(window)/2 {
		return start + i
	}
	return end
}

func lastSentenceEnd(s string) int {
	best := -1
	for _, term := range []string{". ", ".\n", "! ", "? ", ".\t"} {
		if i := strings.LastIndex(s, term); i > best {
			best = i + len(term)
		}
	}
	return best
}
