package query

import (
	"strings"
	"unicode"

	"github.com/loanguard/loanguard/internal/models"
)

// Scorer rates how well a requirement answers a natural-language question.
// Scores are in [0,1]; higher is better.
type Scorer interface {
	Score(question string, req models.Requirement) float64
}

// LexicalScorer scores by weighted token overlap between the question and
// the requirement's text fields. No embeddings, no network: answers come
// from the profile alone and are fully reproducible.
type LexicalScorer struct{}

// NewLexicalScorer creates a lexical scorer.
func NewLexicalScorer() *LexicalScorer { return &LexicalScorer{} }

// fieldWeights favors matches in the title and summary over matches buried
// in the source text.
var fieldWeights = []struct {
	weight float64
	text   func(models.Requirement) string
}{
	{2.0, func(r models.Requirement) string { return r.Title }},
	{1.5, func(r models.Requirement) string { return r.PlainLanguageSummary }},
	{1.0, func(r models.Requirement) string { return r.Description }},
	{1.0, func(r models.Requirement) string { return string(r.Category) }},
	{0.5, func(r models.Requirement) string { return r.SourceText }},
}

// Score computes the normalized weighted overlap. A question token counts
// once per field it appears in, scaled by that field's weight.
func (s *LexicalScorer) Score(question string, req models.Requirement) float64 {
	qTokens := tokenize(question)
	if len(qTokens) == 0 {
		return 0
	}

	var maxPerToken float64
	for _, f := range fieldWeights {
		maxPerToken += f.weight
	}

	fields := make([]map[string]struct{}, len(fieldWeights))
	for i, f := range fieldWeights {
		fields[i] = tokenSet(f.text(req))
	}

	var total float64
	for tok := range qTokens {
		for i, f := range fieldWeights {
			if _, ok := fields[i][tok]; ok {
				total += f.weight
			}
		}
	}
	return total / (float64(len(qTokens)) * maxPerToken)
}

// stopwords are question-scaffolding tokens that carry no signal.
var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "at": {}, "be": {}, "by": {},
	"do": {}, "does": {}, "for": {}, "from": {}, "have": {}, "how": {},
	"i": {}, "in": {}, "is": {}, "it": {}, "my": {}, "of": {}, "on": {},
	"or": {}, "that": {}, "the": {}, "this": {}, "to": {}, "until": {},
	"what": {}, "when": {}, "where": {}, "which": {}, "who": {}, "will": {},
	"with": {}, "you": {}, "your": {},
}

func tokenize(s string) map[string]struct{} {
	out := map[string]struct{}{}
	for _, tok := range splitWords(s) {
		if _, stop := stopwords[tok]; stop {
			continue
		}
		if len(tok) < 2 {
			continue
		}
		out[tok] = struct{}{}
	}
	return out
}

func tokenSet(s string) map[string]struct{} {
	out := map[string]struct{}{}
	for _, tok := range splitWords(s) {
		out[tok] = struct{}{}
	}
	return out
}

func splitWords(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
