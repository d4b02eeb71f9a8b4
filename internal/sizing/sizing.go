// Package sizing estimates how large a JSON-serialisable value is in words,
// characters and (heuristically) LLM tokens, and classifies it against the
// configured word ceiling. The governor drives all of its truncation
// decisions off these estimates.
package sizing

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/mcptools/docvault/internal/config"
)

// Estimate holds the measured size of a serialised value.
type Estimate struct {
	Words int `json:"words"`
	Chars int `json:"chars"`
}

// Accountant measures values against a fixed word ceiling. The token and
// character ratios are deliberate heuristics carried over as named,
// overridable settings - they are not derived from any tokenizer.
type Accountant struct {
	wordCeiling   int
	tokensPerWord float64
	charsPerWord  int
}

// NewAccountant creates an Accountant from the shared configuration.
func NewAccountant(cfg *config.Config) *Accountant {
	return &Accountant{
		wordCeiling:   cfg.WordCeiling,
		tokensPerWord: cfg.TokensPerWord,
		charsPerWord:  cfg.CharsPerWord,
	}
}

// WordCeiling returns the configured maximum word count.
func (a *Accountant) WordCeiling() int {
	return a.wordCeiling
}

// Estimate serialises the value to canonical JSON and counts
// whitespace-delimited tokens and characters.
func (a *Accountant) Estimate(v any) Estimate {
	text := Serialize(v)
	return Estimate{
		Words: CountWords(text),
		Chars: len(text),
	}
}

// ExceedsLimit reports whether a word count breaches the ceiling.
func (a *Accountant) ExceedsLimit(words int) bool {
	return words > a.wordCeiling
}

// EstimatedTokens converts a word count to an approximate token count using
// the configured tokens-per-word ratio (default 1.3).
func (a *Accountant) EstimatedTokens(words int) int {
	return int(math.Ceil(float64(words) * a.tokensPerWord))
}

// CharBudget returns the approximate character equivalent of the word
// ceiling (ceiling * chars-per-word).
func (a *Accountant) CharBudget() int {
	return a.wordCeiling * a.charsPerWord
}

// Serialize renders a value to its canonical text form: strings pass
// through verbatim, everything else becomes indented JSON. The indented
// form matters: compact JSON carries no whitespace, which would defeat
// word-based accounting entirely.
func Serialize(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

// CountWords counts whitespace-delimited tokens in the text.
func CountWords(text string) int {
	return len(strings.Fields(text))
}
