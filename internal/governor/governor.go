// Package governor caps the size of any result value handed back across the
// system boundary. Values within the word ceiling pass through unmodified.
// Oversized values are either filtered by caller-supplied options or - when
// no filters were given - replaced by descriptive metadata (schema, sample,
// recommended filter values) so the caller can retry with better
// parameters instead of receiving a silently truncated payload.
package governor

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mcptools/docvault/internal/config"
	"github.com/mcptools/docvault/internal/sizing"
	"github.com/sirupsen/logrus"
)

const (
	// minRecommendedItems floors the recommended item cap
	minRecommendedItems = 10

	// recommendedFieldCount caps the suggested field projection
	recommendedFieldCount = 7

	// nestedListCap bounds top-level list fields inside a record
	nestedListCap = 10
)

// Options are the caller-supplied filters applied to an oversized value.
type Options struct {
	MaxItems  *int     `json:"max_items,omitempty"`
	Fields    []string `json:"fields,omitempty"`
	Summarize bool     `json:"summarize,omitempty"`
}

// Metadata describes an oversized value structurally so the caller can
// construct an informed follow-up request.
type Metadata struct {
	TotalItems          *int     `json:"total_items,omitempty"`
	TotalWords          int      `json:"total_words"`
	EstimatedTokens     int      `json:"estimated_tokens"`
	AvailableFields     []string `json:"available_fields,omitempty"`
	Schema              any      `json:"schema,omitempty"`
	SampleData          any      `json:"sample_data,omitempty"`
	ExceedsLimit        bool     `json:"exceeds_limit"`
	RecommendedMaxItems *int     `json:"recommended_max_items,omitempty"`
	RecommendedFields   []string `json:"recommended_fields,omitempty"`
}

// GovernedResponse is the outcome of governing one value.
type GovernedResponse struct {
	Payload      string    `json:"payload"`
	WasTruncated bool      `json:"was_truncated"`
	Advisory     string    `json:"advisory,omitempty"`
	Metadata     *Metadata `json:"metadata,omitempty"`
}

// Governor decides whether and how to shrink outgoing payloads.
type Governor struct {
	acct   *sizing.Accountant
	logger *logrus.Logger
}

// New creates a Governor from the shared configuration.
func New(cfg *config.Config, logger *logrus.Logger) *Governor {
	return &Governor{
		acct:   sizing.NewAccountant(cfg),
		logger: logger,
	}
}

// Govern applies the size policy to a value. nil values and values within
// the ceiling pass through unmodified.
func (g *Governor) Govern(v any, opts *Options) *GovernedResponse {
	if v == nil {
		return &GovernedResponse{Payload: "", WasTruncated: false}
	}

	serialized := sizing.Serialize(v)
	est := g.acct.Estimate(v)
	if !g.acct.ExceedsLimit(est.Words) {
		return &GovernedResponse{Payload: serialized, WasTruncated: false}
	}

	g.logger.WithFields(logrus.Fields{
		"words":   est.Words,
		"ceiling": g.acct.WordCeiling(),
	}).Debug("Response exceeds word ceiling")

	value := FromAny(v)

	if opts == nil || (opts.MaxItems == nil && len(opts.Fields) == 0 && !opts.Summarize) {
		// No caller filters. For lists the truncation decision is handed
		// back to the caller as structural metadata; records keep their
		// shape with nested collections capped, and scalars fall through
		// to the hard word cap.
		if value.Kind() == KindList {
			return g.describeOversized(value, est)
		}
		return g.applyFilters(value, &Options{}, est)
	}
	return g.applyFilters(value, opts, est)
}

// describeOversized hands the truncation decision back to the caller:
// instead of guessing a cut point it returns the value's structure, a small
// sample and recommended filter values.
func (g *Governor) describeOversized(value *Value, est sizing.Estimate) *GovernedResponse {
	meta := &Metadata{
		TotalWords:      est.Words,
		EstimatedTokens: g.acct.EstimatedTokens(est.Words),
		Schema:          inferSchema(value),
		SampleData:      sampleData(value),
		ExceedsLimit:    true,
		AvailableFields: fieldNames(value),
	}

	if value.Kind() == KindList {
		total := value.Len()
		meta.TotalItems = &total

		if total > 0 {
			recommended := g.recommendMaxItems(value)
			meta.RecommendedMaxItems = &recommended
		}
		if fields := meta.AvailableFields; len(fields) > recommendedFieldCount {
			meta.RecommendedFields = fields[:recommendedFieldCount]
		} else {
			meta.RecommendedFields = fields
		}
	}

	advisory := fmt.Sprintf(
		"Response is too large to return (%d words, limit %d). No filters were provided, so the payload has been replaced with a structural description.",
		est.Words, g.acct.WordCeiling())
	if meta.RecommendedMaxItems != nil {
		advisory += fmt.Sprintf(" Retry with max_items=%d", *meta.RecommendedMaxItems)
		if len(meta.RecommendedFields) > 0 {
			advisory += fmt.Sprintf(" and fields=[%s]", strings.Join(meta.RecommendedFields, ", "))
		}
		advisory += "."
	}

	payload, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		payload = []byte(advisory)
	}

	return &GovernedResponse{
		Payload:      advisory + "\n\n" + string(payload),
		WasTruncated: true,
		Advisory:     advisory,
		Metadata:     meta,
	}
}

// applyFilters shrinks the value with the caller-supplied options, then
// enforces the ceiling as a final safety net.
func (g *Governor) applyFilters(value *Value, opts *Options, est sizing.Estimate) *GovernedResponse {
	var filtered any
	var advisory string

	switch {
	case opts.Summarize && value.Kind() == KindList:
		filtered = g.summarizeList(value)
		advisory = fmt.Sprintf("Summarised %d items (response was %d words, limit %d).",
			value.Len(), est.Words, g.acct.WordCeiling())

	case value.Kind() == KindList:
		capped, kept := g.capItems(value, opts)
		projected := projectFields(capped, opts.Fields)
		filtered = projected
		advisory = fmt.Sprintf("Returning %d of %d items (response was %d words, limit %d).",
			kept, value.Len(), est.Words, g.acct.WordCeiling())

	case value.Kind() == KindRecord:
		filtered = truncateNestedLists(value)
		advisory = fmt.Sprintf("Nested collections truncated to %d items each (response was %d words, limit %d).",
			nestedListCap, est.Words, g.acct.WordCeiling())

	default:
		filtered = value.ToAny()
		advisory = fmt.Sprintf("Response was %d words, limit %d.", est.Words, g.acct.WordCeiling())
	}

	payload := sizing.Serialize(filtered)

	// Final safety net: the filtered value must still respect the ceiling
	if words := sizing.CountWords(payload); words > g.acct.WordCeiling() {
		payload = g.hardTruncate(payload, words)
	}

	return &GovernedResponse{
		Payload:      advisory + "\n\n" + payload,
		WasTruncated: true,
		Advisory:     advisory,
	}
}

// recommendMaxItems estimates words per item from a 3-item sample and
// derives an item cap that fits the ceiling, floored at
// minRecommendedItems.
func (g *Governor) recommendMaxItems(value *Value) int {
	sampleCount := min(3, value.Len())
	var sampleWords int
	for i := range sampleCount {
		sampleWords += sizing.CountWords(sizing.Serialize(value.Items()[i].ToAny()))
	}

	wordsPerItem := sampleWords / sampleCount
	if wordsPerItem < 1 {
		wordsPerItem = 1
	}
	return max(minRecommendedItems, g.acct.WordCeiling()/wordsPerItem)
}

// capItems truncates a list to the explicit cap, or to a re-estimated cap
// when none was supplied.
func (g *Governor) capItems(value *Value, opts *Options) (*Value, int) {
	limit := 0
	if opts.MaxItems != nil && *opts.MaxItems > 0 {
		limit = *opts.MaxItems
	} else {
		limit = g.recommendMaxItems(value)
	}
	if limit >= value.Len() {
		return value, value.Len()
	}
	return &Value{kind: KindList, list: value.Items()[:limit]}, limit
}

// projectFields keeps only the listed fields of each record element.
// Non-record elements and empty projections pass through.
func projectFields(value *Value, fields []string) any {
	if len(fields) == 0 {
		return value.ToAny()
	}

	out := make([]any, 0, value.Len())
	for _, item := range value.Items() {
		if item.Kind() != KindRecord {
			out = append(out, item.ToAny())
			continue
		}
		projected := make(map[string]any, len(fields))
		for _, field := range fields {
			if fieldValue, ok := item.Field(field); ok {
				projected[field] = fieldValue.ToAny()
			}
		}
		out = append(out, projected)
	}
	return out
}

// summarizeList renders a fixed textual summary: item count, field names
// and the first 3 items. No item cap applies on this branch.
func (g *Governor) summarizeList(value *Value) string {
	var out strings.Builder
	out.WriteString(fmt.Sprintf("Summary of %d items.\n", value.Len()))

	if fields := fieldNames(value); len(fields) > 0 {
		out.WriteString(fmt.Sprintf("Fields: %s\n", strings.Join(fields, ", ")))
	}

	out.WriteString("First items:\n")
	for i := range min(3, value.Len()) {
		out.WriteString(fmt.Sprintf("  %d. %s\n", i+1, sizing.Serialize(value.Items()[i].ToAny())))
	}
	return out.String()
}

// truncateNestedLists caps every top-level list field of a record at
// nestedListCap elements and records the original length in a sibling
// field, keeping the surrounding record intact.
func truncateNestedLists(value *Value) map[string]any {
	out := make(map[string]any, value.Len())
	for _, key := range value.Keys() {
		field, _ := value.Field(key)
		if field.Kind() == KindList && field.Len() > nestedListCap {
			kept := make([]any, nestedListCap)
			for i := range nestedListCap {
				kept[i] = field.Items()[i].ToAny()
			}
			out[key] = kept
			out[key+"_truncated"] = fmt.Sprintf("Showing %d of %d items", nestedListCap, field.Len())
			continue
		}
		out[key] = field.ToAny()
	}
	return out
}

// hardTruncate cuts the serialised text at the word ceiling and appends an
// explicit marker naming the remaining count. This guarantees an upper
// bound on the outgoing payload under all filter combinations.
func (g *Governor) hardTruncate(payload string, totalWords int) string {
	words := strings.Fields(payload)
	ceiling := g.acct.WordCeiling()
	remaining := totalWords - ceiling
	return strings.Join(words[:ceiling], " ") + fmt.Sprintf(" ... [%d more words truncated]", remaining)
}
