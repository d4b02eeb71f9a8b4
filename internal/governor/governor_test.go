package governor

import (
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/mcptools/docvault/internal/config"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testGovernor(t *testing.T, ceiling int) *Governor {
	t.Helper()
	cfg := config.Default()
	cfg.WordCeiling = ceiling
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return New(cfg, logger)
}

// bigList builds n records whose serialisation comfortably exceeds small
// ceilings.
func bigList(n int) []map[string]any {
	items := make([]map[string]any, n)
	for i := range n {
		items[i] = map[string]any{
			"symbol": fmt.Sprintf("TICK%d", i),
			"name":   fmt.Sprintf("Company number %d with a long name", i),
			"open":   float64(i), "high": float64(i + 1), "low": float64(i - 1),
			"close": float64(i), "volume": i * 1000, "currency": "USD",
		}
	}
	return items
}

func TestGovernNilPassesThrough(t *testing.T) {
	g := testGovernor(t, 10)
	resp := g.Govern(nil, nil)
	assert.False(t, resp.WasTruncated)
	assert.Empty(t, resp.Payload)
}

func TestGovernSmallValueUnmodified(t *testing.T) {
	g := testGovernor(t, 3500)

	value := map[string]any{"symbol": "ACME", "price": 42.5}
	resp := g.Govern(value, nil)

	assert.False(t, resp.WasTruncated)
	assert.Nil(t, resp.Metadata)
	assert.Contains(t, resp.Payload, "ACME")
}

func TestGovernOversizedListWithoutOptionsReturnsMetadata(t *testing.T) {
	g := testGovernor(t, 20)

	items := bigList(50)
	resp := g.Govern(items, nil)

	require.True(t, resp.WasTruncated)
	require.NotNil(t, resp.Metadata)
	assert.True(t, resp.Metadata.ExceedsLimit)
	require.NotNil(t, resp.Metadata.TotalItems)
	assert.Equal(t, 50, *resp.Metadata.TotalItems)
	require.NotNil(t, resp.Metadata.RecommendedMaxItems)
	assert.GreaterOrEqual(t, *resp.Metadata.RecommendedMaxItems, 10)
	assert.LessOrEqual(t, len(resp.Metadata.RecommendedFields), 7)
	assert.NotEmpty(t, resp.Metadata.AvailableFields)
	assert.NotEmpty(t, resp.Advisory)
	assert.True(t, strings.HasPrefix(resp.Payload, resp.Advisory), "advisory banner must prefix the payload")

	// Sample is at most 3 items
	sample, ok := resp.Metadata.SampleData.([]any)
	require.True(t, ok)
	assert.LessOrEqual(t, len(sample), 3)
}

func TestGovernMetadataDoesNotMutateInput(t *testing.T) {
	g := testGovernor(t, 10)

	items := bigList(30)
	_ = g.Govern(items, nil)
	assert.Len(t, items, 30)
	assert.Equal(t, "TICK0", items[0]["symbol"])
}

func TestGovernRecordWithoutOptionsTruncatesNestedLists(t *testing.T) {
	// Ceiling chosen so the original record exceeds it but the truncated
	// record fits without triggering the hard word cap
	g := testGovernor(t, 25)

	items := make([]any, 21)
	for i := range items {
		items[i] = fmt.Sprintf("element-%d", i)
	}
	value := map[string]any{"items": items, "name": "x"}

	resp := g.Govern(value, nil)
	require.True(t, resp.WasTruncated)
	assert.Contains(t, resp.Payload, `"items_truncated"`)
	assert.Contains(t, resp.Payload, "Showing 10 of 21 items")
	assert.Contains(t, resp.Payload, `"name": "x"`)
	assert.Contains(t, resp.Payload, "element-9")
	assert.NotContains(t, resp.Payload, "element-10")
}

func TestGovernListWithItemCapAndProjection(t *testing.T) {
	g := testGovernor(t, 20)

	maxItems := 2
	resp := g.Govern(bigList(50), &Options{
		MaxItems: &maxItems,
		Fields:   []string{"symbol", "close"},
	})

	require.True(t, resp.WasTruncated)
	assert.Contains(t, resp.Payload, "TICK0")
	assert.Contains(t, resp.Payload, "TICK1")
	assert.NotContains(t, resp.Payload, "TICK2")
	assert.Contains(t, resp.Payload, `"symbol"`)
	assert.NotContains(t, resp.Payload, `"volume"`)
}

func TestGovernSummarizeNeverAppliesItemCap(t *testing.T) {
	g := testGovernor(t, 20)

	one := 1
	resp := g.Govern(bigList(40), &Options{Summarize: true, MaxItems: &one})

	require.True(t, resp.WasTruncated)
	assert.Contains(t, resp.Payload, "Summary of 40 items")
	assert.Contains(t, resp.Payload, "symbol")
}

func TestGovernHardTruncateSafetyNet(t *testing.T) {
	g := testGovernor(t, 10)

	// A long scalar string: no filters can shrink it, so the hard word
	// cap with an explicit marker must apply
	words := make([]string, 100)
	for i := range words {
		words[i] = fmt.Sprintf("word%d", i)
	}
	resp := g.Govern(strings.Join(words, " "), nil)

	require.True(t, resp.WasTruncated)
	assert.Contains(t, resp.Payload, "more words truncated]")
	assert.Contains(t, resp.Payload, "word9")
	assert.NotContains(t, resp.Payload, "word99 ")
}

func TestGovernBoundaryAtCeiling(t *testing.T) {
	g := testGovernor(t, 5)

	resp := g.Govern("one two three four five", nil)
	assert.False(t, resp.WasTruncated, "exactly at the ceiling is within budget")

	resp = g.Govern("one two three four five six", nil)
	assert.True(t, resp.WasTruncated)
}

func TestValueVariantRoundTrip(t *testing.T) {
	value := FromAny(map[string]any{
		"list":   []any{1.0, "two", true},
		"nested": map[string]any{"k": "v"},
		"n":      3.5,
	})

	require.Equal(t, KindRecord, value.Kind())
	list, ok := value.Field("list")
	require.True(t, ok)
	assert.Equal(t, KindList, list.Kind())
	assert.Equal(t, 3, list.Len())

	back, ok := value.ToAny().(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "v", back["nested"].(map[string]any)["k"])
}

func TestInferSchema(t *testing.T) {
	schema := inferSchema(FromAny([]map[string]any{
		{"symbol": "A", "price": 1.5, "active": true},
	}))

	typed, ok := schema.(map[string]string)
	require.True(t, ok)
	assert.Equal(t, "string", typed["symbol"])
	assert.Equal(t, "number", typed["price"])
	assert.Equal(t, "boolean", typed["active"])
}
