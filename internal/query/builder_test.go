package query_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jonesrussell/north-cloud/metadata-search/internal/query"
)

func TestBuilder_EmptyIsMatchAll(t *testing.T) {
	t.Parallel()

	assert.Equal(t, map[string]any{"match_all": map[string]any{}}, query.NewBuilder().Build())
}

func TestBuilder_MatchKeyword(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		value string
		want  map[string]any
	}{
		{name: "plain", value: "report", want: map[string]any{"match": map[string]any{"name": "report"}}},
		{name: "wildcard", value: "a%b", want: map[string]any{"wildcard": map[string]any{"name": "a*b"}}},
		{name: "every marker replaced", value: "%a%", want: map[string]any{"wildcard": map[string]any{"name": "*a*"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := query.NewBuilder().MatchKeyword("name", tt.value).Build()
			assert.Equal(t, map[string]any{"bool": map[string]any{"must": []any{tt.want}}}, got)
		})
	}
}

func TestBuilder_ClausesKeepCallOrder(t *testing.T) {
	t.Parallel()

	got := query.NewBuilder().
		MatchTerm("zone", 1).
		MatchRange("size", query.Bounds{GTE: 10}).
		Build()

	want := map[string]any{"bool": map[string]any{"must": []any{
		map[string]any{"term": map[string]any{"zone": 1}},
		map[string]any{"range": map[string]any{"size": map[string]any{"gte": 10}}},
	}}}
	assert.Equal(t, want, got)
}

func TestBuilder_RangeRendersOnlySetBounds(t *testing.T) {
	t.Parallel()

	b := query.NewBuilder().MatchRange("created_time", query.Bounds{GTE: "2023-01-01", LT: "2023-02-01"})
	must := b.Build()["bool"].(map[string]any)["must"].([]any)

	assert.Equal(t, map[string]any{"range": map[string]any{"created_time": map[string]any{
		"gte": "2023-01-01",
		"lt":  "2023-02-01",
	}}}, must[0])
}

func TestBuilder_MatchTerms(t *testing.T) {
	t.Parallel()

	b := query.NewBuilder().MatchTerms("activity_type", []any{"upload", "download"})

	assert.Equal(t, 1, b.Len())
	must := b.Build()["bool"].(map[string]any)["must"].([]any)
	assert.Equal(t, map[string]any{"terms": map[string]any{"activity_type": []any{"upload", "download"}}}, must[0])
}
