package eshelper_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/north-cloud/metadata-search/internal/domain"
	"github.com/jonesrussell/north-cloud/metadata-search/internal/elasticsearch"
	"github.com/jonesrussell/north-cloud/metadata-search/internal/eshelper"
)

type recordingSearcher struct {
	index  string
	body   map[string]any
	result *elasticsearch.SearchResult
	err    error
}

func (r *recordingSearcher) Search(_ context.Context, index string, body map[string]any) (*elasticsearch.SearchResult, error) {
	r.index = index
	r.body = body
	return r.result, r.err
}

func TestBuildRequest(t *testing.T) {
	t.Parallel()

	body, err := eshelper.BuildRequest(nil, 2, 10, "", "")
	require.NoError(t, err)

	assert.Equal(t, map[string]any{
		"query": map[string]any{"bool": map[string]any{"must": []any{}}},
		"size":  10,
		"from":  20,
	}, body)

	body, err = eshelper.BuildRequest([]eshelper.Clause{{Field: "action", Value: "upload"}}, 0, 5, "create_timestamp", "desc")
	require.NoError(t, err)
	assert.Equal(t, 0, body["from"])
	assert.Equal(t, []any{map[string]any{"create_timestamp": "desc"}}, body["sort"])
}

func TestHelper_Search(t *testing.T) {
	t.Parallel()

	result := &elasticsearch.SearchResult{}
	result.Hits.Total.Value = 7
	result.Hits.Hits = []elasticsearch.Hit{{ID: "a", Source: json.RawMessage(`{"action":"upload"}`)}}
	searcher := &recordingSearcher{result: result}

	got, err := eshelper.NewHelper(searcher).Search(context.Background(), domain.IndexActivityLogs,
		[]eshelper.Clause{{Field: "action", Value: "upload"}}, 1, 3, "create_timestamp", "asc")
	require.NoError(t, err)

	assert.Equal(t, "activity-logs", searcher.index)
	assert.Equal(t, 3, searcher.body["from"])
	assert.Equal(t, int64(7), got.Total)
	assert.Len(t, got.Hits, 1)
}

func TestHelper_SearchPropagatesErrors(t *testing.T) {
	t.Parallel()

	searcher := &recordingSearcher{err: &domain.UpstreamError{Op: "search", StatusCode: 500}}

	_, err := eshelper.NewHelper(searcher).Search(context.Background(), "activity-logs", nil, 0, 10, "", "")
	assert.ErrorIs(t, err, domain.ErrUpstream)

	_, err = eshelper.NewHelper(searcher).Search(context.Background(), "activity-logs",
		[]eshelper.Clause{{Field: "x", Range: []any{"nope"}}}, 0, 10, "", "")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestParseActivityLogQuery(t *testing.T) {
	t.Parallel()

	clauses, err := eshelper.ParseActivityLogQuery(`{
		"operator": {"value": "admin", "condition": "equal"},
		"create_timestamp": {"value": [1600000000, 1700000000], "condition": "between"},
		"file_name": {"value": "rep", "condition": "contain"}
	}`)
	require.NoError(t, err)
	require.Len(t, clauses, 3)

	assert.Equal(t, "create_timestamp", clauses[0].Field)
	assert.Equal(t, []any{json.Number("1600000000"), json.Number("1700000000")}, clauses[0].Range)
	assert.Equal(t, eshelper.Clause{Field: "file_name", Value: "rep", SearchType: "contain"}, clauses[1])
	assert.Equal(t, "operator", clauses[2].Field)

	body, err := eshelper.BuildRequest(clauses, 0, 10, "create_timestamp", "desc")
	require.NoError(t, err)
	must := body["query"].(map[string]any)["bool"].(map[string]any)["must"].([]any)
	assert.Equal(t, map[string]any{"range": map[string]any{"create_timestamp": map[string]any{
		"gte": int64(1600000000), "lte": int64(1700000000),
	}}}, must[0])
}

func TestParseActivityLogQuery_Invalid(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{
		`not json`,
		`["a"]`,
		`{"create_timestamp": {"value": 5, "condition": "gte"}}`,
		`{"create_timestamp": {"value": [1, 2, 3], "condition": "gte"}}`,
	} {
		_, err := eshelper.ParseActivityLogQuery(raw)
		assert.ErrorIs(t, err, domain.ErrValidation, raw)
	}
}
