package elasticsearch_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/north-cloud/metadata-search/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/metadata-search/infrastructure/metrics"
	"github.com/jonesrussell/north-cloud/metadata-search/internal/domain"
	"github.com/jonesrussell/north-cloud/metadata-search/internal/elasticsearch"
)

// fakeTransport answers every request with a canned status and body and
// remembers the last request.
type fakeTransport struct {
	status int
	body   string
	err    error

	method string
	path   string
	query  string
	sent   []byte
}

func (f *fakeTransport) Perform(req *http.Request) (*http.Response, error) {
	f.method = req.Method
	f.path = req.URL.Path
	f.query = req.URL.RawQuery
	if req.Body != nil {
		f.sent, _ = io.ReadAll(req.Body)
	}
	if f.err != nil {
		return nil, f.err
	}
	return &http.Response{
		StatusCode: f.status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(f.body)),
	}, nil
}

func TestEngine_Search(t *testing.T) {
	t.Parallel()

	tr := &fakeTransport{status: http.StatusOK, body: `{
		"took": 3,
		"hits": {"total": {"value": 2}, "hits": [
			{"_index": "metadata-items", "_id": "a", "_source": {"name": "x"}},
			{"_index": "metadata-items", "_id": "b", "_source": {"name": "y"}}
		]},
		"aggregations": {"total_per_zone": {"buckets": []}}
	}`}
	m := metrics.New("engine_test")
	engine := elasticsearch.NewEngine(tr, logger.NewNop(), elasticsearch.WithMetrics(m))

	res, err := engine.Search(context.Background(), "metadata-items", map[string]any{
		"query": map[string]any{"match_all": map[string]any{}},
		"size":  10,
	})
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, tr.method)
	assert.Equal(t, "/metadata-items/_search", tr.path)
	assert.Contains(t, tr.query, "track_total_hits=true")
	assert.JSONEq(t, `{"query": {"match_all": {}}, "size": 10}`, string(tr.sent))

	assert.Equal(t, int64(2), res.Hits.Total.Value)
	require.Len(t, res.Hits.Hits, 2)
	assert.Equal(t, "b", res.Hits.Hits[1].ID)
	assert.JSONEq(t, `{"name": "y"}`, string(res.Hits.Hits[1].Source))
	assert.Contains(t, res.Aggregations, "total_per_zone")

	count, err := testutil.GatherAndCount(m.Registry(), "engine_test_elasticsearch_request_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestEngine_SearchUpstreamErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		tr     *fakeTransport
		status int
	}{
		{
			name:   "es error body",
			tr:     &fakeTransport{status: 400, body: `{"error": {"type": "parsing_exception", "reason": "bad query"}, "status": 400}`},
			status: 400,
		},
		{name: "transport failure", tr: &fakeTransport{err: errors.New("connection refused")}},
		{name: "malformed body", tr: &fakeTransport{status: 200, body: `{"hits": [`}, status: 200},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			engine := elasticsearch.NewEngine(tt.tr, logger.NewNop())
			_, err := engine.Search(context.Background(), "metadata-items", map[string]any{})

			require.ErrorIs(t, err, domain.ErrUpstream)
			var upstream *domain.UpstreamError
			require.ErrorAs(t, err, &upstream)
			assert.Equal(t, elasticsearch.OpSearch, upstream.Op)
			assert.Equal(t, tt.status, upstream.StatusCode)
		})
	}
}

func TestEngine_Create(t *testing.T) {
	t.Parallel()

	tr := &fakeTransport{status: http.StatusCreated, body: `{"result": "created"}`}
	engine := elasticsearch.NewEngine(tr, logger.NewNop(), elasticsearch.WithRequestTimeout(time.Second))

	err := engine.Create(context.Background(), "items-activity-logs", "abc", map[string]any{"id": "1"})
	require.NoError(t, err)

	assert.Equal(t, http.MethodPut, tr.method)
	assert.Equal(t, "/items-activity-logs/_create/abc", tr.path)
	var sent map[string]any
	require.NoError(t, json.Unmarshal(tr.sent, &sent))
	assert.Equal(t, "1", sent["id"])
}

func TestEngine_Get(t *testing.T) {
	t.Parallel()

	tr := &fakeTransport{status: http.StatusOK, body: `{"_index": "metadata-items", "_id": "abc", "found": true, "_source": {"name": "x"}}`}
	engine := elasticsearch.NewEngine(tr, logger.NewNop())

	doc, err := engine.Get(context.Background(), "metadata-items", "abc")
	require.NoError(t, err)

	assert.Equal(t, "/metadata-items/_doc/abc", tr.path)
	assert.Equal(t, "abc", doc.ID)
	assert.JSONEq(t, `{"name": "x"}`, string(doc.Source))
}

func TestEngine_GetNotFound(t *testing.T) {
	t.Parallel()

	for _, body := range []string{
		`{"_index": "metadata-items", "_id": "abc", "found": false}`,
		`{"error": {"type": "index_not_found_exception", "reason": "no such index"}, "status": 404}`,
	} {
		engine := elasticsearch.NewEngine(&fakeTransport{status: http.StatusNotFound, body: body}, logger.NewNop())

		_, err := engine.Get(context.Background(), "metadata-items", "abc")
		require.ErrorIs(t, err, domain.ErrNotFound)
		assert.NotErrorIs(t, err, domain.ErrUpstream)
	}
}
