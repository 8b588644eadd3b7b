// Package elasticsearch adapts go-elasticsearch to the search, create and
// get operations the repositories need.
package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/elastic/go-elasticsearch/v8/esapi"

	infraerrors "github.com/jonesrussell/north-cloud/metadata-search/infrastructure/errors"
	"github.com/jonesrussell/north-cloud/metadata-search/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/metadata-search/infrastructure/metrics"
	"github.com/jonesrussell/north-cloud/metadata-search/internal/domain"
)

// Operation names used in errors and metrics.
const (
	OpSearch = "search"
	OpCreate = "create"
	OpGet    = "get"
)

// SearchEngine is the engine boundary consumed by the repositories.
type SearchEngine interface {
	Search(ctx context.Context, index string, body map[string]any) (*SearchResult, error)
	Create(ctx context.Context, index, id string, doc any) error
	Get(ctx context.Context, index, id string) (*Document, error)
}

// Hit is one search hit.
type Hit struct {
	Index  string          `json:"_index"`
	ID     string          `json:"_id"`
	Score  *float64        `json:"_score"`
	Source json.RawMessage `json:"_source"`
	Sort   []any           `json:"sort,omitempty"`
}

// SearchResult is the part of a search response the service reads.
type SearchResult struct {
	Took int64 `json:"took"`
	Hits struct {
		Total struct {
			Value int64 `json:"value"`
		} `json:"total"`
		Hits []Hit `json:"hits"`
	} `json:"hits"`
	Aggregations map[string]json.RawMessage `json:"aggregations"`
}

// Document is a get-by-id response.
type Document struct {
	Index  string          `json:"_index"`
	ID     string          `json:"_id"`
	Found  bool            `json:"found"`
	Source json.RawMessage `json:"_source"`
}

// Engine executes requests through an esapi.Transport, normally an
// *elasticsearch.Client. It is safe for concurrent use.
type Engine struct {
	transport      esapi.Transport
	logger         logger.Logger
	metrics        *metrics.Metrics
	requestTimeout time.Duration
}

// Option configures an Engine.
type Option func(*Engine)

// WithMetrics records per-call latency.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithRequestTimeout bounds every call. Zero keeps the caller's deadline.
func WithRequestTimeout(d time.Duration) Option {
	return func(e *Engine) { e.requestTimeout = d }
}

// NewEngine creates an Engine.
func NewEngine(transport esapi.Transport, log logger.Logger, opts ...Option) *Engine {
	e := &Engine{transport: transport, logger: log}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Search runs body against index with total hit tracking on.
func (e *Engine) Search(ctx context.Context, index string, body map[string]any) (*SearchResult, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode search body: %w", err)
	}

	req := esapi.SearchRequest{
		Index:          []string{index},
		Body:           bytes.NewReader(payload),
		TrackTotalHits: true,
	}

	var result SearchResult
	err = e.do(ctx, index, OpSearch, req, func(res *esapi.Response) error {
		return decodeBody(res.Body, &result)
	})
	if err != nil {
		return nil, err
	}

	logger.FromContextOr(ctx, e.logger).Debug("Search executed",
		logger.String("index", index),
		logger.Int64("took_ms", result.Took),
		logger.Int64("total", result.Hits.Total.Value),
	)
	return &result, nil
}

// Create indexes doc under id. It fails if id already exists.
func (e *Engine) Create(ctx context.Context, index, id string, doc any) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}

	req := esapi.CreateRequest{
		Index:      index,
		DocumentID: id,
		Body:       bytes.NewReader(payload),
	}
	return e.do(ctx, index, OpCreate, req, nil)
}

// Get fetches a document by id. A missing document or index is
// domain.ErrNotFound.
func (e *Engine) Get(ctx context.Context, index, id string) (*Document, error) {
	req := esapi.GetRequest{Index: index, DocumentID: id}

	var doc Document
	err := e.do(ctx, index, OpGet, req, func(res *esapi.Response) error {
		if err := decodeBody(res.Body, &doc); err != nil {
			return err
		}
		if !doc.Found {
			return domain.NotFoundError(index, id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (e *Engine) do(
	ctx context.Context,
	index, op string,
	req esapi.Request,
	read func(*esapi.Response) error,
) (err error) {
	start := time.Now()
	defer func() { e.metrics.ObserveEngineCall(index, op, err, time.Since(start)) }()

	if e.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.requestTimeout)
		defer cancel()
	}

	res, err := req.Do(ctx, e.transport)
	if err != nil {
		return &domain.UpstreamError{Op: op, Err: err}
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode == http.StatusNotFound && op == OpGet {
		return domain.NotFoundError(index, notFoundID(req))
	}
	if res.IsError() {
		return upstreamHTTPError(op, res)
	}
	if read == nil {
		return nil
	}
	if readErr := read(res); readErr != nil {
		if errors.Is(readErr, domain.ErrNotFound) {
			return readErr
		}
		return &domain.UpstreamError{Op: op, StatusCode: res.StatusCode, Err: readErr}
	}
	return nil
}

func notFoundID(req esapi.Request) string {
	if g, ok := req.(esapi.GetRequest); ok {
		return g.DocumentID
	}
	return ""
}

func upstreamHTTPError(op string, res *esapi.Response) error {
	parsed := infraerrors.ParseHTTPError(res.StatusCode, res.Body)
	upstream := &domain.UpstreamError{Op: op, StatusCode: res.StatusCode, Err: parsed}
	var httpErr *infraerrors.HTTPError
	if errors.As(parsed, &httpErr) {
		upstream.Body = httpErr.Body
	}
	return upstream
}

func decodeBody(body io.Reader, v any) error {
	if err := json.NewDecoder(body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
