// Package crud lists, creates and fetches typed documents in one index,
// composing filters, sorting and pagination through query.Builder.
package crud

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"

	infraerrors "github.com/jonesrussell/north-cloud/metadata-search/infrastructure/errors"
	"github.com/jonesrussell/north-cloud/metadata-search/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/metadata-search/internal/aggregation"
	"github.com/jonesrussell/north-cloud/metadata-search/internal/domain"
	"github.com/jonesrussell/north-cloud/metadata-search/internal/elasticsearch"
	"github.com/jonesrussell/north-cloud/metadata-search/internal/query"
)

const pkBytes = 10

// Entity is implemented by pointers to document types.
type Entity interface {
	SetPK(pk string)
	Validate() error
}

type entityPtr[T any] interface {
	*T
	Entity
}

// Repository serves one index of T documents.
type Repository[T any, P entityPtr[T]] struct {
	engine elasticsearch.SearchEngine
	index  string
	logger logger.Logger
}

// NewRepository creates a Repository for index.
func NewRepository[T any, P entityPtr[T]](engine elasticsearch.SearchEngine, index string, log logger.Logger) *Repository[T, P] {
	return &Repository[T, P]{engine: engine, index: index, logger: log}
}

// Index is the served index name.
func (r *Repository[T, P]) Index() string {
	return r.index
}

// ListOption adjusts the search body of List.
type ListOption func(body map[string]any)

// WithAggregations adds aggs to the list search.
func WithAggregations(aggs map[string]any) ListOption {
	return func(body map[string]any) { body["aggs"] = aggs }
}

// Create stores doc under a fresh random primary key and reads it back.
// The read-back fails with domain.ErrNotFound if the engine does not yet
// see the document.
func (r *Repository[T, P]) Create(ctx context.Context, doc any) (T, error) {
	var zero T

	pk, err := generatePK()
	if err != nil {
		return zero, err
	}
	if err = r.engine.Create(ctx, r.index, pk, doc); err != nil {
		return zero, infraerrors.WrapWithContextf(err, "create in %s", r.index)
	}

	logger.FromContextOr(ctx, r.logger).Debug("Document created",
		logger.String("index", r.index),
		logger.String("pk", pk),
	)

	entity, err := r.RetrieveByPK(ctx, pk)
	if err != nil {
		return zero, infraerrors.WrapWithContextf(err, "read back %s", pk)
	}
	return entity, nil
}

// RetrieveByPK fetches and parses one document.
func (r *Repository[T, P]) RetrieveByPK(ctx context.Context, pk string) (T, error) {
	var zero T

	doc, err := r.engine.Get(ctx, r.index, pk)
	if err != nil {
		return zero, infraerrors.WrapWithContextf(err, "get %s/%s", r.index, pk)
	}
	return r.Parse(doc.ID, doc.Source)
}

// List returns one page of entries matching filter, plus the raw result so
// callers can read extra aggregations. A nil or inactive filter and an
// inactive sorting are skipped.
func (r *Repository[T, P]) List(
	ctx context.Context,
	pagination query.Pagination,
	sorting query.Sorting,
	filter query.Filter,
	opts ...ListOption,
) (*query.Page[T], *elasticsearch.SearchResult, error) {
	b := query.NewBuilder()
	if filter != nil && filter.Active() {
		filter.Apply(b)
	}

	body := map[string]any{
		"query": b.Build(),
		"from":  pagination.Offset(),
		"size":  pagination.Limit(),
	}
	if sorting.Active() {
		body["sort"] = sorting.Apply()
	}
	for _, opt := range opts {
		opt(body)
	}

	res, err := r.engine.Search(ctx, r.index, body)
	if err != nil {
		return nil, nil, infraerrors.WrapWithContext(err, "list "+r.index)
	}

	entries, err := r.ParseHits(res.Hits.Hits)
	if err != nil {
		logger.FromContextOr(ctx, r.logger).Error("Unparseable document in list result",
			logger.String("index", r.index),
			logger.Error(err),
		)
		return nil, nil, err
	}

	return &query.Page[T]{
		Pagination: pagination,
		Count:      res.Hits.Total.Value,
		Entries:    entries,
	}, res, nil
}

// Aggregate runs a size-0 search restricted by b and returns its
// aggregations and total hit count.
func (r *Repository[T, P]) Aggregate(
	ctx context.Context,
	b *query.Builder,
	aggs map[string]any,
) (map[string]json.RawMessage, int64, error) {
	res, err := r.engine.Search(ctx, r.index, map[string]any{
		"query": b.Build(),
		"size":  0,
		"aggs":  aggs,
	})
	if err != nil {
		return nil, 0, infraerrors.WrapWithContext(err, "aggregate "+r.index)
	}
	return res.Aggregations, res.Hits.Total.Value, nil
}

// RunHandler applies filter and reshapes the result through h.
func RunHandler[T any, P entityPtr[T], R any](
	ctx context.Context,
	r *Repository[T, P],
	filter query.Filter,
	h aggregation.Handler[R],
) (R, error) {
	var zero R

	b := query.NewBuilder()
	filter.Apply(b)

	aggs, _, err := r.Aggregate(ctx, b, h.Aggregations())
	if err != nil {
		return zero, err
	}
	out, err := h.Process(aggs)
	if err != nil {
		return zero, fmt.Errorf("%s aggregation: %w", r.index, err)
	}
	return out, nil
}

// ParseHits parses every hit. One bad document fails the whole call.
func (r *Repository[T, P]) ParseHits(hits []elasticsearch.Hit) ([]T, error) {
	entries := make([]T, 0, len(hits))
	for _, hit := range hits {
		entry, err := r.Parse(hit.ID, hit.Source)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Parse merges pk into source and decodes it into T, then validates.
func (r *Repository[T, P]) Parse(pk string, source json.RawMessage) (T, error) {
	var entity T

	fields := map[string]any{}
	if len(source) > 0 {
		dec := json.NewDecoder(bytes.NewReader(source))
		dec.UseNumber()
		if err := dec.Decode(&fields); err != nil {
			return entity, r.invalid(pk, err)
		}
	}
	fields["pk"] = pk

	merged, err := json.Marshal(fields)
	if err != nil {
		return entity, r.invalid(pk, err)
	}
	if err = json.Unmarshal(merged, &entity); err != nil {
		return entity, r.invalid(pk, err)
	}

	p := P(&entity)
	p.SetPK(pk)
	if err = p.Validate(); err != nil {
		return entity, r.invalid(pk, err)
	}
	return entity, nil
}

func (r *Repository[T, P]) invalid(pk string, err error) error {
	return &domain.ValidationError{
		Field:   "document",
		Message: fmt.Sprintf("%s/%s does not match the %T shape", r.index, pk, *new(T)),
		Err:     err,
	}
}

func generatePK() (string, error) {
	buf := make([]byte, pkBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate pk: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
