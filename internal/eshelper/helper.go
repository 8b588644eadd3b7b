package eshelper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/jonesrussell/north-cloud/metadata-search/internal/domain"
	"github.com/jonesrussell/north-cloud/metadata-search/internal/elasticsearch"
)

// CreateTimestampField is the activity log field rendered as a range.
const CreateTimestampField = "create_timestamp"

// Searcher runs a search body against an index.
type Searcher interface {
	Search(ctx context.Context, index string, body map[string]any) (*elasticsearch.SearchResult, error)
}

// Result is the raw hit list and total match count.
type Result struct {
	Total int64
	Hits  []elasticsearch.Hit
}

// BuildRequest renders clauses into one bool must query, always wrapped even
// when empty. This helper pages from zero: from = page * pageSize. The sort
// is only sent when sortBy is set.
func BuildRequest(clauses []Clause, page, pageSize int, sortBy, sortType string) (map[string]any, error) {
	must := make([]any, 0, len(clauses))
	for i, c := range clauses {
		rendered, err := RenderClause(c)
		if err != nil {
			return nil, fmt.Errorf("clause %d: %w", i, err)
		}
		must = append(must, rendered)
	}

	body := map[string]any{
		"query": map[string]any{"bool": map[string]any{"must": must}},
		"size":  pageSize,
		"from":  page * pageSize,
	}
	if sortBy != "" {
		body["sort"] = []any{map[string]any{sortBy: sortType}}
	}
	return body, nil
}

// Helper executes clause-based searches.
type Helper struct {
	searcher Searcher
}

// NewHelper creates a Helper.
func NewHelper(searcher Searcher) *Helper {
	return &Helper{searcher: searcher}
}

// Search builds the request and returns the raw hits.
func (h *Helper) Search(
	ctx context.Context,
	index string,
	clauses []Clause,
	page, pageSize int,
	sortBy, sortType string,
) (*Result, error) {
	body, err := BuildRequest(clauses, page, pageSize, sortBy, sortType)
	if err != nil {
		return nil, err
	}

	res, err := h.searcher.Search(ctx, index, body)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", index, err)
	}

	hits := res.Hits.Hits
	if hits == nil {
		hits = []elasticsearch.Hit{}
	}
	return &Result{Total: res.Hits.Total.Value, Hits: hits}, nil
}

type condition struct {
	Value     any    `json:"value"`
	Condition string `json:"condition"`
}

// ParseActivityLogQuery decodes the activity log query parameter, a JSON
// object of field to {value, condition}. create_timestamp becomes a range
// clause, everything else a plain clause. Clauses are ordered by field name.
func ParseActivityLogQuery(raw string) ([]Clause, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()

	var fields map[string]condition
	if err := dec.Decode(&fields); err != nil {
		return nil, &domain.ValidationError{Field: "query", Message: "must be a JSON object", Err: err}
	}

	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	slices.Sort(names)

	clauses := make([]Clause, 0, len(names))
	for _, name := range names {
		cond := fields[name]
		if name != CreateTimestampField {
			clauses = append(clauses, Clause{Field: name, Value: cond.Value, SearchType: cond.Condition})
			continue
		}

		bounds, ok := cond.Value.([]any)
		if !ok || len(bounds) == 0 || len(bounds) > 2 {
			return nil, domain.NewValidationError(name, "value must be a list of one or two timestamps")
		}
		clauses = append(clauses, Clause{Field: name, Range: bounds, SearchType: cond.Condition})
	}
	return clauses, nil
}
