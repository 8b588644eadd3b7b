// Package eshelper renders loosely typed clause descriptors, as sent by the
// activity log API, into a single search request.
package eshelper

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/jonesrussell/north-cloud/metadata-search/internal/domain"
)

// Search types understood by RenderClause.
const (
	SearchWildcard = "wildcard"
	SearchMatch    = "match"
	SearchShould   = "should"
	SearchMust     = "must"
	SearchLTE      = "lte"
	SearchContain  = "contain"
)

// Range values longer than maxRangeValueLen characters are cut to
// truncatedRangeValueLen before integer conversion.
const (
	maxRangeValueLen       = 20
	truncatedRangeValueLen = 19
)

// Clause describes one condition. The first matching shape wins: Nested,
// then Range when non-empty, then Multi, then plain.
type Clause struct {
	Nested           bool
	Multi            bool
	Range            []any
	Field            string
	Name             string
	AttributeName    string
	HasAttributeName bool
	SearchType       string
	Value            any
}

// RenderClause turns c into an Elasticsearch query clause.
func RenderClause(c Clause) (map[string]any, error) {
	switch {
	case c.Nested:
		return renderNested(c)
	case len(c.Range) > 0:
		return renderRange(c)
	case c.Multi:
		return renderMulti(c)
	case c.SearchType == SearchContain:
		return map[string]any{"wildcard": map[string]any{c.Field: fmt.Sprintf("*%v*", c.Value)}}, nil
	default:
		return map[string]any{"term": map[string]any{c.Field: c.Value}}, nil
	}
}

func renderNested(c Clause) (map[string]any, error) {
	must := []any{map[string]any{"match": map[string]any{"attributes.name": c.Name}}}
	if c.HasAttributeName {
		must = append(must, map[string]any{"match": map[string]any{"attributes.attribute_name": c.AttributeName}})
	}

	switch c.SearchType {
	case SearchWildcard:
		must = append(must, map[string]any{"wildcard": map[string]any{"attributes.value": c.Value}})
	case SearchMatch:
		must = append(must, map[string]any{"match": map[string]any{"attributes.value": c.Value}})
	case SearchShould, SearchMust:
		values, err := valueList(c)
		if err != nil {
			return nil, err
		}
		options := make([]any, 0, len(values))
		for _, v := range values {
			options = append(options, map[string]any{"match": map[string]any{"attributes.value": v}})
		}
		must = append(must, map[string]any{"bool": map[string]any{c.SearchType: options}})
	}

	return map[string]any{"nested": map[string]any{
		"path":  c.Field,
		"query": map[string]any{"bool": map[string]any{"must": must}},
	}}, nil
}

func renderRange(c Clause) (map[string]any, error) {
	bounds := make(map[string]any, 2)
	first, err := rangeInt(c.Field, c.Range[0])
	if err != nil {
		return nil, err
	}

	if len(c.Range) == 1 {
		if c.SearchType == SearchLTE {
			bounds["lte"] = first
		} else {
			bounds["gte"] = first
		}
	} else {
		second, err := rangeInt(c.Field, c.Range[1])
		if err != nil {
			return nil, err
		}
		bounds["gte"] = first
		bounds["lte"] = second
	}

	return map[string]any{"range": map[string]any{c.Field: bounds}}, nil
}

func renderMulti(c Clause) (map[string]any, error) {
	values, err := valueList(c)
	if err != nil {
		return nil, err
	}
	options := make([]any, 0, len(values))
	for _, v := range values {
		options = append(options, map[string]any{"term": map[string]any{c.Field: v}})
	}

	group := SearchMust
	if c.SearchType == SearchShould {
		group = SearchShould
	}
	return map[string]any{"bool": map[string]any{group: options}}, nil
}

func valueList(c Clause) ([]any, error) {
	values, ok := c.Value.([]any)
	if !ok {
		return nil, domain.NewValidationError(c.Field, fmt.Sprintf("%s expects a list of values", c.SearchType))
	}
	return values, nil
}

func rangeInt(field string, v any) (int64, error) {
	s := stringify(v)
	if len(s) > maxRangeValueLen {
		s = s[:truncatedRangeValueLen]
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, &domain.ValidationError{Field: field, Message: fmt.Sprintf("range value %q is not an integer", s), Err: err}
	}
	return n, nil
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}
