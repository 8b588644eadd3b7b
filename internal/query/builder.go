// Package query turns typed filters, sorting and pagination into
// Elasticsearch query bodies.
package query

import "strings"

// wildcardMarker in a keyword value switches MatchKeyword to a wildcard
// query. It cannot be escaped.
const wildcardMarker = "%"

// Bounds are the optional limits of a range clause. Nil bounds are omitted;
// set ones are rendered verbatim.
type Bounds struct {
	GTE any
	LTE any
	GT  any
	LT  any
}

func (b Bounds) render() map[string]any {
	out := make(map[string]any, 4)
	if b.GTE != nil {
		out["gte"] = b.GTE
	}
	if b.LTE != nil {
		out["lte"] = b.LTE
	}
	if b.GT != nil {
		out["gt"] = b.GT
	}
	if b.LT != nil {
		out["lt"] = b.LT
	}
	return out
}

// Builder accumulates must clauses in call order.
type Builder struct {
	clauses []map[string]any
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// MatchKeyword adds a match clause, or a wildcard clause when value
// contains %, with every % replaced by *.
func (b *Builder) MatchKeyword(field, value string) *Builder {
	if strings.Contains(value, wildcardMarker) {
		return b.add("wildcard", field, strings.ReplaceAll(value, wildcardMarker, "*"))
	}
	return b.add("match", field, value)
}

// MatchTerm adds an exact-value clause.
func (b *Builder) MatchTerm(field string, value any) *Builder {
	return b.add("term", field, value)
}

// MatchTerms adds a clause matching any of values.
func (b *Builder) MatchTerms(field string, values []any) *Builder {
	return b.add("terms", field, values)
}

// MatchRange adds a range clause with the set bounds.
func (b *Builder) MatchRange(field string, bounds Bounds) *Builder {
	return b.add("range", field, bounds.render())
}

// Len reports how many clauses were added.
func (b *Builder) Len() int {
	return len(b.clauses)
}

// Build renders match_all when empty, otherwise a bool must of every clause.
func (b *Builder) Build() map[string]any {
	if len(b.clauses) == 0 {
		return map[string]any{"match_all": map[string]any{}}
	}
	must := make([]any, len(b.clauses))
	for i, c := range b.clauses {
		must[i] = c
	}
	return map[string]any{"bool": map[string]any{"must": must}}
}

func (b *Builder) add(kind, field string, value any) *Builder {
	b.clauses = append(b.clauses, map[string]any{kind: map[string]any{field: value}})
	return b
}
