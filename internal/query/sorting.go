package query

import (
	"fmt"
	"slices"

	"github.com/jonesrussell/north-cloud/metadata-search/internal/domain"
)

// SortOrder is asc or desc.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// Sortable fields per entity.
var (
	MetadataItemSortFields    = []string{"size", "created_time", "last_updated_time"}
	DatasetActivitySortFields = []string{"activity_time"}
)

// ParseSortOrder accepts asc or desc; empty means asc.
func ParseSortOrder(s string) (SortOrder, error) {
	switch SortOrder(s) {
	case "", SortAsc:
		return SortAsc, nil
	case SortDesc:
		return SortDesc, nil
	default:
		return "", domain.NewValidationError("sort_order", fmt.Sprintf("must be asc or desc, got %q", s))
	}
}

// ParseMetadataItemSortField checks s against MetadataItemSortFields. Empty
// is allowed and means unsorted.
func ParseMetadataItemSortField(s string) (string, error) {
	return parseSortField(s, MetadataItemSortFields)
}

// ParseDatasetActivitySortField checks s against DatasetActivitySortFields.
func ParseDatasetActivitySortField(s string) (string, error) {
	return parseSortField(s, DatasetActivitySortFields)
}

func parseSortField(s string, allowed []string) (string, error) {
	if s == "" || slices.Contains(allowed, s) {
		return s, nil
	}
	return "", domain.NewValidationError("sort_by", fmt.Sprintf("must be one of %v, got %q", allowed, s))
}

// Sorting orders results by a single field.
type Sorting struct {
	Field string
	Order SortOrder
}

// Active reports whether a field is set.
func (s Sorting) Active() bool {
	return s.Field != ""
}

// Apply renders the sort directive. Call it only when Active.
func (s Sorting) Apply() []map[string]any {
	order := s.Order
	if order == "" {
		order = SortAsc
	}
	return []map[string]any{{s.Field: string(order)}}
}
