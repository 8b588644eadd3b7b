package query

import "github.com/jonesrussell/north-cloud/metadata-search/internal/domain"

// Pagination defaults.
const (
	DefaultPage     = 1
	DefaultPageSize = 20
)

// Pagination is a 1-based page window.
type Pagination struct {
	Page     int
	PageSize int
}

// NewPagination rejects pages or sizes below one.
func NewPagination(page, pageSize int) (Pagination, error) {
	if page < 1 {
		return Pagination{}, domain.NewValidationError("page", "must be at least 1")
	}
	if pageSize < 1 {
		return Pagination{}, domain.NewValidationError("page_size", "must be at least 1")
	}
	return Pagination{Page: page, PageSize: pageSize}, nil
}

// DefaultPagination is page 1 of 20.
func DefaultPagination() Pagination {
	return Pagination{Page: DefaultPage, PageSize: DefaultPageSize}
}

// Offset is the zero-based index of the first entry on the page.
func (p Pagination) Offset() int {
	return p.PageSize * (p.Page - 1)
}

// Limit is the page size.
func (p Pagination) Limit() int {
	return p.PageSize
}

// Page is one page of entries plus the total match count.
type Page[T any] struct {
	Pagination Pagination
	Count      int64
	Entries    []T
}

// Number is the 1-based page number.
func (p *Page[T]) Number() int {
	return p.Pagination.Page
}

// TotalPages is ceil(Count / PageSize), 0 when nothing matched.
func (p *Page[T]) TotalPages() int64 {
	if p.Count == 0 || p.Pagination.PageSize < 1 {
		return 0
	}
	size := int64(p.Pagination.PageSize)
	return (p.Count + size - 1) / size
}
