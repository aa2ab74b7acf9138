package core

// PageSizes are the selectable page sizes; the first is the default.
var PageSizes = []int{10, 20, 50}

// DefaultPageSize is used when a request carries no valid limit.
const DefaultPageSize = 10

// PageRequest selects one page of a list. Page is 1-based.
type PageRequest struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

// NewPageRequest builds a normalized request.
func NewPageRequest(page, limit int) PageRequest {
	return PageRequest{Page: page, Limit: limit}.Normalize()
}

// Normalize clamps the page to 1 and falls back to the default size for
// limits outside PageSizes.
func (p PageRequest) Normalize() PageRequest {
	if p.Page < 1 {
		p.Page = 1
	}
	if !ValidPageSize(p.Limit) {
		p.Limit = DefaultPageSize
	}
	return p
}

// ValidPageSize reports whether limit is one of PageSizes.
func ValidPageSize(limit int) bool {
	for _, s := range PageSizes {
		if s == limit {
			return true
		}
	}
	return false
}

// Offset is the number of records before this page.
func (p PageRequest) Offset() int {
	p = p.Normalize()
	return (p.Page - 1) * p.Limit
}

// RowNumber is the 1-based display number of the i-th row (0-based) on the
// page: (page-1)*limit + i + 1.
func (p PageRequest) RowNumber(i int) int {
	p = p.Normalize()
	return (p.Page-1)*p.Limit + i + 1
}

// PageInfo carries the totals of a paginated list.
type PageInfo struct {
	TotalItems int `json:"totalItems"`
	TotalPages int `json:"totalPages"`
	// Approximate is set when TotalItems was inferred from the page count.
	Approximate bool `json:"approximate,omitempty"`
}

// ResolveTotals fills whichever of item count and page count is missing.
// With only a page count the item count is totalPages*limit, which
// overestimates when the last page is short.
func ResolveTotals(totalItems, totalPages *int, limit int) PageInfo {
	if !ValidPageSize(limit) {
		limit = DefaultPageSize
	}
	switch {
	case totalItems != nil && totalPages != nil:
		return PageInfo{TotalItems: *totalItems, TotalPages: *totalPages}
	case totalItems != nil:
		return PageInfo{TotalItems: *totalItems, TotalPages: PagesFor(*totalItems, limit)}
	case totalPages != nil:
		return PageInfo{TotalItems: *totalPages * limit, TotalPages: *totalPages, Approximate: true}
	default:
		return PageInfo{}
	}
}

// PagesFor returns ceil(items/limit).
func PagesFor(items, limit int) int {
	if items <= 0 || limit <= 0 {
		return 0
	}
	return (items + limit - 1) / limit
}

// Page is one page of results.
type Page[T any] struct {
	Items   []T
	Request PageRequest
	Info    PageInfo
}

// NewPage builds a page from an exact item count.
func NewPage[T any](items []T, req PageRequest, totalItems int) Page[T] {
	req = req.Normalize()
	if items == nil {
		items = []T{}
	}
	return Page[T]{
		Items:   items,
		Request: req,
		Info:    PageInfo{TotalItems: totalItems, TotalPages: PagesFor(totalItems, req.Limit)},
	}
}

// Paginate slices an in-memory list.
func Paginate[T any](all []T, req PageRequest) Page[T] {
	req = req.Normalize()
	start := min(req.Offset(), len(all))
	end := min(start+req.Limit, len(all))
	out := make([]T, end-start)
	copy(out, all[start:end])
	return NewPage(out, req, len(all))
}
