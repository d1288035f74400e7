package models

// DefaultPageSize is the page window used when the caller does not ask for
// a specific size. MaxPageSize caps caller-supplied sizes.
const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}

// PageRequest captures the shared paging and ordering inputs of every list
// query.
type PageRequest struct {
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// Normalize clamps the request into valid bounds.
func (p PageRequest) Normalize() PageRequest {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize <= 0 || p.PageSize > MaxPageSize {
		p.PageSize = DefaultPageSize
	}
	return p
}

// NewPagination builds response metadata from a normalized request.
func NewPagination(req PageRequest, total int) *Pagination {
	req = req.Normalize()
	return &Pagination{Page: req.Page, PageSize: req.PageSize, TotalCount: total}
}
