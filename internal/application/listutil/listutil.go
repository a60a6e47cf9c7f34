// Package listutil parses pagination, sorting and filtering parameters for list endpoints.
package listutil

import (
	"net/url"
	"slices"
	"strconv"
	"strings"
)

// Sort directions.
const (
	Asc  = "asc"
	Desc = "desc"
)

// DefaultPerPage is the default number of rows per page.
const DefaultPerPage = 25

// MaxPerPage bounds per_page regardless of what the caller asks for.
const MaxPerPage = 200

// PageParams carries pagination parameters parsed from a request.
type PageParams struct {
	Page    int // 1-indexed page number
	PerPage int // rows per page
}

// SortParams carries sorting parameters parsed from a request.
type SortParams struct {
	Sort string // column name, empty for the store's default order
	Dir  string // Asc or Desc
}

// FilterParams carries search and filter parameters.
type FilterParams struct {
	Search  string            // free-text search query (?q=)
	Filters map[string]string // exact-match filters, e.g. program=w2
}

// Get returns the value of filter key, or "".
func (f FilterParams) Get(key string) string {
	return f.Filters[key]
}

// ListParams combines all list parameters.
type ListParams struct {
	PageParams
	SortParams
	FilterParams
}

// PageInfo carries pagination metadata for a response.
type PageInfo struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// ParsePageParams extracts page and per_page from URL query values.
// PRE: none
// POST: 1 <= Page; 1 <= PerPage <= MaxPerPage
func ParsePageParams(q url.Values) PageParams {
	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}
	perPage, err := strconv.Atoi(q.Get("per_page"))
	switch {
	case err != nil || perPage < 1:
		perPage = DefaultPerPage
	case perPage > MaxPerPage:
		perPage = MaxPerPage
	}
	return PageParams{Page: page, PerPage: perPage}
}

// ParseSortParams extracts sort and dir from URL query values.
// PRE: none
// POST: Sort is "" or one of allowedColumns; Dir is Asc or Desc
func ParseSortParams(q url.Values, allowedColumns []string) SortParams {
	sort := q.Get("sort")
	if !slices.Contains(allowedColumns, sort) {
		sort = ""
	}
	dir := strings.ToLower(q.Get("dir"))
	if dir != Desc {
		dir = Asc
	}
	return SortParams{Sort: sort, Dir: dir}
}

// ParseFilterParams extracts search and named filters from URL query values.
// PRE: filterKeys lists the allowed filter parameter names
// POST: returns FilterParams with only recognised, non-blank keys
func ParseFilterParams(q url.Values, filterKeys []string) FilterParams {
	fp := FilterParams{
		Search:  strings.TrimSpace(q.Get("q")),
		Filters: make(map[string]string),
	}
	for _, key := range filterKeys {
		if v := strings.TrimSpace(q.Get(key)); v != "" {
			fp.Filters[key] = v
		}
	}
	return fp
}

// ParseListParams parses all list parameters from URL query values.
func ParseListParams(q url.Values, allowedSortCols []string, filterKeys []string) ListParams {
	return ListParams{
		PageParams:   ParsePageParams(q),
		SortParams:   ParseSortParams(q, allowedSortCols),
		FilterParams: ParseFilterParams(q, filterKeys),
	}
}

// NewPageInfo computes pagination metadata.
// PRE: total >= 0
// POST: TotalPages >= 1; Page clamped to [1, TotalPages]
func NewPageInfo(page, perPage, total int) PageInfo {
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	totalPages := max((total+perPage-1)/perPage, 1)
	page = min(max(page, 1), totalPages)
	return PageInfo{
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: totalPages,
	}
}

// Offset returns the SQL OFFSET for the current page.
// PRE: PageInfo is valid
// POST: Returns (Page-1) * PerPage
func (p PageInfo) Offset() int {
	return (p.Page - 1) * p.PerPage
}

// HasNext reports whether a later page exists.
func (p PageInfo) HasNext() bool {
	return p.Page < p.TotalPages
}
