// Package listutil parses list-view query parameters and paginates
// in-memory result sets.
package listutil

import (
	"net/url"
	"slices"
	"strconv"
	"strings"
)

// Direction values for SortParams.Dir.
const (
	Asc  = "asc"
	Desc = "desc"
)

// DefaultPerPage is the page size when the caller configures none.
const DefaultPerPage = 25

// MaxPageButtons bounds the numbered links in pagination controls.
const MaxPageButtons = 5

// SortParams carries sorting parameters parsed from a request.
type SortParams struct {
	Sort string // column name, "" when absent or not allowed
	Dir  string // Asc or Desc
}

// Descending reports whether the sort is descending.
func (s SortParams) Descending() bool {
	return s.Dir == Desc
}

// FilterParams carries search and filter parameters.
type FilterParams struct {
	Search  string            // free-text search query, trimmed
	Filters map[string]string // exact-match filters (e.g. risk=critical)
}

// ListParams combines all list view parameters.
type ListParams struct {
	Page int // 1-indexed, not yet clamped to the result size
	SortParams
	FilterParams
}

// PageInfo carries pagination metadata for rendering.
type PageInfo struct {
	Page       int // current page (1-indexed)
	PerPage    int // rows per page
	Total      int // total matching rows
	TotalPages int // ceil(Total / PerPage), at least 1
}

// ParsePage extracts the page number from q.
// POST: returns at least 1
func ParsePage(q url.Values) int {
	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}
	return page
}

// ParseSortParams extracts sort and dir from URL query values.
// POST: Sort is "" or one of allowedColumns; Dir is Asc or Desc
func ParseSortParams(q url.Values, allowedColumns []string) SortParams {
	sort := q.Get("sort")
	dir := strings.ToLower(q.Get("dir"))
	if !slices.Contains(allowedColumns, sort) {
		sort = ""
	}
	if dir != Asc && dir != Desc {
		dir = Asc
	}
	return SortParams{Sort: sort, Dir: dir}
}

// ParseFilterParams extracts search and named filters from URL query values.
// PRE: filterKeys lists the allowed filter parameter names
// POST: returns FilterParams with only recognised keys
func ParseFilterParams(q url.Values, filterKeys []string) FilterParams {
	fp := FilterParams{
		Search:  strings.TrimSpace(q.Get("q")),
		Filters: make(map[string]string),
	}
	for _, key := range filterKeys {
		if v := q.Get(key); v != "" {
			fp.Filters[key] = v
		}
	}
	return fp
}

// ParseListParams parses all list parameters from URL query values.
func ParseListParams(q url.Values, allowedSortCols []string, filterKeys []string) ListParams {
	return ListParams{
		Page:         ParsePage(q),
		SortParams:   ParseSortParams(q, allowedSortCols),
		FilterParams: ParseFilterParams(q, filterKeys),
	}
}

// NewPageInfo computes pagination metadata.
// POST: Page is clamped to [1, TotalPages]
func NewPageInfo(page, perPage, total int) PageInfo {
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	totalPages := (total + perPage - 1) / perPage
	if totalPages < 1 {
		totalPages = 1
	}
	page = min(max(page, 1), totalPages)
	return PageInfo{
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: totalPages,
	}
}

// Offset returns the index of the first row on the current page.
func (p PageInfo) Offset() int {
	return (p.Page - 1) * p.PerPage
}

// StartRow returns the 1-indexed first row number on the current page.
// POST: Returns 0 if Total is 0, otherwise Offset+1
func (p PageInfo) StartRow() int {
	if p.Total == 0 {
		return 0
	}
	return p.Offset() + 1
}

// EndRow returns the 1-indexed last row number on the current page.
func (p PageInfo) EndRow() int {
	return min(p.Offset()+p.PerPage, p.Total)
}

// HasPrev reports whether a previous page exists.
func (p PageInfo) HasPrev() bool { return p.Page > 1 }

// HasNext reports whether a next page exists.
func (p PageInfo) HasNext() bool { return p.Page < p.TotalPages }

// PageNumbers returns the page numbers to display in pagination controls,
// at most MaxPageButtons of them, centered on the current page where possible.
func (p PageInfo) PageNumbers() []int {
	start := max(p.Page-MaxPageButtons/2, 1)
	end := start + MaxPageButtons - 1
	if end > p.TotalPages {
		end = p.TotalPages
		start = max(end-MaxPageButtons+1, 1)
	}
	pages := make([]int, 0, end-start+1)
	for i := start; i <= end; i++ {
		pages = append(pages, i)
	}
	return pages
}

// ShowPagination returns true if pagination controls should be displayed.
func (p PageInfo) ShowPagination() bool {
	return p.Total > p.PerPage
}

// Paginate returns the rows of items on page.
// PRE: info was computed for len(items)
func Paginate[T any](items []T, info PageInfo) []T {
	start := min(info.Offset(), len(items))
	end := min(start+info.PerPage, len(items))
	return items[start:end]
}
