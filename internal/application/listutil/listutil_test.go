package listutil

import (
	"net/url"
	"slices"
	"testing"
)

// TestParsePage verifies defaults and clamping of the page parameter.
func TestParsePage(t *testing.T) {
	tests := []struct {
		raw  string
		want int
	}{
		{"", 1},
		{"3", 3},
		{"-1", 1},
		{"abc", 1},
	}
	for _, tt := range tests {
		if got := ParsePage(url.Values{"page": {tt.raw}}); got != tt.want {
			t.Errorf("ParsePage(%q) = %d, want %d", tt.raw, got, tt.want)
		}
	}
}

// TestParseSortParams_Valid verifies correct parsing of sort column and direction.
func TestParseSortParams_Valid(t *testing.T) {
	q := url.Values{"sort": {"email"}, "dir": {"DESC"}}
	s := ParseSortParams(q, []string{"name", "email"})
	if s.Sort != "email" || !s.Descending() {
		t.Errorf("got %+v, want email desc", s)
	}
}

// TestParseSortParams_DisallowedColumn verifies disallowed sort columns are rejected.
func TestParseSortParams_DisallowedColumn(t *testing.T) {
	q := url.Values{"sort": {"password"}}
	s := ParseSortParams(q, []string{"name", "email"})
	if s.Sort != "" {
		t.Errorf("expected empty sort for disallowed column, got %s", s.Sort)
	}
}

// TestParseSortParams_InvalidDir verifies invalid direction defaults to asc.
func TestParseSortParams_InvalidDir(t *testing.T) {
	q := url.Values{"sort": {"name"}, "dir": {"DROP TABLE"}}
	s := ParseSortParams(q, []string{"name"})
	if s.Dir != Asc {
		t.Errorf("expected dir=asc for invalid dir, got %s", s.Dir)
	}
}

// TestParseFilterParams verifies search and filter extraction from query values.
func TestParseFilterParams(t *testing.T) {
	q := url.Values{"q": {"  smith "}, "risk": {"critical"}, "other": {"x"}}
	fp := ParseFilterParams(q, []string{"risk"})
	if fp.Search != "smith" {
		t.Errorf("search = %q", fp.Search)
	}
	if fp.Filters["risk"] != "critical" || len(fp.Filters) != 1 {
		t.Errorf("filters = %v", fp.Filters)
	}
}

// TestNewPageInfo verifies page count and clamping.
func TestNewPageInfo(t *testing.T) {
	tests := []struct {
		name                     string
		page, perPage, total     int
		wantPage, wantTotalPages int
	}{
		{"empty", 1, 25, 0, 1, 1},
		{"exact", 1, 25, 25, 1, 1},
		{"one over", 2, 25, 26, 2, 2},
		{"clamped to last", 9, 25, 60, 3, 3},
		{"zero page", 0, 25, 60, 1, 3},
		{"default size", 1, 0, 60, 1, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPageInfo(tt.page, tt.perPage, tt.total)
			if p.Page != tt.wantPage || p.TotalPages != tt.wantTotalPages {
				t.Errorf("got page %d of %d, want %d of %d", p.Page, p.TotalPages, tt.wantPage, tt.wantTotalPages)
			}
		})
	}
}

// TestRows verifies start and end row numbers.
func TestRows(t *testing.T) {
	p := NewPageInfo(3, 25, 60)
	if p.StartRow() != 51 || p.EndRow() != 60 {
		t.Errorf("rows %d-%d, want 51-60", p.StartRow(), p.EndRow())
	}
	if e := NewPageInfo(1, 25, 0); e.StartRow() != 0 || e.EndRow() != 0 {
		t.Errorf("empty rows %d-%d", e.StartRow(), e.EndRow())
	}
	if !p.HasPrev() || p.HasNext() {
		t.Errorf("prev/next = %v/%v on last page", p.HasPrev(), p.HasNext())
	}
}

// TestPageNumbers verifies the window of at most five buttons.
func TestPageNumbers(t *testing.T) {
	tests := []struct {
		page, total int
		want        []int
	}{
		{1, 50, []int{1, 2}},
		{1, 250, []int{1, 2, 3, 4, 5}},
		{5, 250, []int{3, 4, 5, 6, 7}},
		{10, 250, []int{6, 7, 8, 9, 10}},
		{9, 250, []int{6, 7, 8, 9, 10}},
	}
	for _, tt := range tests {
		got := NewPageInfo(tt.page, 25, tt.total).PageNumbers()
		if !slices.Equal(got, tt.want) {
			t.Errorf("page %d of %d rows: got %v, want %v", tt.page, tt.total, got, tt.want)
		}
	}
}

// TestShowPagination verifies controls only appear with more than one page.
func TestShowPagination(t *testing.T) {
	if NewPageInfo(1, 25, 25).ShowPagination() {
		t.Error("one page should not paginate")
	}
	if !NewPageInfo(1, 25, 26).ShowPagination() {
		t.Error("two pages should paginate")
	}
}

// TestPaginate verifies slicing at the page boundaries.
func TestPaginate(t *testing.T) {
	items := make([]int, 60)
	for i := range items {
		items[i] = i
	}
	tests := []struct {
		page      int
		wantFirst int
		wantLen   int
	}{
		{1, 0, 25},
		{2, 25, 25},
		{3, 50, 10},
	}
	for _, tt := range tests {
		got := Paginate(items, NewPageInfo(tt.page, 25, len(items)))
		if len(got) != tt.wantLen || got[0] != tt.wantFirst {
			t.Errorf("page %d: len %d first %d", tt.page, len(got), got[0])
		}
	}
	if got := Paginate([]int{}, NewPageInfo(1, 25, 0)); len(got) != 0 {
		t.Errorf("empty page = %v", got)
	}
}
