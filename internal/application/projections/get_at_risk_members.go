package projections

import (
	"context"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	"waccamaw/internal/application/listutil"
	"waccamaw/internal/domain/member"
	"waccamaw/internal/domain/portal"
)

// At-risk view messages
const (
	MsgLoadMembersFailed = "Error loading member data"
	MsgNoMembers         = "No members found"
	MsgNothingToExport   = "No at-risk members to export"
)

// AtRiskSortColumns are the sortable table columns.
var AtRiskSortColumns = []string{
	member.SortName, member.SortEmail, member.SortStatus,
	member.SortExpires, member.SortDaysUntil, member.SortRiskLevel,
}

// AtRiskFilterKeys are the recognised filter parameters.
var AtRiskFilterKeys = []string{"risk"}

// GetAtRiskMembersQuery carries query parameters.
type GetAtRiskMembersQuery struct {
	IsExecutive bool // from a fresh status call
	Params      listutil.ListParams
	Now         time.Time
}

// AtRiskView is the email dashboard screen.
type AtRiskView struct {
	Metrics   member.Metrics
	Rows      []member.AtRiskMember
	Page      listutil.PageInfo
	Search    string
	Risk      string
	Sort      string
	Desc      bool
	LoadError string
	Notice    string // result of the last reminder run
}

// Empty reports whether the filtered list is empty.
func (v AtRiskView) Empty() bool {
	return v.Page.Total == 0
}

// CanExport reports whether the full at-risk list has entries.
func (v AtRiskView) CanExport() bool {
	return len(v.Metrics.AtRisk) > 0
}

func (v AtRiskView) query(sortCol string, desc bool, page int) string {
	q := url.Values{}
	if v.Search != "" {
		q.Set("q", v.Search)
	}
	if v.Risk != "" && v.Risk != member.RiskAll {
		q.Set("risk", v.Risk)
	}
	if sortCol != "" {
		q.Set("sort", sortCol)
		dir := listutil.Asc
		if desc {
			dir = listutil.Desc
		}
		q.Set("dir", dir)
	}
	if page > 1 {
		q.Set("page", strconv.Itoa(page))
	}
	if len(q) == 0 {
		return ""
	}
	return "?" + q.Encode()
}

// SortURL is the header link for col. Clicking the active column toggles
// the direction; other columns start ascending on page one.
func (v AtRiskView) SortURL(col string) string {
	active := v.Sort
	if active == "" {
		active = member.SortDaysUntil
	}
	return v.query(col, member.NextSort(active, v.Desc, col), 1)
}

// SortIndicator is the arrow shown on the active column.
func (v AtRiskView) SortIndicator(col string) string {
	active := v.Sort
	if active == "" {
		active = member.SortDaysUntil
	}
	if col != active {
		return ""
	}
	if v.Desc {
		return "▼"
	}
	return "▲"
}

// PageURL is the link to page n with the current filters and sort.
func (v AtRiskView) PageURL(n int) string {
	return v.query(v.Sort, v.Desc, n)
}

// GetAtRiskMembersDeps holds dependencies for GetAtRiskMembers.
type GetAtRiskMembersDeps struct {
	API      RosterAPI
	PageSize int
}

// QueryGetAtRiskMembers computes roster metrics and one page of the filtered
// and sorted at-risk list.
// PRE: query.IsExecutive reflects the caller's current status
// POST: the page is clamped to the filtered result
func QueryGetAtRiskMembers(ctx context.Context, query GetAtRiskMembersQuery, deps GetAtRiskMembersDeps) (AtRiskView, error) {
	if !query.IsExecutive {
		return AtRiskView{}, portal.ErrAccessDenied
	}
	p := query.Params
	view := AtRiskView{
		Search: p.Search,
		Risk:   p.Filters["risk"],
		Sort:   p.Sort,
		Desc:   p.Descending(),
	}

	records, err := deps.API.GetAdminMemberList(ctx)
	if err != nil {
		slog.Warn("member_list_failed", "error", err)
		view.LoadError = err.Error()
		view.Page = listutil.NewPageInfo(1, deps.PageSize, 0)
		return view, nil
	}

	view.Metrics = member.ComputeMetrics(records, query.Now)
	filtered := member.AtRiskQuery{
		Search: view.Search,
		Risk:   view.Risk,
		Sort:   view.Sort,
		Desc:   view.Desc,
	}.Apply(view.Metrics.AtRisk)

	view.Page = listutil.NewPageInfo(p.Page, deps.PageSize, len(filtered))
	view.Rows = listutil.Paginate(filtered, view.Page)
	return view, nil
}

// QueryAtRiskExport returns the full at-risk list for CSV export, ignoring
// any search, filter or sort.
// PRE: isExecutive reflects the caller's current status
func QueryAtRiskExport(ctx context.Context, isExecutive bool, now time.Time, deps RosterAPI) ([]member.AtRiskMember, error) {
	if !isExecutive {
		return nil, portal.ErrAccessDenied
	}
	records, err := deps.GetAdminMemberList(ctx)
	if err != nil {
		return nil, err
	}
	return member.ComputeMetrics(records, now).AtRisk, nil
}
