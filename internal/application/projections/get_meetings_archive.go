package projections

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"waccamaw/internal/adapters/api"
	"waccamaw/internal/domain/meeting"
)

// Meetings list messages
const (
	MsgMeetingsLoadFailed = "Failed to load meetings"
	MsgAuthenticated      = "Authenticated - Viewing all meetings"
	MsgPublicOnly         = "Viewing public meetings only"
	MsgNoMeetings         = "No meetings found matching your filters."
)

// GetMeetingsArchiveQuery carries query parameters.
type GetMeetingsArchiveQuery struct {
	HasToken bool // the caller's session carries a bearer token
	Filter   meeting.Filter
	ShowAll  bool
	Now      time.Time
}

// MeetingsArchiveView is everything the meetings page renders.
type MeetingsArchiveView struct {
	Sections      []meeting.Section
	Years         []string // timeline buttons, newest first
	Types         []string
	Filter        meeting.Filter
	ShowAll       bool
	HiddenYears   int // sections beyond the recent window
	Total         int
	Displayed     int
	YearCount     int
	Authenticated bool

	APIError       string
	APIUnavailable bool // dev only: the API could not be reached at all

	Diagnostics []meeting.Meeting // dev only, unfiltered visible API meetings
}

// AuthBadge is the label of the authentication badge.
func (v MeetingsArchiveView) AuthBadge() string {
	if v.Authenticated {
		return MsgAuthenticated
	}
	return MsgPublicOnly
}

// SelectedYearText describes the active year filter.
func (v MeetingsArchiveView) SelectedYearText() string {
	if v.Filter.Year == "" {
		return "Showing all years"
	}
	return "Showing " + strconv.Itoa(v.Displayed) + " meetings from " + v.Filter.Year
}

// Empty reports whether nothing matched.
func (v MeetingsArchiveView) Empty() bool {
	return len(v.Sections) == 0
}

// GetMeetingsArchiveDeps holds dependencies for GetMeetingsArchive.
type GetMeetingsArchiveDeps struct {
	API         MeetingsAPI
	Archive     LegacyArchive
	RecentYears int
	Dev         bool
}

// QueryGetMeetingsArchive loads API meetings and merges them into the legacy
// archive by year.
// PRE: ctx carries the caller's token, if any
// POST: the legacy archive renders even when the API call fails
// INVARIANT: members-only meetings appear only when the caller holds a token
// and the API confirms the caller is authenticated
func QueryGetMeetingsArchive(ctx context.Context, query GetMeetingsArchiveQuery, deps GetMeetingsArchiveDeps) (MeetingsArchiveView, error) {
	view := MeetingsArchiveView{
		Types:   meeting.Types,
		Filter:  query.Filter,
		ShowAll: query.ShowAll,
	}

	var fromAPI []meeting.Meeting
	list, err := deps.API.GetMeetings(ctx, api.MeetingFilters{})
	switch {
	case err != nil:
		view.APIError = err.Error()
		var apiErr *api.Error
		view.APIUnavailable = deps.Dev && !errors.As(err, &apiErr)
		slog.Warn("meetings_load_failed", "error", err)
	case !list.Success:
		view.APIError = MsgMeetingsLoadFailed
	default:
		fromAPI = list.Meetings
		view.Authenticated = query.HasToken && list.Authenticated
	}
	if !view.Authenticated {
		fromAPI = meeting.PublicOnly(fromAPI)
	}
	if deps.Dev {
		view.Diagnostics = fromAPI
	}

	all := meeting.MergeSections(deps.Archive.Sections(view.Authenticated, meeting.Filter{}), fromAPI)
	for _, s := range all {
		view.Total += s.Count()
		if s.Year != meeting.UnknownYear {
			view.Years = append(view.Years, s.Year)
		}
	}
	view.YearCount = len(view.Years)

	sections := all
	if query.Filter.Active() {
		sections = meeting.MergeSections(deps.Archive.Sections(view.Authenticated, query.Filter), query.Filter.Apply(fromAPI))
	}
	shown := meeting.Recent(sections, deps.RecentYears, query.ShowAll || query.Filter.Active())
	view.HiddenYears = len(sections) - len(shown)

	if query.Filter.Active() {
		for i := range shown {
			shown[i].Expanded = true
		}
	} else {
		meeting.ExpandYear(shown, strconv.Itoa(query.Now.Year()))
	}
	for _, s := range shown {
		view.Displayed += s.Count()
	}
	view.Sections = shown
	return view, nil
}
