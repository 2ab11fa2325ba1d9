package web

import (
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"

	"waccamaw/internal/application/projections"
	"waccamaw/internal/domain/meeting"
)

// meetingsFilter reads the year and type filters. Unknown types are ignored.
func meetingsFilter(r *http.Request) meeting.Filter {
	q := r.URL.Query()
	f := meeting.Filter{Year: q.Get("year"), Type: q.Get("type")}
	if f.Type != "" && !slices.Contains(meeting.Types, f.Type) {
		f.Type = ""
	}
	return f
}

// hasToken reports whether the caller's session carries a bearer token.
func hasToken(r *http.Request) bool {
	sess, _ := currentSession(r)
	return sess.SessionToken != ""
}

func (s *Server) meetingsArchive(r *http.Request, f meeting.Filter, showAll bool) (projections.MeetingsArchiveView, error) {
	return projections.QueryGetMeetingsArchive(apiContext(r), projections.GetMeetingsArchiveQuery{
		HasToken: hasToken(r),
		Filter:   f,
		ShowAll:  showAll,
		Now:      s.now(),
	}, projections.GetMeetingsArchiveDeps{
		API:         s.api,
		Archive:     s.archive,
		RecentYears: s.cfg.Portal.RecentYears,
		Dev:         s.cfg.IsDevelopment(),
	})
}

// handleMeetings renders the archive grouped by year.
func (s *Server) handleMeetings(w http.ResponseWriter, r *http.Request) {
	view, err := s.meetingsArchive(r, meetingsFilter(r), r.URL.Query().Get("show") == "all")
	if err != nil {
		internalError(w, err)
		return
	}
	s.render(w, r, http.StatusOK, "meetings.html", "Meetings Archive", "meetings", view)
}

// handleMeetingByID renders /meetings/view?id=.
func (s *Server) handleMeetingByID(w http.ResponseWriter, r *http.Request) {
	s.renderMeeting(w, r, projections.GetMeetingDetailQuery{
		ID:       r.URL.Query().Get("id"),
		HasToken: hasToken(r),
	})
}

// handleMeetingByPath renders /meetings/{type}/{year}/{month}/{day}/.
func (s *Server) handleMeetingByPath(w http.ResponseWriter, r *http.Request) {
	s.renderMeeting(w, r, projections.GetMeetingDetailQuery{
		Path: meeting.PathComponents{
			Type:  chi.URLParam(r, "type"),
			Year:  chi.URLParam(r, "year"),
			Month: chi.URLParam(r, "month"),
			Day:   chi.URLParam(r, "day"),
		},
		ByPath:   true,
		HasToken: hasToken(r),
	})
}

func (s *Server) renderMeeting(w http.ResponseWriter, r *http.Request, query projections.GetMeetingDetailQuery) {
	view, err := projections.QueryGetMeetingDetail(apiContext(r), query, projections.GetMeetingDetailDeps{
		API:     s.api,
		Archive: s.archive,
		Status:  s.api,
	})
	if err != nil {
		internalError(w, err)
		return
	}

	status := http.StatusOK
	title := view.Meeting.Title
	switch view.Error {
	case "":
	case projections.MsgInvalidMeetingURL:
		status, title = http.StatusBadRequest, "Meeting"
	case projections.MsgMeetingNotFound:
		status, title = http.StatusNotFound, "Meeting"
	default:
		status, title = http.StatusBadGateway, "Meeting"
	}
	s.render(w, r, status, "meeting.html", title, "meetings", view)
}
