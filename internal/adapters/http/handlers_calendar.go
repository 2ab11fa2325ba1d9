package web

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/emersion/go-ical"

	"waccamaw/internal/domain/meeting"
)

const (
	calendarProductID      = "-//Waccamaw Indian People//Meetings Archive//EN"
	calendarUIDDomain      = "@waccamaw.org"
	defaultMeetingDuration = 60 * time.Minute
)

// handleMeetingsCalendar exports the meetings visible to the caller as an
// iCalendar feed.
func (s *Server) handleMeetingsCalendar(w http.ResponseWriter, r *http.Request) {
	view, err := s.meetingsArchive(r, meeting.Filter{}, true)
	if err != nil {
		internalError(w, err)
		return
	}
	var list []meeting.Meeting
	for _, sec := range view.Sections {
		list = append(list, sec.Meetings()...)
	}

	var buf bytes.Buffer
	if err := writeCalendar(&buf, list, s.absoluteURL(""), s.now()); err != nil {
		internalError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `inline; filename="waccamaw-meetings.ics"`)
	if hasToken(r) {
		w.Header().Set("Cache-Control", "private, no-store")
	}
	_, _ = buf.WriteTo(w)
}

// writeCalendar encodes one VEVENT per dated meeting. Meetings whose date does
// not parse are skipped.
// POST: every event has UID, DTSTAMP, DTSTART and DTEND
func writeCalendar(w io.Writer, list []meeting.Meeting, baseURL string, now time.Time) error {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, calendarProductID)

	stamp := now.UTC()
	for _, m := range list {
		start, ok := m.Time()
		if !ok {
			slog.Debug("calendar_meeting_skipped", "id", m.ID, "date", m.Date)
			continue
		}
		length := defaultMeetingDuration
		if m.Duration > 0 {
			length = time.Duration(m.Duration) * time.Minute
		}

		event := ical.NewEvent()
		event.Props.SetText(ical.PropUID, m.ID+calendarUIDDomain)
		event.Props.SetDateTime(ical.PropDateTimeStamp, stamp)
		event.Props.SetDateTime(ical.PropDateTimeStart, start.UTC())
		event.Props.SetDateTime(ical.PropDateTimeEnd, start.Add(length).UTC())
		event.Props.SetText(ical.PropSummary, m.Title)
		event.Props.SetText(ical.PropCategories, meeting.TypeDisplayName(m.Type))
		if u, err := url.Parse(baseURL + m.URL()); err == nil {
			event.Props.SetURI(ical.PropURL, u)
		}
		cal.Children = append(cal.Children, event.Component)
	}
	return ical.NewEncoder(w).Encode(cal)
}
