package projections

import (
	"context"
	"html/template"
	"log/slog"
	"net/url"

	"waccamaw/internal/adapters/api"
	"waccamaw/internal/domain/meeting"
	"waccamaw/internal/domain/notes"
)

// Meeting detail messages
const (
	MsgInvalidMeetingURL = "Invalid meeting URL - no ID provided"
	MsgMeetingNotFound   = "Meeting not found"
	MsgNoResources       = "No additional resources available for this meeting."
)

// Tab ids in display order.
const (
	TabNotes      = "notes"
	TabTranscript = "transcript"
	TabChat       = "chat"
	TabRecording  = "recording"
)

// MeetingTab is one content tab of the detail page.
type MeetingTab struct {
	ID     string
	Label  string
	HTML   template.HTML // rendered notes or transcript
	Chat   []notes.ChatMessage
	Embed  string // recording URL
	Empty  string // shown when the artifact is not available yet
	Active bool
}

// GetMeetingDetailQuery identifies one meeting by id or by date path.
type GetMeetingDetailQuery struct {
	ID       string
	Path     meeting.PathComponents
	ByPath   bool
	HasToken bool
}

// MeetingDetailView is everything the detail page renders.
type MeetingDetailView struct {
	Meeting     meeting.Meeting
	Error       string
	Tabs        []MeetingTab
	IsExecutive bool
	ShowSignIn  bool // restricted meeting the caller may not see
	Legacy      bool
}

// Found reports whether a meeting is available to render.
func (v MeetingDetailView) Found() bool {
	return v.Error == ""
}

// GetMeetingDetailDeps holds dependencies for GetMeetingDetail.
type GetMeetingDetailDeps struct {
	API     MeetingDetailAPI
	Archive LegacyArchive
	Status  StatusAPI // confirms the token before a restricted legacy entry renders
}

// QueryGetMeetingDetail loads one meeting and builds its tabs. A date path
// the API does not know falls back to the legacy archive.
// POST: exactly one of Error and Meeting is meaningful
// INVARIANT: a meeting that is not public renders no content unless the API
// authorized the caller
func QueryGetMeetingDetail(ctx context.Context, query GetMeetingDetailQuery, deps GetMeetingDetailDeps) (MeetingDetailView, error) {
	if query.ByPath && !query.Path.Complete() || !query.ByPath && query.ID == "" {
		return MeetingDetailView{Error: MsgInvalidMeetingURL}, nil
	}

	var (
		res api.MeetingDetail
		err error
	)
	if query.ByPath {
		p := query.Path
		res, err = deps.API.GetMeeting(ctx, p.Type, p.Year, p.Month, p.Day)
	} else {
		res, err = deps.API.GetMeetingByID(ctx, query.ID)
	}

	var view MeetingDetailView
	switch {
	case err == nil && res.Success && res.Meeting != nil:
		view = MeetingDetailView{Meeting: *res.Meeting, IsExecutive: res.IsExecutiveLeadership}
	default:
		legacy, ok := meeting.Meeting{}, false
		if query.ByPath {
			legacy, ok = deps.Archive.Find(query.Path)
		}
		if ok {
			view = MeetingDetailView{Meeting: legacy, Legacy: true}
			break
		}
		if err != nil {
			slog.Warn("meeting_load_failed", "id", query.ID, "path", query.Path.Type+"/"+query.Path.Year+"/"+query.Path.Month+"/"+query.Path.Day, "error", err)
			return MeetingDetailView{Error: err.Error()}, nil
		}
		return MeetingDetailView{Error: MsgMeetingNotFound}, nil
	}

	if !view.Meeting.IsPublic() && !authorized(ctx, view, query, deps) {
		view.ShowSignIn = true
		view.IsExecutive = false
		return view, nil
	}
	view.Tabs = buildTabs(view.Meeting)
	return view, nil
}

// authorized reports whether the caller may see a restricted meeting. An API
// meeting was already filtered by the token it was fetched with. A legacy
// entry is local, so the token is confirmed with a status call first.
func authorized(ctx context.Context, view MeetingDetailView, query GetMeetingDetailQuery, deps GetMeetingDetailDeps) bool {
	if !query.HasToken {
		return false
	}
	if !view.Legacy {
		return true
	}
	if deps.Status == nil {
		return false
	}
	if _, err := deps.Status.GetMemberStatus(ctx); err != nil {
		slog.Debug("legacy_meeting_denied", "id", view.Meeting.ID, "error", err)
		return false
	}
	return true
}

// buildTabs returns the tabs whose flags are set, the first one active.
func buildTabs(m meeting.Meeting) []MeetingTab {
	var tabs []MeetingTab
	if m.HasNotes {
		tab := MeetingTab{ID: TabNotes, Label: "Notes", Empty: "Meeting notes are being compiled and will be available soon."}
		switch {
		case m.Source == meeting.SourceLegacy && m.Body != "":
			tab.HTML = template.HTML(m.Body) // goldmark output, raw HTML escaped
		case m.NotesText() != "":
			tab.HTML = template.HTML(notes.RenderMarkdown(m.NotesText()))
		}
		tabs = append(tabs, tab)
	}
	if m.HasTranscript {
		tab := MeetingTab{ID: TabTranscript, Label: "Transcript", Empty: "Transcript is being processed and will be available soon."}
		if t := m.TranscriptText(); t != "" {
			tab.HTML = template.HTML(notes.RenderTranscript(t))
		}
		tabs = append(tabs, tab)
	}
	if m.HasChat {
		tabs = append(tabs, MeetingTab{
			ID:    TabChat,
			Label: "Chat",
			Chat:  notes.ParseChat(m.ChatText()),
			Empty: "Chat log is being processed and will be available soon.",
		})
	}
	if m.HasRecording {
		tabs = append(tabs, MeetingTab{
			ID:    TabRecording,
			Label: "Recording",
			Embed: embeddable(m.RecordingURL()),
			Empty: "Recording is being processed and will be available soon.",
		})
	}
	if len(tabs) > 0 {
		tabs[0].Active = true
	}
	return tabs
}

// embeddable returns raw when it is an absolute https URL, else "".
func embeddable(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme != "https" || u.Host == "" {
		return ""
	}
	return u.String()
}
