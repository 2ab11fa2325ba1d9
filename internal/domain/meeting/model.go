// Package meeting holds the meeting record served by the meetings API and the
// legacy archive, plus the filter, grouping and merge rules of the archive view.
package meeting

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"
)

// Meeting types.
const (
	TypeOpen      = "open"
	TypeExecutive = "executive"
	TypeGeneral   = "general"
	TypePowwow    = "powwow"
	TypeCommittee = "committee"
	TypeSpecial   = "special"
)

// Types lists every meeting type in display order.
var Types = []string{TypeOpen, TypeExecutive, TypeGeneral, TypePowwow, TypeCommittee, TypeSpecial}

// Visibility values.
const (
	VisibilityPublic      = "public"
	VisibilityMembersOnly = "members-only"
)

// UnknownYear is the bucket for meetings without a year path component.
const UnknownYear = "Unknown"

// Source records where a meeting came from.
type Source int

const (
	SourceAPI Source = iota
	SourceLegacy
)

const githubRepoURL = "https://github.com/waccamaw/meetings-service"

// PathComponents locate a meeting under /meetings/{type}/{year}/{month}/{day}/.
type PathComponents struct {
	Type  string `json:"type"`
	Year  string `json:"year"`
	Month string `json:"month"`
	Day   string `json:"day"`
}

// Complete reports whether all four components are present.
func (p PathComponents) Complete() bool {
	return p.Type != "" && p.Year != "" && p.Month != "" && p.Day != ""
}

// Content carries the optional text artifacts of a meeting.
type Content struct {
	Notes      string `json:"notes,omitempty"`
	Transcript string `json:"transcript,omitempty"`
	Chat       string `json:"chat,omitempty"`
	Readme     string `json:"readme,omitempty"`
}

// Meeting is a read-only meeting record.
type Meeting struct {
	ID             string         `json:"id"`
	Title          string         `json:"title"`
	Date           string         `json:"date"`
	Type           string         `json:"type"`
	Visibility     string         `json:"visibility"`
	Duration       int            `json:"duration,omitempty"`
	HasRecording   bool           `json:"hasRecording"`
	HasTranscript  bool           `json:"hasTranscript"`
	HasNotes       bool           `json:"hasNotes"`
	HasChat        bool           `json:"hasChat"`
	Content        *Content       `json:"content,omitempty"`
	PathComponents PathComponents `json:"pathComponents"`
	GithubPath     string         `json:"githubPath,omitempty"`

	// Older API revisions returned the text artifacts at the top level.
	Notes      string `json:"notes,omitempty"`
	Transcript string `json:"transcript,omitempty"`
	Chat       string `json:"chat,omitempty"`

	// Legacy archive entries only.
	Source     Source   `json:"-"`
	Author     string   `json:"-"`
	Categories []string `json:"-"`
	Body       string   `json:"-"`
	VideoURL   string   `json:"-"`
}

// IsPublic reports whether the meeting may be shown to an unauthenticated caller.
// A missing visibility is not public.
func (m Meeting) IsPublic() bool {
	return m.Visibility == VisibilityPublic
}

// IsMembersOnly reports whether the meeting is restricted to members.
func (m Meeting) IsMembersOnly() bool {
	return m.Visibility == VisibilityMembersOnly
}

// Year returns the year path component, or UnknownYear.
func (m Meeting) Year() string {
	if m.PathComponents.Year == "" {
		return UnknownYear
	}
	return m.PathComponents.Year
}

// URL returns the canonical detail link. Meetings without a complete date
// path fall back to the id lookup.
func (m Meeting) URL() string {
	p := m.PathComponents
	if !p.Complete() {
		return "/meetings/view?id=" + url.QueryEscape(m.ID)
	}
	return fmt.Sprintf("/meetings/%s/%s/%s/%s/",
		url.PathEscape(p.Type), url.PathEscape(p.Year), url.PathEscape(p.Month), url.PathEscape(p.Day))
}

// NotesText returns the notes artifact, preferring the content block.
func (m Meeting) NotesText() string {
	if m.Content != nil && m.Content.Notes != "" {
		return m.Content.Notes
	}
	return m.Notes
}

// TranscriptText returns the transcript artifact, preferring the content block.
func (m Meeting) TranscriptText() string {
	if m.Content != nil && m.Content.Transcript != "" {
		return m.Content.Transcript
	}
	return m.Transcript
}

// ChatText returns the chat artifact, preferring the content block.
func (m Meeting) ChatText() string {
	if m.Content != nil && m.Content.Chat != "" {
		return m.Content.Chat
	}
	return m.Chat
}

var videoURLPattern = regexp.MustCompile(`video_url:\s*"([^"]+)"`)

// RecordingURL returns the embeddable recording URL. API meetings carry it in
// the readme front matter; legacy entries carry it directly.
func (m Meeting) RecordingURL() string {
	if m.VideoURL != "" {
		return m.VideoURL
	}
	if m.Content == nil {
		return ""
	}
	if match := videoURLPattern.FindStringSubmatch(m.Content.Readme); match != nil {
		return match[1]
	}
	return ""
}

// GitHubViewURL links to the meeting directory, or "#" when no path is known.
func (m Meeting) GitHubViewURL() string {
	if m.GithubPath == "" {
		return "#"
	}
	return githubRepoURL + "/tree/main/" + m.GithubPath
}

// GitHubEditURL links to the notes editor, or "#" when no path is known.
func (m Meeting) GitHubEditURL() string {
	if m.GithubPath == "" {
		return "#"
	}
	return githubRepoURL + "/edit/main/" + m.GithubPath + "/notes.md"
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05 -07:00",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseDate parses an ISO 8601 meeting date.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Time returns the parsed meeting date.
func (m Meeting) Time() (time.Time, bool) {
	return ParseDate(m.Date)
}

// TypeDisplayName returns the human name of a meeting type. Unknown types are
// returned unchanged.
func TypeDisplayName(t string) string {
	switch t {
	case TypeOpen:
		return "Open Meeting"
	case TypeExecutive:
		return "Executive Meeting"
	case TypeGeneral:
		return "General Meeting"
	case TypePowwow:
		return "Powwow Meeting"
	case TypeCommittee:
		return "Committee Meeting"
	default:
		return t
	}
}

// BadgeClass returns the CSS badge class of a meeting type.
func BadgeClass(t string) string {
	switch t {
	case TypeOpen, TypeExecutive, TypeGeneral, TypePowwow, TypeCommittee:
		return "badge-" + t
	default:
		return "badge-default"
	}
}

// FormatDuration renders minutes as "N minutes", "H hour(s)" or both.
func FormatDuration(minutes int) string {
	if minutes <= 0 {
		return "Duration not recorded"
	}
	hours := minutes / 60
	mins := minutes % 60
	plural := ""
	if hours > 1 {
		plural = "s"
	}
	switch {
	case hours == 0:
		return fmt.Sprintf("%d minutes", mins)
	case mins == 0:
		return fmt.Sprintf("%d hour%s", hours, plural)
	default:
		return fmt.Sprintf("%d hour%s %d minutes", hours, plural, mins)
	}
}

// FormatDate renders a date as "Monday, January 2, 2006". Unparseable input
// is returned as-is.
func FormatDate(s string) string {
	t, ok := ParseDate(s)
	if !ok {
		return s
	}
	return t.Format("Monday, January 2, 2006")
}

// FormatTime renders the time of day as "3:04 PM".
func FormatTime(s string) string {
	t, ok := ParseDate(s)
	if !ok {
		return ""
	}
	return t.Format("3:04 PM")
}

// ShortMonth renders the month as "Jan" for calendar tiles.
func ShortMonth(s string) string {
	t, ok := ParseDate(s)
	if !ok {
		return ""
	}
	return t.Format("Jan")
}
