// Package archive reads the legacy meetings archive: markdown files with YAML
// front matter under content/meetings/. Entries become meetings with
// Source=SourceLegacy and are merged with the API listing at render time.
package archive

import (
	"bytes"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"slices"
	"strings"

	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"

	"waccamaw/internal/domain/meeting"
)

// Business rule constants
const (
	IDPrefix          = "legacy-"
	DefaultType       = meeting.TypeGeneral
	DefaultVisibility = meeting.VisibilityPublic
)

// bodyRenderer converts legacy bodies to HTML. Raw HTML in the source is
// escaped since WithUnsafe is not set.
var bodyRenderer = goldmark.New(
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

// Archive is an immutable, loaded legacy archive. A nil *Archive is an empty
// archive.
type Archive struct {
	meetings []meeting.Meeting
	byPath   map[meeting.PathComponents]int
}

// LoadDir loads every *.md file in dir. An empty dir or a directory that does
// not exist yields an empty archive.
func LoadDir(dir string) (*Archive, error) {
	if dir == "" {
		return &Archive{}, nil
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		slog.Warn("archive_missing", "dir", dir)
		return &Archive{}, nil
	}
	return Load(os.DirFS(dir))
}

// Load reads every *.md file at the root of fsys. Files that fail to parse
// are logged and skipped.
// POST: meetings are ordered newest first
func Load(fsys fs.FS) (*Archive, error) {
	names, err := fs.Glob(fsys, "*.md")
	if err != nil {
		return nil, fmt.Errorf("failed to list archive: %w", err)
	}
	a := &Archive{byPath: make(map[meeting.PathComponents]int)}
	for _, name := range names {
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", name, err)
		}
		m, err := Parse(name, data)
		if err != nil {
			slog.Warn("archive_entry_skipped", "file", name, "error", err)
			continue
		}
		a.meetings = append(a.meetings, m)
	}

	slices.SortStableFunc(a.meetings, func(x, y meeting.Meeting) int {
		xt, _ := x.Time()
		yt, _ := y.Time()
		return yt.Compare(xt)
	})
	for i, m := range a.meetings {
		if _, dup := a.byPath[m.PathComponents]; !dup && m.PathComponents.Complete() {
			a.byPath[m.PathComponents] = i
		}
	}
	slog.Info("archive_loaded", "entries", len(a.meetings), "files", len(names))
	return a, nil
}

// Parse converts one archive file into a legacy meeting.
func Parse(name string, data []byte) (meeting.Meeting, error) {
	front, body, err := split(string(data))
	if err != nil {
		return meeting.Meeting{}, err
	}
	raw, err := decodeFrontMatter(front)
	if err != nil {
		return meeting.Meeting{}, err
	}
	if raw == nil {
		return meeting.Meeting{}, ErrEmptyFrontMatter
	}
	fm := typedFrontMatter(raw)
	if fm.Title == "" || fm.Date == "" {
		return meeting.Meeting{}, fmt.Errorf("missing title or date")
	}
	when, ok := meeting.ParseDate(fm.Date)
	if !ok {
		return meeting.Meeting{}, fmt.Errorf("invalid date %q", fm.Date)
	}

	typ := strings.ToLower(fm.Type)
	if typ == "" {
		typ = DefaultType
	}
	visibility := strings.ToLower(fm.Visibility)
	if visibility == "" {
		visibility = DefaultVisibility
	}

	var html bytes.Buffer
	body = strings.TrimSpace(body)
	if err := bodyRenderer.Convert([]byte(body), &html); err != nil {
		return meeting.Meeting{}, fmt.Errorf("failed to render body: %w", err)
	}

	return meeting.Meeting{
		ID:         IDPrefix + strings.TrimSuffix(path.Base(name), ".md"),
		Title:      fm.Title,
		Date:       fm.Date,
		Type:       typ,
		Visibility: visibility,
		HasNotes:   body != "",
		PathComponents: meeting.PathComponents{
			Type:  typ,
			Year:  fmt.Sprintf("%04d", when.Year()),
			Month: fmt.Sprintf("%02d", int(when.Month())),
			Day:   fmt.Sprintf("%02d", when.Day()),
		},
		HasRecording: fm.VideoURL != "",
		Source:       meeting.SourceLegacy,
		Author:       fm.Author,
		Categories:   fm.Categories,
		Body:         html.String(),
		VideoURL:     fm.VideoURL,
	}, nil
}

// Meetings returns all legacy meetings, newest first.
func (a *Archive) Meetings() []meeting.Meeting {
	if a == nil {
		return nil
	}
	return slices.Clone(a.meetings)
}

// Len returns the number of loaded entries.
func (a *Archive) Len() int {
	if a == nil {
		return 0
	}
	return len(a.meetings)
}

// Sections groups the entries matching f by year. Members-only entries are
// dropped unless authenticated is set.
func (a *Archive) Sections(authenticated bool, f meeting.Filter) []meeting.Section {
	ms := a.Meetings()
	if !authenticated {
		ms = meeting.PublicOnly(ms)
	}
	return meeting.GroupByYear(f.Apply(ms), meeting.SourceLegacy)
}

// Find returns the first entry at the given date path.
func (a *Archive) Find(p meeting.PathComponents) (meeting.Meeting, bool) {
	if a == nil {
		return meeting.Meeting{}, false
	}
	i, ok := a.byPath[p]
	if !ok {
		return meeting.Meeting{}, false
	}
	return a.meetings[i], true
}
