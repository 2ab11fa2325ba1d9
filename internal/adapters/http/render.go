package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/csrf"

	"waccamaw/internal/adapters/http/middleware"
	"waccamaw/internal/domain/facefocus"
	"waccamaw/internal/domain/meeting"
	"waccamaw/internal/domain/member"
)

//go:embed templates
var templateFS embed.FS

// pageNames are the templates rendered inside layout.html.
var pageNames = []string{
	"meetings.html",
	"meeting.html",
	"portal.html",
	"governing_body.html",
	"error.html",
}

var funcMap = template.FuncMap{
	"typeName":       meeting.TypeDisplayName,
	"typeBadge":      meeting.BadgeClass,
	"formatDuration": meeting.FormatDuration,
	"formatDate":     meeting.FormatDate,
	"formatTime":     meeting.FormatTime,
	"shortMonth":     meeting.ShortMonth,
	"memberDate":     member.FormatDate,
	"objectPosition": func(p facefocus.Position) template.CSS {
		return template.CSS("object-position: " + p.CSS())
	},
	"positionStyle": func(css string) template.CSS {
		return template.CSS("object-position: " + css)
	},
	"add": func(a, b int) int { return a + b },
	"sub": func(a, b int) int { return a - b },
}

// parseTemplates parses each page together with the layout.
// POST: every name in pageNames has an entry
func parseTemplates() (map[string]*template.Template, error) {
	sub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		return nil, err
	}
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		tpl, err := template.New("layout.html").Funcs(funcMap).ParseFS(sub, "layout.html", name)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", name, err)
		}
		pages[name] = tpl
	}
	return pages, nil
}

// page is the data every template receives. Content holds the view.
type page struct {
	Title     string
	Nav       string // "meetings", "members" or "leadership"
	CSRF      template.HTML
	CSRFToken string
	SignedIn  bool
	Name      string
	ShowLogo  bool
	Dev       bool
	Content   any
}

// internalError logs the real error and returns a generic message to the client.
func internalError(w http.ResponseWriter, err error) {
	slog.Error("internal_error", "error", err.Error())
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

// render executes name into a buffer first so a template error never
// produces a half-written page.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name, title, nav string, content any) {
	tpl, ok := s.pages[name]
	if !ok {
		internalError(w, fmt.Errorf("unknown template %q", name))
		return
	}
	p := page{
		Title:     title,
		Nav:       nav,
		CSRF:      csrf.TemplateField(r),
		CSRFToken: csrf.Token(r),
		ShowLogo:  s.cfg.Features.ShowLogo,
		Dev:       s.cfg.IsDevelopment(),
		Content:   content,
	}
	if sess, ok := middleware.SessionFromContext(r.Context()); ok && sess.HasActiveSession() {
		p.SignedIn = true
		p.Name = sess.DisplayName()
	}

	var buf bytes.Buffer
	if err := tpl.Execute(&buf, p); err != nil {
		internalError(w, fmt.Errorf("render %s: %w", name, err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// errorView is the content of error.html.
type errorView struct {
	Heading string
	Message string
	Back    string
}

func (s *Server) renderError(w http.ResponseWriter, r *http.Request, status int, heading, message string) {
	back := "/meetings/"
	if strings.HasPrefix(r.URL.Path, "/members") {
		back = "/members/"
	}
	s.render(w, r, status, "error.html", heading, "", errorView{Heading: heading, Message: message, Back: back})
}
