// Package web serves the meetings archive and the member portal as
// server-rendered pages in front of the remote member-services API.
package web

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"waccamaw/internal/adapters/email"
	"waccamaw/internal/adapters/http/middleware"
	"waccamaw/internal/adapters/http/perf"
	sessionStore "waccamaw/internal/adapters/storage/session"
	"waccamaw/internal/application/orchestrators"
	"waccamaw/internal/application/projections"
	"waccamaw/internal/config"
	"waccamaw/internal/domain/meeting"
)

// API is the remote API surface the handlers call.
type API interface {
	projections.MeetingsAPI
	projections.MeetingDetailAPI
	projections.StatusAPI
	projections.RosterAPI
	projections.PhotoAPI
	orchestrators.UpdateRequester
	orchestrators.TokenVerifier
	orchestrators.MemberUpdater
	orchestrators.PhotoUploader
}

// Focuser memoises and forgets face-focus positions.
type Focuser interface {
	projections.FocusFinder
	orchestrators.FocusInvalidator
}

// Deps holds everything the server needs. Archive may be nil.
type Deps struct {
	Config   *config.Config
	API      API
	Sessions sessionStore.Store
	Archive  projections.LegacyArchive
	Focus    Focuser
	Email    email.Sender
	Perf     *perf.Collector
	Now      func() time.Time
}

// Server holds the HTTP dependencies. There is one per process.
type Server struct {
	cfg      *config.Config
	api      API
	sessions sessionStore.Store
	archive  projections.LegacyArchive
	focus    Focuser
	email    email.Sender
	perf     *perf.Collector
	now      func() time.Time

	pages   map[string]*template.Template
	cookie  middleware.CookieOptions
	csrfKey []byte
	limiter *middleware.RateLimiter
}

// RateLimitPerSecond controls the per-IP rate limit. Tests can increase this.
var RateLimitPerSecond = 20

// New validates deps and parses the templates.
func New(deps Deps) (*Server, error) {
	if deps.Config == nil || deps.API == nil || deps.Sessions == nil {
		return nil, errors.New("web: config, api and sessions are required")
	}
	pages, err := parseTemplates()
	if err != nil {
		return nil, err
	}
	key, err := loadCSRFKey(deps.Config)
	if err != nil {
		return nil, err
	}
	s := &Server{
		cfg:      deps.Config,
		api:      deps.API,
		sessions: deps.Sessions,
		archive:  deps.Archive,
		focus:    deps.Focus,
		email:    deps.Email,
		perf:     deps.Perf,
		now:      deps.Now,
		pages:    pages,
		csrfKey:  key,
		limiter:  middleware.NewRateLimiter(RateLimitPerSecond, time.Second),
		cookie: middleware.CookieOptions{
			Secure: !deps.Config.IsDevelopment(),
			MaxAge: deps.Config.Portal.SessionTTL,
		},
	}
	if s.archive == nil {
		s.archive = emptyArchive{}
	}
	if s.email == nil {
		s.email = email.NewNoopSender()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s, nil
}

// loadCSRFKey decodes the configured key. Development generates a random
// key per start when none is set; production refuses to start without one.
func loadCSRFKey(cfg *config.Config) ([]byte, error) {
	if cfg.CSRFKey != "" {
		key, err := hex.DecodeString(cfg.CSRFKey)
		if err != nil || len(key) != 32 {
			return nil, errors.New("csrf_key must be 64 hex characters (32 bytes)")
		}
		return key, nil
	}
	if !cfg.IsDevelopment() {
		return nil, errors.New("csrf_key is required in production")
	}
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate CSRF key: %w", err)
	}
	slog.Warn("csrf_key_generated", "reason", "no csrf_key configured; form tokens will not survive a restart")
	return key, nil
}

// Limiter exposes the rate limiter for the maintenance ticker.
func (s *Server) Limiter() *middleware.RateLimiter {
	return s.limiter
}

// Handler builds the router.
// Middleware order: SecurityHeaders -> RateLimit -> Timing -> Auth -> CSRF -> routes
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.SecurityHeaders,
		middleware.RateLimit(s.limiter, s.cfg.TrustProxy),
		middleware.Timing(s.perf, s.cfg.SlowRequestMs),
		middleware.Auth(s.sessions, s.cookie),
		middleware.CSRF(s.csrfKey, s.cookie.Secure, nil),
	)

	r.Get("/healthz", s.handleHealthz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.Dir(s.cfg.StaticDir))))
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/meetings/", http.StatusFound)
	})

	r.Route("/meetings", func(r chi.Router) {
		r.Get("/", s.handleMeetings)
		r.Get("/view", s.handleMeetingByID)
		r.Get("/calendar.ics", s.handleMeetingsCalendar)
		r.Get("/{type}/{year}/{month}/{day}/", s.handleMeetingByPath)
	})

	r.Get("/verify/{token}", s.handleVerifyRedirect)
	r.Route("/members", func(r chi.Router) {
		r.Get("/", s.handlePortal)
		r.Post("/request-update", s.handleRequestUpdate)
		r.Post("/logout", s.handleLogout)
		r.Get("/profile", s.handleProfileForm)
		r.Post("/profile", s.handleProfileSubmit)
		r.Get("/photo", s.handleMemberPhoto)
		r.Post("/photo", s.handlePhotoUpload)

		r.Get("/admin/", s.handleAdmin)
		r.Get("/admin/at-risk.csv", s.handleAtRiskCSV)
		r.Post("/admin/reminders", s.handleSendReminders)
	})

	r.Get("/governing-body/", s.handleGoverningBody)
	r.Get("/api/face-focus", s.handleFaceFocus)

	if s.cfg.IsDevelopment() && s.perf != nil {
		r.Get("/dev/perf", s.handlePerf)
	}
	return r
}

// emptyArchive stands in when no legacy archive is configured.
type emptyArchive struct{}

func (emptyArchive) Sections(bool, meeting.Filter) []meeting.Section { return nil }

func (emptyArchive) Find(meeting.PathComponents) (meeting.Meeting, bool) {
	return meeting.Meeting{}, false
}
