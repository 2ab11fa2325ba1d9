package browser_test

import (
	"database/sql"
	"encoding/json"
	"log"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/playwright-community/playwright-go"

	"waccamaw/internal/adapters/api"
	web "waccamaw/internal/adapters/http"
	"waccamaw/internal/adapters/storage"
	sessionStore "waccamaw/internal/adapters/storage/session"
	"waccamaw/internal/config"
	"waccamaw/internal/domain/meeting"
)

// testApp holds the running portal, its fake remote API and Playwright handles.
type testApp struct {
	BaseURL string
	DB      *sql.DB
	Server  *http.Server
	API     *httptest.Server
	PW      *playwright.Playwright
	Browser playwright.Browser
}

// fixtureMeeting has every tab: notes, transcript, chat and recording.
var fixtureMeeting = meeting.Meeting{
	ID:            "open-2024-03-01",
	Title:         "Open Meeting",
	Date:          "2024-03-01T18:00:00-05:00",
	Type:          meeting.TypeOpen,
	Visibility:    meeting.VisibilityPublic,
	Duration:      90,
	HasRecording:  true,
	HasTranscript: true,
	HasNotes:      true,
	HasChat:       true,
	Content: &meeting.Content{
		Notes:      "# Agenda\n\n- Budget",
		Transcript: "Chief: Welcome everyone.",
		Chat:       "10:01:05\tAnn Lee:\tHello everyone",
	},
	PathComponents: meeting.PathComponents{Type: "open", Year: "2024", Month: "03", Day: "01"},
}

// fakeMeetingsAPI answers the meetings-service endpoints from one fixture.
func fakeMeetingsAPI() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/meetings", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"success":       true,
			"meetings":      []meeting.Meeting{fixtureMeeting},
			"statistics":    map[string]int{"total": 1},
			"authenticated": false,
		})
	})
	mux.HandleFunc("/api/meetings/", func(w http.ResponseWriter, r *http.Request) {
		rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/meetings/"), "/")
		if rest == fixtureMeeting.ID || rest == "open/2024/03/01" {
			writeJSON(w, map[string]any{"success": true, "meeting": fixtureMeeting})
			return
		}
		w.WriteHeader(http.StatusNotFound)
		writeJSON(w, map[string]any{"success": false, "error": "Meeting not found"})
	})
	return mux
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// newTestApp wires the portal against a fake API and a temp SQLite session
// store, starts it on a free port and launches headless Chromium. The test
// is skipped when Playwright browsers are not installed.
func newTestApp(t *testing.T) *testApp {
	t.Helper()

	fake := httptest.NewServer(fakeMeetingsAPI())
	t.Cleanup(fake.Close)

	db, err := storage.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test DB: %v", err)
	}

	cfg := config.Preset(config.Development)
	cfg.APIBaseURL = fake.URL
	cfg.StaticDir = filepath.Join(findProjectRoot(t), "static")
	cfg.CSRFKey = strings.Repeat("cd", 32)

	srv, err := web.New(web.Deps{
		Config:   cfg,
		API:      api.New(cfg, fake.Client()),
		Sessions: sessionStore.NewSQLiteStore(db, cfg.Portal.SessionTTL),
	})
	if err != nil {
		t.Fatalf("failed to build server: %v", err)
	}

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to find free port: %v", err)
	}
	baseURL := "http://" + listener.Addr().String()
	httpServer := &http.Server{Handler: srv.Handler(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := httpServer.Serve(listener); err != http.ErrServerClosed {
			log.Printf("test server error: %v", err)
		}
	}()

	pw, err := playwright.Run()
	if err != nil {
		httpServer.Close()
		db.Close()
		t.Skipf("playwright unavailable: %v", err)
	}
	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(true),
	})
	if err != nil {
		pw.Stop()
		httpServer.Close()
		db.Close()
		t.Skipf("chromium unavailable: %v", err)
	}

	app := &testApp{
		BaseURL: baseURL,
		DB:      db,
		Server:  httpServer,
		API:     fake,
		PW:      pw,
		Browser: browser,
	}
	t.Cleanup(func() {
		browser.Close()
		pw.Stop()
		httpServer.Close()
		db.Close()
	})
	return app
}

// newPage creates a new browser page (tab).
func (a *testApp) newPage(t *testing.T) playwright.Page {
	t.Helper()
	page, err := a.Browser.NewPage()
	if err != nil {
		t.Fatalf("failed to create page: %v", err)
	}
	t.Cleanup(func() { page.Close() })
	return page
}

// visit navigates and fails the test on a non-200 response.
func (a *testApp) visit(t *testing.T, page playwright.Page, path string) {
	t.Helper()
	resp, err := page.Goto(a.BaseURL + path)
	if err != nil {
		t.Fatalf("failed to navigate to %s: %v", path, err)
	}
	if resp.Status() != http.StatusOK {
		t.Fatalf("GET %s = %d, want 200", path, resp.Status())
	}
}

// findProjectRoot walks up from the working directory to find the project root (contains go.mod).
func findProjectRoot(t *testing.T) string {
	t.Helper()
	dir, err := os.Getwd()
	if err != nil {
		t.Fatalf("failed to get working directory: %v", err)
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatalf("could not find project root (go.mod) from working directory")
		}
		dir = parent
	}
}
