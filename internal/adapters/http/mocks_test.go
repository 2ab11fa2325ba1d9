package web

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/html"

	"waccamaw/internal/adapters/api"
	"waccamaw/internal/adapters/email"
	"waccamaw/internal/adapters/http/middleware"
	"waccamaw/internal/config"
	"waccamaw/internal/domain/meeting"
	"waccamaw/internal/domain/member"
	"waccamaw/internal/domain/session"
)

var testNow = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

// mockAPI implements API for handler tests.
type mockAPI struct {
	mu sync.Mutex

	list     api.MeetingList
	listErr  error
	details  map[string]meeting.Meeting // by id
	status   member.Status
	statErr  error
	roster   []member.Record
	reqErr   error
	verify   api.VerifyResult
	verErr   error
	updErr   error
	upErr    error
	photo    []byte
	tokens   []string
	requests []string
	updates  []api.UpdateRequest
	uploads  int
}

func (m *mockAPI) seen(ctx context.Context) {
	m.mu.Lock()
	m.tokens = append(m.tokens, api.TokenFrom(ctx))
	m.mu.Unlock()
}

func (m *mockAPI) GetMeetings(ctx context.Context, _ api.MeetingFilters) (api.MeetingList, error) {
	m.seen(ctx)
	if m.listErr != nil {
		return api.MeetingList{}, m.listErr
	}
	list := m.list
	list.Authenticated = list.Authenticated && api.TokenFrom(ctx) != ""
	return list, nil
}

func (m *mockAPI) GetMeetingByID(ctx context.Context, id string) (api.MeetingDetail, error) {
	m.seen(ctx)
	if mt, ok := m.details[id]; ok {
		return api.MeetingDetail{Success: true, Meeting: &mt}, nil
	}
	return api.MeetingDetail{}, &api.Error{Status: http.StatusNotFound, Message: "Meeting not found"}
}

func (m *mockAPI) GetMeeting(ctx context.Context, typ, year, month, day string) (api.MeetingDetail, error) {
	m.seen(ctx)
	for _, mt := range m.details {
		p := mt.PathComponents
		if p.Type == typ && p.Year == year && p.Month == month && p.Day == day {
			return api.MeetingDetail{Success: true, Meeting: &mt}, nil
		}
	}
	return api.MeetingDetail{Success: false}, nil
}

func (m *mockAPI) GetMemberStatus(ctx context.Context) (member.Status, error) {
	m.seen(ctx)
	return m.status, m.statErr
}

func (m *mockAPI) GetAdminMemberList(ctx context.Context) ([]member.Record, error) {
	m.seen(ctx)
	return m.roster, nil
}

func (m *mockAPI) GetMemberPhoto(ctx context.Context, itemID string) (api.Photo, error) {
	m.seen(ctx)
	return api.Photo{
		Body:          io.NopCloser(bytes.NewReader(m.photo)),
		ContentType:   "image/jpeg",
		ContentLength: int64(len(m.photo)),
	}, nil
}

func (m *mockAPI) RequestUpdate(ctx context.Context, email string) error {
	m.mu.Lock()
	m.requests = append(m.requests, email)
	m.mu.Unlock()
	return m.reqErr
}

func (m *mockAPI) VerifyToken(ctx context.Context, token string) (api.VerifyResult, error) {
	return m.verify, m.verErr
}

func (m *mockAPI) UpdateMember(ctx context.Context, req api.UpdateRequest) error {
	m.mu.Lock()
	m.updates = append(m.updates, req)
	m.mu.Unlock()
	return m.updErr
}

func (m *mockAPI) UploadPhoto(ctx context.Context, filename, contentType string, r io.Reader) error {
	m.mu.Lock()
	m.uploads++
	m.mu.Unlock()
	_, _ = io.Copy(io.Discard, r)
	return m.upErr
}

// memSessions is an in-memory session store.
type memSessions struct {
	mu   sync.Mutex
	rows map[string]session.Session
}

func newMemSessions() *memSessions {
	return &memSessions{rows: make(map[string]session.Session)}
}

func (m *memSessions) Create(ctx context.Context) (session.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := session.Session{ID: uuid.NewString(), CreatedAt: testNow, UpdatedAt: testNow}
	m.rows[s.ID] = s
	return s, nil
}

func (m *memSessions) Get(ctx context.Context, id string) (session.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.rows[id]
	if !ok {
		return session.Session{}, session.ErrNotFound
	}
	return s, nil
}

func (m *memSessions) Save(ctx context.Context, s session.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[s.ID]; !ok {
		return session.ErrNotFound
	}
	m.rows[s.ID] = s
	return nil
}

func (m *memSessions) Clear(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.rows[id]
	if !ok {
		return session.ErrNotFound
	}
	s.Clear()
	m.rows[id] = s
	return nil
}

func (m *memSessions) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, id)
	return nil
}

func (m *memSessions) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	return 0, nil
}

// signedIn stores an active session and returns its id.
func (m *memSessions) signedIn(t *testing.T) string {
	t.Helper()
	s, _ := m.Create(context.Background())
	s.SessionToken = "tok-123"
	s.Email = "ann@example.com"
	s.MemberData = &member.Profile{Name: "Ann Lee", Email: "ann@example.com"}
	if err := m.Save(context.Background(), s); err != nil {
		t.Fatalf("save session: %v", err)
	}
	return s.ID
}

// fixtureMeetings are two 2024 meetings (one members-only) and one 2023 meeting.
func fixtureMeetings() []meeting.Meeting {
	return []meeting.Meeting{
		{ID: "m1", Title: "Open Meeting", Date: "2024-03-01T18:00:00Z", Type: meeting.TypeOpen, Visibility: meeting.VisibilityPublic,
			Duration: 90, HasNotes: true, Content: &meeting.Content{Notes: "# Agenda\n\n- Budget"},
			PathComponents: meeting.PathComponents{Type: "open", Year: "2024", Month: "03", Day: "01"}},
		{ID: "m2", Title: "Executive Session", Date: "2024-05-10T18:00:00Z", Type: meeting.TypeExecutive, Visibility: meeting.VisibilityMembersOnly,
			HasNotes: true, Content: &meeting.Content{Notes: "Confidential"},
			PathComponents: meeting.PathComponents{Type: "executive", Year: "2024", Month: "05", Day: "10"}},
		{ID: "m3", Title: "General Assembly", Date: "2023-11-04", Type: meeting.TypeGeneral, Visibility: meeting.VisibilityPublic,
			PathComponents: meeting.PathComponents{Type: "general", Year: "2023", Month: "11", Day: "04"}},
	}
}

type testEnv struct {
	api      *mockAPI
	sessions *memSessions
	email    *email.NoopSender
	cfg      *config.Config
	handler  http.Handler
	cookies  map[string]*http.Cookie
}

// newTestEnv builds a development server over mocks. mutate may adjust the
// config before the server is built.
func newTestEnv(t *testing.T, mutate func(*config.Config)) *testEnv {
	t.Helper()
	cfg := config.Preset(config.Development)
	cfg.StaticDir = t.TempDir()
	cfg.CSRFKey = strings.Repeat("ab", 32)
	if mutate != nil {
		mutate(cfg)
	}

	details := make(map[string]meeting.Meeting)
	for _, m := range fixtureMeetings() {
		details[m.ID] = m
	}
	env := &testEnv{
		api: &mockAPI{
			list:    api.MeetingList{Success: true, Meetings: fixtureMeetings(), Authenticated: true},
			details: details,
		},
		sessions: newMemSessions(),
		email:    email.NewNoopSender(),
		cfg:      cfg,
		cookies:  make(map[string]*http.Cookie),
	}
	srv, err := New(Deps{
		Config:   cfg,
		API:      env.api,
		Sessions: env.sessions,
		Email:    env.email,
		Now:      func() time.Time { return testNow },
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	env.handler = srv.Handler()
	return env
}

// signIn stores an active session and attaches its cookie.
func (e *testEnv) signIn(t *testing.T) string {
	id := e.sessions.signedIn(t)
	e.cookies[middleware.SessionCookieName] = &http.Cookie{Name: middleware.SessionCookieName, Value: id}
	return id
}

// do sends req with the env's cookies and remembers the response cookies.
func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	for _, c := range e.cookies {
		req.AddCookie(c)
	}
	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)
	for _, c := range rr.Result().Cookies() {
		if c.MaxAge < 0 {
			delete(e.cookies, c.Name)
			continue
		}
		e.cookies[c.Name] = &http.Cookie{Name: c.Name, Value: c.Value}
	}
	return rr
}

func (e *testEnv) get(t *testing.T, target string) *httptest.ResponseRecorder {
	t.Helper()
	return e.do(httptest.NewRequest(http.MethodGet, target, nil))
}

// csrfToken loads a page and returns the token from its meta tag.
func (e *testEnv) csrfToken(t *testing.T) string {
	t.Helper()
	rr := e.get(t, "/meetings/")
	doc := parseHTML(t, rr.Body.String())
	for _, n := range findAll(doc, func(n *html.Node) bool { return n.Data == "meta" && attr(n, "name") == "csrf-token" }) {
		return attr(n, "content")
	}
	t.Fatal("no csrf-token meta tag")
	return ""
}

// postForm submits form with a valid CSRF token.
func (e *testEnv) postForm(t *testing.T, target string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	token := e.csrfToken(t)
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-CSRF-Token", token)
	return e.do(req)
}

// --- HTML helpers ---

func parseHTML(t *testing.T, body string) *html.Node {
	t.Helper()
	doc, err := html.Parse(strings.NewReader(body))
	if err != nil {
		t.Fatalf("parse html: %v", err)
	}
	return doc
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func findAll(n *html.Node, match func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && match(n) {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return out
}

func byClass(class string) func(*html.Node) bool {
	return func(n *html.Node) bool { return hasClass(n, class) }
}

func byID(id string) func(*html.Node) bool {
	return func(n *html.Node) bool { return attr(n, "id") == id }
}

func textOf(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(b.String()), " ")
}

// screenOf returns the data-screen attribute of the portal section.
func screenOf(t *testing.T, body string) string {
	t.Helper()
	for _, n := range findAll(parseHTML(t, body), byClass("portal")) {
		return attr(n, "data-screen")
	}
	return ""
}
