package orchestrators

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"waccamaw/internal/adapters/api"
	"waccamaw/internal/config"
	"waccamaw/internal/domain/member"
	"waccamaw/internal/domain/session"
)

// --- Mocks ---

type mockSessions struct {
	saved   []session.Session
	cleared []string
	saveErr error
	clrErr  error
	before  time.Time
	purged  int64
}

// Save records the saved session.
func (m *mockSessions) Save(_ context.Context, s session.Session) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saved = append(m.saved, s)
	return nil
}

// Clear records the cleared session id.
func (m *mockSessions) Clear(_ context.Context, id string) error {
	if m.clrErr != nil {
		return m.clrErr
	}
	m.cleared = append(m.cleared, id)
	return nil
}

// DeleteExpired records the cutoff.
func (m *mockSessions) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	m.before = before
	return m.purged, nil
}

func (m *mockSessions) last() session.Session {
	if len(m.saved) == 0 {
		return session.Session{}
	}
	return m.saved[len(m.saved)-1]
}

type mockMemberAPI struct {
	err       error
	requested []string
	verify    api.VerifyResult
	updated   []api.UpdateRequest
	uploaded  []byte
	uploadCT  string
}

// RequestUpdate records the email.
func (m *mockMemberAPI) RequestUpdate(_ context.Context, email string) error {
	m.requested = append(m.requested, email)
	return m.err
}

// VerifyToken returns the canned result.
func (m *mockMemberAPI) VerifyToken(_ context.Context, _ string) (api.VerifyResult, error) {
	return m.verify, m.err
}

// UpdateMember records the request.
func (m *mockMemberAPI) UpdateMember(_ context.Context, req api.UpdateRequest) error {
	m.updated = append(m.updated, req)
	return m.err
}

// UploadPhoto buffers the body.
func (m *mockMemberAPI) UploadPhoto(_ context.Context, _, contentType string, r io.Reader) error {
	if m.err != nil {
		return m.err
	}
	b, err := io.ReadAll(r)
	m.uploaded, m.uploadCT = b, contentType
	return err
}

type mockFocus struct{ keys []string }

// Invalidate records the key.
func (m *mockFocus) Invalidate(key string) { m.keys = append(m.keys, key) }

func activeSession() session.Session {
	return session.Session{ID: "sid", SessionToken: "tok", MemberData: &member.Profile{Name: "Ann Lee"}}
}

// --- Request update ---

func TestExecuteRequestUpdate(t *testing.T) {
	serverErr := &api.Error{Status: 500, Message: "HTTP error! status: 500"}
	tests := []struct {
		name           string
		email          string
		apiErr         error
		failOpen       bool
		wantErr        error
		wantFailedOpen bool
		wantSaved      bool
	}{
		{"success", "ann@example.com", nil, false, nil, false, true},
		{"blank", "  ", nil, true, ErrEmailRequired, false, false},
		{"invalid", "not-an-email", nil, true, ErrEmailInvalid, false, false},
		{"server error fails open", "ann@example.com", serverErr, true, nil, true, true},
		{"server error fails closed", "ann@example.com", serverErr, false, serverErr, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &mockSessions{}
			client := &mockMemberAPI{err: tt.apiErr}
			res, err := ExecuteRequestUpdate(context.Background(),
				RequestUpdateInput{Session: session.Session{ID: "sid"}, Email: tt.email},
				RequestUpdateDeps{API: client, Sessions: store, FailOpen: tt.failOpen})
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if res.FailedOpen != tt.wantFailedOpen {
				t.Errorf("FailedOpen = %v", res.FailedOpen)
			}
			if (len(store.saved) == 1) != tt.wantSaved {
				t.Fatalf("saved %d sessions, want saved=%v", len(store.saved), tt.wantSaved)
			}
			if tt.wantSaved && store.last().Email != "ann@example.com" {
				t.Errorf("session email = %q", store.last().Email)
			}
		})
	}
}

// --- Verify token ---

func TestExecuteVerifyToken_Success(t *testing.T) {
	store := &mockSessions{}
	client := &mockMemberAPI{verify: api.VerifyResult{
		SessionToken: "session-abc",
		MemberData:   member.Profile{Name: "Ann Lee", Email: "ann@example.com"},
	}}
	sess, err := ExecuteVerifyToken(context.Background(),
		VerifyTokenInput{Session: session.Session{ID: "sid"}, Token: "t1"},
		VerifyTokenDeps{API: client, Sessions: store})
	if err != nil {
		t.Fatalf("ExecuteVerifyToken: %v", err)
	}
	if !sess.HasActiveSession() || sess.SessionToken != "session-abc" || sess.Email != "ann@example.com" {
		t.Errorf("session = %+v", sess)
	}
	if !store.last().HasActiveSession() {
		t.Error("verified session not saved")
	}
}

func TestExecuteVerifyToken_Failures(t *testing.T) {
	tests := []struct {
		name   string
		token  string
		apiErr error
	}{
		{"empty token", "", nil},
		{"rejected", "bad", &api.Error{Status: 400, Message: "Invalid or expired token"}},
		{"transport", "t1", errors.New("dial tcp: connection refused")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &mockSessions{}
			_, err := ExecuteVerifyToken(context.Background(),
				VerifyTokenInput{Session: session.Session{ID: "sid"}, Token: tt.token},
				VerifyTokenDeps{API: &mockMemberAPI{err: tt.apiErr}, Sessions: store})
			if !errors.Is(err, ErrVerifyFailed) {
				t.Errorf("err = %v, want ErrVerifyFailed", err)
			}
			if len(store.saved) != 0 {
				t.Error("failed verification must not save")
			}
		})
	}
}

// --- Logout and purge ---

func TestExecuteLogout(t *testing.T) {
	store := &mockSessions{}
	if err := ExecuteLogout(context.Background(), "sid", LogoutDeps{Sessions: store}); err != nil {
		t.Fatalf("ExecuteLogout: %v", err)
	}
	if len(store.cleared) != 1 || store.cleared[0] != "sid" {
		t.Errorf("cleared = %v", store.cleared)
	}
	if err := ExecuteLogout(context.Background(), "", LogoutDeps{Sessions: store}); err != nil || len(store.cleared) != 1 {
		t.Error("empty id should be a no-op")
	}
	store.clrErr = session.ErrNotFound
	if err := ExecuteLogout(context.Background(), "gone", LogoutDeps{Sessions: store}); err != nil {
		t.Errorf("missing session should not fail: %v", err)
	}
}

func TestExecutePurgeSessions(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store := &mockSessions{purged: 3}
	n, err := ExecutePurgeSessions(context.Background(), PurgeSessionsDeps{
		Sessions: store, TTL: 24 * time.Hour, Now: func() time.Time { return now },
	})
	if err != nil || n != 3 {
		t.Fatalf("purged %d, err %v", n, err)
	}
	if !store.before.Equal(now.Add(-24 * time.Hour)) {
		t.Errorf("cutoff = %v", store.before)
	}
	if n, _ := ExecutePurgeSessions(context.Background(), PurgeSessionsDeps{Sessions: store}); n != 0 {
		t.Error("zero TTL should purge nothing")
	}
}

// --- Update member ---

func TestExecuteUpdateMember(t *testing.T) {
	form := UpdateMemberInput{FirstName: " Ann ", LastName: "Lee", Email: "ann@new.example.com", City: "Aynor"}
	tests := []struct {
		name        string
		session     session.Session
		apiErr      error
		failOpen    bool
		wantErr     bool
		wantSaved   bool
		wantFailOpn bool
	}{
		{"success", activeSession(), nil, false, false, true, false},
		{"not signed in", session.Session{ID: "sid"}, nil, true, true, false, false},
		{"fails open", activeSession(), errors.New("HTTP error! status: 502"), true, false, true, true},
		{"fails closed", activeSession(), errors.New("HTTP error! status: 502"), false, true, false, false},
		{"stale token never fails open", activeSession(), &api.Error{Status: 401, Message: "expired"}, true, true, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := form
			in.Session = tt.session
			store := &mockSessions{}
			res, err := ExecuteUpdateMember(context.Background(), in,
				UpdateMemberDeps{API: &mockMemberAPI{err: tt.apiErr}, Sessions: store, FailOpen: tt.failOpen})
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if (len(store.saved) > 0) != tt.wantSaved {
				t.Fatalf("saved = %d", len(store.saved))
			}
			if !tt.wantSaved {
				return
			}
			if res.FailedOpen != tt.wantFailOpn {
				t.Errorf("FailedOpen = %v", res.FailedOpen)
			}
			got := store.last().MemberData
			if got.Name != "Ann Lee" || got.State != member.DefaultState || got.City != "Aynor" {
				t.Errorf("member data = %+v", got)
			}
			if store.last().Email != "ann@new.example.com" {
				t.Errorf("email = %q", store.last().Email)
			}
		})
	}
}

func TestExecuteUpdateMember_NameRequired(t *testing.T) {
	_, err := ExecuteUpdateMember(context.Background(),
		UpdateMemberInput{Session: activeSession(), FirstName: "Ann"},
		UpdateMemberDeps{API: &mockMemberAPI{}, Sessions: &mockSessions{}})
	if !errors.Is(err, ErrNameRequired) {
		t.Errorf("err = %v", err)
	}
}

// --- Upload photo ---

func TestExecuteUploadPhoto_Validation(t *testing.T) {
	features := config.Preset(config.Development).Features
	tests := []struct {
		name        string
		contentType string
		size        int64
		wantIs      error
		wantMsg     string
	}{
		{"wrong type", "application/pdf", 10, ErrPhotoType, "Invalid file type. Please upload: image/jpeg, image/png, image/gif, image/webp"},
		{"too large", "image/png", features.PhotoMaxSize + 1, ErrPhotoTooLarge, "File too large. Maximum size is 5MB."},
		{"empty", "image/png", 0, ErrPhotoMissing, ErrPhotoMissing.Error()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &mockMemberAPI{}
			err := ExecuteUploadPhoto(context.Background(), UploadPhotoInput{
				MemberID: "42", Filename: "me", ContentType: tt.contentType, Size: tt.size, File: strings.NewReader("x"),
			}, UploadPhotoDeps{API: client, Features: features})
			if !errors.Is(err, tt.wantIs) {
				t.Fatalf("err = %v, want %v", err, tt.wantIs)
			}
			if err.Error() != tt.wantMsg {
				t.Errorf("message = %q, want %q", err.Error(), tt.wantMsg)
			}
			if client.uploaded != nil {
				t.Error("rejected photo must not be forwarded")
			}
		})
	}
}

func TestExecuteUploadPhoto_Success(t *testing.T) {
	client := &mockMemberAPI{}
	focus := &mockFocus{}
	err := ExecuteUploadPhoto(context.Background(), UploadPhotoInput{
		MemberID: "42", Filename: "me.png", ContentType: "image/png", Size: 4, File: strings.NewReader("\x89PNG"),
	}, UploadPhotoDeps{API: client, Focus: focus, Features: config.Preset(config.Development).Features})
	if err != nil {
		t.Fatalf("ExecuteUploadPhoto: %v", err)
	}
	if string(client.uploaded) != "\x89PNG" || client.uploadCT != "image/png" {
		t.Errorf("uploaded %q as %q", client.uploaded, client.uploadCT)
	}
	if len(focus.keys) != 1 || focus.keys[0] != "member:42" {
		t.Errorf("invalidated = %v", focus.keys)
	}
}

func TestExecuteUploadPhoto_ServerError(t *testing.T) {
	focus := &mockFocus{}
	err := ExecuteUploadPhoto(context.Background(), UploadPhotoInput{
		MemberID: "42", Filename: "me.png", ContentType: "image/png", Size: 4, File: strings.NewReader("data"),
	}, UploadPhotoDeps{
		API:      &mockMemberAPI{err: &api.Error{Status: 400, Message: "Image too dark"}},
		Focus:    focus,
		Features: config.Preset(config.Development).Features,
	})
	if err == nil || err.Error() != "Image too dark" {
		t.Errorf("err = %v", err)
	}
	if len(focus.keys) != 0 {
		t.Error("failed upload must keep the focus memo")
	}
}

func TestExecuteUploadPhoto_Disabled(t *testing.T) {
	features := config.Preset(config.Development).Features
	features.PhotoUpload = false
	err := ExecuteUploadPhoto(context.Background(), UploadPhotoInput{Size: 1, File: strings.NewReader("x")},
		UploadPhotoDeps{API: &mockMemberAPI{}, Features: features})
	if !errors.Is(err, ErrPhotoDisabled) {
		t.Errorf("err = %v", err)
	}
}
