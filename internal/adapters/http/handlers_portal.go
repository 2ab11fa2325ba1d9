package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"waccamaw/internal/adapters/api"
	"waccamaw/internal/adapters/http/middleware"
	"waccamaw/internal/application/orchestrators"
	"waccamaw/internal/application/projections"
	"waccamaw/internal/config"
	"waccamaw/internal/domain/member"
	"waccamaw/internal/domain/portal"
	"waccamaw/internal/domain/session"
)

// Portal messages shown for remote failures without a server message.
const (
	msgRequestUpdateFailed = "Failed to send verification email. Please try again."
	msgUpdateFailed        = "Failed to update your information. Please try again."
)

// PortalView is the member portal page: one screen plus that screen's data.
type PortalView struct {
	Screen portal.Screen
	Alert  string
	Notice string
	Email  string

	Dashboard  projections.MemberDashboardView
	Form       ProfileForm
	PhotoError string
	PhotoTypes string // accept attribute of the upload input
	AtRisk     projections.AtRiskView

	StorageKeys config.StorageKeys // dev only
}

// ProfileForm is the member-info form.
type ProfileForm struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Address   string
	City      string
	State     string
	Zip       string
}

// profileFormFrom pre-fills the form from cached member data.
// POST: State is never empty
func profileFormFrom(sess session.Session) ProfileForm {
	var p member.Profile
	if sess.MemberData != nil {
		p = *sess.MemberData
	}
	first, last := p.SplitName()
	form := ProfileForm{
		FirstName: first,
		LastName:  last,
		Email:     p.Email,
		Phone:     p.Phone,
		Address:   p.Address,
		City:      p.City,
		State:     p.State,
		Zip:       p.Zip,
	}
	if form.Email == "" {
		form.Email = sess.Email
	}
	if form.State == "" {
		form.State = member.DefaultState
	}
	return form
}

// currentSession returns the session loaded by the auth middleware.
func currentSession(r *http.Request) (session.Session, bool) {
	return middleware.SessionFromContext(r.Context())
}

// apiContext returns the request context carrying the caller's bearer token.
func apiContext(r *http.Request) context.Context {
	sess, _ := currentSession(r)
	return api.WithToken(r.Context(), sess.SessionToken)
}

// ensureSession returns the caller's session, creating one and setting the
// cookie when the request carries none.
func (s *Server) ensureSession(w http.ResponseWriter, r *http.Request) (session.Session, *http.Request, error) {
	if sess, ok := currentSession(r); ok {
		return sess, r, nil
	}
	sess, err := s.sessions.Create(r.Context())
	if err != nil {
		return session.Session{}, r, err
	}
	middleware.SetSessionCookie(w, sess.ID, s.cookie)
	return sess, r.WithContext(middleware.ContextWithSession(r.Context(), sess)), nil
}

// apiMessage returns the server-provided message of an API error, or fallback
// for transport and internal failures.
func apiMessage(err error, fallback string) string {
	var apiErr *api.Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}

func (s *Server) newPortalView(screen portal.Screen) PortalView {
	v := PortalView{
		Screen:     screen,
		PhotoTypes: strings.Join(s.cfg.Features.PhotoAllowedTypes, ","),
	}
	if s.cfg.IsDevelopment() {
		v.StorageKeys = s.cfg.StorageKeys
	}
	return v
}

func (s *Server) renderPortal(w http.ResponseWriter, r *http.Request, status int, view PortalView) {
	title := "Member Portal"
	if view.Screen == portal.ScreenEmailDashboard {
		title = "Member Outreach"
	}
	s.render(w, r, status, "portal.html", title, "members", view)
}

// renderRequest shows the request screen, pre-filled with any remembered email.
func (s *Server) renderRequest(w http.ResponseWriter, r *http.Request, status int, alert string) {
	view := s.newPortalView(portal.ScreenRequest)
	view.Alert = alert
	if sess, ok := currentSession(r); ok {
		view.Email = sess.Email
	}
	s.renderPortal(w, r, status, view)
}

// dropStaleSession renders the request screen after the API rejected the
// session token. The session values are already cleared.
func (s *Server) dropStaleSession(w http.ResponseWriter, r *http.Request) {
	sess, _ := currentSession(r)
	sess.Clear()
	r = r.WithContext(middleware.ContextWithSession(r.Context(), sess))
	s.renderRequest(w, r, http.StatusOK, "")
}

// clearStale clears a session whose token the API rejected.
func (s *Server) clearStale(r *http.Request) {
	sess, _ := currentSession(r)
	slog.Info("auth_event", "event", "session_stale", "email", sess.Email)
	if err := s.sessions.Clear(r.Context(), sess.ID); err != nil && !errors.Is(err, session.ErrNotFound) {
		slog.Error("session_clear_failed", "error", err)
	}
}

// handlePortal boots the portal: verify a token, show the dashboard, or ask
// for an email address.
func (s *Server) handlePortal(w http.ResponseWriter, r *http.Request) {
	sess, _ := currentSession(r)
	token := r.URL.Query().Get("token")

	switch portal.Boot(token, sess.HasActiveSession()) {
	case portal.BootVerify:
		s.verify(w, r, token)
	case portal.BootDashboard:
		s.renderDashboard(w, r, http.StatusOK, "", "", "")
	default:
		s.renderRequest(w, r, http.StatusOK, "")
	}
}

// verify exchanges token for a session and redirects to a clean URL.
func (s *Server) verify(w http.ResponseWriter, r *http.Request, token string) {
	_, carried := currentSession(r)
	sess, r, err := s.ensureSession(w, r)
	if err != nil {
		internalError(w, err)
		return
	}
	verified, err := orchestrators.ExecuteVerifyToken(r.Context(), orchestrators.VerifyTokenInput{
		Session: sess,
		Token:   token,
	}, orchestrators.VerifyTokenDeps{API: s.api, Sessions: s.sessions})
	if errors.Is(err, orchestrators.ErrVerifyFailed) {
		s.renderRequest(w, r, http.StatusOK, portal.MsgVerifyFailed)
		return
	}
	if err != nil {
		internalError(w, err)
		return
	}
	if carried {
		if err := s.rotateSession(w, r, verified); err != nil {
			internalError(w, err)
			return
		}
	}
	http.Redirect(w, r, "/members/", http.StatusSeeOther)
}

// rotateSession moves the values of sess onto a fresh id, deletes the old
// row and reissues the cookie.
// POST: the id the client presented before sign-in no longer resolves
func (s *Server) rotateSession(w http.ResponseWriter, r *http.Request, sess session.Session) error {
	fresh, err := s.sessions.Create(r.Context())
	if err != nil {
		return err
	}
	oldID := sess.ID
	sess.ID, sess.CreatedAt = fresh.ID, fresh.CreatedAt
	if err := s.sessions.Save(r.Context(), sess); err != nil {
		return err
	}
	if err := s.sessions.Delete(r.Context(), oldID); err != nil {
		return err
	}
	middleware.SetSessionCookie(w, fresh.ID, s.cookie)
	slog.Info("auth_event", "event", "session_rotated")
	return nil
}

// handleVerifyRedirect maps /verify/{token} onto the query-token boot.
func (s *Server) handleVerifyRedirect(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	http.Redirect(w, r, "/members/?token="+url.QueryEscape(token), http.StatusFound)
}

// renderDashboard fetches a fresh status and renders the dashboard screen.
func (s *Server) renderDashboard(w http.ResponseWriter, r *http.Request, status int, alert, notice, photoErr string) {
	sess, _ := currentSession(r)
	dash, err := projections.QueryGetMemberDashboard(apiContext(r), projections.GetMemberDashboardQuery{
		Session: sess,
		Now:     s.now(),
	}, projections.GetMemberDashboardDeps{
		API:                  s.api,
		Photos:               s.api,
		Focus:                s.focus,
		Sessions:             s.sessions,
		PhotoUpload:          s.cfg.Features.PhotoUpload,
		WarningThresholdDays: s.cfg.Portal.WarningThresholdDays,
		Dev:                  s.cfg.IsDevelopment(),
	})
	switch {
	case errors.Is(err, api.ErrUnauthenticated):
		s.dropStaleSession(w, r)
		return
	case errors.Is(err, portal.ErrNotSignedIn):
		s.renderRequest(w, r, http.StatusOK, "")
		return
	case err != nil:
		internalError(w, err)
		return
	}

	view := s.newPortalView(portal.ScreenDashboard)
	view.Dashboard = dash
	view.Alert = alert
	view.Notice = notice
	view.PhotoError = photoErr
	view.Email = sess.Email
	s.renderPortal(w, r, status, view)
}

// handleRequestUpdate asks the API to email a verification link.
func (s *Server) handleRequestUpdate(w http.ResponseWriter, r *http.Request) {
	sess, r, err := s.ensureSession(w, r)
	if err != nil {
		internalError(w, err)
		return
	}
	email := r.FormValue("email")
	res, err := orchestrators.ExecuteRequestUpdate(r.Context(), orchestrators.RequestUpdateInput{
		Session: sess,
		Email:   email,
	}, orchestrators.RequestUpdateDeps{
		API:      s.api,
		Sessions: s.sessions,
		FailOpen: s.cfg.Portal.FailOpenRequestUpdate,
	})
	if err != nil {
		view := s.newPortalView(portal.ScreenRequest)
		view.Email = strings.TrimSpace(email)
		if errors.Is(err, orchestrators.ErrEmailRequired) || errors.Is(err, orchestrators.ErrEmailInvalid) {
			view.Alert = err.Error()
			s.renderPortal(w, r, http.StatusBadRequest, view)
			return
		}
		slog.Warn("request_update_rejected", "error", err)
		view.Alert = apiMessage(err, msgRequestUpdateFailed)
		s.renderPortal(w, r, http.StatusBadGateway, view)
		return
	}

	view := s.newPortalView(portal.ScreenVerificationSent)
	view.Email = res.Email
	s.renderPortal(w, r, http.StatusOK, view)
}

// handleLogout clears the session values and the cookie.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess, _ := currentSession(r)
	if err := orchestrators.ExecuteLogout(r.Context(), sess.ID, orchestrators.LogoutDeps{Sessions: s.sessions}); err != nil {
		internalError(w, err)
		return
	}
	middleware.ClearSessionCookie(w, s.cookie)
	http.Redirect(w, r, "/members/", http.StatusSeeOther)
}

// requireSignedIn redirects to the portal when the caller has no active session.
func requireSignedIn(w http.ResponseWriter, r *http.Request) (session.Session, bool) {
	sess, _ := currentSession(r)
	if !sess.HasActiveSession() {
		http.Redirect(w, r, "/members/", http.StatusSeeOther)
		return session.Session{}, false
	}
	return sess, true
}

// handleProfileForm shows the member-info screen.
func (s *Server) handleProfileForm(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSignedIn(w, r)
	if !ok {
		return
	}
	view := s.newPortalView(portal.ScreenMemberInfo)
	view.Form = profileFormFrom(sess)
	s.renderPortal(w, r, http.StatusOK, view)
}

// handleProfileSubmit sends the member-info form to the API.
func (s *Server) handleProfileSubmit(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSignedIn(w, r)
	if !ok {
		return
	}
	form := ProfileForm{
		FirstName: r.FormValue("firstName"),
		LastName:  r.FormValue("lastName"),
		Email:     r.FormValue("email"),
		Phone:     r.FormValue("phone"),
		Address:   r.FormValue("address"),
		City:      r.FormValue("city"),
		State:     r.FormValue("state"),
		Zip:       r.FormValue("zip"),
	}
	res, err := orchestrators.ExecuteUpdateMember(apiContext(r), orchestrators.UpdateMemberInput{
		Session:   sess,
		FirstName: form.FirstName,
		LastName:  form.LastName,
		Email:     form.Email,
		Phone:     form.Phone,
		Address:   form.Address,
		City:      form.City,
		State:     form.State,
		Zip:       form.Zip,
	}, orchestrators.UpdateMemberDeps{
		API:      s.api,
		Sessions: s.sessions,
		FailOpen: s.cfg.Portal.FailOpenRequestUpdate,
	})

	view := s.newPortalView(portal.ScreenMemberInfo)
	view.Form = form
	switch {
	case errors.Is(err, api.ErrUnauthenticated):
		s.clearStale(r)
		s.dropStaleSession(w, r)
	case errors.Is(err, orchestrators.ErrNameRequired):
		view.Alert = err.Error()
		s.renderPortal(w, r, http.StatusBadRequest, view)
	case err != nil:
		slog.Warn("update_member_rejected", "error", err)
		view.Alert = apiMessage(err, msgUpdateFailed)
		s.renderPortal(w, r, http.StatusBadGateway, view)
	default:
		r = r.WithContext(middleware.ContextWithSession(r.Context(), res.Session))
		view.Form = profileFormFrom(res.Session)
		view.Notice = portal.MsgProfileUpdated
		s.renderPortal(w, r, http.StatusOK, view)
	}
}
