package web

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"waccamaw/internal/adapters/api"
	"waccamaw/internal/application/listutil"
	"waccamaw/internal/application/orchestrators"
	"waccamaw/internal/application/projections"
	"waccamaw/internal/domain/member"
	"waccamaw/internal/domain/portal"
)

// executiveGate checks the caller against a fresh status call. It writes the
// response and returns false when the caller may not continue.
func (s *Server) executiveGate(w http.ResponseWriter, r *http.Request) bool {
	sess, ok := requireSignedIn(w, r)
	if !ok {
		return false
	}
	isExec, err := projections.QueryIsExecutive(apiContext(r), s.api)
	switch {
	case errors.Is(err, api.ErrUnauthenticated):
		s.clearStale(r)
		s.dropStaleSession(w, r)
		return false
	case err != nil:
		slog.Warn("executive_check_failed", "error", err)
		isExec = false
	}
	if err := portal.CanEnter(portal.ScreenEmailDashboard, sess.HasActiveSession(), isExec); err != nil {
		slog.Info("auth_event", "event", "admin_denied", "email", sess.Email)
		s.renderDashboard(w, r, http.StatusForbidden, err.Error(), "", "")
		return false
	}
	return true
}

// renderAdmin renders the email dashboard for params.
func (s *Server) renderAdmin(w http.ResponseWriter, r *http.Request, params listutil.ListParams, notice string) {
	atRisk, err := projections.QueryGetAtRiskMembers(apiContext(r), projections.GetAtRiskMembersQuery{
		IsExecutive: true,
		Params:      params,
		Now:         s.now(),
	}, projections.GetAtRiskMembersDeps{API: s.api, PageSize: s.cfg.Portal.AtRiskPageSize})
	if err != nil {
		internalError(w, err)
		return
	}
	atRisk.Notice = notice
	view := s.newPortalView(portal.ScreenEmailDashboard)
	view.AtRisk = atRisk
	s.renderPortal(w, r, http.StatusOK, view)
}

// handleAdmin shows the at-risk members table.
func (s *Server) handleAdmin(w http.ResponseWriter, r *http.Request) {
	if !s.executiveGate(w, r) {
		return
	}
	params := listutil.ParseListParams(r.URL.Query(), projections.AtRiskSortColumns, projections.AtRiskFilterKeys)
	s.renderAdmin(w, r, params, "")
}

// handleAtRiskCSV downloads the full at-risk list.
func (s *Server) handleAtRiskCSV(w http.ResponseWriter, r *http.Request) {
	if !s.executiveGate(w, r) {
		return
	}
	now := s.now()
	list, err := projections.QueryAtRiskExport(apiContext(r), true, now, s.api)
	if err != nil {
		slog.Warn("at_risk_export_failed", "error", err)
		http.Error(w, projections.MsgLoadMembersFailed+": "+apiMessage(err, "the member list could not be loaded"), http.StatusBadGateway)
		return
	}
	if len(list) == 0 {
		http.Error(w, projections.MsgNothingToExport, http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", member.CSVFilename(now)))
	w.Header().Set("Cache-Control", "no-store")
	if err := member.WriteCSV(w, list); err != nil {
		slog.Error("at_risk_export_write_failed", "error", err)
	}
}

// handleSendReminders emails the at-risk members in the current risk filter.
func (s *Server) handleSendReminders(w http.ResponseWriter, r *http.Request) {
	if !s.executiveGate(w, r) {
		return
	}
	risk := r.FormValue("risk")
	res, err := orchestrators.ExecuteSendRenewalReminders(apiContext(r), orchestrators.SendRenewalRemindersInput{
		IsExecutive: true,
		Risk:        risk,
		PortalURL:   s.absoluteURL("/members/"),
	}, orchestrators.SendRenewalRemindersDeps{API: s.api, Sender: s.email, Now: s.now})

	notice := fmt.Sprintf("Sent %d renewal reminders (%d skipped without an email).", res.Sent, res.Skipped)
	if err != nil {
		notice = fmt.Sprintf("Reminder run stopped after %d emails: %s", res.Sent, apiMessage(err, "delivery failed"))
	}
	q := url.Values{}
	if risk != "" {
		q.Set("risk", risk)
	}
	params := listutil.ParseListParams(q, projections.AtRiskSortColumns, projections.AtRiskFilterKeys)
	s.renderAdmin(w, r, params, notice)
}

// absoluteURL builds a link for emails and feeds from the configured public
// URL. The request Host is client-supplied and never used.
func (s *Server) absoluteURL(path string) string {
	return strings.TrimRight(s.cfg.PublicURL, "/") + path
}
