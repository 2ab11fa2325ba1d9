package projections

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"waccamaw/internal/adapters/api"
	"waccamaw/internal/domain/facefocus"
	"waccamaw/internal/domain/member"
	"waccamaw/internal/domain/portal"
	"waccamaw/internal/domain/session"
)

// SessionClearer drops the cached values of a session.
type SessionClearer interface {
	Clear(ctx context.Context, id string) error
}

// GetMemberDashboardQuery carries query parameters.
type GetMemberDashboardQuery struct {
	Session session.Session
	Now     time.Time
}

// MemberDashboardView is the dashboard screen.
type MemberDashboardView struct {
	Name        string
	Email       string
	StatusError string // the status call failed; fields show placeholders

	BadgeClass string
	BadgeText  string

	MemberSince       string
	LastActive        string
	LastActiveWarning string
	Expires           string
	ExpiresWarning    string
	Position          string
	Voter             string
	TribalID          string

	ShowPhoto     bool
	PhotoPosition string // CSS object-position
	PhotoUpload   bool
	IsExecutive   bool

	RawFields []member.RawField // dev only
}

// GetMemberDashboardDeps holds dependencies for GetMemberDashboard.
type GetMemberDashboardDeps struct {
	API                  StatusAPI
	Photos               PhotoAPI
	Focus                FocusFinder
	Sessions             SessionClearer
	PhotoUpload          bool
	WarningThresholdDays int
	Dev                  bool
}

// QueryGetMemberDashboard fetches a fresh status for the signed-in member.
// PRE: ctx carries the session token
// POST: returns api.ErrUnauthenticated after clearing a stale session
func QueryGetMemberDashboard(ctx context.Context, query GetMemberDashboardQuery, deps GetMemberDashboardDeps) (MemberDashboardView, error) {
	sess := query.Session
	if !sess.HasActiveSession() {
		return MemberDashboardView{}, portal.ErrNotSignedIn
	}

	view := MemberDashboardView{
		Name:        sess.DisplayName(),
		Email:       sess.Email,
		PhotoUpload: deps.PhotoUpload,
		BadgeText:   member.Status{}.BadgeText(),
		MemberSince: member.Placeholder,
		LastActive:  member.Placeholder,
		Expires:     member.Placeholder,
		Position:    member.Placeholder,
		Voter:       member.Placeholder,
		TribalID:    member.Placeholder,
	}

	status, err := deps.API.GetMemberStatus(ctx)
	if err != nil {
		if errors.Is(err, api.ErrUnauthenticated) {
			slog.Info("auth_event", "event", "session_stale", "email", sess.Email)
			if clearErr := deps.Sessions.Clear(ctx, sess.ID); clearErr != nil {
				return MemberDashboardView{}, clearErr
			}
			return MemberDashboardView{}, err
		}
		slog.Warn("member_status_failed", "error", err)
		view.StatusError = err.Error()
		return view, nil
	}

	threshold := status.Threshold()
	if status.WarningThresholdDays <= 0 && deps.WarningThresholdDays > 0 {
		threshold = deps.WarningThresholdDays
	}
	view.BadgeClass = status.BadgeClass()
	view.BadgeText = status.BadgeText()
	view.MemberSince = member.FormatDate(status.MemberSince)
	view.LastActive = member.FormatDate(status.LastActive)
	view.LastActiveWarning = member.DateWarning(status.LastActive, threshold, query.Now)
	view.Expires = member.FormatDate(status.Expires)
	view.ExpiresWarning = member.DateWarning(status.Expires, threshold, query.Now)
	view.Position = member.OrPlaceholder(status.Position)
	view.Voter = member.OrPlaceholder(status.Voter)
	view.TribalID = member.OrPlaceholder(status.TribalID)
	view.IsExecutive = status.IsExecutiveLeadership
	if deps.Dev {
		view.RawFields = status.SortedRawFields()
	}

	if status.HasPhoto() && status.MemberID != "" {
		view.ShowPhoto = true
		view.PhotoPosition = facefocus.Default.CSS()
		if deps.Focus != nil && deps.Photos != nil {
			id := status.MemberID
			pos := deps.Focus.Focus(ctx, facefocus.MemberKey(id), func(ctx context.Context) (io.ReadCloser, error) {
				p, err := deps.Photos.GetMemberPhoto(ctx, id)
				if err != nil {
					return nil, err
				}
				return p.Body, nil
			})
			view.PhotoPosition = pos.CSS()
		}
	}
	return view, nil
}

// QueryIsExecutive reports whether the signed-in member is executive
// leadership, from a fresh status call.
func QueryIsExecutive(ctx context.Context, deps StatusAPI) (bool, error) {
	status, err := deps.GetMemberStatus(ctx)
	if err != nil {
		return false, err
	}
	return status.IsExecutiveLeadership, nil
}
