package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"waccamaw/internal/domain/session"
)

// SessionClearer drops the cached values of a session.
type SessionClearer interface {
	Clear(ctx context.Context, id string) error
}

// LogoutDeps holds dependencies for Logout.
type LogoutDeps struct {
	Sessions SessionClearer
}

// ExecuteLogout clears the token, member data and email of a session.
// A session that no longer exists is already logged out.
// POST: the session, if present, no longer HasActiveSession
func ExecuteLogout(ctx context.Context, sessionID string, deps LogoutDeps) error {
	if sessionID == "" {
		return nil
	}
	if err := deps.Sessions.Clear(ctx, sessionID); err != nil && !errors.Is(err, session.ErrNotFound) {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	slog.Info("auth_event", "event", "logout")
	return nil
}

// SessionPurger deletes idle sessions.
type SessionPurger interface {
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// PurgeSessionsDeps holds dependencies for PurgeSessions.
type PurgeSessionsDeps struct {
	Sessions SessionPurger
	TTL      time.Duration
	Now      func() time.Time
}

// ExecutePurgeSessions deletes sessions idle for longer than the TTL.
// POST: returns the number of deleted sessions; a zero TTL deletes nothing
func ExecutePurgeSessions(ctx context.Context, deps PurgeSessionsDeps) (int64, error) {
	if deps.TTL <= 0 {
		return 0, nil
	}
	now := time.Now
	if deps.Now != nil {
		now = deps.Now
	}
	n, err := deps.Sessions.DeleteExpired(ctx, now().Add(-deps.TTL))
	if err != nil {
		return 0, fmt.Errorf("failed to purge sessions: %w", err)
	}
	if n > 0 {
		slog.Info("sessions_purged", "count", n)
	}
	return n, nil
}
