package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"waccamaw/internal/domain/session"
)

// contextKey is an unexported type for context keys in this package.
type contextKey string

const sessionContextKey contextKey = "session"

// SessionCookieName names the cookie carrying the opaque session id.
const SessionCookieName = "waccamaw_session"

// SessionLoader reads a session by its cookie id.
type SessionLoader interface {
	Get(ctx context.Context, id string) (session.Session, error)
}

// CookieOptions controls the session cookie attributes.
type CookieOptions struct {
	Secure bool
	MaxAge time.Duration
}

// Auth returns middleware that loads the session named by the cookie and
// puts it in the request context. It does NOT block requests without one;
// handlers decide what a missing session means.
func Auth(sessions SessionLoader, opts CookieOptions) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookieName)
			if err == nil && cookie.Value != "" {
				sess, err := sessions.Get(r.Context(), cookie.Value)
				switch {
				case err == nil:
					r = r.WithContext(ContextWithSession(r.Context(), sess))
				case errors.Is(err, session.ErrNotFound), errors.Is(err, session.ErrExpired):
					slog.Debug("auth_event", "event", "session_dropped", "reason", err.Error())
					ClearSessionCookie(w, opts)
				default:
					slog.Error("session_load_failed", "error", err)
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// SessionFromContext returns the caller's session, if any.
func SessionFromContext(ctx context.Context) (session.Session, bool) {
	sess, ok := ctx.Value(sessionContextKey).(session.Session)
	return sess, ok
}

// ContextWithSession returns a context carrying sess.
func ContextWithSession(ctx context.Context, sess session.Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, sess)
}

// SetSessionCookie sets the session cookie on the response.
func SetSessionCookie(w http.ResponseWriter, id string, opts CookieOptions) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    id,
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: http.SameSiteLaxMode,
		Path:     "/",
		MaxAge:   int(opts.MaxAge.Seconds()),
	})
}

// ClearSessionCookie removes the session cookie.
func ClearSessionCookie(w http.ResponseWriter, opts CookieOptions) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: http.SameSiteLaxMode,
		Path:     "/",
		MaxAge:   -1,
	})
}
