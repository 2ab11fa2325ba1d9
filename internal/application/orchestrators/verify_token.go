package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"waccamaw/internal/adapters/api"
	"waccamaw/internal/domain/portal"
	"waccamaw/internal/domain/session"
)

// TokenVerifier exchanges an emailed token for a session token.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (api.VerifyResult, error)
}

// ErrVerifyFailed covers every verification failure. Network errors and
// rejected tokens are reported the same way.
var ErrVerifyFailed = errors.New(portal.MsgVerifyFailed)

// VerifyTokenInput carries input for the verify-token orchestrator.
type VerifyTokenInput struct {
	Session session.Session
	Token   string
}

// VerifyTokenDeps holds dependencies for VerifyToken.
type VerifyTokenDeps struct {
	API      TokenVerifier
	Sessions SessionSaver
}

// ExecuteVerifyToken verifies token and caches the session token and member
// data on the session.
// PRE: input.Session was loaded or created by the caller
// POST: on success the returned session HasActiveSession
func ExecuteVerifyToken(ctx context.Context, input VerifyTokenInput, deps VerifyTokenDeps) (session.Session, error) {
	token := strings.TrimSpace(input.Token)
	if token == "" {
		return session.Session{}, ErrVerifyFailed
	}

	res, err := deps.API.VerifyToken(ctx, token)
	if err != nil {
		slog.Info("auth_event", "event", "verify_failed", "error", err)
		return session.Session{}, ErrVerifyFailed
	}

	sess := input.Session
	profile := res.MemberData
	sess.SessionToken = res.SessionToken
	sess.MemberData = &profile
	if profile.Email != "" {
		sess.Email = profile.Email
	}
	if err := deps.Sessions.Save(ctx, sess); err != nil {
		return session.Session{}, fmt.Errorf("failed to save verified session: %w", err)
	}

	slog.Info("auth_event", "event", "verify_success", "email", sess.Email)
	return sess, nil
}
