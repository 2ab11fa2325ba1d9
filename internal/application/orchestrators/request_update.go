package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"waccamaw/internal/domain/session"
)

// SessionSaver persists a portal session.
type SessionSaver interface {
	Save(ctx context.Context, s session.Session) error
}

// UpdateRequester asks the API to email a verification link.
type UpdateRequester interface {
	RequestUpdate(ctx context.Context, email string) error
}

// Domain errors
var (
	ErrEmailRequired = errors.New("Please enter your email address.")
	ErrEmailInvalid  = errors.New("Please enter a valid email address.")
)

// RequestUpdateInput carries input for the request-update orchestrator.
type RequestUpdateInput struct {
	Session session.Session
	Email   string
}

// RequestUpdateResult carries the session after the request.
type RequestUpdateResult struct {
	Session    session.Session
	Email      string
	FailedOpen bool // the API call failed but the portal advanced anyway
}

// RequestUpdateDeps holds dependencies for RequestUpdate.
type RequestUpdateDeps struct {
	API      UpdateRequester
	Sessions SessionSaver
	FailOpen bool
}

// ExecuteRequestUpdate requests a verification email and remembers the
// address on the session for the verification-sent screen.
// PRE: input.Session was loaded or created by the caller
// POST: on success (or fail-open) the session email is saved
func ExecuteRequestUpdate(ctx context.Context, input RequestUpdateInput, deps RequestUpdateDeps) (RequestUpdateResult, error) {
	email := strings.TrimSpace(input.Email)
	if email == "" {
		return RequestUpdateResult{}, ErrEmailRequired
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return RequestUpdateResult{}, ErrEmailInvalid
	}

	result := RequestUpdateResult{Session: input.Session, Email: email}
	if err := deps.API.RequestUpdate(ctx, email); err != nil {
		if !deps.FailOpen {
			slog.Info("auth_event", "event", "request_update_failed", "email", email, "error", err)
			return RequestUpdateResult{}, err
		}
		slog.Warn("request_update_failed_open", "email", email, "error", err)
		result.FailedOpen = true
	} else {
		slog.Info("auth_event", "event", "request_update_sent", "email", email)
	}

	result.Session.Email = email
	if err := deps.Sessions.Save(ctx, result.Session); err != nil {
		return RequestUpdateResult{}, fmt.Errorf("failed to save session email: %w", err)
	}
	return result, nil
}
