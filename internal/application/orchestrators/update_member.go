package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"waccamaw/internal/adapters/api"
	"waccamaw/internal/domain/member"
	"waccamaw/internal/domain/portal"
	"waccamaw/internal/domain/session"
)

// MemberUpdater submits profile changes.
type MemberUpdater interface {
	UpdateMember(ctx context.Context, req api.UpdateRequest) error
}

// ErrNameRequired is returned when the first or last name is blank.
var ErrNameRequired = errors.New("First and last name are required.")

// UpdateMemberInput carries the submitted member-info form.
type UpdateMemberInput struct {
	Session   session.Session
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Address   string
	City      string
	State     string
	Zip       string
}

// UpdateMemberResult carries the session with refreshed member data.
type UpdateMemberResult struct {
	Session    session.Session
	FailedOpen bool
}

// UpdateMemberDeps holds dependencies for UpdateMember.
type UpdateMemberDeps struct {
	API      MemberUpdater
	Sessions SessionSaver
	FailOpen bool
}

// ExecuteUpdateMember sends the form to the API and refreshes the cached
// member data.
// PRE: input.Session.HasActiveSession()
// POST: cached name is "First Last"; state defaults to SC
func ExecuteUpdateMember(ctx context.Context, input UpdateMemberInput, deps UpdateMemberDeps) (UpdateMemberResult, error) {
	if !input.Session.HasActiveSession() {
		return UpdateMemberResult{}, portal.ErrNotSignedIn
	}
	req := api.UpdateRequest{
		FirstName: strings.TrimSpace(input.FirstName),
		LastName:  strings.TrimSpace(input.LastName),
		Email:     strings.TrimSpace(input.Email),
		Phone:     strings.TrimSpace(input.Phone),
		Address:   strings.TrimSpace(input.Address),
		City:      strings.TrimSpace(input.City),
		State:     strings.TrimSpace(input.State),
		Zip:       strings.TrimSpace(input.Zip),
	}
	if req.FirstName == "" || req.LastName == "" {
		return UpdateMemberResult{}, ErrNameRequired
	}
	if req.State == "" {
		req.State = member.DefaultState
	}

	result := UpdateMemberResult{Session: input.Session}
	if err := deps.API.UpdateMember(ctx, req); err != nil {
		if errors.Is(err, api.ErrUnauthenticated) || !deps.FailOpen {
			return UpdateMemberResult{}, err
		}
		slog.Warn("update_member_failed_open", "email", req.Email, "error", err)
		result.FailedOpen = true
	}

	result.Session.MemberData = &member.Profile{
		Name:      req.FirstName + " " + req.LastName,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Phone:     req.Phone,
		Address:   req.Address,
		City:      req.City,
		State:     req.State,
		Zip:       req.Zip,
	}
	if req.Email != "" {
		result.Session.Email = req.Email
	}
	if err := deps.Sessions.Save(ctx, result.Session); err != nil {
		return UpdateMemberResult{}, fmt.Errorf("failed to save member data: %w", err)
	}
	slog.Info("member_updated", "email", result.Session.Email, "failed_open", result.FailedOpen)
	return result, nil
}
