// Package session models the server-side portal session: the bearer token
// issued by email verification plus the cached member data and email.
package session

import (
	"errors"
	"time"

	"waccamaw/internal/domain/member"
)

// Domain errors
var (
	ErrNotFound = errors.New("session not found")
	ErrExpired  = errors.New("session expired")
)

// Session holds state for the concept.
type Session struct {
	ID           string // cookie value; only its digest is persisted
	SessionToken string
	MemberData   *member.Profile
	Email        string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasActiveSession reports whether both a bearer token and member data are cached.
// INVARIANT: Session fields are not mutated
func (s Session) HasActiveSession() bool {
	return s.SessionToken != "" && s.MemberData != nil
}

// Expired reports whether the session is older than ttl at now.
func (s Session) Expired(ttl time.Duration, now time.Time) bool {
	return ttl > 0 && now.Sub(s.UpdatedAt) > ttl
}

// DisplayName returns the cached member name, or "".
func (s Session) DisplayName() string {
	if s.MemberData == nil {
		return ""
	}
	return s.MemberData.Name
}

// Clear drops the token, member data and email together.
// POST: HasActiveSession is false and Email is empty
func (s *Session) Clear() {
	s.SessionToken = ""
	s.MemberData = nil
	s.Email = ""
}
