// Package portal defines the member portal screens and the rules for moving
// between them.
package portal

import "errors"

// Screen is one view of the member portal.
type Screen string

const (
	ScreenRequest          Screen = "request"
	ScreenVerificationSent Screen = "verification-sent"
	ScreenDashboard        Screen = "dashboard"
	ScreenMemberInfo       Screen = "member-info"
	ScreenEmailDashboard   Screen = "email-dashboard"
)

// User-facing messages
const (
	MsgVerifyFailed   = "Verification link is invalid or expired. Please request a new link."
	MsgAccessDenied   = "Access denied: Executive leadership only"
	MsgProfileUpdated = "Your information has been updated successfully!"
	MsgPhotoUploaded  = "Photo uploaded successfully!"
)

// Domain errors
var (
	ErrNotSignedIn  = errors.New("not signed in")
	ErrAccessDenied = errors.New(MsgAccessDenied)
)

// BootAction is what the portal does on first load.
type BootAction int

const (
	BootRequest BootAction = iota
	BootVerify
	BootDashboard
)

// Boot picks the first action: a verification token in the URL wins over a
// cached session, which wins over the request form.
func Boot(token string, hasActiveSession bool) BootAction {
	switch {
	case token != "":
		return BootVerify
	case hasActiveSession:
		return BootDashboard
	default:
		return BootRequest
	}
}

// CanEnter reports whether a caller may view screen.
// PRE: isExecutive comes from a fresh status call
func CanEnter(screen Screen, hasActiveSession, isExecutive bool) error {
	switch screen {
	case ScreenRequest, ScreenVerificationSent:
		return nil
	case ScreenDashboard, ScreenMemberInfo:
		if !hasActiveSession {
			return ErrNotSignedIn
		}
		return nil
	case ScreenEmailDashboard:
		if !hasActiveSession {
			return ErrNotSignedIn
		}
		if !isExecutive {
			return ErrAccessDenied
		}
		return nil
	default:
		return ErrNotSignedIn
	}
}
