package projections

import (
	"context"

	"waccamaw/internal/adapters/api"
	"waccamaw/internal/adapters/imagefocus"
	"waccamaw/internal/domain/facefocus"
	"waccamaw/internal/domain/meeting"
	"waccamaw/internal/domain/member"
)

// MeetingsAPI lists meetings visible to the caller's token.
type MeetingsAPI interface {
	GetMeetings(ctx context.Context, f api.MeetingFilters) (api.MeetingList, error)
}

// MeetingDetailAPI loads a single meeting.
type MeetingDetailAPI interface {
	GetMeetingByID(ctx context.Context, id string) (api.MeetingDetail, error)
	GetMeeting(ctx context.Context, typ, year, month, day string) (api.MeetingDetail, error)
}

// StatusAPI reports the signed-in member's status.
type StatusAPI interface {
	GetMemberStatus(ctx context.Context) (member.Status, error)
}

// RosterAPI loads the full member roster.
type RosterAPI interface {
	GetAdminMemberList(ctx context.Context) ([]member.Record, error)
}

// PhotoAPI streams member photos.
type PhotoAPI interface {
	GetMemberPhoto(ctx context.Context, itemID string) (api.Photo, error)
}

// LegacyArchive is the read side of the legacy meetings archive.
type LegacyArchive interface {
	Sections(authenticated bool, f meeting.Filter) []meeting.Section
	Find(p meeting.PathComponents) (meeting.Meeting, bool)
}

// FocusFinder returns a memoised focus position for an image.
type FocusFinder interface {
	Focus(ctx context.Context, key string, open imagefocus.Opener) facefocus.Position
}
