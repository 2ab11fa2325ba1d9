package api

import (
	"context"
	"net/http"
	"net/url"

	"waccamaw/internal/config"
	"waccamaw/internal/domain/meeting"
)

// MeetingFilters narrow the meetings listing server-side.
type MeetingFilters struct {
	Type      string
	StartDate string // ISO date
	EndDate   string // ISO date
	Upcoming  bool
	Past      bool
}

// Encode returns the query string, without the leading "?".
func (f MeetingFilters) Encode() string {
	v := url.Values{}
	if f.Type != "" {
		v.Set("type", f.Type)
	}
	if f.StartDate != "" {
		v.Set("startDate", f.StartDate)
	}
	if f.EndDate != "" {
		v.Set("endDate", f.EndDate)
	}
	if f.Upcoming {
		v.Set("upcoming", "true")
	}
	if f.Past {
		v.Set("past", "true")
	}
	return v.Encode()
}

// MeetingList is a meetings listing response.
type MeetingList struct {
	Success    bool              `json:"success"`
	Meetings   []meeting.Meeting `json:"meetings"`
	Statistics struct {
		Total int `json:"total"`
	} `json:"statistics"`
	Authenticated bool `json:"authenticated"`
}

// MeetingDetail is a single-meeting response.
type MeetingDetail struct {
	Success               bool             `json:"success"`
	Meeting               *meeting.Meeting `json:"meeting"`
	IsExecutiveLeadership bool             `json:"isExecutiveLeadership"`
}

// GetMeetings lists meetings visible to the caller's token.
func (c *Client) GetMeetings(ctx context.Context, f MeetingFilters) (MeetingList, error) {
	endpoint := c.endpoints.Meetings
	if q := f.Encode(); q != "" {
		endpoint += "?" + q
	}
	var out MeetingList
	err := c.request(ctx, "meetings", http.MethodGet, endpoint, nil, &out)
	return out, err
}

// GetUpcomingMeetings lists meetings that have not happened yet.
func (c *Client) GetUpcomingMeetings(ctx context.Context) (MeetingList, error) {
	var out MeetingList
	err := c.request(ctx, "meetings_upcoming", http.MethodGet, c.endpoints.UpcomingMeetings, nil, &out)
	return out, err
}

// GetMeetingByID loads one meeting by its opaque id.
func (c *Client) GetMeetingByID(ctx context.Context, id string) (MeetingDetail, error) {
	var out MeetingDetail
	endpoint := config.Expand(c.endpoints.MeetingByID, "id", id)
	err := c.request(ctx, "meeting_by_id", http.MethodGet, endpoint, nil, &out)
	return out, err
}

// GetMeeting loads one meeting by its date path.
func (c *Client) GetMeeting(ctx context.Context, typ, year, month, day string) (MeetingDetail, error) {
	var out MeetingDetail
	endpoint := config.Expand(c.endpoints.MeetingDetail,
		"type", typ, "year", year, "month", month, "day", day)
	err := c.request(ctx, "meeting_detail", http.MethodGet, endpoint, nil, &out)
	return out, err
}
