package member

import (
	"math"
	"slices"
	"strings"
	"time"
)

// Business rule constants
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
	StatusDeceased = "deceased"
	StatusRetired  = "retired"

	DefaultWarningThresholdDays = 90
	DefaultState                = "SC"
	Placeholder                 = "-"
)

// PhotoField is the roster field that records an uploaded ID picture.
const PhotoField = "ID_x0020_Picture"

// Status is the signed-in member's status as reported by the status endpoint.
type Status struct {
	Active                bool
	StatusText            string
	MemberSince           string
	LastActive            string
	Position              string
	Voter                 string
	Expires               string
	TribalID              string
	MemberID              string
	IsExecutiveLeadership bool
	WarningThresholdDays  int
	RawFields             map[string]string
}

// BadgeClass returns "active", "inactive" or "" for the status badge.
// INVARIANT: comparison is case-insensitive and exact
func (s Status) BadgeClass() string {
	switch strings.ToLower(s.StatusText) {
	case StatusActive:
		return StatusActive
	case StatusInactive:
		return StatusInactive
	default:
		return ""
	}
}

// BadgeText returns the status text, or "Unknown".
func (s Status) BadgeText() string {
	if s.StatusText == "" {
		return "Unknown"
	}
	return s.StatusText
}

// Threshold returns the warning threshold, defaulting to 90 days.
func (s Status) Threshold() int {
	if s.WarningThresholdDays <= 0 {
		return DefaultWarningThresholdDays
	}
	return s.WarningThresholdDays
}

// HasPhoto reports whether an ID picture is on file and can be addressed.
func (s Status) HasPhoto() bool {
	return strings.TrimSpace(s.RawFields[PhotoField]) != "" && s.TribalID != ""
}

// RawField is one key/value pair of the debug table.
type RawField struct {
	Key   string
	Value string
}

// SortedRawFields returns RawFields ordered by key.
func (s Status) SortedRawFields() []RawField {
	keys := make([]string, 0, len(s.RawFields))
	for k := range s.RawFields {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	out := make([]RawField, 0, len(keys))
	for _, k := range keys {
		out = append(out, RawField{Key: k, Value: s.RawFields[k]})
	}
	return out
}

// Profile is the cached member data returned by verification and edited on
// the member-info screen.
type Profile struct {
	Name      string `json:"name,omitempty"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Address   string `json:"address,omitempty"`
	City      string `json:"city,omitempty"`
	State     string `json:"state,omitempty"`
	Zip       string `json:"zip,omitempty"`
}

// SplitName splits Name on the first space into first and last names.
func (p Profile) SplitName() (first, last string) {
	if p.FirstName != "" || p.LastName != "" {
		return p.FirstName, p.LastName
	}
	first, last, _ = strings.Cut(strings.TrimSpace(p.Name), " ")
	return first, strings.TrimSpace(last)
}

// Record is one entry of the admin member list.
type Record struct {
	ID            string
	FirstName     string
	LastName      string
	Email         string
	Status        string
	Expires       string
	StatusUpdated string
	Modified      string
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"1/2/2006 3:04:05 PM",
	"1/2/2006",
	"Jan 2, 2006",
	"January 2, 2006",
}

// ParseDate parses the date formats the roster emits.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FormatDate renders a date as "Jan 2, 2006". Empty input yields "-" and
// unparseable input is returned unchanged.
func FormatDate(s string) string {
	if strings.TrimSpace(s) == "" {
		return Placeholder
	}
	t, ok := ParseDate(s)
	if !ok {
		return s
	}
	return t.Format("Jan 2, 2006")
}

// DaysUntil returns ceil((t - now) / 24h).
func DaysUntil(t, now time.Time) int {
	return int(math.Ceil(t.Sub(now).Hours() / 24))
}

// DateWarning returns "date-expired" for past dates, "date-warning" within
// threshold days, and "" otherwise or when s does not parse.
func DateWarning(s string, threshold int, now time.Time) string {
	t, ok := ParseDate(s)
	if !ok {
		return ""
	}
	d := DaysUntil(t, now)
	switch {
	case d < 0:
		return "date-expired"
	case d <= threshold:
		return "date-warning"
	default:
		return ""
	}
}

// OrPlaceholder returns s, or "-" when s is blank.
func OrPlaceholder(s string) string {
	if strings.TrimSpace(s) == "" {
		return Placeholder
	}
	return s
}
