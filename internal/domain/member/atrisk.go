package member

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"strings"
	"time"
)

// Risk levels
const (
	RiskExpired  = "expired"
	RiskCritical = "critical"
	RiskWarning  = "warning"
	RiskAll      = "all"
)

// Risk tier boundaries in days until expiration.
const (
	CriticalDays = 30
	WarningDays  = 90
)

// Classify returns the risk level for daysUntil. ok is false when the member
// is outside the at-risk window.
// INVARIANT: -1 expired, 30 critical, 31 warning, 90 warning, 91 excluded
func Classify(daysUntil int) (level string, ok bool) {
	switch {
	case daysUntil < 0:
		return RiskExpired, true
	case daysUntil <= CriticalDays:
		return RiskCritical, true
	case daysUntil <= WarningDays:
		return RiskWarning, true
	default:
		return "", false
	}
}

// AtRiskMember is a roster entry inside the at-risk window.
type AtRiskMember struct {
	ID          string
	FirstName   string
	LastName    string
	Email       string
	Status      string
	Expires     string
	ExpiresAt   time.Time
	DaysUntil   int
	RiskLevel   string
	LastUpdated string
}

// FullName returns "First Last".
func (m AtRiskMember) FullName() string {
	return strings.TrimSpace(m.FirstName + " " + m.LastName)
}

// DaysText renders DaysUntil for the table ("N ago" or "N days").
func (m AtRiskMember) DaysText() string {
	if m.DaysUntil < 0 {
		return fmt.Sprintf("%d ago", -m.DaysUntil)
	}
	return fmt.Sprintf("%d days", m.DaysUntil)
}

// RiskLabel is the upper-case risk level.
func (m AtRiskMember) RiskLabel() string {
	return strings.ToUpper(m.RiskLevel)
}

// HasEmail reports whether the member can be contacted.
func (m AtRiskMember) HasEmail() bool {
	return m.Email != "" && m.Email != Placeholder
}

// Metrics summarise the roster for the email dashboard.
type Metrics struct {
	Active          int
	Inactive        int
	Critical30      int // expired and critical
	Warning60       int
	RetiredDeceased int
	AtRisk          []AtRiskMember
}

// AtRiskCount is Critical30 + Warning60.
func (m Metrics) AtRiskCount() int {
	return m.Critical30 + m.Warning60
}

// MarketingCount is the number of members a renewal campaign can reach.
func (m Metrics) MarketingCount() int {
	return m.Inactive + m.AtRiskCount()
}

// Total counts every classified roster entry.
func (m Metrics) Total() int {
	return m.Active + m.Inactive + m.Critical30 + m.Warning60 + m.RetiredDeceased
}

// MarketingPercent is MarketingCount / Total, rounded to a whole percent.
func (m Metrics) MarketingPercent() int {
	total := m.Total()
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(m.MarketingCount()) / float64(total) * 100))
}

// ComputeMetrics classifies the roster at now.
// POST: AtRisk is sorted by DaysUntil ascending
// INVARIANT: retired and deceased members never appear in AtRisk
func ComputeMetrics(records []Record, now time.Time) Metrics {
	var m Metrics
	for _, r := range records {
		status := r.Status
		if status == "" {
			status = "Active"
		}
		switch strings.ToLower(status) {
		case StatusDeceased, StatusRetired:
			m.RetiredDeceased++
			continue
		case StatusActive:
			m.Active++
		case StatusInactive:
			m.Inactive++
		}

		expiresAt, ok := ParseDate(r.Expires)
		if !ok {
			continue
		}
		days := DaysUntil(expiresAt, now)
		level, ok := Classify(days)
		if !ok {
			continue
		}
		if level == RiskWarning {
			m.Warning60++
		} else {
			m.Critical30++
		}

		email := r.Email
		if email == "" {
			email = Placeholder
		}
		lastUpdated := r.StatusUpdated
		if lastUpdated == "" {
			lastUpdated = r.Modified
		}
		if lastUpdated == "" {
			lastUpdated = Placeholder
		}
		m.AtRisk = append(m.AtRisk, AtRiskMember{
			ID:          r.ID,
			FirstName:   r.FirstName,
			LastName:    r.LastName,
			Email:       email,
			Status:      status,
			Expires:     r.Expires,
			ExpiresAt:   expiresAt,
			DaysUntil:   days,
			RiskLevel:   level,
			LastUpdated: lastUpdated,
		})
	}
	slices.SortStableFunc(m.AtRisk, func(a, b AtRiskMember) int { return cmp.Compare(a.DaysUntil, b.DaysUntil) })
	return m
}

// Sort columns
const (
	SortName      = "name"
	SortEmail     = "email"
	SortStatus    = "status"
	SortExpires   = "expires"
	SortDaysUntil = "daysUntil"
	SortRiskLevel = "riskLevel"
)

// ValidSortColumn reports whether col is a sortable column.
func ValidSortColumn(col string) bool {
	switch col {
	case SortName, SortEmail, SortStatus, SortExpires, SortDaysUntil, SortRiskLevel:
		return true
	}
	return false
}

var riskOrder = map[string]int{RiskExpired: 0, RiskCritical: 1, RiskWarning: 2}

// AtRiskQuery narrows and orders the at-risk list.
type AtRiskQuery struct {
	Search string
	Risk   string
	Sort   string
	Desc   bool
}

// Apply filters and sorts list. The input is not mutated.
// POST: result is stable-sorted by q.Sort (daysUntil when unset)
func (q AtRiskQuery) Apply(list []AtRiskMember) []AtRiskMember {
	search := strings.ToLower(strings.TrimSpace(q.Search))
	out := make([]AtRiskMember, 0, len(list))
	for _, m := range list {
		if search != "" &&
			!strings.Contains(strings.ToLower(m.FirstName), search) &&
			!strings.Contains(strings.ToLower(m.LastName), search) &&
			!strings.Contains(strings.ToLower(m.Email), search) {
			continue
		}
		if q.Risk != "" && q.Risk != RiskAll && m.RiskLevel != q.Risk {
			continue
		}
		out = append(out, m)
	}

	col := q.Sort
	if !ValidSortColumn(col) {
		col = SortDaysUntil
	}
	slices.SortStableFunc(out, func(a, b AtRiskMember) int {
		c := compareColumn(col, a, b)
		if q.Desc {
			return -c
		}
		return c
	})
	return out
}

func compareColumn(col string, a, b AtRiskMember) int {
	switch col {
	case SortName:
		return cmp.Compare(strings.ToLower(a.FirstName+" "+a.LastName), strings.ToLower(b.FirstName+" "+b.LastName))
	case SortEmail:
		return cmp.Compare(strings.ToLower(a.Email), strings.ToLower(b.Email))
	case SortStatus:
		return cmp.Compare(strings.ToLower(a.Status), strings.ToLower(b.Status))
	case SortExpires:
		return a.ExpiresAt.Compare(b.ExpiresAt)
	case SortRiskLevel:
		return cmp.Compare(riskOrder[a.RiskLevel], riskOrder[b.RiskLevel])
	default:
		return cmp.Compare(a.DaysUntil, b.DaysUntil)
	}
}

// NextSort returns the sort direction a header link for col should request:
// repeated clicks on the active column toggle, other columns start ascending.
func NextSort(activeCol string, activeDesc bool, col string) (desc bool) {
	if col == activeCol {
		return !activeDesc
	}
	return false
}
