package member

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"
)

// CSVHeader is the column order of the at-risk export.
var CSVHeader = []string{"First Name", "Last Name", "Email", "Status", "Expires", "Days Until Expiration", "Risk Level", "Last Updated"}

// CSVFilename returns the download name for an export taken at now.
func CSVFilename(now time.Time) string {
	return "waccamaw-at-risk-members-" + now.UTC().Format("2006-01-02") + ".csv"
}

// CSVRow converts one at-risk member into export columns.
func CSVRow(m AtRiskMember) []string {
	days := fmt.Sprintf("%d days", m.DaysUntil)
	if m.DaysUntil < 0 {
		days = fmt.Sprintf("%d days ago", -m.DaysUntil)
	}
	return []string{
		m.FirstName,
		m.LastName,
		m.Email,
		m.Status,
		csvDate(m.Expires),
		days,
		strings.ToUpper(m.RiskLevel),
		csvDate(m.LastUpdated),
	}
}

// csvDate formats like FormatDate but keeps "-" and unparseable values as-is.
func csvDate(s string) string {
	if s == Placeholder {
		return s
	}
	return FormatDate(s)
}

// WriteCSV writes the header and one row per member with RFC 4180 quoting.
func WriteCSV(w io.Writer, list []AtRiskMember) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return err
	}
	for _, m := range list {
		if err := cw.Write(CSVRow(m)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
