package email

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"waccamaw/internal/domain/member"
)

var reminderHTML = template.Must(template.New("reminder").Parse(`<p>Dear {{.Name}},</p>
<p>{{.Lead}}</p>
<p>Renewing keeps your voting rights and your access to members-only meetings and records.
You can review your details and renew at <a href="{{.PortalURL}}">{{.PortalURL}}</a>.</p>
<p>Thank you,<br>Waccamaw Indian People Membership Office</p>
`))

type reminderData struct {
	Name      string
	Lead      string
	PortalURL string
}

// reminderLead is the opening sentence for a member's risk tier.
func reminderLead(m member.AtRiskMember) string {
	expires := member.FormatDate(m.Expires)
	switch m.RiskLevel {
	case member.RiskExpired:
		return fmt.Sprintf("Your membership expired on %s.", expires)
	case member.RiskCritical:
		return fmt.Sprintf("Your membership expires on %s, in %d days.", expires, m.DaysUntil)
	default:
		return fmt.Sprintf("Your membership is due for renewal on %s.", expires)
	}
}

// ReminderSubject returns the subject line for a member's risk tier.
func ReminderSubject(m member.AtRiskMember) string {
	if m.RiskLevel == member.RiskExpired {
		return "Your Waccamaw membership has expired"
	}
	return "Your Waccamaw membership is due for renewal"
}

// RenewalReminder builds the reminder email for one at-risk member.
// PRE: m.HasEmail()
func RenewalReminder(m member.AtRiskMember, portalURL string) (SendRequest, error) {
	data := reminderData{
		Name:      strings.TrimSpace(m.FirstName),
		Lead:      reminderLead(m),
		PortalURL: portalURL,
	}
	if data.Name == "" || data.Name == member.Placeholder {
		data.Name = "Member"
	}
	var buf bytes.Buffer
	if err := reminderHTML.Execute(&buf, data); err != nil {
		return SendRequest{}, fmt.Errorf("failed to render reminder: %w", err)
	}
	return SendRequest{
		To:      []string{m.Email},
		Subject: ReminderSubject(m),
		HTML:    buf.String(),
		Text:    fmt.Sprintf("Dear %s,\n\n%s\n\nRenew at %s\n", data.Name, data.Lead, portalURL),
	}, nil
}
