package orchestrators

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"waccamaw/internal/adapters/email"
	"waccamaw/internal/adapters/metrics"
	"waccamaw/internal/domain/member"
	"waccamaw/internal/domain/portal"
)

// RosterLister loads the full member roster.
type RosterLister interface {
	GetAdminMemberList(ctx context.Context) ([]member.Record, error)
}

// SendRenewalRemindersInput scopes a reminder run.
type SendRenewalRemindersInput struct {
	IsExecutive bool   // from a fresh status call
	Risk        string // "", "all" or a risk level
	PortalURL   string
}

// SendRenewalRemindersResult counts the outcome of a run.
type SendRenewalRemindersResult struct {
	Eligible int // at-risk members in scope
	Sent     int
	Skipped  int // no email on file
}

// SendRenewalRemindersDeps holds dependencies for SendRenewalReminders.
type SendRenewalRemindersDeps struct {
	API    RosterLister
	Sender email.Sender
	Now    func() time.Time
}

// ExecuteSendRenewalReminders emails every at-risk member in scope.
// PRE: input.IsExecutive reflects the caller's current status
// POST: members without an email are skipped, never sent
// INVARIANT: retired and deceased members are never emailed
func ExecuteSendRenewalReminders(ctx context.Context, input SendRenewalRemindersInput, deps SendRenewalRemindersDeps) (SendRenewalRemindersResult, error) {
	if !input.IsExecutive {
		return SendRenewalRemindersResult{}, portal.ErrAccessDenied
	}
	now := time.Now
	if deps.Now != nil {
		now = deps.Now
	}

	records, err := deps.API.GetAdminMemberList(ctx)
	if err != nil {
		return SendRenewalRemindersResult{}, err
	}
	atRisk := member.AtRiskQuery{Risk: input.Risk}.Apply(member.ComputeMetrics(records, now()).AtRisk)

	result := SendRenewalRemindersResult{Eligible: len(atRisk)}
	reqs := make([]email.SendRequest, 0, len(atRisk))
	for _, m := range atRisk {
		if !m.HasEmail() {
			result.Skipped++
			continue
		}
		req, err := email.RenewalReminder(m, input.PortalURL)
		if err != nil {
			return result, err
		}
		reqs = append(reqs, req)
	}
	metrics.RemindersSent.WithLabelValues("skipped").Add(float64(result.Skipped))
	if len(reqs) == 0 {
		return result, nil
	}

	sent, err := deps.Sender.SendBatch(ctx, reqs)
	result.Sent = len(sent)
	metrics.RemindersSent.WithLabelValues("sent").Add(float64(result.Sent))
	if err != nil {
		metrics.RemindersSent.WithLabelValues("failed").Add(float64(len(reqs) - result.Sent))
		slog.Error("renewal_reminders_failed", "sent", result.Sent, "pending", len(reqs)-result.Sent, "error", err)
		return result, fmt.Errorf("failed to send renewal reminders: %w", err)
	}
	slog.Info("renewal_reminders_sent", "risk", input.Risk, "sent", result.Sent, "skipped", result.Skipped)
	return result, nil
}
