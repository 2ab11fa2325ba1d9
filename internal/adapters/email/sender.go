// Package email delivers renewal reminders through Resend, or logs them when
// no API key is configured.
package email

import (
	"context"
	"time"

	"waccamaw/internal/config"
)

// BatchSize is the largest batch the provider accepts per call.
const BatchSize = 100

// SendRequest contains the data needed to send one email.
type SendRequest struct {
	To      []string
	From    string // defaults to the sender's configured address
	Subject string
	HTML    string
	Text    string
	ReplyTo string // defaults to the sender's configured reply-to
}

// SendResult contains the response from the email provider.
type SendResult struct {
	MessageID string
	SentAt    time.Time
}

// Sender sends emails via an external provider.
type Sender interface {
	Send(ctx context.Context, req SendRequest) (SendResult, error)
	SendBatch(ctx context.Context, reqs []SendRequest) ([]SendResult, error)
}

// New returns a Resend sender when cfg carries an API key, else a NoopSender.
func New(cfg config.EmailConfig) Sender {
	if cfg.ResendKey == "" {
		return NewNoopSender()
	}
	return NewResendSender(cfg.ResendKey, cfg.From, cfg.ReplyTo)
}

// chunks splits reqs into slices of at most size.
func chunks(reqs []SendRequest, size int) [][]SendRequest {
	var out [][]SendRequest
	for size < len(reqs) {
		reqs, out = reqs[size:], append(out, reqs[:size:size])
	}
	if len(reqs) > 0 {
		out = append(out, reqs)
	}
	return out
}
