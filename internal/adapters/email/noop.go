package email

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// NoopSender logs sends without delivering them and keeps what it was given,
// for development and tests.
type NoopSender struct {
	mu      sync.Mutex
	sent    []SendRequest
	batches int
}

// NewNoopSender creates a new NoopSender.
func NewNoopSender() *NoopSender {
	return &NoopSender{}
}

// Send logs the email but does not deliver it.
func (s *NoopSender) Send(_ context.Context, req SendRequest) (SendResult, error) {
	s.mu.Lock()
	s.sent = append(s.sent, req)
	s.mu.Unlock()
	slog.Info("noop_email_send", "to", req.To, "subject", req.Subject)
	return SendResult{
		MessageID: fmt.Sprintf("noop-%d", time.Now().UnixNano()),
		SentAt:    time.Now(),
	}, nil
}

// SendBatch logs the batch in provider-sized chunks but does not deliver.
// POST: one result per request, in request order
func (s *NoopSender) SendBatch(_ context.Context, reqs []SendRequest) ([]SendResult, error) {
	var results []SendResult
	for _, chunk := range chunks(reqs, BatchSize) {
		s.mu.Lock()
		s.sent = append(s.sent, chunk...)
		s.batches++
		s.mu.Unlock()
		slog.Info("noop_email_batch", "count", len(chunk))
		for i := range chunk {
			results = append(results, SendResult{
				MessageID: fmt.Sprintf("noop-batch-%d-%d", time.Now().UnixNano(), i),
				SentAt:    time.Now(),
			})
		}
	}
	return results, nil
}

// Sent returns a copy of every request received so far.
func (s *NoopSender) Sent() []SendRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]SendRequest(nil), s.sent...)
}

// Batches returns how many provider-sized batches SendBatch has handled.
func (s *NoopSender) Batches() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.batches
}
