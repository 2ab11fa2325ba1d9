// Package api is the client for the remote member-services and
// meetings-service REST API. Calls are single-attempt: there are no retries
// and no client-level timeout, so the caller's context bounds each call.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"waccamaw/internal/adapters/metrics"
	"waccamaw/internal/config"
)

// ErrUnauthenticated is matched by errors.Is when the API rejected the
// caller's session token.
var ErrUnauthenticated = errors.New("not authenticated")

// Error is a non-2xx API response.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string { return e.Message }

// Is reports 401 responses as ErrUnauthenticated.
func (e *Error) Is(target error) bool {
	return target == ErrUnauthenticated && e.Status == http.StatusUnauthorized
}

type tokenKey struct{}

// WithToken returns a context whose API calls carry token as a bearer credential.
func WithToken(ctx context.Context, token string) context.Context {
	if token == "" {
		return ctx
	}
	return context.WithValue(ctx, tokenKey{}, token)
}

// TokenFrom returns the bearer token carried by ctx, if any.
func TokenFrom(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey{}).(string)
	return token
}

// Client calls the remote API.
type Client struct {
	baseURL    string
	endpoints  config.Endpoints
	httpClient *http.Client
}

// New creates a client for cfg's API base URL. A nil httpClient uses a
// client without a timeout.
func New(cfg *config.Config, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.APIBaseURL, "/"),
		endpoints:  cfg.Endpoints,
		httpClient: httpClient,
	}
}

// Request performs a JSON call. body, when non-nil, is JSON-encoded; out,
// when non-nil, receives the decoded response.
// POST: non-2xx responses return *Error with the server's error or message
// field, or "HTTP error! status: N"
func (c *Client) Request(ctx context.Context, method, endpoint string, body, out any) error {
	return c.request(ctx, opName(endpoint), method, endpoint, body, out)
}

func (c *Client) request(ctx context.Context, op, method, endpoint string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode %s request: %w", op, err)
		}
		reader = bytes.NewReader(buf)
	}

	resp, err := c.send(ctx, op, method, endpoint, "application/json", reader)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read %s response: %w", op, err)
	}
	if err := checkStatus(resp.StatusCode, data); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("invalid JSON from %s: %w", op, err)
	}
	return nil
}

// send issues one request and records its outcome. The caller closes the body.
func (c *Client) send(ctx context.Context, op, method, endpoint, contentType string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s request: %w", op, err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if token := TokenFrom(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	elapsed := time.Since(start)
	metrics.APIDuration.WithLabelValues(op).Observe(elapsed.Seconds())

	if err != nil {
		metrics.APIRequests.WithLabelValues(op, "transport_error").Inc()
		slog.Warn("api_request_failed",
			"op", op,
			"method", method,
			"request_id", req.Header.Get("X-Request-ID"),
			"error", err,
		)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	outcome := "ok"
	switch {
	case resp.StatusCode >= 500:
		outcome = "server_error"
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		outcome = "client_error"
	}
	metrics.APIRequests.WithLabelValues(op, outcome).Inc()
	slog.Debug("api_request",
		"op", op,
		"method", method,
		"status", resp.StatusCode,
		"request_id", req.Header.Get("X-Request-ID"),
		"duration_ms", float64(elapsed.Microseconds())/1000.0,
	)
	return resp, nil
}

// checkStatus converts a non-2xx response body into *Error.
func checkStatus(status int, data []byte) error {
	if status >= 200 && status <= 299 {
		return nil
	}
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	_ = json.Unmarshal(data, &payload)
	msg := payload.Error
	if msg == "" {
		msg = payload.Message
	}
	if msg == "" {
		msg = fmt.Sprintf("HTTP error! status: %d", status)
	}
	return &Error{Status: status, Message: msg}
}

// opName derives a low-cardinality metric label from an endpoint path.
func opName(endpoint string) string {
	path, _, _ := strings.Cut(endpoint, "?")
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) > 2 {
		parts = parts[:2]
	}
	return strings.Join(parts, "_")
}
