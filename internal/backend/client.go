// Package backend delivers finalized submissions to the screening backend.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/ashureev/psicoflow/internal/domain"
)

const (
	// DefaultTimeout bounds a single delivery.
	DefaultTimeout = 6 * time.Second

	// SecretHeader carries the shared secret checked by the backend.
	SecretHeader = "X-Bot-Secret"
	// IdempotencyHeader carries the submission ID so the backend can drop
	// duplicates.
	IdempotencyHeader = "Idempotency-Key"

	maxBodySnippet = 500
)

// Submitter delivers a submission and reports success.
type Submitter interface {
	Submit(ctx context.Context, s domain.Submission) bool
}

// Client posts submissions over HTTP.
type Client struct {
	url     string
	secret  string
	timeout time.Duration
	http    *http.Client
	logger  *slog.Logger
}

// NewClient creates a backend client. A zero timeout uses DefaultTimeout.
func NewClient(url, secret string, timeout time.Duration, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		url:     url,
		secret:  secret,
		timeout: timeout,
		http:    &http.Client{},
		logger:  logger,
	}
}

// Submit posts s once. It never retries and never returns an error: any
// network failure, timeout or non-2xx status yields false.
func (c *Client) Submit(ctx context.Context, s domain.Submission) bool {
	log := c.logger.With("submission_id", s.ID, "user_id", s.UserID)

	if c.url == "" {
		log.Error("backend url not configured, submission dropped")
		return false
	}

	body, err := json.Marshal(s)
	if err != nil {
		log.Error("failed to encode submission", "error", err)
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		log.Error("failed to create backend request", "error", err)
		return false
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(SecretHeader, c.secret)
	req.Header.Set(IdempotencyHeader, s.ID)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		log.Error("backend request failed", "error", err, "duration_ms", time.Since(start).Milliseconds())
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxBodySnippet))
		log.Error("backend rejected submission",
			"status", resp.StatusCode,
			"body", string(snippet),
		)
		return false
	}
	_, _ = io.Copy(io.Discard, resp.Body)

	log.Info("submission delivered", "status", resp.StatusCode, "duration_ms", time.Since(start).Milliseconds())
	return true
}
