// Package extract calls the external document-extraction service with
// pseudonymized text. Nothing in this package ever sees real values;
// the consent gate and the engine run before it.
package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/regulens/pseudonymd/internal/logger"
)

// ErrOverloaded means the extraction service rejected the call with a
// retryable status. The retry wrapper backs off on it.
var ErrOverloaded = errors.New("extraction service overloaded")

// Extractor turns pseudonymized document text into structured fields.
type Extractor interface {
	Extract(ctx context.Context, text string) (json.RawMessage, error)
}

// Client is the HTTP extractor. The remote contract is JSON both ways:
// {"text": ...} in, an opaque structured document out.
type Client struct {
	endpoint string
	apiKey   string
	httpc    *http.Client
}

// NewClient builds an extractor for the service at endpoint. apiKey may
// be empty for unauthenticated deployments.
func NewClient(endpoint, apiKey string, timeout time.Duration) *Client {
	return &Client{
		endpoint: endpoint,
		apiKey:   apiKey,
		httpc:    &http.Client{Timeout: timeout},
	}
}

type extractRequest struct {
	Text string `json:"text"`
}

func (c *Client) Extract(ctx context.Context, text string) (json.RawMessage, error) {
	body, err := json.Marshal(extractRequest{Text: text})
	if err != nil {
		return nil, fmt.Errorf("encoding extraction request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building extraction request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOverloaded, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		out, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("reading extraction response: %w", err)
		}
		return json.RawMessage(out), nil

	case resp.StatusCode == http.StatusTooManyRequests,
		resp.StatusCode == http.StatusServiceUnavailable,
		resp.StatusCode >= 500:
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%w: status %d", ErrOverloaded, resp.StatusCode)

	default:
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("extraction service returned %d", resp.StatusCode)
	}
}

// retryExtractor wraps another extractor with capped exponential
// backoff on retryable failures.
type retryExtractor struct {
	inner    Extractor
	attempts int
	base     time.Duration
	cap      time.Duration
}

// WithRetry retries retryable extraction failures up to attempts times
// with exponential backoff starting at base and capped at maxDelay.
func WithRetry(inner Extractor, attempts int, base, maxDelay time.Duration) Extractor {
	return &retryExtractor{inner: inner, attempts: attempts, base: base, cap: maxDelay}
}

func (r *retryExtractor) Extract(ctx context.Context, text string) (json.RawMessage, error) {
	delay := r.base
	var lastErr error

	for attempt := 1; attempt <= r.attempts; attempt++ {
		out, err := r.inner.Extract(ctx, text)
		if err == nil {
			return out, nil
		}
		lastErr = err

		if !errors.Is(err, ErrOverloaded) || attempt == r.attempts {
			break
		}

		logger.WarnCtx(ctx, "extraction retry",
			"attempt", attempt,
			"delay", delay.String(),
			"error", err)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}

		delay *= 2
		if delay > r.cap {
			delay = r.cap
		}
	}

	return nil, lastErr
}
