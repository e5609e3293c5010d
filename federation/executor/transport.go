package executor

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Transport sends a subgraph request body to host and returns the raw
// response bytes. Every subgraph call goes through it, including the SDL
// introspection fetches in gateway/schema_fetcher.go.
type Transport interface {
	Post(ctx context.Context, host string, body []byte) ([]byte, error)
}

// RetryOption configures an HTTPTransport's retry behavior. Zero value
// means no retries beyond the first attempt.
type RetryOption struct {
	MaxAttempts int
	MaxElapsed  time.Duration
}

// HTTPTransport is the default Transport: a plain HTTP POST, retried with
// exponential backoff on transport-level failures and 5xx responses.
type HTTPTransport struct {
	client *http.Client
	retry  RetryOption
}

// NewHTTPTransport returns an HTTPTransport. A zero RetryOption disables
// retries (matching a single best-effort attempt).
func NewHTTPTransport(client *http.Client, retry RetryOption) *HTTPTransport {
	return &HTTPTransport{client: client, retry: retry}
}

func (t *HTTPTransport) Post(ctx context.Context, host string, body []byte) ([]byte, error) {
	attempts := t.retry.MaxAttempts
	if attempts <= 0 {
		return t.doPost(ctx, host, body)
	}

	opts := []backoff.RetryOption{backoff.WithMaxTries(uint(attempts))}
	if t.retry.MaxElapsed > 0 {
		opts = append(opts, backoff.WithMaxElapsedTime(t.retry.MaxElapsed))
	}

	return backoff.Retry(ctx, func() ([]byte, error) {
		respBody, err := t.doPost(ctx, host, body)
		if err != nil {
			return nil, err
		}
		return respBody, nil
	}, opts...)
}

func (t *HTTPTransport) doPost(ctx context.Context, host string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, host, bytes.NewReader(body))
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("failed to build request to %s: %w", host, err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", host, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response from %s: %w", host, err)
	}

	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("subgraph %s returned status %d", host, resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		return nil, backoff.Permanent(fmt.Errorf("subgraph %s returned status %d", host, resp.StatusCode))
	}

	return respBody, nil
}
