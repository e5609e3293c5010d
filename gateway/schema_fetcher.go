package gateway

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/n9te9/federation-core/federation/executor"
)

// serviceSDLResponse is the response body from a subgraph's GraphQL endpoint
// when queried with `{ _service { sdl } }`.
type serviceSDLResponse struct {
	Data struct {
		Service struct {
			SDL string `json:"sdl"`
		} `json:"_service"`
	} `json:"data"`
}

// RetryOption defines the retry configuration for SDL fetching.
type RetryOption struct {
	Attempts int    `yaml:"attempts" default:"3"`
	Timeout  string `yaml:"timeout"  default:"5s"`
}

// fetchSDL fetches the SDL by sending { _service { sdl } } to the subgraph's
// GraphQL endpoint (host), making up to attempts tries in total with
// exponential backoff via federation/executor.Transport rather than a bare fixed loop.
func fetchSDL(host string, httpClient *http.Client, retry RetryOption) (string, error) {
	attempts := retry.Attempts
	if attempts <= 0 {
		attempts = 1
	}

	timeoutDuration := 5 * time.Second
	if retry.Timeout != "" {
		if d, err := time.ParseDuration(retry.Timeout); err == nil {
			timeoutDuration = d
		}
	}

	ctx := context.Background()
	if timeoutDuration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeoutDuration*time.Duration(attempts))
		defer cancel()
	}

	transport := executor.NewHTTPTransport(httpClient, executor.RetryOption{MaxAttempts: attempts})
	body := []byte(`{"query":"{_service{sdl}}"}`)

	respBody, err := transport.Post(ctx, host, body)
	if err != nil {
		return "", fmt.Errorf("failed to fetch SDL from %s after %d attempt(s): %w", host, attempts, err)
	}

	var svcResp serviceSDLResponse
	if err := json.Unmarshal(respBody, &svcResp); err != nil {
		return "", fmt.Errorf("failed to decode SDL response from %s: %w", host, err)
	}
	if svcResp.Data.Service.SDL == "" {
		return "", fmt.Errorf("empty SDL returned from %s", host)
	}

	return svcResp.Data.Service.SDL, nil
}
