package ingest

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"time"
)

const browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// HTTPFetcher is the shared fetcher for API and feed sources. It applies a
// per-request timeout and retries transient failures with backoff; several
// of the upstream sources refuse default Go user agents, so requests carry
// browser-like headers.
type HTTPFetcher struct {
	Client *http.Client
	Config FetchConfig
}

// NewHTTPFetcher builds a fetcher from a source's fetch config, applying
// defaults for anything unset.
func NewHTTPFetcher(config FetchConfig) *HTTPFetcher {
	if config.TimeoutSeconds == 0 {
		config.TimeoutSeconds = 15
	}
	if config.MaxRetries == 0 {
		config.MaxRetries = 2
	}
	if config.AcceptLanguage == "" {
		config.AcceptLanguage = "en-US,en;q=0.5"
	}

	return &HTTPFetcher{
		Client: &http.Client{
			Timeout: time.Duration(config.TimeoutSeconds) * time.Second,
		},
		Config: config,
	}
}

// shouldRetry determines if an error or status code should trigger a retry.
func shouldRetry(err error, statusCode int) bool {
	if err != nil {
		if netErr, ok := err.(interface{ Timeout() bool }); ok && netErr.Timeout() {
			return true
		}
		return false
	}

	switch statusCode {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// Fetch implements the Fetcher interface with retries and backoff.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (*FetchedDocument, error) {
	var lastErr error

	for attempt := 0; attempt <= f.Config.MaxRetries; attempt++ {
		if attempt > 0 {
			// Exponential backoff: 0.5s, 1s, 2s + jitter
			backoff := time.Duration(500*(1<<uint(attempt-1))) * time.Millisecond
			jitter := time.Duration(rand.Intn(100)) * time.Millisecond
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff + jitter):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("User-Agent", browserUserAgent)
		req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		req.Header.Set("Accept-Language", f.Config.AcceptLanguage)

		resp, err := f.Client.Do(req)
		if err != nil {
			lastErr = err
			if shouldRetry(err, 0) {
				continue
			}
			return nil, fmt.Errorf("executing request: %w", err)
		}

		if resp.StatusCode == http.StatusOK {
			return &FetchedDocument{
				URL:         url,
				StatusCode:  resp.StatusCode,
				ContentType: resp.Header.Get("Content-Type"),
				Body:        resp.Body,
				FetchedAt:   time.Now(),
			}, nil
		}

		resp.Body.Close()
		lastErr = fmt.Errorf("status code %d", resp.StatusCode)
		if shouldRetry(nil, resp.StatusCode) {
			continue
		}
		return nil, fmt.Errorf("unexpected %s: %w", url, lastErr)
	}

	return nil, fmt.Errorf("max retries exceeded for %s: %w", url, lastErr)
}
