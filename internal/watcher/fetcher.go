// Package watcher implements the scholarship watching pipeline:
// fetch, parse, filter, compare, notify.
package watcher

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultTimeout    = 30 * time.Second
	defaultMaxRetries = 3
	defaultUserAgent  = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// FetchResult is the outcome of fetching a single source URL.
type FetchResult struct {
	SourceURL  string
	Content    string
	Success    bool
	Error      string
	StatusCode int
}

// Fetcher downloads source pages with bounded retries and a polite delay
// between sources.
type Fetcher struct {
	client       *http.Client
	logger       *slog.Logger
	maxRetries   int
	requestDelay time.Duration
	backoff      time.Duration
}

func NewFetcher(logger *slog.Logger) *Fetcher {
	return &Fetcher{
		client:       &http.Client{Timeout: defaultTimeout},
		logger:       logger,
		maxRetries:   defaultMaxRetries,
		requestDelay: time.Second,
		backoff:      time.Second,
	}
}

// FetchAll fetches every URL in order. One result per URL, failures included,
// so callers can log per-source outcomes.
func (f *Fetcher) FetchAll(ctx context.Context, urls []string) []FetchResult {
	results := make([]FetchResult, 0, len(urls))

	for i, u := range urls {
		results = append(results, f.fetchOne(ctx, u))

		if i < len(urls)-1 && f.requestDelay > 0 {
			select {
			case <-ctx.Done():
				return results
			case <-time.After(f.requestDelay):
			}
		}
	}

	successful := 0
	for _, r := range results {
		if r.Success {
			successful++
		}
	}
	f.logger.Info("fetch complete", "successful", successful, "total", len(results))

	return results
}

func (f *Fetcher) fetchOne(ctx context.Context, rawURL string) FetchResult {
	if !validURL(rawURL) {
		f.logger.Warn("invalid source URL", "url", rawURL)
		return FetchResult{SourceURL: rawURL, Error: "invalid URL format"}
	}

	var lastErr string
	var lastStatus int

	for attempt := 0; attempt <= f.maxRetries; attempt++ {
		if attempt > 0 {
			wait := f.backoff * time.Duration(1<<(attempt-1))
			select {
			case <-ctx.Done():
				return FetchResult{SourceURL: rawURL, Error: ctx.Err().Error()}
			case <-time.After(wait):
			}
		}

		content, status, err := f.get(ctx, rawURL)
		if err != nil {
			lastErr = err.Error()
			f.logger.Warn("fetch attempt failed", "url", rawURL, "attempt", attempt+1, "error", err)
			continue
		}
		lastStatus = status

		if status == http.StatusOK {
			f.logger.Info("fetched source", "url", rawURL, "bytes", len(content))
			return FetchResult{SourceURL: rawURL, Content: content, Success: true, StatusCode: status}
		}

		lastErr = fmt.Sprintf("HTTP %d", status)
		if !retryableStatus(status) {
			break
		}
		f.logger.Warn("retryable status", "url", rawURL, "status", status, "attempt", attempt+1)
	}

	return FetchResult{SourceURL: rawURL, Error: lastErr, StatusCode: lastStatus}
}

func (f *Fetcher) get(ctx context.Context, rawURL string) (string, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", 0, err
	}
	req.Header.Set("User-Agent", defaultUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", resp.StatusCode, err
	}
	return string(body), resp.StatusCode, nil
}

func retryableStatus(status int) bool {
	switch status {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

func validURL(rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return (parsed.Scheme == "http" || parsed.Scheme == "https") && parsed.Host != ""
}

// IsFeedURL guesses whether a source serves RSS/Atom rather than HTML.
func IsFeedURL(rawURL string) bool {
	lower := strings.ToLower(rawURL)
	return strings.HasSuffix(lower, ".rss") ||
		strings.HasSuffix(lower, ".atom") ||
		strings.HasSuffix(lower, "/feed") ||
		strings.HasSuffix(lower, "/feed/") ||
		strings.HasSuffix(lower, "feed.xml") ||
		strings.HasSuffix(lower, "rss.xml")
}
