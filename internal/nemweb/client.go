// Package nemweb fetches report archives from the AEMO NEMWEB file
// server: anonymous HTTP, HTML directory indexes, zipped MMS CSV files.
package nemweb

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// DefaultBaseURL is the production NEMWEB root. Tests and mirrors
// override it via Config.BaseURL.
const DefaultBaseURL = "https://nemweb.com.au"

// userAgent identifies us upstream. NEMWEB rejects an empty UA with 406.
const userAgent = "nemscan data collector/1.0"

var (
	// ErrNotFound is a 404: for current-directory polls it just means no
	// new data yet; for backfill it means the day is unavailable.
	ErrNotFound = errors.New("nemweb: not found")

	// ErrUnavailable means retries were exhausted on transient failures.
	ErrUnavailable = errors.New("nemweb: unavailable after retries")
)

// ProtocolError is any unexpected non-transient HTTP status.
type ProtocolError struct {
	URL        string
	StatusCode int
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("nemweb: unexpected status %d for %s", e.StatusCode, e.URL)
}

// Config tunes the client. Zero values fall back to the defaults below.
type Config struct {
	BaseURL        string
	MaxRetries     int
	RetryDelay     time.Duration
	ListTimeout    time.Duration
	BodyTimeout    time.Duration
	ArchiveTimeout time.Duration
}

// Client is a retrying NEMWEB HTTP client. A shared limiter paces
// consecutive downloads so polling loops stay courteous upstream.
type Client struct {
	base       string
	http       *http.Client
	maxRetries int
	retryDelay time.Duration
	listTO     time.Duration
	bodyTO     time.Duration
	archiveTO  time.Duration
	limiter    *rate.Limiter
}

func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = 10 * time.Second
	}
	if cfg.ListTimeout == 0 {
		cfg.ListTimeout = 30 * time.Second
	}
	if cfg.BodyTimeout == 0 {
		cfg.BodyTimeout = 60 * time.Second
	}
	if cfg.ArchiveTimeout == 0 {
		cfg.ArchiveTimeout = 300 * time.Second
	}
	return &Client{
		base:       strings.TrimRight(cfg.BaseURL, "/"),
		http:       &http.Client{},
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		listTO:     cfg.ListTimeout,
		bodyTO:     cfg.BodyTimeout,
		archiveTO:  cfg.ArchiveTimeout,
		limiter:    rate.NewLimiter(rate.Every(100*time.Millisecond), 1),
	}
}

// BaseURL returns the configured server root.
func (c *Client) BaseURL() string { return c.base }

var hrefRe = regexp.MustCompile(`(?i)href="([^"]+)"`)

// List fetches a directory index page and returns the basenames of all
// linked files. Ordering is not guaranteed; callers sort.
func (c *Client) List(ctx context.Context, dirURL string) ([]string, error) {
	body, err := c.fetch(ctx, dirURL, c.listTO)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, m := range hrefRe.FindAllStringSubmatch(string(body), -1) {
		href := m[1]
		// Skip parent links and directory entries.
		if href == "" || strings.HasSuffix(href, "/") || strings.HasPrefix(href, "?") {
			continue
		}
		if i := strings.LastIndexByte(href, '/'); i >= 0 {
			href = href[i+1:]
		}
		if href == "" || strings.EqualFold(href, "web.config") {
			continue
		}
		names = append(names, href)
	}
	return names, nil
}

// Get downloads a file body with the standard timeout.
func (c *Client) Get(ctx context.Context, fileURL string) ([]byte, error) {
	return c.fetch(ctx, fileURL, c.bodyTO)
}

// GetLarge downloads with the long timeout used for weekly and monthly
// archives (hundreds of MB on a slow mirror).
func (c *Client) GetLarge(ctx context.Context, fileURL string) ([]byte, error) {
	return c.fetch(ctx, fileURL, c.archiveTO)
}

func (c *Client) fetch(ctx context.Context, url string, timeout time.Duration) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.retryDelay):
			}
		}

		body, retry, err := c.fetchOnce(ctx, url, timeout)
		if err == nil {
			return body, nil
		}
		if !retry {
			return nil, err
		}
		lastErr = err
	}
	return nil, fmt.Errorf("%w: %s (last: %v)", ErrUnavailable, url, lastErr)
}

// fetchOnce performs one GET. The bool result reports whether the
// failure is transient and worth retrying.
func (c *Client) fetchOnce(ctx context.Context, url string, timeout time.Duration) ([]byte, bool, error) {
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, false, ctx.Err()
		}
		return nil, true, err // timeout / connection reset
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, true, err
		}
		return body, false, nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, false, fmt.Errorf("%w: %s", ErrNotFound, url)
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, true, fmt.Errorf("nemweb: status %d for %s", resp.StatusCode, url)
	default:
		return nil, false, &ProtocolError{URL: url, StatusCode: resp.StatusCode}
	}
}
