// Package grobid converts PDF files to TEI through a GROBID service.
package grobid

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"golang.org/x/time/rate"
)

// DefaultURL is GROBID's standard local address.
const DefaultURL = "http://localhost:8070"

// Client is a rate-limited, retrying client for the GROBID REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	backoff    func(attempt int) time.Duration
	stats      *Stats
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithRateLimit caps requests per second. Zero or less disables limiting.
func WithRateLimit(rps float64) ClientOption {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// WithBackoff replaces the delay between retries.
func WithBackoff(fn func(attempt int) time.Duration) ClientOption {
	return func(c *Client) {
		c.backoff = fn
	}
}

func NewClient(baseURL string, timeout time.Duration, opts ...ClientOption) *Client {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(2), 1),
		backoff:    Backoff,
		stats:      NewStats(time.Hour),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Stats returns the client's latency tracker.
func (c *Client) Stats() *Stats {
	return c.stats
}

// Convert sends a PDF to processFulltextDocument and returns the TEI
// body. Sentence segmentation and raw citations are requested because the
// parser depends on both.
func (c *Client) Convert(ctx context.Context, data []byte, filename string) ([]byte, error) {
	var tei []byte
	err := retry.Do(
		func() error {
			if err := c.limiter.Wait(ctx); err != nil {
				return retry.Unrecoverable(fmt.Errorf("rate limiter: %w", err))
			}
			start := time.Now()
			out, err := c.convertOnce(ctx, data, filename)
			c.stats.Record(time.Since(start), err)
			if err != nil {
				return err
			}
			tei = out
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(MaxRetries),
		retry.RetryIf(IsRetryable),
		retry.DelayType(func(n uint, _ error, _ *retry.Config) time.Duration {
			return c.backoff(int(n))
		}),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, fmt.Errorf("grobid convert %s: %w", filename, err)
	}
	return tei, nil
}

func (c *Client) convertOnce(ctx context.Context, data []byte, filename string) ([]byte, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("input", filepath.Base(filename))
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("write form file: %w", err)
	}
	for _, field := range []string{"segmentSentences", "includeRawCitations"} {
		if err := mw.WriteField(field, "1"); err != nil {
			return nil, fmt.Errorf("write field %s: %w", field, err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close multipart: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/processFulltextDocument", &body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/xml")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("grobid api: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, &RetryableError{StatusCode: resp.StatusCode, Message: string(respBody)}
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return nil, fmt.Errorf("grobid api status %d: %s", resp.StatusCode, truncate(string(respBody), 200))
	}
	if len(bytes.TrimSpace(respBody)) == 0 {
		return nil, fmt.Errorf("grobid returned no content")
	}
	return respBody, nil
}

// IsAlive reports whether the service answers its health probe.
func (c *Client) IsAlive(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/isalive", nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("grobid isalive: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("grobid isalive: status %d", resp.StatusCode)
	}
	return nil
}

// Close releases resources.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}
