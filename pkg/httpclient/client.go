// Package httpclient is the size-limited outbound HTTP transport used by the content API client.
package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/Gobusters/ectologger"
)

const (
	// DefaultTimeout is the default request timeout
	DefaultTimeout = 30 * time.Second

	// MaxResponseSize is the maximum response body size (10MB)
	MaxResponseSize = 10 * 1024 * 1024
)

// SecretQueryParams are masked wherever a request URL is logged or returned in an error.
var SecretQueryParams = []string{"api_key"}

// RedactURL masks userinfo and secret query parameters.
func RedactURL(u *url.URL) string {
	if u == nil {
		return ""
	}
	clean := *u
	query := clean.Query()
	masked := false
	for _, name := range SecretQueryParams {
		if query.Has(name) {
			query.Set(name, "xxxxx")
			masked = true
		}
	}
	if masked {
		clean.RawQuery = query.Encode()
	}
	return clean.Redacted()
}

// redactError rewrites the URL a *url.Error carries.
func redactError(err error, u *url.URL) error {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		uerr.URL = RedactURL(u)
	}
	return err
}

// Client wraps the HTTP client with logging, retries and size limits
type Client struct {
	client    *http.Client
	userAgent string
	retries   int
	backoff   time.Duration
	logger    ectologger.Logger
}

// Config holds HTTP client configuration
type Config struct {
	Timeout         time.Duration
	MaxIdleConns    int
	IdleConnTimeout time.Duration
	UserAgent       string
	// MaxRetries is the number of extra attempts for retryable statuses.
	MaxRetries   int
	RetryBackoff time.Duration
}

// DefaultConfig returns default HTTP client configuration
func DefaultConfig() Config {
	return Config{
		Timeout:         DefaultTimeout,
		MaxIdleConns:    100,
		IdleConnTimeout: 90 * time.Second,
		UserAgent:       "bramble",
		MaxRetries:      2,
		RetryBackoff:    time.Second,
	}
}

// NewClient creates a new HTTP client
func NewClient(cfg Config, logger ectologger.Logger) *Client {
	transport := &http.Transport{
		MaxIdleConns:    cfg.MaxIdleConns,
		IdleConnTimeout: cfg.IdleConnTimeout,
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &Client{
		client: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
		userAgent: cfg.UserAgent,
		retries:   cfg.MaxRetries,
		backoff:   cfg.RetryBackoff,
		logger:    logger,
	}
}

// Response represents an HTTP response
type Response struct {
	StatusCode  int           `json:"status_code"`
	Body        []byte        `json:"-"`
	ContentType string        `json:"content_type"`
	Duration    time.Duration `json:"duration_ms"`
}

// Do executes an HTTP request and returns the response
func (c *Client) Do(ctx context.Context, req *http.Request) (*Response, error) {
	start := time.Now()

	if c.userAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.client.Do(req.WithContext(ctx))
	if err != nil {
		err = redactError(err, req.URL)
		c.logger.WithContext(ctx).WithError(err).Errorf("HTTP request failed: %s %s", req.Method, RedactURL(req.URL))
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	duration := time.Since(start)

	// Check response size
	if resp.ContentLength > MaxResponseSize {
		return nil, fmt.Errorf("response too large: %d bytes (max %d)", resp.ContentLength, MaxResponseSize)
	}

	// Read response body with size limit
	limitedReader := io.LimitReader(resp.Body, MaxResponseSize+1)
	body, err := io.ReadAll(limitedReader)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if len(body) > MaxResponseSize {
		return nil, fmt.Errorf("response body too large: %d bytes (max %d)", len(body), MaxResponseSize)
	}

	c.logger.WithContext(ctx).Debugf("HTTP %s %s -> %d (%s)",
		req.Method, req.URL.Path, resp.StatusCode, duration)

	return &Response{
		StatusCode:  resp.StatusCode,
		Body:        body,
		ContentType: resp.Header.Get("Content-Type"),
		Duration:    duration,
	}, nil
}

// Get performs a GET request, retrying retryable statuses with linear backoff
func (c *Client) Get(ctx context.Context, rawURL string, headers map[string]string) (*Response, error) {
	var (
		resp *Response
		err  error
	)
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * c.backoff):
			}
		}

		req, rerr := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if rerr != nil {
			var uerr *url.Error
			if errors.As(rerr, &uerr) {
				rerr = uerr.Err
			}
			return nil, fmt.Errorf("failed to create request: %w", rerr)
		}
		for key, value := range headers {
			req.Header.Set(key, value)
		}

		resp, err = c.Do(ctx, req)
		if err != nil || !IsRetryableStatus(resp.StatusCode) {
			return resp, err
		}
		c.logger.WithContext(ctx).Warnf("Retryable status %d from %s (attempt %d)", resp.StatusCode, req.URL.Path, attempt+1)
	}
	return resp, err
}
