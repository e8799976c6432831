// Package fetch is the HTTP client apps use to pull JSON documents and
// images. Non-2xx responses become *APIError; every failure wraps ErrFetch.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/tidwall/gjson"
)

const (
	defaultHTTPTimeout  = 30 * time.Second
	maxResponseBodySize = 4 << 20 // 4 MiB guard for JSON documents
	downloadChunkSize   = 1024
	userAgent           = "inkframe/1.0"
)

// ErrFetch is wrapped by every error this package returns.
var ErrFetch = errors.New("fetch: request failed")

// ErrTooLarge reports a response body over the client's size limit.
var ErrTooLarge = errors.New("fetch: response too large")

// ErrDecode reports a response body that is not the expected JSON.
var ErrDecode = errors.New("fetch: invalid JSON")

// Client performs GET requests.
type Client struct {
	http      *http.Client
	userAgent string
	logger    *slog.Logger
	maxBody   int64
}

// ClientOption mutates the client during construction.
type ClientOption func(*Client)

// WithHTTPClient installs a custom http.Client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.http = hc }
}

// WithUserAgent sets a custom User-Agent string.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) { c.userAgent = ua }
}

// WithMaxBodySize caps what Bytes and JSON will read.
func WithMaxBodySize(n int64) ClientOption {
	return func(c *Client) { c.maxBody = n }
}

// WithLogger sets the logger for request diagnostics.
func WithLogger(l *slog.Logger) ClientOption {
	return func(c *Client) { c.logger = l }
}

// NewClient builds a client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		http:      &http.Client{Timeout: defaultHTTPTimeout},
		userAgent: userAgent,
		maxBody:   maxResponseBodySize,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: defaultHTTPTimeout}
	}
	if c.logger == nil {
		c.logger = slog.New(slog.DiscardHandler)
	}
	if c.maxBody <= 0 {
		c.maxBody = maxResponseBodySize
	}
	return c
}

// get issues the request and returns the response for a 2xx status.
func (c *Client) get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %w", ErrFetch, err)
	}
	if ua := strings.TrimSpace(c.userAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
		return nil, buildAPIError(resp.StatusCode, raw)
	}
	return resp, nil
}

// Bytes returns the body of url. A body over the size limit (4 MiB unless
// WithMaxBodySize says otherwise) is an ErrTooLarge error, never a
// truncated document.
func (c *Client) Bytes(ctx context.Context, url string) ([]byte, error) {
	resp, err := c.get(ctx, url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %w", ErrFetch, err)
	}
	if int64(len(raw)) > c.maxBody {
		return nil, fmt.Errorf("%w: %w: %s is over %s", ErrFetch, ErrTooLarge, url, humanize.IBytes(uint64(c.maxBody)))
	}
	return raw, nil
}

// JSON fetches url and parses the body.
func (c *Client) JSON(ctx context.Context, url string) (gjson.Result, error) {
	raw, err := c.Bytes(ctx, url)
	if err != nil {
		return gjson.Result{}, err
	}
	return ParseJSON(raw)
}

// ParseJSON validates raw and returns it as a gjson document.
func ParseJSON(raw []byte) (gjson.Result, error) {
	if !gjson.ValidBytes(raw) {
		return gjson.Result{}, fmt.Errorf("%w: %w", ErrFetch, ErrDecode)
	}
	return gjson.ParseBytes(raw), nil
}

// Download streams url into path in small chunks. The body goes to a
// temporary file next to path and is renamed into place once complete, so
// a failed download never leaves a truncated image behind.
func (c *Client) Download(ctx context.Context, url, path string) (int64, error) {
	start := time.Now()
	resp, err := c.get(ctx, url)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".download-*")
	if err != nil {
		return 0, fmt.Errorf("%w: create temp file: %w", ErrFetch, err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = os.Remove(tmpName)
		}
	}()

	n, err := io.CopyBuffer(tmp, resp.Body, make([]byte, downloadChunkSize))
	if err != nil {
		_ = tmp.Close()
		return n, fmt.Errorf("%w: download %s: %w", ErrFetch, url, err)
	}
	if err := tmp.Close(); err != nil {
		return n, fmt.Errorf("%w: close temp file: %w", ErrFetch, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return n, fmt.Errorf("%w: rename download: %w", ErrFetch, err)
	}
	success = true

	c.logger.Debug("download complete",
		"url", url,
		"size", humanize.Bytes(uint64(n)),
		"elapsed", time.Since(start).Round(time.Millisecond))
	return n, nil
}
