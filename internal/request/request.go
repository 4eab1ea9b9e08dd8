// Package request is the network layer step handlers and cleanup batches
// go through. It resolves request paths against the target endpoint,
// applies default headers, counts every request for diagnostics, and runs
// cleanup requests as a strictly sequential series.
package request

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultTimeout bounds a single request when the configuration sets none.
const DefaultTimeout = 10 * time.Second

// Request describes one HTTP request against the target service.
type Request struct {
	// Method is the HTTP method; empty means GET.
	Method string `json:"method"`
	// URL is absolute, or relative to the client's endpoint.
	URL string `json:"url"`
	// Header holds per-request headers, applied after the defaults.
	Header map[string]string `json:"header,omitempty"`
	// Body is sent verbatim.
	Body []byte `json:"-"`
	// TrackingID links a cleanup request to the record it tears down.
	TrackingID string `json:"tracking_id,omitempty"`
}

// Response is a fully read HTTP response.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// StatusError is returned by the series runner for non-2xx responses.
type StatusError struct {
	Method string
	URL    string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d", e.Method, e.URL, e.Status)
}

// ErrNoEndpoint is returned when a relative URL is used without an endpoint.
var ErrNoEndpoint = errors.New("relative request URL without a target endpoint")

// Options configures a Client.
type Options struct {
	// Endpoint is the base URL relative request URLs resolve against.
	Endpoint string
	// Header holds default headers sent with every request.
	Header map[string]string
	// Timeout bounds each request; zero means DefaultTimeout.
	Timeout time.Duration
	// HTTPClient overrides the underlying client (tests).
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client performs requests against the target service.
type Client struct {
	http     *http.Client
	endpoint *url.URL
	header   map[string]string
	stats    *Stats
	logger   *slog.Logger
}

// NewClient creates a Client.
func NewClient(opts Options) (*Client, error) {
	c := &Client{
		http:   opts.HTTPClient,
		header: opts.Header,
		stats:  NewStats(),
		logger: opts.Logger,
	}
	if c.logger == nil {
		c.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if c.http == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		c.http = &http.Client{Timeout: timeout}
	}
	if opts.Endpoint != "" {
		u, err := url.Parse(opts.Endpoint)
		if err != nil {
			return nil, fmt.Errorf("invalid endpoint %q: %w", opts.Endpoint, err)
		}
		if !strings.HasSuffix(u.Path, "/") {
			u.Path += "/"
		}
		c.endpoint = u
	}
	return c, nil
}

// Stats returns the request counters.
func (c *Client) Stats() *Stats {
	return c.stats
}

// Resolve turns a request URL into an absolute URL.
func (c *Client) Resolve(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid request URL %q: %w", raw, err)
	}
	if u.IsAbs() {
		return u.String(), nil
	}
	if c.endpoint == nil {
		return "", fmt.Errorf("%w: %s", ErrNoEndpoint, raw)
	}
	return c.endpoint.ResolveReference(u).String(), nil
}

// Do performs one request and reads the whole response body.
// A non-2xx status is not an error here; callers decide.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	method = strings.ToUpper(method)

	target, err := c.Resolve(req.URL)
	if err != nil {
		return nil, err
	}

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for k, v := range c.header {
		httpReq.Header.Set(k, v)
	}
	for k, v := range req.Header {
		httpReq.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.stats.record(method, 0)
		c.logger.Debug("request failed", "method", method, "url", target, "error", err)
		return nil, fmt.Errorf("%s %s: %w", method, target, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	c.stats.record(method, resp.StatusCode)
	if err != nil {
		return nil, fmt.Errorf("%s %s: read body: %w", method, target, err)
	}

	c.logger.Debug("request completed",
		"method", method,
		"url", target,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)

	return &Response{Status: resp.StatusCode, Header: resp.Header, Body: data}, nil
}
