// Package remote is the HTTP transport used to talk to syndication peers.
//
// Every request is issued with credentials formatted by an auth.Handler and a
// per-request timeout. Responses are fully read so callers can inspect the
// status, headers and body without managing connections.
package remote

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/hashicorp-forge/distributor/pkg/auth"
)

const (
	// DiscoveryTimeout applies to metadata calls (types, root, probes).
	DiscoveryTimeout = 5 * time.Second

	// FetchTimeout applies to listing and detail fetches.
	FetchTimeout = 45 * time.Second

	// PushTimeout is the default timeout of a push write.
	PushTimeout = 45 * time.Second

	// maxBodyBytes caps how much of a response body is read.
	maxBodyBytes = 32 << 20
)

const (
	// HeaderMarker is set by peers that implement the syndication protocol.
	HeaderMarker = "X-Distributor"

	// HeaderTotal carries the total item count of a listing.
	HeaderTotal = "X-WP-Total"

	// RelAPIRoot is the Link relation that advertises the canonical API root.
	RelAPIRoot = "https://api.w.org/"
)

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Empty reports whether the body is empty or whitespace only.
func (r *Response) Empty() bool {
	return len(bytes.TrimSpace(r.Body)) == 0
}

// HasMarker reports whether the remote declared protocol support.
func (r *Response) HasMarker() bool {
	return r.Header.Get(HeaderMarker) != ""
}

// DecodeJSON decodes the body into v.
func (r *Response) DecodeJSON(v any) error {
	if r.Empty() {
		return ErrEmptyResponse
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}

// Client issues requests against remote peers.
type Client struct {
	http      *http.Client
	logger    hclog.Logger
	userAgent string
}

// NewClient wraps httpClient. A nil httpClient uses NewHTTPClient(true).
func NewClient(httpClient *http.Client, logger hclog.Logger) *Client {
	if httpClient == nil {
		httpClient = NewHTTPClient(true)
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Client{
		http:      httpClient,
		logger:    logger,
		userAgent: "distributor",
	}
}

// NewHTTPClient creates a pooled HTTP client. Timeouts are applied per
// request, so the client itself has none.
func NewHTTPClient(tlsVerify bool) *http.Client {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}

	if !tlsVerify {
		transport.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: true, //nolint:gosec // opt-in for self-signed dev peers
		}
	}

	return &http.Client{Transport: transport}
}

// Get issues a GET with args formatted by the caller's auth handler.
func (c *Client) Get(ctx context.Context, url string, args auth.RequestArgs) (*Response, error) {
	return c.do(ctx, http.MethodGet, url, nil, args)
}

// PostJSON issues a POST with body encoded as JSON.
func (c *Client) PostJSON(ctx context.Context, url string, body any, args auth.RequestArgs) (*Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}
	return c.do(ctx, http.MethodPost, url, payload, args)
}

func (c *Client) do(ctx context.Context, method, url string, body []byte, args auth.RequestArgs) (*Response, error) {
	if args.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, args.Timeout)
		defer cancel()
	}

	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", ErrTransport, err)
	}

	for key, values := range args.Header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	req.Header.Set("Accept", "application/json")
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("request failed", "method", method, "url", url, "error", err)
		return nil, fmt.Errorf("%w: %s %s: %v", ErrTransport, method, url, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", ErrTransport, err)
	}

	c.logger.Trace("request complete",
		"method", method,
		"url", url,
		"status", resp.StatusCode,
		"elapsed", time.Since(start),
	)

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       respBody,
	}, nil
}
