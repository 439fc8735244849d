// Package upstream is the Upstream Client (C6): it POSTs a decorated,
// always-streaming native Messages request to the real Anthropic API and
// hands the response body's SSE stream to the caller to rewrite.
package upstream

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kalehub/claude-relay/internal/decorator"
)

const (
	// endpoint is the native Messages endpoint, called with beta=true so
	// OAuth-credentialed requests are accepted.
	endpoint = "https://api.anthropic.com/v1/messages?beta=true"
	// requestTimeout is the hard ceiling on one upstream call, including all
	// retries, layered under whatever deadline the caller's context carries.
	requestTimeout = 2 * time.Minute
)

// Client calls the upstream Messages endpoint.
type Client struct {
	httpClient *http.Client
	endpoint   string
}

// New constructs a Client pointed at the real Anthropic Messages endpoint.
func New() *Client {
	return &Client{httpClient: &http.Client{}, endpoint: endpoint}
}

// NewWithEndpoint constructs a Client pointed at a caller-supplied URL,
// for tests that stand in an httptest.Server for the real upstream.
func NewWithEndpoint(url string) *Client {
	return &Client{httpClient: &http.Client{}, endpoint: url}
}

// Response is one upstream HTTP response: its status, headers, and a body
// the caller must Close.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       io.ReadCloser
}

// Do performs a single upstream POST with the given access token and
// decorated request body. It does not retry; Send, below, wraps Do with the
// retry policy. The caller owns resp.Body and must close it.
func (c *Client) Do(ctx context.Context, accessToken string, body []byte) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build upstream request: %w", err)
	}
	for k, vs := range decorator.UpstreamHeaders(accessToken) {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: resp.Body}, nil
}

// WithTimeout derives a context bounded by requestTimeout from ctx, without
// loosening any shorter deadline ctx already carries.
func WithTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, requestTimeout)
}
