// Package api is the HTTP transport the finalization client sends through:
// build a request against the service base URL, attach auth, and hand back
// status, headers and body.
//
// Send never interprets the status code. Callers decide what a non-2xx
// means; StatusError and Failure carry that decision to their callers.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pithecene-io/accord/iox"
)

// IdempotencyHeader carries the caller's idempotency token.
const IdempotencyHeader = "X-Idempotency-Key"

// ErrNoBaseURL is returned by New when no service URL is configured.
var ErrNoBaseURL = errors.New("api client requires a base URL")

// Config configures the transport.
type Config struct {
	// BaseURL is the service root, e.g. https://host/api (required).
	BaseURL string
	// Token is sent as a bearer Authorization header when set.
	Token string
	// Headers are added to every request.
	Headers map[string]string
	// Timeout bounds each request. Zero means no client-side timeout.
	Timeout time.Duration
	// HTTPClient overrides the underlying client (tests).
	HTTPClient *http.Client
}

// Request describes one call.
type Request struct {
	Method string
	// Path is the escaped path below BaseURL, e.g. "/finalize/p-1".
	Path   string
	Query  url.Values
	Header http.Header
	// Body is JSON-encoded when non-nil.
	Body any
}

// Response is the raw result of a call that reached the server.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

// Err returns nil for 2xx responses and a *StatusError otherwise.
func (r *Response) Err() error {
	if r.OK() {
		return nil
	}
	return &StatusError{Code: r.Status, Message: ServerMessage(r.Body)}
}

// Doer sends requests. *Client implements it; tests substitute fakes.
type Doer interface {
	Send(ctx context.Context, req *Request) (*Response, error)
}

// Client is the net/http implementation of Doer.
type Client struct {
	config Config
	base   *url.URL
	client *http.Client
}

// New creates a transport from cfg.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, ErrNoBaseURL
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("api: invalid base URL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("api: base URL must be http or https, got %q", cfg.BaseURL)
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	return &Client{config: cfg, base: base, client: client}, nil
}

// Send performs req and returns the response for any status.
// The error is non-nil only when no response was received.
func (c *Client) Send(ctx context.Context, req *Request) (*Response, error) {
	httpReq, err := c.build(ctx, req)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer iox.DiscardClose(resp.Body)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	return &Response{
		Status: resp.StatusCode,
		Header: resp.Header,
		Body:   body,
	}, nil
}

func (c *Client) build(ctx context.Context, req *Request) (*http.Request, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	u := c.base.JoinPath(req.Path)
	if len(req.Query) > 0 {
		u.RawQuery = req.Query.Encode()
	}

	var body io.Reader
	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if c.config.Token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.config.Token)
	}
	for k, v := range c.config.Headers {
		httpReq.Header.Set(k, v)
	}
	// Per-request headers replace configured defaults of the same name.
	for k, vs := range req.Header {
		httpReq.Header.Del(k)
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}

	return httpReq, nil
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.client.CloseIdleConnections()
	return nil
}

// Verify Client implements Doer.
var _ Doer = (*Client)(nil)
