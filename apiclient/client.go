// Package apiclient is the HTTP client for the medicine backend. Every request
// is bounded by a timeout that cancels it, responses outside 2xx fail with
// *HTTPError, and bodies are decoded into typed, validated payloads.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/giygas/medicaments-lookup/logging"
	"github.com/giygas/medicaments-lookup/metrics"
	"golang.org/x/text/encoding/charmap"
)

const (
	// DefaultTimeout bounds a single request
	DefaultTimeout = 10 * time.Second

	maxBodyBytes = 8 << 20
)

// TokenSource supplies the bearer token for authenticated calls. It is read
// before every such request.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// validator is implemented by payloads that check themselves after decoding
type validator interface {
	Validate() error
}

// Client talks JSON to the backend at baseURL
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	tokens     TokenSource
}

// Option configures a Client
type Option func(*Client)

// WithTimeout overrides DefaultTimeout
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithHTTPClient swaps the transport, mostly for tests
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTokenSource sets where bearer tokens come from
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) {
		c.tokens = ts
	}
}

// NewClient creates a client for baseURL. The underlying http.Client has no
// timeout of its own; each request gets a context deadline instead.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		timeout:    DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithTokens returns a shallow copy of c that reads bearer tokens from ts
func (c *Client) WithTokens(ts TokenSource) *Client {
	clone := *c
	clone.tokens = ts
	return &clone
}

// BaseURL returns the backend base URL without trailing slash
func (c *Client) BaseURL() string {
	return c.baseURL
}

// FetchJSON GETs rawURL and decodes the JSON body into out
func (c *Client) FetchJSON(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequest(http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("building request for %s: %w", rawURL, err)
	}
	return c.Do(ctx, req, out)
}

// Do sends req with the client timeout and decodes a 2xx JSON body into out.
// out may be nil when the body is irrelevant. The timeout timer is released on
// every return path.
func (c *Client) Do(ctx context.Context, req *http.Request, out any) error {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	url := req.URL.String()
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}

	resp, err := c.httpClient.Do(req.WithContext(reqCtx))
	if err != nil {
		return c.transportError(ctx, reqCtx, url, err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			logging.Debug("Failed to close response body", "url", url, "error", cerr)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain a little so the connection can be reused
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return &HTTPError{StatusCode: resp.StatusCode, URL: url}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return c.transportError(ctx, reqCtx, url, err)
	}
	if len(body) > maxBodyBytes {
		return &MalformedResponseError{URL: url, Err: fmt.Errorf("body exceeds %d bytes", maxBodyBytes)}
	}

	if out == nil {
		return nil
	}
	return decodeBody(url, body, out)
}

// transportError tells a client timeout apart from caller cancellation
func (c *Client) transportError(parent, reqCtx context.Context, url string, err error) error {
	if parent.Err() != nil {
		return fmt.Errorf("request to %s: %w", url, parent.Err())
	}
	if errors.Is(reqCtx.Err(), context.DeadlineExceeded) {
		return &TimeoutError{URL: url, After: c.timeout}
	}
	return &NetworkError{URL: url, Err: err}
}

// decodeBody decodes JSON, falling back to ISO-8859-1 for bodies that are not
// valid UTF-8, then runs payload validation
func decodeBody(url string, body []byte, out any) error {
	var reader io.Reader = bytes.NewReader(body)
	if !utf8.Valid(body) {
		reader = charmap.ISO8859_1.NewDecoder().Reader(reader)
	}

	dec := json.NewDecoder(reader)
	if err := dec.Decode(out); err != nil {
		return &MalformedResponseError{URL: url, Err: err}
	}
	if dec.More() {
		return &MalformedResponseError{URL: url, Err: errors.New("trailing data after JSON value")}
	}

	if v, ok := out.(validator); ok {
		if err := v.Validate(); err != nil {
			return &MalformedResponseError{URL: url, Err: err}
		}
	}
	return nil
}

// call builds a request against the base URL, attaches auth when asked, and
// records metrics under endpoint
func (c *Client) call(ctx context.Context, endpoint, method, path string, body any, auth bool, out any) error {
	start := time.Now()
	err := c.send(ctx, method, path, body, auth, out)

	outcome := "ok"
	if err != nil {
		outcome = string(Classify(err))
	}
	metrics.APIClientRequests.WithLabelValues(endpoint, outcome).Inc()
	metrics.APIClientDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())

	if err != nil && Classify(err) != KindCanceled {
		logging.Warn("Backend request failed", "endpoint", endpoint, "kind", Classify(err), "error", err)
	}
	return err
}

func (c *Client) send(ctx context.Context, method, path string, body any, auth bool, out any) error {
	var payload io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		payload = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, payload)
	if err != nil {
		return fmt.Errorf("building request for %s: %w", path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if auth && c.tokens != nil {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return fmt.Errorf("reading token: %w", err)
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	return c.Do(ctx, req, out)
}
