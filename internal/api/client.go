// internal/api/client.go
//
// Pesquisa – backend REST client.
//
// Context
//   Every survey is stored by an external backend reachable over HTTP.  This
//   package is the only code that knows its URLs and JSON envelopes.  All
//   endpoints answer with the same envelope:
//
//      { "success": bool, "message": "...", "data": ..., "error": "CODE",
//        "pagination": { "page", "limit", "total", "totalPages" } }
//
// Workflow
//   •  do() builds the request, sends it, and sorts the outcome into three
//      buckets: transport failure (*TransportError, no response at all),
//      non-2xx status (*StatusError, envelope fields copied when present),
//      and a decoded envelope.
//   •  Endpoint helpers live in pesquisas.go and auth.go.
//   •  Bearer tokens and the refresh-and-retry dance live in transport.go.
//      A Client never retries on its own.
//
// Notes
//   •  Timeouts belong to the http.Client and surface as *TransportError.
//   •  Two spaces after periods, Oxford comma.
//
//------------------------------------------------------------------------------

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

	"golang.org/x/sync/singleflight"
)

// DefaultTimeout matches the browser client the backend was built for.
const DefaultTimeout = 10 * time.Second

// maxBody caps how much of a response we read.
const maxBody = 4 << 20

// -----------------------------------------------------------------------------
// Envelope and errors
// -----------------------------------------------------------------------------

// Pagination accompanies list responses.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// Envelope is the common response wrapper.
type Envelope[T any] struct {
	Success    bool        `json:"success"`
	Message    string      `json:"message,omitempty"`
	Data       T           `json:"data,omitempty"`
	Error      string      `json:"error,omitempty"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

// StatusError reports a response the backend did answer, but not with a
// successful envelope.  Status is the HTTP code; Code and Message come from
// the envelope when the body had one.
type StatusError struct {
	Status  int
	Code    string
	Message string
}

func (e *StatusError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "request rejected"
	}
	if e.Code != "" {
		return fmt.Sprintf("backend: status %d: %s (%s)", e.Status, e.Code, msg)
	}
	return fmt.Sprintf("backend: status %d: %s", e.Status, msg)
}

// TransportError reports a request that never produced a response:
// connection refused, DNS failure, timeout, or cancellation.
type TransportError struct{ Err error }

func (e *TransportError) Error() string { return "backend unreachable: " + e.Err.Error() }
func (e *TransportError) Unwrap() error { return e.Err }

// ErrSessionExpired is returned when a 401 could not be cured by refreshing
// the access token.  Stored credentials have already been cleared.
var ErrSessionExpired = errors.New("api: session expired")

// IsUnauthorized reports whether err means the caller must log in again.
func IsUnauthorized(err error) bool {
	if errors.Is(err, ErrSessionExpired) {
		return true
	}
	var se *StatusError
	return errors.As(err, &se) && se.Status == http.StatusUnauthorized
}

// -----------------------------------------------------------------------------
// Client
// -----------------------------------------------------------------------------

// Client talks to one backend base URL, e.g. "https://host/api".
type Client struct {
	base *url.URL
	http *http.Client

	// Shared by every credentialed copy, so concurrent requests on one
	// session refresh once no matter which copy saw the 401.
	refreshes *singleflight.Group
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.http = h } }

// WithTimeout sets the per-request timeout of the default http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// New parses baseURL and returns a client without credentials.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("api base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("api base url %q: scheme and host required", baseURL)
	}
	c := &Client{
		base:      u,
		http:      &http.Client{Timeout: DefaultTimeout},
		refreshes: new(singleflight.Group),
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// WithCredentials returns a copy of c whose requests carry the bearer token
// from src and refresh it once on 401.  Refresh calls go through c itself,
// so they never carry a stale token.
func (c *Client) WithCredentials(src TokenSource) *Client {
	base := c.http.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	hc := *c.http
	hc.Transport = &AuthTransport{
		Base:    base,
		Source:  src,
		Refresh: c.Refresh,
		Group:   c.refreshes,
	}
	return &Client{base: c.base, http: &hc, refreshes: c.refreshes}
}

// endpoint joins the base path and p, then attaches q.
func (c *Client) endpoint(p string, q url.Values) string {
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + "/" + strings.TrimLeft(p, "/")
	if len(q) > 0 {
		u.RawQuery = q.Encode()
	}
	return u.String()
}

// do sends one request.  in, when non-nil, is JSON-encoded as the body.  out,
// when non-nil, receives the decoded 2xx body.
func (c *Client) do(ctx context.Context, method, p string, q url.Values, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(p, q), body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, ErrSessionExpired) {
			return ErrSessionExpired
		}
		return &TransportError{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return &TransportError{Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		se := &StatusError{Status: resp.StatusCode}
		var env Envelope[json.RawMessage]
		if json.Unmarshal(raw, &env) == nil {
			se.Code, se.Message = env.Error, env.Message
		}
		if se.Message == "" {
			se.Message = http.StatusText(resp.StatusCode)
		}
		return se
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, p, err)
	}
	return nil
}

// rejected turns a 2xx envelope with success=false into a StatusError.
func rejected[T any](status int, env Envelope[T]) error {
	if env.Success {
		return nil
	}
	return &StatusError{Status: status, Code: env.Error, Message: env.Message}
}
