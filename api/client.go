// Package api is a typed client for the ReceiptTracker REST backend.
//
// The backend is treated as a black-box HTTP API. Authentication endpoints
// are exposed through AuthClient methods that take credentials explicitly;
// everything else relies on the http.Client (usually wrapped by the
// authorizer transport) to attach bearer credentials.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	apperrors "github.com/receipttrack/receipttrack-go/internal/errors"
)

// Client issues requests against the ReceiptTracker backend.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	log     zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client. This is how the request
// authorizer transport is installed.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithLogger sets the client logger.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) {
		c.log = log
	}
}

// New creates a Client for the backend at baseURL.
func New(baseURL string, options ...Option) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("[api.New] baseURL is required")
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, errors.Wrap(err, "[api.New] parse baseURL")
	}

	client := &Client{
		baseURL: u,
		http:    http.DefaultClient,
		log:     zerolog.Nop(),
	}
	for _, opt := range options {
		opt(client)
	}
	return client, nil
}

// APIError is a non-2xx backend response. Detail carries the backend's
// human-readable explanation when present. Well-known statuses unwrap to
// the matching sentinel (401 ErrNotAuthenticated, or ErrTokenExpired when
// the backend names JWT expiry, 403 ErrForbidden, 404 ErrNotFound) so
// callers can use errors.Is.
type APIError struct {
	StatusCode int
	Detail     string

	sentinel error
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("api: unexpected status %d", e.StatusCode)
	}
	return fmt.Sprintf("api: status %d: %s", e.StatusCode, e.Detail)
}

func (e *APIError) Unwrap() error {
	return e.sentinel
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	if query != nil {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body io.Reader, contentType string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, query), body)
	if err != nil {
		return nil, errors.Wrapf(err, "[api] build %s %s", method, path)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (c *Client) newJSONRequest(ctx context.Context, method, path string, query url.Values, payload any) (*http.Request, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrapf(err, "[api] marshal %s %s payload", method, path)
	}
	return c.newRequest(ctx, method, path, query, bytes.NewReader(raw), "application/json")
}

// send issues req and decodes a JSON response into out (out may be nil).
func (c *Client) send(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "[api] %s %s", req.Method, req.URL.Path)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.responseError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrapf(err, "[api] decode %s %s response", req.Method, req.URL.Path)
	}
	return nil
}

// tokenExpiredDetail is the exact detail string the backend returns on a
// 401 caused by JWT expiry, as opposed to a bad or missing token.
const tokenExpiredDetail = "Token expired"

func (c *Client) responseError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	var payload struct {
		Detail string `json:"detail"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err == nil {
		apiErr.Detail = payload.Detail
	}
	c.log.Debug().Int("status", resp.StatusCode).Str("detail", apiErr.Detail).Str("path", resp.Request.URL.Path).Msg("api error response")

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		apiErr.sentinel = apperrors.ErrNotAuthenticated
		if apiErr.Detail == tokenExpiredDetail {
			apiErr.sentinel = apperrors.ErrTokenExpired
		}
	case http.StatusForbidden:
		apiErr.sentinel = apperrors.ErrForbidden
	case http.StatusNotFound:
		apiErr.sentinel = apperrors.ErrNotFound
	}
	return apiErr
}
