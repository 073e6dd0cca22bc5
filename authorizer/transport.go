// Package authorizer attaches session credentials to outgoing API calls and
// reacts to authorization failures by triggering re-authentication.
package authorizer

import (
	"context"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/receipttrack/receipttrack-go/api"
)

// Session is the slice of the session manager the authorizer needs: a
// synchronous token read, a joinable refresh, and a forced teardown.
type Session interface {
	AccessToken() string
	AwaitRefresh(ctx context.Context) (string, error)
	ForceLogout()
}

// Transport is an http.RoundTripper that bearer-authorizes every request
// except the credential endpoints themselves. On a 401/403 response it
// refreshes and retries exactly once per original request; concurrent
// failures queue behind the single in-flight refresh inside the session
// manager. A second authorization failure propagates and tears the session
// down.
type Transport struct {
	base    http.RoundTripper
	session Session
	limiter *rate.Limiter
	log     zerolog.Logger
}

// Option configures a Transport.
type Option func(*Transport)

// WithBase sets the underlying round tripper (default http.DefaultTransport).
func WithBase(rt http.RoundTripper) Option {
	return func(t *Transport) {
		t.base = rt
	}
}

// WithRateLimit applies a client-side request rate limit.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(t *Transport) {
		t.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithLogger sets the transport logger.
func WithLogger(log zerolog.Logger) Option {
	return func(t *Transport) {
		t.log = log
	}
}

// New creates a Transport bound to session.
func New(session Session, options ...Option) *Transport {
	t := &Transport{
		base:    http.DefaultTransport,
		session: session,
		log:     zerolog.Nop(),
	}
	for _, opt := range options {
		opt(t)
	}
	return t
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if api.IsCredentialEndpoint(req.URL.Path) {
		return t.base.RoundTrip(req)
	}
	if t.limiter != nil {
		if err := t.limiter.Wait(req.Context()); err != nil {
			return nil, err
		}
	}

	token := t.session.AccessToken()
	resp, err := t.base.RoundTrip(t.authorized(req, token))
	if err != nil || !authFailure(resp.StatusCode) {
		return resp, err
	}
	if !rewindable(req) {
		return resp, nil
	}

	// Another request may already have refreshed the token underneath this
	// one; retrying with the newer token avoids a pointless refresh.
	fresh := t.session.AccessToken()
	if fresh == "" || fresh == token {
		fresh, err = t.session.AwaitRefresh(req.Context())
		if err != nil {
			// Refresh rejection already tore the session down; surface the
			// original denial.
			t.log.Debug().Err(err).Str("path", req.URL.Path).Msg("refresh after authorization failure did not yield a token")
			return resp, nil
		}
	}

	drain(resp)
	retry := t.authorized(req, fresh)
	if req.Body != nil {
		body, berr := req.GetBody()
		if berr != nil {
			return resp, nil
		}
		retry.Body = body
	}

	resp2, err := t.base.RoundTrip(retry)
	if err != nil {
		return nil, err
	}
	if authFailure(resp2.StatusCode) {
		t.log.Warn().Str("path", req.URL.Path).Int("status", resp2.StatusCode).Msg("authorization denied after refresh, forcing logout")
		t.session.ForceLogout()
	}
	return resp2, nil
}

// authorized clones req with a bearer credential and a fresh request ID.
// RoundTrippers must never mutate the caller's request.
func (t *Transport) authorized(req *http.Request, token string) *http.Request {
	out := req.Clone(req.Context())
	out.Header.Set("X-Request-ID", uuid.New().String())
	if token != "" {
		out.Header.Set("Authorization", "Bearer "+token)
	}
	return out
}

func authFailure(status int) bool {
	return status == http.StatusUnauthorized || status == http.StatusForbidden
}

// rewindable reports whether req's body can be replayed for a retry.
func rewindable(req *http.Request) bool {
	return req.Body == nil || req.GetBody != nil
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}
