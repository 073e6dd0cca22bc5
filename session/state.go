// Package session implements the client-side authentication session
// lifecycle as a state machine over an explicit event-dispatch store.
//
// All session mutation flows through a single pure transition function
// (reduce) applied in event-arrival order; I/O happens only in effect
// handlers whose results come back as events. The Manager owns the store and
// is the one shared mutable resource of the client.
package session

import (
	"time"

	"golang.org/x/oauth2"

	"github.com/receipttrack/receipttrack-go/api"
)

// State is the authentication lifecycle state.
type State int

const (
	StateUnauthenticated State = iota
	StateAuthenticating
	StateAuthenticated
	StateRefreshing
	StateAuthFailed
)

func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAuthenticating:
		return "authenticating"
	case StateAuthenticated:
		return "authenticated"
	case StateRefreshing:
		return "refreshing"
	case StateAuthFailed:
		return "auth_failed"
	}
	return "unknown"
}

// Snapshot is an immutable view of the session, safe to hand to consumers.
type Snapshot struct {
	State   State
	Token   *oauth2.Token // access/refresh tokens and expiry; nil before login
	Profile *api.User     // present only after a successful profile fetch
	Err     string        // user-facing error; empty for silent failures
}

// Authenticated reports whether the session holds usable credentials.
func (s Snapshot) Authenticated() bool {
	return s.State == StateAuthenticated
}

// AccessToken returns the current access token, or "" when absent. Reads are
// synchronous: the authorizer must never block request issuance on this.
func (s Snapshot) AccessToken() string {
	if s.Token == nil {
		return ""
	}
	if s.State != StateAuthenticated && s.State != StateRefreshing {
		return ""
	}
	return s.Token.AccessToken
}

// HasRole reports whether the authenticated user carries the named role. An
// absent profile grants no privilege, even when the session holds a token.
func (s Snapshot) HasRole(role string) bool {
	if !s.Authenticated() || s.Profile == nil {
		return false
	}
	return s.Profile.HasRole(role)
}

// tokenUsable reports whether tok's access token is present and not within
// margin of its expiry at time now.
func tokenUsable(tok *oauth2.Token, now time.Time, margin time.Duration) bool {
	if tok == nil || tok.AccessToken == "" {
		return false
	}
	if tok.Expiry.IsZero() {
		return false
	}
	return now.Before(tok.Expiry.Add(-margin))
}
