package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

var reduceNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

const reduceMargin = 5 * time.Second

func red(t *testing.T, snap Snapshot, ev event) (Snapshot, []effect) {
	t.Helper()
	return reduce(snap, ev, reduceNow, reduceMargin)
}

func effectKinds(effects []effect) []string {
	kinds := make([]string, 0, len(effects))
	for _, fx := range effects {
		switch fx.(type) {
		case fxLogin:
			kinds = append(kinds, "login")
		case fxRefresh:
			kinds = append(kinds, "refresh")
		case fxFetchProfile:
			kinds = append(kinds, "profile")
		case fxPersist:
			kinds = append(kinds, "persist")
		case fxClear:
			kinds = append(kinds, "clear")
		case fxArmTimer:
			kinds = append(kinds, "arm")
		case fxCancelTimer:
			kinds = append(kinds, "cancel")
		}
	}
	return kinds
}

func freshToken() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  "A1",
		RefreshToken: "R1",
		Expiry:       reduceNow.Add(time.Hour),
	}
}

func TestReduceLoginHappyPath(t *testing.T) {
	snap, fx := red(t, Snapshot{State: StateUnauthenticated}, evLogin{username: "alice", password: "secret"})
	require.Equal(t, StateAuthenticating, snap.State)
	require.Equal(t, []string{"login"}, effectKinds(fx))

	snap, fx = red(t, snap, evLoginOK{tok: freshToken()})
	require.Equal(t, StateAuthenticated, snap.State)
	require.Equal(t, "A1", snap.Token.AccessToken)
	require.Equal(t, []string{"persist", "arm", "profile"}, effectKinds(fx))
}

func TestReduceLoginFailureIsLocal(t *testing.T) {
	snap, _ := red(t, Snapshot{State: StateUnauthenticated}, evLogin{username: "alice", password: "wrong"})
	snap, fx := red(t, snap, evLoginErr{reason: "invalid credentials"})

	require.Equal(t, StateAuthFailed, snap.State)
	require.Equal(t, "invalid credentials", snap.Err)
	require.Empty(t, fx, "persisted credentials must stay untouched on login failure")

	// Retry is allowed from AuthFailed.
	snap, fx = red(t, snap, evLogin{username: "alice", password: "secret"})
	require.Equal(t, StateAuthenticating, snap.State)
	require.Equal(t, []string{"login"}, effectKinds(fx))
	require.Empty(t, snap.Err)
}

func TestReduceSecondLoginIgnoredWhileAuthenticating(t *testing.T) {
	snap, _ := red(t, Snapshot{State: StateUnauthenticated}, evLogin{username: "alice"})
	again, fx := red(t, snap, evLogin{username: "bob"})

	require.Equal(t, snap, again)
	require.Empty(t, fx, "only one authentication attempt may be in flight")
}

func TestReduceAutoLoginValidToken(t *testing.T) {
	snap, fx := red(t, Snapshot{State: StateUnauthenticated}, evAutoLogin{tok: freshToken()})

	require.Equal(t, StateAuthenticated, snap.State)
	require.Equal(t, []string{"arm", "profile"}, effectKinds(fx), "no login or refresh call for a valid persisted token")
}

func TestReduceAutoLoginExpiredTokenRefreshes(t *testing.T) {
	tok := freshToken()
	tok.Expiry = reduceNow.Add(-time.Minute)

	snap, fx := red(t, Snapshot{State: StateUnauthenticated}, evAutoLogin{tok: tok})
	require.Equal(t, StateRefreshing, snap.State)
	require.Equal(t, []string{"refresh"}, effectKinds(fx))
}

func TestReduceAutoLoginWithinMarginRefreshes(t *testing.T) {
	tok := freshToken()
	tok.Expiry = reduceNow.Add(2 * time.Second) // inside the 5s safety margin

	snap, fx := red(t, Snapshot{State: StateUnauthenticated}, evAutoLogin{tok: tok})
	require.Equal(t, StateRefreshing, snap.State)
	require.Equal(t, []string{"refresh"}, effectKinds(fx))
}

func TestReduceAutoLoginNothingPersisted(t *testing.T) {
	snap, fx := red(t, Snapshot{State: StateUnauthenticated}, evAutoLogin{tok: nil})

	require.Equal(t, StateAuthFailed, snap.State)
	require.Empty(t, snap.Err, "auto-login failure is silent")
	require.Empty(t, fx)
}

func TestReduceRefreshJoinsInFlight(t *testing.T) {
	snap := Snapshot{State: StateAuthenticated, Token: freshToken()}

	snap, fx := red(t, snap, evRefreshRequested{})
	require.Equal(t, StateRefreshing, snap.State)
	require.Equal(t, []string{"cancel", "refresh"}, effectKinds(fx), "manual refresh cancels the scheduled timer")

	again, fx := red(t, snap, evRefreshRequested{})
	require.Equal(t, snap, again)
	require.Empty(t, fx, "a second trigger joins the in-flight refresh")
}

func TestReduceRefreshFailureIsTerminal(t *testing.T) {
	snap := Snapshot{State: StateRefreshing, Token: freshToken(), Profile: nil}

	snap, fx := red(t, snap, evRefreshErr{reason: "refresh token rejected"})
	require.Equal(t, StateUnauthenticated, snap.State)
	require.Nil(t, snap.Token)
	require.Empty(t, snap.Err, "forced logout shows no alarming error")
	require.Equal(t, []string{"cancel", "clear"}, effectKinds(fx))
}

func TestReduceLogoutFromAnyState(t *testing.T) {
	for _, state := range []State{StateUnauthenticated, StateAuthenticating, StateAuthenticated, StateRefreshing, StateAuthFailed} {
		snap, fx := red(t, Snapshot{State: state, Token: freshToken()}, evLogout{})
		require.Equal(t, StateUnauthenticated, snap.State, "logout from %s", state)
		require.Nil(t, snap.Token)
		require.Equal(t, []string{"cancel", "clear"}, effectKinds(fx))
	}
}

func TestReduceProfileFailureKeepsTokenNoPrivilege(t *testing.T) {
	snap := Snapshot{State: StateAuthenticated, Token: freshToken()}

	snap, _ = red(t, snap, evProfileErr{reason: "profile fetch failed"})
	require.Equal(t, StateAuthenticated, snap.State)
	require.NotNil(t, snap.Token)
	require.Nil(t, snap.Profile)
	require.False(t, snap.HasRole("admin"))
	require.False(t, snap.HasRole("user"), "absent profile grants no privilege at all")
}
