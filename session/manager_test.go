package session_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/receipttrack/receipttrack-go/api"
	"github.com/receipttrack/receipttrack-go/biometric"
	"github.com/receipttrack/receipttrack-go/biometric/verifierfakes"
	"github.com/receipttrack/receipttrack-go/credstore"
	"github.com/receipttrack/receipttrack-go/credstore/credstorefakes"
	apperrors "github.com/receipttrack/receipttrack-go/internal/errors"
	"github.com/receipttrack/receipttrack-go/session"
	"github.com/receipttrack/receipttrack-go/session/gatewayfakes"
)

const (
	testUsername = "alice"
	testPassword = "secret"
	testServer   = "ReceiptTracker"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// fakeTimers records armed refresh timers and lets tests fire them manually.
type fakeTimers struct {
	mu    sync.Mutex
	armed []*fakeTimer
}

type fakeTimer struct {
	d         time.Duration
	fire      func()
	cancelled bool
}

func (ft *fakeTimers) New(d time.Duration, fire func()) func() {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	timer := &fakeTimer{d: d, fire: fire}
	ft.armed = append(ft.armed, timer)
	return func() {
		ft.mu.Lock()
		defer ft.mu.Unlock()
		timer.cancelled = true
	}
}

func (ft *fakeTimers) count() int {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	return len(ft.armed)
}

func (ft *fakeTimers) at(i int) *fakeTimer {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	return ft.armed[i]
}

type testFixture struct {
	gateway *gatewayfakes.FakeGateway
	store   *credstorefakes.FakeStore
	timers  *fakeTimers
	mgr     *session.Manager
}

func setupTestFixture(t *testing.T, options ...session.Option) *testFixture {
	t.Helper()

	gw := gatewayfakes.NewFakeGateway()
	store := credstorefakes.NewFakeStore()
	timers := &fakeTimers{}

	options = append([]session.Option{
		session.WithNowTime(func() time.Time { return testNow }),
		session.WithTimerFunc(timers.New),
	}, options...)

	mgr, err := session.NewManager(gw, store, options...)
	require.NoError(t, err)
	t.Cleanup(mgr.Close)

	return &testFixture{gateway: gw, store: store, timers: timers, mgr: mgr}
}

// signedToken issues a JWT whose exp claim the session reads for scheduling.
// The signature is irrelevant: the client never verifies it.
func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   testUsername,
		"roles": []string{"user"},
		"exp":   exp.Unix(),
	}).SignedString([]byte("test-signing-key"))
	require.NoError(t, err)
	return raw
}

func (f *testFixture) scriptLogin(t *testing.T, access, refresh string) {
	t.Helper()
	f.gateway.LoginFn = func(username, password string) (*oauth2.Token, error) {
		if username != testUsername || password != testPassword {
			return nil, apperrors.ErrInvalidCredentials
		}
		return &oauth2.Token{AccessToken: access, RefreshToken: refresh}, nil
	}
}

func (f *testFixture) login(t *testing.T) {
	t.Helper()
	require.NoError(t, f.mgr.Login(context.Background(), testUsername, testPassword))
	require.Equal(t, session.StateAuthenticated, f.mgr.Snapshot().State)
}

func TestLoginThenLogoutLeavesNoCredentials(t *testing.T) {
	f := setupTestFixture(t)
	f.scriptLogin(t, signedToken(t, testNow.Add(time.Hour)), "R1")

	// Biometric enrollment must survive logout.
	require.NoError(t, credstore.SaveBiometric(f.store, testServer, &credstore.BiometricRecord{
		Username: testUsername,
		Secret:   testPassword,
	}))

	f.login(t)
	stored, err := credstore.LoadToken(f.store)
	require.NoError(t, err)
	require.Equal(t, "R1", stored.RefreshToken)

	require.NoError(t, f.mgr.Logout(context.Background()))
	require.Equal(t, session.StateUnauthenticated, f.mgr.Snapshot().State)

	_, err = credstore.LoadToken(f.store)
	require.ErrorIs(t, err, apperrors.ErrKeyNotFound)

	rec, err := credstore.LoadBiometric(f.store, testServer)
	require.NoError(t, err)
	require.Equal(t, testUsername, rec.Username)
}

func TestLoginFailureLeavesStoreUntouched(t *testing.T) {
	f := setupTestFixture(t)
	f.scriptLogin(t, "unused", "unused")

	err := f.mgr.Login(context.Background(), testUsername, "wrong-password")
	require.Error(t, err)

	snap := f.mgr.Snapshot()
	require.Equal(t, session.StateAuthFailed, snap.State)
	require.Equal(t, apperrors.ErrInvalidCredentials.Error(), snap.Err)
	require.Zero(t, f.store.SetCalls)

	// The failure is local: the user may retry.
	require.NoError(t, f.mgr.Login(context.Background(), testUsername, testPassword))
}

func TestBiometricLoginMatchesPasswordLogin(t *testing.T) {
	gw := gatewayfakes.NewFakeGateway()
	store := credstorefakes.NewFakeStore()
	timers := &fakeTimers{}

	verifier := verifierfakes.NewFakeVerifier()
	adapter, err := biometric.NewAdapter(store, verifier, testServer)
	require.NoError(t, err)

	mgr, err := session.NewManager(gw, store,
		session.WithNowTime(func() time.Time { return testNow }),
		session.WithTimerFunc(timers.New),
		session.WithUnlocker(adapter),
	)
	require.NoError(t, err)
	t.Cleanup(mgr.Close)

	access := signedToken(t, testNow.Add(time.Hour))
	gw.LoginFn = func(username, password string) (*oauth2.Token, error) {
		if username != testUsername || password != testPassword {
			return nil, apperrors.ErrInvalidCredentials
		}
		return &oauth2.Token{AccessToken: access, RefreshToken: "R1"}, nil
	}

	require.NoError(t, mgr.Login(context.Background(), testUsername, testPassword))
	require.NoError(t, adapter.Enroll(testUsername, testPassword))
	passwordSnap := mgr.Snapshot()
	require.Equal(t, session.StateAuthenticated, passwordSnap.State)

	require.NoError(t, mgr.Logout(context.Background()))
	require.Equal(t, session.StateUnauthenticated, mgr.Snapshot().State)

	require.NoError(t, mgr.BiometricLogin(context.Background()))
	require.Equal(t, 1, verifier.PromptCalls())

	bioSnap := mgr.Snapshot()
	require.Equal(t, session.StateAuthenticated, bioSnap.State)
	require.Equal(t, passwordSnap.AccessToken(), bioSnap.AccessToken())
	require.Equal(t, passwordSnap.Token.RefreshToken, bioSnap.Token.RefreshToken)

	stored, err := credstore.LoadToken(store)
	require.NoError(t, err)
	require.Equal(t, "R1", stored.RefreshToken)

	// A denied assertion leaves the session where it was.
	require.NoError(t, mgr.Logout(context.Background()))
	verifier.PromptErr = apperrors.ErrBiometricDenied
	err = mgr.BiometricLogin(context.Background())
	require.ErrorIs(t, err, apperrors.ErrBiometricDenied)
	require.Equal(t, session.StateUnauthenticated, mgr.Snapshot().State)
}

func TestLoginPopulatesProfileAndRoles(t *testing.T) {
	f := setupTestFixture(t)
	f.scriptLogin(t, "A1", "R1")
	f.gateway.ProfileFn = func(accessToken string) (*api.User, error) {
		if accessToken != "A1" {
			return nil, apperrors.ErrNotAuthenticated
		}
		return &api.User{ID: 1, Username: testUsername, Roles: []string{"user"}}, nil
	}

	f.login(t)
	require.Equal(t, "A1", f.mgr.AccessToken())

	require.Eventually(t, func() bool {
		return f.mgr.Snapshot().Profile != nil
	}, time.Second, 5*time.Millisecond, "profile fetch follows authentication")

	require.True(t, f.mgr.HasRole("user"))
	require.ErrorIs(t, f.mgr.RequireRole("admin"), apperrors.ErrForbidden)
}

func TestProfileFetchFailureGrantsNoPrivilege(t *testing.T) {
	f := setupTestFixture(t)
	f.scriptLogin(t, "A1", "R1")
	f.gateway.ProfileFn = func(string) (*api.User, error) {
		return nil, apperrors.ErrInternal
	}

	f.login(t)

	require.Eventually(t, func() bool {
		return f.gateway.ProfileCalls() == 1
	}, time.Second, 5*time.Millisecond)

	snap := f.mgr.Snapshot()
	require.Equal(t, session.StateAuthenticated, snap.State)
	require.Nil(t, snap.Profile)
	require.ErrorIs(t, f.mgr.RequireRole("user"), apperrors.ErrForbidden)
}

func TestAutoLoginValidTokenNoNetworkCall(t *testing.T) {
	f := setupTestFixture(t)
	require.NoError(t, credstore.SaveToken(f.store, &oauth2.Token{
		AccessToken:  "A1",
		RefreshToken: "R1",
		Expiry:       testNow.Add(30 * time.Minute),
	}))

	require.NoError(t, f.mgr.AutoLogin(context.Background()))

	require.Equal(t, session.StateAuthenticated, f.mgr.Snapshot().State)
	require.Zero(t, f.gateway.LoginCalls())
	require.Zero(t, f.gateway.RefreshCalls())
}

func TestAutoLoginExpiredTokenRefreshesOnce(t *testing.T) {
	f := setupTestFixture(t)
	require.NoError(t, credstore.SaveToken(f.store, &oauth2.Token{
		AccessToken:  "A1",
		RefreshToken: "R1",
		Expiry:       testNow.Add(-time.Minute),
	}))
	rotated := signedToken(t, testNow.Add(time.Hour))
	f.gateway.RefreshFn = func(refreshToken string) (*oauth2.Token, error) {
		if refreshToken != "R1" {
			return nil, apperrors.ErrRefreshRejected
		}
		return &oauth2.Token{AccessToken: rotated, RefreshToken: "R2"}, nil
	}

	require.NoError(t, f.mgr.AutoLogin(context.Background()))

	require.Equal(t, session.StateAuthenticated, f.mgr.Snapshot().State)
	require.Equal(t, 1, f.gateway.RefreshCalls())
	require.Zero(t, f.gateway.LoginCalls(), "auto-login must never replay a login call")

	stored, err := credstore.LoadToken(f.store)
	require.NoError(t, err)
	require.Equal(t, "R2", stored.RefreshToken, "rotated refresh token is persisted")
}

func TestAutoLoginWithoutRecordFailsSilently(t *testing.T) {
	f := setupTestFixture(t)

	err := f.mgr.AutoLogin(context.Background())
	require.ErrorIs(t, err, apperrors.ErrNoStoredCredentials)

	snap := f.mgr.Snapshot()
	require.Equal(t, session.StateAuthFailed, snap.State)
	require.Empty(t, snap.Err, "best-effort auto-login shows no user-visible error")
}

func TestConcurrentRefreshTriggersJoinSingleAttempt(t *testing.T) {
	f := setupTestFixture(t)
	f.scriptLogin(t, signedToken(t, testNow.Add(time.Hour)), "R1")
	f.login(t)

	gate := make(chan struct{})
	f.gateway.RefreshFn = func(string) (*oauth2.Token, error) {
		<-gate
		return &oauth2.Token{AccessToken: "A2", RefreshToken: "R2", Expiry: testNow.Add(time.Hour)}, nil
	}

	var wg sync.WaitGroup
	tokens := make([]string, 2)
	waitErrs := make([]error, 2)
	for i := range tokens {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tokens[i], waitErrs[i] = f.mgr.AwaitRefresh(context.Background())
		}(i)
	}

	require.Eventually(t, func() bool {
		return f.mgr.Snapshot().State == session.StateRefreshing
	}, time.Second, 5*time.Millisecond)
	close(gate)
	wg.Wait()

	require.NoError(t, waitErrs[0])
	require.NoError(t, waitErrs[1])
	require.Equal(t, 1, f.gateway.RefreshCalls(), "concurrent triggers must share one refresh attempt")
	require.Equal(t, "A2", tokens[0])
	require.Equal(t, "A2", tokens[1])
}

func TestRefreshFailureForcesLogoutKeepsBiometric(t *testing.T) {
	f := setupTestFixture(t)
	f.scriptLogin(t, signedToken(t, testNow.Add(time.Hour)), "R1")
	require.NoError(t, credstore.SaveBiometric(f.store, testServer, &credstore.BiometricRecord{
		Username: testUsername,
		Secret:   testPassword,
	}))
	f.login(t)

	f.gateway.RefreshFn = func(string) (*oauth2.Token, error) {
		return nil, apperrors.ErrRefreshRejected
	}

	err := f.mgr.Refresh(context.Background())
	require.ErrorIs(t, err, apperrors.ErrRefreshRejected)

	snap := f.mgr.Snapshot()
	require.Equal(t, session.StateUnauthenticated, snap.State)
	require.Empty(t, snap.Err, "forced logout is silent")

	_, err = credstore.LoadToken(f.store)
	require.ErrorIs(t, err, apperrors.ErrKeyNotFound)

	_, err = credstore.LoadBiometric(f.store, testServer)
	require.NoError(t, err, "biometric credentials survive forced logout")
}

func TestLogoutDiscardsInFlightRefreshResult(t *testing.T) {
	f := setupTestFixture(t)
	f.scriptLogin(t, signedToken(t, testNow.Add(time.Hour)), "R1")
	f.login(t)

	gate := make(chan struct{})
	settled := make(chan struct{})
	f.gateway.RefreshFn = func(string) (*oauth2.Token, error) {
		defer close(settled)
		<-gate
		return &oauth2.Token{AccessToken: "A2", RefreshToken: "R2", Expiry: testNow.Add(time.Hour)}, nil
	}

	go func() { _, _ = f.mgr.AwaitRefresh(context.Background()) }()
	require.Eventually(t, func() bool {
		return f.mgr.Snapshot().State == session.StateRefreshing
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, f.mgr.Logout(context.Background()))
	close(gate)
	<-settled

	// The late refresh result must not re-populate the session.
	require.Eventually(t, func() bool {
		return f.mgr.Snapshot().State == session.StateUnauthenticated
	}, time.Second, 5*time.Millisecond)
	require.Empty(t, f.mgr.AccessToken())
	_, err := credstore.LoadToken(f.store)
	require.ErrorIs(t, err, apperrors.ErrKeyNotFound)
}

func TestRefreshTimerArmedAtExpiryMinusMargin(t *testing.T) {
	f := setupTestFixture(t)
	f.scriptLogin(t, signedToken(t, testNow.Add(time.Minute)), "R1")
	f.login(t)

	require.Equal(t, 1, f.timers.count(), "exactly one single-shot timer per credential record")
	require.Equal(t, 55*time.Second, f.timers.at(0).d)

	f.gateway.RefreshFn = func(string) (*oauth2.Token, error) {
		return &oauth2.Token{AccessToken: "A2", RefreshToken: "R2", Expiry: testNow.Add(2 * time.Minute)}, nil
	}

	f.timers.at(0).fire()
	require.Eventually(t, func() bool {
		return f.mgr.AccessToken() == "A2"
	}, time.Second, 5*time.Millisecond)

	require.Equal(t, 1, f.gateway.RefreshCalls())
	require.Equal(t, 2, f.timers.count(), "refresh success re-arms the timer")
	require.Equal(t, 115*time.Second, f.timers.at(1).d)
}

func TestManualRefreshCancelsScheduledTimer(t *testing.T) {
	f := setupTestFixture(t)
	f.scriptLogin(t, signedToken(t, testNow.Add(time.Hour)), "R1")
	f.login(t)

	f.gateway.RefreshFn = func(string) (*oauth2.Token, error) {
		return &oauth2.Token{AccessToken: "A2", RefreshToken: "R2", Expiry: testNow.Add(time.Hour)}, nil
	}
	require.NoError(t, f.mgr.Refresh(context.Background()))

	require.True(t, f.timers.at(0).cancelled, "manual refresh must not leave the scheduled one to fire")
	require.Equal(t, 1, f.gateway.RefreshCalls())
}

func TestUnsubscribeDuringStateChangeIsSafe(t *testing.T) {
	f := setupTestFixture(t)

	// Hammer the dispatch path while subscriptions come and go: releasing an
	// observer must never crash a concurrent broadcast.
	done := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
					_ = f.mgr.Logout(context.Background())
				}
			}
		}()
	}

	for i := 0; i < 500; i++ {
		updates, release := f.mgr.Subscribe()
		select {
		case <-updates:
		default:
		}
		release()
	}

	close(done)
	wg.Wait()
}

func TestSubscribeObservesLifecycle(t *testing.T) {
	f := setupTestFixture(t)
	f.scriptLogin(t, signedToken(t, testNow.Add(time.Hour)), "R1")

	updates, release := f.mgr.Subscribe()
	defer release()

	f.login(t)

	var seen []session.State
	deadline := time.After(time.Second)
	for len(seen) == 0 || seen[len(seen)-1] != session.StateAuthenticated {
		select {
		case snap := <-updates:
			seen = append(seen, snap.State)
		case <-deadline:
			t.Fatal("timed out waiting for authenticated snapshot")
		}
	}
	require.Contains(t, seen, session.StateAuthenticating)
	require.Contains(t, seen, session.StateAuthenticated)
}
