package session

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"

	"github.com/receipttrack/receipttrack-go/api"
	"github.com/receipttrack/receipttrack-go/credstore"
	apperrors "github.com/receipttrack/receipttrack-go/internal/errors"
)

// Gateway wraps the backend's authentication endpoints. It is stateless; the
// Manager owns all session state.
type Gateway interface {
	Login(ctx context.Context, username, password string) (*oauth2.Token, error)
	Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error)
	FetchProfile(ctx context.Context, accessToken string) (*api.User, error)
}

// Unlocker releases biometric-gated credentials after a platform identity
// assertion. See the biometric package.
type Unlocker interface {
	Credentials(ctx context.Context) (username, secret string, err error)
}

var _ Gateway = (*api.Client)(nil)

// TimerFunc schedules fire after d and returns a cancel function. fire must
// not be invoked synchronously from within TimerFunc itself. Injectable for
// tests.
type TimerFunc func(d time.Duration, fire func()) (cancel func())

func defaultTimer(d time.Duration, fire func()) (cancel func()) {
	t := time.AfterFunc(d, fire)
	return func() { t.Stop() }
}

// Manager owns the session. It is created by the application root and passed
// explicitly to whatever needs to read or dispatch against it; there is no
// package-level instance.
//
// Every mutation goes through dispatch, which applies the pure reducer under
// a single lock in event-arrival order and then executes the produced
// effects. Effect results come back as events carrying the epoch they were
// launched under; results from a torn-down session generation are dropped,
// so a refresh settling after logout can never silently re-populate
// credentials.
type Manager struct {
	gateway  Gateway
	store    credstore.Store
	unlocker Unlocker
	log      zerolog.Logger

	nowTime          func() time.Time
	newTimer         TimerFunc
	margin           time.Duration
	fallbackLifetime time.Duration

	mu          sync.Mutex
	cond        *sync.Cond
	snap        Snapshot
	epoch       uint64
	cancelTimer func()
	subs        map[uint64]chan Snapshot
	nextSubID   uint64
}

// Option configures a Manager.
type Option func(*Manager)

// WithNowTime sets the clock (primarily for testing).
func WithNowTime(nowFunc func() time.Time) Option {
	return func(m *Manager) {
		m.nowTime = nowFunc
	}
}

// WithTimerFunc sets the refresh timer factory (primarily for testing).
func WithTimerFunc(fn TimerFunc) Option {
	return func(m *Manager) {
		m.newTimer = fn
	}
}

// WithUnlocker enables biometric login through the given unlocker.
func WithUnlocker(u Unlocker) Option {
	return func(m *Manager) {
		m.unlocker = u
	}
}

// WithLogger sets the Manager logger.
func WithLogger(log zerolog.Logger) Option {
	return func(m *Manager) {
		m.log = log
	}
}

// WithSafetyMargin overrides the buffer subtracted from token expiry when
// scheduling refresh.
func WithSafetyMargin(d time.Duration) Option {
	return func(m *Manager) {
		m.margin = d
	}
}

// WithFallbackLifetime overrides the assumed access token lifetime used when
// a token carries no readable expiry.
func WithFallbackLifetime(d time.Duration) Option {
	return func(m *Manager) {
		m.fallbackLifetime = d
	}
}

// NewManager creates a Manager in the Unauthenticated state.
func NewManager(gateway Gateway, store credstore.Store, options ...Option) (*Manager, error) {
	if gateway == nil {
		return nil, errors.New("[NewManager] gateway is required")
	}
	if store == nil {
		return nil, errors.New("[NewManager] credential store is required")
	}

	m := &Manager{
		gateway:          gateway,
		store:            store,
		log:              zerolog.Nop(),
		nowTime:          time.Now,
		newTimer:         defaultTimer,
		margin:           5 * time.Second,
		fallbackLifetime: 1 * time.Hour,
		snap:             Snapshot{State: StateUnauthenticated},
		subs:             make(map[uint64]chan Snapshot),
	}
	m.cond = sync.NewCond(&m.mu)

	for _, opt := range options {
		opt(m)
	}
	return m, nil
}

// Snapshot returns the current session view.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap
}

// AccessToken returns the current access token synchronously, or "" when the
// session holds none.
func (m *Manager) AccessToken() string {
	return m.Snapshot().AccessToken()
}

// HasRole reports whether the authenticated user carries the named role.
func (m *Manager) HasRole(role string) bool {
	return m.Snapshot().HasRole(role)
}

// RequireRole returns ErrForbidden unless the authenticated user carries the
// named role. An absent profile never grants privilege.
func (m *Manager) RequireRole(role string) error {
	if !m.HasRole(role) {
		return errors.Wrapf(apperrors.ErrForbidden, "[Manager.RequireRole] role %q", role)
	}
	return nil
}

// Subscribe registers a session observer. Snapshots are delivered
// best-effort: a slow consumer misses intermediate states, never the channel.
// The returned release function must be called when the consumer goes away.
func (m *Manager) Subscribe() (<-chan Snapshot, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextSubID
	m.nextSubID++
	ch := make(chan Snapshot, 8)
	m.subs[id] = ch

	var once sync.Once
	release := func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			delete(m.subs, id)
			close(ch)
		})
	}
	return ch, release
}

// Login authenticates with typed credentials. Exactly one authentication
// request is issued; on failure existing persisted credentials are left
// untouched and the caller may retry. Cancelling ctx abandons the wait but
// not the attempt: the result is still applied when it arrives.
func (m *Manager) Login(ctx context.Context, username, password string) error {
	m.mu.Lock()
	switch m.snap.State {
	case StateAuthenticating, StateRefreshing:
		m.mu.Unlock()
		return errors.New("[Manager.Login] authentication already in progress")
	case StateAuthenticated:
		m.mu.Unlock()
		return errors.New("[Manager.Login] already authenticated, log out first")
	}
	m.mu.Unlock()

	m.dispatch(evLogin{username: username, password: password})

	snap, err := m.await(ctx, func(s Snapshot) bool { return s.State != StateAuthenticating })
	if err != nil {
		return err
	}
	if snap.State == StateAuthenticated {
		return nil
	}
	if snap.Err != "" {
		return errors.New(snap.Err)
	}
	return apperrors.ErrInvalidCredentials
}

// AutoLogin restores the session from the persisted credential record at
// process start. A persisted unexpired access token authenticates without
// any token endpoint call; an expired one with a refresh token triggers
// exactly one refresh. Failure is silent: callers fall back to manual login.
func (m *Manager) AutoLogin(ctx context.Context) error {
	tok, err := credstore.LoadToken(m.store)
	if err != nil && !apperrors.Is(err, apperrors.ErrKeyNotFound) {
		m.log.Warn().Err(err).Msg("auto-login: unreadable credential record")
		tok = nil
	}

	m.dispatch(evAutoLogin{tok: tok})

	snap, err := m.await(ctx, func(s Snapshot) bool { return s.State != StateRefreshing })
	if err != nil {
		return err
	}
	if snap.State == StateAuthenticated {
		return nil
	}
	return apperrors.ErrNoStoredCredentials
}

// BiometricLogin authenticates by releasing enrolled credentials through the
// platform biometric gate and feeding them into the normal login flow. An
// assertion failure or cancellation leaves the session untouched.
func (m *Manager) BiometricLogin(ctx context.Context) error {
	if m.unlocker == nil {
		return apperrors.ErrBiometricUnavailable
	}
	username, secret, err := m.unlocker.Credentials(ctx)
	if err != nil {
		return errors.Wrap(err, "[Manager.BiometricLogin]")
	}
	return m.Login(ctx, username, secret)
}

// Refresh renews the access token, joining the in-flight attempt when one
// exists. A rejected refresh tears the session down.
func (m *Manager) Refresh(ctx context.Context) error {
	_, err := m.AwaitRefresh(ctx)
	return err
}

// AwaitRefresh triggers a refresh (or joins the one already in flight) and
// returns the fresh access token. At most one refresh request is ever in
// flight; every concurrent caller waits on the same attempt.
func (m *Manager) AwaitRefresh(ctx context.Context) (string, error) {
	m.mu.Lock()
	switch m.snap.State {
	case StateAuthenticated:
		epoch := m.epoch
		m.mu.Unlock()
		m.dispatch(evRefreshRequested{epoch: epoch})
	case StateRefreshing:
		m.mu.Unlock()
	default:
		m.mu.Unlock()
		return "", apperrors.ErrNotAuthenticated
	}

	snap, err := m.await(ctx, func(s Snapshot) bool { return s.State != StateRefreshing })
	if err != nil {
		return "", err
	}
	if snap.State == StateAuthenticated && snap.Token != nil {
		return snap.Token.AccessToken, nil
	}
	return "", apperrors.ErrRefreshRejected
}

// Logout tears the session down from any state and clears the persisted
// credential record. Biometric credentials are untouched. Any in-flight
// authentication or refresh result is discarded when it settles.
func (m *Manager) Logout(ctx context.Context) error {
	m.dispatch(evLogout{})
	return nil
}

// ForceLogout is Logout for non-interactive callers (the request authorizer
// after a post-refresh authorization failure).
func (m *Manager) ForceLogout() {
	m.dispatch(evLogout{})
}

// Close releases the refresh timer. The Manager must not be used afterwards.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancelTimer != nil {
		m.cancelTimer()
		m.cancelTimer = nil
	}
}

// dispatch applies ev through the reducer under the session lock and then
// executes the produced effects. Stale effect results are dropped here.
//
// Storage and timer effects are applied before waiters are woken: a caller
// returning from Login or Refresh must observe the persisted record and the
// armed timer. Network effects run in their own goroutines and report back
// as events.
func (m *Manager) dispatch(ev event) {
	m.mu.Lock()
	if st, ok := ev.(staleable); ok && st.eventEpoch() != m.epoch {
		m.mu.Unlock()
		m.log.Debug().Uint64("event_epoch", st.eventEpoch()).Msg("dropping stale session event")
		return
	}

	prev := m.snap
	next, effects := reduce(m.snap, ev, m.nowTime(), m.margin)
	m.snap = next
	if next.State == StateUnauthenticated && prev.State != StateUnauthenticated {
		m.epoch++
	}
	epoch := m.epoch

	var network []effect
	for _, fx := range effects {
		switch fx := fx.(type) {
		case fxPersist:
			if err := credstore.SaveToken(m.store, fx.tok); err != nil {
				m.log.Error().Err(err).Msg("persisting credential record failed")
			}
		case fxClear:
			if err := credstore.ClearToken(m.store); err != nil {
				m.log.Error().Err(err).Msg("clearing credential record failed")
			}
		case fxArmTimer:
			m.armTimerLocked(fx.expiry, epoch)
		case fxCancelTimer:
			m.stopTimerLocked()
		default:
			network = append(network, fx)
		}
	}
	m.cond.Broadcast()

	// Observer sends happen under the lock so they serialize with Subscribe's
	// release closing the channel. Sends never block: a slow consumer misses
	// intermediate states instead of stalling dispatch.
	for _, ch := range m.subs {
		select {
		case ch <- next:
		default:
		}
	}
	m.mu.Unlock()

	if prev.State != next.State {
		m.log.Debug().Stringer("from", prev.State).Stringer("to", next.State).Msg("session state change")
	}

	for _, fx := range network {
		switch fx := fx.(type) {
		case fxLogin:
			go m.doLogin(fx, epoch)
		case fxRefresh:
			go m.doRefresh(fx, epoch)
		case fxFetchProfile:
			go m.doFetchProfile(fx, epoch)
		}
	}
}

func (m *Manager) doLogin(fx fxLogin, epoch uint64) {
	tok, err := m.gateway.Login(context.Background(), fx.username, fx.password)
	if err != nil {
		m.dispatch(evLoginErr{epoch: epoch, reason: loginFailureReason(err)})
		return
	}
	m.dispatch(evLoginOK{epoch: epoch, tok: withExpiry(tok, m.nowTime(), m.fallbackLifetime)})
}

func (m *Manager) doRefresh(fx fxRefresh, epoch uint64) {
	tok, err := m.gateway.Refresh(context.Background(), fx.refreshToken)
	if err != nil {
		m.log.Warn().Err(err).Msg("token refresh failed, forcing logout")
		m.dispatch(evRefreshErr{epoch: epoch, reason: err.Error()})
		return
	}
	m.dispatch(evRefreshOK{epoch: epoch, tok: withExpiry(tok, m.nowTime(), m.fallbackLifetime)})
}

func (m *Manager) doFetchProfile(fx fxFetchProfile, epoch uint64) {
	user, err := m.gateway.FetchProfile(context.Background(), fx.accessToken)
	if err != nil {
		m.log.Warn().Err(err).Msg("profile fetch failed, session stays token-only")
		m.dispatch(evProfileErr{epoch: epoch, reason: err.Error()})
		return
	}
	m.dispatch(evProfileOK{epoch: epoch, user: user})
}

// armTimerLocked schedules a single-shot refresh at expiry minus the safety
// margin. A previously armed timer is always replaced. Called with m.mu held;
// the TimerFunc contract (fire never invoked synchronously) keeps this
// deadlock-free.
func (m *Manager) armTimerLocked(expiry time.Time, epoch uint64) {
	d := expiry.Sub(m.nowTime()) - m.margin
	if d < 0 {
		d = 0
	}

	if m.cancelTimer != nil {
		m.cancelTimer()
	}
	m.cancelTimer = m.newTimer(d, func() {
		m.dispatch(evRefreshRequested{epoch: epoch})
	})
}

// stopTimerLocked is called with m.mu held.
func (m *Manager) stopTimerLocked() {
	if m.cancelTimer != nil {
		m.cancelTimer()
		m.cancelTimer = nil
	}
}

// await blocks until the session satisfies done or ctx is cancelled.
func (m *Manager) await(ctx context.Context, done func(Snapshot) bool) (Snapshot, error) {
	stop := context.AfterFunc(ctx, func() {
		m.mu.Lock()
		m.cond.Broadcast()
		m.mu.Unlock()
	})
	defer stop()

	m.mu.Lock()
	defer m.mu.Unlock()
	for !done(m.snap) {
		if err := ctx.Err(); err != nil {
			return m.snap, err
		}
		m.cond.Wait()
	}
	return m.snap, nil
}

func loginFailureReason(err error) string {
	if apperrors.Is(err, apperrors.ErrInvalidCredentials) {
		return apperrors.ErrInvalidCredentials.Error()
	}
	return err.Error()
}
