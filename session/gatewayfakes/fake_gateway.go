package gatewayfakes

import (
	"context"
	"sync"

	"golang.org/x/oauth2"

	"github.com/receipttrack/receipttrack-go/api"
	"github.com/receipttrack/receipttrack-go/session"
)

var _ session.Gateway = (*FakeGateway)(nil)

// FakeGateway is a scriptable session.Gateway for tests. Behaviour is set
// through the *Fn fields; call counts are tracked per endpoint.
type FakeGateway struct {
	lock sync.Mutex

	LoginFn   func(username, password string) (*oauth2.Token, error)
	RefreshFn func(refreshToken string) (*oauth2.Token, error)
	ProfileFn func(accessToken string) (*api.User, error)

	loginCalls   int
	refreshCalls int
	profileCalls int
}

func NewFakeGateway() *FakeGateway {
	return &FakeGateway{}
}

func (fg *FakeGateway) Login(_ context.Context, username, password string) (*oauth2.Token, error) {
	fg.lock.Lock()
	fg.loginCalls++
	fn := fg.LoginFn
	fg.lock.Unlock()

	if fn == nil {
		return &oauth2.Token{AccessToken: "fake-access", RefreshToken: "fake-refresh"}, nil
	}
	return fn(username, password)
}

func (fg *FakeGateway) Refresh(_ context.Context, refreshToken string) (*oauth2.Token, error) {
	fg.lock.Lock()
	fg.refreshCalls++
	fn := fg.RefreshFn
	fg.lock.Unlock()

	if fn == nil {
		return &oauth2.Token{AccessToken: "fake-access-2", RefreshToken: "fake-refresh-2"}, nil
	}
	return fn(refreshToken)
}

func (fg *FakeGateway) FetchProfile(_ context.Context, accessToken string) (*api.User, error) {
	fg.lock.Lock()
	fg.profileCalls++
	fn := fg.ProfileFn
	fg.lock.Unlock()

	if fn == nil {
		return &api.User{ID: 1, Username: "fake", Roles: []string{"user"}}, nil
	}
	return fn(accessToken)
}

func (fg *FakeGateway) LoginCalls() int {
	fg.lock.Lock()
	defer fg.lock.Unlock()
	return fg.loginCalls
}

func (fg *FakeGateway) RefreshCalls() int {
	fg.lock.Lock()
	defer fg.lock.Unlock()
	return fg.refreshCalls
}

func (fg *FakeGateway) ProfileCalls() int {
	fg.lock.Lock()
	defer fg.lock.Unlock()
	return fg.profileCalls
}
