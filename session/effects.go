package session

import (
	"time"

	"golang.org/x/oauth2"
)

// effect is a side-effect descriptor produced by reduce and executed by the
// Manager. Network effects run asynchronously and report back as events;
// storage and timer effects run inline with dispatch.
type effect interface {
	isEffect()
}

type fxLogin struct {
	username string
	password string
}

type fxRefresh struct {
	refreshToken string
}

type fxFetchProfile struct {
	accessToken string
}

type fxPersist struct {
	tok *oauth2.Token
}

type fxClear struct{}

type fxArmTimer struct {
	expiry time.Time
}

type fxCancelTimer struct{}

func (fxLogin) isEffect()        {}
func (fxRefresh) isEffect()      {}
func (fxFetchProfile) isEffect() {}
func (fxPersist) isEffect()      {}
func (fxClear) isEffect()        {}
func (fxArmTimer) isEffect()     {}
func (fxCancelTimer) isEffect()  {}
