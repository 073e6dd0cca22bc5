package session

import (
	"golang.org/x/oauth2"

	"github.com/receipttrack/receipttrack-go/api"
)

// event is the tagged union processed by reduce. External triggers (login,
// logout, auto-login, refresh requests) and effect results (token responses,
// profile fetches) are both events; nothing else mutates the session.
type event interface {
	isEvent()
}

// staleable marks effect-result events that must be dropped when the session
// epoch has moved on (e.g. a refresh settling after logout).
type staleable interface {
	eventEpoch() uint64
}

// evLogin starts an authentication attempt with typed (or biometric-released)
// credentials.
type evLogin struct {
	username string
	password string
}

// evAutoLogin carries the persisted token record read at process start; tok
// is nil when nothing usable was persisted.
type evAutoLogin struct {
	tok *oauth2.Token
}

// evRefreshRequested asks for a refresh (timer fire, 401 response, or manual
// trigger). Ignored while a refresh is already in flight: concurrent
// triggers join the same attempt.
type evRefreshRequested struct {
	epoch uint64
}

// evLogout tears the session down from any state.
type evLogout struct{}

type evLoginOK struct {
	epoch uint64
	tok   *oauth2.Token
}

type evLoginErr struct {
	epoch  uint64
	reason string
}

type evRefreshOK struct {
	epoch uint64
	tok   *oauth2.Token
}

type evRefreshErr struct {
	epoch  uint64
	reason string
}

type evProfileOK struct {
	epoch uint64
	user  *api.User
}

type evProfileErr struct {
	epoch  uint64
	reason string
}

func (evLogin) isEvent()            {}
func (evAutoLogin) isEvent()        {}
func (evRefreshRequested) isEvent() {}
func (evLogout) isEvent()           {}
func (evLoginOK) isEvent()          {}
func (evLoginErr) isEvent()         {}
func (evRefreshOK) isEvent()        {}
func (evRefreshErr) isEvent()       {}
func (evProfileOK) isEvent()        {}
func (evProfileErr) isEvent()       {}

func (e evRefreshRequested) eventEpoch() uint64 { return e.epoch }
func (e evLoginOK) eventEpoch() uint64          { return e.epoch }
func (e evLoginErr) eventEpoch() uint64         { return e.epoch }
func (e evRefreshOK) eventEpoch() uint64        { return e.epoch }
func (e evRefreshErr) eventEpoch() uint64       { return e.epoch }
func (e evProfileOK) eventEpoch() uint64        { return e.epoch }
func (e evProfileErr) eventEpoch() uint64       { return e.epoch }
