package session

import "time"

// reduce is the pure transition function of the session state machine. It
// never performs I/O: storage writes, network calls, and timer management
// come back as effect descriptors. Events that are invalid in the current
// state leave the snapshot unchanged.
func reduce(snap Snapshot, ev event, now time.Time, margin time.Duration) (Snapshot, []effect) {
	switch ev := ev.(type) {

	case evLogin:
		if snap.State == StateAuthenticating || snap.State == StateRefreshing {
			return snap, nil
		}
		snap.State = StateAuthenticating
		snap.Err = ""
		return snap, []effect{fxLogin{username: ev.username, password: ev.password}}

	case evAutoLogin:
		if snap.State != StateUnauthenticated && snap.State != StateAuthFailed {
			return snap, nil
		}
		switch {
		case ev.tok == nil:
			// Best effort only: no persisted record, no user-visible error.
			snap.State = StateAuthFailed
			snap.Err = ""
			return snap, nil
		case tokenUsable(ev.tok, now, margin):
			snap.State = StateAuthenticated
			snap.Token = ev.tok
			snap.Err = ""
			return snap, []effect{
				fxArmTimer{expiry: ev.tok.Expiry},
				fxFetchProfile{accessToken: ev.tok.AccessToken},
			}
		case ev.tok.RefreshToken != "":
			snap.State = StateRefreshing
			snap.Token = ev.tok
			snap.Err = ""
			return snap, []effect{fxRefresh{refreshToken: ev.tok.RefreshToken}}
		default:
			snap.State = StateAuthFailed
			snap.Err = ""
			return snap, []effect{fxClear{}}
		}

	case evLoginOK:
		if snap.State != StateAuthenticating {
			return snap, nil
		}
		snap.State = StateAuthenticated
		snap.Token = ev.tok
		snap.Err = ""
		return snap, []effect{
			fxPersist{tok: ev.tok},
			fxArmTimer{expiry: ev.tok.Expiry},
			fxFetchProfile{accessToken: ev.tok.AccessToken},
		}

	case evLoginErr:
		if snap.State != StateAuthenticating {
			return snap, nil
		}
		// Local, non-terminal: existing persisted credentials stay untouched
		// and the user may retry.
		snap.State = StateAuthFailed
		snap.Err = ev.reason
		return snap, nil

	case evRefreshRequested:
		switch snap.State {
		case StateRefreshing:
			// Already in flight: the trigger joins the pending attempt.
			return snap, nil
		case StateAuthenticated:
			if snap.Token == nil || snap.Token.RefreshToken == "" {
				return snap, nil
			}
			snap.State = StateRefreshing
			return snap, []effect{
				fxCancelTimer{},
				fxRefresh{refreshToken: snap.Token.RefreshToken},
			}
		default:
			return snap, nil
		}

	case evRefreshOK:
		if snap.State != StateRefreshing {
			return snap, nil
		}
		snap.State = StateAuthenticated
		snap.Token = ev.tok
		snap.Err = ""
		return snap, []effect{
			fxPersist{tok: ev.tok},
			fxArmTimer{expiry: ev.tok.Expiry},
			fxFetchProfile{accessToken: ev.tok.AccessToken},
		}

	case evRefreshErr:
		if snap.State != StateRefreshing {
			return snap, nil
		}
		// Terminal: a rejected refresh token cannot self-heal. Forced logout,
		// silently, the same as "session expired, log in again".
		return Snapshot{State: StateUnauthenticated}, []effect{
			fxCancelTimer{},
			fxClear{},
		}

	case evLogout:
		return Snapshot{State: StateUnauthenticated}, []effect{
			fxCancelTimer{},
			fxClear{},
		}

	case evProfileOK:
		if snap.State != StateAuthenticated && snap.State != StateRefreshing {
			return snap, nil
		}
		snap.Profile = ev.user
		return snap, nil

	case evProfileErr:
		// The session stays authenticated-with-token; an absent profile means
		// role guards deny everything.
		if snap.State != StateAuthenticated && snap.State != StateRefreshing {
			return snap, nil
		}
		snap.Profile = nil
		snap.Err = ev.reason
		return snap, nil
	}

	return snap, nil
}
