package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"
)

// withExpiry returns tok with its Expiry populated: from the access token's
// own exp claim when readable, otherwise now + fallback. The server's word
// always wins over an assumed lifetime.
func withExpiry(tok *oauth2.Token, now time.Time, fallback time.Duration) *oauth2.Token {
	if tok == nil {
		return nil
	}
	if !tok.Expiry.IsZero() {
		return tok
	}
	out := *tok
	if exp, err := jwtExpiry(tok.AccessToken); err == nil {
		out.Expiry = exp
	} else {
		out.Expiry = now.Add(fallback)
	}
	return &out
}

// jwtExpiry extracts the exp claim without verifying the signature. The
// client holds no verification key; it only needs the timestamp to schedule
// refresh, and the server re-validates every token anyway.
func jwtExpiry(raw string) (time.Time, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return time.Time{}, errors.Wrap(err, "[jwtExpiry] parse access token")
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, errors.New("[jwtExpiry] access token has no exp claim")
	}
	return exp.Time, nil
}
