package config

import "time"

type AuthConfig interface {
	GetSafetyMargin() time.Duration
	GetDefaultTokenLifetime() time.Duration
}

type Auth struct{}

var _ AuthConfig = Auth{}

// GetSafetyMargin is subtracted from token expiry so refresh happens before the
// token actually lapses. Absorbs clock skew and request latency.
func (Auth) GetSafetyMargin() time.Duration {
	return 5 * time.Second
}

// GetDefaultTokenLifetime is the assumed access token lifetime when the token
// itself does not carry a readable expiry claim.
func (Auth) GetDefaultTokenLifetime() time.Duration {
	return durationEnv("TOKEN_LIFETIME", 1*time.Hour)
}
