package errors

import (
	"errors"
	"fmt"
)

// Common error types for the ReceiptTracker client
var (
	// Authentication errors
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotAuthenticated   = errors.New("not authenticated")
	ErrForbidden          = errors.New("not enough permissions")

	// Token errors
	ErrNoStoredCredentials = errors.New("no stored credentials")
	ErrRefreshRejected     = errors.New("refresh token rejected")
	// ErrTokenExpired chains to ErrNotAuthenticated: an expired token is
	// one way of being unauthenticated, and callers matching the broader
	// sentinel must keep matching.
	ErrTokenExpired = fmt.Errorf("token expired: %w", ErrNotAuthenticated)

	// Biometric errors
	ErrBiometricUnavailable = errors.New("biometric verification unavailable")
	ErrBiometricDenied      = errors.New("biometric verification denied")
	ErrBiometricCancelled   = errors.New("biometric verification cancelled")
	ErrNotEnrolled          = errors.New("biometric credentials not enrolled")

	// Store errors
	ErrKeyNotFound    = errors.New("key not found")
	ErrStoreCorrupted = errors.New("credential store corrupted")

	// General errors
	ErrNotFound = errors.New("not found")
	ErrInternal = errors.New("internal error")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
