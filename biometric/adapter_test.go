package biometric_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/receipttrack/receipttrack-go/biometric"
	"github.com/receipttrack/receipttrack-go/biometric/verifierfakes"
	"github.com/receipttrack/receipttrack-go/credstore/credstorefakes"
	apperrors "github.com/receipttrack/receipttrack-go/internal/errors"
)

func setupAdapter(t *testing.T) (*biometric.Adapter, *verifierfakes.FakeVerifier) {
	t.Helper()
	verifier := verifierfakes.NewFakeVerifier()
	adapter, err := biometric.NewAdapter(credstorefakes.NewFakeStore(), verifier, "ReceiptTracker")
	require.NoError(t, err)
	return adapter, verifier
}

func TestEnrollUnlockRoundTrip(t *testing.T) {
	adapter, verifier := setupAdapter(t)

	require.False(t, adapter.Enrolled())
	require.NoError(t, adapter.Enroll("alice", "secret"))
	require.True(t, adapter.Enrolled())

	username, secret, err := adapter.Credentials(context.Background())
	require.NoError(t, err)
	require.Equal(t, "alice", username)
	require.Equal(t, "secret", secret)
	require.Equal(t, 1, verifier.PromptCalls(), "unlock requires exactly one assertion")
}

func TestUnlockWithoutEnrollment(t *testing.T) {
	adapter, verifier := setupAdapter(t)

	_, _, err := adapter.Credentials(context.Background())
	require.ErrorIs(t, err, apperrors.ErrNotEnrolled)
	require.Zero(t, verifier.PromptCalls(), "no prompt when nothing is enrolled")
}

func TestUnlockDeniedReleasesNothing(t *testing.T) {
	adapter, verifier := setupAdapter(t)
	require.NoError(t, adapter.Enroll("alice", "secret"))

	verifier.PromptErr = apperrors.ErrBiometricDenied
	_, _, err := adapter.Credentials(context.Background())
	require.ErrorIs(t, err, apperrors.ErrBiometricDenied)

	verifier.PromptErr = apperrors.ErrBiometricCancelled
	_, _, err = adapter.Credentials(context.Background())
	require.ErrorIs(t, err, apperrors.ErrBiometricCancelled)
}

func TestUnlockUnavailablePlatform(t *testing.T) {
	adapter, verifier := setupAdapter(t)
	require.NoError(t, adapter.Enroll("alice", "secret"))

	verifier.IsAvailable = false
	_, _, err := adapter.Credentials(context.Background())
	require.ErrorIs(t, err, apperrors.ErrBiometricUnavailable)
}

func TestDeleteRemovesEnrollment(t *testing.T) {
	adapter, _ := setupAdapter(t)
	require.NoError(t, adapter.Enroll("alice", "secret"))

	require.NoError(t, adapter.Delete())
	require.False(t, adapter.Enrolled())

	// Deleting again is a no-op, not an error.
	require.NoError(t, adapter.Delete())
}
