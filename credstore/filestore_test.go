package credstore_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/receipttrack/receipttrack-go/credstore"
	apperrors "github.com/receipttrack/receipttrack-go/internal/errors"
)

func openStore(t *testing.T, dir, passphrase string) *credstore.FileStore {
	t.Helper()
	store, err := credstore.NewFileStore(filepath.Join(dir, "credentials.enc"), passphrase)
	require.NoError(t, err)
	return store
}

func TestFileStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store := openStore(t, dir, "passphrase")

	require.NoError(t, store.Set("session", "token", []byte("v1")))

	value, err := store.Get("session", "token")
	require.NoError(t, err)
	require.Equal(t, []byte("v1"), value)

	_, err = store.Get("session", "missing")
	require.ErrorIs(t, err, apperrors.ErrKeyNotFound)
	_, err = store.Get("missing", "token")
	require.ErrorIs(t, err, apperrors.ErrKeyNotFound)
}

func TestFileStoreSurvivesReopen(t *testing.T) {
	dir := t.TempDir()

	store := openStore(t, dir, "passphrase")
	tok := &oauth2.Token{
		AccessToken:  "A1",
		RefreshToken: "R1",
		Expiry:       time.Date(2026, 3, 1, 13, 0, 0, 0, time.UTC),
	}
	require.NoError(t, credstore.SaveToken(store, tok))

	reopened := openStore(t, dir, "passphrase")
	loaded, err := credstore.LoadToken(reopened)
	require.NoError(t, err)
	require.Equal(t, "A1", loaded.AccessToken)
	require.Equal(t, "R1", loaded.RefreshToken)
	require.True(t, tok.Expiry.Equal(loaded.Expiry))
}

func TestFileStoreWrongPassphrase(t *testing.T) {
	dir := t.TempDir()

	store := openStore(t, dir, "correct")
	require.NoError(t, store.Set("session", "token", []byte("v1")))

	_, err := credstore.NewFileStore(filepath.Join(dir, "credentials.enc"), "wrong")
	require.ErrorIs(t, err, apperrors.ErrStoreCorrupted)
}

func TestNamespacesAreIndependent(t *testing.T) {
	dir := t.TempDir()
	store := openStore(t, dir, "passphrase")

	require.NoError(t, credstore.SaveToken(store, &oauth2.Token{AccessToken: "A1"}))
	require.NoError(t, credstore.SaveBiometric(store, "ReceiptTracker", &credstore.BiometricRecord{
		Username: "alice",
		Secret:   "secret",
	}))

	// Logout clears the session namespace only.
	require.NoError(t, credstore.ClearToken(store))

	_, err := credstore.LoadToken(store)
	require.ErrorIs(t, err, apperrors.ErrKeyNotFound)

	rec, err := credstore.LoadBiometric(store, "ReceiptTracker")
	require.NoError(t, err)
	require.Equal(t, "alice", rec.Username)
}

func TestClearTokenIsIdempotent(t *testing.T) {
	store := openStore(t, t.TempDir(), "passphrase")

	require.NoError(t, credstore.ClearToken(store))
	require.NoError(t, credstore.DeleteBiometric(store, "ReceiptTracker"))
}
