// Package credstore persists client credentials across process restarts.
//
// The store is a namespaced key-value secret store with two independent
// namespaces: session credentials (access/refresh tokens and expiry, cleared
// on logout) and biometric credentials (username/secret enrolled for
// biometric unlock, cleared only by explicit user action).
package credstore

import (
	"encoding/json"

	"github.com/pkg/errors"
	"golang.org/x/oauth2"

	apperrors "github.com/receipttrack/receipttrack-go/internal/errors"
)

const (
	// NamespaceSession holds the persisted token record.
	NamespaceSession = "session"
	// NamespaceBiometric holds biometric-gated login secrets, keyed by a
	// fixed server identifier.
	NamespaceBiometric = "biometric"

	sessionTokenKey = "token"
)

// Store is a namespaced secret store. Implementations must return
// apperrors.ErrKeyNotFound for missing keys.
type Store interface {
	Get(namespace, key string) ([]byte, error)
	Set(namespace, key string, value []byte) error
	Delete(namespace, key string) error
}

// BiometricRecord is the secret released after a successful biometric
// assertion. Its lifecycle is independent of the session: logout leaves it in
// place so biometric re-login stays possible.
type BiometricRecord struct {
	Username string `json:"username"`
	Secret   string `json:"secret"`
}

// LoadToken reads the persisted session token record.
func LoadToken(s Store) (*oauth2.Token, error) {
	raw, err := s.Get(NamespaceSession, sessionTokenKey)
	if err != nil {
		return nil, err
	}
	var tok oauth2.Token
	if err := json.Unmarshal(raw, &tok); err != nil {
		return nil, errors.Wrap(err, "[LoadToken] unmarshal token record")
	}
	return &tok, nil
}

// SaveToken persists the session token record.
func SaveToken(s Store, tok *oauth2.Token) error {
	raw, err := json.Marshal(tok)
	if err != nil {
		return errors.Wrap(err, "[SaveToken] marshal token record")
	}
	return s.Set(NamespaceSession, sessionTokenKey, raw)
}

// ClearToken removes the session token record. Missing records are not an
// error: logout must be idempotent.
func ClearToken(s Store) error {
	if err := s.Delete(NamespaceSession, sessionTokenKey); err != nil && !errors.Is(err, apperrors.ErrKeyNotFound) {
		return err
	}
	return nil
}

// LoadBiometric reads the enrolled biometric record for a server identifier.
func LoadBiometric(s Store, server string) (*BiometricRecord, error) {
	raw, err := s.Get(NamespaceBiometric, server)
	if err != nil {
		return nil, err
	}
	var rec BiometricRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, errors.Wrap(err, "[LoadBiometric] unmarshal biometric record")
	}
	return &rec, nil
}

// SaveBiometric stores a biometric record for a server identifier.
func SaveBiometric(s Store, server string, rec *BiometricRecord) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return errors.Wrap(err, "[SaveBiometric] marshal biometric record")
	}
	return s.Set(NamespaceBiometric, server, raw)
}

// DeleteBiometric removes the biometric record for a server identifier.
func DeleteBiometric(s Store, server string) error {
	if err := s.Delete(NamespaceBiometric, server); err != nil && !errors.Is(err, apperrors.ErrKeyNotFound) {
		return err
	}
	return nil
}
