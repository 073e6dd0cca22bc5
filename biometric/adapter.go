package biometric

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/receipttrack/receipttrack-go/credstore"
	apperrors "github.com/receipttrack/receipttrack-go/internal/errors"
)

// Adapter stores login credentials behind the biometric gate and releases
// them after a successful identity assertion. It implements
// session.Unlocker.
//
// Enrolled credentials have a lifecycle independent of the session: logout
// never removes them, only Delete does.
type Adapter struct {
	store    credstore.Store
	verifier Verifier
	server   string
	prompt   PromptText
	log      zerolog.Logger
}

// AdapterOption configures an Adapter.
type AdapterOption func(*Adapter)

// WithPromptText overrides the copy shown on the unlock prompt.
func WithPromptText(text PromptText) AdapterOption {
	return func(a *Adapter) {
		a.prompt = text
	}
}

// WithLogger sets the adapter logger.
func WithLogger(log zerolog.Logger) AdapterOption {
	return func(a *Adapter) {
		a.log = log
	}
}

// NewAdapter creates an Adapter storing credentials under the fixed server
// identifier.
func NewAdapter(store credstore.Store, verifier Verifier, server string, options ...AdapterOption) (*Adapter, error) {
	if store == nil {
		return nil, errors.New("[NewAdapter] credential store is required")
	}
	if verifier == nil {
		return nil, errors.New("[NewAdapter] verifier is required")
	}
	if server == "" {
		return nil, errors.New("[NewAdapter] server identifier is required")
	}

	adapter := &Adapter{
		store:    store,
		verifier: verifier,
		server:   server,
		prompt: PromptText{
			Title:    "Unlock ReceiptTracker",
			Subtitle: "Log in with your enrolled credentials",
			Reason:   "Authentication is required to access your receipts",
		},
		log: zerolog.Nop(),
	}
	for _, opt := range options {
		opt(adapter)
	}
	return adapter, nil
}

// Available reports whether the platform can perform biometric verification.
func (a *Adapter) Available(ctx context.Context) (bool, Modality, error) {
	return a.verifier.Available(ctx)
}

// Enroll stores the credentials behind the biometric gate. Called on
// explicit user opt-in after a successful password login; the write itself
// needs no fresh assertion, the OS keystore gates later reads.
func (a *Adapter) Enroll(username, password string) error {
	rec := &credstore.BiometricRecord{Username: username, Secret: password}
	if err := credstore.SaveBiometric(a.store, a.server, rec); err != nil {
		return errors.Wrap(err, "[Adapter.Enroll]")
	}
	a.log.Info().Str("username", username).Msg("biometric credentials enrolled")
	return nil
}

// Enrolled reports whether credentials are stored for this server.
func (a *Adapter) Enrolled() bool {
	_, err := credstore.LoadBiometric(a.store, a.server)
	return err == nil
}

// Credentials requests an identity assertion and, on success, releases the
// enrolled username and secret. Implements session.Unlocker.
func (a *Adapter) Credentials(ctx context.Context) (string, string, error) {
	ok, _, err := a.verifier.Available(ctx)
	if err != nil {
		return "", "", errors.Wrap(apperrors.ErrBiometricUnavailable, err.Error())
	}
	if !ok {
		return "", "", apperrors.ErrBiometricUnavailable
	}

	rec, err := credstore.LoadBiometric(a.store, a.server)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrKeyNotFound) {
			return "", "", apperrors.ErrNotEnrolled
		}
		return "", "", errors.Wrap(err, "[Adapter.Credentials]")
	}

	if err := a.verifier.Prompt(ctx, a.prompt); err != nil {
		return "", "", err
	}
	return rec.Username, rec.Secret, nil
}

// Delete removes the enrolled credentials. The active session, if any, is
// unaffected.
func (a *Adapter) Delete() error {
	if err := credstore.DeleteBiometric(a.store, a.server); err != nil {
		return errors.Wrap(err, "[Adapter.Delete]")
	}
	a.log.Info().Msg("biometric credentials deleted")
	return nil
}
