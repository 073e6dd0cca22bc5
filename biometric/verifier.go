// Package biometric bridges platform biometric verification to the
// credential store and the session state machine.
//
// The platform sensor itself is an external capability: implementations of
// Verifier wrap whatever the host OS provides and reduce it to a pass /
// denied / cancelled identity assertion.
package biometric

import "context"

// Modality is the kind of biometric verification the platform supports.
type Modality int

const (
	ModalityNone Modality = iota
	ModalityFingerprint
	ModalityFace
	ModalityGeneric
)

func (m Modality) String() string {
	switch m {
	case ModalityFingerprint:
		return "fingerprint"
	case ModalityFace:
		return "face"
	case ModalityGeneric:
		return "biometric"
	}
	return "none"
}

// PromptText is the human-readable copy shown on the platform prompt.
type PromptText struct {
	Title    string
	Subtitle string
	Reason   string
}

// Verifier is a platform identity-assertion capability.
type Verifier interface {
	// Available reports whether biometric verification can be performed and
	// which modality the platform offers.
	Available(ctx context.Context) (bool, Modality, error)
	// Prompt requests an identity assertion. It returns nil on success,
	// apperrors.ErrBiometricDenied on a failed assertion, and
	// apperrors.ErrBiometricCancelled when the user dismisses the prompt.
	Prompt(ctx context.Context, text PromptText) error
}
