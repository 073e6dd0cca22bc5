package biometric

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	apperrors "github.com/receipttrack/receipttrack-go/internal/errors"
)

// ConfirmVerifier is a Verifier for terminal environments without a sensor:
// the prompt is a y/n confirmation. Used by the CLI; real deployments wrap
// the platform keystore instead.
type ConfirmVerifier struct {
	In  io.Reader
	Out io.Writer
}

var _ Verifier = (*ConfirmVerifier)(nil)

func (v *ConfirmVerifier) Available(context.Context) (bool, Modality, error) {
	return true, ModalityGeneric, nil
}

func (v *ConfirmVerifier) Prompt(_ context.Context, text PromptText) error {
	fmt.Fprintf(v.Out, "%s\n%s\nConfirm identity? [y/N]: ", text.Title, text.Reason)

	line, err := bufio.NewReader(v.In).ReadString('\n')
	if err != nil {
		return apperrors.ErrBiometricCancelled
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return nil
	case "":
		return apperrors.ErrBiometricCancelled
	}
	return apperrors.ErrBiometricDenied
}
