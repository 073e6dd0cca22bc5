package verifierfakes

import (
	"context"
	"sync"

	"github.com/receipttrack/receipttrack-go/biometric"
)

var _ biometric.Verifier = (*FakeVerifier)(nil)

// FakeVerifier is a scriptable biometric.Verifier for tests.
type FakeVerifier struct {
	lock sync.Mutex

	IsAvailable bool
	Kind        biometric.Modality
	PromptErr   error // nil means the assertion succeeds

	promptCalls int
}

func NewFakeVerifier() *FakeVerifier {
	return &FakeVerifier{IsAvailable: true, Kind: biometric.ModalityFingerprint}
}

func (fv *FakeVerifier) Available(context.Context) (bool, biometric.Modality, error) {
	fv.lock.Lock()
	defer fv.lock.Unlock()
	return fv.IsAvailable, fv.Kind, nil
}

func (fv *FakeVerifier) Prompt(context.Context, biometric.PromptText) error {
	fv.lock.Lock()
	defer fv.lock.Unlock()
	fv.promptCalls++
	return fv.PromptErr
}

func (fv *FakeVerifier) PromptCalls() int {
	fv.lock.Lock()
	defer fv.lock.Unlock()
	return fv.promptCalls
}
