// Package identity abstracts third-party identity assertions. The engine
// only ever sees a verified Identity; token plumbing stays behind the
// Verifier contract.
package identity

import (
	"context"
	"errors"
)

var (
	// ErrVerificationFailed covers any upstream rejection of the assertion.
	ErrVerificationFailed = errors.New("identity: verification failed")

	// ErrEmailNotVerified is returned when the provider reports the email as
	// unverified. The engine must never trust such an assertion.
	ErrEmailNotVerified = errors.New("identity: email not verified by provider")

	// ErrUnknownProvider is returned for providers with no configured verifier.
	ErrUnknownProvider = errors.New("identity: unknown provider")
)

// Identity is the verified claim set extracted from a provider assertion.
type Identity struct {
	Provider    string
	SubjectID   string
	Email       string
	DisplayName string
}

// Verifier validates a raw identity assertion (e.g. an OIDC ID token) for a
// named provider and returns the verified identity.
type Verifier interface {
	Verify(ctx context.Context, provider, assertion string) (Identity, error)
}
