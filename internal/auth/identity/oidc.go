package identity

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/coreos/go-oidc/v3/oidc"
)

// ProviderConfig describes one upstream OIDC identity provider.
type ProviderConfig struct {
	Name      string // e.g. "google"
	IssuerURL string // e.g. "https://accounts.google.com"
	ClientID  string // expected audience of the ID token
}

// OIDCVerifier validates ID tokens against their issuers' published keys.
// Provider discovery is lazy so a misconfigured or unreachable issuer only
// fails the flows that use it.
type OIDCVerifier struct {
	configs map[string]ProviderConfig

	mu        sync.Mutex
	verifiers map[string]*oidc.IDTokenVerifier
}

func NewOIDCVerifier(configs []ProviderConfig) *OIDCVerifier {
	byName := make(map[string]ProviderConfig, len(configs))
	for _, c := range configs {
		byName[strings.ToLower(c.Name)] = c
	}
	return &OIDCVerifier{
		configs:   byName,
		verifiers: make(map[string]*oidc.IDTokenVerifier),
	}
}

func (v *OIDCVerifier) Verify(ctx context.Context, provider, assertion string) (Identity, error) {
	provider = strings.ToLower(provider)

	verifier, err := v.verifierFor(ctx, provider)
	if err != nil {
		return Identity{}, err
	}

	idToken, err := verifier.Verify(ctx, assertion)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrVerificationFailed, err)
	}

	var claims struct {
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
		Name          string `json:"name"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrVerificationFailed, err)
	}

	if !claims.EmailVerified {
		return Identity{}, ErrEmailNotVerified
	}

	return Identity{
		Provider:    provider,
		SubjectID:   idToken.Subject,
		Email:       claims.Email,
		DisplayName: claims.Name,
	}, nil
}

func (v *OIDCVerifier) verifierFor(ctx context.Context, provider string) (*oidc.IDTokenVerifier, error) {
	cfg, ok := v.configs[provider]
	if !ok {
		return nil, ErrUnknownProvider
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if verifier, ok := v.verifiers[provider]; ok {
		return verifier, nil
	}

	p, err := oidc.NewProvider(ctx, cfg.IssuerURL)
	if err != nil {
		return nil, fmt.Errorf("%w: provider discovery: %v", ErrVerificationFailed, err)
	}

	verifier := p.Verifier(&oidc.Config{ClientID: cfg.ClientID})
	v.verifiers[provider] = verifier
	return verifier, nil
}
