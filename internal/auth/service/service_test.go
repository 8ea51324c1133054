package service

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lumonlab/crecheauth/internal/auth/domain"
	"github.com/lumonlab/crecheauth/internal/auth/identity"
	"github.com/lumonlab/crecheauth/internal/auth/notify"
	"github.com/lumonlab/crecheauth/internal/auth/store"
	"github.com/lumonlab/crecheauth/internal/auth/store/drivers/sqlite"
	"github.com/lumonlab/crecheauth/pkg/cryptox"
	"github.com/lumonlab/crecheauth/pkg/idx"
	"github.com/lumonlab/crecheauth/pkg/jwtx"
)

const testIssuer = "crecheauth-test"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(t *testing.T) store.Store {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	t.Cleanup(func() { _ = st.Close() })

	return st
}

func newTestSigner(t *testing.T) (jwtx.Signer, jwtx.Verifier) {
	t.Helper()

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	return jwtx.NewSignerEdDSA(priv), jwtx.NewVerifierEdDSA(pub, testIssuer)
}

type testEnv struct {
	Store    store.Store
	Auth     *AuthService
	Tokens   *TokenService
	MFA      *MFAService
	Social   *SocialService
	Password *PasswordService
	Verify   jwtx.Verifier
	Notify   *notify.Dispatcher
	Identity *fakeVerifier
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st := newTestStore(t)
	signer, verifier := newTestSigner(t)

	dispatcher := notify.NewDispatcher(
		notify.StoreAuditSink{Store: st}, nil, testLogger(), 64)
	t.Cleanup(dispatcher.Close)

	tokens := &TokenService{
		Store:      st,
		Signer:     signer,
		Issuer:     testIssuer,
		AccessTTL:  jwtx.DefaultAccessTokenTTL,
		RefreshTTL: jwtx.DefaultRefreshTokenTTL,
	}
	mfa := &MFAService{Store: st, Notify: dispatcher, Issuer: "CrecheAuth"}
	auth := &AuthService{Store: st, Tokens: tokens, MFA: mfa, Notify: dispatcher}
	ident := &fakeVerifier{identities: map[string]identity.Identity{}}
	social := &SocialService{Store: st, Verifier: ident, Tokens: tokens, Notify: dispatcher}
	password := &PasswordService{Store: st, Notify: dispatcher}

	return &testEnv{
		Store:    st,
		Auth:     auth,
		Tokens:   tokens,
		MFA:      mfa,
		Social:   social,
		Password: password,
		Verify:   verifier,
		Notify:   dispatcher,
		Identity: ident,
	}
}

// fakeVerifier resolves assertions from a fixed table, standing in for a real
// OIDC provider.
type fakeVerifier struct {
	identities map[string]identity.Identity
}

func (f *fakeVerifier) add(assertion string, ident identity.Identity) {
	f.identities[assertion] = ident
}

func (f *fakeVerifier) Verify(ctx context.Context, provider, assertion string) (identity.Identity, error) {
	ident, ok := f.identities[assertion]
	if !ok || ident.Provider != provider {
		return identity.Identity{}, identity.ErrVerificationFailed
	}
	return ident, nil
}

// seedAccount writes an account straight into the store with the given
// password already hashed. The email is derived from the fresh ID so
// parallel tests never collide.
func seedAccount(t *testing.T, st store.Store, password string, roles ...domain.Role) domain.Account {
	t.Helper()

	if len(roles) == 0 {
		roles = []domain.Role{domain.RoleParent}
	}

	now := time.Now().UTC()
	id := idx.New().String()
	account := domain.Account{
		ID:        id,
		Email:     fmt.Sprintf("user-%s@example.com", id),
		Status:    domain.StatusActive,
		Roles:     domain.NewRoleSet(roles...),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if password != "" {
		hash, err := cryptox.HashPassword(password)
		require.NoError(t, err)
		account.PasswordHash = &hash
	}

	require.NoError(t, st.Accounts().CreateAccount(context.Background(), account))
	return account
}
