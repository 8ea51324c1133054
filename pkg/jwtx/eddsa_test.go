package jwtx_test

import (
	"crypto/ed25519"
	"testing"
	"time"

	"github.com/lumonlab/crecheauth/pkg/cryptox"
	"github.com/lumonlab/crecheauth/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func testKey(t *testing.T) ed25519.PrivateKey {
	t.Helper()
	pemData, err := cryptox.GenerateEd25519Key()
	require.NoError(t, err)
	key, err := cryptox.ParseEd25519Key(pemData)
	require.NoError(t, err)
	return key
}

func TestSignAndVerifyRoundTrip(t *testing.T) {
	t.Parallel()

	key := testKey(t)
	signer := jwtx.NewSignerEdDSA(key)
	verifier := jwtx.NewVerifierEdDSA(key.Public().(ed25519.PublicKey), "creche-auth")

	claims := jwtx.NewAccessClaims(
		"01HZX5AYBS6EXAMPLE0000001",
		"a@x.com",
		[]string{"PARENT"},
		jwtx.DefaultAccessTokenTTL,
		"creche-auth",
		time.Now(),
	)

	raw, err := signer.Sign(claims)
	require.NoError(t, err)

	got, err := verifier.Verify(raw)
	require.NoError(t, err)
	require.Equal(t, "01HZX5AYBS6EXAMPLE0000001", got.Subject)
	require.Equal(t, "a@x.com", got.Email)
	require.Equal(t, []string{"PARENT"}, got.Roles)
	require.NotEmpty(t, got.ID) // jti
}

func TestVerifyRejectsWrongKey(t *testing.T) {
	t.Parallel()

	signer := jwtx.NewSignerEdDSA(testKey(t))
	otherKey := testKey(t)
	verifier := jwtx.NewVerifierEdDSA(otherKey.Public().(ed25519.PublicKey), "creche-auth")

	claims := jwtx.NewAccessClaims("acc", "a@x.com", nil, time.Minute, "creche-auth", time.Now())
	raw, err := signer.Sign(claims)
	require.NoError(t, err)

	_, err = verifier.Verify(raw)
	require.Error(t, err)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	t.Parallel()

	key := testKey(t)
	signer := jwtx.NewSignerEdDSA(key)
	verifier := jwtx.NewVerifierEdDSA(key.Public().(ed25519.PublicKey), "creche-auth")

	claims := jwtx.NewAccessClaims("acc", "a@x.com", nil, time.Minute, "creche-auth", time.Now().Add(-time.Hour))
	raw, err := signer.Sign(claims)
	require.NoError(t, err)

	_, err = verifier.Verify(raw)
	require.ErrorIs(t, err, jwtx.ErrExpired)
}

func TestVerifyRejectsIssuerMismatch(t *testing.T) {
	t.Parallel()

	key := testKey(t)
	signer := jwtx.NewSignerEdDSA(key)
	verifier := jwtx.NewVerifierEdDSA(key.Public().(ed25519.PublicKey), "creche-auth")

	claims := jwtx.NewAccessClaims("acc", "a@x.com", nil, time.Minute, "someone-else", time.Now())
	raw, err := signer.Sign(claims)
	require.NoError(t, err)

	_, err = verifier.Verify(raw)
	require.ErrorIs(t, err, jwtx.ErrIssuer)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	t.Parallel()

	key := testKey(t)
	verifier := jwtx.NewVerifierEdDSA(key.Public().(ed25519.PublicKey), "creche-auth")

	_, err := verifier.Verify("definitely.not.a-jwt")
	require.ErrorIs(t, err, jwtx.ErrMalformed)
}
