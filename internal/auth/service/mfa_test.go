package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"

	"github.com/lumonlab/crecheauth/internal/auth/domain"
)

func TestMFASetupAndEnable(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()
	meta := domain.RequestMeta{}

	account := seedAccount(t, env.Store, "correct-horse1")

	setup, err := env.MFA.Setup(ctx, account.ID, meta)
	require.NoError(t, err)
	require.NotEmpty(t, setup.Secret)
	require.True(t, strings.HasPrefix(setup.ProvisioningURI, "otpauth://totp/"))
	require.Contains(t, setup.ProvisioningURI, account.Email)

	t.Run("setup alone does not enable", func(t *testing.T) {
		stored, err := env.Store.Accounts().GetAccountByID(ctx, account.ID)
		require.NoError(t, err)
		require.False(t, stored.MFAEnabled)
		require.NotNil(t, stored.MFASecret)
	})

	t.Run("wrong code keeps MFA off and the secret pending", func(t *testing.T) {
		err := env.MFA.VerifyAndEnable(ctx, account.ID, "000000", meta)
		require.ErrorIs(t, err, ErrInvalidMFACode)

		stored, err := env.Store.Accounts().GetAccountByID(ctx, account.ID)
		require.NoError(t, err)
		require.False(t, stored.MFAEnabled)
		require.NotNil(t, stored.MFASecret)
	})

	t.Run("correct code enables", func(t *testing.T) {
		code, err := totp.GenerateCode(setup.Secret, time.Now().UTC())
		require.NoError(t, err)
		require.NoError(t, env.MFA.VerifyAndEnable(ctx, account.ID, code, meta))

		stored, err := env.Store.Accounts().GetAccountByID(ctx, account.ID)
		require.NoError(t, err)
		require.True(t, stored.MFAEnabled)
	})

	t.Run("second setup is rejected once enabled", func(t *testing.T) {
		_, err := env.MFA.Setup(ctx, account.ID, meta)
		require.ErrorIs(t, err, ErrMFAAlreadyEnabled)
	})

	t.Run("code from another secret is rejected", func(t *testing.T) {
		other, err := totp.Generate(totp.GenerateOpts{Issuer: "x", AccountName: "y"})
		require.NoError(t, err)
		code, err := totp.GenerateCode(other.Secret(), time.Now().UTC())
		require.NoError(t, err)

		stored, err := env.Store.Accounts().GetAccountByID(ctx, account.ID)
		require.NoError(t, err)
		require.False(t, env.MFA.verifyCode(stored, code, time.Now().UTC()))
	})
}

func TestMFAVerifyWithoutEnrollment(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	account := seedAccount(t, env.Store, "correct-horse1")
	err := env.MFA.VerifyAndEnable(ctx, account.ID, "123456", domain.RequestMeta{})
	require.ErrorIs(t, err, ErrMFANotEnrolled)
}

func TestMFADisable(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()
	meta := domain.RequestMeta{}

	enable := func(t *testing.T, accountID string) string {
		t.Helper()
		setup, err := env.MFA.Setup(ctx, accountID, meta)
		require.NoError(t, err)
		code, err := totp.GenerateCode(setup.Secret, time.Now().UTC())
		require.NoError(t, err)
		require.NoError(t, env.MFA.VerifyAndEnable(ctx, accountID, code, meta))
		return setup.Secret
	}

	t.Run("requires a valid live code", func(t *testing.T) {
		account := seedAccount(t, env.Store, "correct-horse1")
		secret := enable(t, account.ID)

		require.ErrorIs(t, env.MFA.Disable(ctx, account.ID, "000000", meta), ErrInvalidMFACode)

		code, err := totp.GenerateCode(secret, time.Now().UTC())
		require.NoError(t, err)
		require.NoError(t, env.MFA.Disable(ctx, account.ID, code, meta))

		stored, err := env.Store.Accounts().GetAccountByID(ctx, account.ID)
		require.NoError(t, err)
		require.False(t, stored.MFAEnabled)
		require.Nil(t, stored.MFASecret)
	})

	t.Run("rejected when not enabled", func(t *testing.T) {
		account := seedAccount(t, env.Store, "correct-horse1")
		require.ErrorIs(t, env.MFA.Disable(ctx, account.ID, "123456", meta), ErrMFANotEnabled)
	})

	t.Run("rejected for enforced roles", func(t *testing.T) {
		account := seedAccount(t, env.Store, "correct-horse1", domain.RoleAdmin)
		secret := enable(t, account.ID)

		code, err := totp.GenerateCode(secret, time.Now().UTC())
		require.NoError(t, err)
		require.ErrorIs(t, env.MFA.Disable(ctx, account.ID, code, meta), ErrMFAEnforced)
	})
}

func TestMFAStatus(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	t.Run("parent not enrolled", func(t *testing.T) {
		account := seedAccount(t, env.Store, "correct-horse1")
		status, err := env.MFA.Status(ctx, account.ID)
		require.NoError(t, err)
		require.False(t, status.Enabled)
		require.False(t, status.Enforced)
		require.NotEmpty(t, status.Message)
	})

	t.Run("admin not enrolled is enforced", func(t *testing.T) {
		account := seedAccount(t, env.Store, "correct-horse1", domain.RoleAdmin)
		status, err := env.MFA.Status(ctx, account.ID)
		require.NoError(t, err)
		require.False(t, status.Enabled)
		require.True(t, status.Enforced)
		require.Contains(t, status.Message, "required")
	})
}
