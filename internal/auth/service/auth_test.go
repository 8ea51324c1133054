package service

import (
	"context"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"

	"github.com/lumonlab/crecheauth/internal/auth/domain"
	"github.com/lumonlab/crecheauth/pkg/cryptox"
	"github.com/lumonlab/crecheauth/pkg/idx"
)

func TestRegister(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	t.Run("creates account and issues tokens", func(t *testing.T) {
		account, pair, err := env.Auth.Register(ctx, RegisterRequest{
			Email:    "a@x.com",
			Password: "longenough1",
			Role:     domain.RoleParent,
		})
		require.NoError(t, err)
		require.NotEmpty(t, account.ID)
		require.Equal(t, domain.StatusActive, account.Status)
		require.False(t, account.MFAEnabled)
		require.NotEmpty(t, pair.AccessToken)
		require.NotEmpty(t, pair.RefreshToken)

		claims, err := env.Verify.Verify(pair.AccessToken)
		require.NoError(t, err)
		require.Equal(t, account.ID, claims.Subject)
		require.Equal(t, "a@x.com", claims.Email)
		require.Equal(t, []string{"PARENT"}, claims.Roles)
	})

	t.Run("rejects duplicate email", func(t *testing.T) {
		_, _, err := env.Auth.Register(ctx, RegisterRequest{
			Email:    "a@x.com",
			Password: "longenough1",
		})
		require.ErrorIs(t, err, ErrEmailTaken)
	})

	t.Run("rejects short password", func(t *testing.T) {
		_, _, err := env.Auth.Register(ctx, RegisterRequest{
			Email:    "b@x.com",
			Password: "short",
		})
		require.ErrorIs(t, err, ErrPasswordTooShort)
	})
}

func TestLogin(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	t.Run("unknown email reads as invalid credentials", func(t *testing.T) {
		_, err := env.Auth.Login(ctx, LoginRequest{
			Email: "nobody@example.com", Password: "whatever1"})
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("wrong password reads as invalid credentials", func(t *testing.T) {
		account := seedAccount(t, env.Store, "correct-horse1")

		_, err := env.Auth.Login(ctx, LoginRequest{
			Email: account.Email, Password: "wrong-horse1"})
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("success resets counter and stamps last login", func(t *testing.T) {
		account := seedAccount(t, env.Store, "correct-horse1")

		_, err := env.Auth.Login(ctx, LoginRequest{
			Email: account.Email, Password: "wrong"})
		require.ErrorIs(t, err, ErrInvalidCredentials)

		result, err := env.Auth.Login(ctx, LoginRequest{
			Email: account.Email, Password: "correct-horse1"})
		require.NoError(t, err)
		require.False(t, result.MFARequired)
		require.NotEmpty(t, result.Tokens.RefreshToken)

		stored, err := env.Store.Accounts().GetAccountByID(ctx, account.ID)
		require.NoError(t, err)
		require.Zero(t, stored.FailedLogins)
		require.NotNil(t, stored.LastLoginAt)
	})

	t.Run("suspended account is rejected", func(t *testing.T) {
		hash, err := cryptox.HashPassword("correct-horse1")
		require.NoError(t, err)
		now := time.Now().UTC()
		account := domain.Account{
			ID:           idx.New().String(),
			Email:        "suspended@example.com",
			PasswordHash: &hash,
			Status:       domain.StatusSuspended,
			Roles:        domain.NewRoleSet(domain.RoleParent),
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		require.NoError(t, env.Store.Accounts().CreateAccount(ctx, account))

		_, err = env.Auth.Login(ctx, LoginRequest{
			Email: account.Email, Password: "correct-horse1"})
		require.ErrorIs(t, err, ErrAccountSuspended)
	})

	t.Run("password-less social account cannot password login", func(t *testing.T) {
		account := seedAccount(t, env.Store, "")

		_, err := env.Auth.Login(ctx, LoginRequest{
			Email: account.Email, Password: "anything1"})
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestLoginLockout(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.Auth.Lockout = LockoutPolicy{Threshold: 3, Duration: 15 * time.Minute}
	ctx := context.Background()

	account := seedAccount(t, env.Store, "correct-horse1")

	for range 3 {
		_, err := env.Auth.Login(ctx, LoginRequest{
			Email: account.Email, Password: "wrong"})
		require.ErrorIs(t, err, ErrInvalidCredentials)
	}

	// Locked now, even with the correct password.
	_, err := env.Auth.Login(ctx, LoginRequest{
		Email: account.Email, Password: "correct-horse1"})
	require.ErrorIs(t, err, ErrAccountLocked)

	stored, err := env.Store.Accounts().GetAccountByID(ctx, account.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.LockedUntil)
	lockedUntil := *stored.LockedUntil

	// Further attempts while locked must not extend the lock.
	_, err = env.Auth.Login(ctx, LoginRequest{
		Email: account.Email, Password: "wrong"})
	require.ErrorIs(t, err, ErrAccountLocked)

	stored, err = env.Store.Accounts().GetAccountByID(ctx, account.ID)
	require.NoError(t, err)
	require.WithinDuration(t, lockedUntil, *stored.LockedUntil, time.Second)

	// An expired lock clears on the next successful login.
	past := time.Now().UTC().Add(-time.Minute)
	require.NoError(t, env.Store.Accounts().UpdateLoginState(ctx, account.ID, stored.FailedLogins, &past))

	result, err := env.Auth.Login(ctx, LoginRequest{
		Email: account.Email, Password: "correct-horse1"})
	require.NoError(t, err)
	require.NotEmpty(t, result.Tokens.AccessToken)

	stored, err = env.Store.Accounts().GetAccountByID(ctx, account.ID)
	require.NoError(t, err)
	require.Zero(t, stored.FailedLogins)
	require.Nil(t, stored.LockedUntil)
}

func TestLoginMFA(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	t.Run("admin without MFA is blocked until setup", func(t *testing.T) {
		account := seedAccount(t, env.Store, "correct-horse1", domain.RoleAdmin)

		_, err := env.Auth.Login(ctx, LoginRequest{
			Email: account.Email, Password: "correct-horse1"})
		require.ErrorIs(t, err, ErrMFASetupRequired)
	})

	t.Run("enabled MFA challenges then accepts a valid code", func(t *testing.T) {
		account := seedAccount(t, env.Store, "correct-horse1")

		setup, err := env.MFA.Setup(ctx, account.ID, domain.RequestMeta{})
		require.NoError(t, err)
		code, err := totp.GenerateCode(setup.Secret, time.Now().UTC())
		require.NoError(t, err)
		require.NoError(t, env.MFA.VerifyAndEnable(ctx, account.ID, code, domain.RequestMeta{}))

		// No code: partial success, no tokens.
		result, err := env.Auth.Login(ctx, LoginRequest{
			Email: account.Email, Password: "correct-horse1"})
		require.NoError(t, err)
		require.True(t, result.MFARequired)
		require.Empty(t, result.Tokens.AccessToken)

		// Bad code: distinct failure, no counter effect.
		_, err = env.Auth.Login(ctx, LoginRequest{
			Email: account.Email, Password: "correct-horse1", MFACode: "000000"})
		require.ErrorIs(t, err, ErrInvalidMFACode)

		stored, err := env.Store.Accounts().GetAccountByID(ctx, account.ID)
		require.NoError(t, err)
		require.Zero(t, stored.FailedLogins)

		// Valid code: full success.
		code, err = totp.GenerateCode(setup.Secret, time.Now().UTC())
		require.NoError(t, err)
		result, err = env.Auth.Login(ctx, LoginRequest{
			Email: account.Email, Password: "correct-horse1", MFACode: code})
		require.NoError(t, err)
		require.False(t, result.MFARequired)
		require.NotEmpty(t, result.Tokens.AccessToken)
	})
}

func TestLogout(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	account := seedAccount(t, env.Store, "correct-horse1")

	first, err := env.Auth.Login(ctx, LoginRequest{
		Email: account.Email, Password: "correct-horse1"})
	require.NoError(t, err)
	second, err := env.Auth.Login(ctx, LoginRequest{
		Email: account.Email, Password: "correct-horse1"})
	require.NoError(t, err)

	require.NoError(t, env.Auth.Logout(ctx, account.ID, domain.RequestMeta{}))

	_, err = env.Tokens.Rotate(ctx, first.Tokens.RefreshToken)
	require.ErrorIs(t, err, ErrTokenExpiredOrRevoked)
	_, err = env.Tokens.Rotate(ctx, second.Tokens.RefreshToken)
	require.ErrorIs(t, err, ErrTokenExpiredOrRevoked)
}
