package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lumonlab/crecheauth/internal/auth/domain"
	"github.com/lumonlab/crecheauth/internal/auth/identity"
)

func TestSocialLogin(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()
	meta := domain.RequestMeta{}

	env.Identity.add("assert-new", identity.Identity{
		Provider:    "google",
		SubjectID:   "google-sub-1",
		Email:       "social1@example.com",
		DisplayName: "Social One",
	})

	t.Run("first login creates a password-less parent account", func(t *testing.T) {
		result, err := env.Social.Login(ctx, "google", "assert-new", meta)
		require.NoError(t, err)
		require.NotEmpty(t, result.Tokens.AccessToken)
		require.Equal(t, "social1@example.com", result.Account.Email)
		require.True(t, result.Account.Roles.Has(domain.RoleParent))
		require.False(t, result.Account.HasPassword())

		links, err := env.Social.List(ctx, result.Account.ID)
		require.NoError(t, err)
		require.Len(t, links, 1)
		require.Equal(t, "google-sub-1", links[0].SubjectID)
	})

	t.Run("repeat login resolves to the same account", func(t *testing.T) {
		first, err := env.Social.Login(ctx, "google", "assert-new", meta)
		require.NoError(t, err)
		second, err := env.Social.Login(ctx, "google", "assert-new", meta)
		require.NoError(t, err)
		require.Equal(t, first.Account.ID, second.Account.ID)

		links, err := env.Social.List(ctx, first.Account.ID)
		require.NoError(t, err)
		require.Len(t, links, 1)
	})

	t.Run("matching email links to the existing account", func(t *testing.T) {
		account := seedAccount(t, env.Store, "correct-horse1")
		env.Identity.add("assert-existing", identity.Identity{
			Provider:  "google",
			SubjectID: "google-sub-2",
			Email:     account.Email,
		})

		result, err := env.Social.Login(ctx, "google", "assert-existing", meta)
		require.NoError(t, err)
		require.Equal(t, account.ID, result.Account.ID)

		links, err := env.Social.List(ctx, account.ID)
		require.NoError(t, err)
		require.Len(t, links, 1)
	})

	t.Run("failed verification is surfaced", func(t *testing.T) {
		_, err := env.Social.Login(ctx, "google", "assert-bogus", meta)
		require.ErrorIs(t, err, ErrVerificationFailed)
	})

	t.Run("wrong provider for a known assertion fails", func(t *testing.T) {
		_, err := env.Social.Login(ctx, "github", "assert-new", meta)
		require.ErrorIs(t, err, ErrVerificationFailed)
	})
}

func TestSocialLink(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()
	meta := domain.RequestMeta{}

	owner := seedAccount(t, env.Store, "correct-horse1")
	env.Identity.add("assert-link", identity.Identity{
		Provider:  "google",
		SubjectID: "google-sub-link",
		Email:     owner.Email,
	})

	link, err := env.Social.Link(ctx, owner.ID, "google", "assert-link", meta)
	require.NoError(t, err)
	require.Equal(t, owner.ID, link.AccountID)

	t.Run("relinking to the same account is idempotent", func(t *testing.T) {
		again, err := env.Social.Link(ctx, owner.ID, "google", "assert-link", meta)
		require.NoError(t, err)
		require.Equal(t, link.ID, again.ID)
	})

	t.Run("linking to a different account is rejected", func(t *testing.T) {
		other := seedAccount(t, env.Store, "correct-horse1")
		_, err := env.Social.Link(ctx, other.ID, "google", "assert-link", meta)
		require.ErrorIs(t, err, ErrIdentityTaken)
	})
}

func TestSocialUnlink(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()
	meta := domain.RequestMeta{}

	t.Run("owner with a password can unlink", func(t *testing.T) {
		owner := seedAccount(t, env.Store, "correct-horse1")
		env.Identity.add("assert-a", identity.Identity{
			Provider: "google", SubjectID: "sub-a", Email: owner.Email})
		link, err := env.Social.Link(ctx, owner.ID, "google", "assert-a", meta)
		require.NoError(t, err)

		require.NoError(t, env.Social.Unlink(ctx, owner.ID, link.ID, meta))

		links, err := env.Social.List(ctx, owner.ID)
		require.NoError(t, err)
		require.Empty(t, links)
	})

	t.Run("non-owner cannot unlink", func(t *testing.T) {
		owner := seedAccount(t, env.Store, "correct-horse1")
		stranger := seedAccount(t, env.Store, "correct-horse1")
		env.Identity.add("assert-b", identity.Identity{
			Provider: "google", SubjectID: "sub-b", Email: owner.Email})
		link, err := env.Social.Link(ctx, owner.ID, "google", "assert-b", meta)
		require.NoError(t, err)

		require.ErrorIs(t, env.Social.Unlink(ctx, stranger.ID, link.ID, meta), ErrNotLinkOwner)
	})

	t.Run("password-less account keeps its last way in", func(t *testing.T) {
		env.Identity.add("assert-c", identity.Identity{
			Provider: "google", SubjectID: "sub-c", Email: "passwordless@example.com"})
		result, err := env.Social.Login(ctx, "google", "assert-c", meta)
		require.NoError(t, err)

		links, err := env.Social.List(ctx, result.Account.ID)
		require.NoError(t, err)
		require.Len(t, links, 1)

		err = env.Social.Unlink(ctx, result.Account.ID, links[0].ID, meta)
		require.ErrorIs(t, err, ErrPasswordRequired)
	})
}

func TestSocialLoginSuspended(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	account := seedAccount(t, env.Store, "correct-horse1")
	env.Identity.add("assert-susp", identity.Identity{
		Provider: "google", SubjectID: "sub-susp", Email: account.Email})

	// Link first, then suspend the account before the next login.
	_, err := env.Social.Login(ctx, "google", "assert-susp", domain.RequestMeta{})
	require.NoError(t, err)

	require.NoError(t, env.Store.Accounts().UpdateAccountStatus(ctx, account.ID, domain.StatusSuspended))

	_, err = env.Social.Login(ctx, "google", "assert-susp", domain.RequestMeta{})
	require.ErrorIs(t, err, ErrAccountSuspended)
}
