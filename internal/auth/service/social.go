package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lumonlab/crecheauth/internal/auth/domain"
	"github.com/lumonlab/crecheauth/internal/auth/identity"
	"github.com/lumonlab/crecheauth/internal/auth/notify"
	"github.com/lumonlab/crecheauth/internal/auth/store"
	"github.com/lumonlab/crecheauth/pkg/idx"
	"github.com/lumonlab/crecheauth/pkg/slogx"
)

var (
	ErrIdentityTaken      = errors.New("identity already linked to another account")
	ErrNotLinkOwner       = errors.New("social account does not belong to this account")
	ErrPasswordRequired   = errors.New("set a password before unlinking the last social login")
	ErrVerificationFailed = errors.New("federated identity verification failed")
)

// SocialService reconciles federated identities with local accounts.
type SocialService struct {
	Store    store.Store
	Verifier identity.Verifier
	Tokens   *TokenService
	Notify   *notify.Dispatcher
}

// Login authenticates via a provider assertion. Resolution order: an existing
// link wins; otherwise an account with the asserted email gets a new link;
// otherwise a fresh password-less PARENT account is created.
func (s *SocialService) Login(ctx context.Context, provider, assertion string, meta domain.RequestMeta) (LoginResult, error) {
	now := time.Now().UTC()
	l := slogx.FromContext(ctx)

	ident, err := s.Verifier.Verify(ctx, provider, assertion)
	if err != nil {
		l.Info("social login verification failed", "provider", provider, "error", err)
		s.audit("SOCIAL_LOGIN", "", domain.AuditFailure, meta,
			map[string]string{"provider": provider, "reason": "verification_failed"})
		return LoginResult{}, fmt.Errorf("%w: %w", ErrVerificationFailed, err)
	}

	account, err := s.resolveAccount(ctx, ident, now)
	if err != nil {
		return LoginResult{}, err
	}

	if account.Status == domain.StatusSuspended {
		s.audit("SOCIAL_LOGIN", account.ID, domain.AuditFailure, meta,
			map[string]string{"provider": provider, "reason": "suspended"})
		return LoginResult{}, ErrAccountSuspended
	}

	var pair domain.TokenPair
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Accounts().RecordLogin(ctx, account.ID, now); err != nil {
			return fmt.Errorf("failed to record login: %w", err)
		}
		pair, err = s.Tokens.Issue(ctx, tx, account, now)
		return err
	})
	if err != nil {
		return LoginResult{}, err
	}

	s.audit("SOCIAL_LOGIN", account.ID, domain.AuditSuccess, meta,
		map[string]string{"provider": provider})

	account.LastLoginAt = &now
	return LoginResult{Account: account, Tokens: pair}, nil
}

// resolveAccount maps a verified identity onto a local account, creating the
// link or the account as needed. Idempotent per (provider, subject).
func (s *SocialService) resolveAccount(ctx context.Context, ident identity.Identity, now time.Time) (domain.Account, error) {
	link, err := s.Store.SocialAccounts().GetSocialAccountByProviderSubject(ctx, ident.Provider, ident.SubjectID)
	if err == nil {
		return s.Store.Accounts().GetAccountByID(ctx, link.AccountID)
	}
	if !errors.Is(err, store.ErrNotFound) {
		return domain.Account{}, err
	}

	account, err := s.Store.Accounts().GetAccountByEmail(ctx, ident.Email)
	switch {
	case err == nil:
		// Existing local account with the asserted email: attach the link.
		if err := s.createLink(ctx, s.Store, account.ID, ident, now); err != nil {
			return domain.Account{}, err
		}
		return account, nil

	case errors.Is(err, store.ErrNotFound):
		account = domain.Account{
			ID:        idx.New().String(),
			Email:     ident.Email,
			Status:    domain.StatusActive,
			Roles:     domain.NewRoleSet(domain.RoleParent),
			CreatedAt: now,
			UpdatedAt: now,
		}
		err = s.Store.WithTx(ctx, func(tx store.Tx) error {
			if err := tx.Accounts().CreateAccount(ctx, account); err != nil {
				return fmt.Errorf("failed to create account: %w", err)
			}
			return s.createLink(ctx, tx, account.ID, ident, now)
		})
		if err != nil {
			return domain.Account{}, err
		}
		s.audit("USER_REGISTERED", account.ID, domain.AuditSuccess, domain.RequestMeta{},
			map[string]string{"provider": ident.Provider})
		return account, nil

	default:
		return domain.Account{}, err
	}
}

func (s *SocialService) createLink(ctx context.Context, st store.Store, accountID string, ident identity.Identity, now time.Time) error {
	link := domain.SocialAccount{
		ID:          idx.New().String(),
		AccountID:   accountID,
		Provider:    ident.Provider,
		SubjectID:   ident.SubjectID,
		Email:       ident.Email,
		DisplayName: ident.DisplayName,
		LinkedAt:    now,
	}
	if err := st.SocialAccounts().CreateSocialAccount(ctx, link); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return ErrIdentityTaken
		}
		return fmt.Errorf("failed to create social link: %w", err)
	}
	return nil
}

// Link attaches a verified identity to the authenticated account. Rejects if
// the (provider, subject) pair is already linked anywhere else.
func (s *SocialService) Link(ctx context.Context, accountID, provider, assertion string, meta domain.RequestMeta) (domain.SocialAccount, error) {
	now := time.Now().UTC()

	ident, err := s.Verifier.Verify(ctx, provider, assertion)
	if err != nil {
		return domain.SocialAccount{}, fmt.Errorf("%w: %w", ErrVerificationFailed, err)
	}

	existing, err := s.Store.SocialAccounts().GetSocialAccountByProviderSubject(ctx, ident.Provider, ident.SubjectID)
	if err == nil {
		if existing.AccountID == accountID {
			return existing, nil
		}
		return domain.SocialAccount{}, ErrIdentityTaken
	}
	if !errors.Is(err, store.ErrNotFound) {
		return domain.SocialAccount{}, err
	}

	if err := s.createLink(ctx, s.Store, accountID, ident, now); err != nil {
		return domain.SocialAccount{}, err
	}

	s.audit("SOCIAL_LINKED", accountID, domain.AuditSuccess, meta,
		map[string]string{"provider": provider})

	return s.Store.SocialAccounts().GetSocialAccountByProviderSubject(ctx, ident.Provider, ident.SubjectID)
}

// Unlink removes a social link owned by the account. Refused when the account
// has no password, which would leave it with no way back in.
func (s *SocialService) Unlink(ctx context.Context, accountID, socialID string, meta domain.RequestMeta) error {
	link, err := s.Store.SocialAccounts().GetSocialAccountByID(ctx, socialID)
	if err != nil {
		return err
	}
	if link.AccountID != accountID {
		return ErrNotLinkOwner
	}

	account, err := s.Store.Accounts().GetAccountByID(ctx, accountID)
	if err != nil {
		return err
	}
	if !account.HasPassword() {
		return ErrPasswordRequired
	}

	if err := s.Store.SocialAccounts().DeleteSocialAccount(ctx, socialID); err != nil {
		return err
	}

	s.audit("SOCIAL_UNLINKED", accountID, domain.AuditSuccess, meta,
		map[string]string{"provider": link.Provider})
	return nil
}

// List returns the account's social links.
func (s *SocialService) List(ctx context.Context, accountID string) ([]domain.SocialAccount, error) {
	return s.Store.SocialAccounts().ListAccountSocialAccounts(ctx, accountID)
}

func (s *SocialService) audit(action, accountID string, status domain.AuditStatus, meta domain.RequestMeta, details map[string]string) {
	s.Notify.Audit(domain.AuditEvent{
		AccountID: accountID,
		Action:    action,
		Status:    status,
		Meta:      meta,
		Details:   details,
	})
}
