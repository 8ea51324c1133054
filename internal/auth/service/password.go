package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lumonlab/crecheauth/internal/auth/domain"
	"github.com/lumonlab/crecheauth/internal/auth/notify"
	"github.com/lumonlab/crecheauth/internal/auth/obs"
	"github.com/lumonlab/crecheauth/internal/auth/store"
	"github.com/lumonlab/crecheauth/pkg/cryptox"
	"github.com/lumonlab/crecheauth/pkg/idx"
	"github.com/lumonlab/crecheauth/pkg/slogx"
)

// DefaultResetTokenTTL bounds how long a reset link stays redeemable.
const DefaultResetTokenTTL = time.Hour

var (
	ErrSamePassword      = errors.New("new password must differ from the current one")
	ErrTokenAlreadyUsed  = errors.New("reset token already used")
	ErrResetTokenInvalid = errors.New("reset token invalid or expired")
)

// PasswordService covers authenticated password changes and the forgot/reset
// flow.
type PasswordService struct {
	Store    store.Store
	Notify   *notify.Dispatcher
	ResetTTL time.Duration
}

func (s *PasswordService) resetTTL() time.Duration {
	if s.ResetTTL == 0 {
		return DefaultResetTokenTTL
	}
	return s.ResetTTL
}

// ChangePassword replaces the password of an authenticated account after
// verifying the current one. Existing sessions stay valid.
func (s *PasswordService) ChangePassword(ctx context.Context, accountID, current, newPassword string, meta domain.RequestMeta) error {
	account, err := s.Store.Accounts().GetAccountByID(ctx, accountID)
	if err != nil {
		return err
	}

	if !account.HasPassword() || cryptox.VerifyPassword(current, *account.PasswordHash) != nil {
		s.audit("PASSWORD_CHANGED", accountID, domain.AuditFailure, meta,
			map[string]string{"reason": "bad_current_password"})
		return ErrInvalidCredentials
	}
	if newPassword == current {
		return ErrSamePassword
	}
	if len(newPassword) < minPasswordLength {
		return ErrPasswordTooShort
	}

	hash, err := cryptox.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.Store.Accounts().UpdatePasswordHash(ctx, accountID, hash); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	s.audit("PASSWORD_CHANGED", accountID, domain.AuditSuccess, meta, nil)
	s.Notify.Email(notify.Email{
		Template:  "password_changed",
		Recipient: account.Email,
	})
	return nil
}

// RequestReset mints a single-use reset token and enqueues the reset email.
// Unknown emails succeed silently so the endpoint cannot be used to probe for
// accounts. Any prior tokens for the account are invalidated first.
func (s *PasswordService) RequestReset(ctx context.Context, email string, meta domain.RequestMeta) error {
	now := time.Now().UTC()
	l := slogx.FromContext(ctx)
	email = strings.TrimSpace(email)

	account, err := s.Store.Accounts().GetAccountByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			l.Info("password reset requested for unknown email")
			return nil
		}
		return err
	}

	secret, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return fmt.Errorf("failed to generate reset secret: %w", err)
	}

	token := domain.PasswordResetToken{
		ID:         idx.New().String(),
		AccountID:  account.ID,
		SecretHash: cryptox.FingerprintToken(secret),
		ExpiresAt:  now.Add(s.resetTTL()),
		CreatedAt:  now,
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.PasswordResetTokens().DeleteAccountPasswordResetTokens(ctx, account.ID); err != nil {
			return fmt.Errorf("failed to invalidate prior reset tokens: %w", err)
		}
		return tx.PasswordResetTokens().CreatePasswordResetToken(ctx, token)
	})
	if err != nil {
		return err
	}

	s.audit("PASSWORD_RESET_REQUESTED", account.ID, domain.AuditSuccess, meta, nil)
	s.Notify.Email(notify.Email{
		Template:  "password_reset",
		Recipient: account.Email,
		Params: map[string]string{
			"token":      token.ID + "." + secret,
			"expires_at": token.ExpiresAt.Format(time.RFC3339),
		},
	})
	return nil
}

// ValidateResetToken checks a raw reset token without consuming it, so a
// client can vet the link before showing the new-password form. An exhausted
// token reports "used"; anything else invalid reports the generic failure.
func (s *PasswordService) ValidateResetToken(ctx context.Context, raw string) error {
	now := time.Now().UTC()
	_, err := s.lookupResetToken(ctx, raw, now)
	return err
}

func (s *PasswordService) lookupResetToken(ctx context.Context, raw string, now time.Time) (domain.PasswordResetToken, error) {
	id, secret, ok := strings.Cut(strings.TrimSpace(raw), ".")
	if !ok || secret == "" {
		return domain.PasswordResetToken{}, ErrResetTokenInvalid
	}
	if _, err := idx.Parse(id); err != nil {
		return domain.PasswordResetToken{}, ErrResetTokenInvalid
	}

	token, err := s.Store.PasswordResetTokens().GetPasswordResetTokenByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.PasswordResetToken{}, ErrResetTokenInvalid
		}
		return domain.PasswordResetToken{}, err
	}
	if !cryptox.VerifyTokenFingerprint(secret, token.SecretHash) {
		return domain.PasswordResetToken{}, ErrResetTokenInvalid
	}
	if token.Expired(now) {
		return domain.PasswordResetToken{}, ErrResetTokenInvalid
	}
	if token.Used() {
		return domain.PasswordResetToken{}, ErrTokenAlreadyUsed
	}
	return token, nil
}

// ResetPassword consumes a valid token and sets the new password. The
// consuming update is guarded so concurrent calls with the same token admit
// exactly one winner. A successful reset also clears any lockout.
func (s *PasswordService) ResetPassword(ctx context.Context, raw, newPassword string, meta domain.RequestMeta) error {
	now := time.Now().UTC()

	token, err := s.lookupResetToken(ctx, raw, now)
	if err != nil {
		obs.RecordPasswordReset("rejected")
		return err
	}
	if len(newPassword) < minPasswordLength {
		return ErrPasswordTooShort
	}

	hash, err := cryptox.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.PasswordResetTokens().ConsumePasswordResetToken(ctx, token.ID, now); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrTokenAlreadyUsed
			}
			return fmt.Errorf("failed to consume reset token: %w", err)
		}
		if err := tx.Accounts().UpdatePasswordHash(ctx, token.AccountID, hash); err != nil {
			return fmt.Errorf("failed to update password: %w", err)
		}
		// A user who just proved email ownership should not stay locked out.
		return tx.Accounts().UpdateLoginState(ctx, token.AccountID, 0, nil)
	})
	if err != nil {
		if errors.Is(err, ErrTokenAlreadyUsed) {
			obs.RecordPasswordReset("rejected")
		}
		return err
	}

	obs.RecordPasswordReset("success")
	s.audit("PASSWORD_RESET", token.AccountID, domain.AuditSuccess, meta, nil)

	if account, err := s.Store.Accounts().GetAccountByID(ctx, token.AccountID); err == nil {
		s.Notify.Email(notify.Email{
			Template:  "password_changed",
			Recipient: account.Email,
		})
	}
	return nil
}

func (s *PasswordService) audit(action, accountID string, status domain.AuditStatus, meta domain.RequestMeta, details map[string]string) {
	s.Notify.Audit(domain.AuditEvent{
		AccountID: accountID,
		Action:    action,
		Status:    status,
		Meta:      meta,
		Details:   details,
	})
}
