package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lumonlab/crecheauth/internal/auth/domain"
	"github.com/lumonlab/crecheauth/internal/auth/obs"
	"github.com/lumonlab/crecheauth/internal/auth/store"
	"github.com/lumonlab/crecheauth/pkg/cryptox"
	"github.com/lumonlab/crecheauth/pkg/idx"
	"github.com/lumonlab/crecheauth/pkg/jwtx"
	"github.com/lumonlab/crecheauth/pkg/slogx"
)

// ErrTokenExpiredOrRevoked is the single generic refresh failure. Callers are
// never told whether the token was unknown, revoked, or expired.
var ErrTokenExpiredOrRevoked = errors.New("refresh token invalid or expired")

// TokenService mints access tokens and manages the opaque refresh token
// lifecycle: issuance, rotation, revocation.
type TokenService struct {
	Store      store.Store
	Signer     jwtx.Signer
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// Issue mints a fresh access+refresh pair for an account that has already
// passed authentication. The refresh record is written through st so callers
// can issue inside a wider transaction.
func (s *TokenService) Issue(ctx context.Context, st store.Store, account domain.Account, now time.Time) (domain.TokenPair, error) {
	return s.issue(ctx, st, account, nil, now)
}

func (s *TokenService) issue(ctx context.Context, st store.Store, account domain.Account, rotatedFrom *string, now time.Time) (domain.TokenPair, error) {
	claims := jwtx.NewAccessClaims(
		account.ID,
		account.Email,
		account.Roles.Names(),
		s.AccessTTL,
		s.Issuer,
		now,
	)
	access, err := s.Signer.Sign(claims)
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("failed to sign access token: %w", err)
	}

	secret, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("failed to generate refresh secret: %w", err)
	}

	record := domain.RefreshToken{
		ID:          idx.New().String(),
		AccountID:   account.ID,
		SecretHash:  cryptox.FingerprintToken(secret),
		RotatedFrom: rotatedFrom,
		ExpiresAt:   now.Add(s.RefreshTTL),
		CreatedAt:   now,
	}
	if err := st.RefreshTokens().CreateRefreshToken(ctx, record); err != nil {
		return domain.TokenPair{}, fmt.Errorf("failed to store refresh token: %w", err)
	}

	return domain.TokenPair{
		AccessToken:  access,
		RefreshToken: record.ID + "." + secret,
		TokenType:    "Bearer",
		ExpiresIn:    s.AccessTTL,
	}, nil
}

// Rotate exchanges a raw refresh token for a fresh pair. The presented token
// is revoked and the replacement records it as its predecessor, atomically.
// Any invalid presentation fails with the same generic error.
func (s *TokenService) Rotate(ctx context.Context, raw string) (domain.TokenPair, error) {
	now := time.Now().UTC()
	l := slogx.FromContext(ctx)

	id, secret, err := splitRefreshToken(raw)
	if err != nil {
		obs.RecordTokenRotation("rejected")
		return domain.TokenPair{}, ErrTokenExpiredOrRevoked
	}

	record, err := s.Store.RefreshTokens().GetRefreshTokenByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			obs.RecordTokenRotation("rejected")
			return domain.TokenPair{}, ErrTokenExpiredOrRevoked
		}
		return domain.TokenPair{}, err
	}

	if !cryptox.VerifyTokenFingerprint(secret, record.SecretHash) {
		obs.RecordTokenRotation("rejected")
		return domain.TokenPair{}, ErrTokenExpiredOrRevoked
	}
	if !record.Valid(now) {
		// Presenting an already-rotated token is the reuse signal. Fail
		// closed; the rotation chain stays intact for offline audit.
		l.Warn("refresh token reuse or expiry",
			"token_id", record.ID, "account_id", record.AccountID)
		obs.RecordTokenRotation("rejected")
		return domain.TokenPair{}, ErrTokenExpiredOrRevoked
	}

	account, err := s.Store.Accounts().GetAccountByID(ctx, record.AccountID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			obs.RecordTokenRotation("rejected")
			return domain.TokenPair{}, ErrTokenExpiredOrRevoked
		}
		return domain.TokenPair{}, err
	}
	if account.Status == domain.StatusSuspended {
		obs.RecordTokenRotation("rejected")
		return domain.TokenPair{}, ErrAccountSuspended
	}

	var pair domain.TokenPair
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.RefreshTokens().RevokeRefreshToken(ctx, record.ID, now); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				// A concurrent rotation got here first.
				return ErrTokenExpiredOrRevoked
			}
			return err
		}

		rotatedFrom := record.ID
		pair, err = s.issue(ctx, tx, account, &rotatedFrom, now)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrTokenExpiredOrRevoked) {
			obs.RecordTokenRotation("rejected")
		}
		return domain.TokenPair{}, err
	}

	obs.RecordTokenRotation("success")
	return pair, nil
}

// RevokeAll revokes every currently valid refresh token for an account in one
// statement. Used by logout and password reset.
func (s *TokenService) RevokeAll(ctx context.Context, accountID string) error {
	now := time.Now().UTC()
	if err := s.Store.RefreshTokens().RevokeAllAccountRefreshTokens(ctx, accountID, now); err != nil {
		return fmt.Errorf("failed to revoke refresh tokens: %w", err)
	}
	return nil
}

// splitRefreshToken parses the raw wire form `<id>.<secret>`. The id half is
// the public lookup key; the secret half is verified against the stored
// fingerprint.
func splitRefreshToken(raw string) (id, secret string, err error) {
	id, secret, ok := strings.Cut(strings.TrimSpace(raw), ".")
	if !ok || secret == "" {
		return "", "", ErrTokenExpiredOrRevoked
	}
	if _, err := idx.Parse(id); err != nil {
		return "", "", ErrTokenExpiredOrRevoked
	}
	return id, secret, nil
}
