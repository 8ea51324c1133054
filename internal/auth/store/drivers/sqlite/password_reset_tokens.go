package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/lumonlab/crecheauth/internal/auth/domain"
	"github.com/lumonlab/crecheauth/internal/auth/store"
)

type passwordResetTokensRepo struct {
	db dbtx
}

func (r *passwordResetTokensRepo) CreatePasswordResetToken(ctx context.Context, t domain.PasswordResetToken) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO password_reset_tokens (id, account_id, secret_hash, expires_at, used_at, created_at)
		VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)`,
		t.ID, t.AccountID, t.SecretHash, t.ExpiresAt, mapOptionalTime(t.UsedAt),
	)
	return mapConstraint(err)
}

func (r *passwordResetTokensRepo) GetPasswordResetTokenByID(ctx context.Context, id string) (domain.PasswordResetToken, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, account_id, secret_hash, expires_at, used_at, created_at
		FROM password_reset_tokens WHERE id = ?`, id)

	var (
		t      domain.PasswordResetToken
		usedAt sql.NullTime
	)
	err := row.Scan(&t.ID, &t.AccountID, &t.SecretHash, &t.ExpiresAt, &usedAt, &t.CreatedAt)
	if err != nil {
		return domain.PasswordResetToken{}, mapNotFound(err)
	}

	t.UsedAt = mapNullTimePtr(usedAt)
	return t, nil
}

// ConsumePasswordResetToken is guarded on used_at so that exactly one of any
// number of concurrent consumers succeeds.
func (r *passwordResetTokensRepo) ConsumePasswordResetToken(ctx context.Context, id string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE password_reset_tokens SET used_at = ? WHERE id = ? AND used_at IS NULL`,
		at, id)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *passwordResetTokensRepo) DeleteAccountPasswordResetTokens(ctx context.Context, accountID string) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM password_reset_tokens WHERE account_id = ?`, accountID)
	return err
}

func (r *passwordResetTokensRepo) DeleteExpiredPasswordResetTokens(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM password_reset_tokens
		WHERE expires_at < CURRENT_TIMESTAMP OR used_at IS NOT NULL`)
	return err
}
