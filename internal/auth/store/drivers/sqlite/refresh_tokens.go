package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/lumonlab/crecheauth/internal/auth/domain"
	"github.com/lumonlab/crecheauth/internal/auth/store"
)

type refreshTokensRepo struct {
	db dbtx
}

func (r *refreshTokensRepo) CreateRefreshToken(ctx context.Context, t domain.RefreshToken) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO refresh_tokens (id, account_id, secret_hash, rotated_from, expires_at, revoked_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)`,
		t.ID, t.AccountID, t.SecretHash, mapOptionalString(t.RotatedFrom),
		t.ExpiresAt, mapOptionalTime(t.RevokedAt),
	)
	return mapConstraint(err)
}

func (r *refreshTokensRepo) GetRefreshTokenByID(ctx context.Context, id string) (domain.RefreshToken, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, account_id, secret_hash, rotated_from, expires_at, revoked_at, created_at
		FROM refresh_tokens WHERE id = ?`, id)

	var (
		t           domain.RefreshToken
		rotatedFrom sql.NullString
		revokedAt   sql.NullTime
	)
	err := row.Scan(&t.ID, &t.AccountID, &t.SecretHash, &rotatedFrom, &t.ExpiresAt, &revokedAt, &t.CreatedAt)
	if err != nil {
		return domain.RefreshToken{}, mapNotFound(err)
	}

	t.RotatedFrom = mapNullStringPtr(rotatedFrom)
	t.RevokedAt = mapNullTimePtr(revokedAt)
	return t, nil
}

// RevokeRefreshToken is guarded on revoked_at so that concurrent rotations of
// the same token admit exactly one winner.
func (r *refreshTokensRepo) RevokeRefreshToken(ctx context.Context, id string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE refresh_tokens SET revoked_at = ? WHERE id = ? AND revoked_at IS NULL`,
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

func (r *refreshTokensRepo) RevokeAllAccountRefreshTokens(ctx context.Context, accountID string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE refresh_tokens SET revoked_at = ? WHERE account_id = ? AND revoked_at IS NULL`,
		at, accountID)
	return err
}

func (r *refreshTokensRepo) DeleteExpiredRefreshTokens(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM refresh_tokens WHERE expires_at < CURRENT_TIMESTAMP`)
	return err
}
