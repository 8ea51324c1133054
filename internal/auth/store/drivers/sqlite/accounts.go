package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/lumonlab/crecheauth/internal/auth/domain"
)

type accountsRepo struct {
	db dbtx
}

const accountColumns = `id, email, password_hash, status, mfa_enabled, mfa_secret, roles,
	failed_login_attempts, locked_until, last_login_at, created_at, updated_at`

func (r *accountsRepo) scanAccount(row *sql.Row) (domain.Account, error) {
	var (
		a            domain.Account
		passwordHash sql.NullString
		status       string
		mfaEnabled   int
		mfaSecret    sql.NullString
		roles        string
		lockedUntil  sql.NullTime
		lastLoginAt  sql.NullTime
	)

	err := row.Scan(
		&a.ID, &a.Email, &passwordHash, &status, &mfaEnabled, &mfaSecret, &roles,
		&a.FailedLogins, &lockedUntil, &lastLoginAt, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return domain.Account{}, mapNotFound(err)
	}

	a.PasswordHash = mapNullStringPtr(passwordHash)
	a.Status = domain.AccountStatus(status)
	a.MFAEnabled = mfaEnabled != 0
	a.MFASecret = mapNullStringPtr(mfaSecret)
	a.Roles = domain.ParseRoleSet(roles)
	a.LockedUntil = mapNullTimePtr(lockedUntil)
	a.LastLoginAt = mapNullTimePtr(lastLoginAt)

	return a, nil
}

func (r *accountsRepo) GetAccountByID(ctx context.Context, id string) (domain.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id)
	return r.scanAccount(row)
}

func (r *accountsRepo) GetAccountByEmail(ctx context.Context, email string) (domain.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE email = ?`, email)
	return r.scanAccount(row)
}

func (r *accountsRepo) CreateAccount(ctx context.Context, a domain.Account) error {
	mfaEnabled := 0
	if a.MFAEnabled {
		mfaEnabled = 1
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO accounts (id, email, password_hash, status, mfa_enabled, mfa_secret, roles,
			failed_login_attempts, locked_until, last_login_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`,
		a.ID, a.Email, mapOptionalString(a.PasswordHash), string(a.Status),
		mfaEnabled, mapOptionalString(a.MFASecret), domain.EncodeRoleSet(a.Roles),
		a.FailedLogins, mapOptionalTime(a.LockedUntil), mapOptionalTime(a.LastLoginAt),
	)
	return mapConstraint(err)
}

func (r *accountsRepo) UpdateAccountStatus(ctx context.Context, accountID string, status domain.AccountStatus) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE accounts
		SET status = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		string(status), accountID)
	return err
}

func (r *accountsRepo) UpdateLoginState(
	ctx context.Context,
	accountID string,
	failedLogins int,
	lockedUntil *time.Time,
) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE accounts
		SET failed_login_attempts = ?, locked_until = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		failedLogins, mapOptionalTime(lockedUntil), accountID)
	return err
}

func (r *accountsRepo) RecordLogin(ctx context.Context, accountID string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE accounts
		SET failed_login_attempts = 0, locked_until = NULL, last_login_at = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		at, accountID)
	return err
}

func (r *accountsRepo) UpdatePasswordHash(ctx context.Context, accountID string, newHash string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE accounts
		SET password_hash = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		newHash, accountID)
	return err
}

func (r *accountsRepo) UpdateMFASecret(ctx context.Context, accountID string, secret string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE accounts
		SET mfa_secret = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		secret, accountID)
	return err
}

func (r *accountsRepo) EnableMFA(ctx context.Context, accountID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE accounts
		SET mfa_enabled = 1, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		accountID)
	return err
}

func (r *accountsRepo) DisableMFA(ctx context.Context, accountID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE accounts
		SET mfa_enabled = 0, mfa_secret = NULL, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		accountID)
	return err
}
