package sqlite

import (
	"context"
	"database/sql"

	"github.com/lumonlab/crecheauth/internal/auth/domain"
)

type socialAccountsRepo struct {
	db dbtx
}

func (r *socialAccountsRepo) CreateSocialAccount(ctx context.Context, s domain.SocialAccount) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO social_accounts (id, account_id, provider, provider_subject, email, display_name, linked_at)
		VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)`,
		s.ID, s.AccountID, s.Provider, s.SubjectID, s.Email, s.DisplayName,
	)
	return mapConstraint(err)
}

func (r *socialAccountsRepo) GetSocialAccountByProviderSubject(
	ctx context.Context,
	provider, subjectID string,
) (domain.SocialAccount, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, account_id, provider, provider_subject, email, display_name, linked_at
		FROM social_accounts WHERE provider = ? AND provider_subject = ?`,
		provider, subjectID)
	return scanSocialAccount(row)
}

func (r *socialAccountsRepo) GetSocialAccountByID(ctx context.Context, id string) (domain.SocialAccount, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, account_id, provider, provider_subject, email, display_name, linked_at
		FROM social_accounts WHERE id = ?`, id)
	return scanSocialAccount(row)
}

func (r *socialAccountsRepo) ListAccountSocialAccounts(
	ctx context.Context,
	accountID string,
) ([]domain.SocialAccount, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, account_id, provider, provider_subject, email, display_name, linked_at
		FROM social_accounts WHERE account_id = ? ORDER BY linked_at`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.SocialAccount
	for rows.Next() {
		var s domain.SocialAccount
		if err := rows.Scan(&s.ID, &s.AccountID, &s.Provider, &s.SubjectID,
			&s.Email, &s.DisplayName, &s.LinkedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *socialAccountsRepo) DeleteSocialAccount(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM social_accounts WHERE id = ?`, id)
	return err
}

func scanSocialAccount(row *sql.Row) (domain.SocialAccount, error) {
	var s domain.SocialAccount
	err := row.Scan(&s.ID, &s.AccountID, &s.Provider, &s.SubjectID,
		&s.Email, &s.DisplayName, &s.LinkedAt)
	if err != nil {
		return domain.SocialAccount{}, mapNotFound(err)
	}
	return s, nil
}
