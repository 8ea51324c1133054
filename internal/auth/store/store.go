package store

import (
	"context"
	"errors"
	"time"

	"github.com/lumonlab/crecheauth/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite,
// postgres) implement this. It exposes sub-repositories to keep concerns
// tidy and testable.
type Store interface {
	Accounts() Accounts
	RefreshTokens() RefreshTokens
	PasswordResetTokens() PasswordResetTokens
	SocialAccounts() SocialAccounts
	AuditLogs() AuditLogs

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// Use it for multi-step operations that must be atomic (e.g., refresh
	// rotation). The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction. If fn returns an error, the
	// transaction is rolled back; otherwise it is committed. This is the
	// recommended way to handle transactions.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Accounts interface {
	// GetAccountByID returns an account by id.
	GetAccountByID(ctx context.Context, id string) (domain.Account, error)

	// GetAccountByEmail is the login-time lookup (exact, case-sensitive match).
	GetAccountByEmail(ctx context.Context, email string) (domain.Account, error)

	// CreateAccount inserts a new account (id is provided by app via ULID).
	// Returns ErrAlreadyExists on email collision.
	CreateAccount(ctx context.Context, a domain.Account) error

	// UpdateAccountStatus moves an account between ACTIVE and SUSPENDED.
	UpdateAccountStatus(ctx context.Context, accountID string, status domain.AccountStatus) error

	// UpdateLoginState persists the failed-attempt counter and lock window
	// in one statement so lockout accounting is a single write.
	UpdateLoginState(ctx context.Context, accountID string, failedLogins int, lockedUntil *time.Time) error

	// RecordLogin resets the failed-attempt counter and stamps last_login_at.
	RecordLogin(ctx context.Context, accountID string, at time.Time) error

	// UpdatePasswordHash sets the password_hash (argon2) and bumps updated_at.
	UpdatePasswordHash(ctx context.Context, accountID string, newHash string) error

	// UpdateMFASecret stores a pending (unconfirmed) TOTP secret.
	UpdateMFASecret(ctx context.Context, accountID string, secret string) error

	// EnableMFA flips mfa_enabled on; the pending secret becomes active.
	EnableMFA(ctx context.Context, accountID string) error

	// DisableMFA clears both the enabled flag and the secret.
	DisableMFA(ctx context.Context, accountID string) error
}

type RefreshTokens interface {
	// CreateRefreshToken stores a new refresh token record.
	CreateRefreshToken(ctx context.Context, t domain.RefreshToken) error

	// GetRefreshTokenByID returns the record by its public lookup id. The
	// caller verifies the secret fingerprint; the raw secret never reaches
	// the store.
	GetRefreshTokenByID(ctx context.Context, id string) (domain.RefreshToken, error)

	// RevokeRefreshToken stamps revoked_at on a single token. Returns
	// ErrNotFound when the token does not exist or was already revoked, so
	// concurrent rotations admit exactly one winner.
	RevokeRefreshToken(ctx context.Context, id string, at time.Time) error

	// RevokeAllAccountRefreshTokens revokes every currently valid token for
	// an account in one statement (logout, password reset).
	RevokeAllAccountRefreshTokens(ctx context.Context, accountID string, at time.Time) error

	// DeleteExpiredRefreshTokens is housekeeping.
	DeleteExpiredRefreshTokens(ctx context.Context) error
}

type PasswordResetTokens interface {
	// CreatePasswordResetToken stores a freshly minted reset token.
	CreatePasswordResetToken(ctx context.Context, t domain.PasswordResetToken) error

	// GetPasswordResetTokenByID fetches a token by its public lookup id.
	GetPasswordResetTokenByID(ctx context.Context, id string) (domain.PasswordResetToken, error)

	// ConsumePasswordResetToken marks a token used if and only if it is not
	// already used; exactly one concurrent caller wins. Returns ErrNotFound
	// when the token was already consumed.
	ConsumePasswordResetToken(ctx context.Context, id string, at time.Time) error

	// DeleteAccountPasswordResetTokens invalidates all prior tokens for an
	// account before a fresh one is minted.
	DeleteAccountPasswordResetTokens(ctx context.Context, accountID string) error

	// DeleteExpiredPasswordResetTokens removes expired and used tokens
	// (housekeeping).
	DeleteExpiredPasswordResetTokens(ctx context.Context) error
}

type SocialAccounts interface {
	// CreateSocialAccount links a federated identity. Returns
	// ErrAlreadyExists when the (provider, subject) pair is taken.
	CreateSocialAccount(ctx context.Context, s domain.SocialAccount) error

	// GetSocialAccountByProviderSubject resolves a (provider, subject) pair.
	GetSocialAccountByProviderSubject(ctx context.Context, provider, subjectID string) (domain.SocialAccount, error)

	// GetSocialAccountByID fetches a link by its id.
	GetSocialAccountByID(ctx context.Context, id string) (domain.SocialAccount, error)

	// ListAccountSocialAccounts returns all links for an account.
	ListAccountSocialAccounts(ctx context.Context, accountID string) ([]domain.SocialAccount, error)

	// DeleteSocialAccount removes a link.
	DeleteSocialAccount(ctx context.Context, id string) error
}

type AuditLogs interface {
	// CreateAuditLog appends an audit event. Called only from the background
	// dispatcher, never from the request path.
	CreateAuditLog(ctx context.Context, e domain.AuditEvent) error
}
