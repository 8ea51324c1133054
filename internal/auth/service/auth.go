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

const (
	// DefaultLockoutThreshold is the failed-attempt count that triggers a lock.
	DefaultLockoutThreshold = 5
	// DefaultLockoutDuration is how long a triggered lock lasts.
	DefaultLockoutDuration = 15 * time.Minute

	minPasswordLength = 8
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountLocked      = errors.New("account locked")
	ErrAccountSuspended   = errors.New("account suspended")
	ErrMFASetupRequired   = errors.New("MFA setup required")
	ErrEmailTaken         = errors.New("email already registered")
	ErrPasswordTooShort   = errors.New("password too short")
)

// LockoutPolicy is the configurable brute-force guard.
type LockoutPolicy struct {
	Threshold int
	Duration  time.Duration
}

func (p LockoutPolicy) orDefaults() LockoutPolicy {
	if p.Threshold <= 0 {
		p.Threshold = DefaultLockoutThreshold
	}
	if p.Duration <= 0 {
		p.Duration = DefaultLockoutDuration
	}
	return p
}

// LoginRequest carries one password login attempt.
type LoginRequest struct {
	Email    string
	Password string
	MFACode  string
	Meta     domain.RequestMeta
}

// LoginResult is the outcome of a successful (or partially successful) login.
// MFARequired true means the credentials were accepted but a TOTP code is
// still needed; no tokens are issued in that state.
type LoginResult struct {
	MFARequired bool
	Account     domain.Account
	Tokens      domain.TokenPair
}

// RegisterRequest carries a new account registration.
type RegisterRequest struct {
	Email    string
	Password string
	Role     domain.Role
	Meta     domain.RequestMeta
}

// AuthService implements the login state machine, registration and logout.
type AuthService struct {
	Store   store.Store
	Tokens  *TokenService
	MFA     *MFAService
	Notify  *notify.Dispatcher
	Lockout LockoutPolicy
}

// Login evaluates the password login state machine. Checks run in a fixed
// order and the first failing check wins; an unknown email and a wrong
// password are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (LoginResult, error) {
	now := time.Now().UTC()
	l := slogx.FromContext(ctx)
	email := strings.TrimSpace(req.Email)

	account, err := s.Store.Accounts().GetAccountByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.audit("USER_LOGIN", "", domain.AuditFailure, req.Meta,
				map[string]string{"reason": "unknown_email"})
			obs.RecordLogin("invalid_credentials")
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, err
	}

	if account.Locked(now) {
		s.audit("USER_LOGIN", account.ID, domain.AuditFailure, req.Meta,
			map[string]string{"reason": "locked"})
		obs.RecordLogin("locked")
		return LoginResult{}, ErrAccountLocked
	}

	if account.Status == domain.StatusSuspended {
		s.audit("USER_LOGIN", account.ID, domain.AuditFailure, req.Meta,
			map[string]string{"reason": "suspended"})
		obs.RecordLogin("suspended")
		return LoginResult{}, ErrAccountSuspended
	}

	// The slow hash runs outside any transaction; the counter accounting
	// below re-reads the row so concurrent failures are counted exactly once.
	if !account.HasPassword() || cryptox.VerifyPassword(req.Password, *account.PasswordHash) != nil {
		locked, err := s.recordFailedAttempt(ctx, account.ID, now)
		if err != nil {
			l.Error("failed to record login failure", "account_id", account.ID, "error", err)
		}
		s.audit("USER_LOGIN", account.ID, domain.AuditFailure, req.Meta,
			map[string]string{"reason": "bad_password"})
		if locked {
			s.audit("ACCOUNT_LOCKED", account.ID, domain.AuditFailure, req.Meta,
				map[string]string{"duration": s.Lockout.orDefaults().Duration.String()})
			obs.RecordLockout()
		}
		obs.RecordLogin("invalid_credentials")
		return LoginResult{}, ErrInvalidCredentials
	}

	if account.Roles.MFARequired() && !account.MFAEnabled {
		s.audit("USER_LOGIN", account.ID, domain.AuditFailure, req.Meta,
			map[string]string{"reason": "mfa_setup_required"})
		obs.RecordLogin("mfa_required")
		return LoginResult{}, ErrMFASetupRequired
	}

	if account.MFAEnabled {
		if req.MFACode == "" {
			// Not a failure: the client is told to come back with a code.
			obs.RecordLogin("mfa_challenge")
			return LoginResult{MFARequired: true, Account: account}, nil
		}
		if !s.MFA.verifyCode(account, req.MFACode, now) {
			s.audit("USER_LOGIN", account.ID, domain.AuditFailure, req.Meta,
				map[string]string{"reason": "bad_mfa_code"})
			obs.RecordLogin("invalid_mfa")
			return LoginResult{}, ErrInvalidMFACode
		}
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

	s.audit("USER_LOGIN", account.ID, domain.AuditSuccess, req.Meta, nil)
	obs.RecordLogin("success")
	l.Info("login succeeded", "account_id", account.ID)

	account.FailedLogins = 0
	account.LockedUntil = nil
	account.LastLoginAt = &now
	return LoginResult{Account: account, Tokens: pair}, nil
}

// recordFailedAttempt bumps the failed counter inside a transaction and
// reports whether this attempt crossed the lockout threshold. Attempts past
// the threshold while already locked do not extend the lock.
func (s *AuthService) recordFailedAttempt(ctx context.Context, accountID string, now time.Time) (locked bool, err error) {
	policy := s.Lockout.orDefaults()

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		current, err := tx.Accounts().GetAccountByID(ctx, accountID)
		if err != nil {
			return err
		}
		if current.Locked(now) {
			return nil
		}

		attempts := current.FailedLogins + 1
		var until *time.Time
		if attempts >= policy.Threshold {
			t := now.Add(policy.Duration)
			until = &t
			locked = true
		}
		return tx.Accounts().UpdateLoginState(ctx, accountID, attempts, until)
	})
	return locked, err
}

// Register creates a new ACTIVE account with the requested role and logs it
// straight in.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (domain.Account, domain.TokenPair, error) {
	now := time.Now().UTC()
	email := strings.TrimSpace(req.Email)

	if len(req.Password) < minPasswordLength {
		return domain.Account{}, domain.TokenPair{}, ErrPasswordTooShort
	}

	role := req.Role
	if role == "" {
		role = domain.RoleParent
	}

	hash, err := cryptox.HashPassword(req.Password)
	if err != nil {
		return domain.Account{}, domain.TokenPair{}, fmt.Errorf("failed to hash password: %w", err)
	}

	account := domain.Account{
		ID:           idx.New().String(),
		Email:        email,
		PasswordHash: &hash,
		Status:       domain.StatusActive,
		Roles:        domain.NewRoleSet(role),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	var pair domain.TokenPair
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Accounts().CreateAccount(ctx, account); err != nil {
			if errors.Is(err, store.ErrAlreadyExists) {
				return ErrEmailTaken
			}
			return fmt.Errorf("failed to create account: %w", err)
		}
		pair, err = s.Tokens.Issue(ctx, tx, account, now)
		return err
	})
	if err != nil {
		return domain.Account{}, domain.TokenPair{}, err
	}

	s.audit("USER_REGISTERED", account.ID, domain.AuditSuccess, req.Meta,
		map[string]string{"role": string(role)})
	return account, pair, nil
}

// Logout revokes every valid refresh token for the account.
func (s *AuthService) Logout(ctx context.Context, accountID string, meta domain.RequestMeta) error {
	if err := s.Tokens.RevokeAll(ctx, accountID); err != nil {
		return err
	}
	s.audit("USER_LOGOUT", accountID, domain.AuditSuccess, meta, nil)
	return nil
}

func (s *AuthService) audit(action, accountID string, status domain.AuditStatus, meta domain.RequestMeta, details map[string]string) {
	s.Notify.Audit(domain.AuditEvent{
		AccountID: accountID,
		Action:    action,
		Status:    status,
		Meta:      meta,
		Details:   details,
	})
}
