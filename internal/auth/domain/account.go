package domain

import "time"

// AccountStatus is the lifecycle state of an account.
type AccountStatus string

const (
	StatusActive    AccountStatus = "ACTIVE"
	StatusSuspended AccountStatus = "SUSPENDED"
)

// Account is the aggregate root for everything credential-related. Refresh
// tokens, reset tokens and social links belong to exactly one account and
// have no lifecycle of their own.
type Account struct {
	ID           string
	Email        string
	PasswordHash *string // nil for pure social accounts (argon2 encoded otherwise)
	Status       AccountStatus
	MFAEnabled   bool
	MFASecret    *string // base32 TOTP secret; present only while enabled or mid-enrollment
	Roles        RoleSet
	FailedLogins int
	LockedUntil  *time.Time
	LastLoginAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Locked reports whether the account is currently locked out.
func (a Account) Locked(now time.Time) bool {
	return a.LockedUntil != nil && a.LockedUntil.After(now)
}

// HasPassword reports whether the account has a usable password credential.
func (a Account) HasPassword() bool {
	return a.PasswordHash != nil && *a.PasswordHash != ""
}
