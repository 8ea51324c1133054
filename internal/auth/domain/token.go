package domain

import "time"

// TokenPair is what a successful authentication returns: the short-lived
// access token (JWT) and the opaque refresh token (raw form, shown once).
type TokenPair struct {
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token"`
	TokenType    string        `json:"token_type,omitempty"` // typically "Bearer"
	ExpiresIn    time.Duration `json:"expires_in"`           // access token lifetime
}

// RefreshToken models the stored refresh token record. The raw opaque value
// is `<id>.<secret>`; only the secret's deterministic fingerprint is stored.
// RotatedFrom forms a forward-only chain of ids back to the original login;
// it is kept for audit only and plays no part in validity checks.
type RefreshToken struct {
	ID          string
	AccountID   string
	SecretHash  string // base64url SHA-256 fingerprint of the secret half
	RotatedFrom *string
	ExpiresAt   time.Time
	RevokedAt   *time.Time
	CreatedAt   time.Time
}

// Valid reports whether the token can still be redeemed.
func (t RefreshToken) Valid(now time.Time) bool {
	return t.RevokedAt == nil && now.Before(t.ExpiresAt)
}

// PasswordResetToken is a single-use credential for the reset flow. Raw wire
// form and storage mirror RefreshToken.
type PasswordResetToken struct {
	ID         string
	AccountID  string
	SecretHash string
	ExpiresAt  time.Time
	UsedAt     *time.Time
	CreatedAt  time.Time
}

func (t PasswordResetToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

func (t PasswordResetToken) Used() bool {
	return t.UsedAt != nil
}
