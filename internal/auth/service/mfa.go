package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"

	"github.com/lumonlab/crecheauth/internal/auth/domain"
	"github.com/lumonlab/crecheauth/internal/auth/notify"
	"github.com/lumonlab/crecheauth/internal/auth/store"
)

const (
	totpDigits = otp.DigitsSix
	totpPeriod = 30
	totpSkew   = 1 // accept one time step either side for clock drift
)

var (
	ErrInvalidMFACode    = errors.New("invalid MFA code")
	ErrMFANotEnabled     = errors.New("MFA not enabled for this account")
	ErrMFAAlreadyEnabled = errors.New("MFA already enabled for this account")
	ErrMFANotEnrolled    = errors.New("MFA enrollment not started")
	ErrMFAEnforced       = errors.New("MFA is enforced for this account's role")
)

// MFAService handles TOTP enrollment, verification and removal.
type MFAService struct {
	Store  store.Store
	Notify *notify.Dispatcher
	Issuer string // issuer label shown in authenticator apps
}

// Setup generates a fresh TOTP secret and stores it un-activated. MFA stays
// off until VerifyAndEnable confirms the authenticator holds the secret.
func (s *MFAService) Setup(ctx context.Context, accountID string, meta domain.RequestMeta) (domain.MFASetupResponse, error) {
	account, err := s.Store.Accounts().GetAccountByID(ctx, accountID)
	if err != nil {
		return domain.MFASetupResponse{}, err
	}
	if account.MFAEnabled {
		return domain.MFASetupResponse{}, ErrMFAAlreadyEnabled
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.Issuer,
		AccountName: account.Email,
		Period:      totpPeriod,
		Digits:      totpDigits,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return domain.MFASetupResponse{}, fmt.Errorf("failed to generate TOTP key: %w", err)
	}

	if err := s.Store.Accounts().UpdateMFASecret(ctx, accountID, key.Secret()); err != nil {
		return domain.MFASetupResponse{}, fmt.Errorf("failed to store MFA secret: %w", err)
	}

	s.audit("MFA_SETUP_STARTED", accountID, domain.AuditSuccess, meta)

	return domain.MFASetupResponse{
		Secret:          key.Secret(),
		ProvisioningURI: key.URL(),
		Issuer:          s.Issuer,
		Account:         account.Email,
	}, nil
}

// VerifyAndEnable confirms a pending secret with a live code and flips MFA
// on. On a bad code the pending secret stays put and MFA stays off.
func (s *MFAService) VerifyAndEnable(ctx context.Context, accountID, code string, meta domain.RequestMeta) error {
	now := time.Now().UTC()

	account, err := s.Store.Accounts().GetAccountByID(ctx, accountID)
	if err != nil {
		return err
	}
	if account.MFAEnabled {
		return ErrMFAAlreadyEnabled
	}
	if account.MFASecret == nil || *account.MFASecret == "" {
		return ErrMFANotEnrolled
	}

	if !s.verifyCode(account, code, now) {
		s.audit("MFA_ENABLED", accountID, domain.AuditFailure, meta)
		return ErrInvalidMFACode
	}

	if err := s.Store.Accounts().EnableMFA(ctx, accountID); err != nil {
		return fmt.Errorf("failed to enable MFA: %w", err)
	}

	s.audit("MFA_ENABLED", accountID, domain.AuditSuccess, meta)
	return nil
}

// Disable turns MFA off after re-proving possession of the authenticator.
// Accounts whose role enforces MFA cannot disable it.
func (s *MFAService) Disable(ctx context.Context, accountID, code string, meta domain.RequestMeta) error {
	now := time.Now().UTC()

	account, err := s.Store.Accounts().GetAccountByID(ctx, accountID)
	if err != nil {
		return err
	}
	if !account.MFAEnabled {
		return ErrMFANotEnabled
	}
	if account.Roles.MFARequired() {
		return ErrMFAEnforced
	}
	if !s.verifyCode(account, code, now) {
		s.audit("MFA_DISABLED", accountID, domain.AuditFailure, meta)
		return ErrInvalidMFACode
	}

	if err := s.Store.Accounts().DisableMFA(ctx, accountID); err != nil {
		return fmt.Errorf("failed to disable MFA: %w", err)
	}

	s.audit("MFA_DISABLED", accountID, domain.AuditSuccess, meta)
	return nil
}

// Status reports the account's MFA posture. Enforcement is recomputed from
// roles on every call, never stored.
func (s *MFAService) Status(ctx context.Context, accountID string) (domain.MFAStatus, error) {
	account, err := s.Store.Accounts().GetAccountByID(ctx, accountID)
	if err != nil {
		return domain.MFAStatus{}, err
	}

	status := domain.MFAStatus{
		Enabled:  account.MFAEnabled,
		Enforced: account.Roles.MFARequired(),
	}
	switch {
	case status.Enforced && !status.Enabled:
		status.Message = "MFA is required for your role; complete setup to log in"
	case status.Enabled:
		status.Message = "MFA is enabled"
	default:
		status.Message = "MFA is available but not enabled"
	}
	return status, nil
}

// verifyCode checks a submitted code against the account's stored secret, no
// mutation. Used by login-time verification as well as enable/disable.
func (s *MFAService) verifyCode(account domain.Account, code string, now time.Time) bool {
	if account.MFASecret == nil || *account.MFASecret == "" {
		return false
	}
	ok, err := totp.ValidateCustom(code, *account.MFASecret, now, totp.ValidateOpts{
		Period:    totpPeriod,
		Skew:      totpSkew,
		Digits:    totpDigits,
		Algorithm: otp.AlgorithmSHA1,
	})
	return err == nil && ok
}

func (s *MFAService) audit(action, accountID string, status domain.AuditStatus, meta domain.RequestMeta) {
	s.Notify.Audit(domain.AuditEvent{
		AccountID: accountID,
		Action:    action,
		Status:    status,
		Meta:      meta,
	})
}
