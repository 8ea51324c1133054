package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/lumonlab/crecheauth/internal/auth/service"
	"github.com/lumonlab/crecheauth/internal/auth/store"
	"github.com/lumonlab/crecheauth/pkg/httpx"
)

// writeServiceError maps engine failures onto HTTP responses. Unknown errors
// become an opaque 500 so internals never leak to clients.
func writeServiceError(w http.ResponseWriter, log *slog.Logger, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		httpx.WriteError(w, http.StatusUnauthorized,
			"invalid_credentials", "Invalid email or password")
	case errors.Is(err, service.ErrAccountLocked):
		httpx.WriteError(w, http.StatusLocked,
			"account_locked", "Account temporarily locked after repeated failures")
	case errors.Is(err, service.ErrAccountSuspended):
		httpx.WriteError(w, http.StatusForbidden,
			"account_suspended", "Account is suspended")
	case errors.Is(err, service.ErrMFASetupRequired):
		httpx.WriteError(w, http.StatusForbidden,
			"mfa_setup_required", "Your role requires MFA; complete setup first")
	case errors.Is(err, service.ErrInvalidMFACode):
		httpx.WriteError(w, http.StatusUnauthorized,
			"invalid_mfa_code", "The MFA code is not valid")
	case errors.Is(err, service.ErrMFAAlreadyEnabled):
		httpx.WriteError(w, http.StatusConflict,
			"mfa_already_enabled", "MFA is already enabled")
	case errors.Is(err, service.ErrMFANotEnabled), errors.Is(err, service.ErrMFANotEnrolled):
		httpx.WriteError(w, http.StatusBadRequest,
			"mfa_not_enabled", "MFA is not enabled for this account")
	case errors.Is(err, service.ErrMFAEnforced):
		httpx.WriteError(w, http.StatusForbidden,
			"mfa_enforced", "MFA cannot be disabled for your role")
	case errors.Is(err, service.ErrTokenExpiredOrRevoked):
		httpx.WriteError(w, http.StatusUnauthorized,
			"invalid_token", "Refresh token invalid or expired")
	case errors.Is(err, service.ErrEmailTaken):
		httpx.WriteError(w, http.StatusConflict,
			"email_taken", "An account with this email already exists")
	case errors.Is(err, service.ErrPasswordTooShort):
		httpx.WriteError(w, http.StatusBadRequest,
			"password_too_short", "Password does not meet the length requirement")
	case errors.Is(err, service.ErrSamePassword):
		httpx.WriteError(w, http.StatusBadRequest,
			"password_unchanged", "New password must differ from the current one")
	case errors.Is(err, service.ErrIdentityTaken):
		httpx.WriteError(w, http.StatusConflict,
			"identity_taken", "This identity is already linked to another account")
	case errors.Is(err, service.ErrNotLinkOwner):
		httpx.WriteError(w, http.StatusForbidden,
			"not_link_owner", "Social account does not belong to this account")
	case errors.Is(err, service.ErrPasswordRequired):
		httpx.WriteError(w, http.StatusBadRequest,
			"password_required", "Set a password before unlinking the last social login")
	case errors.Is(err, service.ErrVerificationFailed):
		httpx.WriteError(w, http.StatusUnauthorized,
			"verification_failed", "Identity provider verification failed")
	case errors.Is(err, service.ErrTokenAlreadyUsed):
		httpx.WriteError(w, http.StatusBadRequest,
			"reset_token_used", "This reset link has already been used")
	case errors.Is(err, service.ErrResetTokenInvalid):
		httpx.WriteError(w, http.StatusBadRequest,
			"reset_token_invalid", "This reset link is invalid or has expired")
	case errors.Is(err, store.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound,
			"not_found", "Resource not found")
	default:
		log.Error("unhandled service error", "error", err)
		httpx.WriteError(w, http.StatusInternalServerError,
			"server_error", "Something went wrong")
	}
}

// decodeJSON parses a request body into dst, rejecting unknown payloads
// politely.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := jsonDecode(r, dst); err != nil {
		httpx.WriteError(w, http.StatusBadRequest,
			"invalid_request", "Malformed JSON body")
		return false
	}
	return true
}
