package http

import (
	"net/http"

	"github.com/lumonlab/crecheauth/internal/auth/service"
	"github.com/lumonlab/crecheauth/pkg/httpx"
	"github.com/lumonlab/crecheauth/pkg/slogx"
)

// PasswordHandler covers the change and forgot/reset flows.
type PasswordHandler struct {
	Password *service.PasswordService
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

// HandleChange handles POST /v1/password/change for the authenticated account.
func (h *PasswordHandler) HandleChange(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	accountID, ok := httpx.AccountIDFromContext(ctx)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_token", "Missing authenticated account")
		return
	}

	var req changePasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	err := h.Password.ChangePassword(ctx, accountID, req.CurrentPassword, req.NewPassword, requestMeta(r))
	if err != nil {
		writeServiceError(w, log, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleForgot handles POST /v1/password/forgot. Always returns 202 so the
// endpoint cannot be used to probe which emails exist.
func (h *PasswordHandler) HandleForgot(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req forgotPasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Email == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "email is required")
		return
	}

	if err := h.Password.RequestReset(ctx, req.Email, requestMeta(r)); err != nil {
		writeServiceError(w, log, err)
		return
	}

	httpx.WriteJSON(w, http.StatusAccepted, map[string]string{
		"message": "If that email is registered, a reset link is on its way",
	})
}

// HandleReset handles POST /v1/password/reset.
func (h *PasswordHandler) HandleReset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req resetPasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.Password.ResetPassword(ctx, req.Token, req.NewPassword, requestMeta(r)); err != nil {
		writeServiceError(w, log, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleValidate handles GET /v1/password/reset/validate?token=... so the
// client can vet a link before prompting for a new password.
func (h *PasswordHandler) HandleValidate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	token := r.URL.Query().Get("token")
	if token == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "token is required")
		return
	}

	if err := h.Password.ValidateResetToken(ctx, token); err != nil {
		writeServiceError(w, log, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]bool{"valid": true})
}
