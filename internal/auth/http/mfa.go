package http

import (
	"net/http"

	"github.com/lumonlab/crecheauth/internal/auth/service"
	"github.com/lumonlab/crecheauth/pkg/httpx"
	"github.com/lumonlab/crecheauth/pkg/slogx"
)

// MFAHandler covers TOTP enrollment, verification, disable and status.
type MFAHandler struct {
	MFA *service.MFAService
}

type mfaCodeRequest struct {
	Code string `json:"code"`
}

// HandleSetup handles POST /v1/mfa/setup. Returns the secret and the
// otpauth:// provisioning URI; MFA stays off until verified.
func (h *MFAHandler) HandleSetup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	accountID, ok := httpx.AccountIDFromContext(ctx)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_token", "Missing authenticated account")
		return
	}

	setup, err := h.MFA.Setup(ctx, accountID, requestMeta(r))
	if err != nil {
		writeServiceError(w, log, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, setup)
}

// HandleVerify handles POST /v1/mfa/verify, confirming the pending secret.
func (h *MFAHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	accountID, ok := httpx.AccountIDFromContext(ctx)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_token", "Missing authenticated account")
		return
	}

	var req mfaCodeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.MFA.VerifyAndEnable(ctx, accountID, req.Code, requestMeta(r)); err != nil {
		writeServiceError(w, log, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]bool{"mfa_enabled": true})
}

// HandleDisable handles POST /v1/mfa/disable. A live code is required.
func (h *MFAHandler) HandleDisable(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	accountID, ok := httpx.AccountIDFromContext(ctx)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_token", "Missing authenticated account")
		return
	}

	var req mfaCodeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.MFA.Disable(ctx, accountID, req.Code, requestMeta(r)); err != nil {
		writeServiceError(w, log, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]bool{"mfa_enabled": false})
}

// HandleStatus handles GET /v1/mfa/status.
func (h *MFAHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	accountID, ok := httpx.AccountIDFromContext(ctx)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_token", "Missing authenticated account")
		return
	}

	status, err := h.MFA.Status(ctx, accountID)
	if err != nil {
		writeServiceError(w, log, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, status)
}
