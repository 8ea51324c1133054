package http

import (
	"net/http"

	"github.com/lumonlab/crecheauth/internal/auth/domain"
	"github.com/lumonlab/crecheauth/internal/auth/service"
	"github.com/lumonlab/crecheauth/pkg/httpx"
	"github.com/lumonlab/crecheauth/pkg/slogx"
)

// AuthHandler covers registration, password login, refresh and logout.
type AuthHandler struct {
	Auth   *service.AuthService
	Tokens *service.TokenService
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	MFACode  string `json:"mfa_code,omitempty"`
}

type loginResponse struct {
	MFARequired bool   `json:"mfa_required,omitempty"`
	AccountID   string `json:"account_id,omitempty"`
	domain.TokenPair
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// HandleRegister handles POST /v1/auth/register.
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Email == "" || req.Password == "" {
		httpx.WriteError(w, http.StatusBadRequest,
			"invalid_request", "email and password are required")
		return
	}

	role := domain.RoleParent
	if req.Role != "" {
		parsed, err := domain.ParseRole(req.Role)
		if err != nil {
			httpx.WriteError(w, http.StatusBadRequest,
				"invalid_request", "unknown role")
			return
		}
		role = parsed
	}

	account, pair, err := h.Auth.Register(ctx, service.RegisterRequest{
		Email:    req.Email,
		Password: req.Password,
		Role:     role,
		Meta:     requestMeta(r),
	})
	if err != nil {
		writeServiceError(w, log, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, loginResponse{
		AccountID: account.ID,
		TokenPair: pair,
	})
}

// HandleLogin handles POST /v1/auth/login. A 200 with mfa_required=true and
// no tokens means the client should retry with an MFA code.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.Auth.Login(ctx, service.LoginRequest{
		Email:    req.Email,
		Password: req.Password,
		MFACode:  req.MFACode,
		Meta:     requestMeta(r),
	})
	if err != nil {
		writeServiceError(w, log, err)
		return
	}

	if result.MFARequired {
		httpx.WriteJSON(w, http.StatusOK, loginResponse{MFARequired: true})
		return
	}

	httpx.WriteJSON(w, http.StatusOK, loginResponse{
		AccountID: result.Account.ID,
		TokenPair: result.Tokens,
	})
}

// HandleRefresh handles POST /v1/auth/refresh.
func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req refreshRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	pair, err := h.Tokens.Rotate(ctx, req.RefreshToken)
	if err != nil {
		writeServiceError(w, log, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, pair)
}

// HandleLogout handles POST /v1/auth/logout. Requires a valid access token;
// revokes every refresh token the account holds.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	accountID, ok := httpx.AccountIDFromContext(ctx)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized,
			"invalid_token", "Missing authenticated account")
		return
	}

	if err := h.Auth.Logout(ctx, accountID, requestMeta(r)); err != nil {
		writeServiceError(w, log, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
