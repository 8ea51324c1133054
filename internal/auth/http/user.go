package http

import (
	"net/http"
	"time"

	"github.com/lumonlab/crecheauth/internal/auth/store"
	"github.com/lumonlab/crecheauth/pkg/httpx"
	"github.com/lumonlab/crecheauth/pkg/slogx"
)

// UserHandler exposes the authenticated account's own profile.
type UserHandler struct {
	Store store.Store
}

type userResponse struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	Status      string     `json:"status"`
	MFAEnabled  bool       `json:"mfa_enabled"`
	Roles       []string   `json:"roles"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// HandleMe handles GET /v1/users/me.
func (h *UserHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	accountID, ok := httpx.AccountIDFromContext(ctx)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_token", "Missing authenticated account")
		return
	}

	account, err := h.Store.Accounts().GetAccountByID(ctx, accountID)
	if err != nil {
		writeServiceError(w, log, err)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, userResponse{
		ID:          account.ID,
		Email:       account.Email,
		Status:      string(account.Status),
		MFAEnabled:  account.MFAEnabled,
		Roles:       account.Roles.Names(),
		LastLoginAt: account.LastLoginAt,
		CreatedAt:   account.CreatedAt,
	})
}
