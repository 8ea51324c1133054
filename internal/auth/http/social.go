package http

import (
	"net/http"
	"time"

	"github.com/lumonlab/crecheauth/internal/auth/domain"
	"github.com/lumonlab/crecheauth/internal/auth/service"
	"github.com/lumonlab/crecheauth/pkg/httpx"
	"github.com/lumonlab/crecheauth/pkg/slogx"
)

// SocialHandler covers federated login and link management.
type SocialHandler struct {
	Social *service.SocialService
}

type socialAssertionRequest struct {
	Provider  string `json:"provider"`
	Assertion string `json:"assertion"`
}

type socialLinkResponse struct {
	ID          string    `json:"id"`
	Provider    string    `json:"provider"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name,omitempty"`
	LinkedAt    time.Time `json:"linked_at"`
}

func toLinkResponse(s domain.SocialAccount) socialLinkResponse {
	return socialLinkResponse{
		ID:          s.ID,
		Provider:    s.Provider,
		Email:       s.Email,
		DisplayName: s.DisplayName,
		LinkedAt:    s.LinkedAt,
	}
}

// HandleLogin handles POST /v1/auth/social/login.
func (h *SocialHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req socialAssertionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Provider == "" || req.Assertion == "" {
		httpx.WriteError(w, http.StatusBadRequest,
			"invalid_request", "provider and assertion are required")
		return
	}

	result, err := h.Social.Login(ctx, req.Provider, req.Assertion, requestMeta(r))
	if err != nil {
		writeServiceError(w, log, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, loginResponse{
		AccountID: result.Account.ID,
		TokenPair: result.Tokens,
	})
}

// HandleLink handles POST /v1/social/links for the authenticated account.
func (h *SocialHandler) HandleLink(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	accountID, ok := httpx.AccountIDFromContext(ctx)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_token", "Missing authenticated account")
		return
	}

	var req socialAssertionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	link, err := h.Social.Link(ctx, accountID, req.Provider, req.Assertion, requestMeta(r))
	if err != nil {
		writeServiceError(w, log, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, toLinkResponse(link))
}

// HandleList handles GET /v1/social/links.
func (h *SocialHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	accountID, ok := httpx.AccountIDFromContext(ctx)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_token", "Missing authenticated account")
		return
	}

	links, err := h.Social.List(ctx, accountID)
	if err != nil {
		writeServiceError(w, log, err)
		return
	}

	out := make([]socialLinkResponse, 0, len(links))
	for _, link := range links {
		out = append(out, toLinkResponse(link))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// HandleUnlink handles DELETE /v1/social/links/{id}.
func (h *SocialHandler) HandleUnlink(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	accountID, ok := httpx.AccountIDFromContext(ctx)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_token", "Missing authenticated account")
		return
	}

	socialID := r.PathValue("id")
	if socialID == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "missing link id")
		return
	}

	if err := h.Social.Unlink(ctx, accountID, socialID, requestMeta(r)); err != nil {
		writeServiceError(w, log, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
