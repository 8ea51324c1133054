// Package http wires the credential engine to its HTTP surface. Handlers
// stay thin: decode, extract request metadata, call a service, map the error.
package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/lumonlab/crecheauth/internal/auth/obs"
	"github.com/lumonlab/crecheauth/internal/auth/service"
	"github.com/lumonlab/crecheauth/internal/auth/store"
	"github.com/lumonlab/crecheauth/pkg/httpx"
	"github.com/lumonlab/crecheauth/pkg/jwtx"
	"github.com/lumonlab/crecheauth/pkg/slogx"

	"github.com/lumonlab/crecheauth/internal/auth/domain"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	verifier  jwtx.Verifier
	issuer    string
	startTime time.Time
	logger    *slog.Logger
	store     store.Store

	AuthService     *service.AuthService
	TokenService    *service.TokenService
	MFAService      *service.MFAService
	SocialService   *service.SocialService
	PasswordService *service.PasswordService
}

func NewRouter(verifier jwtx.Verifier, issuer string, st store.Store, logger *slog.Logger) *Router {
	r := &Router{
		Mux:       http.NewServeMux(),
		verifier:  verifier,
		issuer:    issuer,
		startTime: time.Now(),
		logger:    logger,
		store:     st,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
		obs.Instrument(r.routePattern),
	}

	return r
}

// routePattern resolves a request to its registered mux pattern so metric
// labels stay bounded. Requests that match no route share one label.
func (r *Router) routePattern(req *http.Request) string {
	if _, pattern := r.Mux.Handler(req); pattern != "" {
		return pattern
	}
	return "unmatched"
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerMFA()
	r.registerSocial()
	r.registerPassword()
	r.registerUsers()
	r.registerSystem()
}

// ServeHTTP applies the global middleware chain around the mux.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerAuth() {
	h := &AuthHandler{Auth: r.AuthService, Tokens: r.TokenService}

	r.Mux.Handle("POST /v1/auth/register",
		httpx.Chain(http.HandlerFunc(h.HandleRegister),
			httpx.RateLimitMiddleware(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /v1/auth/login",
		httpx.Chain(http.HandlerFunc(h.HandleLogin),
			httpx.RateLimitMiddleware(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /v1/auth/refresh",
		httpx.Chain(http.HandlerFunc(h.HandleRefresh),
			httpx.RateLimitMiddleware(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("POST /v1/auth/logout",
		httpx.Chain(http.HandlerFunc(h.HandleLogout),
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitMiddleware(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerMFA() {
	h := &MFAHandler{MFA: r.MFAService}

	secured := func(fn http.HandlerFunc) http.Handler {
		return httpx.Chain(fn,
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitMiddleware(httpx.ModerateLimit),
		)
	}

	r.Mux.Handle("POST /v1/mfa/setup", secured(h.HandleSetup))
	r.Mux.Handle("POST /v1/mfa/verify", secured(h.HandleVerify))
	r.Mux.Handle("POST /v1/mfa/disable", secured(h.HandleDisable))
	r.Mux.Handle("GET /v1/mfa/status", secured(h.HandleStatus))
}

func (r *Router) registerSocial() {
	h := &SocialHandler{Social: r.SocialService}

	r.Mux.Handle("POST /v1/auth/social/login",
		httpx.Chain(http.HandlerFunc(h.HandleLogin),
			httpx.RateLimitMiddleware(httpx.StrictLimit),
		),
	)

	secured := func(fn http.HandlerFunc) http.Handler {
		return httpx.Chain(fn,
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitMiddleware(httpx.ModerateLimit),
		)
	}

	r.Mux.Handle("POST /v1/social/links", secured(h.HandleLink))
	r.Mux.Handle("GET /v1/social/links", secured(h.HandleList))
	r.Mux.Handle("DELETE /v1/social/links/{id}", secured(h.HandleUnlink))
}

func (r *Router) registerUsers() {
	h := &UserHandler{Store: r.store}

	r.Mux.Handle("GET /v1/users/me",
		httpx.Chain(http.HandlerFunc(h.HandleMe),
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitMiddleware(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerPassword() {
	h := &PasswordHandler{Password: r.PasswordService}

	r.Mux.Handle("POST /v1/password/change",
		httpx.Chain(http.HandlerFunc(h.HandleChange),
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitMiddleware(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("POST /v1/password/forgot",
		httpx.Chain(http.HandlerFunc(h.HandleForgot),
			httpx.RateLimitMiddleware(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /v1/password/reset",
		httpx.Chain(http.HandlerFunc(h.HandleReset),
			httpx.RateLimitMiddleware(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("GET /v1/password/reset/validate",
		httpx.Chain(http.HandlerFunc(h.HandleValidate),
			httpx.RateLimitMiddleware(httpx.ModerateLimit),
		),
	)
}

func jsonDecode(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	return dec.Decode(dst)
}

// requestMeta pulls the client metadata the audit trail records.
func requestMeta(r *http.Request) domain.RequestMeta {
	return domain.RequestMeta{
		IPAddress: httpx.ClientIP(r),
		UserAgent: r.UserAgent(),
	}
}
