package http

import (
	"net/http"
	"time"

	"github.com/lumonlab/crecheauth/internal/auth/obs"
	"github.com/lumonlab/crecheauth/pkg/httpx"
)

func (r *Router) registerSystem() {
	r.Mux.HandleFunc("GET /livez", r.handleLivez)
	r.Mux.HandleFunc("GET /readyz", r.handleReadyz)
	r.Mux.Handle("GET /metrics", obs.Handler())
}

func (r *Router) handleLivez(w http.ResponseWriter, req *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": time.Since(r.startTime).Round(time.Second).String(),
	})
}

// handleReadyz reports ready only when the database answers.
func (r *Router) handleReadyz(w http.ResponseWriter, req *http.Request) {
	if err := r.store.Ping(req.Context()); err != nil {
		httpx.WriteError(w, http.StatusServiceUnavailable,
			"not_ready", "database unavailable")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
