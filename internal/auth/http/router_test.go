package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRoutePattern(t *testing.T) {
	t.Parallel()
	router, _, _ := newTestRouter(t)

	cases := []struct {
		method string
		target string
		want   string
	}{
		{http.MethodGet, "/v1/mfa/status", "GET /v1/mfa/status"},
		{http.MethodDelete, "/v1/social/links/01ABC", "DELETE /v1/social/links/{id}"},
		{http.MethodGet, "/v1/users/me", "GET /v1/users/me"},
		{http.MethodGet, "/no/such/route", "unmatched"},
		{http.MethodGet, "/v1/users/00000000/secrets", "unmatched"},
	}

	for _, tc := range cases {
		req := httptest.NewRequest(tc.method, tc.target, nil)
		require.Equal(t, tc.want, router.routePattern(req), "%s %s", tc.method, tc.target)
	}
}
