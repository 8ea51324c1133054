package obs

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestInstrumentLabelsByRoute(t *testing.T) {
	route := func(*http.Request) string { return "GET /v1/widgets/{id}" }
	h := Instrument(route)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/widgets/123?x=1", nil)
	h.ServeHTTP(httptest.NewRecorder(), req)

	got := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "GET /v1/widgets/{id}", "418"))
	if got < 1 {
		t.Fatalf("expected at least one request counted under the route pattern, got %v", got)
	}

	raw := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/v1/widgets/123", "418"))
	if raw != 0 {
		t.Fatalf("raw URL path must not appear as a label, got %v", raw)
	}
}
