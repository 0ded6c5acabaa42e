package observability_test

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"storedir/internal/adapters/observability"
)

func TestMetricsRegistryAndHandler(t *testing.T) {
	reg := observability.InitRegistry()

	// record samples so counters are non-zero
	observability.ObserveHTTP("/api/search", "GET", 200, 12*time.Millisecond)
	observability.ObserveQuery("search", nil)
	observability.ObserveQuery("near", errors.New("boom"))

	mh := observability.MetricsHandler(reg)
	req := httptest.NewRequest("GET", "/metrics", nil)
	rr := httptest.NewRecorder()
	mh.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("metrics status: %d", rr.Code)
	}
	body, _ := io.ReadAll(rr.Body)
	out := string(body)
	if !strings.Contains(out, "storedir_http_requests_total") {
		t.Fatalf("expected storedir_http_requests_total in output")
	}
	if !strings.Contains(out, `storedir_query_events_total{kind="near",outcome="error"}`) {
		t.Fatalf("expected query error counter in output:\n%s", out)
	}
}
