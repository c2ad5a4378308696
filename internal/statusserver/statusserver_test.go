package statusserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"mediascand/internal/metrics"
)

type fakeStats struct {
	stats metrics.Stats
}

func (f fakeStats) GetStats() metrics.Stats { return f.stats }

type fakeReady struct {
	ready bool
}

func (f fakeReady) Ready() bool { return f.ready }

func newTestServer(ready bool) *Server {
	return New(":0", fakeStats{stats: metrics.Stats{
		ActiveWatches:  3,
		WatchSlabSize:  4,
		DirCacheSize:   3,
		PendingEntries: 1,
	}}, fakeReady{ready: ready})
}

func TestHealthzAlwaysReturns200(t *testing.T) {
	s := newTestServer(false)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestReadyzReflectsReadyChecker(t *testing.T) {
	notReady := newTestServer(false)
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec := httptest.NewRecorder()
	notReady.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("not-ready status = %d, want 503", rec.Code)
	}

	ready := newTestServer(true)
	req2 := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec2 := httptest.NewRecorder()
	ready.router.ServeHTTP(rec2, req2)
	if rec2.Code != http.StatusOK {
		t.Errorf("ready status = %d, want 200", rec2.Code)
	}
}

func TestDebugStateReportsStats(t *testing.T) {
	s := newTestServer(true)
	req := httptest.NewRequest(http.MethodGet, "/debug/state", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body debugStateResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.ActiveWatches != 3 || body.DirCacheSize != 3 || body.PendingEntries != 1 {
		t.Errorf("body = %+v, want stats mirrored from the provider", body)
	}
	if !body.Ready {
		t.Error("Ready = false, want true")
	}
}

func TestMetricsEndpointServesPrometheusFormat(t *testing.T) {
	s := newTestServer(true)
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct == "" {
		t.Error("expected a Content-Type header from promhttp.Handler()")
	}
}
