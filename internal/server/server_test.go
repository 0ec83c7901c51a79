package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shipyardhq/shipyard/internal/analytics"
	"github.com/shipyardhq/shipyard/internal/config"
	"github.com/shipyardhq/shipyard/internal/store"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func newTestServer(t *testing.T) (*Server, *store.Store) {
	t.Helper()
	st := openTestStore(t)
	srv, err := New(st, config.Default().Analytics)
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}
	return srv, st
}

func TestSyncRoute(t *testing.T) {
	srv, _ := newTestServer(t)

	body := strings.NewReader(`{"events":[
		{"id":"e1","name":"session_saved","createdAt":"2026-02-06T10:00:00Z","payload":{"install_id":"install-a"}},
		{"id":"e2","name":"session_closed","createdAt":"2026-02-06T10:01:00Z","payload":{"install_id":"install-a"}},
		{"id":"e2","name":"session_closed","createdAt":"2026-02-06T10:01:00Z"},
		{"id":"","name":"broken","createdAt":""}
	]}`)
	req := httptest.NewRequest("POST", "/api/analytics/sync", body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp struct {
		Accepted    int               `json:"accepted"`
		TotalStored int               `json:"totalStored"`
		Summary     analytics.Summary `json:"summary"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}

	// Duplicate id and invalid event are dropped
	if resp.Accepted != 2 {
		t.Errorf("expected 2 accepted, got %d", resp.Accepted)
	}
	if resp.TotalStored != 2 {
		t.Errorf("expected 2 stored, got %d", resp.TotalStored)
	}
	if resp.Summary.Installs != 1 {
		t.Errorf("expected 1 install, got %d", resp.Summary.Installs)
	}
}

func TestSyncIsIdempotent(t *testing.T) {
	srv, _ := newTestServer(t)

	payload := `{"events":[{"id":"e1","name":"session_saved","createdAt":"2026-02-06T10:00:00Z"}]}`
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest("POST", "/api/analytics/sync", strings.NewReader(payload))
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200 on attempt %d, got %d", i+1, rec.Code)
		}
	}

	req := httptest.NewRequest("GET", "/api/analytics/summary", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	var summary analytics.Summary
	if err := json.NewDecoder(rec.Body).Decode(&summary); err != nil {
		t.Fatalf("decoding summary: %v", err)
	}
	if summary.Total != 1 {
		t.Errorf("expected 1 event after re-sync, got %d", summary.Total)
	}
}

func TestSyncRejectsBadBody(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest("POST", "/api/analytics/sync", strings.NewReader("not json"))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestSyncMethodNotAllowed(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest("GET", "/api/analytics/sync", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", rec.Code)
	}
}

func TestPreflight(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest("OPTIONS", "/api/analytics/sync", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("expected CORS origin header")
	}
}

func TestSummaryRoute(t *testing.T) {
	srv, st := newTestServer(t)

	events := []analytics.Event{
		{ID: "e1", Name: "session_closed", CreatedAt: "2026-02-06T10:00:00Z"},
		{ID: "e2", Name: "session_saved", CreatedAt: "2026-02-06T10:05:00Z"},
	}
	if err := store.WriteList(st, store.KeyServerEvents, events); err != nil {
		t.Fatalf("seeding events: %v", err)
	}

	req := httptest.NewRequest("GET", "/api/analytics/summary", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var summary analytics.Summary
	if err := json.NewDecoder(rec.Body).Decode(&summary); err != nil {
		t.Fatalf("decoding summary: %v", err)
	}
	if summary.Total != 2 {
		t.Errorf("expected 2 events, got %d", summary.Total)
	}
	if got := summary.KPIs["outcome_save_rate"]; got != 1 {
		t.Errorf("expected save rate 1, got %v", got)
	}
	if summary.LatestEventAt != "2026-02-06T10:05:00Z" {
		t.Errorf("unexpected latest timestamp %q", summary.LatestEventAt)
	}
}

func TestIndexRoute(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest("GET", "/", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Event counters") {
		t.Error("expected 'Event counters' in response body")
	}
}

func TestStaticRoute(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest("GET", "/static/style.css", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "tabular-nums") {
		t.Error("expected CSS content")
	}
}
