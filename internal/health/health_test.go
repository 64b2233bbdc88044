package health

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHandler_AllHealthy(t *testing.T) {
	h := NewHandler("test")
	h.RegisterChecker("store", NewSimpleChecker("store", func() error { return nil }))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.Status != StatusHealthy {
		t.Fatalf("expected healthy, got %s", resp.Status)
	}
	if resp.Version != "test" {
		t.Fatalf("expected version test, got %s", resp.Version)
	}
}

func TestHandler_UnhealthyComponent(t *testing.T) {
	h := NewHandler("test")
	h.RegisterChecker("store", NewSimpleChecker("store", func() error {
		return errors.New("connection refused")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestQueueChecker_DegradedAboveThreshold(t *testing.T) {
	checker := NewQueueChecker("mod_queue", func() int { return 150 }, 100)

	check := checker.Check()
	if check.Status != StatusDegraded {
		t.Fatalf("expected degraded, got %s", check.Status)
	}
}

func TestQueueChecker_HealthyBelowThreshold(t *testing.T) {
	checker := NewQueueChecker("mod_queue", func() int { return 3 }, 100)

	if check := checker.Check(); check.Status != StatusHealthy {
		t.Fatalf("expected healthy, got %s", check.Status)
	}
}

func TestReadiness_DegradedStillReady(t *testing.T) {
	h := NewHandler("test")
	h.RegisterChecker("mod_queue", NewQueueChecker("mod_queue", func() int { return 500 }, 100))

	rec := httptest.NewRecorder()
	h.ReadinessHandler(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("degraded queue must not block readiness, got %d", rec.Code)
	}
}

func TestLivenessHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	LivenessHandler(rec, httptest.NewRequest(http.MethodGet, "/livez", nil))

	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("expected 200 ok, got %d %q", rec.Code, rec.Body.String())
	}
}
