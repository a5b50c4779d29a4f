package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestReadinessIncludesDatabaseCheck(t *testing.T) {
	tests := []struct {
		name       string
		pingErr    error
		wantCode   int
		wantStatus string
		wantDB     string
	}{
		{
			name:       "database reachable",
			pingErr:    nil,
			wantCode:   http.StatusOK,
			wantStatus: "ok",
			wantDB:     "ok",
		},
		{
			name:       "database down",
			pingErr:    errors.New("connection refused"),
			wantCode:   http.StatusServiceUnavailable,
			wantStatus: "not ready",
			wantDB:     "failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthChecker(func(ctx context.Context) error { return tt.pingErr })
			h.SetReady(true)

			rec := httptest.NewRecorder()
			h.ReadinessHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

			if rec.Code != tt.wantCode {
				t.Fatalf("Expected %d, got %d", tt.wantCode, rec.Code)
			}

			var resp HealthResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("Response is not a health envelope: %v", err)
			}
			if resp.Status != tt.wantStatus {
				t.Errorf("Expected status %q, got %q", tt.wantStatus, resp.Status)
			}
			if resp.Checks["database"] != tt.wantDB {
				t.Errorf("Expected database check %q, got %q", tt.wantDB, resp.Checks["database"])
			}
			if resp.Checks["ready"] != "ok" {
				t.Errorf("Expected ready check ok, got %q", resp.Checks["ready"])
			}
		})
	}
}

func TestReadinessSkipsDatabaseCheckWhenUnset(t *testing.T) {
	h := NewHealthChecker(nil)
	h.SetReady(true)

	rec := httptest.NewRecorder()
	h.ReadinessHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var resp HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Response is not a health envelope: %v", err)
	}
	if _, ok := resp.Checks["database"]; ok {
		t.Error("Expected no database check without a ping function")
	}
}

func TestDetailedHealthCarriesUptime(t *testing.T) {
	h := NewHealthChecker(nil)

	rec := httptest.NewRecorder()
	h.DetailedHealthHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz/detailed", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("Expected 503 before the server is ready, got %d", rec.Code)
	}

	h.SetReady(true)
	rec = httptest.NewRecorder()
	h.DetailedHealthHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz/detailed", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200 once ready, got %d", rec.Code)
	}

	var resp DetailedHealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Response is not a detailed health envelope: %v", err)
	}
	if resp.Uptime == "" {
		t.Error("Expected an uptime in the detailed response")
	}
}
