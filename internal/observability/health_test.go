package observability

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"testing"
)

func TestHealthCheckerOverallStatus(t *testing.T) {
	logger := NewLogger("error")
	hc := NewHealthChecker(logger)

	hc.RegisterComponent("store")
	hc.RegisterComponent("feed")

	// Registered but unchecked components hold the whole service unhealthy.
	if got := hc.GetHealth().Status; got != StatusUnhealthy {
		t.Errorf("status with unknown components = %v, want unhealthy", got)
	}

	hc.UpdateComponentHealth("store", StatusHealthy, "")
	hc.UpdateComponentHealth("feed", StatusHealthy, "")
	if got := hc.GetHealth().Status; got != StatusHealthy {
		t.Errorf("status with healthy components = %v, want healthy", got)
	}

	hc.UpdateComponentHealth("feed", StatusUnhealthy, "nvd unreachable")
	health := hc.GetHealth()
	if health.Status != StatusUnhealthy {
		t.Errorf("status with failing feed = %v, want unhealthy", health.Status)
	}
	if health.Components["feed"].Message != "nvd unreachable" {
		t.Errorf("component message = %q", health.Components["feed"].Message)
	}
}

func TestCheckComponent(t *testing.T) {
	hc := NewHealthChecker(NewLogger("error"))
	hc.RegisterComponent("store")

	hc.CheckComponent(context.Background(), "store", func(ctx context.Context) error {
		return nil
	})
	if got := hc.GetHealth().Components["store"].Status; got != StatusHealthy {
		t.Errorf("status after passing check = %v", got)
	}

	hc.CheckComponent(context.Background(), "store", func(ctx context.Context) error {
		return fmt.Errorf("database is locked")
	})
	comp := hc.GetHealth().Components["store"]
	if comp.Status != StatusUnhealthy || comp.Message != "database is locked" {
		t.Errorf("status after failing check = %+v", comp)
	}
}

func TestHealthHandler(t *testing.T) {
	hc := NewHealthChecker(NewLogger("error"))
	hc.RegisterComponent("store")
	hc.UpdateComponentHealth("store", StatusHealthy, "")

	rec := httptest.NewRecorder()
	hc.HealthHandler()(rec, httptest.NewRequest("GET", "/health", nil))
	if rec.Code != 200 {
		t.Errorf("healthy status code = %d, want 200", rec.Code)
	}
	var body HealthStatus
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding health body: %v", err)
	}
	if body.Status != StatusHealthy {
		t.Errorf("body status = %v", body.Status)
	}

	hc.UpdateComponentHealth("store", StatusUnhealthy, "down")
	rec = httptest.NewRecorder()
	hc.HealthHandler()(rec, httptest.NewRequest("GET", "/health", nil))
	if rec.Code != 503 {
		t.Errorf("unhealthy status code = %d, want 503", rec.Code)
	}
}

func TestReadyHandler(t *testing.T) {
	hc := NewHealthChecker(NewLogger("error"))
	hc.RegisterComponent("store")
	hc.UpdateComponentHealth("store", StatusHealthy, "")

	rec := httptest.NewRecorder()
	hc.ReadyHandler()(rec, httptest.NewRequest("GET", "/ready", nil))
	if rec.Code != 200 {
		t.Errorf("ready status code = %d, want 200", rec.Code)
	}
}
