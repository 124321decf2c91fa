package server

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmaytorres/trackvault/internal/connectivity"
	"github.com/dmaytorres/trackvault/internal/domain"
	"github.com/dmaytorres/trackvault/internal/logger"
)

func TestSetAuthStatus_ReachesOnline(t *testing.T) {
	// Probe always succeeds, as it does with a reachable remote service.
	detector := connectivity.NewDetector(func(ctx context.Context) error { return nil }, time.Hour, nil)

	var onlineCalls atomic.Int32
	detector.OnOnline(func() { onlineCalls.Add(1) })

	detector.ProbeNow(context.Background())

	h := &Handler{Detector: detector, Logger: logger.Default()}

	// Network is up but no session yet: still offline.
	if state := detector.State(); state.Online || state.Reason != domain.ReasonNotAuthenticated {
		t.Fatalf("Expected offline(not_authenticated) before auth, got %+v", state)
	}

	req := httptest.NewRequest("POST", "/api/auth", strings.NewReader(`{"authenticated": true}`))
	rec := httptest.NewRecorder()
	h.SetAuthStatus(rec, req)

	if rec.Code != 200 {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}

	var state domain.ConnState
	if err := json.NewDecoder(rec.Body).Decode(&state); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if !state.Online {
		t.Fatalf("Expected online after auth report, got %+v", state)
	}

	// The session report completes the offline-to-online edge, so the
	// reconciliation trigger fires.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && onlineCalls.Load() == 0 {
		time.Sleep(5 * time.Millisecond)
	}
	if got := onlineCalls.Load(); got != 1 {
		t.Errorf("Expected 1 online notification, got %d", got)
	}

	// Logging out takes the daemon offline again.
	req = httptest.NewRequest("POST", "/api/auth", strings.NewReader(`{"authenticated": false}`))
	rec = httptest.NewRecorder()
	h.SetAuthStatus(rec, req)

	if state := detector.State(); state.Online || state.Reason != domain.ReasonNotAuthenticated {
		t.Errorf("Expected offline(not_authenticated) after logout, got %+v", state)
	}
}

func TestSetAuthStatus_RejectsBadBody(t *testing.T) {
	detector := connectivity.NewDetector(func(ctx context.Context) error { return nil }, time.Hour, nil)
	h := &Handler{Detector: detector, Logger: logger.Default()}

	req := httptest.NewRequest("POST", "/api/auth", strings.NewReader(`not json`))
	rec := httptest.NewRecorder()
	h.SetAuthStatus(rec, req)

	if rec.Code != 400 {
		t.Errorf("Expected status 400 for invalid body, got %d", rec.Code)
	}
}
