package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestServer_handleHealth(t *testing.T) {
	s := New(0)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	s.handleHealth(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}

	var resp Response
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if resp.Status != "healthy" {
		t.Errorf("expected status 'healthy', got %q", resp.Status)
	}
}

func TestServer_handleReady_NoCheckers(t *testing.T) {
	s := New(0)

	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	w := httptest.NewRecorder()

	s.handleReady(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}

	var resp Response
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if resp.Status != StatusReady {
		t.Errorf("expected status 'ready', got %q", resp.Status)
	}
}

func TestServer_handleReady_DirectoryOffline(t *testing.T) {
	s := New(0)

	s.RegisterChecker("directory", func(ctx context.Context) error {
		return errors.New("directory server offline")
	})

	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	w := httptest.NewRecorder()

	s.handleReady(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", w.Code)
	}

	var resp Response
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if resp.Status != StatusNotReady {
		t.Errorf("expected status 'not_ready', got %q", resp.Status)
	}
	if len(resp.Components) != 1 {
		t.Fatalf("expected 1 component, got %d", len(resp.Components))
	}
	if resp.Components[0].Ready {
		t.Error("expected directory component to be not ready")
	}
	if resp.Components[0].Error != "directory server offline" {
		t.Errorf("unexpected component error %q", resp.Components[0].Error)
	}
}

func TestServer_handleReady_MixedComponents(t *testing.T) {
	s := New(0)

	s.RegisterChecker("directory", func(ctx context.Context) error { return nil })
	s.RegisterChecker("updater", func(ctx context.Context) error {
		return errors.New("no update yet")
	})

	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	w := httptest.NewRecorder()

	s.handleReady(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", w.Code)
	}

	var resp Response
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	ready, notReady := 0, 0
	for _, c := range resp.Components {
		if c.Ready {
			ready++
		} else {
			notReady++
		}
	}
	if ready != 1 || notReady != 1 {
		t.Errorf("expected 1 ready and 1 not ready, got %d/%d", ready, notReady)
	}
}

func TestServer_handleReady_Timeout(t *testing.T) {
	s := New(0, WithTimeout(50*time.Millisecond))

	s.RegisterChecker("slow", func(ctx context.Context) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(100 * time.Millisecond):
			return nil
		}
	})

	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	w := httptest.NewRecorder()

	s.handleReady(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", w.Code)
	}
}

func TestServer_handleStatus(t *testing.T) {
	last := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	s := New(0,
		WithVersion("1.2.3"),
		WithStatus(func() (string, time.Time) {
			return "online", last
		}),
	)

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	w := httptest.NewRecorder()

	s.handleStatus(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}

	var resp StatusResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if resp.Version != "1.2.3" {
		t.Errorf("version = %q", resp.Version)
	}
	if resp.DirectoryState != "online" {
		t.Errorf("directory state = %q", resp.DirectoryState)
	}
	if resp.LastUpdate != "2026-08-28T12:00:00Z" {
		t.Errorf("last update = %q", resp.LastUpdate)
	}
}

func TestServer_handleStatus_NoUpdateYet(t *testing.T) {
	s := New(0, WithStatus(func() (string, time.Time) {
		return "offline", time.Time{}
	}))

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	w := httptest.NewRecorder()

	s.handleStatus(w, req)

	var resp StatusResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.LastUpdate != "" {
		t.Errorf("expected empty last update, got %q", resp.LastUpdate)
	}
	if resp.DirectoryState != "offline" {
		t.Errorf("directory state = %q", resp.DirectoryState)
	}
}

func TestServer_RegisterChecker(t *testing.T) {
	s := New(0)

	s.RegisterChecker("directory", func(ctx context.Context) error { return nil })

	if len(s.checkers) != 1 {
		t.Errorf("expected 1 checker, got %d", len(s.checkers))
	}
	if _, ok := s.checkers["directory"]; !ok {
		t.Error("expected checker 'directory' to be registered")
	}
}
