package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type fakePinger struct {
	err error
}

func (f *fakePinger) Ping(ctx context.Context) error {
	return f.err
}

func TestStatus_AllHealthy(t *testing.T) {
	t.Parallel()

	h := NewStatusHandler(&fakePinger{}, &fakePinger{})

	req := httptest.NewRequest("GET", "/status/", nil)
	rec := httptest.NewRecorder()
	h.Status(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	body := decodeEnvelope(t, rec)
	if body["status"] != true {
		t.Errorf("status = %v, want true", body["status"])
	}
	checks, ok := body["checks"].(map[string]any)
	if !ok {
		t.Fatal("response missing checks")
	}
	if checks["postgres"] != "ok" || checks["redis"] != "ok" {
		t.Errorf("checks = %v", checks)
	}
}

func TestStatus_DatabaseDown(t *testing.T) {
	t.Parallel()

	h := NewStatusHandler(&fakePinger{err: errors.New("connection refused")}, &fakePinger{})

	req := httptest.NewRequest("GET", "/status/", nil)
	rec := httptest.NewRecorder()
	h.Status(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
	body := decodeEnvelope(t, rec)
	if body["status"] != false {
		t.Errorf("status = %v, want false", body["status"])
	}
}

func TestStatus_NotConfigured(t *testing.T) {
	t.Parallel()

	h := NewStatusHandler(nil, nil)

	req := httptest.NewRequest("GET", "/status/", nil)
	rec := httptest.NewRecorder()
	h.Status(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	checks := decodeEnvelope(t, rec)["checks"].(map[string]any)
	if checks["postgres"] != "not configured" {
		t.Errorf("postgres check = %v", checks["postgres"])
	}
}
