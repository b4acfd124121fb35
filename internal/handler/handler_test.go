package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNotFound_Envelope(t *testing.T) {
	t.Parallel()

	h := New()

	req := httptest.NewRequest("GET", "/no/such/route", nil)
	rec := httptest.NewRecorder()
	h.NotFound(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
	body := decodeEnvelope(t, rec)
	if body["code"] != float64(404) {
		t.Errorf("code = %v, want 404", body["code"])
	}
	if body["status"] != false {
		t.Errorf("status = %v, want false", body["status"])
	}
}

func TestMethodNotAllowed_Envelope(t *testing.T) {
	t.Parallel()

	h := New()

	req := httptest.NewRequest("PATCH", "/brand/create/", nil)
	rec := httptest.NewRecorder()
	h.MethodNotAllowed(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusMethodNotAllowed)
	}
	if body := decodeEnvelope(t, rec); body["status"] != false {
		t.Errorf("status = %v, want false", body["status"])
	}
}
