package response

import (
	"encoding/json"
	"net/http/httptest"
	"testing"
)

func TestBuilders_StatusMirrorsCode(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		envelope Envelope
		code     int
		status   bool
	}{
		{"success", Success("ok"), 200, true},
		{"bad request", BadRequest("nope"), 400, false},
		{"not found", NotFound("missing"), 404, false},
		{"entity not found", EntityNotFound("product"), 404, false},
		{"not acceptable", NotAcceptable("rejected"), 406, false},
		{"internal", InternalError("boom"), 500, false},
		{"unavailable", ServiceUnavailable("down"), 503, false},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if tc.envelope.Code != tc.code {
				t.Errorf("Code = %d, want %d", tc.envelope.Code, tc.code)
			}
			if tc.envelope.Status != tc.status {
				t.Errorf("Status = %v, want %v", tc.envelope.Status, tc.status)
			}
			if tc.envelope.Msg == "" {
				t.Error("Msg should not be empty")
			}
		})
	}
}

func TestBadRequest_DefaultMessage(t *testing.T) {
	t.Parallel()

	e := BadRequest("")
	if e.Msg == "" {
		t.Error("expected a default message for empty input")
	}
}

func TestEnvelope_MarshalFlattensData(t *testing.T) {
	t.Parallel()

	e := Success("product fetched successfully").
		With("product", map[string]any{"product_id": "p-1"}).
		With("total", 3)

	raw, err := json.Marshal(e)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if out["code"].(float64) != 200 {
		t.Errorf("code = %v, want 200", out["code"])
	}
	if out["status"] != true {
		t.Errorf("status = %v, want true", out["status"])
	}
	if out["total"].(float64) != 3 {
		t.Errorf("total = %v, want 3", out["total"])
	}
	product, ok := out["product"].(map[string]any)
	if !ok || product["product_id"] != "p-1" {
		t.Errorf("product payload not flattened: %v", out["product"])
	}
}

func TestEnvelope_FixedKeysWin(t *testing.T) {
	t.Parallel()

	e := Success("ok").With("code", 999)

	raw, err := json.Marshal(e)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out["code"].(float64) != 200 {
		t.Errorf("code = %v, payload must not shadow the envelope", out["code"])
	}
}

func TestWrite_MirrorsCodeInStatusLine(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	Write(rec, EntityNotFound("user"))

	if rec.Code != 404 {
		t.Errorf("status line = %d, want 404", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %s, want application/json", ct)
	}

	var out map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if out["status"] != false {
		t.Errorf("status = %v, want false", out["status"])
	}
}
