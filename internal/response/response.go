// Package response builds the uniform API envelope returned by every
// operation: {code, status, msg} plus operation-specific payload keys
// flattened alongside.
package response

import (
	"encoding/json"
	"net/http"
)

// Envelope is the uniform operation result. Status is true iff Code is 200.
// Data keys are serialized at the top level next to code/status/msg.
type Envelope struct {
	Code   int
	Status bool
	Msg    string
	Data   map[string]any
}

// With attaches a payload key to the envelope and returns it.
func (e Envelope) With(key string, value any) Envelope {
	if e.Data == nil {
		e.Data = make(map[string]any, 1)
	}
	e.Data[key] = value
	return e
}

// MarshalJSON flattens Data beside the fixed fields. The fixed keys always
// win over payload keys of the same name.
func (e Envelope) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(e.Data)+3)
	for k, v := range e.Data {
		out[k] = v
	}
	out["code"] = e.Code
	out["status"] = e.Status
	out["msg"] = e.Msg
	return json.Marshal(out)
}

func build(code int, msg string) Envelope {
	return Envelope{
		Code:   code,
		Status: code == http.StatusOK,
		Msg:    msg,
	}
}

// Success builds a 200 envelope.
func Success(msg string) Envelope {
	return build(http.StatusOK, msg)
}

// BadRequest builds a 400 envelope.
func BadRequest(msg string) Envelope {
	if msg == "" {
		msg = "Bad request. Please verify the supplied input."
	}
	return build(http.StatusBadRequest, msg)
}

// NotFound builds a 404 envelope.
func NotFound(msg string) Envelope {
	return build(http.StatusNotFound, msg)
}

// EntityNotFound builds the standard 404 envelope for a missing entity row.
func EntityNotFound(entityName string) Envelope {
	return NotFound("We are unable to find " + entityName + " details in database.")
}

// NotAcceptable builds a 406 envelope for a write rejected by the
// persistence layer.
func NotAcceptable(msg string) Envelope {
	return build(http.StatusNotAcceptable, msg)
}

// InternalError builds a 500 envelope.
func InternalError(msg string) Envelope {
	return build(http.StatusInternalServerError, "Internal Server Error: "+msg)
}

// ServiceUnavailable builds a 503 envelope.
func ServiceUnavailable(msg string) Envelope {
	return build(http.StatusServiceUnavailable, "Service Unavailable: "+msg)
}

// Write serializes the envelope to w, mirroring Code in the HTTP status line.
func Write(w http.ResponseWriter, e Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.Code)
	_ = json.NewEncoder(w).Encode(e)
}
