// Package handler provides HTTP request handlers.
package handler

import (
	"net/http"

	"github.com/shopcore/shopcore/internal/response"
)

// Handler holds the catch-all handlers for unmatched routes.
type Handler struct{}

// New creates a new Handler instance.
func New() *Handler {
	return &Handler{}
}

// NotFound handles requests for unregistered routes.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	response.Write(w, response.NotFound("Resource not found."))
}

// MethodNotAllowed handles requests with an unsupported verb on a known route.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	response.Write(w, response.Envelope{
		Code: http.StatusMethodNotAllowed,
		Msg:  "Method not allowed on this resource.",
	})
}
