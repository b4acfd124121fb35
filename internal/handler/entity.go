package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/shopcore/shopcore/internal/auth"
	"github.com/shopcore/shopcore/internal/dispatch"
	"github.com/shopcore/shopcore/internal/middleware"
	"github.com/shopcore/shopcore/internal/response"
)

// Behavior flag headers recognized on entity routes.
const (
	IncludeDeletedHeader       = "Include-Deleted"
	ResolveEnumsHeader         = "Resolve-Enums"
	ResolveRelationshipsHeader = "Resolve-Relationships"
)

// EntityHandler serves the generic entity routes. Every entity and operation
// goes through the same pair of handlers; the dispatcher resolves the rest.
type EntityHandler struct {
	dispatcher *dispatch.Dispatcher
	logger     *slog.Logger
}

// NewEntityHandler creates a new EntityHandler.
func NewEntityHandler(dispatcher *dispatch.Dispatcher, logger *slog.Logger) *EntityHandler {
	return &EntityHandler{
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// Collection handles operations addressed without a record ID:
// GET/POST /{entity}/{operation}/.
func (h *EntityHandler) Collection(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, "")
}

// Member handles operations addressed to one record:
// GET/PUT/DELETE /{entity}/{operation}/{id}.
func (h *EntityHandler) Member(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, chi.URLParam(r, "id"))
}

func (h *EntityHandler) serve(w http.ResponseWriter, r *http.Request, id string) {
	store := middleware.StoreFromContext(r.Context())
	if store == nil {
		response.Write(w, response.InternalError("no database bound to request"))
		return
	}

	body, err := decodeBody(r)
	if err != nil {
		response.Write(w, response.BadRequest("Request body is not valid JSON."))
		return
	}

	req := &dispatch.Request{
		ID:     id,
		Body:   body,
		Query:  r.URL.Query(),
		Params: paramsFromHeaders(r),
		Actor:  auth.ActorFromContext(r.Context()),
	}

	env := h.dispatcher.Dispatch(
		r.Context(),
		store,
		chi.URLParam(r, "entity"),
		chi.URLParam(r, "operation"),
		req,
	)
	response.Write(w, env)
}

// decodeBody parses the request body as a JSON object. An absent or empty
// body is not an error; operations that need one report it themselves.
func decodeBody(r *http.Request) (map[string]any, error) {
	if r.Body == nil {
		return nil, nil
	}
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, err
	}
	return body, nil
}

func paramsFromHeaders(r *http.Request) dispatch.Params {
	return dispatch.Params{
		IncludeDeleted:       headerFlag(r, IncludeDeletedHeader),
		ResolveEnums:         headerFlag(r, ResolveEnumsHeader),
		ResolveRelationships: headerFlag(r, ResolveRelationshipsHeader),
	}
}

func headerFlag(r *http.Request, name string) bool {
	v := r.Header.Get(name)
	return strings.EqualFold(v, "true") || v == "1"
}
