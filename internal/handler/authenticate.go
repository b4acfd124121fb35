package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/shopcore/shopcore/internal/auth"
	"github.com/shopcore/shopcore/internal/entity"
	"github.com/shopcore/shopcore/internal/middleware"
	"github.com/shopcore/shopcore/internal/repository"
	"github.com/shopcore/shopcore/internal/response"
)

// TokenRevoker records a user's logout so earlier tokens stop validating.
type TokenRevoker interface {
	RecordLogout(ctx context.Context, userID string, at time.Time, ttl time.Duration) error
}

// AuthHandler serves the /authenticate routes.
type AuthHandler struct {
	tokens      *auth.TokenManager
	revocations TokenRevoker
	logger      *slog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(tokens *auth.TokenManager, revocations TokenRevoker, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		tokens:      tokens,
		revocations: revocations,
		logger:      logger,
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login handles POST /authenticate/login. Unknown email and wrong password
// produce the same message so the endpoint never confirms account existence.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	store := middleware.StoreFromContext(r.Context())
	if store == nil {
		response.Write(w, response.InternalError("no database bound to request"))
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Write(w, response.BadRequest("Request body is not valid JSON."))
		return
	}
	if req.Email == "" || req.Password == "" {
		response.Write(w, response.BadRequest("email and password are required to login."))
		return
	}

	userDesc, _ := entity.Lookup("user")
	user, err := store.GetByColumn(r.Context(), userDesc, "email", req.Email, false)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			response.Write(w, invalidCredentials())
			return
		}
		h.logger.Error("login user lookup failed", slog.String("error", err.Error()))
		response.Write(w, response.InternalError("login failed"))
		return
	}

	hash, _ := user["password"].(string)
	ok, err := auth.VerifyPassword(req.Password, hash)
	if err != nil || !ok {
		response.Write(w, invalidCredentials())
		return
	}

	userID, _ := user[userDesc.PrimaryKey()].(string)
	token, err := h.tokens.Issue(userID, time.Now())
	if err != nil {
		h.logger.Error("token issue failed", slog.String("error", err.Error()))
		response.Write(w, response.InternalError("login failed"))
		return
	}

	h.logger.Info("user logged in", slog.String("user_id", userID))

	response.Write(w, response.Success("login successful").
		With("token", token).
		With("user", userDesc.Scrub(user)))
}

// Logout handles GET /authenticate/logout. Runs behind the token validator,
// so the actor is already resolved. All tokens issued before this instant
// become invalid.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	actor := auth.ActorFromContext(r.Context())
	if actor == nil {
		response.Write(w, response.InternalError("no authenticated actor on request"))
		return
	}

	if err := h.revocations.RecordLogout(r.Context(), actor.UserID, time.Now(), h.tokens.TTL()); err != nil {
		h.logger.Error("logout record failed",
			slog.String("user_id", actor.UserID),
			slog.String("error", err.Error()),
		)
		response.Write(w, response.InternalError("logout failed"))
		return
	}

	h.logger.Info("user logged out", slog.String("user_id", actor.UserID))

	response.Write(w, response.Success("logged out successfully"))
}

func invalidCredentials() response.Envelope {
	return response.BadRequest("Invalid email or password.")
}
