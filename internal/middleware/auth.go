package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/shopcore/shopcore/internal/auth"
	"github.com/shopcore/shopcore/internal/entity"
	"github.com/shopcore/shopcore/internal/response"
)

// RevocationChecker reports a user's last recorded logout time. Tokens
// issued before it are invalid.
type RevocationChecker interface {
	LastLogout(ctx context.Context, userID string) (time.Time, error)
}

// AuthConfig holds configuration for the auth middleware.
type AuthConfig struct {
	Logger      *slog.Logger
	Tokens      *auth.TokenManager
	Revocations RevocationChecker
}

// Auth returns a middleware that validates the request's bearer token and
// injects the resolved actor into the request context. A token is accepted
// iff its signature verifies, it has not expired, the referenced user is
// still live, and it was issued after the user's last logout. All failures
// produce a 400 envelope. Must run after the Database middleware.
func Auth(cfg AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractToken(r)
			if token == "" {
				response.Write(w, response.BadRequest("Authentication Token is missing!"))
				return
			}

			claims, err := cfg.Tokens.Verify(token)
			if err != nil {
				cfg.Logger.Warn("token rejected",
					slog.String("reason", err.Error()),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				if errors.Is(err, auth.ErrTokenExpired) {
					response.Write(w, response.BadRequest("Authentication Token is expired!"))
					return
				}
				response.Write(w, response.BadRequest("Invalid Authentication token!"))
				return
			}

			store := StoreFromContext(r.Context())
			if store == nil {
				response.Write(w, response.InternalError("no database bound to request"))
				return
			}

			userDesc, _ := entity.Lookup("user")
			user, err := store.GetByColumn(r.Context(), userDesc, "user_id", claims.UserID, false)
			if err != nil {
				cfg.Logger.Warn("token user not resolvable",
					slog.String("user_id", claims.UserID),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				response.Write(w, response.BadRequest("Invalid Authentication token!"))
				return
			}

			lastLogout, err := cfg.Revocations.LastLogout(r.Context(), claims.UserID)
			if err != nil {
				cfg.Logger.Error("revocation lookup failed",
					slog.String("error", err.Error()),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				response.Write(w, response.InternalError("authentication backend unavailable"))
				return
			}
			if !lastLogout.IsZero() && claims.IssuedAt.Time.Before(lastLogout) {
				response.Write(w, response.BadRequest("Invalid Authentication token!"))
				return
			}

			actor := &auth.Actor{
				UserID: claims.UserID,
				Record: userDesc.Scrub(user),
			}
			if email, ok := user["email"].(string); ok {
				actor.Email = email
			}

			ctx := auth.ContextWithActor(r.Context(), actor)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractToken pulls the token from "Authorization: Bearer <token>" or the
// "token" query parameter.
func extractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return r.URL.Query().Get("token")
}
