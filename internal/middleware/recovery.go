package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/shopcore/shopcore/internal/response"
)

// Recoverer is a middleware that recovers from panics.
// It logs the panic and returns a 500 envelope.
func Recoverer(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					// Get request ID for correlation
					requestID := GetRequestID(r.Context())

					logger.Error("panic recovered",
						slog.String("request_id", requestID),
						slog.Any("panic", rvr),
						slog.String("stack", string(debug.Stack())),
					)

					response.Write(w, response.InternalError("unexpected failure"))
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
