package middleware

import (
	"context"
	"net/http"

	"github.com/shopcore/shopcore/internal/dispatch"
	"github.com/shopcore/shopcore/internal/repository"
	"github.com/shopcore/shopcore/internal/response"
)

const (
	// databaseContextKey is the context key for the request's store.
	databaseContextKey contextKey = "database"
	// DatabaseHeader selects a logical database for the request. Absent
	// means the default database.
	DatabaseHeader = "X-Database"
)

// Database binds a request-scoped store resolved from the router. The
// logical key comes from the X-Database header; deployments today only
// register the default. Statements acquire connections from the pool per
// call, so nothing needs explicit release at request end.
func Database(router *repository.Router) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(DatabaseHeader)
			repo, ok := router.Resolve(key)
			if !ok {
				response.Write(w, response.ServiceUnavailable("unknown database "+key))
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithStore(r.Context(), repo)))
		})
	}
}

// ContextWithStore attaches a store to the context. Exposed for tests that
// bypass the Database middleware.
func ContextWithStore(ctx context.Context, store dispatch.Store) context.Context {
	return context.WithValue(ctx, databaseContextKey, store)
}

// StoreFromContext retrieves the request-scoped store.
// Returns nil if the Database middleware did not run.
func StoreFromContext(ctx context.Context) dispatch.Store {
	store, ok := ctx.Value(databaseContextKey).(dispatch.Store)
	if !ok {
		return nil
	}
	return store
}
