package repository

import "context"

// DefaultKey is the logical database every request binds to unless it asks
// for another one. The deployment currently runs a single database, so the
// router is a one-entry map, but the binding point is explicit.
const DefaultKey = "primary"

// Router resolves a logical database key to its repository. The map is fixed
// at startup; sessions are acquired per statement from the underlying pool,
// so release is guaranteed on every exit path.
type Router struct {
	repos map[string]*Repository
}

// NewRouter creates an empty Router.
func NewRouter() *Router {
	return &Router{repos: make(map[string]*Repository)}
}

// Register binds a logical key to a repository.
func (rt *Router) Register(key string, repo *Repository) {
	rt.repos[key] = repo
}

// Resolve returns the repository for key. An empty key resolves to
// DefaultKey.
func (rt *Router) Resolve(key string) (*Repository, bool) {
	if key == "" {
		key = DefaultKey
	}
	repo, ok := rt.repos[key]
	return repo, ok
}

// Ping checks connectivity of every registered database.
func (rt *Router) Ping(ctx context.Context) error {
	for _, repo := range rt.repos {
		if err := repo.Ping(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Close closes every registered pool.
func (rt *Router) Close() {
	for _, repo := range rt.repos {
		repo.Close()
	}
}
