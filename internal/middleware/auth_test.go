package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopcore/shopcore/internal/auth"
	"github.com/shopcore/shopcore/internal/entity"
	"github.com/shopcore/shopcore/internal/repository"
)

// fakeStore implements dispatch.Store with pluggable behavior per method.
type fakeStore struct {
	getByColumn func(ctx context.Context, d *entity.Descriptor, column string, value any, includeDeleted bool) (repository.Record, error)
}

func (f *fakeStore) Insert(ctx context.Context, d *entity.Descriptor, rec repository.Record) (repository.Record, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeStore) GetByID(ctx context.Context, d *entity.Descriptor, id string, includeDeleted bool) (repository.Record, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeStore) List(ctx context.Context, d *entity.Descriptor, opts repository.ListOptions) ([]repository.Record, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeStore) Count(ctx context.Context, d *entity.Descriptor, opts repository.ListOptions) (int64, error) {
	return 0, errors.New("not implemented")
}

func (f *fakeStore) Update(ctx context.Context, d *entity.Descriptor, id string, changes repository.Record) (repository.Record, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeStore) SoftDelete(ctx context.Context, d *entity.Descriptor, id, deletedBy string) (repository.Record, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeStore) GetByColumn(ctx context.Context, d *entity.Descriptor, column string, value any, includeDeleted bool) (repository.Record, error) {
	if f.getByColumn == nil {
		return nil, repository.ErrNotFound
	}
	return f.getByColumn(ctx, d, column, value, includeDeleted)
}

// fakeRevocations returns a fixed last-logout time.
type fakeRevocations struct {
	at  time.Time
	err error
}

func (f *fakeRevocations) LastLogout(ctx context.Context, userID string) (time.Time, error) {
	return f.at, f.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func liveUserStore(userID string) *fakeStore {
	return &fakeStore{
		getByColumn: func(_ context.Context, _ *entity.Descriptor, column string, value any, _ bool) (repository.Record, error) {
			if column != "user_id" || value != userID {
				return nil, repository.ErrNotFound
			}
			return repository.Record{
				"user_id":  userID,
				"email":    "alice@example.com",
				"password": "$argon2id$secret",
			}, nil
		},
	}
}

func authHandler(t *testing.T, store *fakeStore, rev RevocationChecker) (http.Handler, *auth.TokenManager, *auth.Actor) {
	t.Helper()

	tokens, err := auth.NewTokenManager("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenManager: %v", err)
	}

	var seen auth.Actor
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if actor := auth.ActorFromContext(r.Context()); actor != nil {
			seen = *actor
		}
		w.WriteHeader(http.StatusOK)
	})

	mw := Auth(AuthConfig{Logger: discardLogger(), Tokens: tokens, Revocations: rev})

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := ContextWithStore(r.Context(), store)
		mw(inner).ServeHTTP(w, r.WithContext(ctx))
	})
	return handler, tokens, &seen
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	return body
}

func TestAuth_MissingToken(t *testing.T) {
	t.Parallel()

	handler, _, _ := authHandler(t, liveUserStore("u1"), &fakeRevocations{})

	req := httptest.NewRequest("GET", "/product/fetch_all/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	body := decodeEnvelope(t, rec)
	if body["msg"] != "Authentication Token is missing!" {
		t.Errorf("msg = %q", body["msg"])
	}
}

func TestAuth_ExpiredToken(t *testing.T) {
	t.Parallel()

	handler, tokens, _ := authHandler(t, liveUserStore("u1"), &fakeRevocations{})

	token, err := tokens.Issue("u1", time.Now().Add(-2*time.Hour))
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	req := httptest.NewRequest("GET", "/product/fetch_all/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	body := decodeEnvelope(t, rec)
	if body["msg"] != "Authentication Token is expired!" {
		t.Errorf("msg = %q", body["msg"])
	}
}

func TestAuth_GarbageToken(t *testing.T) {
	t.Parallel()

	handler, _, _ := authHandler(t, liveUserStore("u1"), &fakeRevocations{})

	req := httptest.NewRequest("GET", "/product/fetch_all/", nil)
	req.Header.Set("Authorization", "Bearer not.a.token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	if msg := decodeEnvelope(t, rec)["msg"]; msg != "Invalid Authentication token!" {
		t.Errorf("msg = %q", msg)
	}
}

func TestAuth_TokenViaQueryParam(t *testing.T) {
	t.Parallel()

	handler, tokens, _ := authHandler(t, liveUserStore("u1"), &fakeRevocations{})

	token, err := tokens.Issue("u1", time.Now())
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	req := httptest.NewRequest("GET", "/product/fetch_all/?token="+token, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
	}
}

func TestAuth_UnknownUserRejected(t *testing.T) {
	t.Parallel()

	handler, tokens, _ := authHandler(t, &fakeStore{}, &fakeRevocations{})

	token, err := tokens.Issue("ghost", time.Now())
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	req := httptest.NewRequest("GET", "/product/fetch_all/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	if msg := decodeEnvelope(t, rec)["msg"]; msg != "Invalid Authentication token!" {
		t.Errorf("msg = %q", msg)
	}
}

func TestAuth_TokenIssuedBeforeLogoutRejected(t *testing.T) {
	t.Parallel()

	issuedAt := time.Now().Add(-10 * time.Minute)
	loggedOut := time.Now().Add(-5 * time.Minute)

	handler, tokens, _ := authHandler(t, liveUserStore("u1"), &fakeRevocations{at: loggedOut})

	token, err := tokens.Issue("u1", issuedAt)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	req := httptest.NewRequest("GET", "/product/fetch_all/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	if msg := decodeEnvelope(t, rec)["msg"]; msg != "Invalid Authentication token!" {
		t.Errorf("msg = %q", msg)
	}
}

func TestAuth_TokenIssuedAfterLogoutAccepted(t *testing.T) {
	t.Parallel()

	loggedOut := time.Now().Add(-10 * time.Minute)

	handler, tokens, _ := authHandler(t, liveUserStore("u1"), &fakeRevocations{at: loggedOut})

	token, err := tokens.Issue("u1", time.Now())
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	req := httptest.NewRequest("GET", "/product/fetch_all/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
	}
}

func TestAuth_InjectsScrubbedActor(t *testing.T) {
	t.Parallel()

	handler, tokens, seen := authHandler(t, liveUserStore("u1"), &fakeRevocations{})

	token, err := tokens.Issue("u1", time.Now())
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	req := httptest.NewRequest("GET", "/product/fetch_all/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if seen.UserID != "u1" {
		t.Errorf("actor user_id = %q, want u1", seen.UserID)
	}
	if seen.Email != "alice@example.com" {
		t.Errorf("actor email = %q", seen.Email)
	}
	if _, leaked := seen.Record["password"]; leaked {
		t.Error("actor record still carries the password hash")
	}
}

func TestAuth_RevocationBackendFailure(t *testing.T) {
	t.Parallel()

	handler, tokens, _ := authHandler(t, liveUserStore("u1"), &fakeRevocations{err: errors.New("redis down")})

	token, err := tokens.Issue("u1", time.Now())
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	req := httptest.NewRequest("GET", "/product/fetch_all/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}
}

func TestAuth_NoStoreBound(t *testing.T) {
	t.Parallel()

	tokens, err := auth.NewTokenManager("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenManager: %v", err)
	}
	mw := Auth(AuthConfig{Logger: discardLogger(), Tokens: tokens, Revocations: &fakeRevocations{}})
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("inner handler should not run")
	}))

	token, err := tokens.Issue("u1", time.Now())
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	req := httptest.NewRequest("GET", "/product/fetch_all/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}
}

func TestExtractToken(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		header string
		query  string
		want   string
	}{
		{"bearer header", "Bearer abc123", "", "abc123"},
		{"query param", "", "xyz789", "xyz789"},
		{"header wins over query", "Bearer abc123", "xyz789", "abc123"},
		{"non-bearer header falls back to query", "Basic dXNlcg==", "xyz789", "xyz789"},
		{"nothing", "", "", ""},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			url := "/status/"
			if tt.query != "" {
				url += "?token=" + tt.query
			}
			req := httptest.NewRequest("GET", url, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			if got := extractToken(req); got != tt.want {
				t.Errorf("extractToken() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAuth_ErrorBodyIsEnvelope(t *testing.T) {
	t.Parallel()

	handler, _, _ := authHandler(t, liveUserStore("u1"), &fakeRevocations{})

	req := httptest.NewRequest("GET", "/product/fetch_all/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	body := decodeEnvelope(t, rec)
	if body["code"] != float64(400) {
		t.Errorf("code = %v, want 400", body["code"])
	}
	if body["status"] != false {
		t.Errorf("status = %v, want false", body["status"])
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Errorf("Content-Type = %q", ct)
	}
}
