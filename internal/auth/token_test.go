package auth

import (
	"errors"
	"testing"
	"time"
)

func newTestManager(t *testing.T, ttl time.Duration) *TokenManager {
	t.Helper()
	m, err := NewTokenManager("test-secret", ttl)
	if err != nil {
		t.Fatalf("NewTokenManager: %v", err)
	}
	return m
}

func TestNewTokenManager_RejectsBadConfig(t *testing.T) {
	t.Parallel()

	if _, err := NewTokenManager("", time.Hour); err == nil {
		t.Error("empty secret should be rejected")
	}
	if _, err := NewTokenManager("s", 0); err == nil {
		t.Error("zero ttl should be rejected")
	}
}

func TestTokenManager_IssueAndVerify(t *testing.T) {
	t.Parallel()

	m := newTestManager(t, time.Hour)
	now := time.Now()

	token, err := m.Issue("user-123", now)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	claims, err := m.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.UserID != "user-123" {
		t.Errorf("UserID = %s", claims.UserID)
	}
	if claims.ID == "" {
		t.Error("token should carry a jti")
	}
	if got := claims.IssuedAt.Time.Unix(); got != now.Unix() {
		t.Errorf("IssuedAt = %d, want %d", got, now.Unix())
	}
	if got := claims.ExpiresAt.Time.Unix(); got != now.Add(time.Hour).Unix() {
		t.Errorf("ExpiresAt = %d, want issue time + ttl", got)
	}
}

func TestTokenManager_Expired(t *testing.T) {
	t.Parallel()

	m := newTestManager(t, time.Minute)

	token, err := m.Issue("user-123", time.Now().Add(-2*time.Minute))
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	_, err = m.Verify(token)
	if !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("err = %v, want ErrTokenExpired", err)
	}
}

func TestTokenManager_WrongSecret(t *testing.T) {
	t.Parallel()

	issuer := newTestManager(t, time.Hour)
	verifier, err := NewTokenManager("another-secret", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenManager: %v", err)
	}

	token, err := issuer.Issue("user-123", time.Now())
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if _, err := verifier.Verify(token); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("err = %v, want ErrTokenInvalid", err)
	}
}

func TestTokenManager_Garbage(t *testing.T) {
	t.Parallel()

	m := newTestManager(t, time.Hour)
	for _, token := range []string{"", "not.a.token", "aaaa.bbbb.cccc"} {
		if _, err := m.Verify(token); !errors.Is(err, ErrTokenInvalid) {
			t.Errorf("Verify(%q) err = %v, want ErrTokenInvalid", token, err)
		}
	}
}
