package session

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeRevocationList struct {
	revoked map[string]time.Duration
}

func newFakeRevocationList() *fakeRevocationList {
	return &fakeRevocationList{revoked: make(map[string]time.Duration)}
}

func (f *fakeRevocationList) RevokeToken(_ context.Context, jti string, ttl time.Duration) error {
	f.revoked[jti] = ttl
	return nil
}

func (f *fakeRevocationList) IsRevoked(_ context.Context, jti string) (bool, error) {
	_, ok := f.revoked[jti]
	return ok, nil
}

func TestIssueAndVerify_Success(t *testing.T) {
	t.Parallel()

	m := NewManager("super-secret", 7*24*time.Hour, newFakeRevocationList())

	tok, err := m.Issue("acme_admin")
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	got, err := m.Verify(context.Background(), tok)
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if got != "acme_admin" {
		t.Fatalf("identity mismatch: got %q want %q", got, "acme_admin")
	}
}

func TestVerify_Expired(t *testing.T) {
	t.Parallel()

	m := NewManager("secret", -1*time.Second, newFakeRevocationList())

	tok, err := m.Issue("u1")
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	_, err = m.Verify(context.Background(), tok)
	if !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestVerify_WrongSecret(t *testing.T) {
	t.Parallel()

	issuer := NewManager("right-secret", time.Hour, nil)
	verifier := NewManager("wrong-secret", time.Hour, nil)

	tok, err := issuer.Issue("u2")
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	_, err = verifier.Verify(context.Background(), tok)
	if !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for wrong secret, got %v", err)
	}
}

func TestVerify_NoToken(t *testing.T) {
	t.Parallel()

	m := NewManager("secret", time.Hour, nil)

	_, err := m.Verify(context.Background(), "")
	if !errors.Is(err, ErrNoToken) {
		t.Fatalf("expected ErrNoToken, got %v", err)
	}
}

func TestVerify_Malformed(t *testing.T) {
	t.Parallel()

	m := NewManager("secret", time.Hour, nil)

	_, err := m.Verify(context.Background(), "not.a.jwt")
	if !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for malformed token, got %v", err)
	}
}

func TestRevoke_BlocksToken(t *testing.T) {
	t.Parallel()

	list := newFakeRevocationList()
	m := NewManager("secret", time.Hour, list)

	tok, err := m.Issue("u3")
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	if err := m.Revoke(context.Background(), tok); err != nil {
		t.Fatalf("Revoke error: %v", err)
	}

	_, err = m.Verify(context.Background(), tok)
	if !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("expected ErrTokenRevoked after Revoke, got %v", err)
	}

	if len(list.revoked) != 1 {
		t.Fatalf("expected one revocation entry, got %d", len(list.revoked))
	}
	for _, ttl := range list.revoked {
		if ttl <= 0 || ttl > time.Hour {
			t.Fatalf("revocation TTL %v outside remaining token validity", ttl)
		}
	}
}

func TestRevoke_MalformedTokenIsNoop(t *testing.T) {
	t.Parallel()

	list := newFakeRevocationList()
	m := NewManager("secret", time.Hour, list)

	if err := m.Revoke(context.Background(), "garbage"); err != nil {
		t.Fatalf("Revoke of malformed token should be a no-op, got %v", err)
	}
	if len(list.revoked) != 0 {
		t.Fatalf("expected no revocation entries, got %d", len(list.revoked))
	}
}

func TestCookie_Persistence(t *testing.T) {
	t.Parallel()

	m := NewManager("secret", 7*24*time.Hour, nil)

	persistent := m.Cookie("tok", true)
	if persistent.MaxAge != int((7 * 24 * time.Hour).Seconds()) {
		t.Errorf("rememberMe cookie MaxAge = %d, want 7 days", persistent.MaxAge)
	}
	if !persistent.HttpOnly {
		t.Error("cookie must be HTTP-only")
	}

	ephemeral := m.Cookie("tok", false)
	if ephemeral.MaxAge != 0 {
		t.Errorf("session cookie MaxAge = %d, want 0", ephemeral.MaxAge)
	}

	cleared := ClearCookie()
	if cleared.MaxAge != -1 {
		t.Errorf("ClearCookie MaxAge = %d, want -1", cleared.MaxAge)
	}
}
