package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// CookieName is the session cookie the frontend expects.
const CookieName = "token"

var (
	ErrNoToken      = errors.New("no session token provided")
	ErrInvalidToken = errors.New("invalid session token")
	ErrTokenRevoked = errors.New("session token revoked")
)

// RevocationList is the server-side logout list. Entries live only as
// long as the token they block would have.
type RevocationList interface {
	RevokeToken(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

type Claims struct {
	jwt.RegisteredClaims
}

// Manager issues and verifies the signed cookie tokens that bind a
// request to a tenant registration. Tokens are stateless apart from the
// revocation list lookup.
type Manager struct {
	secret  []byte
	ttl     time.Duration
	revoked RevocationList
}

func NewManager(secret string, ttl time.Duration, revoked RevocationList) *Manager {
	return &Manager{
		secret:  []byte(secret),
		ttl:     ttl,
		revoked: revoked,
	}
}

// Issue mints a signed token for the identity, expiring after the
// configured TTL.
func (m *Manager) Issue(username string) (string, error) {
	const op = "session.Issue"

	jti, err := newTokenID()
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(m.ttl)),
		},
	})

	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return signed, nil
}

// Verify checks signature and expiry, then the revocation list, and
// returns the identity the token was issued for. Fail closed: any parse
// problem is ErrInvalidToken.
func (m *Manager) Verify(ctx context.Context, tokenStr string) (string, error) {
	const op = "session.Verify"

	if tokenStr == "" {
		return "", ErrNoToken
	}

	claims, err := m.parse(tokenStr)
	if err != nil {
		return "", ErrInvalidToken
	}

	if m.revoked != nil && claims.ID != "" {
		revoked, err := m.revoked.IsRevoked(ctx, claims.ID)
		if err != nil {
			return "", fmt.Errorf("%s: %w", op, err)
		}
		if revoked {
			return "", ErrTokenRevoked
		}
	}

	return claims.Subject, nil
}

// Revoke blocks a still-valid token until its natural expiry. Expired or
// malformed tokens need no list entry.
func (m *Manager) Revoke(ctx context.Context, tokenStr string) error {
	const op = "session.Revoke"

	claims, err := m.parse(tokenStr)
	if err != nil {
		return nil
	}

	if m.revoked == nil || claims.ID == "" || claims.ExpiresAt == nil {
		return nil
	}

	remaining := time.Until(claims.ExpiresAt.Time)
	if remaining <= 0 {
		return nil
	}

	if err := m.revoked.RevokeToken(ctx, claims.ID, remaining); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Cookie wraps a token into the HTTP-only session cookie. With
// rememberMe the cookie persists for the token TTL; otherwise it is a
// browser-session cookie and dies with the browser.
func (m *Manager) Cookie(token string, rememberMe bool) *http.Cookie {
	c := &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}

	if rememberMe {
		c.MaxAge = int(m.ttl.Seconds())
	}

	return c
}

// ClearCookie tells the client to discard the session cookie.
func ClearCookie() *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	}
}

func (m *Manager) parse(tokenStr string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

func newTokenID() (string, error) {
	buf := make([]byte, 16)

	if _, err := rand.Read(buf); err != nil {
		return "", err
	}

	return hex.EncodeToString(buf), nil
}
