// Package auth is the session gate for tenant-data routes: no valid
// cookie, no tenant resolution, no storage access.
package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	resp "ats_service/internal/lib/api/response"
	"ats_service/internal/session"

	"github.com/go-chi/render"
)

type ctxKey struct{}

// Identity returns the username the session middleware attached to the
// request context, or "" for unauthenticated requests.
func Identity(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// New verifies the session cookie and injects the identity into the
// request context. Missing cookie is 401; a bad or revoked token is 403.
func New(log *slog.Logger, sessions *session.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(session.CookieName)
			if err != nil {
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, resp.Error("Unauthorized: No token provided"))

				return
			}

			identity, err := sessions.Verify(r.Context(), cookie.Value)
			if err != nil {
				if errors.Is(err, session.ErrInvalidToken) || errors.Is(err, session.ErrTokenRevoked) || errors.Is(err, session.ErrNoToken) {
					render.Status(r, http.StatusForbidden)
					render.JSON(w, r, resp.Error("Unauthorized: Invalid token"))

					return
				}

				log.Error("session verification failed", slog.String("error", err.Error()))

				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, resp.Error("Internal error"))

				return
			}

			ctx := context.WithValue(r.Context(), ctxKey{}, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
