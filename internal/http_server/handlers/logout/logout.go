package logout

import (
	"log/slog"
	"net/http"

	resp "ats_service/internal/lib/api/response"
	sl "ats_service/internal/lib/logger"
	"ats_service/internal/session"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

type Response struct {
	resp.Response
	Message string `json:"message"`
}

// New revokes the presented token server-side and tells the client to
// drop the cookie. Logout always succeeds from the client's view, even
// with no cookie at all.
func New(
	log *slog.Logger,
	sessions *session.Manager,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.logout.New"

		log = log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		if cookie, err := r.Cookie(session.CookieName); err == nil {
			if err := sessions.Revoke(r.Context(), cookie.Value); err != nil {
				// The cookie is still cleared; the token just outlives
				// the session until its expiry.
				log.Warn("failed to revoke session token", sl.Err(err))
			}
		}

		http.SetCookie(w, session.ClearCookie())

		log.Info("user logged out")

		render.JSON(w, r, Response{
			Response: resp.OK(),
			Message:  "Logged out successfully",
		})
	}
}
