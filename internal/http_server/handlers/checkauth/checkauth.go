package checkauth

import (
	"log/slog"
	"net/http"

	mwauth "ats_service/internal/http_server/middleware/auth"
	resp "ats_service/internal/lib/api/response"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

type Response struct {
	resp.Response
	Message  string `json:"message"`
	Username string `json:"username"`
}

// New reports the identity the session middleware already decoded. The
// middleware has done all the work by the time this runs.
func New(log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.checkauth.New"

		log = log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		identity := mwauth.Identity(r.Context())

		log.Info("session checked", slog.String("username", identity))

		render.JSON(w, r, Response{
			Response: resp.OK(),
			Message:  "Authenticated",
			Username: identity,
		})
	}
}
