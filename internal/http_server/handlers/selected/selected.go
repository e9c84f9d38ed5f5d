package selected

import (
	"errors"
	"log/slog"
	"net/http"

	mwauth "ats_service/internal/http_server/middleware/auth"
	"ats_service/internal/jobs"
	resp "ats_service/internal/lib/api/response"
	sl "ats_service/internal/lib/logger"
	"ats_service/internal/models"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

type Response struct {
	resp.Response
	Selected []models.Candidate `json:"selected"`
}

// New lists the candidates the ingestion worker matched for the
// caller's tenant. An absent selected table just means nothing matched
// yet.
func New(log *slog.Logger, jobService *jobs.Jobs) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.selected.New"

		log = log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		username := r.URL.Query().Get("username")
		if username == "" {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("Username is required."))

			return
		}

		if username != mwauth.Identity(r.Context()) {
			render.Status(r, http.StatusForbidden)
			render.JSON(w, r, resp.Error("Username does not match session."))

			return
		}

		candidates, err := jobService.Selected(r.Context(), username)
		if err != nil {
			if errors.Is(err, jobs.ErrUserNotFound) {
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, resp.Error("User not found."))

				return
			}

			log.Error("failed to get selected candidates", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Failed to get selected."))

			return
		}

		render.JSON(w, r, Response{
			Response: resp.OK(),
			Selected: candidates,
		})
	}
}
