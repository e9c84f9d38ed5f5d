package download

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	mwauth "ats_service/internal/http_server/middleware/auth"
	"ats_service/internal/jobs"
	resp "ats_service/internal/lib/api/response"
	sl "ats_service/internal/lib/logger"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

// New streams a stored resume back as a file download. The content type
// comes from the filename extension; unknown extensions are served as a
// generic binary stream.
func New(log *slog.Logger, jobService *jobs.Jobs) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.download.New"

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

		candidateID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("Invalid file id."))

			return
		}

		fileName, contentType, data, err := jobService.Resume(r.Context(), username, candidateID)
		if err != nil {
			switch {
			case errors.Is(err, jobs.ErrFileNotFound):
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, resp.Error("File not found"))
			case errors.Is(err, jobs.ErrUserNotFound):
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, resp.Error("User not found."))
			default:
				log.Error("failed to fetch resume", sl.Err(err))

				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, resp.Error("Server error"))
			}

			return
		}

		log.Info("resume downloaded",
			slog.Int64("candidate_id", candidateID),
			slog.String("file", fileName),
		)

		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))
		w.Header().Set("Content-Type", contentType)
		w.Write(data)
	}
}
