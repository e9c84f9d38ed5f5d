// Package jobs carries the three job-posting routes. The username
// parameter is kept for frontend compatibility but must match the
// session identity; tenant data is never served across identities.
package jobs

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
	"github.com/go-playground/validator/v10"
)

type AddRequest struct {
	Username       string `json:"username" validate:"required"`
	JobTitle       string `json:"jobTitle" validate:"required"`
	JobDescription string `json:"jobDescription" validate:"required"`
}

type RemoveRequest struct {
	Username string `json:"username" validate:"required"`
	JobTitle string `json:"jobTitle" validate:"required"`
}

type ListResponse struct {
	resp.Response
	Jobs []models.Job `json:"jobs"`
}

type AddResponse struct {
	resp.Response
	Job models.Job `json:"job"`
}

type RemoveResponse struct {
	resp.Response
	Message string `json:"message"`
}

func List(log *slog.Logger, jobService *jobs.Jobs) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.jobs.List"

		log = log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		username := r.URL.Query().Get("username")
		if !identityMatches(w, r, username) {
			return
		}

		list, err := jobService.List(r.Context(), username)
		if err != nil {
			writeJobsError(w, r, log, err, "Failed to get jobs.")
			return
		}

		render.JSON(w, r, ListResponse{
			Response: resp.OK(),
			Jobs:     list,
		})
	}
}

func Add(log *slog.Logger, validate *validator.Validate, jobService *jobs.Jobs) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.jobs.Add"

		log = log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req AddRequest

		err := render.DecodeJSON(r.Body, &req)
		if err != nil {
			log.Error("Failed to decode request body", sl.Err(err))

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("All fields are required."))

			return
		}

		if err := validate.Struct(req); err != nil {
			validateErr := err.(validator.ValidationErrors)

			log.Error("Invalid request", sl.Err(err))

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.ValidationError(validateErr))

			return
		}

		if !identityMatches(w, r, req.Username) {
			return
		}

		job, err := jobService.Add(r.Context(), req.Username, req.JobTitle, req.JobDescription)
		if err != nil {
			if errors.Is(err, jobs.ErrJobExists) {
				render.Status(r, http.StatusConflict)
				render.JSON(w, r, resp.Error("Job title already exists."))

				return
			}

			writeJobsError(w, r, log, err, "Failed to add job.")

			return
		}

		log.Info("job added", slog.String("title", job.Title))

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, AddResponse{
			Response: resp.OK(),
			Job:      job,
		})
	}
}

func Remove(log *slog.Logger, validate *validator.Validate, jobService *jobs.Jobs) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.jobs.Remove"

		log = log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req RemoveRequest

		err := render.DecodeJSON(r.Body, &req)
		if err != nil {
			log.Error("Failed to decode request body", sl.Err(err))

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("Username and job title are required."))

			return
		}

		if err := validate.Struct(req); err != nil {
			validateErr := err.(validator.ValidationErrors)

			log.Error("Invalid request", sl.Err(err))

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.ValidationError(validateErr))

			return
		}

		if !identityMatches(w, r, req.Username) {
			return
		}

		removed, err := jobService.Remove(r.Context(), req.Username, req.JobTitle)
		if err != nil {
			writeJobsError(w, r, log, err, "Failed to remove job.")
			return
		}

		if !removed {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, resp.Error("Job not found."))

			return
		}

		render.JSON(w, r, RemoveResponse{
			Response: resp.OK(),
			Message:  "Job removed successfully.",
		})
	}
}

func identityMatches(w http.ResponseWriter, r *http.Request, username string) bool {
	if username == "" {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, resp.Error("Username is required."))

		return false
	}

	if username != mwauth.Identity(r.Context()) {
		render.Status(r, http.StatusForbidden)
		render.JSON(w, r, resp.Error("Username does not match session."))

		return false
	}

	return true
}

func writeJobsError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error, msg string) {
	if errors.Is(err, jobs.ErrUserNotFound) {
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, resp.Error("User not found."))

		return
	}

	log.Error("job operation failed", sl.Err(err))

	render.Status(r, http.StatusInternalServerError)
	render.JSON(w, r, resp.Error(msg))
}
