package login

import (
	"errors"
	"log/slog"
	"net/http"

	resp "ats_service/internal/lib/api/response"
	sl "ats_service/internal/lib/logger"
	"ats_service/internal/models"
	"ats_service/internal/session"
	"ats_service/internal/tenants"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

type Request struct {
	Username   string `json:"username" validate:"required"`
	Password   string `json:"password" validate:"required"`
	RememberMe bool   `json:"rememberMe"`
}

type Response struct {
	resp.Response
	User models.User `json:"user"`
}

func New(
	log *slog.Logger,
	validate *validator.Validate,
	tenantService *tenants.Tenants,
	sessions *session.Manager,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.login.New"

		log = log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req Request

		err := render.DecodeJSON(r.Body, &req)
		if err != nil {
			log.Error("Failed to decode request body", sl.Err(err))

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("Failed to decode request"))

			return
		}

		if err := validate.Struct(req); err != nil {
			validateErr := err.(validator.ValidationErrors)

			log.Error("Invalid request", sl.Err(err))

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.ValidationError(validateErr))

			return
		}

		user, err := tenantService.Login(r.Context(), req.Username, req.Password)
		if err != nil {
			if errors.Is(err, tenants.ErrInvalidCredentials) {
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, resp.Error("Invalid credentials."))

				return
			}

			log.Error("failed to login user", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		token, err := sessions.Issue(user.Username)
		if err != nil {
			log.Error("failed to issue session token", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		http.SetCookie(w, sessions.Cookie(token, req.RememberMe))

		log.Info("user logged in", slog.String("username", user.Username))

		render.JSON(w, r, Response{
			Response: resp.OK(),
			User:     user,
		})
	}
}
