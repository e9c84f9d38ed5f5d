package signup

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
	Username    string `json:"username" validate:"required"`
	Password    string `json:"password" validate:"required"`
	Company     string `json:"company" validate:"required"`
	WorkEmail   string `json:"workEmail" validate:"required,email"`
	EmailAppKey string `json:"emailAppKey"`
	RememberMe  bool   `json:"rememberMe"`
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
		const op = "handlers.signup.New"

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

		user, err := tenantService.Register(
			r.Context(),
			req.Username,
			req.Password,
			req.Company,
			req.WorkEmail,
			req.EmailAppKey,
		)
		if err != nil {
			switch {
			case errors.Is(err, tenants.ErrUserExists):
				render.Status(r, http.StatusConflict)
				render.JSON(w, r, resp.Error("Signup failed. Username already exists."))
			case errors.Is(err, tenants.ErrBadCompanyName):
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, resp.Error(tenants.ErrBadCompanyName.Error()))
			case errors.Is(err, tenants.ErrMailboxVerification):
				// The handshake failure reason goes back to the caller.
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, resp.Error(err.Error()))
			default:
				log.Error("failed to register tenant", sl.Err(err))

				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, resp.Error("Internal error"))
			}

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

		log.Info("tenant signed up", slog.String("username", user.Username))

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, Response{
			Response: resp.OK(),
			User:     user,
		})
	}
}
