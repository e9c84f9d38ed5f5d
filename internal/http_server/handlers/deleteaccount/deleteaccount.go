package deleteaccount

import (
	"errors"
	"log/slog"
	"net/http"

	mwauth "ats_service/internal/http_server/middleware/auth"
	resp "ats_service/internal/lib/api/response"
	sl "ats_service/internal/lib/logger"
	"ats_service/internal/tenants"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

type Request struct {
	Username string `json:"username" validate:"required"`
}

type Response struct {
	resp.Response
	Message string `json:"message"`
}

func New(
	log *slog.Logger,
	validate *validator.Validate,
	tenantService *tenants.Tenants,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.deleteaccount.New"

		log = log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req Request

		err := render.DecodeJSON(r.Body, &req)
		if err != nil {
			log.Error("Failed to decode request body", sl.Err(err))

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("Username is required"))

			return
		}

		if err := validate.Struct(req); err != nil {
			validateErr := err.(validator.ValidationErrors)

			log.Error("Invalid request", sl.Err(err))

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.ValidationError(validateErr))

			return
		}

		if req.Username != mwauth.Identity(r.Context()) {
			log.Warn("delete refused for foreign account",
				slog.String("requested", req.Username),
			)

			render.Status(r, http.StatusForbidden)
			render.JSON(w, r, resp.Error("Username does not match session."))

			return
		}

		if err := tenantService.Delete(r.Context(), req.Username); err != nil {
			switch {
			case errors.Is(err, tenants.ErrUserNotFound):
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, resp.Error("User not found."))
			case errors.Is(err, tenants.ErrStorageInconsistency):
				// Distinct from "nothing to delete": the account is gone
				// but tenant tables survived. Cause is already logged.
				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, resp.Error("Account removed but tenant storage teardown failed."))
			default:
				log.Error("failed to delete account", sl.Err(err))

				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, resp.Error("Failed to delete account."))
			}

			return
		}

		render.JSON(w, r, Response{
			Response: resp.OK(),
			Message:  "Account and all the data deleted successfully",
		})
	}
}
