// Package listenerctl proxies the email-ingestion worker's control
// endpoints. The worker's own JSON responses are forwarded verbatim,
// status code included.
package listenerctl

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	resp "ats_service/internal/lib/api/response"
	sl "ats_service/internal/lib/logger"
	"ats_service/internal/listener"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

func Start(log *slog.Logger, client *listener.Client) http.HandlerFunc {
	return proxy(log, "start", client.Start, "Error starting email listener")
}

func Stop(log *slog.Logger, client *listener.Client) http.HandlerFunc {
	return proxy(log, "stop", client.Stop, "Error stopping email listener")
}

func Status(log *slog.Logger, client *listener.Client) http.HandlerFunc {
	return proxy(log, "status", client.Status, "Error checking listener status")
}

func proxy(
	log *slog.Logger,
	name string,
	call func(ctx context.Context) (listener.Reply, error),
	failMsg string,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.listenerctl.proxy"

		log = log.With(
			slog.String("op", op),
			slog.String("call", name),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		reply, err := call(r.Context())
		if err != nil {
			log.Error("listener control call failed", sl.Err(err))

			status := http.StatusInternalServerError
			if errors.Is(err, listener.ErrUnreachable) {
				status = http.StatusBadGateway
			}

			render.Status(r, status)
			render.JSON(w, r, resp.Error(failMsg))

			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(reply.StatusCode)
		w.Write([]byte(reply.Body))
	}
}
