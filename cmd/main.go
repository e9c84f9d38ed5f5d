package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ats_service/internal/config"
	"ats_service/internal/http_server/handlers/checkauth"
	"ats_service/internal/http_server/handlers/deleteaccount"
	"ats_service/internal/http_server/handlers/download"
	jobshandlers "ats_service/internal/http_server/handlers/jobs"
	"ats_service/internal/http_server/handlers/listenerctl"
	"ats_service/internal/http_server/handlers/login"
	"ats_service/internal/http_server/handlers/logout"
	"ats_service/internal/http_server/handlers/selected"
	"ats_service/internal/http_server/handlers/signup"
	mwauth "ats_service/internal/http_server/middleware/auth"
	"ats_service/internal/jobs"
	resp "ats_service/internal/lib/api/response"
	sl "ats_service/internal/lib/logger"
	"ats_service/internal/listener"
	"ats_service/internal/mailcheck"
	rateLimit "ats_service/internal/middleware/ratelimit"
	"ats_service/internal/rabbitmq"
	"ats_service/internal/session"
	"ats_service/internal/storage/postgres"
	"ats_service/internal/storage/redis"
	"ats_service/internal/tenants"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	cfg := config.MustLoad("./config/config.yaml")

	log := setupLogger(cfg.Env)

	log.Info("starting ats service", slog.String("env", cfg.Env))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		log.Info("Shutdown signal received")
		cancel()
	}()

	storage, err := postgres.New(ctx, cfg)
	if err != nil {
		log.Error("failed to connect postgres", sl.Err(err))
		os.Exit(1)
	}
	defer storage.Close()

	revocations, err := redis.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Error("failed to connect redis", sl.Err(err))
		os.Exit(1)
	}
	defer revocations.Close()

	var events tenants.EventPublisher
	if cfg.RabbitMQ.URL != "" {
		broker, err := rabbitmq.New(cfg.RabbitMQ.URL, cfg.RabbitMQ.QueueName)
		if err != nil {
			log.Error("failed to connect rabbitmq", sl.Err(err))
			os.Exit(1)
		}
		defer broker.Close()

		events = broker
	} else {
		log.Warn("rabbitmq url not configured, tenant events disabled")
	}

	sessions := session.NewManager(cfg.Session.Secret, cfg.Session.TTL, revocations)
	verifier := mailcheck.New(cfg.IMAP.Host, cfg.IMAP.Port, cfg.IMAP.Timeout)
	listenerClient := listener.New(cfg.Listener.BaseURL, cfg.Listener.Timeout)

	tenantService := tenants.New(log, storage, storage, storage, verifier, listenerClient, events)
	jobService := jobs.New(log, storage, storage)

	// The worker polls mailboxes only while running; if tenants already
	// exist, make sure it is.
	startListenerIfTenantsExist(ctx, log, storage, listenerClient)

	router := setupRouter(log, sessions, tenantService, jobService, listenerClient)

	srv := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	go func() {
		log.Info("HTTP server is running", slog.String("address", cfg.HTTPServer.Address))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed", sl.Err(err))
			cancel()
		}
	}()

	<-ctx.Done()

	log.Info("Shutting down HTTP server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown error", sl.Err(err))
	} else {
		log.Info("Server stopped gracefully")
	}

	log.Info("Main service stopped")
}

func setupRouter(
	log *slog.Logger,
	sessions *session.Manager,
	tenantService *tenants.Tenants,
	jobService *jobs.Jobs,
	listenerClient *listener.Client,
) *chi.Mux {
	validate := validator.New()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/", func(w http.ResponseWriter, req *http.Request) {
		render.JSON(w, req, resp.OK())
	})

	r.With(rateLimit.Signup()).Post("/signup",
		signup.New(log, validate, tenantService, sessions),
	)
	r.With(rateLimit.Login()).Post("/login",
		login.New(log, validate, tenantService, sessions),
	)
	r.With(rateLimit.Logout()).Post("/logout",
		logout.New(log, sessions),
	)

	r.Get("/start-email-listener", listenerctl.Start(log, listenerClient))
	r.Get("/stop-email-listener", listenerctl.Stop(log, listenerClient))
	r.Get("/email-listener-status", listenerctl.Status(log, listenerClient))

	// Everything touching tenant data sits behind the session gate.
	r.Group(func(r chi.Router) {
		r.Use(mwauth.New(log, sessions))

		r.Get("/check-auth", checkauth.New(log))
		r.With(rateLimit.DeleteAccount()).Delete("/deleteAccount",
			deleteaccount.New(log, validate, tenantService),
		)

		r.Get("/getJobs", jobshandlers.List(log, jobService))
		r.Post("/addJob", jobshandlers.Add(log, validate, jobService))
		r.Post("/removeJob", jobshandlers.Remove(log, validate, jobService))
		r.Get("/getSelected", selected.New(log, jobService))
		r.Get("/api/download/{id}", download.New(log, jobService))
	})

	return r
}

func startListenerIfTenantsExist(
	ctx context.Context,
	log *slog.Logger,
	storage *postgres.PostgresRepo,
	client *listener.Client,
) {
	exists, err := storage.HasUsers(ctx)
	if err != nil {
		log.Error("failed to check for existing tenants", sl.Err(err))
		return
	}

	if !exists {
		return
	}

	if _, err := client.Start(ctx); err != nil {
		log.Warn("failed to start email listener at boot", sl.Err(err))
		return
	}

	log.Info("email listener started at boot")
}

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	default:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	}

	return log
}
