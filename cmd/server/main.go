package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/rs/cors"

	"github.com/mediakit/contentgate/pkg/contentgate"
	"github.com/mediakit/contentgate/pkg/contentgate/api"
	"github.com/mediakit/contentgate/pkg/contentgate/config"
)

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load(config.WithEnv())
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	if cfg.DatabaseType == "postgres" {
		if err := config.PingPostgres(cfg.DatabaseURL, cfg.DBSchema); err != nil {
			slog.Error("Failed to connect to database", "error", err)
			os.Exit(1)
		}
	}

	repo, err := cfg.BuildRepository()
	if err != nil {
		slog.Error("Failed to build repository", "error", err)
		os.Exit(1)
	}

	svc, err := cfg.BuildServiceWithRepository(repo)
	if err != nil {
		slog.Error("Failed to build service", "error", err)
		os.Exit(1)
	}

	// Background worker draining the notification outbox.
	worker := contentgate.NewNotificationWorker(repo,
		contentgate.NewLoggingNotifier(logger),
		contentgate.WithInterval(cfg.NotifyInterval),
		contentgate.WithBatchSize(cfg.NotifyBatchSize),
		contentgate.WithLogger(logger),
	)
	workerCtx, stopWorker := context.WithCancel(context.Background())
	defer stopWorker()
	go worker.Run(workerCtx)

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Port),
		Handler: routes(svc, cfg),
	}

	go func() {
		slog.Info("Content server starting",
			"port", cfg.Port,
			"environment", cfg.Environment,
			"database", cfg.DatabaseType,
			"storage", cfg.StorageBackend)

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("Shutting down server")

	stopWorker()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server exiting")
}

func routes(svc contentgate.Service, cfg *config.ServerConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.New(cors.Options{
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	}).Handler)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	contentHandler := api.NewContentHandler(svc)
	accessHandler := api.NewAccessHandler(svc)
	commerceHandler := api.NewCommerceHandler(svc)
	shareHandler := api.NewShareHandler(svc)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(api.Authenticator(cfg.JWTSecret))
		r.Mount("/contents", contentHandler.Routes())
		r.Mount("/access", accessHandler.Routes())
		r.Mount("/commerce", commerceHandler.Routes())
		r.Mount("/sharing", shareHandler.Routes())
	})

	// Share redemption is public: the token is the credential.
	r.Mount("/shared", shareHandler.PublicRoutes())

	return r
}
