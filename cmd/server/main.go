// DoorIQ simulation server: AI-roleplay sales practice sessions.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/dooriq/simserver/internal/api"
	"github.com/dooriq/simserver/internal/config"
	"github.com/dooriq/simserver/internal/identity"
	"github.com/dooriq/simserver/internal/metrics"
	"github.com/dooriq/simserver/internal/middleware"
	"github.com/dooriq/simserver/internal/reply"
	"github.com/dooriq/simserver/internal/retention"
	"github.com/dooriq/simserver/internal/sim"
	"github.com/dooriq/simserver/internal/store"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment())

	// Initialize dependencies.
	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(context.Background()); err != nil {
		slog.Error("Database health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database connected")

	// Choose the prospect reply generator. Without an API key the scripted
	// generator keeps the simulation fully functional offline.
	var gen reply.Generator
	if cfg.ReplyAPIConfigured() {
		gen = reply.NewClaude(cfg.ReplyModel)
		slog.Info("Reply generator: Claude", "model", cfg.ReplyModel)
	} else {
		gen = reply.NewScripted()
		slog.Info("Reply generator: scripted (ANTHROPIC_API_KEY not set)")
	}

	mm := metrics.NewManager()

	svc := sim.NewService(repo, gen, mm, sim.Options{
		ReplyTimeout: cfg.ReplyTimeout,
		MaxTurns:     cfg.MaxTurns,
	})

	// Initialize handlers.
	simHandler := api.NewSimHandler(svc)
	healthHandler := api.NewHealthHandler(repo)
	wsHandler := api.NewWebSocketHandler(svc, cfg.FrontendURL, cfg.IsDevelopment())

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(middleware.CORS([]string{"*"}))
	r.Use(identity.Middleware(cfg.IsDevelopment()))

	// Routes.
	healthHandler.RegisterHealth(r)
	simHandler.RegisterRoutes(r)
	r.Get("/ws/session", wsHandler.ServeHTTP)
	r.Handle("/metrics", mm.Handler())

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start retention worker.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	retention.StartWorker(ctx, repo, mm, cfg.AttemptTTL)

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}
