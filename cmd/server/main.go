package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/lmittmann/tint"

	"github.com/l4yercom/picknbrain/internal/adapters/ai/gemini"
	httpHandlers "github.com/l4yercom/picknbrain/internal/adapters/http/handlers"
	httpMiddleware "github.com/l4yercom/picknbrain/internal/adapters/http/middleware"
	memorystorage "github.com/l4yercom/picknbrain/internal/adapters/storage/memory"
	redisstorage "github.com/l4yercom/picknbrain/internal/adapters/storage/redis"
	"github.com/l4yercom/picknbrain/internal/config"
	"github.com/l4yercom/picknbrain/internal/core/ports"
	"github.com/l4yercom/picknbrain/internal/core/services"
)

func main() {
	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	store, windows, closeFn, err := initStorage(cfg, logger)
	if err != nil {
		logger.Error("failed to init storage", "error", err)
		os.Exit(1)
	}
	defer closeFn()

	provider, err := gemini.New(gemini.Config{
		APIKey:     cfg.Gemini.APIKey,
		ImageModel: cfg.Gemini.ImageModel,
		TextModel:  cfg.Gemini.TextModel,
	})
	if err != nil {
		logger.Error("failed to create scene provider", "error", err)
		os.Exit(1)
	}

	clock := services.SystemClock{}

	limiter, err := services.NewRateLimiterService(windows, services.RateLimiterConfig{
		SessionRule: cfg.RateLimit.SessionRule,
		AddressRule: cfg.RateLimit.AddressRule,
	})
	if err != nil {
		logger.Error("failed to create rate limiter", "error", err)
		os.Exit(1)
	}

	sessions, err := services.NewSessionService(store, cfg.Session.TTL, clock)
	if err != nil {
		logger.Error("failed to create session service", "error", err)
		os.Exit(1)
	}

	game, err := services.NewGameService(sessions, limiter, provider, store, clock)
	if err != nil {
		logger.Error("failed to create game service", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Lazy eviction covers sessions that keep getting looked up; the
	// sweeper covers the ones that go idle after expiring.
	if sweeper, ok := store.(ports.Sweeper); ok {
		go runSweeper(ctx, sweeper, cfg.Session.SweepInterval, logger)
	}

	handler := httpHandlers.NewGameHandler(sessions, game, logger)

	r := chi.NewRouter()
	r.Get("/healthz", httpHandlers.Healthz)
	r.Route("/api/game", func(r chi.Router) {
		r.Use(httpMiddleware.NewAddressThrottle(limiter, logger))
		handler.Register(r)
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil {
			errCh <- err
		}
	}()
	logger.Info("server started", "port", cfg.Server.Port, "storage", cfg.Storage.Type)

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
}

func initStorage(cfg config.Config, logger *slog.Logger) (ports.SessionStore, ports.WindowStorage, func(), error) {
	switch cfg.Storage.Type {
	case "memory":
		store := memorystorage.New(memorystorage.Config{
			MaxSessionsPerAddress: cfg.Session.MaxPerAddress,
		})
		return store, store, func() {
			_ = store.Close()
		}, nil
	case "redis":
		store, err := redisstorage.New(redisstorage.Config{
			Addr:                  fmt.Sprintf("%s:%d", cfg.Storage.Redis.Host, cfg.Storage.Redis.Port),
			Password:              cfg.Storage.Redis.Password,
			DB:                    cfg.Storage.Redis.DB,
			MaxSessionsPerAddress: cfg.Session.MaxPerAddress,
		})
		if err != nil {
			return nil, nil, nil, err
		}
		return store, store, func() {
			if err := store.Close(); err != nil {
				logger.Error("failed to close redis storage", "error", err)
			}
		}, nil
	default:
		return nil, nil, nil, fmt.Errorf("unsupported storage type: %s", cfg.Storage.Type)
	}
}

func runSweeper(ctx context.Context, sweeper ports.Sweeper, interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := sweeper.Sweep(ctx); err != nil {
				logger.Error("session sweep failed", "error", err)
			}
		}
	}
}
