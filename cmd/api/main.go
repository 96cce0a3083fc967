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

	"medassist/apps/backend/internal/ai"
	"medassist/apps/backend/internal/config"
	"medassist/apps/backend/internal/consult"
	"medassist/apps/backend/internal/db"
	"medassist/apps/backend/internal/document"
	"medassist/apps/backend/internal/logging"
	"medassist/apps/backend/internal/server"
	"medassist/apps/backend/internal/session"
)

const janitorInterval = time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := ai.New(cfg)
	if err != nil {
		logger.Error("model client setup failed", "error", err)
		os.Exit(1)
	}

	store := session.NewStore(session.Options{
		RecentTurns: cfg.MemoryRecentTurns,
		Summarizer:  consult.SummarizerFor(cfg, client),
		IdleTTL:     cfg.SessionIdleTTL,
	})

	opts := consult.Options{
		Store:  store,
		Client: client,
		Reader: document.NewReader(),
		Logger: logger,
	}
	if cfg.ArchiveEnabled() {
		pool, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("database connect failed", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		archive := db.NewArchive(pool)
		if err := archive.EnsureSchema(ctx); err != nil {
			logger.Error("database schema mismatch", "error", err)
			os.Exit(1)
		}
		opts.Archive = archive
		logger.Info("consultation archive enabled")
	}
	svc := consult.NewService(opts)

	go store.RunJanitor(ctx, janitorInterval, func(expired []string) {
		logger.Info("expired idle sessions", "count", len(expired))
	})

	app := server.New(cfg, svc, logger)
	httpServer := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           app.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("medassist api listening",
			"addr", "http://localhost:"+cfg.AppPort,
			"provider", cfg.AIProvider,
			"model", cfg.ActiveModel(),
			"auth", cfg.AuthEnabled(),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
}
