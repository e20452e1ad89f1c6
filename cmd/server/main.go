package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/plotapi/internal/audit"
	"github.com/JonMunkholm/plotapi/internal/config"
	"github.com/JonMunkholm/plotapi/internal/ingest"
	"github.com/JonMunkholm/plotapi/internal/logging"
	"github.com/JonMunkholm/plotapi/internal/metrics"
	"github.com/JonMunkholm/plotapi/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("configuration loaded", "config", cfg.String())

	ctx := context.Background()

	// Auditing is optional; without a database every entry is dropped.
	var recorder audit.Recorder = audit.Nop{}
	if cfg.Audit.Enabled() {
		pool, err := audit.Connect(ctx, cfg.Audit.URL, cfg.Audit.MaxConns)
		if err != nil {
			slog.Error("failed to connect to audit database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		pg := audit.NewPostgres(pool)
		if err := pg.EnsureSchema(ctx); err != nil {
			slog.Error("failed to prepare audit schema", "error", err)
			os.Exit(1)
		}
		recorder = pg
		slog.Info("audit recording enabled")
	}

	limiter := ingest.NewLimiter(cfg.Ingest.MaxConcurrent, cfg.Ingest.MaxWaitTime)

	server := web.NewServer(cfg, web.Deps{
		Ingestor: ingest.NewIngestor(ingest.Options{
			MaxBytes:    cfg.Ingest.MaxFileSize,
			PreviewRows: cfg.Ingest.PreviewRows,
		}),
		Fetcher: ingest.NewFetcher(ingest.FetcherOptions{
			Timeout:  cfg.Ingest.FetchTimeout,
			MaxBytes: cfg.Ingest.MaxFileSize,
		}),
		Limiter: limiter,
		Metrics: metrics.New(metrics.InFlight(limiter.Active)),
		Audit:   recorder,
	})

	// Graceful shutdown
	idle := make(chan struct{})
	go func() {
		defer close(idle)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...", "active_ingestions", limiter.Active())

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
	<-idle
	slog.Info("server stopped")
}
