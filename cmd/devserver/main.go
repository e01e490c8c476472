package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/oficios-app/marketplace-client/internal/config"
	"github.com/oficios-app/marketplace-client/internal/devserver"
	"github.com/oficios-app/marketplace-client/internal/infrastructure/logging"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// 2. Initialize Structured Logger
	logger := logging.NewLogger(logging.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		Output:      os.Stdout,
		ServiceName: "marketplace-devserver",
		Environment: cfg.App.Environment,
	})

	logger.Info("starting dev server",
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
	)

	// 3. Build the in-memory server
	server, err := devserver.New(cfg.DevServer, logger)
	if err != nil {
		logger.Error("failed to initialize dev server", "error", err)
		os.Exit(1)
	}

	// 4. Start with graceful shutdown
	srv := &http.Server{
		Addr:    cfg.DevServer.Port,
		Handler: server.Router(),
	}

	go func() {
		logger.Info("dev server listening", "port", cfg.DevServer.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("shutdown signal received", "signal", sig.String())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.DevServer.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
		os.Exit(1)
	}

	logger.Info("server shutdown complete")
}
