package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"chatcore/internal/server"
	"chatcore/internal/store/memstore"
	"chatcore/pkg/config"
	"chatcore/pkg/logging"
)

func main() {
	logger := logging.New(logging.ParseLevel(os.Getenv("CHATCORE_LOG_LEVEL")))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		logger.Debug("no .env file found", slog.Any("error", err))
	}

	cfg, err := config.Load(logger, "config")
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The in-memory store backs the standalone binary; a durable store
	// implementation plugs in through the same interface.
	st := memstore.New()

	app := server.NewApp(logger, ctx, cfg, st)
	if err := app.Run(); err != nil {
		logger.Error("application run failed", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("application shut down successfully")
}
