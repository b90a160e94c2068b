package main

import (
	"log/slog"
	"os"

	"github.com/DefoxxAnalytics/Etn-Quarterly/internal/app"
	"github.com/DefoxxAnalytics/Etn-Quarterly/internal/config"
	"github.com/DefoxxAnalytics/Etn-Quarterly/internal/infrastructure"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Error("Failed to initialize logger", "error", err)
		os.Exit(1)
	}
	defer infrastructure.CloseLogFile()

	application, err := app.NewApplication(cfg, logger)
	if err != nil {
		logger.Error("Failed to create application", "error", err)
		os.Exit(1)
	}

	if err := application.Run(); err != nil {
		logger.Error("Application error", "error", err)
		infrastructure.CloseLogFile()
		os.Exit(1)
	}
}
