package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"terabox-extractor/internal/app"
	"terabox-extractor/internal/config"
)

func main() {
	// Initialize zerolog logger
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	// Load configuration
	configManager := config.NewManager()
	cfg, err := configManager.Load(os.Getenv("TBX_CONFIG"))
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading configuration")
	}
	defer configManager.Close()

	logger := configManager.GetLogger()

	a, err := app.New(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Error building resolver")
	}
	defer a.Close()

	mode := "api only"
	switch {
	case cfg.Bot.Token != "" && cfg.Bot.WebhookURL != "":
		mode = "webhook"
	case cfg.Bot.Token != "":
		mode = "polling"
	}
	logger.Info().
		Str("mode", mode).
		Int("port", cfg.Server.Port).
		Msg("Terabox Extractor starting")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Create and run server
	if err := a.RunServer(ctx); err != nil {
		logger.Error().Err(err).Msg("Error running server")
		os.Exit(1)
	}
}
