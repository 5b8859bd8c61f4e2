// Package cli provides common CLI initialization utilities shared by
// cmd/leaderboard and cmd/leaderboard-worker.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"leaderboard/internal/amqp"
	"leaderboard/internal/backend"
	"leaderboard/internal/config"
	"leaderboard/internal/core"
	"leaderboard/internal/log"
	"leaderboard/internal/sheets"
	gsheet "leaderboard/internal/sheets/google"
	"leaderboard/internal/sheets/memory"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger initializes structured logging at the given LOG_LEVEL.
// Returns the configured logger and sets it as the default logger.
func SetupLogger(level, component string) *log.Logger {
	logger := log.New(log.Config{
		Level:     log.ParseLevel(level),
		Component: component,
	})
	log.SetDefault(logger)
	return logger
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *log.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// LoadRegistry loads the scoring categories or exits the process.
func LoadRegistry(logger *log.Logger, cfg *config.Config) *core.Registry {
	registry, err := cfg.LoadRegistry()
	if err != nil {
		logger.Error("Failed to load categories", log.FieldError, err, "path", cfg.CategoriesFile)
		os.Exit(1)
	}
	logger.Info("Scoring categories loaded", "count", len(registry.Entries()))
	return registry
}

// InitBackend opens the configured ledger storage or exits the process.
func InitBackend(ctx context.Context, logger *log.Logger, cfg *config.Config) *backend.BackendResult {
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	result, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	return result
}

// InitAMQP connects to the broker when AMQP_URL is set. A nil client means
// notifications are disabled.
func InitAMQP(logger *log.Logger, cfg *config.Config) *amqp.Client {
	if cfg.AMQPURL == "" {
		logger.Info("AMQP disabled - no AMQP_URL provided")
		return nil
	}
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, cfg.AMQPPrefetch)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("AMQP client initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	return client
}

// NewStandingsWriter returns the Google Sheets exporter when a spreadsheet is
// configured and an in-memory writer otherwise.
func NewStandingsWriter(ctx context.Context, logger *log.Logger, cfg *config.Config) (sheets.StandingsWriter, error) {
	if !cfg.SheetsEnabled() {
		logger.Info("Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided, keeping standings in memory")
		return memory.New(), nil
	}
	client, err := gsheet.New(ctx, gsheet.Options{
		SpreadsheetID:          cfg.GoogleSpreadsheetID,
		LeaderboardSheet:       cfg.GoogleLeaderboardSheet,
		WeeklySheet:            cfg.GoogleWeeklySheet,
		ServiceAccountJSON:     cfg.GoogleServiceAccountJSON,
		ServiceAccountFile:     cfg.GoogleServiceAccountFile,
		ApplicationCredentials: cfg.GoogleApplicationCredentials,
	})
	if err != nil {
		return nil, err
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	return client, nil
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
