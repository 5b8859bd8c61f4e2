package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"leaderboard/internal/cli"
	"leaderboard/internal/config"
	apphttp "leaderboard/internal/http"
	"leaderboard/internal/log"
	"leaderboard/internal/services"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	cli.LoadEnvFile()

	logger := cli.SetupLogger(config.Load().LogLevel, log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)
	registry := cli.LoadRegistry(logger, cfg)

	ctx, stop := cli.SignalContext()
	defer stop()

	result := cli.InitBackend(ctx, logger, cfg)
	defer func() {
		if err := result.Close(); err != nil {
			logger.Error("Failed to close backend", log.FieldError, err)
		}
	}()

	// Change notifications are optional; without a broker the worker only
	// picks up changes on its periodic resync.
	var publisher services.ChangePublisher
	if amqpClient := cli.InitAMQP(logger, cfg); amqpClient != nil {
		defer amqpClient.Close()
		publisher = amqpClient
	}

	ledger := services.NewLedgerService(result.Gateway, registry, publisher, logger)
	if err := ledger.Load(ctx); err != nil {
		logger.Error("Failed to load ledger", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	checks := map[string]apphttp.ReadinessCheck{
		"storage": result.Ready,
	}
	srv := apphttp.NewServer(":"+cfg.Port, ledger, checks, logger, apphttp.Options{})
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting leaderboard server", "port", cfg.Port, "backend", cfg.DataBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
