// Package main is the entry point for the tickerdash server. It serves the
// aggregated market data endpoint, the dashboard session API and the
// websocket/SSE update streams.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aristath/tickerdash/internal/config"
	"github.com/aristath/tickerdash/internal/di"
	"github.com/aristath/tickerdash/internal/server"
	"github.com/aristath/tickerdash/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

// main loads configuration, wires dependencies, starts the scheduler and
// the HTTP server, then blocks until SIGINT or SIGTERM.
func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{
			Level:  "info",
			Pretty: true,
		})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode || cfg.LogFile == "",
		File:   cfg.LogFile,
	})
	logger.SetGlobalLogger(log)

	log.Info().
		Str("version", server.Version).
		Str("data_dir", cfg.DataDir).
		Msg("Starting tickerdash")

	container, _, err := di.Wire(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to wire dependencies")
	}
	// Closing flushes WAL checkpoints and releases the redis pool.
	defer func() {
		if err := container.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close container")
		}
	}()

	container.Scheduler.Start()

	srv := server.New(server.Config{
		Log:        log,
		Port:       cfg.Port,
		DevMode:    cfg.DevMode,
		DataDir:    cfg.DataDir,
		LogFile:    cfg.LogFile,
		Databases:  container.Databases(),
		MarketData: container.MarketData,
		Risk:       container.Risk,
		Charts:     container.Charts,
		Sessions:   container.SessionManager,
		Hub:        container.Hub,
		Bus:        container.EventBus,
		Scheduler:  container.Scheduler,
	})

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("Shutting down server...")
	case err := <-serverErr:
		if err != nil {
			log.Error().Err(err).Msg("HTTP server failed")
		}
	}

	container.Scheduler.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
