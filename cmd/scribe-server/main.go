// Package main is the entry point for the Scribe server.
// Scribe is a blogging backend with bearer-token authentication.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prn-tf/scribe/internal/app"
	"github.com/prn-tf/scribe/internal/config"
	"github.com/prn-tf/scribe/internal/logging"
)

// Version information (set at build time)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Logging, os.Stderr)

	logger.Info().
		Str("version", Version).
		Str("build_time", BuildTime).
		Str("git_commit", GitCommit).
		Str("database", cfg.Database.Driver).
		Msg("Starting Scribe server")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize")
	}

	if err := a.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("server stopped with error")
	}

	if err := a.Close(); err != nil {
		logger.Error().Err(err).Msg("failed to release resources")
	}

	logger.Info().Msg("Server stopped")
}
