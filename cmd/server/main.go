// Command server runs the VibeCoders API.
//
// Configuration comes from VIBECODERS_* environment variables, an optional
// .env file and an optional config.yaml (see internal/config). The only
// required setting is the token secret:
//
//	VIBECODERS_SERVER_JWT_SECRET=$(openssl rand -hex 32) go run ./cmd/server
package main

import (
	"flag"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/vibecoders/vibecoders/internal/config"
	"github.com/vibecoders/vibecoders/internal/server"
)

func main() {
	configFile := flag.String("config", "", "path to a config file (default ./config.yaml if present)")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		slog.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger := config.NewLogger(cfg.LogLevel, os.Stdout)

	if cfg.Server.DBPath != ":memory:" {
		dbDir := filepath.Dir(cfg.Server.DBPath)
		if err := os.MkdirAll(dbDir, 0o755); err != nil {
			logger.Error("failed to create database directory",
				slog.String("dir", dbDir),
				slog.String("error", err.Error()),
			)
			os.Exit(1)
		}
	}

	srv, err := server.New(cfg.Server, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start blocks until SIGINT or SIGTERM.
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
