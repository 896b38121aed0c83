// Command vibecoders is the terminal client for the VibeCoders API.
//
// The session (user and token) is kept in a local SQLite file so it survives
// restarts; -ephemeral keeps it in memory instead.
//
//	VIBECODERS_CLIENT_BASE_URL=http://localhost:8080 go run ./cmd/vibecoders -route /login
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/vibecoders/vibecoders/internal/client/api"
	"github.com/vibecoders/vibecoders/internal/client/authflow"
	"github.com/vibecoders/vibecoders/internal/client/bootstrap"
	"github.com/vibecoders/vibecoders/internal/client/cli"
	"github.com/vibecoders/vibecoders/internal/client/session"
	"github.com/vibecoders/vibecoders/internal/client/view"
	"github.com/vibecoders/vibecoders/internal/config"
)

func main() {
	configFile := flag.String("config", "", "path to a config file (default ./config.yaml if present)")
	ephemeral := flag.Bool("ephemeral", false, "keep the session in memory only")
	route := flag.String("route", "/", "page to open first")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		slog.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}
	// Logs go to stderr so they do not interleave with the pages.
	logger := config.NewLogger(cfg.LogLevel, os.Stderr)

	if err := cfg.Client.Validate(); err != nil {
		logger.Error("invalid client configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg.Client, *ephemeral, view.Route(*route), logger); err != nil {
		logger.Error("client error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.ClientConfig, ephemeral bool, route view.Route, logger *slog.Logger) error {
	client, err := api.New(cfg.BaseURL, cfg.Timeout, logger)
	if err != nil {
		return err
	}

	var store session.Store
	if ephemeral {
		store = session.NewMemoryStore(logger)
	} else {
		if cfg.SessionDB != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(cfg.SessionDB), 0o700); err != nil {
				return err
			}
		}
		sq, err := session.OpenSQLite(ctx, cfg.SessionDB, logger)
		if err != nil {
			return err
		}
		defer sq.Close()
		store = sq
	}

	app := cli.NewApp(bootstrap.Deps{
		Controller: authflow.NewController(client, store, logger),
		Resources:  client,
		Store:      store,
		Logger:     logger,
	}, os.Stdin, os.Stdout)
	return cli.Run(ctx, app, route)
}
