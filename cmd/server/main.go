// Package main is the entry point for the stock advisor API server.
//
// main stays minimal: read configuration, build the two external
// collaborators (Google verifier, advisor agent), hand everything to
// internal/server, and block until shutdown. All actual logic lives in
// the imported packages.
package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/sakif/stock-advisor/internal/agent"
	"github.com/sakif/stock-advisor/internal/auth"
	"github.com/sakif/stock-advisor/internal/config"
	"github.com/sakif/stock-advisor/internal/server"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// The database directory may not exist on first run.
	if cfg.DBPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
			logger.Error("failed to create database directory",
				slog.String("dir", filepath.Dir(cfg.DBPath)),
				slog.String("error", err.Error()),
			)
			os.Exit(1)
		}
	}

	verifier, err := auth.NewGoogleVerifier(context.Background(), cfg.GoogleClientID)
	if err != nil {
		logger.Error("failed to create Google verifier", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// With no upstream configured, the canned agent answers locally.
	var advisor agent.Agent = agent.Canned{}
	if cfg.AgentURL != "" {
		advisor = agent.NewRemote(cfg.AgentURL, cfg.AgentTimeout)
		logger.Info("using remote agent", slog.String("url", cfg.AgentURL))
	} else {
		logger.Warn("AGENT_URL not set — using canned agent responses")
	}

	srv, err := server.New(cfg, logger, verifier, advisor)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start blocks until the server is shut down via SIGINT/SIGTERM.
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
