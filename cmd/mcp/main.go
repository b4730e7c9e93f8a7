package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/server"

	"github.com/hoanghai1803/citewatch/internal/ai"
	"github.com/hoanghai1803/citewatch/internal/config"
	"github.com/hoanghai1803/citewatch/internal/mcpserver"
	"github.com/hoanghai1803/citewatch/internal/pipeline"
	"github.com/hoanghai1803/citewatch/internal/storage"
)

const version = "0.1.0"

func main() {
	configPath := flag.String("config", "config.toml", "path to config file")
	flag.Parse()

	// stdout carries the protocol.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	if err := run(*configPath); err != nil {
		slog.Error("mcp server failed", "error", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	db, err := storage.OpenDatabase(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	if err := storage.RunMigrations(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	store := storage.NewStore(db)

	clients := cfg.Providers.Clients()
	runner := pipeline.NewRunner(store,
		ai.NewDefaultRouter(clients),
		ai.NewSentimentAnalyzer(clients[ai.ProviderOpenAI], cfg.Sentiment.Model),
		cfg.Sentiment.Brands,
	)

	slog.Info("serving MCP tools over stdio", "database", cfg.Database.Path)
	return server.ServeStdio(mcpserver.New(store, runner, version))
}
