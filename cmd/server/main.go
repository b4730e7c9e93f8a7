package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hoanghai1803/citewatch/internal/ai"
	"github.com/hoanghai1803/citewatch/internal/api"
	"github.com/hoanghai1803/citewatch/internal/api/handlers"
	"github.com/hoanghai1803/citewatch/internal/config"
	"github.com/hoanghai1803/citewatch/internal/pipeline"
	"github.com/hoanghai1803/citewatch/internal/scheduler"
	"github.com/hoanghai1803/citewatch/internal/storage"
)

func main() {
	configPath := flag.String("config", "config.toml", "path to config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	// Load configuration (auto-creates default if missing).
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	loc, err := cfg.Scheduler.Location()
	if err != nil {
		return fmt.Errorf("loading timezone: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := storage.OpenDatabase(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	if err := storage.RunMigrations(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	store := storage.NewStore(db)
	if err := store.Ping(ctx); err != nil {
		return fmt.Errorf("database not reachable: %w", err)
	}

	clients := cfg.Providers.Clients()
	router := ai.NewDefaultRouter(clients)
	sentiment := ai.NewSentimentAnalyzer(clients[ai.ProviderOpenAI], cfg.Sentiment.Model)
	runner := pipeline.NewRunner(store, router, sentiment, cfg.Sentiment.Brands)

	// Prompt generation needs OpenAI; without a key the endpoint answers 503.
	var generator handlers.PromptGenerator
	if cfg.Providers.OpenAIAPIKey != "" {
		generator = ai.NewPromptGenerator(clients[ai.ProviderOpenAI], cfg.Generator.Model)
	}

	if cfg.Scheduler.Enabled {
		sched := scheduler.New(store, runner, scheduler.Options{
			Interval:   cfg.Scheduler.Interval(),
			RunOnStart: cfg.Scheduler.RunOnStart,
			Location:   loc,
		})
		if err := sched.Start(ctx); err != nil {
			return fmt.Errorf("starting scheduler: %w", err)
		}
		defer sched.Stop()
	} else {
		slog.Info("scheduler disabled")
	}

	srv := &http.Server{
		Addr: fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: api.NewRouter(api.Deps{
			Store:     store,
			Registry:  router,
			Runner:    runner,
			Generator: generator,
			Location:  loc,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting server", "addr", srv.Addr, "database", cfg.Database.Path)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
