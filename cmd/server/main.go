package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/aigoflow/chef-gateway/internal/config"
	"github.com/aigoflow/chef-gateway/internal/gradio"
	"github.com/aigoflow/chef-gateway/internal/recipes"
	"github.com/aigoflow/chef-gateway/internal/repository"
	"github.com/aigoflow/chef-gateway/internal/services"
	"github.com/aigoflow/chef-gateway/internal/store"
	"github.com/aigoflow/chef-gateway/pkg/server"
)

func main() {
	var envFile = flag.String("env", "", "Optional .env file to load")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)

	_ = os.MkdirAll(filepath.Dir(cfg.DBPath), 0755)
	db, err := store.Open(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	repo := repository.NewSQLiteRepository(db)
	events := repo.Event()
	logEvent := func(level, code, msg string, meta map[string]interface{}) {
		if err := events.LogEvent(context.Background(), level, code, msg, meta); err != nil {
			slog.Warn("Failed to record event", "code", code, "error", err)
		}
	}

	logEvent("info", "startup", "Server starting", map[string]interface{}{
		"http_addr": cfg.HTTPAddr,
		"db_path":   cfg.DBPath,
		"space_url": cfg.SpaceURL,
	})

	layout, err := gradio.ParseArgLayout(cfg.JoinArgs)
	if err != nil {
		logEvent("error", "config.invalid", "Invalid join argument layout", map[string]interface{}{
			"args":  cfg.JoinArgs,
			"error": err.Error(),
		})
		slog.Error("Invalid GRADIO_ARGS", "error", err)
		os.Exit(1)
	}

	generator := gradio.NewClient(gradio.Config{
		BaseURL:        cfg.SpaceURL,
		APIKey:         cfg.SpaceAPIKey,
		FnIndex:        cfg.FnIndex,
		ArgLayout:      layout,
		HTTPTimeout:    cfg.HTTPTimeout,
		AttemptTimeout: cfg.AttemptTimeout,
		MaxAttempts:    cfg.MaxAttempts,
	}, nil)

	recipeClient := recipes.NewClient(recipes.Config{
		BaseURL: cfg.RecipeBaseURL,
		APIKey:  cfg.RapidAPIKey,
		APIHost: cfg.RapidAPIHost,
		Timeout: cfg.RecipeHTTPTimeout,
	}, repo.Cache(), nil)
	if cfg.RapidAPIKey == "" {
		slog.Warn("RAPIDAPI_KEY is not set, recipe lookups will be rejected upstream")
	}

	monitoring := services.NewMonitoringService(cfg)
	healthService := services.NewHealthService(cfg, monitoring)
	chatService := services.NewChatService(generator, repo, monitoring)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go repository.SweepCache(ctx, repo.Cache(), cfg.CacheSweepInterval)

	natsDone := make(chan struct{})
	if !cfg.NatsEnabled {
		close(natsDone)
	} else {
		natsService, err := services.NewNATSService(cfg, chatService, monitoring, healthService)
		if err != nil {
			close(natsDone)
			logEvent("warn", "nats.unavailable", "Continuing without NATS", map[string]interface{}{
				"nats_url": cfg.NatsURL,
				"error":    err.Error(),
			})
			slog.Warn("NATS unavailable, serving HTTP only", "nats_url", cfg.NatsURL, "error", err)
		} else {
			go func() {
				defer close(natsDone)
				defer natsService.Close()
				if err := natsService.Start(ctx); err != nil {
					logEvent("error", "nats.failed", "NATS service failed", map[string]interface{}{
						"error": err.Error(),
					})
					slog.Error("NATS service failed", "error", err)
				}
			}()
		}
	}

	httpServer := server.NewServer(cfg.HTTPAddr, chatService, healthService, recipeClient)

	logEvent("info", "server.ready", "Server ready to accept requests", map[string]interface{}{
		"http_addr": cfg.HTTPAddr,
		"nats":      cfg.NatsEnabled,
	})

	httpDone := make(chan struct{})
	go func() {
		defer close(httpDone)
		if err := httpServer.Start(ctx); err != nil && err != http.ErrServerClosed {
			logEvent("error", "http.failed", "HTTP server failed", map[string]interface{}{
				"error": err.Error(),
			})
			slog.Error("HTTP server failed", "error", err)
			cancel()
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case <-ctx.Done():
	}

	slog.Info("Shutting down server")
	cancel()
	<-httpDone
	<-natsDone
	logEvent("info", "shutdown", "Server stopped", nil)
}
