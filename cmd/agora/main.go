// Command agora is the terminal client for the agora community feed.
package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"agora/internal/api"
	"agora/internal/cache"
	"agora/internal/config"
	"agora/internal/observability"
	"agora/internal/service"
	"agora/internal/tui"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
)

var version = "dev"

func main() {
	// A missing .env is fine; the environment and config.yml still apply.
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	closeLog, err := observability.InitLogging(observability.LoggingConfig{
		Level: cfg.LogLevel,
		File:  cfg.LogFile,
		JSON:  cfg.IsProduction(),
	})
	if err != nil {
		log.Fatalf("Failed to initialize logging: %v", err)
	}
	defer func() { _ = closeLog() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.InitTracing(observability.TracingConfig{
		ServiceName:    "agora",
		ServiceVersion: version,
		Environment:    cfg.Env,
		Enabled:        cfg.TracingEnabled,
		Exporter:       cfg.TracingExporter,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		SamplerRatio:   cfg.TracingSamplerRatio,
		StdoutWriter:   observability.LogOutput(),
	})
	if err != nil {
		log.Fatalf("Failed to initialize tracing: %v", err)
	}

	var metrics *observability.MetricsServer
	if cfg.MetricsAddr != "" {
		metrics = observability.NewMetricsServer(cfg.MetricsAddr)
		metrics.Start()
	}

	rdb := cache.InitRedis(cfg.RedisURL)
	client := api.NewClient(cfg.APIBaseURL, api.WithTimeout(cfg.RequestTimeout()))
	app := tui.New(ctx,
		service.NewFeedService(client, cache.NewReadCache(rdb, cfg.CacheTTL())),
		service.NewAuthService(client),
	)

	observability.GlobalLogger.Info("agora starting",
		slog.String("version", version),
		slog.String("api", client.BaseURL()),
		slog.Bool("cache", rdb != nil),
	)

	_, runErr := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx)).Run()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if metrics != nil {
		if err := metrics.Shutdown(shutdownCtx); err != nil {
			observability.GlobalLogger.Error("metrics shutdown failed", slog.String("error", err.Error()))
		}
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		observability.GlobalLogger.Error("tracing shutdown failed", slog.String("error", err.Error()))
	}
	if rdb != nil {
		_ = rdb.Close()
	}

	if runErr != nil && !errors.Is(runErr, tea.ErrProgramKilled) {
		observability.GlobalLogger.Error("terminal UI exited with error", slog.String("error", runErr.Error()))
		log.Printf("agora: %v", runErr)
	}
}
