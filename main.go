// main.go
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/inngest/inngestgo"
	"github.com/joho/godotenv"

	"github.com/AI-Template-SDK/visibility-workflows/internal/api"
	"github.com/AI-Template-SDK/visibility-workflows/internal/cache"
	"github.com/AI-Template-SDK/visibility-workflows/internal/config"
	"github.com/AI-Template-SDK/visibility-workflows/internal/logger"
	"github.com/AI-Template-SDK/visibility-workflows/internal/search"
	"github.com/AI-Template-SDK/visibility-workflows/internal/store/postgres"
	"github.com/AI-Template-SDK/visibility-workflows/services"
	"github.com/AI-Template-SDK/visibility-workflows/workflows"
)

func main() {
	envErr := godotenv.Load()
	if envErr != nil {
		envErr = godotenv.Load("dev.env")
	}

	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.IsDevelopment())
	if envErr != nil {
		slog.Info("No .env or dev.env file loaded", "error", envErr)
	}

	slog.Info("Starting visibility workflows",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"database_host", cfg.Database.Host,
		"database_name", cfg.Database.Name)

	if cfg.Providers.GeminiAPIKey == "" {
		slog.Warn("Gemini API key not loaded; daily scans will fail")
	}
	if cfg.Providers.OpenAIAPIKey == "" {
		slog.Warn("OpenAI API key not loaded; ChatGPT scans need a per-request key")
	}

	ctx := context.Background()

	dbClient, err := postgres.Connect(ctx, cfg.Database)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer dbClient.Close()

	if err := postgres.Migrate(dbClient.DB.DB); err != nil {
		slog.Error("Failed to apply migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Database ready")

	repoManager := services.NewRepositoryManager(dbClient)

	if cfg.IsDevelopment() {
		os.Unsetenv("INNGEST_SIGNING_KEY")
		cfg.InngestSigningKey = ""
		slog.Info("Running in development mode - signing key verification disabled")
	}

	var index search.Indexer = search.Nop{}
	if cfg.Typesense.Host != "" {
		tsIndex := search.NewIndex(search.NewClient(cfg.Typesense.Host, cfg.Typesense.Port, cfg.Typesense.APIKey))
		if err := tsIndex.EnsureCollection(ctx); err != nil {
			slog.Warn("Typesense unavailable, scan responses will not be indexed", "error", err)
		} else {
			index = tsIndex
			slog.Info("Typesense collection is ready", "collection", search.CollectionName)
		}
	}

	analyticsCache, err := cache.New(ctx, cfg.Redis.URL, cfg.Redis.Password, cfg.Redis.TTL)
	if err != nil {
		slog.Warn("Redis unavailable, analytics will not be cached", "error", err)
		analyticsCache = nil
	}
	defer analyticsCache.Close()

	costService := services.NewCostService()
	scanService := services.NewScanService(cfg, repoManager, index, analyticsCache, costService)
	analyticsService := services.NewAnalyticsService(repoManager, analyticsCache)
	diagnosticsService := services.NewDiagnosticsService(cfg, repoManager, costService)
	catalogService := services.NewCatalogService(repoManager, analyticsCache)

	client, err := inngestgo.NewClient(
		inngestgo.ClientOpts{
			AppID:    "visibility-workflows",
			EventKey: inngestgo.StrPtr(cfg.InngestEventKey),
			Env:      inngestgo.StrPtr(cfg.Environment),
		},
	)
	if err != nil {
		slog.Error("Failed to create Inngest client", "error", err)
		os.Exit(1)
	}

	alerter := workflows.NewSlackAlerter(cfg.SlackWebhookURL)

	scanProcessor := workflows.NewScanProcessor(scanService, alerter)
	scanProcessor.SetClient(client)
	scanProcessor.RunScanWorkflow()

	scheduledProcessor := workflows.NewScheduledProcessor(scanService, analyticsService, alerter)
	scheduledProcessor.SetClient(client)
	scheduledProcessor.DailyScanProcessor()
	scheduledProcessor.WeeklyFailureAnalyzer()
	slog.Info("Workflows registered")

	server := api.NewServer(scanService, analyticsService, diagnosticsService, catalogService, api.Options{
		Enqueuer: scanProcessor,
		Inngest:  client.Serve(),
		Logger:   slog.Default(),
	})

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           server,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("Starting HTTP server", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("Shutdown error", "error", err)
	}
}
