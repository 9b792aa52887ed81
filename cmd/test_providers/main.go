// cmd/test_providers/main.go
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/AI-Template-SDK/visibility-workflows/internal/config"
	"github.com/AI-Template-SDK/visibility-workflows/internal/logger"
	"github.com/AI-Template-SDK/visibility-workflows/internal/models"
	"github.com/AI-Template-SDK/visibility-workflows/internal/providers"
	"github.com/AI-Template-SDK/visibility-workflows/internal/store/postgres"
	"github.com/AI-Template-SDK/visibility-workflows/services"
)

func main() {
	platformsFlag := flag.String("platforms", "gemini", "comma separated platforms to query (chatgpt,gemini,perplexity,claude)")
	prompt := flag.String("prompt", "What are the best CRM tools for a small sales team?", "prompt sent to each provider")
	diagnostics := flag.Bool("diagnostics", false, "run the diagnostics report instead of single queries")
	live := flag.Bool("live", false, "with -diagnostics, also call every configured provider")
	flag.Parse()

	fmt.Println("🧪 AI Provider Test Script")
	fmt.Println(strings.Repeat("=", 50))

	if err := godotenv.Load(); err != nil {
		fmt.Println("⚠️  No .env file found, using environment variables")
	} else {
		fmt.Println("✅ Loaded .env file")
	}

	cfg := config.Load()
	logger.Init(cfg.LogLevel, true)
	costService := services.NewCostService()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	if *diagnostics {
		runDiagnostics(ctx, cfg, costService, *live)
		return
	}

	policy := providers.PolicyFromConfig(cfg.Providers.RetryMaxAttempts, cfg.Providers.RetryBaseDelay, cfg.Providers.RetryMaxDelay)
	failed := 0
	for _, name := range strings.Split(*platformsFlag, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if !testProvider(ctx, models.Platform(strings.ToLower(name)), cfg, costService, policy, *prompt) {
			failed++
		}
	}
	if failed > 0 {
		os.Exit(1)
	}
}

func runDiagnostics(ctx context.Context, cfg *config.Config, costService services.CostService, live bool) {
	var repos *services.RepositoryManager
	if cfg.DatabaseURL != "" {
		db, err := postgres.Connect(ctx, cfg.Database)
		if err != nil {
			fmt.Printf("⚠️  Database unavailable: %v\n", providers.RedactSecrets(err.Error()))
		} else {
			defer db.Close()
			repos = services.NewRepositoryManager(db)
		}
	}

	report := services.NewDiagnosticsService(cfg, repos, costService).Run(ctx, live)
	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		fmt.Printf("❌ Failed to encode report: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(out))
	if !report.Success {
		os.Exit(1)
	}
}

func testProvider(ctx context.Context, platform models.Platform, cfg *config.Config, costService services.CostService, policy providers.RetryPolicy, prompt string) bool {
	fmt.Printf("\n🎯 Testing Provider: %s\n", platform)
	fmt.Println(strings.Repeat("-", 60))

	provider, err := providers.NewProvider(ctx, platform, &cfg.Providers, costService)
	if err != nil {
		fmt.Printf("❌ Failed to create provider: %v\n", err)
		return false
	}

	start := time.Now()
	resp, err := providers.QueryWithRetry(ctx, provider, prompt, policy)
	if err != nil {
		printFailure(provider.GetProviderName(), err)
		return false
	}

	fmt.Printf("✅ %s answered in %s\n", resp.Model, time.Since(start).Round(time.Millisecond))
	fmt.Printf("   Tokens: %d in / %d out, cost $%.6f\n", resp.InputTokens, resp.OutputTokens, resp.Cost)
	fmt.Printf("   Response: %s\n", truncate(resp.Response, 400))
	return true
}

func printFailure(id providers.ProviderID, err error) {
	perr := providers.Classify(id, err)
	fmt.Printf("❌ %s\n", perr.Message)
	fmt.Printf("   Kind: %s, retryable: %t\n", perr.Kind, perr.Retryable)
	if perr.StatusCode != nil {
		fmt.Printf("   Status: %d\n", *perr.StatusCode)
	}
	fmt.Printf("   Fix: %s\n", providers.FixHint(perr))
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
