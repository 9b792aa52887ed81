// services/diagnostics_service.go
package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/AI-Template-SDK/visibility-workflows/internal/config"
	"github.com/AI-Template-SDK/visibility-workflows/internal/models"
	"github.com/AI-Template-SDK/visibility-workflows/internal/providers"
)

const diagnosticsPrompt = "Reply with exactly: OK"

// pinger is satisfied by RepositoryManager.
type pinger interface {
	Ping(ctx context.Context) error
}

type diagnosticsService struct {
	cfg         *config.Config
	db          pinger
	newProvider ProviderFactory
	policy      providers.RetryPolicy
	now         func() time.Time
}

func NewDiagnosticsService(cfg *config.Config, repos *RepositoryManager, costService CostService) DiagnosticsService {
	factory := func(ctx context.Context, platform models.Platform, ov providers.Overrides) (providers.AIProvider, error) {
		return providers.NewProvider(ctx, platform, &cfg.Providers, costService, ov)
	}
	policy := providers.PolicyFromConfig(cfg.Providers.RetryMaxAttempts, cfg.Providers.RetryBaseDelay, cfg.Providers.RetryMaxDelay)
	return newDiagnosticsService(cfg, repos, factory, policy)
}

func newDiagnosticsService(cfg *config.Config, db pinger, factory ProviderFactory, policy providers.RetryPolicy) *diagnosticsService {
	return &diagnosticsService{cfg: cfg, db: db, newProvider: factory, policy: policy, now: time.Now}
}

// providerCheck describes one live provider check.
type providerCheck struct {
	name     string
	platform models.Platform
	key      string
	required bool
}

// Run checks configuration, database connectivity and, when testProviders is
// set, one live call per provider.
func (s *diagnosticsService) Run(ctx context.Context, testProviders bool) *DiagnosticsReport {
	var checks []DiagnosticCheck

	required := []struct{ name, value string }{
		{"DATABASE_URL", s.cfg.DatabaseURL},
		{"GEMINI_API_KEY", s.cfg.Providers.GeminiAPIKey},
	}
	for _, env := range required {
		if env.value != "" {
			checks = append(checks, DiagnosticCheck{Name: "env:" + env.name, Status: CheckOK, Message: "Configured"})
		} else {
			checks = append(checks, DiagnosticCheck{Name: "env:" + env.name, Status: CheckError, Message: "Missing required environment variable"})
		}
	}

	if s.cfg.Providers.OpenAIAPIKey != "" {
		checks = append(checks, DiagnosticCheck{Name: "env:OPENAI_API_KEY", Status: CheckOK, Message: "Configured (optional for ChatGPT scans)"})
	} else {
		checks = append(checks, DiagnosticCheck{Name: "env:OPENAI_API_KEY", Status: CheckWarning, Message: "Not configured (optional; users can still provide key per scan)"})
	}

	checks = append(checks, s.databaseCheck(ctx))

	targets := []providerCheck{
		{name: "provider:gemini", platform: models.PlatformGemini, key: s.cfg.Providers.GeminiAPIKey, required: true},
		{name: "provider:openai", platform: models.PlatformChatGPT, key: s.cfg.Providers.OpenAIAPIKey},
		{name: "provider:perplexity", platform: models.PlatformPerplexity, key: s.cfg.Providers.PerplexityAPIKey},
		{name: "provider:anthropic", platform: models.PlatformClaude, key: s.cfg.Providers.AnthropicAPIKey},
	}
	for _, target := range targets {
		if !testProviders {
			checks = append(checks, DiagnosticCheck{
				Name:    target.name,
				Status:  CheckSkipped,
				Message: "Provider call test skipped. Use ?test_providers=true to test live API access.",
			})
			continue
		}
		checks = append(checks, s.providerCheck(ctx, target))
	}

	hasErrors := false
	for _, c := range checks {
		if c.Status == CheckError {
			hasErrors = true
			break
		}
	}

	report := &DiagnosticsReport{
		Success:   !hasErrors,
		Timestamp: s.now().UTC(),
		Checks:    checks,
		Guidance: DiagnosticGuidance{
			NextStep: "Diagnostics look healthy",
			Note:     "This endpoint never returns raw secret values.",
		},
	}
	if hasErrors {
		report.Guidance.NextStep = "Fix failing checks and re-run diagnostics"
	}
	slog.Info("[Diagnostics] Completed", "success", report.Success, "checks", len(checks), "test_providers", testProviders)
	return report
}

func (s *diagnosticsService) databaseCheck(ctx context.Context) DiagnosticCheck {
	const name = "database:connectivity"
	if s.db == nil {
		return DiagnosticCheck{Name: name, Status: CheckError, Message: "Database client not configured"}
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.db.Ping(pingCtx); err != nil {
		return DiagnosticCheck{Name: name, Status: CheckError, Message: "Connection/query failed: " + providers.RedactSecrets(err.Error())}
	}
	return DiagnosticCheck{Name: name, Status: CheckOK, Message: "Database connectivity is healthy"}
}

func (s *diagnosticsService) providerCheck(ctx context.Context, target providerCheck) DiagnosticCheck {
	if target.key == "" {
		if target.required {
			return DiagnosticCheck{Name: target.name, Status: CheckError, Message: "Cannot test provider: API key is missing"}
		}
		return DiagnosticCheck{Name: target.name, Status: CheckWarning, Message: "Skipping provider test (optional API key missing)"}
	}

	provider, err := s.newProvider(ctx, target.platform, providers.Overrides{})
	if err == nil {
		_, err = providers.QueryWithRetry(ctx, provider, diagnosticsPrompt, s.policy)
	}
	if err != nil {
		return providerErrorCheck(target, err)
	}
	return DiagnosticCheck{Name: target.name, Status: CheckOK, Message: "Provider test succeeded"}
}

func providerErrorCheck(target providerCheck, err error) DiagnosticCheck {
	id, idErr := providers.ProviderFor(target.platform)
	if idErr != nil {
		id = providers.ProviderID(target.platform)
	}
	var perr *providers.ProviderError
	if !errors.As(err, &perr) {
		perr = providers.Classify(id, err)
	}
	retryable := perr.Retryable
	return DiagnosticCheck{
		Name:    target.name,
		Status:  CheckError,
		Message: perr.Message,
		Details: &DiagnosticDetails{
			Type:       string(perr.Kind),
			StatusCode: perr.StatusCode,
			Retryable:  &retryable,
			Hint:       providers.FixHint(perr),
		},
	}
}
