// workflows/scan_processor.go
package workflows

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/inngest/inngestgo"
	"github.com/inngest/inngestgo/step"

	"github.com/AI-Template-SDK/visibility-workflows/internal/models"
	"github.com/AI-Template-SDK/visibility-workflows/services"
)

// ScanRunEvent is the payload of the scan.run event.
type ScanRunEvent struct {
	QueryID     string   `json:"query_id"`
	Platforms   []string `json:"platforms"`
	TriggeredBy string   `json:"triggered_by,omitempty"`
}

type ScanProcessor struct {
	scanService services.ScanService
	alerter     *SlackAlerter
	client      inngestgo.Client
}

func NewScanProcessor(scanService services.ScanService, alerter *SlackAlerter) *ScanProcessor {
	return &ScanProcessor{
		scanService: scanService,
		alerter:     alerter,
	}
}

func (p *ScanProcessor) SetClient(client inngestgo.Client) {
	p.client = client
}

func (p *ScanProcessor) RunScanWorkflow() inngestgo.ServableFunction {
	fn, err := inngestgo.CreateFunction(
		p.client,
		inngestgo.FunctionOpts{
			ID:      "run-visibility-scan",
			Name:    "Run Visibility Scan - Query Across AI Platforms",
			Retries: inngestgo.IntPtr(2),
		},
		inngestgo.EventTrigger("scan.run", nil),
		func(ctx context.Context, input inngestgo.Input[ScanRunEvent]) (any, error) {
			evt := input.Event.Data
			slog.Info("[RunScanWorkflow] Starting scan", "query_id", evt.QueryID, "platforms", evt.Platforms, "triggered_by", evt.TriggeredBy)

			outcome, err := step.Run(ctx, "run-scan", func(ctx context.Context) (scanOutcome, error) {
				return runScanStep(ctx, p.scanService, evt)
			})
			if err != nil {
				return nil, fmt.Errorf("step 'run-scan' failed: %w", err)
			}
			if outcome.Rejected != "" {
				slog.Warn("[RunScanWorkflow] Rejected scan request", "query_id", evt.QueryID, "reason", outcome.Rejected)
				return map[string]interface{}{"query_id": evt.QueryID, "success": false, "error": outcome.Rejected}, nil
			}
			result := outcome.Result

			failed := failedResults(result.Results)
			if len(failed) > 0 {
				_, _ = step.Run(ctx, "report-failures", func(ctx context.Context) (bool, error) {
					if err := p.alerter.ReportScanFailures(ctx, "scan.run", evt.QueryID, failed); err != nil {
						slog.Warn("[RunScanWorkflow] Failed to report scan failures", "error", err)
						return false, nil
					}
					return true, nil
				})
			}

			return summarizeScan(evt.QueryID, result), nil
		},
	)

	if err != nil {
		slog.Error("Failed to create scan run function", "error", err)
	}

	return fn
}

// scanOutcome is the memoized output of the run-scan step. Rejected holds the
// reason a request can never succeed; such requests complete the step instead
// of failing it so they are not retried.
type scanOutcome struct {
	Result   *services.ScanRunResult `json:"result,omitempty"`
	Rejected string                  `json:"rejected,omitempty"`
}

func runScanStep(ctx context.Context, scanService services.ScanService, evt ScanRunEvent) (scanOutcome, error) {
	result, err := scanService.RunScan(ctx, scanRequest(evt))
	if isPermanentScanError(err) {
		return scanOutcome{Rejected: err.Error()}, nil
	}
	if err != nil {
		return scanOutcome{}, err
	}
	return scanOutcome{Result: result}, nil
}

// ErrQueuedAPIKey is returned when a queued scan carries a per-request API key.
var ErrQueuedAPIKey = errors.New("openai_api_key is not supported for queued scans")

// EnqueueScan publishes a scan.run event so the scan runs under the workflow engine.
func (p *ScanProcessor) EnqueueScan(ctx context.Context, req services.ScanRequest) (string, error) {
	if req.OpenAIAPIKey != "" {
		return "", ErrQueuedAPIKey
	}
	if p.client == nil {
		return "", errors.New("inngest client not set")
	}
	evt := inngestgo.Event{
		Name: "scan.run",
		Data: map[string]interface{}{
			"query_id":     req.QueryID,
			"platforms":    platformNames(req.Platforms),
			"triggered_by": "api",
		},
	}
	return p.client.Send(ctx, evt)
}

func platformNames(platforms []models.Platform) []string {
	out := make([]string, 0, len(platforms))
	for _, p := range platforms {
		out = append(out, string(p))
	}
	return out
}

func scanRequest(evt ScanRunEvent) services.ScanRequest {
	platforms := make([]models.Platform, 0, len(evt.Platforms))
	for _, p := range evt.Platforms {
		platforms = append(platforms, models.Platform(p))
	}
	return services.ScanRequest{QueryID: evt.QueryID, Platforms: platforms}
}

// isPermanentScanError reports errors that a retry cannot fix.
func isPermanentScanError(err error) bool {
	return errors.Is(err, services.ErrInvalidRequest) ||
		errors.Is(err, services.ErrQueryNotFound) ||
		errors.Is(err, services.ErrNoBrands)
}

func summarizeScan(queryID string, result *services.ScanRunResult) map[string]interface{} {
	succeeded := 0
	mentions := 0
	for _, r := range result.Results {
		if r.Success {
			succeeded++
			mentions += r.MentionsCount
		}
	}
	return map[string]interface{}{
		"query_id":       queryID,
		"query":          result.Query,
		"success":        true,
		"platforms":      len(result.Results),
		"succeeded":      succeeded,
		"failed":         len(result.Results) - succeeded,
		"mentions_found": mentions,
		"results":        result.Results,
	}
}
