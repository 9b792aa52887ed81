// workflows/scheduled_processor.go
package workflows

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/inngest/inngestgo"
	"github.com/inngest/inngestgo/step"

	"github.com/AI-Template-SDK/visibility-workflows/services"
)

type ScheduledProcessor struct {
	scanService      services.ScanService
	analyticsService services.AnalyticsService
	alerter          *SlackAlerter
	client           inngestgo.Client
}

func NewScheduledProcessor(scanService services.ScanService, analyticsService services.AnalyticsService, alerter *SlackAlerter) *ScheduledProcessor {
	return &ScheduledProcessor{
		scanService:      scanService,
		analyticsService: analyticsService,
		alerter:          alerter,
	}
}

func (p *ScheduledProcessor) SetClient(client inngestgo.Client) {
	p.client = client
}

func (p *ScheduledProcessor) DailyScanProcessor() inngestgo.ServableFunction {
	fn, err := inngestgo.CreateFunction(
		p.client,
		inngestgo.FunctionOpts{
			ID:   "daily-visibility-scan",
			Name: "Daily Visibility Scan - Template Queries",
		},
		inngestgo.CronTrigger("0 6 * * *"), // Every day at 6 AM UTC
		func(ctx context.Context, input inngestgo.Input[any]) (any, error) {
			now := time.Now()

			result, err := step.Run(ctx, "run-daily-scan", func(ctx context.Context) (*services.DailyScanResult, error) {
				return p.scanService.RunDailyScan(ctx)
			})
			if err != nil {
				if reportErr := p.alerter.ReportError(ctx, fmt.Errorf("daily scan failed: %w", err)); reportErr != nil && !errors.Is(reportErr, ErrSlackNotConfigured) {
					slog.Warn("[DailyScanProcessor] Failed to report error", "error", reportErr)
				}
				return nil, fmt.Errorf("step 'run-daily-scan' failed: %w", err)
			}

			if result.Total > 0 && result.Succeeded == 0 {
				_, _ = step.Run(ctx, "report-daily-failure", func(ctx context.Context) (bool, error) {
					reportErr := p.alerter.ReportError(ctx, fmt.Errorf(
						"daily scan on %s failed for all %d template queries (first error kind: %s)",
						result.Platform, result.Total, firstErrorKind(result.Results)))
					if reportErr != nil {
						slog.Warn("[DailyScanProcessor] Failed to report daily failure", "error", reportErr)
						return false, nil
					}
					return true, nil
				})
			}

			return map[string]interface{}{
				"execution_date": now.Format("2006-01-02"),
				"platform":       result.Platform,
				"success":        result.Success,
				"message":        result.Message,
				"total":          result.Total,
				"succeeded":      result.Succeeded,
				"failed":         result.Failed,
			}, nil
		},
	)

	if err != nil {
		slog.Error("Failed to create daily scan function", "error", err)
	}

	return fn
}

func firstErrorKind(results []services.DailyQueryResult) string {
	for _, r := range results {
		if !r.Success && r.ErrorKind != "" {
			return r.ErrorKind
		}
	}
	return "unknown"
}
