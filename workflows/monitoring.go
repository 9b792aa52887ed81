// workflows/monitoring.go
package workflows

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/inngest/inngestgo"
	"github.com/inngest/inngestgo/step"
)

// WeeklyFailureAnalyzer summarises a week of failed scans by provider error kind.
func (p *ScheduledProcessor) WeeklyFailureAnalyzer() inngestgo.ServableFunction {
	fn, err := inngestgo.CreateFunction(
		p.client,
		inngestgo.FunctionOpts{
			ID:   "weekly-failure-analyzer",
			Name: "Analyze Weekly Scan Failures",
		},
		inngestgo.CronTrigger("0 0 * * 0"), // Every Sunday at midnight
		func(ctx context.Context, input inngestgo.Input[any]) (any, error) {
			distribution, err := step.Run(ctx, "get-failure-distribution", func(ctx context.Context) (map[string]int, error) {
				return p.analyticsService.GetFailureSummary(ctx, 7)
			})
			if err != nil {
				return nil, err
			}

			var total int
			for _, count := range distribution {
				total += count
			}

			return map[string]interface{}{
				"total_failures": total,
				"distribution":   distribution,
				"top_kinds":      topFailureKinds(distribution),
				"recommendation": generateFailureRecommendation(distribution),
			}, nil
		},
	)

	if err != nil {
		slog.Error("Failed to create weekly failure analyzer function", "error", err)
	}

	return fn
}

// topFailureKinds lists kinds by count, highest first.
func topFailureKinds(distribution map[string]int) []string {
	kinds := make([]string, 0, len(distribution))
	for kind := range distribution {
		kinds = append(kinds, kind)
	}
	sort.Slice(kinds, func(i, j int) bool {
		if distribution[kinds[i]] != distribution[kinds[j]] {
			return distribution[kinds[i]] > distribution[kinds[j]]
		}
		return kinds[i] < kinds[j]
	})
	out := make([]string, 0, len(kinds))
	for _, k := range kinds {
		out = append(out, fmt.Sprintf("%s: %d", k, distribution[k]))
	}
	return out
}

func generateFailureRecommendation(distribution map[string]int) string {
	var total, permanent int
	for kind, count := range distribution {
		total += count
		switch kind {
		case "auth", "quota", "billing", "invalid_request":
			permanent += count
		}
	}

	if total == 0 {
		return "No failed scans this week"
	}
	if float64(permanent)/float64(total) >= 0.5 {
		return "Most failures need account or configuration changes; check API keys, quotas and billing"
	}
	return "Failures are mostly transient; consider lowering PROVIDER_RPS or raising retry attempts"
}
