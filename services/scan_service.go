// services/scan_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/AI-Template-SDK/visibility-workflows/internal/cache"
	"github.com/AI-Template-SDK/visibility-workflows/internal/config"
	"github.com/AI-Template-SDK/visibility-workflows/internal/mentions"
	"github.com/AI-Template-SDK/visibility-workflows/internal/metrics"
	"github.com/AI-Template-SDK/visibility-workflows/internal/models"
	"github.com/AI-Template-SDK/visibility-workflows/internal/providers"
	"github.com/AI-Template-SDK/visibility-workflows/internal/providers/common"
	"github.com/AI-Template-SDK/visibility-workflows/internal/search"
	"github.com/AI-Template-SDK/visibility-workflows/internal/store/postgres"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const defaultDailyScanQueries = 10

// ProviderFactory builds the provider serving a platform.
type ProviderFactory func(ctx context.Context, platform models.Platform, overrides providers.Overrides) (providers.AIProvider, error)

type scanService struct {
	cfg            *config.Config
	repos          *RepositoryManager
	index          search.Indexer
	analyticsCache *cache.Cache
	newProvider    ProviderFactory
	policy         providers.RetryPolicy
	now            func() time.Time

	mu       sync.Mutex
	limiters map[providers.ProviderID]*rate.Limiter
}

func NewScanService(cfg *config.Config, repos *RepositoryManager, index search.Indexer, analyticsCache *cache.Cache, costService CostService) ScanService {
	factory := func(ctx context.Context, platform models.Platform, ov providers.Overrides) (providers.AIProvider, error) {
		return providers.NewProvider(ctx, platform, &cfg.Providers, costService, ov)
	}
	policy := providers.PolicyFromConfig(cfg.Providers.RetryMaxAttempts, cfg.Providers.RetryBaseDelay, cfg.Providers.RetryMaxDelay)
	return newScanService(cfg, repos, index, analyticsCache, factory, policy)
}

func newScanService(cfg *config.Config, repos *RepositoryManager, index search.Indexer, analyticsCache *cache.Cache, factory ProviderFactory, policy providers.RetryPolicy) *scanService {
	if index == nil {
		index = search.Nop{}
	}
	return &scanService{
		cfg:            cfg,
		repos:          repos,
		index:          index,
		analyticsCache: analyticsCache,
		newProvider:    factory,
		policy:         policy,
		now:            time.Now,
		limiters:       make(map[providers.ProviderID]*rate.Limiter),
	}
}

// RunScan sends one query to every requested platform concurrently. A failing
// platform is reported in its result and never fails the others.
func (s *scanService) RunScan(ctx context.Context, req ScanRequest) (*ScanRunResult, error) {
	req.QueryID = strings.TrimSpace(req.QueryID)
	if req.QueryID == "" || len(req.Platforms) == 0 {
		return nil, ErrInvalidRequest
	}

	query, err := s.repos.QueryRepo.GetByID(ctx, req.QueryID)
	if errors.Is(err, postgres.ErrNotFound) {
		return nil, ErrQueryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load query: %w", err)
	}

	brands, err := s.repos.BrandRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load brands: %w", err)
	}
	if len(brands) == 0 {
		return nil, ErrNoBrands
	}

	slog.Info("[RunScan] Starting scan", "query_id", query.ID, "platforms", req.Platforms, "brands", len(brands))

	detector := mentions.NewDetector(brands)
	overrides := providers.Overrides{OpenAIAPIKey: req.OpenAIAPIKey}

	results := make([]PlatformResult, len(req.Platforms))
	var wg sync.WaitGroup
	for i, platform := range req.Platforms {
		wg.Add(1)
		go func(i int, platform models.Platform) {
			defer wg.Done()
			results[i] = s.scanPlatform(ctx, query, platform, detector, overrides)
		}(i, models.Platform(strings.ToLower(string(platform))))
	}
	wg.Wait()

	if err := s.analyticsCache.Invalidate(ctx, analyticsKeyPrefix); err != nil {
		slog.Warn("[RunScan] Failed to invalidate analytics cache", "error", err)
	}

	succeeded := 0
	for _, r := range results {
		if r.Success {
			succeeded++
		}
	}
	slog.Info("[RunScan] Completed scan", "query_id", query.ID, "succeeded", succeeded, "failed", len(results)-succeeded)

	return &ScanRunResult{Success: true, Query: query.Text, Results: results}, nil
}

// RunDailyScan runs the template queries against the daily platform one at a time.
func (s *scanService) RunDailyScan(ctx context.Context) (*DailyScanResult, error) {
	brands, err := s.repos.BrandRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load brands: %w", err)
	}
	if len(brands) == 0 {
		return &DailyScanResult{Success: true, Message: "No brands configured, skipping daily scan.", Results: []DailyQueryResult{}}, nil
	}

	limit := s.cfg.Providers.DailyScanMaxQueries
	if limit <= 0 {
		limit = defaultDailyScanQueries
	}
	queries, err := s.repos.QueryRepo.ListTemplates(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load template queries: %w", err)
	}
	if len(queries) == 0 {
		return &DailyScanResult{Success: true, Message: "No template queries found, skipping daily scan.", Results: []DailyQueryResult{}}, nil
	}

	platform := models.Platform(strings.ToLower(s.cfg.Providers.DailyScanPlatform))
	if platform == "" {
		platform = models.PlatformGemini
	}

	slog.Info("[RunDailyScan] Starting daily scan", "platform", platform, "queries", len(queries))

	detector := mentions.NewDetector(brands)
	out := &DailyScanResult{Platform: platform, Results: make([]DailyQueryResult, 0, len(queries))}
	for i := range queries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		r := s.scanPlatform(ctx, &queries[i], platform, detector, providers.Overrides{})
		out.Results = append(out.Results, DailyQueryResult{
			QueryID:       queries[i].ID,
			Success:       r.Success,
			MentionsCount: r.MentionsCount,
			Error:         r.Error,
			ErrorKind:     r.ErrorKind,
		})
		if r.Success {
			out.Succeeded++
		}
	}
	out.Total = len(out.Results)
	out.Failed = out.Total - out.Succeeded
	out.Success = out.Succeeded > 0

	if err := s.analyticsCache.Invalidate(ctx, analyticsKeyPrefix); err != nil {
		slog.Warn("[RunDailyScan] Failed to invalidate analytics cache", "error", err)
	}

	slog.Info("[RunDailyScan] Completed daily scan", "succeeded", out.Succeeded, "failed", out.Failed)
	return out, nil
}

// scanPlatform queries one platform, stores the scan and its mentions and indexes
// the response.
func (s *scanService) scanPlatform(ctx context.Context, query *models.Query, platform models.Platform, detector *mentions.Detector, overrides providers.Overrides) PlatformResult {
	result := PlatformResult{Platform: platform}

	provider, err := s.newProvider(ctx, platform, overrides)
	if err != nil {
		slog.Error("[scanPlatform] Failed to create provider", "platform", platform, "error", err)
		return failedResult(result, err)
	}

	limiter := s.limiter(provider.GetProviderName())
	resp, err := providers.WithRetry(ctx, provider.GetProviderName(), s.policy, func(ctx context.Context) (*common.AIResponse, error) {
		// every attempt, retries included, is paced
		if err := limiter.Wait(ctx); err != nil {
			return nil, err
		}
		return provider.Query(ctx, query.Text)
	})
	if err != nil {
		slog.Error("[scanPlatform] Provider query failed", "platform", platform, "query_id", query.ID, "error", err)
		s.recordFailedScan(ctx, query, platform, err)
		metrics.ScansTotal.WithLabelValues(string(platform), string(models.ScanStatusFailed)).Inc()
		return failedResult(result, err)
	}

	model := resp.Model
	scan := &models.Scan{
		ID:           uuid.New(),
		QueryID:      query.ID,
		Platform:     platform,
		RawResponse:  resp.Response,
		Status:       models.ScanStatusCompleted,
		Model:        &model,
		InputTokens:  resp.InputTokens,
		OutputTokens: resp.OutputTokens,
		Cost:         resp.Cost,
		ExecutedAt:   s.now().UTC(),
	}

	candidates := detector.Detect(resp.Response)
	rows := make([]*models.Mention, 0, len(candidates))
	for _, c := range candidates {
		rows = append(rows, models.NewMention(scan.ID, c, scan.ExecutedAt))
	}
	if err := s.repos.ScanRepo.CreateWithMentions(ctx, scan, rows); err != nil {
		slog.Error("[scanPlatform] Failed to save scan", "platform", platform, "query_id", query.ID, "error", err)
		return failedResult(result, err)
	}
	result.ScanID = scan.ID.String()

	if err := s.index.IndexScan(ctx, scan, query.Text, brandIDs(candidates)); err != nil {
		slog.Warn("[scanPlatform] Failed to index scan response", "scan_id", scan.ID, "error", err)
	}

	metrics.ScansTotal.WithLabelValues(string(platform), string(models.ScanStatusCompleted)).Inc()
	metrics.MentionsDetected.WithLabelValues(string(platform)).Add(float64(len(candidates)))

	result.Success = true
	result.MentionsCount = len(candidates)
	return result
}

// recordFailedScan stores a failed scan so failures can be aggregated by kind.
func (s *scanService) recordFailedScan(ctx context.Context, query *models.Query, platform models.Platform, err error) {
	scan := &models.Scan{
		ID:         uuid.New(),
		QueryID:    query.ID,
		Platform:   platform,
		Status:     models.ScanStatusFailed,
		ExecutedAt: s.now().UTC(),
	}
	var perr *providers.ProviderError
	if errors.As(err, &perr) {
		kind := string(perr.Kind)
		retryable := perr.Retryable
		scan.ErrorKind = &kind
		scan.StatusCode = perr.StatusCode
		scan.Retryable = &retryable
	}
	if err := s.repos.ScanRepo.Create(ctx, scan); err != nil {
		slog.Warn("[scanPlatform] Failed to save failed scan", "platform", platform, "error", err)
	}
}

func (s *scanService) limiter(id providers.ProviderID) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	if l, ok := s.limiters[id]; ok {
		return l
	}
	limit := rate.Inf
	burst := 1
	if rps := s.cfg.Providers.RequestsPerSecond; rps > 0 {
		limit = rate.Limit(rps)
		burst = max(1, int(rps))
	}
	l := rate.NewLimiter(limit, burst)
	s.limiters[id] = l
	return l
}

func failedResult(result PlatformResult, err error) PlatformResult {
	result.Success = false
	result.Error = err.Error()

	var perr *providers.ProviderError
	if errors.As(err, &perr) {
		retryable := perr.Retryable
		result.Error = perr.Message
		result.ErrorKind = string(perr.Kind)
		result.StatusCode = perr.StatusCode
		result.Retryable = &retryable
		result.Hint = providers.FixHint(perr)
	}
	return result
}

func brandIDs(candidates []models.MentionCandidate) []string {
	seen := make(map[string]bool, len(candidates))
	ids := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if !seen[c.BrandID] {
			seen[c.BrandID] = true
			ids = append(ids, c.BrandID)
		}
	}
	return ids
}
