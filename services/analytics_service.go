// services/analytics_service.go
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/AI-Template-SDK/visibility-workflows/internal/cache"
	"github.com/AI-Template-SDK/visibility-workflows/internal/models"
	"github.com/AI-Template-SDK/visibility-workflows/internal/visibility"
)

const (
	defaultAnalyticsDays = 30
	analyticsKeyPrefix   = "analytics:"
)

type analyticsService struct {
	repos *RepositoryManager
	cache *cache.Cache
	now   func() time.Time
}

func NewAnalyticsService(repos *RepositoryManager, analyticsCache *cache.Cache) AnalyticsService {
	return &analyticsService{
		repos: repos,
		cache: analyticsCache,
		now:   time.Now,
	}
}

// GetVisibility recomputes visibility metrics over the trailing window. Results are
// served from the cache while fresh.
func (s *analyticsService) GetVisibility(ctx context.Context, filter AnalyticsFilter) (*models.VisibilityMetrics, error) {
	if filter.Days <= 0 {
		filter.Days = defaultAnalyticsDays
	}

	key := visibilityCacheKey(filter)
	var cached models.VisibilityMetrics
	if hit, err := s.cache.GetJSON(ctx, key, &cached); err != nil {
		slog.Warn("[GetVisibility] Cache read failed", "key", key, "error", err)
	} else if hit {
		return &cached, nil
	}

	since := s.now().AddDate(0, 0, -filter.Days)

	scans, err := s.repos.ScanRepo.ListSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("failed to load scans: %w", err)
	}
	mentions, err := s.repos.MentionRepo.ListSince(ctx, since, filter.BrandID)
	if err != nil {
		return nil, fmt.Errorf("failed to load mentions: %w", err)
	}

	metrics := visibility.Metrics(scans, mentions)

	if err := s.cache.SetJSON(ctx, key, metrics); err != nil {
		slog.Warn("[GetVisibility] Cache write failed", "key", key, "error", err)
	}
	return &metrics, nil
}

func (s *analyticsService) GetTrends(ctx context.Context, filter AnalyticsFilter) ([]models.DailyMentions, error) {
	m, err := s.GetVisibility(ctx, filter)
	if err != nil {
		return nil, err
	}
	return m.TrendData, nil
}

// GetCompetitors ranks every brand by its all-time mention count.
func (s *analyticsService) GetCompetitors(ctx context.Context) ([]visibility.CompetitorMentions, error) {
	brands, err := s.repos.BrandRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load brands: %w", err)
	}
	counts, err := s.repos.MentionRepo.CountByBrand(ctx, time.Time{})
	if err != nil {
		return nil, fmt.Errorf("failed to count mentions: %w", err)
	}
	return visibility.RankCompetitors(brands, counts), nil
}

// GetFailureSummary counts failed scans by error kind over the trailing window.
func (s *analyticsService) GetFailureSummary(ctx context.Context, days int) (map[string]int, error) {
	if days <= 0 {
		days = defaultAnalyticsDays
	}
	counts, err := s.repos.ScanRepo.CountFailuresByKind(ctx, s.now().AddDate(0, 0, -days))
	if err != nil {
		return nil, fmt.Errorf("failed to count failed scans: %w", err)
	}
	return counts, nil
}

func visibilityCacheKey(filter AnalyticsFilter) string {
	brand := filter.BrandID
	if brand == "" {
		brand = "all"
	}
	return fmt.Sprintf("%svisibility:%s:%d", analyticsKeyPrefix, brand, filter.Days)
}
