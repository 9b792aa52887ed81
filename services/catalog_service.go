// services/catalog_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/AI-Template-SDK/visibility-workflows/internal/cache"
	"github.com/AI-Template-SDK/visibility-workflows/internal/models"
	"github.com/AI-Template-SDK/visibility-workflows/internal/store/postgres"
)

const (
	recentScansLimit = 50
	templatesLimit   = 500
)

type catalogService struct {
	repos          *RepositoryManager
	analyticsCache *cache.Cache
	now            func() time.Time
}

func NewCatalogService(repos *RepositoryManager, analyticsCache *cache.Cache) CatalogService {
	return &catalogService{repos: repos, analyticsCache: analyticsCache, now: time.Now}
}

func (s *catalogService) ListBrands(ctx context.Context) ([]models.Brand, error) {
	brands, err := s.repos.BrandRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	return nonNil(brands), nil
}

func (s *catalogService) GetBrand(ctx context.Context, id string) (*models.Brand, error) {
	b, err := s.repos.BrandRepo.GetByID(ctx, id)
	if errors.Is(err, postgres.ErrNotFound) {
		return nil, ErrBrandNotFound
	}
	return b, err
}

func (s *catalogService) CreateBrand(ctx context.Context, in BrandInput) (*models.Brand, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, ErrBrandNameRequired
	}
	b := &models.Brand{
		ID:        uuid.NewString(),
		Name:      name,
		Category:  in.Category,
		Website:   in.Website,
		CreatedAt: s.now().UTC(),
	}
	if err := s.repos.BrandRepo.Upsert(ctx, b); err != nil {
		return nil, err
	}
	slog.Info("[CreateBrand] Brand created", "brand_id", b.ID, "name", b.Name)
	s.invalidateAnalytics(ctx)
	return b, nil
}

func (s *catalogService) UpdateBrand(ctx context.Context, id string, in BrandInput) (*models.Brand, error) {
	b, err := s.GetBrand(ctx, id)
	if err != nil {
		return nil, err
	}
	if name := strings.TrimSpace(in.Name); name != "" {
		b.Name = name
	}
	if in.Category != nil {
		b.Category = in.Category
	}
	if in.Website != nil {
		b.Website = in.Website
	}
	if err := s.repos.BrandRepo.Upsert(ctx, b); err != nil {
		return nil, err
	}
	s.invalidateAnalytics(ctx)
	return b, nil
}

func (s *catalogService) DeleteBrand(ctx context.Context, id string) error {
	err := s.repos.BrandRepo.Delete(ctx, id)
	if errors.Is(err, postgres.ErrNotFound) {
		return ErrBrandNotFound
	}
	if err != nil {
		return err
	}
	slog.Info("[DeleteBrand] Brand deleted", "brand_id", id)
	s.invalidateAnalytics(ctx)
	return nil
}

func (s *catalogService) ListQueries(ctx context.Context) ([]models.Query, error) {
	queries, err := s.repos.QueryRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	return nonNil(queries), nil
}

// CreateQuery stores a custom query. Templates are only seeded in the database.
func (s *catalogService) CreateQuery(ctx context.Context, in QueryInput) (*models.Query, error) {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, ErrQueryTextRequired
	}
	q := &models.Query{
		ID:        uuid.NewString(),
		Text:      text,
		Category:  in.Category,
		CreatedAt: s.now().UTC(),
	}
	if err := s.repos.QueryRepo.Upsert(ctx, q); err != nil {
		return nil, err
	}
	return q, nil
}

func (s *catalogService) ListTemplates(ctx context.Context) ([]models.Query, error) {
	templates, err := s.repos.QueryRepo.ListTemplates(ctx, templatesLimit)
	if err != nil {
		return nil, err
	}
	return nonNil(templates), nil
}

func (s *catalogService) ListScans(ctx context.Context) ([]models.ScanWithQuery, error) {
	scans, err := s.repos.ScanRepo.ListRecent(ctx, recentScansLimit)
	if err != nil {
		return nil, err
	}
	return nonNil(scans), nil
}

func (s *catalogService) GetScan(ctx context.Context, id string) (*ScanDetail, error) {
	scanID, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrScanNotFound
	}
	scan, err := s.repos.ScanRepo.GetByID(ctx, scanID)
	if errors.Is(err, postgres.ErrNotFound) {
		return nil, ErrScanNotFound
	}
	if err != nil {
		return nil, err
	}
	mentions, err := s.repos.MentionRepo.ListByScan(ctx, scanID)
	if err != nil {
		return nil, fmt.Errorf("failed to load mentions: %w", err)
	}
	return &ScanDetail{Scan: scan, Mentions: nonNil(mentions)}, nil
}

// invalidateAnalytics drops cached metrics after the roster changes.
func (s *catalogService) invalidateAnalytics(ctx context.Context) {
	if err := s.analyticsCache.Invalidate(ctx, analyticsKeyPrefix); err != nil {
		slog.Warn("Failed to invalidate analytics cache", "error", err)
	}
}

// nonNil keeps empty lists encoding as [] rather than null.
func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
