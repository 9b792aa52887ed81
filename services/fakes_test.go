package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/AI-Template-SDK/visibility-workflows/internal/models"
	"github.com/AI-Template-SDK/visibility-workflows/internal/store/postgres"
)

// memoryStore backs every repository interface with in-memory slices.
type memoryStore struct {
	mu       sync.Mutex
	brands   []models.Brand
	queries  map[string]models.Query
	scans    []*models.Scan
	mentions []*models.Mention

	brandErr   error
	scanErr    error
	mentionErr error
}

func newMemoryStore(brands []models.Brand, queries ...models.Query) *memoryStore {
	s := &memoryStore{brands: brands, queries: make(map[string]models.Query)}
	for _, q := range queries {
		s.queries[q.ID] = q
	}
	return s
}

func (s *memoryStore) manager() *RepositoryManager {
	return &RepositoryManager{
		BrandRepo:   memoryBrands{s},
		QueryRepo:   memoryQueries{s},
		ScanRepo:    memoryScans{s},
		MentionRepo: memoryMentions{s},
	}
}

func (s *memoryStore) savedScans() []*models.Scan {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*models.Scan(nil), s.scans...)
}

func (s *memoryStore) savedMentions() []*models.Mention {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*models.Mention(nil), s.mentions...)
}

type memoryBrands struct{ s *memoryStore }

func (r memoryBrands) List(context.Context) ([]models.Brand, error) {
	if r.s.brandErr != nil {
		return nil, r.s.brandErr
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return append([]models.Brand(nil), r.s.brands...), nil
}

func (r memoryBrands) GetByID(_ context.Context, id string) (*models.Brand, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, b := range r.s.brands {
		if b.ID == id {
			return &b, nil
		}
	}
	return nil, postgres.ErrNotFound
}

func (r memoryBrands) Upsert(_ context.Context, brand *models.Brand) error {
	if r.s.brandErr != nil {
		return r.s.brandErr
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i, b := range r.s.brands {
		if b.ID == brand.ID {
			r.s.brands[i] = *brand
			return nil
		}
	}
	r.s.brands = append(r.s.brands, *brand)
	return nil
}

func (r memoryBrands) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i, b := range r.s.brands {
		if b.ID == id {
			r.s.brands = append(r.s.brands[:i], r.s.brands[i+1:]...)
			return nil
		}
	}
	return postgres.ErrNotFound
}

type memoryQueries struct{ s *memoryStore }

func (r memoryQueries) List(context.Context) ([]models.Query, error) {
	out := make([]models.Query, 0, len(r.s.queries))
	for _, q := range r.s.queries {
		out = append(out, q)
	}
	sortQueries(out)
	return out, nil
}

func (r memoryQueries) Upsert(_ context.Context, q *models.Query) error {
	r.s.queries[q.ID] = *q
	return nil
}

func sortQueries(out []models.Query) {
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].ID < out[j-1].ID; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
}

func (r memoryQueries) GetByID(_ context.Context, id string) (*models.Query, error) {
	q, ok := r.s.queries[id]
	if !ok {
		return nil, postgres.ErrNotFound
	}
	return &q, nil
}

func (r memoryQueries) ListTemplates(_ context.Context, limit int) ([]models.Query, error) {
	var out []models.Query
	for _, q := range r.s.queries {
		if q.IsTemplate {
			out = append(out, q)
		}
	}
	// deterministic order for assertions
	sortQueries(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type memoryScans struct{ s *memoryStore }

func (r memoryScans) Create(_ context.Context, scan *models.Scan) error {
	if r.s.scanErr != nil {
		return r.s.scanErr
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.scans = append(r.s.scans, scan)
	return nil
}

// CreateWithMentions stores nothing when either insert fails.
func (r memoryScans) CreateWithMentions(_ context.Context, scan *models.Scan, mentions []*models.Mention) error {
	if r.s.scanErr != nil {
		return r.s.scanErr
	}
	if len(mentions) > 0 && r.s.mentionErr != nil {
		return r.s.mentionErr
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.scans = append(r.s.scans, scan)
	r.s.mentions = append(r.s.mentions, mentions...)
	return nil
}

func (r memoryScans) ListRecent(_ context.Context, limit int) ([]models.ScanWithQuery, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.ScanWithQuery
	for i := len(r.s.scans) - 1; i >= 0 && len(out) < limit; i-- {
		sc := r.s.scans[i]
		out = append(out, models.ScanWithQuery{Scan: *sc, QueryText: r.s.queries[sc.QueryID].Text})
	}
	return out, nil
}

func (r memoryScans) GetByID(_ context.Context, id uuid.UUID) (*models.ScanWithQuery, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sc := r.s.scanByID(id.String())
	if sc == nil {
		return nil, postgres.ErrNotFound
	}
	return &models.ScanWithQuery{Scan: *sc, QueryText: r.s.queries[sc.QueryID].Text}, nil
}

func (r memoryScans) ListSince(_ context.Context, since time.Time) ([]models.ScanSummary, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.ScanSummary
	for _, sc := range r.s.scans {
		if sc.Status == models.ScanStatusCompleted && !sc.ExecutedAt.Before(since) {
			out = append(out, models.ScanSummary{ID: sc.ID, Platform: sc.Platform, ExecutedAt: sc.ExecutedAt})
		}
	}
	return out, nil
}

func (r memoryScans) CountFailuresByKind(_ context.Context, since time.Time) (map[string]int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := map[string]int{}
	for _, sc := range r.s.scans {
		if sc.Status != models.ScanStatusFailed || sc.ExecutedAt.Before(since) {
			continue
		}
		kind := "unknown"
		if sc.ErrorKind != nil {
			kind = *sc.ErrorKind
		}
		out[kind]++
	}
	return out, nil
}

type memoryMentions struct{ s *memoryStore }

func (r memoryMentions) ListByScan(_ context.Context, scanID uuid.UUID) ([]models.MentionWithBrand, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.MentionWithBrand
	for _, m := range r.s.mentions {
		if m.ScanID != scanID {
			continue
		}
		name := ""
		for _, b := range r.s.brands {
			if b.ID == m.BrandID {
				name = b.Name
			}
		}
		out = append(out, models.MentionWithBrand{Mention: *m, BrandName: name})
	}
	return out, nil
}

func (r memoryMentions) ListSince(_ context.Context, since time.Time, brandID string) ([]models.MentionSummary, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.MentionSummary
	for _, m := range r.s.mentions {
		scan := r.s.scanByID(m.ScanID.String())
		if scan == nil || scan.ExecutedAt.Before(since) {
			continue
		}
		if brandID != "" && m.BrandID != brandID {
			continue
		}
		out = append(out, models.MentionSummary{BrandID: m.BrandID, Platform: scan.Platform, ExecutedAt: scan.ExecutedAt})
	}
	return out, nil
}

func (r memoryMentions) CountByBrand(_ context.Context, since time.Time) (map[string]int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := map[string]int{}
	for _, m := range r.s.mentions {
		if scan := r.s.scanByID(m.ScanID.String()); scan != nil && !scan.ExecutedAt.Before(since) {
			out[m.BrandID]++
		}
	}
	return out, nil
}

// scanByID expects s.mu to be held.
func (s *memoryStore) scanByID(id string) *models.Scan {
	for _, sc := range s.scans {
		if sc.ID.String() == id {
			return sc
		}
	}
	return nil
}

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

var errDatabaseDown = errors.New("dial tcp 10.0.0.5:5432: connection refused")
