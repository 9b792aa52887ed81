package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AI-Template-SDK/visibility-workflows/internal/cache"
	"github.com/AI-Template-SDK/visibility-workflows/internal/models"
	"github.com/AI-Template-SDK/visibility-workflows/internal/providers/testutil"
)

func newTestCatalog(s *memoryStore, c *cache.Cache) *catalogService {
	svc := NewCatalogService(s.manager(), c).(*catalogService)
	svc.now = func() time.Time { return analyticsNow }
	return svc
}

func strPtr(s string) *string { return &s }

func TestCreateBrand(t *testing.T) {
	store := newMemoryStore(testutil.SampleBrands())
	svc := newTestCatalog(store, nil)

	brand, err := svc.CreateBrand(context.Background(), BrandInput{Name: "  Zoho CRM ", Website: strPtr("https://zoho.com")})
	require.NoError(t, err)

	assert.Equal(t, "Zoho CRM", brand.Name)
	assert.NotEmpty(t, brand.ID)
	assert.Equal(t, analyticsNow, brand.CreatedAt)

	brands, err := svc.ListBrands(context.Background())
	require.NoError(t, err)
	assert.Len(t, brands, 4)
}

func TestCreateBrandRequiresName(t *testing.T) {
	svc := newTestCatalog(newMemoryStore(nil), nil)

	_, err := svc.CreateBrand(context.Background(), BrandInput{Name: "   "})

	assert.ErrorIs(t, err, ErrBrandNameRequired)
}

func TestCreateBrandStoreFailure(t *testing.T) {
	store := newMemoryStore(nil)
	store.brandErr = errors.New("connection reset")
	svc := newTestCatalog(store, nil)

	_, err := svc.CreateBrand(context.Background(), BrandInput{Name: "Zoho"})

	assert.EqualError(t, err, "connection reset")
}

func TestUpdateBrandKeepsUnsetFields(t *testing.T) {
	store := newMemoryStore(testutil.SampleBrands())
	svc := newTestCatalog(store, nil)

	brand, err := svc.UpdateBrand(context.Background(), "b-hubspot", BrandInput{Website: strPtr("https://hubspot.com")})
	require.NoError(t, err)

	assert.Equal(t, "HubSpot", brand.Name)
	require.NotNil(t, brand.Category)
	assert.Equal(t, "CRM", *brand.Category)
	assert.Equal(t, "https://hubspot.com", *brand.Website)

	stored, err := svc.GetBrand(context.Background(), "b-hubspot")
	require.NoError(t, err)
	assert.Equal(t, brand, stored)
}

func TestBrandNotFound(t *testing.T) {
	svc := newTestCatalog(newMemoryStore(testutil.SampleBrands()), nil)
	ctx := context.Background()

	_, err := svc.GetBrand(ctx, "b-missing")
	assert.ErrorIs(t, err, ErrBrandNotFound)

	_, err = svc.UpdateBrand(ctx, "b-missing", BrandInput{Name: "x"})
	assert.ErrorIs(t, err, ErrBrandNotFound)

	assert.ErrorIs(t, svc.DeleteBrand(ctx, "b-missing"), ErrBrandNotFound)
}

func TestBrandChangesInvalidateAnalytics(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	c := cache.NewWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), time.Minute)
	ctx := context.Background()

	store := seededStore()
	analytics := newTestAnalytics(store, c)
	before, err := analytics.GetVisibility(ctx, AnalyticsFilter{Days: 30})
	require.NoError(t, err)

	seedScan(store, models.PlatformGemini, analyticsNow.Add(-time.Minute), models.ScanStatusCompleted, "b-hubspot")
	_, err = newTestCatalog(store, c).CreateBrand(ctx, BrandInput{Name: "Zoho"})
	require.NoError(t, err)

	after, err := analytics.GetVisibility(ctx, AnalyticsFilter{Days: 30})
	require.NoError(t, err)
	assert.Equal(t, before.TotalScans+1, after.TotalScans)
}

func TestCreateQuery(t *testing.T) {
	store := newMemoryStore(nil, sampleQuery())
	svc := newTestCatalog(store, nil)

	q, err := svc.CreateQuery(context.Background(), QueryInput{Text: " best crm for agencies ", Category: strPtr("crm")})
	require.NoError(t, err)
	assert.Equal(t, "best crm for agencies", q.Text)
	assert.False(t, q.IsTemplate)

	queries, err := svc.ListQueries(context.Background())
	require.NoError(t, err)
	assert.Len(t, queries, 2)

	_, err = svc.CreateQuery(context.Background(), QueryInput{})
	assert.ErrorIs(t, err, ErrQueryTextRequired)
}

func TestListTemplates(t *testing.T) {
	custom := models.Query{ID: "q-2", Text: "my own prompt"}
	svc := newTestCatalog(newMemoryStore(nil, sampleQuery(), custom), nil)

	templates, err := svc.ListTemplates(context.Background())
	require.NoError(t, err)

	require.Len(t, templates, 1)
	assert.Equal(t, "q-1", templates[0].ID)
}

func TestEmptyListsAreNotNil(t *testing.T) {
	svc := newTestCatalog(newMemoryStore(nil), nil)
	ctx := context.Background()

	brands, err := svc.ListBrands(ctx)
	require.NoError(t, err)
	assert.NotNil(t, brands)

	templates, err := svc.ListTemplates(ctx)
	require.NoError(t, err)
	assert.NotNil(t, templates)

	scans, err := svc.ListScans(ctx)
	require.NoError(t, err)
	assert.NotNil(t, scans)
}

func TestListScansNewestFirst(t *testing.T) {
	svc := newTestCatalog(seededStore(), nil)

	scans, err := svc.ListScans(context.Background())
	require.NoError(t, err)

	require.Len(t, scans, 5)
	assert.Equal(t, models.ScanStatusCompleted, scans[0].Status)
	assert.Equal(t, sampleQuery().Text, scans[0].QueryText)
}

func TestGetScanWithMentions(t *testing.T) {
	store := seededStore()
	svc := newTestCatalog(store, nil)
	first := store.scans[0]

	detail, err := svc.GetScan(context.Background(), first.ID.String())
	require.NoError(t, err)

	assert.Equal(t, first.ID, detail.Scan.ID)
	assert.Equal(t, sampleQuery().Text, detail.Scan.QueryText)
	require.Len(t, detail.Mentions, 2)
	assert.Equal(t, "HubSpot", detail.Mentions[0].BrandName)
	assert.Equal(t, "Salesforce", detail.Mentions[1].BrandName)

	empty, err := svc.GetScan(context.Background(), store.scans[2].ID.String())
	require.NoError(t, err)
	assert.NotNil(t, empty.Mentions)
	assert.Empty(t, empty.Mentions)
}

func TestGetScanNotFound(t *testing.T) {
	svc := newTestCatalog(seededStore(), nil)

	_, err := svc.GetScan(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, ErrScanNotFound)

	_, err = svc.GetScan(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, ErrScanNotFound)
}
