// services/interfaces.go
package services

import (
	"context"
	"errors"
	"time"

	"github.com/AI-Template-SDK/visibility-workflows/internal/models"
	"github.com/AI-Template-SDK/visibility-workflows/internal/store/postgres"
	"github.com/AI-Template-SDK/visibility-workflows/internal/visibility"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

var (
	// ErrInvalidRequest is returned when a scan request is missing its query or platforms.
	ErrInvalidRequest = errors.New("query_id and platforms are required")
	// ErrQueryNotFound is returned when the requested query does not exist.
	ErrQueryNotFound = errors.New("query not found")
	// ErrNoBrands is returned when there is nothing to detect.
	ErrNoBrands = errors.New("no brands to track, please add brands first")

	ErrBrandNameRequired = errors.New("brand name is required")
	ErrQueryTextRequired = errors.New("query text is required")
	ErrBrandNotFound     = errors.New("brand not found")
	ErrScanNotFound      = errors.New("scan not found")
)

type BrandRepository interface {
	List(ctx context.Context) ([]models.Brand, error)
	GetByID(ctx context.Context, id string) (*models.Brand, error)
	Upsert(ctx context.Context, brand *models.Brand) error
	Delete(ctx context.Context, id string) error
}

type QueryRepository interface {
	List(ctx context.Context) ([]models.Query, error)
	GetByID(ctx context.Context, id string) (*models.Query, error)
	ListTemplates(ctx context.Context, limit int) ([]models.Query, error)
	Upsert(ctx context.Context, query *models.Query) error
}

type ScanRepository interface {
	Create(ctx context.Context, scan *models.Scan) error
	CreateWithMentions(ctx context.Context, scan *models.Scan, mentions []*models.Mention) error
	ListRecent(ctx context.Context, limit int) ([]models.ScanWithQuery, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.ScanWithQuery, error)
	ListSince(ctx context.Context, since time.Time) ([]models.ScanSummary, error)
	CountFailuresByKind(ctx context.Context, since time.Time) (map[string]int, error)
}

type MentionRepository interface {
	ListByScan(ctx context.Context, scanID uuid.UUID) ([]models.MentionWithBrand, error)
	ListSince(ctx context.Context, since time.Time, brandID string) ([]models.MentionSummary, error)
	CountByBrand(ctx context.Context, since time.Time) (map[string]int, error)
}

// RepositoryManager manages all database repositories
type RepositoryManager struct {
	db          *postgres.Client
	BrandRepo   BrandRepository
	QueryRepo   QueryRepository
	ScanRepo    ScanRepository
	MentionRepo MentionRepository
}

// NewRepositoryManager creates a new repository manager with all repositories
func NewRepositoryManager(db *postgres.Client) *RepositoryManager {
	return &RepositoryManager{
		db:          db,
		BrandRepo:   postgres.NewBrandRepo(db),
		QueryRepo:   postgres.NewQueryRepo(db),
		ScanRepo:    postgres.NewScanRepo(db),
		MentionRepo: postgres.NewMentionRepo(db),
	}
}

// BeginTx starts a database transaction
func (rm *RepositoryManager) BeginTx(ctx context.Context) (*sqlx.Tx, error) {
	if rm == nil || rm.db == nil {
		return nil, errors.New("database not configured")
	}
	return rm.db.BeginTxx(ctx, nil)
}

// Ping checks database connectivity.
func (rm *RepositoryManager) Ping(ctx context.Context) error {
	if rm == nil || rm.db == nil {
		return errors.New("database not configured")
	}
	return rm.db.Ping(ctx)
}

// ScanRequest asks for one query to be run on one or more platforms.
type ScanRequest struct {
	QueryID      string            `json:"query_id"`
	Platforms    []models.Platform `json:"platforms"`
	OpenAIAPIKey string            `json:"openai_api_key,omitempty"`
}

// PlatformResult is the outcome of scanning one platform. Failures carry the
// classified error kind and a remediation hint.
type PlatformResult struct {
	Platform      models.Platform `json:"platform"`
	ScanID        string          `json:"scan_id,omitempty"`
	MentionsCount int             `json:"mentions_count"`
	Success       bool            `json:"success"`
	Error         string          `json:"error,omitempty"`
	ErrorKind     string          `json:"error_kind,omitempty"`
	StatusCode    *int            `json:"status_code,omitempty"`
	Retryable     *bool           `json:"retryable,omitempty"`
	Hint          string          `json:"hint,omitempty"`
}

type ScanRunResult struct {
	Success bool             `json:"success"`
	Query   string           `json:"query"`
	Results []PlatformResult `json:"results"`
}

type DailyQueryResult struct {
	QueryID       string `json:"query_id"`
	Success       bool   `json:"success"`
	MentionsCount int    `json:"mentions_count,omitempty"`
	Error         string `json:"error,omitempty"`
	ErrorKind     string `json:"error_kind,omitempty"`
}

type DailyScanResult struct {
	Success   bool               `json:"success"`
	Message   string             `json:"message,omitempty"`
	Platform  models.Platform    `json:"platform,omitempty"`
	Total     int                `json:"total"`
	Succeeded int                `json:"succeeded"`
	Failed    int                `json:"failed"`
	Results   []DailyQueryResult `json:"results"`
}

// AnalyticsFilter narrows visibility metrics to a brand and a trailing window.
type AnalyticsFilter struct {
	BrandID string
	Days    int
}

type CheckStatus string

const (
	CheckOK      CheckStatus = "ok"
	CheckWarning CheckStatus = "warning"
	CheckError   CheckStatus = "error"
	CheckSkipped CheckStatus = "skipped"
)

type DiagnosticDetails struct {
	Type       string `json:"type,omitempty"`
	StatusCode *int   `json:"statusCode,omitempty"`
	Retryable  *bool  `json:"retryable,omitempty"`
	Hint       string `json:"hint,omitempty"`
}

type DiagnosticCheck struct {
	Name    string             `json:"name"`
	Status  CheckStatus        `json:"status"`
	Message string             `json:"message"`
	Details *DiagnosticDetails `json:"details,omitempty"`
}

type DiagnosticGuidance struct {
	NextStep string `json:"next_step"`
	Note     string `json:"note"`
}

// DiagnosticsReport never contains secret values.
type DiagnosticsReport struct {
	Success   bool               `json:"success"`
	Timestamp time.Time          `json:"timestamp"`
	Checks    []DiagnosticCheck  `json:"checks"`
	Guidance  DiagnosticGuidance `json:"guidance"`
}

type ScanService interface {
	RunScan(ctx context.Context, req ScanRequest) (*ScanRunResult, error)
	RunDailyScan(ctx context.Context) (*DailyScanResult, error)
}

type AnalyticsService interface {
	GetVisibility(ctx context.Context, filter AnalyticsFilter) (*models.VisibilityMetrics, error)
	GetTrends(ctx context.Context, filter AnalyticsFilter) ([]models.DailyMentions, error)
	GetCompetitors(ctx context.Context) ([]visibility.CompetitorMentions, error)
	GetFailureSummary(ctx context.Context, days int) (map[string]int, error)
}

type DiagnosticsService interface {
	Run(ctx context.Context, testProviders bool) *DiagnosticsReport
}

// BrandInput creates or edits a brand. On update a blank Name and nil
// Category or Website keep the stored value.
type BrandInput struct {
	Name     string  `json:"name"`
	Category *string `json:"category"`
	Website  *string `json:"website"`
}

type QueryInput struct {
	Text     string  `json:"text"`
	Category *string `json:"category"`
}

// ScanDetail is one scan with every mention detected in it.
type ScanDetail struct {
	Scan     *models.ScanWithQuery     `json:"scan"`
	Mentions []models.MentionWithBrand `json:"mentions"`
}

type CatalogService interface {
	ListBrands(ctx context.Context) ([]models.Brand, error)
	GetBrand(ctx context.Context, id string) (*models.Brand, error)
	CreateBrand(ctx context.Context, in BrandInput) (*models.Brand, error)
	UpdateBrand(ctx context.Context, id string, in BrandInput) (*models.Brand, error)
	DeleteBrand(ctx context.Context, id string) error
	ListQueries(ctx context.Context) ([]models.Query, error)
	CreateQuery(ctx context.Context, in QueryInput) (*models.Query, error)
	ListTemplates(ctx context.Context) ([]models.Query, error)
	ListScans(ctx context.Context) ([]models.ScanWithQuery, error)
	GetScan(ctx context.Context, id string) (*ScanDetail, error)
}

type CostService interface {
	CalculateCost(provider string, model string, inputTokens int, outputTokens int) float64
}
