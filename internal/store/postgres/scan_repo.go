package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/AI-Template-SDK/visibility-workflows/internal/models"
)

type ScanRepo struct {
	db *Client
}

func NewScanRepo(db *Client) *ScanRepo {
	return &ScanRepo{db: db}
}

const insertScanSQL = `
	INSERT INTO scans (
		id, query_id, ai_platform, raw_response, status, error_kind, status_code,
		retryable, model, input_tokens, output_tokens, cost, executed_at
	) VALUES (
		:id, :query_id, :ai_platform, :raw_response, :status, :error_kind, :status_code,
		:retryable, :model, :input_tokens, :output_tokens, :cost, :executed_at
	)`

const scanWithQueryColumns = `
	s.id, s.query_id, s.ai_platform, s.raw_response, s.status, s.error_kind, s.status_code,
	s.retryable, s.model, s.input_tokens, s.output_tokens, s.cost, s.executed_at,
	COALESCE(q.text, '') AS query_text`

// Create stores a completed or failed scan.
func (r *ScanRepo) Create(ctx context.Context, s *models.Scan) error {
	if _, err := r.db.NamedExecContext(ctx, insertScanSQL, s); err != nil {
		return fmt.Errorf("failed to create scan: %w", err)
	}
	return nil
}

// CreateWithMentions stores a scan and its mentions in one transaction. Either
// all rows are written or none are.
func (r *ScanRepo) CreateWithMentions(ctx context.Context, s *models.Scan, mentions []*models.Mention) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin scan transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.NamedExecContext(ctx, insertScanSQL, s); err != nil {
		return fmt.Errorf("failed to create scan: %w", err)
	}
	if err := insertMentions(ctx, tx, mentions); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit scan %s: %w", s.ID, err)
	}
	return nil
}

// insertMentions writes mentions inside tx. An empty slice is a no-op.
func insertMentions(ctx context.Context, tx *sqlx.Tx, mentions []*models.Mention) error {
	if len(mentions) == 0 {
		return nil
	}

	stmt, err := tx.PrepareNamedContext(ctx, `
		INSERT INTO mentions (id, scan_id, brand_id, position, context, detected_at)
		VALUES (:id, :scan_id, :brand_id, :position, :context, :detected_at)`)
	if err != nil {
		return fmt.Errorf("failed to prepare mention insert: %w", err)
	}
	defer stmt.Close()

	for _, m := range mentions {
		if _, err := stmt.ExecContext(ctx, m); err != nil {
			return fmt.Errorf("failed to insert mention for brand %s: %w", m.BrandID, err)
		}
	}
	return nil
}

// ListRecent returns the newest scans with their query text.
func (r *ScanRepo) ListRecent(ctx context.Context, limit int) ([]models.ScanWithQuery, error) {
	var scans []models.ScanWithQuery
	err := r.db.SelectContext(ctx, &scans, `
		SELECT `+scanWithQueryColumns+`
		FROM scans s
		LEFT JOIN queries q ON q.id = s.query_id
		ORDER BY s.executed_at DESC, s.id
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent scans: %w", err)
	}
	return scans, nil
}

// GetByID loads one scan with its query text, returning ErrNotFound when absent.
func (r *ScanRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.ScanWithQuery, error) {
	var scan models.ScanWithQuery
	err := r.db.GetContext(ctx, &scan, `
		SELECT `+scanWithQueryColumns+`
		FROM scans s
		LEFT JOIN queries q ON q.id = s.query_id
		WHERE s.id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get scan %s: %w", id, err)
	}
	return &scan, nil
}

// ListSince returns completed scans executed at or after since, oldest first.
func (r *ScanRepo) ListSince(ctx context.Context, since time.Time) ([]models.ScanSummary, error) {
	var scans []models.ScanSummary
	err := r.db.SelectContext(ctx, &scans, `
		SELECT id, ai_platform, executed_at
		FROM scans
		WHERE executed_at >= $1 AND status = $2
		ORDER BY executed_at, id`, since, models.ScanStatusCompleted)
	if err != nil {
		return nil, fmt.Errorf("failed to list scans: %w", err)
	}
	return scans, nil
}

// CountFailuresByKind aggregates failed scans since the given time.
func (r *ScanRepo) CountFailuresByKind(ctx context.Context, since time.Time) (map[string]int, error) {
	var rows []struct {
		Kind  string `db:"kind"`
		Count int    `db:"count"`
	}
	err := r.db.SelectContext(ctx, &rows, `
		SELECT COALESCE(error_kind, 'unknown') AS kind, COUNT(*) AS count
		FROM scans
		WHERE executed_at >= $1 AND status = $2
		GROUP BY 1`, since, models.ScanStatusFailed)
	if err != nil {
		return nil, fmt.Errorf("failed to count failed scans: %w", err)
	}

	out := make(map[string]int, len(rows))
	for _, row := range rows {
		out[row.Kind] = row.Count
	}
	return out, nil
}
