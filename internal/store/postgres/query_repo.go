package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/AI-Template-SDK/visibility-workflows/internal/models"
)

// ErrNotFound is returned when a lookup by id matches no row.
var ErrNotFound = errors.New("record not found")

type QueryRepo struct {
	db *Client
}

func NewQueryRepo(db *Client) *QueryRepo {
	return &QueryRepo{db: db}
}

// GetByID loads a single query, returning ErrNotFound when it does not exist.
func (r *QueryRepo) GetByID(ctx context.Context, id string) (*models.Query, error) {
	var q models.Query
	err := r.db.GetContext(ctx, &q, `
		SELECT id, text, category, is_template, created_at
		FROM queries
		WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get query %s: %w", id, err)
	}
	return &q, nil
}

// List returns every query, templates first, then by category.
func (r *QueryRepo) List(ctx context.Context) ([]models.Query, error) {
	var queries []models.Query
	err := r.db.SelectContext(ctx, &queries, `
		SELECT id, text, category, is_template, created_at
		FROM queries
		ORDER BY is_template DESC, category NULLS LAST, created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list queries: %w", err)
	}
	return queries, nil
}

// ListTemplates returns up to limit template queries, oldest first.
func (r *QueryRepo) ListTemplates(ctx context.Context, limit int) ([]models.Query, error) {
	var queries []models.Query
	err := r.db.SelectContext(ctx, &queries, `
		SELECT id, text, category, is_template, created_at
		FROM queries
		WHERE is_template = TRUE
		ORDER BY created_at, id
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list template queries: %w", err)
	}
	return queries, nil
}

// Upsert inserts a query or refreshes its text.
func (r *QueryRepo) Upsert(ctx context.Context, q *models.Query) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO queries (id, text, category, is_template, created_at)
		VALUES (:id, :text, :category, :is_template, :created_at)
		ON CONFLICT (id) DO UPDATE SET
			text = EXCLUDED.text,
			category = EXCLUDED.category,
			is_template = EXCLUDED.is_template`, q)
	if err != nil {
		return fmt.Errorf("failed to upsert query %s: %w", q.ID, err)
	}
	return nil
}
