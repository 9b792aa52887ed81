package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/AI-Template-SDK/visibility-workflows/internal/models"
)

// BrandRepo manages the tracked brand roster.
type BrandRepo struct {
	db *Client
}

func NewBrandRepo(db *Client) *BrandRepo {
	return &BrandRepo{db: db}
}

// List returns every brand ordered by name.
func (r *BrandRepo) List(ctx context.Context) ([]models.Brand, error) {
	var brands []models.Brand
	err := r.db.SelectContext(ctx, &brands, `
		SELECT id, name, category, website, created_at
		FROM brands
		ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list brands: %w", err)
	}
	return brands, nil
}

// Upsert inserts a brand or refreshes its name, category and website.
func (r *BrandRepo) Upsert(ctx context.Context, b *models.Brand) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO brands (id, name, category, website, created_at)
		VALUES (:id, :name, :category, :website, :created_at)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			category = EXCLUDED.category,
			website = EXCLUDED.website`, b)
	if err != nil {
		return fmt.Errorf("failed to upsert brand %s: %w", b.ID, err)
	}
	return nil
}

// GetByID loads one brand, returning ErrNotFound when it does not exist.
func (r *BrandRepo) GetByID(ctx context.Context, id string) (*models.Brand, error) {
	var b models.Brand
	err := r.db.GetContext(ctx, &b, `
		SELECT id, name, category, website, created_at
		FROM brands
		WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get brand %s: %w", id, err)
	}
	return &b, nil
}

// Delete removes a brand and, through the foreign key, its mentions.
func (r *BrandRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM brands WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete brand %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete brand %s: %w", id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
