package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/AI-Template-SDK/visibility-workflows/internal/models"
)

type MentionRepo struct {
	db *Client
}

func NewMentionRepo(db *Client) *MentionRepo {
	return &MentionRepo{db: db}
}

// ListByScan returns the mentions of one scan with their brand names, in
// detection order.
func (r *MentionRepo) ListByScan(ctx context.Context, scanID uuid.UUID) ([]models.MentionWithBrand, error) {
	var mentions []models.MentionWithBrand
	err := r.db.SelectContext(ctx, &mentions, `
		SELECT m.id, m.scan_id, m.brand_id, m.position, m.context, m.detected_at,
		       COALESCE(b.name, '') AS brand_name
		FROM mentions m
		LEFT JOIN brands b ON b.id = m.brand_id
		WHERE m.scan_id = $1
		ORDER BY m.brand_id, m.position NULLS LAST, m.id`, scanID)
	if err != nil {
		return nil, fmt.Errorf("failed to list mentions for scan %s: %w", scanID, err)
	}
	return mentions, nil
}

// ListSince returns mentions on completed scans executed at or after since.
// An empty brandID selects every brand.
func (r *MentionRepo) ListSince(ctx context.Context, since time.Time, brandID string) ([]models.MentionSummary, error) {
	var mentions []models.MentionSummary
	err := r.db.SelectContext(ctx, &mentions, `
		SELECT m.brand_id, s.ai_platform, s.executed_at
		FROM mentions m
		JOIN scans s ON s.id = m.scan_id
		WHERE s.executed_at >= $1
		  AND s.status = $2
		  AND ($3 = '' OR m.brand_id = $3)
		ORDER BY s.executed_at, m.id`, since, models.ScanStatusCompleted, brandID)
	if err != nil {
		return nil, fmt.Errorf("failed to list mentions: %w", err)
	}
	return mentions, nil
}

// CountByBrand returns the number of mentions per brand since the given time.
func (r *MentionRepo) CountByBrand(ctx context.Context, since time.Time) (map[string]int, error) {
	var rows []struct {
		BrandID string `db:"brand_id"`
		Count   int    `db:"count"`
	}
	err := r.db.SelectContext(ctx, &rows, `
		SELECT m.brand_id, COUNT(*) AS count
		FROM mentions m
		JOIN scans s ON s.id = m.scan_id
		WHERE s.executed_at >= $1
		GROUP BY m.brand_id`, since)
	if err != nil {
		return nil, fmt.Errorf("failed to count mentions: %w", err)
	}

	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.BrandID] = row.Count
	}
	return counts, nil
}
