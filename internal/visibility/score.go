// Package visibility turns scan and mention counts into visibility analytics.
package visibility

import (
	"math"
	"sort"

	"github.com/AI-Template-SDK/visibility-workflows/internal/models"
)

// Score is round(100 * mentions / scans), or 0 without scans. It is not capped
// at 100: several mentions per scan push it higher.
func Score(totalScans, totalMentions int) int {
	if totalScans <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(totalMentions) / float64(totalScans)))
}

// Metrics builds the full analytics payload from the scans and mentions of a
// reporting window.
func Metrics(scans []models.ScanSummary, mentions []models.MentionSummary) models.VisibilityMetrics {
	platforms, trend := Breakdown(scans, mentions)
	return models.VisibilityMetrics{
		TotalScans:        len(scans),
		TotalMentions:     len(mentions),
		VisibilityScore:   Score(len(scans), len(mentions)),
		PlatformBreakdown: platforms,
		TrendData:         trend,
	}
}

// Breakdown counts mentions per platform and per UTC day. Platforms and days
// appear in the order their first scan does; a platform or day with scans but no
// mentions is reported with zero.
func Breakdown(scans []models.ScanSummary, mentions []models.MentionSummary) ([]models.PlatformMentions, []models.DailyMentions) {
	byPlatform := make(map[models.Platform]int)
	byDay := make(map[string]int)
	for _, m := range mentions {
		byPlatform[m.Platform]++
		byDay[day(m)]++
	}

	platforms := []models.PlatformMentions{}
	trend := []models.DailyMentions{}
	seenPlatform := make(map[models.Platform]bool)
	seenDay := make(map[string]bool)
	for _, s := range scans {
		if !seenPlatform[s.Platform] {
			seenPlatform[s.Platform] = true
			platforms = append(platforms, models.PlatformMentions{Platform: s.Platform, Mentions: byPlatform[s.Platform]})
		}
		d := s.ExecutedAt.UTC().Format(dateLayout)
		if !seenDay[d] {
			seenDay[d] = true
			trend = append(trend, models.DailyMentions{Date: d, Mentions: byDay[d]})
		}
	}
	return platforms, trend
}

const dateLayout = "2006-01-02"

func day(m models.MentionSummary) string {
	return m.ExecutedAt.UTC().Format(dateLayout)
}

// CompetitorMentions is one brand's share of all mentions.
type CompetitorMentions struct {
	BrandID  string  `json:"brand_id"`
	Name     string  `json:"name"`
	Category *string `json:"category"`
	Mentions int     `json:"mentions"`
}

// RankCompetitors orders brands by mention count, most mentioned first. Ties keep
// the roster order.
func RankCompetitors(brands []models.Brand, mentionsByBrand map[string]int) []CompetitorMentions {
	out := make([]CompetitorMentions, 0, len(brands))
	for _, b := range brands {
		out = append(out, CompetitorMentions{
			BrandID:  b.ID,
			Name:     b.Name,
			Category: b.Category,
			Mentions: mentionsByBrand[b.ID],
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Mentions > out[j].Mentions
	})
	return out
}
