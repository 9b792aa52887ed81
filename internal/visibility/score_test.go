package visibility

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/AI-Template-SDK/visibility-workflows/internal/models"
)

func TestScore(t *testing.T) {
	tests := []struct {
		scans, mentions, want int
	}{
		{0, 0, 0},
		{0, 7, 0},
		{10, 5, 50},
		{4, 3, 75},
		{3, 4, 133},
		{3, 1, 33},
		{3, 2, 67},
		{10, 0, 0},
		{1, 1, 100},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Score(tt.scans, tt.mentions), "Score(%d, %d)", tt.scans, tt.mentions)
	}
}

func TestMetricsAndBreakdown(t *testing.T) {
	day1 := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 3, 2, 23, 30, 0, 0, time.UTC)

	scans := []models.ScanSummary{
		{Platform: models.PlatformGemini, ExecutedAt: day1},
		{Platform: models.PlatformChatGPT, ExecutedAt: day1},
		{Platform: models.PlatformGemini, ExecutedAt: day2},
		{Platform: models.PlatformPerplexity, ExecutedAt: day2},
	}
	mentions := []models.MentionSummary{
		{BrandID: "b1", Platform: models.PlatformGemini, ExecutedAt: day1},
		{BrandID: "b2", Platform: models.PlatformGemini, ExecutedAt: day2},
		{BrandID: "b1", Platform: models.PlatformChatGPT, ExecutedAt: day1},
	}

	got := Metrics(scans, mentions)

	assert.Equal(t, 4, got.TotalScans)
	assert.Equal(t, 3, got.TotalMentions)
	assert.Equal(t, 75, got.VisibilityScore)
	assert.Equal(t, []models.PlatformMentions{
		{Platform: models.PlatformGemini, Mentions: 2},
		{Platform: models.PlatformChatGPT, Mentions: 1},
		{Platform: models.PlatformPerplexity, Mentions: 0},
	}, got.PlatformBreakdown)
	assert.Equal(t, []models.DailyMentions{
		{Date: "2026-03-01", Mentions: 2},
		{Date: "2026-03-02", Mentions: 1},
	}, got.TrendData)
}

func TestMetricsEmpty(t *testing.T) {
	got := Metrics(nil, nil)

	assert.Equal(t, 0, got.VisibilityScore)
	assert.NotNil(t, got.PlatformBreakdown)
	assert.Empty(t, got.PlatformBreakdown)
	assert.NotNil(t, got.TrendData)
}

func TestBreakdownUsesUTCDays(t *testing.T) {
	tz := time.FixedZone("UTC-8", -8*3600)
	late := time.Date(2026, 3, 1, 20, 0, 0, 0, tz) // 2026-03-02 04:00 UTC

	_, trend := Breakdown(
		[]models.ScanSummary{{Platform: models.PlatformClaude, ExecutedAt: late}},
		[]models.MentionSummary{{BrandID: "b1", Platform: models.PlatformClaude, ExecutedAt: late}},
	)

	assert.Equal(t, []models.DailyMentions{{Date: "2026-03-02", Mentions: 1}}, trend)
}

func TestRankCompetitors(t *testing.T) {
	brands := []models.Brand{{ID: "a", Name: "Acme"}, {ID: "h", Name: "HubSpot"}, {ID: "s", Name: "Salesforce"}, {ID: "z", Name: "Zoho"}}

	got := RankCompetitors(brands, map[string]int{"h": 5, "s": 2, "z": 5})

	var order []string
	for _, c := range got {
		order = append(order, c.BrandID)
	}
	assert.Equal(t, []string{"h", "z", "s", "a"}, order)
	assert.Equal(t, 0, got[3].Mentions)
}
