// internal/models/models.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// Platform is the user-facing name of an AI surface a query can be scanned on.
type Platform string

const (
	PlatformChatGPT    Platform = "chatgpt"
	PlatformGemini     Platform = "gemini"
	PlatformPerplexity Platform = "perplexity"
	PlatformClaude     Platform = "claude"
)

// ScanStatus tracks a scan row through its lifecycle.
type ScanStatus string

const (
	ScanStatusPending   ScanStatus = "pending"
	ScanStatusCompleted ScanStatus = "completed"
	ScanStatusFailed    ScanStatus = "failed"
)

// Brand is a tracked brand. The detector only reads it.
type Brand struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Category  *string   `json:"category,omitempty" db:"category"`
	Website   *string   `json:"website,omitempty" db:"website"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Query is a marketing-intent prompt sent to the providers.
type Query struct {
	ID         string    `json:"id" db:"id"`
	Text       string    `json:"text" db:"text"`
	Category   *string   `json:"category,omitempty" db:"category"`
	IsTemplate bool      `json:"is_template" db:"is_template"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// Scan is one prompt executed against one platform.
type Scan struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	QueryID      string     `json:"query_id" db:"query_id"`
	Platform     Platform   `json:"ai_platform" db:"ai_platform"`
	RawResponse  string     `json:"raw_response" db:"raw_response"`
	Status       ScanStatus `json:"status" db:"status"`
	ErrorKind    *string    `json:"error_kind,omitempty" db:"error_kind"`
	StatusCode   *int       `json:"status_code,omitempty" db:"status_code"`
	Retryable    *bool      `json:"retryable,omitempty" db:"retryable"`
	Model        *string    `json:"model,omitempty" db:"model"`
	InputTokens  int        `json:"input_tokens" db:"input_tokens"`
	OutputTokens int        `json:"output_tokens" db:"output_tokens"`
	Cost         float64    `json:"cost" db:"cost"`
	ExecutedAt   time.Time  `json:"executed_at" db:"executed_at"`
}

// MentionCandidate is what the detector produces for a single response text.
// Position is the 1-based ordinal among exact matches of the brand, nil when the
// candidate came from a variation phrase.
type MentionCandidate struct {
	BrandID  string `json:"brand_id"`
	Position *int   `json:"position"`
	Context  string `json:"context"`
}

// Mention is a persisted MentionCandidate attached to its scan.
type Mention struct {
	ID         uuid.UUID `json:"id" db:"id"`
	ScanID     uuid.UUID `json:"scan_id" db:"scan_id"`
	BrandID    string    `json:"brand_id" db:"brand_id"`
	Position   *int      `json:"position" db:"position"`
	Context    *string   `json:"context" db:"context"`
	DetectedAt time.Time `json:"detected_at" db:"detected_at"`
}

// NewMention stamps a candidate with the identifiers the store needs.
func NewMention(scanID uuid.UUID, c MentionCandidate, now time.Time) *Mention {
	ctx := c.Context
	return &Mention{
		ID:         uuid.New(),
		ScanID:     scanID,
		BrandID:    c.BrandID,
		Position:   c.Position,
		Context:    &ctx,
		DetectedAt: now,
	}
}

// ScanSummary is the slice of a scan the analytics aggregation needs.
type ScanSummary struct {
	ID         uuid.UUID `db:"id"`
	Platform   Platform  `db:"ai_platform"`
	ExecutedAt time.Time `db:"executed_at"`
}

// MentionSummary joins a mention with the platform and time of its scan.
type MentionSummary struct {
	BrandID    string    `db:"brand_id"`
	Platform   Platform  `db:"ai_platform"`
	ExecutedAt time.Time `db:"executed_at"`
}

type PlatformMentions struct {
	Platform Platform `json:"platform"`
	Mentions int      `json:"mentions"`
}

type DailyMentions struct {
	Date     string `json:"date"`
	Mentions int    `json:"mentions"`
}

// VisibilityMetrics is recomputed on demand and never stored.
type VisibilityMetrics struct {
	TotalScans        int                `json:"totalScans"`
	TotalMentions     int                `json:"totalMentions"`
	VisibilityScore   int                `json:"visibilityScore"`
	PlatformBreakdown []PlatformMentions `json:"platformBreakdown"`
	TrendData         []DailyMentions    `json:"trendData"`
}

// ScanWithQuery is a scan joined with the text of the query it ran.
type ScanWithQuery struct {
	Scan
	QueryText string `json:"query_text" db:"query_text"`
}

// MentionWithBrand is a stored mention joined with its brand name.
type MentionWithBrand struct {
	Mention
	BrandName string `json:"brand_name" db:"brand_name"`
}
