// internal/search/index.go
package search

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/AI-Template-SDK/visibility-workflows/internal/models"
	"github.com/typesense/typesense-go/v2/typesense"
	"github.com/typesense/typesense-go/v2/typesense/api"
)

// CollectionName holds one document per completed scan.
const CollectionName = "scan_responses"

// Indexer stores raw provider responses for full-text lookup.
type Indexer interface {
	IndexScan(ctx context.Context, scan *models.Scan, queryText string, brandIDs []string) error
}

// Index is the Typesense implementation of Indexer.
type Index struct {
	client     *typesense.Client
	collection string
}

// NewClient builds a Typesense client for host:port.
func NewClient(host string, port int, apiKey string) *typesense.Client {
	return typesense.NewClient(
		typesense.WithServer(fmt.Sprintf("http://%s:%d", host, port)),
		typesense.WithAPIKey(apiKey),
	)
}

func NewIndex(client *typesense.Client) *Index {
	return &Index{client: client, collection: CollectionName}
}

// EnsureCollection creates the collection, tolerating one that already exists.
func (i *Index) EnsureCollection(ctx context.Context) error {
	facet := true
	sort := true
	optional := true
	defaultSortField := "executed_at"
	schema := &api.CollectionSchema{
		Name: i.collection,
		Fields: []api.Field{
			{Name: "id", Type: "string"},
			{Name: "query_id", Type: "string", Facet: &facet},
			{Name: "query_text", Type: "string"},
			{Name: "ai_platform", Type: "string", Facet: &facet},
			{Name: "model", Type: "string", Facet: &facet, Optional: &optional},
			{Name: "response", Type: "string"},
			{Name: "brand_ids", Type: "string[]", Facet: &facet},
			{Name: "executed_at", Type: "int64", Sort: &sort},
		},
		DefaultSortingField: &defaultSortField,
	}

	_, err := i.client.Collections().Create(ctx, schema)
	if err != nil && !strings.Contains(err.Error(), "already exists") {
		return fmt.Errorf("failed to create typesense collection %s: %w", i.collection, err)
	}
	slog.Info("[SearchIndex] Collection is ready", "collection", i.collection)
	return nil
}

// IndexScan upserts the scan's response document.
func (i *Index) IndexScan(ctx context.Context, scan *models.Scan, queryText string, brandIDs []string) error {
	docs := []interface{}{ScanDocument(scan, queryText, brandIDs)}
	action := "upsert"
	results, err := i.client.Collection(i.collection).Documents().Import(ctx, docs, &api.ImportDocumentsParams{Action: &action})
	if err != nil {
		return fmt.Errorf("failed to index scan %s: %w", scan.ID, err)
	}
	for _, r := range results {
		if r != nil && !r.Success {
			return fmt.Errorf("typesense rejected scan %s", scan.ID)
		}
	}
	return nil
}

// ScanDocument renders a scan as a Typesense document.
func ScanDocument(scan *models.Scan, queryText string, brandIDs []string) map[string]interface{} {
	if brandIDs == nil {
		brandIDs = []string{}
	}
	doc := map[string]interface{}{
		"id":          scan.ID.String(),
		"query_id":    scan.QueryID,
		"query_text":  queryText,
		"ai_platform": string(scan.Platform),
		"response":    scan.RawResponse,
		"brand_ids":   brandIDs,
		"executed_at": scan.ExecutedAt.Unix(),
	}
	if scan.Model != nil {
		doc["model"] = *scan.Model
	}
	return doc
}

// Nop discards every document. It stands in when no search backend is configured.
type Nop struct{}

func (Nop) IndexScan(context.Context, *models.Scan, string, []string) error { return nil }
