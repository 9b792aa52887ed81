package gemini_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/AI-Template-SDK/visibility-workflows/internal/providers/common"
	"github.com/AI-Template-SDK/visibility-workflows/internal/providers/gemini"
	"github.com/AI-Template-SDK/visibility-workflows/internal/providers/testutil"
)

func TestCandidateModels(t *testing.T) {
	defaults := []string{"gemini-2.0-flash", "gemini-1.5-flash", "gemini-1.5-flash-8b", "gemini-1.5-pro"}

	tests := []struct {
		name       string
		configured string
		want       []string
	}{
		{"defaults only", "", defaults},
		{"blank configured", "   ", defaults},
		{"configured first", "gemini-2.5-pro", append([]string{"gemini-2.5-pro"}, defaults...)},
		{"configured deduplicated", "gemini-1.5-pro", []string{"gemini-1.5-pro", "gemini-2.0-flash", "gemini-1.5-flash", "gemini-1.5-flash-8b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, gemini.CandidateModels(tt.configured, defaults))
		})
	}
}

func TestIsModelNotFound(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"404 api error", genai.APIError{Code: 404, Message: "not here"}, true},
		{"404 pointer", &genai.APIError{Code: 404}, true},
		{"is not found text", errors.New("models/gemini-9 is not found for API version v1beta"), true},
		{"model not supported", genai.APIError{Code: 400, Message: "Model gemini-x does not support generateContent: not supported"}, true},
		{"not supported without model", errors.New("feature not supported"), false},
		{"rate limit", genai.APIError{Code: 429, Message: "Resource exhausted"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, gemini.IsModelNotFound(tt.err))
		})
	}
}

func TestNewProviderRequiresKey(t *testing.T) {
	cfg := testutil.SampleProvidersConfig()
	cfg.GeminiAPIKey = ""

	_, err := gemini.NewProvider(context.Background(), cfg, nil)

	require.Error(t, err)
	assert.Contains(t, strings.ToLower(err.Error()), "api key")
}

// fakeGemini serves generateContent, answering 404 for the listed models.
func fakeGemini(t *testing.T, missing map[string]bool, failWith int) (*httptest.Server, *[]string) {
	t.Helper()
	var mu sync.Mutex
	var seen []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// /v1beta/models/<model>:generateContent
		model := strings.TrimSuffix(r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:], ":generateContent")
		mu.Lock()
		seen = append(seen, model)
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		switch {
		case missing[model]:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(testutil.SampleGeminiError(404, "NOT_FOUND", "models/"+model+" is not found for API version v1beta")))
		case failWith != 0:
			w.WriteHeader(failWith)
			_, _ = w.Write([]byte(testutil.SampleGeminiError(failWith, "RESOURCE_EXHAUSTED", "Resource has been exhausted (e.g. check quota).")))
		default:
			_, _ = w.Write([]byte(testutil.SampleGeminiResponse("Try HubSpot or Salesforce.")))
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &seen
}

func TestQueryFallsBackOnMissingModel(t *testing.T) {
	srv, seen := fakeGemini(t, map[string]bool{"gemini-2.5-pro": true, "gemini-2.0-flash": true}, 0)
	cfg := testutil.SampleProvidersConfig()
	cfg.GeminiModel = "gemini-2.5-pro"

	p, err := gemini.NewProvider(context.Background(), cfg, testutil.NewMockCostService(), gemini.Options{BaseURL: srv.URL})
	require.NoError(t, err)

	resp, err := p.Query(context.Background(), "best crm?")

	require.NoError(t, err)
	assert.Equal(t, "Try HubSpot or Salesforce.", resp.Response)
	assert.Equal(t, "gemini-1.5-flash", resp.Model)
	assert.Equal(t, 7, resp.InputTokens)
	assert.Equal(t, 5, resp.OutputTokens)
	assert.Equal(t, []string{"gemini-2.5-pro", "gemini-2.0-flash", "gemini-1.5-flash"}, *seen)
	assert.Equal(t, common.ProviderGemini, p.GetProviderName())
}

func TestQueryStopsOnOtherErrors(t *testing.T) {
	srv, seen := fakeGemini(t, nil, http.StatusTooManyRequests)

	p, err := gemini.NewProvider(context.Background(), testutil.SampleProvidersConfig(), nil, gemini.Options{BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = p.Query(context.Background(), "best crm?")

	require.Error(t, err)
	assert.Len(t, *seen, 1)
	assert.False(t, gemini.IsModelNotFound(err))
}

func TestQueryReturnsLastErrorWhenNoModelExists(t *testing.T) {
	missing := map[string]bool{}
	cfg := testutil.SampleProvidersConfig()
	for _, m := range cfg.GeminiFallbacks {
		missing[m] = true
	}
	srv, seen := fakeGemini(t, missing, 0)

	p, err := gemini.NewProvider(context.Background(), cfg, nil, gemini.Options{BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = p.Query(context.Background(), "best crm?")

	require.Error(t, err)
	assert.True(t, gemini.IsModelNotFound(err))
	assert.Len(t, *seen, len(cfg.GeminiFallbacks))
	assert.Contains(t, err.Error(), "gemini-1.5-pro")
}
