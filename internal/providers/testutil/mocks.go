package testutil

import (
	"context"
	"sync"

	"github.com/AI-Template-SDK/visibility-workflows/internal/providers/common"
)

// MockCostService is a mock implementation of CostService for testing
type MockCostService struct {
	CalculateCostFunc func(provider, model string, inputTokens, outputTokens int) float64
}

func (m *MockCostService) CalculateCost(provider, model string, inputTokens, outputTokens int) float64 {
	if m.CalculateCostFunc != nil {
		return m.CalculateCostFunc(provider, model, inputTokens, outputTokens)
	}
	return 0.0015 // Default mock cost
}

func (m *MockCostService) GetCostByModel(provider, model string) (float64, float64, error) {
	return 0.0, 0.0, nil
}

// NewMockCostService creates a new mock cost service
func NewMockCostService() *MockCostService {
	return &MockCostService{}
}

// MockProvider answers prompts from a scripted list of results.
type MockProvider struct {
	ID common.ProviderID

	mu      sync.Mutex
	results []MockResult
	prompts []string
}

// MockResult is one scripted answer; Err wins over Text.
type MockResult struct {
	Text string
	Err  error
}

// NewMockProvider returns a provider that replays results in order and repeats
// the last one once they run out.
func NewMockProvider(id common.ProviderID, results ...MockResult) *MockProvider {
	return &MockProvider{ID: id, results: results}
}

func (m *MockProvider) GetProviderName() common.ProviderID {
	return m.ID
}

func (m *MockProvider) Query(ctx context.Context, prompt string) (*common.AIResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := len(m.prompts)
	m.prompts = append(m.prompts, prompt)
	if len(m.results) == 0 {
		return &common.AIResponse{Model: "mock"}, nil
	}
	if idx >= len(m.results) {
		idx = len(m.results) - 1
	}
	r := m.results[idx]
	if r.Err != nil {
		return nil, r.Err
	}
	return &common.AIResponse{Response: r.Text, Model: "mock-" + string(m.ID), InputTokens: 10, OutputTokens: 20}, nil
}

// Calls returns how many times Query ran.
func (m *MockProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts)
}

// Prompts returns the prompts received so far.
func (m *MockProvider) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.prompts...)
}
