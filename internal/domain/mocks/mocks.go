// Package mocks holds testify mocks of the domain ports.
package mocks

import (
	"github.com/stretchr/testify/mock"

	"github.com/fairyhunter13/scholarship-matcher/internal/domain"
)

// MockSearchProvider is a mock of domain.SearchProvider.
type MockSearchProvider struct{ mock.Mock }

// CheckConfig provides a mock function.
func (m *MockSearchProvider) CheckConfig() error {
	args := m.Called()
	return args.Error(0)
}

// Search provides a mock function.
func (m *MockSearchProvider) Search(ctx domain.Context, query string, num int) ([]domain.CandidateDocument, error) {
	args := m.Called(ctx, query, num)
	var docs []domain.CandidateDocument
	if v := args.Get(0); v != nil {
		docs = v.([]domain.CandidateDocument)
	}
	return docs, args.Error(1)
}

// MockChatClient is a mock of domain.ChatClient.
type MockChatClient struct{ mock.Mock }

// CheckConfig provides a mock function.
func (m *MockChatClient) CheckConfig() error {
	args := m.Called()
	return args.Error(0)
}

// Chat provides a mock function.
func (m *MockChatClient) Chat(ctx domain.Context, req domain.ChatRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

// MockCatalogRepository is a mock of domain.CatalogRepository.
type MockCatalogRepository struct{ mock.Mock }

// ListActive provides a mock function.
func (m *MockCatalogRepository) ListActive(ctx domain.Context, q domain.CatalogQuery) ([]domain.CatalogScholarship, error) {
	args := m.Called(ctx, q)
	var rows []domain.CatalogScholarship
	if v := args.Get(0); v != nil {
		rows = v.([]domain.CatalogScholarship)
	}
	return rows, args.Error(1)
}

// MockRecommendationStore is a mock of domain.RecommendationStore.
type MockRecommendationStore struct{ mock.Mock }

// SaveRecommendations provides a mock function.
func (m *MockRecommendationStore) SaveRecommendations(ctx domain.Context, userID string, recs []domain.CatalogRecommendation) error {
	args := m.Called(ctx, userID, recs)
	return args.Error(0)
}
