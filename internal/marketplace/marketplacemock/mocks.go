// Package marketplacemock contains testify mocks for the marketplace package.
package marketplacemock

import (
	"context"
	"encoding/json"

	"github.com/stretchr/testify/mock"

	"github.com/slok/bulkr/internal/marketplace"
	"github.com/slok/bulkr/internal/model"
)

// MockClient is a mock of marketplace.Client.
type MockClient struct {
	mock.Mock
}

var _ marketplace.Client = &MockClient{}

func (m *MockClient) GetListing(ctx context.Context, creds model.Credentials, id string) (*marketplace.Listing, error) {
	args := m.Called(ctx, creds, id)
	l, _ := args.Get(0).(*marketplace.Listing)
	return l, args.Error(1)
}

func (m *MockClient) UploadPhoto(ctx context.Context, creds model.Credentials, image []byte, correlationToken string) (string, error) {
	args := m.Called(ctx, creds, image, correlationToken)
	return args.String(0), args.Error(1)
}

func (m *MockClient) CreateDraft(ctx context.Context, creds model.Credentials, payload marketplace.DraftPayload) (string, error) {
	args := m.Called(ctx, creds, payload)
	return args.String(0), args.Error(1)
}

func (m *MockClient) CompleteDraft(ctx context.Context, creds model.Credentials, draftID string, payload marketplace.CompletionPayload) (json.RawMessage, error) {
	args := m.Called(ctx, creds, draftID, payload)
	r, _ := args.Get(0).(json.RawMessage)
	return r, args.Error(1)
}

func (m *MockClient) DeleteItem(ctx context.Context, creds model.Credentials, id string) error {
	args := m.Called(ctx, creds, id)
	return args.Error(0)
}

func (m *MockClient) ToggleFavourite(ctx context.Context, creds model.Credentials, itemID string) error {
	args := m.Called(ctx, creds, itemID)
	return args.Error(0)
}

func (m *MockClient) ToggleFollow(ctx context.Context, creds model.Credentials, userID string) error {
	args := m.Called(ctx, creds, userID)
	return args.Error(0)
}

func (m *MockClient) SearchCatalog(ctx context.Context, creds model.Credentials, keyword string, quantity int) ([]marketplace.CatalogItem, error) {
	args := m.Called(ctx, creds, keyword, quantity)
	items, _ := args.Get(0).([]marketplace.CatalogItem)
	return items, args.Error(1)
}

func (m *MockClient) ListUserItems(ctx context.Context, creds model.Credentials, userID string) ([]marketplace.CatalogItem, error) {
	args := m.Called(ctx, creds, userID)
	items, _ := args.Get(0).([]marketplace.CatalogItem)
	return items, args.Error(1)
}
