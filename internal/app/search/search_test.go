package search_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/slok/bulkr/internal/app/search"
	"github.com/slok/bulkr/internal/marketplace"
	"github.com/slok/bulkr/internal/marketplace/marketplacemock"
	"github.com/slok/bulkr/internal/model"
)

var creds = model.Credentials{CSRFToken: "csrf", Domain: "www.example.com"}

func TestNewService(t *testing.T) {
	_, err := search.NewService(search.ServiceConfig{})
	assert.Error(t, err)

	_, err = search.NewService(search.ServiceConfig{Client: &marketplacemock.MockClient{}})
	assert.NoError(t, err)
}

func TestServiceRun(t *testing.T) {
	catalog := []marketplace.CatalogItem{
		{ID: "1", Title: "Jacket", ThumbnailURL: "https://img/1", UserID: "7", UserLogin: "ann"},
		{ID: "2", Title: "Boots", UserID: "8"},
		{ID: "3", Title: "Scarf", UserID: "7"},
	}

	tests := map[string]struct {
		req      search.Request
		mock     func(m *marketplacemock.MockClient)
		expItems []model.TargetItem
		expErr   error
	}{
		"A keyword search should return the catalog items as targets": {
			req: search.Request{Keyword: " jacket ", Quantity: 2, Credentials: creds},
			mock: func(m *marketplacemock.MockClient) {
				m.On("SearchCatalog", mock.Anything, creds, "jacket", 2).Once().Return(catalog[:2], nil)
			},
			expItems: []model.TargetItem{
				{ID: "1", DisplayName: "Jacket", ThumbnailURL: "https://img/1", OwnerID: "7"},
				{ID: "2", DisplayName: "Boots", OwnerID: "8"},
			},
		},

		"A keyword search returning more items than asked should be truncated": {
			req: search.Request{Keyword: "jacket", Quantity: 1, Credentials: creds},
			mock: func(m *marketplacemock.MockClient) {
				m.On("SearchCatalog", mock.Anything, creds, "jacket", 1).Once().Return(catalog, nil)
			},
			expItems: []model.TargetItem{
				{ID: "1", DisplayName: "Jacket", ThumbnailURL: "https://img/1", OwnerID: "7"},
			},
		},

		"A user search without quantity should return all the user items": {
			req: search.Request{UserID: "7", Credentials: creds},
			mock: func(m *marketplacemock.MockClient) {
				m.On("ListUserItems", mock.Anything, creds, "7").Once().Return([]marketplace.CatalogItem{catalog[0], catalog[2]}, nil)
			},
			expItems: []model.TargetItem{
				{ID: "1", DisplayName: "Jacket", ThumbnailURL: "https://img/1", OwnerID: "7"},
				{ID: "3", DisplayName: "Scarf", OwnerID: "7"},
			},
		},

		"Missing keyword and user should fail": {
			req:    search.Request{Quantity: 3, Credentials: creds},
			mock:   func(m *marketplacemock.MockClient) {},
			expErr: model.ErrNotValid,
		},

		"Keyword and user at the same time should fail": {
			req:    search.Request{Keyword: "a", UserID: "7", Quantity: 3, Credentials: creds},
			mock:   func(m *marketplacemock.MockClient) {},
			expErr: model.ErrNotValid,
		},

		"A keyword search without quantity should fail": {
			req:    search.Request{Keyword: "jacket", Credentials: creds},
			mock:   func(m *marketplacemock.MockClient) {},
			expErr: model.ErrNotValid,
		},

		"Missing credentials should fail": {
			req:    search.Request{Keyword: "jacket", Quantity: 3},
			mock:   func(m *marketplacemock.MockClient) {},
			expErr: model.ErrNotValid,
		},

		"A rate limited search should fail with rate limit": {
			req: search.Request{Keyword: "jacket", Quantity: 3, Credentials: creds},
			mock: func(m *marketplacemock.MockClient) {
				m.On("SearchCatalog", mock.Anything, creds, "jacket", 3).Once().Return(nil, fmt.Errorf("status 429: %w", model.ErrRateLimited))
			},
			expErr: model.ErrRateLimited,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			require := require.New(t)

			m := &marketplacemock.MockClient{}
			test.mock(m)

			svc, err := search.NewService(search.ServiceConfig{Client: m})
			require.NoError(err)

			got, err := svc.Run(context.Background(), test.req)
			m.AssertExpectations(t)
			if test.expErr != nil {
				assert.ErrorIs(t, err, test.expErr)
				return
			}

			require.NoError(err)
			assert.Equal(t, test.expItems, got)
		})
	}
}
