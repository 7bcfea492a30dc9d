package marketplace

import (
	"context"
	"encoding/json"

	"github.com/slok/bulkr/internal/model"
)

// Client is the marketplace private API used by the actions.
//
// Every method must return an error wrapping model.ErrRateLimited when the marketplace
// answers with "too many requests", so callers can tell it apart from the rest of failures.
type Client interface {
	// GetListing returns a listing (or a draft) from the item upload API.
	GetListing(ctx context.Context, creds model.Credentials, id string) (*Listing, error)

	// UploadPhoto uploads an image bound to a correlation token and returns the new photo id.
	UploadPhoto(ctx context.Context, creds model.Credentials, image []byte, correlationToken string) (string, error)

	// CreateDraft creates a new draft and returns its id.
	CreateDraft(ctx context.Context, creds model.Credentials, payload DraftPayload) (string, error)

	// CompleteDraft publishes a draft.
	CompleteDraft(ctx context.Context, creds model.Credentials, draftID string, payload CompletionPayload) (json.RawMessage, error)

	// DeleteItem removes a listing, it can't be undone.
	DeleteItem(ctx context.Context, creds model.Credentials, id string) error

	ToggleFavourite(ctx context.Context, creds model.Credentials, itemID string) error
	ToggleFollow(ctx context.Context, creds model.Credentials, userID string) error

	// SearchCatalog searches the catalog by keyword.
	SearchCatalog(ctx context.Context, creds model.Credentials, keyword string, quantity int) ([]CatalogItem, error)

	// ListUserItems returns all the items of a user wardrobe.
	ListUserItems(ctx context.Context, creds model.Credentials, userID string) ([]CatalogItem, error)
}

// CatalogItem is an item summary returned by the search APIs.
type CatalogItem struct {
	ID           string
	Title        string
	ThumbnailURL string
	UserID       string
	UserLogin    string
}

// TargetItem converts the catalog item into a batch target.
func (c CatalogItem) TargetItem() model.TargetItem {
	return model.TargetItem{
		ID:           c.ID,
		DisplayName:  c.Title,
		ThumbnailURL: c.ThumbnailURL,
		OwnerID:      c.UserID,
	}
}
