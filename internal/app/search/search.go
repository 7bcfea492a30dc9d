package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/slok/bulkr/internal/log"
	"github.com/slok/bulkr/internal/marketplace"
	"github.com/slok/bulkr/internal/model"
)

// ServiceConfig is the configuration for the search service.
type ServiceConfig struct {
	Client marketplace.Client
	Logger log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.Client == nil {
		return fmt.Errorf("marketplace client is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.Search"})
	return nil
}

// Service finds the target items of a batch.
type Service struct {
	client marketplace.Client
	logger log.Logger
}

// NewService creates a new search service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		client: cfg.Client,
		logger: cfg.Logger,
	}, nil
}

// Request contains the parameters of a search, Keyword and UserID are exclusive.
type Request struct {
	Keyword string
	UserID  string
	// Quantity is the max number of items, required for keyword searches.
	// On user searches 0 means all the user items.
	Quantity    int
	Credentials model.Credentials
}

func (r *Request) validate() error {
	r.Keyword = strings.TrimSpace(r.Keyword)
	r.UserID = strings.TrimSpace(r.UserID)

	switch {
	case r.Keyword == "" && r.UserID == "":
		return fmt.Errorf("enter username or keyword: %w", model.ErrNotValid)
	case r.Keyword != "" && r.UserID != "":
		return fmt.Errorf("keyword and user can't be used at the same time: %w", model.ErrNotValid)
	case r.Keyword != "" && r.Quantity <= 0:
		return fmt.Errorf("specify the quantity: %w", model.ErrNotValid)
	case r.Quantity < 0:
		return fmt.Errorf("quantity can't be negative: %w", model.ErrNotValid)
	}

	if err := r.Credentials.Validate(); err != nil {
		return fmt.Errorf("invalid credentials: %w", err)
	}

	return nil
}

// Run returns the items matching the request in marketplace order.
func (s *Service) Run(ctx context.Context, req Request) ([]model.TargetItem, error) {
	if err := req.validate(); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}

	var (
		found []marketplace.CatalogItem
		err   error
	)
	if req.Keyword != "" {
		found, err = s.client.SearchCatalog(ctx, req.Credentials, req.Keyword, req.Quantity)
		if err != nil {
			return nil, fmt.Errorf("could not search %q: %w", req.Keyword, err)
		}
	} else {
		found, err = s.client.ListUserItems(ctx, req.Credentials, req.UserID)
		if err != nil {
			return nil, fmt.Errorf("could not list user %s items: %w", req.UserID, err)
		}
	}

	if req.Quantity > 0 && len(found) > req.Quantity {
		found = found[:req.Quantity]
	}

	items := make([]model.TargetItem, 0, len(found))
	for _, it := range found {
		items = append(items, it.TargetItem())
	}

	s.logger.Debugf("Found %d items", len(items))

	return items, nil
}
