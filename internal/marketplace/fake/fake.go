package fake

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/go-faker/faker/v4"

	"github.com/slok/bulkr/internal/log"
	"github.com/slok/bulkr/internal/marketplace"
	"github.com/slok/bulkr/internal/model"
)

// ClientConfig is the configuration for the fake marketplace.
type ClientConfig struct {
	// Users is the number of generated users.
	Users int
	// ItemsPerUser is the number of generated listings per user.
	ItemsPerUser int
	// RateLimitAfter makes every call after this number of calls fail with a rate limit (0 disables it).
	RateLimitAfter int
	Logger         log.Logger
}

func (c *ClientConfig) defaults() error {
	if c.Users < 0 || c.ItemsPerUser < 0 || c.RateLimitAfter < 0 {
		return fmt.Errorf("negative values are not allowed")
	}

	if c.Users == 0 {
		c.Users = 3
	}

	if c.ItemsPerUser == 0 {
		c.ItemsPerUser = 5
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "marketplace.Fake"})

	return nil
}

type user struct {
	id    string
	login string
}

type listing struct {
	data  marketplace.Listing
	owner string
	draft bool
}

// Client is a fake implementation of marketplace.Client.
// It keeps a generated catalog in memory and simulates the item upload API without any network.
type Client struct {
	users      []user
	listings   map[string]*listing
	photos     map[string]string
	favourites map[string]bool
	follows    map[string]bool
	nextID     int
	calls      int
	rateAfter  int
	mu         sync.Mutex
	logger     log.Logger
}

// NewClient creates a new fake marketplace with a generated catalog.
func NewClient(cfg ClientConfig) (*Client, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	c := &Client{
		listings:   map[string]*listing{},
		photos:     map[string]string{},
		favourites: map[string]bool{},
		follows:    map[string]bool{},
		nextID:     1000,
		rateAfter:  cfg.RateLimitAfter,
		logger:     cfg.Logger,
	}

	for i := 0; i < cfg.Users; i++ {
		u := user{id: c.newID(), login: faker.Username()}
		c.users = append(c.users, u)

		for j := 0; j < cfg.ItemsPerUser; j++ {
			c.addListing(u.id)
		}
	}

	c.logger.Debugf("Fake marketplace generated with %d users and %d listings", len(c.users), len(c.listings))

	return c, nil
}

var _ marketplace.Client = &Client{}

// UserIDs returns the ids of the generated users.
func (c *Client) UserIDs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	ids := make([]string, 0, len(c.users))
	for _, u := range c.users {
		ids = append(ids, u.id)
	}
	return ids
}

// AddListing adds a generated listing owned by userID and returns its id.
func (c *Client) AddListing(userID string) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.addListing(userID)
}

// Favourited returns true if the item is currently liked.
func (c *Client) Favourited(itemID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.favourites[itemID]
}

// Followed returns true if the user is currently followed.
func (c *Client) Followed(userID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.follows[userID]
}

func (c *Client) addListing(owner string) string {
	id := c.newID()
	size, catalog, status, color := int64(206), int64(1206), int64(2), int64(1)

	photos := []marketplace.Photo{}
	for i := 0; i < 3; i++ {
		pid := c.newID()
		photos = append(photos, marketplace.Photo{
			ID:          marketplace.ID(pid),
			FullSizeURL: fmt.Sprintf("https://images.fake/%s/%s.jpeg", id, pid),
		})
	}

	c.listings[id] = &listing{
		owner: owner,
		data: marketplace.Listing{
			ID:          marketplace.ID(id),
			Title:       faker.Word() + " " + faker.Word(),
			Description: faker.Sentence(),
			SizeID:      &size,
			CatalogID:   &catalog,
			StatusID:    &status,
			Color1ID:    &color,
			Currency:    "EUR",
			Price:       marketplace.Price{Amount: marketplace.Amount(10 + c.nextID%50), CurrencyCode: "EUR"},
			BrandDTO:    &marketplace.Brand{ID: "53", Title: faker.Word()},
			Photos:      photos,
		},
	}

	return id
}

func (c *Client) newID() string {
	c.nextID++
	return strconv.Itoa(c.nextID)
}

// call accounts a call and applies the simulated rate limit.
func (c *Client) call(creds model.Credentials, op string) error {
	c.calls++
	if c.rateAfter > 0 && c.calls > c.rateAfter {
		c.logger.Debugf("Rate limiting %s (call %d)", op, c.calls)
		return fmt.Errorf("%s: status 429: %w", op, model.ErrRateLimited)
	}

	if creds.Domain == "" {
		return fmt.Errorf("domain is required: %w", model.ErrNotValid)
	}

	return nil
}

func notFound(kind, id string) error {
	return fmt.Errorf("%s %s: %w: %w", kind, id, model.ErrNotFound, model.ErrNetwork)
}

// GetListing satisfies marketplace.Client.
func (c *Client) GetListing(_ context.Context, creds model.Credentials, id string) (*marketplace.Listing, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.call(creds, "get listing"); err != nil {
		return nil, err
	}

	l, ok := c.listings[id]
	if !ok {
		return nil, notFound("listing", id)
	}

	data := l.data
	data.Photos = append([]marketplace.Photo{}, l.data.Photos...)

	return &data, nil
}

// UploadPhoto satisfies marketplace.Client.
func (c *Client) UploadPhoto(_ context.Context, creds model.Credentials, image []byte, correlationToken string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.call(creds, "upload photo"); err != nil {
		return "", err
	}

	if len(image) == 0 {
		return "", fmt.Errorf("empty image: status 422: %w", model.ErrNetwork)
	}

	id := c.newID()
	c.photos[id] = correlationToken

	return id, nil
}

// CreateDraft satisfies marketplace.Client.
func (c *Client) CreateDraft(_ context.Context, creds model.Credentials, payload marketplace.DraftPayload) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.call(creds, "create draft"); err != nil {
		return "", err
	}

	d := payload.Draft
	photos := []marketplace.Photo{}
	for _, p := range d.AssignedPhotos {
		token, ok := c.photos[string(p.ID)]
		if !ok || token != d.TempUUID {
			return "", fmt.Errorf("photo %s not uploaded for this draft: status 422: %w", p.ID, model.ErrNetwork)
		}
		photos = append(photos, marketplace.Photo{
			ID:          p.ID,
			FullSizeURL: fmt.Sprintf("https://images.fake/drafts/%s.jpeg", p.ID),
		})
	}

	id := c.newID()
	c.listings[id] = &listing{
		draft: true,
		owner: c.ownerOf(d.Title),
		data: marketplace.Listing{
			ID:            marketplace.ID(id),
			Title:         d.Title,
			Description:   d.Description,
			SizeID:        d.SizeID,
			CatalogID:     d.CatalogID,
			PackageSizeID: d.PackageSizeID,
			BrandID:       d.BrandID,
			StatusID:      d.StatusID,
			Currency:      d.Currency,
			Price:         marketplace.Price{Amount: marketplace.Amount(d.Price), CurrencyCode: d.Currency},
			BrandDTO:      &marketplace.Brand{Title: d.Brand},
			Photos:        photos,
		},
	}

	return id, nil
}

// CompleteDraft satisfies marketplace.Client.
func (c *Client) CompleteDraft(_ context.Context, creds model.Credentials, draftID string, payload marketplace.CompletionPayload) (json.RawMessage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.call(creds, "complete draft"); err != nil {
		return nil, err
	}

	l, ok := c.listings[draftID]
	if !ok || !l.draft {
		return nil, notFound("draft", draftID)
	}

	if string(payload.Draft.ID) != draftID {
		return nil, fmt.Errorf("completion for %s carries id %s: status 422: %w", draftID, payload.Draft.ID, model.ErrNetwork)
	}

	l.draft = false

	return json.RawMessage(fmt.Sprintf(`{"item":{"id":%s,"is_draft":false}}`, draftID)), nil
}

// DeleteItem satisfies marketplace.Client.
func (c *Client) DeleteItem(_ context.Context, creds model.Credentials, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.call(creds, "delete item"); err != nil {
		return err
	}

	if _, ok := c.listings[id]; !ok {
		return notFound("item", id)
	}
	delete(c.listings, id)

	return nil
}

// ToggleFavourite satisfies marketplace.Client.
func (c *Client) ToggleFavourite(_ context.Context, creds model.Credentials, itemID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.call(creds, "toggle favourite"); err != nil {
		return err
	}

	if _, ok := c.listings[itemID]; !ok {
		return notFound("item", itemID)
	}
	c.favourites[itemID] = !c.favourites[itemID]

	return nil
}

// ToggleFollow satisfies marketplace.Client.
func (c *Client) ToggleFollow(_ context.Context, creds model.Credentials, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.call(creds, "toggle follow"); err != nil {
		return err
	}

	if c.user(userID) == nil {
		return notFound("user", userID)
	}
	c.follows[userID] = !c.follows[userID]

	return nil
}

// SearchCatalog satisfies marketplace.Client.
func (c *Client) SearchCatalog(_ context.Context, creds model.Credentials, keyword string, quantity int) ([]marketplace.CatalogItem, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.call(creds, "search catalog"); err != nil {
		return nil, err
	}

	keyword = strings.ToLower(strings.TrimSpace(keyword))
	items := []marketplace.CatalogItem{}
	for _, id := range c.sortedIDs() {
		l := c.listings[id]
		if l.draft {
			continue
		}
		// "*" matches every listing.
		if keyword != "*" && !strings.Contains(strings.ToLower(l.data.Title), keyword) {
			continue
		}
		items = append(items, c.catalogItem(l))
		if quantity > 0 && len(items) >= quantity {
			break
		}
	}

	return items, nil
}

// ListUserItems satisfies marketplace.Client.
func (c *Client) ListUserItems(_ context.Context, creds model.Credentials, userID string) ([]marketplace.CatalogItem, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.call(creds, "list user items"); err != nil {
		return nil, err
	}

	if c.user(userID) == nil {
		return nil, notFound("user", userID)
	}

	items := []marketplace.CatalogItem{}
	for _, id := range c.sortedIDs() {
		l := c.listings[id]
		if l.draft || l.owner != userID {
			continue
		}
		items = append(items, c.catalogItem(l))
	}

	return items, nil
}

func (c *Client) catalogItem(l *listing) marketplace.CatalogItem {
	item := marketplace.CatalogItem{
		ID:     string(l.data.ID),
		Title:  l.data.Title,
		UserID: l.owner,
	}
	if len(l.data.Photos) > 0 {
		item.ThumbnailURL = l.data.Photos[0].FullSizeURL
	}
	if u := c.user(l.owner); u != nil {
		item.UserLogin = u.login
	}
	return item
}

func (c *Client) user(id string) *user {
	for i := range c.users {
		if c.users[i].id == id {
			return &c.users[i]
		}
	}
	return nil
}

// ownerOf returns the owner of the first published listing with the same title.
func (c *Client) ownerOf(title string) string {
	for _, id := range c.sortedIDs() {
		if l := c.listings[id]; !l.draft && l.data.Title == title {
			return l.owner
		}
	}
	return ""
}

func (c *Client) sortedIDs() []string {
	ids := make([]string, 0, len(c.listings))
	for id := range c.listings {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, _ := strconv.Atoi(ids[i])
		b, _ := strconv.Atoi(ids[j])
		return a < b
	})
	return ids
}
