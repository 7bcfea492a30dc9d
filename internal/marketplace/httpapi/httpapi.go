package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"time"

	"github.com/slok/bulkr/internal/log"
	"github.com/slok/bulkr/internal/marketplace"
	"github.com/slok/bulkr/internal/model"
)

const (
	wardrobePageSize = 90
	acceptHeader     = "application/json, text/plain, */*"
)

// HTTPClient is the transport used to reach the marketplace.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig is the configuration for the marketplace HTTP client.
type ClientConfig struct {
	// Scheme used to build the URLs from the credentials domain, defaults to https.
	Scheme     string
	HTTPClient HTTPClient
	UserAgent  string
	Logger     log.Logger
}

func (c *ClientConfig) defaults() error {
	if c.Scheme == "" {
		c.Scheme = "https"
	}

	if c.Scheme != "https" && c.Scheme != "http" {
		return fmt.Errorf("unsupported scheme %q", c.Scheme)
	}

	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}

	if c.UserAgent == "" {
		c.UserAgent = "bulkr/1.0"
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "marketplace.HTTPAPI"})

	return nil
}

// Client is the marketplace.Client implementation over the marketplace private web API.
// It doesn't retry, every method is a single call (or a fixed sequence of calls).
type Client struct {
	scheme    string
	client    HTTPClient
	userAgent string
	logger    log.Logger
}

// NewClient returns a new marketplace HTTP client.
func NewClient(cfg ClientConfig) (*Client, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Client{
		scheme:    cfg.Scheme,
		client:    cfg.HTTPClient,
		userAgent: cfg.UserAgent,
		logger:    cfg.Logger,
	}, nil
}

var _ marketplace.Client = &Client{}

type listingResponse struct {
	Item *marketplace.Listing `json:"item"`
}

// GetListing satisfies marketplace.Client.
func (c *Client) GetListing(ctx context.Context, creds model.Credentials, id string) (*marketplace.Listing, error) {
	body, err := c.do(ctx, creds, request{
		method:  http.MethodGet,
		path:    "/api/v2/item_upload/items/" + url.PathEscape(id),
		noCache: true,
	})
	if err != nil {
		return nil, fmt.Errorf("could not get listing %s: %w", id, err)
	}

	var resp listingResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("could not decode listing %s: %w: %w", id, model.ErrValidation, err)
	}
	if resp.Item == nil {
		return nil, fmt.Errorf("listing %s response without item: %w", id, model.ErrValidation)
	}

	return resp.Item, nil
}

type photoResponse struct {
	ID marketplace.ID `json:"id"`
}

// UploadPhoto satisfies marketplace.Client.
func (c *Client) UploadPhoto(ctx context.Context, creds model.Credentials, image []byte, correlationToken string) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	if err := mw.WriteField("photo[type]", "item"); err != nil {
		return "", fmt.Errorf("could not write form: %w", err)
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="photo[file]"; filename="image.jpeg"`)
	h.Set("Content-Type", "image/jpeg")
	fw, err := mw.CreatePart(h)
	if err != nil {
		return "", fmt.Errorf("could not write form: %w", err)
	}
	if _, err := fw.Write(image); err != nil {
		return "", fmt.Errorf("could not write form: %w", err)
	}

	if err := mw.WriteField("photo[temp_uuid]", correlationToken); err != nil {
		return "", fmt.Errorf("could not write form: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("could not write form: %w", err)
	}

	body, err := c.do(ctx, creds, request{
		method:      http.MethodPost,
		path:        "/api/v2/photos",
		contentType: mw.FormDataContentType(),
		body:        buf.Bytes(),
	})
	if err != nil {
		return "", fmt.Errorf("could not upload photo: %w", err)
	}

	var resp photoResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("could not decode photo: %w: %w", model.ErrValidation, err)
	}
	if resp.ID == "" {
		return "", fmt.Errorf("photo response without id: %w", model.ErrValidation)
	}

	return string(resp.ID), nil
}

type draftResponse struct {
	Draft *struct {
		ID marketplace.ID `json:"id"`
	} `json:"draft"`
}

// CreateDraft satisfies marketplace.Client.
func (c *Client) CreateDraft(ctx context.Context, creds model.Credentials, payload marketplace.DraftPayload) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("could not encode draft: %w", err)
	}

	body, err := c.do(ctx, creds, request{
		method:      http.MethodPost,
		path:        "/api/v2/item_upload/drafts",
		contentType: "application/json",
		body:        data,
	})
	if err != nil {
		return "", fmt.Errorf("could not create draft: %w", err)
	}

	var resp draftResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("could not decode draft: %w: %w", model.ErrValidation, err)
	}
	if resp.Draft == nil || resp.Draft.ID == "" {
		return "", fmt.Errorf("draft response without a valid id: %w", model.ErrValidation)
	}

	return string(resp.Draft.ID), nil
}

// CompleteDraft satisfies marketplace.Client.
func (c *Client) CompleteDraft(ctx context.Context, creds model.Credentials, draftID string, payload marketplace.CompletionPayload) (json.RawMessage, error) {
	if draftID == "" {
		return nil, fmt.Errorf("draft id is required: %w", model.ErrNotValid)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("could not encode completion: %w", err)
	}

	body, err := c.do(ctx, creds, request{
		method:      http.MethodPost,
		path:        "/api/v2/item_upload/drafts/" + url.PathEscape(draftID) + "/completion",
		contentType: "application/json",
		body:        data,
	})
	if err != nil {
		return nil, fmt.Errorf("could not publish draft %s: %w", draftID, err)
	}

	if !json.Valid(body) {
		return nil, fmt.Errorf("publish draft %s response is not JSON: %w", draftID, model.ErrValidation)
	}

	return json.RawMessage(body), nil
}

// DeleteItem satisfies marketplace.Client.
func (c *Client) DeleteItem(ctx context.Context, creds model.Credentials, id string) error {
	if id == "" {
		return fmt.Errorf("item id is required: %w", model.ErrNotValid)
	}

	_, err := c.do(ctx, creds, request{
		method: http.MethodPost,
		path:   "/api/v2/items/" + url.PathEscape(id) + "/delete",
	})
	if err != nil {
		return fmt.Errorf("could not delete item %s: %w", id, err)
	}

	return nil
}

type favouriteRequest struct {
	Type           string           `json:"type"`
	UserFavourites []marketplace.ID `json:"user_favourites"`
}

// ToggleFavourite satisfies marketplace.Client.
func (c *Client) ToggleFavourite(ctx context.Context, creds model.Credentials, itemID string) error {
	data, err := json.Marshal(favouriteRequest{Type: "item", UserFavourites: []marketplace.ID{marketplace.ID(itemID)}})
	if err != nil {
		return fmt.Errorf("could not encode favourite: %w", err)
	}

	_, err = c.do(ctx, creds, request{
		method:      http.MethodPost,
		path:        "/api/v2/user_favourites/toggle",
		contentType: "application/json",
		body:        data,
	})
	if err != nil {
		return fmt.Errorf("could not toggle favourite on %s: %w", itemID, err)
	}

	return nil
}

type followRequest struct {
	UserID marketplace.ID `json:"user_id"`
}

// ToggleFollow satisfies marketplace.Client.
func (c *Client) ToggleFollow(ctx context.Context, creds model.Credentials, userID string) error {
	data, err := json.Marshal(followRequest{UserID: marketplace.ID(userID)})
	if err != nil {
		return fmt.Errorf("could not encode follow: %w", err)
	}

	_, err = c.do(ctx, creds, request{
		method:      http.MethodPost,
		path:        "/api/v2/followed_users/toggle",
		contentType: "application/json",
		body:        data,
	})
	if err != nil {
		return fmt.Errorf("could not toggle follow on %s: %w", userID, err)
	}

	return nil
}

type catalogThumbnail struct {
	URL string `json:"url"`
}

type catalogPhoto struct {
	URL        string             `json:"url"`
	Thumbnails []catalogThumbnail `json:"thumbnails"`
}

type catalogItem struct {
	ID     marketplace.ID `json:"id"`
	Title  string         `json:"title"`
	Photo  *catalogPhoto  `json:"photo"`
	Photos []catalogPhoto `json:"photos"`
	User   *struct {
		ID    marketplace.ID `json:"id"`
		Login string         `json:"login"`
	} `json:"user"`
}

type catalogResponse struct {
	Items []catalogItem `json:"items"`
}

// SearchCatalog satisfies marketplace.Client.
func (c *Client) SearchCatalog(ctx context.Context, creds model.Credentials, keyword string, quantity int) ([]marketplace.CatalogItem, error) {
	q := url.Values{}
	q.Set("search_text", keyword)
	q.Set("per_page", strconv.Itoa(quantity))

	body, err := c.do(ctx, creds, request{
		method:  http.MethodGet,
		path:    "/api/v2/catalog/items",
		query:   q,
		noCache: true,
	})
	if err != nil {
		return nil, fmt.Errorf("could not search catalog: %w", err)
	}

	var resp catalogResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("could not decode catalog: %w: %w", model.ErrValidation, err)
	}

	items := make([]marketplace.CatalogItem, 0, len(resp.Items))
	for _, it := range resp.Items {
		items = append(items, mapCatalogItem(it, 1))
	}

	return items, nil
}

type userResponse struct {
	User *struct {
		ItemCount *int `json:"item_count"`
	} `json:"user"`
}

// ListUserItems satisfies marketplace.Client.
// Pages are requested one after the other, never in parallel.
func (c *Client) ListUserItems(ctx context.Context, creds model.Credentials, userID string) ([]marketplace.CatalogItem, error) {
	body, err := c.do(ctx, creds, request{
		method: http.MethodGet,
		path:   "/api/v2/users/" + url.PathEscape(userID),
	})
	if err != nil {
		return nil, fmt.Errorf("could not get user %s: %w", userID, err)
	}

	var user userResponse
	if err := json.Unmarshal(body, &user); err != nil {
		return nil, fmt.Errorf("could not decode user: %w: %w", model.ErrValidation, err)
	}
	if user.User == nil || user.User.ItemCount == nil {
		return nil, fmt.Errorf("could not determine item count: %w", model.ErrValidation)
	}

	count := *user.User.ItemCount
	if count == 0 {
		return []marketplace.CatalogItem{}, nil
	}

	pages := (count + wardrobePageSize - 1) / wardrobePageSize
	items := make([]marketplace.CatalogItem, 0, count)
	for page := 1; page <= pages; page++ {
		q := url.Values{}
		q.Set("page", strconv.Itoa(page))
		q.Set("per_page", strconv.Itoa(wardrobePageSize))

		body, err := c.do(ctx, creds, request{
			method: http.MethodGet,
			path:   "/api/v2/wardrobe/" + url.PathEscape(userID) + "/items",
			query:  q,
		})
		if err != nil {
			return nil, fmt.Errorf("could not get wardrobe page %d: %w", page, err)
		}

		var resp catalogResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, fmt.Errorf("could not decode wardrobe page %d: %w: %w", page, model.ErrValidation, err)
		}

		for _, it := range resp.Items {
			mapped := mapCatalogItem(it, 2)
			if mapped.UserID == "" {
				mapped.UserID = userID
			}
			items = append(items, mapped)
		}
	}

	c.logger.Debugf("Listed %d items of user %s in %d pages", len(items), userID, pages)

	return items, nil
}

// mapCatalogItem maps an API item, thumbIdx selects the thumbnail size used.
func mapCatalogItem(it catalogItem, thumbIdx int) marketplace.CatalogItem {
	item := marketplace.CatalogItem{
		ID:    string(it.ID),
		Title: it.Title,
	}

	photo := it.Photo
	if photo == nil && len(it.Photos) > 0 {
		photo = &it.Photos[0]
	}
	if photo != nil && len(photo.Thumbnails) > thumbIdx {
		item.ThumbnailURL = photo.Thumbnails[thumbIdx].URL
	}

	if it.User != nil {
		item.UserID = string(it.User.ID)
		item.UserLogin = it.User.Login
	}

	return item
}

type request struct {
	method      string
	path        string
	query       url.Values
	contentType string
	body        []byte
	noCache     bool
}

// do executes a single request and classifies the failures.
func (c *Client) do(ctx context.Context, creds model.Credentials, r request) ([]byte, error) {
	if creds.Domain == "" {
		return nil, fmt.Errorf("domain is required: %w", model.ErrNotValid)
	}

	u := url.URL{
		Scheme: c.scheme,
		Host:   creds.Domain,
		Path:   r.path,
	}
	if len(r.query) > 0 {
		u.RawQuery = r.query.Encode()
	}

	var body io.Reader
	if r.body != nil {
		body = bytes.NewReader(r.body)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("could not create request: %w", err)
	}

	req.Header.Set("Accept", acceptHeader)
	req.Header.Set("User-Agent", c.userAgent)
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	if r.noCache {
		req.Header.Set("Cache-Control", "no-cache")
		req.Header.Set("Pragma", "no-cache")
	}
	if creds.CSRFToken != "" {
		req.Header.Set("X-CSRF-Token", creds.CSRFToken)
	}
	if creds.Cookie != "" {
		req.Header.Set("Cookie", creds.Cookie)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w: %w", r.method, r.path, model.ErrNetwork, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("could not read response: %w: %w", model.ErrNetwork, err)
	}

	c.logger.Debugf("%s %s -> %d (%s)", r.method, r.path, resp.StatusCode, time.Since(start))

	return respBody, statusError(resp.StatusCode, respBody)
}

// statusError maps a response status to its error kind, nil on 2xx.
func statusError(status int, body []byte) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("status %d: %w", status, model.ErrRateLimited)
	case status == http.StatusNotFound:
		return fmt.Errorf("status %d: %w: %w", status, model.ErrNotFound, model.ErrNetwork)
	default:
		const maxDetails = 256
		details := string(body)
		if len(details) > maxDetails {
			details = details[:maxDetails]
		}
		return fmt.Errorf("status %d (%s): %w", status, details, model.ErrNetwork)
	}
}
