package imageproxy

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/slok/bulkr/internal/log"
	"github.com/slok/bulkr/internal/model"
)

// Fetcher knows how to retrieve image bytes through a relay.
type Fetcher interface {
	// FetchBytes fetches originalURL through the relay at proxyURL.
	FetchBytes(ctx context.Context, proxyURL, originalURL string) ([]byte, error)
}

// ValidateProxyURL checks the relay is an absolute http(s) URL.
func ValidateProxyURL(proxyURL string) error {
	if proxyURL == "" {
		return fmt.Errorf("image proxy url is required: %w", model.ErrNotValid)
	}

	u, err := url.Parse(proxyURL)
	if err != nil {
		return fmt.Errorf("invalid image proxy url %q: %w: %w", proxyURL, model.ErrNotValid, err)
	}

	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("image proxy url %q must be an http(s) url: %w", proxyURL, model.ErrNotValid)
	}

	return nil
}

// HTTPFetcherConfig is the configuration for the HTTP fetcher.
type HTTPFetcherConfig struct {
	HTTPClient *http.Client
	// MaxBytes limits the size of a fetched image.
	MaxBytes int64
	Logger   log.Logger
}

func (c *HTTPFetcherConfig) defaults() error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}

	if c.MaxBytes <= 0 {
		c.MaxBytes = 20 << 20
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "imageproxy.HTTPFetcher"})

	return nil
}

// HTTPFetcher fetches images from a CORS style relay, the original URL is appended
// to the relay URL (e.g: `https://relay.example/` + `https://images.example/1.jpeg`).
type HTTPFetcher struct {
	client   *http.Client
	maxBytes int64
	logger   log.Logger
}

// NewHTTPFetcher returns a new HTTP fetcher.
func NewHTTPFetcher(cfg HTTPFetcherConfig) (*HTTPFetcher, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &HTTPFetcher{
		client:   cfg.HTTPClient,
		maxBytes: cfg.MaxBytes,
		logger:   cfg.Logger,
	}, nil
}

// FetchBytes satisfies Fetcher.
func (f *HTTPFetcher) FetchBytes(ctx context.Context, proxyURL, originalURL string) ([]byte, error) {
	if err := ValidateProxyURL(proxyURL); err != nil {
		return nil, err
	}

	if strings.TrimSpace(originalURL) == "" {
		return nil, fmt.Errorf("image url is required: %w", model.ErrNotValid)
	}

	target := proxyURL + originalURL
	f.logger.Debugf("Fetching image via proxy: %s", target)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("could not create request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("proxy fetch failed for %s: %w: %w", originalURL, model.ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("proxy fetch for %s: status %d: %w", originalURL, resp.StatusCode, model.ErrRateLimited)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("proxy fetch failed for %s with status %d: %w", originalURL, resp.StatusCode, model.ErrNetwork)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("could not read image: %w: %w", model.ErrNetwork, err)
	}

	if int64(len(data)) > f.maxBytes {
		return nil, fmt.Errorf("image %s is bigger than %d bytes: %w", originalURL, f.maxBytes, model.ErrValidation)
	}

	if len(data) == 0 {
		return nil, fmt.Errorf("fetched image %s is empty: %w", originalURL, model.ErrValidation)
	}

	return data, nil
}

// StaticFetcher returns the same bytes for every image, used with the fake marketplace.
type StaticFetcher []byte

// FetchBytes satisfies Fetcher.
func (s StaticFetcher) FetchBytes(_ context.Context, proxyURL, _ string) ([]byte, error) {
	if err := ValidateProxyURL(proxyURL); err != nil {
		return nil, err
	}

	return []byte(s), nil
}
