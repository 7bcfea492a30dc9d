package io

import (
	"context"
	"fmt"
	"io/fs"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/slok/bulkr/internal/model"
	"github.com/slok/bulkr/internal/storage"
)

// ItemsYAMLRepository loads batch items from YAML files.
type ItemsYAMLRepository struct {
	fs fs.FS
}

// NewItemsYAMLRepository creates a new YAML items repository.
func NewItemsYAMLRepository(filesystem fs.FS) *ItemsYAMLRepository {
	return &ItemsYAMLRepository{fs: filesystem}
}

var _ storage.ItemsRepository = &ItemsYAMLRepository{}

// GetItems loads the items of a YAML file keeping the file order.
func (r *ItemsYAMLRepository) GetItems(ctx context.Context, path string) ([]model.TargetItem, error) {
	data, err := fs.ReadFile(r.fs, path)
	if err != nil {
		return nil, fmt.Errorf("reading items file: %w", err)
	}

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var file ItemsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing YAML: %w: %w", model.ErrNotValid, err)
	}

	if err := file.validate(); err != nil {
		return nil, fmt.Errorf("invalid items file: %w: %w", model.ErrNotValid, err)
	}

	return file.toModel(), nil
}

// ItemsFile represents the YAML structure of an items file.
type ItemsFile struct {
	Items []Item `yaml:"items"`
}

// Item represents the YAML structure of a batch item.
type Item struct {
	ID        string `yaml:"id"`
	Name      string `yaml:"name"`
	Thumbnail string `yaml:"thumbnail"`
	Owner     string `yaml:"owner"`
}

func (f ItemsFile) validate() error {
	if len(f.Items) == 0 {
		return fmt.Errorf("at least one item is required")
	}

	seen := map[string]bool{}
	for i, it := range f.Items {
		id := strings.TrimSpace(it.ID)
		if id == "" {
			return fmt.Errorf("item %d: id is required", i)
		}
		if seen[id] {
			return fmt.Errorf("item %d: duplicated id %s", i, id)
		}
		seen[id] = true
	}

	return nil
}

func (f ItemsFile) toModel() []model.TargetItem {
	items := make([]model.TargetItem, 0, len(f.Items))
	for _, it := range f.Items {
		items = append(items, model.TargetItem{
			ID:           strings.TrimSpace(it.ID),
			DisplayName:  it.Name,
			ThumbnailURL: it.Thumbnail,
			OwnerID:      it.Owner,
		})
	}
	return items
}

// CredentialsYAMLRepository loads session credentials from YAML files.
type CredentialsYAMLRepository struct {
	fs fs.FS
}

// NewCredentialsYAMLRepository creates a new YAML credentials repository.
func NewCredentialsYAMLRepository(filesystem fs.FS) *CredentialsYAMLRepository {
	return &CredentialsYAMLRepository{fs: filesystem}
}

var _ storage.CredentialsRepository = &CredentialsYAMLRepository{}

// GetCredentials loads the credentials of a YAML file.
// Missing fields are left empty so they can be completed from flags.
func (r *CredentialsYAMLRepository) GetCredentials(ctx context.Context, path string) (model.Credentials, error) {
	data, err := fs.ReadFile(r.fs, path)
	if err != nil {
		return model.Credentials{}, fmt.Errorf("reading credentials file: %w", err)
	}

	if ctx.Err() != nil {
		return model.Credentials{}, ctx.Err()
	}

	var c CredentialsFile
	if err := yaml.Unmarshal(data, &c); err != nil {
		return model.Credentials{}, fmt.Errorf("parsing YAML: %w: %w", model.ErrNotValid, err)
	}

	return model.Credentials{
		CSRFToken: strings.TrimSpace(c.CSRFToken),
		Domain:    strings.TrimSpace(c.Domain),
		ProxyURL:  strings.TrimSpace(c.ProxyURL),
		Cookie:    strings.TrimSpace(c.Cookie),
	}, nil
}

// CredentialsFile represents the YAML structure of a credentials file.
type CredentialsFile struct {
	Domain    string `yaml:"domain"`
	CSRFToken string `yaml:"csrf_token"`
	Cookie    string `yaml:"cookie"`
	ProxyURL  string `yaml:"proxy_url"`
}
