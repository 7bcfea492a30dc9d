package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/slok/bulkr/internal/log"
	"github.com/slok/bulkr/internal/model"
	"github.com/slok/bulkr/internal/storage"
)

// RepositoryConfig is the configuration for the memory repository.
type RepositoryConfig struct {
	Logger log.Logger
}

func (c *RepositoryConfig) defaults() error {
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "storage.Memory"})
	return nil
}

// Repository is an in-memory implementation of storage.RunRepository.
type Repository struct {
	reports map[string]model.RunReport
	mu      sync.RWMutex
	logger  log.Logger
}

// NewRepository creates a new memory repository.
func NewRepository(cfg RepositoryConfig) (*Repository, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Repository{
		reports: make(map[string]model.RunReport),
		logger:  cfg.Logger,
	}, nil
}

var _ storage.RunRepository = &Repository{}

// SaveRunReport stores a new run report.
func (r *Repository) SaveRunReport(ctx context.Context, rep model.RunReport) error {
	if err := rep.Validate(); err != nil {
		return fmt.Errorf("invalid run report: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.reports[rep.ID]; ok {
		return fmt.Errorf("run report %s: %w", rep.ID, model.ErrAlreadyExists)
	}

	rep.Items = append([]model.ItemResult{}, rep.Items...)
	r.reports[rep.ID] = rep
	r.logger.Debugf("Saved run report in repository: %s", rep.ID)

	return nil
}

// GetRunReport retrieves a run report by ID.
func (r *Repository) GetRunReport(ctx context.Context, id string) (*model.RunReport, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rep, ok := r.reports[id]
	if !ok {
		return nil, fmt.Errorf("run report %s: %w", id, model.ErrNotFound)
	}

	rep.Items = append([]model.ItemResult{}, rep.Items...)
	return &rep, nil
}

// ListRunReports returns the run reports, newest first.
func (r *Repository) ListRunReports(ctx context.Context, opts storage.ListRunReportsOpts) ([]model.RunReport, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	reports := make([]model.RunReport, 0, len(r.reports))
	for _, rep := range r.reports {
		if opts.Action != "" && rep.Action != opts.Action {
			continue
		}
		rep.Items = append([]model.ItemResult{}, rep.Items...)
		reports = append(reports, rep)
	}

	sort.Slice(reports, func(i, j int) bool {
		if !reports[i].StartedAt.Equal(reports[j].StartedAt) {
			return reports[i].StartedAt.After(reports[j].StartedAt)
		}
		return reports[i].ID > reports[j].ID
	})

	if opts.Limit > 0 && len(reports) > opts.Limit {
		reports = reports[:opts.Limit]
	}

	return reports, nil
}
