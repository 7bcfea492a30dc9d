package history

import (
	"context"
	"fmt"
	"strings"

	"github.com/slok/bulkr/internal/log"
	"github.com/slok/bulkr/internal/model"
	"github.com/slok/bulkr/internal/storage"
)

// ServiceConfig is the configuration for the history service.
type ServiceConfig struct {
	Repository storage.RunRepository
	Logger     log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.Repository == nil {
		return fmt.Errorf("repository is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.History"})
	return nil
}

// Service reads the reports of finished batch runs.
type Service struct {
	repo   storage.RunRepository
	logger log.Logger
}

// NewService creates a new history service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		repo:   cfg.Repository,
		logger: cfg.Logger,
	}, nil
}

// ListRequest contains the parameters for listing run reports.
type ListRequest struct {
	Action model.ActionKind
	Limit  int
}

// List returns the run reports, newest first.
func (s *Service) List(ctx context.Context, req ListRequest) ([]model.RunReport, error) {
	if req.Action != "" && !req.Action.Valid() {
		return nil, fmt.Errorf("unknown action %q: %w", req.Action, model.ErrNotValid)
	}
	if req.Limit < 0 {
		return nil, fmt.Errorf("limit can't be negative: %w", model.ErrNotValid)
	}

	reports, err := s.repo.ListRunReports(ctx, storage.ListRunReportsOpts{Action: req.Action, Limit: req.Limit})
	if err != nil {
		return nil, fmt.Errorf("could not list run reports: %w", err)
	}

	return reports, nil
}

// Get returns one run report.
func (s *Service) Get(ctx context.Context, id string) (*model.RunReport, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("run id is required: %w", model.ErrNotValid)
	}

	r, err := s.repo.GetRunReport(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("could not get run report: %w", err)
	}

	return r, nil
}
