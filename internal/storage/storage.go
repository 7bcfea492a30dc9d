package storage

import (
	"context"

	"github.com/slok/bulkr/internal/model"
)

// ListRunReportsOpts are the options to filter the listed run reports.
type ListRunReportsOpts struct {
	// Action filters by action kind, empty means all.
	Action model.ActionKind
	// Limit is the max number of reports returned, 0 means no limit.
	Limit int
}

// RunRepository is the interface for the finished batch runs history.
// Reports are listed from newest to oldest.
type RunRepository interface {
	SaveRunReport(ctx context.Context, r model.RunReport) error
	GetRunReport(ctx context.Context, id string) (*model.RunReport, error)
	ListRunReports(ctx context.Context, opts ListRunReportsOpts) ([]model.RunReport, error)
}

// ItemsRepository loads batch target items.
type ItemsRepository interface {
	GetItems(ctx context.Context, path string) ([]model.TargetItem, error)
}

// CredentialsRepository loads marketplace session credentials.
type CredentialsRepository interface {
	GetCredentials(ctx context.Context, path string) (model.Credentials, error)
}
