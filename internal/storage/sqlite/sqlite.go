package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/slok/bulkr/internal/log"
	"github.com/slok/bulkr/internal/model"
	"github.com/slok/bulkr/internal/storage"
	"github.com/slok/bulkr/internal/storage/sqlite/migrations"
)

// RepositoryConfig is the configuration for the SQLite repository.
type RepositoryConfig struct {
	DBPath string
	Logger log.Logger
}

func (c *RepositoryConfig) defaults() error {
	if c.DBPath == "" {
		return fmt.Errorf("db path is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "storage.SQLite"})
	return nil
}

// Repository is a SQLite implementation of storage.RunRepository.
type Repository struct {
	db     *sql.DB
	logger log.Logger
}

// NewRepository creates a new SQLite repository.
func NewRepository(ctx context.Context, cfg RepositoryConfig) (*Repository, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	dir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("could not create db directory: %w", err)
	}

	dsn := fmt.Sprintf("%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)", cfg.DBPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("could not open database: %w", err)
	}

	migrator, err := migrations.NewMigrator(db, cfg.Logger)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("could not create migrator: %w", err)
	}
	if err := migrator.Up(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("could not run migrations: %w", err)
	}

	cfg.Logger.Debugf("SQLite repository initialized at %s", cfg.DBPath)

	return &Repository{db: db, logger: cfg.Logger}, nil
}

var _ storage.RunRepository = &Repository{}

// Close closes the database connection.
func (r *Repository) Close() error { return r.db.Close() }

// SaveRunReport stores a new run report with its item results.
func (r *Repository) SaveRunReport(ctx context.Context, rep model.RunReport) error {
	if err := rep.Validate(); err != nil {
		return fmt.Errorf("invalid run report: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO run_reports (
			id, action,
			completed, total, stop_reason,
			started_at, finished_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		rep.ID,
		rep.Action,
		rep.Status.Completed,
		rep.Status.Total,
		rep.Status.StopReason,
		rep.StartedAt.Unix(),
		rep.FinishedAt.Unix(),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed: run_reports.") {
			return fmt.Errorf("run report already exists: %w", model.ErrAlreadyExists)
		}
		return fmt.Errorf("could not insert run report: %w", err)
	}

	for i, it := range rep.Items {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO run_items (run_id, position, item_id, success, error_kind, error)
			VALUES (?, ?, ?, ?, ?, ?)
		`, rep.ID, i, it.ItemID, it.Success, it.ErrorKind, it.Error)
		if err != nil {
			return fmt.Errorf("could not insert run item %s: %w", it.ItemID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("could not commit run report: %w", err)
	}

	r.logger.Debugf("Saved run report in repository: %s", rep.ID)
	return nil
}

// GetRunReport retrieves a run report by ID.
func (r *Repository) GetRunReport(ctx context.Context, id string) (*model.RunReport, error) {
	query := `
		SELECT
			id, action,
			completed, total, stop_reason,
			started_at, finished_at
		FROM run_reports
		WHERE id = ?
	`

	rep, err := r.scanRow(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("run report %s: %w", id, model.ErrNotFound)
		}
		return nil, fmt.Errorf("could not query run report: %w", err)
	}

	items, err := r.items(ctx, id)
	if err != nil {
		return nil, err
	}
	rep.Items = items

	return &rep, nil
}

// ListRunReports returns the run reports, newest first.
func (r *Repository) ListRunReports(ctx context.Context, opts storage.ListRunReportsOpts) ([]model.RunReport, error) {
	query := `
		SELECT
			id, action,
			completed, total, stop_reason,
			started_at, finished_at
		FROM run_reports
		WHERE (? = '' OR action = ?)
		ORDER BY started_at DESC, id DESC
	`
	args := []any{opts.Action, opts.Action}
	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("could not query run reports: %w", err)
	}
	defer rows.Close()

	reports := []model.RunReport{}
	for rows.Next() {
		rep, err := r.scanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("could not scan row: %w", err)
		}
		reports = append(reports, rep)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	rows.Close()

	for i := range reports {
		items, err := r.items(ctx, reports[i].ID)
		if err != nil {
			return nil, err
		}
		reports[i].Items = items
	}

	return reports, nil
}

func (r *Repository) items(ctx context.Context, runID string) ([]model.ItemResult, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT item_id, success, error_kind, error
		FROM run_items
		WHERE run_id = ?
		ORDER BY position ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("could not query run items: %w", err)
	}
	defer rows.Close()

	items := []model.ItemResult{}
	for rows.Next() {
		var it model.ItemResult
		if err := rows.Scan(&it.ItemID, &it.Success, &it.ErrorKind, &it.Error); err != nil {
			return nil, fmt.Errorf("could not scan run item: %w", err)
		}
		items = append(items, it)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating run item rows: %w", err)
	}

	return items, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func (r *Repository) scanRow(s scanner) (model.RunReport, error) {
	var rep model.RunReport
	var startedAt, finishedAt int64

	err := s.Scan(
		&rep.ID,
		&rep.Action,
		&rep.Status.Completed,
		&rep.Status.Total,
		&rep.Status.StopReason,
		&startedAt,
		&finishedAt,
	)
	if err != nil {
		return model.RunReport{}, err
	}

	rep.StartedAt = timeFromUnix(startedAt)
	rep.FinishedAt = timeFromUnix(finishedAt)

	return rep, nil
}

func timeFromUnix(unix int64) time.Time { return time.Unix(unix, 0).UTC() }
