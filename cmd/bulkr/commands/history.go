package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/bulkr/internal/app/history"
	"github.com/slok/bulkr/internal/model"
	"github.com/slok/bulkr/internal/storage/sqlite"
)

type HistoryCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	action string
	limit  int
	format string
}

// NewHistoryCommand returns the history command.
func NewHistoryCommand(rootCmd *RootCommand, app *kingpin.Application) *HistoryCommand {
	c := &HistoryCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("history", "List the reports of past batch runs.")
	c.Cmd.Flag("action", "Filter by action (repost, like, follow, noop).").StringVar(&c.action)
	c.Cmd.Flag("limit", "Max number of reports (0 lists all).").Default("20").IntVar(&c.limit)
	c.Cmd.Flag("format", "Output format (table, json).").Default(outputTable).EnumVar(&c.format, outputTable, outputJSON)

	return c
}

func (c HistoryCommand) Name() string { return c.Cmd.FullCommand() }

func (c HistoryCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger

	var action model.ActionKind
	if c.action != "" {
		a, err := model.ParseActionKind(c.action)
		if err != nil {
			return fmt.Errorf("invalid action filter: %w", err)
		}
		action = a
	}

	repo, err := sqlite.NewRepository(ctx, sqlite.RepositoryConfig{
		DBPath: c.rootCmd.DBPath,
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("could not create repository: %w", err)
	}
	defer repo.Close()

	svc, err := history.NewService(history.ServiceConfig{Repository: repo, Logger: logger})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	reports, err := svc.List(ctx, history.ListRequest{Action: action, Limit: c.limit})
	if err != nil {
		return fmt.Errorf("could not list reports: %w", err)
	}

	if err := newPrinter(c.format, c.rootCmd.Stdout).PrintRunReportList(reports); err != nil {
		return fmt.Errorf("could not print reports: %w", err)
	}

	return nil
}
