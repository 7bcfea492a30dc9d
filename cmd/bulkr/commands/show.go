package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/bulkr/internal/app/history"
	"github.com/slok/bulkr/internal/storage/sqlite"
)

type ShowCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	id     string
	format string
}

// NewShowCommand returns the show command.
func NewShowCommand(rootCmd *RootCommand, app *kingpin.Application) *ShowCommand {
	c := &ShowCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("show", "Show the report of a batch run.")
	c.Cmd.Arg("id", "Run ID.").Required().StringVar(&c.id)
	c.Cmd.Flag("format", "Output format (table, json).").Default(outputTable).EnumVar(&c.format, outputTable, outputJSON)

	return c
}

func (c ShowCommand) Name() string { return c.Cmd.FullCommand() }

func (c ShowCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger

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

	report, err := svc.Get(ctx, c.id)
	if err != nil {
		return fmt.Errorf("could not get report: %w", err)
	}

	if err := newPrinter(c.format, c.rootCmd.Stdout).PrintRunReport(*report); err != nil {
		return fmt.Errorf("could not print report: %w", err)
	}

	return nil
}
