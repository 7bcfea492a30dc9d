package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/bulkr/internal/app/search"
)

type SearchCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	keyword  string
	userID   string
	quantity int
	format   string
}

// NewSearchCommand returns the search command.
func NewSearchCommand(rootCmd *RootCommand, app *kingpin.Application) *SearchCommand {
	c := &SearchCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("search", "Find the items a batch would run over.")
	c.Cmd.Flag("keyword", "Catalog search keyword.").StringVar(&c.keyword)
	c.Cmd.Flag("user", "User ID whose wardrobe items are listed.").StringVar(&c.userID)
	c.Cmd.Flag("quantity", "Max number of items (required with --keyword).").IntVar(&c.quantity)
	c.Cmd.Flag("format", "Output format (table, json).").Default(outputTable).EnumVar(&c.format, outputTable, outputJSON)

	return c
}

func (c SearchCommand) Name() string { return c.Cmd.FullCommand() }

func (c SearchCommand) Run(ctx context.Context) error {
	creds, err := c.rootCmd.Credentials(ctx)
	if err != nil {
		return err
	}

	client, _, err := c.rootCmd.Marketplace()
	if err != nil {
		return err
	}

	svc, err := search.NewService(search.ServiceConfig{Client: client, Logger: c.rootCmd.Logger})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	items, err := svc.Run(ctx, search.Request{
		Keyword:     c.keyword,
		UserID:      c.userID,
		Quantity:    c.quantity,
		Credentials: creds,
	})
	if err != nil {
		return fmt.Errorf("could not search items: %w", err)
	}

	if err := newPrinter(c.format, c.rootCmd.Stdout).PrintItems(items); err != nil {
		return fmt.Errorf("could not print items: %w", err)
	}

	return nil
}
