package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/bulkr/internal/action"
	"github.com/slok/bulkr/internal/action/repost"
	"github.com/slok/bulkr/internal/app/batch"
	"github.com/slok/bulkr/internal/app/search"
	"github.com/slok/bulkr/internal/imageproxy"
	"github.com/slok/bulkr/internal/marketplace"
	"github.com/slok/bulkr/internal/model"
	"github.com/slok/bulkr/internal/pace"
	"github.com/slok/bulkr/internal/printer"
	"github.com/slok/bulkr/internal/storage"
	storageio "github.com/slok/bulkr/internal/storage/io"
	"github.com/slok/bulkr/internal/storage/sqlite"
)

type RunCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	action       string
	itemsFile    string
	itemIDs      []string
	keyword      string
	userID       string
	quantity     int
	minPause     time.Duration
	maxPause     time.Duration
	failurePause time.Duration
	publishFirst bool
	noHistory    bool
	noProgress   bool
	format       string
}

// NewRunCommand returns the run command.
func NewRunCommand(rootCmd *RootCommand, app *kingpin.Application) *RunCommand {
	c := &RunCommand{rootCmd: rootCmd}

	actions := []string{}
	for _, k := range model.ActionKinds() {
		actions = append(actions, string(k))
	}

	c.Cmd = app.Command("run", "Run a batch action over a list of items.")
	c.Cmd.Flag("action", "Action applied to every item.").Short('a').Required().EnumVar(&c.action, actions...)
	c.Cmd.Flag("items-file", "YAML file with the items.").StringVar(&c.itemsFile)
	c.Cmd.Flag("item", "Item ID (repeatable).").StringsVar(&c.itemIDs)
	c.Cmd.Flag("keyword", "Use the catalog items matching a keyword.").StringVar(&c.keyword)
	c.Cmd.Flag("user", "Use the items of a user wardrobe.").StringVar(&c.userID)
	c.Cmd.Flag("quantity", "Max number of items from keyword or user searches.").IntVar(&c.quantity)
	c.Cmd.Flag("min-pause", "Min pause between remote calls.").Default("200ms").DurationVar(&c.minPause)
	c.Cmd.Flag("max-pause", "Max pause between remote calls.").Default("1200ms").DurationVar(&c.maxPause)
	c.Cmd.Flag("failure-pause", "Pause after a failed item.").Default("1500ms").DurationVar(&c.failurePause)
	c.Cmd.Flag("publish-first", "On reposts, publish the new listing before deleting the source one.").BoolVar(&c.publishFirst)
	c.Cmd.Flag("no-history", "Don't store the run report.").BoolVar(&c.noHistory)
	c.Cmd.Flag("no-progress", "Don't render the progress bar.").BoolVar(&c.noProgress)
	c.Cmd.Flag("format", "Output format (table, json).").Default(outputTable).EnumVar(&c.format, outputTable, outputJSON)

	return c
}

func (c RunCommand) Name() string { return c.Cmd.FullCommand() }

func (c RunCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger

	creds, err := c.rootCmd.Credentials(ctx)
	if err != nil {
		return err
	}

	client, fetcher, err := c.rootCmd.Marketplace()
	if err != nil {
		return err
	}

	items, err := c.items(ctx, client, creds)
	if err != nil {
		return fmt.Errorf("could not get items: %w", err)
	}

	registry, err := c.executors(client, fetcher)
	if err != nil {
		return err
	}

	itemPauser, err := pace.NewJitter(pace.JitterConfig{Min: c.minPause, Max: c.maxPause})
	if err != nil {
		return fmt.Errorf("invalid pauses: %w", err)
	}

	var repo storage.RunRepository
	if !c.noHistory {
		sqliteRepo, err := sqlite.NewRepository(ctx, sqlite.RepositoryConfig{
			DBPath: c.rootCmd.DBPath,
			Logger: logger,
		})
		if err != nil {
			return fmt.Errorf("could not create repository: %w", err)
		}
		defer sqliteRepo.Close()
		repo = sqliteRepo
	}

	svc, err := batch.NewService(batch.ServiceConfig{
		Executors:     registry,
		Repository:    repo,
		ItemPauser:    itemPauser,
		FailurePauser: pace.Fixed(c.failurePause),
		Logger:        logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	var observer batch.Observer = batch.NoopObserver
	if !c.noProgress {
		observer = printer.NewProgressBar(c.rootCmd.Stderr)
	}

	// The signal cancels ctx, that only stops the batch at the next item or step boundary,
	// the in flight remote calls are never interrupted.
	report, err := svc.Run(context.WithoutCancel(ctx), batch.Request{
		Items:         items,
		Action:        model.ActionKind(c.action),
		Credentials:   creds,
		StopRequested: func() bool { return ctx.Err() != nil },
		Observer:      observer,
	})
	if err != nil {
		return fmt.Errorf("could not run batch: %w", err)
	}

	if err := newPrinter(c.format, c.rootCmd.Stdout).PrintRunReport(*report); err != nil {
		return fmt.Errorf("could not print report: %w", err)
	}

	return nil
}

func (c RunCommand) executors(client marketplace.Client, fetcher imageproxy.Fetcher) (action.Registry, error) {
	logger := c.rootCmd.Logger

	like, err := action.NewLike(action.SingleCallConfig{Client: client, Logger: logger})
	if err != nil {
		return nil, fmt.Errorf("could not create like action: %w", err)
	}

	follow, err := action.NewFollow(action.SingleCallConfig{Client: client, Logger: logger})
	if err != nil {
		return nil, fmt.Errorf("could not create follow action: %w", err)
	}

	stepPauser, err := pace.NewJitter(pace.JitterConfig{Min: c.minPause, Max: c.maxPause})
	if err != nil {
		return nil, fmt.Errorf("invalid pauses: %w", err)
	}

	rp, err := repost.NewWorkflow(repost.WorkflowConfig{
		Client:              client,
		ImageFetcher:        fetcher,
		Pauser:              stepPauser,
		PublishBeforeDelete: c.publishFirst,
		Logger:              logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create repost action: %w", err)
	}

	// Noop has no executor, it falls back to the unsupported one.
	return action.Registry{
		model.ActionKindRepost: rp,
		model.ActionKindLike:   like,
		model.ActionKindFollow: follow,
	}, nil
}

// items resolves the batch items from exactly one of the item sources.
func (c RunCommand) items(ctx context.Context, client marketplace.Client, creds model.Credentials) ([]model.TargetItem, error) {
	sources := 0
	for _, set := range []bool{c.itemsFile != "", len(c.itemIDs) > 0, c.keyword != "" || c.userID != ""} {
		if set {
			sources++
		}
	}
	if sources != 1 {
		return nil, fmt.Errorf("use one of --items-file, --item or --keyword/--user: %w", model.ErrNotValid)
	}

	switch {
	case c.itemsFile != "":
		path, err := filepath.Abs(c.itemsFile)
		if err != nil {
			return nil, fmt.Errorf("could not resolve items file path: %w", err)
		}
		return storageio.NewItemsYAMLRepository(os.DirFS("/")).GetItems(ctx, path[1:])

	case len(c.itemIDs) > 0:
		items := make([]model.TargetItem, 0, len(c.itemIDs))
		for _, id := range c.itemIDs {
			items = append(items, model.TargetItem{ID: id})
		}
		return items, nil
	}

	svc, err := search.NewService(search.ServiceConfig{Client: client, Logger: c.rootCmd.Logger})
	if err != nil {
		return nil, fmt.Errorf("could not create search service: %w", err)
	}

	return svc.Run(ctx, search.Request{
		Keyword:     c.keyword,
		UserID:      c.userID,
		Quantity:    c.quantity,
		Credentials: creds,
	})
}
