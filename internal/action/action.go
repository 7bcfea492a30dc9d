package action

import (
	"context"
	"fmt"

	"github.com/slok/bulkr/internal/log"
	"github.com/slok/bulkr/internal/marketplace"
	"github.com/slok/bulkr/internal/model"
)

// ProgressFunc receives the intra item progress as a fraction in [0, 1].
type ProgressFunc func(fraction float64)

// StopFunc returns true once the user requested to stop, it stays true afterwards.
type StopFunc func() bool

// Request is the request of an executor for a single item.
type Request struct {
	Item        model.TargetItem
	Credentials model.Credentials
	// Stopped is polled by multi step executors between steps, optional.
	Stopped StopFunc
	// OnProgress receives intra item progress of multi step executors, optional.
	OnProgress ProgressFunc
}

// StopRequested returns true if the request has a stop predicate and it's true.
func (r Request) StopRequested() bool {
	return r.Stopped != nil && r.Stopped()
}

// Progress reports intra item progress if the request has a progress func.
func (r Request) Progress(fraction float64) {
	if r.OnProgress != nil {
		r.OnProgress(fraction)
	}
}

// Executor executes one action kind on an item.
//
// A "too many requests" answer must be returned as an outcome with the rate
// limit kind, never as another failure kind.
type Executor interface {
	Execute(ctx context.Context, req Request) model.Outcome
}

// ExecutorFunc is a helper to use functions as executors.
type ExecutorFunc func(ctx context.Context, req Request) model.Outcome

// Execute satisfies Executor.
func (e ExecutorFunc) Execute(ctx context.Context, req Request) model.Outcome {
	return e(ctx, req)
}

// Unsupported is the executor used for action kinds without a remote effect, it always fails.
var Unsupported Executor = ExecutorFunc(func(_ context.Context, req Request) model.Outcome {
	return model.OutcomeFromError(fmt.Errorf("item %s: %w", req.Item.ID, model.ErrUnsupported))
})

// Registry maps action kinds to their executors.
type Registry map[model.ActionKind]Executor

// For returns the executor of an action kind, kinds without executor get Unsupported.
func (r Registry) For(kind model.ActionKind) Executor {
	if e, ok := r[kind]; ok && e != nil {
		return e
	}
	return Unsupported
}

// SingleCallConfig is the configuration of the single call executors.
type SingleCallConfig struct {
	Client marketplace.Client
	Logger log.Logger
}

func (c *SingleCallConfig) defaults() error {
	if c.Client == nil {
		return fmt.Errorf("marketplace client is required")
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}

	return nil
}

// Like likes (toggles favourite on) the item.
type Like struct {
	client marketplace.Client
	logger log.Logger
}

// NewLike returns a new like executor.
func NewLike(cfg SingleCallConfig) (*Like, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Like{
		client: cfg.Client,
		logger: cfg.Logger.WithValues(log.Kv{"svc": "action.Like"}),
	}, nil
}

// Execute satisfies Executor.
func (l *Like) Execute(ctx context.Context, req Request) model.Outcome {
	if err := l.client.ToggleFavourite(ctx, req.Credentials, req.Item.ID); err != nil {
		return model.OutcomeFromError(fmt.Errorf("could not like item %s: %w", req.Item.ID, err))
	}

	l.logger.Debugf("Liked item %s", req.Item.ID)
	return model.OutcomeSuccess()
}

// Follow follows the owner of the item.
type Follow struct {
	client marketplace.Client
	logger log.Logger
}

// NewFollow returns a new follow executor.
func NewFollow(cfg SingleCallConfig) (*Follow, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Follow{
		client: cfg.Client,
		logger: cfg.Logger.WithValues(log.Kv{"svc": "action.Follow"}),
	}, nil
}

// Execute satisfies Executor.
// The owner of the item is followed, items without owner are users themselves.
func (f *Follow) Execute(ctx context.Context, req Request) model.Outcome {
	userID := req.Item.OwnerID
	if userID == "" {
		userID = req.Item.ID
	}

	if err := f.client.ToggleFollow(ctx, req.Credentials, userID); err != nil {
		return model.OutcomeFromError(fmt.Errorf("could not follow user %s: %w", userID, err))
	}

	f.logger.Debugf("Followed user %s", userID)
	return model.OutcomeSuccess()
}
