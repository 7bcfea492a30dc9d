package batch

import (
	"context"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/slok/bulkr/internal/action"
	"github.com/slok/bulkr/internal/imageproxy"
	"github.com/slok/bulkr/internal/log"
	"github.com/slok/bulkr/internal/model"
	"github.com/slok/bulkr/internal/pace"
	"github.com/slok/bulkr/internal/progress"
	"github.com/slok/bulkr/internal/storage"
)

// ServiceConfig is the configuration for the batch service.
type ServiceConfig struct {
	Executors action.Registry
	// Repository stores the report of finished runs, optional.
	Repository storage.RunRepository
	// ItemPauser pauses between items, defaults to no pause.
	ItemPauser pace.Pauser
	// FailurePauser pauses after an item failure, defaults to 1.5s.
	FailurePauser pace.Pauser
	NewRunID      func() string
	Now           func() time.Time
	Logger        log.Logger
}

func (c *ServiceConfig) defaults() error {
	if len(c.Executors) == 0 {
		return fmt.Errorf("executors are required")
	}

	if c.ItemPauser == nil {
		c.ItemPauser = pace.Noop
	}

	if c.FailurePauser == nil {
		c.FailurePauser = pace.Fixed(1500 * time.Millisecond)
	}

	if c.NewRunID == nil {
		c.NewRunID = func() string { return ulid.Make().String() }
	}

	if c.Now == nil {
		c.Now = time.Now
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.Batch"})

	return nil
}

// Service runs batches of one action over a list of items.
type Service struct {
	executors     action.Registry
	repo          storage.RunRepository
	itemPauser    pace.Pauser
	failurePauser pace.Pauser
	newRunID      func() string
	now           func() time.Time
	logger        log.Logger
}

// NewService creates a new batch service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		executors:     cfg.Executors,
		repo:          cfg.Repository,
		itemPauser:    cfg.ItemPauser,
		failurePauser: cfg.FailurePauser,
		newRunID:      cfg.NewRunID,
		now:           cfg.Now,
		logger:        cfg.Logger,
	}, nil
}

// Request contains the parameters of a batch run.
type Request struct {
	Items       []model.TargetItem
	Action      model.ActionKind
	Credentials model.Credentials
	// StopRequested is the cooperative stop predicate, once true it must stay true.
	StopRequested func() bool
	Observer      Observer
}

func (r *Request) validate() error {
	if len(r.Items) == 0 {
		return fmt.Errorf("select at least one item: %w", model.ErrNotValid)
	}

	for i, it := range r.Items {
		if err := it.Validate(); err != nil {
			return fmt.Errorf("item %d: %w", i, err)
		}
	}

	if !r.Action.Valid() {
		return fmt.Errorf("unknown action %q: %w", r.Action, model.ErrNotValid)
	}

	if err := r.Credentials.Validate(); err != nil {
		return fmt.Errorf("invalid credentials: %w", err)
	}

	// Reposts fetch every image through the proxy, there is no point in starting without one.
	if r.Action == model.ActionKindRepost {
		if err := imageproxy.ValidateProxyURL(r.Credentials.ProxyURL); err != nil {
			return err
		}
	}

	if r.StopRequested == nil {
		r.StopRequested = func() bool { return false }
	}

	if r.Observer == nil {
		r.Observer = NoopObserver
	}

	return nil
}

// Run runs the batch. Items are processed sequentially until all of them are processed,
// the user requests the stop or the marketplace rate limits us.
// Only invalid requests return an error, the run result is always the returned report.
func (s *Service) Run(ctx context.Context, req Request) (*model.RunReport, error) {
	if err := req.validate(); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}

	report := &model.RunReport{
		ID:        s.newRunID(),
		Action:    req.Action,
		Items:     []model.ItemResult{},
		StartedAt: s.now(),
	}
	logger := s.logger.WithValues(log.Kv{"run-id": report.ID, "action": req.Action})
	logger.Infof("Starting batch of %d items", len(req.Items))

	report.Status = s.run(ctx, logger, req, report)
	report.FinishedAt = s.now()

	req.Observer.OnFinish(report.Status)
	logger.Infof("Batch finished: %d of %d completed (stop reason: %s)", report.Status.Completed, report.Status.Total, report.Status.StopReason)

	if s.repo != nil {
		if err := s.repo.SaveRunReport(ctx, *report); err != nil {
			logger.Errorf("Could not store run report: %s", err)
		}
	}

	return report, nil
}

func (s *Service) run(ctx context.Context, logger log.Logger, req Request, report *model.RunReport) model.FinalStatus {
	exec := s.executors.For(req.Action)
	projector := progress.NewProjector(len(req.Items))
	status := model.FinalStatus{Total: len(req.Items), StopReason: model.StopReasonNone}

	for i, item := range req.Items {
		if req.StopRequested() {
			logger.Infof("Stop requested before item %d", i)
			status.StopReason = model.StopReasonUser
			return status
		}

		req.Observer.OnProgress(projector.Enter(i))

		itemLogger := logger.WithValues(log.Kv{"item-id": item.ID})
		itemLogger.Debugf("Processing item %s", progress.Label(i, len(req.Items)))

		outcome := exec.Execute(ctx, action.Request{
			Item:        item,
			Credentials: req.Credentials,
			Stopped:     req.StopRequested,
			OnProgress:  func(f float64) { req.Observer.OnProgress(projector.Step(i, f)) },
		})
		report.Items = append(report.Items, itemResult(item, outcome))

		switch {
		case outcome.Success:
			status.Completed++
			req.Observer.OnProgress(projector.Step(i, 1))

		case outcome.RateLimited():
			itemLogger.Warningf("Rate limited, stopping batch: %s", outcome.Err)
			status.StopReason = model.StopReasonRateLimit
			return status

		case outcome.Error == model.ErrorKindCancelled:
			itemLogger.Infof("Stop requested while processing item")
			status.StopReason = model.StopReasonUser
			return status

		default:
			itemLogger.Warningf("Item failed (%s): %s", outcome.Error, outcome.Err)
			req.Observer.OnItemFailed(i, item, outcome)
			req.Observer.OnProgress(projector.Step(i, 1))
			s.failurePauser.Pause(ctx)
		}

		if i < len(req.Items)-1 {
			s.itemPauser.Pause(ctx)
		}
	}

	return status
}

func itemResult(item model.TargetItem, o model.Outcome) model.ItemResult {
	r := model.ItemResult{
		ItemID:    item.ID,
		Success:   o.Success,
		ErrorKind: o.Error,
	}
	if o.Err != nil {
		r.Error = o.Err.Error()
	}
	return r
}
