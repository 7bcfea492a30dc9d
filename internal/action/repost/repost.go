package repost

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/slok/bulkr/internal/action"
	"github.com/slok/bulkr/internal/imageproxy"
	"github.com/slok/bulkr/internal/log"
	"github.com/slok/bulkr/internal/marketplace"
	"github.com/slok/bulkr/internal/model"
	"github.com/slok/bulkr/internal/pace"
)

// Step is a step of the repost workflow.
type Step int

const (
	StepFetchSource Step = iota + 1
	StepUploadImages
	StepBuildDraft
	StepCreateDraft
	StepFetchDraft
	StepBuildCompletion
	StepDeleteSource
	StepPublishDraft
)

// StepCount is the number of steps of a repost.
const StepCount = 8

func (s Step) String() string {
	switch s {
	case StepFetchSource:
		return "fetch-source"
	case StepUploadImages:
		return "upload-images"
	case StepBuildDraft:
		return "build-draft"
	case StepCreateDraft:
		return "create-draft"
	case StepFetchDraft:
		return "fetch-draft"
	case StepBuildCompletion:
		return "build-completion"
	case StepDeleteSource:
		return "delete-source"
	case StepPublishDraft:
		return "publish-draft"
	}
	return "unknown"
}

// WorkflowConfig is the configuration of the repost workflow.
type WorkflowConfig struct {
	Client       marketplace.Client
	ImageFetcher imageproxy.Fetcher
	// Pauser pauses between remote calls, defaults to a 200ms-1200ms jitter.
	Pauser pace.Pauser
	// PublishBeforeDelete publishes the new listing before deleting the source one.
	// A failed publish leaves the source untouched, at the cost of a short window
	// with both listings live.
	PublishBeforeDelete bool
	// NewCorrelationToken returns the token that links uploaded photos with the draft.
	NewCorrelationToken func() string
	Logger              log.Logger
}

func (c *WorkflowConfig) defaults() error {
	if c.Client == nil {
		return fmt.Errorf("marketplace client is required")
	}

	if c.ImageFetcher == nil {
		return fmt.Errorf("image fetcher is required")
	}

	if c.Pauser == nil {
		p, err := pace.NewJitter(pace.JitterConfig{
			Min: 200 * time.Millisecond,
			Max: 1200 * time.Millisecond,
		})
		if err != nil {
			return fmt.Errorf("could not create pauser: %w", err)
		}
		c.Pauser = p
	}

	if c.NewCorrelationToken == nil {
		c.NewCorrelationToken = uuid.NewString
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}

	return nil
}

// Workflow reposts a listing: the listing is cloned into a new draft with the same
// photos and data, the draft is published and the source listing is deleted.
type Workflow struct {
	client              marketplace.Client
	fetcher             imageproxy.Fetcher
	pauser              pace.Pauser
	publishBeforeDelete bool
	newToken            func() string
	logger              log.Logger
}

// NewWorkflow returns a new repost workflow.
func NewWorkflow(cfg WorkflowConfig) (*Workflow, error) {
	err := cfg.defaults()
	if err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Workflow{
		client:              cfg.Client,
		fetcher:             cfg.ImageFetcher,
		pauser:              cfg.Pauser,
		publishBeforeDelete: cfg.PublishBeforeDelete,
		newToken:            cfg.NewCorrelationToken,
		logger:              cfg.Logger.WithValues(log.Kv{"svc": "repost.Workflow"}),
	}, nil
}

var _ action.Executor = &Workflow{}

// Execute satisfies action.Executor.
func (w *Workflow) Execute(ctx context.Context, req action.Request) model.Outcome {
	_, err := w.Run(ctx, req)
	return model.OutcomeFromError(err)
}

type state struct {
	req        action.Request
	token      string
	source     *marketplace.Listing
	photoIDs   []string
	draft      marketplace.DraftPayload
	draftID    string
	draftData  *marketplace.Listing
	completion marketplace.CompletionPayload
	published  json.RawMessage
}

type stepRun struct {
	step Step
	run  func(ctx context.Context, st *state) error
	// checkStop polls the stop request once the step finished.
	checkStop bool
	// pause pauses once the step finished.
	pause bool
}

func (w *Workflow) steps() []stepRun {
	steps := []stepRun{
		{step: StepFetchSource, run: w.fetchSource, checkStop: true, pause: true},
		{step: StepUploadImages, run: w.uploadImages, checkStop: true, pause: true},
		{step: StepBuildDraft, run: w.buildDraft},
		{step: StepCreateDraft, run: w.createDraft, checkStop: true, pause: true},
		{step: StepFetchDraft, run: w.fetchDraft, checkStop: true},
		{step: StepBuildCompletion, run: w.buildCompletion, checkStop: true, pause: true},
	}

	// Once the source is deleted or the new listing is live, the workflow never
	// stops before finishing.
	deleteStep := stepRun{step: StepDeleteSource, run: w.deleteSource, pause: true}
	publishStep := stepRun{step: StepPublishDraft, run: w.publishDraft}
	if w.publishBeforeDelete {
		publishStep.pause = true
		deleteStep.pause = false
		return append(steps, publishStep, deleteStep)
	}

	return append(steps, deleteStep, publishStep)
}

// Run runs the repost workflow and returns the publish response of the new listing.
// Any step failure aborts the workflow, there is no rollback of the finished steps.
func (w *Workflow) Run(ctx context.Context, req action.Request) (json.RawMessage, error) {
	if err := imageproxy.ValidateProxyURL(req.Credentials.ProxyURL); err != nil {
		return nil, fmt.Errorf("invalid proxy url: %w", err)
	}

	logger := w.logger.WithValues(log.Kv{"item-id": req.Item.ID})
	st := &state{req: req, token: w.newToken()}

	steps := w.steps()
	for i, s := range steps {
		logger.Debugf("Running repost step %s", s.step)
		if err := s.run(ctx, st); err != nil {
			return nil, fmt.Errorf("repost step %s failed: %w", s.step, err)
		}

		req.Progress(float64(i+1) / float64(len(steps)))

		if s.checkStop && req.StopRequested() {
			return nil, fmt.Errorf("repost stopped after %s step: %w", s.step, model.ErrCancelled)
		}

		if s.pause {
			w.pauser.Pause(ctx)
		}
	}

	logger.Infof("Item reposted")
	return st.published, nil
}

func (w *Workflow) fetchSource(ctx context.Context, st *state) error {
	l, err := w.client.GetListing(ctx, st.req.Credentials, st.req.Item.ID)
	if err != nil {
		return fmt.Errorf("could not get source listing: %w", err)
	}
	st.source = l

	return nil
}

// uploadImages uploads every source photo, a photo that fails to be fetched or
// uploaded is skipped unless the failure is a rate limit.
func (w *Workflow) uploadImages(ctx context.Context, st *state) error {
	st.photoIDs = []string{}
	for _, p := range st.source.Photos {
		if p.FullSizeURL == "" {
			continue
		}

		id, err := w.uploadImage(ctx, st, p.FullSizeURL)
		if err != nil {
			if model.ErrorKindOf(err) == model.ErrorKindRateLimit {
				return err
			}
			w.logger.Warningf("Skipping photo %s of item %s: %s", p.ID, st.req.Item.ID, err)
			continue
		}

		st.photoIDs = append(st.photoIDs, id)
		w.pauser.Pause(ctx)
	}

	return nil
}

func (w *Workflow) uploadImage(ctx context.Context, st *state, url string) (string, error) {
	data, err := w.fetcher.FetchBytes(ctx, st.req.Credentials.ProxyURL, url)
	if err != nil {
		return "", fmt.Errorf("could not fetch photo: %w", err)
	}

	id, err := w.client.UploadPhoto(ctx, st.req.Credentials, data, st.token)
	if err != nil {
		return "", fmt.Errorf("could not upload photo: %w", err)
	}

	return id, nil
}

func (w *Workflow) buildDraft(_ context.Context, st *state) error {
	st.draft = BuildDraft(*st.source, st.photoIDs, st.token)
	return nil
}

func (w *Workflow) createDraft(ctx context.Context, st *state) error {
	id, err := w.client.CreateDraft(ctx, st.req.Credentials, st.draft)
	if err != nil {
		return fmt.Errorf("could not create draft: %w", err)
	}
	st.draftID = id

	return nil
}

func (w *Workflow) fetchDraft(ctx context.Context, st *state) error {
	l, err := w.client.GetListing(ctx, st.req.Credentials, st.draftID)
	if err != nil {
		return fmt.Errorf("could not get draft %s: %w", st.draftID, err)
	}
	st.draftData = l

	return nil
}

func (w *Workflow) buildCompletion(_ context.Context, st *state) error {
	st.completion = BuildCompletion(*st.draftData, st.token)
	if st.completion.Draft.ID == "" {
		st.completion.Draft.ID = marketplace.ID(st.draftID)
	}

	return nil
}

func (w *Workflow) deleteSource(ctx context.Context, st *state) error {
	if err := w.client.DeleteItem(ctx, st.req.Credentials, st.req.Item.ID); err != nil {
		return fmt.Errorf("could not delete source listing: %w", err)
	}

	return nil
}

func (w *Workflow) publishDraft(ctx context.Context, st *state) error {
	res, err := w.client.CompleteDraft(ctx, st.req.Credentials, st.draftID, st.completion)
	if err != nil {
		return fmt.Errorf("could not publish draft %s: %w", st.draftID, err)
	}
	st.published = res

	return nil
}
