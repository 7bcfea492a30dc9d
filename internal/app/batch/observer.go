package batch

import (
	"github.com/slok/bulkr/internal/model"
	"github.com/slok/bulkr/internal/progress"
)

// Observer observes a batch run.
// OnFinish is called exactly once per run, after every other call.
type Observer interface {
	// OnProgress receives monotonic batch progress ticks.
	OnProgress(t progress.Tick)
	// OnItemFailed receives the ordinary failures of items, the batch continues after them.
	OnItemFailed(index int, item model.TargetItem, o model.Outcome)
	// OnFinish receives the terminal status of the run.
	OnFinish(status model.FinalStatus)
}

// NoopObserver ignores every observation.
var NoopObserver Observer = noopObserver(0)

type noopObserver int

func (noopObserver) OnProgress(progress.Tick) {}
func (noopObserver) OnItemFailed(int, model.TargetItem, model.Outcome) {}
func (noopObserver) OnFinish(model.FinalStatus) {}
