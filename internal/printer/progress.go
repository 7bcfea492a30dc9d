package printer

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/slok/bulkr/internal/model"
	"github.com/slok/bulkr/internal/progress"
)

// ProgressBar observes a batch run and renders its progress on a terminal line.
type ProgressBar struct {
	w       io.Writer
	width   int
	lastPct float64
	mu      sync.Mutex
}

// NewProgressBar creates a new progress bar that writes to w.
func NewProgressBar(w io.Writer) *ProgressBar {
	return &ProgressBar{w: w, width: 40}
}

// OnProgress renders a progress tick.
func (p *ProgressBar) OnProgress(t progress.Tick) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.lastPct = t.Percent
	p.render(t.Label)
}

// OnItemFailed prints the item failure on its own line and keeps the bar below.
func (p *ProgressBar) OnItemFailed(_ int, item model.TargetItem, o model.Outcome) {
	p.mu.Lock()
	defer p.mu.Unlock()

	name := item.ID
	if item.DisplayName != "" {
		name = fmt.Sprintf("%s (%s)", item.DisplayName, item.ID)
	}
	fmt.Fprintf(p.w, "\r  ! %s failed: %s\n", name, o.Error)
}

// OnFinish ends the progress line.
func (p *ProgressBar) OnFinish(s model.FinalStatus) {
	p.mu.Lock()
	defer p.mu.Unlock()

	label := fmt.Sprintf("%d of %d done", s.Completed, s.Total)
	switch s.StopReason {
	case model.StopReasonUser:
		label += ", stopped by user"
	case model.StopReasonRateLimit:
		label += ", stopped by rate limit"
	}
	p.render(label)
	fmt.Fprintln(p.w)
}

func (p *ProgressBar) render(label string) {
	filled := int(p.lastPct / 100 * float64(p.width))
	if filled > p.width {
		filled = p.width
	}
	bar := strings.Repeat("=", filled) + strings.Repeat(" ", p.width-filled)
	fmt.Fprintf(p.w, "\r  [%s] %3.0f%% %-32s", bar, p.lastPct, label)
}
