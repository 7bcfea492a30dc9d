package printer_test

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/slok/bulkr/internal/model"
	"github.com/slok/bulkr/internal/printer"
	"github.com/slok/bulkr/internal/progress"
)

func TestProgressBar(t *testing.T) {
	var buf bytes.Buffer
	bar := printer.NewProgressBar(&buf)

	bar.OnProgress(progress.Tick{Index: 1, Total: 4, Percent: 25, Label: "2 of 4"})
	assert.Contains(t, buf.String(), "[==========                              ]  25% 2 of 4")

	bar.OnItemFailed(1, model.TargetItem{ID: "9", DisplayName: "Jacket"}, model.OutcomeFromError(fmt.Errorf("x: %w", model.ErrNetwork)))
	assert.Contains(t, buf.String(), "! Jacket (9) failed: network\n")

	bar.OnFinish(model.FinalStatus{Completed: 1, Total: 4, StopReason: model.StopReasonUser})
	assert.Contains(t, buf.String(), "1 of 4 done, stopped by user")
	assert.Equal(t, byte('\n'), buf.Bytes()[buf.Len()-1])
}
