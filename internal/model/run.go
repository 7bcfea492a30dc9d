package model

import (
	"fmt"
	"time"
)

// Outcome is the result of executing an action on one item.
type Outcome struct {
	Success bool
	Error   ErrorKind
	// Err is the underlying failure, nil on success.
	Err error
}

// OutcomeSuccess returns a successful outcome.
func OutcomeSuccess() Outcome {
	return Outcome{Success: true}
}

// OutcomeFromError returns the outcome for err, a nil error is a success.
func OutcomeFromError(err error) Outcome {
	if err == nil {
		return OutcomeSuccess()
	}

	return Outcome{
		Success: false,
		Error:   ErrorKindOf(err),
		Err:     err,
	}
}

// RateLimited returns true if the outcome must terminate the batch.
func (o Outcome) RateLimited() bool {
	return o.Error == ErrorKindRateLimit
}

// StopReason is the reason of a batch run termination.
type StopReason string

const (
	StopReasonNone      StopReason = "none"
	StopReasonUser      StopReason = "user"
	StopReasonRateLimit StopReason = "rate-limit"
)

// FinalStatus is the terminal status of a batch run.
type FinalStatus struct {
	Completed  int
	Total      int
	StopReason StopReason
}

// Stopped returns true if the run didn't exhaust all its items.
func (f FinalStatus) Stopped() bool {
	return f.StopReason != StopReasonNone
}

// ItemResult is the recorded result of one item in a run.
type ItemResult struct {
	ItemID    string
	Success   bool
	ErrorKind ErrorKind
	Error     string
}

// RunReport is the audit record of a finished batch run.
type RunReport struct {
	ID         string
	Action     ActionKind
	Status     FinalStatus
	Items      []ItemResult
	StartedAt  time.Time
	FinishedAt time.Time
}

// Validate validates the report.
func (r RunReport) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("id is required: %w", ErrNotValid)
	}

	if !r.Action.Valid() {
		return fmt.Errorf("action is not valid: %w", ErrNotValid)
	}

	if r.Status.Completed > r.Status.Total {
		return fmt.Errorf("completed items can't exceed the total: %w", ErrNotValid)
	}

	return nil
}
