package pace

import (
	"context"
	"fmt"
	"math/rand"
	"time"
)

// Pauser pauses the flow between remote calls.
type Pauser interface {
	Pause(ctx context.Context)
}

// Noop doesn't pause.
var Noop Pauser = noop{}

type noop struct{}

func (noop) Pause(context.Context) {}

// JitterConfig is the configuration of a Jitter pauser.
type JitterConfig struct {
	Min time.Duration
	Max time.Duration
	// Sleep is used to wait, defaults to time.Sleep.
	Sleep func(time.Duration)
	// Rand returns a random int64 in [0, n), defaults to math/rand.
	Rand func(n int64) int64
}

func (c *JitterConfig) defaults() error {
	if c.Min < 0 || c.Max < 0 {
		return fmt.Errorf("pauses can't be negative")
	}

	if c.Max < c.Min {
		return fmt.Errorf("max pause (%s) is lower than min pause (%s)", c.Max, c.Min)
	}

	if c.Sleep == nil {
		c.Sleep = time.Sleep
	}

	if c.Rand == nil {
		c.Rand = rand.Int63n
	}

	return nil
}

// Jitter pauses a uniform random duration in [min, max].
// The pause is not interrupted by context cancellation, cancellation is only checked
// by the callers between pauses.
type Jitter struct {
	min   time.Duration
	max   time.Duration
	sleep func(time.Duration)
	rand  func(n int64) int64
}

// NewJitter returns a new jitter pauser.
func NewJitter(cfg JitterConfig) (*Jitter, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Jitter{
		min:   cfg.Min,
		max:   cfg.Max,
		sleep: cfg.Sleep,
		rand:  cfg.Rand,
	}, nil
}

// Duration returns the next random pause duration.
func (j *Jitter) Duration() time.Duration {
	span := int64(j.max - j.min)
	if span <= 0 {
		return j.min
	}

	return j.min + time.Duration(j.rand(span+1))
}

// Pause satisfies Pauser.
func (j *Jitter) Pause(_ context.Context) {
	d := j.Duration()
	if d <= 0 {
		return
	}
	j.sleep(d)
}

// Fixed pauses always the same duration.
type Fixed time.Duration

// Pause satisfies Pauser.
func (f Fixed) Pause(_ context.Context) {
	if f > 0 {
		time.Sleep(time.Duration(f))
	}
}
