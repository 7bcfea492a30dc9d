package progress

import "fmt"

// Tick is a batch progress observation.
type Tick struct {
	// Index is the 0 based index of the item being processed.
	Index int
	Total int
	// Percent is the overall batch progress in [0, 100].
	Percent float64
	// Label is the ordinal label of the item (e.g: "3 of 10").
	Label string
}

// Percent returns the overall percentage for the item at index i with an intra item
// fraction already done: ((i + fraction) / total) * 100.
func Percent(i int, fraction float64, total int) float64 {
	if total <= 0 {
		return 100
	}

	fraction = clamp(fraction, 0, 1)
	return clamp((float64(i)+fraction)/float64(total)*100, 0, 100)
}

// Label returns the ordinal label of the item at index i.
func Label(i, total int) string {
	return fmt.Sprintf("%d of %d", i+1, total)
}

// Projector projects item positions into monotonic batch progress ticks.
// It is not safe for concurrent use, a batch is processed sequentially.
type Projector struct {
	total int
	last  float64
}

// NewProjector returns a projector for a batch of total items.
func NewProjector(total int) *Projector {
	return &Projector{total: total}
}

// Enter returns the tick for starting the item at index i.
func (p *Projector) Enter(i int) Tick {
	return p.Step(i, 0)
}

// Step returns the tick for the item at index i with fraction in [0, 1] done.
// The returned percent never decreases over the projector lifetime.
func (p *Projector) Step(i int, fraction float64) Tick {
	pct := Percent(i, fraction, p.total)
	if pct < p.last {
		pct = p.last
	}
	p.last = pct

	return Tick{
		Index:   i,
		Total:   p.total,
		Percent: pct,
		Label:   Label(i, p.total),
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
