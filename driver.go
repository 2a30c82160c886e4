package pdfpages

import (
	"context"
	"time"
)

// Defaults for the scroll loop.
const (
	DefaultScrollDelta  = 1000
	DefaultSettleDelay  = 2 * time.Second
	DefaultStableRounds = 5
	DefaultMaxScrolls   = 200
)

// DriverState is the state of a [Driver].
type DriverState int

const (
	// Scrolling means the viewer may still be loading pages.
	Scrolling DriverState = iota
	// Stable means the retained count stopped growing.
	Stable
)

func (s DriverState) String() string {
	if s == Stable {
		return "stable"
	}
	return "scrolling"
}

// Outcome describes how a [Driver] run ended.
type Outcome struct {
	State DriverState
	// Scrolls is the number of scroll iterations performed.
	Scrolls int
	// Count is the last observed retained count.
	Count int
}

// Driver scrolls the viewer until it stops issuing new page requests.
//
// After every scroll it waits SettleDelay and compares the retained
// count with the last recorded one. StableRounds unchanged readings in a
// row end the run in [Stable]. MaxScrolls bounds the run; reaching it
// returns with State [Scrolling] and no error.
type Driver struct {
	ScrollDelta  float64
	SettleDelay  time.Duration
	StableRounds int
	MaxScrolls   int

	// OnScroll, if set, is called after each observation.
	OnScroll func(iteration, count, stable int)
}

// NewDriver returns a Driver with the default tuning.
func NewDriver() *Driver {
	return &Driver{
		ScrollDelta:  DefaultScrollDelta,
		SettleDelay:  DefaultSettleDelay,
		StableRounds: DefaultStableRounds,
		MaxScrolls:   DefaultMaxScrolls,
	}
}

// Run drives scroll until count stabilises, the ceiling is hit, scroll
// fails, or ctx is done.
func (d *Driver) Run(ctx context.Context, scroll func(deltaY float64) error, count func() int) (Outcome, error) {
	var (
		out    Outcome
		last   int
		stable int
	)
	for stable < d.StableRounds && out.Scrolls < d.MaxScrolls {
		if err := scroll(d.ScrollDelta); err != nil {
			return out, err
		}
		if err := sleep(ctx, d.SettleDelay); err != nil {
			return out, err
		}
		out.Scrolls++

		current := count()
		if current == last {
			stable++
		} else {
			stable = 0
			last = current
		}
		out.Count = current

		if d.OnScroll != nil {
			d.OnScroll(out.Scrolls, current, stable)
		}
	}
	if stable >= d.StableRounds {
		out.State = Stable
	}
	return out, nil
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
