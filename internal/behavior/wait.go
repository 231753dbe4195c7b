package behavior

import (
	"time"
)

// WaitMode controls how a [Wait] reacts to being reset.
type WaitMode uint8

const (
	// WaitAutoReset clears the accumulated time on every reset.
	WaitAutoReset WaitMode = iota
	// WaitOnce ignores resets after the wait has completed, so it fires
	// only once per node instance.
	WaitOnce
)

func (m WaitMode) String() string {
	if m == WaitOnce {
		return "once"
	}
	return "auto"
}

// Wait accumulates tick deltas and succeeds once Duration has elapsed. It
// keeps succeeding until reset. A non-positive Duration fails.
type Wait struct {
	Duration time.Duration
	Mode     WaitMode

	elapsed   time.Duration
	completed bool
}

// NewWait returns a Wait for d.
func NewWait(d time.Duration, mode WaitMode) *Wait {
	return &Wait{Duration: d, Mode: mode}
}

func (n *Wait) Run(ctx *Context) (Status, error) {
	if n.Duration <= 0 {
		return Failure, nil
	}
	if n.completed {
		return Success, nil
	}
	n.elapsed += ctx.DeltaTime
	if n.elapsed >= n.Duration {
		n.completed = true
		return Success, nil
	}
	return Running, nil
}

func (n *Wait) Reset(*ResetContext) {
	if n.Mode == WaitOnce && n.completed {
		return
	}
	n.elapsed = 0
	n.completed = false
}

// Elapsed returns the time accumulated since the last reset.
func (n *Wait) Elapsed() time.Duration { return n.elapsed }

// Completed reports whether the wait has fired.
func (n *Wait) Completed() bool { return n.completed }
