package behavior

import (
	"time"
)

// Timeout fails its child once Duration of tick time has accumulated.
//
// The child is run first and the delta added afterwards; when the budget is
// exhausted the child is partially reset and the node keeps failing until
// it is reset itself. A non-positive Duration fails.
type Timeout struct {
	Child    Node
	Duration time.Duration
	// DataKey names a blackboard entry read before every run whose value
	// replaces Duration: a time.Duration, a string such as "1.5s", or a
	// number of seconds.
	DataKey string

	elapsed  time.Duration
	timedOut bool
	running  bool
}

// NewTimeout returns a Timeout of d around child.
func NewTimeout(d time.Duration, child Node) *Timeout {
	return &Timeout{Child: child, Duration: d}
}

func (n *Timeout) Prepare(ctx *Context) {
	if n.DataKey == "" {
		return
	}
	if d, ok := durationValue(ctx.Blackboard, n.DataKey); ok {
		n.Duration = d
	}
}

func (n *Timeout) Run(ctx *Context) (Status, error) {
	if n.timedOut || n.Duration <= 0 || n.Child == nil {
		return Failure, nil
	}
	status, err := Run(n.Child, ctx)
	n.running = status == Running
	if err != nil {
		return Failure, err
	}
	n.elapsed += ctx.DeltaTime
	if n.elapsed >= n.Duration {
		Reset(n.Child, &ResetContext{Blackboard: ctx.Blackboard, Mode: ResetPartial})
		n.timedOut = true
		n.running = false
		return Failure, nil
	}
	return status, nil
}

func (n *Timeout) Reset(ctx *ResetContext) {
	n.elapsed = 0
	n.timedOut = false
	n.running = false
	Reset(n.Child, ctx)
}

// TimedOut reports whether the budget has been exhausted.
func (n *Timeout) TimedOut() bool { return n.timedOut }

// Elapsed returns the tick time accumulated since the last reset.
func (n *Timeout) Elapsed() time.Duration { return n.elapsed }

func (n *Timeout) Children() []Node       { return single(n.Child) }
func (n *Timeout) ActiveChildren() []Node { return activeIf(n.running, n.Child) }
