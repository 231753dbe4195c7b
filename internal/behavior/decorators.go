package behavior

// Inverter swaps Success and Failure of its child. Running passes through.
type Inverter struct {
	Child Node

	running bool
}

// NewInverter returns an Inverter around child.
func NewInverter(child Node) *Inverter {
	return &Inverter{Child: child}
}

func (n *Inverter) Run(ctx *Context) (Status, error) {
	status, err := Run(n.Child, ctx)
	n.running = status == Running
	if err != nil {
		return Failure, err
	}
	if n.Child == nil {
		return Failure, nil
	}
	return invert(status), nil
}

func (n *Inverter) Reset(ctx *ResetContext) {
	n.running = false
	Reset(n.Child, ctx)
}

func (n *Inverter) Children() []Node       { return single(n.Child) }
func (n *Inverter) ActiveChildren() []Node { return activeIf(n.running, n.Child) }

func invert(s Status) Status {
	switch s {
	case Success:
		return Failure
	case Failure:
		return Success
	}
	return s
}

// RepeatMode selects when a [Repeater] completes.
type RepeatMode uint8

const (
	// RepeatCount succeeds after Count child successes. A child failure
	// fails the repeater.
	RepeatCount RepeatMode = iota
	// RepeatForever reruns the child after every outcome and never
	// completes.
	RepeatForever
	// RepeatUntilSuccess reruns the child after each failure and succeeds
	// with it.
	RepeatUntilSuccess
	// RepeatUntilFailure reruns the child after each success and succeeds
	// once it fails.
	RepeatUntilFailure
)

func (m RepeatMode) String() string {
	switch m {
	case RepeatCount:
		return "count"
	case RepeatForever:
		return "forever"
	case RepeatUntilSuccess:
		return "until_success"
	case RepeatUntilFailure:
		return "until_failure"
	}
	return "unknown"
}

// RepeaterData is the blackboard form of a [Repeater] configuration, see
// [Repeater.DataKey].
type RepeaterData struct {
	Mode  RepeatMode
	Count int
}

// Repeater reruns its child according to Mode.
//
// Running passes through. In RepeatCount mode, a child Failure fails the
// repeater without counting as a completed cycle, each Success increments
// the counter and the repeater keeps running until the counter reaches
// Count. Count <= 0 fails. Once complete, the repeater succeeds without
// touching the child until reset.
type Repeater struct {
	Child Node
	Count int
	Mode  RepeatMode
	// DataKey names a blackboard entry read before every run: a
	// [RepeaterData] replaces Mode and Count, a number replaces Count.
	DataKey string

	counter int
	done    bool
	running bool
}

// NewRepeater returns a Repeater running child count times.
func NewRepeater(count int, child Node) *Repeater {
	return &Repeater{Child: child, Count: count}
}

// NewRepeaterMode returns a Repeater of child in mode. count only applies
// to RepeatCount.
func NewRepeaterMode(mode RepeatMode, count int, child Node) *Repeater {
	return &Repeater{Child: child, Count: count, Mode: mode}
}

func (n *Repeater) Prepare(ctx *Context) {
	if n.DataKey == "" {
		return
	}
	if d, ok := TryGetValue[RepeaterData](ctx.Blackboard, n.DataKey); ok {
		n.Mode, n.Count = d.Mode, d.Count
		return
	}
	if c, ok := TryGetValue[int](ctx.Blackboard, n.DataKey); ok {
		n.Count = c
	}
}

func (n *Repeater) Run(ctx *Context) (Status, error) {
	if n.Child == nil || n.Mode == RepeatCount && n.Count <= 0 {
		return Failure, nil
	}
	if n.done || n.Mode == RepeatCount && n.counter >= n.Count {
		return Success, nil
	}
	status, err := Run(n.Child, ctx)
	n.running = status == Running
	if err != nil {
		return Failure, err
	}
	if status == Running {
		return Running, nil
	}
	switch n.Mode {
	case RepeatCount:
		if status == Failure {
			return Failure, nil
		}
		n.counter++
		if n.counter < n.Count {
			return Running, nil
		}
		return Success, nil
	case RepeatUntilSuccess, RepeatUntilFailure:
		if (status == Success) == (n.Mode == RepeatUntilSuccess) {
			n.done = true
			return Success, nil
		}
	}
	n.counter++
	return Running, nil
}

func (n *Repeater) Reset(ctx *ResetContext) {
	n.counter = 0
	n.done = false
	n.running = false
	Reset(n.Child, ctx)
}

// Completed returns the number of child cycles counted since the last
// reset. In RepeatCount mode only successes count.
func (n *Repeater) Completed() int { return n.counter }

func (n *Repeater) Children() []Node       { return single(n.Child) }
func (n *Repeater) ActiveChildren() []Node { return activeIf(n.running, n.Child) }

// ForceMode selects the rewrite applied by [ForceResult].
type ForceMode uint8

const (
	// ForceInvert swaps Success and Failure.
	ForceInvert ForceMode = iota
	// ForceSuccess reports every completed child as Success.
	ForceSuccess
	// ForceFailure reports every completed child as Failure.
	ForceFailure
)

func (m ForceMode) String() string {
	switch m {
	case ForceInvert:
		return "invert"
	case ForceSuccess:
		return "success"
	case ForceFailure:
		return "failure"
	}
	return "unknown"
}

// ForceResult rewrites the completed result of its child. Running always
// passes through.
type ForceResult struct {
	Child Node
	Mode  ForceMode

	running bool
}

// NewForceResult returns a ForceResult around child.
func NewForceResult(mode ForceMode, child Node) *ForceResult {
	return &ForceResult{Child: child, Mode: mode}
}

func (n *ForceResult) Run(ctx *Context) (Status, error) {
	if n.Child == nil {
		return Failure, nil
	}
	status, err := Run(n.Child, ctx)
	n.running = status == Running
	if err != nil {
		return Failure, err
	}
	if status == Running {
		return Running, nil
	}
	switch n.Mode {
	case ForceSuccess:
		return Success, nil
	case ForceFailure:
		return Failure, nil
	default:
		return invert(status), nil
	}
}

func (n *ForceResult) Reset(ctx *ResetContext) {
	n.running = false
	Reset(n.Child, ctx)
}

func (n *ForceResult) Children() []Node       { return single(n.Child) }
func (n *ForceResult) ActiveChildren() []Node { return activeIf(n.running, n.Child) }
