package behavior

// FailureMode selects how [FailureHandler] treats a failing child.
type FailureMode uint8

const (
	// FailureSkip turns the failure into Success.
	FailureSkip FailureMode = iota
	// FailureCatch runs the fallback and reports its result.
	FailureCatch
	// FailureThrow reports the failure unchanged.
	FailureThrow
)

func (m FailureMode) String() string {
	switch m {
	case FailureSkip:
		return "skip"
	case FailureCatch:
		return "catch"
	case FailureThrow:
		return "throw"
	}
	return "unknown"
}

// FailureHandler intercepts the first Failure of its child.
//
// Non-failure results pass through. The first failure since the last reset
// is handled per Mode and the outcome latched: later failures report the
// latched result. A Running fallback is resumed on subsequent evaluations
// until it completes.
type FailureHandler struct {
	Child    Node
	Mode     FailureMode
	Fallback Node
	// DataKey names a blackboard entry read before every run whose value
	// replaces Mode, either a FailureMode or its name.
	DataKey string

	handled      bool
	result       Status
	inFallback   bool
	childRunning bool
}

// NewFailureHandler returns a FailureHandler around child. fallback is only
// used by FailureCatch.
func NewFailureHandler(mode FailureMode, child, fallback Node) *FailureHandler {
	return &FailureHandler{Child: child, Mode: mode, Fallback: fallback}
}

func (n *FailureHandler) Prepare(ctx *Context) {
	if n.DataKey == "" {
		return
	}
	if m, ok := modeValue(ctx.Blackboard, n.DataKey, FailureSkip, FailureCatch, FailureThrow); ok {
		n.Mode = m
	}
}

func (n *FailureHandler) Run(ctx *Context) (Status, error) {
	if n.Child == nil {
		return Failure, nil
	}
	if n.inFallback {
		return n.runFallback(ctx)
	}
	status, err := Run(n.Child, ctx)
	n.childRunning = status == Running
	if err != nil {
		return Failure, err
	}
	if status != Failure {
		n.result = status
		return status, nil
	}
	if n.handled {
		return n.result, nil
	}
	n.handled = true
	switch n.Mode {
	case FailureSkip:
		n.result = Success
	case FailureCatch:
		n.inFallback = true
		return n.runFallback(ctx)
	default:
		n.result = Failure
	}
	return n.result, nil
}

func (n *FailureHandler) runFallback(ctx *Context) (Status, error) {
	status, err := Run(n.Fallback, ctx)
	if err != nil {
		return Failure, err
	}
	if status != Running {
		n.inFallback = false
	}
	n.result = status
	return status, nil
}

func (n *FailureHandler) Reset(ctx *ResetContext) {
	n.handled = false
	n.inFallback = false
	n.childRunning = false
	n.result = Running
	Reset(n.Child, ctx)
	if n.Mode == FailureCatch {
		Reset(n.Fallback, ctx)
	}
}

// Handled reports whether a failure has been intercepted since the last
// reset.
func (n *FailureHandler) Handled() bool { return n.handled }

func (n *FailureHandler) Children() []Node {
	if n.Mode == FailureCatch && n.Fallback != nil {
		return append(single(n.Child), n.Fallback)
	}
	return single(n.Child)
}

func (n *FailureHandler) ActiveChildren() []Node {
	if n.inFallback {
		return single(n.Fallback)
	}
	if n.childRunning {
		return single(n.Child)
	}
	return nil
}
