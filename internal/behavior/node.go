package behavior

import (
	"time"
)

// Context is passed to every node evaluation.
type Context struct {
	// Blackboard is the tree's shared data store.
	Blackboard *Blackboard
	// DeltaTime is the time elapsed since the previous tick.
	DeltaTime time.Duration
}

// ResetMode tells a node how thoroughly it is being reset.
type ResetMode uint8

const (
	// ResetFull is used when a tree restarts from scratch or a parent aborts
	// a subtree.
	ResetFull ResetMode = iota
	// ResetPartial is used for the per-tick re-arm of nodes before the
	// execution cursor, and by Timeout when it abandons its child.
	ResetPartial
)

func (m ResetMode) String() string {
	if m == ResetPartial {
		return "partial"
	}
	return "full"
}

// ResetContext is passed to [Resetter.Reset].
type ResetContext struct {
	Blackboard *Blackboard
	Mode       ResetMode
}

// Node is the minimal contract every behavior node implements.
//
// Run must not block. A node that needs several ticks returns Running and
// is evaluated again on the next tick.
type Node interface {
	Run(ctx *Context) (Status, error)
}

// Resetter is implemented by nodes with progress state (indices, counters,
// timers, selections). Reset must be idempotent.
type Resetter interface {
	Reset(ctx *ResetContext)
}

// Preparer is implemented by nodes that refresh their configuration right
// before being run, typically from the blackboard.
type Preparer interface {
	Prepare(ctx *Context)
}

// Composite is implemented by nodes that own child nodes.
type Composite interface {
	Node
	// Children returns every child, in evaluation order.
	Children() []Node
	// ActiveChildren returns the children whose last evaluation returned
	// Running.
	ActiveChildren() []Node
}

// Run evaluates n, calling Prepare first when n implements [Preparer]. A nil
// node evaluates to Failure.
func Run(n Node, ctx *Context) (Status, error) {
	if n == nil {
		return Failure, nil
	}
	if p, ok := n.(Preparer); ok {
		p.Prepare(ctx)
	}
	return n.Run(ctx)
}

// Reset resets n when it implements [Resetter]; other nodes are left alone.
func Reset(n Node, ctx *ResetContext) {
	if r, ok := n.(Resetter); ok {
		r.Reset(ctx)
	}
}

func resetEach(nodes []Node, ctx *ResetContext) {
	for _, n := range nodes {
		Reset(n, ctx)
	}
}

// Disposer is implemented by nodes holding resources beyond their own
// memory, such as blackboard subscriptions. Trees call Dispose on every
// node in their graph when they are disposed.
type Disposer interface {
	Dispose()
}

// Named is implemented by nodes that want a label other than their type
// name in paths and debug output.
type Named interface {
	NodeName() string
}

func single(child Node) []Node {
	if child == nil {
		return nil
	}
	return []Node{child}
}

func activeIf(running bool, child Node) []Node {
	if !running || child == nil {
		return nil
	}
	return []Node{child}
}
