// Package btadapt bridges behavior nodes and trees with
// github.com/joeycumines/go-behaviortree, in both directions.
package btadapt

import (
	"fmt"
	"time"

	bt "github.com/joeycumines/go-behaviortree"
	"github.com/joeycumines/tickbt/internal/behavior"
)

// ToBTStatus maps a behavior status onto go-behaviortree's.
func ToBTStatus(s behavior.Status) bt.Status {
	switch s {
	case behavior.Success:
		return bt.Success
	case behavior.Failure:
		return bt.Failure
	}
	return bt.Running
}

// FromBTStatus maps a go-behaviortree status onto behavior's. Unknown
// values are an error.
func FromBTStatus(s bt.Status) (behavior.Status, error) {
	switch s {
	case bt.Running:
		return behavior.Running, nil
	case bt.Success:
		return behavior.Success, nil
	case bt.Failure:
		return behavior.Failure, nil
	}
	return behavior.Failure, fmt.Errorf("unknown go-behaviortree status %d", int(s))
}

// Leaf runs a go-behaviortree node as a behavior leaf. go-behaviortree
// nodes keep their own memory, so resetting a Leaf does not rewind Node.
type Leaf struct {
	Name string
	Node bt.Node
}

// NewLeaf returns a Leaf around node.
func NewLeaf(name string, node bt.Node) *Leaf {
	return &Leaf{Name: name, Node: node}
}

func (l *Leaf) Run(*behavior.Context) (behavior.Status, error) {
	if l.Node == nil {
		return behavior.Failure, nil
	}
	status, err := l.Node.Tick()
	if err != nil {
		return behavior.Failure, err
	}
	return FromBTStatus(status)
}

func (l *Leaf) NodeName() string {
	if l.Name == "" {
		return "BT"
	}
	return fmt.Sprintf("BT(%s)", l.Name)
}

// ContextFunc supplies the evaluation context for an adapted node.
type ContextFunc func() *behavior.Context

// ToBT exposes n as a go-behaviortree node. Every tick evaluates n once
// with the context returned by ctx.
func ToBT(n behavior.Node, ctx ContextFunc) bt.Node {
	return bt.New(func([]bt.Node) (bt.Status, error) {
		c := ctx()
		if c == nil {
			return bt.Failure, fmt.Errorf("%s: no evaluation context", behavior.NodeLabel(n))
		}
		status, err := behavior.Run(n, c)
		if err != nil {
			return bt.Failure, err
		}
		return ToBTStatus(status), nil
	})
}

// Clock measures the delta between consecutive ticks.
type Clock struct {
	now  func() time.Time
	last time.Time
}

// NewClock returns a Clock reading now, or time.Now when nil.
func NewClock(now func() time.Time) *Clock {
	if now == nil {
		now = time.Now
	}
	return &Clock{now: now}
}

// Delta returns the time since the previous call, 0 on the first call.
func (c *Clock) Delta() time.Duration {
	t := c.now()
	var dt time.Duration
	if !c.last.IsZero() {
		dt = max(t.Sub(c.last), 0)
	}
	c.last = t
	return dt
}

// TreeNode exposes a tree as a go-behaviortree node. Each tick advances
// the tree by delta(); the node is Running while the tree has a running
// root, and Success once a pass completed without one.
func TreeNode(tree *behavior.Tree, delta func() time.Duration) bt.Node {
	return bt.New(func([]bt.Node) (bt.Status, error) {
		if tree.IsDisposed() {
			return bt.Failure, behavior.ErrDisposed
		}
		if err := tree.Tick(delta()); err != nil {
			return bt.Failure, err
		}
		if tree.Cursor() >= 0 {
			return bt.Running, nil
		}
		return bt.Success, nil
	})
}
