package behavior

import (
	"fmt"
)

// ActionFunc is the body of an [Action] leaf.
type ActionFunc func(ctx *Context) (Status, error)

// Action is a leaf running a Go function. A nil Fn fails.
type Action struct {
	Name string
	Fn   ActionFunc
}

// NewAction returns an Action named name.
func NewAction(name string, fn ActionFunc) *Action {
	return &Action{Name: name, Fn: fn}
}

func (n *Action) Run(ctx *Context) (Status, error) {
	if n.Fn == nil {
		return Failure, nil
	}
	return n.Fn(ctx)
}

func (n *Action) NodeName() string {
	if n.Name == "" {
		return "Action"
	}
	return fmt.Sprintf("Action(%s)", n.Name)
}

// ConditionFunc is the predicate of a [Condition] leaf.
type ConditionFunc func(ctx *Context) (bool, error)

// Condition is a leaf mapping a predicate onto Success or Failure. A nil Fn
// fails.
type Condition struct {
	Name string
	Fn   ConditionFunc
}

// NewCondition returns a Condition named name.
func NewCondition(name string, fn ConditionFunc) *Condition {
	return &Condition{Name: name, Fn: fn}
}

func (n *Condition) Run(ctx *Context) (Status, error) {
	if n.Fn == nil {
		return Failure, nil
	}
	ok, err := n.Fn(ctx)
	if err != nil {
		return Failure, err
	}
	if ok {
		return Success, nil
	}
	return Failure, nil
}

func (n *Condition) NodeName() string {
	if n.Name == "" {
		return "Condition"
	}
	return fmt.Sprintf("Condition(%s)", n.Name)
}

// SetValue is a leaf writing Value under Key, then succeeding.
type SetValue struct {
	Key   string
	Value any
}

func (n *SetValue) Run(ctx *Context) (Status, error) {
	if n.Key == "" || ctx.Blackboard == nil {
		return Failure, nil
	}
	ctx.Blackboard.SetValue(n.Key, n.Value)
	return Success, nil
}

func (n *SetValue) NodeName() string { return fmt.Sprintf("SetValue(%s)", n.Key) }

// Constant is a leaf that always returns Status.
type Constant struct {
	Status Status
}

func (n *Constant) Run(*Context) (Status, error) { return n.Status, nil }

func (n *Constant) NodeName() string { return fmt.Sprintf("Constant(%s)", n.Status) }
