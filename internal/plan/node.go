package plan

import (
	"fmt"
	"log/slog"

	bt "github.com/joeycumines/go-behaviortree"
	pabtpkg "github.com/joeycumines/go-pabt"
	"github.com/joeycumines/tickbt/internal/behavior"
	"github.com/joeycumines/tickbt/internal/btadapt"
)

// Node plans towards Goals on its first evaluation and then ticks the plan
// once per evaluation. Goals are alternatives: the plan succeeds once any
// of them holds.
//
// A full reset discards the plan so the next evaluation plans again from
// the current state; a partial reset keeps it.
type Node struct {
	Name  string
	State *State
	Goals []pabtpkg.IConditions

	plan   bt.Node
	logger *slog.Logger
}

// NewNode returns a planning node over state.
func NewNode(name string, state *State, goals ...pabtpkg.IConditions) *Node {
	return &Node{Name: name, State: state, Goals: goals, logger: slog.Default()}
}

func (n *Node) Run(ctx *behavior.Context) (behavior.Status, error) {
	if n.State == nil || len(n.Goals) == 0 {
		return behavior.Failure, nil
	}
	n.State.bind(ctx)
	defer n.State.bind(nil)

	if n.plan == nil {
		p, err := pabtpkg.INew(n.State, n.Goals)
		if err != nil {
			return behavior.Failure, fmt.Errorf("plan %s: %w", n.Name, err)
		}
		n.plan = p.Node()
		if n.logger != nil {
			n.logger.Debug("[Plan] planned", "plan", n.Name, "goals", len(n.Goals), "actions", n.State.actions.Len())
		}
	}

	status, err := n.plan.Tick()
	if err != nil {
		return behavior.Failure, fmt.Errorf("plan %s: %w", n.Name, err)
	}
	return btadapt.FromBTStatus(status)
}

func (n *Node) Reset(ctx *behavior.ResetContext) {
	if ctx.Mode == behavior.ResetFull {
		n.plan = nil
	}
}

// Planned reports whether a plan is currently held.
func (n *Node) Planned() bool { return n.plan != nil }

func (n *Node) NodeName() string {
	if n.Name == "" {
		return "Plan"
	}
	return fmt.Sprintf("Plan(%s)", n.Name)
}
