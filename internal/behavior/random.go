package behavior

import (
	"math/rand/v2"
)

// Rand is the random source used by the random selectors.
// *math/rand/v2.Rand satisfies it.
type Rand interface {
	IntN(n int) int
	Float64() float64
}

type globalRand struct{}

func (globalRand) IntN(n int) int   { return rand.IntN(n) }
func (globalRand) Float64() float64 { return rand.Float64() }

func randOrDefault(r Rand) Rand {
	if r == nil {
		return globalRand{}
	}
	return r
}

// RandomSelector picks one child uniformly at random and keeps evaluating
// that same child, whatever it returns, until it is reset.
type RandomSelector struct {
	Nodes []Node
	// Rand overrides the random source.
	Rand Rand

	selected int
	picked   bool
	running  bool
}

// NewRandomSelector returns a RandomSelector over children.
func NewRandomSelector(children ...Node) *RandomSelector {
	return &RandomSelector{Nodes: children}
}

func (n *RandomSelector) Run(ctx *Context) (Status, error) {
	if len(n.Nodes) == 0 {
		return Failure, nil
	}
	if !n.picked {
		n.selected = randOrDefault(n.Rand).IntN(len(n.Nodes))
		n.picked = true
	}
	status, err := Run(n.Nodes[n.selected], ctx)
	n.running = status == Running
	if err != nil {
		return Failure, err
	}
	return status, nil
}

func (n *RandomSelector) Reset(ctx *ResetContext) {
	n.selected = 0
	n.picked = false
	n.running = false
	resetEach(n.Nodes, ctx)
}

// Selected returns the sticky child index, or -1 when nothing is selected.
func (n *RandomSelector) Selected() int {
	if !n.picked {
		return -1
	}
	return n.selected
}

func (n *RandomSelector) Children() []Node { return n.Nodes }

func (n *RandomSelector) ActiveChildren() []Node {
	if !n.picked {
		return nil
	}
	return activeIf(n.running, n.Nodes[n.selected])
}

// Weighted pairs a child with its selection weight. Negative weights count
// as zero.
type Weighted struct {
	Weight float64
	Node   Node
}

// WeightedSelector picks a child with probability proportional to its
// weight.
//
// The choice is kept only while the chosen child returns Running; once it
// completes, the next evaluation rolls again. When no non-nil child has a
// positive weight, the pick is uniform over the non-nil children. Children
// with zero weight are never picked otherwise.
type WeightedSelector struct {
	Items []Weighted
	// Rand overrides the random source.
	Rand Rand
	// DataKey names a blackboard entry read before every run holding one
	// weight per item. Lists of another length are ignored.
	DataKey string

	selected int
	picked   bool
	running  bool
}

// NewWeightedSelector returns a WeightedSelector over items.
func NewWeightedSelector(items ...Weighted) *WeightedSelector {
	return &WeightedSelector{Items: items}
}

func (n *WeightedSelector) Prepare(ctx *Context) {
	if n.DataKey == "" {
		return
	}
	weights, ok := weightsValue(ctx.Blackboard, n.DataKey)
	if !ok || len(weights) != len(n.Items) {
		return
	}
	for i, w := range weights {
		n.Items[i].Weight = w
	}
}

func (n *WeightedSelector) Run(ctx *Context) (Status, error) {
	if len(n.Items) == 0 {
		return Failure, nil
	}
	if !n.picked || n.selected >= len(n.Items) {
		i := n.pick()
		if i < 0 {
			return Failure, nil
		}
		n.selected, n.picked = i, true
	}
	child := n.Items[n.selected].Node
	if child == nil {
		n.picked = false
		return Failure, nil
	}
	status, err := Run(child, ctx)
	n.running = status == Running
	if err != nil {
		return Failure, err
	}
	if status != Running {
		n.picked = false
	}
	return status, nil
}

func (n *WeightedSelector) pick() int {
	r := randOrDefault(n.Rand)
	var total float64
	for _, item := range n.Items {
		if item.Node != nil {
			total += max(0, item.Weight)
		}
	}
	if total <= 0 {
		var valid []int
		for i, item := range n.Items {
			if item.Node != nil {
				valid = append(valid, i)
			}
		}
		if len(valid) == 0 {
			return -1
		}
		return valid[r.IntN(len(valid))]
	}
	draw := r.Float64() * total
	var cumulative float64
	last := -1
	for i, item := range n.Items {
		if item.Node == nil || item.Weight <= 0 {
			continue
		}
		cumulative += item.Weight
		last = i
		if draw <= cumulative {
			return i
		}
	}
	// rounding can leave draw just above the final prefix sum
	return last
}

func (n *WeightedSelector) Reset(ctx *ResetContext) {
	n.selected = 0
	n.picked = false
	n.running = false
	for _, item := range n.Items {
		Reset(item.Node, ctx)
	}
}

// Selected returns the current selection, or -1 when the next evaluation
// will roll again.
func (n *WeightedSelector) Selected() int {
	if !n.picked {
		return -1
	}
	return n.selected
}

func (n *WeightedSelector) Children() []Node {
	nodes := make([]Node, 0, len(n.Items))
	for _, item := range n.Items {
		if item.Node != nil {
			nodes = append(nodes, item.Node)
		}
	}
	return nodes
}

func (n *WeightedSelector) ActiveChildren() []Node {
	if !n.picked || n.selected >= len(n.Items) {
		return nil
	}
	return activeIf(n.running, n.Items[n.selected].Node)
}
