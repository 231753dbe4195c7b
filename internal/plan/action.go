package plan

import (
	"sort"
	"sync"

	bt "github.com/joeycumines/go-behaviortree"
	pabtpkg "github.com/joeycumines/go-pabt"
	"github.com/joeycumines/tickbt/internal/behavior"
	"github.com/joeycumines/tickbt/internal/btadapt"
)

// Action is a planning action: alternative precondition groups, the
// effects it achieves, and the behavior node that performs it.
type Action struct {
	Name string

	conditions []pabtpkg.IConditions
	effects    pabtpkg.Effects
	body       behavior.Node
	node       bt.Node
}

var _ pabtpkg.IAction = (*Action)(nil)

func (a *Action) Conditions() []pabtpkg.IConditions { return a.conditions }
func (a *Action) Effects() pabtpkg.Effects          { return a.effects }
func (a *Action) Node() bt.Node                     { return a.node }

// Body returns the behavior node performing the action.
func (a *Action) Body() behavior.Node { return a.body }

// ActionBuilder assembles an [Action].
type ActionBuilder struct {
	name       string
	conditions []pabtpkg.IConditions
	effects    pabtpkg.Effects
	body       behavior.Node
}

// NewActionBuilder starts an action named name.
func NewActionBuilder(name string) *ActionBuilder {
	return &ActionBuilder{name: name}
}

// When adds a precondition group. Groups are alternatives; the conditions
// of one group must all hold.
func (b *ActionBuilder) When(conds ...pabtpkg.Condition) *ActionBuilder {
	b.conditions = append(b.conditions, conds)
	return b
}

// Sets declares that the action sets key to value.
func (b *ActionBuilder) Sets(key string, value any) *ActionBuilder {
	b.effects = append(b.effects, NewEffect(key, value))
	return b
}

// Do sets the behavior node performing the action.
func (b *ActionBuilder) Do(body behavior.Node) *ActionBuilder {
	b.body = body
	return b
}

// Build creates the action. Its go-behaviortree node evaluates the body
// with the context of the planning node currently ticking s.
func (b *ActionBuilder) Build(s *State) *Action {
	body := b.body
	if body == nil {
		body = &behavior.Constant{Status: behavior.Failure}
	}
	return &Action{
		Name:       b.name,
		conditions: b.conditions,
		effects:    b.effects,
		body:       body,
		node:       btadapt.ToBT(body, s.Context),
	}
}

// ActionRegistry is a thread-safe set of named actions.
type ActionRegistry struct {
	mu      sync.RWMutex
	actions map[string]pabtpkg.IAction
}

// NewActionRegistry returns an empty registry.
func NewActionRegistry() *ActionRegistry {
	return &ActionRegistry{actions: make(map[string]pabtpkg.IAction)}
}

// Register adds action under name, replacing any previous one.
func (r *ActionRegistry) Register(name string, action pabtpkg.IAction) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions[name] = action
}

// Get returns the action registered as name, or nil.
func (r *ActionRegistry) Get(name string) pabtpkg.IAction {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.actions[name]
}

// All returns every action sorted by name, so planning is reproducible.
func (r *ActionRegistry) All() []pabtpkg.IAction {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.actions))
	for name := range r.actions {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]pabtpkg.IAction, 0, len(names))
	for _, name := range names {
		out = append(out, r.actions[name])
	}
	return out
}

// Len returns the number of registered actions.
func (r *ActionRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.actions)
}
