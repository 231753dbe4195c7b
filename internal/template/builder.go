package template

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sort"

	pabtpkg "github.com/joeycumines/go-pabt"
	"github.com/joeycumines/tickbt/internal/behavior"
	"github.com/joeycumines/tickbt/internal/leaf"
	"github.com/joeycumines/tickbt/internal/plan"
)

// PlanActionFunc builds a planning action bound to the state of one plan
// node.
type PlanActionFunc func(s *plan.State) *plan.Action

// BuilderOption configures a [Builder].
type BuilderOption func(*Builder)

// WithEngine enables script nodes, run on engine.
func WithEngine(engine *leaf.Engine) BuilderOption {
	return func(b *Builder) {
		b.engine = engine
	}
}

// WithPool sets the pool used by pooled templates.
func WithPool(pool *behavior.NodePool) BuilderOption {
	return func(b *Builder) {
		b.pool = pool
	}
}

// WithLogger sets the builder's logger.
func WithLogger(logger *slog.Logger) BuilderOption {
	return func(b *Builder) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// Builder turns definitions into node graphs. Registration is not safe
// concurrently with building.
type Builder struct {
	engine      *leaf.Engine
	pool        *behavior.NodePool
	logger      *slog.Logger
	actions     map[string]behavior.ActionFunc
	planActions map[string]PlanActionFunc
}

// NewBuilder returns a builder with no registered actions.
func NewBuilder(opts ...BuilderOption) *Builder {
	b := &Builder{
		logger:      slog.Default(),
		actions:     make(map[string]behavior.ActionFunc),
		planActions: make(map[string]PlanActionFunc),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.pool == nil {
		b.pool = behavior.NewNodePool(0, 0)
	}
	return b
}

// RegisterAction makes fn available to action nodes as name.
func (b *Builder) RegisterAction(name string, fn behavior.ActionFunc) {
	b.actions[name] = fn
}

// RegisterPlanAction makes an action available to plan nodes as name.
func (b *Builder) RegisterPlanAction(name string, fn PlanActionFunc) {
	b.planActions[name] = fn
}

// Pool returns the pool shared by pooled trees.
func (b *Builder) Pool() *behavior.NodePool { return b.pool }

// Validate checks def against the tag rules, then performs a dry build,
// which compiles every expression and script.
func (b *Builder) Validate(def *Definition) error {
	if def == nil {
		return fmt.Errorf("%w: nil definition", ErrInvalid)
	}
	if err := validateStruct(def); err != nil {
		return err
	}
	_, err := b.Build(def)
	return err
}

// Build returns fresh root nodes for def. Every problem found is reported,
// joined.
func (b *Builder) Build(def *Definition) ([]behavior.Node, error) {
	roots := make([]behavior.Node, 0, len(def.Roots))
	var errs []error
	for i := range def.Roots {
		n, err := b.build(&def.Roots[i], fmt.Sprintf("roots[%d]", i))
		if err != nil {
			errs = append(errs, err)
			continue
		}
		roots = append(roots, n)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return roots, nil
}

// Instantiate builds def into a new tree of reg, seeding its blackboard.
// opts are applied after the options derived from def.
func (b *Builder) Instantiate(reg *behavior.Registry, def *Definition, opts ...behavior.Option) (*behavior.Tree, error) {
	roots, err := b.Build(def)
	if err != nil {
		return nil, err
	}

	var treeOpts []behavior.Option
	if def.Capacity > 0 {
		treeOpts = append(treeOpts, behavior.WithCapacity(def.Capacity))
	}
	if def.Pooled {
		treeOpts = append(treeOpts, behavior.WithPool(b.pool))
		if def.GrowthFactor > 1 {
			treeOpts = append(treeOpts, behavior.WithGrowthFactor(def.GrowthFactor))
		}
	}
	if def.MaxParallelism > 0 {
		treeOpts = append(treeOpts, behavior.WithMaxParallelism(def.MaxParallelism))
	}
	if def.BlackboardSize > 0 {
		treeOpts = append(treeOpts, behavior.WithBlackboardSize(def.BlackboardSize))
	}
	treeOpts = append(treeOpts, opts...)

	tree := reg.NewTree(treeOpts...)
	bb := tree.Blackboard()
	for _, key := range slices.Sorted(maps.Keys(def.Blackboard)) {
		bb.SetValue(key, def.Blackboard[key])
	}
	tree.AddNode(roots...)
	b.logger.Debug("[Template] instantiated", "template", def.Name, "tree", tree.ID(), "roots", len(roots))
	return tree, nil
}

func (b *Builder) build(spec *NodeSpec, path string) (behavior.Node, error) {
	fail := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s (%s): %s", ErrInvalid, path, spec.Type, fmt.Sprintf(format, args...))
	}

	switch spec.Type {
	case "sequence", "selector", "parallel", "random":
		children, err := b.children(spec, path)
		if err != nil {
			return nil, err
		}
		switch spec.Type {
		case "sequence":
			return behavior.NewSequence(children...), nil
		case "selector":
			return behavior.NewSelector(children...), nil
		case "parallel":
			return behavior.NewParallel(spec.RequireAll, children...), nil
		}
		return behavior.NewRandomSelector(children...), nil

	case "weighted":
		children, err := b.children(spec, path)
		if err != nil {
			return nil, err
		}
		items := make([]behavior.Weighted, len(children))
		for i, c := range children {
			items[i] = behavior.Weighted{Weight: spec.Children[i].Weight, Node: c}
		}
		sel := behavior.NewWeightedSelector(items...)
		sel.DataKey = spec.DataKey
		return sel, nil

	case "inverter", "repeater", "force", "timeout", "watcher":
		child, err := b.child(spec, path)
		if err != nil {
			return nil, err
		}
		switch spec.Type {
		case "inverter":
			return behavior.NewInverter(child), nil
		case "repeater":
			mode, ok := parseMode(spec.Mode, behavior.RepeatCount, behavior.RepeatForever, behavior.RepeatUntilSuccess, behavior.RepeatUntilFailure)
			if !ok {
				return nil, fail("invalid mode %q", spec.Mode)
			}
			r := behavior.NewRepeaterMode(mode, spec.Count, child)
			r.DataKey = spec.DataKey
			return r, nil
		case "force":
			mode, ok := parseMode(spec.Mode, behavior.ForceInvert, behavior.ForceSuccess, behavior.ForceFailure)
			if !ok {
				return nil, fail("invalid mode %q", spec.Mode)
			}
			return behavior.NewForceResult(mode, child), nil
		case "timeout":
			if spec.Duration <= 0 && spec.DataKey == "" {
				return nil, fail("duration must be positive")
			}
			n := behavior.NewTimeout(spec.Duration, child)
			n.DataKey = spec.DataKey
			return n, nil
		}
		if spec.Key == "" {
			return nil, fail("key is required")
		}
		mode, ok := parseMode(spec.Mode, behavior.WatchChanged, behavior.WatchAvailable, behavior.WatchLost, behavior.WatchAny)
		if !ok {
			return nil, fail("invalid mode %q", spec.Mode)
		}
		return behavior.NewWatcher(spec.Key, mode, child), nil

	case "failure":
		child, err := b.child(spec, path)
		if err != nil {
			return nil, err
		}
		mode, ok := parseMode(spec.Mode, behavior.FailureSkip, behavior.FailureCatch, behavior.FailureThrow)
		if !ok {
			return nil, fail("invalid mode %q", spec.Mode)
		}
		var fallback behavior.Node
		if spec.Fallback != nil {
			if fallback, err = b.build(spec.Fallback, path+".fallback"); err != nil {
				return nil, err
			}
		} else if mode == behavior.FailureCatch {
			return nil, fail("catch mode requires a fallback")
		}
		n := behavior.NewFailureHandler(mode, child, fallback)
		n.DataKey = spec.DataKey
		return n, nil

	case "wait":
		mode, ok := parseMode(spec.Mode, behavior.WaitAutoReset, behavior.WaitOnce)
		if !ok {
			return nil, fail("invalid mode %q", spec.Mode)
		}
		if spec.Duration <= 0 {
			return nil, fail("duration must be positive")
		}
		return behavior.NewWait(spec.Duration, mode), nil

	case "expr":
		if _, err := leaf.CompileExpr(spec.Expr); err != nil {
			return nil, fail("%v", err)
		}
		return leaf.NewExpr(spec.Expr), nil

	case "script":
		if b.engine == nil {
			return nil, fail("script nodes need a script engine")
		}
		name := spec.Name
		if name == "" {
			name = path
		}
		if spec.Script == "" {
			return nil, fail("script is required")
		}
		if _, err := b.engine.Compile(name, spec.Script); err != nil {
			return nil, fail("%v", err)
		}
		return leaf.NewScript(b.engine, name, spec.Script), nil

	case "set":
		if spec.Key == "" {
			return nil, fail("key is required")
		}
		return &behavior.SetValue{Key: spec.Key, Value: spec.Value}, nil

	case "status":
		status, err := behavior.ParseStatus(spec.Status)
		if err != nil {
			return nil, fail("%v", err)
		}
		return &behavior.Constant{Status: status}, nil

	case "action":
		fn, ok := b.actions[spec.Action]
		if !ok {
			return nil, fmt.Errorf("%w: %s: %w %q", ErrInvalid, path, ErrUnknownAction, spec.Action)
		}
		name := spec.Name
		if name == "" {
			name = spec.Action
		}
		return behavior.NewAction(name, fn), nil

	case "plan":
		return b.buildPlan(spec, path)
	}
	return nil, fmt.Errorf("%w: %s: %w %q", ErrInvalid, path, ErrUnknownNodeType, spec.Type)
}

func (b *Builder) children(spec *NodeSpec, path string) ([]behavior.Node, error) {
	if len(spec.Children) == 0 {
		return nil, fmt.Errorf("%w: %s (%s): at least one child is required", ErrInvalid, path, spec.Type)
	}
	out := make([]behavior.Node, len(spec.Children))
	var errs []error
	for i := range spec.Children {
		n, err := b.build(&spec.Children[i], fmt.Sprintf("%s.children[%d]", path, i))
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out[i] = n
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return out, nil
}

func (b *Builder) child(spec *NodeSpec, path string) (behavior.Node, error) {
	if len(spec.Children) != 1 {
		return nil, fmt.Errorf("%w: %s (%s): exactly one child is required, got %d", ErrInvalid, path, spec.Type, len(spec.Children))
	}
	return b.build(&spec.Children[0], path+".children[0]")
}

func (b *Builder) buildPlan(spec *NodeSpec, path string) (behavior.Node, error) {
	if len(spec.Goals) == 0 {
		return nil, fmt.Errorf("%w: %s (plan): at least one goal is required", ErrInvalid, path)
	}
	state := plan.NewState(nil)

	names := spec.Actions
	if len(names) == 0 {
		names = make([]string, 0, len(b.planActions))
		for name := range b.planActions {
			names = append(names, name)
		}
		sort.Strings(names)
	}
	for _, name := range names {
		fn, ok := b.planActions[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s: %w %q", ErrInvalid, path, ErrUnknownAction, name)
		}
		state.Register(fn(state))
	}

	goals := make([]pabtpkg.IConditions, 0, len(spec.Goals))
	for i, g := range spec.Goals {
		conds := make([]pabtpkg.Condition, 0, len(g.Conditions))
		for j, c := range g.Conditions {
			cond, err := buildCond(c)
			if err != nil {
				return nil, fmt.Errorf("%w: %s.goals[%d].all[%d]: %w", ErrInvalid, path, i, j, err)
			}
			conds = append(conds, cond)
		}
		goals = append(goals, plan.Goal(conds...))
	}
	return plan.NewNode(spec.Name, state, goals...), nil
}

func buildCond(c CondSpec) (pabtpkg.Condition, error) {
	if c.Expr != "" {
		return plan.NewExprCond(c.Key, c.Expr)
	}
	if c.Equals == nil {
		return plan.NotNilCond(c.Key), nil
	}
	return plan.EqualCond(c.Key, c.Equals), nil
}

// parseMode returns the value whose String matches s. An empty s selects
// the first value.
func parseMode[M fmt.Stringer](s string, values ...M) (M, bool) {
	if s == "" {
		return values[0], true
	}
	for _, v := range values {
		if v.String() == s {
			return v, true
		}
	}
	var zero M
	return zero, false
}
