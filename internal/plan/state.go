package plan

import (
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	pabtpkg "github.com/joeycumines/go-pabt"
	"github.com/joeycumines/tickbt/internal/behavior"
)

var _ pabtpkg.IState = (*State)(nil)

// GeneratorFunc produces actions for a failed condition at planning time,
// for actions parameterised by the world state.
type GeneratorFunc func(failed pabtpkg.Condition) ([]pabtpkg.IAction, error)

// State exposes a blackboard and an action library to the planner.
type State struct {
	bb      *behavior.Blackboard
	actions *ActionRegistry
	logger  *slog.Logger

	mu        sync.RWMutex
	generator GeneratorFunc
	ctx       *behavior.Context
}

// NewState returns a State reading bb. When bb is nil, the blackboard of
// the evaluating tree is used.
func NewState(bb *behavior.Blackboard) *State {
	return &State{
		bb:      bb,
		actions: NewActionRegistry(),
		logger:  slog.Default(),
	}
}

// Registry returns the static action library.
func (s *State) Registry() *ActionRegistry { return s.actions }

// Register adds a to the action library under its name.
func (s *State) Register(a *Action) {
	s.actions.Register(a.Name, a)
}

// SetGenerator installs a generator consulted before the static library.
func (s *State) SetGenerator(gen GeneratorFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generator = gen
}

// Context returns the context of the current evaluation, nil outside one.
func (s *State) Context() *behavior.Context {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ctx
}

func (s *State) bind(ctx *behavior.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ctx = ctx
}

func (s *State) blackboard() *behavior.Blackboard {
	if s.bb != nil {
		return s.bb
	}
	if ctx := s.Context(); ctx != nil {
		return ctx.Blackboard
	}
	return nil
}

// Variable returns the blackboard value for key. Keys are normalised to
// strings; missing keys yield nil.
func (s *State) Variable(key any) (any, error) {
	name, err := keyString(key)
	if err != nil {
		return nil, err
	}
	bb := s.blackboard()
	if bb == nil {
		return nil, fmt.Errorf("no blackboard for variable %q", name)
	}
	value, _ := bb.Value(name)
	return value, nil
}

func keyString(key any) (string, error) {
	switch k := key.(type) {
	case nil:
		return "", fmt.Errorf("variable key cannot be nil")
	case string:
		return k, nil
	case int:
		return strconv.Itoa(k), nil
	case int64:
		return strconv.FormatInt(k, 10), nil
	case fmt.Stringer:
		return k.String(), nil
	}
	return "", fmt.Errorf("unsupported key type: %T", key)
}

// Actions returns the actions with an effect satisfying failed. When a
// generator is installed and returns actions, it is authoritative and the
// static library is not consulted.
func (s *State) Actions(failed pabtpkg.Condition) ([]pabtpkg.IAction, error) {
	if failed == nil {
		return s.actions.All(), nil
	}

	s.mu.RLock()
	gen := s.generator
	s.mu.RUnlock()

	var relevant []pabtpkg.IAction
	if gen != nil {
		generated, err := gen(failed)
		if err != nil {
			s.logger.Warn("[Plan] action generator failed", "key", failed.Key(), "error", err)
		} else if len(generated) > 0 {
			for _, a := range generated {
				if hasRelevantEffect(a, failed) {
					relevant = append(relevant, a)
				}
			}
			return relevant, nil
		}
	}

	for _, a := range s.actions.All() {
		if hasRelevantEffect(a, failed) {
			relevant = append(relevant, a)
		}
	}
	s.logger.Debug("[Plan] actions for failed condition", "key", failed.Key(), "count", len(relevant))
	return relevant, nil
}

func hasRelevantEffect(a pabtpkg.IAction, failed pabtpkg.Condition) bool {
	key := failed.Key()
	for _, e := range a.Effects() {
		if e != nil && e.Key() == key && failed.Match(e.Value()) {
			return true
		}
	}
	return false
}
