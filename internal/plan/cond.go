package plan

import (
	"fmt"
	"log/slog"
	"reflect"
	"sync"

	"github.com/expr-lang/expr/vm"
	pabtpkg "github.com/joeycumines/go-pabt"
	"github.com/joeycumines/tickbt/internal/leaf"
)

// Cond is a condition over one blackboard key.
type Cond struct {
	key   string
	match func(value any) bool
}

var _ pabtpkg.Condition = (*Cond)(nil)

// NewCond returns a condition on key matching with match.
func NewCond(key string, match func(value any) bool) *Cond {
	return &Cond{key: key, match: match}
}

func (c *Cond) Key() any { return c.key }

func (c *Cond) Match(value any) bool {
	if c == nil || c.match == nil {
		return false
	}
	return c.match(value)
}

func (c *Cond) String() string { return fmt.Sprintf("Cond(%s)", c.key) }

// EqualCond holds when key equals expected. Numbers compare by value, so
// int 1 equals float64 1.
func EqualCond(key string, expected any) *Cond {
	return NewCond(key, func(value any) bool { return valuesEqual(value, expected) })
}

// NotNilCond holds when key has a non-nil value.
func NotNilCond(key string) *Cond {
	return NewCond(key, func(value any) bool { return value != nil })
}

// NilCond holds when key is unset or nil.
func NilCond(key string) *Cond {
	return NewCond(key, func(value any) bool { return value == nil })
}

func valuesEqual(a, b any) bool {
	if fa, ok := asNumber(a); ok {
		if fb, ok := asNumber(b); ok {
			return fa == fb
		}
	}
	return reflect.DeepEqual(a, b)
}

func asNumber(v any) (float64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}

// ExprCond is a condition whose match is an expr-lang expression over the
// variable value, e.g. "value > 3".
type ExprCond struct {
	key    string
	source string

	mu      sync.Mutex
	program *vm.Program
	lastErr error
}

var _ pabtpkg.Condition = (*ExprCond)(nil)

// NewExprCond compiles source eagerly so that mistakes surface at build
// time.
func NewExprCond(key, source string) (*ExprCond, error) {
	program, err := leaf.CompileExpr(source)
	if err != nil {
		return nil, err
	}
	return &ExprCond{key: key, source: source, program: program}, nil
}

func (c *ExprCond) Key() any { return c.key }

// Match evaluates the expression. Evaluation errors count as no match and
// are kept for LastError.
func (c *ExprCond) Match(value any) bool {
	ok, err := leaf.EvalExpr(c.program, map[string]any{"value": value})
	c.mu.Lock()
	c.lastErr = err
	c.mu.Unlock()
	if err != nil {
		slog.Error("[Plan] condition evaluation failed", "key", c.key, "expr", c.source, "error", err)
		return false
	}
	return ok
}

// LastError returns the error of the most recent Match, if any.
func (c *ExprCond) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

func (c *ExprCond) String() string { return fmt.Sprintf("ExprCond(%s: %s)", c.key, c.source) }

// Effect records that an action sets key to value.
type Effect struct {
	key   string
	value any
}

var _ pabtpkg.Effect = (*Effect)(nil)

// NewEffect returns an effect setting key to value.
func NewEffect(key string, value any) *Effect {
	return &Effect{key: key, value: value}
}

func (e *Effect) Key() any   { return e.key }
func (e *Effect) Value() any { return e.value }

// Goal groups conditions that must all hold.
func Goal(conds ...pabtpkg.Condition) pabtpkg.IConditions {
	return conds
}
