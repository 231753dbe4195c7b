package leaf

import (
	"fmt"
	"log/slog"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/joeycumines/tickbt/internal/behavior"
)

// DeltaVar is the expr variable holding the tick delta, in seconds. It
// shadows a blackboard entry of the same name.
const DeltaVar = "dt"

var exprPrograms = NewCache[*vm.Program](DefaultCacheSize)

// SetExprCacheSize resizes the shared expression cache.
func SetExprCacheSize(size int) {
	exprPrograms.Resize(size)
}

// ExprCacheStats reports activity of the shared expression cache.
func ExprCacheStats() CacheStats {
	return exprPrograms.Stats()
}

// ClearExprCache empties the shared expression cache.
func ClearExprCache() {
	exprPrograms.Clear()
}

// CompileExpr compiles a boolean expression over a map environment,
// consulting the shared cache first. Undefined variables evaluate to nil.
func CompileExpr(source string) (*vm.Program, error) {
	if source == "" {
		return nil, fmt.Errorf("empty expression")
	}
	if program, ok := exprPrograms.Get(source); ok {
		return program, nil
	}
	program, err := expr.Compile(source,
		expr.Env(map[string]any{}),
		expr.AsBool(),
		expr.AllowUndefinedVariables(),
	)
	if err != nil {
		return nil, fmt.Errorf("compile %q: %w", source, err)
	}
	exprPrograms.Put(source, program)
	return program, nil
}

// EvalExpr runs a compiled boolean program against env.
func EvalExpr(program *vm.Program, env map[string]any) (bool, error) {
	out, err := expr.Run(program, env)
	if err != nil {
		return false, err
	}
	b, ok := out.(bool)
	if !ok {
		return false, fmt.Errorf("expression returned %T, not bool", out)
	}
	return b, nil
}

// Expr is a condition leaf: Success when Source evaluates to true against
// a snapshot of the blackboard, Failure when false. Blackboard keys are
// top-level variables, plus [DeltaVar].
//
// Compile and evaluation errors are returned from Run.
type Expr struct {
	Source string

	program *vm.Program
}

// NewExpr returns an Expr for source.
func NewExpr(source string) *Expr {
	return &Expr{Source: source}
}

func (n *Expr) Run(ctx *behavior.Context) (behavior.Status, error) {
	if n.program == nil {
		program, err := CompileExpr(n.Source)
		if err != nil {
			slog.Error("[Expr] compilation failed", "expr", n.Source, "error", err)
			return behavior.Failure, err
		}
		n.program = program
	}
	env := map[string]any{}
	if ctx.Blackboard != nil {
		env = ctx.Blackboard.Snapshot()
	}
	env[DeltaVar] = ctx.DeltaTime.Seconds()
	ok, err := EvalExpr(n.program, env)
	if err != nil {
		return behavior.Failure, fmt.Errorf("expr %q: %w", n.Source, err)
	}
	if ok {
		return behavior.Success, nil
	}
	return behavior.Failure, nil
}

func (n *Expr) NodeName() string { return fmt.Sprintf("Expr(%s)", n.Source) }
