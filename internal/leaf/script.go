package leaf

import (
	"fmt"
	"time"

	"github.com/dop251/goja"
	"github.com/joeycumines/tickbt/internal/behavior"
)

// Script is an action leaf running JavaScript on an [Engine].
//
// The script sees two globals: dt, the tick delta in seconds, and bb, a
// view of the tree's blackboard with get, set, has, remove and keys. Its
// completion value decides the status: a status string ("running",
// "success", "failure", also available as status.running etc.), a
// boolean, or undefined/null for Success. Anything else, and any thrown
// exception, is returned as an error.
type Script struct {
	Name   string
	Source string
	Engine *Engine

	program *goja.Program
}

// NewScript returns a Script named name.
func NewScript(engine *Engine, name, source string) *Script {
	return &Script{Name: name, Source: source, Engine: engine}
}

func (n *Script) Run(ctx *behavior.Context) (behavior.Status, error) {
	if n.Engine == nil || n.Source == "" {
		return behavior.Failure, nil
	}
	if n.program == nil {
		program, err := n.Engine.Compile(n.label(), n.Source)
		if err != nil {
			return behavior.Failure, err
		}
		n.program = program
	}

	budget := n.Engine.scriptBudget()
	var status behavior.Status
	err := n.Engine.RunSync(func(vm *goja.Runtime) error {
		if err := vm.Set("bb", blackboardObject(vm, ctx.Blackboard)); err != nil {
			return err
		}
		if err := vm.Set("dt", ctx.DeltaTime.Seconds()); err != nil {
			return err
		}
		if budget > 0 {
			timer := time.AfterFunc(budget, func() {
				vm.Interrupt(fmt.Sprintf("script exceeded %v", budget))
			})
			defer func() {
				timer.Stop()
				vm.ClearInterrupt()
			}()
		}
		v, err := vm.RunProgram(n.program)
		if err != nil {
			return err
		}
		status, err = scriptStatus(v)
		return err
	})
	if err != nil {
		return behavior.Failure, fmt.Errorf("script %s: %w", n.label(), err)
	}
	return status, nil
}

func (n *Script) label() string {
	if n.Name == "" {
		return "script"
	}
	return n.Name
}

func (n *Script) NodeName() string { return fmt.Sprintf("Script(%s)", n.label()) }

func scriptStatus(v goja.Value) (behavior.Status, error) {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return behavior.Success, nil
	}
	switch x := v.Export().(type) {
	case bool:
		if x {
			return behavior.Success, nil
		}
		return behavior.Failure, nil
	case string:
		return behavior.ParseStatus(x)
	}
	return behavior.Failure, fmt.Errorf("unsupported result %v (%s)", v, v.ExportType())
}

func blackboardObject(vm *goja.Runtime, bb *behavior.Blackboard) *goja.Object {
	obj := vm.NewObject()
	_ = obj.Set("get", func(key string, def goja.Value) goja.Value {
		if bb != nil {
			if v, ok := bb.Value(key); ok {
				return vm.ToValue(v)
			}
		}
		if def == nil {
			return goja.Undefined()
		}
		return def
	})
	_ = obj.Set("set", func(key string, value goja.Value) {
		if bb == nil {
			return
		}
		if value == nil || goja.IsUndefined(value) {
			bb.SetValue(key, nil)
			return
		}
		bb.SetValue(key, value.Export())
	})
	_ = obj.Set("has", func(key string) bool {
		return bb != nil && bb.HasValue(key)
	})
	_ = obj.Set("remove", func(key string) {
		if bb != nil {
			bb.RemoveValue(key)
		}
	})
	_ = obj.Set("keys", func() []string {
		if bb == nil {
			return nil
		}
		return bb.Keys()
	})
	return obj
}
