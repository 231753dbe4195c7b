package command

import (
	"log/slog"

	"github.com/joeycumines/tickbt/internal/behavior"
	"github.com/joeycumines/tickbt/internal/template"
)

// CountKey is the blackboard key incremented by the "count" action.
const CountKey = "count"

// registerActions registers the actions available to templates run from
// the command line.
func registerActions(b *template.Builder, logger *slog.Logger) {
	b.RegisterAction("noop", func(*behavior.Context) (behavior.Status, error) {
		return behavior.Success, nil
	})
	b.RegisterAction("fail", func(*behavior.Context) (behavior.Status, error) {
		return behavior.Failure, nil
	})
	b.RegisterAction("count", func(ctx *behavior.Context) (behavior.Status, error) {
		ctx.Blackboard.SetValue(CountKey, behavior.GetValue(ctx.Blackboard, CountKey, 0)+1)
		return behavior.Success, nil
	})
	b.RegisterAction("log", func(ctx *behavior.Context) (behavior.Status, error) {
		logger.Info("[Action] blackboard", "values", ctx.Blackboard.Snapshot())
		return behavior.Success, nil
	})
}
