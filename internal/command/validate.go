package command

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/joeycumines/tickbt/internal/config"
	"github.com/joeycumines/tickbt/internal/leaf"
	"github.com/joeycumines/tickbt/internal/template"
)

// ValidateCommand checks template files without running them.
type ValidateCommand struct {
	*BaseCommand
	config *config.Config
}

// NewValidateCommand returns the validate command.
func NewValidateCommand(cfg *config.Config) *ValidateCommand {
	return &ValidateCommand{
		BaseCommand: NewBaseCommand(
			"validate",
			"Check behavior tree templates",
			"validate <template.yaml>...",
		),
		config: cfg,
	}
}

// Execute validates every file named in args.
func (c *ValidateCommand) Execute(args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		_, _ = fmt.Fprintln(stderr, "no template files given")
		return fmt.Errorf("missing arguments")
	}

	st, err := config.DefaultSchema().Settings(c.config)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	builder, engine, err := newBuilder(context.Background(), st, logger)
	if err != nil {
		return err
	}
	defer engine.Close()

	failed := 0
	for _, path := range args {
		def, err := template.Load(path)
		if err == nil {
			err = builder.Validate(def)
		}
		if err != nil {
			failed++
			_, _ = fmt.Fprintf(stdout, "FAIL %s\n", path)
			for _, e := range unwrapJoined(err) {
				_, _ = fmt.Fprintf(stdout, "  - %v\n", e)
			}
			continue
		}
		_, _ = fmt.Fprintf(stdout, "ok   %s (%s, %d roots)\n", path, def.Name, len(def.Roots))
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d templates invalid", failed, len(args))
	}
	return nil
}

// newBuilder returns a template builder with a script engine and the
// command line actions.
func newBuilder(ctx context.Context, st config.Settings, logger *slog.Logger) (*template.Builder, *leaf.Engine, error) {
	leaf.SetExprCacheSize(st.ExprCacheSize)
	engine, err := leaf.NewEngine(ctx,
		leaf.WithScriptBudget(st.ScriptBudget),
		leaf.WithCacheSize(st.ExprCacheSize),
		leaf.WithEngineLogger(logger),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to start script engine: %w", err)
	}
	b := template.NewBuilder(
		template.WithEngine(engine),
		template.WithLogger(logger),
	)
	registerActions(b, logger)
	return b, engine, nil
}
