package command

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/joeycumines/tickbt/internal/behavior"
	"github.com/joeycumines/tickbt/internal/config"
	"github.com/joeycumines/tickbt/internal/debugview"
	"github.com/joeycumines/tickbt/internal/driver"
	"github.com/joeycumines/tickbt/internal/metrics"
	"github.com/joeycumines/tickbt/internal/template"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/term"
)

// RunCommand instantiates a template and ticks it, then reports the final
// state of every tree.
type RunCommand struct {
	*BaseCommand
	config *config.Config

	frames   int
	delta    time.Duration
	trees    int
	metrics  bool
	trace    bool
	realtime bool
	watch    bool
	runFor   time.Duration
	logPath  string
	logLevel string
	color    string

	// ctxFactory creates the execution context. If nil, the context is
	// cancelled on SIGINT and SIGTERM.
	ctxFactory func() (context.Context, context.CancelFunc)
}

// NewRunCommand returns the run command.
func NewRunCommand(cfg *config.Config) *RunCommand {
	return &RunCommand{
		BaseCommand: NewBaseCommand(
			"run",
			"Tick a behavior tree template",
			"run [options] <template.yaml>",
		),
		config: cfg,
		color:  "auto",
	}
}

// SetupFlags registers the run flags. Zero values defer to the
// configuration.
func (c *RunCommand) SetupFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.frames, "frames", 0, "Frames to tick (default from [run] frames)")
	fs.DurationVar(&c.delta, "delta", 0, "Delta time per frame (default from [run] delta)")
	fs.IntVar(&c.trees, "trees", 0, "Trees to instantiate (default from [run] trees)")
	fs.BoolVar(&c.metrics, "metrics", false, "Print tick metrics")
	fs.BoolVar(&c.trace, "trace", false, "Print every root status change")
	fs.BoolVar(&c.realtime, "realtime", false, "Tick on a wall clock ticker instead of a fixed frame count")
	fs.BoolVar(&c.watch, "watch", false, "Reload the template when it changes (realtime only)")
	fs.DurationVar(&c.runFor, "for", 0, "Stop a realtime run after this long (default: until interrupted)")
	fs.StringVar(&c.logPath, "log-file", "", "Path to log file (JSON output)")
	fs.StringVar(&c.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	fs.StringVar(&c.color, "color", "auto", "Colorize output: auto, always, never")
}

// Execute runs the template named by args[0].
func (c *RunCommand) Execute(args []string, stdout, stderr io.Writer) error {
	if len(args) != 1 {
		_, _ = fmt.Fprintf(stderr, "usage: tickbt %s\n", c.Usage())
		return fmt.Errorf("expected one template file")
	}

	st, err := config.DefaultSchema().Settings(c.config)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	c.applyFlags(&st)

	styles, err := c.styles(stdout)
	if err != nil {
		return err
	}

	lc, err := resolveLogConfig(c.logPath, c.logLevel, st)
	if err != nil {
		return err
	}
	defer lc.close()
	logger := lc.logger(stderr)

	var ctx context.Context
	var cancel context.CancelFunc
	if c.ctxFactory != nil {
		ctx, cancel = c.ctxFactory()
	} else {
		ctx, cancel = signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	}
	defer cancel()

	builder, engine, err := newBuilder(ctx, st, logger)
	if err != nil {
		return err
	}
	defer engine.Close()

	def, err := template.Load(args[0])
	if err != nil {
		return err
	}
	if err := builder.Validate(def); err != nil {
		return err
	}

	treeOpts := append(st.TreeOptions(builder.Pool()), behavior.WithLogger(logger))
	reg := behavior.NewRegistry(treeOpts...)
	defer reg.Close()

	var collector *metrics.Collector
	if st.Metrics {
		if collector, err = metrics.NewCollector(prometheus.NewRegistry()); err != nil {
			return err
		}
	}
	recorder := debugview.NewRecorder(0)

	spawn := func(def *template.Definition) error {
		for range st.RunTrees {
			tree, err := builder.Instantiate(reg, def)
			if err != nil {
				return err
			}
			collector.Track(tree)
			if c.trace {
				recorder.Attach(tree)
			}
		}
		return nil
	}
	if err := spawn(def); err != nil {
		return err
	}

	d := driver.New(reg,
		driver.WithInterval(st.TickInterval),
		driver.WithIsolation(st.IsolatePanics),
		driver.WithMetrics(collector),
		driver.WithLogger(logger),
	)

	if c.realtime {
		if c.runFor > 0 {
			var stop context.CancelFunc
			ctx, stop = context.WithTimeout(ctx, c.runFor)
			defer stop()
		}
		watchCtx, stopWatch := context.WithCancel(ctx)
		defer stopWatch()
		if c.watch {
			reload := func() error {
				next, err := template.Load(args[0])
				if err != nil {
					return err
				}
				if err := builder.Validate(next); err != nil {
					return err
				}
				d.Exclusive(func() {
					if watchCtx.Err() != nil {
						return
					}
					for _, tree := range reg.Trees() {
						tree.Dispose()
					}
					err = spawn(next)
				})
				return err
			}
			if err := watchFile(watchCtx, args[0], watchDebounce, logger, reload); err != nil {
				return err
			}
		}
		err = d.Run(ctx)
		d.Exclusive(stopWatch)
	} else {
		err = c.tickFrames(ctx, d, recorder, st)
	}

	c.report(stdout, reg, recorder, collector, styles)
	if err != nil {
		return fmt.Errorf("run %s: %w", def.Name, err)
	}
	return nil
}

func (c *RunCommand) applyFlags(st *config.Settings) {
	if c.frames > 0 {
		st.RunFrames = c.frames
	}
	if c.delta > 0 {
		st.RunDelta = c.delta
	}
	if c.trees > 0 {
		st.RunTrees = c.trees
	}
	if c.metrics {
		st.Metrics = true
	}
}

func (c *RunCommand) styles(stdout io.Writer) (debugview.Styles, error) {
	switch c.color {
	case "always":
		return debugview.DefaultStyles(), nil
	case "never":
		return debugview.PlainStyles(), nil
	case "auto", "":
		if f, ok := stdout.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
			return debugview.DefaultStyles(), nil
		}
		return debugview.PlainStyles(), nil
	default:
		return debugview.Styles{}, fmt.Errorf("invalid color mode: %s", c.color)
	}
}

// tickFrames drives st.RunFrames frames of st.RunDelta each. Frame errors
// stop the run unless panics are isolated.
func (c *RunCommand) tickFrames(ctx context.Context, d *driver.Driver, recorder *debugview.Recorder, st config.Settings) error {
	for frame := range st.RunFrames {
		if err := ctx.Err(); err != nil {
			return nil
		}
		recorder.SetFrame(uint64(frame))
		if err := d.Frame(st.RunDelta); err != nil && !st.IsolatePanics {
			return err
		}
	}
	return nil
}

func (c *RunCommand) report(w io.Writer, reg *behavior.Registry, recorder *debugview.Recorder, collector *metrics.Collector, st debugview.Styles) {
	for _, tree := range reg.Trees() {
		_, _ = fmt.Fprint(w, debugview.Outline(tree, st))
		snapshot := tree.Blackboard().Snapshot()
		for _, key := range slices.Sorted(maps.Keys(snapshot)) {
			_, _ = fmt.Fprintf(w, "  %s = %v\n", key, snapshot[key])
		}
		_, _ = fmt.Fprintln(w)
	}

	if c.trace {
		if table := recorder.Table(st); table != "" {
			_, _ = fmt.Fprint(w, table)
			_, _ = fmt.Fprintln(w)
		}
	}

	samples, err := collector.Summary()
	if err != nil {
		slog.Warn("[Run] metrics unavailable", "error", err)
		return
	}
	for _, s := range samples {
		if s.Labels != "" {
			_, _ = fmt.Fprintf(w, "%s{%s} %g\n", s.Name, s.Labels, s.Value)
		} else {
			_, _ = fmt.Fprintf(w, "%s %g\n", s.Name, s.Value)
		}
	}
}
