// Package driver ticks the trees of a registry from a host loop.
package driver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	bt "github.com/joeycumines/go-behaviortree"
	"github.com/joeycumines/tickbt/internal/behavior"
	"github.com/joeycumines/tickbt/internal/btadapt"
	"github.com/joeycumines/tickbt/internal/goroutineid"
	"github.com/joeycumines/tickbt/internal/metrics"
)

// DefaultInterval is the frame interval of the fixed-rate loop.
const DefaultInterval = 16 * time.Millisecond

// ErrPanic wraps a panic recovered from a tree tick.
var ErrPanic = errors.New("tree panicked")

// Option configures a [Driver].
type Option func(*Driver)

// WithInterval sets the frame interval used by Run.
func WithInterval(d time.Duration) Option {
	return func(dr *Driver) {
		if d > 0 {
			dr.interval = d
		}
	}
}

// WithIsolation controls whether a failing or panicking tree is logged and
// skipped (true, the default) or stops the loop.
func WithIsolation(isolate bool) Option {
	return func(dr *Driver) {
		dr.isolate = isolate
	}
}

// WithMetrics records ticks and frames on c.
func WithMetrics(c *metrics.Collector) Option {
	return func(dr *Driver) {
		dr.metrics = c
	}
}

// WithLogger sets the driver's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(dr *Driver) {
		if logger != nil {
			dr.logger = logger
		}
	}
}

// WithClock sets the time source for frame deltas.
func WithClock(now func() time.Time) Option {
	return func(dr *Driver) {
		dr.now = now
	}
}

// Driver advances every tree of a registry once per frame.
type Driver struct {
	registry *behavior.Registry
	interval time.Duration
	isolate  bool
	metrics  *metrics.Collector
	logger   *slog.Logger
	now      func() time.Time

	ctx     context.Context
	cancel  context.CancelFunc
	manager bt.Manager

	mu     sync.Mutex
	frames uint64
	fatal  chan struct{}
	err    error
}

// New returns a driver over reg.
func New(reg *behavior.Registry, opts ...Option) *Driver {
	d := &Driver{
		registry: reg,
		interval: DefaultInterval,
		isolate:  true,
		logger:   slog.Default(),
		manager:  bt.NewManager(),
		fatal:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.ctx, d.cancel = context.WithCancel(context.Background())
	return d
}

// Frames returns the number of frames driven so far.
func (d *Driver) Frames() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.frames
}

// Frame ticks every live tree once with dt, in registration order. Every
// tree is ticked even if an earlier one fails; the errors are joined.
// Panics are recovered into [ErrPanic] errors when isolation is enabled.
//
// The calling goroutine becomes the primary goroutine of every tree, so
// roots are evaluated sequentially in index order.
func (d *Driver) Frame(dt time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	start := time.Now()
	host := goroutineid.Get()
	trees := d.registry.Trees()
	var errs []error
	for _, tree := range trees {
		tree.SetPrimaryGoroutine(host)
		if err := d.tickTree(tree, dt); err != nil {
			errs = append(errs, err)
		}
	}
	d.frames++
	d.metrics.ObserveFrame(time.Since(start))
	d.metrics.SetLiveTrees(d.registry.Len())
	return errors.Join(errs...)
}

func (d *Driver) tickTree(tree *behavior.Tree, dt time.Duration) (err error) {
	start := time.Now()
	result := metrics.ResultOK
	defer func() {
		d.metrics.ObserveTick(time.Since(start), result)
	}()
	if d.isolate {
		defer func() {
			if r := recover(); r != nil {
				result = metrics.ResultPanic
				err = fmt.Errorf("%w: tree %s: %v", ErrPanic, tree.ID(), r)
				d.logger.Error("[Driver] tree panicked", "tree", tree.ID(), "panic", r, "stack", string(debug.Stack()))
			}
		}()
	}
	if err = tree.Tick(dt); err != nil {
		result = metrics.ResultError
		d.logger.Warn("[Driver] tree tick failed", "tree", tree.ID(), "error", err)
	}
	return err
}

// Exclusive runs fn between frames, so fn may add, replace or dispose
// trees of the registry while Run is active.
func (d *Driver) Exclusive(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fn()
}

// Node returns a go-behaviortree node driving one frame per tick, with dt
// measured between ticks. It stays Running; with isolation disabled a
// frame error fails the node and is returned.
func (d *Driver) Node() bt.Node {
	clock := btadapt.NewClock(d.now)
	return bt.New(func([]bt.Node) (bt.Status, error) {
		if err := d.Frame(clock.Delta()); err != nil && !d.isolate {
			d.fail(err)
			return bt.Failure, err
		}
		return bt.Running, nil
	})
}

func (d *Driver) fail(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return
	}
	d.err = err
	close(d.fatal)
}

// Err returns the error that stopped the loop, if any.
func (d *Driver) Err() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.err
}

// Spawn ticks tree on its own ticker at interval, independently of the
// registry frame, until the driver stops. The tree should not also be part
// of the driven registry. Once the tree is disposed its ticker idles.
func (d *Driver) Spawn(tree *behavior.Tree, interval time.Duration) error {
	if interval <= 0 {
		interval = d.interval
	}
	clock := btadapt.NewClock(d.now)
	inner := btadapt.TreeNode(tree, clock.Delta)
	node := bt.New(func([]bt.Node) (bt.Status, error) {
		if tree.IsDisposed() {
			return bt.Success, nil
		}
		tree.SetPrimaryGoroutine(goroutineid.Get())
		status, err := inner.Tick()
		if err != nil {
			d.logger.Warn("[Driver] spawned tree tick failed", "tree", tree.ID(), "error", err)
			if !d.isolate {
				d.fail(err)
				return bt.Failure, err
			}
			return bt.Failure, nil
		}
		return status, nil
	})
	ticker := bt.NewTicker(d.ctx, interval, node)
	if err := d.manager.Add(ticker); err != nil {
		ticker.Stop()
		return fmt.Errorf("spawn tree %s: %w", tree.ID(), err)
	}
	d.logger.Debug("[Driver] spawned tree ticker", "tree", tree.ID(), "interval", interval)
	return nil
}

// Run drives the registry at the configured interval until ctx is done, Stop
// is called, or, with isolation disabled, a frame fails. It returns the
// frame error in the last case and nil otherwise.
func (d *Driver) Run(ctx context.Context) error {
	ticker := bt.NewTicker(d.ctx, d.interval, d.Node())
	if err := d.manager.Add(ticker); err != nil {
		ticker.Stop()
		return fmt.Errorf("start driver: %w", err)
	}
	d.logger.Info("[Driver] running", "interval", d.interval, "trees", d.registry.Len())

	select {
	case <-ctx.Done():
	case <-d.fatal:
	case <-d.manager.Done():
	}
	d.Stop()
	<-d.manager.Done()

	d.logger.Info("[Driver] stopped", "frames", d.Frames())
	return d.Err()
}

// Stop stops Run and every spawned ticker. A stopped driver cannot be
// restarted.
func (d *Driver) Stop() {
	d.cancel()
	d.manager.Stop()
}
