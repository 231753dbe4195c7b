package leaf

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/console"
	"github.com/dop251/goja_nodejs/eventloop"
	"github.com/dop251/goja_nodejs/require"
	"github.com/joeycumines/tickbt/internal/goroutineid"
)

const (
	// DefaultSyncTimeout bounds how long a caller waits for the event loop.
	DefaultSyncTimeout = 5 * time.Second
	// DefaultScriptBudget bounds the run time of a single script evaluation.
	DefaultScriptBudget = time.Second
)

// ErrEngineClosed is returned once the engine has been closed.
var ErrEngineClosed = errors.New("script engine closed")

// Engine owns the goja runtime that every [Script] leaf runs on. All
// JavaScript executes on the engine's event loop goroutine, so scripts may
// be ticked from any goroutine, including concurrent root evaluation.
type Engine struct {
	loop     *eventloop.EventLoop
	registry *require.Registry
	programs *Cache[*goja.Program]
	logger   *slog.Logger

	loopID atomic.Int64

	mu      sync.RWMutex
	closed  bool
	timeout time.Duration
	budget  time.Duration

	ctx    context.Context
	cancel context.CancelFunc
}

// EngineOption configures an [Engine].
type EngineOption func(*Engine)

// WithSyncTimeout sets how long callers wait for the loop. 0 waits forever.
func WithSyncTimeout(d time.Duration) EngineOption {
	return func(e *Engine) { e.timeout = d }
}

// WithScriptBudget sets the maximum run time of one script evaluation,
// after which the script is interrupted. 0 disables the budget.
func WithScriptBudget(d time.Duration) EngineOption {
	return func(e *Engine) { e.budget = d }
}

// WithCacheSize sets the size of the engine's compiled program cache.
func WithCacheSize(n int) EngineOption {
	return func(e *Engine) { e.programs = NewCache[*goja.Program](n) }
}

// WithEngineLogger sets the logger that receives console output.
func WithEngineLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewEngine starts an event loop with console output routed to slog. The
// engine closes itself when ctx is cancelled.
func NewEngine(ctx context.Context, opts ...EngineOption) (*Engine, error) {
	childCtx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		registry: require.NewRegistry(),
		logger:   slog.Default(),
		timeout:  DefaultSyncTimeout,
		budget:   DefaultScriptBudget,
		ctx:      childCtx,
		cancel:   cancel,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.programs == nil {
		e.programs = NewCache[*goja.Program](DefaultCacheSize)
	}
	e.registry.RegisterNativeModule(console.ModuleName, console.RequireWithPrinter(consolePrinter{e.logger}))
	e.loop = eventloop.NewEventLoop(
		eventloop.WithRegistry(e.registry),
		eventloop.EnableConsole(true),
	)
	e.loop.Start()

	errCh := make(chan error, 1)
	ok := e.loop.RunOnLoop(func(vm *goja.Runtime) {
		e.loopID.Store(goroutineid.Get())
		errCh <- vm.Set("status", map[string]string{
			"running": "running",
			"success": "success",
			"failure": "failure",
		})
	})
	if !ok {
		cancel()
		return nil, errors.New("failed to initialize: event loop not running")
	}
	if err := <-errCh; err != nil {
		cancel()
		e.loop.Stop()
		return nil, fmt.Errorf("failed to initialize script engine: %w", err)
	}

	if ctx.Done() != nil {
		context.AfterFunc(ctx, e.Close)
	}
	return e, nil
}

// Close stops the event loop. It is safe to call more than once.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.cancel()
	e.closed = true
	e.mu.Unlock()
	e.loop.Stop()
}

// Done is closed once the engine is closed.
func (e *Engine) Done() <-chan struct{} { return e.ctx.Done() }

// Programs returns the engine's compiled program cache.
func (e *Engine) Programs() *Cache[*goja.Program] { return e.programs }

// RunSync runs fn on the event loop and waits for it. Calling it from the
// loop goroutine would deadlock, so that returns an error instead.
func (e *Engine) RunSync(fn func(*goja.Runtime) error) error {
	e.mu.RLock()
	if e.closed {
		e.mu.RUnlock()
		return ErrEngineClosed
	}
	timeout := e.timeout
	e.mu.RUnlock()

	if id := e.loopID.Load(); id != 0 && goroutineid.Get() == id {
		return errors.New("RunSync called from the event loop goroutine")
	}

	errCh := make(chan error, 1)
	if !e.loop.RunOnLoop(func(vm *goja.Runtime) { errCh <- fn(vm) }) {
		return ErrEngineClosed
	}

	var timer <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		timer = t.C
	}
	select {
	case err := <-errCh:
		return err
	case <-e.Done():
		return ErrEngineClosed
	case <-timer:
		return fmt.Errorf("event loop did not respond within %v", timeout)
	}
}

// Compile returns the program for source, compiling and caching it on a
// miss.
func (e *Engine) Compile(name, source string) (*goja.Program, error) {
	if program, ok := e.programs.Get(source); ok {
		return program, nil
	}
	program, err := goja.Compile(name, source, true)
	if err != nil {
		return nil, fmt.Errorf("failed to compile %s: %w", name, err)
	}
	e.programs.Put(source, program)
	return program, nil
}

func (e *Engine) scriptBudget() time.Duration {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.budget
}

type consolePrinter struct {
	logger *slog.Logger
}

func (p consolePrinter) Log(s string)   { p.logger.Info("[Script] " + s) }
func (p consolePrinter) Warn(s string)  { p.logger.Warn("[Script] " + s) }
func (p consolePrinter) Error(s string) { p.logger.Error("[Script] " + s) }
