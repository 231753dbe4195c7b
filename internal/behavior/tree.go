package behavior

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joeycumines/tickbt/internal/goroutineid"
)

const (
	// DefaultTreeCapacity is the initial root-node capacity of a tree.
	DefaultTreeCapacity = 128
	// DefaultGrowthFactor is the capacity multiplier of pooled trees.
	DefaultGrowthFactor = 1.5
	// DefaultMaxParallelism bounds concurrent root evaluation.
	DefaultMaxParallelism = 8
)

var (
	// ErrDisposed is returned by operations that require a live tree.
	ErrDisposed = errors.New("tree disposed")
	// ErrNilBlackboard is returned when a nil blackboard is installed.
	ErrNilBlackboard = errors.New("nil blackboard")
	// ErrNodePanic wraps a panic raised by a root evaluated concurrently.
	ErrNodePanic = errors.New("node panicked")
)

// StatusListener observes root status changes.
type StatusListener func(node Node, status Status)

// PauseListener observes pause state changes.
type PauseListener func(paused bool)

type slot struct {
	node Node
	last Status
}

// Option configures a [Tree].
type Option func(*Tree)

// WithID overrides the generated tree identifier.
func WithID(id string) Option {
	return func(t *Tree) {
		if id != "" {
			t.id = id
		}
	}
}

// WithCapacity sets the initial root capacity.
func WithCapacity(n int) Option {
	return func(t *Tree) {
		if n > 0 {
			t.initialCap = n
		}
	}
}

// WithBlackboard installs bb instead of a fresh blackboard. When dispose is
// false the caller keeps ownership and the tree never disposes bb.
func WithBlackboard(bb *Blackboard, dispose bool) Option {
	return func(t *Tree) {
		if bb != nil {
			t.bb = bb
			t.ownsBB = dispose
		}
	}
}

// WithBlackboardSize sets the initial size of the tree's own blackboard.
func WithBlackboardSize(n int) Option {
	return func(t *Tree) {
		t.bbSize = n
	}
}

// WithPool makes the tree rent its root storage from pool and grow by
// DefaultGrowthFactor instead of doubling.
func WithPool(pool *NodePool) Option {
	return func(t *Tree) {
		t.pool = pool
	}
}

// WithGrowthFactor sets the capacity multiplier used by pooled trees.
// Factors <= 1 are ignored.
func WithGrowthFactor(f float64) Option {
	return func(t *Tree) {
		if f > 1 {
			t.growth = f
		}
	}
}

// WithMaxParallelism bounds how many roots a tick evaluates concurrently
// when it runs off the primary goroutine. 1 disables concurrent evaluation.
func WithMaxParallelism(n int) Option {
	return func(t *Tree) {
		if n > 0 {
			t.parallelism = n
		}
	}
}

// WithPrimaryGoroutine sets the goroutine whose ticks are always
// sequential. It defaults to the goroutine calling NewTree.
func WithPrimaryGoroutine(id int64) Option {
	return func(t *Tree) {
		t.primary = id
	}
}

// WithLogger sets the tree's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Tree) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// Tree evaluates a flat list of root nodes once per tick, resuming at the
// root that last returned Running.
//
// A Tree is not safe for concurrent use. Concurrent root evaluation is
// performed internally, see [WithMaxParallelism].
type Tree struct {
	id          string
	slots       []slot
	count       int
	bb          *Blackboard
	ownsBB      bool
	bbSize      int
	cursor      int
	disposed    bool
	initialCap  int
	growth      float64
	pool        *NodePool
	parallelism int
	primary     int64
	logger      *slog.Logger

	paused     bool
	pausedAt   int
	pausedMask bitmask

	statusListeners []StatusListener
	pauseListeners  []PauseListener
	onDispose       []func()
}

// NewTree returns an empty tree. Unless [WithBlackboard] is given, the tree
// creates and owns its blackboard.
func NewTree(opts ...Option) *Tree {
	t := &Tree{
		id:          newTreeID(),
		cursor:      -1,
		pausedAt:    -1,
		initialCap:  DefaultTreeCapacity,
		growth:      DefaultGrowthFactor,
		parallelism: DefaultMaxParallelism,
		primary:     goroutineid.Get(),
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.bb == nil {
		t.bb = NewBlackboard(t.bbSize)
		t.ownsBB = true
	}
	if t.pool != nil {
		t.slots = t.pool.rent(t.initialCap)
	} else {
		t.slots = make([]slot, t.initialCap)
	}
	return t
}

func newTreeID() string {
	return "bt_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
}

// ID returns the tree identifier.
func (t *Tree) ID() string { return t.id }

// PrimaryGoroutine returns the goroutine whose ticks are always sequential.
func (t *Tree) PrimaryGoroutine() int64 { return t.primary }

// SetPrimaryGoroutine moves the sequential guarantee to goroutine id. Hosts
// that build trees on one goroutine and tick them from a loop goroutine
// call this from the loop, see [WithPrimaryGoroutine].
func (t *Tree) SetPrimaryGoroutine(id int64) { t.primary = id }

// Blackboard returns the tree's blackboard, nil once disposed.
func (t *Tree) Blackboard() *Blackboard { return t.bb }

// OwnsBlackboard reports whether the tree disposes its blackboard.
func (t *Tree) OwnsBlackboard() bool { return t.ownsBB }

// SetBlackboard replaces the tree's blackboard, disposing the previous one
// if the tree owned it.
func (t *Tree) SetBlackboard(bb *Blackboard, dispose bool) error {
	if t.disposed {
		return ErrDisposed
	}
	if bb == nil {
		return ErrNilBlackboard
	}
	if bb == t.bb {
		t.ownsBB = dispose
		return nil
	}
	if t.bb != nil && t.ownsBB {
		t.bb.Dispose()
	}
	t.bb = bb
	t.ownsBB = dispose
	return nil
}

// AddNode appends roots to the tree. Each starts with a recorded status of
// Running. Adding to a disposed tree does nothing.
func (t *Tree) AddNode(nodes ...Node) {
	if t.disposed {
		return
	}
	for _, n := range nodes {
		if t.count >= len(t.slots) {
			t.grow()
		}
		t.slots[t.count] = slot{node: n, last: Running}
		t.count++
	}
}

func (t *Tree) grow() {
	old := t.slots
	var grown []slot
	if t.pool != nil {
		size := max(int(float64(len(old))*t.growth), len(old)+1)
		grown = t.pool.rent(size)
	} else {
		grown = make([]slot, max(len(old)*2, 1))
	}
	copy(grown, old[:t.count])
	if t.pool != nil {
		t.pool.put(old)
	}
	t.slots = grown
	t.logger.Debug("[Tree] grew root storage", "tree", t.id, "from", len(old), "to", len(grown))
}

// Len returns the number of roots.
func (t *Tree) Len() int { return t.count }

// Cap returns the current root capacity.
func (t *Tree) Cap() int { return len(t.slots) }

// Cursor returns the index of the root the next tick resumes at, or -1.
func (t *Tree) Cursor() int { return t.cursor }

// Node returns root i.
func (t *Tree) Node(i int) Node {
	if i < 0 || i >= t.count {
		return nil
	}
	return t.slots[i].node
}

// Nodes returns a copy of the roots.
func (t *Tree) Nodes() []Node {
	out := make([]Node, t.count)
	for i := range t.count {
		out[i] = t.slots[i].node
	}
	return out
}

// Status returns the last recorded status of root i.
func (t *Tree) Status(i int) Status {
	if i < 0 || i >= t.count {
		return Running
	}
	return t.slots[i].last
}

// OnStatusChanged registers fn to be called whenever a root returns a
// status different from the one last recorded for it. The returned func
// unregisters fn.
func (t *Tree) OnStatusChanged(fn StatusListener) (remove func()) {
	t.statusListeners = append(t.statusListeners, fn)
	idx := len(t.statusListeners) - 1
	return func() {
		if idx < len(t.statusListeners) {
			t.statusListeners[idx] = nil
		}
	}
}

// OnPauseChanged registers fn to be called when the tree is paused or
// resumed.
func (t *Tree) OnPauseChanged(fn PauseListener) (remove func()) {
	t.pauseListeners = append(t.pauseListeners, fn)
	idx := len(t.pauseListeners) - 1
	return func() {
		if idx < len(t.pauseListeners) {
			t.pauseListeners[idx] = nil
		}
	}
}

// OnDispose registers fn to run once the tree is disposed.
func (t *Tree) OnDispose(fn func()) {
	t.onDispose = append(t.onDispose, fn)
}

func (t *Tree) emit(n Node, s Status) {
	for _, fn := range t.statusListeners {
		if fn != nil {
			fn(n, s)
		}
	}
}

// Tick evaluates the tree once.
//
// Evaluation starts at the cursor (or root 0) after partially resetting
// every root before it. Roots run in index order; a root returning Running
// becomes the cursor and stops the pass. When no root is running at the end
// of the pass, every root is fully reset and the cursor rewinds.
//
// Ticking a disposed, paused or empty tree, or one without a blackboard,
// does nothing. An error from a root aborts the pass and is returned
// without resetting the tree.
func (t *Tree) Tick(dt time.Duration) error {
	if t.disposed || t.bb == nil || t.count == 0 || t.paused {
		return nil
	}

	start := max(t.cursor, 0)
	t.cursor = -1

	partial := &ResetContext{Blackboard: t.bb, Mode: ResetPartial}
	for i := range start {
		Reset(t.slots[i].node, partial)
	}

	ctx := &Context{Blackboard: t.bb, DeltaTime: dt}
	var (
		found bool
		err   error
	)
	if t.concurrent() {
		found, err = t.runConcurrent(ctx, start)
	} else {
		found, err = t.runSequential(ctx, start)
	}
	if err != nil {
		return fmt.Errorf("tree %s: %w", t.id, err)
	}

	if !found {
		t.cursor = -1
		t.ResetAll(ResetFull)
	}
	return nil
}

func (t *Tree) runSequential(ctx *Context, start int) (bool, error) {
	for i := start; i < t.count; i++ {
		s := &t.slots[i]
		status, err := Run(s.node, ctx)
		if err != nil {
			return false, err
		}
		if status != s.last {
			s.last = status
			t.emit(s.node, status)
		}
		if status == Running {
			t.cursor = i
			return true, nil
		}
	}
	return false, nil
}

func (t *Tree) concurrent() bool {
	if t.parallelism <= 1 {
		return false
	}
	return !goroutineid.Is(t.primary)
}

// ResetAll resets every root with mode and records each as Running. The
// cursor is left untouched.
func (t *Tree) ResetAll(mode ResetMode) {
	if t.disposed {
		return
	}
	ctx := &ResetContext{Blackboard: t.bb, Mode: mode}
	for i := range t.count {
		Reset(t.slots[i].node, ctx)
		t.slots[i].last = Running
	}
}

// ResetNode records root i as Running without resetting the node itself.
func (t *Tree) ResetNode(i int) {
	if i < 0 || i >= t.count {
		return
	}
	t.slots[i].last = Running
}

// Dispose releases the roots, disposes nodes implementing [Disposer] and,
// if the tree owns it, the blackboard. Dispose is idempotent.
func (t *Tree) Dispose() {
	if t.disposed {
		return
	}
	t.disposed = true

	for i := range t.count {
		walk(t.slots[i].node, func(n Node) bool {
			if d, ok := n.(Disposer); ok {
				d.Dispose()
			}
			return true
		})
	}
	if t.bb != nil && t.ownsBB {
		t.bb.Dispose()
	}
	t.bb = nil

	clear(t.slots)
	if t.pool != nil {
		t.pool.put(t.slots)
	}
	t.slots = nil
	t.count = 0
	t.cursor = -1
	t.statusListeners = nil
	t.pauseListeners = nil

	hooks := t.onDispose
	t.onDispose = nil
	for _, fn := range hooks {
		fn()
	}
	t.logger.Debug("[Tree] disposed", "tree", t.id)
}

// IsDisposed reports whether Dispose has been called.
func (t *Tree) IsDisposed() bool { return t.disposed }
