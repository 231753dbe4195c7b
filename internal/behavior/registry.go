package behavior

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ErrTreeNotFound is returned when a registry has no tree with an ID.
var ErrTreeNotFound = errors.New("tree not found")

// Registry tracks live trees and blackboards. Trees and blackboards created
// through a registry remove themselves when disposed. Registries are
// independent of each other and safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	defaults []Option
	order    []*Tree
	trees    map[string]*Tree
	boards   map[uint64]*Blackboard
	logger   *slog.Logger
}

// NewRegistry returns an empty registry. defaults are applied to every tree
// it creates, before the per-call options.
func NewRegistry(defaults ...Option) *Registry {
	r := &Registry{
		defaults: defaults,
		trees:    make(map[string]*Tree),
		boards:   make(map[uint64]*Blackboard),
		logger:   slog.Default(),
	}
	return r
}

// NewTree creates and registers a tree.
func (r *Registry) NewTree(opts ...Option) *Tree {
	all := make([]Option, 0, len(r.defaults)+len(opts))
	all = append(all, r.defaults...)
	all = append(all, opts...)
	t := NewTree(all...)
	if err := r.Add(t); err != nil {
		r.logger.Warn("[Registry] tree not registered", "tree", t.ID(), "error", err)
	}
	return t
}

// CreateOrGetTree returns the tree registered as id, creating it with opts
// when absent.
func (r *Registry) CreateOrGetTree(id string, opts ...Option) *Tree {
	if t, ok := r.Tree(id); ok {
		return t
	}
	return r.NewTree(append(opts, WithID(id))...)
}

// Add registers an existing tree, and its blackboard when the tree owns it.
// Blackboards injected with [WithBlackboard] and dispose false stay with
// their owner; register them with [Registry.AddBlackboard] if needed.
func (r *Registry) Add(t *Tree) error {
	if t.IsDisposed() {
		return ErrDisposed
	}
	r.mu.Lock()
	if _, ok := r.trees[t.ID()]; ok {
		r.mu.Unlock()
		return fmt.Errorf("tree %s already registered", t.ID())
	}
	r.trees[t.ID()] = t
	r.order = append(r.order, t)
	r.mu.Unlock()

	t.OnDispose(func() { r.remove(t) })
	if bb := t.Blackboard(); bb != nil && t.OwnsBlackboard() {
		r.AddBlackboard(bb)
	}
	return nil
}

func (r *Registry) remove(t *Tree) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.trees[t.ID()] == t {
		delete(r.trees, t.ID())
	}
	for i, v := range r.order {
		if v == t {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// Tree returns the tree registered as id.
func (r *Registry) Tree(id string) (*Tree, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.trees[id]
	return t, ok
}

// Trees returns the live trees in registration order.
func (r *Registry) Trees() []*Tree {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Tree, len(r.order))
	copy(out, r.order)
	return out
}

// Len returns the number of live trees.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// DestroyTree disposes the tree registered as id. With destroyBlackboard
// its blackboard is disposed too, even if the tree did not own it.
func (r *Registry) DestroyTree(id string, destroyBlackboard bool) error {
	t, ok := r.Tree(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrTreeNotFound, id)
	}
	bb := t.Blackboard()
	t.Dispose()
	if destroyBlackboard && bb != nil {
		bb.Dispose()
	}
	return nil
}

// NewBlackboard creates and registers a blackboard.
func (r *Registry) NewBlackboard(initialSize int) *Blackboard {
	bb := NewBlackboard(initialSize)
	r.AddBlackboard(bb)
	return bb
}

// AddBlackboard registers bb. Registering twice is harmless.
func (r *Registry) AddBlackboard(bb *Blackboard) {
	if bb.IsDisposed() {
		return
	}
	id := bb.ID()
	r.mu.Lock()
	if _, ok := r.boards[id]; ok {
		r.mu.Unlock()
		return
	}
	r.boards[id] = bb
	r.mu.Unlock()
	bb.addDisposeHook(func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.boards, id)
	})
}

// Blackboard returns the blackboard registered as id.
func (r *Registry) Blackboard(id uint64) (*Blackboard, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	bb, ok := r.boards[id]
	return bb, ok
}

// Blackboards returns the number of live blackboards.
func (r *Registry) Blackboards() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.boards)
}

// TickAll ticks every live tree in registration order. A failing tree does
// not stop the others; all errors are joined.
func (r *Registry) TickAll(dt time.Duration) error {
	var errs []error
	for _, t := range r.Trees() {
		if err := t.Tick(dt); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close disposes every registered tree, then every remaining registered
// blackboard.
func (r *Registry) Close() {
	for _, t := range r.Trees() {
		t.Dispose()
	}
	r.mu.RLock()
	boards := make([]*Blackboard, 0, len(r.boards))
	for _, bb := range r.boards {
		boards = append(boards, bb)
	}
	r.mu.RUnlock()
	for _, bb := range boards {
		bb.Dispose()
	}
}
