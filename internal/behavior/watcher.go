package behavior

import (
	"reflect"
	"sync"
	"sync/atomic"
)

// WatchMode selects which value transitions make a [Watcher] reset its
// child.
type WatchMode uint8

const (
	// WatchChanged resets when the key is written with a different value.
	WatchChanged WatchMode = iota
	// WatchAvailable resets when the key goes from nil to non-nil.
	WatchAvailable
	// WatchLost resets when the key goes from non-nil to nil, including
	// removal.
	WatchLost
	// WatchAny resets on every write or removal of the key.
	WatchAny
)

func (m WatchMode) String() string {
	switch m {
	case WatchChanged:
		return "changed"
	case WatchAvailable:
		return "available"
	case WatchLost:
		return "lost"
	case WatchAny:
		return "any"
	}
	return "unknown"
}

// Watcher runs its child and restarts it when a blackboard key changes.
//
// The watcher subscribes to the blackboard of its first evaluation. A
// qualifying change marks the child for a full reset, applied before the
// child's next evaluation.
type Watcher struct {
	Child Node
	Key   string
	Mode  WatchMode
	// OnChange, if set, receives every new value of Key.
	OnChange func(value any)

	mu      sync.Mutex
	bb      *Blackboard
	cancel  func()
	cached  any
	pending atomic.Bool
	running bool
}

// NewWatcher returns a Watcher of key around child.
func NewWatcher(key string, mode WatchMode, child Node) *Watcher {
	return &Watcher{Child: child, Key: key, Mode: mode}
}

func (n *Watcher) Run(ctx *Context) (Status, error) {
	if n.Child == nil || n.Key == "" {
		return Failure, nil
	}
	n.subscribe(ctx.Blackboard)
	if n.pending.Swap(false) {
		Reset(n.Child, &ResetContext{Blackboard: ctx.Blackboard, Mode: ResetFull})
	}
	status, err := Run(n.Child, ctx)
	n.running = status == Running
	if err != nil {
		return Failure, err
	}
	return status, nil
}

func (n *Watcher) subscribe(bb *Blackboard) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if bb == nil || n.bb == bb {
		return
	}
	if n.cancel != nil {
		n.cancel()
	}
	n.bb = bb
	n.cached, _ = bb.Value(n.Key)
	n.cancel = bb.OnValueChanged(n.observe)
}

func (n *Watcher) observe(key string, value any) {
	if key != n.Key {
		return
	}
	n.mu.Lock()
	prev := n.cached
	n.cached = value
	n.mu.Unlock()

	var trigger bool
	switch n.Mode {
	case WatchChanged:
		trigger = !reflect.DeepEqual(prev, value)
	case WatchAvailable:
		trigger = prev == nil && value != nil
	case WatchLost:
		trigger = prev != nil && value == nil
	case WatchAny:
		trigger = true
	}
	if trigger {
		n.pending.Store(true)
	}
	if n.OnChange != nil {
		n.OnChange(value)
	}
}

func (n *Watcher) Reset(ctx *ResetContext) {
	n.mu.Lock()
	n.cached = nil
	if n.bb != nil {
		n.cached, _ = n.bb.Value(n.Key)
	}
	n.mu.Unlock()
	n.pending.Store(false)
	n.running = false
	Reset(n.Child, &ResetContext{Blackboard: ctx.Blackboard, Mode: ResetFull})
}

// Dispose drops the blackboard subscription.
func (n *Watcher) Dispose() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.cancel != nil {
		n.cancel()
		n.cancel = nil
	}
	n.bb = nil
}

func (n *Watcher) Children() []Node       { return single(n.Child) }
func (n *Watcher) ActiveChildren() []Node { return activeIf(n.running, n.Child) }
