package behavior

import (
	"reflect"
	"sync"
	"sync/atomic"
)

// DefaultBlackboardSize is the initial entry capacity of a blackboard.
const DefaultBlackboardSize = 32

var nextBlackboardID atomic.Uint64

// ValueListener observes blackboard writes. Removal is reported with a nil
// value.
type ValueListener func(key string, value any)

type bbEntry struct {
	hash  int32
	key   string
	typ   reflect.Type
	value any
}

type bbListener struct {
	fn ValueListener
}

// Blackboard is a string-keyed, type-erased value store shared by the nodes
// of one or more trees.
//
// Entries live in a dense slice indexed by key hash. Writes are
// last-writer-wins. The zero value is ready to use.
//
// All methods are safe to call concurrently, but the ordering of
// concurrent writers is up to the caller. A nil *Blackboard behaves like a
// disposed one.
type Blackboard struct {
	mu        sync.RWMutex
	id        uint64
	entries   []bbEntry
	count     int
	index     map[int32]int
	listeners []*bbListener
	disposed  bool
	onDispose []func()
}

// NewBlackboard returns an empty blackboard with room for initialSize
// entries before its first growth.
func NewBlackboard(initialSize int) *Blackboard {
	if initialSize <= 0 {
		initialSize = DefaultBlackboardSize
	}
	return &Blackboard{
		id:      nextBlackboardID.Add(1),
		entries: make([]bbEntry, initialSize),
		index:   make(map[int32]int, initialSize),
	}
}

// ID returns a process-unique identifier, assigned on first use.
func (bb *Blackboard) ID() uint64 {
	bb.mu.Lock()
	defer bb.mu.Unlock()
	if bb.id == 0 {
		bb.id = nextBlackboardID.Add(1)
	}
	return bb.id
}

// SetValue stores value under key, overwriting any existing entry in place,
// then notifies listeners. Empty keys are ignored, as are writes to a
// disposed blackboard.
func (bb *Blackboard) SetValue(key string, value any) {
	if bb == nil || key == "" {
		return
	}
	bb.set(HashKey(key), key, value)
}

func (bb *Blackboard) set(hash int32, key string, value any) {
	bb.mu.Lock()
	if bb.disposed {
		bb.mu.Unlock()
		return
	}
	if bb.index == nil {
		bb.index = make(map[int32]int, DefaultBlackboardSize)
	}
	if i, ok := bb.index[hash]; ok {
		e := &bb.entries[i]
		e.value = value
		e.typ = reflect.TypeOf(value)
	} else {
		if bb.count >= len(bb.entries) {
			size := len(bb.entries) * 2
			if size == 0 {
				size = DefaultBlackboardSize
			}
			grown := make([]bbEntry, size)
			copy(grown, bb.entries[:bb.count])
			bb.entries = grown
		}
		bb.entries[bb.count] = bbEntry{
			hash:  hash,
			key:   key,
			typ:   reflect.TypeOf(value),
			value: value,
		}
		bb.index[hash] = bb.count
		bb.count++
	}
	listeners := bb.listeners
	bb.mu.Unlock()

	for _, l := range listeners {
		l.fn(key, value)
	}
}

// Value returns the raw value stored under key.
func (bb *Blackboard) Value(key string) (any, bool) {
	if bb == nil || key == "" {
		return nil, false
	}
	return bb.lookup(HashKey(key))
}

func (bb *Blackboard) lookup(hash int32) (any, bool) {
	bb.mu.RLock()
	defer bb.mu.RUnlock()
	i, ok := bb.index[hash]
	if !ok {
		return nil, false
	}
	return bb.entries[i].value, true
}

// TypeOf returns the dynamic type of the value stored under key, or nil if
// the key is absent or holds nil.
func (bb *Blackboard) TypeOf(key string) reflect.Type {
	if bb == nil || key == "" {
		return nil
	}
	bb.mu.RLock()
	defer bb.mu.RUnlock()
	i, ok := bb.index[HashKey(key)]
	if !ok {
		return nil
	}
	return bb.entries[i].typ
}

// HasValue reports whether an entry exists for key.
func (bb *Blackboard) HasValue(key string) bool {
	if bb == nil || key == "" {
		return false
	}
	bb.mu.RLock()
	defer bb.mu.RUnlock()
	_, ok := bb.index[HashKey(key)]
	return ok
}

// Contains is an alias of HasValue.
func (bb *Blackboard) Contains(key string) bool {
	return bb.HasValue(key)
}

// RemoveValue deletes the entry for key in O(1) by moving the last entry
// into its slot, then notifies listeners with a nil value. Entry order is
// not preserved.
func (bb *Blackboard) RemoveValue(key string) {
	if bb == nil || key == "" {
		return
	}
	hash := HashKey(key)

	bb.mu.Lock()
	i, ok := bb.index[hash]
	if !ok || bb.disposed {
		bb.mu.Unlock()
		return
	}
	last := bb.count - 1
	if i != last {
		bb.entries[i] = bb.entries[last]
		bb.index[bb.entries[i].hash] = i
	}
	bb.entries[last] = bbEntry{}
	bb.count--
	delete(bb.index, hash)
	listeners := bb.listeners
	bb.mu.Unlock()

	for _, l := range listeners {
		l.fn(key, nil)
	}
}

// OnValueChanged registers fn to be called after every write and removal.
// Listeners run synchronously on the writing goroutine and must not be
// relied on for control flow. The returned func unregisters fn.
func (bb *Blackboard) OnValueChanged(fn ValueListener) (remove func()) {
	if bb == nil || fn == nil {
		return func() {}
	}
	l := &bbListener{fn: fn}
	bb.mu.Lock()
	if !bb.disposed {
		// copy on write, so notification can iterate without the lock
		listeners := make([]*bbListener, len(bb.listeners), len(bb.listeners)+1)
		copy(listeners, bb.listeners)
		bb.listeners = append(listeners, l)
	}
	bb.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			bb.mu.Lock()
			defer bb.mu.Unlock()
			for i, v := range bb.listeners {
				if v == l {
					listeners := make([]*bbListener, 0, len(bb.listeners)-1)
					listeners = append(listeners, bb.listeners[:i]...)
					bb.listeners = append(listeners, bb.listeners[i+1:]...)
					return
				}
			}
		})
	}
}

// Len returns the number of live entries.
func (bb *Blackboard) Len() int {
	if bb == nil {
		return 0
	}
	bb.mu.RLock()
	defer bb.mu.RUnlock()
	return bb.count
}

// Cap returns the current entry capacity.
func (bb *Blackboard) Cap() int {
	bb.mu.RLock()
	defer bb.mu.RUnlock()
	return len(bb.entries)
}

// Keys returns the live keys in storage order.
func (bb *Blackboard) Keys() []string {
	if bb == nil {
		return nil
	}
	bb.mu.RLock()
	defer bb.mu.RUnlock()
	keys := make([]string, bb.count)
	for i := range bb.count {
		keys[i] = bb.entries[i].key
	}
	return keys
}

// Snapshot returns a copy of every live entry keyed by its original key.
func (bb *Blackboard) Snapshot() map[string]any {
	if bb == nil {
		return map[string]any{}
	}
	bb.mu.RLock()
	defer bb.mu.RUnlock()
	out := make(map[string]any, bb.count)
	for i := range bb.count {
		out[bb.entries[i].key] = bb.entries[i].value
	}
	return out
}

// Dispose clears every entry and listener. Subsequent writes are ignored
// and reads return defaults. Dispose is idempotent.
func (bb *Blackboard) Dispose() {
	if bb == nil {
		return
	}
	bb.mu.Lock()
	if bb.disposed {
		bb.mu.Unlock()
		return
	}
	clear(bb.entries)
	bb.entries = nil
	bb.count = 0
	clear(bb.index)
	bb.listeners = nil
	bb.disposed = true
	hooks := bb.onDispose
	bb.onDispose = nil
	bb.mu.Unlock()

	for _, fn := range hooks {
		fn()
	}
}

// IsDisposed reports whether Dispose has been called.
func (bb *Blackboard) IsDisposed() bool {
	if bb == nil {
		return true
	}
	bb.mu.RLock()
	defer bb.mu.RUnlock()
	return bb.disposed
}

func (bb *Blackboard) addDisposeHook(fn func()) {
	bb.mu.Lock()
	defer bb.mu.Unlock()
	bb.onDispose = append(bb.onDispose, fn)
}

// GetValue returns the value stored under key as a T. Values of another
// type go through a best-effort conversion (numbers, bools and strings
// convert between each other); when the key is absent or the conversion
// fails, def is returned.
func GetValue[T any](bb *Blackboard, key string, def T) T {
	if v, ok := TryGetValue[T](bb, key); ok {
		return v
	}
	return def
}

// TryGetValue is like GetValue but reports whether a usable value was found.
func TryGetValue[T any](bb *Blackboard, key string) (T, bool) {
	if bb == nil || key == "" {
		var zero T
		return zero, false
	}
	return tryGetHashed[T](bb, HashKey(key))
}

func tryGetHashed[T any](bb *Blackboard, hash int32) (T, bool) {
	raw, ok := bb.lookup(hash)
	if !ok {
		var zero T
		return zero, false
	}
	return convertValue[T](raw)
}
