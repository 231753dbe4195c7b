package behavior

// Key is a typed blackboard key. The hash is computed once, at
// construction.
type Key[T any] struct {
	name string
	hash int32
}

// NewKey returns a typed key for name.
func NewKey[T any](name string) Key[T] {
	return Key[T]{name: name, hash: HashKey(name)}
}

// Name returns the key's string form.
func (k Key[T]) Name() string {
	return k.name
}

// Set stores v under k.
func Set[T any](bb *Blackboard, k Key[T], v T) {
	if bb == nil || k.name == "" {
		return
	}
	bb.set(k.hash, k.name, v)
}

// Get returns the value stored under k, converting when the stored value
// has another type. The bool is false when no usable value exists.
func Get[T any](bb *Blackboard, k Key[T]) (T, bool) {
	if bb == nil || k.name == "" {
		var zero T
		return zero, false
	}
	return tryGetHashed[T](bb, k.hash)
}

// GetOr is Get with a default for missing or unconvertible values.
func GetOr[T any](bb *Blackboard, k Key[T], def T) T {
	if v, ok := Get(bb, k); ok {
		return v
	}
	return def
}

// Has reports whether a value exists for k, regardless of its type.
func Has[T any](bb *Blackboard, k Key[T]) bool {
	if bb == nil {
		return false
	}
	return bb.HasValue(k.name)
}

// Remove deletes the value stored under k.
func Remove[T any](bb *Blackboard, k Key[T]) {
	if bb == nil {
		return
	}
	bb.RemoveValue(k.name)
}
