package behavior

// bitmask is a fixed-size bit set.
type bitmask []uint64

func newBitmask(n int) bitmask {
	return make(bitmask, (n+63)/64)
}

func (b bitmask) set(i int) {
	b[i/64] |= 1 << (uint(i) % 64)
}

func (b bitmask) has(i int) bool {
	if i/64 >= len(b) {
		return false
	}
	return b[i/64]&(1<<(uint(i)%64)) != 0
}

// Pause freezes the tree. The cursor and the set of roots recorded as
// Running are snapshotted, and ticks do nothing until Resume. Pausing a
// paused or disposed tree does nothing.
func (t *Tree) Pause() {
	if t.paused || t.disposed {
		return
	}
	t.pausedAt = t.cursor
	t.pausedMask = newBitmask(t.count)
	for i := range t.count {
		if t.slots[i].last == Running {
			t.pausedMask.set(i)
		}
	}
	t.setPaused(true)
}

// Resume restores the snapshot taken by Pause, so the next tick continues
// exactly where the tree stopped.
func (t *Tree) Resume() {
	if !t.paused || t.disposed {
		return
	}
	t.cursor = t.pausedAt
	for i := range t.count {
		if t.pausedMask.has(i) {
			t.slots[i].last = Running
		}
	}
	t.pausedMask = nil
	t.pausedAt = -1
	t.setPaused(false)
}

// IsPaused reports whether the tree is paused.
func (t *Tree) IsPaused() bool { return t.paused }

func (t *Tree) setPaused(paused bool) {
	t.paused = paused
	t.logger.Debug("[Tree] pause state changed", "tree", t.id, "paused", paused, "cursor", t.cursor)
	for _, fn := range t.pauseListeners {
		if fn != nil {
			fn(paused)
		}
	}
}
