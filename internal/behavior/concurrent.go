package behavior

import (
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

// runConcurrent evaluates roots [start, count) with bounded parallelism.
// Status changes are recorded and emitted one at a time; the cursor becomes
// the lowest running index. A panicking root is reported as an
// [ErrNodePanic] error, since it cannot be recovered by the caller.
func (t *Tree) runConcurrent(ctx *Context, start int) (bool, error) {
	var (
		g       errgroup.Group
		mu      sync.Mutex
		running = -1
	)
	g.SetLimit(t.parallelism)
	for i := start; i < t.count; i++ {
		g.Go(func() (err error) {
			s := &t.slots[i]
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("%w: %s: %v", ErrNodePanic, NodeLabel(s.node), r)
				}
			}()
			local := *ctx
			status, err := Run(s.node, &local)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			if status != s.last {
				s.last = status
				t.emit(s.node, status)
			}
			if status == Running && (running < 0 || i < running) {
				running = i
			}
			return nil
		})
	}
	err := g.Wait()
	if running >= 0 {
		t.cursor = running
	}
	return running >= 0, err
}
