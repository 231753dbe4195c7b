package behavior

import (
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/joeycumines/tickbt/internal/goroutineid"
	"github.com/stretchr/testify/require"
)

type statusEvent struct {
	label  string
	status Status
}

func recordStatus(tree *Tree) *[]statusEvent {
	var events []statusEvent
	tree.OnStatusChanged(func(n Node, s Status) {
		events = append(events, statusEvent{NodeLabel(n), s})
	})
	return &events
}

func TestNewTree_Defaults(t *testing.T) {
	t.Parallel()

	tree := NewTree()
	require.Regexp(t, regexp.MustCompile(`^bt_[0-9a-f]{16}$`), tree.ID())
	require.NotEqual(t, tree.ID(), NewTree().ID())
	require.Equal(t, DefaultTreeCapacity, tree.Cap())
	require.Zero(t, tree.Len())
	require.Equal(t, -1, tree.Cursor())
	require.NotNil(t, tree.Blackboard())

	require.Equal(t, "fixed", NewTree(WithID("fixed")).ID())
	require.Equal(t, 7, NewTree(WithBlackboardSize(7)).Blackboard().Cap())
}

func TestTree_CursorScenario(t *testing.T) {
	t.Parallel()

	a := newStub("a", Success)
	b := newStub("b", Running, Running, Success)
	c := newStub("c", Success)
	tree := NewTree()
	tree.AddNode(a, b, c)
	events := recordStatus(tree)

	require.NoError(t, tree.Tick(16*time.Millisecond))
	require.Equal(t, 1, tree.Cursor())
	require.Equal(t, Success, tree.Status(0))
	require.Equal(t, Running, tree.Status(1))
	require.Equal(t, 1, a.runs)
	require.Zero(t, c.runs)

	require.NoError(t, tree.Tick(16*time.Millisecond))
	require.Equal(t, 1, tree.Cursor())
	require.Equal(t, 1, a.runs)
	require.Equal(t, 1, a.resets)
	require.Equal(t, ResetPartial, a.lastMode)
	require.Zero(t, b.resets)

	require.NoError(t, tree.Tick(16*time.Millisecond))
	require.Equal(t, -1, tree.Cursor())
	require.Equal(t, 1, a.runs)
	require.Equal(t, 3, b.runs)
	require.Equal(t, 1, c.runs)
	for _, s := range []*stub{a, b, c} {
		require.Equal(t, ResetFull, s.lastMode, s.name)
	}
	for i := range 3 {
		require.Equal(t, Running, tree.Status(i))
	}
	require.Equal(t, []statusEvent{
		{"a", Success},
		{"b", Success},
		{"c", Success},
	}, *events)

	// the next pass starts from the first root again
	require.NoError(t, tree.Tick(16*time.Millisecond))
	require.Equal(t, 2, a.runs)
	require.Len(t, *events, 6)
}

func TestTree_TickNoop(t *testing.T) {
	t.Parallel()

	empty := NewTree()
	require.NoError(t, empty.Tick(time.Second))

	root := newStub("r", Success)
	paused := NewTree()
	paused.AddNode(root)
	paused.Pause()
	require.NoError(t, paused.Tick(time.Second))
	require.Zero(t, root.runs)

	disposed := NewTree()
	disposed.AddNode(root)
	disposed.Dispose()
	require.NoError(t, disposed.Tick(time.Second))
	require.Zero(t, root.runs)
	disposed.AddNode(root)
	require.Zero(t, disposed.Len())
}

func TestTree_ErrorStopsPass(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	a := newStub("a", Success)
	bad := &stub{name: "bad", err: boom}
	c := newStub("c", Success)
	tree := NewTree(WithID("broken"))
	tree.AddNode(a, bad, c)

	err := tree.Tick(time.Millisecond)
	require.ErrorIs(t, err, boom)
	require.ErrorContains(t, err, "tree broken")
	require.Zero(t, c.runs)
	require.Zero(t, a.resets)
}

func TestTree_Listeners(t *testing.T) {
	t.Parallel()

	tree := NewTree()
	tree.AddNode(newStub("a", Failure))
	var calls int
	remove := tree.OnStatusChanged(func(Node, Status) { calls++ })
	var pauses []bool
	tree.OnPauseChanged(func(p bool) { pauses = append(pauses, p) })

	require.NoError(t, tree.Tick(0))
	require.Equal(t, 1, calls)
	remove()
	require.NoError(t, tree.Tick(0))
	require.Equal(t, 1, calls)

	tree.Pause()
	tree.Pause()
	tree.Resume()
	tree.Resume()
	require.Equal(t, []bool{true, false}, pauses)
}

func TestTree_Growth(t *testing.T) {
	t.Parallel()

	tree := NewTree(WithCapacity(2))
	tree.AddNode(newStub("a"), newStub("b"), newStub("c"))
	require.Equal(t, 3, tree.Len())
	require.Equal(t, 4, tree.Cap())
	require.Equal(t, "c", NodeLabel(tree.Node(2)))
	require.Nil(t, tree.Node(3))
	require.Len(t, tree.Nodes(), 3)
}

func TestTree_PooledGrowth(t *testing.T) {
	t.Parallel()

	pool := NewNodePool(0, 0)
	tree := NewTree(WithPool(pool), WithCapacity(2))
	require.Equal(t, 2, tree.Cap())
	tree.AddNode(newStub("a"), newStub("b"), newStub("c"))
	require.Equal(t, 4, tree.Cap())
	require.Equal(t, PoolStats{Rented: 2, Returned: 1}, pool.Stats())

	tree.Dispose()
	require.Equal(t, 2, pool.Idle())

	again := NewTree(WithPool(pool), WithCapacity(3))
	require.Equal(t, 4, again.Cap())
	require.Zero(t, again.Len())
	require.Equal(t, 1, pool.Stats().Reused)
	require.Equal(t, 1, pool.Idle())
}

func TestTree_GrowthFactor(t *testing.T) {
	t.Parallel()

	tree := NewTree(WithPool(NewNodePool(0, 0)), WithCapacity(4), WithGrowthFactor(3))
	tree.AddNode(newStub("a"), newStub("b"), newStub("c"), newStub("d"), newStub("e"))
	require.Equal(t, 16, tree.Cap())
}

type disposable struct {
	stub
	disposed int
}

func (d *disposable) Dispose() { d.disposed++ }

func TestTree_Dispose(t *testing.T) {
	t.Parallel()

	t.Run("owned blackboard", func(t *testing.T) {
		t.Parallel()
		leaf := &disposable{}
		tree := NewTree()
		tree.AddNode(NewSequence(NewInverter(leaf)))
		bb := tree.Blackboard()
		var hooks int
		tree.OnDispose(func() { hooks++ })

		tree.Dispose()
		tree.Dispose()
		require.True(t, tree.IsDisposed())
		require.True(t, bb.IsDisposed())
		require.Nil(t, tree.Blackboard())
		require.Equal(t, 1, leaf.disposed)
		require.Equal(t, 1, hooks)
		require.ErrorIs(t, tree.SetBlackboard(NewBlackboard(0), true), ErrDisposed)
	})

	t.Run("shared blackboard", func(t *testing.T) {
		t.Parallel()
		bb := NewBlackboard(0)
		tree := NewTree(WithBlackboard(bb, false))
		tree.Dispose()
		require.False(t, bb.IsDisposed())
	})

	t.Run("watcher unsubscribes", func(t *testing.T) {
		t.Parallel()
		bb := NewBlackboard(0)
		var changes int
		w := NewWatcher("k", WatchAny, newStub("c", Running))
		w.OnChange = func(any) { changes++ }
		tree := NewTree(WithBlackboard(bb, false))
		tree.AddNode(w)
		require.NoError(t, tree.Tick(0))
		bb.SetValue("k", 1)
		tree.Dispose()
		bb.SetValue("k", 2)
		require.Equal(t, 1, changes)
	})
}

func TestTree_SetBlackboard(t *testing.T) {
	t.Parallel()

	tree := NewTree()
	owned := tree.Blackboard()
	require.ErrorIs(t, tree.SetBlackboard(nil, true), ErrNilBlackboard)

	shared := NewBlackboard(0)
	require.NoError(t, tree.SetBlackboard(shared, false))
	require.True(t, owned.IsDisposed())
	require.Same(t, shared, tree.Blackboard())

	other := NewBlackboard(0)
	require.NoError(t, tree.SetBlackboard(other, true))
	require.False(t, shared.IsDisposed())

	tree.Dispose()
	require.True(t, other.IsDisposed())
}

func TestTree_PauseResume(t *testing.T) {
	t.Parallel()

	a := newStub("a", Success)
	b := newStub("b", Running)
	tree := NewTree()
	tree.AddNode(a, b)
	require.NoError(t, tree.Tick(0))
	require.Equal(t, 1, tree.Cursor())

	tree.Pause()
	require.True(t, tree.IsPaused())
	require.NoError(t, tree.Tick(0))
	require.NoError(t, tree.Tick(0))
	require.Equal(t, 1, b.runs)

	tree.ResetNode(1)
	tree.Resume()
	require.False(t, tree.IsPaused())
	require.Equal(t, 1, tree.Cursor())
	require.Equal(t, Running, tree.Status(1))

	require.NoError(t, tree.Tick(0))
	require.Equal(t, 1, a.runs)
	require.Equal(t, 2, b.runs)
}

func TestTree_ResetAll(t *testing.T) {
	t.Parallel()

	a := newStub("a", Failure)
	tree := NewTree()
	tree.AddNode(a, newStub("b", Running))
	require.NoError(t, tree.Tick(0))
	require.Equal(t, Failure, tree.Status(0))

	tree.ResetAll(ResetPartial)
	require.Equal(t, Running, tree.Status(0))
	require.Equal(t, ResetPartial, a.lastMode)
	require.Equal(t, 1, tree.Cursor())
}

func TestTree_ConcurrentTick(t *testing.T) {
	t.Parallel()

	build := func(opts ...Option) (*Tree, []*stub) {
		var stubs []*stub
		tree := NewTree(opts...)
		for i := range 6 {
			s := newStub(string(rune('a'+i)), Success)
			if i == 2 || i == 4 {
				s.results = []Status{Running}
			}
			stubs = append(stubs, s)
			tree.AddNode(s)
		}
		return tree, stubs
	}
	tickElsewhere := func(tree *Tree) error {
		done := make(chan error, 1)
		go func() { done <- tree.Tick(time.Millisecond) }()
		return <-done
	}

	t.Run("off primary goroutine", func(t *testing.T) {
		t.Parallel()
		tree, stubs := build(WithMaxParallelism(3))
		events := recordStatus(tree)
		require.NoError(t, tickElsewhere(tree))
		for _, s := range stubs {
			require.Equal(t, 1, s.runs, s.name)
		}
		require.Equal(t, 2, tree.Cursor())
		require.Len(t, *events, 4)
	})

	t.Run("on primary goroutine", func(t *testing.T) {
		t.Parallel()
		tree, stubs := build()
		require.NoError(t, tree.Tick(time.Millisecond))
		require.Equal(t, 1, stubs[2].runs)
		require.Zero(t, stubs[3].runs)
		require.Equal(t, 2, tree.Cursor())
	})

	t.Run("primary moved to ticking goroutine", func(t *testing.T) {
		t.Parallel()
		tree, stubs := build()
		done := make(chan error, 1)
		go func() {
			tree.SetPrimaryGoroutine(goroutineid.Get())
			done <- tree.Tick(time.Millisecond)
		}()
		require.NoError(t, <-done)
		require.Equal(t, 1, stubs[2].runs)
		require.Zero(t, stubs[3].runs)
		require.Zero(t, stubs[4].runs)
		require.Equal(t, 2, tree.Cursor())
	})

	t.Run("parallelism of one", func(t *testing.T) {
		t.Parallel()
		tree, stubs := build(WithMaxParallelism(1))
		require.NoError(t, tickElsewhere(tree))
		require.Zero(t, stubs[3].runs)
	})

	t.Run("error", func(t *testing.T) {
		t.Parallel()
		boom := errors.New("boom")
		tree, stubs := build()
		stubs[5].err = boom
		require.ErrorIs(t, tickElsewhere(tree), boom)
	})

	t.Run("panic", func(t *testing.T) {
		t.Parallel()
		tree := NewTree()
		tree.AddNode(NewAction("bad", func(*Context) (Status, error) { panic("oops") }))
		err := tickElsewhere(tree)
		require.ErrorIs(t, err, ErrNodePanic)
		require.ErrorContains(t, err, "Action(bad)")
	})
}

func TestTree_Walk(t *testing.T) {
	t.Parallel()

	run := func(s Status) ActionFunc {
		return func(*Context) (Status, error) { return s, nil }
	}
	b := NewAction("b", run(Running))
	sel := NewSelector(b, NewAction("c", run(Success)))
	seq := NewSequence(NewAction("a", run(Success)), sel)
	tree := NewTree(WithID("walk"))
	tree.AddNode(seq, NewAction("d", run(Success)))

	require.Equal(t, []string{
		"Sequence",
		"Sequence/Action(a)",
		"Sequence/Selector",
		"Sequence/Selector/Action(b)",
		"Sequence/Selector/Action(c)",
		"Action(d)",
	}, tree.Paths())

	actions := tree.FindNodes(func(n Node) bool {
		_, ok := n.(*Action)
		return ok
	})
	require.Len(t, actions, 4)
	require.Same(t, b, actions[1])

	var visited int
	Walk(seq, func(Node) bool {
		visited++
		return visited < 3
	})
	require.Equal(t, 3, visited)

	require.NoError(t, tree.Tick(0))
	require.Equal(t, 0, tree.Cursor())
	require.Equal(t, []string{"Sequence/Selector/Action(b)", "Action(d)"}, tree.ActivePaths())
	require.Equal(t, []Node{seq, tree.Node(1)}, tree.ActiveNodes())
	require.Contains(t, tree.String(), "Tree(walk, roots=2, cursor=0)")
	require.Contains(t, tree.String(), "  Sequence/Selector/Action(c)\n")
}
