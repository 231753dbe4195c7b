package btadapt

import (
	"errors"
	"testing"
	"time"

	bt "github.com/joeycumines/go-behaviortree"
	"github.com/joeycumines/tickbt/internal/behavior"
	"github.com/stretchr/testify/require"
)

func TestStatusMapping(t *testing.T) {
	t.Parallel()

	for _, s := range []behavior.Status{behavior.Running, behavior.Success, behavior.Failure} {
		back, err := FromBTStatus(ToBTStatus(s))
		require.NoError(t, err)
		require.Equal(t, s, back)
	}
	_, err := FromBTStatus(bt.Status(99))
	require.Error(t, err)
}

func TestLeaf(t *testing.T) {
	t.Parallel()

	var ticks int
	node := bt.New(func([]bt.Node) (bt.Status, error) {
		ticks++
		if ticks < 2 {
			return bt.Running, nil
		}
		return bt.Success, nil
	})
	leaf := NewLeaf("walk", node)
	ctx := &behavior.Context{Blackboard: behavior.NewBlackboard(0)}

	s, err := leaf.Run(ctx)
	require.NoError(t, err)
	require.Equal(t, behavior.Running, s)
	s, err = leaf.Run(ctx)
	require.NoError(t, err)
	require.Equal(t, behavior.Success, s)
	require.Equal(t, "BT(walk)", behavior.NodeLabel(leaf))

	boom := errors.New("boom")
	s, err = NewLeaf("", bt.New(func([]bt.Node) (bt.Status, error) { return bt.Success, boom })).Run(ctx)
	require.ErrorIs(t, err, boom)
	require.Equal(t, behavior.Failure, s)

	s, err = (&Leaf{}).Run(ctx)
	require.NoError(t, err)
	require.Equal(t, behavior.Failure, s)
}

func TestLeaf_InsideBTComposite(t *testing.T) {
	t.Parallel()

	seq := bt.New(bt.Sequence,
		bt.New(func([]bt.Node) (bt.Status, error) { return bt.Success, nil }),
		bt.New(func([]bt.Node) (bt.Status, error) { return bt.Failure, nil }),
	)
	s, err := NewLeaf("seq", seq).Run(&behavior.Context{})
	require.NoError(t, err)
	require.Equal(t, behavior.Failure, s)
}

func TestToBT(t *testing.T) {
	t.Parallel()

	bb := behavior.NewBlackboard(0)
	ctx := &behavior.Context{Blackboard: bb, DeltaTime: time.Second}
	wait := behavior.NewWait(2*time.Second, behavior.WaitAutoReset)
	node := ToBT(wait, func() *behavior.Context { return ctx })

	status, err := node.Tick()
	require.NoError(t, err)
	require.Equal(t, bt.Running, status)
	status, err = node.Tick()
	require.NoError(t, err)
	require.Equal(t, bt.Success, status)

	// behavior nodes compose under go-behaviortree composites
	set := ToBT(&behavior.SetValue{Key: "done", Value: true}, func() *behavior.Context { return ctx })
	status, err = bt.New(bt.Sequence, node, set).Tick()
	require.NoError(t, err)
	require.Equal(t, bt.Success, status)
	require.True(t, behavior.GetValue(bb, "done", false))

	_, err = ToBT(wait, func() *behavior.Context { return nil }).Tick()
	require.Error(t, err)
}

func TestClock(t *testing.T) {
	t.Parallel()

	base := time.Unix(100, 0)
	times := []time.Time{base, base.Add(16 * time.Millisecond), base.Add(10 * time.Millisecond)}
	c := NewClock(func() time.Time {
		now := times[0]
		times = times[1:]
		return now
	})
	require.Zero(t, c.Delta())
	require.Equal(t, 16*time.Millisecond, c.Delta())
	require.Zero(t, c.Delta())
}

func TestTreeNode(t *testing.T) {
	t.Parallel()

	tree := behavior.NewTree()
	tree.AddNode(behavior.NewWait(time.Second, behavior.WaitAutoReset))
	node := TreeNode(tree, func() time.Duration { return 600 * time.Millisecond })

	status, err := node.Tick()
	require.NoError(t, err)
	require.Equal(t, bt.Running, status)
	status, err = node.Tick()
	require.NoError(t, err)
	require.Equal(t, bt.Success, status)

	tree.Dispose()
	_, err = node.Tick()
	require.ErrorIs(t, err, behavior.ErrDisposed)
}
