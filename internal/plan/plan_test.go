package plan

import (
	"errors"
	"testing"
	"time"

	pabtpkg "github.com/joeycumines/go-pabt"
	"github.com/joeycumines/tickbt/internal/behavior"
	"github.com/stretchr/testify/require"
)

func tickUntil(t *testing.T, n *Node, bb *behavior.Blackboard, limit int) behavior.Status {
	t.Helper()
	ctx := &behavior.Context{Blackboard: bb, DeltaTime: 10 * time.Millisecond}
	var status behavior.Status
	for range limit {
		var err error
		status, err = n.Run(ctx)
		require.NoError(t, err)
		if status != behavior.Running {
			return status
		}
	}
	return status
}

func TestEqualCond(t *testing.T) {
	t.Parallel()

	c := EqualCond("n", 1)
	require.Equal(t, "n", c.Key())
	require.True(t, c.Match(1))
	require.True(t, c.Match(1.0))
	require.True(t, c.Match(uint8(1)))
	require.False(t, c.Match(2))
	require.False(t, c.Match("1"))
	require.False(t, c.Match(nil))

	s := EqualCond("door", "open")
	require.True(t, s.Match("open"))
	require.False(t, s.Match("closed"))

	require.True(t, NotNilCond("x").Match(0))
	require.False(t, NotNilCond("x").Match(nil))
	require.True(t, NilCond("x").Match(nil))

	var nilCond *Cond
	require.False(t, nilCond.Match(1))
}

func TestExprCond(t *testing.T) {
	t.Parallel()

	c, err := NewExprCond("hp", "value > 3")
	require.NoError(t, err)
	require.Equal(t, "hp", c.Key())
	require.True(t, c.Match(4))
	require.False(t, c.Match(2))
	require.NoError(t, c.LastError())

	require.False(t, c.Match("text"))
	require.Error(t, c.LastError())

	_, err = NewExprCond("hp", "value >")
	require.Error(t, err)
}

func TestActionRegistryOrder(t *testing.T) {
	t.Parallel()

	s := NewState(behavior.NewBlackboard(0))
	for _, name := range []string{"c", "a", "b"} {
		s.Register(NewActionBuilder(name).Sets(name, true).Build(s))
	}
	require.Equal(t, 3, s.Registry().Len())

	var names []string
	for _, a := range s.Registry().All() {
		names = append(names, a.(*Action).Name)
	}
	require.Equal(t, []string{"a", "b", "c"}, names)
	require.NotNil(t, s.Registry().Get("b"))
	require.Nil(t, s.Registry().Get("z"))
}

func TestStateVariable(t *testing.T) {
	t.Parallel()

	bb := behavior.NewBlackboard(0)
	bb.SetValue("hp", 7)
	bb.SetValue("1", "one")
	s := NewState(bb)

	v, err := s.Variable("hp")
	require.NoError(t, err)
	require.Equal(t, 7, v)

	v, err = s.Variable(1)
	require.NoError(t, err)
	require.Equal(t, "one", v)

	v, err = s.Variable("missing")
	require.NoError(t, err)
	require.Nil(t, v)

	_, err = s.Variable(nil)
	require.Error(t, err)
	_, err = s.Variable(3.5)
	require.Error(t, err)

	unbound := NewState(nil)
	_, err = unbound.Variable("hp")
	require.Error(t, err)
}

func TestStateActions(t *testing.T) {
	t.Parallel()

	s := NewState(behavior.NewBlackboard(0))
	s.Register(NewActionBuilder("open").Sets("door", "open").Build(s))
	s.Register(NewActionBuilder("close").Sets("door", "closed").Build(s))
	s.Register(NewActionBuilder("key").Sets("has_key", true).Build(s))

	all, err := s.Actions(nil)
	require.NoError(t, err)
	require.Len(t, all, 3)

	got, err := s.Actions(EqualCond("door", "open"))
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "open", got[0].(*Action).Name)

	got, err = s.Actions(EqualCond("window", "open"))
	require.NoError(t, err)
	require.Empty(t, got)

	t.Run("generator is authoritative", func(t *testing.T) {
		generated := NewActionBuilder("kick").Sets("door", "open").Build(s)
		s.SetGenerator(func(failed pabtpkg.Condition) ([]pabtpkg.IAction, error) {
			if failed.Key() == "door" {
				return []pabtpkg.IAction{generated}, nil
			}
			return nil, nil
		})
		defer s.SetGenerator(nil)

		got, err := s.Actions(EqualCond("door", "open"))
		require.NoError(t, err)
		require.Len(t, got, 1)
		require.Same(t, generated, got[0])

		// empty generator output falls back to the library
		got, err = s.Actions(EqualCond("has_key", true))
		require.NoError(t, err)
		require.Len(t, got, 1)
		require.Equal(t, "key", got[0].(*Action).Name)
	})

	t.Run("generator error falls back", func(t *testing.T) {
		s.SetGenerator(func(pabtpkg.Condition) ([]pabtpkg.IAction, error) {
			return nil, errors.New("boom")
		})
		defer s.SetGenerator(nil)

		got, err := s.Actions(EqualCond("door", "closed"))
		require.NoError(t, err)
		require.Len(t, got, 1)
		require.Equal(t, "close", got[0].(*Action).Name)
	})
}

func TestNodeReachesGoal(t *testing.T) {
	t.Parallel()

	bb := behavior.NewBlackboard(0)
	s := NewState(nil)

	steps := 0
	s.Register(NewActionBuilder("walk").
		Sets("at_door", true).
		Do(behavior.NewAction("walk", func(ctx *behavior.Context) (behavior.Status, error) {
			steps++
			if steps < 3 {
				return behavior.Running, nil
			}
			ctx.Blackboard.SetValue("at_door", true)
			return behavior.Success, nil
		})).
		Build(s))
	s.Register(NewActionBuilder("open").
		When(EqualCond("at_door", true)).
		Sets("door", "open").
		Do(&behavior.SetValue{Key: "door", Value: "open"}).
		Build(s))

	n := NewNode("door", s, Goal(EqualCond("door", "open")))
	require.Equal(t, "Plan(door)", n.NodeName())
	require.False(t, n.Planned())

	status := tickUntil(t, n, bb, 20)
	require.Equal(t, behavior.Success, status)
	require.True(t, n.Planned())
	require.Equal(t, true, behavior.GetValue(bb, "at_door", false))
	require.Equal(t, "open", behavior.GetValue(bb, "door", ""))
	require.Equal(t, 3, steps)
	require.Nil(t, s.Context())

	n.Reset(&behavior.ResetContext{Blackboard: bb, Mode: behavior.ResetPartial})
	require.True(t, n.Planned())
	n.Reset(&behavior.ResetContext{Blackboard: bb, Mode: behavior.ResetFull})
	require.False(t, n.Planned())

	// already satisfied, so no action runs
	require.Equal(t, behavior.Success, tickUntil(t, n, bb, 5))
	require.Equal(t, 3, steps)
}

func TestNodeUnreachableGoal(t *testing.T) {
	t.Parallel()

	bb := behavior.NewBlackboard(0)
	s := NewState(nil)
	n := NewNode("", s, Goal(EqualCond("treasure", true)))
	require.Equal(t, "Plan", n.NodeName())

	ctx := &behavior.Context{Blackboard: bb}
	var (
		status behavior.Status
		err    error
	)
	for range 5 {
		status, err = n.Run(ctx)
		if err != nil || status != behavior.Running {
			break
		}
	}
	require.True(t, err != nil || status == behavior.Failure)
	require.False(t, bb.HasValue("treasure"))
}

func TestNodeWithoutGoals(t *testing.T) {
	t.Parallel()

	n := NewNode("empty", NewState(nil))
	status, err := n.Run(&behavior.Context{Blackboard: behavior.NewBlackboard(0)})
	require.NoError(t, err)
	require.Equal(t, behavior.Failure, status)

	var none Node
	status, err = none.Run(&behavior.Context{})
	require.NoError(t, err)
	require.Equal(t, behavior.Failure, status)
}

func TestNodeInTree(t *testing.T) {
	t.Parallel()

	s := NewState(nil)
	s.Register(NewActionBuilder("arm").
		Sets("armed", true).
		Do(&behavior.SetValue{Key: "armed", Value: true}).
		Build(s))

	tree := behavior.NewTree()
	defer tree.Dispose()
	tree.AddNode(NewNode("arm", s, Goal(EqualCond("armed", true))))

	for range 5 {
		require.NoError(t, tree.Tick(10*time.Millisecond))
		if behavior.GetValue(tree.Blackboard(), "armed", false) {
			break
		}
	}
	require.True(t, behavior.GetValue(tree.Blackboard(), "armed", false))
}
