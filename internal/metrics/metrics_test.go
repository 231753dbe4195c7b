package metrics

import (
	"testing"
	"time"

	"github.com/joeycumines/tickbt/internal/behavior"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestCollector(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg)
	require.NoError(t, err)

	c.ObserveTick(time.Millisecond, ResultOK)
	c.ObserveTick(time.Millisecond, ResultOK)
	c.ObserveTick(time.Millisecond, ResultError)
	c.ObserveFrame(2 * time.Millisecond)
	c.StatusChanged(behavior.Success)
	c.SetLiveTrees(3)

	require.Equal(t, 2.0, testutil.ToFloat64(c.ticks.WithLabelValues(ResultOK)))
	require.Equal(t, 1.0, testutil.ToFloat64(c.ticks.WithLabelValues(ResultError)))
	require.Equal(t, 1.0, testutil.ToFloat64(c.frames))
	require.Equal(t, 1.0, testutil.ToFloat64(c.statusChanges.WithLabelValues("success")))
	require.Equal(t, 3.0, testutil.ToFloat64(c.liveTrees))
	require.Equal(t, 1, testutil.CollectAndCount(c.tickDuration))
}

func TestCollectorDuplicateRegistration(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	_, err := NewCollector(reg)
	require.NoError(t, err)
	_, err = NewCollector(reg)
	require.Error(t, err)
}

func TestCollectorNil(t *testing.T) {
	t.Parallel()

	var c *Collector
	require.NotPanics(t, func() {
		c.ObserveTick(time.Second, ResultOK)
		c.ObserveFrame(time.Second)
		c.StatusChanged(behavior.Failure)
		c.SetLiveTrees(1)
		c.Track(behavior.NewTree())
	})
	samples, err := c.Summary()
	require.NoError(t, err)
	require.Empty(t, samples)
}

func TestTrackAndSummary(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg)
	require.NoError(t, err)

	tree := behavior.NewTree()
	defer tree.Dispose()
	c.Track(tree)
	tree.AddNode(&behavior.Constant{Status: behavior.Success}, &behavior.Constant{Status: behavior.Failure})
	require.NoError(t, tree.Tick(time.Millisecond))

	samples, err := c.Summary()
	require.NoError(t, err)

	values := make(map[string]float64)
	for _, s := range samples {
		values[s.Name+"{"+s.Labels+"}"] = s.Value
	}
	require.Equal(t, 1.0, values["tickbt_tree_status_changes_total{status=success}"])
	require.Equal(t, 1.0, values["tickbt_tree_status_changes_total{status=failure}"])
	require.Contains(t, values, "tickbt_registry_live_trees{}")

	for i := 1; i < len(samples); i++ {
		require.LessOrEqual(t, samples[i-1].Name, samples[i].Name)
	}
}
