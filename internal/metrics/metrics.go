// Package metrics exposes Prometheus collectors for tree ticking.
package metrics

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/joeycumines/tickbt/internal/behavior"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespace = "tickbt"

	ResultOK    = "ok"
	ResultError = "error"
	ResultPanic = "panic"
)

// Registry is the subset of *prometheus.Registry a Collector needs.
type Registry interface {
	prometheus.Registerer
	prometheus.Gatherer
}

// Collector records tick outcomes, root status changes and live trees.
type Collector struct {
	gatherer prometheus.Gatherer

	ticks         *prometheus.CounterVec
	tickDuration  prometheus.Histogram
	frames        prometheus.Counter
	frameDuration prometheus.Histogram
	statusChanges *prometheus.CounterVec
	liveTrees     prometheus.Gauge
}

// NewCollector creates the collectors and registers them with reg.
func NewCollector(reg Registry) (*Collector, error) {
	c := &Collector{
		gatherer: reg,
		ticks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tree",
			Name:      "ticks_total",
			Help:      "Tree ticks by result (ok, error, panic)",
		}, []string{"result"}),
		tickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "tree",
			Name:      "tick_duration_seconds",
			Help:      "Duration of a single tree tick in seconds",
			Buckets:   []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
		}),
		frames: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "driver",
			Name:      "frames_total",
			Help:      "Frames driven across all trees",
		}),
		frameDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "driver",
			Name:      "frame_duration_seconds",
			Help:      "Duration of a driver frame in seconds",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.004, 0.008, 0.016, 0.033, 0.1},
		}),
		statusChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tree",
			Name:      "status_changes_total",
			Help:      "Root status changes by new status",
		}, []string{"status"}),
		liveTrees: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "registry",
			Name:      "live_trees",
			Help:      "Trees currently registered",
		}),
	}

	var errs []error
	for _, col := range []prometheus.Collector{
		c.ticks, c.tickDuration, c.frames, c.frameDuration, c.statusChanges, c.liveTrees,
	} {
		if err := reg.Register(col); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}
	return c, nil
}

// ObserveTick records one tree tick. A nil Collector ignores it.
func (c *Collector) ObserveTick(d time.Duration, result string) {
	if c == nil {
		return
	}
	c.ticks.WithLabelValues(result).Inc()
	c.tickDuration.Observe(d.Seconds())
}

// ObserveFrame records one driver frame.
func (c *Collector) ObserveFrame(d time.Duration) {
	if c == nil {
		return
	}
	c.frames.Inc()
	c.frameDuration.Observe(d.Seconds())
}

// StatusChanged counts a root changing to status.
func (c *Collector) StatusChanged(status behavior.Status) {
	if c == nil {
		return
	}
	c.statusChanges.WithLabelValues(strings.ToLower(status.String())).Inc()
}

// SetLiveTrees sets the live tree gauge.
func (c *Collector) SetLiveTrees(n int) {
	if c == nil {
		return
	}
	c.liveTrees.Set(float64(n))
}

// Track counts status changes of every root of tree until it is disposed.
func (c *Collector) Track(tree *behavior.Tree) {
	if c == nil || tree == nil {
		return
	}
	tree.OnStatusChanged(func(_ behavior.Node, status behavior.Status) {
		c.StatusChanged(status)
	})
}

// Sample is one gathered series.
type Sample struct {
	Name   string
	Labels string
	Value  float64
}

// Summary gathers the tickbt counters and gauges, sorted by name then
// labels. Histograms are reported as their sample count.
func (c *Collector) Summary() ([]Sample, error) {
	if c == nil || c.gatherer == nil {
		return nil, nil
	}
	families, err := c.gatherer.Gather()
	if err != nil {
		return nil, fmt.Errorf("gather metrics: %w", err)
	}
	var out []Sample
	for _, mf := range families {
		if !strings.HasPrefix(mf.GetName(), namespace+"_") {
			continue
		}
		for _, m := range mf.GetMetric() {
			pairs := make([]string, 0, len(m.GetLabel()))
			for _, lp := range m.GetLabel() {
				pairs = append(pairs, lp.GetName()+"="+lp.GetValue())
			}
			s := Sample{Name: mf.GetName(), Labels: strings.Join(pairs, ",")}
			switch {
			case m.GetCounter() != nil:
				s.Value = m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				s.Value = m.GetGauge().GetValue()
			case m.GetHistogram() != nil:
				s.Value = float64(m.GetHistogram().GetSampleCount())
			default:
				continue
			}
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Labels < out[j].Labels
	})
	return out, nil
}
