package config

import (
	"errors"
	"time"

	"github.com/joeycumines/tickbt/internal/behavior"
)

// Settings is the resolved, typed configuration.
type Settings struct {
	TreeCapacity   int
	TreePooled     bool
	GrowthFactor   float64
	MaxParallelism int
	BlackboardSize int
	TickInterval   time.Duration
	IsolatePanics  bool
	ExprCacheSize  int
	ScriptBudget   time.Duration
	LogLevel       string
	LogFile        string
	Metrics        bool

	RunFrames int
	RunDelta  time.Duration
	RunTrees  int
}

// Settings resolves every option of c, which may be nil. Every malformed
// value is reported.
func (s *ConfigSchema) Settings(c *Config) (Settings, error) {
	var (
		out  Settings
		errs []error
	)
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}
	var err error
	out.TreeCapacity, err = s.ResolveInt(c, "", KeyTreeCapacity)
	collect(err)
	out.TreePooled, err = s.ResolveBool(c, "", KeyTreePooled)
	collect(err)
	out.GrowthFactor, err = s.ResolveFloat(c, "", KeyGrowthFactor)
	collect(err)
	out.MaxParallelism, err = s.ResolveInt(c, "", KeyMaxParallelism)
	collect(err)
	out.BlackboardSize, err = s.ResolveInt(c, "", KeyBlackboardSize)
	collect(err)
	out.TickInterval, err = s.ResolveDuration(c, "", KeyTickInterval)
	collect(err)
	out.IsolatePanics, err = s.ResolveBool(c, "", KeyIsolatePanics)
	collect(err)
	out.ExprCacheSize, err = s.ResolveInt(c, "", KeyExprCacheSize)
	collect(err)
	out.ScriptBudget, err = s.ResolveDuration(c, "", KeyScriptBudget)
	collect(err)
	out.LogLevel = s.Resolve(c, KeyLogLevel)
	out.LogFile = s.Resolve(c, KeyLogFile)
	out.Metrics, err = s.ResolveBool(c, "", KeyMetrics)
	collect(err)

	out.RunFrames, err = s.ResolveInt(c, SectionRun, KeyRunFrames)
	collect(err)
	out.RunDelta, err = s.ResolveDuration(c, SectionRun, KeyRunDelta)
	collect(err)
	out.RunTrees, err = s.ResolveInt(c, SectionRun, KeyRunTrees)
	collect(err)

	return out, errors.Join(errs...)
}

// TreeOptions returns the tree options implied by the settings. pool is
// used when pooling is enabled.
func (st Settings) TreeOptions(pool *behavior.NodePool) []behavior.Option {
	opts := []behavior.Option{
		behavior.WithCapacity(st.TreeCapacity),
		behavior.WithMaxParallelism(st.MaxParallelism),
		behavior.WithBlackboardSize(st.BlackboardSize),
	}
	if st.TreePooled && pool != nil {
		opts = append(opts, behavior.WithPool(pool), behavior.WithGrowthFactor(st.GrowthFactor))
	}
	return opts
}
