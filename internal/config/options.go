package config

// Option keys.
const (
	KeyTreeCapacity   = "tree.initial-capacity"
	KeyTreePooled     = "tree.pooled"
	KeyGrowthFactor   = "tree.growth-factor"
	KeyMaxParallelism = "tree.max-parallelism"
	KeyBlackboardSize = "blackboard.initial-size"
	KeyTickInterval   = "driver.tick-interval"
	KeyIsolatePanics  = "driver.isolate-panics"
	KeyExprCacheSize  = "expr.cache-size"
	KeyScriptBudget   = "script.budget"
	KeyLogLevel       = "log.level"
	KeyLogFile        = "log.file"
	KeyMetrics        = "metrics.enabled"

	SectionRun   = "run"
	KeyRunFrames = "frames"
	KeyRunDelta  = "delta"
	KeyRunTrees  = "trees"
)

// DefaultSchema returns the schema of every tickbt option.
func DefaultSchema() *ConfigSchema {
	s := NewSchema()
	s.Register(defaultGlobalOptions()...)
	s.Register(defaultSectionOptions()...)
	return s
}

func defaultGlobalOptions() []ConfigOption {
	return []ConfigOption{
		{Key: KeyTreeCapacity, Type: TypeInt, Default: "128", Description: "Initial root capacity of new trees"},
		{Key: KeyTreePooled, Type: TypeBool, Default: "false", Description: "Rent root storage from a shared pool"},
		{Key: KeyGrowthFactor, Type: TypeFloat, Default: "1.5", Description: "Capacity multiplier of pooled trees"},
		{Key: KeyMaxParallelism, Type: TypeInt, Default: "8", Description: "Max roots evaluated concurrently off the primary goroutine"},
		{Key: KeyBlackboardSize, Type: TypeInt, Default: "32", Description: "Initial entry capacity of blackboards"},
		{Key: KeyTickInterval, Type: TypeDuration, Default: "16ms", Description: "Frame interval of the realtime driver", EnvVar: "TICKBT_TICK_INTERVAL"},
		{Key: KeyIsolatePanics, Type: TypeBool, Default: "true", Description: "Log and skip failing trees instead of stopping"},
		{Key: KeyExprCacheSize, Type: TypeInt, Default: "1000", Description: "Compiled expression cache size"},
		{Key: KeyScriptBudget, Type: TypeDuration, Default: "1s", Description: "Max run time of one script evaluation"},
		{Key: KeyLogLevel, Type: TypeString, Default: "info", Description: "Log level: debug, info, warn, error", EnvVar: "TICKBT_LOG_LEVEL"},
		{Key: KeyLogFile, Type: TypeString, Default: "", Description: "Log file path (JSON output)", EnvVar: "TICKBT_LOG_FILE"},
		{Key: KeyMetrics, Type: TypeBool, Default: "false", Description: "Collect and print tick metrics"},
	}
}

func defaultSectionOptions() []ConfigOption {
	return []ConfigOption{
		{Key: KeyRunFrames, Section: SectionRun, Type: TypeInt, Default: "60", Description: "Frames ticked by 'run'"},
		{Key: KeyRunDelta, Section: SectionRun, Type: TypeDuration, Default: "16ms", Description: "Delta time per frame of 'run'"},
		{Key: KeyRunTrees, Section: SectionRun, Type: TypeInt, Default: "1", Description: "Trees instantiated by 'run'"},
	}
}
