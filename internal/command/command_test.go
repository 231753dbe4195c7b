package command

import (
	"bytes"
	"context"
	"flag"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/joeycumines/tickbt/internal/config"
	"github.com/stretchr/testify/require"
)

// execute parses args with cmd's flags and runs it.
func execute(t *testing.T, cmd Command, args ...string) (string, string, error) {
	t.Helper()
	fs := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	cmd.SetupFlags(fs)
	require.NoError(t, fs.Parse(args))
	var stdout, stderr bytes.Buffer
	err := cmd.Execute(fs.Args(), &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

func TestRegistry(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	r.Register(NewVersionCommand("1.2.3"))
	r.Register(NewConfigCommand(config.NewConfig(), ""))
	r.Register(NewHelpCommand(r))

	require.Equal(t, []string{"config", "help", "version"}, r.List())
	cmd, err := r.Get("version")
	require.NoError(t, err)
	require.Equal(t, "version", cmd.Name())
	_, err = r.Get("nope")
	require.EqualError(t, err, "command not found: nope")
}

func TestHelpCommand(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	r.Register(NewVersionCommand("1.2.3"))
	r.Register(NewRunCommand(config.NewConfig()))
	help := NewHelpCommand(r)
	r.Register(help)

	stdout, _, err := execute(t, help)
	require.NoError(t, err)
	require.Contains(t, stdout, "Usage: tickbt <command>")
	require.Contains(t, stdout, "Display version information")
	require.Contains(t, stdout, "Tick a behavior tree template")

	stdout, _, err = execute(t, help, "run")
	require.NoError(t, err)
	require.Contains(t, stdout, "Usage: tickbt run [options] <template.yaml>")
	require.Contains(t, stdout, "-realtime")

	_, stderr, err := execute(t, help, "nope")
	require.Error(t, err)
	require.Contains(t, stderr, "Unknown command: nope")
}

func TestVersionCommand(t *testing.T) {
	t.Parallel()

	stdout, _, err := execute(t, NewVersionCommand("1.2.3"))
	require.NoError(t, err)
	require.Equal(t, "tickbt version 1.2.3\n", stdout)

	_, _, err = execute(t, NewVersionCommand("1.2.3"), "extra")
	require.Error(t, err)
}

func TestConfigCommand(t *testing.T) {
	t.Parallel()

	newCmd := func(t *testing.T) (*ConfigCommand, string) {
		path := filepath.Join(t.TempDir(), "config")
		cfg := config.NewConfig()
		cfg.SetGlobalOption(config.KeyTreeCapacity, "64")
		cfg.SetSectionOption(config.SectionRun, config.KeyRunFrames, "5")
		return NewConfigCommand(cfg, path), path
	}

	t.Run("usage", func(t *testing.T) {
		t.Parallel()
		cmd, _ := newCmd(t)
		stdout, _, err := execute(t, cmd)
		require.NoError(t, err)
		require.Contains(t, stdout, "config validate")
	})

	t.Run("get", func(t *testing.T) {
		t.Parallel()
		cmd, _ := newCmd(t)
		stdout, _, err := execute(t, cmd, config.KeyTreeCapacity)
		require.NoError(t, err)
		require.Equal(t, "tree.initial-capacity: 64\n", stdout)

		stdout, _, err = execute(t, cmd, "-section", config.SectionRun, config.KeyRunFrames)
		require.NoError(t, err)
		require.Equal(t, "frames: 5\n", stdout)

		stdout, _, err = execute(t, cmd, "bogus")
		require.NoError(t, err)
		require.Contains(t, stdout, "not found")
	})

	t.Run("set", func(t *testing.T) {
		t.Parallel()
		cmd, path := newCmd(t)
		stdout, _, err := execute(t, cmd, config.KeyTreePooled, "true")
		require.NoError(t, err)
		require.Equal(t, "Set configuration: tree.pooled = true\n", stdout)

		loaded, err := config.LoadFromPath(path)
		require.NoError(t, err)
		require.True(t, loaded.GetBool(config.KeyTreePooled))

		_, _, err = execute(t, cmd, config.KeyTreePooled, "sometimes")
		require.ErrorContains(t, err, "expected bool")
		_, _, err = execute(t, cmd, "bogus", "1")
		require.ErrorContains(t, err, "unknown global option")
	})

	t.Run("show", func(t *testing.T) {
		t.Parallel()
		cmd, _ := newCmd(t)
		stdout, _, err := execute(t, cmd, "show")
		require.NoError(t, err)
		require.Regexp(t, `tree\.initial-capacity\s+64\n`, stdout)
		require.Regexp(t, `frames\s+5\n`, stdout)
		require.Contains(t, stdout, "[run]")
	})

	t.Run("schema", func(t *testing.T) {
		t.Parallel()
		cmd, _ := newCmd(t)
		stdout, _, err := execute(t, cmd, "schema")
		require.NoError(t, err)
		require.Contains(t, stdout, config.KeyScriptBudget)
	})

	t.Run("validate", func(t *testing.T) {
		t.Parallel()
		cmd, _ := newCmd(t)
		stdout, _, err := execute(t, cmd, "validate")
		require.NoError(t, err)
		require.Equal(t, "Configuration is valid.\n", stdout)

		cmd.config.SetGlobalOption("bogus", "1")
		stdout, _, err = execute(t, cmd, "validate")
		require.Error(t, err)
		require.Contains(t, stdout, "1 issue(s)")
	})
}

func TestValidateCommand(t *testing.T) {
	t.Parallel()

	cmd := NewValidateCommand(config.NewConfig())
	stdout, _, err := execute(t, cmd, filepath.Join("testdata", "patrol.yaml"))
	require.NoError(t, err)
	require.Contains(t, stdout, "ok   testdata/patrol.yaml (patrol, 1 roots)")

	stdout, _, err = execute(t, cmd,
		filepath.Join("testdata", "patrol.yaml"),
		filepath.Join("testdata", "broken.yaml"),
		filepath.Join("testdata", "missing.yaml"),
	)
	require.EqualError(t, err, "2 of 3 templates invalid")
	require.Contains(t, stdout, "FAIL testdata/broken.yaml")
	require.Contains(t, stdout, `unknown action`)
	require.Contains(t, stdout, "duration")
	require.Contains(t, stdout, "FAIL testdata/missing.yaml")

	_, _, err = execute(t, cmd)
	require.Error(t, err)
}

func newRunCommand(cfg *config.Config) *RunCommand {
	cmd := NewRunCommand(cfg)
	cmd.ctxFactory = func() (context.Context, context.CancelFunc) {
		return context.WithCancel(context.Background())
	}
	return cmd
}

func TestRunCommand(t *testing.T) {
	t.Parallel()

	patrol := filepath.Join("testdata", "patrol.yaml")

	t.Run("frames", func(t *testing.T) {
		t.Parallel()
		stdout, _, err := execute(t, newRunCommand(config.NewConfig()),
			"-frames", "6", "-delta", "10ms", "-color", "never", patrol)
		require.NoError(t, err)
		require.Contains(t, stdout, "roots=1")
		require.Contains(t, stdout, "  alert = true\n")
		require.Contains(t, stdout, "  count = 3\n")
	})

	t.Run("config defaults", func(t *testing.T) {
		t.Parallel()
		cfg := config.NewConfig()
		cfg.SetSectionOption(config.SectionRun, config.KeyRunFrames, "4")
		cfg.SetSectionOption(config.SectionRun, config.KeyRunDelta, "10ms")
		cfg.SetSectionOption(config.SectionRun, config.KeyRunTrees, "2")
		stdout, _, err := execute(t, newRunCommand(cfg), "-color", "never", patrol)
		require.NoError(t, err)
		require.Equal(t, 2, strings.Count(stdout, "  count = 1\n"))
	})

	t.Run("trace and metrics", func(t *testing.T) {
		t.Parallel()
		stdout, _, err := execute(t, newRunCommand(config.NewConfig()),
			"-frames", "6", "-delta", "10ms", "-trace", "-metrics", "-color", "never", patrol)
		require.NoError(t, err)
		require.Contains(t, stdout, "FRAME")
		require.Contains(t, stdout, "Success")
		require.Contains(t, stdout, "tickbt_driver_frames_total 6\n")
		require.Contains(t, stdout, "tickbt_tree_ticks_total{result=ok} 6\n")
		require.Contains(t, stdout, "tickbt_registry_live_trees 1\n")
	})

	t.Run("realtime", func(t *testing.T) {
		t.Parallel()
		cfg := config.NewConfig()
		cfg.SetGlobalOption(config.KeyTickInterval, "5ms")
		start := time.Now()
		stdout, _, err := execute(t, newRunCommand(cfg), "-realtime", "-for", "100ms", "-color", "never", patrol)
		require.NoError(t, err)
		require.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)
		require.Contains(t, stdout, "roots=1")
	})

	t.Run("realtime roots in order", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "blocked.yaml")
		require.NoError(t, os.WriteFile(path, []byte("name: blocked\nroots:\n  - {type: wait, duration: 1h}\n  - {type: action, action: count}\n"), 0o644))
		cfg := config.NewConfig()
		cfg.SetGlobalOption(config.KeyTickInterval, "2ms")
		stdout, _, err := execute(t, newRunCommand(cfg), "-realtime", "-for", "100ms", "-color", "never", path)
		require.NoError(t, err)
		require.Contains(t, stdout, "roots=2")
		require.NotContains(t, stdout, "count =")
	})

	t.Run("watch", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "patrol.yaml")
		data, err := os.ReadFile(patrol)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(path, data, 0o644))

		cfg := config.NewConfig()
		cfg.SetGlobalOption(config.KeyTickInterval, "5ms")
		type result struct {
			stdout string
			err    error
		}
		done := make(chan result, 1)
		go func() {
			stdout, _, err := execute(t, newRunCommand(cfg), "-realtime", "-watch", "-for", "2s", "-color", "never", path)
			done <- result{stdout, err}
		}()

		time.Sleep(500 * time.Millisecond)
		require.NoError(t, os.WriteFile(path, []byte("name: patrol\nroots:\n  - {type: set, key: reloaded, value: true}\n"), 0o644))

		res := <-done
		require.NoError(t, res.err)
		require.Contains(t, res.stdout, "  reloaded = true\n")
		require.NotContains(t, res.stdout, "alert")
	})

	t.Run("log file", func(t *testing.T) {
		t.Parallel()
		logPath := filepath.Join(t.TempDir(), "run.log")
		_, _, err := execute(t, newRunCommand(config.NewConfig()),
			"-frames", "1", "-log-level", "debug", "-log-file", logPath, "-color", "never", patrol)
		require.NoError(t, err)
		data, err := os.ReadFile(logPath)
		require.NoError(t, err)
		require.Contains(t, string(data), `"msg":"[Template] instantiated"`)
	})

	t.Run("errors", func(t *testing.T) {
		t.Parallel()
		_, _, err := execute(t, newRunCommand(config.NewConfig()))
		require.Error(t, err)

		_, _, err = execute(t, newRunCommand(config.NewConfig()), filepath.Join("testdata", "broken.yaml"))
		require.ErrorContains(t, err, "unknown action")

		_, _, err = execute(t, newRunCommand(config.NewConfig()), "-color", "rainbow", patrol)
		require.EqualError(t, err, "invalid color mode: rainbow")

		cfg := config.NewConfig()
		cfg.SetGlobalOption(config.KeyTreeCapacity, "many")
		_, _, err = execute(t, newRunCommand(cfg), patrol)
		require.ErrorContains(t, err, "invalid configuration")
	})
}

func TestResolveLogConfig(t *testing.T) {
	t.Parallel()

	st, err := config.DefaultSchema().Settings(nil)
	require.NoError(t, err)

	lc, err := resolveLogConfig("", "", st)
	require.NoError(t, err)
	require.Nil(t, lc.logFile)
	require.Equal(t, "INFO", lc.level.String())

	st.LogLevel = "warn"
	lc, err = resolveLogConfig("", "", st)
	require.NoError(t, err)
	require.Equal(t, "WARN", lc.level.String())

	lc, err = resolveLogConfig("", "debug", st)
	require.NoError(t, err)
	require.Equal(t, "DEBUG", lc.level.String())

	_, err = resolveLogConfig("", "loud", st)
	require.EqualError(t, err, "invalid log level: loud")

	st.LogFile = filepath.Join(t.TempDir(), "tickbt.log")
	lc, err = resolveLogConfig("", "", st)
	require.NoError(t, err)
	require.NotNil(t, lc.logFile)
	var stderr bytes.Buffer
	lc.logger(&stderr).Warn("hello")
	lc.close()
	require.Zero(t, stderr.Len())
	data, err := os.ReadFile(st.LogFile)
	require.NoError(t, err)
	require.Contains(t, string(data), `"msg":"hello"`)

	_, err = resolveLogConfig(filepath.Join(t.TempDir(), "missing", "x.log"), "", st)
	require.ErrorContains(t, err, "failed to open log file")
}
