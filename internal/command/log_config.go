package command

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/joeycumines/tickbt/internal/config"
)

// logConfig holds the resolved logging setup of a command.
type logConfig struct {
	level   slog.Level
	logFile io.WriteCloser // nil when logging to stderr
}

// resolveLogConfig resolves the log level and file. Flag values take
// precedence over settings. The caller must call close.
func resolveLogConfig(flagPath, flagLevel string, st config.Settings) (logConfig, error) {
	var lc logConfig

	levelStr := flagLevel
	if levelStr == "" {
		levelStr = st.LogLevel
	}
	level, err := parseLevel(levelStr)
	if err != nil {
		return lc, err
	}
	lc.level = level

	logPath := flagPath
	if logPath == "" {
		logPath = st.LogFile
	}
	if logPath != "" {
		f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return lc, fmt.Errorf("failed to open log file %s: %w", logPath, err)
		}
		lc.logFile = f
	}
	return lc, nil
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid log level: %s", s)
	}
}

// logger returns a JSON logger writing to the log file, or a text logger
// writing to stderr.
func (lc logConfig) logger(stderr io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: lc.level}
	if lc.logFile != nil {
		return slog.New(slog.NewJSONHandler(lc.logFile, opts))
	}
	return slog.New(slog.NewTextHandler(stderr, opts))
}

func (lc logConfig) close() {
	if lc.logFile != nil {
		_ = lc.logFile.Close()
	}
}
