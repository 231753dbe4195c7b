package command

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/joeycumines/tickbt/internal/testutil"
	"github.com/stretchr/testify/require"
)

func TestWatchFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "tree.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: a\n"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var reloads atomic.Int32
	require.NoError(t, watchFile(ctx, path, 20*time.Millisecond, slog.New(slog.DiscardHandler), func() error {
		reloads.Add(1)
		return nil
	}))

	// other files in the directory are ignored
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("x"), 0o644))

	time.Sleep(100 * time.Millisecond)
	require.Zero(t, reloads.Load())

	require.NoError(t, os.WriteFile(path, []byte("name: b\n"), 0o644))
	require.NoError(t, testutil.Poll(ctx, func() bool { return reloads.Load() >= 1 }, 5*time.Second, 5*time.Millisecond))

	n := reloads.Load()
	require.NoError(t, os.WriteFile(path, []byte("name: c\n"), 0o644))
	require.NoError(t, testutil.Poll(ctx, func() bool { return reloads.Load() > n }, 5*time.Second, 5*time.Millisecond))

	cancel()
	time.Sleep(50 * time.Millisecond)
	n = reloads.Load()
	require.NoError(t, os.WriteFile(path, []byte("name: d\n"), 0o644))
	time.Sleep(100 * time.Millisecond)
	require.Equal(t, n, reloads.Load())
}

func TestWatchFileMissingDir(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "missing", "tree.yaml")
	err := watchFile(context.Background(), path, watchDebounce, slog.Default(), func() error { return nil })
	require.ErrorContains(t, err, "failed to watch")
}
