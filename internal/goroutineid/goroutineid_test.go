package goroutineid

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		name   string
		header string
		want   int64
	}{
		{"running", "goroutine 123 [running]:\n", 123},
		{"truncated", "goroutine 77", 77},
		{"no prefix", "something else\n", 0},
		{"no digits", "goroutine [running]", 0},
		{"empty", "", 0},
	} {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, parse([]byte(tc.header)))
		})
	}
}

func TestGet(t *testing.T) {
	t.Parallel()

	id := Get()
	require.Greater(t, id, int64(0))
	require.Equal(t, id, Get())
	require.True(t, Is(id))
	require.True(t, Is(0))

	var (
		wg    sync.WaitGroup
		other int64
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		other = Get()
	}()
	wg.Wait()
	require.NotEqual(t, id, other)
	require.False(t, Is(other))
}
