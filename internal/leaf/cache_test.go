package leaf

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCache_LRU(t *testing.T) {
	t.Parallel()

	c := NewCache[int](2)
	c.Put("a", 1)
	c.Put("b", 2)
	c.Put("c", 3)
	require.Equal(t, 2, c.Len())
	_, ok := c.Get("a")
	require.False(t, ok)

	v, ok := c.Get("b")
	require.True(t, ok)
	require.Equal(t, 2, v)

	c.Put("d", 4)
	_, ok = c.Get("c")
	require.False(t, ok)
	_, ok = c.Get("b")
	require.True(t, ok)

	c.Put("b", 20)
	v, _ = c.Get("b")
	require.Equal(t, 20, v)

	c.Resize(1)
	require.Equal(t, 1, c.Len())
	_, ok = c.Get("d")
	require.False(t, ok)

	s := c.Stats()
	require.Equal(t, CacheStats{Size: 1, Hits: 4, Misses: 3}, s)
	require.InDelta(t, 4.0/7.0, s.Ratio(), 1e-9)
	require.Contains(t, c.String(), "hits=4")

	c.Clear()
	require.Zero(t, c.Len())
	require.Zero(t, CacheStats{}.Ratio())
	require.Equal(t, DefaultCacheSize, NewCache[int](0).maxSize)
}
