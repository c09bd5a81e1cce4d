package cache

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func TestCacheGetPut(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	c := New[string]("test", 5*time.Minute, clock)

	_, ok := c.Get("k")
	assert.False(t, ok)

	c.Put("k", "v")
	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", got)
}

func TestCacheExpiry(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	c := New[int]("test", 30*time.Second, clock)

	c.Put("k", 42)

	clock.Advance(29 * time.Second)
	_, ok := c.Get("k")
	assert.True(t, ok)

	clock.Advance(2 * time.Second)
	_, ok = c.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 1, c.Len(), "read misses but leaves the entry for the sweep")

	assert.Equal(t, 1, c.Sweep())
	assert.Equal(t, 0, c.Len())
}

func TestCacheInvalidate(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	c := New[string]("test", time.Hour, clock)

	c.Put("k", "v")
	c.Invalidate("k")

	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestCacheGetOrLoad(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	c := New[string]("test", time.Hour, clock)

	calls := 0
	load := func() (string, error) {
		calls++
		return "loaded", nil
	}

	v, err := c.GetOrLoad("k", load)
	require.NoError(t, err)
	assert.Equal(t, "loaded", v)

	v, err = c.GetOrLoad("k", load)
	require.NoError(t, err)
	assert.Equal(t, "loaded", v)
	assert.Equal(t, 1, calls, "second read served from cache")
}

func TestCacheGetOrLoadError(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	c := New[string]("test", time.Hour, clock)

	wantErr := errors.New("boom")
	_, err := c.GetOrLoad("k", func() (string, error) { return "", wantErr })
	assert.ErrorIs(t, err, wantErr)
	assert.Equal(t, 0, c.Len(), "errors are not cached")
}

func TestCacheSweep(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	c := New[int]("test", time.Minute, clock)

	c.Put("a", 1)
	c.Put("b", 2)
	clock.Advance(30 * time.Second)
	c.Put("c", 3)
	clock.Advance(45 * time.Second)

	dropped := c.Sweep()
	assert.Equal(t, 2, dropped)
	assert.Equal(t, 1, c.Len())

	_, ok := c.Get("c")
	assert.True(t, ok)
}
