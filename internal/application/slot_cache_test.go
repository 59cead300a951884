package application

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/managerapp/internal/testfixtures"
)

func TestSlotCache_Expiry(t *testing.T) {
	t.Parallel()

	clock := testfixtures.NewClock(time.Time{})
	cache := newSlotCache(10*time.Second, 0, clock)

	cache.Store("1|2025-03-12", []string{"a", "b"})
	slots, ok := cache.Get("1|2025-03-12")
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, slots)

	slots[0] = "mutated"
	again, _ := cache.Get("1|2025-03-12")
	assert.Equal(t, "a", again[0], "callers get a copy")

	clock.Advance(10 * time.Second)
	_, ok = cache.Get("1|2025-03-12")
	assert.False(t, ok)
	assert.Zero(t, cache.Len())
}

func TestSlotCache_EvictsOldest(t *testing.T) {
	t.Parallel()

	clock := testfixtures.NewClock(time.Time{})
	cache := newSlotCache(time.Minute, 2, clock)

	cache.Store("a", []string{"1"})
	clock.Advance(time.Second)
	cache.Store("b", []string{"2"})
	clock.Advance(time.Second)
	cache.Store("c", []string{"3"})

	assert.Equal(t, 2, cache.Len())
	_, ok := cache.Get("a")
	assert.False(t, ok)
	_, ok = cache.Get("c")
	assert.True(t, ok)
}

func TestSlotCache_Invalidate(t *testing.T) {
	t.Parallel()

	cache := newSlotCache(0, 0, nil)
	cache.Store(slotCacheKey(7, "2025-03-12"), []string{"x"})
	cache.Invalidate()

	_, ok := cache.Get(slotCacheKey(7, "2025-03-12"))
	assert.False(t, ok)
	assert.Equal(t, "7|2025-03-12", slotCacheKey(7, "2025-03-12"))
}
