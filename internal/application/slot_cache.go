package application

import (
	"strconv"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// slotCache stores recently fetched availability so reopening the dialog on
// the same day does not refetch while appointments remain unchanged.
type slotCache struct {
	mu         sync.RWMutex
	clock      clockwork.Clock
	ttl        time.Duration
	maxEntries int
	entries    map[string]slotCacheEntry
}

type slotCacheEntry struct {
	slots     []string
	expiresAt time.Time
}

func newSlotCache(ttl time.Duration, maxEntries int, clock clockwork.Clock) *slotCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if maxEntries <= 0 {
		maxEntries = 64
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &slotCache{
		clock:      clock,
		ttl:        ttl,
		maxEntries: maxEntries,
		entries:    make(map[string]slotCacheEntry),
	}
}

func (c *slotCache) Get(key string) ([]string, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if !c.clock.Now().Before(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return nil, false
	}
	return cloneSlots(entry.slots), true
}

func (c *slotCache) Store(key string, slots []string) {
	if c == nil {
		return
	}
	cloned := cloneSlots(slots)
	expiry := c.clock.Now().Add(c.ttl)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.cleanupLocked()
	if len(c.entries) >= c.maxEntries {
		c.evictOneLocked()
	}
	c.entries[key] = slotCacheEntry{slots: cloned, expiresAt: expiry}
}

func (c *slotCache) Invalidate() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.entries = make(map[string]slotCacheEntry)
	c.mu.Unlock()
}

func (c *slotCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *slotCache) cleanupLocked() {
	now := c.clock.Now()
	for key, entry := range c.entries {
		if !now.Before(entry.expiresAt) {
			delete(c.entries, key)
		}
	}
}

// evictOneLocked drops the entry closest to expiry.
func (c *slotCache) evictOneLocked() {
	var (
		oldestKey string
		oldest    time.Time
	)
	for key, entry := range c.entries {
		if oldestKey == "" || entry.expiresAt.Before(oldest) {
			oldestKey, oldest = key, entry.expiresAt
		}
	}
	delete(c.entries, oldestKey)
}

func cloneSlots(slots []string) []string {
	if len(slots) == 0 {
		return nil
	}
	out := make([]string, len(slots))
	copy(out, slots)
	return out
}

func slotCacheKey(userID int64, date string) string {
	return strconv.FormatInt(userID, 10) + "|" + date
}
