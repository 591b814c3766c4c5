package cache

import (
	"strings"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"ghosttab/logger"
)

const (
	// DefaultCapacity bounds the number of retained contexts. Entries are
	// cheap to recompute, so the cache stays intentionally small.
	DefaultCapacity = 50
	// DefaultTTL expires contexts the user has clearly moved away from.
	DefaultTTL = 5 * time.Minute
)

// Entry is one cached completion context.
type Entry struct {
	Prefix string
	Suffix string
	// RequestID identifies the originating model request.
	RequestID   string
	Completions []string
}

// Hit is a successful lookup. Synthesized marks candidates derived from a
// prior completion for a contained cursor position rather than an exact hit.
type Hit struct {
	RequestID   string
	Completions []string
	Synthesized bool
}

// Cache stores accepted completion responses keyed by editing context.
// Eviction is insertion-ordered: capacity overflow drops the oldest-inserted
// entry, and reads never reorder. The store handles TTL expiry only; its
// internal list reorders on reads, so the insertion queue is tracked here.
type Cache struct {
	mu       sync.Mutex
	store    *ttlcache.Cache[string, *Entry]
	capacity int
	order    []*Entry

	stopJanitor chan struct{}
	janitor     sync.WaitGroup
	closeOnce   sync.Once
}

// New creates a cache with the given capacity and entry TTL. Zero values
// select the defaults.
func New(capacity int, ttl time.Duration) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	store := ttlcache.New[string, *Entry](
		ttlcache.WithTTL[string, *Entry](ttl),
		ttlcache.WithDisableTouchOnHit[string, *Entry](),
	)
	c := &Cache{
		store:       store,
		capacity:    capacity,
		stopJanitor: make(chan struct{}),
	}
	// The store's own Start/Stop pair can miss the stop signal when Stop
	// lands before the Start goroutine is scheduled, so expiry sweeps run
	// on a ticker owned here.
	c.janitor.Add(1)
	go func() {
		defer c.janitor.Done()
		ticker := time.NewTicker(ttl)
		defer ticker.Stop()
		for {
			select {
			case <-c.stopJanitor:
				return
			case <-ticker.C:
				store.DeleteExpired()
			}
		}
	}()
	return c
}

// Close stops the expiration sweep.
func (c *Cache) Close() {
	c.closeOnce.Do(func() {
		close(c.stopJanitor)
		c.janitor.Wait()
	})
}

func key(prefix, suffix string) string {
	return prefix + "\x00" + suffix
}

// normalizeKey drops trailing spaces/tabs from the last prefix line so that
// retriggering after the user types whitespace still hits.
func normalizeKey(prefix, suffix string) string {
	return key(strings.TrimRight(prefix, " \t"), suffix)
}

// Add stores the processed completions for a context under both the exact
// and the whitespace-normalized key. When the cache is full the
// oldest-inserted context is evicted first.
func (c *Cache) Add(prefix, suffix, requestID string, completions []string) {
	if len(completions) == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	k := key(prefix, suffix)

	// Re-adding a context refreshes its insertion slot.
	for i, e := range c.order {
		if key(e.Prefix, e.Suffix) == k {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	for len(c.order) >= c.capacity {
		oldest := c.order[0]
		c.order = c.order[1:]
		c.store.Delete(key(oldest.Prefix, oldest.Suffix))
		c.store.Delete(normalizeKey(oldest.Prefix, oldest.Suffix))
	}

	entry := &Entry{
		Prefix:      prefix,
		Suffix:      suffix,
		RequestID:   requestID,
		Completions: completions,
	}
	c.store.Set(k, entry, ttlcache.DefaultTTL)
	if nk := normalizeKey(prefix, suffix); nk != k {
		c.store.Set(nk, entry, ttlcache.DefaultTTL)
	}
	c.order = append(c.order, entry)
}

// Get looks up completions for a context. Exact and whitespace-normalized
// hits return the stored completions; otherwise Get attempts synthesis: if
// the user has typed out a strict prefix of a cached completion for the same
// suffix, the remainder is returned as a zero-latency candidate.
func (c *Cache) Get(prefix, suffix string) (*Hit, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, k := range []string{key(prefix, suffix), normalizeKey(prefix, suffix)} {
		if item := c.store.Get(k); item != nil {
			entry := item.Value()
			return &Hit{RequestID: entry.RequestID, Completions: entry.Completions}, true
		}
	}
	return c.synthesize(prefix, suffix)
}

// synthesize scans for an entry whose context strictly contains the new
// cursor position: same suffix, cached prefix is a proper prefix of the new
// one, and the characters typed since then replay the start of a stored
// completion.
func (c *Cache) synthesize(prefix, suffix string) (*Hit, bool) {
	var hit *Hit
	c.store.Range(func(item *ttlcache.Item[string, *Entry]) bool {
		entry := item.Value()
		if entry.Suffix != suffix || !strings.HasPrefix(prefix, entry.Prefix) || entry.Prefix == prefix {
			return true
		}
		typed := prefix[len(entry.Prefix):]
		var remainders []string
		for _, completion := range entry.Completions {
			if len(typed) < len(completion) && strings.HasPrefix(completion, typed) {
				remainders = append(remainders, completion[len(typed):])
			}
		}
		if len(remainders) == 0 {
			return true
		}
		logger.Debug("cache: synthesized %d candidate(s) from request %s", len(remainders), entry.RequestID)
		hit = &Hit{RequestID: entry.RequestID, Completions: remainders, Synthesized: true}
		return false
	})
	return hit, hit != nil
}
