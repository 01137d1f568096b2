package local

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"sync"
	"time"
)

// ErrNotFound is returned when a key or sorted-set member does not exist.
var ErrNotFound = errors.New("cache: key not found")

// Config holds LocalCache settings.
type Config struct {
	// GCInterval is how often expired keys are swept; 30s when zero.
	GCInterval time.Duration
	// Now overrides the clock used for expiry.
	Now func() time.Time
}

type item struct {
	value    string
	deadline time.Time // zero means no expiry
}

func (it item) live(now time.Time) bool {
	return it.deadline.IsZero() || now.Before(it.deadline)
}

// LocalCache is a single-process stand-in for Redis: string keys with TTL
// plus score-ordered sets. Sorted sets never expire.
type LocalCache struct {
	mu    sync.Mutex
	items map[string]item
	zsets map[string]map[string]float64
	now   func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

// NewCache creates a LocalCache and starts sweeping expired keys.
func NewCache(cfg Config) (*LocalCache, error) {
	if cfg.GCInterval <= 0 {
		cfg.GCInterval = 30 * time.Second
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	c := &LocalCache{
		items: make(map[string]item),
		zsets: make(map[string]map[string]float64),
		now:   cfg.Now,
		stop:  make(chan struct{}),
	}
	go c.sweepLoop(cfg.GCInterval)
	return c, nil
}

// Close stops the sweeper. It is safe to call twice.
func (c *LocalCache) Close() error {
	c.stopOnce.Do(func() { close(c.stop) })
	return nil
}

func (c *LocalCache) sweepLoop(every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			c.sweep()
		case <-c.stop:
			return
		}
	}
}

// sweep drops expired keys and returns how many it removed.
func (c *LocalCache) sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	n := 0
	for k, it := range c.items {
		if !it.live(now) {
			delete(c.items, k)
			n++
		}
	}
	return n
}

// lookup returns the live item for key; c.mu must be held.
func (c *LocalCache) lookup(key string) (item, bool) {
	it, ok := c.items[key]
	if !ok {
		return item{}, false
	}
	if !it.live(c.now()) {
		delete(c.items, key)
		return item{}, false
	}
	return it, true
}

func (c *LocalCache) put(key, value string, ttl time.Duration) {
	it := item{value: value}
	if ttl > 0 {
		it.deadline = c.now().Add(ttl)
	}
	c.items[key] = it
}

func (c *LocalCache) Get(_ context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	it, ok := c.lookup(key)
	if !ok {
		return "", ErrNotFound
	}
	return it.value, nil
}

// Set stores value under key. A ttl of zero or less keeps it forever.
func (c *LocalCache) Set(_ context.Context, key, value string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.put(key, value, ttl)
	return nil
}

// Del removes string keys and sorted sets alike, as Redis DEL does.
func (c *LocalCache) Del(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.items, k)
		delete(c.zsets, k)
	}
	return nil
}

func (c *LocalCache) Exists(_ context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.lookup(key)
	return ok, nil
}

// SetNX stores value only when key is absent or expired.
func (c *LocalCache) SetNX(_ context.Context, key, value string, ttl time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.lookup(key); ok {
		return false, nil
	}
	c.put(key, value, ttl)
	return true, nil
}

func (c *LocalCache) ZAdd(_ context.Context, key string, score float64, member string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	z, ok := c.zsets[key]
	if !ok {
		z = make(map[string]float64)
		c.zsets[key] = z
	}
	z[member] = score
	return nil
}

// ZRevRange lists members from highest score down, ties in reverse
// lexicographic order. Negative indexes count from the end.
func (c *LocalCache) ZRevRange(_ context.Context, key string, start, stop int64) ([]string, error) {
	c.mu.Lock()
	z := c.zsets[key]
	members := make([]string, 0, len(z))
	for m := range z {
		members = append(members, m)
	}
	slices.SortFunc(members, func(a, b string) int {
		if d := cmp.Compare(z[b], z[a]); d != 0 {
			return d
		}
		return cmp.Compare(b, a)
	})
	c.mu.Unlock()

	n := int64(len(members))
	if start < 0 {
		start = max(n+start, 0)
	}
	if stop < 0 {
		stop = n + stop
	}
	stop = min(stop, n-1)
	if start > stop {
		return nil, nil
	}
	return members[start : stop+1], nil
}

func (c *LocalCache) ZScore(_ context.Context, key, member string) (float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	score, ok := c.zsets[key][member]
	if !ok {
		return 0, ErrNotFound
	}
	return score, nil
}
