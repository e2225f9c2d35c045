package export

import (
	"container/list"
	"sync"

	"github.com/gogpu/glbridge/mediagl"
)

// DefaultSeedCacheSize is the number of decoded seeds a SeedCache keeps
// when created with a non-positive capacity.
const DefaultSeedCacheSize = 8

type seedKey struct {
	path string
	info mediagl.VideoInfo
}

type seedEntry struct {
	key seedKey
	pix []byte
}

// SeedCache keeps recently decoded seeds so that frames seeded from the
// same file decode it once. Least recently used seeds are evicted first.
//
// SeedCache is safe for concurrent use.
type SeedCache struct {
	mu       sync.Mutex
	capacity int
	order    *list.List // front is most recently used
	entries  map[seedKey]*list.Element

	hits, misses uint64
}

// NewSeedCache returns a cache holding up to capacity seeds.
func NewSeedCache(capacity int) *SeedCache {
	if capacity <= 0 {
		capacity = DefaultSeedCacheSize
	}
	return &SeedCache{
		capacity: capacity,
		order:    list.New(),
		entries:  make(map[seedKey]*list.Element),
	}
}

// Load returns the seed at path in info's layout, decoding it on a miss.
// The returned slice is shared; callers must not modify it.
func (c *SeedCache) Load(path string, info mediagl.VideoInfo) ([]byte, error) {
	key := seedKey{path: path, info: info}

	c.mu.Lock()
	if el, ok := c.entries[key]; ok {
		c.order.MoveToFront(el)
		c.hits++
		pix := el.Value.(*seedEntry).pix
		c.mu.Unlock()
		return pix, nil
	}
	c.misses++
	c.mu.Unlock()

	// Decode outside the lock; a concurrent miss on the same key decodes
	// twice and the later insert wins.
	pix, err := LoadSeed(path, info)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.entries[key]; ok {
		el.Value.(*seedEntry).pix = pix
		c.order.MoveToFront(el)
		return pix, nil
	}
	c.entries[key] = c.order.PushFront(&seedEntry{key: key, pix: pix})
	for c.order.Len() > c.capacity {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*seedEntry).key)
	}
	return pix, nil
}

// Len returns the number of cached seeds.
func (c *SeedCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Stats returns the hit and miss counts.
func (c *SeedCache) Stats() (hits, misses uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}
