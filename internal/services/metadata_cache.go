package services

import (
	"container/list"
	"sync"

	"github.com/deploymenttheory/go-squashfs/internal/interfaces"
)

// MetadataBlockCache is a bounded LRU of decompressed metadata blocks,
// keyed by the absolute archive offset of each block's 2-byte header.
// Blocks are read-only after insertion; bounding the cache is a
// correctness requirement under the boot-time memory budget, not just
// a performance one.
//
// The cache is the single piece of shared mutable state in a mounted
// archive, so its lock is the whole concurrency boundary.
type MetadataBlockCache struct {
	blocks map[uint64]*list.Element
	order  *list.List // front = most recently used
	cap    int

	hits      int64
	misses    int64
	evictions int64

	mu sync.Mutex
}

// cachedBlock holds one decompressed metadata block and the absolute
// offset of the next chained block header.
type cachedBlock struct {
	offset uint64
	data   []byte
	next   uint64
}

// DefaultMetadataCacheCapacity holds 64 blocks of at most 8 KiB each,
// 512 KiB worst case.
const DefaultMetadataCacheCapacity = 64

// NewMetadataBlockCache creates a cache holding at most capacity
// decompressed metadata blocks.
func NewMetadataBlockCache(capacity int) *MetadataBlockCache {
	if capacity <= 0 {
		capacity = DefaultMetadataCacheCapacity
	}
	return &MetadataBlockCache{
		blocks: make(map[uint64]*list.Element),
		order:  list.New(),
		cap:    capacity,
	}
}

// Get returns a cached block and its next-block offset, marking it most
// recently used.
func (c *MetadataBlockCache) Get(offset uint64) ([]byte, uint64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, exists := c.blocks[offset]; exists {
		c.order.MoveToFront(elem)
		c.hits++
		block := elem.Value.(*cachedBlock)
		return block.data, block.next, true
	}

	c.misses++
	return nil, 0, false
}

// Put stores a decompressed block, evicting the least recently used
// block when the cache is full.
func (c *MetadataBlockCache) Put(offset uint64, data []byte, next uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, exists := c.blocks[offset]; exists {
		c.order.MoveToFront(elem)
		return
	}

	elem := c.order.PushFront(&cachedBlock{
		offset: offset,
		data:   data,
		next:   next,
	})
	c.blocks[offset] = elem

	for len(c.blocks) > c.cap {
		c.evictOldest()
	}
}

// evictOldest removes the least recently used block.
func (c *MetadataBlockCache) evictOldest() {
	elem := c.order.Back()
	if elem == nil {
		return
	}

	block := elem.Value.(*cachedBlock)
	delete(c.blocks, block.offset)
	c.order.Remove(elem)
	c.evictions++
}

// Len returns the number of resident blocks.
func (c *MetadataBlockCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.blocks)
}

// Capacity returns the maximum number of resident blocks.
func (c *MetadataBlockCache) Capacity() int {
	return c.cap
}

// Contains reports whether a block is resident without touching its
// LRU position.
func (c *MetadataBlockCache) Contains(offset uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, exists := c.blocks[offset]
	return exists
}

// CacheStats summarizes cache behavior for diagnostics.
type CacheStats struct {
	Resident  int
	Capacity  int
	Hits      int64
	Misses    int64
	Evictions int64
	HitRate   float64
}

// Stats returns a snapshot of cache statistics.
func (c *MetadataBlockCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := CacheStats{
		Resident:  len(c.blocks),
		Capacity:  c.cap,
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
	}
	if total := c.hits + c.misses; total > 0 {
		stats.HitRate = float64(c.hits) / float64(total)
	}
	return stats
}

var _ interfaces.MetadataCache = (*MetadataBlockCache)(nil)
