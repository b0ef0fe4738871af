// Package cache implements the sharded, direct-mapped translation cache
// of spec.md §4.10 (C11): a fixed-size table keyed by hash(model_id,
// token_ids), partitioned into per-shard locks, overwrite-on-collision,
// with no eviction policy beyond that overwrite.
//
// Grounded on the gittool-Mimir pack sibling's query-result cache
// sharding concept (nornicdb/pkg/query_cache.go: fixed slot count,
// per-shard mutex, hash-derived slot index) adapted from an LRU-style
// cache to the spec's intentionally simpler direct-mapped,
// no-eviction design; xxhash replaces that sibling's hash function as
// the key derivation, per the same non-cryptographic-speed rationale.
package cache

import (
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/slimtgo/slimt/pkg/search"
)

// shardCount partitions the record table for lock granularity (spec.md
// §4.10: "record r uses lock r mod M").
const shardCount = 64

type entry struct {
	key   uint64
	valid bool
	value search.History
}

// Cache is a fixed-size direct-mapped key->history table.
type Cache struct {
	records []entry
	locks   []sync.Mutex
	n       uint64
}

// New allocates a cache with n slots. n == 0 disables the cache (spec.md
// §6: "cache_size: Cache slots; 0 disables the cache"); callers should
// check Enabled() rather than call Find/Store on a disabled cache.
func New(n int) *Cache {
	if n <= 0 {
		return &Cache{}
	}
	return &Cache{
		records: make([]entry, n),
		locks:   make([]sync.Mutex, shardCount),
		n:       uint64(n),
	}
}

// Enabled reports whether this cache has any slots.
func (c *Cache) Enabled() bool { return c.n > 0 }

// Key derives the cache key for a (model id, token ids) pair (spec.md
// §3: "key=hash(model_id, source_words)").
func Key(modelID string, words []uint32) uint64 {
	h := xxhash.New()
	h.WriteString(modelID)
	buf := make([]byte, 4)
	for _, w := range words {
		buf[0] = byte(w)
		buf[1] = byte(w >> 8)
		buf[2] = byte(w >> 16)
		buf[3] = byte(w >> 24)
		h.Write(buf)
	}
	return h.Sum64()
}

func (c *Cache) shard(slot uint64) *sync.Mutex { return &c.locks[slot%shardCount] }

// Find returns the cached History for key, or (zero, false) on miss.
func (c *Cache) Find(key uint64) (search.History, bool) {
	if !c.Enabled() {
		return search.History{}, false
	}
	slot := key % c.n
	mu := c.shard(slot)
	mu.Lock()
	defer mu.Unlock()
	r := c.records[slot]
	if r.valid && r.key == key {
		return r.value, true
	}
	return search.History{}, false
}

// Store overwrites the slot for key unconditionally (spec.md §4.10: "no
// eviction policy beyond overwrite-on-collision").
func (c *Cache) Store(key uint64, h search.History) {
	if !c.Enabled() {
		return
	}
	slot := key % c.n
	mu := c.shard(slot)
	mu.Lock()
	defer mu.Unlock()
	c.records[slot] = entry{key: key, valid: true, value: h}
}
