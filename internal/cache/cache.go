// Package cache is an in-process TTL store keyed by symbol, data kind and
// request parameters. Staleness is checked lazily on read; there is no
// eviction goroutine.
package cache

import (
	"hash/fnv"
	"strings"
	"sync"
	"time"
)

const shardCount = 16

type entry struct {
	value     any
	createdAt time.Time
	ttl       time.Duration
}

type shard struct {
	mu    sync.RWMutex
	items map[string]entry
}

// Store shards its keyspace so that lookups for unrelated symbols do not
// contend on one lock.
type Store struct {
	shards [shardCount]*shard
	now    func() time.Time
}

func New() *Store {
	s := &Store{now: time.Now}
	for i := range s.shards {
		s.shards[i] = &shard{items: make(map[string]entry)}
	}
	return s
}

// Key derives a deterministic cache key from the symbol (uppercased), the
// data kind and any extra parameters.
func Key(symbol, kind string, params ...string) string {
	parts := append([]string{strings.ToUpper(strings.TrimSpace(symbol)), kind}, params...)
	return strings.Join(parts, "|")
}

func (s *Store) shardFor(key string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return s.shards[h.Sum32()%shardCount]
}

// Get returns the fresh value for key. An entry older than its TTL is
// treated as absent and removed.
func (s *Store) Get(key string) (any, bool) {
	sh := s.shardFor(key)
	sh.mu.RLock()
	e, ok := sh.items[key]
	sh.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if s.now().Sub(e.createdAt) > e.ttl {
		sh.mu.Lock()
		// Re-check under the write lock; a writer may have refreshed it.
		if cur, ok := sh.items[key]; ok && cur.createdAt.Equal(e.createdAt) {
			delete(sh.items, key)
		}
		sh.mu.Unlock()
		return nil, false
	}
	return e.value, true
}

// Put stores value under key. Concurrent writers to the same key: last
// write wins.
func (s *Store) Put(key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	sh := s.shardFor(key)
	sh.mu.Lock()
	sh.items[key] = entry{value: value, createdAt: s.now(), ttl: ttl}
	sh.mu.Unlock()
}

// Len reports the number of entries currently held, stale ones included.
func (s *Store) Len() int {
	n := 0
	for _, sh := range s.shards {
		sh.mu.RLock()
		n += len(sh.items)
		sh.mu.RUnlock()
	}
	return n
}
