package light

import (
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common"
	lru "github.com/hashicorp/golang-lru"
)

// DefaultKeyCacheSize is the number of aggregate keys kept when no size is
// given.
const DefaultKeyCacheSize = 256

// keyCacheKey identifies a signer subset of one exact validator set. The set
// hash covers keys and powers, so two sets sharing an epoch number never
// share entries.
type keyCacheKey struct {
	set     common.Hash
	signers string
}

// KeyCacheStats tracks operational statistics of the key cache.
type KeyCacheStats struct {
	Hits   uint64
	Misses uint64
	Len    int
}

// HitRate returns the cache hit rate as a fraction in [0, 1].
// Returns 0 if no lookups have been performed.
func (s KeyCacheStats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// KeyCache is an LRU cache of aggregated signer public keys. Committees tend
// to sign with the same subset update after update, so the G2 point sum is
// usually reusable.
type KeyCache struct {
	cache  *lru.Cache
	hits   atomic.Uint64
	misses atomic.Uint64
}

// NewKeyCache creates a cache holding up to size aggregate keys.
func NewKeyCache(size int) *KeyCache {
	if size <= 0 {
		size = DefaultKeyCacheSize
	}
	// lru.New only fails on a non-positive size.
	cache, _ := lru.New(size)
	return &KeyCache{cache: cache}
}

func (kc *KeyCache) get(k keyCacheKey) ([]byte, bool) {
	v, ok := kc.cache.Get(k)
	if !ok {
		kc.misses.Add(1)
		return nil, false
	}
	kc.hits.Add(1)
	return v.([]byte), true
}

func (kc *KeyCache) add(k keyCacheKey, aggKey []byte) {
	kc.cache.Add(k, common.CopyBytes(aggKey))
}

// Stats returns a snapshot of the cache statistics.
func (kc *KeyCache) Stats() KeyCacheStats {
	return KeyCacheStats{
		Hits:   kc.hits.Load(),
		Misses: kc.misses.Load(),
		Len:    kc.cache.Len(),
	}
}

// Purge drops every cached key.
func (kc *KeyCache) Purge() {
	kc.cache.Purge()
}
