package api

import (
	"encoding/binary"
	"encoding/json"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/jellydator/ttlcache/v3"

	"github.com/zkorum/agora/internal/engine"
	"github.com/zkorum/agora/internal/result"
	"github.com/zkorum/agora/internal/scaling"
)

// CacheKey identifies one solve's inputs.
type CacheKey struct {
	ConversationID int64
	Digest         uint64
}

// NewCacheKey hashes the votes, solve bounds and scaling thresholds of a
// conversation. A policy change yields new keys for the same votes.
func NewCacheKey(conversationID int64, votes []engine.VoteRecord, minVoteThreshold, maxGroupCount int, thresholds scaling.Thresholds) (CacheKey, error) {
	h := xxhash.New()
	var bounds [16]byte
	binary.LittleEndian.PutUint64(bounds[:8], uint64(minVoteThreshold))
	binary.LittleEndian.PutUint64(bounds[8:], uint64(maxGroupCount))
	_, _ = h.Write(bounds[:])
	enc := json.NewEncoder(h)
	if err := enc.Encode(thresholds); err != nil {
		return CacheKey{}, err
	}
	if err := enc.Encode(votes); err != nil {
		return CacheKey{}, err
	}
	return CacheKey{ConversationID: conversationID, Digest: h.Sum64()}, nil
}

// ResultCache holds recent solve results for a fixed time.
// Cached results are shared and must not be modified.
type ResultCache struct {
	items     *ttlcache.Cache[CacheKey, *result.CanonicalResult]
	closeOnce sync.Once
}

// NewResultCache starts a cache holding up to capacity results for ttl.
// Call Close to stop its expiry goroutine.
func NewResultCache(ttl time.Duration, capacity uint64) *ResultCache {
	items := ttlcache.New(
		ttlcache.WithTTL[CacheKey, *result.CanonicalResult](ttl),
		ttlcache.WithCapacity[CacheKey, *result.CanonicalResult](capacity),
	)
	go items.Start()
	return &ResultCache{items: items}
}

// Get returns the cached result for key, if it has not expired.
func (c *ResultCache) Get(key CacheKey) (*result.CanonicalResult, bool) {
	item := c.items.Get(key)
	if item == nil {
		return nil, false
	}
	return item.Value(), true
}

// Put caches res under key with the default TTL.
func (c *ResultCache) Put(key CacheKey, res *result.CanonicalResult) {
	c.items.Set(key, res, ttlcache.DefaultTTL)
}

// Len returns the number of cached results.
func (c *ResultCache) Len() int {
	return c.items.Len()
}

// Purge drops every cached result.
func (c *ResultCache) Purge() {
	c.items.DeleteAll()
}

// Close stops the expiry goroutine. It is safe to call more than once.
func (c *ResultCache) Close() {
	c.closeOnce.Do(c.items.Stop)
}
