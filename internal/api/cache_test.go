package api

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zkorum/agora/internal/engine"
	"github.com/zkorum/agora/internal/result"
	"github.com/zkorum/agora/internal/scaling"
)

func TestNewCacheKey(t *testing.T) {
	votes := []engine.VoteRecord{
		{ParticipantID: engine.IntID(1), StatementID: engine.IntID(1), Vote: 1},
		{ParticipantID: engine.StringID("p"), StatementID: engine.IntID(2), Vote: 0},
	}

	th := scaling.DefaultThresholds()
	base, err := NewCacheKey(7, votes, 4, 6, th)
	require.NoError(t, err)

	again, err := NewCacheKey(7, votes, 4, 6, th)
	require.NoError(t, err)
	assert.Equal(t, base, again, "same inputs must hash the same")

	variants := map[string]func() (CacheKey, error){
		"conversation": func() (CacheKey, error) { return NewCacheKey(8, votes, 4, 6, th) },
		"threshold":    func() (CacheKey, error) { return NewCacheKey(7, votes, 5, 6, th) },
		"groups":       func() (CacheKey, error) { return NewCacheKey(7, votes, 4, 5, th) },
		"votes":        func() (CacheKey, error) { return NewCacheKey(7, votes[:1], 4, 6, th) },
		"thresholds": func() (CacheKey, error) {
			changed := th
			changed.MediumImbalance = 0.7
			return NewCacheKey(7, votes, 4, 6, changed)
		},
		"id type": func() (CacheKey, error) {
			changed := append([]engine.VoteRecord(nil), votes...)
			changed[0].ParticipantID = engine.StringID("1")
			return NewCacheKey(7, changed, 4, 6, th)
		},
	}
	for name, mk := range variants {
		t.Run(name, func(t *testing.T) {
			k, err := mk()
			require.NoError(t, err)
			assert.NotEqual(t, base, k)
		})
	}
}

func TestResultCache(t *testing.T) {
	c := NewResultCache(time.Minute, 2)
	defer c.Close()

	k1 := CacheKey{ConversationID: 1, Digest: 1}
	k2 := CacheKey{ConversationID: 2, Digest: 2}
	k3 := CacheKey{ConversationID: 3, Digest: 3}

	_, ok := c.Get(k1)
	assert.False(t, ok)

	res := result.Empty()
	c.Put(k1, res)
	got, ok := c.Get(k1)
	require.True(t, ok)
	assert.Same(t, res, got)

	c.Put(k2, result.Empty())
	c.Put(k3, result.Empty())
	assert.Equal(t, 2, c.Len(), "capacity must bound the cache")
}

func TestResultCache_Purge(t *testing.T) {
	c := NewResultCache(time.Minute, 4)
	defer c.Close()

	k := CacheKey{ConversationID: 1, Digest: 1}
	c.Put(k, result.Empty())
	c.Put(CacheKey{ConversationID: 2, Digest: 2}, result.Empty())
	require.Equal(t, 2, c.Len())

	c.Purge()

	assert.Zero(t, c.Len())
	_, ok := c.Get(k)
	assert.False(t, ok)
}

func TestResultCache_Expiry(t *testing.T) {
	c := NewResultCache(20*time.Millisecond, 4)
	defer c.Close()

	k := CacheKey{ConversationID: 1, Digest: 1}
	c.Put(k, result.Empty())

	assert.Eventually(t, func() bool {
		_, ok := c.Get(k)
		return !ok
	}, time.Second, 10*time.Millisecond)
}

func TestResultCache_CloseTwice(t *testing.T) {
	c := NewResultCache(time.Minute, 1)
	c.Close()
	c.Close()
}
