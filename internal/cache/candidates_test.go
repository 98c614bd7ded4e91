package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/match-engine/internal/cache"
	"github.com/oggyb/match-engine/internal/logger"
	"github.com/oggyb/match-engine/internal/service/ranker"
	"github.com/oggyb/match-engine/internal/testutil"
)

func sampleEntry() cache.Entry {
	d := 2.5
	return cache.Entry{
		Seed:      42,
		CreatedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Complete:  true,
		Candidates: []ranker.Candidate{
			{UserID: 9, Username: "user9", Tier: "premium", ProfileCompletion: 90, DistanceKM: &d},
			{UserID: 3, Username: "user3", Tier: "free", ProfileCompletion: 40},
		},
	}
}

func TestCandidateCache_PutGet(t *testing.T) {
	ctx := context.Background()
	mr, client := testutil.NewRedis(t)
	c := cache.NewCandidateCache(client, logger.Discard())

	_, hit := c.Get(ctx, 1)
	assert.False(t, hit)

	c.Put(ctx, 1, sampleEntry(), time.Minute)
	assert.True(t, mr.Exists(cache.KeyForCandidates(1)))

	got, hit := c.Get(ctx, 1)
	require.True(t, hit)
	assert.Equal(t, int64(42), got.Seed)
	assert.True(t, got.Complete)
	require.Len(t, got.Candidates, 2)
	assert.Equal(t, uint64(9), got.Candidates[0].UserID)
	require.NotNil(t, got.Candidates[0].DistanceKM)
	assert.Nil(t, got.Candidates[1].DistanceKM)
	assert.True(t, got.CreatedAt.Equal(sampleEntry().CreatedAt))
}

func TestCandidateCache_Expires(t *testing.T) {
	ctx := context.Background()
	mr, client := testutil.NewRedis(t)
	c := cache.NewCandidateCache(client, logger.Discard())

	c.Put(ctx, 1, sampleEntry(), 0)
	assert.Equal(t, cache.DefaultTTL, mr.TTL(cache.KeyForCandidates(1)))

	mr.FastForward(59 * time.Second)
	_, hit := c.Get(ctx, 1)
	assert.True(t, hit)

	mr.FastForward(2 * time.Second)
	_, hit = c.Get(ctx, 1)
	assert.False(t, hit)
}

func TestCandidateCache_Invalidate(t *testing.T) {
	ctx := context.Background()
	_, client := testutil.NewRedis(t)
	c := cache.NewCandidateCache(client, logger.Discard())

	c.Put(ctx, 1, sampleEntry(), time.Minute)
	c.Put(ctx, 2, sampleEntry(), time.Minute)
	c.Invalidate(ctx, 1)

	_, hit := c.Get(ctx, 1)
	assert.False(t, hit)
	_, hit = c.Get(ctx, 2)
	assert.True(t, hit, "other users keep their entry")
}

func TestCandidateCache_CorruptEntryIsMiss(t *testing.T) {
	ctx := context.Background()
	mr, client := testutil.NewRedis(t)
	c := cache.NewCandidateCache(client, logger.Discard())

	require.NoError(t, mr.Set(cache.KeyForCandidates(1), "{not json"))
	_, hit := c.Get(ctx, 1)
	assert.False(t, hit)
	assert.False(t, mr.Exists(cache.KeyForCandidates(1)))
}

func TestCandidateCache_RedisDown(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	mr, client := testutil.NewRedis(t)
	c := cache.NewCandidateCache(client, logger.Discard())

	mr.Close()

	assert.NotPanics(t, func() {
		c.Put(ctx, 1, sampleEntry(), time.Minute)
		c.Invalidate(ctx, 1)
	})
	_, hit := c.Get(ctx, 1)
	assert.False(t, hit)
}
