package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/oggyb/match-engine/internal/service/ranker"
)

// DefaultTTL is how long a ranked window stays valid.
const DefaultTTL = 60 * time.Second

// Entry is a ranked window of candidates for one viewer.
type Entry struct {
	// Seed reproduces the ranking for pages past the window.
	Seed      int64     `json:"seed"`
	CreatedAt time.Time `json:"created_at"`
	// Complete is true when Candidates holds the whole ranked list.
	Complete   bool               `json:"complete"`
	Candidates []ranker.Candidate `json:"candidates"`
}

// CandidateCache stores ranked discovery results per user.
// Every Redis failure is logged and reported as a miss or a no-op.
type CandidateCache struct {
	client redis.Cmdable
	log    *slog.Logger
}

func NewCandidateCache(client redis.Cmdable, log *slog.Logger) *CandidateCache {
	return &CandidateCache{client: client, log: log}
}

// KeyForCandidates generates the Redis key for a user's ranked window.
func KeyForCandidates(userID uint64) string {
	return fmt.Sprintf("discover:candidates:%d", userID)
}

// Get returns the cached entry for userID, if any.
func (c *CandidateCache) Get(ctx context.Context, userID uint64) (Entry, bool) {
	raw, err := c.client.Get(ctx, KeyForCandidates(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Entry{}, false
	} else if err != nil {
		c.log.Warn("candidate cache get failed", "user_id", userID, "err", err)
		return Entry{}, false
	}

	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		c.log.Warn("candidate cache entry corrupt", "user_id", userID, "err", err)
		_ = c.client.Del(ctx, KeyForCandidates(userID)).Err()
		return Entry{}, false
	}
	return e, true
}

// Put stores e for userID. A non-positive ttl falls back to DefaultTTL.
func (c *CandidateCache) Put(ctx context.Context, userID uint64, e Entry, ttl time.Duration) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	raw, err := json.Marshal(e)
	if err != nil {
		c.log.Warn("candidate cache encode failed", "user_id", userID, "err", err)
		return
	}
	if err := c.client.Set(ctx, KeyForCandidates(userID), raw, ttl).Err(); err != nil {
		c.log.Warn("candidate cache put failed", "user_id", userID, "err", err)
	}
}

// Invalidate drops the cached entry for userID.
func (c *CandidateCache) Invalidate(ctx context.Context, userID uint64) {
	if err := c.client.Del(ctx, KeyForCandidates(userID)).Err(); err != nil {
		c.log.Warn("candidate cache invalidate failed", "user_id", userID, "err", err)
	}
}
