package quota

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/oggyb/match-engine/internal/db"
	"github.com/oggyb/match-engine/internal/repository"
)

// Kind is the quota bucket a swipe draws from.
type Kind string

const (
	KindLike      Kind = "like"
	KindSuperLike Kind = "super_like"
)

// KindOf maps a swipe to its bucket. Dislikes draw from none.
func KindOf(isLike, isSuperLike bool) (Kind, bool) {
	switch {
	case isLike && isSuperLike:
		return KindSuperLike, true
	case isLike:
		return KindLike, true
	default:
		return "", false
	}
}

type Config struct {
	FreeLikesPerDay      int
	FreeSuperLikesPerDay int
	// Location defines the calendar day boundary.
	Location *time.Location
}

// Snapshot is a user's usage for the current day.
type Snapshot struct {
	Unlimited       bool
	LikesUsed       int
	LikesLimit      int
	SuperLikesUsed  int
	SuperLikesLimit int
	ResetsAt        time.Time
}

// Tracker enforces free tier daily limits by counting today's rows in the
// swipe ledger. There is no counter to drift: the swipe insert that follows
// an allowed check is the consumption.
type Tracker struct {
	swipes *repository.SwipeRepository
	cfg    Config
}

func NewTracker(swipes *repository.SwipeRepository, cfg Config) *Tracker {
	if cfg.FreeLikesPerDay <= 0 {
		cfg.FreeLikesPerDay = 10
	}
	if cfg.FreeSuperLikesPerDay <= 0 {
		cfg.FreeSuperLikesPerDay = 1
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	return &Tracker{swipes: swipes, cfg: cfg}
}

// CheckAndConsume reports whether userID may make one more swipe of kind.
//
// Behavior:
//   - premium and premium_plus are always allowed without touching the DB.
//   - Free users are counted on tx, the transaction that will insert the
//     swipe. The caller holds the swiper's row lock, so two racing requests
//     cannot both see the last free slot.
func (t *Tracker) CheckAndConsume(ctx context.Context, tx *gorm.DB, userID uint64, tier string, kind Kind, now time.Time) (bool, error) {
	if db.IsPaidTier(tier) {
		return true, nil
	}

	from, to := t.Day(now)
	used, err := t.swipes.WithTx(tx).CountLikes(ctx, userID, from, to, kind == KindSuperLike)
	if err != nil {
		return false, err
	}
	return used < int64(t.limit(kind)), nil
}

// Snapshot returns today's usage for userID.
func (t *Tracker) Snapshot(ctx context.Context, userID uint64, tier string, now time.Time) (Snapshot, error) {
	from, to := t.Day(now)
	snap := Snapshot{
		Unlimited:       db.IsPaidTier(tier),
		LikesLimit:      t.cfg.FreeLikesPerDay,
		SuperLikesLimit: t.cfg.FreeSuperLikesPerDay,
		ResetsAt:        to.UTC(),
	}

	likes, err := t.swipes.CountLikes(ctx, userID, from, to, false)
	if err != nil {
		return Snapshot{}, err
	}
	supers, err := t.swipes.CountLikes(ctx, userID, from, to, true)
	if err != nil {
		return Snapshot{}, err
	}
	snap.LikesUsed, snap.SuperLikesUsed = int(likes), int(supers)

	if snap.Unlimited {
		snap.LikesLimit, snap.SuperLikesLimit = 0, 0
	}
	return snap, nil
}

// Day returns the [start, end) bounds of the calendar day containing now.
func (t *Tracker) Day(now time.Time) (time.Time, time.Time) {
	local := now.In(t.cfg.Location)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, t.cfg.Location)
	return start, start.AddDate(0, 0, 1)
}

func (t *Tracker) limit(kind Kind) int {
	if kind == KindSuperLike {
		return t.cfg.FreeSuperLikesPerDay
	}
	return t.cfg.FreeLikesPerDay
}
