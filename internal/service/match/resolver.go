package match

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/oggyb/match-engine/internal/db"
	svcErr "github.com/oggyb/match-engine/internal/errors"
	"github.com/oggyb/match-engine/internal/notify"
	"github.com/oggyb/match-engine/internal/repository"
	"github.com/oggyb/match-engine/internal/service/quota"
)

// SwipeCommand is one decision of SwiperID about SwipedID.
type SwipeCommand struct {
	SwiperID    uint64
	SwipedID    uint64
	IsLike      bool
	IsSuperLike bool
}

// SwipeResult reports what RecordSwipe wrote.
type SwipeResult struct {
	Created bool
	IsMatch bool
	MatchID uint64
	// Quota is the swiper's usage after this swipe; zero if it couldn't be read.
	Quota quota.Snapshot
}

// Invalidator drops a viewer's cached discovery feed.
type Invalidator interface {
	Invalidate(ctx context.Context, userID uint64)
}

type Config struct {
	TxTimeout time.Duration
}

// Resolver records swipes and turns mutual likes into matches.
type Resolver struct {
	db       *gorm.DB
	users    *repository.UserRepository
	swipes   *repository.SwipeRepository
	matches  *repository.MatchRepository
	quota    *quota.Tracker
	cache    Invalidator
	notifier notify.Notifier
	cfg      Config
	log      *slog.Logger
	now      func() time.Time
}

func NewResolver(
	database *gorm.DB,
	tracker *quota.Tracker,
	cache Invalidator,
	notifier notify.Notifier,
	cfg Config,
	log *slog.Logger,
) *Resolver {
	if cfg.TxTimeout <= 0 {
		cfg.TxTimeout = 5 * time.Second
	}
	return &Resolver{
		db:       database,
		users:    repository.NewUserRepository(database),
		swipes:   repository.NewSwipeRepository(database),
		matches:  repository.NewMatchRepository(database),
		quota:    tracker,
		cache:    cache,
		notifier: notifier,
		cfg:      cfg,
		log:      log,
		now:      time.Now,
	}
}

// RecordSwipe stores a like or dislike and detects a mutual like.
//
// Behavior:
//   - Runs in one transaction bounded by TxTimeout. Both user rows are
//     locked in id order first, so racing swipes of one pair, and of one
//     swiper, are serialized.
//   - Rejects self swipes, super-likes without a like, unknown or inactive
//     targets and blocked pairs with INVALID_INPUT.
//   - A repeated decision is ALREADY_SWIPED; free users past their daily
//     limit get QUOTA_EXCEEDED. Dislikes are never limited.
//   - On a mutual like exactly one match row exists per pair; whichever
//     transaction inserts it reports created, a later one reports the
//     existing row.
//   - After commit, both users are notified of a new match and the swiper's
//     cached feed is dropped. Failures there are logged only.
//   - Storage errors come back as UNAVAILABLE.
func (r *Resolver) RecordSwipe(ctx context.Context, cmd SwipeCommand) (SwipeResult, error) {
	if err := validate(cmd); err != nil {
		return SwipeResult{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, r.cfg.TxTimeout)
	defer cancel()

	now := r.now().UTC().Truncate(time.Millisecond)
	var (
		res      SwipeResult
		match    db.Match
		newMatch bool
		tier     string
	)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		users := r.users.WithTx(tx)
		swipes := r.swipes.WithTx(tx)

		locked, err := users.LockPair(ctx, cmd.SwiperID, cmd.SwipedID)
		if err != nil {
			return err
		}
		swiper, ok := locked[cmd.SwiperID]
		if !ok || !swiper.Active {
			return svcErr.Newf(svcErr.CodeProfileNotFound, "user %d not found", cmd.SwiperID)
		}
		if target, ok := locked[cmd.SwipedID]; !ok || !target.Active {
			return svcErr.Newf(svcErr.CodeInvalidInput, "user %d is not available", cmd.SwipedID)
		}
		tier = swiper.Tier

		blocked, err := users.IsBlocked(ctx, cmd.SwiperID, cmd.SwipedID)
		if err != nil {
			return err
		}
		if blocked {
			return svcErr.Newf(svcErr.CodeInvalidInput, "user %d is not available", cmd.SwipedID)
		}

		exists, err := swipes.Exists(ctx, cmd.SwiperID, cmd.SwipedID)
		if err != nil {
			return err
		}
		if exists {
			return svcErr.ErrAlreadySwiped
		}

		if kind, limited := quota.KindOf(cmd.IsLike, cmd.IsSuperLike); limited {
			allowed, err := r.quota.CheckAndConsume(ctx, tx, cmd.SwiperID, swiper.Tier, kind, now)
			if err != nil {
				return err
			}
			if !allowed {
				return svcErr.Newf(svcErr.CodeQuotaExceeded, "daily %s limit reached", kind)
			}
		}

		err = swipes.Insert(ctx, &db.Swipe{
			SwiperID:    cmd.SwiperID,
			SwipedID:    cmd.SwipedID,
			IsLike:      cmd.IsLike,
			IsSuperLike: cmd.IsSuperLike,
			CreatedAt:   now,
		})
		if errors.Is(err, repository.ErrDuplicateSwipe) {
			return svcErr.ErrAlreadySwiped
		}
		if err != nil {
			return err
		}
		res.Created = true

		if !cmd.IsLike {
			return nil
		}
		mutual, err := swipes.HasLiked(ctx, cmd.SwipedID, cmd.SwiperID)
		if err != nil || !mutual {
			return err
		}

		match, newMatch, err = r.matches.WithTx(tx).CreateIfAbsent(ctx, cmd.SwiperID, cmd.SwipedID, now)
		if err != nil {
			return err
		}
		res.IsMatch = true
		res.MatchID = match.ID
		return nil
	})
	if err != nil {
		return SwipeResult{}, svcErr.Transient(err, "record swipe")
	}

	// the swipe is committed; nothing below may fail the request
	after, done := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
	defer done()

	if newMatch {
		r.notifyMatch(after, match)
	}
	r.cache.Invalidate(after, cmd.SwiperID)

	if snap, err := r.quota.Snapshot(after, cmd.SwiperID, tier, now); err != nil {
		r.log.Warn("quota snapshot failed", "user_id", cmd.SwiperID, "err", err)
	} else {
		res.Quota = snap
	}

	r.log.Info("swipe recorded",
		"swiper", cmd.SwiperID,
		"swiped", cmd.SwipedID,
		"like", cmd.IsLike,
		"super_like", cmd.IsSuperLike,
		"match", res.IsMatch,
		"match_id", res.MatchID,
	)
	return res, nil
}

// Quota returns today's usage of userID.
func (r *Resolver) Quota(ctx context.Context, userID uint64) (quota.Snapshot, error) {
	if userID == 0 {
		return quota.Snapshot{}, svcErr.New(svcErr.CodeInvalidInput, "user id required")
	}
	u, err := r.users.GetUser(ctx, userID)
	if errors.Is(err, repository.ErrUserNotFound) {
		return quota.Snapshot{}, svcErr.Newf(svcErr.CodeProfileNotFound, "user %d not found", userID)
	}
	if err != nil {
		return quota.Snapshot{}, svcErr.Transient(err, "load user")
	}
	snap, err := r.quota.Snapshot(ctx, userID, u.Tier, r.now())
	if err != nil {
		return quota.Snapshot{}, svcErr.Transient(err, "read quota")
	}
	return snap, nil
}

func (r *Resolver) notifyMatch(ctx context.Context, m db.Match) {
	for _, userID := range []uint64{m.UserLowID, m.UserHighID} {
		payload := notify.MatchCreated{
			MatchID:     m.ID,
			OtherUserID: m.Other(userID),
			CreatedAt:   m.CreatedAt,
		}
		if err := r.notifier.Notify(ctx, userID, notify.KindMatchCreated, payload); err != nil {
			r.log.Warn("match notification failed", "match_id", m.ID, "user_id", userID, "err", err)
		}
	}
}

func validate(cmd SwipeCommand) error {
	switch {
	case cmd.SwiperID == 0 || cmd.SwipedID == 0:
		return svcErr.New(svcErr.CodeInvalidInput, "swiper and swiped ids are required")
	case cmd.SwiperID == cmd.SwipedID:
		return svcErr.New(svcErr.CodeInvalidInput, "cannot swipe on yourself")
	case cmd.IsSuperLike && !cmd.IsLike:
		return svcErr.New(svcErr.CodeInvalidInput, "a super-like must be a like")
	}
	return nil
}
