package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/oggyb/match-engine/internal/db"
)

// ErrDuplicateSwipe is returned when the (swiper, swiped) pair already has a row.
var ErrDuplicateSwipe = errors.New("swipe already exists")

// SwipeRepository is the append-only swipe ledger. It is the source of truth
// for "already swiped", daily quota counts and mutual like detection.
type SwipeRepository struct {
	db *gorm.DB
}

// NewSwipeRepository creates a new repository bound to the given DB connection.
func NewSwipeRepository(database *gorm.DB) *SwipeRepository {
	return &SwipeRepository{db: database}
}

// WithTx returns a copy of the repository that runs on tx.
func (r *SwipeRepository) WithTx(tx *gorm.DB) *SwipeRepository {
	return &SwipeRepository{db: tx}
}

// Insert appends a swipe. The unique (swiper_id, swiped_id) index turns a
// racing duplicate into ErrDuplicateSwipe.
func (r *SwipeRepository) Insert(ctx context.Context, s *db.Swipe) error {
	err := r.db.WithContext(ctx).Create(s).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateSwipe
	}
	if err != nil {
		return fmt.Errorf("insert swipe: %w", err)
	}
	return nil
}

// Exists reports whether swiper already decided on swiped.
func (r *SwipeRepository) Exists(ctx context.Context, swiperID, swipedID uint64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.Swipe{}).
		Where("swiper_id = ? AND swiped_id = ?", swiperID, swipedID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("check swipe exists: %w", err)
	}
	return count > 0, nil
}

// HasLiked checks whether actor has liked recipient.
//
// Behavior:
//   - Reads with a shared lock (MySQL) so a like committed by a concurrent
//     transaction after ours started is still visible.
//   - Used for mutual like detection after inserting the forward swipe.
func (r *SwipeRepository) HasLiked(ctx context.Context, actorID, recipientID uint64) (bool, error) {
	var rows []db.Swipe
	err := forShare(r.db.WithContext(ctx)).
		Where("swiper_id = ? AND swiped_id = ? AND is_like = ?", actorID, recipientID, true).
		Limit(1).
		Find(&rows).Error
	if err != nil {
		return false, fmt.Errorf("lookup reciprocal like: %w", err)
	}
	return len(rows) > 0, nil
}

// CountLikes counts the likes swiper made in [from, to).
// superLike selects super-likes instead of plain likes; dislikes never count.
//
// Example:
//
//	repo.CountLikes(ctx, 3, dayStart, dayEnd, false) // -> 10
func (r *SwipeRepository) CountLikes(
	ctx context.Context,
	swiperID uint64,
	from, to time.Time,
	superLike bool,
) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.Swipe{}).
		Where("swiper_id = ? AND is_like = ? AND is_super_like = ?", swiperID, true, superLike).
		Where("created_at >= ? AND created_at < ?", from.UTC(), to.UTC()).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count likes: %w", err)
	}
	return count, nil
}

// SwipedSince returns the ids swiper decided on at or after since.
func (r *SwipeRepository) SwipedSince(ctx context.Context, swiperID uint64, since time.Time) ([]uint64, error) {
	var ids []uint64
	err := r.db.WithContext(ctx).
		Model(&db.Swipe{}).
		Where("swiper_id = ? AND created_at >= ?", swiperID, since.UTC()).
		Pluck("swiped_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("list recent swipes: %w", err)
	}
	return ids, nil
}
