package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/oggyb/match-engine/internal/db"
)

// ErrUserNotFound is returned when a user or preference row is missing.
var ErrUserNotFound = errors.New("user not found")

// UserRepository reads the account-owned tables: users, preferences, blocks.
// It implements the UserDirectory and BlockList collaborators.
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new repository bound to the given DB connection.
func NewUserRepository(database *gorm.DB) *UserRepository {
	return &UserRepository{db: database}
}

// WithTx returns a copy of the repository that runs on tx.
func (r *UserRepository) WithTx(tx *gorm.DB) *UserRepository {
	return &UserRepository{db: tx}
}

// GetUser loads a user by id.
func (r *UserRepository) GetUser(ctx context.Context, id uint64) (db.User, error) {
	var u db.User
	err := r.db.WithContext(ctx).Take(&u, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return db.User{}, ErrUserNotFound
	}
	if err != nil {
		return db.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// LockPair loads two users ordered by id, holding row locks until the
// surrounding transaction ends.
//
// Behavior:
//   - Locks are always taken low id first, so two transactions on the same
//     pair (in whichever direction) queue instead of deadlocking.
//   - Every swipe of one swiper locks the swiper row, which serializes the
//     quota count of concurrent swipes by the same user.
//   - Missing users are simply absent from the result map.
func (r *UserRepository) LockPair(ctx context.Context, a, b uint64) (map[uint64]db.User, error) {
	low, high := db.OrderedPair(a, b)
	var users []db.User
	err := forUpdate(r.db.WithContext(ctx)).
		Where("id IN ?", []uint64{low, high}).
		Order("id ASC").
		Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("lock users: %w", err)
	}

	out := make(map[uint64]db.User, len(users))
	for _, u := range users {
		out[u.ID] = u
	}
	return out, nil
}

// GetPreference loads the discovery filters of a user.
func (r *UserRepository) GetPreference(ctx context.Context, userID uint64) (db.Preference, error) {
	var p db.Preference
	err := r.db.WithContext(ctx).Take(&p, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return db.Preference{}, ErrUserNotFound
	}
	if err != nil {
		return db.Preference{}, fmt.Errorf("get preference: %w", err)
	}
	return p, nil
}

// IsBlocked reports whether either user blocked the other.
func (r *UserRepository) IsBlocked(ctx context.Context, a, b uint64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.Block{}).
		Where("(blocker_id = ? AND blocked_id = ?) OR (blocker_id = ? AND blocked_id = ?)", a, b, b, a).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("check block: %w", err)
	}
	return count > 0, nil
}
