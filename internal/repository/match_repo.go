package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oggyb/match-engine/internal/db"
)

// MatchRepository stores mutual likes, one row per unordered user pair.
type MatchRepository struct {
	db *gorm.DB
}

// NewMatchRepository creates a new repository bound to the given DB connection.
func NewMatchRepository(database *gorm.DB) *MatchRepository {
	return &MatchRepository{db: database}
}

// WithTx returns a copy of the repository that runs on tx.
func (r *MatchRepository) WithTx(tx *gorm.DB) *MatchRepository {
	return &MatchRepository{db: tx}
}

// CreateIfAbsent inserts the match for (a, b) unless one already exists.
//
// Behavior:
//   - The pair is normalized to (min, max) before insert.
//   - INSERT ... ON CONFLICT DO NOTHING against ux_matches_pair, so two
//     racing inserts leave exactly one row.
//   - created is false when the row was already there; the existing match
//     is returned instead of an error.
func (r *MatchRepository) CreateIfAbsent(ctx context.Context, a, b uint64, now time.Time) (db.Match, bool, error) {
	low, high := db.OrderedPair(a, b)
	m := db.Match{
		UserLowID:  low,
		UserHighID: high,
		CreatedAt:  now,
		IsActive:   true,
	}

	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_low_id"}, {Name: "user_high_id"}},
			DoNothing: true,
		}).
		Create(&m)
	if res.Error != nil {
		return db.Match{}, false, fmt.Errorf("create match: %w", res.Error)
	}
	if res.RowsAffected > 0 && m.ID > 0 {
		return m, true, nil
	}

	existing, err := r.FindByPair(ctx, low, high)
	if err != nil {
		return db.Match{}, false, err
	}
	return existing, false, nil
}

// FindByPair loads the match of two users in either order.
func (r *MatchRepository) FindByPair(ctx context.Context, a, b uint64) (db.Match, error) {
	low, high := db.OrderedPair(a, b)
	var m db.Match
	err := r.db.WithContext(ctx).
		Where("user_low_id = ? AND user_high_id = ?", low, high).
		Take(&m).Error
	if err != nil {
		return db.Match{}, fmt.Errorf("find match: %w", err)
	}
	return m, nil
}

// CountPair returns how many match rows exist for the unordered pair.
func (r *MatchRepository) CountPair(ctx context.Context, a, b uint64) (int64, error) {
	low, high := db.OrderedPair(a, b)
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.Match{}).
		Where("user_low_id = ? AND user_high_id = ?", low, high).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count matches: %w", err)
	}
	return count, nil
}
