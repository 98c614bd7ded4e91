package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/oggyb/match-engine/internal/db"
)

// CandidateQuery holds the structured eligibility filters of a discovery
// request. Distance is not part of it: it is computed after the fetch
// because not every profile has coordinates.
type CandidateQuery struct {
	ViewerID uint64
	// Gender is empty for "everyone".
	Gender string
	// BornAfter (exclusive) and BornOnOrBefore bound the birthdate so that
	// age lands in [age_min, age_max].
	BornAfter      time.Time
	BornOnOrBefore time.Time
	Exclude        []uint64
	// Near, when set, drops located users outside the box. Users without
	// coordinates always pass.
	Near *GeoBox
	// PoolLimit caps how many rows are pulled for in-memory ranking.
	PoolLimit int
}

// GeoBox is a lat/lon rectangle. OpenLon skips the longitude bounds.
type GeoBox struct {
	MinLat, MaxLat float64
	MinLon, MaxLon float64
	OpenLon        bool
}

// rankOrder mirrors the ranker's keys minus distance and the random tie-break.
const rankOrder = "CASE WHEN u.tier IN ('" + db.TierPremium + "', '" + db.TierPremiumPlus + "') THEN 0 ELSE 1 END, " +
	"u.profile_completion DESC, u.last_active_at DESC, u.id ASC"

// CandidateRepository runs the eligibility part of discovery.
type CandidateRepository struct {
	db *gorm.DB
}

// NewCandidateRepository creates a new repository bound to the given DB connection.
func NewCandidateRepository(database *gorm.DB) *CandidateRepository {
	return &CandidateRepository{db: database}
}

// ListEligible returns active users the viewer may be shown.
//
// Behavior:
//   - Excludes the viewer, anyone the viewer already swiped on, and anyone
//     blocked in either direction.
//   - Applies gender and birthdate (age) bounds, and the Near box when set.
//   - Pre-orders by the distance-independent ranking keys so the pool cap
//     drops the lowest ranked rows first.
func (r *CandidateRepository) ListEligible(ctx context.Context, q CandidateQuery) ([]db.User, error) {
	if q.PoolLimit <= 0 {
		q.PoolLimit = 1000
	}

	query := r.db.WithContext(ctx).
		Table("users u").
		Where("u.active = ? AND u.id <> ?", true, q.ViewerID).
		Where("u.birthdate > ? AND u.birthdate <= ?", q.BornAfter.UTC(), q.BornOnOrBefore.UTC()).
		Where(`
			NOT EXISTS (
				SELECT 1 FROM swipes s
				WHERE s.swiper_id = ?
				  AND s.swiped_id = u.id
			)`, q.ViewerID).
		Where(`
			NOT EXISTS (
				SELECT 1 FROM blocks b
				WHERE (b.blocker_id = ? AND b.blocked_id = u.id)
				   OR (b.blocker_id = u.id AND b.blocked_id = ?)
			)`, q.ViewerID, q.ViewerID)

	if q.Gender != "" {
		query = query.Where("u.gender = ?", q.Gender)
	}
	if b := q.Near; b != nil {
		if b.OpenLon {
			query = query.Where("(u.latitude IS NULL OR u.longitude IS NULL OR u.latitude BETWEEN ? AND ?)",
				b.MinLat, b.MaxLat)
		} else {
			query = query.Where("(u.latitude IS NULL OR u.longitude IS NULL OR (u.latitude BETWEEN ? AND ? AND u.longitude BETWEEN ? AND ?))",
				b.MinLat, b.MaxLat, b.MinLon, b.MaxLon)
		}
	}
	if len(q.Exclude) > 0 {
		query = query.Where("u.id NOT IN ?", q.Exclude)
	}

	var users []db.User
	err := query.
		Order(rankOrder).
		Limit(q.PoolLimit).
		Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("list eligible candidates: %w", err)
	}
	return users, nil
}
