package db

import (
	"time"
)

// Subscription tiers. Anything other than TierFree is unlimited for quotas
// and ranks ahead of free profiles in discovery.
const (
	TierFree        = "free"
	TierPremium     = "premium"
	TierPremiumPlus = "premium_plus"
)

// Gender values and the show_me wildcard.
const (
	GenderMale     = "male"
	GenderFemale   = "female"
	ShowMeEveryone = "everyone"
)

// User is owned by the account subsystem; the match engine only reads it.
type User struct {
	ID                uint64 `gorm:"primaryKey;autoIncrement"`
	Username          string `gorm:"uniqueIndex;size:64;not null"`
	Email             string `gorm:"uniqueIndex;size:128;not null"`
	PasswordHash      string `gorm:"size:255;not null"`
	Active            bool   `gorm:"default:true;index:idx_users_active_gender,priority:1"`
	Gender            string `gorm:"size:16;not null;index:idx_users_active_gender,priority:2"`
	Birthdate         time.Time
	Tier              string `gorm:"size:16;not null;default:free"`
	Latitude          *float64
	Longitude         *float64
	ProfileCompletion int `gorm:"not null;default:0"`
	LastActiveAt      time.Time
	CreatedAt         time.Time `gorm:"autoCreateTime"`
	UpdatedAt         time.Time `gorm:"autoUpdateTime"`
}

// IsPremium reports whether the tier is a paid one.
func (u User) IsPremium() bool {
	return IsPaidTier(u.Tier)
}

// IsPaidTier reports whether tier is premium or premium_plus.
func IsPaidTier(tier string) bool {
	return tier == TierPremium || tier == TierPremiumPlus
}

// HasLocation reports whether both coordinates are known.
func (u User) HasLocation() bool {
	return u.Latitude != nil && u.Longitude != nil
}

// Preference is the discovery filter set of a user. A user without a row has
// not completed onboarding and cannot use discovery.
type Preference struct {
	UserID        uint64 `gorm:"primaryKey;autoIncrement:false"`
	AgeMin        int    `gorm:"not null;default:18"`
	AgeMax        int    `gorm:"not null;default:99"`
	ShowMe        string `gorm:"size:16;not null;default:everyone"`
	MaxDistanceKM *float64
	UpdatedAt     time.Time `gorm:"autoUpdateTime"`
}

// Block hides two users from each other in both directions.
type Block struct {
	BlockerID uint64    `gorm:"primaryKey;autoIncrement:false"`
	BlockedID uint64    `gorm:"primaryKey;autoIncrement:false;index"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// Swipe is one directional decision. Rows are never updated or deleted.
//
// Indexes:
//   - ux_swipes_pair(swiper_id, swiped_id): at most one decision per ordered pair.
//   - idx_swipes_swiper_created(swiper_id, created_at): daily quota counts.
//   - idx_swipes_swiped_like(swiped_id, swiper_id, is_like): reverse like lookup.
type Swipe struct {
	ID          uint64    `gorm:"primaryKey;autoIncrement"`
	SwiperID    uint64    `gorm:"not null;uniqueIndex:ux_swipes_pair,priority:1;index:idx_swipes_swiper_created,priority:1"`
	SwipedID    uint64    `gorm:"not null;uniqueIndex:ux_swipes_pair,priority:2;index:idx_swipes_swiped_like,priority:1"`
	IsLike      bool      `gorm:"not null;index:idx_swipes_swiped_like,priority:3"`
	IsSuperLike bool      `gorm:"not null;default:false"`
	CreatedAt   time.Time `gorm:"not null;index:idx_swipes_swiper_created,priority:2"`
}

// Match is a mutual like, keyed by the ordered pair (low, high).
type Match struct {
	ID         uint64    `gorm:"primaryKey;autoIncrement"`
	UserLowID  uint64    `gorm:"not null;uniqueIndex:ux_matches_pair,priority:1"`
	UserHighID uint64    `gorm:"not null;uniqueIndex:ux_matches_pair,priority:2;index"`
	CreatedAt  time.Time `gorm:"not null"`
	IsActive   bool      `gorm:"not null;default:true"`
}

// Other returns the counterpart of userID in the match.
func (m Match) Other(userID uint64) uint64 {
	if m.UserLowID == userID {
		return m.UserHighID
	}
	return m.UserLowID
}

// OrderedPair returns (min, max) of two user ids.
func OrderedPair(a, b uint64) (uint64, uint64) {
	if a > b {
		return b, a
	}
	return a, b
}

// Models lists every table the engine migrates.
func Models() []any {
	return []any{&User{}, &Preference{}, &Block{}, &Swipe{}, &Match{}}
}
