// Package testutil wires isolated SQLite and miniredis instances for package tests.
package testutil

import (
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/oggyb/match-engine/internal/db"
)

var seq atomic.Int64

// NewDB opens a fresh in-memory database for t and closes it on cleanup.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	database, err := db.NewTestDB(fmt.Sprintf("%s_%d", name, seq.Add(1)))
	require.NoError(t, err)

	sqlDB, err := database.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	return database
}

// NewRedis starts a miniredis server and returns it with a connected client.
func NewRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

// UserOpt customizes a user created by CreateUser.
type UserOpt func(*db.User)

func Tier(tier string) UserOpt          { return func(u *db.User) { u.Tier = tier } }
func Gender(gender string) UserOpt      { return func(u *db.User) { u.Gender = gender } }
func Completion(pct int) UserOpt        { return func(u *db.User) { u.ProfileCompletion = pct } }
func ActiveAt(at time.Time) UserOpt     { return func(u *db.User) { u.LastActiveAt = at.UTC() } }
func Inactive() UserOpt                 { return func(u *db.User) { u.Active = false } }
func Location(lat, lon float64) UserOpt { return func(u *db.User) { u.Latitude, u.Longitude = &lat, &lon } }

// Age sets a birthdate that gives exactly years of age today (UTC).
func Age(years int) UserOpt {
	return func(u *db.User) {
		u.Birthdate = time.Now().UTC().AddDate(-years, 0, -1).Truncate(time.Millisecond)
	}
}

// CreateUser inserts an active free 30 year old female with id.
func CreateUser(t *testing.T, database *gorm.DB, id uint64, opts ...UserOpt) db.User {
	t.Helper()

	u := db.User{
		ID:                id,
		Username:          fmt.Sprintf("user%d", id),
		Email:             fmt.Sprintf("user%d@test.com", id),
		PasswordHash:      "x",
		Active:            true,
		Gender:            db.GenderFemale,
		Tier:              db.TierFree,
		ProfileCompletion: 50,
		LastActiveAt:      time.Now().UTC().Add(-time.Hour).Truncate(time.Millisecond),
	}
	Age(30)(&u)
	for _, opt := range opts {
		opt(&u)
	}

	require.NoError(t, database.Create(&u).Error)
	if !u.Active {
		// gorm skips zero values that have a column default
		require.NoError(t, database.Model(&db.User{}).Where("id = ?", id).Update("active", false).Error)
	}
	return u
}

// CreatePreference inserts discovery filters for userID.
func CreatePreference(t *testing.T, database *gorm.DB, userID uint64, ageMin, ageMax int, showMe string, maxDistanceKM *float64) db.Preference {
	t.Helper()

	p := db.Preference{
		UserID:        userID,
		AgeMin:        ageMin,
		AgeMax:        ageMax,
		ShowMe:        showMe,
		MaxDistanceKM: maxDistanceKM,
	}
	require.NoError(t, database.Create(&p).Error)
	return p
}

// CreateBlock records blocker blocking blocked.
func CreateBlock(t *testing.T, database *gorm.DB, blocker, blocked uint64) {
	t.Helper()
	require.NoError(t, database.Create(&db.Block{BlockerID: blocker, BlockedID: blocked}).Error)
}

// CreateSwipe appends a swipe row at the given time.
func CreateSwipe(t *testing.T, database *gorm.DB, swiper, swiped uint64, like, superLike bool, at time.Time) {
	t.Helper()
	require.NoError(t, database.Create(&db.Swipe{
		SwiperID:    swiper,
		SwipedID:    swiped,
		IsLike:      like,
		IsSuperLike: superLike,
		CreatedAt:   at.UTC().Truncate(time.Millisecond),
	}).Error)
}

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }
