package db

import (
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// seed area around central London
const (
	seedLat = 51.5072
	seedLon = -0.1276
)

// SeedTestData resets the database and populates it with demo users,
// preferences and swipes.
//
// Behavior:
//  1. Clears swipes, matches, blocks, preferences and users.
//  2. Creates `users` accounts (alternating gender) with hashed passwords,
//     mixed tiers, coordinates within ~60km and a preference row each.
//  3. Generates one-way likes/passes; every 3rd like is reciprocated and a
//     match row is written for it.
//
// Compatible with both MySQL and SQLite.
func SeedTestData(database *gorm.DB, users int, log *slog.Logger) error {
	if users <= 1 {
		users = 20
	}
	r := rand.New(rand.NewSource(time.Now().UnixNano()))

	for _, table := range []string{"swipes", "matches", "blocks", "preferences", "users"} {
		if err := database.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	switch database.Dialector.Name() {
	case "mysql":
		for _, table := range []string{"swipes", "matches", "users"} {
			database.Exec("ALTER TABLE " + table + " AUTO_INCREMENT = 1")
		}
	case "sqlite":
		database.Exec("DELETE FROM sqlite_sequence WHERE name IN ('swipes', 'matches', 'users')")
	}
	log.Info("cleared existing data")

	hash, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	tiers := []string{TierFree, TierFree, TierFree, TierPremium, TierPremiumPlus}
	now := time.Now().UTC()
	for i := 1; i <= users; i++ {
		gender, showMe := GenderMale, GenderFemale
		if i%2 == 0 {
			gender, showMe = GenderFemale, GenderMale
		}

		user := User{
			Username:          fmt.Sprintf("user%d", i),
			Email:             fmt.Sprintf("user%d@example.com", i),
			PasswordHash:      string(hash),
			Gender:            gender,
			Active:            true,
			Birthdate:         now.AddDate(-(20 + r.Intn(20)), -r.Intn(12), 0),
			Tier:              tiers[r.Intn(len(tiers))],
			ProfileCompletion: 40 + r.Intn(61),
			LastActiveAt:      now.Add(-time.Duration(r.Intn(500)) * time.Hour),
		}
		// a few profiles never shared their location
		if i%7 != 0 {
			lat := seedLat + (r.Float64()-0.5)*1.0
			lon := seedLon + (r.Float64()-0.5)*1.6
			user.Latitude, user.Longitude = &lat, &lon
		}
		if err := database.Create(&user).Error; err != nil {
			return fmt.Errorf("failed to seed user: %w", err)
		}

		maxDistance := float64(10 + r.Intn(90))
		pref := Preference{
			UserID:        user.ID,
			AgeMin:        18,
			AgeMax:        45,
			ShowMe:        showMe,
			MaxDistanceKM: &maxDistance,
		}
		if err := database.Create(&pref).Error; err != nil {
			return fmt.Errorf("failed to seed preference: %w", err)
		}
	}
	log.Info("seeded users", "count", users)

	swipes, matches := 0, 0
	for swiperID := 1; swiperID <= users; swiperID++ {
		for j := 0; j < users/2; j++ {
			swipedID := uint64(r.Intn(users) + 1)
			// opposite genders only: ids of different parity
			if swipedID == uint64(swiperID) || (swipedID+uint64(swiperID))%2 == 0 {
				continue
			}

			liked := r.Intn(100) < 70
			created, err := seedSwipe(database, uint64(swiperID), swipedID, liked, now)
			if err != nil {
				return err
			}
			if !created {
				continue
			}
			swipes++

			if liked && swipes%3 == 0 {
				back, err := seedSwipe(database, swipedID, uint64(swiperID), true, now)
				if err != nil {
					return err
				}
				if back {
					low, high := OrderedPair(uint64(swiperID), swipedID)
					m := Match{UserLowID: low, UserHighID: high, CreatedAt: now, IsActive: true}
					if err := database.Clauses(clause.OnConflict{DoNothing: true}).Create(&m).Error; err != nil {
						return fmt.Errorf("failed to seed match: %w", err)
					}
					matches++
				}
			}
		}
	}
	log.Info("seeded swipes", "swipes", swipes, "matches", matches)

	return nil
}

// seedSwipe inserts a swipe unless the pair already has one.
// Seeded swipes are backdated a day so they don't eat today's quota.
func seedSwipe(database *gorm.DB, swiperID, swipedID uint64, liked bool, now time.Time) (bool, error) {
	s := Swipe{
		SwiperID:  swiperID,
		SwipedID:  swipedID,
		IsLike:    liked,
		CreatedAt: now.Add(-24 * time.Hour),
	}
	res := database.Clauses(clause.OnConflict{DoNothing: true}).Create(&s)
	if res.Error != nil {
		return false, fmt.Errorf("failed to seed swipe: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}
