package ranker

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/oggyb/match-engine/internal/db"
	"github.com/oggyb/match-engine/internal/repository"
)

// Candidate is the summary of a profile shown in discovery.
type Candidate struct {
	UserID            uint64    `json:"user_id"`
	Username          string    `json:"username"`
	Gender            string    `json:"gender"`
	Age               int       `json:"age"`
	Tier              string    `json:"tier"`
	ProfileCompletion int       `json:"profile_completion"`
	DistanceKM        *float64  `json:"distance_km,omitempty"`
	LastActiveAt      time.Time `json:"last_active_at"`
}

type Config struct {
	DefaultAgeMin int
	DefaultAgeMax int
	// PoolLimit caps the eligible rows ranked per call.
	PoolLimit int
}

// Ranker orders the eligible population for a viewer.
type Ranker struct {
	candidates *repository.CandidateRepository
	cfg        Config
	log        *slog.Logger
	now        func() time.Time
}

func New(candidates *repository.CandidateRepository, cfg Config, log *slog.Logger) *Ranker {
	if cfg.DefaultAgeMin <= 0 {
		cfg.DefaultAgeMin = 18
	}
	if cfg.DefaultAgeMax <= 0 {
		cfg.DefaultAgeMax = 99
	}
	if cfg.PoolLimit <= 0 {
		cfg.PoolLimit = 1000
	}
	return &Ranker{candidates: candidates, cfg: cfg, log: log, now: time.Now}
}

// Rank returns the eligible candidates for viewer in display order, at most
// PoolLimit of them.
//
// Behavior:
//   - SQL applies active/self/swiped/blocked/age/gender filters, plus a
//     bounding box around the viewer when max_distance is set, so the pool
//     cap is spent on profiles that can pass the distance check.
//   - Distance is computed here. With max_distance set and coordinates on
//     both sides, out-of-range profiles are dropped; a profile with unknown
//     distance is kept and sorts after every known distance.
//   - Order: paid tier, profile completion desc, distance asc, last active
//     desc, then a tie-break derived from seed. The same seed gives the same
//     order, so pages cut from one cache window line up.
func (r *Ranker) Rank(ctx context.Context, viewer db.User, prefs db.Preference, exclude []uint64, seed int64) ([]Candidate, error) {
	now := r.now().UTC()
	ageMin, ageMax := normalizeAgeRange(prefs.AgeMin, prefs.AgeMax, r.cfg.DefaultAgeMin, r.cfg.DefaultAgeMax)

	gender := prefs.ShowMe
	if gender == db.ShowMeEveryone {
		gender = ""
	}

	q := repository.CandidateQuery{
		ViewerID:       viewer.ID,
		Gender:         gender,
		BornAfter:      now.AddDate(-(ageMax + 1), 0, 0),
		BornOnOrBefore: now.AddDate(-ageMin, 0, 0),
		Exclude:        exclude,
		PoolLimit:      r.cfg.PoolLimit,
	}
	if viewer.HasLocation() && prefs.MaxDistanceKM != nil {
		box := BoundingBox(*viewer.Latitude, *viewer.Longitude, *prefs.MaxDistanceKM)
		q.Near = &box
	}

	users, err := r.candidates.ListEligible(ctx, q)
	if err != nil {
		return nil, err
	}

	out := make([]Candidate, 0, len(users))
	for _, u := range users {
		age := AgeAt(u.Birthdate, now)
		if age < ageMin || age > ageMax {
			continue
		}

		var distance *float64
		if viewer.HasLocation() && u.HasLocation() {
			d := HaversineKM(*viewer.Latitude, *viewer.Longitude, *u.Latitude, *u.Longitude)
			if prefs.MaxDistanceKM != nil && d > *prefs.MaxDistanceKM {
				continue
			}
			distance = &d
		}

		out = append(out, Candidate{
			UserID:            u.ID,
			Username:          u.Username,
			Gender:            u.Gender,
			Age:               age,
			Tier:              u.Tier,
			ProfileCompletion: u.ProfileCompletion,
			DistanceKM:        distance,
			LastActiveAt:      u.LastActiveAt,
		})
	}

	Sort(out, seed)

	r.log.Debug("ranked candidates",
		"viewer", viewer.ID,
		"pool", len(users),
		"eligible", len(out),
	)
	return out, nil
}

// Sort orders candidates by the discovery ranking keys.
func Sort(cs []Candidate, seed int64) {
	sort.SliceStable(cs, func(i, j int) bool {
		a, b := cs[i], cs[j]

		if pa, pb := db.IsPaidTier(a.Tier), db.IsPaidTier(b.Tier); pa != pb {
			return pa
		}
		if a.ProfileCompletion != b.ProfileCompletion {
			return a.ProfileCompletion > b.ProfileCompletion
		}
		switch {
		case a.DistanceKM != nil && b.DistanceKM == nil:
			return true
		case a.DistanceKM == nil && b.DistanceKM != nil:
			return false
		case a.DistanceKM != nil && *a.DistanceKM != *b.DistanceKM:
			return *a.DistanceKM < *b.DistanceKM
		}
		if !a.LastActiveAt.Equal(b.LastActiveAt) {
			return a.LastActiveAt.After(b.LastActiveAt)
		}
		if ka, kb := tieBreak(seed, a.UserID), tieBreak(seed, b.UserID); ka != kb {
			return ka < kb
		}
		return a.UserID < b.UserID
	})
}

// AgeAt returns full years between birthdate and now.
func AgeAt(birthdate, now time.Time) int {
	if birthdate.IsZero() {
		return 0
	}
	b, n := birthdate.UTC(), now.UTC()
	age := n.Year() - b.Year()
	if n.Month() < b.Month() || (n.Month() == b.Month() && n.Day() < b.Day()) {
		age--
	}
	return age
}

// tieBreak is a splitmix64 hash of (seed, id): a per-seed pseudo random
// position that doesn't depend on the order rows came back in.
func tieBreak(seed int64, id uint64) uint64 {
	z := uint64(seed) ^ (id * 0x9e3779b97f4a7c15)
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

func normalizeAgeRange(ageMin, ageMax, defaultMin, defaultMax int) (int, int) {
	if ageMin <= 0 {
		ageMin = defaultMin
	}
	if ageMax <= 0 {
		ageMax = defaultMax
	}
	if ageMin > ageMax {
		ageMin, ageMax = ageMax, ageMin
	}
	return ageMin, ageMax
}
