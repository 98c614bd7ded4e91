package discovery

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/oggyb/match-engine/internal/cache"
	svcErr "github.com/oggyb/match-engine/internal/errors"
	"github.com/oggyb/match-engine/internal/repository"
	"github.com/oggyb/match-engine/internal/service/ranker"
	"github.com/oggyb/match-engine/internal/utils/pagination"
)

type Config struct {
	CacheTTL time.Duration
	// Window is the number of ranked candidates kept per cache entry.
	Window       int
	DefaultLimit int
	MaxLimit     int
}

// Page is one slice of a viewer's ranked feed.
type Page struct {
	Candidates []ranker.Candidate
	NextOffset int
	HasMore    bool
}

// Service serves the discovery feed: cache first, ranker on miss.
type Service struct {
	users  *repository.UserRepository
	swipes *repository.SwipeRepository
	ranker *ranker.Ranker
	cache  *cache.CandidateCache
	cfg    Config
	log    *slog.Logger

	now  func() time.Time
	seed func() int64
}

func NewService(
	users *repository.UserRepository,
	swipes *repository.SwipeRepository,
	rk *ranker.Ranker,
	cc *cache.CandidateCache,
	cfg Config,
	log *slog.Logger,
) *Service {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = cache.DefaultTTL
	}
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = 20
	}
	if cfg.MaxLimit < cfg.DefaultLimit {
		cfg.MaxLimit = cfg.DefaultLimit
	}
	if cfg.Window < cfg.MaxLimit {
		cfg.Window = cfg.MaxLimit
	}
	return &Service{
		users:  users,
		swipes: swipes,
		ranker: rk,
		cache:  cc,
		cfg:    cfg,
		log:    log,
		now:    time.Now,
		seed:   rand.Int64,
	}
}

// Discover returns a page of ranked candidates for userID.
//
// Behavior:
//   - Unknown or inactive users, and users without preferences, get
//     PROFILE_NOT_FOUND.
//   - A cached window is reused within its TTL. Anyone the viewer swiped on
//     since the window was built is dropped before slicing.
//   - A page past the end of an incomplete window re-ranks with the
//     window's seed so the order stays consistent with earlier pages.
//   - On a miss a fresh seed is drawn, the ranking is stored and served.
//     The entry is stamped with the time ranking started.
func (s *Service) Discover(ctx context.Context, userID uint64, limit, offset int) (Page, error) {
	if userID == 0 {
		return Page{}, svcErr.New(svcErr.CodeInvalidInput, "user id required")
	}
	limit, offset = pagination.Normalize(limit, offset, s.cfg.DefaultLimit, s.cfg.MaxLimit)

	viewer, err := s.users.GetUser(ctx, userID)
	if errors.Is(err, repository.ErrUserNotFound) || (err == nil && !viewer.Active) {
		return Page{}, svcErr.Newf(svcErr.CodeProfileNotFound, "user %d not found", userID)
	}
	if err != nil {
		return Page{}, svcErr.Transient(err, "load viewer")
	}
	prefs, err := s.users.GetPreference(ctx, userID)
	if errors.Is(err, repository.ErrUserNotFound) {
		return Page{}, svcErr.Newf(svcErr.CodeProfileNotFound, "user %d has no preferences", userID)
	}
	if err != nil {
		return Page{}, svcErr.Transient(err, "load preferences")
	}

	var list []ranker.Candidate
	truncated := false

	entry, hit := s.cache.Get(ctx, userID)
	if hit {
		swiped, err := s.swipes.SwipedSince(ctx, userID, entry.CreatedAt)
		if err != nil {
			return Page{}, svcErr.Transient(err, "check recent swipes")
		}
		list = without(entry.Candidates, swiped)
		truncated = !entry.Complete

		if truncated && offset+limit > len(list) {
			list, err = s.ranker.Rank(ctx, viewer, prefs, nil, entry.Seed)
			if err != nil {
				return Page{}, svcErr.Transient(err, "rank candidates")
			}
			truncated = false
		}
	} else {
		// taken before ranking, at created_at precision: any swipe the
		// ranking query could not see is at or after it
		rankedAt := s.now().UTC().Truncate(time.Millisecond)
		seed := s.seed()
		list, err = s.ranker.Rank(ctx, viewer, prefs, nil, seed)
		if err != nil {
			return Page{}, svcErr.Transient(err, "rank candidates")
		}

		window := list
		if len(window) > s.cfg.Window {
			window = window[:s.cfg.Window]
		}
		s.cache.Put(ctx, userID, cache.Entry{
			Seed:       seed,
			CreatedAt:  rankedAt,
			Complete:   len(window) == len(list),
			Candidates: window,
		}, s.cfg.CacheTTL)
	}

	start, end, more := pagination.Window(len(list), offset, limit, truncated)
	s.log.Debug("discover",
		"user_id", userID,
		"cache_hit", hit,
		"offset", offset,
		"returned", end-start,
	)
	return Page{
		Candidates: slices.Clone(list[start:end]),
		NextOffset: end,
		HasMore:    more,
	}, nil
}

func without(cs []ranker.Candidate, ids []uint64) []ranker.Candidate {
	if len(ids) == 0 {
		return cs
	}
	out := make([]ranker.Candidate, 0, len(cs))
	for _, c := range cs {
		if !slices.Contains(ids, c.UserID) {
			out = append(out, c)
		}
	}
	return out
}
