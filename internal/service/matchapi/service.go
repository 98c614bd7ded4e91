package matchapi

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/oggyb/match-engine/internal/app"
	"github.com/oggyb/match-engine/internal/cache"
	svcErr "github.com/oggyb/match-engine/internal/errors"
	"github.com/oggyb/match-engine/internal/repository"
	"github.com/oggyb/match-engine/internal/service/discovery"
	"github.com/oggyb/match-engine/internal/service/match"
	"github.com/oggyb/match-engine/internal/service/quota"
	"github.com/oggyb/match-engine/internal/service/ranker"
)

// Service implements the MatchEngine gRPC API.
// It authorizes the caller, validates the payload and hands off to the
// match resolver and the discovery service.
type Service struct {
	appCtx    *app.AppContext
	resolver  *match.Resolver
	discovery *discovery.Service
	validate  *validator.Validate
}

// NewMatchEngineService wires the match engine from AppContext.
// Dependencies include:
//   - DB connection (swipe ledger, users, candidates)
//   - RedisCache for the candidate cache
//   - Notifier for match events
func NewMatchEngineService(appCtx *app.AppContext) *Service {
	cfg := appCtx.Config
	log := appCtx.Logger

	swipes := repository.NewSwipeRepository(appCtx.DB)
	users := repository.NewUserRepository(appCtx.DB)
	candidates := cache.NewCandidateCache(appCtx.RedisCache.Client, log)

	tracker := quota.NewTracker(swipes, quota.Config{
		FreeLikesPerDay:      cfg.Match.FreeLikesPerDay,
		FreeSuperLikesPerDay: cfg.Match.FreeSuperLikesPerDay,
		Location:             cfg.QuotaLocation(),
	})
	rk := ranker.New(repository.NewCandidateRepository(appCtx.DB), ranker.Config{}, log)

	return &Service{
		appCtx: appCtx,
		resolver: match.NewResolver(appCtx.DB, tracker, candidates, appCtx.Notifier, match.Config{
			TxTimeout: cfg.Match.TxTimeout,
		}, log),
		discovery: discovery.NewService(users, swipes, rk, candidates, discovery.Config{
			CacheTTL:     cfg.Discovery.CacheTTL,
			Window:       cfg.Discovery.CacheWindow,
			DefaultLimit: cfg.Discovery.DefaultLimit,
			MaxLimit:     cfg.Discovery.MaxLimit,
		}, log),
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// RecordSwipe stores the caller's decision about another user.
//
// Behavior:
//   - x-user-id must equal swiperId.
//   - Returns isMatch with the match id when the like is mutual.
//
// Example:
//
//	svc.RecordSwipe(ctx, &RecordSwipeRequest{SwiperID: 5, SwipedID: 9, IsLike: &yes})
func (s *Service) RecordSwipe(ctx context.Context, req *RecordSwipeRequest) (*RecordSwipeResponse, error) {
	s.appCtx.Logger.Debug("RecordSwipe called",
		"swiper", req.SwiperID,
		"swiped", req.SwipedID,
	)
	if err := authorize(ctx, req.SwiperID); err != nil {
		return nil, err
	}
	if err := s.check(req); err != nil {
		return nil, err
	}

	res, err := s.resolver.RecordSwipe(ctx, match.SwipeCommand{
		SwiperID:    req.SwiperID,
		SwipedID:    req.SwipedID,
		IsLike:      *req.IsLike,
		IsSuperLike: req.IsSuperLike,
	})
	if err != nil {
		s.logFailure("RecordSwipe", err)
		return nil, svcErr.Map(err)
	}

	return &RecordSwipeResponse{
		IsMatch: res.IsMatch,
		MatchID: res.MatchID,
		Created: res.Created,
		Quota:   toQuota(res.Quota),
	}, nil
}

// Discover returns a page of the caller's ranked feed.
func (s *Service) Discover(ctx context.Context, req *DiscoverRequest) (*DiscoverResponse, error) {
	s.appCtx.Logger.Debug("Discover called", "user", req.UserID, "limit", req.Limit, "offset", req.Offset)
	if err := authorize(ctx, req.UserID); err != nil {
		return nil, err
	}
	if err := s.check(req); err != nil {
		return nil, err
	}

	page, err := s.discovery.Discover(ctx, req.UserID, req.Limit, req.Offset)
	if err != nil {
		s.logFailure("Discover", err)
		return nil, svcErr.Map(err)
	}

	resp := &DiscoverResponse{
		Candidates: make([]Candidate, 0, len(page.Candidates)),
		NextOffset: page.NextOffset,
		HasMore:    page.HasMore,
	}
	for _, c := range page.Candidates {
		resp.Candidates = append(resp.Candidates, Candidate{
			UserID:            c.UserID,
			Username:          c.Username,
			Gender:            c.Gender,
			Age:               c.Age,
			Tier:              c.Tier,
			ProfileCompletion: c.ProfileCompletion,
			DistanceKM:        c.DistanceKM,
			LastActiveAt:      c.LastActiveAt,
		})
	}
	return resp, nil
}

// GetQuota returns the caller's like usage for today.
func (s *Service) GetQuota(ctx context.Context, req *GetQuotaRequest) (*QuotaResponse, error) {
	if err := authorize(ctx, req.UserID); err != nil {
		return nil, err
	}
	if err := s.check(req); err != nil {
		return nil, err
	}

	snap, err := s.resolver.Quota(ctx, req.UserID)
	if err != nil {
		s.logFailure("GetQuota", err)
		return nil, svcErr.Map(err)
	}
	return toQuota(snap), nil
}

func (s *Service) check(req any) error {
	err := s.validate.Struct(req)
	if err == nil {
		return nil
	}
	var fields validator.ValidationErrors
	if !errors.As(err, &fields) {
		return svcErr.InvalidArgument(err.Error())
	}
	msgs := make([]string, 0, len(fields))
	for _, f := range fields {
		msgs = append(msgs, fmt.Sprintf("%s failed %s", f.Field(), f.Tag()))
	}
	return svcErr.InvalidArgument(strings.Join(msgs, "; "))
}

func (s *Service) logFailure(method string, err error) {
	code := svcErr.CodeOf(err)
	if code == "" || code == svcErr.CodeUnavailable {
		s.appCtx.Logger.Error(method+" failed", "err", err)
		return
	}
	s.appCtx.Logger.Debug(method+" rejected", "code", code, "err", err)
}

func toQuota(s quota.Snapshot) *QuotaResponse {
	if s.ResetsAt.IsZero() {
		return nil
	}
	return &QuotaResponse{
		Unlimited:       s.Unlimited,
		LikesUsed:       s.LikesUsed,
		LikesLimit:      s.LikesLimit,
		SuperLikesUsed:  s.SuperLikesUsed,
		SuperLikesLimit: s.SuperLikesLimit,
		ResetsAtUnix:    s.ResetsAt.Unix(),
	}
}
