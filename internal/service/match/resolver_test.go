package match

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/oggyb/match-engine/internal/cache"
	"github.com/oggyb/match-engine/internal/db"
	svcErr "github.com/oggyb/match-engine/internal/errors"
	"github.com/oggyb/match-engine/internal/logger"
	"github.com/oggyb/match-engine/internal/notify"
	"github.com/oggyb/match-engine/internal/repository"
	"github.com/oggyb/match-engine/internal/service/quota"
	"github.com/oggyb/match-engine/internal/testutil"
)

var fixedNow = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

type sent struct {
	userID  uint64
	kind    string
	payload any
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sent
	err  error
}

func (f *fakeNotifier) Notify(_ context.Context, userID uint64, kind string, payload any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sent{userID: userID, kind: kind, payload: payload})
	return f.err
}

func (f *fakeNotifier) all() []sent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sent(nil), f.sent...)
}

type fixture struct {
	r        *Resolver
	db       *gorm.DB
	mr       *miniredis.Miniredis
	cache    *cache.CandidateCache
	notifier *fakeNotifier
}

func setup(t *testing.T) fixture {
	t.Helper()
	dbase := testutil.NewDB(t)
	mr, client := testutil.NewRedis(t)
	log := logger.Discard()

	cc := cache.NewCandidateCache(client, log)
	n := &fakeNotifier{}
	tracker := quota.NewTracker(repository.NewSwipeRepository(dbase), quota.Config{
		FreeLikesPerDay:      10,
		FreeSuperLikesPerDay: 1,
		Location:             time.UTC,
	})

	r := NewResolver(dbase, tracker, cc, n, Config{TxTimeout: 5 * time.Second}, log)
	r.now = func() time.Time { return fixedNow }
	return fixture{r: r, db: dbase, mr: mr, cache: cc, notifier: n}
}

func like(from, to uint64) SwipeCommand    { return SwipeCommand{SwiperID: from, SwipedID: to, IsLike: true} }
func dislike(from, to uint64) SwipeCommand { return SwipeCommand{SwiperID: from, SwipedID: to} }

func countMatches(t *testing.T, dbase *gorm.DB, a, b uint64) int64 {
	t.Helper()
	n, err := repository.NewMatchRepository(dbase).CountPair(context.Background(), a, b)
	require.NoError(t, err)
	return n
}

func TestRecordSwipe_MutualLikeCreatesMatch(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	testutil.CreateUser(t, f.db, 5)
	testutil.CreateUser(t, f.db, 9)

	res, err := f.r.RecordSwipe(ctx, like(5, 9))
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.False(t, res.IsMatch)
	assert.Empty(t, f.notifier.all())

	res, err = f.r.RecordSwipe(ctx, like(9, 5))
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.True(t, res.IsMatch)
	assert.NotZero(t, res.MatchID)
	assert.Equal(t, int64(1), countMatches(t, f.db, 5, 9))

	sent := f.notifier.all()
	require.Len(t, sent, 2)
	got := map[uint64]uint64{}
	for _, s := range sent {
		assert.Equal(t, "match_created", s.kind)
		p, ok := s.payload.(notify.MatchCreated)
		require.True(t, ok)
		assert.Equal(t, res.MatchID, p.MatchID)
		got[s.userID] = p.OtherUserID
	}
	assert.Equal(t, map[uint64]uint64{5: 9, 9: 5}, got)
}

func TestRecordSwipe_DislikeNeverMatches(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	testutil.CreateUser(t, f.db, 5)
	testutil.CreateUser(t, f.db, 9)

	_, err := f.r.RecordSwipe(ctx, like(5, 9))
	require.NoError(t, err)
	res, err := f.r.RecordSwipe(ctx, dislike(9, 5))
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.False(t, res.IsMatch)
	assert.Zero(t, countMatches(t, f.db, 5, 9))
}

func TestRecordSwipe_ConcurrentMutualLike(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	testutil.CreateUser(t, f.db, 5)
	testutil.CreateUser(t, f.db, 9)

	var (
		wg      sync.WaitGroup
		start   = make(chan struct{})
		results = make([]SwipeResult, 2)
		errs    = make([]error, 2)
	)
	for i, cmd := range []SwipeCommand{like(5, 9), like(9, 5)} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			results[i], errs[i] = f.r.RecordSwipe(ctx, cmd)
		}()
	}
	close(start)
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	assert.Equal(t, int64(1), countMatches(t, f.db, 5, 9))

	m, err := repository.NewMatchRepository(f.db).FindByPair(ctx, 5, 9)
	require.NoError(t, err)

	matched := 0
	for _, res := range results {
		assert.True(t, res.Created)
		if res.IsMatch {
			matched++
			assert.Equal(t, m.ID, res.MatchID)
		}
	}
	assert.Equal(t, 1, matched, "the later of two serialized swipes sees the reverse like")
	assert.Len(t, f.notifier.all(), 2)
}

func TestRecordSwipe_ConcurrentLikesAcrossPairs(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	for id := uint64(1); id <= 8; id++ {
		testutil.CreateUser(t, f.db, id, testutil.Tier(db.TierPremium))
	}

	// every pair likes each other from both sides at once
	var wg sync.WaitGroup
	start := make(chan struct{})
	for a := uint64(1); a <= 8; a++ {
		for b := uint64(1); b <= 8; b++ {
			if a == b {
				continue
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				_, err := f.r.RecordSwipe(ctx, like(a, b))
				assert.NoError(t, err)
			}()
		}
	}
	close(start)
	wg.Wait()

	for a := uint64(1); a <= 8; a++ {
		for b := a + 1; b <= 8; b++ {
			assert.Equal(t, int64(1), countMatches(t, f.db, a, b), "pair %d-%d", a, b)
		}
	}
}

func TestRecordSwipe_AlreadySwiped(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	testutil.CreateUser(t, f.db, 1)
	testutil.CreateUser(t, f.db, 2)

	_, err := f.r.RecordSwipe(ctx, like(1, 2))
	require.NoError(t, err)

	_, err = f.r.RecordSwipe(ctx, like(1, 2))
	assert.ErrorIs(t, err, svcErr.ErrAlreadySwiped)

	_, err = f.r.RecordSwipe(ctx, dislike(1, 2))
	assert.ErrorIs(t, err, svcErr.ErrAlreadySwiped, "a decision can't be changed")

	var count int64
	require.NoError(t, f.db.Model(&db.Swipe{}).Where("swiper_id = ?", 1).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestRecordSwipe_InvalidInput(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	testutil.CreateUser(t, f.db, 1)
	testutil.CreateUser(t, f.db, 2)
	testutil.CreateUser(t, f.db, 3, testutil.Inactive())
	testutil.CreateUser(t, f.db, 4)
	testutil.CreateBlock(t, f.db, 4, 1)

	tests := []struct {
		name string
		cmd  SwipeCommand
		want error
	}{
		{"self", like(1, 1), svcErr.ErrInvalidInput},
		{"zero swiper", like(0, 2), svcErr.ErrInvalidInput},
		{"zero swiped", like(1, 0), svcErr.ErrInvalidInput},
		{"super without like", SwipeCommand{SwiperID: 1, SwipedID: 2, IsSuperLike: true}, svcErr.ErrInvalidInput},
		{"unknown target", like(1, 99), svcErr.ErrInvalidInput},
		{"inactive target", like(1, 3), svcErr.ErrInvalidInput},
		{"blocked", like(1, 4), svcErr.ErrInvalidInput},
		{"unknown swiper", like(99, 1), svcErr.ErrProfileNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.r.RecordSwipe(ctx, tt.cmd)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	var count int64
	require.NoError(t, f.db.Model(&db.Swipe{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestRecordSwipe_FreeQuota(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	testutil.CreateUser(t, f.db, 1)
	for id := uint64(2); id <= 20; id++ {
		testutil.CreateUser(t, f.db, id)
	}

	for id := uint64(2); id <= 10; id++ {
		_, err := f.r.RecordSwipe(ctx, like(1, id))
		require.NoError(t, err)
	}
	res, err := f.r.RecordSwipe(ctx, like(1, 11))
	require.NoError(t, err, "10th like")
	assert.Equal(t, 10, res.Quota.LikesUsed)
	assert.Equal(t, 10, res.Quota.LikesLimit)

	_, err = f.r.RecordSwipe(ctx, like(1, 12))
	assert.ErrorIs(t, err, svcErr.ErrQuotaExceeded, "11th like")

	_, err = f.r.RecordSwipe(ctx, dislike(1, 12))
	assert.NoError(t, err, "dislikes are unlimited")

	_, err = f.r.RecordSwipe(ctx, SwipeCommand{SwiperID: 1, SwipedID: 13, IsLike: true, IsSuperLike: true})
	assert.NoError(t, err, "super-likes have their own bucket")
	_, err = f.r.RecordSwipe(ctx, SwipeCommand{SwiperID: 1, SwipedID: 14, IsLike: true, IsSuperLike: true})
	assert.ErrorIs(t, err, svcErr.ErrQuotaExceeded)

	f.r.now = func() time.Time { return fixedNow.Add(24 * time.Hour) }
	_, err = f.r.RecordSwipe(ctx, like(1, 15))
	assert.NoError(t, err, "limits reset the next day")
}

func TestRecordSwipe_PremiumUnlimited(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	testutil.CreateUser(t, f.db, 1, testutil.Tier(db.TierPremiumPlus))
	for id := uint64(2); id <= 16; id++ {
		testutil.CreateUser(t, f.db, id)
		_, err := f.r.RecordSwipe(ctx, like(1, id))
		require.NoError(t, err)
	}

	snap, err := f.r.Quota(ctx, 1)
	require.NoError(t, err)
	assert.True(t, snap.Unlimited)
	assert.Equal(t, 15, snap.LikesUsed)
}

func TestRecordSwipe_ConcurrentQuota(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	testutil.CreateUser(t, f.db, 1)
	for id := uint64(2); id <= 16; id++ {
		testutil.CreateUser(t, f.db, id)
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		ok       int
		exceeded int
		start    = make(chan struct{})
	)
	for id := uint64(2); id <= 16; id++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := f.r.RecordSwipe(ctx, like(1, id))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, svcErr.ErrQuotaExceeded):
				exceeded++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 10, ok)
	assert.Equal(t, 5, exceeded)

	var count int64
	require.NoError(t, f.db.Model(&db.Swipe{}).Where("swiper_id = ? AND is_like = ?", 1, true).Count(&count).Error)
	assert.Equal(t, int64(10), count)
}

func TestRecordSwipe_NotificationFailureIsSwallowed(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	f.notifier.err = errors.New("push gateway down")
	testutil.CreateUser(t, f.db, 1)
	testutil.CreateUser(t, f.db, 2)

	_, err := f.r.RecordSwipe(ctx, like(2, 1))
	require.NoError(t, err)
	res, err := f.r.RecordSwipe(ctx, like(1, 2))
	require.NoError(t, err)
	assert.True(t, res.IsMatch)
	assert.Len(t, f.notifier.all(), 2)
}

func TestRecordSwipe_InvalidatesSwiperFeed(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	testutil.CreateUser(t, f.db, 1)
	testutil.CreateUser(t, f.db, 2)

	f.cache.Put(ctx, 1, cache.Entry{Seed: 1, CreatedAt: fixedNow}, time.Minute)
	f.cache.Put(ctx, 2, cache.Entry{Seed: 1, CreatedAt: fixedNow}, time.Minute)

	_, err := f.r.RecordSwipe(ctx, dislike(1, 2))
	require.NoError(t, err)
	assert.False(t, f.mr.Exists(cache.KeyForCandidates(1)))
	assert.True(t, f.mr.Exists(cache.KeyForCandidates(2)))

	f.mr.Close()
	testutil.CreateUser(t, f.db, 3)
	_, err = f.r.RecordSwipe(ctx, dislike(1, 3))
	assert.NoError(t, err, "cache outage doesn't fail a swipe")
}

func TestRecordSwipe_CanceledContextWritesNothing(t *testing.T) {
	f := setup(t)
	testutil.CreateUser(t, f.db, 1)
	testutil.CreateUser(t, f.db, 2)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.r.RecordSwipe(ctx, like(1, 2))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)

	var count int64
	require.NoError(t, f.db.Model(&db.Swipe{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestQuota_UnknownUser(t *testing.T) {
	f := setup(t)
	_, err := f.r.Quota(context.Background(), 42)
	assert.ErrorIs(t, err, svcErr.ErrProfileNotFound)
}
