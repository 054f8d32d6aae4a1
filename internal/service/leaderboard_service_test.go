package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"Community_Feed/internal/model"
	"Community_Feed/internal/observability"
	"Community_Feed/internal/pkg"
	"Community_Feed/internal/repository/store"
	"Community_Feed/internal/repository/store/storetest"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var fixedNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func newLeaderboard(t *testing.T, db *gorm.DB, cache Cache, lock Locker, m *observability.Metrics) *LeaderboardService {
	t.Helper()
	return NewLeaderboardService(&store.KarmaRepository{DB: db}, &store.UserRepository{DB: db}, cache, lock, m,
		LeaderboardOptions{Now: func() time.Time { return fixedNow }})
}

func TestLeaderboard_SinglePostLike(t *testing.T) {
	db := storetest.NewDB(t)
	author := storetest.User(t, db, "author")
	fan := storetest.User(t, db, "fan")
	post := storetest.Post(t, db, author.ID, "p")
	storetest.PostLike(t, db, fan.ID, post.ID, fixedNow.Add(-time.Hour))

	entries, err := newLeaderboard(t, db, nil, nil, nil).Top(t.Context())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, LeaderboardEntry{
		ID:        author.ID,
		Username:  "author",
		AvatarURL: author.AvatarURL,
		Karma24h:  5,
		Rank:      1,
	}, entries[0])
}

func TestLeaderboard_SingleCommentLike(t *testing.T) {
	db := storetest.NewDB(t)
	author := storetest.User(t, db, "author")
	commenter := storetest.User(t, db, "commenter")
	post := storetest.Post(t, db, author.ID, "p")
	c := storetest.Comment(t, db, post.ID, commenter.ID, nil, "c", time.Time{})
	storetest.CommentLike(t, db, author.ID, c.ID, fixedNow.Add(-time.Hour))

	entries, err := newLeaderboard(t, db, nil, nil, nil).Top(t.Context())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, commenter.ID, entries[0].ID)
	assert.Equal(t, int64(1), entries[0].Karma24h)
}

func TestLeaderboard_MixedKarmaOrdering(t *testing.T) {
	db := storetest.NewDB(t)
	a := storetest.User(t, db, "a")
	b := storetest.User(t, db, "b")
	liker := storetest.User(t, db, "liker")
	at := fixedNow.Add(-time.Hour)

	// A: 一个帖子赞 = 5；B: 一个帖子赞 + 一个评论赞 = 6
	pa := storetest.Post(t, db, a.ID, "a")
	pb := storetest.Post(t, db, b.ID, "b")
	cb := storetest.Comment(t, db, pa.ID, b.ID, nil, "b on a", time.Time{})
	storetest.PostLike(t, db, liker.ID, pa.ID, at)
	storetest.PostLike(t, db, liker.ID, pb.ID, at)
	storetest.CommentLike(t, db, liker.ID, cb.ID, at)

	entries, err := newLeaderboard(t, db, nil, nil, nil).Top(t.Context())
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, b.ID, entries[0].ID)
	assert.Equal(t, int64(6), entries[0].Karma24h)
	assert.Equal(t, 1, entries[0].Rank)
	assert.Equal(t, a.ID, entries[1].ID)
	assert.Equal(t, int64(5), entries[1].Karma24h)
	assert.Equal(t, 2, entries[1].Rank)
}

func TestLeaderboard_WindowBoundary(t *testing.T) {
	db := storetest.NewDB(t)
	oldie := storetest.User(t, db, "oldie")
	fresh := storetest.User(t, db, "fresh")
	liker := storetest.User(t, db, "liker")
	pOld := storetest.Post(t, db, oldie.ID, "old")
	pNew := storetest.Post(t, db, fresh.ID, "new")
	storetest.PostLike(t, db, liker.ID, pOld.ID, fixedNow.Add(-25*time.Hour))
	storetest.PostLike(t, db, liker.ID, pNew.ID, fixedNow.Add(-23*time.Hour-59*time.Minute))

	entries, err := newLeaderboard(t, db, nil, nil, nil).Top(t.Context())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, fresh.ID, entries[0].ID)
}

func TestLeaderboard_TopFiveOnly(t *testing.T) {
	db := storetest.NewDB(t)
	liker := storetest.User(t, db, "liker")
	at := fixedNow.Add(-time.Hour)

	// user i 收到 i 个评论赞
	users := make([]*model.User, 7)
	post := storetest.Post(t, db, liker.ID, "thread")
	for i := range users {
		users[i] = storetest.User(t, db, fmt.Sprintf("u%d", i+1))
		for j := 0; j <= i; j++ {
			c := storetest.Comment(t, db, post.ID, users[i].ID, nil, "c", time.Time{})
			storetest.CommentLike(t, db, liker.ID, c.ID, at)
		}
	}

	entries, err := newLeaderboard(t, db, nil, nil, nil).Top(t.Context())
	require.NoError(t, err)
	require.Len(t, entries, 5)
	for i, e := range entries {
		assert.Equal(t, i+1, e.Rank)
		assert.Equal(t, users[6-i].ID, e.ID)
		assert.Equal(t, int64(7-i), e.Karma24h)
	}
}

func TestLeaderboard_Empty(t *testing.T) {
	db := storetest.NewDB(t)
	storetest.User(t, db, "lonely")

	entries, err := newLeaderboard(t, db, nil, nil, nil).Top(t.Context())
	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)
}

func TestLeaderboard_SelfLikeCounts(t *testing.T) {
	db := storetest.NewDB(t)
	narcissus := storetest.User(t, db, "narcissus")
	post := storetest.Post(t, db, narcissus.ID, "me")
	storetest.PostLike(t, db, narcissus.ID, post.ID, fixedNow.Add(-time.Minute))

	entries, err := newLeaderboard(t, db, nil, nil, nil).Top(t.Context())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, int64(5), entries[0].Karma24h)
}

func TestRankKarma_TieBreakByUserID(t *testing.T) {
	ranked := RankKarma(map[uint64]int64{9: 5, 3: 5, 7: 6, 4: 0}, 5)
	assert.Equal(t, []KarmaScore{{7, 6}, {3, 5}, {9, 5}}, ranked)
}

func TestMergeKarma(t *testing.T) {
	totals := MergeKarma(
		[]store.AuthorLikes{{AuthorID: 1, Likes: 2}, {AuthorID: 2, Likes: 1}},
		[]store.AuthorLikes{{AuthorID: 2, Likes: 3}, {AuthorID: 3, Likes: 4}},
	)
	assert.Equal(t, map[uint64]int64{1: 10, 2: 8, 3: 4}, totals)
}

func TestLeaderboard_CacheHitAndInvalidation(t *testing.T) {
	db := storetest.NewDB(t)
	author := storetest.User(t, db, "author")
	fan := storetest.User(t, db, "fan")
	post := storetest.Post(t, db, author.ID, "p")
	storetest.PostLike(t, db, fan.ID, post.ID, fixedNow.Add(-time.Hour))

	cache, err := pkg.NewLocalCache(8)
	require.NoError(t, err)
	m := observability.NewMetrics(prometheus.NewRegistry())
	svc := newLeaderboard(t, db, cache, nil, m)

	first, err := svc.Top(t.Context())
	require.NoError(t, err)
	require.Len(t, first, 1)

	// 绕过服务直接写库：缓存未失效前看不到变化
	post2 := storetest.Post(t, db, fan.ID, "p2")
	storetest.PostLike(t, db, author.ID, post2.ID, fixedNow.Add(-time.Hour))

	cached, err := svc.Top(t.Context())
	require.NoError(t, err)
	assert.Equal(t, first, cached)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LeaderboardRequestsTotal.WithLabelValues("hit")))

	svc.Invalidate(t.Context())
	fresh, err := svc.Top(t.Context())
	require.NoError(t, err)
	assert.Len(t, fresh, 2)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.LeaderboardRequestsTotal.WithLabelValues("miss")))
}

// fakeLocker 进程内互斥，模拟 redis SET NX
type fakeLocker struct {
	mu    sync.Mutex
	owner map[string]string
}

func (l *fakeLocker) Acquire(_ context.Context, key, token string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.owner == nil {
		l.owner = map[string]string{}
	}
	if _, held := l.owner[key]; held {
		return false, nil
	}
	l.owner[key] = token
	return true, nil
}

func (l *fakeLocker) Release(_ context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.owner[key] == token {
		delete(l.owner, key)
	}
	return nil
}

func TestLeaderboard_ConcurrentMissesShareResult(t *testing.T) {
	db := storetest.NewDB(t)
	author := storetest.User(t, db, "author")
	fan := storetest.User(t, db, "fan")
	post := storetest.Post(t, db, author.ID, "p")
	storetest.PostLike(t, db, fan.ID, post.ID, fixedNow.Add(-time.Hour))

	cache, err := pkg.NewLocalCache(8)
	require.NoError(t, err)
	svc := newLeaderboard(t, db, cache, &fakeLocker{}, nil)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			entries, err := svc.Top(t.Context())
			assert.NoError(t, err)
			assert.Len(t, entries, 1)
		}()
	}
	wg.Wait()
}

func TestLeaderboard_DeleteInvalidatesCache(t *testing.T) {
	db := storetest.NewDB(t)
	author := storetest.User(t, db, "author")
	fan := storetest.User(t, db, "fan")
	post := storetest.Post(t, db, author.ID, "p")
	c := storetest.Comment(t, db, post.ID, author.ID, nil, "c", time.Time{})
	storetest.PostLike(t, db, fan.ID, post.ID, fixedNow.Add(-time.Hour))
	storetest.CommentLike(t, db, fan.ID, c.ID, fixedNow.Add(-time.Hour))

	cache, err := pkg.NewLocalCache(8)
	require.NoError(t, err)
	lb := newLeaderboard(t, db, cache, nil, nil)
	comments := NewCommentService(&store.CommentRepository{DB: db}, &store.PostRepository{DB: db}, &store.LikeRepository{DB: db}, lb)
	posts := NewPostService(&store.PostRepository{DB: db}, &store.LikeRepository{DB: db}, comments, lb)

	before, err := lb.Top(t.Context())
	require.NoError(t, err)
	require.Len(t, before, 1)
	assert.Equal(t, int64(6), before[0].Karma24h)

	require.NoError(t, comments.DeleteComment(t.Context(), c.ID, author.ID))
	afterComment, err := lb.Top(t.Context())
	require.NoError(t, err)
	require.Len(t, afterComment, 1)
	assert.Equal(t, int64(5), afterComment[0].Karma24h)

	require.NoError(t, posts.DeletePost(t.Context(), post.ID, author.ID))
	afterPost, err := lb.Top(t.Context())
	require.NoError(t, err)
	want, err := lb.Compute(t.Context())
	require.NoError(t, err)
	assert.Equal(t, want, afterPost)
	assert.Empty(t, afterPost)
}

// 在用户查询（聚合之后、写缓存之前）处挂起 Top，期间提交新的点赞并失效缓存
func TestLeaderboard_InvalidateDuringComputeWins(t *testing.T) {
	db := storetest.NewDB(t)
	author := storetest.User(t, db, "author")
	fan := storetest.User(t, db, "fan")
	fan2 := storetest.User(t, db, "fan2")
	post := storetest.Post(t, db, author.ID, "p")
	storetest.PostLike(t, db, fan.ID, post.ID, fixedNow.Add(-time.Hour))

	cache, err := pkg.NewLocalCache(8)
	require.NoError(t, err)
	svc := newLeaderboard(t, db, cache, nil, nil)

	var armed atomic.Bool
	reached := make(chan struct{})
	release := make(chan struct{})
	require.NoError(t, db.Callback().Query().After("gorm:query").Register("test:pause_users", func(tx *gorm.DB) {
		if tx.Statement.Table == "users" && armed.CompareAndSwap(true, false) {
			close(reached)
			<-release
		}
	}))
	armed.Store(true)

	done := make(chan []LeaderboardEntry, 1)
	go func() {
		entries, err := svc.Top(context.Background())
		assert.NoError(t, err)
		done <- entries
	}()

	<-reached
	storetest.PostLike(t, db, fan2.ID, post.ID, fixedNow.Add(-time.Minute))
	svc.Invalidate(t.Context())
	close(release)

	stale := <-done
	require.Len(t, stale, 1)
	assert.Equal(t, int64(5), stale[0].Karma24h)

	fresh, err := svc.Top(t.Context())
	require.NoError(t, err)
	want, err := svc.Compute(t.Context())
	require.NoError(t, err)
	assert.Equal(t, want, fresh)
	require.Len(t, fresh, 1)
	assert.Equal(t, int64(10), fresh[0].Karma24h)
}
