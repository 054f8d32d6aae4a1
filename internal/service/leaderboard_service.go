package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"Community_Feed/internal/observability"
	"Community_Feed/internal/repository/store"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	PostLikeKarma    = 5
	CommentLikeKarma = 1
	KarmaWindow      = 24 * time.Hour
	DefaultTopN      = 5
	DefaultCacheTTL  = 30 * time.Second

	lockBackoff = 50 * time.Millisecond
)

// Cache 排行榜结果缓存，redis 或进程内 LRU。
// 写入带版本号比较：回源期间发生的 Invalidate 不会被旧结果覆盖。
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Delete(ctx context.Context, key string)
	Version(ctx context.Context, key string) (int64, error)
	SetIfVersion(ctx context.Context, key string, val []byte, ttl time.Duration, version int64) bool
	Invalidate(ctx context.Context, key string)
}

// Locker 缓存回源互斥
type Locker interface {
	Acquire(ctx context.Context, key, token string) (bool, error)
	Release(ctx context.Context, key, token string) error
}

type LeaderboardOptions struct {
	TopN     int
	CacheTTL time.Duration
	Now      func() time.Time
}

type LeaderboardService struct {
	karma    *store.KarmaRepository
	users    *store.UserRepository
	cache    Cache
	lock     Locker
	metrics  *observability.Metrics
	topN     int
	cacheTTL time.Duration
	now      func() time.Time
}

// NewLeaderboardService cache 与 lock 均可为 nil
func NewLeaderboardService(karma *store.KarmaRepository, users *store.UserRepository, cache Cache, lock Locker,
	metrics *observability.Metrics, opt LeaderboardOptions) *LeaderboardService {
	if opt.TopN <= 0 {
		opt.TopN = DefaultTopN
	}
	if opt.CacheTTL <= 0 {
		opt.CacheTTL = DefaultCacheTTL
	}
	if opt.Now == nil {
		opt.Now = func() time.Time { return time.Now().UTC() }
	}
	return &LeaderboardService{
		karma:    karma,
		users:    users,
		cache:    cache,
		lock:     lock,
		metrics:  metrics,
		topN:     opt.TopN,
		cacheTTL: opt.CacheTTL,
		now:      opt.Now,
	}
}

func (s *LeaderboardService) cacheKey() string {
	return fmt.Sprintf("leaderboard:top:%d", s.topN)
}

// Top 先读缓存；未命中时抢锁回源，抢不到则短暂退避后再读一次缓存
func (s *LeaderboardService) Top(ctx context.Context) ([]LeaderboardEntry, error) {
	key := s.cacheKey()
	if entries, ok := s.fromCache(ctx, key); ok {
		s.metrics.RecordLeaderboard("hit")
		return entries, nil
	}
	s.metrics.RecordLeaderboard("miss")

	if s.cache != nil && s.lock != nil {
		token := uuid.NewString()
		got, err := s.lock.Acquire(ctx, key, token)
		switch {
		case err != nil:
			slog.Warn("leaderboard lock unavailable", "err", err)
		case got:
			defer func() {
				if err := s.lock.Release(context.WithoutCancel(ctx), key, token); err != nil {
					slog.Warn("leaderboard lock release failed", "err", err)
				}
			}()
			// 第二次检查
			if entries, ok := s.fromCache(ctx, key); ok {
				return entries, nil
			}
		default:
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(lockBackoff):
			}
			if entries, ok := s.fromCache(ctx, key); ok {
				return entries, nil
			}
		}
	}

	// 版本号必须在读聚合之前取
	var (
		version   int64
		cacheable = s.cache != nil
	)
	if cacheable {
		v, err := s.cache.Version(ctx, key)
		if err != nil {
			slog.Warn("leaderboard cache version unavailable", "err", err)
			cacheable = false
		}
		version = v
	}

	entries, err := s.Compute(ctx)
	if err != nil {
		return nil, err
	}
	if cacheable {
		if raw, err := json.Marshal(entries); err == nil {
			if !s.cache.SetIfVersion(ctx, key, raw, s.cacheTTL, version) {
				slog.Debug("leaderboard invalidated during compute, result not cached")
			}
		}
	}
	return entries, nil
}

// Invalidate 点赞/取消点赞以及删帖删评提交后调用
func (s *LeaderboardService) Invalidate(ctx context.Context) {
	if s == nil || s.cache == nil {
		return
	}
	s.cache.Invalidate(ctx, s.cacheKey())
}

// Compute 直接从点赞流水聚合，不经缓存
func (s *LeaderboardService) Compute(ctx context.Context) ([]LeaderboardEntry, error) {
	start := time.Now()
	defer func() { s.metrics.ObserveLeaderboardQuery(time.Since(start)) }()

	since := s.now().Add(-KarmaWindow)
	var postRows, commentRows []store.AuthorLikes
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		postRows, err = s.karma.PostLikesByAuthor(gctx, since)
		return err
	})
	g.Go(func() error {
		var err error
		commentRows, err = s.karma.CommentLikesByAuthor(gctx, since)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("aggregate karma: %w", err)
	}

	ranked := RankKarma(MergeKarma(postRows, commentRows), s.topN)
	ids := make([]uint64, 0, len(ranked))
	for _, r := range ranked {
		ids = append(ids, r.UserID)
	}
	users, err := s.users.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load leaderboard users: %w", err)
	}

	entries := make([]LeaderboardEntry, 0, len(ranked))
	for _, r := range ranked {
		u, ok := users[r.UserID]
		if !ok {
			continue
		}
		entries = append(entries, LeaderboardEntry{
			ID:        u.ID,
			Username:  u.Username,
			AvatarURL: u.AvatarURL,
			Karma24h:  r.Karma,
			Rank:      len(entries) + 1,
		})
	}
	return entries, nil
}

func (s *LeaderboardService) fromCache(ctx context.Context, key string) ([]LeaderboardEntry, bool) {
	if s.cache == nil {
		return nil, false
	}
	raw, ok := s.cache.Get(ctx, key)
	if !ok {
		return nil, false
	}
	var entries []LeaderboardEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		s.cache.Delete(ctx, key)
		return nil, false
	}
	return entries, true
}

type KarmaScore struct {
	UserID uint64
	Karma  int64
}

// MergeKarma 帖子赞 *5 + 评论赞 *1，取两边作者的并集
func MergeKarma(posts, comments []store.AuthorLikes) map[uint64]int64 {
	totals := make(map[uint64]int64, len(posts)+len(comments))
	for _, r := range posts {
		totals[r.AuthorID] += r.Likes * PostLikeKarma
	}
	for _, r := range comments {
		totals[r.AuthorID] += r.Likes * CommentLikeKarma
	}
	return totals
}

// RankKarma karma 降序，同分按 user id 升序；karma 为 0 的不入榜
func RankKarma(totals map[uint64]int64, n int) []KarmaScore {
	scores := make([]KarmaScore, 0, len(totals))
	for id, k := range totals {
		if k > 0 {
			scores = append(scores, KarmaScore{UserID: id, Karma: k})
		}
	}
	sort.Slice(scores, func(i, j int) bool {
		if scores[i].Karma != scores[j].Karma {
			return scores[i].Karma > scores[j].Karma
		}
		return scores[i].UserID < scores[j].UserID
	})
	if n >= 0 && len(scores) > n {
		scores = scores[:n]
	}
	return scores
}
