package service

import (
	"context"
	"errors"
	"time"

	"Community_Feed/internal/model"
	"Community_Feed/internal/observability"
	"Community_Feed/internal/repository/store"
)

const DefaultLockTimeout = 5 * time.Second

// leaderboardInvalidator 点赞变化后让排行榜缓存失效
type leaderboardInvalidator interface {
	Invalidate(ctx context.Context)
}

type LikeOptions struct {
	// LockTimeout 限制等待目标行锁的时间，超时返回 ErrLockTimeout
	LockTimeout time.Duration
	Now         func() time.Time
}

type LikeService struct {
	repo        *store.LikeRepository
	leaderboard leaderboardInvalidator
	metrics     *observability.Metrics
	lockTimeout time.Duration
	now         func() time.Time
}

func NewLikeService(repo *store.LikeRepository, leaderboard leaderboardInvalidator, metrics *observability.Metrics, opt LikeOptions) *LikeService {
	if opt.LockTimeout <= 0 {
		opt.LockTimeout = DefaultLockTimeout
	}
	if opt.Now == nil {
		opt.Now = func() time.Time { return time.Now().UTC() }
	}
	return &LikeService{
		repo:        repo,
		leaderboard: leaderboard,
		metrics:     metrics,
		lockTimeout: opt.LockTimeout,
		now:         opt.Now,
	}
}

func (s *LikeService) Like(ctx context.Context, kind model.TargetKind, userID, targetID uint64) (*LikeResult, error) {
	return s.toggle(ctx, kind, "like", userID, targetID)
}

func (s *LikeService) Unlike(ctx context.Context, kind model.TargetKind, userID, targetID uint64) (*LikeResult, error) {
	return s.toggle(ctx, kind, "unlike", userID, targetID)
}

func (s *LikeService) toggle(ctx context.Context, kind model.TargetKind, action string, userID, targetID uint64) (*LikeResult, error) {
	if userID == 0 {
		return nil, ErrUnauthenticated
	}
	if targetID == 0 {
		return nil, ErrNotFound
	}

	txCtx, cancel := context.WithTimeout(ctx, s.lockTimeout)
	defer cancel()

	var (
		count int64
		err   error
	)
	if action == "like" {
		count, err = s.repo.Like(txCtx, kind, userID, targetID, s.now())
	} else {
		count, err = s.repo.Unlike(txCtx, kind, userID, targetID, s.now())
	}
	err = wrap(action+" "+string(kind), err)
	s.metrics.RecordLike(string(kind), action, likeResult(err))
	if err != nil {
		return nil, err
	}

	if s.leaderboard != nil {
		s.leaderboard.Invalidate(ctx)
	}
	return &LikeResult{Liked: action == "like", LikeCount: count}, nil
}

func likeResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrAlreadyLiked):
		return "already_liked"
	case errors.Is(err, ErrNotLiked):
		return "not_liked"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrLockTimeout):
		return "lock_timeout"
	}
	return "error"
}
