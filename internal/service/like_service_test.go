package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"Community_Feed/internal/model"
	"Community_Feed/internal/observability"
	"Community_Feed/internal/repository/store"
	"Community_Feed/internal/repository/store/storetest"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingInvalidator struct{ n atomic.Int32 }

func (c *countingInvalidator) Invalidate(context.Context) { c.n.Add(1) }

func TestLikeService_PostLikeFlow(t *testing.T) {
	db := storetest.NewDB(t)
	author := storetest.User(t, db, "author")
	fan := storetest.User(t, db, "fan")
	post := storetest.Post(t, db, author.ID, "p")

	inv := &countingInvalidator{}
	m := observability.NewMetrics(prometheus.NewRegistry())
	svc := NewLikeService(&store.LikeRepository{DB: db}, inv, m, LikeOptions{})
	ctx := t.Context()

	res, err := svc.Like(ctx, model.TargetPost, fan.ID, post.ID)
	require.NoError(t, err)
	assert.Equal(t, &LikeResult{Liked: true, LikeCount: 1}, res)

	_, err = svc.Like(ctx, model.TargetPost, fan.ID, post.ID)
	assert.ErrorIs(t, err, ErrAlreadyLiked)

	res, err = svc.Unlike(ctx, model.TargetPost, fan.ID, post.ID)
	require.NoError(t, err)
	assert.Equal(t, &LikeResult{Liked: false, LikeCount: 0}, res)

	_, err = svc.Unlike(ctx, model.TargetPost, fan.ID, post.ID)
	assert.ErrorIs(t, err, ErrNotLiked)

	// 只有成功的操作才让排行榜失效
	assert.Equal(t, int32(2), inv.n.Load())

	assert.Equal(t, 1.0, testutil.ToFloat64(m.LikeOperationsTotal.WithLabelValues("post", "like", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LikeOperationsTotal.WithLabelValues("post", "like", "already_liked")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LikeOperationsTotal.WithLabelValues("post", "unlike", "not_liked")))
}

func TestLikeService_CommentLikeUsesCommentCounter(t *testing.T) {
	db := storetest.NewDB(t)
	author := storetest.User(t, db, "author")
	fan := storetest.User(t, db, "fan")
	post := storetest.Post(t, db, author.ID, "p")
	c := storetest.Comment(t, db, post.ID, author.ID, nil, "c", time.Time{})
	svc := NewLikeService(&store.LikeRepository{DB: db}, nil, nil, LikeOptions{})

	res, err := svc.Like(t.Context(), model.TargetComment, fan.ID, c.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.LikeCount)

	var reloaded model.Comment
	require.NoError(t, db.First(&reloaded, c.ID).Error)
	assert.Equal(t, int64(1), reloaded.LikeCount)
}

func TestLikeService_Errors(t *testing.T) {
	db := storetest.NewDB(t)
	u := storetest.User(t, db, "u")
	svc := NewLikeService(&store.LikeRepository{DB: db}, nil, nil, LikeOptions{})

	_, err := svc.Like(t.Context(), model.TargetPost, 0, 1)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	_, err = svc.Like(t.Context(), model.TargetPost, u.ID, 404)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Unlike(t.Context(), model.TargetComment, u.ID, 404)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLikeService_RecordsLikeTime(t *testing.T) {
	db := storetest.NewDB(t)
	author := storetest.User(t, db, "author")
	post := storetest.Post(t, db, author.ID, "p")
	at := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	svc := NewLikeService(&store.LikeRepository{DB: db}, nil, nil, LikeOptions{Now: func() time.Time { return at }})

	_, err := svc.Like(t.Context(), model.TargetPost, author.ID, post.ID)
	require.NoError(t, err)

	var like model.PostLike
	require.NoError(t, db.First(&like).Error)
	assert.True(t, like.CreatedAt.Equal(at))
}

func TestTranslate(t *testing.T) {
	assert.ErrorIs(t, translate(store.ErrLikeExists), ErrAlreadyLiked)
	assert.ErrorIs(t, translate(store.ErrLikeMissing), ErrNotLiked)
	assert.ErrorIs(t, translate(store.ErrTargetNotFound), ErrNotFound)
	assert.ErrorIs(t, translate(context.DeadlineExceeded), ErrLockTimeout)
	assert.NoError(t, translate(nil))

	other := errors.New("boom")
	assert.Same(t, other, translate(other))
	assert.ErrorIs(t, wrap("op", other), other)
	assert.Contains(t, wrap("op", other).Error(), "op: boom")
	assert.Equal(t, ErrNotFound, wrap("op", store.ErrTargetNotFound))
}

func TestValidationError(t *testing.T) {
	v := &ValidationError{}
	assert.NoError(t, v.Err())

	v.Add("content", "This field may not be blank.")
	v.Add("post", "This field is required.")
	require.Error(t, v.Err())
	assert.Equal(t, "validation failed: content: This field may not be blank.; post: This field is required.", v.Error())
}
