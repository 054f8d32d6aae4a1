package store_test

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"Community_Feed/internal/model"
	"Community_Feed/internal/repository/store"
	"Community_Feed/internal/repository/store/storetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLikeRepository_LikeThenUnlike(t *testing.T) {
	db := storetest.NewDB(t)
	author := storetest.User(t, db, "author")
	fan := storetest.User(t, db, "fan")
	post := storetest.Post(t, db, author.ID, "hello")
	repo := &store.LikeRepository{DB: db}
	ctx := t.Context()
	now := time.Now().UTC()

	count, err := repo.Like(ctx, model.TargetPost, fan.ID, post.ID, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	ledger, err := repo.CountLedger(ctx, model.TargetPost, post.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), ledger)

	count, err = repo.Unlike(ctx, model.TargetPost, fan.ID, post.ID, now)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)

	ledger, err = repo.CountLedger(ctx, model.TargetPost, post.ID)
	require.NoError(t, err)
	assert.Zero(t, ledger)
}

func TestLikeRepository_DuplicateLikeRejected(t *testing.T) {
	db := storetest.NewDB(t)
	author := storetest.User(t, db, "author")
	fan := storetest.User(t, db, "fan")
	post := storetest.Post(t, db, author.ID, "hello")
	repo := &store.LikeRepository{DB: db}
	now := time.Now().UTC()

	_, err := repo.Like(t.Context(), model.TargetPost, fan.ID, post.ID, now)
	require.NoError(t, err)

	_, err = repo.Like(t.Context(), model.TargetPost, fan.ID, post.ID, now)
	require.ErrorIs(t, err, store.ErrLikeExists)

	// 失败的事务不能留下计数变化
	var reloaded model.Post
	require.NoError(t, db.First(&reloaded, post.ID).Error)
	assert.Equal(t, int64(1), reloaded.LikeCount)
}

func TestLikeRepository_UnlikeWithoutLike(t *testing.T) {
	db := storetest.NewDB(t)
	author := storetest.User(t, db, "author")
	post := storetest.Post(t, db, author.ID, "hello")
	repo := &store.LikeRepository{DB: db}

	_, err := repo.Unlike(t.Context(), model.TargetPost, author.ID, post.ID, time.Now().UTC())
	require.ErrorIs(t, err, store.ErrLikeMissing)

	var reloaded model.Post
	require.NoError(t, db.First(&reloaded, post.ID).Error)
	assert.Zero(t, reloaded.LikeCount)
}

func TestLikeRepository_MissingTarget(t *testing.T) {
	db := storetest.NewDB(t)
	u := storetest.User(t, db, "u")
	repo := &store.LikeRepository{DB: db}

	_, err := repo.Like(t.Context(), model.TargetPost, u.ID, 999, time.Now().UTC())
	assert.ErrorIs(t, err, store.ErrTargetNotFound)

	_, err = repo.Unlike(t.Context(), model.TargetComment, u.ID, 999, time.Now().UTC())
	assert.ErrorIs(t, err, store.ErrTargetNotFound)
}

func TestLikeRepository_UnknownKind(t *testing.T) {
	repo := &store.LikeRepository{DB: storetest.NewDB(t)}
	_, err := repo.Like(t.Context(), model.TargetKind("story"), 1, 1, time.Now())
	assert.Error(t, err)
}

func TestLikeRepository_CommentLike(t *testing.T) {
	db := storetest.NewDB(t)
	author := storetest.User(t, db, "author")
	fan := storetest.User(t, db, "fan")
	post := storetest.Post(t, db, author.ID, "hello")
	c := storetest.Comment(t, db, post.ID, author.ID, nil, "first", time.Time{})
	repo := &store.LikeRepository{DB: db}

	count, err := repo.Like(t.Context(), model.TargetComment, fan.ID, c.ID, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	// 评论点赞不影响帖子计数
	var reloaded model.Post
	require.NoError(t, db.First(&reloaded, post.ID).Error)
	assert.Zero(t, reloaded.LikeCount)

	liked, err := repo.LikedCommentsInPost(t.Context(), fan.ID, post.ID)
	require.NoError(t, err)
	assert.Equal(t, map[uint64]bool{c.ID: true}, liked)
}

func TestLikeRepository_ConcurrentLikes(t *testing.T) {
	db := storetest.NewDB(t)
	author := storetest.User(t, db, "author")
	post := storetest.Post(t, db, author.ID, "popular")
	repo := &store.LikeRepository{DB: db}

	const n = 20
	users := make([]*model.User, n)
	for i := range users {
		users[i] = storetest.User(t, db, fmt.Sprintf("fan%02d", i))
	}

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for _, u := range users {
		wg.Add(1)
		go func(uid uint64) {
			defer wg.Done()
			_, err := repo.Like(t.Context(), model.TargetPost, uid, post.ID, time.Now().UTC())
			errs <- err
		}(u.ID)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	var reloaded model.Post
	require.NoError(t, db.First(&reloaded, post.ID).Error)
	assert.Equal(t, int64(n), reloaded.LikeCount)

	ledger, err := repo.CountLedger(t.Context(), model.TargetPost, post.ID)
	require.NoError(t, err)
	assert.Equal(t, reloaded.LikeCount, ledger)
}

func TestLikeRepository_ConcurrentDuplicateLikes(t *testing.T) {
	db := storetest.NewDB(t)
	author := storetest.User(t, db, "author")
	fan := storetest.User(t, db, "fan")
	post := storetest.Post(t, db, author.ID, "hello")
	repo := &store.LikeRepository{DB: db}

	const n = 10
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		ok     int
		dupErr int
	)
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.Like(t.Context(), model.TargetPost, fan.ID, post.ID, time.Now().UTC())
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case assert.ErrorIs(t, err, store.ErrLikeExists):
				dupErr++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, ok)
	assert.Equal(t, n-1, dupErr)

	var reloaded model.Post
	require.NoError(t, db.First(&reloaded, post.ID).Error)
	assert.Equal(t, int64(1), reloaded.LikeCount)
}

func TestLikeRepository_WritesOutboxInSameTransaction(t *testing.T) {
	db := storetest.NewDB(t)
	author := storetest.User(t, db, "author")
	fan := storetest.User(t, db, "fan")
	post := storetest.Post(t, db, author.ID, "hello")
	repo := &store.LikeRepository{DB: db}
	outbox := &store.OutboxRepository{DB: db}
	now := time.Now().UTC()

	_, err := repo.Like(t.Context(), model.TargetPost, fan.ID, post.ID, now)
	require.NoError(t, err)
	_, err = repo.Like(t.Context(), model.TargetPost, fan.ID, post.ID, now)
	require.ErrorIs(t, err, store.ErrLikeExists)
	_, err = repo.Unlike(t.Context(), model.TargetPost, fan.ID, post.ID, now)
	require.NoError(t, err)

	pending, err := outbox.ListPending(t.Context(), 10)
	require.NoError(t, err)
	require.Len(t, pending, 2, "rejected like must not emit an event")
	assert.Equal(t, "like", pending[0].EventType)
	assert.Equal(t, "unlike", pending[1].EventType)
	assert.Equal(t, model.TargetPost, pending[0].TargetType)
	assert.Equal(t, post.ID, pending[0].TargetID)
	assert.Equal(t, fan.ID, pending[0].UserID)
	assert.NotEqual(t, pending[0].EventID, pending[1].EventID)
	assert.Contains(t, pending[0].Payload, pending[0].EventID)
}

func TestLikeRepository_LikedIDs(t *testing.T) {
	db := storetest.NewDB(t)
	author := storetest.User(t, db, "author")
	fan := storetest.User(t, db, "fan")
	p1 := storetest.Post(t, db, author.ID, "one")
	p2 := storetest.Post(t, db, author.ID, "two")
	storetest.PostLike(t, db, fan.ID, p2.ID, time.Now().UTC())
	repo := &store.LikeRepository{DB: db}

	liked, err := repo.LikedIDs(t.Context(), model.TargetPost, fan.ID, []uint64{p1.ID, p2.ID})
	require.NoError(t, err)
	assert.Equal(t, map[uint64]bool{p2.ID: true}, liked)

	anon, err := repo.LikedIDs(t.Context(), model.TargetPost, 0, []uint64{p1.ID, p2.ID})
	require.NoError(t, err)
	assert.Empty(t, anon)
}
