package store

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// AuthorLikes 某作者在窗口内收到的点赞数
type AuthorLikes struct {
	AuthorID uint64
	Likes    int64
}

type KarmaRepository struct {
	DB *gorm.DB
}

// PostLikesByAuthor 按被赞帖子的作者分组，而不是按点赞人
func (r *KarmaRepository) PostLikesByAuthor(ctx context.Context, since time.Time) ([]AuthorLikes, error) {
	var rows []AuthorLikes
	err := r.DB.WithContext(ctx).Table("post_likes").
		Select("posts.author_id AS author_id, COUNT(*) AS likes").
		Joins("JOIN posts ON posts.id = post_likes.post_id").
		Where("post_likes.created_at >= ?", since).
		Group("posts.author_id").
		Scan(&rows).Error
	return rows, err
}

// CommentLikesByAuthor 同上，按被赞评论的作者分组
func (r *KarmaRepository) CommentLikesByAuthor(ctx context.Context, since time.Time) ([]AuthorLikes, error) {
	var rows []AuthorLikes
	err := r.DB.WithContext(ctx).Table("comment_likes").
		Select("comments.author_id AS author_id, COUNT(*) AS likes").
		Joins("JOIN comments ON comments.id = comment_likes.comment_id").
		Where("comment_likes.created_at >= ?", since).
		Group("comments.author_id").
		Scan(&rows).Error
	return rows, err
}
