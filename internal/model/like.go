package model

import "time"

// TargetKind 点赞对象类型
type TargetKind string

const (
	TargetPost    TargetKind = "post"
	TargetComment TargetKind = "comment"
)

// PostLike 帖子点赞流水，(user_id, post_id) 唯一
type PostLike struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement"`
	UserID    uint64    `gorm:"not null;uniqueIndex:uk_post_like_user_post,priority:1"`
	User      User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	PostID    uint64    `gorm:"not null;uniqueIndex:uk_post_like_user_post,priority:2;index:idx_post_like_post_time,priority:1"`
	Post      Post      `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time `gorm:"not null;index:idx_post_like_created;index:idx_post_like_post_time,priority:2"`
}

func (PostLike) TableName() string {
	return "post_likes"
}

// CommentLike 评论点赞流水，(user_id, comment_id) 唯一
type CommentLike struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement"`
	UserID    uint64    `gorm:"not null;uniqueIndex:uk_comment_like_user_comment,priority:1"`
	User      User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	CommentID uint64    `gorm:"not null;uniqueIndex:uk_comment_like_user_comment,priority:2;index:idx_comment_like_comment_time,priority:1"`
	Comment   Comment   `gorm:"foreignKey:CommentID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time `gorm:"not null;index:idx_comment_like_created;index:idx_comment_like_comment_time,priority:2"`
}

func (CommentLike) TableName() string {
	return "comment_likes"
}
