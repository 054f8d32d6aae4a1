package model

import "time"

const CommentContentMax = 1000

// Comment 以邻接表(parent_id)存储，层级在读取时由树结构推导
type Comment struct {
	ID        uint64    `gorm:"primaryKey"`
	PostID    uint64    `gorm:"not null;index:idx_comment_post_time,priority:1"`
	Post      Post      `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE"`
	AuthorID  uint64    `gorm:"not null;index:idx_comment_author"`
	Author    User      `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE"`
	ParentID  *uint64   `gorm:"index:idx_comment_parent"`
	Parent    *Comment  `gorm:"foreignKey:ParentID;constraint:OnDelete:CASCADE"`
	Content   string    `gorm:"size:1000;not null"`
	LikeCount int64     `gorm:"not null;default:0"`
	CreatedAt time.Time `gorm:"index:idx_comment_post_time,priority:2"`
	UpdatedAt time.Time
}
