package model

import "time"

const (
	OutboxPending int8 = 0
	OutboxSent    int8 = 1
	OutboxFailed  int8 = 2
)

// LikeOutbox 点赞事件表，与点赞在同一事务内写入
type LikeOutbox struct {
	ID         uint64     `gorm:"primaryKey;index:idx_outbox_status_id,priority:2"`
	EventID    string     `gorm:"size:36;not null;uniqueIndex"`
	EventType  string     `gorm:"size:16;not null"` // like / unlike
	TargetType TargetKind `gorm:"size:16;not null"`
	TargetID   uint64     `gorm:"not null"`
	UserID     uint64     `gorm:"not null"`
	Payload    string     `gorm:"type:text;not null"`
	Status     int8       `gorm:"not null;default:0;index:idx_outbox_status_id,priority:1"` // 0=pending,1=sent,2=failed
	Retry      int        `gorm:"not null;default:0"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (LikeOutbox) TableName() string { return "like_outbox" }

// All 需要自动建表的模型，顺序即外键依赖顺序
func All() []any {
	return []any{
		&User{},
		&Post{},
		&Comment{},
		&PostLike{},
		&CommentLike{},
		&LikeOutbox{},
	}
}
