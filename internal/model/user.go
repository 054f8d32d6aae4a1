package model

import "time"

type User struct {
	ID        uint64 `gorm:"primaryKey"`
	Username  string `gorm:"uniqueIndex;size:150;not null"`
	Email     string `gorm:"size:254"`
	Password  string `gorm:"size:255;not null"`
	Bio       string `gorm:"size:500"`
	AvatarURL string `gorm:"size:200"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
