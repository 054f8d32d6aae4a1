// Package storetest 为测试提供内存 sqlite 库与造数工具
package storetest

import (
	"fmt"
	"testing"
	"time"

	"Community_Feed/internal/model"
	"Community_Feed/internal/repository/store"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// NewDB 每次调用返回一个独立的、已建表的内存库
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()
	db, err := store.Open("sqlite://:memory:", store.Options{LogLevel: logger.Silent})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := store.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func User(t testing.TB, db *gorm.DB, username string) *model.User {
	t.Helper()
	u := &model.User{
		Username:  username,
		Email:     fmt.Sprintf("%s@example.com", username),
		Password:  "not-a-hash",
		AvatarURL: "https://example.com/" + username + ".png",
	}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return u
}

func Post(t testing.TB, db *gorm.DB, authorID uint64, content string) *model.Post {
	t.Helper()
	p := &model.Post{AuthorID: authorID, Content: content}
	if err := db.Omit(clause.Associations).Create(p).Error; err != nil {
		t.Fatalf("create post: %v", err)
	}
	return p
}

// Comment at 为零值时使用当前时间
func Comment(t testing.TB, db *gorm.DB, postID, authorID uint64, parentID *uint64, content string, at time.Time) *model.Comment {
	t.Helper()
	c := &model.Comment{PostID: postID, AuthorID: authorID, ParentID: parentID, Content: content}
	if !at.IsZero() {
		c.CreatedAt = at
		c.UpdatedAt = at
	}
	if err := db.Omit(clause.Associations).Create(c).Error; err != nil {
		t.Fatalf("create comment: %v", err)
	}
	return c
}

// PostLike 直接写流水并同步计数，用于构造指定时间的点赞
func PostLike(t testing.TB, db *gorm.DB, userID, postID uint64, at time.Time) {
	t.Helper()
	if _, err := (&store.LikeRepository{DB: db}).Like(t.Context(), model.TargetPost, userID, postID, at); err != nil {
		t.Fatalf("like post %d: %v", postID, err)
	}
}

func CommentLike(t testing.TB, db *gorm.DB, userID, commentID uint64, at time.Time) {
	t.Helper()
	if _, err := (&store.LikeRepository{DB: db}).Like(t.Context(), model.TargetComment, userID, commentID, at); err != nil {
		t.Fatalf("like comment %d: %v", commentID, err)
	}
}

func Ptr(id uint64) *uint64 { return &id }
