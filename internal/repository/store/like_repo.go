package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"Community_Feed/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ledger 描述一种点赞对象：被点赞表与流水表
type ledger struct {
	target func() any
	entry  func(userID, targetID uint64, at time.Time) any
	empty  func() any
	fk     string
}

var ledgers = map[model.TargetKind]ledger{
	model.TargetPost: {
		target: func() any { return &model.Post{} },
		entry: func(userID, targetID uint64, at time.Time) any {
			return &model.PostLike{UserID: userID, PostID: targetID, CreatedAt: at}
		},
		empty: func() any { return &model.PostLike{} },
		fk:    "post_id",
	},
	model.TargetComment: {
		target: func() any { return &model.Comment{} },
		entry: func(userID, targetID uint64, at time.Time) any {
			return &model.CommentLike{UserID: userID, CommentID: targetID, CreatedAt: at}
		},
		empty: func() any { return &model.CommentLike{} },
		fk:    "comment_id",
	},
}

func ledgerFor(kind model.TargetKind) (ledger, error) {
	l, ok := ledgers[kind]
	if !ok {
		return ledger{}, fmt.Errorf("unknown like target %q", kind)
	}
	return l, nil
}

type LikeRepository struct {
	DB *gorm.DB
}

// Like 锁目标行 -> 插流水 -> 计数+1 -> 写outbox -> 回读计数，全部在一个事务里
func (r *LikeRepository) Like(ctx context.Context, kind model.TargetKind, userID, targetID uint64, at time.Time) (int64, error) {
	l, err := ledgerFor(kind)
	if err != nil {
		return 0, err
	}
	var count int64
	err = r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockTarget(tx, l, targetID); err != nil {
			return err
		}
		// 唯一索引 (user, target) 是防重复点赞的最终裁决
		if err := tx.Omit(clause.Associations).Create(l.entry(userID, targetID, at)).Error; err != nil {
			if IsUniqueViolation(err) {
				return ErrLikeExists
			}
			return err
		}
		if err := tx.Model(l.target()).
			Where("id = ?", targetID).
			UpdateColumn("like_count", gorm.Expr("like_count + 1")).Error; err != nil {
			return err
		}
		if err := insertOutbox(tx, "like", kind, userID, targetID, at); err != nil {
			return err
		}
		count, err = readCount(tx, l, targetID)
		return err
	})
	return count, err
}

// Unlike 删除流水；未删到任何行说明没点过赞
func (r *LikeRepository) Unlike(ctx context.Context, kind model.TargetKind, userID, targetID uint64, at time.Time) (int64, error) {
	l, err := ledgerFor(kind)
	if err != nil {
		return 0, err
	}
	var count int64
	err = r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockTarget(tx, l, targetID); err != nil {
			return err
		}
		res := tx.Where("user_id = ? AND "+l.fk+" = ?", userID, targetID).Delete(l.empty())
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrLikeMissing
		}
		if err := tx.Model(l.target()).
			Where("id = ?", targetID).
			UpdateColumn("like_count", gorm.Expr("CASE WHEN like_count > 0 THEN like_count - 1 ELSE 0 END")).Error; err != nil {
			return err
		}
		if err := insertOutbox(tx, "unlike", kind, userID, targetID, at); err != nil {
			return err
		}
		count, err = readCount(tx, l, targetID)
		return err
	})
	return count, err
}

// LikedIDs 返回 ids 中用户已点赞的集合
func (r *LikeRepository) LikedIDs(ctx context.Context, kind model.TargetKind, userID uint64, ids []uint64) (map[uint64]bool, error) {
	out := make(map[uint64]bool)
	if userID == 0 || len(ids) == 0 {
		return out, nil
	}
	l, err := ledgerFor(kind)
	if err != nil {
		return nil, err
	}
	var liked []uint64
	if err := r.DB.WithContext(ctx).Model(l.empty()).
		Where("user_id = ? AND "+l.fk+" IN ?", userID, ids).
		Pluck(l.fk, &liked).Error; err != nil {
		return nil, err
	}
	for _, id := range liked {
		out[id] = true
	}
	return out, nil
}

// LikedCommentsInPost 用户在某帖子下点过赞的评论，一次联表查询
func (r *LikeRepository) LikedCommentsInPost(ctx context.Context, userID, postID uint64) (map[uint64]bool, error) {
	out := make(map[uint64]bool)
	if userID == 0 {
		return out, nil
	}
	var liked []uint64
	if err := r.DB.WithContext(ctx).Model(&model.CommentLike{}).
		Joins("JOIN comments ON comments.id = comment_likes.comment_id").
		Where("comment_likes.user_id = ? AND comments.post_id = ?", userID, postID).
		Pluck("comment_likes.comment_id", &liked).Error; err != nil {
		return nil, err
	}
	for _, id := range liked {
		out[id] = true
	}
	return out, nil
}

// CountLedger 流水表中的真实点赞数
func (r *LikeRepository) CountLedger(ctx context.Context, kind model.TargetKind, targetID uint64) (int64, error) {
	l, err := ledgerFor(kind)
	if err != nil {
		return 0, err
	}
	var n int64
	err = r.DB.WithContext(ctx).Model(l.empty()).Where(l.fk+" = ?", targetID).Count(&n).Error
	return n, err
}

// forUpdate sqlite 没有行锁，写事务在库级串行
func forUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

func lockTarget(tx *gorm.DB, l ledger, targetID uint64) error {
	var ids []uint64
	if err := forUpdate(tx).Model(l.target()).Where("id = ?", targetID).Pluck("id", &ids).Error; err != nil {
		return err
	}
	if len(ids) == 0 {
		return ErrTargetNotFound
	}
	return nil
}

func readCount(tx *gorm.DB, l ledger, targetID uint64) (int64, error) {
	var counts []int64
	if err := tx.Model(l.target()).Where("id = ?", targetID).Pluck("like_count", &counts).Error; err != nil {
		return 0, err
	}
	if len(counts) == 0 {
		return 0, ErrTargetNotFound
	}
	return counts[0], nil
}

// insertOutbox 写点赞事件
func insertOutbox(tx *gorm.DB, event string, kind model.TargetKind, userID, targetID uint64, at time.Time) error {
	eventID := uuid.NewString()
	payload, err := json.Marshal(map[string]any{
		"event_id":    eventID,
		"event":       event,
		"target_type": kind,
		"target_id":   targetID,
		"user_id":     userID,
		"event_time":  at.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return err
	}
	return tx.Create(&model.LikeOutbox{
		EventID:    eventID,
		EventType:  event,
		TargetType: kind,
		TargetID:   targetID,
		UserID:     userID,
		Payload:    string(payload),
		Status:     model.OutboxPending,
	}).Error
}
