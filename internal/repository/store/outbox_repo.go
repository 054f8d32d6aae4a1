package store

import (
	"context"

	"Community_Feed/internal/model"

	"gorm.io/gorm"
)

type OutboxRepository struct {
	DB *gorm.DB
}

// ListPending 按 id 顺序取待投递事件
func (r *OutboxRepository) ListPending(ctx context.Context, batchSize int) ([]model.LikeOutbox, error) {
	var list []model.LikeOutbox
	if err := r.DB.WithContext(ctx).
		Where("status = ?", model.OutboxPending).
		Order("id ASC").
		Limit(batchSize).
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// MarkRetry 投递失败重试+1，达到上限时 giveUp=true 置为失败
func (r *OutboxRepository) MarkRetry(ctx context.Context, id uint64, giveUp bool) error {
	status := model.OutboxPending
	if giveUp {
		status = model.OutboxFailed
	}
	return r.DB.WithContext(ctx).Model(&model.LikeOutbox{}).Where("id = ?", id).
		Updates(map[string]any{"status": status, "retry": gorm.Expr("retry + 1")}).Error
}

func (r *OutboxRepository) MarkSent(ctx context.Context, id uint64) error {
	return r.DB.WithContext(ctx).Model(&model.LikeOutbox{}).Where("id = ?", id).
		Update("status", model.OutboxSent).Error
}
