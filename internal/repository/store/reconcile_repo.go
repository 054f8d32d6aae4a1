package store

import (
	"context"

	"Community_Feed/internal/model"

	"gorm.io/gorm"
)

// CounterRow 对账用的 (id, like_count)
type CounterRow struct {
	ID        uint64
	LikeCount int64
}

type CounterReconcileRepository struct {
	DB *gorm.DB
}

// Batch 按 id 游标分批取计数
func (r *CounterReconcileRepository) Batch(ctx context.Context, kind model.TargetKind, lastID uint64, size int) ([]CounterRow, error) {
	l, err := ledgerFor(kind)
	if err != nil {
		return nil, err
	}
	var rows []CounterRow
	err = r.DB.WithContext(ctx).Model(l.target()).
		Select("id, like_count").
		Where("id > ?", lastID).
		Order("id ASC").
		Limit(size).
		Scan(&rows).Error
	return rows, err
}

// LedgerCounts 一次 GROUP BY 得到这批目标在流水表中的真实数量
func (r *CounterReconcileRepository) LedgerCounts(ctx context.Context, kind model.TargetKind, ids []uint64) (map[uint64]int64, error) {
	out := make(map[uint64]int64, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	l, err := ledgerFor(kind)
	if err != nil {
		return nil, err
	}
	var rows []CounterRow
	if err := r.DB.WithContext(ctx).Model(l.empty()).
		Select(l.fk+" AS id, COUNT(*) AS like_count").
		Where(l.fk+" IN ?", ids).
		Group(l.fk).
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ID] = row.LikeCount
	}
	return out, nil
}

// Repair 锁住目标行后重新计数并修正，避免与在途点赞交错；返回是否改动
func (r *CounterReconcileRepository) Repair(ctx context.Context, kind model.TargetKind, id uint64) (bool, error) {
	l, err := ledgerFor(kind)
	if err != nil {
		return false, err
	}
	var fixed bool
	err = r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockTarget(tx, l, id); err != nil {
			return err
		}
		current, err := readCount(tx, l, id)
		if err != nil {
			return err
		}
		var actual int64
		if err := tx.Model(l.empty()).Where(l.fk+" = ?", id).Count(&actual).Error; err != nil {
			return err
		}
		if actual == current {
			return nil
		}
		fixed = true
		return tx.Model(l.target()).Where("id = ?", id).UpdateColumn("like_count", actual).Error
	})
	return fixed, err
}
