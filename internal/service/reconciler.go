package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"Community_Feed/internal/model"
	"Community_Feed/internal/observability"
	"Community_Feed/internal/repository/store"
)

// LikeCountReconciler 定时用点赞流水校正 like_count
type LikeCountReconciler struct {
	repo      *store.CounterReconcileRepository
	metrics   *observability.Metrics
	batchSize int
	interval  time.Duration
}

func NewLikeCountReconciler(repo *store.CounterReconcileRepository, metrics *observability.Metrics, batchSize int, interval time.Duration) *LikeCountReconciler {
	if batchSize <= 0 {
		batchSize = 500
	}
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &LikeCountReconciler{repo: repo, metrics: metrics, batchSize: batchSize, interval: interval}
}

// Run 对账定时任务启动器
func (r *LikeCountReconciler) Run(ctx context.Context) {
	t := time.NewTicker(r.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := r.ReconcileOnce(ctx)
			if err != nil && ctx.Err() == nil {
				slog.Error("like count reconcile failed", "err", err)
				continue
			}
			if n > 0 {
				slog.Warn("like counters repaired", "count", n)
			}
		}
	}
}

// ReconcileOnce 全量对账一次，返回修正条数
func (r *LikeCountReconciler) ReconcileOnce(ctx context.Context) (int, error) {
	total := 0
	for _, kind := range []model.TargetKind{model.TargetPost, model.TargetComment} {
		n, err := r.reconcileKind(ctx, kind)
		total += n
		r.metrics.RecordRepair(string(kind), n)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func (r *LikeCountReconciler) reconcileKind(ctx context.Context, kind model.TargetKind) (int, error) {
	fixed := 0
	var lastID uint64
	for {
		rows, err := r.repo.Batch(ctx, kind, lastID, r.batchSize)
		if err != nil {
			return fixed, err
		}
		if len(rows) == 0 {
			return fixed, nil
		}
		ids := make([]uint64, 0, len(rows))
		for _, row := range rows {
			ids = append(ids, row.ID)
		}
		counts, err := r.repo.LedgerCounts(ctx, kind, ids)
		if err != nil {
			return fixed, err
		}
		for _, row := range rows {
			if counts[row.ID] == row.LikeCount {
				continue
			}
			// 先粗筛再加锁确认，避免误改在途的点赞
			changed, err := r.repo.Repair(ctx, kind, row.ID)
			if errors.Is(err, store.ErrTargetNotFound) {
				continue
			}
			if err != nil {
				return fixed, err
			}
			if changed {
				fixed++
			}
		}
		lastID = rows[len(rows)-1].ID
		if len(rows) < r.batchSize {
			return fixed, nil
		}
	}
}
