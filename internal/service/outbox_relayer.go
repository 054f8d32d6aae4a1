package service

import (
	"context"
	"log/slog"
	"time"

	"Community_Feed/internal/model"
	"Community_Feed/internal/observability"
	"Community_Feed/internal/pkg"
	"Community_Feed/internal/repository/store"
)

type Sender func(ctx context.Context, ob *model.LikeOutbox) error

type RelayerOptions struct {
	BatchSize int
	Interval  time.Duration
	MaxRetry  int
}

// OutboxRelayer 从 like_outbox 读取待投递事件，异步交给 sender
type OutboxRelayer struct {
	repo      *store.OutboxRepository
	sender    Sender
	metrics   *observability.Metrics
	batchSize int
	interval  time.Duration
	maxRetry  int
}

func NewOutboxRelayer(repo *store.OutboxRepository, sender Sender, metrics *observability.Metrics, opt RelayerOptions) *OutboxRelayer {
	if opt.BatchSize <= 0 {
		opt.BatchSize = 200
	}
	if opt.Interval <= 0 {
		opt.Interval = time.Second
	}
	if opt.MaxRetry <= 0 {
		opt.MaxRetry = 5
	}
	if sender == nil {
		sender = LogSender
	}
	return &OutboxRelayer{
		repo:      repo,
		sender:    sender,
		metrics:   metrics,
		batchSize: opt.BatchSize,
		interval:  opt.Interval,
		maxRetry:  opt.MaxRetry,
	}
}

// Run 阻塞直到 ctx 取消
func (r *OutboxRelayer) Run(ctx context.Context) {
	t := time.NewTicker(r.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if _, err := r.DrainOnce(ctx); err != nil && ctx.Err() == nil {
				slog.Error("outbox drain failed", "err", err)
			}
		}
	}
}

// DrainOnce 投递一批，返回成功条数
func (r *OutboxRelayer) DrainOnce(ctx context.Context) (int, error) {
	rows, err := r.repo.ListPending(ctx, r.batchSize)
	if err != nil {
		return 0, err
	}
	sent := 0
	for i := range rows {
		ob := rows[i]
		if err := r.sender(ctx, &ob); err != nil {
			giveUp := ob.Retry+1 >= r.maxRetry
			if uerr := r.repo.MarkRetry(ctx, ob.ID, giveUp); uerr != nil {
				return sent, uerr
			}
			if giveUp {
				r.metrics.RecordOutbox("failed")
				slog.Error("outbox event dropped", "id", ob.ID, "event_id", ob.EventID, "err", err)
			} else {
				r.metrics.RecordOutbox("retry")
				slog.Warn("outbox send failed", "id", ob.ID, "retry", ob.Retry+1, "err", err)
			}
			continue
		}
		if err := r.repo.MarkSent(ctx, ob.ID); err != nil {
			return sent, err
		}
		r.metrics.RecordOutbox("sent")
		sent++
	}
	return sent, nil
}

// LogSender 未配置 kafka 时的默认 sender
func LogSender(_ context.Context, ob *model.LikeOutbox) error {
	slog.Info("outbox event",
		"event_id", ob.EventID,
		"type", ob.EventType,
		"target_type", ob.TargetType,
		"target_id", ob.TargetID,
		"user_id", ob.UserID)
	return nil
}

// KafkaSender 以目标为 key 投递，同一目标的事件落在同一分区
func KafkaSender(p *pkg.KafkaProducer) Sender {
	return func(ctx context.Context, ob *model.LikeOutbox) error {
		return p.Send(ctx, pkg.MakeKeyFromID(string(ob.TargetType), ob.TargetID), []byte(ob.Payload), map[string]string{
			"event_id":   ob.EventID,
			"event_type": ob.EventType,
		})
	}
}
