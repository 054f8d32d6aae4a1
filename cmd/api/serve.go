package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"sync"
	"syscall"

	"Community_Feed/internal/config"
	"Community_Feed/internal/handler"
	"Community_Feed/internal/middleware"
	"Community_Feed/internal/observability"
	"Community_Feed/internal/pkg"
	"Community_Feed/internal/repository/redis"
	"Community_Feed/internal/repository/store"
	"Community_Feed/internal/router"
	"Community_Feed/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	devAccessSecret  = "dev-access-secret"
	devRefreshSecret = "dev-refresh-secret"
)

func newServeCmd(load func() (config.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and background workers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
}

func serve(ctx context.Context, cfg config.Config) error {
	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}
	if cfg.Database.AutoMigrate {
		if err := store.Migrate(db); err != nil {
			return err
		}
	}

	// 连接redis（可选）
	var rdb *goredis.Client
	if cfg.Redis.Addr != "" {
		if rdb, err = redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB); err != nil {
			return err
		}
		defer rdb.Close()
		slog.Info("redis connected", "addr", cfg.Redis.Addr)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(reg)

	accessSecret, refreshSecret := cfg.Auth.AccessSecret, cfg.Auth.RefreshSecret
	if accessSecret == "" || refreshSecret == "" {
		slog.Warn("JWT secrets not set, using development secrets")
		accessSecret, refreshSecret = devAccessSecret, devRefreshSecret
	}
	issuer := pkg.NewTokenIssuer(accessSecret, refreshSecret, cfg.Auth.AccessTTL, cfg.Auth.RefreshTTL)

	var (
		tokens service.TokenStore
		cache  service.Cache
		locker service.Locker
	)
	if rdb != nil {
		tokens = &redis.TokenRepository{RDB: rdb, TTL: issuer.AccessTTL()}
		cache = &redis.Cache{RDB: rdb}
		locker = &redis.DistLock{RDB: rdb}
	} else {
		local, err := pkg.NewLocalCache(cfg.Leaderboard.CacheSize)
		if err != nil {
			return err
		}
		cache = local
	}

	userRepo := &store.UserRepository{DB: db}
	postRepo := &store.PostRepository{DB: db}
	commentRepo := &store.CommentRepository{DB: db}
	likeRepo := &store.LikeRepository{DB: db}

	leaderboard := service.NewLeaderboardService(&store.KarmaRepository{DB: db}, userRepo, cache, locker, metrics,
		service.LeaderboardOptions{TopN: cfg.Leaderboard.TopN, CacheTTL: cfg.Leaderboard.CacheTTL})
	likes := service.NewLikeService(likeRepo, leaderboard, metrics,
		service.LikeOptions{LockTimeout: cfg.Database.LockTimeout})
	comments := service.NewCommentService(commentRepo, postRepo, likeRepo, leaderboard)
	posts := service.NewPostService(postRepo, likeRepo, comments, leaderboard)
	users := service.NewUserService(userRepo, tokens, issuer)

	engine := router.InitRouter(router.Deps{
		Users:       handler.NewUserHandler(users),
		Posts:       handler.NewPostHandler(posts, likes),
		Comments:    handler.NewCommentHandler(comments, likes),
		Leaderboard: handler.NewLeaderboardHandler(leaderboard),
		Auth:        middleware.NewAuth(issuer, tokens),
		Metrics:     metrics,
		Gatherer:    reg,
		CORSOrigins: cfg.HTTP.CORSOrigins,
	})

	// producer 必须在后台任务退出之后才关闭
	var sender service.Sender = service.LogSender
	if cfg.Outbox.Enabled && len(cfg.Kafka.Brokers) > 0 {
		producer := pkg.NewKafkaProducer(pkg.KafkaConfig{Brokers: cfg.Kafka.Brokers, Topic: cfg.Kafka.Topic})
		defer producer.Close()
		sender = service.KafkaSender(producer)
		slog.Info("publishing like events to kafka", "topic", producer.Topic())
	}

	var wg sync.WaitGroup
	workers, cancelWorkers := context.WithCancel(ctx)
	defer func() {
		cancelWorkers()
		wg.Wait()
	}()

	if cfg.Outbox.Enabled {
		relayer := service.NewOutboxRelayer(&store.OutboxRepository{DB: db}, sender, metrics, service.RelayerOptions{
			BatchSize: cfg.Outbox.BatchSize,
			Interval:  cfg.Outbox.Interval,
			MaxRetry:  cfg.Outbox.MaxRetry,
		})
		wg.Add(1)
		go func() {
			defer wg.Done()
			relayer.Run(workers)
		}()
	}
	if cfg.Reconcile.Enabled {
		reconciler := service.NewLikeCountReconciler(&store.CounterReconcileRepository{DB: db}, metrics,
			cfg.Reconcile.BatchSize, cfg.Reconcile.Interval)
		wg.Add(1)
		go func() {
			defer wg.Done()
			reconciler.Run(workers)
		}()
	}

	srv := &http.Server{
		Addr:    cfg.HTTP.Addr,
		Handler: engine,
	}
	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "addr", cfg.HTTP.Addr, "dialect", db.Dialector.Name())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openDB(cfg config.Config) (*gorm.DB, error) {
	level := logger.Warn
	if cfg.Log.Level == "debug" {
		level = logger.Info
	}
	return store.Open(cfg.Database.URL, store.Options{
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		LogLevel:        level,
	})
}
