package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"advisor_analytics_backend/internal/analytics/cache"
	"advisor_analytics_backend/internal/analytics/repository"
	"advisor_analytics_backend/internal/analytics/service"
	"advisor_analytics_backend/internal/crm"
	"advisor_analytics_backend/internal/notify"
	"advisor_analytics_backend/internal/scheduler"
	"advisor_analytics_backend/internal/scheduling"
	appsync "advisor_analytics_backend/internal/sync"
	"advisor_analytics_backend/platform/config"
	"advisor_analytics_backend/platform/db"
	"advisor_analytics_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !cfg.IsSchedulingEnabled() || !cfg.IsCRMEnabled() {
		log.Error("scheduling provider and CRM credentials are required for the scheduler")
		panic("scheduling provider and CRM credentials are required for the scheduler")
	}

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	repo := repository.New(pool)
	eventSource := scheduling.New(cfg, log)
	activitySource := crm.New(cfg, log)

	var statsCache *cache.Cache
	var invalidator appsync.Invalidator
	if cfg.GetRedisURL() != "" {
		statsCache, err = cache.New(cfg.GetRedisURL(), cfg.GetStatsCacheTTL(), log)
		if err != nil {
			log.Error("failed to connect to redis", "error", err)
			panic("failed to connect to redis: " + err.Error())
		}
		defer func() { _ = statsCache.Close() }()
		invalidator = statsCache
	}

	syncSvc := appsync.New(eventSource, activitySource, repo, invalidator, log)

	var digest scheduler.DigestSender
	if cfg.IsEmailEnabled() {
		var analyticsCache service.StatsCache
		if statsCache != nil {
			analyticsCache = statsCache
		}
		analyticsSvc := service.New(repo, analyticsCache, cfg.GetMatchToleranceDays(), log)
		digest = notify.NewDigest(analyticsSvc, cfg, log)
	} else {
		log.Warn("SMTP not configured; digest emails disabled")
	}

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize scheduler client", "error", err)
		panic("failed to initialize scheduler client: " + err.Error())
	}
	defer func() { _ = client.Close() }()

	enqueuer := scheduler.NewPeriodicEnqueuer(client, cfg, log)
	go enqueuer.Run(ctx)

	worker, err := scheduler.NewWorker(cfg, cfg.GetSyncWindowDays(), syncSvc, digest, log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	worker.Run(ctx)
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
