package scheduler

import (
	"context"
	"fmt"
	"time"

	appsync "advisor_analytics_backend/internal/sync"
	"advisor_analytics_backend/platform/config"
	"advisor_analytics_backend/platform/logger"

	"github.com/hibiken/asynq"
)

// DigestSender sends the missing-docs summary email.
type DigestSender interface {
	Send(ctx context.Context) error
}

type Worker struct {
	server     *asynq.Server
	mux        *asynq.ServeMux
	sync       *appsync.Service
	digest     DigestSender
	windowDays int
	log        *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, windowDays int, syncSvc *appsync.Service, digest DigestSender, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:     server,
		mux:        mux,
		sync:       syncSvc,
		digest:     digest,
		windowDays: windowDays,
		log:        log,
	}

	mux.HandleFunc(TaskAnalyticsSync, w.handleSync)
	mux.HandleFunc(TaskMissingDocsDigest, w.handleDigest)

	return w, nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

func (w *Worker) handleSync(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseSyncPayload(task)
	if err != nil {
		return err
	}

	from, to, err := w.resolveWindow(payload)
	if err != nil {
		return err
	}

	results, err := w.sync.Run(ctx, from, to)
	if err != nil {
		return err
	}

	total := 0
	for _, r := range results {
		total += r.Upserted
	}
	w.log.Info("sync task finished", "types", len(results), "upserted", total)
	return nil
}

func (w *Worker) handleDigest(ctx context.Context, _ *asynq.Task) error {
	if w.digest == nil {
		return nil
	}
	return w.digest.Send(ctx)
}

func (w *Worker) resolveWindow(payload SyncPayload) (time.Time, time.Time, error) {
	now := time.Now()
	from := now.AddDate(0, 0, -w.windowDays)
	to := now.AddDate(0, 0, w.windowDays)

	if payload.From != "" {
		parsed, err := time.Parse(time.RFC3339, payload.From)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("parse from: %w", err)
		}
		from = parsed
	}
	if payload.To != "" {
		parsed, err := time.Parse(time.RFC3339, payload.To)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("parse to: %w", err)
		}
		to = parsed
	}
	if !to.After(from) {
		return time.Time{}, time.Time{}, fmt.Errorf("sync window end %s not after start %s", to.Format(time.RFC3339), from.Format(time.RFC3339))
	}
	return from, to, nil
}
