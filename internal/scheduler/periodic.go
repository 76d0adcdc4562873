package scheduler

import (
	"context"
	"time"

	"advisor_analytics_backend/platform/config"
	"advisor_analytics_backend/platform/logger"
)

// PeriodicEnqueuer drops recurring sync and digest tasks on the queue.
// It runs until the context is canceled.
type PeriodicEnqueuer struct {
	client         *Client
	syncInterval   time.Duration
	digestInterval time.Duration
	log            *logger.Logger
}

func NewPeriodicEnqueuer(client *Client, cfg config.SyncConfig, log *logger.Logger) *PeriodicEnqueuer {
	syncInterval := cfg.GetSyncInterval()
	if syncInterval <= 0 {
		syncInterval = 15 * time.Minute
	}
	digestInterval := cfg.GetDigestInterval()
	if digestInterval <= 0 {
		digestInterval = 24 * time.Hour
	}

	return &PeriodicEnqueuer{
		client:         client,
		syncInterval:   syncInterval,
		digestInterval: digestInterval,
		log:            log,
	}
}

func (p *PeriodicEnqueuer) Run(ctx context.Context) {
	if p == nil || p.client == nil {
		return
	}

	// First sync right away so a fresh deployment has data.
	p.enqueueSync(ctx)

	syncTicker := time.NewTicker(p.syncInterval)
	defer syncTicker.Stop()
	digestTicker := time.NewTicker(p.digestInterval)
	defer digestTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-syncTicker.C:
			p.enqueueSync(ctx)
		case <-digestTicker.C:
			if err := p.client.EnqueueDigest(ctx); err != nil {
				p.log.Warn("digest enqueue failed", "error", err)
			}
		}
	}
}

func (p *PeriodicEnqueuer) enqueueSync(ctx context.Context) {
	if err := p.client.EnqueueSync(ctx, SyncPayload{}); err != nil {
		p.log.Warn("sync enqueue failed", "error", err)
	}
}
