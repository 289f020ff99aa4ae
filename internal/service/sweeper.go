package service

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultSweepInterval = 30 * time.Second
	DefaultRetention     = time.Hour
)

// Sweeper expires lapsed reservations on a fixed interval. Reserve, Release
// and Clear also expire lapsed entries in the slots they lock, so the sweeper
// only has to catch slots nobody touches.
type Sweeper struct {
	service   *InventoryService
	interval  time.Duration
	retention time.Duration
	logger    *zap.Logger

	archive          ArchivePruner
	archiveRetention time.Duration
}

type SweepResult struct {
	Expired  int
	Purged   int
	Archived int64
}

func NewSweeper(service *InventoryService, interval, retention time.Duration, logger *zap.Logger) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if retention <= 0 {
		retention = DefaultRetention
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sweeper{
		service:   service,
		interval:  interval,
		retention: retention,
		logger:    logger,
	}
}

// WithArchive makes every sweep also delete journaled terminal reservations
// older than retention.
func (sw *Sweeper) WithArchive(archive ArchivePruner, retention time.Duration) *Sweeper {
	sw.archive = archive
	sw.archiveRetention = retention
	return sw
}

// Run blocks until ctx is cancelled.
func (sw *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(sw.interval)
	defer ticker.Stop()

	sw.logger.Info("Expiry sweeper started", zap.Duration("interval", sw.interval))
	for {
		select {
		case <-ctx.Done():
			sw.logger.Info("Expiry sweeper stopped")
			return
		case <-ticker.C:
			sw.SweepOnce(ctx)
		}
	}
}

func (sw *Sweeper) SweepOnce(ctx context.Context) SweepResult {
	result := SweepResult{
		Expired: len(sw.service.ExpireDue(ctx)),
		Purged:  sw.service.PurgeTerminal(ctx, sw.retention),
	}
	if sw.archive != nil && sw.archiveRetention > 0 {
		n, err := sw.archive.PruneTerminal(ctx, sw.service.Now().Add(-sw.archiveRetention))
		if err != nil {
			sw.logger.Warn("Archive prune failed", zap.Error(err))
		}
		result.Archived = n
	}
	if result.Expired > 0 || result.Purged > 0 || result.Archived > 0 {
		sw.logger.Info("Sweep finished",
			zap.Int("expired", result.Expired),
			zap.Int("purged", result.Purged),
			zap.Int64("archived", result.Archived),
		)
	}
	return result
}
