package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bootcamp/registry/internal/repositories"
	"go.uber.org/zap"
)

// SyncQueue schedules background pulls, one at a time per asset
type SyncQueue struct {
	assets     AssetRepository
	tasks      TaskEnqueuer
	batchSize  int
	staleAfter time.Duration
	logger     *zap.Logger
	now        func() time.Time
}

// NewSyncQueue creates a new sync queue. staleAfter is how old a successful
// sync may get before the asset is re-synced.
func NewSyncQueue(assets AssetRepository, tasks TaskEnqueuer, batchSize int, staleAfter time.Duration, logger *zap.Logger) *SyncQueue {
	return &SyncQueue{
		assets:     assets,
		tasks:      tasks,
		batchSize:  batchSize,
		staleAfter: staleAfter,
		logger:     logger,
		now:        time.Now,
	}
}

// Enqueue schedules a pull of one existing asset
func (q *SyncQueue) Enqueue(ctx context.Context, slug string, overrideMeta bool) error {
	if _, err := q.assets.GetBySlug(ctx, slug); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrAssetNotFound
		}
		return fmt.Errorf("failed to get asset: %w", err)
	}

	if err := q.tasks.EnqueueAssetSync(ctx, slug, overrideMeta); err != nil {
		return fmt.Errorf("failed to enqueue asset sync: %w", err)
	}
	return nil
}

// EnqueueStale schedules pulls for repository-backed assets whose last sync
// failed or is older than the stale window, and returns how many were queued
func (q *SyncQueue) EnqueueStale(ctx context.Context) (int, error) {
	slugs, err := q.assets.ListStaleSlugs(ctx, q.now().Add(-q.staleAfter), q.batchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to list stale assets: %w", err)
	}

	queued := 0
	for _, slug := range slugs {
		if err := q.tasks.EnqueueAssetSync(ctx, slug, false); err != nil {
			q.logger.Error("failed to enqueue asset sync", zap.String("slug", slug), zap.Error(err))
			continue
		}
		queued++
	}
	return queued, nil
}
