package main

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// StaleSyncQueue enqueues re-syncs for assets whose last sync failed or got old
type StaleSyncQueue interface {
	EnqueueStale(ctx context.Context) (int, error)
}

// Scheduler runs the periodic re-sync on a cron schedule
type Scheduler struct {
	cron    *cron.Cron
	queue   StaleSyncQueue
	logger  *zap.Logger
	timeout time.Duration
}

// NewScheduler creates a scheduler running queue on schedule, a standard five
// field cron expression
func NewScheduler(schedule string, queue StaleSyncQueue, logger *zap.Logger) (*Scheduler, error) {
	s := &Scheduler{
		cron:    cron.New(),
		queue:   queue,
		logger:  logger,
		timeout: time.Minute,
	}

	if _, err := s.cron.AddFunc(schedule, s.tick); err != nil {
		return nil, fmt.Errorf("invalid sync schedule %q: %w", schedule, err)
	}
	return s, nil
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("Scheduler started", zap.Int("entries", len(s.cron.Entries())))
}

// Stop stops the scheduler and waits for a running tick
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("Scheduler stopped")
}

// tick enqueues one batch of stale assets
func (s *Scheduler) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	queued, err := s.queue.EnqueueStale(ctx)
	if err != nil {
		s.logger.Error("Failed to enqueue stale assets", zap.Error(err))
		return
	}
	s.logger.Info("Enqueued stale assets", zap.Int("count", queued))
}
