package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/bootcamp/registry/internal/models"
	"github.com/bootcamp/registry/internal/services"
	"github.com/bootcamp/registry/internal/tasks"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// ThumbnailProcessor caches and resizes asset preview images
type ThumbnailProcessor interface {
	// CreateThumbnail downloads the preview image of an asset and stores it as a Media
	CreateThumbnail(ctx context.Context, assetSlug string) (*models.Media, error)
	// ResizeThumbnail renders a stored Media at the requested width or height
	ResizeThumbnail(ctx context.Context, mediaID, width, height int) (*models.MediaResolution, error)
}

// AssetPuller pulls assets from their repositories
type AssetPuller interface {
	Pull(ctx context.Context, slug string, opts services.PullOptions) (*models.Asset, error)
}

// EmailSender delivers templated e-mails
type EmailSender interface {
	Send(to, templateName string, data map[string]string) error
}

// Worker handles task processing
type Worker struct {
	logger     *zap.Logger
	thumbnails ThumbnailProcessor
	sync       AssetPuller
	mailer     EmailSender
}

// NewWorker creates a new worker instance
func NewWorker(logger *zap.Logger, thumbnails ThumbnailProcessor, sync AssetPuller, mailer EmailSender) *Worker {
	return &Worker{
		logger:     logger,
		thumbnails: thumbnails,
		sync:       sync,
		mailer:     mailer,
	}
}

// Register binds every registry task type to its handler
func (w *Worker) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(tasks.TypeThumbnailCreate, w.HandleThumbnailCreate)
	mux.HandleFunc(tasks.TypeThumbnailResize, w.HandleThumbnailResize)
	mux.HandleFunc(tasks.TypeAssetSync, w.HandleAssetSync)
	mux.HandleFunc(tasks.TypeEmailSend, w.HandleEmail)
}

// HandleThumbnailCreate handles thumbnail:create
func (w *Worker) HandleThumbnailCreate(ctx context.Context, t *asynq.Task) error {
	payload, err := tasks.Decode[tasks.ThumbnailCreatePayload](t)
	if err != nil {
		return err
	}

	media, err := w.thumbnails.CreateThumbnail(ctx, payload.AssetSlug)
	if err != nil {
		w.logger.Error("failed to create thumbnail", zap.String("slug", payload.AssetSlug), zap.Error(err))
		return err
	}

	w.logger.Info("thumbnail created", zap.String("slug", payload.AssetSlug), zap.String("url", media.URL))
	return nil
}

// HandleThumbnailResize handles thumbnail:resize
func (w *Worker) HandleThumbnailResize(ctx context.Context, t *asynq.Task) error {
	payload, err := tasks.Decode[tasks.ThumbnailResizePayload](t)
	if err != nil {
		return err
	}

	res, err := w.thumbnails.ResizeThumbnail(ctx, payload.MediaID, payload.Width, payload.Height)
	if err != nil {
		w.logger.Error("failed to resize thumbnail", zap.Int("media_id", payload.MediaID), zap.Error(err))
		return err
	}

	w.logger.Info("thumbnail resized",
		zap.Int("media_id", payload.MediaID),
		zap.Int("width", res.Width),
		zap.Int("height", res.Height),
	)
	return nil
}

// HandleAssetSync handles asset:sync. A sync that ran and failed is already
// recorded on the asset, so only a busy asset or an infrastructure failure is retried.
func (w *Worker) HandleAssetSync(ctx context.Context, t *asynq.Task) error {
	payload, err := tasks.Decode[tasks.AssetSyncPayload](t)
	if err != nil {
		return err
	}

	_, err = w.sync.Pull(ctx, payload.Slug, services.PullOptions{OverrideMeta: payload.OverrideMeta})
	if err == nil {
		return nil
	}

	var syncErr *services.SyncError
	if !errors.As(err, &syncErr) {
		w.logger.Error("asset sync could not run", zap.String("slug", payload.Slug), zap.Error(err))
		return err
	}

	switch syncErr.Kind {
	case services.KindInProgress:
		return err
	case services.KindNotFound:
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	default:
		w.logger.Warn("asset sync failed",
			zap.String("slug", payload.Slug),
			zap.String("kind", string(syncErr.Kind)),
			zap.Error(err),
		)
		return nil
	}
}

// HandleEmail handles email:send
func (w *Worker) HandleEmail(ctx context.Context, t *asynq.Task) error {
	payload, err := tasks.Decode[tasks.EmailPayload](t)
	if err != nil {
		return err
	}
	if payload.To == "" {
		return fmt.Errorf("email without recipient: %w", asynq.SkipRetry)
	}

	if err := w.mailer.Send(payload.To, payload.Template, payload.Data); err != nil {
		w.logger.Error("failed to send email", zap.String("template", payload.Template), zap.Error(err))
		return err
	}

	w.logger.Info("email sent", zap.String("template", payload.Template))
	return nil
}
