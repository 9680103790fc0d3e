package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/bootcamp/registry/internal/models"
	"github.com/bootcamp/registry/internal/repositories"
	"go.uber.org/zap"
)

// ThumbnailService resolves the cached preview image of an asset, scheduling
// generation and resizing in the background when the cache misses
type ThumbnailService struct {
	assets            AssetRepository
	media             MediaRepository
	tasks             TaskEnqueuer
	defaultPreviewURL string
	logger            *zap.Logger
}

// NewThumbnailService creates a new thumbnail service
func NewThumbnailService(assets AssetRepository, media MediaRepository, tasks TaskEnqueuer, defaultPreviewURL string, logger *zap.Logger) *ThumbnailService {
	return &ThumbnailService{
		assets:            assets,
		media:             media,
		tasks:             tasks,
		defaultPreviewURL: defaultPreviewURL,
		logger:            logger,
	}
}

// GetThumbnailURL returns the URL to redirect to and whether the redirect may
// be permanent. A resize is only requested when exactly one of width and
// height is set.
func (s *ThumbnailService) GetThumbnailURL(ctx context.Context, slug string, width, height int) (string, bool, error) {
	asset, err := s.assets.GetBySlug(ctx, slug)
	if errors.Is(err, repositories.ErrNotFound) {
		return s.defaultPreviewURL, false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get asset: %w", err)
	}

	media, err := s.media.GetBySlug(ctx, asset.ThumbnailSlug())
	if errors.Is(err, repositories.ErrNotFound) {
		if err := s.tasks.EnqueueThumbnailCreate(ctx, asset.Slug); err != nil {
			s.logger.Warn("failed to enqueue thumbnail generation", zap.String("slug", slug), zap.Error(err))
		}
		return s.previewURL(asset), false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get media: %w", err)
	}

	if !wantsResize(width, height) {
		s.hit(ctx, media)
		s.backfillPreview(ctx, asset, media)
		return media.URL, true, nil
	}

	res, err := s.media.GetResolution(ctx, media.Hash, width, height)
	if errors.Is(err, repositories.ErrNotFound) {
		s.hit(ctx, media)
		if err := s.tasks.EnqueueThumbnailResize(ctx, media.ID, width, height); err != nil {
			s.logger.Warn("failed to enqueue thumbnail resize", zap.String("slug", slug), zap.Error(err))
		}
		return media.URL, false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get media resolution: %w", err)
	}

	if err := s.media.IncrementResolutionHits(ctx, res.ID); err != nil {
		s.logger.Warn("failed to count resolution hit", zap.Int("resolution_id", res.ID), zap.Error(err))
	}
	s.backfillPreview(ctx, asset, media)

	return fmt.Sprintf("%s-%dx%d", media.URL, res.Width, res.Height), true, nil
}

func wantsResize(width, height int) bool {
	return (width > 0) != (height > 0)
}

func (s *ThumbnailService) previewURL(asset *models.Asset) string {
	if asset.Preview != "" {
		return asset.Preview
	}
	return s.defaultPreviewURL
}

func (s *ThumbnailService) hit(ctx context.Context, media *models.Media) {
	if err := s.media.IncrementHits(ctx, media.ID); err != nil {
		s.logger.Warn("failed to count media hit", zap.Int("media_id", media.ID), zap.Error(err))
	}
}

func (s *ThumbnailService) backfillPreview(ctx context.Context, asset *models.Asset, media *models.Media) {
	if asset.Preview != "" {
		return
	}
	if err := s.assets.SetPreviewIfEmpty(ctx, asset.ID, media.URL); err != nil {
		s.logger.Warn("failed to backfill asset preview", zap.String("slug", asset.Slug), zap.Error(err))
	}
}
