package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bootcamp/registry/internal/models"
	"github.com/bootcamp/registry/internal/repositories"
	"github.com/bootcamp/registry/internal/validators"
	"go.uber.org/zap"
)

const statusTextTested = "Test Successfull"

// TestService runs the per-kind validators over stored assets
type TestService struct {
	assets AssetRepository
	logger *zap.Logger
	now    func() time.Time
}

// NewTestService creates a new test service
func NewTestService(assets AssetRepository, logger *zap.Logger) *TestService {
	return &TestService{
		assets: assets,
		logger: logger,
		now:    time.Now,
	}
}

// Test validates the asset, persists test_status, status_text and last_test_at
// and reports whether the asset passed
func (s *TestService) Test(ctx context.Context, slug string) (*models.Asset, bool, error) {
	asset, err := s.assets.GetBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, false, ErrAssetNotFound
		}
		return nil, false, fmt.Errorf("failed to get asset: %w", err)
	}

	passed := true
	if err := validators.ForAsset(asset).Validate(asset); err != nil {
		passed = false
		asset.TestStatus = models.CheckStatusError
		var assetErr *validators.AssetError
		if errors.As(err, &assetErr) {
			asset.TestStatus = assetErr.Severity
		}
		asset.StatusText = err.Error()
	} else {
		asset.TestStatus = models.CheckStatusOK
		asset.StatusText = statusTextTested
	}

	now := s.now()
	asset.LastTestAt = &now

	if err := s.assets.Save(ctx, asset); err != nil {
		s.logger.Error("failed to save test result", zap.String("slug", slug), zap.Error(err))
		return nil, false, fmt.Errorf("failed to save asset: %w", err)
	}

	s.logger.Debug("asset tested",
		zap.String("slug", slug),
		zap.String("test_status", string(asset.TestStatus)),
	)
	return asset, passed, nil
}
