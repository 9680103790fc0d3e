package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bootcamp/registry/internal/models"
	"github.com/bootcamp/registry/internal/readme"
	"github.com/bootcamp/registry/internal/repositories"
	"go.uber.org/zap"
)

var errEmptyReadme = errors.New("readme is empty")

// CleanService runs the readme transform pipeline over fetched readmes
type CleanService struct {
	assets    AssetRepository
	errorLogs ErrorLogRepository
	logger    *zap.Logger
	now       func() time.Time
}

// NewCleanService creates a new clean service
func NewCleanService(assets AssetRepository, errorLogs ErrorLogRepository, logger *zap.Logger) *CleanService {
	return &CleanService{
		assets:    assets,
		errorLogs: errorLogs,
		logger:    logger,
		now:       time.Now,
	}
}

// Apply cleans asset.ReadmeRaw into asset.Readme and asset.HTML without saving.
//
// Quizzes and assets without a fetched readme are left alone. On failure the
// cleaning status becomes ERROR, an error log is appended, Readme keeps its
// previous value and the failure is returned.
func (s *CleanService) Apply(ctx context.Context, asset *models.Asset) error {
	if asset.ReadmeRaw == "" || asset.AssetType == models.AssetTypeQuiz {
		return nil
	}

	now := s.now()
	asset.LastCleaningAt = &now

	cleaned, html, category, err := s.clean(asset)
	if err != nil {
		asset.CleaningStatus = models.CheckStatusError
		asset.CleaningStatusDetails = err.Error()
		s.logError(ctx, asset, category, err.Error())
		return fmt.Errorf("failed to clean readme of %s: %w", asset.Slug, err)
	}

	asset.SetReadme(cleaned)
	asset.HTML = html
	asset.CleaningStatus = models.CheckStatusOK
	asset.CleaningStatusDetails = ""
	return nil
}

func (s *CleanService) clean(asset *models.Asset) (cleaned, html, category string, err error) {
	raw, err := asset.DecodedReadmeRaw()
	if err != nil {
		return "", "", models.ErrorLogReadmeSyntax, err
	}
	if strings.TrimSpace(raw) == "" {
		return "", "", models.ErrorLogEmptyReadme, errEmptyReadme
	}

	cleaned, err = readme.Clean(raw, asset.ReadmeURL)
	if err != nil {
		return "", "", models.ErrorLogReadmeSyntax, err
	}

	html, err = readme.Render(cleaned, readme.FormatHTML, false)
	if err != nil {
		return "", "", models.ErrorLogReadmeSyntax, err
	}
	return cleaned, html, "", nil
}

// Clean re-runs the pipeline on the stored raw readme and saves the outcome.
// The asset is returned even when cleaning failed.
func (s *CleanService) Clean(ctx context.Context, slug string) (*models.Asset, error) {
	asset, err := s.assets.GetBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrAssetNotFound
		}
		return nil, fmt.Errorf("failed to get asset: %w", err)
	}

	cleanErr := s.Apply(ctx, asset)
	if err := s.assets.Save(ctx, asset); err != nil {
		s.logger.Error("failed to save cleaned asset", zap.String("slug", slug), zap.Error(err))
		return nil, fmt.Errorf("failed to save asset: %w", err)
	}
	return asset, cleanErr
}

func (s *CleanService) logError(ctx context.Context, asset *models.Asset, category, message string) {
	entry := &models.AssetErrorLog{
		Slug:       category,
		Path:       asset.Slug,
		AssetType:  asset.AssetType,
		StatusText: message,
		Status:     models.ErrorLogStatusError,
	}
	if asset.ID != 0 {
		id := asset.ID
		entry.AssetID = &id
	}
	if err := s.errorLogs.Create(ctx, entry); err != nil {
		s.logger.Error("failed to append asset error log",
			zap.String("slug", asset.Slug),
			zap.String("category", category),
			zap.Error(err),
		)
	}
}
