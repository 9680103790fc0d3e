package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/bootcamp/registry/internal/models"
	"github.com/bootcamp/registry/internal/readme"
	"github.com/bootcamp/registry/internal/repositories"
	"github.com/bootcamp/registry/internal/validators"
	"github.com/gosimple/slug"
	"go.uber.org/zap"
)

// ErrInvalidAssetURL is returned by ForwardURL when the asset cannot be opened
var ErrInvalidAssetURL = errors.New("asset url is invalid")

// AssetService provides read and lifecycle operations on assets
type AssetService struct {
	assets    AssetRepository
	errorLogs ErrorLogRepository
	logger    *zap.Logger
}

// NewAssetService creates a new asset service
func NewAssetService(assets AssetRepository, errorLogs ErrorLogRepository, logger *zap.Logger) *AssetService {
	return &AssetService{
		assets:    assets,
		errorLogs: errorLogs,
		logger:    logger,
	}
}

// List returns assets matching filter
func (s *AssetService) List(ctx context.Context, filter models.AssetFilter) ([]models.Asset, error) {
	if filter.AssetType != "" && !filter.AssetType.IsValid() {
		return nil, fmt.Errorf("%w: unknown asset type %s", ErrInvalidInput, filter.AssetType)
	}

	assets, err := s.assets.List(ctx, filter)
	if err != nil {
		s.logger.Error("failed to list assets", zap.Error(err))
		return nil, fmt.Errorf("failed to list assets: %w", err)
	}
	if assets == nil {
		assets = []models.Asset{}
	}
	return assets, nil
}

// Get returns one asset
func (s *AssetService) Get(ctx context.Context, slug string) (*models.Asset, error) {
	asset, err := s.assets.GetBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrAssetNotFound
		}
		return nil, fmt.Errorf("failed to get asset: %w", err)
	}
	return asset, nil
}

// Create registers a new, never synced DRAFT asset. The slug defaults to the
// slugified title.
func (s *AssetService) Create(ctx context.Context, req models.CreateAssetRequest) (*models.Asset, error) {
	if err := validators.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if !req.AssetType.IsValid() {
		return nil, fmt.Errorf("%w: unknown asset type %s", ErrInvalidInput, req.AssetType)
	}

	assetSlug := slug.Make(req.Slug)
	if assetSlug == "" {
		assetSlug = slug.Make(req.Title)
	}

	_, err := s.assets.GetBySlug(ctx, assetSlug)
	if err == nil {
		return nil, fmt.Errorf("%w: %s", ErrAssetExists, assetSlug)
	}
	if !errors.Is(err, repositories.ErrNotFound) {
		return nil, fmt.Errorf("failed to check asset slug: %w", err)
	}

	asset := &models.Asset{
		Slug:           assetSlug,
		Title:          strings.TrimSpace(req.Title),
		Description:    req.Description,
		AssetType:      req.AssetType,
		Status:         models.AssetStatusDraft,
		Visibility:     models.VisibilityPublic,
		Lang:           req.Lang,
		URL:            req.URL,
		ReadmeURL:      req.ReadmeURL,
		External:       req.External,
		OwnerID:        req.OwnerID,
		TestStatus:     models.CheckStatusPending,
		CleaningStatus: models.CheckStatusPending,
	}
	if err := s.assets.Create(ctx, asset); err != nil {
		s.logger.Error("failed to create asset", zap.String("slug", assetSlug), zap.Error(err))
		return nil, fmt.Errorf("failed to create asset: %w", err)
	}

	s.logger.Info("asset created", zap.String("slug", assetSlug), zap.Int("id", asset.ID))
	return asset, nil
}

// Delete marks an asset as DELETED
func (s *AssetService) Delete(ctx context.Context, slug string) error {
	err := s.assets.SoftDelete(ctx, slug)
	if errors.Is(err, repositories.ErrNotFound) {
		return ErrAssetNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete asset: %w", err)
	}
	return nil
}

// RenderReadme returns the asset's readme in format. Assets that were never
// cleaned fall back to the raw fetched readme.
func (s *AssetService) RenderReadme(ctx context.Context, slug, format string, keepFrontmatter bool) (string, readme.Format, error) {
	f, err := readme.ParseFormat(format)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	asset, err := s.Get(ctx, slug)
	if err != nil {
		return "", "", err
	}

	content, err := asset.DecodedReadme()
	if err == nil && content == "" {
		content, err = asset.DecodedReadmeRaw()
	}
	if err != nil {
		return "", "", fmt.Errorf("failed to decode readme: %w", err)
	}

	// quizzes carry JSON, not markdown with frontmatter
	if asset.AssetType == models.AssetTypeQuiz {
		keepFrontmatter = true
	}

	rendered, err := readme.Render(content, f, keepFrontmatter)
	if err != nil {
		return "", "", fmt.Errorf("failed to render readme: %w", err)
	}
	return rendered, f, nil
}

// ForwardURL returns where the "open" link of an asset points to. An asset
// whose URL is not an absolute http(s) URL gets an invalid-url error log.
func (s *AssetService) ForwardURL(ctx context.Context, slug string) (string, error) {
	asset, err := s.Get(ctx, slug)
	if err != nil {
		return "", err
	}

	if !isAbsoluteHTTP(asset.URL) {
		msg := fmt.Sprintf("The url for the %s you are trying to open (%s) was not found, this error has been reported and will be fixed soon.",
			strings.ToLower(string(asset.AssetType)), slug)
		s.logInvalidURL(ctx, asset, msg)
		return "", fmt.Errorf("%w: %s", ErrInvalidAssetURL, msg)
	}

	if asset.Gitpod {
		return "https://gitpod.io#" + asset.URL, nil
	}
	return asset.URL, nil
}

func isAbsoluteHTTP(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func (s *AssetService) logInvalidURL(ctx context.Context, asset *models.Asset, msg string) {
	id := asset.ID
	entry := &models.AssetErrorLog{
		Slug:       models.ErrorLogInvalidURL,
		Path:       asset.Slug,
		AssetID:    &id,
		AssetType:  asset.AssetType,
		StatusText: msg,
		Status:     models.ErrorLogStatusError,
	}
	if err := s.errorLogs.Create(ctx, entry); err != nil {
		s.logger.Error("failed to append asset error log", zap.String("slug", asset.Slug), zap.Error(err))
	}
}
