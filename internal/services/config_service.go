package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/bootcamp/registry/internal/github"
	"github.com/bootcamp/registry/internal/models"
	"github.com/bootcamp/registry/internal/notify"
	"github.com/bootcamp/registry/internal/repositories"
	"github.com/bootcamp/registry/internal/tasks"
	"go.uber.org/zap"
)

// ConfigService serves the learnpack manifest of an asset straight from its repository
type ConfigService struct {
	assets      AssetRepository
	users       UserRepository
	clients     SourceClientFactory
	tasks       TaskEnqueuer
	systemEmail string
	logger      *zap.Logger
}

// NewConfigService creates a new config service
func NewConfigService(assets AssetRepository, users UserRepository, clients SourceClientFactory, tasks TaskEnqueuer, systemEmail string, logger *zap.Logger) *ConfigService {
	return &ConfigService{
		assets:      assets,
		users:       users,
		clients:     clients,
		tasks:       tasks,
		systemEmail: systemEmail,
		logger:      logger,
	}
}

// GetConfig fetches the manifest with the owner's credentials. When it cannot be
// fetched or is not valid JSON, the author (or the system address) is notified
// and ErrConfigNotFound is returned.
func (s *ConfigService) GetConfig(ctx context.Context, slug string) (json.RawMessage, error) {
	asset, err := s.assets.GetBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrAssetNotFound
		}
		return nil, fmt.Errorf("failed to get asset: %w", err)
	}

	config, err := s.fetch(ctx, asset)
	if err == nil {
		return config, nil
	}

	s.logger.Warn("failed to fetch asset config", zap.String("slug", slug), zap.Error(err))
	s.notify(ctx, asset)
	return nil, fmt.Errorf("%w for %s: %v", ErrConfigNotFound, asset.URL, err)
}

func (s *ConfigService) fetch(ctx context.Context, asset *models.Asset) (json.RawMessage, error) {
	if asset.OwnerID == nil {
		return nil, errors.New("asset has no owner whose credentials could be used")
	}

	creds, err := s.users.GetCredentials(ctx, *asset.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get owner credentials: %w", err)
	}

	client, err := s.clients(creds.Token)
	if err != nil {
		return nil, err
	}

	loc, err := github.ParseSourceURL(asset.URL)
	if err != nil {
		return nil, err
	}

	file, err := fetchManifest(ctx, client, loc.Org, loc.Repo, loc.Branch)
	if err != nil {
		return nil, err
	}
	if !json.Valid(file.Content) {
		return nil, fmt.Errorf("%s is not valid JSON", file.Path)
	}
	return json.RawMessage(file.Content), nil
}

func (s *ConfigService) notify(ctx context.Context, asset *models.Asset) {
	to := s.systemEmail
	if asset.AuthorID != nil {
		author, err := s.users.GetByID(ctx, *asset.AuthorID)
		if err == nil && author.Email != "" {
			to = author.Email
		}
	}

	payload := tasks.EmailPayload{
		To:       to,
		Template: notify.TemplateMessage,
		Data: map[string]string{
			"SUBJECT": fmt.Sprintf("Error fetching the exercise meta-data learn.json for %s %s",
				strings.ToLower(string(asset.AssetType)), asset.Slug),
			"MESSAGE": fmt.Sprintf("learn.json or bc.json not found or invalid for: %s", asset.URL),
		},
	}
	if err := s.tasks.EnqueueEmail(ctx, payload); err != nil {
		s.logger.Error("failed to enqueue config failure notification", zap.String("slug", asset.Slug), zap.Error(err))
	}
}
