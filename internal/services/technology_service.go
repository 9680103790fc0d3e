package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/bootcamp/registry/internal/models"
	"github.com/bootcamp/registry/internal/repositories"
	"go.uber.org/zap"
)

// TechnologyService lists and edits the technology taxonomy
type TechnologyService struct {
	technologies TechnologyRepository
	logger       *zap.Logger
}

// NewTechnologyService creates a new technology service
func NewTechnologyService(technologies TechnologyRepository, logger *zap.Logger) *TechnologyService {
	return &TechnologyService{
		technologies: technologies,
		logger:       logger,
	}
}

// List returns technologies matching filter; roots only unless children are asked for
func (s *TechnologyService) List(ctx context.Context, filter models.TechnologyFilter) ([]models.AssetTechnology, error) {
	techs, err := s.technologies.List(ctx, filter)
	if err != nil {
		s.logger.Error("failed to list technologies", zap.Error(err))
		return nil, fmt.Errorf("failed to list technologies: %w", err)
	}
	if techs == nil {
		techs = []models.AssetTechnology{}
	}
	return techs, nil
}

// Update applies the non-nil fields of req. An empty parent slug detaches the
// technology from its parent.
func (s *TechnologyService) Update(ctx context.Context, slug string, req models.UpdateTechnologyRequest) (*models.AssetTechnology, error) {
	tech, err := s.get(ctx, slug)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		if *req.Title == "" {
			return nil, fmt.Errorf("%w: title cannot be empty", ErrInvalidInput)
		}
		tech.Title = *req.Title
	}
	if req.Description != nil {
		tech.Description = *req.Description
	}
	if req.Visibility != nil {
		switch *req.Visibility {
		case models.VisibilityPublic, models.VisibilityUnlisted, models.VisibilityPrivate:
			tech.Visibility = *req.Visibility
		default:
			return nil, fmt.Errorf("%w: unknown visibility %s", ErrInvalidInput, *req.Visibility)
		}
	}
	if req.ParentSlug != nil {
		if err := s.setParent(ctx, tech, *req.ParentSlug); err != nil {
			return nil, err
		}
	}

	if err := s.technologies.Update(ctx, tech); err != nil {
		s.logger.Error("failed to update technology", zap.String("slug", slug), zap.Error(err))
		return nil, fmt.Errorf("failed to update technology: %w", err)
	}
	return tech, nil
}

func (s *TechnologyService) setParent(ctx context.Context, tech *models.AssetTechnology, parentSlug string) error {
	if parentSlug == "" {
		tech.ParentID = nil
		return nil
	}
	if parentSlug == tech.Slug {
		return fmt.Errorf("%w: a technology cannot be its own parent", ErrInvalidInput)
	}

	parent, err := s.technologies.GetBySlug(ctx, parentSlug)
	if errors.Is(err, repositories.ErrNotFound) {
		return fmt.Errorf("%w: parent technology %s not found", ErrInvalidInput, parentSlug)
	}
	if err != nil {
		return fmt.Errorf("failed to get parent technology: %w", err)
	}
	if parent.ParentID != nil {
		return fmt.Errorf("%w: parent technology %s is itself a child", ErrInvalidInput, parentSlug)
	}

	id := parent.ID
	tech.ParentID = &id
	return nil
}

func (s *TechnologyService) get(ctx context.Context, slug string) (*models.AssetTechnology, error) {
	tech, err := s.technologies.GetBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrTechnologyNotFound
		}
		return nil, fmt.Errorf("failed to get technology: %w", err)
	}
	return tech, nil
}
