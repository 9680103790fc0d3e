package services

import (
	"context"
	"errors"
	"testing"

	"github.com/bootcamp/registry/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(v string) *string {
	return &v
}

func TestTechnologyService_Update(t *testing.T) {
	private := models.VisibilityPrivate
	bogus := models.Visibility("SECRET")

	tests := []struct {
		name             string
		slug             string
		req              models.UpdateTechnologyRequest
		expectedErr      error
		expectedParentID *int
		check            func(t *testing.T, tech *models.AssetTechnology)
	}{
		{
			name: "fields",
			slug: "react",
			req: models.UpdateTechnologyRequest{
				Title:       strPtr("React.js"),
				Description: strPtr("UI library"),
				Visibility:  &private,
			},
			check: func(t *testing.T, tech *models.AssetTechnology) {
				assert.Equal(t, "React.js", tech.Title)
				assert.Equal(t, "UI library", tech.Description)
				assert.Equal(t, models.VisibilityPrivate, tech.Visibility)
			},
		},
		{
			name:             "attach to parent",
			slug:             "react",
			req:              models.UpdateTechnologyRequest{ParentSlug: strPtr("javascript")},
			expectedParentID: intPtr(1),
		},
		{
			name: "detach from parent",
			slug: "hooks",
			req:  models.UpdateTechnologyRequest{ParentSlug: strPtr("")},
		},
		{
			name:        "empty title",
			slug:        "react",
			req:         models.UpdateTechnologyRequest{Title: strPtr("")},
			expectedErr: ErrInvalidInput,
		},
		{
			name:        "unknown visibility",
			slug:        "react",
			req:         models.UpdateTechnologyRequest{Visibility: &bogus},
			expectedErr: ErrInvalidInput,
		},
		{
			name:        "own parent",
			slug:        "react",
			req:         models.UpdateTechnologyRequest{ParentSlug: strPtr("react")},
			expectedErr: ErrInvalidInput,
		},
		{
			name:        "missing parent",
			slug:        "react",
			req:         models.UpdateTechnologyRequest{ParentSlug: strPtr("cobol")},
			expectedErr: ErrInvalidInput,
		},
		{
			name:        "parent is a child",
			slug:        "react",
			req:         models.UpdateTechnologyRequest{ParentSlug: strPtr("hooks")},
			expectedErr: ErrInvalidInput,
		},
		{
			name:        "unknown technology",
			slug:        "cobol",
			req:         models.UpdateTechnologyRequest{Title: strPtr("COBOL")},
			expectedErr: ErrTechnologyNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMockTechnologyRepository(
				&models.AssetTechnology{ID: 1, Slug: "javascript", Title: "JavaScript", Visibility: models.VisibilityPublic},
				&models.AssetTechnology{ID: 2, Slug: "react", Title: "React", Visibility: models.VisibilityPublic},
				&models.AssetTechnology{ID: 3, Slug: "hooks", Title: "Hooks", Visibility: models.VisibilityPublic, ParentID: intPtr(2)},
			)
			svc := NewTechnologyService(repo, testLogger)

			tech, err := svc.Update(context.Background(), tt.slug, tt.req)
			if tt.expectedErr != nil {
				assert.ErrorIs(t, err, tt.expectedErr)
				assert.Empty(t, repo.updated)
				return
			}

			require.NoError(t, err)
			require.Len(t, repo.updated, 1)
			assert.Equal(t, tt.expectedParentID, tech.ParentID)
			if tt.check != nil {
				tt.check(t, tech)
			}
		})
	}
}

func TestTechnologyService_List(t *testing.T) {
	repo := newMockTechnologyRepository()
	svc := NewTechnologyService(repo, testLogger)

	filter := models.TechnologyFilter{Lang: "en", IncludeChildren: true}
	techs, err := svc.List(context.Background(), filter)
	require.NoError(t, err)
	assert.NotNil(t, techs)
	assert.Empty(t, techs)
	assert.Equal(t, filter, repo.filter)

	repo.listed = []models.AssetTechnology{{ID: 1, Slug: "python"}}
	techs, err = svc.List(context.Background(), filter)
	require.NoError(t, err)
	assert.Len(t, techs, 1)

	repo.err = errors.New("db down")
	_, err = svc.List(context.Background(), filter)
	assert.ErrorContains(t, err, "db down")
}
