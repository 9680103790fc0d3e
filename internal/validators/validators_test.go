package validators

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/bootcamp/registry/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validLesson() *models.Asset {
	a := &models.Asset{
		Slug:         "intro-to-html",
		Title:        "Intro to HTML",
		Description:  "Learn tags",
		AssetType:    models.AssetTypeLesson,
		Lang:         "en",
		ReadmeURL:    "https://github.com/org/repo/blob/main/README.md",
		Technologies: []string{"html"},
	}
	a.SetReadme("Some content")
	return a
}

func validProject() *models.Asset {
	duration := 4
	a := validLesson()
	a.AssetType = models.AssetTypeProject
	a.Preview = "https://example.com/preview.png"
	a.Config = json.RawMessage(`{"title":"p"}`)
	a.Difficulty = "EASY"
	a.Duration = &duration
	a.DeliveryFormats = "url"
	a.DeliveryRegexURL = `^https://github\.com/.+`
	return a
}

func TestForAsset(t *testing.T) {
	tests := []struct {
		name             string
		asset            func() *models.Asset
		expectedSeverity models.CheckStatus
		expectedMessage  string
	}{
		{
			name:  "valid lesson",
			asset: validLesson,
		},
		{
			name:  "valid project",
			asset: validProject,
		},
		{
			name: "blank title",
			asset: func() *models.Asset {
				a := validLesson()
				a.Title = "   "
				return a
			},
			expectedSeverity: models.CheckStatusError,
			expectedMessage:  "title cannot be blank",
		},
		{
			name: "missing lang",
			asset: func() *models.Asset {
				a := validLesson()
				a.Lang = ""
				return a
			},
			expectedSeverity: models.CheckStatusError,
			expectedMessage:  "lang is a required field",
		},
		{
			name: "missing readme url on repository asset",
			asset: func() *models.Asset {
				a := validLesson()
				a.ReadmeURL = ""
				return a
			},
			expectedSeverity: models.CheckStatusError,
			expectedMessage:  "Missing readme URL",
		},
		{
			name: "empty readme",
			asset: func() *models.Asset {
				a := validLesson()
				a.SetReadme("  \n")
				return a
			},
			expectedSeverity: models.CheckStatusError,
			expectedMessage:  "Asset is missing a readme file",
		},
		{
			name: "missing description is a warning",
			asset: func() *models.Asset {
				a := validLesson()
				a.Description = ""
				return a
			},
			expectedSeverity: models.CheckStatusWarning,
			expectedMessage:  "Missing description",
		},
		{
			name: "error wins over earlier warning",
			asset: func() *models.Asset {
				a := validProject()
				a.Difficulty = ""
				a.Preview = ""
				return a
			},
			expectedSeverity: models.CheckStatusError,
			expectedMessage:  "Missing preview URL",
		},
		{
			name: "project without regex for url deliveries",
			asset: func() *models.Asset {
				a := validProject()
				a.DeliveryRegexURL = ""
				return a
			},
			expectedSeverity: models.CheckStatusWarning,
			expectedMessage:  "URL deliveries have no validation regex",
		},
		{
			name: "exercise with invalid config",
			asset: func() *models.Asset {
				a := validProject()
				a.AssetType = models.AssetTypeExercise
				a.Config = json.RawMessage(`{`)
				return a
			},
			expectedSeverity: models.CheckStatusError,
			expectedMessage:  "Configuration is not valid JSON",
		},
		{
			name: "quiz without questions",
			asset: func() *models.Asset {
				a := validLesson()
				a.AssetType = models.AssetTypeQuiz
				a.Config = json.RawMessage(`{"info":{}}`)
				return a
			},
			expectedSeverity: models.CheckStatusError,
			expectedMessage:  "Quiz has no questions",
		},
		{
			name: "quiz with questions",
			asset: func() *models.Asset {
				a := validLesson()
				a.AssetType = models.AssetTypeQuiz
				a.Config = json.RawMessage(`{"questions":[{"q":"?"}]}`)
				return a
			},
		},
		{
			name: "unknown type",
			asset: func() *models.Asset {
				a := validLesson()
				a.AssetType = "VIDEO"
				return a
			},
			expectedSeverity: models.CheckStatusError,
			expectedMessage:  `unknown asset type "VIDEO"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			asset := tt.asset()
			err := ForAsset(asset).Validate(asset)

			if tt.expectedSeverity == "" {
				assert.NoError(t, err)
				return
			}

			var assetErr *AssetError
			require.True(t, errors.As(err, &assetErr))
			assert.Equal(t, tt.expectedSeverity, assetErr.Severity)
			assert.Equal(t, tt.expectedMessage, assetErr.Message)
		})
	}
}

func TestStruct(t *testing.T) {
	type request struct {
		Title string `json:"title" validate:"notblank"`
		URL   string `json:"url" validate:"omitempty,url"`
	}

	assert.NoError(t, Struct(request{Title: "ok"}))

	err := Struct(request{Title: " ", URL: "not a url"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalid))
	assert.Contains(t, err.Error(), "title cannot be blank")
	assert.Contains(t, err.Error(), "url must be a valid URL")
}
