package github

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSourceURL(t *testing.T) {
	tests := []struct {
		name          string
		url           string
		expected      SourceLocation
		expectedError bool
	}{
		{
			name:     "blob url",
			url:      "https://github.com/4geeks/lessons/blob/main/src/intro/readme.es.md",
			expected: SourceLocation{Org: "4geeks", Repo: "lessons", Branch: "main", Path: "src/intro/readme.es.md"},
		},
		{
			name:     "repository root",
			url:      "https://github.com/4geeks/exercise-loops",
			expected: SourceLocation{Org: "4geeks", Repo: "exercise-loops"},
		},
		{
			name:     "query string dropped from path",
			url:      "https://github.com/org/repo/blob/dev-2/README.md?raw=true",
			expected: SourceLocation{Org: "org", Repo: "repo", Branch: "dev-2", Path: "README.md"},
		},
		{
			name:          "other host",
			url:           "https://gitlab.com/org/repo/blob/main/README.md",
			expectedError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loc, err := ParseSourceURL(tt.url)
			if tt.expectedError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, loc)
		})
	}
}

func TestIsHostURL(t *testing.T) {
	assert.True(t, IsHostURL("https://github.com/org/repo", "github.com"))
	assert.False(t, IsHostURL("https://gitlab.com/org/repo", "github.com"))
	assert.False(t, IsHostURL("", "github.com"))
}
