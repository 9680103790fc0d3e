package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/bootcamp/registry/internal/github"
)

// manifestCandidates is the lookup order for a learnpack manifest
var manifestCandidates = []string{"learn.json", ".learn/learn.json", "bc.json", ".learn/bc.json"}

var errManifestNotFound = fmt.Errorf("no configuration learn.json or bc.json file was found: %w", github.ErrNotFound)

// fetchManifest returns the first manifest candidate present in the repository.
// Failures other than a missing file stop the search.
func fetchManifest(ctx context.Context, client SourceClient, org, repo, ref string) (*github.File, error) {
	for _, path := range manifestCandidates {
		file, err := client.FetchContent(ctx, org, repo, path, ref)
		if err == nil {
			return file, nil
		}
		if !errors.Is(err, github.ErrNotFound) {
			return nil, err
		}
	}
	return nil, errManifestNotFound
}

// scalarString formats a JSON scalar the way it was written in the manifest
func scalarString(v any) (string, bool) {
	switch val := v.(type) {
	case string:
		return val, true
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(val), true
	}
	return "", false
}
