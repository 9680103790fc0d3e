package github

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	repoPattern = regexp.MustCompile(`https?://github\.com/([\w\-]+)/([\w\-]+)/?`)
	blobPattern = regexp.MustCompile(`/blob/([\w\-]+)/(.+)`)
)

// SourceLocation is a file address inside a repository
type SourceLocation struct {
	Org    string
	Repo   string
	Branch string
	Path   string
}

// HasBranch reports whether the URL named a branch after /blob/
func (l SourceLocation) HasBranch() bool {
	return l.Branch != ""
}

// ParseSourceURL extracts organization, repository, branch and path from a
// repository URL. Branch and path are empty when the URL has no /blob/ part.
func ParseSourceURL(rawURL string) (SourceLocation, error) {
	m := repoPattern.FindStringSubmatch(rawURL)
	if m == nil {
		return SourceLocation{}, fmt.Errorf("invalid repository url: %s", rawURL)
	}

	loc := SourceLocation{Org: m[1], Repo: m[2]}
	if b := blobPattern.FindStringSubmatch(rawURL); b != nil {
		loc.Branch = b[1]
		loc.Path = strings.SplitN(b[2], "?", 2)[0]
	}
	return loc, nil
}

// IsHostURL reports whether rawURL points at host
func IsHostURL(rawURL, host string) bool {
	return rawURL != "" && strings.Contains(rawURL, host)
}
