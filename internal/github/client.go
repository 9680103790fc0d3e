// Package github wraps the source-control host API used to pull and push asset files
package github

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	gh "github.com/google/go-github/v66/github"
)

var (
	// ErrNotFound is returned when the path, branch or repository does not exist
	ErrNotFound = errors.New("file not found in repository")
	// ErrAuth is returned when the credentials are rejected
	ErrAuth = errors.New("source host rejected the credentials")
	// ErrUpstream is returned for any other failed call to the source host
	ErrUpstream = errors.New("source host request failed")
	// ErrEmptyContent is returned when asked to write an empty file
	ErrEmptyContent = errors.New("blob content is empty")
)

// File is a file fetched from a repository
type File struct {
	Path    string
	SHA     string
	Content []byte
}

// CommitResult describes the commit produced by a write
type CommitResult struct {
	SHA     string
	HTMLURL string
}

// Client reads and writes repository files on behalf of one credential
type Client struct {
	gh *gh.Client
}

// ClientFactory builds a Client per access token, sharing transport settings
type ClientFactory struct {
	apiBaseURL string
	timeout    time.Duration
}

// NewClientFactory creates a factory. apiBaseURL overrides the public API
// endpoint when non-empty.
func NewClientFactory(apiBaseURL string, timeout time.Duration) *ClientFactory {
	return &ClientFactory{
		apiBaseURL: apiBaseURL,
		timeout:    timeout,
	}
}

// ForToken returns a Client authenticated with token
func (f *ClientFactory) ForToken(token string) (*Client, error) {
	client := gh.NewClient(&http.Client{Timeout: f.timeout}).WithAuthToken(token)

	if f.apiBaseURL != "" {
		base := f.apiBaseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		u, err := url.Parse(base)
		if err != nil {
			return nil, fmt.Errorf("invalid api base url: %w", err)
		}
		client.BaseURL = u
	}

	return &Client{gh: client}, nil
}

// FetchFile reads path from the head of branch by walking ref, tree and blob
func (c *Client) FetchFile(ctx context.Context, org, repo, path, branch string) (*File, error) {
	sha, err := c.findInTree(ctx, org, repo, path, branch)
	if err != nil {
		return nil, err
	}

	blob, _, err := c.gh.Git.GetBlob(ctx, org, repo, sha)
	if err != nil {
		return nil, classify(err)
	}

	content, err := decodeBlob(blob)
	if err != nil {
		return nil, err
	}

	return &File{Path: path, SHA: sha, Content: content}, nil
}

// FetchContent reads path through the contents API. An empty ref means the
// repository's default branch.
func (c *Client) FetchContent(ctx context.Context, org, repo, path, ref string) (*File, error) {
	var opts *gh.RepositoryContentGetOptions
	if ref != "" {
		opts = &gh.RepositoryContentGetOptions{Ref: ref}
	}

	file, _, _, err := c.gh.Repositories.GetContents(ctx, org, repo, path, opts)
	if err != nil {
		return nil, classify(err)
	}
	if file == nil {
		// path is a directory
		return nil, ErrNotFound
	}

	content, err := file.GetContent()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	return &File{Path: file.GetPath(), SHA: file.GetSHA(), Content: []byte(content)}, nil
}

// WriteFile replaces the content of an existing file on branch with a commit
func (c *Client) WriteFile(ctx context.Context, org, repo, path string, content []byte, branch, message string) (*CommitResult, error) {
	if len(content) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyContent, path)
	}

	sha, err := c.findInTree(ctx, org, repo, path, branch)
	if err != nil {
		return nil, err
	}

	res, _, err := c.gh.Repositories.UpdateFile(ctx, org, repo, path, &gh.RepositoryContentFileOptions{
		Message: gh.String(message),
		Content: content,
		SHA:     gh.String(sha),
		Branch:  gh.String(branch),
	})
	if err != nil {
		return nil, classify(err)
	}

	return &CommitResult{
		SHA:     res.Commit.GetSHA(),
		HTMLURL: res.Commit.GetHTMLURL(),
	}, nil
}

// findInTree returns the blob SHA of path at the head of branch. The tree is
// listed recursively only when path is nested.
func (c *Client) findInTree(ctx context.Context, org, repo, path, branch string) (string, error) {
	ref, _, err := c.gh.Git.GetRef(ctx, org, repo, "heads/"+branch)
	if err != nil {
		return "", classify(err)
	}

	tree, _, err := c.gh.Git.GetTree(ctx, org, repo, ref.GetObject().GetSHA(), strings.Contains(path, "/"))
	if err != nil {
		return "", classify(err)
	}

	for _, entry := range tree.Entries {
		if entry.GetPath() == path {
			return entry.GetSHA(), nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNotFound, path)
}

func decodeBlob(blob *gh.Blob) ([]byte, error) {
	if blob.GetEncoding() != "base64" {
		return []byte(blob.GetContent()), nil
	}
	// the API wraps base64 payloads at 60 columns
	content, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(blob.GetContent(), "\n", ""))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid blob encoding: %v", ErrUpstream, err)
	}
	return content, nil
}

// classify maps go-github errors onto the package sentinels, keeping the
// original message for logs
func classify(err error) error {
	var rateErr *gh.RateLimitError
	if errors.As(err, &rateErr) {
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	var abuseErr *gh.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	var respErr *gh.ErrorResponse
	if errors.As(err, &respErr) && respErr.Response != nil {
		switch respErr.Response.StatusCode {
		case http.StatusNotFound:
			return fmt.Errorf("%w: %s", ErrNotFound, respErr.Message)
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: %s", ErrAuth, respErr.Message)
		}
	}
	return fmt.Errorf("%w: %v", ErrUpstream, err)
}
