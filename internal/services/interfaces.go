package services

import (
	"context"
	"time"

	"github.com/bootcamp/registry/internal/github"
	"github.com/bootcamp/registry/internal/lock"
	"github.com/bootcamp/registry/internal/models"
	"github.com/bootcamp/registry/internal/tasks"
)

// AssetRepository is the interface that wraps methods for assets table data access
type AssetRepository interface {
	// GetBySlug returns repositories.ErrNotFound when no asset has slug.
	GetBySlug(ctx context.Context, slug string) (*models.Asset, error)
	// List hides DELETED assets unless filter.Status asks for them.
	List(ctx context.Context, filter models.AssetFilter) ([]models.Asset, error)
	Create(ctx context.Context, asset *models.Asset) error
	// Save writes every mutable column of the asset, keyed by its ID.
	Save(ctx context.Context, asset *models.Asset) error
	SetPreviewIfEmpty(ctx context.Context, id int, preview string) error
	SoftDelete(ctx context.Context, slug string) error
	// SetTechnologies replaces the whole technology set of the asset.
	SetTechnologies(ctx context.Context, assetID int, technologyIDs []int) error
	ListStaleSlugs(ctx context.Context, syncedBefore time.Time, limit int) ([]string, error)
}

// TechnologyRepository is the interface that wraps methods for asset_technologies table data access
type TechnologyRepository interface {
	GetBySlug(ctx context.Context, slug string) (*models.AssetTechnology, error)
	GetOrCreate(ctx context.Context, slug string) (*models.AssetTechnology, error)
	List(ctx context.Context, filter models.TechnologyFilter) ([]models.AssetTechnology, error)
	Update(ctx context.Context, tech *models.AssetTechnology) error
}

// MediaRepository is the part of media data access used to resolve thumbnails
type MediaRepository interface {
	GetBySlug(ctx context.Context, slug string) (*models.Media, error)
	IncrementHits(ctx context.Context, id int) error
	GetResolution(ctx context.Context, hash string, width, height int) (*models.MediaResolution, error)
	IncrementResolutionHits(ctx context.Context, id int) error
}

// UserRepository reads users and their linked source-control credentials
type UserRepository interface {
	GetByID(ctx context.Context, id int) (*models.User, error)
	GetCredentials(ctx context.Context, userID int) (*models.GithubCredentials, error)
}

// ErrorLogRepository appends asset error log entries
type ErrorLogRepository interface {
	Create(ctx context.Context, entry *models.AssetErrorLog) error
}

// SourceClient reads and writes files of a source repository
type SourceClient interface {
	FetchFile(ctx context.Context, org, repo, path, branch string) (*github.File, error)
	FetchContent(ctx context.Context, org, repo, path, ref string) (*github.File, error)
	WriteFile(ctx context.Context, org, repo, path string, content []byte, branch, message string) (*github.CommitResult, error)
}

// SourceClientFactory builds a SourceClient authenticated with token
type SourceClientFactory func(token string) (SourceClient, error)

// Locker grants per-key mutual exclusion. ok is false when someone else holds key.
type Locker interface {
	TryLock(ctx context.Context, key string) (release lock.ReleaseFunc, ok bool, err error)
}

// TaskEnqueuer schedules background jobs without waiting for them
type TaskEnqueuer interface {
	EnqueueThumbnailCreate(ctx context.Context, assetSlug string) error
	EnqueueThumbnailResize(ctx context.Context, mediaID, width, height int) error
	EnqueueAssetSync(ctx context.Context, slug string, overrideMeta bool) error
	EnqueueEmail(ctx context.Context, payload tasks.EmailPayload) error
}
