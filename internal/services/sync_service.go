package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bootcamp/registry/internal/github"
	"github.com/bootcamp/registry/internal/models"
	"github.com/bootcamp/registry/internal/readme"
	"github.com/bootcamp/registry/internal/repositories"
	"github.com/gosimple/slug"
	"go.uber.org/zap"
)

const (
	statusTextPulling  = "Starting to sync..."
	statusTextPushing  = "Starting to push..."
	statusTextSynced   = "Successfully Synched"
	statusTextExternal = "Readme file for external asset generated, not synched with a repository"
)

var errSyncInProgress = errors.New("another sync of this asset is in progress")

// SyncConfig holds the settings SyncService needs
type SyncConfig struct {
	// Host is the only source-control host readme URLs may point to
	Host string
	// CommitMessage is used for every pushed readme
	CommitMessage string
}

// PullOptions tunes a pull
type PullOptions struct {
	// AuthorID supplies credentials for assets without an owner
	AuthorID *int
	// OverrideMeta re-imports frontmatter/manifest metadata on an already synced asset
	OverrideMeta bool
}

// PushOptions tunes a push
type PushOptions struct {
	// AuthorID takes precedence over the asset owner
	AuthorID *int
}

// SyncService pulls assets from and pushes them to their source repositories
type SyncService struct {
	assets       AssetRepository
	technologies TechnologyRepository
	users        UserRepository
	clients      SourceClientFactory
	locker       Locker
	cleaner      *CleanService
	cfg          SyncConfig
	logger       *zap.Logger
	now          func() time.Time
}

// NewSyncService creates a new sync service
func NewSyncService(
	assets AssetRepository,
	technologies TechnologyRepository,
	users UserRepository,
	clients SourceClientFactory,
	locker Locker,
	cleaner *CleanService,
	cfg SyncConfig,
	logger *zap.Logger,
) *SyncService {
	return &SyncService{
		assets:       assets,
		technologies: technologies,
		users:        users,
		clients:      clients,
		locker:       locker,
		cleaner:      cleaner,
		cfg:          cfg,
		logger:       logger,
		now:          time.Now,
	}
}

// Pull fetches the asset's content from its repository and merges it into the
// stored asset.
//
// The asset always ends in OK or ERROR, never PENDING. When it ends in ERROR the
// updated asset is returned together with a *SyncError describing the failure.
// If another pull or push holds the asset, a SyncError of kind IN_PROGRESS is
// returned and the asset is not touched.
func (s *SyncService) Pull(ctx context.Context, slug string, opts PullOptions) (*models.Asset, error) {
	release, err := s.acquire(ctx, slug)
	if err != nil {
		return nil, err
	}
	defer s.release(ctx, slug, release)

	asset, err := s.load(ctx, slug)
	if err != nil {
		return nil, err
	}

	asset.SetSyncStatus(models.SyncStatusPending, statusTextPulling)
	if err := s.assets.Save(ctx, asset); err != nil {
		return nil, fmt.Errorf("failed to save asset: %w", err)
	}

	if asset.External {
		return s.finishExternal(ctx, asset)
	}

	return s.finish(ctx, asset, s.pull(ctx, asset, opts))
}

// Push overwrites the asset's file in its repository with the stored readme.
// Status handling matches Pull.
func (s *SyncService) Push(ctx context.Context, slug string, opts PushOptions) (*models.Asset, error) {
	release, err := s.acquire(ctx, slug)
	if err != nil {
		return nil, err
	}
	defer s.release(ctx, slug, release)

	asset, err := s.load(ctx, slug)
	if err != nil {
		return nil, err
	}

	asset.SetSyncStatus(models.SyncStatusPending, statusTextPushing)
	if err := s.assets.Save(ctx, asset); err != nil {
		return nil, fmt.Errorf("failed to save asset: %w", err)
	}

	return s.finish(ctx, asset, s.push(ctx, asset, opts))
}

func (s *SyncService) acquire(ctx context.Context, slug string) (func(context.Context) error, error) {
	release, ok, err := s.locker.TryLock(ctx, "asset:"+slug)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire sync lock: %w", err)
	}
	if !ok {
		return nil, &SyncError{Kind: KindInProgress, Slug: slug, Err: errSyncInProgress}
	}
	return release, nil
}

func (s *SyncService) release(ctx context.Context, slug string, release func(context.Context) error) {
	if err := release(context.WithoutCancel(ctx)); err != nil {
		s.logger.Warn("failed to release sync lock", zap.String("slug", slug), zap.Error(err))
	}
}

func (s *SyncService) load(ctx context.Context, slug string) (*models.Asset, error) {
	asset, err := s.assets.GetBySlug(ctx, slug)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, &SyncError{Kind: KindNotFound, Slug: slug, Err: ErrAssetNotFound}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get asset: %w", err)
	}
	return asset, nil
}

func (s *SyncService) finishExternal(ctx context.Context, asset *models.Asset) (*models.Asset, error) {
	text, err := readme.RenderExternal(readme.ExternalData{
		Title:       asset.Title,
		Description: asset.Description,
		Kind:        strings.ToLower(string(asset.AssetType)),
		URL:         asset.URL,
	})
	if err != nil {
		return s.finish(ctx, asset, &SyncError{Kind: KindValidationFailure, Slug: asset.Slug, Err: err})
	}
	html, err := readme.ToHTML(text)
	if err != nil {
		return s.finish(ctx, asset, &SyncError{Kind: KindValidationFailure, Slug: asset.Slug, Err: err})
	}

	asset.SetReadme(text)
	asset.HTML = html
	asset.SetSyncStatus(models.SyncStatusOK, statusTextExternal)
	asset.LastSynchAt = nil
	if err := s.assets.Save(ctx, asset); err != nil {
		return asset, fmt.Errorf("failed to save asset: %w", err)
	}
	return asset, nil
}

// finish persists the terminal state of a pull or push
func (s *SyncService) finish(ctx context.Context, asset *models.Asset, opErr error) (*models.Asset, error) {
	if opErr == nil {
		now := s.now()
		asset.SetSyncStatus(models.SyncStatusOK, statusTextSynced)
		asset.LastSynchAt = &now
		if err := s.assets.Save(ctx, asset); err != nil {
			s.logger.Error("failed to save synced asset", zap.String("slug", asset.Slug), zap.Error(err))
			return asset, fmt.Errorf("failed to save asset: %w", err)
		}
		if err := s.linkTechnologies(ctx, asset); err != nil {
			return asset, err
		}
		s.logger.Info("asset synced", zap.String("slug", asset.Slug))
		return asset, nil
	}

	syncErr := asSyncError(asset.Slug, opErr)
	asset.SetSyncStatus(models.SyncStatusError, syncErr.Message())
	s.logger.Error("asset sync failed",
		zap.String("slug", asset.Slug),
		zap.String("kind", string(syncErr.Kind)),
		zap.Error(syncErr.Err),
	)
	if err := s.assets.Save(ctx, asset); err != nil {
		s.logger.Error("failed to save asset sync error", zap.String("slug", asset.Slug), zap.Error(err))
	} else if err := s.linkTechnologies(ctx, asset); err != nil {
		s.logger.Error("failed to link technologies", zap.String("slug", asset.Slug), zap.Error(err))
	}
	return asset, syncErr
}

// linkTechnologies writes the technology links staged during the sync. It runs
// after the asset row is saved so a failed save leaves the old links in place.
func (s *SyncService) linkTechnologies(ctx context.Context, asset *models.Asset) error {
	if asset.StagedTechnologyIDs == nil {
		return nil
	}
	if err := s.assets.SetTechnologies(ctx, asset.ID, asset.StagedTechnologyIDs); err != nil {
		return fmt.Errorf("failed to set technologies: %w", err)
	}
	asset.StagedTechnologyIDs = nil
	return nil
}

func (s *SyncService) pull(ctx context.Context, asset *models.Asset, opts PullOptions) error {
	// the owner's credentials win over an explicit author
	authorID := opts.AuthorID
	if asset.OwnerID != nil {
		authorID = asset.OwnerID
	}
	if authorID == nil {
		return syncErrorf(KindMissingCredentials, asset.Slug,
			"system does not know what credentials to use to retrieve asset info for: %s", asset.Slug)
	}

	if err := s.checkSource(asset); err != nil {
		return err
	}

	client, err := s.clientFor(ctx, asset.Slug, *authorID)
	if err != nil {
		return err
	}

	switch {
	case asset.AssetType.IsMarkdown():
		return s.pullLesson(ctx, client, asset, opts.OverrideMeta)
	case asset.AssetType == models.AssetTypeQuiz:
		return s.pullQuiz(ctx, client, asset)
	default:
		return s.pullLearnpack(ctx, client, asset, opts.OverrideMeta)
	}
}

func (s *SyncService) push(ctx context.Context, asset *models.Asset, opts PushOptions) error {
	authorID := opts.AuthorID
	if authorID == nil {
		authorID = asset.OwnerID
	}

	if asset.External {
		return syncErrorf(KindInvalidSource, asset.Slug,
			"asset is marked as external so it cannot be pushed to a repository")
	}
	if authorID == nil {
		return syncErrorf(KindMissingCredentials, asset.Slug,
			"asset must have an owner with write permissions on the repository")
	}
	if err := s.checkSource(asset); err != nil {
		return err
	}

	client, err := s.clientFor(ctx, asset.Slug, *authorID)
	if err != nil {
		return err
	}

	loc, err := s.locate(asset, "readme")
	if err != nil {
		return err
	}

	content, err := asset.DecodedReadme()
	if err != nil {
		return &SyncError{Kind: KindValidationFailure, Slug: asset.Slug, Err: err}
	}

	commit, err := client.WriteFile(ctx, loc.Org, loc.Repo, loc.Path, []byte(content), loc.Branch, s.cfg.CommitMessage)
	if err != nil {
		return sourceError(asset.Slug, err)
	}
	s.logger.Info("readme pushed",
		zap.String("slug", asset.Slug),
		zap.String("commit", commit.SHA),
	)
	return nil
}

func (s *SyncService) checkSource(asset *models.Asset) error {
	if asset.ReadmeURL == "" || !github.IsHostURL(asset.ReadmeURL, s.cfg.Host) {
		return syncErrorf(KindInvalidSource, asset.Slug,
			"missing or invalid URL on %s, it does not belong to %s", asset.Slug, s.cfg.Host)
	}
	return nil
}

func (s *SyncService) clientFor(ctx context.Context, slug string, userID int) (SourceClient, error) {
	creds, err := s.users.GetCredentials(ctx, userID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, syncErrorf(KindMissingCredentials, slug,
			"credentials for user %d not found when syncing asset %s", userID, slug)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get credentials: %w", err)
	}

	client, err := s.clients(creds.Token)
	if err != nil {
		return nil, &SyncError{Kind: KindInvalidConfiguration, Slug: slug, Err: err}
	}
	return client, nil
}

// locate parses readme_url and requires it to name a branch
func (s *SyncService) locate(asset *models.Asset, kind string) (github.SourceLocation, error) {
	loc, err := github.ParseSourceURL(asset.ReadmeURL)
	if err != nil {
		return loc, &SyncError{Kind: KindInvalidSource, Slug: asset.Slug, Err: err}
	}
	if !loc.HasBranch() {
		return loc, syncErrorf(KindInvalidConfiguration, asset.Slug,
			"%s URL must include branch name after blob", kind)
	}
	return loc, nil
}

func (s *SyncService) pullLesson(ctx context.Context, client SourceClient, asset *models.Asset, override bool) error {
	loc, err := s.locate(asset, "lesson")
	if err != nil {
		return err
	}

	file, err := client.FetchFile(ctx, loc.Org, loc.Repo, loc.Path, loc.Branch)
	if err != nil {
		return sourceError(asset.Slug, err)
	}
	asset.SetReadmeRaw(string(file.Content))

	// metadata is only imported on the first sync unless explicitly overridden
	if asset.LastSynchAt == nil || override {
		if err := s.importFrontmatter(ctx, asset, string(file.Content)); err != nil {
			return err
		}
	}

	s.clean(ctx, asset)
	return nil
}

func (s *SyncService) importFrontmatter(ctx context.Context, asset *models.Asset, content string) error {
	meta, _, err := readme.ParseFrontmatter(content)
	if err != nil {
		return &SyncError{Kind: KindValidationFailure, Slug: asset.Slug, Err: err}
	}

	if newSlug, ok := readme.StringField(meta, "slug"); ok && newSlug != asset.Slug {
		s.logger.Info("asset slug changed by frontmatter",
			zap.String("slug", asset.Slug),
			zap.String("new_slug", newSlug),
		)
		asset.Slug = newSlug
	}

	if excerpt, ok := readme.StringField(meta, "excerpt"); ok {
		asset.Description = excerpt
	} else if subtitle, ok := readme.StringField(meta, "subtitle"); ok {
		asset.Description = subtitle
	}

	if title, ok := readme.StringField(meta, "title"); ok {
		asset.Title = title
	}

	if authors, ok := readme.StringList(meta, "authors"); ok {
		asset.AuthorsUsername = strings.Join(authors, ",")
	}

	if tags, ok := meta["tags"].([]any); ok {
		if err := s.setTechnologies(ctx, asset, tags); err != nil {
			return err
		}
	}
	return nil
}

func (s *SyncService) pullQuiz(ctx context.Context, client SourceClient, asset *models.Asset) error {
	loc, err := s.locate(asset, "quiz")
	if err != nil {
		return err
	}

	file, err := client.FetchFile(ctx, loc.Org, loc.Repo, loc.Path, loc.Branch)
	if err != nil {
		return sourceError(asset.Slug, err)
	}
	if !json.Valid(file.Content) {
		return syncErrorf(KindValidationFailure, asset.Slug, "quiz file %s is not valid JSON", loc.Path)
	}

	asset.Config = json.RawMessage(file.Content)
	return nil
}

func (s *SyncService) pullLearnpack(ctx context.Context, client SourceClient, asset *models.Asset, override bool) error {
	loc, err := github.ParseSourceURL(asset.ReadmeURL)
	if err != nil {
		return &SyncError{Kind: KindInvalidSource, Slug: asset.Slug, Err: err}
	}

	if asset.Lang == "" {
		return syncErrorf(KindInvalidConfiguration, asset.Slug,
			"language for this asset is not defined, impossible to retrieve readme")
	}
	suffix := ""
	if asset.Lang != "us" && asset.Lang != "en" {
		suffix = "." + asset.Lang
	}

	readmeFile, err := client.FetchContent(ctx, loc.Org, loc.Repo, "README"+suffix+".md", loc.Branch)
	if errors.Is(err, github.ErrNotFound) {
		return syncErrorf(KindNotFound, asset.Slug, "translation on README%s.md not found: %w", suffix, err)
	}
	if err != nil {
		return sourceError(asset.Slug, err)
	}

	manifest, err := fetchManifest(ctx, client, loc.Org, loc.Repo, loc.Branch)
	if err != nil {
		return sourceError(asset.Slug, err)
	}

	asset.SetReadmeRaw(string(readmeFile.Content))

	if asset.LastSynchAt == nil || override {
		if err := s.importManifest(ctx, asset, manifest.Content, suffix == ""); err != nil {
			return err
		}
	}

	s.clean(ctx, asset)
	return nil
}

// importManifest copies learnpack manifest fields onto the asset. Title and
// description only replace existing values for the English translation.
func (s *SyncService) importManifest(ctx context.Context, asset *models.Asset, raw []byte, english bool) error {
	var manifest map[string]any
	if err := json.Unmarshal(raw, &manifest); err != nil {
		return syncErrorf(KindValidationFailure, asset.Slug, "invalid manifest: %w", err)
	}
	asset.Config = json.RawMessage(raw)

	if title, ok := manifest["title"].(string); ok && (english || asset.Title == "") {
		asset.Title = title
	}
	if description, ok := manifest["description"].(string); ok && (english || asset.Description == "") {
		asset.Description = description
	}

	preview, ok := scalarString(manifest["preview"])
	if !ok {
		return syncErrorf(KindValidationFailure, asset.Slug, "missing preview URL")
	}
	asset.Preview = preview

	if videoID, ok := scalarString(manifest["video-id"]); ok {
		asset.SolutionVideoURL = readme.VideoURL(videoID)
		asset.WithVideo = true
	}

	if duration, ok := manifest["duration"].(float64); ok {
		d := int(duration)
		asset.Duration = &d
	}

	if difficulty, ok := manifest["difficulty"].(string); ok {
		asset.Difficulty = strings.ToUpper(difficulty)
	}

	if solution, ok := manifest["solution"].(string); ok {
		asset.Solution = solution
		asset.WithSolutions = true
	}

	if technologies, ok := manifest["technologies"].([]any); ok {
		if err := s.setTechnologies(ctx, asset, technologies); err != nil {
			return err
		}
	}

	if delivery, ok := manifest["delivery"].(map[string]any); ok {
		importDelivery(asset, delivery)
	}
	return nil
}

func importDelivery(asset *models.Asset, delivery map[string]any) {
	switch instructions := delivery["instructions"].(type) {
	case string:
		asset.DeliveryInstructions = instructions
	case map[string]any:
		if text, ok := instructions[asset.Lang].(string); ok {
			asset.DeliveryInstructions = text
		}
	}

	switch formats := delivery["formats"].(type) {
	case []any:
		names := make([]string, 0, len(formats))
		for _, f := range formats {
			if name, ok := f.(string); ok {
				names = append(names, name)
			}
		}
		asset.DeliveryFormats = strings.Join(names, ",")
	case string:
		asset.DeliveryFormats = formats
	}

	if strings.Contains(asset.DeliveryFormats, "url") {
		if regex, ok := delivery["regex"].(string); ok {
			asset.DeliveryRegexURL = strings.ReplaceAll(regex, `\\`, `\`)
		}
	}
}

// setTechnologies replaces the asset's technologies with the slugified tags,
// creating unknown technologies on the way. The links are staged on the asset
// and written by linkTechnologies after the terminal save.
func (s *SyncService) setTechnologies(ctx context.Context, asset *models.Asset, tags []any) error {
	ids := make([]int, 0, len(tags))
	slugs := make([]string, 0, len(tags))
	for _, tag := range tags {
		name, ok := scalarString(tag)
		if !ok {
			continue
		}
		techSlug := slug.Make(name)
		if techSlug == "" {
			continue
		}

		tech, err := s.technologies.GetOrCreate(ctx, techSlug)
		if err != nil {
			return fmt.Errorf("failed to get technology %s: %w", techSlug, err)
		}
		ids = append(ids, tech.ID)
		slugs = append(slugs, tech.Slug)
	}

	asset.Technologies = slugs
	asset.StagedTechnologyIDs = ids
	return nil
}

// clean runs the readme pipeline. A cleaning failure is recorded on the asset
// and does not fail the sync.
func (s *SyncService) clean(ctx context.Context, asset *models.Asset) {
	if err := s.cleaner.Apply(ctx, asset); err != nil {
		s.logger.Warn("readme cleaning failed", zap.String("slug", asset.Slug), zap.Error(err))
	}
}
