package services

import (
	"context"
	"time"

	"github.com/bootcamp/registry/internal/github"
	"github.com/bootcamp/registry/internal/lock"
	"github.com/bootcamp/registry/internal/models"
	"github.com/bootcamp/registry/internal/repositories"
	"github.com/bootcamp/registry/internal/tasks"
	"go.uber.org/zap"
)

var testLogger = zap.NewNop()

func intPtr(v int) *int {
	return &v
}

// mockAssetRepository keeps assets by slug and records every Save
type mockAssetRepository struct {
	assets    map[string]*models.Asset
	saved     []models.Asset
	created   []*models.Asset
	techLinks map[int][]int
	previews  map[int]string
	deleted   []string
	stale     []string
	events    []string

	staleBefore time.Time
	staleLimit  int

	getErr    error
	saveErr   error
	listErr   error
	createErr error
	// failSaveOn makes only the n-th Save fail with saveErr when set
	failSaveOn int
	saveCalls  int
}

func newMockAssetRepository(assets ...*models.Asset) *mockAssetRepository {
	m := &mockAssetRepository{
		assets:    map[string]*models.Asset{},
		techLinks: map[int][]int{},
		previews:  map[int]string{},
	}
	for _, a := range assets {
		m.assets[a.Slug] = a
	}
	return m
}

func (m *mockAssetRepository) GetBySlug(ctx context.Context, slug string) (*models.Asset, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	a, ok := m.assets[slug]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	c := *a
	return &c, nil
}

func (m *mockAssetRepository) List(ctx context.Context, filter models.AssetFilter) ([]models.Asset, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []models.Asset
	for _, a := range m.assets {
		if filter.AssetType != "" && a.AssetType != filter.AssetType {
			continue
		}
		out = append(out, *a)
	}
	return out, nil
}

func (m *mockAssetRepository) Create(ctx context.Context, asset *models.Asset) error {
	if m.createErr != nil {
		return m.createErr
	}
	asset.ID = len(m.assets) + 100
	m.created = append(m.created, asset)
	c := *asset
	m.assets[asset.Slug] = &c
	return nil
}

func (m *mockAssetRepository) Save(ctx context.Context, asset *models.Asset) error {
	m.saveCalls++
	if m.saveErr != nil && (m.failSaveOn == 0 || m.failSaveOn == m.saveCalls) {
		return m.saveErr
	}
	m.events = append(m.events, "save")
	m.saved = append(m.saved, *asset)
	c := *asset
	m.assets[asset.Slug] = &c
	return nil
}

func (m *mockAssetRepository) SetPreviewIfEmpty(ctx context.Context, id int, preview string) error {
	m.previews[id] = preview
	return nil
}

func (m *mockAssetRepository) SoftDelete(ctx context.Context, slug string) error {
	a, ok := m.assets[slug]
	if !ok {
		return repositories.ErrNotFound
	}
	a.Status = models.AssetStatusDeleted
	m.deleted = append(m.deleted, slug)
	return nil
}

func (m *mockAssetRepository) SetTechnologies(ctx context.Context, assetID int, technologyIDs []int) error {
	m.events = append(m.events, "links")
	m.techLinks[assetID] = technologyIDs
	return nil
}

func (m *mockAssetRepository) ListStaleSlugs(ctx context.Context, syncedBefore time.Time, limit int) ([]string, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	m.staleBefore = syncedBefore
	m.staleLimit = limit
	return m.stale, nil
}

func (m *mockAssetRepository) lastSaved() models.Asset {
	return m.saved[len(m.saved)-1]
}

// mockTechnologyRepository creates technologies on demand with increasing IDs
type mockTechnologyRepository struct {
	techs   map[string]*models.AssetTechnology
	listed  []models.AssetTechnology
	updated []*models.AssetTechnology
	filter  models.TechnologyFilter
	err     error
}

func newMockTechnologyRepository(techs ...*models.AssetTechnology) *mockTechnologyRepository {
	m := &mockTechnologyRepository{techs: map[string]*models.AssetTechnology{}}
	for _, t := range techs {
		m.techs[t.Slug] = t
	}
	return m
}

func (m *mockTechnologyRepository) GetBySlug(ctx context.Context, slug string) (*models.AssetTechnology, error) {
	if m.err != nil {
		return nil, m.err
	}
	t, ok := m.techs[slug]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	c := *t
	return &c, nil
}

func (m *mockTechnologyRepository) GetOrCreate(ctx context.Context, slug string) (*models.AssetTechnology, error) {
	if m.err != nil {
		return nil, m.err
	}
	if t, ok := m.techs[slug]; ok {
		return t, nil
	}
	t := &models.AssetTechnology{ID: len(m.techs) + 1, Slug: slug, Title: slug, Visibility: models.VisibilityPublic}
	m.techs[slug] = t
	return t, nil
}

func (m *mockTechnologyRepository) List(ctx context.Context, filter models.TechnologyFilter) ([]models.AssetTechnology, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.filter = filter
	return m.listed, nil
}

func (m *mockTechnologyRepository) Update(ctx context.Context, tech *models.AssetTechnology) error {
	if m.err != nil {
		return m.err
	}
	m.updated = append(m.updated, tech)
	return nil
}

// mockMediaRepository counts hits per media and resolution
type mockMediaRepository struct {
	media       map[string]*models.Media
	resolutions []models.MediaResolution
	hits        map[int]int
	resHits     map[int]int
	err         error
}

func newMockMediaRepository() *mockMediaRepository {
	return &mockMediaRepository{
		media:   map[string]*models.Media{},
		hits:    map[int]int{},
		resHits: map[int]int{},
	}
}

func (m *mockMediaRepository) GetBySlug(ctx context.Context, slug string) (*models.Media, error) {
	if m.err != nil {
		return nil, m.err
	}
	media, ok := m.media[slug]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return media, nil
}

func (m *mockMediaRepository) IncrementHits(ctx context.Context, id int) error {
	m.hits[id]++
	return nil
}

func (m *mockMediaRepository) GetResolution(ctx context.Context, hash string, width, height int) (*models.MediaResolution, error) {
	for i := range m.resolutions {
		r := m.resolutions[i]
		if r.Hash == hash && (r.Width == width || r.Height == height) {
			return &r, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (m *mockMediaRepository) IncrementResolutionHits(ctx context.Context, id int) error {
	m.resHits[id]++
	return nil
}

// mockUserRepository serves users and credentials by user ID
type mockUserRepository struct {
	users map[int]*models.User
	creds map[int]*models.GithubCredentials
	err   error
}

func newMockUserRepository() *mockUserRepository {
	return &mockUserRepository{
		users: map[int]*models.User{},
		creds: map[int]*models.GithubCredentials{},
	}
}

func (m *mockUserRepository) withCredentials(userID int, token string) *mockUserRepository {
	m.creds[userID] = &models.GithubCredentials{UserID: userID, Username: "user", Token: token}
	return m
}

func (m *mockUserRepository) GetByID(ctx context.Context, id int) (*models.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	u, ok := m.users[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return u, nil
}

func (m *mockUserRepository) GetCredentials(ctx context.Context, userID int) (*models.GithubCredentials, error) {
	if m.err != nil {
		return nil, m.err
	}
	c, ok := m.creds[userID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return c, nil
}

// mockErrorLogRepository records appended entries
type mockErrorLogRepository struct {
	entries []*models.AssetErrorLog
	err     error
}

func (m *mockErrorLogRepository) Create(ctx context.Context, entry *models.AssetErrorLog) error {
	if m.err != nil {
		return m.err
	}
	m.entries = append(m.entries, entry)
	return nil
}

// mockSourceClient is an in-memory repository host. Files are keyed by
// org/repo/ref/path; FetchContent with an empty ref reads the "" ref.
type mockSourceClient struct {
	files    map[string][]byte
	err      error
	writeErr error
	fetched  []string
	commits  int
}

func newMockSourceClient() *mockSourceClient {
	return &mockSourceClient{files: map[string][]byte{}}
}

func sourceKey(org, repo, ref, path string) string {
	return org + "/" + repo + "/" + ref + "/" + path
}

func (m *mockSourceClient) put(org, repo, ref, path, content string) *mockSourceClient {
	m.files[sourceKey(org, repo, ref, path)] = []byte(content)
	return m
}

func (m *mockSourceClient) get(org, repo, ref, path string) (*github.File, error) {
	m.fetched = append(m.fetched, path)
	if m.err != nil {
		return nil, m.err
	}
	content, ok := m.files[sourceKey(org, repo, ref, path)]
	if !ok {
		return nil, github.ErrNotFound
	}
	return &github.File{Path: path, Content: content}, nil
}

func (m *mockSourceClient) FetchFile(ctx context.Context, org, repo, path, branch string) (*github.File, error) {
	return m.get(org, repo, branch, path)
}

func (m *mockSourceClient) FetchContent(ctx context.Context, org, repo, path, ref string) (*github.File, error) {
	return m.get(org, repo, ref, path)
}

func (m *mockSourceClient) WriteFile(ctx context.Context, org, repo, path string, content []byte, branch, message string) (*github.CommitResult, error) {
	if m.writeErr != nil {
		return nil, m.writeErr
	}
	if len(content) == 0 {
		return nil, github.ErrEmptyContent
	}
	key := sourceKey(org, repo, branch, path)
	if _, ok := m.files[key]; !ok {
		return nil, github.ErrNotFound
	}
	m.files[key] = append([]byte(nil), content...)
	m.commits++
	return &github.CommitResult{SHA: "commit-sha"}, nil
}

// clientFactory hands out client and records the tokens it was asked for
type clientFactory struct {
	client *mockSourceClient
	tokens []string
	err    error
}

func (f *clientFactory) build(token string) (SourceClient, error) {
	f.tokens = append(f.tokens, token)
	if f.err != nil {
		return nil, f.err
	}
	return f.client, nil
}

// mockLocker grants each key once until it is released
type mockLocker struct {
	held     map[string]bool
	released []string
	err      error
}

func newMockLocker() *mockLocker {
	return &mockLocker{held: map[string]bool{}}
}

func (m *mockLocker) TryLock(ctx context.Context, key string) (lock.ReleaseFunc, bool, error) {
	if m.err != nil {
		return nil, false, m.err
	}
	if m.held[key] {
		return nil, false, nil
	}
	m.held[key] = true
	return func(ctx context.Context) error {
		m.held[key] = false
		m.released = append(m.released, key)
		return nil
	}, true, nil
}

type resizeCall struct {
	mediaID, width, height int
}

// mockEnqueuer records enqueued tasks
type mockEnqueuer struct {
	creates []string
	resizes []resizeCall
	syncs   []string
	emails  []tasks.EmailPayload
	err     error
}

func (m *mockEnqueuer) EnqueueThumbnailCreate(ctx context.Context, assetSlug string) error {
	m.creates = append(m.creates, assetSlug)
	return m.err
}

func (m *mockEnqueuer) EnqueueThumbnailResize(ctx context.Context, mediaID, width, height int) error {
	m.resizes = append(m.resizes, resizeCall{mediaID, width, height})
	return m.err
}

func (m *mockEnqueuer) EnqueueAssetSync(ctx context.Context, slug string, overrideMeta bool) error {
	if m.err != nil {
		return m.err
	}
	m.syncs = append(m.syncs, slug)
	return nil
}

func (m *mockEnqueuer) EnqueueEmail(ctx context.Context, payload tasks.EmailPayload) error {
	m.emails = append(m.emails, payload)
	return m.err
}
