package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	authMiddleware "github.com/bootcamp/registry/internal/auth/middleware"
	"github.com/bootcamp/registry/internal/models"
	"github.com/bootcamp/registry/internal/readme"
	"github.com/bootcamp/registry/internal/services"
	"go.uber.org/zap"
)

var testLogger = zap.NewNop()

const (
	staffUserID = 42
	staffRole   = 2
	testAPIKey  = "service-key"
)

// tokenValidator accepts the token "staff" only
type tokenValidator struct{}

func (tokenValidator) ValidateAccessToken(token string) (int, int, error) {
	if token != "staff" {
		return 0, 0, errors.New("invalid token")
	}
	return staffUserID, staffRole, nil
}

func staffMiddleware() func(http.Handler) http.Handler {
	return authMiddleware.RoleMiddleware(tokenValidator{}, staffRole)
}

func serviceMiddleware() func(http.Handler) http.Handler {
	return authMiddleware.APIKeyMiddleware(testAPIKey)
}

type mockAssetService struct {
	assets    map[string]*models.Asset
	filter    models.AssetFilter
	created   *models.CreateAssetRequest
	deleted   []string
	listErr   error
	createErr error
	readme    string
	format    string
	keepFM    bool
	forward   string
	openErr   error
}

func newMockAssetService(assets ...*models.Asset) *mockAssetService {
	m := &mockAssetService{assets: map[string]*models.Asset{}}
	for _, a := range assets {
		m.assets[a.Slug] = a
	}
	return m
}

func (m *mockAssetService) List(ctx context.Context, filter models.AssetFilter) ([]models.Asset, error) {
	m.filter = filter
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := []models.Asset{}
	for _, a := range m.assets {
		out = append(out, *a)
	}
	return out, nil
}

func (m *mockAssetService) Get(ctx context.Context, slug string) (*models.Asset, error) {
	a, ok := m.assets[slug]
	if !ok {
		return nil, services.ErrAssetNotFound
	}
	return a, nil
}

func (m *mockAssetService) Create(ctx context.Context, req models.CreateAssetRequest) (*models.Asset, error) {
	m.created = &req
	if m.createErr != nil {
		return nil, m.createErr
	}
	return &models.Asset{ID: 1, Slug: req.Slug, Title: req.Title, OwnerID: req.OwnerID}, nil
}

func (m *mockAssetService) Delete(ctx context.Context, slug string) error {
	if _, ok := m.assets[slug]; !ok {
		return services.ErrAssetNotFound
	}
	m.deleted = append(m.deleted, slug)
	return nil
}

func (m *mockAssetService) RenderReadme(ctx context.Context, slug, format string, keepFrontmatter bool) (string, readme.Format, error) {
	m.format = format
	m.keepFM = keepFrontmatter
	f, err := readme.ParseFormat(format)
	if err != nil {
		return "", "", services.ErrInvalidInput
	}
	if _, ok := m.assets[slug]; !ok {
		return "", "", services.ErrAssetNotFound
	}
	return m.readme, f, nil
}

func (m *mockAssetService) ForwardURL(ctx context.Context, slug string) (string, error) {
	if _, ok := m.assets[slug]; !ok {
		return "", services.ErrAssetNotFound
	}
	return m.forward, m.openErr
}

// mockActions implements the sync, test and clean services and mutates the
// shared asset service so the handler sees refreshed state
type mockActions struct {
	assets   *mockAssetService
	calls    []string
	pullOpts services.PullOptions
	pushOpts services.PushOptions
	err      error
	// renameTo makes Pull move the asset to a new slug and return it
	renameTo string
}

func (m *mockActions) touch(slug, action string) error {
	m.calls = append(m.calls, action)
	a, ok := m.assets.assets[slug]
	if !ok {
		return services.ErrAssetNotFound
	}
	a.StatusText = action
	return m.err
}

func (m *mockActions) Pull(ctx context.Context, slug string, opts services.PullOptions) (*models.Asset, error) {
	m.pullOpts = opts
	if _, ok := m.assets.assets[slug]; !ok {
		m.calls = append(m.calls, "sync")
		return nil, &services.SyncError{Kind: services.KindNotFound, Slug: slug, Err: services.ErrAssetNotFound}
	}
	if m.renameTo != "" {
		m.calls = append(m.calls, "sync")
		a := m.assets.assets[slug]
		delete(m.assets.assets, slug)
		a.Slug = m.renameTo
		a.StatusText = "sync"
		m.assets.assets[a.Slug] = a
		return a, m.err
	}
	return nil, m.touch(slug, "sync")
}

func (m *mockActions) Push(ctx context.Context, slug string, opts services.PushOptions) (*models.Asset, error) {
	m.pushOpts = opts
	return nil, m.touch(slug, "push")
}

func (m *mockActions) Test(ctx context.Context, slug string) (*models.Asset, bool, error) {
	return nil, false, m.touch(slug, "test")
}

func (m *mockActions) Clean(ctx context.Context, slug string) (*models.Asset, error) {
	return nil, m.touch(slug, "clean")
}

type mockThumbnailService struct {
	url           string
	permanent     bool
	err           error
	width, height int
}

func (m *mockThumbnailService) GetThumbnailURL(ctx context.Context, slug string, width, height int) (string, bool, error) {
	m.width, m.height = width, height
	return m.url, m.permanent, m.err
}

type mockConfigService struct {
	config json.RawMessage
	err    error
}

func (m *mockConfigService) GetConfig(ctx context.Context, slug string) (json.RawMessage, error) {
	return m.config, m.err
}

type mockSyncQueue struct {
	slugs    []string
	override bool
	err      error
}

func (m *mockSyncQueue) Enqueue(ctx context.Context, slug string, overrideMeta bool) error {
	if m.err != nil {
		return m.err
	}
	m.slugs = append(m.slugs, slug)
	m.override = overrideMeta
	return nil
}

type mockTechnologyService struct {
	filter  models.TechnologyFilter
	techs   []models.AssetTechnology
	updated *models.UpdateTechnologyRequest
	err     error
}

func (m *mockTechnologyService) List(ctx context.Context, filter models.TechnologyFilter) ([]models.AssetTechnology, error) {
	m.filter = filter
	return m.techs, m.err
}

func (m *mockTechnologyService) Update(ctx context.Context, slug string, req models.UpdateTechnologyRequest) (*models.AssetTechnology, error) {
	m.updated = &req
	if m.err != nil {
		return nil, m.err
	}
	return &models.AssetTechnology{ID: 1, Slug: slug}, nil
}
