package media

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bootcamp/registry/internal/models"
	"github.com/bootcamp/registry/internal/repositories"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// mockAssetRepository is a mock implementation of AssetRepository
type mockAssetRepository struct {
	asset *models.Asset
	err   error
}

func (m *mockAssetRepository) GetBySlug(ctx context.Context, slug string) (*models.Asset, error) {
	return m.asset, m.err
}

// mockMediaRepository is a mock implementation of MediaRepository
type mockMediaRepository struct {
	media       *models.Media
	resolution  *models.MediaResolution
	created     []*models.Media
	createdRes  []*models.MediaResolution
	getByIDErr  error
	resolutionE error
}

func (m *mockMediaRepository) GetByID(ctx context.Context, id int) (*models.Media, error) {
	if m.getByIDErr != nil {
		return nil, m.getByIDErr
	}
	return m.media, nil
}

func (m *mockMediaRepository) Create(ctx context.Context, media *models.Media) error {
	m.created = append(m.created, media)
	return nil
}

func (m *mockMediaRepository) GetResolution(ctx context.Context, hash string, width, height int) (*models.MediaResolution, error) {
	if m.resolution != nil {
		return m.resolution, nil
	}
	if m.resolutionE != nil {
		return nil, m.resolutionE
	}
	return nil, repositories.ErrNotFound
}

func (m *mockMediaRepository) CreateResolution(ctx context.Context, res *models.MediaResolution) error {
	m.createdRes = append(m.createdRes, res)
	return nil
}

// mockStorage keeps objects in memory
type mockStorage struct {
	objects map[string][]byte
	uploads []string
}

func newMockStorage() *mockStorage {
	return &mockStorage{objects: map[string][]byte{}}
}

func (m *mockStorage) Exists(ctx context.Context, key string) (bool, error) {
	_, ok := m.objects[key]
	return ok, nil
}

func (m *mockStorage) Upload(ctx context.Context, key, contentType string, data []byte) error {
	m.objects[key] = data
	m.uploads = append(m.uploads, key)
	return nil
}

func (m *mockStorage) Download(ctx context.Context, key string) ([]byte, error) {
	data, ok := m.objects[key]
	if !ok {
		return nil, errors.New("no such key")
	}
	return data, nil
}

func (m *mockStorage) URL(key string) string {
	return "https://cdn.example/" + key
}

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 100, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestProcessor_CreateThumbnail(t *testing.T) {
	pngData := testPNG(t, 40, 20)
	sum := sha256.Sum256(pngData)
	hash := hex.EncodeToString(sum[:])

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/preview.png":
			w.Header().Set("Content-Type", "image/png")
			w.Write(pngData)
		case "/page.html":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.Write([]byte("<html></html>"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	tests := []struct {
		name         string
		asset        *models.Asset
		assetErr     error
		preloaded    bool
		expectUpload bool
		expectSkip   bool
		expectErr    bool
	}{
		{
			name:         "downloads and uploads new image",
			asset:        &models.Asset{ID: 1, Slug: "intro", Preview: server.URL + "/preview.png"},
			expectUpload: true,
		},
		{
			name:      "reuses stored object with same hash",
			asset:     &models.Asset{ID: 1, Slug: "intro", Preview: server.URL + "/preview.png"},
			preloaded: true,
		},
		{
			name:       "invalid mime",
			asset:      &models.Asset{ID: 1, Slug: "intro", Preview: server.URL + "/page.html"},
			expectErr:  true,
			expectSkip: true,
		},
		{
			name:      "download failure",
			asset:     &models.Asset{ID: 1, Slug: "intro", Preview: server.URL + "/missing.png"},
			expectErr: true,
		},
		{
			name:       "no preview",
			asset:      &models.Asset{ID: 1, Slug: "intro"},
			expectErr:  true,
			expectSkip: true,
		},
		{
			name:       "unknown asset",
			assetErr:   repositories.ErrNotFound,
			expectErr:  true,
			expectSkip: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMockStorage()
			if tt.preloaded {
				store.objects[hash+".png"] = pngData
			}
			mediaRepo := &mockMediaRepository{}
			processor := NewProcessor(&mockAssetRepository{asset: tt.asset, err: tt.assetErr}, mediaRepo, store, server.Client(), zap.NewNop())

			media, err := processor.CreateThumbnail(context.Background(), "intro")

			if tt.expectErr {
				assert.Error(t, err)
				assert.Equal(t, tt.expectSkip, errors.Is(err, asynq.SkipRetry))
				assert.Empty(t, mediaRepo.created)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "intro-thumbnail", media.Slug)
			assert.Equal(t, "preview.png", media.Name)
			assert.Equal(t, hash, media.Hash)
			assert.Equal(t, "https://cdn.example/"+hash+".png", media.URL)
			if tt.expectUpload {
				assert.Equal(t, []string{hash + ".png"}, store.uploads)
			} else {
				assert.Empty(t, store.uploads)
			}
		})
	}
}

func TestProcessor_ResizeThumbnail(t *testing.T) {
	pngData := testPNG(t, 40, 20)

	t.Run("width only keeps aspect ratio", func(t *testing.T) {
		store := newMockStorage()
		store.objects["abc.png"] = pngData
		mediaRepo := &mockMediaRepository{media: &models.Media{ID: 3, Slug: "intro-thumbnail", Mime: "image/png", Hash: "abc"}}
		processor := NewProcessor(&mockAssetRepository{}, mediaRepo, store, http.DefaultClient, zap.NewNop())

		res, err := processor.ResizeThumbnail(context.Background(), 3, 20, 0)

		require.NoError(t, err)
		assert.Equal(t, 20, res.Width)
		assert.Equal(t, 10, res.Height)
		assert.Contains(t, store.objects, "abc.png-20x10")
		require.Len(t, mediaRepo.createdRes, 1)
	})

	t.Run("existing resolution is reused", func(t *testing.T) {
		existing := &models.MediaResolution{ID: 9, Hash: "abc", Width: 20, Height: 10}
		store := newMockStorage()
		mediaRepo := &mockMediaRepository{media: &models.Media{ID: 3, Mime: "image/png", Hash: "abc"}, resolution: existing}
		processor := NewProcessor(&mockAssetRepository{}, mediaRepo, store, http.DefaultClient, zap.NewNop())

		res, err := processor.ResizeThumbnail(context.Background(), 3, 20, 0)

		require.NoError(t, err)
		assert.Equal(t, existing, res)
		assert.Empty(t, store.uploads)
	})

	t.Run("svg cannot be resized", func(t *testing.T) {
		mediaRepo := &mockMediaRepository{media: &models.Media{ID: 3, Mime: "image/svg+xml", Hash: "abc"}}
		processor := NewProcessor(&mockAssetRepository{}, mediaRepo, newMockStorage(), http.DefaultClient, zap.NewNop())

		_, err := processor.ResizeThumbnail(context.Background(), 3, 20, 0)

		assert.ErrorIs(t, err, asynq.SkipRetry)
	})

	t.Run("missing dimensions", func(t *testing.T) {
		processor := NewProcessor(&mockAssetRepository{}, &mockMediaRepository{}, newMockStorage(), http.DefaultClient, zap.NewNop())

		_, err := processor.ResizeThumbnail(context.Background(), 3, 0, 0)

		assert.ErrorIs(t, err, asynq.SkipRetry)
	})
}

func TestRawLink(t *testing.T) {
	assert.Equal(t, "https://github.com/o/r/blob/main/a.png?raw=true", rawLink("https://github.com/o/r/blob/main/a.png"))
	assert.Equal(t, "https://github.com/o/r/blob/main/a.png?x=1&raw=true", rawLink("https://github.com/o/r/blob/main/a.png?x=1"))
	assert.Equal(t, "https://cdn.example/a.png", rawLink("https://cdn.example/a.png"))
}
