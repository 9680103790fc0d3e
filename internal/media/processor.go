// Package media caches asset preview images in object storage and renders
// resized copies of them
package media

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path"
	"slices"
	"strings"

	"github.com/bootcamp/registry/internal/models"
	"github.com/bootcamp/registry/internal/repositories"
	"github.com/disintegration/imaging"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// AssetRepository is the asset lookup the processor needs
type AssetRepository interface {
	GetBySlug(ctx context.Context, slug string) (*models.Asset, error)
}

// MediaRepository persists cached images and their resized renderings
type MediaRepository interface {
	GetByID(ctx context.Context, id int) (*models.Media, error)
	Create(ctx context.Context, media *models.Media) error
	GetResolution(ctx context.Context, hash string, width, height int) (*models.MediaResolution, error)
	CreateResolution(ctx context.Context, res *models.MediaResolution) error
}

// ObjectStorage is the bucket holding image bytes
type ObjectStorage interface {
	Exists(ctx context.Context, key string) (bool, error)
	Upload(ctx context.Context, key, contentType string, data []byte) error
	Download(ctx context.Context, key string) ([]byte, error)
	URL(key string) string
}

// HTTPDoer downloads preview images
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Processor runs the thumbnail jobs
type Processor struct {
	assets     AssetRepository
	media      MediaRepository
	storage    ObjectStorage
	httpClient HTTPDoer
	logger     *zap.Logger
}

// NewProcessor creates a thumbnail processor
func NewProcessor(assets AssetRepository, media MediaRepository, storage ObjectStorage, httpClient HTTPDoer, logger *zap.Logger) *Processor {
	return &Processor{
		assets:     assets,
		media:      media,
		storage:    storage,
		httpClient: httpClient,
		logger:     logger,
	}
}

var extensionByMime = map[string]string{
	"image/png":     ".png",
	"image/jpeg":    ".jpg",
	"image/jpg":     ".jpg",
	"image/gif":     ".gif",
	"image/svg+xml": ".svg",
}

// ObjectKey is the storage key of an image: its content hash plus an extension
func ObjectKey(hash, mimeType string) string {
	return hash + extensionByMime[mimeType]
}

// CreateThumbnail downloads the asset's preview image, stores it once per
// content hash and records it as the asset's thumbnail media
func (p *Processor) CreateThumbnail(ctx context.Context, assetSlug string) (*models.Media, error) {
	asset, err := p.assets.GetBySlug(ctx, assetSlug)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, fmt.Errorf("asset %s not found: %w", assetSlug, asynq.SkipRetry)
	}
	if err != nil {
		return nil, err
	}
	if asset.Preview == "" {
		return nil, fmt.Errorf("asset %s has no preview image: %w", assetSlug, asynq.SkipRetry)
	}

	link := rawLink(asset.Preview)
	data, mimeType, err := p.download(ctx, link)
	if err != nil {
		return nil, err
	}

	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])
	key := ObjectKey(hash, mimeType)

	exists, err := p.storage.Exists(ctx, key)
	if err != nil {
		return nil, err
	}
	if !exists {
		if err := p.storage.Upload(ctx, key, mimeType, data); err != nil {
			return nil, err
		}
	}

	media := &models.Media{
		Slug: asset.ThumbnailSlug(),
		Name: path.Base(strings.SplitN(asset.Preview, "?", 2)[0]),
		Mime: mimeType,
		Hash: hash,
		URL:  p.storage.URL(key),
	}
	if err := p.media.Create(ctx, media); err != nil {
		return nil, err
	}

	p.logger.Info("Asset thumbnail cached",
		zap.String("slug", assetSlug),
		zap.String("hash", hash),
		zap.Bool("uploaded", !exists),
	)
	return media, nil
}

// ResizeThumbnail renders a media at the requested width or height, keeping the
// aspect ratio for the missing dimension
func (p *Processor) ResizeThumbnail(ctx context.Context, mediaID, width, height int) (*models.MediaResolution, error) {
	if width <= 0 && height <= 0 {
		return nil, fmt.Errorf("width or height is required: %w", asynq.SkipRetry)
	}

	media, err := p.media.GetByID(ctx, mediaID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, fmt.Errorf("media %d not found: %w", mediaID, asynq.SkipRetry)
	}
	if err != nil {
		return nil, err
	}

	existing, err := p.media.GetResolution(ctx, media.Hash, width, height)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, repositories.ErrNotFound) {
		return nil, err
	}

	if media.Mime == "image/svg+xml" {
		return nil, fmt.Errorf("vector image %s cannot be resized: %w", media.Slug, asynq.SkipRetry)
	}

	key := ObjectKey(media.Hash, media.Mime)
	data, err := p.storage.Download(ctx, key)
	if err != nil {
		return nil, err
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image %s: %v: %w", key, err, asynq.SkipRetry)
	}

	resized := imaging.Resize(img, width, height, imaging.Lanczos)
	format, err := imaging.FormatFromExtension(extensionByMime[media.Mime])
	if err != nil {
		return nil, fmt.Errorf("unsupported image format %s: %w", media.Mime, asynq.SkipRetry)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, format); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	res := &models.MediaResolution{
		Hash:   media.Hash,
		Width:  resized.Bounds().Dx(),
		Height: resized.Bounds().Dy(),
	}
	resizedKey := fmt.Sprintf("%s-%dx%d", key, res.Width, res.Height)
	if err := p.storage.Upload(ctx, resizedKey, media.Mime, buf.Bytes()); err != nil {
		return nil, err
	}
	if err := p.media.CreateResolution(ctx, res); err != nil {
		return nil, err
	}

	p.logger.Info("Thumbnail resized",
		zap.Int("media_id", mediaID),
		zap.Int("width", res.Width),
		zap.Int("height", res.Height),
	)
	return res, nil
}

func (p *Processor) download(ctx context.Context, link string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return nil, "", fmt.Errorf("invalid preview url %s: %v: %w", link, err, asynq.SkipRetry)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to download %s: %w", link, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("error downloading image %s: status %d", link, resp.StatusCode)
	}

	mimeType, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil || !slices.Contains(models.AllowedImageMimes, mimeType) {
		return nil, "", fmt.Errorf("invalid mime %q for %s: %w", resp.Header.Get("Content-Type"), link, asynq.SkipRetry)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read %s: %w", link, err)
	}
	return data, mimeType, nil
}

// rawLink makes repository-hosted images download as bytes instead of an HTML page
func rawLink(link string) string {
	if !strings.Contains(link, "github.com") || strings.Contains(link, "raw=true") {
		return link
	}
	if strings.Contains(link, "?") {
		return link + "&raw=true"
	}
	return link + "?raw=true"
}
