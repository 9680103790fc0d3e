package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/bootcamp/registry/internal/models"
)

type mediaRepository struct {
	db *sql.DB
}

// NewMediaRepository creates a new media repository
func NewMediaRepository(db *sql.DB) *mediaRepository {
	return &mediaRepository{
		db: db,
	}
}

// GetBySlug retrieves a media record by slug
func (r *mediaRepository) GetBySlug(ctx context.Context, slug string) (*models.Media, error) {
	return r.getOne(ctx, "slug = ?", slug)
}

// GetByID retrieves a media record by ID
func (r *mediaRepository) GetByID(ctx context.Context, id int) (*models.Media, error) {
	return r.getOne(ctx, "id = ?", id)
}

func (r *mediaRepository) getOne(ctx context.Context, where string, arg any) (*models.Media, error) {
	query := `
		SELECT id, slug, name, mime, hash, url, hits, created_at
		FROM media
		WHERE ` + where + `
		LIMIT 1
	`

	media := &models.Media{}
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&media.ID,
		&media.Slug,
		&media.Name,
		&media.Mime,
		&media.Hash,
		&media.URL,
		&media.Hits,
		&media.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get media: %w", err)
	}

	return media, nil
}

// Create inserts a media record, replacing the row of an existing slug
func (r *mediaRepository) Create(ctx context.Context, media *models.Media) error {
	query := `
		INSERT INTO media (slug, name, mime, hash, url)
		VALUES (?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE id = LAST_INSERT_ID(id), name = VALUES(name), mime = VALUES(mime), hash = VALUES(hash), url = VALUES(url)
	`

	result, err := r.db.ExecContext(ctx, query, media.Slug, media.Name, media.Mime, media.Hash, media.URL)
	if err != nil {
		return fmt.Errorf("failed to create media: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	media.ID = int(id)

	return nil
}

// IncrementHits registers a hit on a media record
func (r *mediaRepository) IncrementHits(ctx context.Context, id int) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE media SET hits = hits + 1 WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to increment media hits: %w", err)
	}
	return nil
}

// GetResolution finds a resized rendering of hash matching either dimension
func (r *mediaRepository) GetResolution(ctx context.Context, hash string, width, height int) (*models.MediaResolution, error) {
	query := `
		SELECT id, hash, width, height, hits
		FROM media_resolutions
		WHERE hash = ? AND (width = ? OR height = ?)
		LIMIT 1
	`

	res := &models.MediaResolution{}
	err := r.db.QueryRowContext(ctx, query, hash, width, height).Scan(
		&res.ID,
		&res.Hash,
		&res.Width,
		&res.Height,
		&res.Hits,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get media resolution: %w", err)
	}

	return res, nil
}

// CreateResolution inserts a resized rendering
func (r *mediaRepository) CreateResolution(ctx context.Context, res *models.MediaResolution) error {
	query := `INSERT INTO media_resolutions (hash, width, height) VALUES (?, ?, ?)`

	result, err := r.db.ExecContext(ctx, query, res.Hash, res.Width, res.Height)
	if err != nil {
		return fmt.Errorf("failed to create media resolution: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	res.ID = int(id)

	return nil
}

// IncrementResolutionHits registers a hit on a resized rendering
func (r *mediaRepository) IncrementResolutionHits(ctx context.Context, id int) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE media_resolutions SET hits = hits + 1 WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to increment resolution hits: %w", err)
	}
	return nil
}
