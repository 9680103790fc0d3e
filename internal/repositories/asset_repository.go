package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bootcamp/registry/internal/models"
)

const assetColumns = `
	a.id, a.slug, a.title, COALESCE(a.description, ''), a.asset_type, a.status, a.visibility,
	a.lang, a.url, a.readme_url, COALESCE(a.readme, ''), COALESCE(a.readme_raw, ''),
	COALESCE(a.html, ''), a.config, a.external, a.interactive, a.graded, a.gitpod,
	a.with_video, a.with_solutions, a.solution_video_url, a.solution, a.preview,
	a.duration, a.difficulty, COALESCE(a.delivery_instructions, ''), a.delivery_formats,
	a.delivery_regex_url, a.authors_username, a.owner_id, a.author_id, a.sync_status,
	COALESCE(a.status_text, ''), a.last_synch_at, a.test_status, a.last_test_at,
	a.cleaning_status, COALESCE(a.cleaning_status_details, ''), a.last_cleaning_at,
	a.created_at, a.updated_at,
	(SELECT GROUP_CONCAT(t.slug ORDER BY t.slug)
		FROM asset_technology_links l
		JOIN asset_technologies t ON t.id = l.technology_id
		WHERE l.asset_id = a.id) AS technologies`

type assetRepository struct {
	db *sql.DB
}

// NewAssetRepository creates a new asset repository
func NewAssetRepository(db *sql.DB) *assetRepository {
	return &assetRepository{
		db: db,
	}
}

// GetBySlug retrieves an asset with its technology slugs
func (r *assetRepository) GetBySlug(ctx context.Context, slug string) (*models.Asset, error) {
	query := `SELECT ` + assetColumns + `
		FROM assets a
		WHERE a.slug = ?
		LIMIT 1
	`

	asset, err := scanAsset(r.db.QueryRowContext(ctx, query, slug))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get asset by slug: %w", err)
	}
	return asset, nil
}

// List retrieves assets matching filter. Deleted assets are hidden unless the
// status filter asks for them.
func (r *assetRepository) List(ctx context.Context, filter models.AssetFilter) ([]models.Asset, error) {
	var whereClauses []string
	var args []any

	if filter.AssetType != "" {
		whereClauses = append(whereClauses, "a.asset_type = ?")
		args = append(args, filter.AssetType)
	}
	if filter.Lang != "" {
		whereClauses = append(whereClauses, "a.lang = ?")
		args = append(args, filter.Lang)
	}
	if filter.Status != "" {
		whereClauses = append(whereClauses, "a.status = ?")
		args = append(args, filter.Status)
	} else {
		whereClauses = append(whereClauses, "a.status <> ?")
		args = append(args, models.AssetStatusDeleted)
	}
	if filter.Visibility != "" {
		whereClauses = append(whereClauses, "a.visibility = ?")
		args = append(args, filter.Visibility)
	}
	if filter.SyncStatus != "" {
		whereClauses = append(whereClauses, "a.sync_status = ?")
		args = append(args, filter.SyncStatus)
	}
	if filter.External != nil {
		whereClauses = append(whereClauses, "a.external = ?")
		args = append(args, *filter.External)
	}
	if filter.Like != "" {
		whereClauses = append(whereClauses, "(a.slug LIKE ? OR a.title LIKE ?)")
		args = append(args, "%"+filter.Like+"%", "%"+filter.Like+"%")
	}
	if len(filter.Technologies) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(filter.Technologies)), ",")
		whereClauses = append(whereClauses, `EXISTS (
			SELECT 1 FROM asset_technology_links l
			JOIN asset_technologies t ON t.id = l.technology_id
			WHERE l.asset_id = a.id AND t.slug IN (`+placeholders+`)
		)`)
		for _, tech := range filter.Technologies {
			args = append(args, tech)
		}
	}

	query := `SELECT ` + assetColumns + `
		FROM assets a
		WHERE ` + strings.Join(whereClauses, " AND ") + `
		ORDER BY a.id`

	if filter.Count > 0 {
		page := max(filter.Page, 1)
		query += " LIMIT ? OFFSET ?"
		args = append(args, filter.Count, (page-1)*filter.Count)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query assets: %w", err)
	}
	defer rows.Close()

	assets := []models.Asset{}
	for rows.Next() {
		asset, err := scanAsset(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan asset: %w", err)
		}
		assets = append(assets, *asset)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating assets: %w", err)
	}

	return assets, nil
}

// Create inserts a new asset and sets its ID
func (r *assetRepository) Create(ctx context.Context, asset *models.Asset) error {
	query := `
		INSERT INTO assets (slug, title, description, asset_type, status, visibility, lang, url, readme_url, external, owner_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		asset.Slug,
		asset.Title,
		asset.Description,
		asset.AssetType,
		asset.Status,
		asset.Visibility,
		asset.Lang,
		asset.URL,
		asset.ReadmeURL,
		asset.External,
		asset.OwnerID,
	)
	if err != nil {
		return fmt.Errorf("failed to create asset: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	asset.ID = int(id)

	return nil
}

// Save writes every mutable column of asset
func (r *assetRepository) Save(ctx context.Context, asset *models.Asset) error {
	query := `
		UPDATE assets SET
			slug = ?, title = ?, description = ?, status = ?, visibility = ?, lang = ?,
			url = ?, readme_url = ?, readme = ?, readme_raw = ?, html = ?, config = ?,
			interactive = ?, graded = ?, gitpod = ?, with_video = ?, with_solutions = ?,
			solution_video_url = ?, solution = ?, preview = ?, duration = ?, difficulty = ?,
			delivery_instructions = ?, delivery_formats = ?, delivery_regex_url = ?,
			authors_username = ?, author_id = ?, sync_status = ?, status_text = ?,
			last_synch_at = ?, test_status = ?, last_test_at = ?, cleaning_status = ?,
			cleaning_status_details = ?, last_cleaning_at = ?
		WHERE id = ?
	`

	var config any
	if len(asset.Config) > 0 {
		config = []byte(asset.Config)
	}

	_, err := r.db.ExecContext(ctx, query,
		asset.Slug, asset.Title, asset.Description, asset.Status, asset.Visibility, asset.Lang,
		asset.URL, asset.ReadmeURL, asset.Readme, asset.ReadmeRaw, asset.HTML, config,
		asset.Interactive, asset.Graded, asset.Gitpod, asset.WithVideo, asset.WithSolutions,
		asset.SolutionVideoURL, asset.Solution, asset.Preview, asset.Duration, asset.Difficulty,
		asset.DeliveryInstructions, asset.DeliveryFormats, asset.DeliveryRegexURL,
		asset.AuthorsUsername, asset.AuthorID, asset.SyncStatus, asset.StatusText,
		asset.LastSynchAt, asset.TestStatus, asset.LastTestAt, asset.CleaningStatus,
		asset.CleaningStatusDetails, asset.LastCleaningAt,
		asset.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to save asset: %w", err)
	}

	return nil
}

// SetPreviewIfEmpty backfills the preview column without touching an existing value
func (r *assetRepository) SetPreviewIfEmpty(ctx context.Context, id int, preview string) error {
	query := `UPDATE assets SET preview = ? WHERE id = ? AND preview = ''`

	if _, err := r.db.ExecContext(ctx, query, preview, id); err != nil {
		return fmt.Errorf("failed to set asset preview: %w", err)
	}
	return nil
}

// SoftDelete marks an asset as deleted
func (r *assetRepository) SoftDelete(ctx context.Context, slug string) error {
	query := `UPDATE assets SET status = ? WHERE slug = ?`

	result, err := r.db.ExecContext(ctx, query, models.AssetStatusDeleted, slug)
	if err != nil {
		return fmt.Errorf("failed to delete asset: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// SetTechnologies replaces the technology set of an asset
func (r *assetRepository) SetTechnologies(ctx context.Context, assetID int, technologyIDs []int) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM asset_technology_links WHERE asset_id = ?`, assetID); err != nil {
		return fmt.Errorf("failed to clear asset technologies: %w", err)
	}

	for _, techID := range technologyIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT IGNORE INTO asset_technology_links (asset_id, technology_id) VALUES (?, ?)`,
			assetID, techID,
		); err != nil {
			return fmt.Errorf("failed to link technology %d: %w", techID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ListStaleSlugs returns slugs of repository-backed assets whose last sync
// failed or happened before syncedBefore, oldest first
func (r *assetRepository) ListStaleSlugs(ctx context.Context, syncedBefore time.Time, limit int) ([]string, error) {
	query := `
		SELECT slug
		FROM assets
		WHERE external = FALSE
			AND status <> ?
			AND (sync_status = ? OR last_synch_at < ?)
		ORDER BY last_synch_at
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, query, models.AssetStatusDeleted, models.SyncStatusError, syncedBefore, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query stale assets: %w", err)
	}
	defer rows.Close()

	var slugs []string
	for rows.Next() {
		var slug string
		if err := rows.Scan(&slug); err != nil {
			return nil, fmt.Errorf("failed to scan slug: %w", err)
		}
		slugs = append(slugs, slug)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating stale assets: %w", err)
	}

	return slugs, nil
}

func scanAsset(row rowScanner) (*models.Asset, error) {
	var (
		a            models.Asset
		config       []byte
		duration     sql.NullInt64
		ownerID      sql.NullInt64
		authorID     sql.NullInt64
		syncStatus   sql.NullString
		lastSynchAt  sql.NullTime
		lastTestAt   sql.NullTime
		lastCleanAt  sql.NullTime
		technologies sql.NullString
	)

	err := row.Scan(
		&a.ID, &a.Slug, &a.Title, &a.Description, &a.AssetType, &a.Status, &a.Visibility,
		&a.Lang, &a.URL, &a.ReadmeURL, &a.Readme, &a.ReadmeRaw,
		&a.HTML, &config, &a.External, &a.Interactive, &a.Graded, &a.Gitpod,
		&a.WithVideo, &a.WithSolutions, &a.SolutionVideoURL, &a.Solution, &a.Preview,
		&duration, &a.Difficulty, &a.DeliveryInstructions, &a.DeliveryFormats,
		&a.DeliveryRegexURL, &a.AuthorsUsername, &ownerID, &authorID, &syncStatus,
		&a.StatusText, &lastSynchAt, &a.TestStatus, &lastTestAt,
		&a.CleaningStatus, &a.CleaningStatusDetails, &lastCleanAt,
		&a.CreatedAt, &a.UpdatedAt,
		&technologies,
	)
	if err != nil {
		return nil, err
	}

	if len(config) > 0 {
		a.Config = config
	}
	a.Duration = nullIntPtr(duration)
	a.OwnerID = nullIntPtr(ownerID)
	a.AuthorID = nullIntPtr(authorID)
	if syncStatus.Valid {
		a.SetSyncStatus(models.SyncStatus(syncStatus.String), a.StatusText)
	}
	a.LastSynchAt = nullTimePtr(lastSynchAt)
	a.LastTestAt = nullTimePtr(lastTestAt)
	a.LastCleaningAt = nullTimePtr(lastCleanAt)
	a.Technologies = []string{}
	if technologies.Valid && technologies.String != "" {
		a.Technologies = strings.Split(technologies.String, ",")
	}

	return &a, nil
}

func nullIntPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}

func nullTimePtr(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}
