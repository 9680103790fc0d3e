package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/bootcamp/registry/internal/models"
)

type technologyRepository struct {
	db *sql.DB
}

// NewTechnologyRepository creates a new technology repository
func NewTechnologyRepository(db *sql.DB) *technologyRepository {
	return &technologyRepository{
		db: db,
	}
}

const technologyColumns = `id, slug, title, COALESCE(description, ''), lang, visibility, parent_id`

// GetBySlug retrieves a technology by slug
func (r *technologyRepository) GetBySlug(ctx context.Context, slug string) (*models.AssetTechnology, error) {
	query := `SELECT ` + technologyColumns + ` FROM asset_technologies WHERE slug = ? LIMIT 1`

	tech, err := scanTechnology(r.db.QueryRowContext(ctx, query, slug))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get technology by slug: %w", err)
	}
	return tech, nil
}

// GetOrCreate returns the technology with slug, creating a public one titled
// after the slug when missing
func (r *technologyRepository) GetOrCreate(ctx context.Context, slug string) (*models.AssetTechnology, error) {
	tech, err := r.GetBySlug(ctx, slug)
	if err == nil {
		return tech, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	query := `INSERT INTO asset_technologies (slug, title, visibility) VALUES (?, ?, ?)`
	result, err := r.db.ExecContext(ctx, query, slug, slug, models.VisibilityPublic)
	if err != nil {
		return nil, fmt.Errorf("failed to create technology: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert id: %w", err)
	}

	return &models.AssetTechnology{
		ID:         int(id),
		Slug:       slug,
		Title:      slug,
		Visibility: models.VisibilityPublic,
	}, nil
}

// List retrieves technologies matching filter. Only root technologies are
// returned unless IncludeChildren is set or parents are requested.
func (r *technologyRepository) List(ctx context.Context, filter models.TechnologyFilter) ([]models.AssetTechnology, error) {
	var whereClauses []string
	var args []any

	if len(filter.ParentIDs) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(filter.ParentIDs)), ",")
		whereClauses = append(whereClauses, "parent_id IN ("+placeholders+")")
		for _, id := range filter.ParentIDs {
			args = append(args, id)
		}
	} else if !filter.IncludeChildren {
		whereClauses = append(whereClauses, "parent_id IS NULL")
	}
	if filter.Lang != "" {
		whereClauses = append(whereClauses, "(lang = ? OR lang = '')")
		args = append(args, filter.Lang)
	}
	if filter.Visibility != "" {
		whereClauses = append(whereClauses, "visibility = ?")
		args = append(args, filter.Visibility)
	}
	if filter.Like != "" {
		whereClauses = append(whereClauses, "(slug LIKE ? OR title LIKE ?)")
		args = append(args, "%"+filter.Like+"%", "%"+filter.Like+"%")
	}

	whereClause := ""
	if len(whereClauses) > 0 {
		whereClause = "WHERE " + strings.Join(whereClauses, " AND ")
	}

	query := fmt.Sprintf(`SELECT %s FROM asset_technologies %s ORDER BY slug`, technologyColumns, whereClause)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query technologies: %w", err)
	}
	defer rows.Close()

	technologies := []models.AssetTechnology{}
	for rows.Next() {
		tech, err := scanTechnology(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan technology: %w", err)
		}
		technologies = append(technologies, *tech)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating technologies: %w", err)
	}

	return technologies, nil
}

// Update writes title, description, visibility and parent of a technology
func (r *technologyRepository) Update(ctx context.Context, tech *models.AssetTechnology) error {
	query := `
		UPDATE asset_technologies
		SET title = ?, description = ?, visibility = ?, parent_id = ?
		WHERE id = ?
	`

	if _, err := r.db.ExecContext(ctx, query, tech.Title, tech.Description, tech.Visibility, tech.ParentID, tech.ID); err != nil {
		return fmt.Errorf("failed to update technology: %w", err)
	}
	return nil
}

func scanTechnology(row rowScanner) (*models.AssetTechnology, error) {
	var (
		tech     models.AssetTechnology
		parentID sql.NullInt64
	)
	if err := row.Scan(&tech.ID, &tech.Slug, &tech.Title, &tech.Description, &tech.Lang, &tech.Visibility, &parentID); err != nil {
		return nil, err
	}
	tech.ParentID = nullIntPtr(parentID)
	return &tech, nil
}
