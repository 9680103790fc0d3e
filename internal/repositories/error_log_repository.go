package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/bootcamp/registry/internal/models"
)

type errorLogRepository struct {
	db *sql.DB
}

// NewErrorLogRepository creates a new asset error log repository
func NewErrorLogRepository(db *sql.DB) *errorLogRepository {
	return &errorLogRepository{
		db: db,
	}
}

// Create appends an error log entry
func (r *errorLogRepository) Create(ctx context.Context, entry *models.AssetErrorLog) error {
	query := `
		INSERT INTO asset_error_logs (slug, path, asset_id, asset_type, status_text, status)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	status := entry.Status
	if status == "" {
		status = models.ErrorLogStatusError
	}

	result, err := r.db.ExecContext(ctx, query, entry.Slug, entry.Path, entry.AssetID, entry.AssetType, entry.StatusText, status)
	if err != nil {
		return fmt.Errorf("failed to create error log: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	entry.ID = int(id)
	entry.Status = status

	return nil
}
