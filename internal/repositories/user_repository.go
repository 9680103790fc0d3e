package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/bootcamp/registry/internal/models"
)

type userRepository struct {
	db *sql.DB
}

// NewUserRepository creates a repository over users and their linked source-control accounts
func NewUserRepository(db *sql.DB) *userRepository {
	return &userRepository{
		db: db,
	}
}

// GetByID retrieves a user
func (r *userRepository) GetByID(ctx context.Context, id int) (*models.User, error) {
	query := `SELECT id, email, first_name, last_name FROM users WHERE id = ? LIMIT 1`

	user := &models.User{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&user.ID, &user.Email, &user.FirstName, &user.LastName)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// GetCredentials retrieves the source-control credentials linked to a user
func (r *userRepository) GetCredentials(ctx context.Context, userID int) (*models.GithubCredentials, error) {
	query := `SELECT user_id, username, token FROM github_credentials WHERE user_id = ? LIMIT 1`

	creds := &models.GithubCredentials{}
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&creds.UserID, &creds.Username, &creds.Token)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get credentials: %w", err)
	}
	return creds, nil
}
