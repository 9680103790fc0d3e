package repositories

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/bootcamp/registry/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMediaRepository_GetBySlug(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		db, mock := setupTestDB(t)
		repo := NewMediaRepository(db)

		mock.ExpectQuery(`FROM media\s+WHERE slug = \?`).
			WithArgs("intro-thumbnail").
			WillReturnRows(sqlmock.NewRows([]string{"id", "slug", "name", "mime", "hash", "url", "hits", "created_at"}).
				AddRow(1, "intro-thumbnail", "intro.png", "image/png", "abc", "https://cdn.example/abc.png", 4, time.Now()))

		media, err := repo.GetBySlug(context.Background(), "intro-thumbnail")

		require.NoError(t, err)
		assert.Equal(t, "abc", media.Hash)
		assert.Equal(t, 4, media.Hits)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		db, mock := setupTestDB(t)
		repo := NewMediaRepository(db)

		mock.ExpectQuery(`FROM media\s+WHERE id = \?`).WithArgs(9).WillReturnError(sql.ErrNoRows)

		_, err := repo.GetByID(context.Background(), 9)

		assert.ErrorIs(t, err, ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestMediaRepository_Create(t *testing.T) {
	db, mock := setupTestDB(t)
	repo := NewMediaRepository(db)

	mock.ExpectExec(`INSERT INTO media .+ON DUPLICATE KEY UPDATE`).
		WithArgs("intro-thumbnail", "intro.png", "image/png", "abc", "https://cdn.example/abc.png").
		WillReturnResult(sqlmock.NewResult(3, 1))

	media := &models.Media{Slug: "intro-thumbnail", Name: "intro.png", Mime: "image/png", Hash: "abc", URL: "https://cdn.example/abc.png"}
	require.NoError(t, repo.Create(context.Background(), media))
	assert.Equal(t, 3, media.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMediaRepository_Resolutions(t *testing.T) {
	t.Run("match on either dimension", func(t *testing.T) {
		db, mock := setupTestDB(t)
		repo := NewMediaRepository(db)

		mock.ExpectQuery(`FROM media_resolutions\s+WHERE hash = \? AND \(width = \? OR height = \?\)`).
			WithArgs("abc", 300, 0).
			WillReturnRows(sqlmock.NewRows([]string{"id", "hash", "width", "height", "hits"}).AddRow(2, "abc", 300, 150, 0))

		res, err := repo.GetResolution(context.Background(), "abc", 300, 0)

		require.NoError(t, err)
		assert.Equal(t, 150, res.Height)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no match", func(t *testing.T) {
		db, mock := setupTestDB(t)
		repo := NewMediaRepository(db)

		mock.ExpectQuery(`FROM media_resolutions`).WithArgs("abc", 0, 90).WillReturnError(sql.ErrNoRows)

		_, err := repo.GetResolution(context.Background(), "abc", 0, 90)

		assert.ErrorIs(t, err, ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("create and count hits", func(t *testing.T) {
		db, mock := setupTestDB(t)
		repo := NewMediaRepository(db)

		mock.ExpectExec(`INSERT INTO media_resolutions`).WithArgs("abc", 300, 150).WillReturnResult(sqlmock.NewResult(7, 1))
		mock.ExpectExec(`UPDATE media_resolutions SET hits = hits \+ 1 WHERE id = \?`).WithArgs(7).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE media SET hits = hits \+ 1 WHERE id = \?`).WithArgs(1).WillReturnResult(sqlmock.NewResult(0, 1))

		res := &models.MediaResolution{Hash: "abc", Width: 300, Height: 150}
		require.NoError(t, repo.CreateResolution(context.Background(), res))
		assert.Equal(t, 7, res.ID)
		require.NoError(t, repo.IncrementResolutionHits(context.Background(), res.ID))
		require.NoError(t, repo.IncrementHits(context.Background(), 1))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
