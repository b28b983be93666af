package repositories

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"chatvault/internal/database"
	"chatvault/internal/domain"
	"chatvault/internal/models"
)

func openStore(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Init(context.Background(), database.Config{
		Path:     filepath.Join(t.TempDir(), "chatvault.db"),
		LogLevel: logger.Silent,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })
	return db
}

func TestTranslateError(t *testing.T) {
	ctx := context.Background()
	projects := NewProjectRepository(openStore(t))

	_, err := projects.Get(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	now := time.Now().UTC()
	err = projects.Create(ctx, &models.Project{ID: models.DefaultProjectID, Name: "again", CreatedAt: now, UpdatedAt: now})
	require.ErrorIs(t, err, domain.ErrConstraintViolation)
	var cerr *domain.ConstraintError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "unique", cerr.Constraint)

	assert.ErrorIs(t, projects.Update(ctx, "missing", map[string]interface{}{"name": "x"}), domain.ErrNotFound)
	assert.ErrorIs(t, projects.Delete(ctx, "missing"), domain.ErrNotFound)
	assert.NoError(t, translateError(nil, "project", "x"))
}

func TestAttachmentRepository_ListOrphans(t *testing.T) {
	ctx := context.Background()
	repo := NewAttachmentRepository(openStore(t))

	now := time.Now().UTC()
	ids := []string{"a-message", "a-project", "a-draft", "a-orphan"}
	for i, id := range ids {
		require.NoError(t, repo.Create(ctx, &models.Attachment{
			ID:        id,
			Type:      models.AttachmentTypeText,
			Path:      "/tmp/" + id,
			CreatedAt: now.Add(time.Duration(i) * time.Second),
		}))
	}
	require.NoError(t, repo.Link(ctx, MessageOwner, "m1", "a-message"))
	require.NoError(t, repo.Link(ctx, ProjectOwner, "p1", "a-project"))
	require.NoError(t, repo.Link(ctx, DraftOwner, "c1", "a-draft"))

	err := repo.Link(ctx, DraftOwner, "c1", "a-draft")
	var cerr *domain.ConstraintError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "duplicate_association", cerr.Constraint)

	orphans, err := repo.ListOrphans(ctx)
	require.NoError(t, err)
	require.Len(t, orphans, 1)
	assert.Equal(t, "a-orphan", orphans[0].ID)

	require.NoError(t, repo.UnlinkAll(ctx, MessageOwner, "m1"))
	orphans, err = repo.ListOrphans(ctx)
	require.NoError(t, err)
	assert.Len(t, orphans, 2)

	require.NoError(t, repo.Delete(ctx, "a-message", "a-orphan"))
	orphans, err = repo.ListOrphans(ctx)
	require.NoError(t, err)
	assert.Empty(t, orphans)

	found, err := repo.FindByPath(ctx, "/tmp/a-orphan")
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestAppMetadataRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewAppMetadataRepository(openStore(t))

	_, ok, err := repo.Get(ctx, "yolo_mode")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, repo.Set(ctx, "yolo_mode", "true"))
	require.NoError(t, repo.Set(ctx, "yolo_mode", "false"))
	value, ok, err := repo.Get(ctx, "yolo_mode")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "false", value)

	require.NoError(t, repo.Delete(ctx, "yolo_mode"))
	_, ok, err = repo.Get(ctx, "yolo_mode")
	require.NoError(t, err)
	assert.False(t, ok)
}
