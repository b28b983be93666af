package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatvault/internal/domain"
	"chatvault/internal/models"
)

func TestRegisterDedupesByPath(t *testing.T) {
	ctx := context.Background()
	db := newTestStore(t)
	svc := NewAttachmentService(db)

	name := "img.png"
	first, created, err := svc.Register(ctx, AttachmentInput{Type: models.AttachmentTypeImage, Path: "/tmp/img.png", OriginalName: &name, IsLoading: true})
	require.NoError(t, err)
	assert.True(t, created)

	second, created, err := svc.Register(ctx, AttachmentInput{Type: models.AttachmentTypeImage, Path: " /tmp/img.png "})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first, second)
	assert.Equal(t, int64(1), countRows(t, db, "attachments", "path = ?", "/tmp/img.png"))

	att, err := svc.Get(ctx, first)
	require.NoError(t, err)
	assert.True(t, att.IsLoading)
	require.NoError(t, svc.MarkLoaded(ctx, first))
	att, err = svc.Get(ctx, first)
	require.NoError(t, err)
	assert.False(t, att.IsLoading)

	_, _, err = svc.Register(ctx, AttachmentInput{Type: "video", Path: "/tmp/a.mp4"})
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, _, err = svc.Register(ctx, AttachmentInput{Type: models.AttachmentTypeText})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestAttachmentAssociations(t *testing.T) {
	ctx := context.Background()
	db := newTestStore(t)
	svc := NewAttachmentService(db)
	conv := NewConversationService(db)

	chat := mustChat(t, db, CreateChatInput{})
	set := mustSet(t, conv, chat.ID, models.SetTypeUser, nil)
	msg := mustMessage(t, conv, set, models.UserModel, "see attached")
	attID, _, err := svc.Register(ctx, AttachmentInput{Type: models.AttachmentTypeWebpage, Path: "https://example.com"})
	require.NoError(t, err)

	require.NoError(t, svc.AttachToMessage(ctx, msg, attID))
	assert.ErrorIs(t, svc.AttachToMessage(ctx, msg, attID), domain.ErrConstraintViolation)
	assert.ErrorIs(t, svc.AttachToMessage(ctx, "missing", attID), domain.ErrNotFound)
	assert.ErrorIs(t, svc.AttachToMessage(ctx, msg, "missing"), domain.ErrNotFound)
	assert.ErrorIs(t, svc.AttachToProject(ctx, "missing", attID), domain.ErrNotFound)

	list, err := svc.ListForMessage(ctx, msg)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, attID, list[0].ID)

	require.NoError(t, svc.AttachToProject(ctx, models.DefaultProjectID, attID))
	list, err = svc.ListForProject(ctx, models.DefaultProjectID)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, svc.DetachFromMessage(ctx, msg, attID))
	assert.ErrorIs(t, svc.DetachFromMessage(ctx, msg, attID), domain.ErrNotFound)
	require.NoError(t, svc.DetachFromProject(ctx, models.DefaultProjectID, attID))

	list, err = svc.ListForDraft(ctx, chat.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestCollectOrphans(t *testing.T) {
	ctx := context.Background()
	db := newTestStore(t)
	svc := NewAttachmentService(db)
	chat := mustChat(t, db, CreateChatInput{})

	used, _, err := svc.Register(ctx, AttachmentInput{Type: models.AttachmentTypeText, Path: "/tmp/used.txt"})
	require.NoError(t, err)
	orphan, _, err := svc.Register(ctx, AttachmentInput{Type: models.AttachmentTypeText, Path: "/tmp/orphan.txt"})
	require.NoError(t, err)
	require.NoError(t, svc.AttachToDraft(ctx, chat.ID, used))

	removed, err := svc.CollectOrphans(ctx)
	require.NoError(t, err)
	require.Len(t, removed, 1)
	assert.Equal(t, orphan, removed[0].ID)
	assert.Equal(t, "/tmp/orphan.txt", removed[0].Path)

	_, err = svc.Get(ctx, orphan)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = svc.Get(ctx, used)
	assert.NoError(t, err)

	removed, err = svc.CollectOrphans(ctx)
	require.NoError(t, err)
	assert.Empty(t, removed)
}
