package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatvault/internal/domain"
	"chatvault/internal/models"
)

func TestCreateChatDefaultsProject(t *testing.T) {
	ctx := context.Background()
	db := newTestStore(t)
	chats := NewChatService(db)

	chat, err := chats.Create(ctx, CreateChatInput{})
	require.NoError(t, err)
	assert.Equal(t, models.DefaultProjectID, chat.ProjectID)

	quick, err := chats.Create(ctx, CreateChatInput{QuickChat: true})
	require.NoError(t, err)
	assert.Equal(t, models.QuickChatProjectID, quick.ProjectID)
	assert.True(t, quick.QuickChat)

	_, err = chats.Create(ctx, CreateChatInput{ProjectID: "missing"})
	assert.ErrorIs(t, err, domain.ErrConstraintViolation)

	empty := ""
	_, err = chats.Create(ctx, CreateChatInput{Title: &empty})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestListChatsOrdersPinnedThenRecent(t *testing.T) {
	ctx := context.Background()
	db := newTestStore(t)
	chats := NewChatService(db)
	conv := NewConversationService(db)

	older := mustChat(t, db, CreateChatInput{})
	newer := mustChat(t, db, CreateChatInput{})
	pinned := mustChat(t, db, CreateChatInput{})
	require.NoError(t, chats.SetPinned(ctx, pinned.ID, true))

	set := mustSet(t, conv, newer.ID, models.SetTypeUser, nil)
	mustMessage(t, conv, set, models.UserModel, "bump")

	list, err := chats.List(ctx, models.DefaultProjectID)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, pinned.ID, list[0].ID)
	assert.Equal(t, newer.ID, list[1].ID)
	assert.Equal(t, older.ID, list[2].ID)
}

func TestGetOrCreateNewChat(t *testing.T) {
	ctx := context.Background()
	db := newTestStore(t)
	chats := NewChatService(db)
	conv := NewConversationService(db)

	first, err := chats.GetOrCreateNewChat(ctx, models.DefaultProjectID, false)
	require.NoError(t, err)
	assert.True(t, first.IsNewChat)

	again, err := chats.GetOrCreateNewChat(ctx, models.DefaultProjectID, false)
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID, "the empty chat is reused")

	quick, err := chats.GetOrCreateNewChat(ctx, models.QuickChatProjectID, true)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, quick.ID)

	_, err = chats.Create(ctx, CreateChatInput{IsNewChat: true})
	assert.ErrorIs(t, err, domain.ErrConstraintViolation, "one new chat per project and scope")

	set := mustSet(t, conv, first.ID, models.SetTypeUser, nil)
	mustMessage(t, conv, set, models.UserModel, "now it has content")

	next, err := chats.GetOrCreateNewChat(ctx, models.DefaultProjectID, false)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, next.ID)

	_, err = chats.GetOrCreateNewChat(ctx, "missing", false)
	assert.ErrorIs(t, err, domain.ErrConstraintViolation)
}

func TestMoveChat(t *testing.T) {
	ctx := context.Background()
	db := newTestStore(t)
	chats := NewChatService(db)
	project, err := NewProjectService(db).Create(ctx, ProjectInput{Name: "Work"})
	require.NoError(t, err)

	chat := mustChat(t, db, CreateChatInput{})
	require.NoError(t, chats.SetProjectContextSummary(ctx, chat.ID, "context"))
	require.NoError(t, chats.Move(ctx, chat.ID, project.ID))

	got, err := chats.Get(ctx, chat.ID)
	require.NoError(t, err)
	assert.Equal(t, project.ID, got.ProjectID)
	assert.True(t, got.ProjectContextSummaryIsStale)

	assert.ErrorIs(t, chats.Move(ctx, chat.ID, "missing"), domain.ErrConstraintViolation)
	assert.ErrorIs(t, chats.Move(ctx, "missing", project.ID), domain.ErrNotFound)
}

func TestDrafts(t *testing.T) {
	ctx := context.Background()
	db := newTestStore(t)
	chats := NewChatService(db)
	chat := mustChat(t, db, CreateChatInput{})

	content, err := chats.GetDraft(ctx, chat.ID)
	require.NoError(t, err)
	assert.Empty(t, content)

	require.NoError(t, chats.SaveDraft(ctx, chat.ID, "first"))
	require.NoError(t, chats.SaveDraft(ctx, chat.ID, "second"))
	content, err = chats.GetDraft(ctx, chat.ID)
	require.NoError(t, err)
	assert.Equal(t, "second", content)

	attID, _, err := NewAttachmentService(db).Register(ctx, AttachmentInput{Type: models.AttachmentTypePDF, Path: "/tmp/draft.pdf"})
	require.NoError(t, err)
	require.NoError(t, NewAttachmentService(db).AttachToDraft(ctx, chat.ID, attID))

	require.NoError(t, chats.DeleteDraft(ctx, chat.ID))
	content, err = chats.GetDraft(ctx, chat.ID)
	require.NoError(t, err)
	assert.Empty(t, content)
	assert.Zero(t, countRows(t, db, "draft_attachments", "chat_id = ?", chat.ID))

	assert.ErrorIs(t, chats.SaveDraft(ctx, "missing", "x"), domain.ErrNotFound)
}

func TestProjectContextStaleness(t *testing.T) {
	ctx := context.Background()
	db := newTestStore(t)
	chats := NewChatService(db)
	projects := NewProjectService(db)

	project, err := projects.Create(ctx, ProjectInput{Name: "Docs"})
	require.NoError(t, err)
	assert.True(t, project.MagicProjectsEnabled)

	chat := mustChat(t, db, CreateChatInput{ProjectID: project.ID})
	require.NoError(t, chats.SetProjectContextSummary(ctx, chat.ID, "fresh"))
	got, err := chats.Get(ctx, chat.ID)
	require.NoError(t, err)
	assert.False(t, got.ProjectContextSummaryIsStale)

	renamed, err := projects.Update(ctx, project.ID, ProjectInput{Name: "Documentation"})
	require.NoError(t, err)
	assert.Equal(t, "Documentation", renamed.Name)
	got, err = chats.Get(ctx, chat.ID)
	require.NoError(t, err)
	assert.False(t, got.ProjectContextSummaryIsStale, "a rename leaves summaries alone")

	contextText := "new context"
	updated, err := projects.Update(ctx, project.ID, ProjectInput{Name: "Documentation", ContextText: &contextText})
	require.NoError(t, err)
	require.NotNil(t, updated.ContextText)
	assert.Equal(t, contextText, *updated.ContextText)
	got, err = chats.Get(ctx, chat.ID)
	require.NoError(t, err)
	assert.True(t, got.ProjectContextSummaryIsStale)

	_, err = projects.Update(ctx, "missing", ProjectInput{Name: "x"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = projects.Create(ctx, ProjectInput{})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestBuiltinProjectsSeeded(t *testing.T) {
	db := newTestStore(t)
	list, err := NewProjectService(db).List(context.Background())
	require.NoError(t, err)

	ids := make([]string, 0, len(list))
	for _, p := range list {
		ids = append(ids, p.ID)
	}
	assert.Contains(t, ids, models.DefaultProjectID)
	assert.Contains(t, ids, models.QuickChatProjectID)
}
