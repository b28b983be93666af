package services

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"chatvault/internal/database"
	"chatvault/internal/models"
)

// newTestStore opens a fully migrated store in a temp dir.
func newTestStore(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Init(context.Background(), database.Config{
		Path:     filepath.Join(t.TempDir(), "chatvault.db"),
		LogLevel: logger.Silent,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })
	return db
}

func countRows(t *testing.T, db *gorm.DB, table, where string, args ...interface{}) int64 {
	t.Helper()
	var n int64
	q := db.Table(table)
	if where != "" {
		q = q.Where(where, args...)
	}
	require.NoError(t, q.Count(&n).Error)
	return n
}

func mustChat(t *testing.T, db *gorm.DB, in CreateChatInput) *models.Chat {
	t.Helper()
	chat, err := NewChatService(db).Create(context.Background(), in)
	require.NoError(t, err)
	return chat
}

func mustSet(t *testing.T, svc ConversationService, chatID string, setType models.SetType, parent *string) string {
	t.Helper()
	id, err := svc.CreateMessageSet(context.Background(), chatID, setType, parent)
	require.NoError(t, err)
	return id
}

func mustMessage(t *testing.T, svc ConversationService, setID, model, text string) string {
	t.Helper()
	id, err := svc.AppendMessage(context.Background(), setID, AppendMessageInput{Model: model, Text: text})
	require.NoError(t, err)
	return id
}

// selectedIn returns the ids of the selected messages of a set.
func selectedIn(t *testing.T, db *gorm.DB, setID string) []string {
	t.Helper()
	var ids []string
	require.NoError(t, db.Table("messages").
		Where("message_set_id = ? AND selected = ?", setID, true).
		Order("id").
		Pluck("id", &ids).Error)
	return ids
}
