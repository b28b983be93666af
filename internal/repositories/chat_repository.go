package repositories

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"chatvault/internal/models"
)

type ChatRepository interface {
	Create(ctx context.Context, chat *models.Chat) error
	Get(ctx context.Context, id string) (*models.Chat, error)
	List(ctx context.Context, projectID string) ([]models.Chat, error)
	ListIDsByProject(ctx context.Context, projectID string) ([]string, error)
	FindNewChat(ctx context.Context, projectID string, quickChat bool) (*models.Chat, error)
	Update(ctx context.Context, id string, fields map[string]interface{}) error
	// Touch records message activity on the chat.
	Touch(ctx context.Context, id string, at time.Time) error
	DetachChildren(ctx context.Context, parentChatID string) error
	Delete(ctx context.Context, id string) error

	SaveDraft(ctx context.Context, chatID, content string) error
	GetDraft(ctx context.Context, chatID string) (*models.MessageDraft, error)
	DeleteDraft(ctx context.Context, chatID string) error
}

type chatRepository struct {
	db *gorm.DB
}

func NewChatRepository(db *gorm.DB) ChatRepository {
	return &chatRepository{db: db}
}

func (r *chatRepository) Create(ctx context.Context, chat *models.Chat) error {
	return translateError(r.db.WithContext(ctx).Create(chat).Error, "chat", chat.ID)
}

func (r *chatRepository) Get(ctx context.Context, id string) (*models.Chat, error) {
	var chat models.Chat
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&chat).Error; err != nil {
		return nil, translateError(err, "chat", id)
	}
	return &chat, nil
}

// List returns the chats of a project, or of every project when projectID is
// empty, pinned first and then by recent activity.
func (r *chatRepository) List(ctx context.Context, projectID string) ([]models.Chat, error) {
	q := r.db.WithContext(ctx).Order("pinned DESC, updated_at DESC, id")
	if projectID != "" {
		q = q.Where("project_id = ?", projectID)
	}
	var chats []models.Chat
	if err := q.Find(&chats).Error; err != nil {
		return nil, err
	}
	return chats, nil
}

func (r *chatRepository) ListIDsByProject(ctx context.Context, projectID string) ([]string, error) {
	var ids []string
	if err := r.db.WithContext(ctx).Model(&models.Chat{}).
		Where("project_id = ?", projectID).
		Order("id").
		Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *chatRepository) FindNewChat(ctx context.Context, projectID string, quickChat bool) (*models.Chat, error) {
	var chat models.Chat
	err := r.db.WithContext(ctx).
		Where("project_id = ? AND quick_chat = ? AND is_new_chat = ?", projectID, quickChat, true).
		Take(&chat).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &chat, nil
}

func (r *chatRepository) Update(ctx context.Context, id string, fields map[string]interface{}) error {
	res := r.db.WithContext(ctx).Model(&models.Chat{}).Where("id = ?", id).UpdateColumns(fields)
	return requireAffected(res, "chat", id)
}

func (r *chatRepository) Touch(ctx context.Context, id string, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&models.Chat{}).Where("id = ?", id).UpdateColumns(map[string]interface{}{
		"updated_at":  at,
		"is_new_chat": false,
	})
	return requireAffected(res, "chat", id)
}

func (r *chatRepository) DetachChildren(ctx context.Context, parentChatID string) error {
	return r.db.WithContext(ctx).Model(&models.Chat{}).
		Where("parent_chat_id = ?", parentChatID).
		UpdateColumn("parent_chat_id", nil).Error
}

func (r *chatRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Chat{})
	return requireAffected(res, "chat", id)
}

func (r *chatRepository) SaveDraft(ctx context.Context, chatID, content string) error {
	draft := models.MessageDraft{ChatID: chatID, Content: content}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "chat_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"content"}),
	}).Create(&draft).Error
	return translateError(err, "draft", chatID)
}

func (r *chatRepository) GetDraft(ctx context.Context, chatID string) (*models.MessageDraft, error) {
	var draft models.MessageDraft
	err := r.db.WithContext(ctx).Where("chat_id = ?", chatID).Take(&draft).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &draft, nil
}

func (r *chatRepository) DeleteDraft(ctx context.Context, chatID string) error {
	return r.db.WithContext(ctx).Where("chat_id = ?", chatID).Delete(&models.MessageDraft{}).Error
}
