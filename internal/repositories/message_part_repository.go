package repositories

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"chatvault/internal/models"
)

type MessagePartRepository interface {
	Upsert(ctx context.Context, part *models.MessagePart) error
	ListByMessage(ctx context.Context, messageID string) ([]models.MessagePart, error)
	DeleteByMessage(ctx context.Context, messageID string) error
	DeleteByChat(ctx context.Context, chatID string) error
}

type messagePartRepository struct {
	db *gorm.DB
}

func NewMessagePartRepository(db *gorm.DB) MessagePartRepository {
	return &messagePartRepository{db: db}
}

// Upsert on the (message_id, level) key.
func (r *messagePartRepository) Upsert(ctx context.Context, part *models.MessagePart) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "message_id"}, {Name: "level"}},
		DoUpdates: clause.AssignmentColumns([]string{"content", "tool_calls", "tool_results"}),
	}).Create(part).Error
	return translateError(err, "message part", part.MessageID)
}

func (r *messagePartRepository) ListByMessage(ctx context.Context, messageID string) ([]models.MessagePart, error) {
	var parts []models.MessagePart
	if err := r.db.WithContext(ctx).
		Where("message_id = ?", messageID).
		Order("level").
		Find(&parts).Error; err != nil {
		return nil, err
	}
	return parts, nil
}

func (r *messagePartRepository) DeleteByMessage(ctx context.Context, messageID string) error {
	return r.db.WithContext(ctx).Where("message_id = ?", messageID).Delete(&models.MessagePart{}).Error
}

func (r *messagePartRepository) DeleteByChat(ctx context.Context, chatID string) error {
	return r.db.WithContext(ctx).Where("chat_id = ?", chatID).Delete(&models.MessagePart{}).Error
}
