package repositories

import (
	"context"

	"gorm.io/gorm"

	"chatvault/internal/models"
)

type MessageRepository interface {
	Create(ctx context.Context, message *models.Message) error
	Get(ctx context.Context, id string) (*models.Message, error)
	ListBySet(ctx context.Context, setID string) ([]models.Message, error)
	ListByChat(ctx context.Context, chatID string) ([]models.Message, error)
	IDsByChat(ctx context.Context, chatID string) ([]string, error)
	CountBySet(ctx context.Context, setID string) (int64, error)
	// Select makes id the only selected message of its set.
	Select(ctx context.Context, setID, id string) error
	Update(ctx context.Context, id string, fields map[string]interface{}) error
	// AppendText appends chunk while the message is streaming under token.
	// It reports whether a row matched.
	AppendText(ctx context.Context, id, token, chunk string) (bool, error)
	Delete(ctx context.Context, id string) error
	DeleteByChat(ctx context.Context, chatID string) error
}

type messageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) Create(ctx context.Context, message *models.Message) error {
	return translateError(r.db.WithContext(ctx).Create(message).Error, "message", message.ID)
}

func (r *messageRepository) Get(ctx context.Context, id string) (*models.Message, error) {
	var message models.Message
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&message).Error; err != nil {
		return nil, translateError(err, "message", id)
	}
	return &message, nil
}

func (r *messageRepository) ListBySet(ctx context.Context, setID string) ([]models.Message, error) {
	var messages []models.Message
	if err := r.db.WithContext(ctx).
		Where("message_set_id = ?", setID).
		Order("model, id").
		Find(&messages).Error; err != nil {
		return nil, err
	}
	return messages, nil
}

func (r *messageRepository) ListByChat(ctx context.Context, chatID string) ([]models.Message, error) {
	var messages []models.Message
	if err := r.db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("message_set_id, model, id").
		Find(&messages).Error; err != nil {
		return nil, err
	}
	return messages, nil
}

func (r *messageRepository) IDsByChat(ctx context.Context, chatID string) ([]string, error) {
	var ids []string
	if err := r.db.WithContext(ctx).Model(&models.Message{}).
		Where("chat_id = ?", chatID).
		Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *messageRepository) CountBySet(ctx context.Context, setID string) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Message{}).
		Where("message_set_id = ?", setID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *messageRepository) Select(ctx context.Context, setID, id string) error {
	db := r.db.WithContext(ctx)
	if err := db.Model(&models.Message{}).
		Where("message_set_id = ? AND id <> ?", setID, id).
		UpdateColumn("selected", false).Error; err != nil {
		return err
	}
	res := db.Model(&models.Message{}).
		Where("message_set_id = ? AND id = ?", setID, id).
		UpdateColumn("selected", true)
	return requireAffected(res, "message", id)
}

func (r *messageRepository) Update(ctx context.Context, id string, fields map[string]interface{}) error {
	res := r.db.WithContext(ctx).Model(&models.Message{}).Where("id = ?", id).UpdateColumns(fields)
	return requireAffected(res, "message", id)
}

func (r *messageRepository) AppendText(ctx context.Context, id, token, chunk string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Message{}).
		Where("id = ? AND state = ? AND streaming_token = ?", id, models.MessageStateStreaming, token).
		UpdateColumn("text", gorm.Expr("text || ?", chunk))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *messageRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Message{})
	return requireAffected(res, "message", id)
}

func (r *messageRepository) DeleteByChat(ctx context.Context, chatID string) error {
	return r.db.WithContext(ctx).Where("chat_id = ?", chatID).Delete(&models.Message{}).Error
}
