package repositories

import (
	"context"

	"gorm.io/gorm"

	"chatvault/internal/models"
)

type MessageSetRepository interface {
	Create(ctx context.Context, set *models.MessageSet) error
	Get(ctx context.Context, id string) (*models.MessageSet, error)
	ListByChat(ctx context.Context, chatID string) ([]models.MessageSet, error)
	SetSelectedBlockType(ctx context.Context, id string, blockType models.BlockType) error
	DeleteByChat(ctx context.Context, chatID string) error
}

type messageSetRepository struct {
	db *gorm.DB
}

func NewMessageSetRepository(db *gorm.DB) MessageSetRepository {
	return &messageSetRepository{db: db}
}

func (r *messageSetRepository) Create(ctx context.Context, set *models.MessageSet) error {
	return translateError(r.db.WithContext(ctx).Create(set).Error, "message set", set.ID)
}

func (r *messageSetRepository) Get(ctx context.Context, id string) (*models.MessageSet, error) {
	var set models.MessageSet
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&set).Error; err != nil {
		return nil, translateError(err, "message set", id)
	}
	return &set, nil
}

func (r *messageSetRepository) ListByChat(ctx context.Context, chatID string) ([]models.MessageSet, error) {
	var sets []models.MessageSet
	if err := r.db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("level, created_at, id").
		Find(&sets).Error; err != nil {
		return nil, err
	}
	return sets, nil
}

func (r *messageSetRepository) SetSelectedBlockType(ctx context.Context, id string, blockType models.BlockType) error {
	res := r.db.WithContext(ctx).Model(&models.MessageSet{}).Where("id = ?", id).
		UpdateColumn("selected_block_type", blockType)
	return requireAffected(res, "message set", id)
}

func (r *messageSetRepository) DeleteByChat(ctx context.Context, chatID string) error {
	return r.db.WithContext(ctx).Where("chat_id = ?", chatID).Delete(&models.MessageSet{}).Error
}
