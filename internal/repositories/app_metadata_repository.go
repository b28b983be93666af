package repositories

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"chatvault/internal/models"
)

type AppMetadataRepository interface {
	// Get returns the stored value and whether the key exists.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) ([]models.AppMetadata, error)
}

type appMetadataRepository struct {
	db *gorm.DB
}

func NewAppMetadataRepository(db *gorm.DB) AppMetadataRepository {
	return &appMetadataRepository{db: db}
}

func (r *appMetadataRepository) Get(ctx context.Context, key string) (string, bool, error) {
	var row models.AppMetadata
	if err := r.db.WithContext(ctx).Where("key = ?", key).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		return "", false, err
	}
	return row.Value, true, nil
}

func (r *appMetadataRepository) Set(ctx context.Context, key, value string) error {
	row := models.AppMetadata{Key: key, Value: value}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(&row).Error
}

func (r *appMetadataRepository) Delete(ctx context.Context, key string) error {
	return r.db.WithContext(ctx).Where("key = ?", key).Delete(&models.AppMetadata{}).Error
}

func (r *appMetadataRepository) List(ctx context.Context) ([]models.AppMetadata, error) {
	var rows []models.AppMetadata
	if err := r.db.WithContext(ctx).Order("key").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
