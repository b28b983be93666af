package repositories

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"chatvault/internal/models"
)

type ModelRepository interface {
	ListModels(ctx context.Context) ([]models.Model, error)
	GetModel(ctx context.Context, id string) (*models.Model, error)
	// UpsertCatalogModel inserts or refreshes a built-in model. An existing
	// row keeps its is_enabled toggle.
	UpsertCatalogModel(ctx context.Context, model *models.Model) error
	SetModelEnabled(ctx context.Context, id string, enabled bool) error
	SetProviderEnabled(ctx context.Context, provider string, enabled bool) (int64, error)

	ListConfigs(ctx context.Context) ([]models.ModelConfig, error)
	ListDefaultConfigs(ctx context.Context) ([]models.ModelConfig, error)
	GetConfig(ctx context.Context, id string) (*models.ModelConfig, error)
	CreateConfig(ctx context.Context, config *models.ModelConfig) error
	InsertConfigIfMissing(ctx context.Context, config *models.ModelConfig) error
	UpdateConfig(ctx context.Context, id string, fields map[string]interface{}) error
	DeleteConfig(ctx context.Context, id string) error
}

type modelRepository struct {
	db *gorm.DB
}

func NewModelRepository(db *gorm.DB) ModelRepository {
	return &modelRepository{db: db}
}

func (r *modelRepository) ListModels(ctx context.Context) ([]models.Model, error) {
	var list []models.Model
	if err := r.db.WithContext(ctx).Order("id").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *modelRepository) GetModel(ctx context.Context, id string) (*models.Model, error) {
	var model models.Model
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&model).Error; err != nil {
		return nil, translateError(err, "model", id)
	}
	return &model, nil
}

func (r *modelRepository) UpsertCatalogModel(ctx context.Context, model *models.Model) error {
	if model.ID == "" {
		return fmt.Errorf("model id is required")
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"display_name", "is_deprecated", "is_internal", "supported_attachment_types",
		}),
	}).Create(model).Error
	return translateError(err, "model", model.ID)
}

func (r *modelRepository) SetModelEnabled(ctx context.Context, id string, enabled bool) error {
	res := r.db.WithContext(ctx).Model(&models.Model{}).Where("id = ?", id).UpdateColumn("is_enabled", enabled)
	return requireAffected(res, "model", id)
}

func (r *modelRepository) SetProviderEnabled(ctx context.Context, provider string, enabled bool) (int64, error) {
	if provider == "" {
		return 0, fmt.Errorf("provider is required")
	}
	res := r.db.WithContext(ctx).Model(&models.Model{}).
		Where("id LIKE ?", provider+"::%").
		UpdateColumn("is_enabled", enabled)
	return res.RowsAffected, res.Error
}

func (r *modelRepository) ListConfigs(ctx context.Context) ([]models.ModelConfig, error) {
	var configs []models.ModelConfig
	if err := r.db.WithContext(ctx).Order("is_pinned DESC, display_name, id").Find(&configs).Error; err != nil {
		return nil, err
	}
	return configs, nil
}

// ListDefaultConfigs returns default configs, most recent first.
func (r *modelRepository) ListDefaultConfigs(ctx context.Context) ([]models.ModelConfig, error) {
	var configs []models.ModelConfig
	if err := r.db.WithContext(ctx).
		Where("is_default = ?", true).
		Order("created_at DESC, id").
		Find(&configs).Error; err != nil {
		return nil, err
	}
	return configs, nil
}

func (r *modelRepository) GetConfig(ctx context.Context, id string) (*models.ModelConfig, error) {
	var config models.ModelConfig
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&config).Error; err != nil {
		return nil, translateError(err, "model config", id)
	}
	return &config, nil
}

func (r *modelRepository) CreateConfig(ctx context.Context, config *models.ModelConfig) error {
	return translateError(r.db.WithContext(ctx).Create(config).Error, "model config", config.ID)
}

func (r *modelRepository) InsertConfigIfMissing(ctx context.Context, config *models.ModelConfig) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(config).Error
	return translateError(err, "model config", config.ID)
}

func (r *modelRepository) UpdateConfig(ctx context.Context, id string, fields map[string]interface{}) error {
	res := r.db.WithContext(ctx).Model(&models.ModelConfig{}).Where("id = ?", id).UpdateColumns(fields)
	return requireAffected(res, "model config", id)
}

func (r *modelRepository) DeleteConfig(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.ModelConfig{})
	return requireAffected(res, "model config", id)
}
