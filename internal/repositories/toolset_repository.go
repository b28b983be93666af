package repositories

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"chatvault/internal/models"
)

type ToolsetRepository interface {
	GetParameter(ctx context.Context, toolset, parameterID string) (*models.ToolsetConfig, error)
	SetParameter(ctx context.Context, cfg *models.ToolsetConfig) error
	ListParameters(ctx context.Context, toolset string) ([]models.ToolsetConfig, error)
	DeleteParameter(ctx context.Context, toolset, parameterID string) error

	GetPermission(ctx context.Context, toolset, tool string) (*models.ToolPermission, error)
	UpsertPermission(ctx context.Context, perm *models.ToolPermission) error
	ListPermissions(ctx context.Context, toolset string) ([]models.ToolPermission, error)
	DeletePermissions(ctx context.Context, toolset string) (int64, error)

	UpsertCustomToolset(ctx context.Context, toolset *models.CustomToolset) error
	GetCustomToolset(ctx context.Context, name string) (*models.CustomToolset, error)
	ListCustomToolsets(ctx context.Context) ([]models.CustomToolset, error)
	DeleteCustomToolset(ctx context.Context, name string) error
}

type toolsetRepository struct {
	db *gorm.DB
}

func NewToolsetRepository(db *gorm.DB) ToolsetRepository {
	return &toolsetRepository{db: db}
}

func (r *toolsetRepository) GetParameter(ctx context.Context, toolset, parameterID string) (*models.ToolsetConfig, error) {
	var cfg models.ToolsetConfig
	err := r.db.WithContext(ctx).
		Where("toolset_name = ? AND parameter_id = ?", toolset, parameterID).
		Take(&cfg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (r *toolsetRepository) SetParameter(ctx context.Context, cfg *models.ToolsetConfig) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "toolset_name"}, {Name: "parameter_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"parameter_value"}),
	}).Create(cfg).Error
}

func (r *toolsetRepository) ListParameters(ctx context.Context, toolset string) ([]models.ToolsetConfig, error) {
	var list []models.ToolsetConfig
	if err := r.db.WithContext(ctx).
		Where("toolset_name = ?", toolset).
		Order("parameter_id").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *toolsetRepository) DeleteParameter(ctx context.Context, toolset, parameterID string) error {
	return r.db.WithContext(ctx).
		Where("toolset_name = ? AND parameter_id = ?", toolset, parameterID).
		Delete(&models.ToolsetConfig{}).Error
}

func (r *toolsetRepository) GetPermission(ctx context.Context, toolset, tool string) (*models.ToolPermission, error) {
	var perm models.ToolPermission
	err := r.db.WithContext(ctx).
		Where("toolset_name = ? AND tool_name = ?", toolset, tool).
		Take(&perm).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &perm, nil
}

func (r *toolsetRepository) UpsertPermission(ctx context.Context, perm *models.ToolPermission) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "toolset_name"}, {Name: "tool_name"}},
		DoUpdates: clause.AssignmentColumns([]string{"permission_type", "last_asked_at", "last_response", "updated_at"}),
	}).Create(perm).Error
	return translateError(err, "tool permission", perm.ToolsetName+"/"+perm.ToolName)
}

func (r *toolsetRepository) ListPermissions(ctx context.Context, toolset string) ([]models.ToolPermission, error) {
	var list []models.ToolPermission
	if err := r.db.WithContext(ctx).
		Where("toolset_name = ?", toolset).
		Order("tool_name").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *toolsetRepository) DeletePermissions(ctx context.Context, toolset string) (int64, error) {
	res := r.db.WithContext(ctx).Where("toolset_name = ?", toolset).Delete(&models.ToolPermission{})
	return res.RowsAffected, res.Error
}

func (r *toolsetRepository) UpsertCustomToolset(ctx context.Context, toolset *models.CustomToolset) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"command", "args", "env", "updated_at"}),
	}).Create(toolset).Error
	return translateError(err, "custom toolset", toolset.Name)
}

func (r *toolsetRepository) GetCustomToolset(ctx context.Context, name string) (*models.CustomToolset, error) {
	var toolset models.CustomToolset
	if err := r.db.WithContext(ctx).Where("name = ?", name).Take(&toolset).Error; err != nil {
		return nil, translateError(err, "custom toolset", name)
	}
	return &toolset, nil
}

func (r *toolsetRepository) ListCustomToolsets(ctx context.Context) ([]models.CustomToolset, error) {
	var list []models.CustomToolset
	if err := r.db.WithContext(ctx).Order("name").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *toolsetRepository) DeleteCustomToolset(ctx context.Context, name string) error {
	res := r.db.WithContext(ctx).Where("name = ?", name).Delete(&models.CustomToolset{})
	return requireAffected(res, "custom toolset", name)
}
