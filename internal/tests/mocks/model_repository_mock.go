package mocks

import (
	"context"

	"chatvault/internal/domain"
	"chatvault/internal/models"
)

type ModelRepositoryMock struct {
	ListModelsFunc            func(ctx context.Context) ([]models.Model, error)
	GetModelFunc              func(ctx context.Context, id string) (*models.Model, error)
	UpsertCatalogModelFunc    func(ctx context.Context, model *models.Model) error
	SetModelEnabledFunc       func(ctx context.Context, id string, enabled bool) error
	SetProviderEnabledFunc    func(ctx context.Context, provider string, enabled bool) (int64, error)
	ListConfigsFunc           func(ctx context.Context) ([]models.ModelConfig, error)
	ListDefaultConfigsFunc    func(ctx context.Context) ([]models.ModelConfig, error)
	GetConfigFunc             func(ctx context.Context, id string) (*models.ModelConfig, error)
	CreateConfigFunc          func(ctx context.Context, config *models.ModelConfig) error
	InsertConfigIfMissingFunc func(ctx context.Context, config *models.ModelConfig) error
	UpdateConfigFunc          func(ctx context.Context, id string, fields map[string]interface{}) error
	DeleteConfigFunc          func(ctx context.Context, id string) error
}

func (m *ModelRepositoryMock) ListModels(ctx context.Context) ([]models.Model, error) {
	if m.ListModelsFunc != nil {
		return m.ListModelsFunc(ctx)
	}
	return nil, nil
}

func (m *ModelRepositoryMock) GetModel(ctx context.Context, id string) (*models.Model, error) {
	if m.GetModelFunc != nil {
		return m.GetModelFunc(ctx, id)
	}
	return nil, domain.NotFound("model", id)
}

func (m *ModelRepositoryMock) UpsertCatalogModel(ctx context.Context, model *models.Model) error {
	if m.UpsertCatalogModelFunc != nil {
		return m.UpsertCatalogModelFunc(ctx, model)
	}
	return nil
}

func (m *ModelRepositoryMock) SetModelEnabled(ctx context.Context, id string, enabled bool) error {
	if m.SetModelEnabledFunc != nil {
		return m.SetModelEnabledFunc(ctx, id, enabled)
	}
	return nil
}

func (m *ModelRepositoryMock) SetProviderEnabled(ctx context.Context, provider string, enabled bool) (int64, error) {
	if m.SetProviderEnabledFunc != nil {
		return m.SetProviderEnabledFunc(ctx, provider, enabled)
	}
	return 0, nil
}

func (m *ModelRepositoryMock) ListConfigs(ctx context.Context) ([]models.ModelConfig, error) {
	if m.ListConfigsFunc != nil {
		return m.ListConfigsFunc(ctx)
	}
	return nil, nil
}

func (m *ModelRepositoryMock) ListDefaultConfigs(ctx context.Context) ([]models.ModelConfig, error) {
	if m.ListDefaultConfigsFunc != nil {
		return m.ListDefaultConfigsFunc(ctx)
	}
	return nil, nil
}

func (m *ModelRepositoryMock) GetConfig(ctx context.Context, id string) (*models.ModelConfig, error) {
	if m.GetConfigFunc != nil {
		return m.GetConfigFunc(ctx, id)
	}
	return nil, domain.NotFound("model config", id)
}

func (m *ModelRepositoryMock) CreateConfig(ctx context.Context, config *models.ModelConfig) error {
	if m.CreateConfigFunc != nil {
		return m.CreateConfigFunc(ctx, config)
	}
	return nil
}

func (m *ModelRepositoryMock) InsertConfigIfMissing(ctx context.Context, config *models.ModelConfig) error {
	if m.InsertConfigIfMissingFunc != nil {
		return m.InsertConfigIfMissingFunc(ctx, config)
	}
	return nil
}

func (m *ModelRepositoryMock) UpdateConfig(ctx context.Context, id string, fields map[string]interface{}) error {
	if m.UpdateConfigFunc != nil {
		return m.UpdateConfigFunc(ctx, id, fields)
	}
	return nil
}

func (m *ModelRepositoryMock) DeleteConfig(ctx context.Context, id string) error {
	if m.DeleteConfigFunc != nil {
		return m.DeleteConfigFunc(ctx, id)
	}
	return nil
}
