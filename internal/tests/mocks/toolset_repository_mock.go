package mocks

import (
	"context"

	"chatvault/internal/domain"
	"chatvault/internal/models"
)

type ToolsetRepositoryMock struct {
	GetParameterFunc        func(ctx context.Context, toolset, parameterID string) (*models.ToolsetConfig, error)
	SetParameterFunc        func(ctx context.Context, cfg *models.ToolsetConfig) error
	ListParametersFunc      func(ctx context.Context, toolset string) ([]models.ToolsetConfig, error)
	DeleteParameterFunc     func(ctx context.Context, toolset, parameterID string) error
	GetPermissionFunc       func(ctx context.Context, toolset, tool string) (*models.ToolPermission, error)
	UpsertPermissionFunc    func(ctx context.Context, perm *models.ToolPermission) error
	ListPermissionsFunc     func(ctx context.Context, toolset string) ([]models.ToolPermission, error)
	DeletePermissionsFunc   func(ctx context.Context, toolset string) (int64, error)
	UpsertCustomToolsetFunc func(ctx context.Context, toolset *models.CustomToolset) error
	GetCustomToolsetFunc    func(ctx context.Context, name string) (*models.CustomToolset, error)
	ListCustomToolsetsFunc  func(ctx context.Context) ([]models.CustomToolset, error)
	DeleteCustomToolsetFunc func(ctx context.Context, name string) error
}

func (m *ToolsetRepositoryMock) GetParameter(ctx context.Context, toolset, parameterID string) (*models.ToolsetConfig, error) {
	if m.GetParameterFunc != nil {
		return m.GetParameterFunc(ctx, toolset, parameterID)
	}
	return nil, nil
}

func (m *ToolsetRepositoryMock) SetParameter(ctx context.Context, cfg *models.ToolsetConfig) error {
	if m.SetParameterFunc != nil {
		return m.SetParameterFunc(ctx, cfg)
	}
	return nil
}

func (m *ToolsetRepositoryMock) ListParameters(ctx context.Context, toolset string) ([]models.ToolsetConfig, error) {
	if m.ListParametersFunc != nil {
		return m.ListParametersFunc(ctx, toolset)
	}
	return nil, nil
}

func (m *ToolsetRepositoryMock) DeleteParameter(ctx context.Context, toolset, parameterID string) error {
	if m.DeleteParameterFunc != nil {
		return m.DeleteParameterFunc(ctx, toolset, parameterID)
	}
	return nil
}

func (m *ToolsetRepositoryMock) GetPermission(ctx context.Context, toolset, tool string) (*models.ToolPermission, error) {
	if m.GetPermissionFunc != nil {
		return m.GetPermissionFunc(ctx, toolset, tool)
	}
	return nil, nil
}

func (m *ToolsetRepositoryMock) UpsertPermission(ctx context.Context, perm *models.ToolPermission) error {
	if m.UpsertPermissionFunc != nil {
		return m.UpsertPermissionFunc(ctx, perm)
	}
	return nil
}

func (m *ToolsetRepositoryMock) ListPermissions(ctx context.Context, toolset string) ([]models.ToolPermission, error) {
	if m.ListPermissionsFunc != nil {
		return m.ListPermissionsFunc(ctx, toolset)
	}
	return nil, nil
}

func (m *ToolsetRepositoryMock) DeletePermissions(ctx context.Context, toolset string) (int64, error) {
	if m.DeletePermissionsFunc != nil {
		return m.DeletePermissionsFunc(ctx, toolset)
	}
	return 0, nil
}

func (m *ToolsetRepositoryMock) UpsertCustomToolset(ctx context.Context, toolset *models.CustomToolset) error {
	if m.UpsertCustomToolsetFunc != nil {
		return m.UpsertCustomToolsetFunc(ctx, toolset)
	}
	return nil
}

func (m *ToolsetRepositoryMock) GetCustomToolset(ctx context.Context, name string) (*models.CustomToolset, error) {
	if m.GetCustomToolsetFunc != nil {
		return m.GetCustomToolsetFunc(ctx, name)
	}
	return nil, domain.NotFound("custom toolset", name)
}

func (m *ToolsetRepositoryMock) ListCustomToolsets(ctx context.Context) ([]models.CustomToolset, error) {
	if m.ListCustomToolsetsFunc != nil {
		return m.ListCustomToolsetsFunc(ctx)
	}
	return nil, nil
}

func (m *ToolsetRepositoryMock) DeleteCustomToolset(ctx context.Context, name string) error {
	if m.DeleteCustomToolsetFunc != nil {
		return m.DeleteCustomToolsetFunc(ctx, name)
	}
	return nil
}
