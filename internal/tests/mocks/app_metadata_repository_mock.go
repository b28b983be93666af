package mocks

import (
	"context"
	"sort"

	"chatvault/internal/models"
)

// AppMetadataRepositoryMock falls back to an in-memory map for any method
// without a Func override.
type AppMetadataRepositoryMock struct {
	GetFunc    func(ctx context.Context, key string) (string, bool, error)
	SetFunc    func(ctx context.Context, key, value string) error
	DeleteFunc func(ctx context.Context, key string) error
	ListFunc   func(ctx context.Context) ([]models.AppMetadata, error)

	Values map[string]string
}

func (m *AppMetadataRepositoryMock) Get(ctx context.Context, key string) (string, bool, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, key)
	}
	value, ok := m.Values[key]
	return value, ok, nil
}

func (m *AppMetadataRepositoryMock) Set(ctx context.Context, key, value string) error {
	if m.SetFunc != nil {
		return m.SetFunc(ctx, key, value)
	}
	if m.Values == nil {
		m.Values = map[string]string{}
	}
	m.Values[key] = value
	return nil
}

func (m *AppMetadataRepositoryMock) Delete(ctx context.Context, key string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, key)
	}
	delete(m.Values, key)
	return nil
}

func (m *AppMetadataRepositoryMock) List(ctx context.Context) ([]models.AppMetadata, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx)
	}
	keys := make([]string, 0, len(m.Values))
	for k := range m.Values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]models.AppMetadata, 0, len(keys))
	for _, k := range keys {
		out = append(out, models.AppMetadata{Key: k, Value: m.Values[k]})
	}
	return out, nil
}
