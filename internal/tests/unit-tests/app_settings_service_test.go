package unit_tests

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatvault/internal/domain"
	"chatvault/internal/services"
	"chatvault/internal/tests/mocks"
)

func TestAppSettingsService_Get_Default(t *testing.T) {
	service := services.NewAppSettingsService(&mocks.AppMetadataRepositoryMock{})
	ctx := context.Background()

	value, err := service.Get(ctx, services.SettingCurrentBlockType)
	require.NoError(t, err)
	assert.Equal(t, "chat", value)

	enabled, err := service.GetBool(ctx, services.SettingReviewsEnabled)
	require.NoError(t, err)
	assert.False(t, enabled)
}

func TestAppSettingsService_Get_Stored(t *testing.T) {
	mockRepo := &mocks.AppMetadataRepositoryMock{
		Values: map[string]string{"custom_base_url": "http://localhost:11434"},
	}
	service := services.NewAppSettingsService(mockRepo)

	value, err := service.Get(context.Background(), services.SettingCustomBaseURL)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:11434", value)
}

func TestAppSettingsService_Get_UnknownKey(t *testing.T) {
	service := services.NewAppSettingsService(&mocks.AppMetadataRepositoryMock{})

	_, err := service.Get(context.Background(), services.SettingKey("theme"))
	assert.ErrorIs(t, err, domain.ErrValidation)

	err = service.Set(context.Background(), services.SettingKey("theme"), "dark")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestAppSettingsService_Get_RepositoryError(t *testing.T) {
	mockRepo := &mocks.AppMetadataRepositoryMock{
		GetFunc: func(ctx context.Context, key string) (string, bool, error) {
			return "", false, errors.New("database error")
		},
	}
	service := services.NewAppSettingsService(mockRepo)

	_, err := service.Get(context.Background(), services.SettingYoloMode)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database error")
}

func TestAppSettingsService_Set_Validates(t *testing.T) {
	var writes int
	mockRepo := &mocks.AppMetadataRepositoryMock{
		SetFunc: func(ctx context.Context, key, value string) error {
			writes++
			return nil
		},
	}
	service := services.NewAppSettingsService(mockRepo)
	ctx := context.Background()

	assert.ErrorIs(t, service.Set(ctx, services.SettingYoloMode, "maybe"), domain.ErrValidation)
	assert.ErrorIs(t, service.Set(ctx, services.SettingOnboardingStep, "two"), domain.ErrValidation)
	assert.ErrorIs(t, service.Set(ctx, services.SettingCurrentBlockType, "grid"), domain.ErrValidation)
	assert.ErrorIs(t, service.Set(ctx, services.SettingCompareModelConfigs, "a,b"), domain.ErrValidation)
	assert.Zero(t, writes)

	require.NoError(t, service.Set(ctx, services.SettingCurrentBlockType, "compare"))
	require.NoError(t, service.Set(ctx, services.SettingOnboardingStep, "3"))
	require.NoError(t, service.SetBool(ctx, services.SettingYoloMode, true))
	assert.Equal(t, 3, writes)
}

func TestAppSettingsService_StringList(t *testing.T) {
	mockRepo := &mocks.AppMetadataRepositoryMock{}
	service := services.NewAppSettingsService(mockRepo)
	ctx := context.Background()

	list, err := service.GetStringList(ctx, services.SettingCompareModelConfigs)
	require.NoError(t, err)
	assert.Empty(t, list)

	require.NoError(t, service.SetStringList(ctx, services.SettingCompareModelConfigs, []string{"a", "b"}))
	assert.Equal(t, `["a","b"]`, mockRepo.Values["selected_model_configs_compare"])

	list, err = service.GetStringList(ctx, services.SettingCompareModelConfigs)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, list)

	mockRepo.Values["selected_model_configs_compare"] = "legacy-single-id"
	list, err = service.GetStringList(ctx, services.SettingCompareModelConfigs)
	require.NoError(t, err)
	assert.Equal(t, []string{"legacy-single-id"}, list)
}

func TestAppSettingsService_AllAndReset(t *testing.T) {
	mockRepo := &mocks.AppMetadataRepositoryMock{
		Values: map[string]string{
			"yolo_mode":       "true",
			"legacy_leftover": "ignored",
		},
	}
	service := services.NewAppSettingsService(mockRepo)
	ctx := context.Background()

	all, err := service.All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, len(services.SettingKeys()))
	assert.Equal(t, "true", all[services.SettingYoloMode])
	assert.Equal(t, "chat", all[services.SettingCurrentBlockType])
	assert.NotContains(t, all, services.SettingKey("legacy_leftover"))

	require.NoError(t, service.Reset(ctx, services.SettingYoloMode))
	yolo, err := service.GetBool(ctx, services.SettingYoloMode)
	require.NoError(t, err)
	assert.False(t, yolo)
	assert.ErrorIs(t, service.Reset(ctx, services.SettingKey("legacy_leftover")), domain.ErrValidation)
}

func TestAppSettingsService_GetBool_Malformed(t *testing.T) {
	mockRepo := &mocks.AppMetadataRepositoryMock{
		Values: map[string]string{"vision_mode_enabled": "yes please"},
	}
	service := services.NewAppSettingsService(mockRepo)

	enabled, err := service.GetBool(context.Background(), services.SettingVisionModeEnabled)
	require.NoError(t, err)
	assert.False(t, enabled)
}
