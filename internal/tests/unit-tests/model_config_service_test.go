package unit_tests

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatvault/internal/domain"
	"chatvault/internal/models"
	"chatvault/internal/services"
	"chatvault/internal/tests/mocks"
)

// fakeCatalog backs a ModelRepositoryMock with fixed models and configs.
func fakeCatalog(modelList []models.Model, configs []models.ModelConfig) *mocks.ModelRepositoryMock {
	return &mocks.ModelRepositoryMock{
		GetModelFunc: func(ctx context.Context, id string) (*models.Model, error) {
			for i := range modelList {
				if modelList[i].ID == id {
					m := modelList[i]
					return &m, nil
				}
			}
			return nil, domain.NotFound("model", id)
		},
		GetConfigFunc: func(ctx context.Context, id string) (*models.ModelConfig, error) {
			for i := range configs {
				if configs[i].ID == id {
					c := configs[i]
					return &c, nil
				}
			}
			return nil, domain.NotFound("model config", id)
		},
		ListDefaultConfigsFunc: func(ctx context.Context) ([]models.ModelConfig, error) {
			var out []models.ModelConfig
			for _, c := range configs {
				if c.IsDefault {
					out = append(out, c)
				}
			}
			return out, nil
		},
	}
}

func TestModelConfigService_Resolve_FallsBackPastDisabledDefault(t *testing.T) {
	repo := fakeCatalog(
		[]models.Model{
			{ID: "a::one", IsEnabled: false},
			{ID: "b::two", IsEnabled: true},
		},
		[]models.ModelConfig{
			{ID: "cfg-one", ModelID: "a::one", IsDefault: true},
			{ID: "cfg-two", ModelID: "b::two", IsDefault: true},
		},
	)
	settings := services.NewAppSettingsService(&mocks.AppMetadataRepositoryMock{
		Values: map[string]string{"selected_model_config_chat": "cfg-one"},
	})
	service := services.NewModelConfigService(repo, settings)

	resolved, err := service.Resolve(context.Background(), services.ScopeChat)
	require.NoError(t, err)
	require.Len(t, resolved, 1)
	assert.Equal(t, "cfg-two", resolved[0].Config.ID)
	assert.Equal(t, "b::two", resolved[0].Model.ID)
}

func TestModelConfigService_Resolve_EmptySelection(t *testing.T) {
	repo := fakeCatalog(
		[]models.Model{{ID: "a::one", IsEnabled: true}},
		[]models.ModelConfig{{ID: "cfg-one", ModelID: "a::one", IsDefault: true}},
	)
	service := services.NewModelConfigService(repo, services.NewAppSettingsService(&mocks.AppMetadataRepositoryMock{}))

	_, err := service.ResolveSelection(context.Background(), services.ScopeQuickChat)
	assert.ErrorIs(t, err, domain.ErrNoEligibleModel)

	resolved, err := service.Resolve(context.Background(), services.ScopeQuickChat)
	require.NoError(t, err)
	assert.Equal(t, "cfg-one", resolved[0].Config.ID)
}

func TestModelConfigService_Resolve_RepositoryError(t *testing.T) {
	repo := &mocks.ModelRepositoryMock{
		GetConfigFunc: func(ctx context.Context, id string) (*models.ModelConfig, error) {
			return nil, errors.New("disk I/O error")
		},
	}
	settings := services.NewAppSettingsService(&mocks.AppMetadataRepositoryMock{
		Values: map[string]string{"selected_model_config_chat": "cfg"},
	})
	service := services.NewModelConfigService(repo, settings)

	_, err := service.Resolve(context.Background(), services.ScopeChat)
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrNoEligibleModel, "storage failures are not masked by the fallback")
}

func TestModelConfigService_SyncCatalog(t *testing.T) {
	var (
		upserted []string
		seeded   []models.ModelConfig
	)
	repo := &mocks.ModelRepositoryMock{
		UpsertCatalogModelFunc: func(ctx context.Context, model *models.Model) error {
			upserted = append(upserted, model.ID)
			assert.True(t, model.IsEnabled)
			assert.NotEmpty(t, model.SupportedAttachmentTypes)
			return nil
		},
		InsertConfigIfMissingFunc: func(ctx context.Context, config *models.ModelConfig) error {
			seeded = append(seeded, *config)
			return nil
		},
	}
	service := services.NewModelConfigService(repo, services.NewAppSettingsService(&mocks.AppMetadataRepositoryMock{}))

	require.NoError(t, service.SyncCatalog(context.Background()))
	assert.Contains(t, upserted, "anthropic::claude-sonnet-4-latest")
	assert.Contains(t, upserted, "openai::gpt-4o")
	require.Len(t, seeded, len(upserted))
	for _, cfg := range seeded {
		assert.Equal(t, cfg.ModelID, cfg.ID, "system configs share the model id")
		assert.Equal(t, models.AuthorSystem, cfg.Author)
	}
}

func TestModelConfigService_SetSelection_StoresCompareAsList(t *testing.T) {
	repo := fakeCatalog(nil, []models.ModelConfig{{ID: "x"}, {ID: "y"}})
	metadata := &mocks.AppMetadataRepositoryMock{}
	service := services.NewModelConfigService(repo, services.NewAppSettingsService(metadata))

	require.NoError(t, service.SetSelection(context.Background(), services.ScopeCompare, "x", "y"))
	assert.Equal(t, `["x","y"]`, metadata.Values["selected_model_configs_compare"])

	require.NoError(t, service.SetSelection(context.Background(), services.ScopeChat, "y"))
	assert.Equal(t, "y", metadata.Values["selected_model_config_chat"])
}
