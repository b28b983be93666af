package services

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"chatvault/internal/assets"
	"chatvault/internal/domain"
	"chatvault/internal/logging"
	"chatvault/internal/models"
	"chatvault/internal/repositories"
)

// Scope names a place in the app that has its own model selection.
type Scope string

const (
	ScopeChat      Scope = "chat"
	ScopeCompare   Scope = "compare"
	ScopeQuickChat Scope = "quick_chat"
)

func (s Scope) settingKey() (SettingKey, error) {
	switch s {
	case ScopeChat:
		return SettingChatModelConfig, nil
	case ScopeCompare:
		return SettingCompareModelConfigs, nil
	case ScopeQuickChat:
		return SettingQuickChatModelConfig, nil
	default:
		return "", &domain.ValidationError{Message: "unknown scope " + string(s)}
	}
}

// ResolvedConfig pairs a config with its model.
type ResolvedConfig struct {
	Config models.ModelConfig `json:"config"`
	Model  models.Model       `json:"model"`
}

type ModelConfigInput struct {
	ModelID         string     `json:"modelId"`
	DisplayName     string     `json:"displayName"`
	SystemPrompt    string     `json:"systemPrompt"`
	ReasoningEffort *string    `json:"reasoningEffort,omitempty"`
	BudgetTokens    *int       `json:"budgetTokens,omitempty"`
	NewUntil        *time.Time `json:"newUntil,omitempty"`
}

func (in ModelConfigInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.ModelID, validation.Required),
		validation.Field(&in.DisplayName, validation.Required, validation.Length(1, 200)),
		validation.Field(&in.ReasoningEffort, validation.NilOrNotEmpty, validation.In("low", "medium", "high")),
		validation.Field(&in.BudgetTokens, validation.Min(0)),
	)
}

type ModelConfigService interface {
	// SyncCatalog upserts the embedded built-in catalog.
	SyncCatalog(ctx context.Context) error
	ListModels(ctx context.Context) ([]models.Model, error)
	SetModelEnabled(ctx context.Context, modelID string, enabled bool) (*models.Model, error)
	SetProviderEnabled(ctx context.Context, provider string, enabled bool) ([]models.Model, error)

	ListConfigs(ctx context.Context) ([]models.ModelConfig, error)
	CreateUserConfig(ctx context.Context, in ModelConfigInput) (*models.ModelConfig, error)
	UpdateUserConfig(ctx context.Context, id string, in ModelConfigInput) (*models.ModelConfig, error)
	DeleteUserConfig(ctx context.Context, id string) error
	SetConfigPinned(ctx context.Context, id string, pinned bool) error

	SetSelection(ctx context.Context, scope Scope, configIDs ...string) error
	// ResolveSelection returns the stored selection, failing with
	// ErrNoEligibleModel if any selected model is unusable.
	ResolveSelection(ctx context.Context, scope Scope) ([]ResolvedConfig, error)
	// Resolve is ResolveSelection with a fallback to default configs.
	Resolve(ctx context.Context, scope Scope) ([]ResolvedConfig, error)
}

type modelConfigService struct {
	repo     repositories.ModelRepository
	settings AppSettingsService
	logger   zerolog.Logger
	now      func() time.Time
}

type rawModelFile struct {
	Providers []rawProvider `json:"providers"`
}

type rawProvider struct {
	ID          string     `json:"id"`
	DisplayName string     `json:"displayName"`
	Models      []rawModel `json:"models"`
}

type rawModel struct {
	DisplayName     string   `json:"displayName"`
	APIName         string   `json:"apiName"`
	ReasoningEffort string   `json:"reasoningEffort,omitempty"`
	AttachmentTypes []string `json:"attachmentTypes,omitempty"`
	Default         bool     `json:"default,omitempty"`
	Internal        bool     `json:"internal,omitempty"`
	Deprecated      bool     `json:"deprecated,omitempty"`
}

func NewModelConfigService(repo repositories.ModelRepository, settings AppSettingsService) ModelConfigService {
	return &modelConfigService{
		repo:     repo,
		settings: settings,
		logger:   logging.For("models"),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func computeModelID(providerID string, mdl rawModel) string {
	return strings.TrimSpace(providerID) + "::" + strings.TrimSpace(mdl.APIName)
}

func (s *modelConfigService) SyncCatalog(ctx context.Context) error {
	var parsed rawModelFile
	if err := json.Unmarshal(assets.ModelsData, &parsed); err != nil {
		return errors.Wrap(err, "parse models asset")
	}

	count := 0
	for _, provider := range parsed.Providers {
		providerID := strings.TrimSpace(provider.ID)
		if providerID == "" {
			continue
		}
		for _, mdl := range provider.Models {
			if strings.TrimSpace(mdl.APIName) == "" {
				continue
			}
			id := computeModelID(providerID, mdl)
			types := make([]models.AttachmentType, 0, len(mdl.AttachmentTypes))
			for _, t := range mdl.AttachmentTypes {
				types = append(types, models.AttachmentType(t))
			}
			if len(types) == 0 {
				types = append(types, models.AttachmentTypeText)
			}
			if err := s.repo.UpsertCatalogModel(ctx, &models.Model{
				ID:                       id,
				DisplayName:              strings.TrimSpace(mdl.DisplayName),
				IsEnabled:                true,
				IsDeprecated:             mdl.Deprecated,
				IsInternal:               mdl.Internal,
				SupportedAttachmentTypes: types,
			}); err != nil {
				return errors.Wrapf(err, "sync model %s", id)
			}

			var effort *string
			if re := strings.TrimSpace(mdl.ReasoningEffort); re != "" {
				effort = &re
			}
			// System configs share the model id.
			if err := s.repo.InsertConfigIfMissing(ctx, &models.ModelConfig{
				ID:              id,
				ModelID:         id,
				DisplayName:     strings.TrimSpace(mdl.DisplayName),
				Author:          models.AuthorSystem,
				IsDefault:       mdl.Default,
				ReasoningEffort: effort,
				CreatedAt:       s.now(),
			}); err != nil {
				return errors.Wrapf(err, "seed config %s", id)
			}
			count++
		}
	}
	s.logger.Debug().Int("models", count).Msg("model catalog synced")
	return nil
}

func (s *modelConfigService) ListModels(ctx context.Context) ([]models.Model, error) {
	return s.repo.ListModels(ctx)
}

func (s *modelConfigService) SetModelEnabled(ctx context.Context, modelID string, enabled bool) (*models.Model, error) {
	modelID = strings.TrimSpace(modelID)
	if modelID == "" {
		return nil, &domain.ValidationError{Message: "model id is required"}
	}
	if err := s.repo.SetModelEnabled(ctx, modelID, enabled); err != nil {
		return nil, err
	}
	return s.repo.GetModel(ctx, modelID)
}

func (s *modelConfigService) SetProviderEnabled(ctx context.Context, provider string, enabled bool) ([]models.Model, error) {
	provider = strings.TrimSpace(provider)
	if provider == "" {
		return nil, &domain.ValidationError{Message: "provider is required"}
	}
	if _, err := s.repo.SetProviderEnabled(ctx, provider, enabled); err != nil {
		return nil, err
	}
	all, err := s.repo.ListModels(ctx)
	if err != nil {
		return nil, err
	}
	updated := make([]models.Model, 0)
	for _, m := range all {
		if m.Provider() == provider {
			updated = append(updated, m)
		}
	}
	return updated, nil
}

func (s *modelConfigService) ListConfigs(ctx context.Context) ([]models.ModelConfig, error) {
	return s.repo.ListConfigs(ctx)
}

func (s *modelConfigService) CreateUserConfig(ctx context.Context, in ModelConfigInput) (*models.ModelConfig, error) {
	if err := in.Validate(); err != nil {
		return nil, domain.Validation(err)
	}
	if _, err := s.repo.GetModel(ctx, in.ModelID); err != nil {
		return nil, err
	}
	cfg := &models.ModelConfig{
		ID:              uuid.NewString(),
		ModelID:         in.ModelID,
		DisplayName:     in.DisplayName,
		Author:          models.AuthorUser,
		SystemPrompt:    in.SystemPrompt,
		ReasoningEffort: in.ReasoningEffort,
		BudgetTokens:    in.BudgetTokens,
		NewUntil:        in.NewUntil,
		CreatedAt:       s.now(),
	}
	if err := s.repo.CreateConfig(ctx, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (s *modelConfigService) userConfig(ctx context.Context, id string) (*models.ModelConfig, error) {
	cfg, err := s.repo.GetConfig(ctx, id)
	if err != nil {
		return nil, err
	}
	if cfg.Author != models.AuthorUser {
		return nil, domain.InvalidState("model config %q is built in and cannot be changed", id)
	}
	return cfg, nil
}

func (s *modelConfigService) UpdateUserConfig(ctx context.Context, id string, in ModelConfigInput) (*models.ModelConfig, error) {
	if err := in.Validate(); err != nil {
		return nil, domain.Validation(err)
	}
	if _, err := s.userConfig(ctx, id); err != nil {
		return nil, err
	}
	if _, err := s.repo.GetModel(ctx, in.ModelID); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateConfig(ctx, id, map[string]interface{}{
		"model_id":         in.ModelID,
		"display_name":     in.DisplayName,
		"system_prompt":    in.SystemPrompt,
		"reasoning_effort": in.ReasoningEffort,
		"budget_tokens":    in.BudgetTokens,
		"new_until":        in.NewUntil,
	}); err != nil {
		return nil, err
	}
	return s.repo.GetConfig(ctx, id)
}

func (s *modelConfigService) DeleteUserConfig(ctx context.Context, id string) error {
	if _, err := s.userConfig(ctx, id); err != nil {
		return err
	}
	return s.repo.DeleteConfig(ctx, id)
}

func (s *modelConfigService) SetConfigPinned(ctx context.Context, id string, pinned bool) error {
	return s.repo.UpdateConfig(ctx, id, map[string]interface{}{"is_pinned": pinned})
}

func (s *modelConfigService) SetSelection(ctx context.Context, scope Scope, configIDs ...string) error {
	key, err := scope.settingKey()
	if err != nil {
		return err
	}
	if len(configIDs) == 0 {
		return &domain.ValidationError{Message: "at least one model config is required"}
	}
	if scope != ScopeCompare && len(configIDs) > 1 {
		return &domain.ValidationError{Message: "scope " + string(scope) + " takes a single model config"}
	}
	for _, id := range configIDs {
		if _, err := s.repo.GetConfig(ctx, id); err != nil {
			return err
		}
	}
	if scope == ScopeCompare {
		return s.settings.SetStringList(ctx, key, configIDs)
	}
	return s.settings.Set(ctx, key, configIDs[0])
}

func (s *modelConfigService) selectedIDs(ctx context.Context, scope Scope) ([]string, error) {
	key, err := scope.settingKey()
	if err != nil {
		return nil, err
	}
	if scope == ScopeCompare {
		return s.settings.GetStringList(ctx, key)
	}
	id, err := s.settings.Get(ctx, key)
	if err != nil || id == "" {
		return nil, err
	}
	return []string{id}, nil
}

// eligible loads a config with its model; ok is false when either is missing
// or the model may not be used.
func (s *modelConfigService) eligible(ctx context.Context, cfg *models.ModelConfig) (ResolvedConfig, bool, error) {
	model, err := s.repo.GetModel(ctx, cfg.ModelID)
	if errors.Is(err, domain.ErrNotFound) {
		return ResolvedConfig{}, false, nil
	}
	if err != nil {
		return ResolvedConfig{}, false, err
	}
	if !model.Eligible() {
		return ResolvedConfig{}, false, nil
	}
	return ResolvedConfig{Config: *cfg, Model: *model}, true, nil
}

func (s *modelConfigService) ResolveSelection(ctx context.Context, scope Scope) ([]ResolvedConfig, error) {
	ids, err := s.selectedIDs(ctx, scope)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, errors.Wrapf(domain.ErrNoEligibleModel, "nothing selected for %s", scope)
	}
	out := make([]ResolvedConfig, 0, len(ids))
	for _, id := range ids {
		cfg, err := s.repo.GetConfig(ctx, id)
		if errors.Is(err, domain.ErrNotFound) {
			return nil, errors.Wrapf(domain.ErrNoEligibleModel, "config %s is missing", id)
		}
		if err != nil {
			return nil, err
		}
		resolved, ok, err := s.eligible(ctx, cfg)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, errors.Wrapf(domain.ErrNoEligibleModel, "model %s of config %s is unavailable", cfg.ModelID, id)
		}
		out = append(out, resolved)
	}
	return out, nil
}

func (s *modelConfigService) Resolve(ctx context.Context, scope Scope) ([]ResolvedConfig, error) {
	resolved, err := s.ResolveSelection(ctx, scope)
	if err == nil {
		return resolved, nil
	}
	if !errors.Is(err, domain.ErrNoEligibleModel) {
		return nil, err
	}

	var keep []ResolvedConfig
	if scope == ScopeCompare {
		// Keep whatever part of the selection still works.
		ids, err := s.selectedIDs(ctx, scope)
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			cfg, err := s.repo.GetConfig(ctx, id)
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			if err != nil {
				return nil, err
			}
			r, ok, err := s.eligible(ctx, cfg)
			if err != nil {
				return nil, err
			}
			if ok {
				keep = append(keep, r)
			}
		}
		if len(keep) > 0 {
			s.logger.Debug().Str("scope", string(scope)).Int("kept", len(keep)).Msg("dropped unavailable models from selection")
			return keep, nil
		}
	}

	defaults, err := s.repo.ListDefaultConfigs(ctx)
	if err != nil {
		return nil, err
	}
	for i := range defaults {
		r, ok, err := s.eligible(ctx, &defaults[i])
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		keep = append(keep, r)
		if scope != ScopeCompare {
			break
		}
	}
	if len(keep) == 0 {
		return nil, errors.Wrapf(domain.ErrNoEligibleModel, "no default model available for %s", scope)
	}
	s.logger.Debug().Str("scope", string(scope)).Str("config", keep[0].Config.ID).Msg("falling back to default model")
	return keep, nil
}
