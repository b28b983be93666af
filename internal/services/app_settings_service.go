package services

import (
	"context"
	"encoding/json"
	"sort"
	"strconv"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/pkg/errors"

	"chatvault/internal/domain"
	"chatvault/internal/repositories"
)

type SettingKey string

const (
	SettingChatModelConfig       SettingKey = "selected_model_config_chat"
	SettingCompareModelConfigs   SettingKey = "selected_model_configs_compare"
	SettingQuickChatModelConfig  SettingKey = "quick_chat_model_config_id"
	SettingHasDismissedOnboard   SettingKey = "has_dismissed_onboarding"
	SettingOnboardingStep        SettingKey = "onboarding_step"
	SettingCurrentBlockType      SettingKey = "current_block_type"
	SettingReviewsEnabled        SettingKey = "reviews_enabled"
	SettingVisionModeEnabled     SettingKey = "vision_mode_enabled"
	SettingYoloMode              SettingKey = "yolo_mode"
	SettingShowOpenRouter        SettingKey = "show_openrouter"
	SettingShowOpenAICompatible  SettingKey = "show_openai_compatible"
	SettingCustomBaseURL         SettingKey = "custom_base_url"
	SettingInternalTaskModel     SettingKey = "internal_task_model_config_id"
	SettingDismissedAlertVersion SettingKey = "dismissed_alert_version"
)

type settingKind int

const (
	kindString settingKind = iota
	kindBool
	kindInt
	kindStringList
)

type settingDef struct {
	kind     settingKind
	fallback string
	rules    []validation.Rule
}

var settingDefs = map[SettingKey]settingDef{
	SettingChatModelConfig:       {kind: kindString, fallback: ""},
	SettingCompareModelConfigs:   {kind: kindStringList, fallback: "[]"},
	SettingQuickChatModelConfig:  {kind: kindString, fallback: ""},
	SettingHasDismissedOnboard:   {kind: kindBool, fallback: "false"},
	SettingOnboardingStep:        {kind: kindInt, fallback: "0"},
	SettingCurrentBlockType:      {kind: kindString, fallback: "chat", rules: []validation.Rule{validation.In("chat", "compare", "tools")}},
	SettingReviewsEnabled:        {kind: kindBool, fallback: "false"},
	SettingVisionModeEnabled:     {kind: kindBool, fallback: "false"},
	SettingYoloMode:              {kind: kindBool, fallback: "false"},
	SettingShowOpenRouter:        {kind: kindBool, fallback: "false"},
	SettingShowOpenAICompatible:  {kind: kindBool, fallback: "false"},
	SettingCustomBaseURL:         {kind: kindString, fallback: ""},
	SettingInternalTaskModel:     {kind: kindString, fallback: ""},
	SettingDismissedAlertVersion: {kind: kindString, fallback: ""},
}

// SettingKeys lists every known key in name order.
func SettingKeys() []SettingKey {
	keys := make([]SettingKey, 0, len(settingDefs))
	for k := range settingDefs {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// AppSettingsService is typed access to app_metadata. Unknown keys are
// rejected; absent keys read as their default.
type AppSettingsService interface {
	Get(ctx context.Context, key SettingKey) (string, error)
	Set(ctx context.Context, key SettingKey, value string) error
	GetBool(ctx context.Context, key SettingKey) (bool, error)
	SetBool(ctx context.Context, key SettingKey, value bool) error
	GetStringList(ctx context.Context, key SettingKey) ([]string, error)
	SetStringList(ctx context.Context, key SettingKey, values []string) error
	All(ctx context.Context) (map[SettingKey]string, error)
	Reset(ctx context.Context, key SettingKey) error
}

type appSettingsService struct {
	repo repositories.AppMetadataRepository
}

func NewAppSettingsService(repo repositories.AppMetadataRepository) AppSettingsService {
	return &appSettingsService{repo: repo}
}

func lookupSetting(key SettingKey) (settingDef, error) {
	def, ok := settingDefs[key]
	if !ok {
		return settingDef{}, &domain.ValidationError{Message: "unknown setting " + strconv.Quote(string(key))}
	}
	return def, nil
}

func (s *appSettingsService) Get(ctx context.Context, key SettingKey) (string, error) {
	def, err := lookupSetting(key)
	if err != nil {
		return "", err
	}
	value, ok, err := s.repo.Get(ctx, string(key))
	if err != nil {
		return "", errors.Wrapf(err, "read setting %s", key)
	}
	if !ok {
		return def.fallback, nil
	}
	return value, nil
}

func (s *appSettingsService) Set(ctx context.Context, key SettingKey, value string) error {
	def, err := lookupSetting(key)
	if err != nil {
		return err
	}
	if err := validateSetting(def, value); err != nil {
		return domain.Validation(errors.Wrapf(err, "setting %s", key))
	}
	return errors.Wrapf(s.repo.Set(ctx, string(key), value), "write setting %s", key)
}

func validateSetting(def settingDef, value string) error {
	switch def.kind {
	case kindBool:
		if _, err := strconv.ParseBool(value); err != nil {
			return errors.New("must be true or false")
		}
	case kindInt:
		if _, err := strconv.Atoi(value); err != nil {
			return errors.New("must be an integer")
		}
	case kindStringList:
		var list []string
		if err := json.Unmarshal([]byte(value), &list); err != nil {
			return errors.New("must be a JSON array of strings")
		}
	}
	return validation.Validate(value, def.rules...)
}

func (s *appSettingsService) GetBool(ctx context.Context, key SettingKey) (bool, error) {
	value, err := s.Get(ctx, key)
	if err != nil {
		return false, err
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		// A malformed stored value reads as the default.
		b, _ = strconv.ParseBool(settingDefs[key].fallback)
	}
	return b, nil
}

func (s *appSettingsService) SetBool(ctx context.Context, key SettingKey, value bool) error {
	return s.Set(ctx, key, strconv.FormatBool(value))
}

// GetStringList also accepts a bare scalar, which reads as a one-element list.
func (s *appSettingsService) GetStringList(ctx context.Context, key SettingKey) ([]string, error) {
	value, err := s.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if value == "" {
		return nil, nil
	}
	var list []string
	if err := json.Unmarshal([]byte(value), &list); err != nil {
		return []string{value}, nil
	}
	return list, nil
}

func (s *appSettingsService) SetStringList(ctx context.Context, key SettingKey, values []string) error {
	if values == nil {
		values = []string{}
	}
	data, err := json.Marshal(values)
	if err != nil {
		return err
	}
	return s.Set(ctx, key, string(data))
}

func (s *appSettingsService) All(ctx context.Context) (map[SettingKey]string, error) {
	out := make(map[SettingKey]string, len(settingDefs))
	for k, def := range settingDefs {
		out[k] = def.fallback
	}
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list settings")
	}
	for _, row := range rows {
		if _, known := settingDefs[SettingKey(row.Key)]; known {
			out[SettingKey(row.Key)] = row.Value
		}
	}
	return out, nil
}

func (s *appSettingsService) Reset(ctx context.Context, key SettingKey) error {
	if _, err := lookupSetting(key); err != nil {
		return err
	}
	return errors.Wrapf(s.repo.Delete(ctx, string(key)), "reset setting %s", key)
}
