package services

import (
	"context"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/pkg/errors"

	"chatvault/internal/domain"
	"chatvault/internal/models"
	"chatvault/internal/repositories"
)

const (
	secretRefPrefix    = "keyring:"
	enabledParameterID = "enabled"
)

// Toolsets that are on until the user turns them off.
var defaultEnabledToolsets = map[string]bool{"web": true}

type CustomToolsetInput struct {
	Name    string            `json:"name"`
	Command string            `json:"command"`
	Args    string            `json:"args"`
	Env     map[string]string `json:"env"`
}

func (in CustomToolsetInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Name, validation.Required, validation.Length(1, 100)),
		validation.Field(&in.Command, validation.Required),
	)
}

type ToolsetService interface {
	GetPermission(ctx context.Context, toolset, tool string) (models.PermissionType, error)
	SetPermission(ctx context.Context, toolset, tool string, permission models.PermissionType) error
	RecordResponse(ctx context.Context, toolset, tool string, allowed bool) error
	ListPermissions(ctx context.Context, toolset string) ([]models.ToolPermission, error)
	ResetPermissions(ctx context.Context, toolset string) (int64, error)

	IsEnabled(ctx context.Context, toolset string) (bool, error)
	SetEnabled(ctx context.Context, toolset string, enabled bool) error
	// GetParameter resolves keyring references to the secret value.
	GetParameter(ctx context.Context, toolset, parameterID string) (string, bool, error)
	SetParameter(ctx context.Context, toolset, parameterID, value string) error
	SetSecretParameter(ctx context.Context, toolset, parameterID string, secret []byte) error
	ListParameters(ctx context.Context, toolset string) ([]models.ToolsetConfig, error)
	DeleteParameter(ctx context.Context, toolset, parameterID string) error

	UpsertCustomToolset(ctx context.Context, in CustomToolsetInput) (*models.CustomToolset, error)
	GetCustomToolset(ctx context.Context, name string) (*models.CustomToolset, error)
	ListCustomToolsets(ctx context.Context) ([]models.CustomToolset, error)
	DeleteCustomToolset(ctx context.Context, name string) error
}

type toolsetService struct {
	repo    repositories.ToolsetRepository
	secrets SecretStore
	now     func() time.Time
}

func NewToolsetService(repo repositories.ToolsetRepository, secrets SecretStore) ToolsetService {
	return &toolsetService{
		repo:    repo,
		secrets: secrets,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func requireNames(names ...string) error {
	for _, n := range names {
		if strings.TrimSpace(n) == "" {
			return &domain.ValidationError{Message: "toolset and tool names are required"}
		}
	}
	return nil
}

func (s *toolsetService) GetPermission(ctx context.Context, toolset, tool string) (models.PermissionType, error) {
	perm, err := s.repo.GetPermission(ctx, toolset, tool)
	if err != nil {
		return "", err
	}
	if perm == nil {
		return models.PermissionAsk, nil
	}
	return perm.PermissionType, nil
}

func (s *toolsetService) SetPermission(ctx context.Context, toolset, tool string, permission models.PermissionType) error {
	if err := requireNames(toolset, tool); err != nil {
		return err
	}
	if err := validation.Validate(permission, validation.Required, validation.In(
		models.PermissionAlwaysAllow, models.PermissionAlwaysDeny, models.PermissionAsk)); err != nil {
		return domain.Validation(err)
	}
	existing, err := s.repo.GetPermission(ctx, toolset, tool)
	if err != nil {
		return err
	}
	now := s.now()
	perm := &models.ToolPermission{
		ToolsetName:    toolset,
		ToolName:       tool,
		PermissionType: permission,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if existing != nil {
		perm.LastAskedAt = existing.LastAskedAt
		perm.LastResponse = existing.LastResponse
		perm.CreatedAt = existing.CreatedAt
	}
	return s.repo.UpsertPermission(ctx, perm)
}

func (s *toolsetService) RecordResponse(ctx context.Context, toolset, tool string, allowed bool) error {
	if err := requireNames(toolset, tool); err != nil {
		return err
	}
	existing, err := s.repo.GetPermission(ctx, toolset, tool)
	if err != nil {
		return err
	}
	now := s.now()
	response := models.ResponseDeny
	if allowed {
		response = models.ResponseAllow
	}
	perm := &models.ToolPermission{
		ToolsetName:    toolset,
		ToolName:       tool,
		PermissionType: models.PermissionAsk,
		LastAskedAt:    &now,
		LastResponse:   &response,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if existing != nil {
		perm.PermissionType = existing.PermissionType
		perm.CreatedAt = existing.CreatedAt
	}
	return s.repo.UpsertPermission(ctx, perm)
}

func (s *toolsetService) ListPermissions(ctx context.Context, toolset string) ([]models.ToolPermission, error) {
	return s.repo.ListPermissions(ctx, toolset)
}

func (s *toolsetService) ResetPermissions(ctx context.Context, toolset string) (int64, error) {
	if err := requireNames(toolset); err != nil {
		return 0, err
	}
	return s.repo.DeletePermissions(ctx, toolset)
}

func (s *toolsetService) IsEnabled(ctx context.Context, toolset string) (bool, error) {
	cfg, err := s.repo.GetParameter(ctx, toolset, enabledParameterID)
	if err != nil {
		return false, err
	}
	if cfg == nil {
		return defaultEnabledToolsets[toolset], nil
	}
	return cfg.ParameterValue == "true", nil
}

func (s *toolsetService) SetEnabled(ctx context.Context, toolset string, enabled bool) error {
	value := "false"
	if enabled {
		value = "true"
	}
	return s.SetParameter(ctx, toolset, enabledParameterID, value)
}

func secretKey(toolset, parameterID string) string {
	return "toolset:" + toolset + ":" + parameterID
}

func (s *toolsetService) GetParameter(ctx context.Context, toolset, parameterID string) (string, bool, error) {
	cfg, err := s.repo.GetParameter(ctx, toolset, parameterID)
	if err != nil || cfg == nil {
		return "", false, err
	}
	ref, isSecret := strings.CutPrefix(cfg.ParameterValue, secretRefPrefix)
	if !isSecret {
		return cfg.ParameterValue, true, nil
	}
	if s.secrets == nil {
		return "", false, errors.New("no secret store configured")
	}
	secret, err := s.secrets.Get(ref)
	if err != nil {
		return "", false, errors.Wrapf(err, "read secret for %s.%s", toolset, parameterID)
	}
	return string(secret), true, nil
}

func (s *toolsetService) SetParameter(ctx context.Context, toolset, parameterID, value string) error {
	if err := requireNames(toolset, parameterID); err != nil {
		return err
	}
	if strings.HasPrefix(value, secretRefPrefix) {
		return &domain.ValidationError{Message: "plain parameter values cannot start with " + secretRefPrefix}
	}
	return s.repo.SetParameter(ctx, &models.ToolsetConfig{
		ToolsetName:    toolset,
		ParameterID:    parameterID,
		ParameterValue: value,
	})
}

// SetSecretParameter keeps the value in the keyring; SQLite only holds a
// reference to it.
func (s *toolsetService) SetSecretParameter(ctx context.Context, toolset, parameterID string, secret []byte) error {
	if err := requireNames(toolset, parameterID); err != nil {
		return err
	}
	if s.secrets == nil {
		return errors.New("no secret store configured")
	}
	key := secretKey(toolset, parameterID)
	if err := s.secrets.Set(key, secret); err != nil {
		return errors.Wrapf(err, "store secret for %s.%s", toolset, parameterID)
	}
	return s.repo.SetParameter(ctx, &models.ToolsetConfig{
		ToolsetName:    toolset,
		ParameterID:    parameterID,
		ParameterValue: secretRefPrefix + key,
	})
}

func (s *toolsetService) ListParameters(ctx context.Context, toolset string) ([]models.ToolsetConfig, error) {
	return s.repo.ListParameters(ctx, toolset)
}

func (s *toolsetService) DeleteParameter(ctx context.Context, toolset, parameterID string) error {
	cfg, err := s.repo.GetParameter(ctx, toolset, parameterID)
	if err != nil {
		return err
	}
	if cfg == nil {
		return domain.NotFound("toolset parameter", toolset+"."+parameterID)
	}
	if ref, ok := strings.CutPrefix(cfg.ParameterValue, secretRefPrefix); ok && s.secrets != nil {
		if err := s.secrets.Delete(ref); err != nil {
			return errors.Wrapf(err, "delete secret for %s.%s", toolset, parameterID)
		}
	}
	return s.repo.DeleteParameter(ctx, toolset, parameterID)
}

func (s *toolsetService) UpsertCustomToolset(ctx context.Context, in CustomToolsetInput) (*models.CustomToolset, error) {
	if err := in.Validate(); err != nil {
		return nil, domain.Validation(err)
	}
	env := in.Env
	if env == nil {
		env = map[string]string{}
	}
	toolset := &models.CustomToolset{
		Name:      strings.TrimSpace(in.Name),
		Command:   in.Command,
		Args:      in.Args,
		Env:       env,
		UpdatedAt: s.now(),
	}
	if err := s.repo.UpsertCustomToolset(ctx, toolset); err != nil {
		return nil, err
	}
	return toolset, nil
}

func (s *toolsetService) GetCustomToolset(ctx context.Context, name string) (*models.CustomToolset, error) {
	return s.repo.GetCustomToolset(ctx, name)
}

func (s *toolsetService) ListCustomToolsets(ctx context.Context) ([]models.CustomToolset, error) {
	return s.repo.ListCustomToolsets(ctx)
}

func (s *toolsetService) DeleteCustomToolset(ctx context.Context, name string) error {
	return s.repo.DeleteCustomToolset(ctx, name)
}
