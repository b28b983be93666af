package services

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"chatvault/internal/domain"
	"chatvault/internal/models"
	"chatvault/internal/repositories"
)

type ProjectInput struct {
	Name                 string  `json:"name"`
	ContextText          *string `json:"contextText,omitempty"`
	MagicProjectsEnabled *bool   `json:"magicProjectsEnabled,omitempty"`
	IsCollapsed          *bool   `json:"isCollapsed,omitempty"`
}

func (in ProjectInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Name, validation.Required, validation.Length(1, 200)),
	)
}

type ProjectService interface {
	Create(ctx context.Context, in ProjectInput) (*models.Project, error)
	Get(ctx context.Context, id string) (*models.Project, error)
	List(ctx context.Context) ([]models.Project, error)
	Update(ctx context.Context, id string, in ProjectInput) (*models.Project, error)
}

type projectService struct {
	db  *gorm.DB
	now func() time.Time
}

func NewProjectService(db *gorm.DB) ProjectService {
	return &projectService{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func (s *projectService) Create(ctx context.Context, in ProjectInput) (*models.Project, error) {
	if err := in.Validate(); err != nil {
		return nil, domain.Validation(err)
	}
	now := s.now()
	project := &models.Project{
		ID:                   uuid.NewString(),
		Name:                 in.Name,
		ContextText:          in.ContextText,
		MagicProjectsEnabled: true,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if in.MagicProjectsEnabled != nil {
		project.MagicProjectsEnabled = *in.MagicProjectsEnabled
	}
	if in.IsCollapsed != nil {
		project.IsCollapsed = *in.IsCollapsed
	}
	if err := repositories.NewProjectRepository(s.db).Create(ctx, project); err != nil {
		return nil, err
	}
	return project, nil
}

func (s *projectService) Get(ctx context.Context, id string) (*models.Project, error) {
	return repositories.NewProjectRepository(s.db).Get(ctx, id)
}

func (s *projectService) List(ctx context.Context) ([]models.Project, error) {
	return repositories.NewProjectRepository(s.db).List(ctx)
}

func (s *projectService) Update(ctx context.Context, id string, in ProjectInput) (*models.Project, error) {
	if err := in.Validate(); err != nil {
		return nil, domain.Validation(err)
	}
	fields := map[string]interface{}{
		"name":       in.Name,
		"updated_at": s.now(),
	}
	if in.ContextText != nil {
		fields["context_text"] = *in.ContextText
	}
	if in.MagicProjectsEnabled != nil {
		fields["magic_projects_enabled"] = *in.MagicProjectsEnabled
	}
	if in.IsCollapsed != nil {
		fields["is_collapsed"] = *in.IsCollapsed
	}
	var project *models.Project
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		projects := repositories.NewProjectRepository(tx)
		if err := projects.Update(ctx, id, fields); err != nil {
			return err
		}
		if in.ContextText != nil {
			if err := NewChatService(tx).MarkProjectContextStale(ctx, id); err != nil {
				return err
			}
		}
		var err error
		project, err = projects.Get(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return project, nil
}
