package services

import (
	"context"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"chatvault/internal/domain"
	"chatvault/internal/events"
	"chatvault/internal/models"
	"chatvault/internal/repositories"
)

type CreateChatInput struct {
	ProjectID string  `json:"projectId"`
	Title     *string `json:"title,omitempty"`
	QuickChat bool    `json:"quickChat"`
	IsNewChat bool    `json:"isNewChat"`
}

func (in CreateChatInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Title, validation.NilOrNotEmpty, validation.Length(1, 500)),
	)
}

type ChatService interface {
	Create(ctx context.Context, in CreateChatInput) (*models.Chat, error)
	Get(ctx context.Context, id string) (*models.Chat, error)
	List(ctx context.Context, projectID string) ([]models.Chat, error)
	Rename(ctx context.Context, id, title string) error
	SetPinned(ctx context.Context, id string, pinned bool) error
	Move(ctx context.Context, id, projectID string) error
	// GetOrCreateNewChat returns the project's empty "new chat", creating it
	// when there is none.
	GetOrCreateNewChat(ctx context.Context, projectID string, quickChat bool) (*models.Chat, error)

	SaveDraft(ctx context.Context, chatID, content string) error
	GetDraft(ctx context.Context, chatID string) (string, error)
	DeleteDraft(ctx context.Context, chatID string) error

	SetSummary(ctx context.Context, chatID, summary string) error
	SetProjectContextSummary(ctx context.Context, chatID, summary string) error
	MarkProjectContextStale(ctx context.Context, projectID string) error
}

type chatService struct {
	db  *gorm.DB
	now func() time.Time
}

func NewChatService(db *gorm.DB) ChatService {
	return &chatService{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func (s *chatService) Create(ctx context.Context, in CreateChatInput) (*models.Chat, error) {
	if err := in.Validate(); err != nil {
		return nil, domain.Validation(err)
	}
	if in.ProjectID == "" {
		in.ProjectID = models.DefaultProjectID
		if in.QuickChat {
			in.ProjectID = models.QuickChatProjectID
		}
	}
	now := s.now()
	chat := &models.Chat{
		ID:                           uuid.NewString(),
		Title:                        in.Title,
		ProjectID:                    in.ProjectID,
		QuickChat:                    in.QuickChat,
		IsNewChat:                    in.IsNewChat,
		ProjectContextSummaryIsStale: true,
		CreatedAt:                    now,
		UpdatedAt:                    now,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireProject(ctx, repositories.NewProjectRepository(tx), in.ProjectID); err != nil {
			return err
		}
		return repositories.NewChatRepository(tx).Create(ctx, chat)
	})
	if err != nil {
		return nil, err
	}
	events.Emit(ctx, events.New(events.ChatCreated).WithChat(chat.ID).WithProject(chat.ProjectID))
	return chat, nil
}

func requireProject(ctx context.Context, projects repositories.ProjectRepository, projectID string) error {
	ok, err := projects.Exists(ctx, projectID)
	if err != nil {
		return err
	}
	if !ok {
		return domain.Constraint("chat_project", "project %q does not exist", projectID)
	}
	return nil
}

func (s *chatService) Get(ctx context.Context, id string) (*models.Chat, error) {
	return repositories.NewChatRepository(s.db).Get(ctx, id)
}

func (s *chatService) List(ctx context.Context, projectID string) ([]models.Chat, error) {
	return repositories.NewChatRepository(s.db).List(ctx, projectID)
}

func (s *chatService) Rename(ctx context.Context, id, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return &domain.ValidationError{Message: "title is required"}
	}
	return repositories.NewChatRepository(s.db).Update(ctx, id, map[string]interface{}{"title": title})
}

func (s *chatService) SetPinned(ctx context.Context, id string, pinned bool) error {
	return repositories.NewChatRepository(s.db).Update(ctx, id, map[string]interface{}{"pinned": pinned})
}

func (s *chatService) Move(ctx context.Context, id, projectID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireProject(ctx, repositories.NewProjectRepository(tx), projectID); err != nil {
			return err
		}
		return repositories.NewChatRepository(tx).Update(ctx, id, map[string]interface{}{
			"project_id":                       projectID,
			"project_context_summary_is_stale": true,
		})
	})
}

func (s *chatService) GetOrCreateNewChat(ctx context.Context, projectID string, quickChat bool) (*models.Chat, error) {
	var (
		chat    *models.Chat
		created bool
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireProject(ctx, repositories.NewProjectRepository(tx), projectID); err != nil {
			return err
		}
		chats := repositories.NewChatRepository(tx)
		existing, err := chats.FindNewChat(ctx, projectID, quickChat)
		if err != nil {
			return err
		}
		if existing != nil {
			chat = existing
			return nil
		}
		now := s.now()
		chat = &models.Chat{
			ID:                           uuid.NewString(),
			ProjectID:                    projectID,
			QuickChat:                    quickChat,
			IsNewChat:                    true,
			ProjectContextSummaryIsStale: true,
			CreatedAt:                    now,
			UpdatedAt:                    now,
		}
		created = true
		return chats.Create(ctx, chat)
	})
	if err != nil {
		return nil, err
	}
	if created {
		events.Emit(ctx, events.New(events.ChatCreated).WithChat(chat.ID).WithProject(projectID))
	}
	return chat, nil
}

func (s *chatService) SaveDraft(ctx context.Context, chatID, content string) error {
	chats := repositories.NewChatRepository(s.db)
	if _, err := chats.Get(ctx, chatID); err != nil {
		return err
	}
	return chats.SaveDraft(ctx, chatID, content)
}

func (s *chatService) GetDraft(ctx context.Context, chatID string) (string, error) {
	draft, err := repositories.NewChatRepository(s.db).GetDraft(ctx, chatID)
	if err != nil || draft == nil {
		return "", err
	}
	return draft.Content, nil
}

func (s *chatService) DeleteDraft(ctx context.Context, chatID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := repositories.NewAttachmentRepository(tx).UnlinkAll(ctx, repositories.DraftOwner, chatID); err != nil {
			return err
		}
		return repositories.NewChatRepository(tx).DeleteDraft(ctx, chatID)
	})
}

func (s *chatService) SetSummary(ctx context.Context, chatID, summary string) error {
	return repositories.NewChatRepository(s.db).Update(ctx, chatID, map[string]interface{}{"summary": summary})
}

func (s *chatService) SetProjectContextSummary(ctx context.Context, chatID, summary string) error {
	return repositories.NewChatRepository(s.db).Update(ctx, chatID, map[string]interface{}{
		"project_context_summary":          summary,
		"project_context_summary_is_stale": false,
	})
}

// MarkProjectContextStale flags every chat summary in the project for
// regeneration.
func (s *chatService) MarkProjectContextStale(ctx context.Context, projectID string) error {
	return s.db.WithContext(ctx).Model(&models.Chat{}).
		Where("project_id = ?", projectID).
		UpdateColumn("project_context_summary_is_stale", true).Error
}
