package services

import (
	"context"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"chatvault/internal/domain"
	"chatvault/internal/logging"
	"chatvault/internal/models"
	"chatvault/internal/repositories"
)

type AttachmentInput struct {
	Type         models.AttachmentType `json:"type"`
	Path         string                `json:"path"`
	OriginalName *string               `json:"originalName,omitempty"`
	IsLoading    bool                  `json:"isLoading"`
	Ephemeral    bool                  `json:"ephemeral"`
}

func (in AttachmentInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Type, validation.Required, validation.In(
			models.AttachmentTypeText, models.AttachmentTypeImage, models.AttachmentTypePDF, models.AttachmentTypeWebpage)),
		validation.Field(&in.Path, validation.Required),
	)
}

// AttachmentService registers blob references and associates them with
// messages, projects and drafts. It never touches the blobs themselves.
type AttachmentService interface {
	// Register returns the existing id when the path is already known.
	Register(ctx context.Context, in AttachmentInput) (id string, created bool, err error)
	Get(ctx context.Context, id string) (*models.Attachment, error)
	MarkLoaded(ctx context.Context, id string) error

	AttachToMessage(ctx context.Context, messageID, attachmentID string) error
	AttachToProject(ctx context.Context, projectID, attachmentID string) error
	AttachToDraft(ctx context.Context, chatID, attachmentID string) error
	DetachFromMessage(ctx context.Context, messageID, attachmentID string) error
	DetachFromProject(ctx context.Context, projectID, attachmentID string) error
	DetachFromDraft(ctx context.Context, chatID, attachmentID string) error
	ListForMessage(ctx context.Context, messageID string) ([]models.Attachment, error)
	ListForProject(ctx context.Context, projectID string) ([]models.Attachment, error)
	ListForDraft(ctx context.Context, chatID string) ([]models.Attachment, error)

	// CollectOrphans deletes attachments with no association and returns them
	// so the caller can remove the blobs.
	CollectOrphans(ctx context.Context) ([]models.Attachment, error)
}

type attachmentService struct {
	db     *gorm.DB
	logger zerolog.Logger
}

func NewAttachmentService(db *gorm.DB) AttachmentService {
	return &attachmentService{db: db, logger: logging.For("attachments")}
}

func (s *attachmentService) Register(ctx context.Context, in AttachmentInput) (string, bool, error) {
	in.Path = strings.TrimSpace(in.Path)
	if err := in.Validate(); err != nil {
		return "", false, domain.Validation(err)
	}
	var (
		id      string
		created bool
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := repositories.NewAttachmentRepository(tx)
		existing, err := repo.FindByPath(ctx, in.Path)
		if err != nil {
			return err
		}
		if existing != nil {
			id = existing.ID
			return nil
		}
		att := &models.Attachment{
			ID:           uuid.NewString(),
			Type:         in.Type,
			Path:         in.Path,
			IsLoading:    in.IsLoading,
			Ephemeral:    in.Ephemeral,
			OriginalName: in.OriginalName,
			CreatedAt:    time.Now().UTC(),
		}
		if err := repo.Create(ctx, att); err != nil {
			return err
		}
		id, created = att.ID, true
		return nil
	})
	if err != nil {
		return "", false, err
	}
	return id, created, nil
}

func (s *attachmentService) Get(ctx context.Context, id string) (*models.Attachment, error) {
	return repositories.NewAttachmentRepository(s.db).Get(ctx, id)
}

func (s *attachmentService) MarkLoaded(ctx context.Context, id string) error {
	return repositories.NewAttachmentRepository(s.db).SetLoading(ctx, id, false)
}

func (s *attachmentService) attach(ctx context.Context, owner repositories.Owner, ownerID, attachmentID string, ownerExists func(tx *gorm.DB) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ownerExists(tx); err != nil {
			return err
		}
		repo := repositories.NewAttachmentRepository(tx)
		if _, err := repo.Get(ctx, attachmentID); err != nil {
			return err
		}
		return repo.Link(ctx, owner, ownerID, attachmentID)
	})
}

func (s *attachmentService) AttachToMessage(ctx context.Context, messageID, attachmentID string) error {
	return s.attach(ctx, repositories.MessageOwner, messageID, attachmentID, func(tx *gorm.DB) error {
		_, err := repositories.NewMessageRepository(tx).Get(ctx, messageID)
		return err
	})
}

func (s *attachmentService) AttachToProject(ctx context.Context, projectID, attachmentID string) error {
	return s.attach(ctx, repositories.ProjectOwner, projectID, attachmentID, func(tx *gorm.DB) error {
		_, err := repositories.NewProjectRepository(tx).Get(ctx, projectID)
		return err
	})
}

func (s *attachmentService) AttachToDraft(ctx context.Context, chatID, attachmentID string) error {
	return s.attach(ctx, repositories.DraftOwner, chatID, attachmentID, func(tx *gorm.DB) error {
		_, err := repositories.NewChatRepository(tx).Get(ctx, chatID)
		return err
	})
}

func (s *attachmentService) DetachFromMessage(ctx context.Context, messageID, attachmentID string) error {
	return repositories.NewAttachmentRepository(s.db).Unlink(ctx, repositories.MessageOwner, messageID, attachmentID)
}

func (s *attachmentService) DetachFromProject(ctx context.Context, projectID, attachmentID string) error {
	return repositories.NewAttachmentRepository(s.db).Unlink(ctx, repositories.ProjectOwner, projectID, attachmentID)
}

func (s *attachmentService) DetachFromDraft(ctx context.Context, chatID, attachmentID string) error {
	return repositories.NewAttachmentRepository(s.db).Unlink(ctx, repositories.DraftOwner, chatID, attachmentID)
}

func (s *attachmentService) ListForMessage(ctx context.Context, messageID string) ([]models.Attachment, error) {
	return repositories.NewAttachmentRepository(s.db).ListFor(ctx, repositories.MessageOwner, messageID)
}

func (s *attachmentService) ListForProject(ctx context.Context, projectID string) ([]models.Attachment, error) {
	return repositories.NewAttachmentRepository(s.db).ListFor(ctx, repositories.ProjectOwner, projectID)
}

func (s *attachmentService) ListForDraft(ctx context.Context, chatID string) ([]models.Attachment, error) {
	return repositories.NewAttachmentRepository(s.db).ListFor(ctx, repositories.DraftOwner, chatID)
}

func (s *attachmentService) CollectOrphans(ctx context.Context) ([]models.Attachment, error) {
	var orphans []models.Attachment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := repositories.NewAttachmentRepository(tx)
		var err error
		orphans, err = repo.ListOrphans(ctx)
		if err != nil || len(orphans) == 0 {
			return err
		}
		ids := make([]string, 0, len(orphans))
		for _, a := range orphans {
			ids = append(ids, a.ID)
		}
		return repo.Delete(ctx, ids...)
	})
	if err != nil {
		return nil, err
	}
	if len(orphans) > 0 {
		s.logger.Info().Int("count", len(orphans)).Msg("collected orphaned attachments")
	}
	return orphans, nil
}
