package services

import (
	"context"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"

	"chatvault/internal/domain"
	"chatvault/internal/models"
	"chatvault/internal/repositories"
)

const archiveFormatVersion = 1

// ChatArchive is the portable YAML form of one or more chats.
type ChatArchive struct {
	Version int            `yaml:"version"`
	Chats   []ArchivedChat `yaml:"chats"`
}

type ArchivedChat struct {
	Title     string        `yaml:"title,omitempty"`
	Summary   string        `yaml:"summary,omitempty"`
	Pinned    bool          `yaml:"pinned,omitempty"`
	CreatedAt time.Time     `yaml:"created_at"`
	UpdatedAt time.Time     `yaml:"updated_at"`
	Sets      []ArchivedSet `yaml:"sets"`
}

type ArchivedSet struct {
	Type      models.SetType    `yaml:"type"`
	Level     int               `yaml:"level"`
	BlockType *models.BlockType `yaml:"block_type,omitempty"`
	Messages  []ArchivedMessage `yaml:"messages"`
}

type ArchivedMessage struct {
	Model        string         `yaml:"model"`
	Text         string         `yaml:"text"`
	Selected     bool           `yaml:"selected"`
	State        string         `yaml:"state"`
	ErrorMessage *string        `yaml:"error,omitempty"`
	CreatedAt    time.Time      `yaml:"created_at"`
	Parts        []ArchivedPart `yaml:"parts,omitempty"`
}

type ArchivedPart struct {
	Level       int               `yaml:"level"`
	Content     string            `yaml:"content"`
	ToolCalls   []schema.ToolCall `yaml:"tool_calls,omitempty"`
	ToolResults []*schema.Message `yaml:"tool_results,omitempty"`
}

type ExportService interface {
	ExportChat(ctx context.Context, chatID string) ([]byte, error)
	// ImportChats recreates archived chats with fresh ids in a new project.
	ImportChats(ctx context.Context, data []byte, projectName string) (string, []string, error)
}

type exportService struct {
	db *gorm.DB
}

func NewExportService(db *gorm.DB) ExportService {
	return &exportService{db: db}
}

func (s *exportService) ExportChat(ctx context.Context, chatID string) ([]byte, error) {
	tree, err := NewConversationService(s.db).GetChatTree(ctx, chatID)
	if err != nil {
		return nil, err
	}
	parts := repositories.NewMessagePartRepository(s.db)

	chat := ArchivedChat{
		Pinned:    tree.Chat.Pinned,
		CreatedAt: tree.Chat.CreatedAt,
		UpdatedAt: tree.Chat.UpdatedAt,
	}
	if tree.Chat.Title != nil {
		chat.Title = *tree.Chat.Title
	}
	if tree.Chat.Summary != nil {
		chat.Summary = *tree.Chat.Summary
	}
	for _, sw := range tree.Sets {
		set := ArchivedSet{Type: sw.Set.Type, Level: sw.Set.Level, BlockType: sw.Set.SelectedBlockType}
		for _, m := range sw.Messages {
			am := ArchivedMessage{
				Model:        m.Model,
				Text:         m.Text,
				Selected:     m.IsSelected(),
				State:        string(m.State),
				ErrorMessage: m.ErrorMessage,
				CreatedAt:    m.CreatedAt,
			}
			msgParts, err := parts.ListByMessage(ctx, m.ID)
			if err != nil {
				return nil, err
			}
			for _, p := range msgParts {
				am.Parts = append(am.Parts, ArchivedPart{
					Level:       p.Level,
					Content:     p.Content,
					ToolCalls:   p.ToolCalls,
					ToolResults: p.ToolResults,
				})
			}
			set.Messages = append(set.Messages, am)
		}
		chat.Sets = append(chat.Sets, set)
	}

	data, err := yaml.Marshal(ChatArchive{Version: archiveFormatVersion, Chats: []ArchivedChat{chat}})
	if err != nil {
		return nil, errors.Wrap(err, "encode chat archive")
	}
	return data, nil
}

func (s *exportService) ImportChats(ctx context.Context, data []byte, projectName string) (string, []string, error) {
	var archive ChatArchive
	if err := yaml.Unmarshal(data, &archive); err != nil {
		return "", nil, domain.Validation(errors.Wrap(err, "decode chat archive"))
	}
	if archive.Version != archiveFormatVersion {
		return "", nil, &domain.ValidationError{Message: "unsupported archive version"}
	}
	if projectName == "" {
		projectName = "Imported"
	}

	now := time.Now().UTC()
	project := &models.Project{
		ID:                   uuid.NewString(),
		Name:                 projectName,
		MagicProjectsEnabled: true,
		IsImported:           true,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	var chatIDs []string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r := reposFor(tx)
		if err := r.projects.Create(ctx, project); err != nil {
			return err
		}
		for i, ac := range archive.Chats {
			id, err := importChat(ctx, r, project.ID, ac)
			if err != nil {
				return errors.Wrapf(err, "import chat %d", i)
			}
			chatIDs = append(chatIDs, id)
		}
		return nil
	})
	if err != nil {
		return "", nil, err
	}
	return project.ID, chatIDs, nil
}

func importChat(ctx context.Context, r txRepos, projectID string, ac ArchivedChat) (string, error) {
	chat := &models.Chat{
		ID:                           uuid.NewString(),
		ProjectID:                    projectID,
		Pinned:                       ac.Pinned,
		ProjectContextSummaryIsStale: true,
		CreatedAt:                    ac.CreatedAt,
		UpdatedAt:                    ac.UpdatedAt,
	}
	if chat.UpdatedAt.IsZero() {
		chat.UpdatedAt = time.Now().UTC()
	}
	if ac.Title != "" {
		chat.Title = &ac.Title
	}
	if ac.Summary != "" {
		chat.Summary = &ac.Summary
	}
	if err := r.chats.Create(ctx, chat); err != nil {
		return "", err
	}

	for _, as := range ac.Sets {
		if as.Type != models.SetTypeUser && as.Type != models.SetTypeAI {
			return "", &domain.ValidationError{Message: "unknown set type " + string(as.Type)}
		}
		set := &models.MessageSet{
			ID:                uuid.NewString(),
			ChatID:            chat.ID,
			Type:              as.Type,
			Level:             as.Level,
			SelectedBlockType: as.BlockType,
			CreatedAt:         chat.CreatedAt,
		}
		if err := r.sets.Create(ctx, set); err != nil {
			return "", err
		}
		selectedAt := -1
		for i, am := range as.Messages {
			if am.Selected && selectedAt < 0 {
				selectedAt = i
			}
		}
		if selectedAt < 0 && len(as.Messages) > 0 {
			selectedAt = 0
		}
		for i, am := range as.Messages {
			selected := i == selectedAt
			level := as.Level
			msg := &models.Message{
				ID:           uuid.NewString(),
				MessageSetID: set.ID,
				ChatID:       chat.ID,
				Text:         am.Text,
				Model:        am.Model,
				Selected:     &selected,
				// Imported streams cannot resume.
				State:        models.MessageStateIdle,
				ErrorMessage: am.ErrorMessage,
				Level:        &level,
				CreatedAt:    am.CreatedAt,
			}
			if err := r.messages.Create(ctx, msg); err != nil {
				return "", err
			}
			for _, p := range am.Parts {
				if err := r.parts.Upsert(ctx, &models.MessagePart{
					ChatID:      chat.ID,
					MessageID:   msg.ID,
					Level:       p.Level,
					Content:     p.Content,
					ToolCalls:   p.ToolCalls,
					ToolResults: p.ToolResults,
				}); err != nil {
					return "", err
				}
			}
		}
	}
	return chat.ID, nil
}
