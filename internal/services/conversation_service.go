package services

import (
	"context"
	"time"

	"github.com/cloudwego/eino/schema"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"chatvault/internal/domain"
	"chatvault/internal/events"
	"chatvault/internal/logging"
	"chatvault/internal/models"
	"chatvault/internal/repositories"
)

type AppendMessageInput struct {
	Model          string              `json:"model"`
	Text           string              `json:"text"`
	AttachmentIDs  []string            `json:"attachmentIds,omitempty"`
	State          models.MessageState `json:"state,omitempty"`
	StreamingToken *string             `json:"streamingToken,omitempty"`
	BlockType      *models.BlockType   `json:"blockType,omitempty"`
	IsReview       bool                `json:"isReview,omitempty"`
}

func (in AppendMessageInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Model, validation.Required),
		validation.Field(&in.State, validation.In(models.MessageStateStreaming, models.MessageStateIdle)),
		validation.Field(&in.StreamingToken, validation.NilOrNotEmpty,
			validation.When(in.State != models.MessageStateStreaming, validation.Nil.Error("only streaming messages carry a token"))),
		validation.Field(&in.BlockType, validation.In(
			models.BlockTypeChat, models.BlockTypeCompare, models.BlockTypeTools, models.BlockTypeUser)),
	)
}

// SetWithMessages is one level of a chat tree.
type SetWithMessages struct {
	Set      models.MessageSet `json:"set"`
	Messages []models.Message  `json:"messages"`
}

type ChatTree struct {
	Chat models.Chat       `json:"chat"`
	Sets []SetWithMessages `json:"sets"`
}

// ConversationService owns the chat tree: message sets, messages and their
// selection, plus the cascades that remove them.
type ConversationService interface {
	CreateMessageSet(ctx context.Context, chatID string, setType models.SetType, parentSetID *string) (string, error)
	AppendMessage(ctx context.Context, setID string, in AppendMessageInput) (string, error)
	SelectMessage(ctx context.Context, setID, messageID string) error
	DeleteMessage(ctx context.Context, messageID string) error
	DeleteChat(ctx context.Context, chatID string) error
	DeleteProject(ctx context.Context, projectID string) error
	Branch(ctx context.Context, fromMessageID string) (string, error)
	CreateReplyChat(ctx context.Context, messageID string) (string, error)
	GetChatTree(ctx context.Context, chatID string) (*ChatTree, error)
	GetMessage(ctx context.Context, messageID string) (*models.Message, error)

	AppendChunk(ctx context.Context, messageID, token, chunk string) error
	CancelStream(ctx context.Context, messageID string) error
	FinishStream(ctx context.Context, messageID string, errorMessage *string) error
	SetReviewState(ctx context.Context, messageID string, state models.ReviewState) error
	SetSelectedBlockType(ctx context.Context, setID string, blockType models.BlockType) error

	SaveMessagePart(ctx context.Context, messageID string, level int, content string, toolCalls []schema.ToolCall, toolResults []*schema.Message) error
	ListMessageParts(ctx context.Context, messageID string) ([]models.MessagePart, error)
}

type conversationService struct {
	db     *gorm.DB
	logger zerolog.Logger
	now    func() time.Time
}

func NewConversationService(db *gorm.DB) ConversationService {
	return &conversationService{
		db:     db,
		logger: logging.For("conversation"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// txRepos are repositories bound to one transaction.
type txRepos struct {
	projects    repositories.ProjectRepository
	chats       repositories.ChatRepository
	sets        repositories.MessageSetRepository
	messages    repositories.MessageRepository
	parts       repositories.MessagePartRepository
	attachments repositories.AttachmentRepository
}

func reposFor(db *gorm.DB) txRepos {
	return txRepos{
		projects:    repositories.NewProjectRepository(db),
		chats:       repositories.NewChatRepository(db),
		sets:        repositories.NewMessageSetRepository(db),
		messages:    repositories.NewMessageRepository(db),
		parts:       repositories.NewMessagePartRepository(db),
		attachments: repositories.NewAttachmentRepository(db),
	}
}

func (s *conversationService) inTx(ctx context.Context, fn func(r txRepos) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(reposFor(tx))
	})
}

func (s *conversationService) CreateMessageSet(ctx context.Context, chatID string, setType models.SetType, parentSetID *string) (string, error) {
	if setType != models.SetTypeUser && setType != models.SetTypeAI {
		return "", &domain.ValidationError{Message: "set type must be user or ai"}
	}
	set := models.MessageSet{
		ID:        uuid.NewString(),
		ChatID:    chatID,
		Type:      setType,
		CreatedAt: s.now(),
	}
	blockType := models.BlockTypeChat
	if setType == models.SetTypeUser {
		blockType = models.BlockTypeUser
	}
	set.SelectedBlockType = &blockType

	err := s.inTx(ctx, func(r txRepos) error {
		if _, err := r.chats.Get(ctx, chatID); err != nil {
			return err
		}
		if parentSetID != nil {
			parent, err := r.sets.Get(ctx, *parentSetID)
			if err != nil {
				return err
			}
			if parent.ChatID != chatID {
				return domain.Constraint("same_chat", "parent set %q belongs to chat %q, not %q", parent.ID, parent.ChatID, chatID)
			}
			set.Level = parent.Level + 1
		}
		return r.sets.Create(ctx, &set)
	})
	if err != nil {
		return "", err
	}
	return set.ID, nil
}

func (s *conversationService) AppendMessage(ctx context.Context, setID string, in AppendMessageInput) (string, error) {
	if err := in.Validate(); err != nil {
		return "", domain.Validation(err)
	}
	if in.State == "" {
		in.State = models.MessageStateIdle
	}

	var msg models.Message
	err := s.inTx(ctx, func(r txRepos) error {
		set, err := r.sets.Get(ctx, setID)
		if err != nil {
			return err
		}
		count, err := r.messages.CountBySet(ctx, setID)
		if err != nil {
			return err
		}
		selected := count == 0
		level := set.Level
		msg = models.Message{
			ID:             uuid.NewString(),
			MessageSetID:   setID,
			ChatID:         set.ChatID,
			Text:           in.Text,
			Model:          in.Model,
			Selected:       &selected,
			State:          in.State,
			StreamingToken: in.StreamingToken,
			IsReview:       in.IsReview,
			BlockType:      in.BlockType,
			Level:          &level,
			CreatedAt:      s.now(),
		}
		if err := r.messages.Create(ctx, &msg); err != nil {
			return err
		}
		for _, attachmentID := range in.AttachmentIDs {
			if _, err := r.attachments.Get(ctx, attachmentID); err != nil {
				return err
			}
			if err := r.attachments.Link(ctx, repositories.MessageOwner, msg.ID, attachmentID); err != nil {
				return err
			}
		}
		return r.chats.Touch(ctx, set.ChatID, msg.CreatedAt)
	})
	if err != nil {
		return "", errors.Wrapf(err, "append message to set %s", setID)
	}

	events.Emit(ctx, events.New(events.MessageAppended).WithChat(msg.ChatID).WithMessage(setID, msg.ID))
	return msg.ID, nil
}

func (s *conversationService) SelectMessage(ctx context.Context, setID, messageID string) error {
	var chatID string
	err := s.inTx(ctx, func(r txRepos) error {
		msg, err := r.messages.Get(ctx, messageID)
		if err != nil {
			return err
		}
		if msg.MessageSetID != setID {
			return domain.InvalidState("message %q is not in set %q", messageID, setID)
		}
		chatID = msg.ChatID
		return r.messages.Select(ctx, setID, messageID)
	})
	if err != nil {
		return err
	}
	events.Emit(ctx, events.New(events.MessageSelected).WithChat(chatID).WithMessage(setID, messageID))
	return nil
}

func (s *conversationService) DeleteMessage(ctx context.Context, messageID string) error {
	var msg *models.Message
	err := s.inTx(ctx, func(r txRepos) error {
		var err error
		msg, err = r.messages.Get(ctx, messageID)
		if err != nil {
			return err
		}
		if err := r.parts.DeleteByMessage(ctx, messageID); err != nil {
			return err
		}
		if err := r.attachments.UnlinkAll(ctx, repositories.MessageOwner, messageID); err != nil {
			return err
		}
		if err := r.messages.Delete(ctx, messageID); err != nil {
			return err
		}
		if !msg.IsSelected() {
			return nil
		}
		// Siblings come back ordered by model, then id.
		siblings, err := r.messages.ListBySet(ctx, msg.MessageSetID)
		if err != nil || len(siblings) == 0 {
			return err
		}
		return r.messages.Select(ctx, msg.MessageSetID, siblings[0].ID)
	})
	if err != nil {
		return err
	}
	events.Emit(ctx, events.New(events.MessageDeleted).WithChat(msg.ChatID).WithMessage(msg.MessageSetID, messageID))
	return nil
}

// deleteChat removes everything a chat owns, innermost first.
func deleteChat(ctx context.Context, r txRepos, chatID string) error {
	messageIDs, err := r.messages.IDsByChat(ctx, chatID)
	if err != nil {
		return err
	}
	if err := r.parts.DeleteByChat(ctx, chatID); err != nil {
		return err
	}
	if err := r.attachments.UnlinkAll(ctx, repositories.MessageOwner, messageIDs...); err != nil {
		return err
	}
	if err := r.messages.DeleteByChat(ctx, chatID); err != nil {
		return err
	}
	if err := r.sets.DeleteByChat(ctx, chatID); err != nil {
		return err
	}
	if err := r.attachments.UnlinkAll(ctx, repositories.DraftOwner, chatID); err != nil {
		return err
	}
	if err := r.chats.DeleteDraft(ctx, chatID); err != nil {
		return err
	}
	if err := r.chats.DetachChildren(ctx, chatID); err != nil {
		return err
	}
	return r.chats.Delete(ctx, chatID)
}

func (s *conversationService) DeleteChat(ctx context.Context, chatID string) error {
	var projectID string
	err := s.inTx(ctx, func(r txRepos) error {
		chat, err := r.chats.Get(ctx, chatID)
		if err != nil {
			return err
		}
		projectID = chat.ProjectID
		return deleteChat(ctx, r, chatID)
	})
	if err != nil {
		return err
	}
	events.Emit(ctx, events.New(events.ChatDeleted).WithChat(chatID).WithProject(projectID))
	return nil
}

func (s *conversationService) DeleteProject(ctx context.Context, projectID string) error {
	if models.IsBuiltinProject(projectID) {
		return domain.InvalidState("project %q is built in and cannot be deleted", projectID)
	}
	var chatIDs []string
	err := s.inTx(ctx, func(r txRepos) error {
		if _, err := r.projects.Get(ctx, projectID); err != nil {
			return err
		}
		var err error
		chatIDs, err = r.chats.ListIDsByProject(ctx, projectID)
		if err != nil {
			return err
		}
		for _, chatID := range chatIDs {
			if err := deleteChat(ctx, r, chatID); err != nil {
				return errors.Wrapf(err, "delete chat %s", chatID)
			}
		}
		if err := r.attachments.UnlinkAll(ctx, repositories.ProjectOwner, projectID); err != nil {
			return err
		}
		return r.projects.Delete(ctx, projectID)
	})
	if err != nil {
		return err
	}
	s.logger.Info().Str("project", projectID).Int("chats", len(chatIDs)).Msg("project deleted")
	events.Emit(ctx, events.New(events.ProjectDeleted).WithProject(projectID))
	return nil
}

func (s *conversationService) Branch(ctx context.Context, fromMessageID string) (string, error) {
	var chat models.Chat
	err := s.inTx(ctx, func(r txRepos) error {
		source, err := r.messages.Get(ctx, fromMessageID)
		if err != nil {
			return err
		}
		sourceSet, err := r.sets.Get(ctx, source.MessageSetID)
		if err != nil {
			return err
		}
		sourceChat, err := r.chats.Get(ctx, source.ChatID)
		if err != nil {
			return err
		}

		now := s.now()
		chat = models.Chat{
			ID:           uuid.NewString(),
			Title:        sourceChat.Title,
			ProjectID:    sourceChat.ProjectID,
			QuickChat:    sourceChat.QuickChat,
			ParentChatID: &sourceChat.ID,
			CreatedAt:    now,
			UpdatedAt:    now,

			ProjectContextSummaryIsStale: true,
		}
		if err := r.chats.Create(ctx, &chat); err != nil {
			return err
		}

		set := models.MessageSet{
			ID:                uuid.NewString(),
			ChatID:            chat.ID,
			Type:              sourceSet.Type,
			Level:             0,
			SelectedBlockType: sourceSet.SelectedBlockType,
			CreatedAt:         now,
		}
		if err := r.sets.Create(ctx, &set); err != nil {
			return err
		}

		selected := true
		level := 0
		root := models.Message{
			ID:             uuid.NewString(),
			MessageSetID:   set.ID,
			ChatID:         chat.ID,
			Model:          source.Model,
			Selected:       &selected,
			State:          models.MessageStateIdle,
			BlockType:      source.BlockType,
			Level:          &level,
			BranchedFromID: &source.ID,
			CreatedAt:      now,
		}
		return r.messages.Create(ctx, &root)
	})
	if err != nil {
		return "", errors.Wrapf(err, "branch from message %s", fromMessageID)
	}
	events.Emit(ctx, events.New(events.ChatCreated).WithChat(chat.ID).WithProject(chat.ProjectID).WithMeta("branched_from", fromMessageID))
	return chat.ID, nil
}

func (s *conversationService) CreateReplyChat(ctx context.Context, messageID string) (string, error) {
	var chat models.Chat
	err := s.inTx(ctx, func(r txRepos) error {
		source, err := r.messages.Get(ctx, messageID)
		if err != nil {
			return err
		}
		if source.ReplyChatID != nil {
			return domain.InvalidState("message %q already has reply chat %q", messageID, *source.ReplyChatID)
		}
		sourceChat, err := r.chats.Get(ctx, source.ChatID)
		if err != nil {
			return err
		}
		now := s.now()
		chat = models.Chat{
			ID:           uuid.NewString(),
			ProjectID:    sourceChat.ProjectID,
			QuickChat:    sourceChat.QuickChat,
			ParentChatID: &sourceChat.ID,
			ReplyToID:    &source.ID,
			CreatedAt:    now,
			UpdatedAt:    now,

			ProjectContextSummaryIsStale: true,
		}
		if err := r.chats.Create(ctx, &chat); err != nil {
			return err
		}
		return r.messages.Update(ctx, messageID, map[string]interface{}{"reply_chat_id": chat.ID})
	})
	if err != nil {
		return "", errors.Wrapf(err, "reply to message %s", messageID)
	}
	events.Emit(ctx, events.New(events.ChatCreated).WithChat(chat.ID).WithProject(chat.ProjectID).WithMeta("reply_to", messageID))
	return chat.ID, nil
}

func (s *conversationService) GetChatTree(ctx context.Context, chatID string) (*ChatTree, error) {
	r := reposFor(s.db)
	chat, err := r.chats.Get(ctx, chatID)
	if err != nil {
		return nil, err
	}
	sets, err := r.sets.ListByChat(ctx, chatID)
	if err != nil {
		return nil, err
	}
	messages, err := r.messages.ListByChat(ctx, chatID)
	if err != nil {
		return nil, err
	}
	bySet := make(map[string][]models.Message, len(sets))
	for _, m := range messages {
		bySet[m.MessageSetID] = append(bySet[m.MessageSetID], m)
	}
	tree := &ChatTree{Chat: *chat, Sets: make([]SetWithMessages, 0, len(sets))}
	for _, set := range sets {
		msgs := bySet[set.ID]
		if msgs == nil {
			msgs = []models.Message{}
		}
		tree.Sets = append(tree.Sets, SetWithMessages{Set: set, Messages: msgs})
	}
	return tree, nil
}

func (s *conversationService) GetMessage(ctx context.Context, messageID string) (*models.Message, error) {
	return repositories.NewMessageRepository(s.db).Get(ctx, messageID)
}

// AppendChunk extends a streaming message. Each chunk commits on its own.
func (s *conversationService) AppendChunk(ctx context.Context, messageID, token, chunk string) error {
	if token == "" {
		return &domain.ValidationError{Message: "streaming token is required"}
	}
	messages := repositories.NewMessageRepository(s.db)
	ok, err := messages.AppendText(ctx, messageID, token, chunk)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	if _, err := messages.Get(ctx, messageID); err != nil {
		return err
	}
	return domain.InvalidState("message %q is not streaming under this token", messageID)
}

func (s *conversationService) CancelStream(ctx context.Context, messageID string) error {
	return repositories.NewMessageRepository(s.db).Update(ctx, messageID, map[string]interface{}{
		"streaming_token": nil,
	})
}

func (s *conversationService) FinishStream(ctx context.Context, messageID string, errorMessage *string) error {
	var msg *models.Message
	err := s.inTx(ctx, func(r txRepos) error {
		var err error
		msg, err = r.messages.Get(ctx, messageID)
		if err != nil {
			return err
		}
		if msg.State != models.MessageStateStreaming {
			return domain.InvalidState("message %q is not streaming", messageID)
		}
		return r.messages.Update(ctx, messageID, map[string]interface{}{
			"state":           models.MessageStateIdle,
			"streaming_token": nil,
			"error_message":   errorMessage,
		})
	})
	if err != nil {
		return err
	}
	evt := events.New(events.StreamFinished).WithChat(msg.ChatID).WithMessage(msg.MessageSetID, messageID)
	if errorMessage != nil {
		evt = evt.WithMeta("error", *errorMessage)
	}
	events.Emit(ctx, evt)
	return nil
}

func (s *conversationService) SetReviewState(ctx context.Context, messageID string, state models.ReviewState) error {
	return s.inTx(ctx, func(r txRepos) error {
		msg, err := r.messages.Get(ctx, messageID)
		if err != nil {
			return err
		}
		var allowed bool
		switch state {
		case models.ReviewStatePending:
			allowed = msg.ReviewState == nil
		case models.ReviewStateApplied:
			allowed = msg.ReviewState != nil && *msg.ReviewState == models.ReviewStatePending
		default:
			return &domain.ValidationError{Message: "unknown review state " + string(state)}
		}
		if !allowed {
			from := "none"
			if msg.ReviewState != nil {
				from = string(*msg.ReviewState)
			}
			return domain.InvalidState("review of message %q cannot move from %s to %s", messageID, from, state)
		}
		return r.messages.Update(ctx, messageID, map[string]interface{}{"review_state": state})
	})
}

func (s *conversationService) SetSelectedBlockType(ctx context.Context, setID string, blockType models.BlockType) error {
	if err := validation.Validate(blockType, validation.Required, validation.In(
		models.BlockTypeChat, models.BlockTypeCompare, models.BlockTypeTools, models.BlockTypeUser)); err != nil {
		return domain.Validation(err)
	}
	return repositories.NewMessageSetRepository(s.db).SetSelectedBlockType(ctx, setID, blockType)
}

func (s *conversationService) SaveMessagePart(ctx context.Context, messageID string, level int, content string, toolCalls []schema.ToolCall, toolResults []*schema.Message) error {
	if level < 0 {
		return &domain.ValidationError{Message: "part level must not be negative"}
	}
	return s.inTx(ctx, func(r txRepos) error {
		msg, err := r.messages.Get(ctx, messageID)
		if err != nil {
			return err
		}
		return r.parts.Upsert(ctx, &models.MessagePart{
			ChatID:      msg.ChatID,
			MessageID:   messageID,
			Level:       level,
			Content:     content,
			ToolCalls:   toolCalls,
			ToolResults: toolResults,
		})
	})
}

func (s *conversationService) ListMessageParts(ctx context.Context, messageID string) ([]models.MessagePart, error) {
	return repositories.NewMessagePartRepository(s.db).ListByMessage(ctx, messageID)
}
