package events

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	ChatCreated     = "chat:created"
	ChatDeleted     = "chat:deleted"
	MessageAppended = "message:appended"
	MessageSelected = "message:selected"
	MessageDeleted  = "message:deleted"
	StreamFinished  = "stream:finished"
	ProjectDeleted  = "project:deleted"
)

// StoreEvent is the payload emitted after a committed store change.
type StoreEvent struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	ProjectID  string            `json:"projectId,omitempty"`
	ChatID     string            `json:"chatId,omitempty"`
	SetID      string            `json:"setId,omitempty"`
	MessageID  string            `json:"messageId,omitempty"`
	Timestamp  time.Time         `json:"timestamp"`
	SessionKey string            `json:"sessionKey,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

type contextKey string

const sessionContextKey contextKey = "chatvault/events/session"

// WithSession returns a derived context annotated with the given session key
// so event emitters can automatically scope payloads.
func WithSession(ctx context.Context, sessionKey string) context.Context {
	if strings.TrimSpace(sessionKey) == "" {
		return ctx
	}
	return context.WithValue(ctx, sessionContextKey, sessionKey)
}

// SessionFromContext extracts the session key associated with ctx.
func SessionFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(sessionContextKey).(string); ok {
		return v
	}
	return ""
}

func New(name string) StoreEvent {
	return StoreEvent{
		ID:        uuid.NewString(),
		Name:      name,
		Timestamp: time.Now().UTC(),
	}
}

func (e StoreEvent) WithChat(chatID string) StoreEvent {
	e.ChatID = chatID
	return e
}

func (e StoreEvent) WithProject(projectID string) StoreEvent {
	e.ProjectID = projectID
	return e
}

func (e StoreEvent) WithMessage(setID, messageID string) StoreEvent {
	e.SetID = setID
	e.MessageID = messageID
	return e
}

func (e StoreEvent) WithMeta(key, value string) StoreEvent {
	meta := make(map[string]string, len(e.Metadata)+1)
	for k, v := range e.Metadata {
		meta[k] = v
	}
	meta[key] = value
	e.Metadata = meta
	return e
}
