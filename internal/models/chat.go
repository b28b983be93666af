package models

import "time"

type Chat struct {
	ID                           string    `gorm:"primaryKey" json:"id"`
	Title                        *string   `json:"title,omitempty"`
	ProjectID                    string    `gorm:"column:project_id;not null" json:"projectId"`
	Pinned                       bool      `json:"pinned"`
	IsNewChat                    bool      `gorm:"column:is_new_chat" json:"isNewChat"`
	QuickChat                    bool      `gorm:"column:quick_chat" json:"quickChat"`
	ParentChatID                 *string   `gorm:"column:parent_chat_id" json:"parentChatId,omitempty"`
	ReplyToID                    *string   `gorm:"column:reply_to_id" json:"replyToId,omitempty"`
	Summary                      *string   `json:"summary,omitempty"`
	ProjectContextSummary        *string   `gorm:"column:project_context_summary" json:"projectContextSummary,omitempty"`
	ProjectContextSummaryIsStale bool      `gorm:"column:project_context_summary_is_stale" json:"projectContextSummaryIsStale"`
	CreatedAt                    time.Time `json:"createdAt"`
	// UpdatedAt tracks message activity only; gorm must not touch it on
	// metadata edits.
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime:false" json:"updatedAt"`
}

func (Chat) TableName() string { return "chats" }

// MessageDraft holds the unsent composer text of a chat.
type MessageDraft struct {
	ChatID  string `gorm:"primaryKey;column:chat_id" json:"chatId"`
	Content string `gorm:"not null" json:"content"`
}

func (MessageDraft) TableName() string { return "message_drafts" }
