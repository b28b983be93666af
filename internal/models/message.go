package models

import (
	"time"

	"github.com/cloudwego/eino/schema"
)

type SetType string

const (
	SetTypeUser SetType = "user"
	SetTypeAI   SetType = "ai"
)

type BlockType string

const (
	BlockTypeChat    BlockType = "chat"
	BlockTypeCompare BlockType = "compare"
	BlockTypeTools   BlockType = "tools"
	BlockTypeUser    BlockType = "user"
)

type MessageState string

const (
	MessageStateStreaming MessageState = "streaming"
	MessageStateIdle      MessageState = "idle"
)

type ReviewState string

const (
	ReviewStatePending ReviewState = "pending"
	ReviewStateApplied ReviewState = "applied"
)

// UserModel is the model identifier recorded on messages authored by the user.
const UserModel = "user"

// MessageSet is one turn of a chat: the user's message, or the group of
// sibling model outputs answering it.
type MessageSet struct {
	ID                 string     `gorm:"primaryKey" json:"id"`
	ChatID             string     `gorm:"column:chat_id;not null" json:"chatId"`
	Type               SetType    `gorm:"not null" json:"type"`
	Level              int        `gorm:"not null" json:"level"`
	SelectedBlockType  *BlockType `gorm:"column:selected_block_type" json:"selectedBlockType,omitempty"`
	DeprecatedParentID *string    `gorm:"column:deprecated_parent_id" json:"-"`
	CreatedAt          time.Time  `json:"createdAt"`
}

func (MessageSet) TableName() string { return "message_sets" }

type Message struct {
	ID             string       `gorm:"primaryKey" json:"id"`
	MessageSetID   string       `gorm:"column:message_set_id;not null" json:"messageSetId"`
	ChatID         string       `gorm:"column:chat_id;not null" json:"chatId"`
	Text           string       `gorm:"not null" json:"text"`
	Model          string       `gorm:"not null" json:"model"`
	Selected       *bool        `json:"selected,omitempty"`
	State          MessageState `gorm:"not null" json:"state"`
	StreamingToken *string      `gorm:"column:streaming_token" json:"streamingToken,omitempty"`
	ErrorMessage   *string      `gorm:"column:error_message" json:"errorMessage,omitempty"`
	IsReview       bool         `gorm:"column:is_review" json:"isReview"`
	ReviewState    *ReviewState `gorm:"column:review_state" json:"reviewState,omitempty"`
	BlockType      *BlockType   `gorm:"column:block_type" json:"blockType,omitempty"`
	Level          *int         `json:"level,omitempty"`
	BranchedFromID *string      `gorm:"column:branched_from_id" json:"branchedFromId,omitempty"`
	ReplyChatID    *string      `gorm:"column:reply_chat_id" json:"replyChatId,omitempty"`
	CreatedAt      time.Time    `json:"createdAt"`
}

func (Message) TableName() string { return "messages" }

func (m *Message) IsSelected() bool {
	return m.Selected != nil && *m.Selected
}

// MessagePart is one step of a multi-step (tool using) model output.
type MessagePart struct {
	ChatID      string            `gorm:"column:chat_id;not null" json:"chatId"`
	MessageID   string            `gorm:"column:message_id;primaryKey" json:"messageId"`
	Level       int               `gorm:"primaryKey" json:"level"`
	Content     string            `gorm:"not null" json:"content"`
	ToolCalls   []schema.ToolCall `gorm:"column:tool_calls;serializer:json" json:"toolCalls,omitempty"`
	ToolResults []*schema.Message `gorm:"column:tool_results;serializer:json" json:"toolResults,omitempty"`
}

func (MessagePart) TableName() string { return "message_parts" }
