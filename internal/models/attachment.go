package models

import "time"

// Attachment references an opaque blob by path. Rows are unique by path.
type Attachment struct {
	ID           string         `gorm:"primaryKey" json:"id"`
	Type         AttachmentType `gorm:"not null" json:"type"`
	Path         string         `gorm:"not null;uniqueIndex" json:"path"`
	IsLoading    bool           `gorm:"column:is_loading" json:"isLoading"`
	Ephemeral    bool           `json:"ephemeral"`
	OriginalName *string        `gorm:"column:original_name" json:"originalName,omitempty"`
	CreatedAt    time.Time      `json:"createdAt"`
}

func (Attachment) TableName() string { return "attachments" }

type MessageAttachment struct {
	MessageID    string `gorm:"column:message_id;primaryKey"`
	AttachmentID string `gorm:"column:attachment_id;primaryKey"`
}

func (MessageAttachment) TableName() string { return "message_attachments" }

type ProjectAttachment struct {
	ProjectID    string `gorm:"column:project_id;primaryKey"`
	AttachmentID string `gorm:"column:attachment_id;primaryKey"`
}

func (ProjectAttachment) TableName() string { return "project_attachments" }

type DraftAttachment struct {
	ChatID       string `gorm:"column:chat_id;primaryKey"`
	AttachmentID string `gorm:"column:attachment_id;primaryKey"`
}

func (DraftAttachment) TableName() string { return "draft_attachments" }
