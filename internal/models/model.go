package models

import (
	"strings"
	"time"
)

type AttachmentType string

const (
	AttachmentTypeText    AttachmentType = "text"
	AttachmentTypeImage   AttachmentType = "image"
	AttachmentTypePDF     AttachmentType = "pdf"
	AttachmentTypeWebpage AttachmentType = "webpage"
)

// Model is a provider model, identified as "provider::model".
type Model struct {
	ID                       string           `gorm:"primaryKey" json:"id"`
	DisplayName              string           `gorm:"column:display_name;not null" json:"displayName"`
	IsEnabled                bool             `gorm:"column:is_enabled" json:"isEnabled"`
	IsDeprecated             bool             `gorm:"column:is_deprecated" json:"isDeprecated"`
	IsInternal               bool             `gorm:"column:is_internal" json:"isInternal"`
	SupportedAttachmentTypes []AttachmentType `gorm:"column:supported_attachment_types;serializer:json" json:"supportedAttachmentTypes"`
}

func (Model) TableName() string { return "models" }

// Provider returns the part of the id before "::".
func (m *Model) Provider() string {
	return ProviderOf(m.ID)
}

// Eligible reports whether the model may serve a user-facing selection.
func (m *Model) Eligible() bool {
	return m.IsEnabled && !m.IsInternal
}

func ProviderOf(modelID string) string {
	provider, _, found := strings.Cut(modelID, "::")
	if !found {
		return ""
	}
	return provider
}

type ConfigAuthor string

const (
	AuthorSystem ConfigAuthor = "system"
	AuthorUser   ConfigAuthor = "user"
)

type ModelConfig struct {
	ID              string       `gorm:"primaryKey" json:"id"`
	ModelID         string       `gorm:"column:model_id;not null" json:"modelId"`
	DisplayName     string       `gorm:"column:display_name;not null" json:"displayName"`
	Author          ConfigAuthor `gorm:"not null" json:"author"`
	SystemPrompt    string       `gorm:"column:system_prompt;not null" json:"systemPrompt"`
	IsDefault       bool         `gorm:"column:is_default" json:"isDefault"`
	ReasoningEffort *string      `gorm:"column:reasoning_effort" json:"reasoningEffort,omitempty"`
	BudgetTokens    *int         `gorm:"column:budget_tokens" json:"budgetTokens,omitempty"`
	NewUntil        *time.Time   `gorm:"column:new_until" json:"newUntil,omitempty"`
	IsPinned        bool         `gorm:"column:is_pinned" json:"isPinned"`
	CreatedAt       time.Time    `json:"createdAt"`
}

func (ModelConfig) TableName() string { return "model_configs" }

// IsNew reports whether the config is still inside its promotion window.
func (c *ModelConfig) IsNew(now time.Time) bool {
	return c.NewUntil != nil && now.Before(*c.NewUntil)
}
