package models

import "time"

const (
	DefaultProjectID   = "default"
	QuickChatProjectID = "quick-chat"
)

// Project groups chats. The two built-in projects are seeded by the schema
// history and cannot be deleted.
type Project struct {
	ID                   string    `gorm:"primaryKey" json:"id"`
	Name                 string    `gorm:"not null" json:"name"`
	IsCollapsed          bool      `gorm:"column:is_collapsed" json:"isCollapsed"`
	ContextText          *string   `gorm:"column:context_text" json:"contextText,omitempty"`
	MagicProjectsEnabled bool      `gorm:"column:magic_projects_enabled" json:"magicProjectsEnabled"`
	IsImported           bool      `gorm:"column:is_imported" json:"isImported"`
	CreatedAt            time.Time `json:"createdAt"`
	UpdatedAt            time.Time `json:"updatedAt"`
}

func (Project) TableName() string { return "projects" }

func IsBuiltinProject(id string) bool {
	return id == DefaultProjectID || id == QuickChatProjectID
}
