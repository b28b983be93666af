package models

import "time"

type ToolsetConfig struct {
	ToolsetName    string `gorm:"column:toolset_name;primaryKey" json:"toolsetName"`
	ParameterID    string `gorm:"column:parameter_id;primaryKey" json:"parameterId"`
	ParameterValue string `gorm:"column:parameter_value;not null" json:"parameterValue"`
}

func (ToolsetConfig) TableName() string { return "toolsets_config" }

// CustomToolset is a user-defined tool server launched with Command and Args.
type CustomToolset struct {
	Name      string            `gorm:"primaryKey" json:"name"`
	Command   string            `gorm:"not null" json:"command"`
	Args      string            `gorm:"not null" json:"args"`
	Env       map[string]string `gorm:"serializer:json" json:"env"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

func (CustomToolset) TableName() string { return "custom_toolsets" }

type PermissionType string

const (
	PermissionAlwaysAllow PermissionType = "always_allow"
	PermissionAlwaysDeny  PermissionType = "always_deny"
	PermissionAsk         PermissionType = "ask"
)

type PermissionResponse string

const (
	ResponseAllow PermissionResponse = "allow"
	ResponseDeny  PermissionResponse = "deny"
)

type ToolPermission struct {
	ToolsetName    string              `gorm:"column:toolset_name;primaryKey" json:"toolsetName"`
	ToolName       string              `gorm:"column:tool_name;primaryKey" json:"toolName"`
	PermissionType PermissionType      `gorm:"column:permission_type;not null" json:"permissionType"`
	LastAskedAt    *time.Time          `gorm:"column:last_asked_at" json:"lastAskedAt,omitempty"`
	LastResponse   *PermissionResponse `gorm:"column:last_response" json:"lastResponse,omitempty"`
	CreatedAt      time.Time           `json:"createdAt"`
	UpdatedAt      time.Time           `json:"updatedAt"`
}

func (ToolPermission) TableName() string { return "tool_permissions" }
