package services

import (
	"chatvault/internal/repositories"

	"gorm.io/gorm"
)

// DbServices aggregates all domain services backed by the database.
// Fields use plural names (e.g., Chats) to align with Go conventions
// seen in service/store containers.
type DbServices struct {
	Projects      ProjectService
	Chats         ChatService
	Conversations ConversationService
	Attachments   AttachmentService
	Settings      AppSettingsService
	ModelConfigs  ModelConfigService
	Toolsets      ToolsetService
	Export        ExportService
}

// NewDbServices constructs the service container using repositories backed by
// db. secrets may be nil when no keyring is available; secret toolset
// parameters then fail.
func NewDbServices(db *gorm.DB, secrets SecretStore) *DbServices {
	settings := NewAppSettingsService(repositories.NewAppMetadataRepository(db))

	return &DbServices{
		Projects:      NewProjectService(db),
		Chats:         NewChatService(db),
		Conversations: NewConversationService(db),
		Attachments:   NewAttachmentService(db),
		Settings:      settings,
		ModelConfigs:  NewModelConfigService(repositories.NewModelRepository(db), settings),
		Toolsets:      NewToolsetService(repositories.NewToolsetRepository(db), secrets),
		Export:        NewExportService(db),
	}
}
