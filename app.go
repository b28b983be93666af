package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"chatvault/internal/config"
	"chatvault/internal/database"
	"chatvault/internal/events"
	"chatvault/internal/migrations"
	"chatvault/internal/models"
	"chatvault/internal/services"
)

// App is the command surface the desktop shell and the CLI call into.
type App struct {
	ctx      context.Context
	cfg      *config.Config
	db       *gorm.DB
	Services *services.DbServices
	Events   *services.EventEmitterService
	migrated migrations.Result
}

// NewApp creates a new App application struct
func NewApp(cfg *config.Config) *App {
	return &App{cfg: cfg}
}

// startup opens the store, migrating it first, and wires the services. A
// schema error leaves the app without services.
func (a *App) startup(ctx context.Context) error {
	a.ctx = ctx

	db, result, err := database.Open(ctx, a.cfg.Database.Options())
	if err != nil {
		log.Error().Err(err).Str("path", a.cfg.Database.Path).Msg("failed to open database")
		return err
	}
	a.db = db
	a.migrated = result
	if len(result.Applied) > 0 {
		log.Info().Int("from", result.From).Int("to", result.To).Ints("applied", result.Applied).Msg("schema migrated")
	}

	var secrets services.SecretStore
	ring, err := services.OpenKeyring(a.cfg.Keyring)
	if err != nil {
		log.Warn().Err(err).Str("backend", a.cfg.Keyring.Backend).Msg("keyring unavailable, secret toolset parameters disabled")
	} else {
		secrets = services.NewKeyringService(ring)
	}

	a.Services = services.NewDbServices(db, secrets)
	a.Events = services.NewEventEmitterService()

	if err := a.Services.ModelConfigs.SyncCatalog(ctx); err != nil {
		log.Error().Err(err).Msg("failed to sync model catalog")
		return err
	}
	return nil
}

// shutdown is called when the app is closing. Clean up resources here.
func (a *App) shutdown(ctx context.Context) {
	if a.Events != nil {
		a.Events.StopStream()
	}
	if a.db != nil {
		if err := database.Close(a.db); err != nil {
			log.Error().Err(err).Msg("failed to close database")
		} else {
			log.Debug().Msg("database closed")
		}
		a.db = nil
	}
	a.Services = nil
}

func (a *App) services() (*services.DbServices, error) {
	if a.Services == nil {
		return nil, fmt.Errorf("store not available")
	}
	return a.Services, nil
}

// SubscribeEvents forwards committed store events to sink until shutdown.
func (a *App) SubscribeEvents(sink func(ctx context.Context, evt events.StoreEvent)) bool {
	if a.Events == nil {
		return false
	}
	return a.Events.StartStream(sink)
}

// LastMigration reports what startup migrated.
func (a *App) LastMigration() migrations.Result {
	return a.migrated
}

// GetSchemaVersion returns the schema version the store is at.
func (a *App) GetSchemaVersion() (int, error) {
	if a.db == nil {
		return 0, fmt.Errorf("store not available")
	}
	return database.SchemaVersion(a.ctx, a.db)
}

func (a *App) CreateProject(name string) (*models.Project, error) {
	svc, err := a.services()
	if err != nil {
		return nil, err
	}
	return svc.Projects.Create(a.ctx, services.ProjectInput{Name: name})
}

func (a *App) ListProjects() ([]models.Project, error) {
	svc, err := a.services()
	if err != nil {
		return nil, err
	}
	return svc.Projects.List(a.ctx)
}

func (a *App) DeleteProject(projectID string) error {
	svc, err := a.services()
	if err != nil {
		return err
	}
	return svc.Conversations.DeleteProject(a.ctx, projectID)
}

func (a *App) CreateChat(in services.CreateChatInput) (*models.Chat, error) {
	svc, err := a.services()
	if err != nil {
		return nil, err
	}
	return svc.Chats.Create(a.ctx, in)
}

// GetNewChat returns the project's reusable empty chat.
func (a *App) GetNewChat(projectID string, quickChat bool) (*models.Chat, error) {
	svc, err := a.services()
	if err != nil {
		return nil, err
	}
	return svc.Chats.GetOrCreateNewChat(a.ctx, projectID, quickChat)
}

func (a *App) GetChat(chatID string) (*models.Chat, error) {
	svc, err := a.services()
	if err != nil {
		return nil, err
	}
	return svc.Chats.Get(a.ctx, chatID)
}

// GetChatTree returns the chat's message sets in level order.
func (a *App) GetChatTree(chatID string) (*services.ChatTree, error) {
	svc, err := a.services()
	if err != nil {
		return nil, err
	}
	return svc.Conversations.GetChatTree(a.ctx, chatID)
}

func (a *App) ListChats(projectID string) ([]models.Chat, error) {
	svc, err := a.services()
	if err != nil {
		return nil, err
	}
	return svc.Chats.List(a.ctx, projectID)
}

func (a *App) RenameChat(chatID, title string) error {
	svc, err := a.services()
	if err != nil {
		return err
	}
	return svc.Chats.Rename(a.ctx, chatID, title)
}

func (a *App) PinChat(chatID string, pinned bool) error {
	svc, err := a.services()
	if err != nil {
		return err
	}
	return svc.Chats.SetPinned(a.ctx, chatID, pinned)
}

func (a *App) DeleteChat(chatID string) error {
	svc, err := a.services()
	if err != nil {
		return err
	}
	return svc.Conversations.DeleteChat(a.ctx, chatID)
}

func (a *App) CreateMessageSet(chatID string, setType models.SetType, parentSetID *string) (string, error) {
	svc, err := a.services()
	if err != nil {
		return "", err
	}
	return svc.Conversations.CreateMessageSet(a.ctx, chatID, setType, parentSetID)
}

func (a *App) AppendMessage(setID string, in services.AppendMessageInput) (string, error) {
	svc, err := a.services()
	if err != nil {
		return "", err
	}
	return svc.Conversations.AppendMessage(a.ctx, setID, in)
}

func (a *App) SelectMessage(setID, messageID string) error {
	svc, err := a.services()
	if err != nil {
		return err
	}
	return svc.Conversations.SelectMessage(a.ctx, setID, messageID)
}

func (a *App) DeleteMessage(messageID string) error {
	svc, err := a.services()
	if err != nil {
		return err
	}
	return svc.Conversations.DeleteMessage(a.ctx, messageID)
}

// Branch starts a new chat whose root message points back at messageID.
func (a *App) Branch(messageID string) (string, error) {
	svc, err := a.services()
	if err != nil {
		return "", err
	}
	return svc.Conversations.Branch(a.ctx, messageID)
}

func (a *App) RegisterAttachment(in services.AttachmentInput) (string, error) {
	svc, err := a.services()
	if err != nil {
		return "", err
	}
	id, _, err := svc.Attachments.Register(a.ctx, in)
	return id, err
}

func (a *App) GetSetting(key string) (string, error) {
	svc, err := a.services()
	if err != nil {
		return "", err
	}
	return svc.Settings.Get(a.ctx, services.SettingKey(key))
}

func (a *App) SetSetting(key, value string) error {
	svc, err := a.services()
	if err != nil {
		return err
	}
	return svc.Settings.Set(a.ctx, services.SettingKey(key), value)
}

// ResolveModels returns the model configs to use for a scope, falling back to
// defaults when the selection is no longer eligible.
func (a *App) ResolveModels(scope services.Scope) ([]services.ResolvedConfig, error) {
	svc, err := a.services()
	if err != nil {
		return nil, err
	}
	return svc.ModelConfigs.Resolve(a.ctx, scope)
}
