package migrations

// History is the full, append-only schema history. Released entries are
// never edited; corrections are new entries.
func History() []Migration {
	return []Migration{
		SQL(1, "create chats and messages",
			`CREATE TABLE IF NOT EXISTS chats (
				id TEXT PRIMARY KEY NOT NULL,
				title TEXT,
				created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			)`,
			`CREATE TABLE IF NOT EXISTS messages (
				id TEXT PRIMARY KEY NOT NULL,
				chat_id TEXT NOT NULL REFERENCES chats(id),
				parent_id TEXT,
				text TEXT NOT NULL,
				model TEXT NOT NULL,
				selected BOOLEAN,
				attachments TEXT,
				created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			)`,
		),
		New(2, "add updated_at and pinned to chats",
			AddColumn("chats", "updated_at", "DATETIME"),
			Backfill("chats", "updated_at", "created_at", "updated_at IS NULL"),
			AddColumn("chats", "pinned", "BOOLEAN NOT NULL DEFAULT 0"),
		),
		SQL(3, "create models and model_configs",
			`CREATE TABLE IF NOT EXISTS models (
				id TEXT PRIMARY KEY NOT NULL,
				display_name TEXT NOT NULL,
				is_enabled BOOLEAN NOT NULL DEFAULT 1,
				supported_attachment_types TEXT NOT NULL DEFAULT '["text"]'
					CHECK (json_valid(supported_attachment_types))
			)`,
			`CREATE TABLE IF NOT EXISTS model_configs (
				id TEXT PRIMARY KEY NOT NULL,
				model_id TEXT NOT NULL REFERENCES models(id),
				display_name TEXT NOT NULL,
				author TEXT NOT NULL CHECK (author IN ('system', 'user')),
				system_prompt TEXT NOT NULL DEFAULT '',
				is_default BOOLEAN NOT NULL DEFAULT 0,
				created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			)`,
		),
		SQL(4, "create app_metadata",
			`CREATE TABLE IF NOT EXISTS app_metadata (
				key TEXT PRIMARY KEY NOT NULL,
				value TEXT NOT NULL,
				created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			)`,
		),
		New(5, "archive parent-pointer messages and create message_sets",
			ArchiveTable("messages", "messages_archive_legacy"),
			Exec(`CREATE TABLE message_sets (
				id TEXT PRIMARY KEY NOT NULL,
				chat_id TEXT NOT NULL REFERENCES chats(id),
				parent_id TEXT,
				type TEXT NOT NULL CHECK (type IN ('user', 'ai')),
				created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			)`),
			Exec(`CREATE TABLE messages (
				id TEXT PRIMARY KEY NOT NULL,
				message_set_id TEXT NOT NULL REFERENCES message_sets(id),
				chat_id TEXT NOT NULL REFERENCES chats(id),
				text TEXT NOT NULL,
				model TEXT NOT NULL,
				selected BOOLEAN,
				attachments TEXT,
				created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			)`),
			Exec(`CREATE INDEX idx_message_sets_chat ON message_sets (chat_id)`),
			Exec(`CREATE INDEX idx_messages_set ON messages (message_set_id)`),
			Exec(`CREATE INDEX idx_messages_chat ON messages (chat_id)`),
		),
		New(6, "group legacy messages into message sets",
			rebuildMessageSets("messages_archive_legacy"),
		),
		New(7, "add projects",
			Exec(`CREATE TABLE IF NOT EXISTS projects (
				id TEXT PRIMARY KEY NOT NULL,
				name TEXT NOT NULL,
				created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			)`),
			Exec(`INSERT OR IGNORE INTO projects (id, name) VALUES ('default', 'Default'), ('quick-chat', 'Quick Chat')`),
			AddColumn("chats", "quick_chat", "BOOLEAN NOT NULL DEFAULT 0"),
			AddColumn("chats", "project_id", "TEXT NOT NULL DEFAULT 'default'"),
			Backfill("chats", "project_id", "'quick-chat'", "quick_chat = 1"),
			Exec(`CREATE INDEX IF NOT EXISTS idx_chats_project ON chats (project_id)`),
		),
		New(8, "add streaming state to messages",
			AddColumn("messages", "state", "TEXT NOT NULL DEFAULT 'idle' CHECK (state IN ('streaming', 'idle'))"),
			AddColumn("messages", "streaming_token", "TEXT"),
			AddColumn("messages", "error_message", "TEXT"),
		),
		New(9, "add level to message_sets",
			AddColumn("message_sets", "level", "INTEGER"),
			Exec(`WITH RECURSIVE tree(id, level) AS (
				SELECT id, 0 FROM message_sets WHERE parent_id IS NULL
				UNION ALL
				SELECT ms.id, tree.level + 1 FROM message_sets ms JOIN tree ON ms.parent_id = tree.id
			)
			UPDATE message_sets SET level = (SELECT level FROM tree WHERE tree.id = message_sets.id)`),
			Backfill("message_sets", "level", "0", "level IS NULL"),
			Exec(`CREATE INDEX IF NOT EXISTS idx_message_sets_chat_level ON message_sets (chat_id, level)`),
		),
		New(10, "stop writing message set parent pointers",
			RenameColumn("message_sets", "parent_id", "deprecated_parent_id"),
		),
		New(11, "add review and block type columns",
			AddColumn("messages", "is_review", "BOOLEAN NOT NULL DEFAULT 0"),
			AddColumn("messages", "review_state", "TEXT CHECK (review_state IN ('pending', 'applied'))"),
			AddColumn("messages", "block_type", "TEXT"),
			AddColumn("message_sets", "selected_block_type", "TEXT CHECK (selected_block_type IN ('chat', 'compare', 'tools', 'user'))"),
			Backfill("message_sets", "selected_block_type", "CASE type WHEN 'user' THEN 'user' ELSE 'chat' END", "selected_block_type IS NULL"),
		),
		New(12, "add message drafts and chat summary",
			Exec(`CREATE TABLE IF NOT EXISTS message_drafts (
				chat_id TEXT PRIMARY KEY NOT NULL REFERENCES chats(id),
				content TEXT NOT NULL
			)`),
			AddColumn("chats", "summary", "TEXT"),
		),
		// 13 was withdrawn before release.
		New(14, "add message parts and message level",
			Exec(`CREATE TABLE IF NOT EXISTS message_parts (
				chat_id TEXT NOT NULL,
				message_id TEXT NOT NULL,
				level INTEGER NOT NULL,
				content TEXT NOT NULL DEFAULT '',
				tool_calls TEXT,
				tool_results TEXT,
				PRIMARY KEY (message_id, level)
			)`),
			Exec(`CREATE INDEX IF NOT EXISTS idx_message_parts_chat ON message_parts (chat_id)`),
			AddColumn("messages", "level", "INTEGER"),
		),
		SQL(15, "add toolset configuration",
			`CREATE TABLE IF NOT EXISTS toolsets_config (
				toolset_name TEXT NOT NULL,
				parameter_id TEXT NOT NULL,
				parameter_value TEXT NOT NULL,
				PRIMARY KEY (toolset_name, parameter_id)
			)`,
			`CREATE TABLE IF NOT EXISTS custom_toolsets (
				name TEXT PRIMARY KEY NOT NULL,
				command TEXT NOT NULL,
				args TEXT NOT NULL DEFAULT '',
				env TEXT NOT NULL DEFAULT '{}' CHECK (json_valid(env)),
				updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			)`,
			`INSERT OR IGNORE INTO toolsets_config (toolset_name, parameter_id, parameter_value) VALUES ('web', 'enabled', 'true')`,
		),
		New(16, "add chat lineage columns",
			AddColumn("chats", "is_new_chat", "BOOLEAN NOT NULL DEFAULT 0"),
			AddColumn("chats", "parent_chat_id", "TEXT"),
			AddColumn("chats", "reply_to_id", "TEXT"),
			AddColumn("messages", "reply_chat_id", "TEXT"),
			AddColumn("messages", "branched_from_id", "TEXT"),
			Exec(`CREATE UNIQUE INDEX IF NOT EXISTS one_new_chat ON chats (is_new_chat) WHERE is_new_chat = 1 AND quick_chat = 0`),
			Exec(`CREATE UNIQUE INDEX IF NOT EXISTS one_new_quick_chat ON chats (is_new_chat) WHERE is_new_chat = 1 AND quick_chat = 1`),
		),
		New(17, "add project settings",
			AddColumn("projects", "is_collapsed", "BOOLEAN NOT NULL DEFAULT 0"),
			AddColumn("projects", "context_text", "TEXT"),
			AddColumn("projects", "magic_projects_enabled", "BOOLEAN NOT NULL DEFAULT 1"),
			AddColumn("projects", "is_imported", "BOOLEAN NOT NULL DEFAULT 0"),
		),
		SQL(18, "create attachments",
			`CREATE TABLE IF NOT EXISTS attachments (
				id TEXT PRIMARY KEY NOT NULL,
				type TEXT NOT NULL,
				path TEXT NOT NULL,
				is_loading BOOLEAN NOT NULL DEFAULT 0,
				ephemeral BOOLEAN NOT NULL DEFAULT 0,
				original_name TEXT,
				created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			)`,
			`CREATE TABLE IF NOT EXISTS message_attachments (
				message_id TEXT NOT NULL,
				attachment_id TEXT NOT NULL,
				PRIMARY KEY (message_id, attachment_id)
			)`,
			`CREATE TABLE IF NOT EXISTS project_attachments (
				project_id TEXT NOT NULL,
				attachment_id TEXT NOT NULL,
				PRIMARY KEY (project_id, attachment_id)
			)`,
			`CREATE TABLE IF NOT EXISTS draft_attachments (
				chat_id TEXT NOT NULL,
				attachment_id TEXT NOT NULL,
				PRIMARY KEY (chat_id, attachment_id)
			)`,
		),
		New(19, "move message attachments out of the JSON column",
			extractLegacyAttachments,
			AddColumn("messages", "dep_attachments_archive", "TEXT"),
			Backfill("messages", "dep_attachments_archive", "attachments", "attachments IS NOT NULL"),
			Exec(`ALTER TABLE messages DROP COLUMN attachments`),
			Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_attachments_path ON attachments (path)`),
			Exec(`CREATE INDEX IF NOT EXISTS idx_message_attachments_attachment ON message_attachments (attachment_id)`),
		),
		New(20, "extend the model registry",
			AddColumn("models", "is_deprecated", "BOOLEAN NOT NULL DEFAULT 0"),
			AddColumn("models", "is_internal", "BOOLEAN NOT NULL DEFAULT 0"),
			AddColumn("model_configs", "reasoning_effort", "TEXT CHECK (reasoning_effort IN ('low', 'medium', 'high'))"),
			AddColumn("model_configs", "budget_tokens", "INTEGER"),
			AddColumn("model_configs", "new_until", "DATETIME"),
			AddColumn("model_configs", "is_pinned", "BOOLEAN NOT NULL DEFAULT 0"),
		),
		SQL(21, "seed built-in models",
			`INSERT OR IGNORE INTO models (id, display_name, is_enabled, is_internal, supported_attachment_types) VALUES
				('anthropic::claude-sonnet-4-latest', 'Claude Sonnet 4', 1, 0, '["text","image","pdf","webpage"]'),
				('anthropic::claude-3-5-haiku-latest', 'Claude Haiku 3.5', 1, 1, '["text","webpage"]'),
				('openai::gpt-4o', 'GPT-4o', 1, 0, '["text","image","webpage"]'),
				('google::gemini-2.5-pro-latest', 'Gemini 2.5 Pro', 1, 0, '["text","image","pdf","webpage"]')`,
			`INSERT OR IGNORE INTO model_configs (id, model_id, display_name, author, system_prompt, is_default) VALUES
				('anthropic::claude-sonnet-4-latest', 'anthropic::claude-sonnet-4-latest', 'Claude Sonnet 4', 'system', '', 1),
				('anthropic::claude-3-5-haiku-latest', 'anthropic::claude-3-5-haiku-latest', 'Claude Haiku 3.5', 'system', '', 0),
				('openai::gpt-4o', 'openai::gpt-4o', 'GPT-4o', 'system', '', 1),
				('google::gemini-2.5-pro-latest', 'google::gemini-2.5-pro-latest', 'Gemini 2.5 Pro', 'system', '', 1)`,
		),
		SQL(22, "scope new-chat uniqueness to projects",
			`DROP INDEX IF EXISTS one_new_chat`,
			`DROP INDEX IF EXISTS one_new_quick_chat`,
			// Keep only the most recent new chat per (project, quick_chat).
			`UPDATE chats SET is_new_chat = 0
			WHERE is_new_chat = 1 AND id NOT IN (
				SELECT id FROM (
					SELECT id, ROW_NUMBER() OVER (
						PARTITION BY project_id, quick_chat ORDER BY created_at DESC, id DESC
					) AS rn
					FROM chats WHERE is_new_chat = 1
				) WHERE rn = 1
			)`,
			`CREATE UNIQUE INDEX IF NOT EXISTS one_new_chat_per_project ON chats (project_id, quick_chat) WHERE is_new_chat = 1`,
		),
		SQL(23, "seed default app metadata",
			`INSERT OR IGNORE INTO app_metadata (key, value) VALUES
				('selected_model_config_chat', '["anthropic::claude-sonnet-4-latest"]'),
				('selected_model_configs_compare', '["anthropic::claude-sonnet-4-latest","openai::gpt-4o"]'),
				('quick_chat_model_config_id', 'anthropic::claude-sonnet-4-latest'),
				('internal_task_model_config_id', 'anthropic::claude-3-5-haiku-latest'),
				('current_block_type', 'chat')`,
		),
		SQL(24, "store the chat model selection as a single id",
			`UPDATE app_metadata SET value = json_extract(value, '$[0]')
			WHERE key = 'selected_model_config_chat'
				AND json_valid(value)
				AND json_type(value) = 'array'
				AND json_array_length(value) > 0`,
		),
		SQL(26, "reset interrupted streams",
			`UPDATE messages SET state = 'idle', streaming_token = NULL WHERE state = 'streaming'`,
		),
		New(27, "add tool permissions",
			Exec(`CREATE TABLE IF NOT EXISTS tool_permissions (
				toolset_name TEXT NOT NULL,
				tool_name TEXT NOT NULL,
				permission_type TEXT NOT NULL CHECK (permission_type IN ('always_allow', 'always_deny', 'ask')),
				last_asked_at DATETIME,
				last_response TEXT CHECK (last_response IN ('allow', 'deny')),
				created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
				PRIMARY KEY (toolset_name, tool_name)
			)`),
		),
		New(28, "add project context summary to chats",
			AddColumn("chats", "project_context_summary", "TEXT"),
			AddColumn("chats", "project_context_summary_is_stale", "BOOLEAN NOT NULL DEFAULT 1"),
		),
		SQL(29, "place tools messages at level 0",
			`UPDATE messages SET level = 0 WHERE block_type = 'tools' AND level IS NULL`,
		),
	}
}
