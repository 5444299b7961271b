package database

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	external_id TEXT NOT NULL UNIQUE,
	display_name TEXT,
	message_count INTEGER NOT NULL DEFAULT 0,
	last_seen_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS messages (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER REFERENCES users(id),
	chat_id TEXT NOT NULL,
	message_type TEXT NOT NULL,
	content TEXT,
	from_bot INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS command_usage (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER REFERENCES users(id),
	command TEXT NOT NULL,
	parameters TEXT,
	success INTEGER NOT NULL DEFAULT 1,
	response_time_ms INTEGER,
	error_message TEXT,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS ai_interactions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER REFERENCES users(id),
	prompt TEXT,
	response_length INTEGER,
	model TEXT,
	grounding_mode TEXT,
	attempt INTEGER,
	response_time_ms INTEGER,
	success INTEGER NOT NULL DEFAULT 1,
	error_category TEXT,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS media_downloads (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER REFERENCES users(id),
	platform TEXT NOT NULL,
	source_url TEXT,
	track TEXT,
	file_size INTEGER,
	success INTEGER NOT NULL DEFAULT 1,
	error_reason TEXT,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_messages_chat_id ON messages(chat_id);
CREATE INDEX IF NOT EXISTS idx_messages_created_at ON messages(created_at);
CREATE INDEX IF NOT EXISTS idx_command_usage_created_at ON command_usage(created_at);
CREATE INDEX IF NOT EXISTS idx_ai_interactions_created_at ON ai_interactions(created_at);
`

const (
	selectUserByExternalIDQuery = `
		SELECT id, external_id, display_name, last_seen_at
		FROM users
		WHERE external_id = ?
	`

	insertUserQuery = `
		INSERT INTO users (external_id, display_name)
		VALUES (?, ?)
	`

	touchUserQuery = `
		UPDATE users
		SET display_name = ?, message_count = message_count + 1,
		    last_seen_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`

	insertMessageQuery = `
		INSERT INTO messages (user_id, chat_id, message_type, content, from_bot)
		VALUES (?, ?, ?, ?, ?)
	`

	insertCommandUsageQuery = `
		INSERT INTO command_usage (user_id, command, parameters, success, response_time_ms, error_message)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	insertAIInteractionQuery = `
		INSERT INTO ai_interactions (user_id, prompt, response_length, model, grounding_mode, attempt, response_time_ms, success, error_category)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	insertMediaDownloadQuery = `
		INSERT INTO media_downloads (user_id, platform, source_url, track, file_size, success, error_reason)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	countCommandUsageSinceQuery = `
		SELECT COUNT(*) FROM command_usage
		WHERE created_at >= datetime('now', '-1 day')
	`

	countMessagesSinceQuery = `
		SELECT COUNT(*) FROM messages
		WHERE created_at >= datetime('now', '-1 day')
	`

	deleteOldMessagesQuery = `
		DELETE FROM messages
		WHERE created_at < datetime('now', '-' || ? || ' days')
	`

	deleteOldCommandUsageQuery = `
		DELETE FROM command_usage
		WHERE created_at < datetime('now', '-' || ? || ' days')
	`

	deleteOldAIInteractionsQuery = `
		DELETE FROM ai_interactions
		WHERE created_at < datetime('now', '-' || ? || ' days')
	`

	deleteOldMediaDownloadsQuery = `
		DELETE FROM media_downloads
		WHERE created_at < datetime('now', '-' || ? || ' days')
	`
)
