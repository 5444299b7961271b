package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	_ "github.com/mattn/go-sqlite3"

	"github.com/void-rizqiagung/bot-mariioV2/internal/models"
)

// Database is the engine's activity log: users, conversation history,
// command usage, AI interactions and media downloads. Callers treat every
// write as best-effort.
type Database struct {
	db        *sql.DB
	encryptor *encryptor
}

func New(dbPath string) (*Database, error) {
	if len(dbPath) == 0 || dbPath[0] == '\x00' {
		return nil, fmt.Errorf("invalid database path")
	}

	file, err := os.OpenFile(dbPath, os.O_RDWR|os.O_CREATE, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to create database file: %w", err)
	}
	if err := file.Close(); err != nil {
		return nil, fmt.Errorf("failed to close database file: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to ping database: %w (close error: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to initialize schema: %w (close error: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	enc, err := newEncryptor()
	if err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to initialize encryptor: %w (close error: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("failed to initialize encryptor: %w", err)
	}

	return &Database{db: db, encryptor: enc}, nil
}

func (d *Database) Close() error {
	return d.db.Close()
}

// GetOrCreateUser looks a user up by platform identity, creating the row on
// first contact and refreshing the display name and last-seen marker
// otherwise.
func (d *Database) GetOrCreateUser(ctx context.Context, externalID, displayName string) (*models.User, error) {
	lookupID, err := d.encryptor.encryptForLookup(externalID)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt external ID: %w", err)
	}
	encryptedName, err := d.encryptor.encrypt(displayName)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt display name: %w", err)
	}

	var user models.User
	var storedExternalID string
	var storedName sql.NullString

	err = retryableDBOperation(ctx, func() error {
		return d.db.QueryRowContext(ctx, selectUserByExternalIDQuery, lookupID).Scan(
			&user.ID, &storedExternalID, &storedName, &user.LastSeenAt,
		)
	}, "get user")

	switch {
	case err == nil:
		if _, err := d.db.ExecContext(ctx, touchUserQuery, encryptedName, user.ID); err != nil {
			return nil, fmt.Errorf("failed to touch user: %w", err)
		}
		user.ExternalID = externalID
		user.DisplayName = displayName
		return &user, nil

	case isNoRows(err):
		res, err := d.db.ExecContext(ctx, insertUserQuery, lookupID, encryptedName)
		if err != nil {
			return nil, fmt.Errorf("failed to create user: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("failed to read new user ID: %w", err)
		}
		return &models.User{ID: id, ExternalID: externalID, DisplayName: displayName}, nil

	default:
		return nil, fmt.Errorf("failed to get or create user: %w", err)
	}
}

// LogMessage records one inbound or outbound message. The body is encrypted
// at rest when column encryption is enabled.
func (d *Database) LogMessage(ctx context.Context, userID int64, chatID, messageType, content string, fromBot bool) error {
	encryptedContent, err := d.encryptor.encrypt(content)
	if err != nil {
		return fmt.Errorf("failed to encrypt message content: %w", err)
	}

	return retryableDBOperation(ctx, func() error {
		_, err := d.db.ExecContext(ctx, insertMessageQuery,
			userID, chatID, messageType, encryptedContent, boolToInt(fromBot))
		return err
	}, "log message")
}

// LogCommandUsage records one command execution with its outcome and
// latency.
func (d *Database) LogCommandUsage(ctx context.Context, userID int64, command, parameters string, success bool, responseTimeMs int64, errorMessage string) error {
	return retryableDBOperation(ctx, func() error {
		_, err := d.db.ExecContext(ctx, insertCommandUsageQuery,
			userID, command, parameters, boolToInt(success), responseTimeMs, nullable(errorMessage))
		return err
	}, "log command usage")
}

// AIInteraction captures one orchestrated generation for the usage log.
type AIInteraction struct {
	UserID         int64
	Prompt         string
	ResponseLength int
	Model          string
	GroundingMode  string
	Attempt        int
	ResponseTimeMs int64
	Success        bool
	ErrorCategory  string
}

func (d *Database) LogAIInteraction(ctx context.Context, rec AIInteraction) error {
	encryptedPrompt, err := d.encryptor.encrypt(rec.Prompt)
	if err != nil {
		return fmt.Errorf("failed to encrypt prompt: %w", err)
	}

	return retryableDBOperation(ctx, func() error {
		_, err := d.db.ExecContext(ctx, insertAIInteractionQuery,
			rec.UserID, encryptedPrompt, rec.ResponseLength, rec.Model, rec.GroundingMode,
			rec.Attempt, rec.ResponseTimeMs, boolToInt(rec.Success), nullable(rec.ErrorCategory))
		return err
	}, "log AI interaction")
}

// MediaDownload captures one media pipeline run.
type MediaDownload struct {
	UserID      int64
	Platform    string
	SourceURL   string
	Track       string
	FileSize    int64
	Success     bool
	ErrorReason string
}

func (d *Database) LogMediaDownload(ctx context.Context, rec MediaDownload) error {
	return retryableDBOperation(ctx, func() error {
		_, err := d.db.ExecContext(ctx, insertMediaDownloadQuery,
			rec.UserID, rec.Platform, rec.SourceURL, rec.Track, rec.FileSize,
			boolToInt(rec.Success), nullable(rec.ErrorReason))
		return err
	}, "log media download")
}

// DailyStats summarizes the last 24 hours for the digest and /status.
type DailyStats struct {
	Messages int64
	Commands int64
}

func (d *Database) GetDailyStats(ctx context.Context) (*DailyStats, error) {
	var stats DailyStats
	if err := d.db.QueryRowContext(ctx, countMessagesSinceQuery).Scan(&stats.Messages); err != nil {
		return nil, fmt.Errorf("failed to count messages: %w", err)
	}
	if err := d.db.QueryRowContext(ctx, countCommandUsageSinceQuery).Scan(&stats.Commands); err != nil {
		return nil, fmt.Errorf("failed to count command usage: %w", err)
	}
	return &stats, nil
}

// CleanupOldRecords drops activity rows older than the retention window.
func (d *Database) CleanupOldRecords(ctx context.Context, retentionDays int) error {
	for _, query := range []string{
		deleteOldMessagesQuery,
		deleteOldCommandUsageQuery,
		deleteOldAIInteractionsQuery,
		deleteOldMediaDownloadsQuery,
	} {
		if err := retryableDBOperation(ctx, func() error {
			_, err := d.db.ExecContext(ctx, query, retentionDays)
			return err
		}, "cleanup old records"); err != nil {
			return err
		}
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
