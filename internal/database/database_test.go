package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *Database {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := New(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestNewInvalidPath(t *testing.T) {
	_, err := New("")
	assert.Error(t, err)

	_, err = New("\x00bad")
	assert.Error(t, err)
}

func TestGetOrCreateUser(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	created, err := db.GetOrCreateUser(ctx, "628123456789@s.whatsapp.net", "Budi")
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.Equal(t, "628123456789@s.whatsapp.net", created.ExternalID)
	assert.Equal(t, "Budi", created.DisplayName)

	// Second call resolves the same row and picks up the new name.
	again, err := db.GetOrCreateUser(ctx, "628123456789@s.whatsapp.net", "Budi Santoso")
	require.NoError(t, err)
	assert.Equal(t, created.ID, again.ID)
	assert.Equal(t, "Budi Santoso", again.DisplayName)

	other, err := db.GetOrCreateUser(ctx, "628987654321@s.whatsapp.net", "Sari")
	require.NoError(t, err)
	assert.NotEqual(t, created.ID, other.ID)
}

func TestLogMessageAndDailyStats(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	user, err := db.GetOrCreateUser(ctx, "62811@s.whatsapp.net", "Ani")
	require.NoError(t, err)

	require.NoError(t, db.LogMessage(ctx, user.ID, "62811@s.whatsapp.net", "text", "halo bot", false))
	require.NoError(t, db.LogMessage(ctx, user.ID, "62811@s.whatsapp.net", "text", "balasan", true))
	require.NoError(t, db.LogCommandUsage(ctx, user.ID, "ping", "", true, 12, ""))

	stats, err := db.GetDailyStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Messages)
	assert.Equal(t, int64(1), stats.Commands)
}

func TestLogCommandUsageFailure(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	user, err := db.GetOrCreateUser(ctx, "62812@s.whatsapp.net", "Eko")
	require.NoError(t, err)

	err = db.LogCommandUsage(ctx, user.ID, "yt", "https://youtu.be/x", false, 4200, "media fetch failed (oversized)")
	require.NoError(t, err)

	var errorMessage sql.NullString
	row := db.db.QueryRow(`SELECT error_message FROM command_usage WHERE command = 'yt'`)
	require.NoError(t, row.Scan(&errorMessage))
	assert.True(t, errorMessage.Valid)
	assert.Contains(t, errorMessage.String, "oversized")
}

func TestLogAIInteraction(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	user, err := db.GetOrCreateUser(ctx, "62813@s.whatsapp.net", "Dewi")
	require.NoError(t, err)

	err = db.LogAIInteraction(ctx, AIInteraction{
		UserID:         user.ID,
		Prompt:         "jelaskan fotosintesis",
		ResponseLength: 1234,
		Model:          "gemini-2.5-flash",
		GroundingMode:  "search",
		Attempt:        2,
		ResponseTimeMs: 3500,
		Success:        true,
	})
	require.NoError(t, err)

	var attempt int
	row := db.db.QueryRow(`SELECT attempt FROM ai_interactions WHERE user_id = ?`, user.ID)
	require.NoError(t, row.Scan(&attempt))
	assert.Equal(t, 2, attempt)
}

func TestLogMediaDownload(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	user, err := db.GetOrCreateUser(ctx, "62814@s.whatsapp.net", "Rudi")
	require.NoError(t, err)

	err = db.LogMediaDownload(ctx, MediaDownload{
		UserID:    user.ID,
		Platform:  "tiktok",
		SourceURL: "https://vm.tiktok.com/ZSabc/",
		Track:     "video",
		FileSize:  1024 * 1024,
		Success:   true,
	})
	require.NoError(t, err)
}

func TestCleanupOldRecords(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	user, err := db.GetOrCreateUser(ctx, "62815@s.whatsapp.net", "Tono")
	require.NoError(t, err)
	require.NoError(t, db.LogMessage(ctx, user.ID, "62815@s.whatsapp.net", "text", "lama", false))

	// Backdate the row past the retention window.
	_, err = db.db.Exec(`UPDATE messages SET created_at = datetime('now', '-60 days')`)
	require.NoError(t, err)

	require.NoError(t, db.CleanupOldRecords(ctx, 30))

	var count int64
	require.NoError(t, db.db.QueryRow(`SELECT COUNT(*) FROM messages`).Scan(&count))
	assert.Zero(t, count)
}

func TestEncryptionAtRest(t *testing.T) {
	t.Setenv("MARIOBOT_ENABLE_ENCRYPTION", "true")
	t.Setenv("MARIOBOT_ENCRYPTION_SECRET", "panjang-rahasia-sekali-untuk-pengujian-unit")

	db := setupTestDB(t)
	ctx := context.Background()

	user, err := db.GetOrCreateUser(ctx, "62816@s.whatsapp.net", "Lina")
	require.NoError(t, err)
	require.NoError(t, db.LogMessage(ctx, user.ID, "62816@s.whatsapp.net", "text", "pesan rahasia", false))

	// Lookups still resolve via the deterministic ciphertext.
	again, err := db.GetOrCreateUser(ctx, "62816@s.whatsapp.net", "Lina")
	require.NoError(t, err)
	assert.Equal(t, user.ID, again.ID)

	// The stored body must not be plaintext.
	var stored string
	require.NoError(t, db.db.QueryRow(`SELECT content FROM messages LIMIT 1`).Scan(&stored))
	assert.NotEqual(t, "pesan rahasia", stored)
	assert.NotContains(t, stored, "rahasia")
}

func TestEncryptionRequiresSecret(t *testing.T) {
	t.Setenv("MARIOBOT_ENABLE_ENCRYPTION", "true")
	t.Setenv("MARIOBOT_ENCRYPTION_SECRET", "")

	_, err := New(filepath.Join(t.TempDir(), "test.db"))
	assert.Error(t, err)
}

func TestEncryptionRejectsWeakSecret(t *testing.T) {
	t.Setenv("MARIOBOT_ENABLE_ENCRYPTION", "true")
	t.Setenv("MARIOBOT_ENCRYPTION_SECRET", "pendek")

	_, err := New(filepath.Join(t.TempDir(), "test.db"))
	assert.Error(t, err)
}

func TestEncryptorRoundTrip(t *testing.T) {
	t.Setenv("MARIOBOT_ENABLE_ENCRYPTION", "true")
	t.Setenv("MARIOBOT_ENCRYPTION_SECRET", "panjang-rahasia-sekali-untuk-pengujian-unit")

	enc, err := newEncryptor()
	require.NoError(t, err)

	ciphertext, err := enc.encrypt("teks asli")
	require.NoError(t, err)
	assert.NotEqual(t, "teks asli", ciphertext)

	plaintext, err := enc.decrypt(ciphertext)
	require.NoError(t, err)
	assert.Equal(t, "teks asli", plaintext)

	// Deterministic lookup encryption is stable across calls.
	a, err := enc.encryptForLookup("62817@s.whatsapp.net")
	require.NoError(t, err)
	b, err := enc.encryptForLookup("62817@s.whatsapp.net")
	require.NoError(t, err)
	assert.Equal(t, a, b)

	// Random-nonce encryption is not.
	c1, err := enc.encrypt("sama")
	require.NoError(t, err)
	c2, err := enc.encrypt("sama")
	require.NoError(t, err)
	assert.NotEqual(t, c1, c2)
}

func TestIsRetryableDBError(t *testing.T) {
	assert.True(t, isRetryableDBError(errors.New("database is locked")))
	assert.True(t, isRetryableDBError(errors.New("disk I/O error")))
	assert.False(t, isRetryableDBError(nil))
	assert.False(t, isRetryableDBError(sql.ErrNoRows))
	assert.False(t, isRetryableDBError(context.Canceled))
	assert.False(t, isRetryableDBError(fmt.Errorf("UNIQUE constraint failed: users.external_id")))
}
