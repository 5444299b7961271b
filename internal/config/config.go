package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/void-rizqiagung/bot-mariioV2/internal/constants"
	"github.com/void-rizqiagung/bot-mariioV2/internal/models"
)

var (
	ErrMissingTransportURL = models.ConfigError{Message: "missing WhatsApp API base URL"}
	ErrMissingDBPath       = models.ConfigError{Message: "missing database path"}
	ErrMissingGeminiModel  = models.ConfigError{Message: "missing Gemini model name"}
)

// Load reads the JSON config file, validates it, applies defaults and then
// environment overrides for secrets.
func Load(path string) (*models.Config, error) {
	file, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg models.Config
	if err := json.Unmarshal(file, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	applyEnvironmentOverrides(&cfg)

	return &cfg, nil
}

func validate(c *models.Config) error {
	if c.WhatsApp.APIBaseURL == "" {
		return ErrMissingTransportURL
	}
	if c.Database.Path == "" {
		return ErrMissingDBPath
	}
	if c.Gemini.Model == "" {
		return ErrMissingGeminiModel
	}

	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Server.Port <= 0 {
		c.Server.Port = constants.DefaultServerPort
	}

	if c.RateLimit.WindowSec <= 0 {
		c.RateLimit.WindowSec = constants.DefaultRateWindowSec
	}
	if c.RateLimit.Messages <= 0 {
		c.RateLimit.Messages = constants.DefaultMessageLimit
	}
	if c.RateLimit.Commands <= 0 {
		c.RateLimit.Commands = constants.DefaultCommandLimit
	}
	if c.RateLimit.Media <= 0 {
		c.RateLimit.Media = constants.DefaultMediaLimit
	}
	if c.RateLimit.AI <= 0 {
		c.RateLimit.AI = constants.DefaultAILimit
	}
	if c.RateLimit.SpamWindowSec <= 0 {
		c.RateLimit.SpamWindowSec = constants.DefaultSpamWindowSec
	}
	if c.RateLimit.SpamThreshold <= 0 {
		c.RateLimit.SpamThreshold = constants.DefaultSpamThreshold
	}

	if c.Media.SizeLimitMB <= 0 {
		c.Media.SizeLimitMB = constants.DefaultMediaSizeLimitBytes / (1024 * 1024)
	}
	if c.Media.TimeoutSec <= 0 {
		c.Media.TimeoutSec = constants.DefaultMediaTimeoutSec
	}

	if c.AI.MaxRetries <= 0 {
		c.AI.MaxRetries = constants.DefaultAIMaxRetries
	}
	if c.AI.TimeoutMs <= 0 {
		c.AI.TimeoutMs = constants.DefaultAITimeoutMs
	}

	if c.RetentionDays <= 0 {
		c.RetentionDays = constants.DefaultRetentionDays
	}

	if c.Digest.Enabled {
		if c.Digest.Cron == "" {
			return models.ConfigError{Message: "digest enabled but cron expression missing"}
		}
		if c.WhatsApp.AdminChatID == "" {
			return models.ConfigError{Message: "digest enabled but admin chat ID missing"}
		}
	}
	if c.Digest.Timezone == "" {
		c.Digest.Timezone = "Asia/Jakarta"
	}

	if c.Tracing.SampleRatio <= 0 || c.Tracing.SampleRatio > 1 {
		c.Tracing.SampleRatio = 1
	}

	return nil
}

func applyEnvironmentOverrides(c *models.Config) {
	if url := os.Getenv("WHATSAPP_API_URL"); url != "" {
		c.WhatsApp.APIBaseURL = url
	}
	// Secrets only ever come from the environment.
	c.WhatsApp.APIKey = os.Getenv("WHATSAPP_API_KEY")
	c.Gemini.APIKey = os.Getenv("GEMINI_API_KEY")

	if path := os.Getenv("DB_PATH"); path != "" {
		c.Database.Path = path
	}
	if admin := os.Getenv("ADMIN_CHAT_ID"); admin != "" {
		c.WhatsApp.AdminChatID = admin
	}
}
