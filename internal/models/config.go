package models

// ConfigError reports an invalid or incomplete configuration.
type ConfigError struct {
	Message string
}

func (e ConfigError) Error() string {
	return e.Message
}

type Config struct {
	LogLevel  string          `json:"logLevel"`
	WhatsApp  WhatsAppConfig  `json:"whatsapp"`
	Gemini    GeminiConfig    `json:"gemini"`
	Database  DatabaseConfig  `json:"database"`
	Server    ServerConfig    `json:"server"`
	RateLimit RateLimitConfig `json:"rateLimit"`
	Media     MediaConfig     `json:"media"`
	AI        AIConfig        `json:"ai"`
	Digest    DigestConfig    `json:"digest"`
	Tracing   TracingConfig   `json:"tracing"`

	RetentionDays int `json:"retentionDays"`
}

type WhatsAppConfig struct {
	APIBaseURL string `json:"apiBaseUrl"`
	// APIKey is taken from the environment, never from the file.
	APIKey      string `json:"-"`
	SessionName string `json:"sessionName"`
	// AdminChatID receives view-once archives and the daily digest.
	AdminChatID string `json:"adminChatId"`
}

type GeminiConfig struct {
	Model  string `json:"model"`
	APIKey string `json:"-"`
}

type DatabaseConfig struct {
	Path string `json:"path"`
}

type ServerConfig struct {
	Port int `json:"port"`
}

type RateLimitConfig struct {
	WindowSec     int `json:"windowSec"`
	Messages      int `json:"messages"`
	Commands      int `json:"commands"`
	Media         int `json:"media"`
	AI            int `json:"ai"`
	SpamWindowSec int `json:"spamWindowSec"`
	SpamThreshold int `json:"spamThreshold"`
}

type MediaConfig struct {
	SizeLimitMB int `json:"sizeLimitMB"`
	TimeoutSec  int `json:"timeoutSec"`
}

type AIConfig struct {
	MaxRetries int `json:"maxRetries"`
	TimeoutMs  int `json:"timeoutMs"`
}

type DigestConfig struct {
	Enabled bool `json:"enabled"`
	// Cron is a standard five-field expression evaluated in Timezone.
	Cron     string `json:"cron"`
	Timezone string `json:"timezone"`
}

type TracingConfig struct {
	Enabled bool `json:"enabled"`
	// Endpoint is an OTLP HTTP collector address; empty means stdout export.
	Endpoint    string  `json:"endpoint"`
	SampleRatio float64 `json:"sampleRatio"`
}
