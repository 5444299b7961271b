package constants

import "time"

// Rate limiting defaults (per user, per fixed window)
const (
	DefaultRateWindowSec    = 60
	DefaultMessageLimit     = 10
	DefaultCommandLimit     = 5
	DefaultMediaLimit       = 3
	DefaultAILimit          = 8
	DefaultSpamWindowSec    = 300
	DefaultSpamThreshold    = 3
	DefaultSpamBufferSize   = 10
	DefaultBlockDurationSec = 3600
)

// AI generation defaults
const (
	DefaultAIMaxRetries       = 3
	DefaultAITimeoutMs        = 35000
	DefaultMaxOutputTokens    = 8192
	TokenBudgetFloor          = 2048
	TokenBudgetStepPerAttempt = 1024
	DefaultBackoffBaseMs      = 1000
	DefaultBackoffCapMs       = 5000
)

// URL reachability probe strategy timeouts
const (
	ProbeHeadTimeout        = 15 * time.Second
	ProbeGetTimeout         = 20 * time.Second
	ProbeExtendedGetTimeout = 30 * time.Second
)

// Progress notifier
const (
	ProgressFrameInterval = 450 * time.Millisecond
)

// Media retrieval defaults
const (
	DefaultMediaSizeLimitBytes = 50 * 1024 * 1024
	DefaultMediaTimeoutSec     = 60
)

// Server and shutdown defaults
const (
	DefaultServerPort         = 8082
	DefaultServerReadTimeout  = 15 * time.Second
	DefaultServerWriteTimeout = 15 * time.Second
	DefaultServerIdleTimeout  = 60 * time.Second
	DefaultShutdownTimeout    = 30 * time.Second
)

// Database defaults
const (
	DefaultDatabaseRetryAttempts = 3
	DefaultDBRetryBackoffMs      = 1000
	DefaultDBMaxBackoffMs        = 60000
	DefaultRetentionDays         = 30
)

// Column encryption parameters
const (
	EncryptionSalt       = "mariobot-db-encryption-v1"
	EncryptionLookupSalt = "mariobot-lookup-v1"
	EncryptionNonceSize  = 12
	EncryptionKeySize    = 32
	EncryptionIterations = 100000
)

// Chat ID suffixes used by the messaging platform (Baileys conventions)
const (
	GroupChatSuffix    = "@g.us"
	DirectChatSuffix   = "@s.whatsapp.net"
	StatusBroadcastJID = "status@broadcast"
)
