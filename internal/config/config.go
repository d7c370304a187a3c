// Package config provides configuration for the gateway daemon.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds the daemon configuration.
type Config struct {
	// Server settings
	HTTPPort int

	// Database
	DatabaseURL string

	// Bot identity
	BotUserID string
	BotName   string

	// Agent settings
	AgentMode    string // "mock" or "http"
	AgentURL     string
	AgentTimeout time.Duration

	// Context budget
	HistoryMaxTokens   int
	HistoryMaxMessages int

	// Delivery
	ChunkMaxLen int

	// Session eviction; zero disables
	SessionTTL    time.Duration
	SweepInterval time.Duration

	// WebSocket settings
	PingInterval   time.Duration
	WriteTimeout   time.Duration
	ReadTimeout    time.Duration
	MaxMessageSize int64
}

// Load loads configuration from environment variables.
func Load() *Config {
	return &Config{
		HTTPPort:           getEnvInt("HTTP_PORT", 8080),
		DatabaseURL:        getEnv("DATABASE_URL", "file:murphy.db?cache=shared&mode=rwc"),
		BotUserID:          getEnv("BOT_USER_ID", "murphy-bot"),
		BotName:            getEnv("BOT_NAME", "Spider Murphy"),
		AgentMode:          getEnv("AGENT_MODE", "mock"),
		AgentURL:           getEnv("AGENT_URL", "http://localhost:8091"),
		AgentTimeout:       time.Duration(getEnvInt("AGENT_TIMEOUT_MS", 300000)) * time.Millisecond,
		HistoryMaxTokens:   getEnvInt("HISTORY_MAX_TOKENS", 32000),
		HistoryMaxMessages: getEnvInt("HISTORY_MAX_MESSAGES", 3000),
		ChunkMaxLen:        getEnvInt("CHUNK_MAX_LEN", 2000),
		SessionTTL:         time.Duration(getEnvInt("SESSION_TTL_MS", 0)) * time.Millisecond,
		SweepInterval:      time.Duration(getEnvInt("SWEEP_INTERVAL_MS", 60000)) * time.Millisecond,
		PingInterval:       time.Duration(getEnvInt("WS_PING_INTERVAL_MS", 30000)) * time.Millisecond,
		WriteTimeout:       time.Duration(getEnvInt("WS_WRITE_TIMEOUT_MS", 10000)) * time.Millisecond,
		ReadTimeout:        time.Duration(getEnvInt("WS_READ_TIMEOUT_MS", 60000)) * time.Millisecond,
		MaxMessageSize:     int64(getEnvInt("WS_MAX_MESSAGE_SIZE", 1048576)),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}
