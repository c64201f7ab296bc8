// Package config provides environment configuration for the chat client.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the client daemon.
type Config struct {
	// Platform endpoints
	APIBaseURL string
	WSBaseURL  string

	// Credentials
	Token    string
	UserID   string
	Username string

	// Organization context sent with every message
	OrganizationID string
	LocationID     string

	// Socket behavior
	ReconnectInterval time.Duration
	MaxReconnects     int
	HeartbeatInterval time.Duration

	// Chat behavior
	PageSize          int
	TypingExpiry      time.Duration
	TypingIdle        time.Duration
	ReadReceiptDelay  time.Duration

	// Diagnostics server
	DiagPort          string
	DiagReadTimeout   time.Duration
	DiagWriteTimeout  time.Duration
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// NATS bridge
	BridgeEnabled bool
	NATSURL       string
	NATSToken     string
	NATSCAFile    string
	NATSCertFile  string
	NATSKeyFile   string
	BridgePrefix  string

	// Logging
	LogLevel string

	// Tracing
	TracingEndpoint string
	TracingEnabled  bool
}

// Load reads configuration from the environment, honoring a local .env file.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		// Endpoints
		APIBaseURL: getEnv("API_BASE_URL", "http://localhost:8000"),
		WSBaseURL:  getEnv("WS_BASE_URL", "ws://localhost:8000"),

		// Credentials
		Token:    getEnv("AUTH_TOKEN", ""),
		UserID:   getEnv("USER_ID", ""),
		Username: getEnv("USERNAME", ""),

		// Organization context
		OrganizationID: getEnv("ORGANIZATION_ID", ""),
		LocationID:     getEnv("LOCATION_ID", ""),

		// Sockets
		ReconnectInterval: getDurationEnv("RECONNECT_INTERVAL", 5*time.Second),
		MaxReconnects:     getIntEnv("MAX_RECONNECTS", 20),
		HeartbeatInterval: getDurationEnv("HEARTBEAT_INTERVAL", 20*time.Second),

		// Chat
		PageSize:         getIntEnv("PAGE_SIZE", 50),
		TypingExpiry:     getDurationEnv("TYPING_EXPIRY", 10*time.Second),
		TypingIdle:       getDurationEnv("TYPING_IDLE", 5*time.Second),
		ReadReceiptDelay: getDurationEnv("READ_RECEIPT_DELAY", 3*time.Second),

		// Diagnostics
		DiagPort:          getEnv("DIAG_PORT", "8090"),
		DiagReadTimeout:   getDurationEnv("DIAG_READ_TIMEOUT", 10*time.Second),
		DiagWriteTimeout:  getDurationEnv("DIAG_WRITE_TIMEOUT", 30*time.Second),
		RateLimitRequests: getIntEnv("RATE_LIMIT_REQUESTS", 60),
		RateLimitWindow:   getDurationEnv("RATE_LIMIT_WINDOW", time.Minute),

		// NATS bridge
		BridgeEnabled: getBoolEnv("BRIDGE_ENABLED", false),
		NATSURL:       getEnv("NATS_URL", "nats://localhost:4222"),
		NATSToken:     getEnv("NATS_TOKEN", ""),
		NATSCAFile:    getEnv("NATS_CA_FILE", ""),
		NATSCertFile:  getEnv("NATS_CERT_FILE", ""),
		NATSKeyFile:   getEnv("NATS_KEY_FILE", ""),
		BridgePrefix:  getEnv("BRIDGE_SUBJECT_PREFIX", "rapidconsult.events"),

		// Logging
		LogLevel: getEnv("LOG_LEVEL", "info"),

		// Tracing
		TracingEndpoint: getEnv("TRACING_ENDPOINT", "localhost:4318"),
		TracingEnabled:  getBoolEnv("TRACING_ENABLED", false),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
