package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort string
	AppEnv  string

	LogLevel string

	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string

	PreferencesTable string
	S3LogBucket      string // empty disables rotated-log archiving
	SNSTopicARN      string // empty disables fire-delivery publishing
	SNSRegion        string

	AuthSecret      string // empty disables API authentication
	TokenExpiryDays int

	AllowedOrigins []string // CORS allowed origins

	AuditInterval time.Duration
	SettleDelay   time.Duration
	MaxSavedNames int
	DebugLogPath  string
}

// Load reads all configuration from environment variables.
func Load() *Config {
	return &Config{
		AppPort: getEnv("APP_PORT", "3000"),
		AppEnv:  getEnv("APP_ENV", "development"),

		LogLevel: getEnv("LOG_LEVEL", "info"),

		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),

		PreferencesTable: getEnv("DYNAMO_TABLE_PREFERENCES", "preferences"),
		S3LogBucket:      getEnv("S3_LOG_BUCKET", ""),
		SNSTopicARN:      getEnv("SNS_TOPIC_ARN", ""),
		SNSRegion:        getEnv("SNS_REGION", "us-east-1"),

		AuthSecret:      getEnv("AUTH_SECRET", ""),
		TokenExpiryDays: getEnvInt("TOKEN_EXPIRY_DAYS", 7),

		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),

		AuditInterval: getEnvDuration("AUDIT_INTERVAL", time.Minute),
		SettleDelay:   getEnvDuration("SCHEDULE_SETTLE_DELAY", 1500*time.Millisecond),
		MaxSavedNames: getEnvInt("MAX_SAVED_NAMES", 10),
		DebugLogPath:  getEnv("DEBUG_LOG_PATH", "./notification_debug.log"),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
