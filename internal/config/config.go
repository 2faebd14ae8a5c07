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

	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string

	DynamoTableVerifications string

	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	SMTPTimeout  time.Duration

	// MailSender is the single fixed From identity for every outbound message.
	MailSender string
	// MailOwner receives /contact submissions.
	MailOwner string

	JWTPrivateKeyPath string
	JWTPublicKeyPath  string

	SessionExpiry  time.Duration // absolute session lifetime
	SessionSliding time.Duration // sliding renewal window, capped by SessionExpiry

	RatePermitLimit int
	RateWindow      time.Duration
	RateQueueLimit  int

	AllowedOrigins []string // CORS allowed origins
}

// Load reads all configuration from environment variables.
func Load() *Config {
	return &Config{
		AppPort: getEnv("APP_PORT", "3000"),
		AppEnv:  getEnv("APP_ENV", "development"),

		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),

		DynamoTableVerifications: getEnv("DYNAMO_TABLE_VERIFICATIONS", "email_verifications"),

		SMTPHost:     getEnv("SMTP_HOST", "localhost"),
		SMTPPort:     getEnv("SMTP_PORT", "1025"),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		SMTPTimeout:  time.Duration(getEnvInt("SMTP_TIMEOUT_SECONDS", 10)) * time.Second,

		MailSender: getEnv("MAIL_SENDER", "donotreply@example.com"),
		MailOwner:  getEnv("MAIL_OWNER", "owner@example.com"),

		JWTPrivateKeyPath: getEnv("JWT_PRIVATE_KEY_PATH", "./private_key.pem"),
		JWTPublicKeyPath:  getEnv("JWT_PUBLIC_KEY_PATH", "./public_key.pem"),

		SessionExpiry:  time.Duration(getEnvInt("SESSION_EXPIRY_MINUTES", 20)) * time.Minute,
		SessionSliding: time.Duration(getEnvInt("SESSION_SLIDING_MINUTES", 20)) * time.Minute,

		RatePermitLimit: getEnvInt("RATE_PERMIT_LIMIT", 10),
		RateWindow:      time.Duration(getEnvInt("RATE_WINDOW_HOURS", 1)) * time.Hour,
		RateQueueLimit:  getEnvInt("RATE_QUEUE_LIMIT", 10),

		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
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
