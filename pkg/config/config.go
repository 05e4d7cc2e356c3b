package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config represents the application configuration
type Config struct {
	Server       ServerConfig
	Database     DatabaseConfig
	Subscription SubscriptionConfig
	Razorpay     RazorpayConfig
	Mail         MailConfig
	Superadmin   SuperadminConfig
	JWT          JWTConfig
	Log          LogConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port string
	Env  string
}

// DatabaseConfig holds the embedded SQLite store configuration
type DatabaseConfig struct {
	Path            string
	BusyTimeoutMs   int
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	RetryAttempts   int
	RetryBackoff    time.Duration
	LogLevel        string
}

// SubscriptionConfig holds trial and retention policy configuration
type SubscriptionConfig struct {
	TrialDays         int
	PeriodDays        int
	DeleteAfterDays   int
	SweepSchedule     string
	ReaperSchedule    string
	OTPExpiry         time.Duration
	MinPasswordLength int
}

// RazorpayConfig holds payment gateway credentials
type RazorpayConfig struct {
	KeyID     string
	KeySecret string
	BaseURL   string
}

// Configured reports whether real gateway credentials are present.
// Placeholder values from a fresh .env are treated as unconfigured.
func (c *RazorpayConfig) Configured() bool {
	return c.KeyID != "" && c.KeySecret != "" &&
		!strings.Contains(c.KeyID, "YOUR_KEY") && !strings.Contains(c.KeySecret, "YOUR_SECRET")
}

// MailConfig holds outbound email credentials for the OTP sender
type MailConfig struct {
	SenderEmail    string
	SenderPassword string
}

// Configured reports whether email delivery can be attempted.
func (c *MailConfig) Configured() bool {
	return c.SenderEmail != "" && c.SenderPassword != "" && !strings.HasPrefix(c.SenderEmail, "your-")
}

// SuperadminConfig holds the bootstrap operator account. Seeded only when
// no superadmin exists yet.
type SuperadminConfig struct {
	Username string
	Password string
}

// JWTConfig holds JWT-related configuration
type JWTConfig struct {
	SigningKey     string
	ExpirationTime time.Duration
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string
}

// Load loads the application configuration from environment variables
func Load() (*Config, error) {
	// Load environment variables from .env file if it exists
	_ = godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
			Env:  getEnv("APP_ENV", "development"),
		},
		Database: DatabaseConfig{
			Path:            getEnv("DB_PATH", "data/hotel.db"),
			BusyTimeoutMs:   getEnvAsInt("DB_BUSY_TIMEOUT_MS", 30000),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 1*time.Hour),
			RetryAttempts:   getEnvAsInt("DB_RETRY_ATTEMPTS", 3),
			RetryBackoff:    getEnvAsDuration("DB_RETRY_BACKOFF", 500*time.Millisecond),
			LogLevel:        getEnv("DB_LOG_LEVEL", "warn"),
		},
		Subscription: SubscriptionConfig{
			TrialDays:         getEnvAsInt("TRIAL_DAYS", 7),
			PeriodDays:        getEnvAsInt("SUBSCRIPTION_PERIOD_DAYS", 30),
			DeleteAfterDays:   getEnvAsInt("ACCOUNT_DELETE_DAYS", 31),
			SweepSchedule:     getEnv("EXPIRY_SWEEP_SCHEDULE", "@every 1h"),
			ReaperSchedule:    getEnv("REAPER_SCHEDULE", "5 0 * * *"),
			OTPExpiry:         getEnvAsDuration("OTP_EXPIRY", 10*time.Minute),
			MinPasswordLength: getEnvAsInt("MIN_PASSWORD_LENGTH", 6),
		},
		Razorpay: RazorpayConfig{
			KeyID:     getEnv("RAZORPAY_KEY_ID", ""),
			KeySecret: getEnv("RAZORPAY_KEY_SECRET", ""),
			BaseURL:   getEnv("RAZORPAY_BASE_URL", "https://api.razorpay.com"),
		},
		Mail: MailConfig{
			SenderEmail:    strings.TrimSpace(getEnv("SENDER_EMAIL", "")),
			SenderPassword: strings.TrimSpace(getEnv("SENDER_PASSWORD", "")),
		},
		Superadmin: SuperadminConfig{
			Username: getEnv("SUPERADMIN_USERNAME", "superadmin"),
			Password: getEnv("SUPERADMIN_PASSWORD", "changeme123"),
		},
		JWT: JWTConfig{
			SigningKey:     getEnv("JWT_SIGNING_KEY", "hotelservicesecretkey"),
			ExpirationTime: getEnvAsDuration("JWT_EXPIRATION_HOURS", 24*time.Hour),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}, nil
}

// Helper functions to get environment variables with defaults
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
