package database

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"hotel-service/internal/model"
	"hotel-service/pkg/config"
	"hotel-service/prometheus"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ErrContention is returned by WithRetry when the write lock could not be
// acquired within the configured attempts. Callers may retry the whole
// operation; they must not assume any part of it was applied.
var ErrContention = errors.New("database: transient contention, write lock not acquired")

var (
	db  *gorm.DB
	cfg *config.DatabaseConfig
)

// InitDB opens the embedded SQLite store and runs schema migration.
// Safe to call on every process start; migration is idempotent. A failure
// here is fatal to the caller: the service must not run without its store.
func InitDB(conf *config.Config) error {
	// Set up GORM logger configuration
	var logLevel logger.LogLevel
	if conf.Server.Env == "development" {
		logLevel = logger.Info
	} else {
		logLevel = logger.Error
	}

	// Override log level if explicitly set in config
	switch conf.Database.LogLevel {
	case "silent":
		logLevel = logger.Silent
	case "error":
		logLevel = logger.Error
	case "warn":
		logLevel = logger.Warn
	case "info":
		logLevel = logger.Info
	}

	if dir := filepath.Dir(conf.Database.Path); dir != "." && !strings.HasPrefix(conf.Database.Path, ":memory:") {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// WAL keeps readers off the writer's lock, busy_timeout makes the engine
	// wait out short contention instead of failing immediately, and
	// synchronous=NORMAL relaxes fsync on the log only.
	dsn := buildDSN(conf.Database.Path, conf.Database.BusyTimeoutMs)

	var err error
	db, err = gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	cfg = &conf.Database

	// Configure connection pool settings
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	maxOpen := conf.Database.MaxOpenConns
	if strings.HasPrefix(conf.Database.Path, ":memory:") {
		// Each connection to :memory: is a distinct database.
		maxOpen = 1
	}
	sqlDB.SetMaxIdleConns(conf.Database.MaxIdleConns)
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetConnMaxLifetime(conf.Database.ConnMaxLifetime)

	log := zap.L()

	// Run migrations
	start := time.Now()
	log.Info("Starting database migration...")

	if err := db.AutoMigrate(
		&model.Tenant{},
		&model.PaymentRecord{},
		&model.SubscriptionLogEntry{},
		&model.OtpToken{},
		&model.Superadmin{},
		&model.Order{},
		&model.MenuItem{},
		&model.RestaurantTable{},
	); err != nil {
		log.Error("Database migration failed", zap.Error(err))
		return fmt.Errorf("failed to migrate database schema: %w", err)
	}

	log.Info("Database migration completed successfully",
		zap.Duration("duration", time.Since(start)))

	return nil
}

func buildDSN(path string, busyTimeoutMs int) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%s_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)",
		path, sep, busyTimeoutMs)
}

// GetDB returns a reference to the database instance
func GetDB() *gorm.DB {
	return db
}

// WithRetry runs op, retrying on SQLite lock contention with linearly
// increasing backoff (backoff, 2*backoff, ...). Every mutating operation in
// the service goes through here rather than carrying its own retry loop.
// After the attempts are exhausted it surfaces ErrContention so the request
// boundary can answer instead of blocking indefinitely.
func WithRetry(op func(tx *gorm.DB) error) error {
	attempts := 3
	backoff := 500 * time.Millisecond
	if cfg != nil {
		if cfg.RetryAttempts > 0 {
			attempts = cfg.RetryAttempts
		}
		if cfg.RetryBackoff > 0 {
			backoff = cfg.RetryBackoff
		}
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = op(db)
		if err == nil || !isBusy(err) {
			return err
		}
		if attempt < attempts {
			prometheus.DBRetryCounter.Inc()
			zap.L().Warn("Database locked, retrying",
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", attempts),
				zap.Error(err))
			time.Sleep(time.Duration(attempt) * backoff)
		}
	}
	zap.L().Error("Database still locked after retries", zap.Error(err))
	return fmt.Errorf("%w: %v", ErrContention, err)
}

// isBusy reports whether err is an SQLite lock-contention failure.
func isBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "SQLITE_BUSY") ||
		strings.Contains(msg, "database table is locked")
}

// Close closes the underlying connection pool.
func Close() error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
