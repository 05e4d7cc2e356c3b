package database

import (
	"errors"
	"testing"
	"time"

	"hotel-service/internal/model"
	"hotel-service/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Env: "test"},
		Database: config.DatabaseConfig{
			Path:          ":memory:",
			BusyTimeoutMs: 5000,
			MaxOpenConns:  4,
			MaxIdleConns:  1,
			RetryAttempts: 3,
			RetryBackoff:  time.Millisecond,
			LogLevel:      "silent",
		},
	}
}

func setupDB(t *testing.T) {
	t.Helper()
	require.NoError(t, InitDB(testConfig()))
	t.Cleanup(func() { _ = Close() })
}

func TestBuildDSN(t *testing.T) {
	dsn := buildDSN("data/hotel.db", 30000)
	assert.Equal(t, "data/hotel.db?_pragma=busy_timeout(30000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)", dsn)

	// A path that already carries parameters gets appended, not doubled.
	dsn = buildDSN("file:test.db?cache=shared", 1000)
	assert.Contains(t, dsn, "cache=shared&_pragma=busy_timeout(1000)")
}

func TestInitDBMigratesSchema(t *testing.T) {
	setupDB(t)

	migrator := GetDB().Migrator()
	for _, m := range []interface{}{
		&model.Tenant{},
		&model.PaymentRecord{},
		&model.SubscriptionLogEntry{},
		&model.OtpToken{},
		&model.Superadmin{},
	} {
		assert.True(t, migrator.HasTable(m), "expected table for %T", m)
	}
}

func TestInitDBMemoryUsesSingleConnection(t *testing.T) {
	setupDB(t)

	sqlDB, err := GetDB().DB()
	require.NoError(t, err)
	assert.Equal(t, 1, sqlDB.Stats().MaxOpenConnections)
}

func TestWithRetryPassesThroughNonBusyErrors(t *testing.T) {
	setupDB(t)

	boom := errors.New("constraint failed")
	calls := 0
	err := WithRetry(func(tx *gorm.DB) error {
		calls++
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls, "non-contention errors must not be retried")
}

func TestWithRetrySucceedsAfterContention(t *testing.T) {
	setupDB(t)

	calls := 0
	err := WithRetry(func(tx *gorm.DB) error {
		calls++
		if calls < 3 {
			return errors.New("database is locked (5) (SQLITE_BUSY)")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestWithRetrySurfacesContention(t *testing.T) {
	setupDB(t)

	calls := 0
	err := WithRetry(func(tx *gorm.DB) error {
		calls++
		return errors.New("database is locked")
	})
	assert.ErrorIs(t, err, ErrContention)
	assert.Equal(t, 3, calls, "should use every configured attempt before giving up")
}

func TestIsBusy(t *testing.T) {
	assert.False(t, isBusy(nil))
	assert.False(t, isBusy(errors.New("UNIQUE constraint failed")))
	assert.True(t, isBusy(errors.New("database is locked")))
	assert.True(t, isBusy(errors.New("sqlite error: SQLITE_BUSY")))
	assert.True(t, isBusy(errors.New("database table is locked")))
}
