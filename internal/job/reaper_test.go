package job

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"hotel-service/internal/model"
	"hotel-service/pkg/config"
	"hotel-service/pkg/database"
	"hotel-service/prometheus"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupDB(t *testing.T) {
	t.Helper()
	cfg := &config.Config{
		Server: config.ServerConfig{Env: "test"},
		Database: config.DatabaseConfig{
			Path:          ":memory:",
			BusyTimeoutMs: 5000,
			MaxOpenConns:  1,
			MaxIdleConns:  1,
			RetryAttempts: 3,
			RetryBackoff:  time.Millisecond,
			LogLevel:      "silent",
		},
	}
	require.NoError(t, database.InitDB(cfg))
	t.Cleanup(func() { _ = database.Close() })
}

// setupFileDB uses an on-disk store with a real connection pool. Needed by
// tests that write from a second connection while a scan is in flight;
// every connection to :memory: is its own database.
func setupFileDB(t *testing.T) {
	t.Helper()
	cfg := &config.Config{
		Server: config.ServerConfig{Env: "test"},
		Database: config.DatabaseConfig{
			Path:          filepath.Join(t.TempDir(), "reaper.db"),
			BusyTimeoutMs: 5000,
			MaxOpenConns:  4,
			MaxIdleConns:  2,
			RetryAttempts: 3,
			RetryBackoff:  time.Millisecond,
			LogLevel:      "silent",
		},
	}
	require.NoError(t, database.InitDB(cfg))
	t.Cleanup(func() { _ = database.Close() })
}

// seedTenant creates a tenant with an explicit age in days. gorm fills
// created_at on insert, so the backdate is a second write.
func seedTenant(t *testing.T, slug, status string, ageDays int, paid, active bool) *model.Tenant {
	t.Helper()
	tenant := &model.Tenant{
		Name:               slug,
		Slug:               slug,
		OwnerEmail:         "owner@" + slug + ".example",
		IsActive:           active,
		SubscriptionStatus: status,
		TrialEndsAt:        time.Now().Add(-time.Duration(ageDays-7) * 24 * time.Hour),
	}
	if paid {
		when := time.Now().Add(-time.Duration(ageDays) * 24 * time.Hour)
		tenant.LastPaymentDate = &when
	}
	require.NoError(t, database.GetDB().Create(tenant).Error)

	backdated := time.Now().Add(-time.Duration(ageDays) * 24 * time.Hour)
	require.NoError(t, database.GetDB().Model(tenant).
		UpdateColumns(map[string]interface{}{"created_at": backdated, "is_active": active}).Error)
	return tenant
}

func tenantExists(t *testing.T, id uint) bool {
	t.Helper()
	var tenant model.Tenant
	err := database.GetDB().First(&tenant, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false
	}
	require.NoError(t, err)
	return true
}

func TestReaperDeletesOnlyFullyEligibleTenants(t *testing.T) {
	setupDB(t)

	eligible := seedTenant(t, "eligible", model.StatusTrialExpired, 60, false, false)
	paidOnce := seedTenant(t, "paid-once", model.StatusTrialExpired, 60, true, false)
	tooYoung := seedTenant(t, "too-young", model.StatusTrialExpired, 10, false, false)
	stillActive := seedTenant(t, "still-active", model.StatusActive, 60, false, true)
	deactivated := seedTenant(t, "deactivated", model.StatusInactive, 60, false, false)

	n, err := ReapInactiveTenants(31)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	assert.False(t, tenantExists(t, eligible.ID))
	assert.True(t, tenantExists(t, paidOnce.ID), "a tenant that ever paid must never be reaped")
	assert.True(t, tenantExists(t, tooYoung.ID))
	assert.True(t, tenantExists(t, stillActive.ID))
	assert.True(t, tenantExists(t, deactivated.ID), "operator-deactivated accounts are kept")
}

func TestReaperCascadesDependentRows(t *testing.T) {
	setupDB(t)
	tenant := seedTenant(t, "doomed", model.StatusTrialExpired, 60, false, false)

	db := database.GetDB()
	require.NoError(t, db.Create(&model.Order{TenantID: tenant.ID, Items: "[]", Total: 450}).Error)
	require.NoError(t, db.Create(&model.MenuItem{TenantID: tenant.ID, Name: "Masala Dosa", Price: 120}).Error)
	require.NoError(t, db.Create(&model.RestaurantTable{TenantID: tenant.ID, Number: 4, QRCode: "qr-doomed-4"}).Error)
	require.NoError(t, db.Create(&model.PaymentRecord{TenantID: tenant.ID, GatewayOrderID: "order_x", Status: model.PaymentFailed}).Error)
	require.NoError(t, db.Create(&model.SubscriptionLogEntry{TenantID: tenant.ID, EventType: "trial_expired"}).Error)

	n, err := ReapInactiveTenants(31)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	for _, m := range []interface{}{
		&model.Order{}, &model.MenuItem{}, &model.RestaurantTable{},
		&model.PaymentRecord{}, &model.SubscriptionLogEntry{},
	} {
		var count int64
		require.NoError(t, db.Model(m).Where("tenant_id = ?", tenant.ID).Count(&count).Error)
		assert.Zero(t, count, "dependent %T rows must be removed with the tenant", m)
	}
}

func TestReaperSkipsCandidateInvalidatedAfterScan(t *testing.T) {
	setupFileDB(t)
	tenant := seedTenant(t, "late-payer", model.StatusTrialExpired, 60, false, false)

	db := database.GetDB()
	skippedBefore := testutil.ToFloat64(prometheus.DeletionSkippedCounter)

	// A payment lands right after the scan picks the candidate and before
	// the delete transaction re-checks it. The re-check must notice and
	// keep the tenant.
	fired := false
	require.NoError(t, db.Callback().Query().After("gorm:query").
		Register("pay_after_scan", func(tx *gorm.DB) {
			if fired || tx.Statement.Table != "tenants" {
				return
			}
			fired = true
			tx.Session(&gorm.Session{NewDB: true}).
				Exec("UPDATE tenants SET last_payment_date = ? WHERE id = ?", time.Now(), tenant.ID)
		}))
	t.Cleanup(func() { _ = db.Callback().Query().Remove("pay_after_scan") })

	n, err := ReapInactiveTenants(31)
	require.NoError(t, err)
	assert.Zero(t, n)
	require.True(t, fired, "the interim payment must land during the pass")

	assert.True(t, tenantExists(t, tenant.ID), "a tenant that paid mid-pass must survive")
	assert.Equal(t, skippedBefore+1, testutil.ToFloat64(prometheus.DeletionSkippedCounter))
}

func TestReaperNoCandidates(t *testing.T) {
	setupDB(t)
	seedTenant(t, "healthy", model.StatusTrial, 2, false, true)

	n, err := ReapInactiveTenants(31)
	require.NoError(t, err)
	assert.Zero(t, n)
}
