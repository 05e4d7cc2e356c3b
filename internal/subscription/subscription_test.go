package subscription

import (
	"testing"
	"time"

	"hotel-service/internal/model"
	"hotel-service/pkg/config"
	"hotel-service/pkg/database"

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

func createTenant(t *testing.T, mutate func(*model.Tenant)) *model.Tenant {
	t.Helper()
	tenant := &model.Tenant{
		Name:               "Spice Garden",
		Slug:               "spice-garden",
		OwnerEmail:         "owner@spicegarden.in",
		IsActive:           true,
		SubscriptionStatus: model.StatusTrial,
		TrialEndsAt:        time.Now().Add(7 * 24 * time.Hour),
	}
	if mutate != nil {
		mutate(tenant)
	}
	// gorm omits zero-value fields carrying a default tag from the INSERT
	// and backfills the struct from the column default, so a false IsActive
	// must be written explicitly after create.
	active := tenant.IsActive
	require.NoError(t, database.GetDB().Create(tenant).Error)
	if !active {
		require.NoError(t, database.GetDB().Model(tenant).
			UpdateColumn("is_active", false).Error)
		tenant.IsActive = false
	}
	return tenant
}

func auditEntries(t *testing.T, tenantID uint, eventType string) []model.SubscriptionLogEntry {
	t.Helper()
	var entries []model.SubscriptionLogEntry
	require.NoError(t, database.GetDB().
		Where("tenant_id = ? AND event_type = ?", tenantID, eventType).
		Find(&entries).Error)
	return entries
}

func TestActivateSetsFullPeriod(t *testing.T) {
	setupDB(t)
	tenant := createTenant(t, nil)

	now := time.Now()
	err := database.WithRetry(func(db *gorm.DB) error {
		return db.Transaction(func(tx *gorm.DB) error {
			return Activate(tx, tenant, "pro", "pay_123", now)
		})
	})
	require.NoError(t, err)

	var got model.Tenant
	require.NoError(t, database.GetDB().First(&got, tenant.ID).Error)
	assert.Equal(t, model.StatusActive, got.SubscriptionStatus)
	assert.Equal(t, "pro", got.SubscriptionPlan)
	assert.True(t, got.IsActive)
	require.NotNil(t, got.SubscriptionEnd)
	assert.WithinDuration(t, now.Add(30*24*time.Hour), *got.SubscriptionEnd, time.Second)
	require.NotNil(t, got.LastPaymentDate)

	entries := auditEntries(t, tenant.ID, "subscription_activated")
	require.Len(t, entries, 1)
	assert.Equal(t, model.StatusTrial, entries[0].OldStatus)
	assert.Equal(t, model.StatusActive, entries[0].NewStatus)
}

func TestActivateRenewalLogsRenewedEvent(t *testing.T) {
	setupDB(t)
	end := time.Now().Add(2 * 24 * time.Hour)
	tenant := createTenant(t, func(tn *model.Tenant) {
		tn.SubscriptionStatus = model.StatusActive
		tn.SubscriptionPlan = "basic"
		tn.SubscriptionEnd = &end
	})

	err := database.WithRetry(func(db *gorm.DB) error {
		return db.Transaction(func(tx *gorm.DB) error {
			return Activate(tx, tenant, "basic", "pay_456", time.Now())
		})
	})
	require.NoError(t, err)

	assert.Len(t, auditEntries(t, tenant.ID, "subscription_renewed"), 1)
	assert.Empty(t, auditEntries(t, tenant.ID, "subscription_activated"))
}

func TestActivateRejectsUnknownPlan(t *testing.T) {
	setupDB(t)
	tenant := createTenant(t, nil)

	err := database.WithRetry(func(db *gorm.DB) error {
		return db.Transaction(func(tx *gorm.DB) error {
			return Activate(tx, tenant, "platinum", "pay_789", time.Now())
		})
	})
	assert.ErrorIs(t, err, ErrInvalidPlan)
}

func TestAccessGateIsTimeBasedNotColumnBased(t *testing.T) {
	setupDB(t)

	// Stored status still says active, but the period has lapsed and no
	// sweep has run yet. The gate must not trust the stale column.
	past := time.Now().Add(-time.Hour)
	lapsed := createTenant(t, func(tn *model.Tenant) {
		tn.Slug = "lapsed"
		tn.SubscriptionStatus = model.StatusActive
		tn.SubscriptionPlan = "basic"
		tn.SubscriptionEnd = &past
	})
	assert.False(t, IsSubscriptionActive(lapsed.ID))

	onTrial := createTenant(t, func(tn *model.Tenant) { tn.Slug = "on-trial" })
	assert.True(t, IsSubscriptionActive(onTrial.ID))

	expiredTrial := createTenant(t, func(tn *model.Tenant) {
		tn.Slug = "expired-trial"
		tn.TrialEndsAt = time.Now().Add(-time.Minute)
	})
	assert.False(t, IsSubscriptionActive(expiredTrial.ID))

	deactivated := createTenant(t, func(tn *model.Tenant) {
		tn.Slug = "deactivated"
		tn.IsActive = false
	})
	assert.False(t, IsSubscriptionActive(deactivated.ID))

	assert.False(t, IsSubscriptionActive(99999))
}

func TestHasBlockingSubscription(t *testing.T) {
	setupDB(t)

	future := time.Now().Add(10 * 24 * time.Hour)
	active := createTenant(t, func(tn *model.Tenant) {
		tn.Slug = "paid"
		tn.SubscriptionStatus = model.StatusActive
		tn.SubscriptionPlan = "pro"
		tn.SubscriptionEnd = &future
	})

	dup, err := HasBlockingSubscription(database.GetDB(), active.ID)
	require.NoError(t, err)
	require.NotNil(t, dup)
	assert.Equal(t, "pro", dup.ExistingPlan)
	assert.WithinDuration(t, future, dup.ActiveUntil, time.Second)
	assert.Contains(t, dup.Error(), "pro")

	// A lapsed subscription no longer blocks renewal.
	past := time.Now().Add(-time.Hour)
	lapsed := createTenant(t, func(tn *model.Tenant) {
		tn.Slug = "lapsed"
		tn.SubscriptionStatus = model.StatusActive
		tn.SubscriptionEnd = &past
	})
	dup, err = HasBlockingSubscription(database.GetDB(), lapsed.ID)
	require.NoError(t, err)
	assert.Nil(t, dup)

	_, err = HasBlockingSubscription(database.GetDB(), 99999)
	assert.ErrorIs(t, err, ErrTenantNotFound)
}

func TestSweepExpiredTransitionsBothKinds(t *testing.T) {
	setupDB(t)

	expiredTrial := createTenant(t, func(tn *model.Tenant) {
		tn.Slug = "trial-over"
		tn.TrialEndsAt = time.Now().Add(-time.Hour)
	})
	past := time.Now().Add(-time.Minute)
	lapsedSub := createTenant(t, func(tn *model.Tenant) {
		tn.Slug = "sub-over"
		tn.SubscriptionStatus = model.StatusActive
		tn.SubscriptionPlan = "basic"
		tn.SubscriptionEnd = &past
	})
	healthy := createTenant(t, func(tn *model.Tenant) { tn.Slug = "healthy" })

	n, err := SweepExpired()
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	var got model.Tenant
	require.NoError(t, database.GetDB().First(&got, expiredTrial.ID).Error)
	assert.Equal(t, model.StatusTrialExpired, got.SubscriptionStatus)
	assert.False(t, got.IsActive)
	assert.Len(t, auditEntries(t, expiredTrial.ID, "trial_expired"), 1)

	got = model.Tenant{}
	require.NoError(t, database.GetDB().First(&got, lapsedSub.ID).Error)
	assert.Equal(t, model.StatusTrialExpired, got.SubscriptionStatus)
	assert.Len(t, auditEntries(t, lapsedSub.ID, "subscription_expired"), 1)

	got = model.Tenant{}
	require.NoError(t, database.GetDB().First(&got, healthy.ID).Error)
	assert.Equal(t, model.StatusTrial, got.SubscriptionStatus)
	assert.True(t, got.IsActive)
}

func TestSweepIsIdempotent(t *testing.T) {
	setupDB(t)
	tenant := createTenant(t, func(tn *model.Tenant) {
		tn.TrialEndsAt = time.Now().Add(-time.Hour)
	})

	n, err := SweepExpired()
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// Second run finds nothing; exactly one audit entry total.
	n, err = SweepExpired()
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Len(t, auditEntries(t, tenant.ID, "trial_expired"), 1)
}

func TestDeactivateWritesAudit(t *testing.T) {
	setupDB(t)
	tenant := createTenant(t, nil)

	require.NoError(t, Deactivate(tenant.ID, "terms violation"))

	var got model.Tenant
	require.NoError(t, database.GetDB().First(&got, tenant.ID).Error)
	assert.Equal(t, model.StatusInactive, got.SubscriptionStatus)
	assert.False(t, got.IsActive)

	entries := auditEntries(t, tenant.ID, "account_deactivated")
	require.Len(t, entries, 1)
	assert.Equal(t, "terms violation", entries[0].Description)

	assert.ErrorIs(t, Deactivate(99999, "x"), ErrTenantNotFound)
}

func TestGetStatus(t *testing.T) {
	setupDB(t)

	end := time.Now().Add(12 * 24 * time.Hour)
	paid := time.Now().Add(-18 * 24 * time.Hour)
	tenant := createTenant(t, func(tn *model.Tenant) {
		tn.SubscriptionStatus = model.StatusActive
		tn.SubscriptionPlan = "enterprise"
		tn.SubscriptionEnd = &end
		tn.LastPaymentDate = &paid
	})

	st, err := GetStatus(tenant.ID)
	require.NoError(t, err)
	assert.True(t, st.HasSubscription)
	assert.True(t, st.IsActive)
	assert.Equal(t, "enterprise", st.Plan)
	assert.Equal(t, 11, st.DaysRemaining)
	require.NotNil(t, st.LastPaymentDate)

	_, err = GetStatus(99999)
	assert.ErrorIs(t, err, ErrTenantNotFound)
}

func TestPlanCatalog(t *testing.T) {
	assert.True(t, ValidPlan("basic"))
	assert.True(t, ValidPlan("pro"))
	assert.True(t, ValidPlan("enterprise"))
	assert.False(t, ValidPlan("platinum"))
	assert.False(t, ValidPlan(""))

	assert.Equal(t, int64(2499), Plans["basic"].Price)
	assert.Equal(t, int64(5999), Plans["pro"].Price)
	assert.Equal(t, int64(15999), Plans["enterprise"].Price)
	for id, p := range Plans {
		assert.Equal(t, 30, p.PeriodDays, "plan %s", id)
	}
}
