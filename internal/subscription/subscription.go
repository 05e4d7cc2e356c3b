package subscription

import (
	"errors"
	"time"

	"hotel-service/internal/model"
	"hotel-service/pkg/database"
	"hotel-service/prometheus"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Status is the externally visible subscription state of one tenant.
// IsActive is recomputed against the clock on every call; the stored
// status column is only advanced by the sweep path.
type Status struct {
	HasSubscription bool       `json:"has_subscription"`
	IsActive        bool       `json:"is_active"`
	Status          string     `json:"status"`
	Plan            string     `json:"plan,omitempty"`
	ActiveUntil     *time.Time `json:"active_until,omitempty"`
	LastPaymentDate *time.Time `json:"last_payment_date,omitempty"`
	DaysRemaining   int        `json:"days_remaining"`
}

// GetStatus returns the tenant's subscription status with the activity
// flag recomputed from the current time.
func GetStatus(tenantID uint) (*Status, error) {
	var tenant model.Tenant
	if err := database.GetDB().First(&tenant, tenantID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTenantNotFound
		}
		return nil, err
	}

	now := time.Now()
	st := &Status{
		HasSubscription: true,
		IsActive:        activeAt(&tenant, now),
		Status:          tenant.SubscriptionStatus,
		Plan:            tenant.SubscriptionPlan,
		LastPaymentDate: tenant.LastPaymentDate,
	}

	switch tenant.SubscriptionStatus {
	case model.StatusActive:
		st.ActiveUntil = tenant.SubscriptionEnd
	case model.StatusTrial:
		until := tenant.TrialEndsAt
		st.ActiveUntil = &until
	}
	if st.ActiveUntil != nil {
		if remaining := int(time.Until(*st.ActiveUntil).Hours() / 24); remaining > 0 {
			st.DaysRemaining = remaining
		}
	}
	return st, nil
}

// IsSubscriptionActive is the access gate consulted by feature-gated
// operations. Evaluated fresh on every call, never cached: trial and
// subscription boundaries are time-sensitive.
func IsSubscriptionActive(tenantID uint) bool {
	var tenant model.Tenant
	if err := database.GetDB().First(&tenant, tenantID).Error; err != nil {
		return false
	}
	return activeAt(&tenant, time.Now())
}

// activeAt implements the single access-gate rule: the stored status field
// is never trusted past its end date.
func activeAt(t *model.Tenant, now time.Time) bool {
	if !t.IsActive {
		return false
	}
	switch t.SubscriptionStatus {
	case model.StatusTrial:
		return now.Before(t.TrialEndsAt)
	case model.StatusActive:
		return t.SubscriptionEnd != nil && now.Before(*t.SubscriptionEnd)
	}
	return false
}

// HasBlockingSubscription returns a DuplicateSubscriptionError when the
// tenant already holds an active, unexpired subscription, nil otherwise.
// Callers that are about to write must run this inside the same transaction
// as the write, so two concurrent payment callbacks cannot both pass.
func HasBlockingSubscription(tx *gorm.DB, tenantID uint) (*DuplicateSubscriptionError, error) {
	var tenant model.Tenant
	if err := tx.First(&tenant, tenantID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTenantNotFound
		}
		return nil, err
	}
	if tenant.SubscriptionStatus == model.StatusActive &&
		tenant.SubscriptionEnd != nil && time.Now().Before(*tenant.SubscriptionEnd) {
		return &DuplicateSubscriptionError{
			ExistingPlan: tenant.SubscriptionPlan,
			ActiveUntil:  *tenant.SubscriptionEnd,
		}, nil
	}
	return nil, nil
}

// Activate performs the trial→active (or renewal) transition for a tenant
// inside the caller's transaction. The caller is responsible for having
// checked HasBlockingSubscription in the same transaction.
func Activate(tx *gorm.DB, tenant *model.Tenant, planID, paymentID string, now time.Time) error {
	plan, ok := Plans[planID]
	if !ok {
		return ErrInvalidPlan
	}

	oldStatus := tenant.SubscriptionStatus
	end := now.Add(time.Duration(plan.PeriodDays) * 24 * time.Hour)

	updates := map[string]interface{}{
		"subscription_status": model.StatusActive,
		"subscription_plan":   planID,
		"subscription_start":  now,
		"subscription_end":    end,
		"last_payment_date":   now,
		"is_active":           true,
	}
	if err := tx.Model(tenant).Updates(updates).Error; err != nil {
		return err
	}

	eventType := "subscription_activated"
	if oldStatus == model.StatusActive {
		eventType = "subscription_renewed"
	}
	entry := model.SubscriptionLogEntry{
		TenantID:    tenant.ID,
		EventType:   eventType,
		Description: "Activated " + plan.Name + " plan, payment " + paymentID,
		OldStatus:   oldStatus,
		NewStatus:   model.StatusActive,
	}
	if err := tx.Create(&entry).Error; err != nil {
		return err
	}

	tenant.SubscriptionStatus = model.StatusActive
	tenant.SubscriptionPlan = planID
	tenant.SubscriptionStart = &now
	tenant.SubscriptionEnd = &end
	tenant.LastPaymentDate = &now
	tenant.IsActive = true

	prometheus.SubscriptionActivationCounter.WithLabelValues(planID).Inc()
	return nil
}

// Deactivate is the explicit operator path to the inactive state. It is
// never taken spontaneously, which is what lets the reaper require the
// trial_expired status exactly.
func Deactivate(tenantID uint, reason string) error {
	return database.WithRetry(func(db *gorm.DB) error {
		return db.Transaction(func(tx *gorm.DB) error {
			var tenant model.Tenant
			if err := tx.First(&tenant, tenantID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrTenantNotFound
				}
				return err
			}
			oldStatus := tenant.SubscriptionStatus
			if err := tx.Model(&tenant).Updates(map[string]interface{}{
				"subscription_status": model.StatusInactive,
				"is_active":           false,
			}).Error; err != nil {
				return err
			}
			entry := model.SubscriptionLogEntry{
				TenantID:    tenant.ID,
				EventType:   "account_deactivated",
				Description: reason,
				OldStatus:   oldStatus,
				NewStatus:   model.StatusInactive,
			}
			return tx.Create(&entry).Error
		})
	})
}

// SweepExpired is the authoritative time-driven transition. It moves every
// tenant whose active subscription or trial has run past its end to
// trial_expired, clears is_active, and appends one audit entry per tenant.
// Read-time access checks already treat these tenants as inactive; the
// sweep keeps the stored column from diverging.
func SweepExpired() (int, error) {
	defer prometheus.TrackDBOperation("expiry_sweep")(time.Now())

	now := time.Now()
	total := 0

	err := database.WithRetry(func(db *gorm.DB) error {
		return db.Transaction(func(tx *gorm.DB) error {
			total = 0

			var lapsedSubs []model.Tenant
			if err := tx.Where("subscription_status = ? AND subscription_end IS NOT NULL AND subscription_end <= ?",
				model.StatusActive, now).Find(&lapsedSubs).Error; err != nil {
				return err
			}
			for i := range lapsedSubs {
				if err := expire(tx, &lapsedSubs[i], "subscription_expired",
					"Subscription period ended"); err != nil {
					return err
				}
			}
			total += len(lapsedSubs)

			var lapsedTrials []model.Tenant
			if err := tx.Where("subscription_status = ? AND trial_ends_at <= ?",
				model.StatusTrial, now).Find(&lapsedTrials).Error; err != nil {
				return err
			}
			for i := range lapsedTrials {
				if err := expire(tx, &lapsedTrials[i], "trial_expired",
					"Free trial period ended"); err != nil {
					return err
				}
			}
			total += len(lapsedTrials)
			return nil
		})
	})
	if err != nil {
		return 0, err
	}

	if total > 0 {
		zap.L().Info("Expiry sweep completed", zap.Int("expired", total))
		prometheus.SweepTransitionCounter.Add(float64(total))
	}
	return total, nil
}

func expire(tx *gorm.DB, tenant *model.Tenant, eventType, description string) error {
	oldStatus := tenant.SubscriptionStatus
	if err := tx.Model(tenant).Updates(map[string]interface{}{
		"subscription_status": model.StatusTrialExpired,
		"is_active":           false,
	}).Error; err != nil {
		return err
	}
	entry := model.SubscriptionLogEntry{
		TenantID:    tenant.ID,
		EventType:   eventType,
		Description: description,
		OldStatus:   oldStatus,
		NewStatus:   model.StatusTrialExpired,
	}
	return tx.Create(&entry).Error
}
