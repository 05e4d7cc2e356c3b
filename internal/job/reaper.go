package job

import (
	"errors"
	"time"

	"hotel-service/internal/model"
	"hotel-service/pkg/database"
	"hotel-service/prometheus"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// errDeletionSkipped signals that the safety re-check failed between scan
// and delete. Informational, never surfaced to a caller; the reaper has none.
var errDeletionSkipped = errors.New("job: deletion re-check failed, candidate skipped")

// ReapInactiveTenants permanently deletes dormant tenants. A tenant is
// eligible only when all four conditions hold at once:
//
//  1. subscription_status is trial_expired exactly
//  2. the tenant has never paid (last_payment_date is null)
//  3. the account is older than the retention threshold
//  4. is_active is false
//
// The conditions are re-verified inside the delete transaction to close
// the window between scan and delete. There is no undo; a payment arriving
// mid-scan must win over the delete.
func ReapInactiveTenants(deleteAfterDays int) (int, error) {
	defer prometheus.TrackDBOperation("inactivity_reap")(time.Now())

	threshold := time.Now().AddDate(0, 0, -deleteAfterDays)
	log := zap.L().Named("reaper")

	var candidates []model.Tenant
	err := database.GetDB().
		Where("subscription_status = ? AND last_payment_date IS NULL AND created_at < ? AND is_active = ?",
			model.StatusTrialExpired, threshold, false).
		Find(&candidates).Error
	if err != nil {
		return 0, err
	}

	if len(candidates) == 0 {
		return 0, nil
	}
	log.Info("Inactivity scan found deletion candidates",
		zap.Int("count", len(candidates)),
		zap.Time("created_before", threshold))

	deleted := 0
	for i := range candidates {
		c := &candidates[i]
		log.Info("Evaluating tenant for deletion",
			zap.Uint("tenant_id", c.ID),
			zap.String("slug", c.Slug),
			zap.String("subscription_status", c.SubscriptionStatus),
			zap.Bool("never_paid", c.LastPaymentDate == nil),
			zap.Time("created_at", c.CreatedAt),
			zap.Bool("is_active", c.IsActive))

		err := database.WithRetry(func(db *gorm.DB) error {
			return db.Transaction(func(tx *gorm.DB) error {
				// Final confirmation with the same four conditions.
				var verified model.Tenant
				err := tx.Where("id = ? AND subscription_status = ? AND last_payment_date IS NULL AND created_at < ? AND is_active = ?",
					c.ID, model.StatusTrialExpired, threshold, false).
					First(&verified).Error
				if err != nil {
					if errors.Is(err, gorm.ErrRecordNotFound) {
						return errDeletionSkipped
					}
					return err
				}
				return cascadeDelete(tx, verified.ID)
			})
		})
		switch {
		case errors.Is(err, errDeletionSkipped):
			log.Warn("Tenant no longer meets deletion criteria, skipped",
				zap.Uint("tenant_id", c.ID))
			prometheus.DeletionSkippedCounter.Inc()
		case err != nil:
			log.Error("Failed to delete tenant", zap.Uint("tenant_id", c.ID), zap.Error(err))
		default:
			log.Info("Deleted expired trial tenant",
				zap.Uint("tenant_id", c.ID),
				zap.String("slug", c.Slug))
			prometheus.ReapedTenantsCounter.Inc()
			deleted++
		}
	}

	log.Info("Inactivity check completed",
		zap.Int("evaluated", len(candidates)),
		zap.Int("deleted", deleted))
	return deleted, nil
}

// cascadeDelete removes the tenant row and every dependent row keyed by
// tenant id, inside the caller's transaction.
func cascadeDelete(tx *gorm.DB, tenantID uint) error {
	for _, dependent := range []interface{}{
		&model.Order{},
		&model.MenuItem{},
		&model.RestaurantTable{},
		&model.PaymentRecord{},
		&model.SubscriptionLogEntry{},
	} {
		if err := tx.Where("tenant_id = ?", tenantID).Delete(dependent).Error; err != nil {
			return err
		}
	}
	return tx.Delete(&model.Tenant{}, tenantID).Error
}
