package recovery

import (
	"errors"

	"hotel-service/internal/model"
	"hotel-service/pkg/database"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Credentials are stored only as bcrypt hashes. The legacy "show stored
// password" operator feature is deliberately not supported; the operator
// path issues a fresh temporary password instead (IssueTempPassword).

// ResetOwnerPassword replaces the credential hash on every tenant owned by
// the email. Used by the self-service flow after OTP verification.
func ResetOwnerPassword(email, newPassword string, minLength int) error {
	if len(newPassword) < minLength {
		return ErrPasswordTooShort
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	return database.WithRetry(func(db *gorm.DB) error {
		res := db.Model(&model.Tenant{}).
			Where("owner_email = ?", email).
			Update("password_hash", string(hash))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrAccountNotFound
		}
		zap.L().Info("Owner password reset", zap.String("email", email))
		return nil
	})
}

// SuperadminResetPassword sets a new password for one tenant on behalf of
// an operator and appends an audit entry.
func SuperadminResetPassword(tenantID uint, newPassword string, minLength int, operator string) error {
	if len(newPassword) < minLength {
		return ErrPasswordTooShort
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	return database.WithRetry(func(db *gorm.DB) error {
		return db.Transaction(func(tx *gorm.DB) error {
			var tenant model.Tenant
			if err := tx.First(&tenant, tenantID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrAccountNotFound
				}
				return err
			}
			if err := tx.Model(&tenant).Update("password_hash", string(hash)).Error; err != nil {
				return err
			}
			entry := model.SubscriptionLogEntry{
				TenantID:    tenant.ID,
				EventType:   "password_reset",
				Description: "Password reset by superadmin " + operator,
				OldStatus:   tenant.SubscriptionStatus,
				NewStatus:   tenant.SubscriptionStatus,
			}
			return tx.Create(&entry).Error
		})
	})
}

// IssueTempPassword generates a one-time password for a tenant, replaces
// the stored hash with it, and returns the plaintext to the operator
// exactly once. Every invocation is audited.
func IssueTempPassword(tenantID uint, operator string) (string, error) {
	temp := model.GenerateTempPassword()
	hash, err := bcrypt.GenerateFromPassword([]byte(temp), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}

	err = database.WithRetry(func(db *gorm.DB) error {
		return db.Transaction(func(tx *gorm.DB) error {
			var tenant model.Tenant
			if err := tx.First(&tenant, tenantID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrAccountNotFound
				}
				return err
			}
			if err := tx.Model(&tenant).Update("password_hash", string(hash)).Error; err != nil {
				return err
			}
			entry := model.SubscriptionLogEntry{
				TenantID:    tenant.ID,
				EventType:   "temp_password_issued",
				Description: "Temporary password issued by superadmin " + operator,
				OldStatus:   tenant.SubscriptionStatus,
				NewStatus:   tenant.SubscriptionStatus,
			}
			return tx.Create(&entry).Error
		})
	})
	if err != nil {
		return "", err
	}

	zap.L().Warn("Temporary password issued",
		zap.Uint("tenant_id", tenantID),
		zap.String("operator", operator))
	return temp, nil
}

// AuthenticateSuperadmin checks operator credentials.
func AuthenticateSuperadmin(username, password string) (*model.Superadmin, error) {
	var admin model.Superadmin
	if err := database.GetDB().Where("username = ?", username).First(&admin).Error; err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)); err != nil {
		return nil, err
	}
	return &admin, nil
}

// SeedDefaultSuperadmin creates the initial operator account on an empty
// store. Idempotent.
func SeedDefaultSuperadmin(username, password string) error {
	return database.WithRetry(func(db *gorm.DB) error {
		var count int64
		if err := db.Model(&model.Superadmin{}).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		zap.L().Warn("Seeding default superadmin account; change the password",
			zap.String("username", username))
		return db.Create(&model.Superadmin{
			Username:     username,
			PasswordHash: string(hash),
		}).Error
	})
}
