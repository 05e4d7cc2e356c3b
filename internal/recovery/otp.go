package recovery

import (
	"errors"
	"time"

	"hotel-service/internal/model"
	"hotel-service/pkg/database"
	"hotel-service/prometheus"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrInvalidOrExpiredOTP is returned for any OTP verification failure.
// Deliberately generic: callers must not learn whether the code was wrong,
// expired, or already used.
var ErrInvalidOrExpiredOTP = errors.New("recovery: invalid or expired OTP")

// ErrAccountNotFound is returned when no tenant is owned by the email.
var ErrAccountNotFound = errors.New("recovery: account not found")

// ErrPasswordTooShort is returned when a new password fails the length policy.
var ErrPasswordTooShort = errors.New("recovery: password too short")

// RequestOTP issues a fresh 6-digit code for the email, replacing any
// earlier pending code. The caller hands the code to the mail collaborator;
// this layer never sends anything.
func RequestOTP(email string, expiry time.Duration) (string, error) {
	code := model.GenerateOTPCode()
	token := model.OtpToken{
		OwnerEmail: email,
		Code:       code,
		ExpiresAt:  time.Now().Add(expiry),
	}

	err := database.WithRetry(func(db *gorm.DB) error {
		return db.Transaction(func(tx *gorm.DB) error {
			// One pending code per email. Stale rows are inert anyway;
			// deleting them is tidiness, not correctness.
			if err := tx.Where("owner_email = ?", email).Delete(&model.OtpToken{}).Error; err != nil {
				return err
			}
			return tx.Create(&token).Error
		})
	})
	if err != nil {
		return "", err
	}

	prometheus.OTPIssuedCounter.Inc()
	zap.L().Info("OTP issued", zap.String("email", email))
	return code, nil
}

// VerifyOTP consumes an unused, unexpired token matching the code. On the
// first successful verification for an owner it marks every tenant owned
// by that email as verified.
func VerifyOTP(email, code string) error {
	err := database.WithRetry(func(db *gorm.DB) error {
		return db.Transaction(func(tx *gorm.DB) error {
			var token model.OtpToken
			err := tx.Where("owner_email = ? AND code = ? AND is_used = ? AND expires_at > ?",
				email, code, false, time.Now()).First(&token).Error
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrInvalidOrExpiredOTP
				}
				return err
			}

			if err := tx.Model(&token).Update("is_used", true).Error; err != nil {
				return err
			}

			return tx.Model(&model.Tenant{}).
				Where("owner_email = ? AND email_verified = ?", email, false).
				Update("email_verified", true).Error
		})
	})
	if err != nil {
		if errors.Is(err, ErrInvalidOrExpiredOTP) {
			prometheus.OTPVerificationCounter.WithLabelValues("rejected").Inc()
		}
		return err
	}

	prometheus.OTPVerificationCounter.WithLabelValues("verified").Inc()
	zap.L().Info("OTP verified", zap.String("email", email))
	return nil
}

// PurgeExpiredOTPs removes long-dead tokens. Best-effort housekeeping,
// called from the scheduler; expired tokens are already inert.
func PurgeExpiredOTPs() (int64, error) {
	var deleted int64
	err := database.WithRetry(func(db *gorm.DB) error {
		res := db.Where("expires_at < ?", time.Now().Add(-24*time.Hour)).Delete(&model.OtpToken{})
		deleted = res.RowsAffected
		return res.Error
	})
	return deleted, err
}
