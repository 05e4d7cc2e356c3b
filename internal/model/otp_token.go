package model

import (
	"time"
)

// OtpToken is a short-lived credential-recovery code. Keyed by email, not
// tenant id, because recovery must work before a specific hotel is selected
// in multi-hotel accounts. Expired tokens are inert; cleanup is best-effort.
type OtpToken struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	OwnerEmail string    `json:"owner_email" gorm:"type:varchar(100);index;not null"`
	Code       string    `json:"-" gorm:"type:varchar(6);not null"`
	ExpiresAt  time.Time `json:"expires_at" gorm:"not null"`
	IsUsed     bool      `json:"is_used" gorm:"default:false"`
	CreatedAt  time.Time `json:"created_at"`
}

// IsExpired checks if the token is past its expiry.
func (t *OtpToken) IsExpired() bool {
	return time.Now().After(t.ExpiresAt)
}

// IsValid checks if the token can still be consumed.
func (t *OtpToken) IsValid() bool {
	return !t.IsUsed && !t.IsExpired()
}
