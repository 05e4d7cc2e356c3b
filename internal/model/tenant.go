package model

import (
	"time"
)

// Subscription status values. trial_expired is distinct from inactive:
// trial_expired means the trial ran out on its own, inactive means an
// operator deliberately deactivated the account. The reaper only ever
// considers trial_expired tenants.
const (
	StatusTrial        = "trial"
	StatusActive       = "active"
	StatusTrialExpired = "trial_expired"
	StatusInactive     = "inactive"
)

// Tenant represents one hotel/restaurant account, the unit of data
// isolation and billing.
type Tenant struct {
	ID   uint   `json:"id" gorm:"primaryKey"`
	Name string `json:"name" gorm:"type:varchar(100);not null"`
	// Slug is the URL-safe hotel identifier. Immutable after signup.
	Slug string `json:"slug" gorm:"type:varchar(50);uniqueIndex;not null"`

	// One email may own multiple tenants, so no unique index here.
	OwnerEmail    string `json:"owner_email" gorm:"type:varchar(100);index;not null"`
	PasswordHash  string `json:"-" gorm:"type:varchar(255)"`
	EmailVerified bool   `json:"email_verified" gorm:"default:false"`

	IsActive           bool       `json:"is_active" gorm:"default:true"`
	SubscriptionStatus string     `json:"subscription_status" gorm:"type:varchar(20);index;default:trial"`
	SubscriptionPlan   string     `json:"subscription_plan" gorm:"type:varchar(20)"`
	TrialEndsAt        time.Time  `json:"trial_ends_at" gorm:"not null"`
	SubscriptionStart  *time.Time `json:"subscription_start_date,omitempty"`
	SubscriptionEnd    *time.Time `json:"subscription_end_date,omitempty"`
	LastPaymentDate    *time.Time `json:"last_payment_date,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Superadmin represents a platform operator account.
type Superadmin struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	Username     string    `json:"username" gorm:"type:varchar(50);uniqueIndex;not null"`
	PasswordHash string    `json:"-" gorm:"type:varchar(255);not null"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
