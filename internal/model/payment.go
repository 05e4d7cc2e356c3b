package model

import (
	"time"
)

// Payment record status values.
const (
	PaymentVerified = "verified"
	PaymentFailed   = "failed"
)

// PaymentRecord is one verified or failed payment attempt. The gateway
// order id is the idempotency key: at most one verified record may ever
// exist per order id. Plan and PeriodEnd capture what the order applied
// at the time; a replayed confirmation answers from here, not from the
// tenant's current subscription.
type PaymentRecord struct {
	ID               uint      `json:"id" gorm:"primaryKey"`
	TenantID         uint      `json:"tenant_id" gorm:"index;not null"`
	GatewayOrderID   string    `json:"gateway_order_id" gorm:"type:varchar(64);index;not null"`
	GatewayPaymentID string    `json:"gateway_payment_id" gorm:"type:varchar(64)"`
	Amount           int64     `json:"amount"` // paise
	Plan             string    `json:"plan" gorm:"type:varchar(20)"`
	PeriodEnd        time.Time `json:"period_end"`
	Status           string    `json:"status" gorm:"type:varchar(16);not null"`
	CreatedAt        time.Time `json:"created_at"`
}

// SubscriptionLogEntry is the append-only audit trail of how a tenant
// reached its current state. Entries are never updated or deleted outside
// the reaper's cascade.
type SubscriptionLogEntry struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	TenantID    uint      `json:"tenant_id" gorm:"index;not null"`
	EventType   string    `json:"event_type" gorm:"type:varchar(40);not null"`
	Description string    `json:"description" gorm:"type:text"`
	OldStatus   string    `json:"old_status" gorm:"type:varchar(20)"`
	NewStatus   string    `json:"new_status" gorm:"type:varchar(20)"`
	CreatedAt   time.Time `json:"created_at"`
}
