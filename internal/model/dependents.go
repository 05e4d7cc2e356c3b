package model

import (
	"time"
)

// The models below are owned exclusively by a Tenant and exist here as
// cascade targets for the inactivity reaper. The ordering UI that populates
// them lives outside this service.

// Order is a customer order placed against a tenant's table.
type Order struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	TenantID  uint      `json:"tenant_id" gorm:"index;not null"`
	TableID   uint      `json:"table_id" gorm:"index"`
	Items     string    `json:"items" gorm:"type:text"`
	Total     int64     `json:"total"`
	Status    string    `json:"status" gorm:"type:varchar(20)"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MenuItem is one dish on a tenant's menu.
type MenuItem struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	TenantID  uint      `json:"tenant_id" gorm:"index;not null"`
	Name      string    `json:"name" gorm:"type:varchar(100);not null"`
	Price     int64     `json:"price"`
	Category  string    `json:"category" gorm:"type:varchar(50)"`
	Available bool      `json:"available" gorm:"default:true"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RestaurantTable is a physical table with a QR entry point.
type RestaurantTable struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	TenantID  uint      `json:"tenant_id" gorm:"index;not null"`
	Number    int       `json:"number"`
	QRCode    string    `json:"qr_code" gorm:"type:varchar(64);uniqueIndex"`
	CreatedAt time.Time `json:"created_at"`
}
