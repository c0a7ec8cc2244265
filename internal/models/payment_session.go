package models

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

// PaymentSession keeps the signed request of one checkout attempt so it can be resumed
type PaymentSession struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	DonationID      uint            `gorm:"index" json:"donation_id"`
	PaymentGateway  PaymentGateway  `gorm:"type:varchar(50);not null" json:"payment_gateway"`
	OrderID         string          `gorm:"type:varchar(64);index" json:"order_id"`
	IsActive        bool            `gorm:"default:true" json:"is_active"`
	RequestMetadata json.RawMessage `gorm:"type:jsonb" json:"request_metadata"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	DeletedAt       gorm.DeletedAt  `gorm:"index" json:"deleted_at,omitempty"`
}
