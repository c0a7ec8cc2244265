package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type PaymentGateway string

const (
	PaymentGatewayPayHere PaymentGateway = "payhere"
	PaymentGatewayManual  PaymentGateway = "manual"
)

// PaymentCallbackHistory stores every inbound notification, including rejected ones
type PaymentCallbackHistory struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	PaymentGateway PaymentGateway `gorm:"type:varchar(50);not null" json:"payment_gateway"`
	OrderID        string         `gorm:"type:varchar(64);index" json:"order_id"`
	Verified       bool           `json:"verified"`
	Outcome        string         `gorm:"type:varchar(50)" json:"outcome"`
	Metadata       datatypes.JSON `json:"metadata"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}
