package models

import (
	"time"

	"gorm.io/gorm"
)

// DonationStatus is the lifecycle state projected from gateway notifications
type DonationStatus string

const (
	DonationStatusPending     DonationStatus = "pending"
	DonationStatusPaid        DonationStatus = "paid"
	DonationStatusCanceled    DonationStatus = "canceled"
	DonationStatusFailed      DonationStatus = "failed"
	DonationStatusChargedBack DonationStatus = "charged_back"
	DonationStatusExpired     DonationStatus = "expired"
)

// NotificationChannel selects how the donor receipt is delivered
type NotificationChannel string

const (
	NotificationChannelEmail    NotificationChannel = "email"
	NotificationChannelWhatsapp NotificationChannel = "whatsapp"
	NotificationChannelNone     NotificationChannel = "none"
)

// Donation is the persisted outcome of a checkout attempt
type Donation struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	UUID        string `gorm:"type:varchar(36);uniqueIndex" json:"uuid"`
	OrderID     string `gorm:"type:varchar(64);uniqueIndex" json:"order_id"`
	AmountCents int64  `json:"amount_cents"`
	Amount      string `gorm:"type:varchar(32)" json:"amount"` // fixed-point string exactly as signed
	Currency    string `gorm:"type:varchar(3)" json:"currency"`
	Purpose     string `gorm:"type:varchar(255)" json:"purpose"`

	DonorFirstName string              `gorm:"type:varchar(100)" json:"donor_first_name"`
	DonorLastName  string              `gorm:"type:varchar(100)" json:"donor_last_name"`
	DonorEmail     string              `gorm:"type:varchar(255)" json:"donor_email"`
	DonorPhone     string              `gorm:"type:varchar(50)" json:"donor_phone"`
	NotifyChannel  NotificationChannel `gorm:"type:varchar(20);default:'email'" json:"notify_channel"`

	Status        DonationStatus `gorm:"type:varchar(20);index" json:"status"`
	PaymentID     string         `gorm:"type:varchar(64)" json:"payment_id,omitempty"`
	PaymentMethod string         `gorm:"type:varchar(50)" json:"payment_method,omitempty"`
	PaidAt        *time.Time     `json:"paid_at,omitempty"`

	// Relationships
	Sessions []PaymentSession `gorm:"foreignKey:DonationID" json:"sessions,omitempty"`
}

// DonorName joins the submitted donor names, or returns empty when none were given
func (d Donation) DonorName() string {
	switch {
	case d.DonorFirstName != "" && d.DonorLastName != "":
		return d.DonorFirstName + " " + d.DonorLastName
	case d.DonorFirstName != "":
		return d.DonorFirstName
	default:
		return d.DonorLastName
	}
}
