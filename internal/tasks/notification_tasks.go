package tasks

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"payhere_donations/internal/models"
)

const (
	receiptTaskID     = "send_donation_receipt"
	receiptMaxAttempt = 3
)

// ReceiptSender delivers a receipt over one channel
type ReceiptSender interface {
	SendReceipt(d models.Donation) error
}

// ReceiptArgs are the arguments of send_donation_receipt
type ReceiptArgs struct {
	DonationID uint `json:"donation_id"`
}

// ReceiptQueue enqueues send_donation_receipt tasks. It satisfies services.ReceiptScheduler.
type ReceiptQueue struct{}

// ScheduleReceipt creates the receipt task inside the caller's transaction
func (ReceiptQueue) ScheduleReceipt(tx *gorm.DB, donationID uint) error {
	task, err := BuildScheduledTask(receiptTaskID, ReceiptArgs{DonationID: donationID}, time.Now(), nil, models.ScheduledTaskTypeOneTime, receiptMaxAttempt)
	if err != nil {
		return err
	}
	if err := tx.Create(task).Error; err != nil {
		return fmt.Errorf("schedule receipt for donation %d: %w", donationID, err)
	}
	return nil
}

// DonationReceiptTaskDef sends the thank-you receipt over the donor's chosen channel
type DonationReceiptTaskDef struct {
	email    ReceiptSender
	whatsapp ReceiptSender
}

// NewDonationReceiptTask takes one sender per channel. A nil sender disables that channel.
func NewDonationReceiptTask(email, whatsapp ReceiptSender) *DonationReceiptTaskDef {
	return &DonationReceiptTaskDef{email: email, whatsapp: whatsapp}
}

func (t *DonationReceiptTaskDef) TaskID() string {
	return receiptTaskID
}

func (t *DonationReceiptTaskDef) HandleExecution(ctx context.Context, db *gorm.DB, task models.ScheduledTask) (map[string]interface{}, error) {
	var args ReceiptArgs
	if err := decodeArgs(task, &args); err != nil {
		return nil, err
	}
	if args.DonationID == 0 {
		return nil, fmt.Errorf("donation_id not provided or invalid")
	}

	var donation models.Donation
	if err := db.WithContext(ctx).First(&donation, args.DonationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return map[string]interface{}{"status": "skipped", "message": "donation not found"}, nil
		}
		return nil, fmt.Errorf("failed to fetch donation: %w", err)
	}

	result := map[string]interface{}{
		"donation_id": donation.ID,
		"channel":     string(donation.NotifyChannel),
	}

	if donation.Status != models.DonationStatusPaid {
		log.Printf("Skipping receipt for donation %d: status is %s", donation.ID, donation.Status)
		result["status"] = "skipped"
		return result, nil
	}

	var sender ReceiptSender
	switch donation.NotifyChannel {
	case models.NotificationChannelEmail:
		sender = t.email
	case models.NotificationChannelWhatsapp:
		sender = t.whatsapp
	case models.NotificationChannelNone:
		result["status"] = "skipped"
		return result, nil
	default:
		log.Printf("Unsupported notification channel %s for donation %d", donation.NotifyChannel, donation.ID)
		result["status"] = "skipped"
		return result, nil
	}

	if sender == nil {
		return nil, fmt.Errorf("no sender configured for channel %s", donation.NotifyChannel)
	}
	if err := sender.SendReceipt(donation); err != nil {
		return nil, fmt.Errorf("send receipt via %s: %w", donation.NotifyChannel, err)
	}

	result["status"] = "success"
	return result, nil
}
