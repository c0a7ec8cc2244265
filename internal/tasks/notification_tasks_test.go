package tasks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"payhere_donations/internal/models"
	"payhere_donations/internal/testutil"
)

type fakeSender struct {
	sent []string
	err  error
}

func (f *fakeSender) SendReceipt(d models.Donation) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, d.OrderID)
	return nil
}

func createDonation(t *testing.T, db *gorm.DB, channel models.NotificationChannel, status models.DonationStatus) models.Donation {
	t.Helper()
	d := models.Donation{
		UUID:          "uuid-" + string(channel) + "-" + string(status),
		OrderID:       "DON_1_" + string(channel) + "_" + string(status),
		AmountCents:   2500,
		Amount:        "25.00",
		Currency:      "USD",
		DonorEmail:    "jane@x.com",
		DonorPhone:    "0771234567",
		NotifyChannel: channel,
		Status:        status,
	}
	require.NoError(t, db.Create(&d).Error)
	return d
}

func receiptTask(id uint) models.ScheduledTask {
	return models.ScheduledTask{Arguments: map[string]interface{}{"donation_id": float64(id)}}
}

func TestReceiptQueue_ScheduleReceipt(t *testing.T) {
	db := testutil.NewTestDB(t)

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return ReceiptQueue{}.ScheduleReceipt(tx, 7)
	}))

	var task models.ScheduledTask
	require.NoError(t, db.Where("task_name = ?", "send_donation_receipt").First(&task).Error)
	assert.Equal(t, models.ScheduledTaskStatusActive, task.Status)
	assert.Equal(t, models.ScheduledTaskTypeOneTime, task.TaskType)
	assert.Equal(t, 3, task.MaxAttempt)
	assert.Equal(t, float64(7), task.Arguments["donation_id"])
	assert.WithinDuration(t, time.Now(), task.Due, time.Minute)
}

func TestDonationReceiptTask_Channels(t *testing.T) {
	db := testutil.NewTestDB(t)
	email := &fakeSender{}
	whatsapp := &fakeSender{}
	task := NewDonationReceiptTask(email, whatsapp)
	ctx := context.Background()

	byEmail := createDonation(t, db, models.NotificationChannelEmail, models.DonationStatusPaid)
	byWhatsapp := createDonation(t, db, models.NotificationChannelWhatsapp, models.DonationStatusPaid)
	silent := createDonation(t, db, models.NotificationChannelNone, models.DonationStatusPaid)
	unpaid := createDonation(t, db, models.NotificationChannelEmail, models.DonationStatusPending)

	result, err := task.HandleExecution(ctx, db, receiptTask(byEmail.ID))
	require.NoError(t, err)
	assert.Equal(t, "success", result["status"])

	_, err = task.HandleExecution(ctx, db, receiptTask(byWhatsapp.ID))
	require.NoError(t, err)

	result, err = task.HandleExecution(ctx, db, receiptTask(silent.ID))
	require.NoError(t, err)
	assert.Equal(t, "skipped", result["status"])

	result, err = task.HandleExecution(ctx, db, receiptTask(unpaid.ID))
	require.NoError(t, err)
	assert.Equal(t, "skipped", result["status"])

	result, err = task.HandleExecution(ctx, db, receiptTask(9999))
	require.NoError(t, err)
	assert.Equal(t, "skipped", result["status"])

	assert.Equal(t, []string{byEmail.OrderID}, email.sent)
	assert.Equal(t, []string{byWhatsapp.OrderID}, whatsapp.sent)
}

func TestDonationReceiptTask_Errors(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	d := createDonation(t, db, models.NotificationChannelWhatsapp, models.DonationStatusPaid)

	_, err := NewDonationReceiptTask(&fakeSender{}, nil).HandleExecution(ctx, db, receiptTask(d.ID))
	assert.ErrorContains(t, err, "no sender configured")

	failing := &fakeSender{err: errors.New("waha down")}
	_, err = NewDonationReceiptTask(nil, failing).HandleExecution(ctx, db, receiptTask(d.ID))
	assert.ErrorContains(t, err, "waha down")

	_, err = NewDonationReceiptTask(nil, nil).HandleExecution(ctx, db, models.ScheduledTask{})
	assert.ErrorContains(t, err, "donation_id")
}

func TestReceiptFlow_ThroughRunner(t *testing.T) {
	db := testutil.NewTestDB(t)
	d := createDonation(t, db, models.NotificationChannelEmail, models.DonationStatusPaid)
	require.NoError(t, ReceiptQueue{}.ScheduleReceipt(db, d.ID))

	email := &fakeSender{}
	registry := NewRegistry()
	DefineTasks(registry, Dependencies{Email: email})

	n, err := NewRunner(db, registry).ProcessDue(context.Background(), time.Now().Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{d.OrderID}, email.sent)
}
