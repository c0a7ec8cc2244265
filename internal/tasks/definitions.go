package tasks

import (
	"time"

	"gorm.io/gorm"
)

// Dependencies are the services the worker tasks call into
type Dependencies struct {
	Donations  StaleExpirer
	Email      ReceiptSender
	Whatsapp   ReceiptSender
	PendingTTL time.Duration
}

// DefineTasks registers all available tasks
func DefineTasks(r *Registry, deps Dependencies) {
	r.Register(LogInfoTask.TaskID(), LogInfoTask.HandleExecution)

	receipts := NewDonationReceiptTask(deps.Email, deps.Whatsapp)
	r.Register(receipts.TaskID(), receipts.HandleExecution)

	if deps.Donations != nil {
		expire := NewExpireStaleDonationsTask(deps.Donations, deps.PendingTTL)
		r.Register(expire.TaskID(), expire.HandleExecution)
	}
}

// EnsureRecurringTasks seeds the recurring maintenance tasks the worker relies on
func EnsureRecurringTasks(db *gorm.DB, deps Dependencies, now time.Time) error {
	if deps.Donations == nil {
		return nil
	}
	return NewExpireStaleDonationsTask(deps.Donations, deps.PendingTTL).EnsureRecurringTask(db, now)
}
