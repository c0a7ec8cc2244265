package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"payhere_donations/internal/models"
)

// ExpireStaleHourly is the default RRULE of the expiry sweep
const ExpireStaleHourly = "FREQ=HOURLY;INTERVAL=1"

// StaleExpirer is the part of the donation service the expiry sweep needs
type StaleExpirer interface {
	ExpireStale(ctx context.Context, olderThan time.Duration, now time.Time) (int64, error)
}

// ExpireStaleArgs are the arguments of expire_stale_donations
type ExpireStaleArgs struct {
	OlderThanMinutes int `json:"older_than_minutes"`
}

// ExpireStaleDonationsTaskDef marks pending donations that were never completed as expired
type ExpireStaleDonationsTaskDef struct {
	donations  StaleExpirer
	defaultTTL time.Duration
	now        func() time.Time
}

func NewExpireStaleDonationsTask(donations StaleExpirer, defaultTTL time.Duration) *ExpireStaleDonationsTaskDef {
	return &ExpireStaleDonationsTaskDef{donations: donations, defaultTTL: defaultTTL, now: time.Now}
}

func (t *ExpireStaleDonationsTaskDef) TaskID() string {
	return "expire_stale_donations"
}

// CreateRecurringTask builds the hourly sweep starting at start
func (t *ExpireStaleDonationsTaskDef) CreateRecurringTask(start time.Time) (*models.ScheduledTask, error) {
	rule := ExpireStaleHourly
	args := ExpireStaleArgs{OlderThanMinutes: int(t.defaultTTL / time.Minute)}
	return BuildScheduledTask(t.TaskID(), args, start, &rule, models.ScheduledTaskTypeRecurring, 1)
}

func (t *ExpireStaleDonationsTaskDef) HandleExecution(ctx context.Context, db *gorm.DB, task models.ScheduledTask) (map[string]interface{}, error) {
	var args ExpireStaleArgs
	if err := decodeArgs(task, &args); err != nil {
		return nil, err
	}

	olderThan := t.defaultTTL
	if args.OlderThanMinutes > 0 {
		olderThan = time.Duration(args.OlderThanMinutes) * time.Minute
	}
	if olderThan <= 0 {
		return nil, fmt.Errorf("older_than_minutes not provided and no default configured")
	}

	expired, err := t.donations.ExpireStale(ctx, olderThan, t.now())
	if err != nil {
		return nil, err
	}
	if expired > 0 {
		log.Printf("[Task: expire_stale_donations] expired %d donations older than %s", expired, olderThan)
	}

	return map[string]interface{}{
		"status":     "success",
		"expired":    expired,
		"older_than": olderThan.String(),
	}, nil
}

// EnsureRecurringTask seeds the sweep unless an active one already exists
func (t *ExpireStaleDonationsTaskDef) EnsureRecurringTask(db *gorm.DB, start time.Time) error {
	var count int64
	if err := db.Model(&models.ScheduledTask{}).
		Where("task_name = ? AND status = ?", t.TaskID(), models.ScheduledTaskStatusActive).
		Count(&count).Error; err != nil {
		return fmt.Errorf("count %s tasks: %w", t.TaskID(), err)
	}
	if count > 0 {
		return nil
	}

	task, err := t.CreateRecurringTask(start)
	if err != nil {
		return err
	}
	if err := db.Create(task).Error; err != nil {
		return fmt.Errorf("create %s task: %w", t.TaskID(), err)
	}
	log.Printf("Seeded recurring task %s (ID: %d)", t.TaskID(), task.ID)
	return nil
}
