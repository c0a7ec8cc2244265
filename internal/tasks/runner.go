package tasks

import (
	"context"
	"log"
	"time"

	"gorm.io/gorm"

	"payhere_donations/internal/models"
)

// Runner executes due scheduled tasks against a registry
type Runner struct {
	db       *gorm.DB
	registry *Registry
}

func NewRunner(db *gorm.DB, registry *Registry) *Runner {
	return &Runner{db: db, registry: registry}
}

// ProcessDue runs every active task whose due time is not after now and returns how many were run
func (r *Runner) ProcessDue(ctx context.Context, now time.Time) (int, error) {
	var pendingTasks []models.ScheduledTask
	if err := r.db.WithContext(ctx).
		Where("status = ? AND due <= ?", models.ScheduledTaskStatusActive, now).
		Order("due asc").
		Find(&pendingTasks).Error; err != nil {
		return 0, err
	}

	if len(pendingTasks) == 0 {
		return 0, nil
	}

	log.Printf("Found %d pending tasks.", len(pendingTasks))

	processed := 0
	for _, task := range pendingTasks {
		if ctx.Err() != nil {
			return processed, ctx.Err()
		}
		r.executeTask(ctx, task, now)
		processed++
	}
	return processed, nil
}

func (r *Runner) executeTask(ctx context.Context, task models.ScheduledTask, now time.Time) {
	log.Printf("Processing task: %s (ID: %d)", task.TaskName, task.ID)

	if task.Arguments == nil {
		task.Arguments = make(map[string]interface{})
	}

	handler, found := r.registry.Get(task.TaskName)
	if !found {
		log.Printf("Task handler not found for: %s. Marking as failure.", task.TaskName)

		r.db.Model(&task).Updates(map[string]interface{}{
			"status":   models.ScheduledTaskStatusFailure,
			"last_run": &now,
		})
		r.db.Create(&models.ScheduledTaskHistory{
			ScheduledTaskID: task.ID,
			TaskName:        task.TaskName,
			RunAt:           now,
			Status:          "handler_not_found",
			AttemptNumber:   1,
			Arguments:       task.Arguments,
			Result:          map[string]interface{}{"error": "Handler not found"},
		})
		return
	}

	maxAttempt := task.MaxAttempt
	if maxAttempt < 1 {
		maxAttempt = 1
	}

	var startTime time.Time
	var err error
	for attempt := 1; attempt <= maxAttempt; attempt++ {
		startTime = time.Now()
		var result map[string]interface{}
		result, err = handler(ctx, r.db, task)
		runtimeMs := int(time.Since(startTime).Milliseconds())

		status := "success"
		resultData := result
		if err != nil {
			status = "failure"
			resultData = map[string]interface{}{"error": err.Error()}
			log.Printf("Task %s failed (attempt %d/%d): %v", task.TaskName, attempt, maxAttempt, err)
		} else {
			log.Printf("Task %s completed successfully.", task.TaskName)
		}

		r.db.Create(&models.ScheduledTaskHistory{
			ScheduledTaskID: task.ID,
			TaskName:        task.TaskName,
			RunAt:           startTime,
			Runtime:         runtimeMs,
			Status:          status,
			AttemptNumber:   attempt,
			Arguments:       task.Arguments,
			Result:          resultData,
		})

		if err == nil || ctx.Err() != nil {
			break
		}
	}

	taskUpdates := map[string]interface{}{
		"last_run": &startTime,
	}

	switch {
	case task.TaskType == models.ScheduledTaskTypeRecurring:
		// a failed run of a recurring task still moves on to the next occurrence
		nextDue := task.NextDue(now)
		if nextDue.After(task.Due) {
			taskUpdates["status"] = models.ScheduledTaskStatusActive
			taskUpdates["due"] = nextDue
		} else if err != nil {
			taskUpdates["status"] = models.ScheduledTaskStatusFailure
		} else {
			taskUpdates["status"] = models.ScheduledTaskStatusDone
		}
	case err != nil:
		taskUpdates["status"] = models.ScheduledTaskStatusFailure
	default:
		taskUpdates["status"] = models.ScheduledTaskStatusDone
	}

	if dbErr := r.db.Model(&task).Updates(taskUpdates).Error; dbErr != nil {
		log.Printf("Failed to update task %d: %v", task.ID, dbErr)
	}
}
