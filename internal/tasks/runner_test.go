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

func createTask(t *testing.T, db *gorm.DB, task *models.ScheduledTask) {
	t.Helper()
	require.NoError(t, db.Create(task).Error)
}

func reloadTask(t *testing.T, db *gorm.DB, id uint) models.ScheduledTask {
	t.Helper()
	var task models.ScheduledTask
	require.NoError(t, db.First(&task, id).Error)
	return task
}

func histories(t *testing.T, db *gorm.DB, taskID uint) []models.ScheduledTaskHistory {
	t.Helper()
	var h []models.ScheduledTaskHistory
	require.NoError(t, db.Where("scheduled_task_id = ?", taskID).Order("attempt_number").Find(&h).Error)
	return h
}

func TestRunner_OneTimeSuccess(t *testing.T) {
	db := testutil.NewTestDB(t)
	registry := NewRegistry()
	registry.Register(LogInfoTask.TaskID(), LogInfoTask.HandleExecution)

	now := time.Now()
	task, err := BuildScheduledTask("log_info", map[string]string{"message": "hello"}, now.Add(-time.Minute), nil, models.ScheduledTaskTypeOneTime, 3)
	require.NoError(t, err)
	createTask(t, db, task)

	future, err := BuildScheduledTask("log_info", nil, now.Add(time.Hour), nil, models.ScheduledTaskTypeOneTime, 3)
	require.NoError(t, err)
	createTask(t, db, future)

	n, err := NewRunner(db, registry).ProcessDue(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	stored := reloadTask(t, db, task.ID)
	assert.Equal(t, models.ScheduledTaskStatusDone, stored.Status)
	assert.NotNil(t, stored.LastRun)

	h := histories(t, db, task.ID)
	require.Len(t, h, 1)
	assert.Equal(t, "success", h[0].Status)
	assert.Equal(t, "hello", h[0].Result["message"])

	assert.Equal(t, models.ScheduledTaskStatusActive, reloadTask(t, db, future.ID).Status)
}

func TestRunner_RetriesUntilMaxAttempt(t *testing.T) {
	db := testutil.NewTestDB(t)
	registry := NewRegistry()

	calls := 0
	registry.Register("flaky", func(ctx context.Context, db *gorm.DB, task models.ScheduledTask) (map[string]interface{}, error) {
		calls++
		if calls < 3 {
			return nil, errors.New("temporary")
		}
		return map[string]interface{}{"status": "success"}, nil
	})
	registry.Register("broken", func(ctx context.Context, db *gorm.DB, task models.ScheduledTask) (map[string]interface{}, error) {
		return nil, errors.New("always")
	})

	now := time.Now()
	flaky, _ := BuildScheduledTask("flaky", nil, now, nil, models.ScheduledTaskTypeOneTime, 3)
	createTask(t, db, flaky)
	broken, _ := BuildScheduledTask("broken", nil, now, nil, models.ScheduledTaskTypeOneTime, 2)
	createTask(t, db, broken)

	_, err := NewRunner(db, registry).ProcessDue(context.Background(), now)
	require.NoError(t, err)

	assert.Equal(t, models.ScheduledTaskStatusDone, reloadTask(t, db, flaky.ID).Status)
	h := histories(t, db, flaky.ID)
	require.Len(t, h, 3)
	assert.Equal(t, "failure", h[0].Status)
	assert.Equal(t, "success", h[2].Status)
	assert.Equal(t, 3, h[2].AttemptNumber)

	assert.Equal(t, models.ScheduledTaskStatusFailure, reloadTask(t, db, broken.ID).Status)
	h = histories(t, db, broken.ID)
	require.Len(t, h, 2)
	assert.Equal(t, "always", h[1].Result["error"])
}

func TestRunner_HandlerNotFound(t *testing.T) {
	db := testutil.NewTestDB(t)

	now := time.Now()
	task, _ := BuildScheduledTask("nope", nil, now, nil, models.ScheduledTaskTypeOneTime, 3)
	createTask(t, db, task)

	_, err := NewRunner(db, NewRegistry()).ProcessDue(context.Background(), now)
	require.NoError(t, err)

	stored := reloadTask(t, db, task.ID)
	assert.Equal(t, models.ScheduledTaskStatusFailure, stored.Status)

	h := histories(t, db, task.ID)
	require.Len(t, h, 1)
	assert.Equal(t, "handler_not_found", h[0].Status)
}

func TestRunner_RecurringAdvances(t *testing.T) {
	db := testutil.NewTestDB(t)
	registry := NewRegistry()
	registry.Register(LogInfoTask.TaskID(), LogInfoTask.HandleExecution)

	start := time.Now().Add(-90 * time.Minute).Truncate(time.Second)
	rule := "FREQ=HOURLY;INTERVAL=1"
	task, _ := BuildScheduledTask("log_info", nil, start, &rule, models.ScheduledTaskTypeRecurring, 1)
	createTask(t, db, task)

	now := time.Now()
	_, err := NewRunner(db, registry).ProcessDue(context.Background(), now)
	require.NoError(t, err)

	stored := reloadTask(t, db, task.ID)
	assert.Equal(t, models.ScheduledTaskStatusActive, stored.Status)
	assert.True(t, stored.Due.After(now), "next due %s should be after %s", stored.Due, now)
	assert.WithinDuration(t, start.Add(2*time.Hour), stored.Due, time.Second)

	n, err := NewRunner(db, registry).ProcessDue(context.Background(), now)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRunner_StopsOnCancelledContext(t *testing.T) {
	db := testutil.NewTestDB(t)
	registry := NewRegistry()
	registry.Register(LogInfoTask.TaskID(), LogInfoTask.HandleExecution)

	now := time.Now()
	task, _ := BuildScheduledTask("log_info", nil, now, nil, models.ScheduledTaskTypeOneTime, 1)
	createTask(t, db, task)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewRunner(db, registry).ProcessDue(ctx, now)
	assert.Error(t, err)
}
