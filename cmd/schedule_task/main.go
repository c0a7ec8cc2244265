package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/teambition/rrule-go"

	"payhere_donations/internal/config"
	"payhere_donations/internal/models"
	"payhere_donations/internal/services"
)

func main() {
	// defined flags
	taskName := flag.String("task_name", "", "Name of the task (mandatory), e.g. expire_stale_donations or send_donation_receipt")
	argsStr := flag.String("arguments", "", "JSON arguments for the task (mandatory)")
	dueStr := flag.String("due", "", "Due date (mandatory, format: 2006-01-02 15:04, RFC3339 or now)")
	taskType := flag.String("tasktype", "onetime", "Task type (optional, default: onetime)")
	recurring := flag.String("recurring", "", "Recurring interval rule (optional)")
	maxAttempt := flag.Int("max_attempt", 3, "Max attempts (optional, default: 3)")

	flag.Parse()

	// Validation
	if *taskName == "" || *argsStr == "" || *dueStr == "" {
		fmt.Println("Usage: schedule_task -task_name <name> -arguments <json_args> -due <YYYY-MM-DD HH:MM> [options]")
		flag.PrintDefaults()
		os.Exit(1)
	}

	cfg := config.Load()
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	// Init DB
	db, err := services.InitDB(cfg.DatabaseURL, services.DBOptionsFromConfig(cfg))
	if err != nil {
		log.Fatalf("Failed to connect DB: %v", err)
	}

	// Parse arguments JSON
	var args map[string]interface{}
	if err := json.Unmarshal([]byte(*argsStr), &args); err != nil {
		log.Fatalf("Invalid JSON arguments: %v", err)
	}

	// RFC3339, or "2006-01-02 15:04" in local time; "now" schedules immediately
	var due time.Time
	if *dueStr == "now" {
		due = time.Now()
	} else if due, err = time.Parse(time.RFC3339, *dueStr); err != nil {
		due, err = time.ParseInLocation("2006-01-02 15:04", *dueStr, time.Local)
		if err != nil {
			log.Fatalf("Invalid due date format. Use '2006-01-02 15:04' (Local) or RFC3339: %v", err)
		}
	}

	// Recurring ptr
	var recurringPtr *string
	if *recurring != "" {
		if _, err := rrule.StrToRRule(*recurring); err != nil {
			log.Fatalf("Invalid recurring rule: %v", err)
		}
		recurringPtr = recurring
	}

	switch models.ScheduledTaskType(*taskType) {
	case models.ScheduledTaskTypeOneTime, models.ScheduledTaskTypeRecurring:
	default:
		log.Fatalf("Invalid tasktype %q, use onetime or recurring", *taskType)
	}

	task := models.ScheduledTask{
		TaskName:          *taskName,
		Arguments:         args,
		Due:               due,
		TaskType:          models.ScheduledTaskType(*taskType),
		RecurringInterval: recurringPtr,
		MaxAttempt:        *maxAttempt,
		Status:            models.ScheduledTaskStatusActive,
	}

	if err := db.Create(&task).Error; err != nil {
		log.Fatalf("Failed to create task: %v", err)
	}

	fmt.Printf("Successfully created task ID: %d\n", task.ID)
	fmt.Printf("Task: %s\nDue: %s\nType: %s\n", task.TaskName, task.Due, task.TaskType)
}
