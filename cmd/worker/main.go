package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"payhere_donations/internal/config"
	"payhere_donations/internal/services"
	"payhere_donations/internal/tasks"
)

func main() {
	cfg := config.Load()

	// Initialize Database
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL not set")
	}
	db, err := services.InitDB(cfg.DatabaseURL, services.DBOptionsFromConfig(cfg))
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	var cache *services.RedisCache
	if cfg.RedisURL != "" {
		if cache, err = services.NewRedisCache(cfg.RedisURL); err != nil {
			log.Printf("Warning: Redis unavailable, status cache will not be invalidated: %v", err)
			cache = nil
		} else {
			defer cache.Close()
		}
	}

	payhereClient := services.NewPayHereService(cfg.PayHere())
	donations := services.NewDonationService(db, cache, payhereClient, tasks.ReceiptQueue{}, cfg.StatusCacheTTL)

	deps := tasks.Dependencies{
		Donations:  donations,
		Email:      services.NewEmailService(),
		Whatsapp:   services.NewWahaService(),
		PendingTTL: cfg.DonationPendingTTL,
	}

	// Initialize Task Registry
	registry := tasks.NewRegistry()
	tasks.DefineTasks(registry, deps)
	if err := tasks.EnsureRecurringTasks(db, deps, time.Now()); err != nil {
		log.Fatalf("Failed to seed recurring tasks: %v", err)
	}
	runner := tasks.NewRunner(db, registry)

	log.Printf("Worker started with tasks %v, checking every %s", registry.Names(), cfg.WorkerInterval)

	// Create context that cancels on interrupt
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		log.Println("Shutting down worker...")
		cancel()
	}()

	ticker := time.NewTicker(cfg.WorkerInterval)
	defer ticker.Stop()

	// Run once at startup, then on every tick
	processScheduledTasks(ctx, runner)

	for {
		select {
		case <-ticker.C:
			processScheduledTasks(ctx, runner)
		case <-ctx.Done():
			return
		}
	}
}

func processScheduledTasks(ctx context.Context, runner *tasks.Runner) {
	log.Println("Checking for pending tasks...")

	n, err := runner.ProcessDue(ctx, time.Now())
	if err != nil {
		log.Printf("Error processing tasks: %v", err)
		return
	}
	if n == 0 {
		log.Println("No pending tasks found.")
	}
}
