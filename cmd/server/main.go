package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"payhere_donations/internal/config"
	"payhere_donations/internal/handlers"
	authMiddleware "payhere_donations/internal/middleware"
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
	if err := services.AutoMigrate(db); err != nil {
		log.Fatalf("Failed to run database migrations: %v", err)
	}

	// Redis is optional, without it duplicate webhooks fall back to the conditional status update
	var cache *services.RedisCache
	if cfg.RedisURL != "" {
		cache, err = services.NewRedisCache(cfg.RedisURL)
		if err != nil {
			log.Printf("Warning: Redis unavailable, caching disabled: %v", err)
			cache = nil
		} else {
			defer cache.Close()
		}
	}

	// Initialize Firebase
	var sessions authMiddleware.SessionVerifier
	var issuer handlers.SessionIssuer
	authClient, err := services.InitFirebase(context.Background(), cfg.FirebaseCredentialsPath)
	if err != nil {
		log.Printf("Warning: Firebase initialization failed: %v", err)
		log.Println("Admin routes will reject requests until valid credentials are provided")
	} else {
		sessions = authClient
		issuer = authClient
	}

	payhereClient := services.NewPayHereService(cfg.PayHere())
	donations := services.NewDonationService(db, cache, payhereClient, tasks.ReceiptQueue{}, cfg.StatusCacheTTL)

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = authMiddleware.CustomErrorHandler

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{cfg.FrontendURL},
		AllowMethods:     []string{http.MethodGet, http.MethodPost},
		AllowCredentials: true,
	}))

	handlers.Routes{
		Donations: handlers.NewDonationHandler(donations, payhereClient),
		Admin:     handlers.NewAdminHandler(donations),
		Auth:      handlers.NewAuthHandler(issuer, cfg.IsProduction()),
		Sessions:  sessions,
	}.Register(e)

	errC := make(chan error, 1)
	go func() {
		if err := e.Start(":" + cfg.AppPort); err != nil && err != http.ErrServerClosed {
			errC <- err
		}
	}()
	log.Printf("Server starting on port %s (sandbox=%t)", cfg.AppPort, cfg.PayHereSandbox)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errC:
		log.Fatalf("Server error: %v", err)
	case <-quit:
	}

	log.Println("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.GracefulTimeout)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Printf("Graceful shutdown failed: %v", err)
	}
}
