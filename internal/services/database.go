package services

import (
	"log"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"payhere_donations/internal/config"
	"payhere_donations/internal/models"
)

// DBOptions tunes the connection pool and gorm's SQL logging
type DBOptions struct {
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	LogLevel        logger.LogLevel
}

// DBOptionsFromConfig maps the DB_* settings onto DBOptions
func DBOptionsFromConfig(cfg *config.Config) DBOptions {
	return DBOptions{
		MaxIdleConns:    cfg.DBMaxIdleConns,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
		LogLevel:        parseLogLevel(cfg.DBLogLevel),
	}
}

// InitDB opens postgres and applies the pool settings in opts
func InitDB(dsn string, opts DBOptions) (*gorm.DB, error) {
	if opts.LogLevel == 0 {
		opts.LogLevel = logger.Warn
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(opts.LogLevel),
	})
	if err != nil {
		return nil, err
	}

	if err := configurePool(db, opts); err != nil {
		return nil, err
	}

	log.Printf("Database connection established (max open %d, max idle %d)", opts.MaxOpenConns, opts.MaxIdleConns)
	return db, nil
}

func configurePool(db *gorm.DB, opts DBOptions) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}

	// zero keeps database/sql's own default for that knob
	if opts.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}
	return nil
}

func parseLogLevel(level string) logger.LogLevel {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}

// AutoMigrate runs database migrations for all models
func AutoMigrate(db *gorm.DB) error {
	log.Println("Running database migrations...")

	err := db.AutoMigrate(
		&models.Donation{},
		&models.PaymentSession{},
		&models.PaymentCallbackHistory{},
		&models.ScheduledTask{},
		&models.ScheduledTaskHistory{},
	)
	if err != nil {
		return err
	}

	log.Println("Database migrations completed")
	return nil
}
