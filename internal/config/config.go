package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"payhere_donations/internal/payhere"
)

type Config struct {
	AppPort         string
	Env             string
	DatabaseURL     string
	RedisURL        string
	FrontendURL     string
	APIURL          string
	GracefulTimeout time.Duration

	DBMaxIdleConns    int
	DBMaxOpenConns    int
	DBConnMaxLifetime time.Duration
	DBLogLevel        string

	PayHereMerchantID     string
	PayHereMerchantSecret string
	PayHereSandbox        bool
	PayHereOrderPrefix    string

	DonationPendingTTL time.Duration
	StatusCacheTTL     time.Duration
	WorkerInterval     time.Duration

	FirebaseCredentialsPath string
}

// Load reads the .env file when present and then the process environment
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		AppPort:         getEnv("APP_PORT", "8080"),
		Env:             getEnv("ENV", "development"),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		RedisURL:        getEnv("REDIS_URL", ""),
		FrontendURL:     getEnv("FRONTEND_URL", "http://localhost:8080"),
		APIURL:          getEnv("API_URL", "http://localhost:8080"),
		GracefulTimeout: parseDuration(getEnv("GRACEFUL_TIMEOUT", "5s"), 5*time.Second),

		DBMaxIdleConns:    parseInt(getEnv("DB_MAX_IDLE_CONNS", "10"), 10),
		DBMaxOpenConns:    parseInt(getEnv("DB_MAX_OPEN_CONNS", "100"), 100),
		DBConnMaxLifetime: parseDuration(getEnv("DB_CONN_MAX_LIFETIME", "1h"), time.Hour),
		DBLogLevel:        getEnv("DB_LOG_LEVEL", "warn"),

		PayHereMerchantID:     getEnv("PAYHERE_MERCHANT_ID", ""),
		PayHereMerchantSecret: getEnv("PAYHERE_MERCHANT_SECRET", ""),
		PayHereSandbox:        parseBool(getEnv("PAYHERE_SANDBOX", "true"), true),
		PayHereOrderPrefix:    getEnv("PAYHERE_ORDER_PREFIX", payhere.DefaultOrderPrefix),

		DonationPendingTTL: parseDuration(getEnv("DONATION_PENDING_TTL", "2h"), 2*time.Hour),
		StatusCacheTTL:     parseDuration(getEnv("STATUS_CACHE_TTL", "30s"), 30*time.Second),
		WorkerInterval:     parseDuration(getEnv("WORKER_INTERVAL", "5m"), 5*time.Minute),

		FirebaseCredentialsPath: getEnv("FIREBASE_CREDENTIALS_PATH", "./firebase-service-account.json"),
	}
}

// PayHere derives the immutable signing config
func (c *Config) PayHere() payhere.Config {
	cfg := payhere.NewConfig(c.PayHereMerchantID, c.PayHereMerchantSecret, c.PayHereSandbox, c.FrontendURL, c.APIURL)
	if c.PayHereOrderPrefix != "" {
		cfg.OrderPrefix = c.PayHereOrderPrefix
	}
	return cfg
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func parseDuration(value string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}

func parseInt(value string, fallback int) int {
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}

func parseBool(value string, fallback bool) bool {
	b, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return b
}
