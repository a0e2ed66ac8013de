package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port      string
	DBUrl     string
	Store     string
	JWTSecret string
	LogLevel  string

	RedisAddr       string
	BalanceCacheTTL time.Duration

	Statuses   StatusIDs
	Categories CategoryIDs

	TransactionListLimit int
	StoreTimeout         time.Duration

	ReconcileInterval time.Duration
	ReconcileAfter    time.Duration

	MetricsNamespace string
	RateLimitRPS     float64
	RateLimitBurst   int
}

// StatusIDs are the opaque status references stamped on transfers and transactions.
type StatusIDs struct {
	Pending   string
	Completed string
	Rejected  string
}

// CategoryIDs are the opaque category references stamped on transactions.
type CategoryIDs struct {
	Transfer string
	Deposit  string
}

func LoadConfig() Config {
	err := godotenv.Load()
	if err != nil {
		log.Println(".env file not found, using environment and defaults")
	}

	return Config{
		Port:      GetEnv("PORT", "8080"),
		DBUrl:     os.Getenv("DB_URL"),
		Store:     GetEnv("STORE", "mysql"),
		JWTSecret: os.Getenv("JWT_SECRET"),
		LogLevel:  GetEnv("LOG_LEVEL", "info"),

		RedisAddr:       os.Getenv("REDIS_ADDR"),
		BalanceCacheTTL: GetEnvAsDuration("BALANCE_CACHE_TTL", 5*time.Minute),

		Statuses: StatusIDs{
			Pending:   GetEnv("STATUS_PENDING_ID", "pending"),
			Completed: GetEnv("STATUS_COMPLETED_ID", "completed"),
			Rejected:  GetEnv("STATUS_REJECTED_ID", "rejected"),
		},
		Categories: CategoryIDs{
			Transfer: GetEnv("CATEGORY_TRANSFER_ID", "transfer"),
			Deposit:  GetEnv("CATEGORY_DEPOSIT_ID", "deposit"),
		},

		TransactionListLimit: GetEnvAsInt("TRANSACTION_LIST_LIMIT", 1000),
		StoreTimeout:         GetEnvAsDuration("STORE_TIMEOUT", 5*time.Second),

		ReconcileInterval: GetEnvAsDuration("RECONCILE_INTERVAL", time.Minute),
		ReconcileAfter:    GetEnvAsDuration("RECONCILE_AFTER", 5*time.Minute),

		MetricsNamespace: GetEnv("METRICS_NAMESPACE", "transfer_ledger"),
		RateLimitRPS:     GetEnvAsFloat("RATE_LIMIT_RPS", 10),
		RateLimitBurst:   GetEnvAsInt("RATE_LIMIT_BURST", 20),
	}
}

// GetEnv returns the variable or defaultValue when it is unset or empty.
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func GetEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func GetEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func GetEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
