package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store drivers accepted by STORE_DRIVER.
const (
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

type Config struct {
	Port        string
	Environment string
	// Persistence
	StoreDriver string
	SQLitePath  string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	DBSSLMode   string
	// LedgerMaxRetries bounds how often a unit of work is retried on a transient write conflict
	LedgerMaxRetries int
	// JWT Configuration
	JWTSecret string
	// Kafka Configuration
	KafkaBrokers      []string
	KafkaTopicOrders  string
	KafkaTopicCatalog string
	KafkaClientID     string
	KafkaGroupID      string
	KafkaAcks         string
	KafkaRetries      int
	UseKafka          bool
	// Redis Configuration (optional - for cache)
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int
	CacheTTL      int // seconds
	UseCache      bool
	// IdempotencyTTL is how long a replayable response is kept per X-Request-ID, in seconds
	IdempotencyTTL int
}

func Load() *Config {
	// Load .env file if it exists
	_ = godotenv.Load()

	return &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),

		StoreDriver:      strings.ToLower(getEnv("STORE_DRIVER", StoreSQLite)),
		SQLitePath:       getEnv("SQLITE_PATH", "./marketplace.db"),
		DBHost:           getEnv("DB_HOST", "localhost"),
		DBPort:           getEnv("DB_PORT", "5432"),
		DBUser:           getEnv("DB_USER", "postgres"),
		DBPassword:       getEnv("DB_PASSWORD", "postgres"),
		DBName:           getEnv("DB_NAME", "marketplace_db"),
		DBSSLMode:        getEnv("DB_SSLMODE", "disable"),
		LedgerMaxRetries: getEnvAsInt("LEDGER_MAX_RETRIES", 5),

		JWTSecret: getEnv("JWT_SECRET", "your-secret-key-change-in-production-min-32-chars"),

		KafkaBrokers:      splitList(getEnv("KAFKA_BROKERS", "localhost:9093")),
		KafkaTopicOrders:  getEnv("KAFKA_TOPIC_ORDERS", "marketplace.orders"),
		KafkaTopicCatalog: getEnv("KAFKA_TOPIC_CATALOG", "marketplace.catalog"),
		KafkaClientID:     getEnv("KAFKA_CLIENT_ID", "marketplace-service"),
		KafkaGroupID:      getEnv("KAFKA_GROUP_ID", "marketplace-listener"),
		KafkaAcks:         getEnv("KAFKA_ACKS", "all"),
		KafkaRetries:      getEnvAsInt("KAFKA_RETRIES", 3),
		UseKafka:          getEnvAsBool("USE_KAFKA", false),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),
		CacheTTL:      getEnvAsInt("CACHE_TTL", 300),
		UseCache:      getEnvAsBool("USE_CACHE", false),

		IdempotencyTTL: getEnvAsInt("IDEMPOTENCY_TTL", 300),
	}
}

// PostgresDSN builds the pgx connection string from the DB_* settings.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode)
}

// CacheTTLDuration returns CacheTTL as a duration.
func (c *Config) CacheTTLDuration() time.Duration {
	return time.Duration(c.CacheTTL) * time.Second
}

// IdempotencyTTLDuration returns IdempotencyTTL as a duration.
func (c *Config) IdempotencyTTLDuration() time.Duration {
	return time.Duration(c.IdempotencyTTL) * time.Second
}

// KafkaTopics lists every topic the listener subscribes to.
func (c *Config) KafkaTopics() []string {
	return []string{c.KafkaTopicOrders, c.KafkaTopicCatalog}
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	result, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return result
}

func getEnvAsBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return strings.ToLower(value) == "true" || value == "1"
}
