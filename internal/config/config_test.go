package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"PORT", "STORE_DRIVER", "KAFKA_BROKERS", "LEDGER_MAX_RETRIES", "USE_KAFKA", "CACHE_TTL"} {
		t.Setenv(key, "")
	}

	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, StoreSQLite, cfg.StoreDriver)
	assert.Equal(t, []string{"localhost:9093"}, cfg.KafkaBrokers)
	assert.Equal(t, 5, cfg.LedgerMaxRetries)
	assert.False(t, cfg.UseKafka)
	assert.Equal(t, 5*time.Minute, cfg.CacheTTLDuration())
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("STORE_DRIVER", "Postgres")
	t.Setenv("KAFKA_BROKERS", " broker-1:9092, ,broker-2:9092 ")
	t.Setenv("LEDGER_MAX_RETRIES", "9")
	t.Setenv("USE_KAFKA", "1")
	t.Setenv("USE_CACHE", "TRUE")
	t.Setenv("REDIS_DB", "not-a-number")
	t.Setenv("DB_USER", "market")
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("DB_NAME", "shop")
	t.Setenv("DB_SSLMODE", "require")

	cfg := Load()

	assert.Equal(t, StorePostgres, cfg.StoreDriver)
	assert.Equal(t, []string{"broker-1:9092", "broker-2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 9, cfg.LedgerMaxRetries)
	assert.True(t, cfg.UseKafka)
	assert.True(t, cfg.UseCache)
	assert.Equal(t, 0, cfg.RedisDB)
	assert.Equal(t, "postgres://market:secret@db:6543/shop?sslmode=require", cfg.PostgresDSN())
	assert.Equal(t, []string{cfg.KafkaTopicOrders, cfg.KafkaTopicCatalog}, cfg.KafkaTopics())
}
