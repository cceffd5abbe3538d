package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_ValoresPorDefecto(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "stock-ledger", cfg.App.Name)
	assert.Equal(t, "atomic", cfg.Inventory.BatchMode)
	assert.True(t, cfg.Inventory.RollbackEnabled)
	assert.Equal(t, 30*time.Second, cfg.Inventory.RollbackLockTTL)
	assert.Equal(t, "0.0.0.0:8080", cfg.HTTP.Addr())
	assert.Empty(t, cfg.Kafka.Brokers)
}

func TestLoad_LeeVariablesDeEntorno(t *testing.T) {
	t.Setenv("INVENTORY_BATCH_MODE", "PER_ITEM")
	t.Setenv("INVENTORY_ROLLBACK_ENABLED", "false")
	t.Setenv("INVENTORY_STORE", "memory")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")
	t.Setenv("HTTP_PORT", "9090")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "per_item", cfg.Inventory.BatchMode)
	assert.False(t, cfg.Inventory.RollbackEnabled)
	assert.Equal(t, "memory", cfg.Inventory.Store)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 9090, cfg.HTTP.Port)
}

func TestLoad_RechazaModoDeLoteDesconocido(t *testing.T) {
	t.Setenv("INVENTORY_BATCH_MODE", "eventual")
	_, err := Load()
	require.Error(t, err, "un modo desconocido debe fallar al arrancar")
}

func TestDBConfig_DSNEscapaPassword(t *testing.T) {
	c := DBConfig{Host: "db", Port: 5432, User: "app", Password: "p@ss:w", DBName: "ledger", SSLMode: "disable"}
	assert.Equal(t, "postgres://app:p%40ss%3Aw@db:5432/ledger?sslmode=disable", c.DSN())
	c.DatabaseURL = "postgres://x@y/z"
	assert.Equal(t, "postgres://x@y/z", c.ConnectionString())
}
