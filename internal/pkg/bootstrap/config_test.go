package bootstrap

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_YAMLWithEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
app:
  name: marketplace-service
  port: 9090
  feeRate: "0.07"
  reversalWindowDays: 15
infra:
  mysql:
    dsn: "app:secret@tcp(db:3306)/parts"
  kafka:
    brokers: ["kafka-1:9092"]
    paymentResultsTopic: gateway.results
`), 0o600))

	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")
	t.Setenv("REDIS_ADDRS", "r1:6379")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.App.Port)
	assert.Equal(t, "0.07", cfg.App.FeeRate)
	assert.Equal(t, 15, cfg.App.ReversalWindowDays)
	assert.Equal(t, 30, cfg.App.DefaultPremiumDays)
	assert.Equal(t, "app:secret@tcp(db:3306)/parts", cfg.Infra.MySQL.DSN)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Infra.Kafka.Brokers)
	assert.Equal(t, []string{"r1:6379"}, cfg.Infra.Redis.Addrs)
	assert.Equal(t, "gateway.results", cfg.Infra.Kafka.PaymentResultsTopic)
	assert.Equal(t, "payment.results.dlt", cfg.Infra.Kafka.DLTTopic)
	assert.False(t, cfg.Infra.Nacos.Enabled)
}

func TestLoad_NacosEnvEnablesRegistration(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("NACOS_SERVER_ADDRS", "nacos:8848")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.True(t, cfg.Infra.Nacos.Enabled)
	assert.Equal(t, "nacos:8848", cfg.Infra.Nacos.ServerAddrs)
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	cfg.App.ReversalWindowDays = 0
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Infra.Nacos.Enabled = true
	assert.Error(t, cfg.Validate())
}

func TestInitPublishesCurrentConfig(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("APP_PORT", "7070")

	_, err := Init("")
	require.NoError(t, err)
	assert.Equal(t, 7070, GetCurrentConfig().App.Port)
}
