package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"payment-webhook-service/internal/config"
)

func setRequired(t *testing.T) {
	t.Setenv("STRIPE_SIGNING_SECRET", "whsec_env")
	t.Setenv("DATABASE_URL", "postgres://db.internal:5432/shop")
	t.Setenv("DATABASE_USER", "service_role")
	t.Setenv("DATABASE_PASSWORD", "secret")
}

func TestLoadConfig_FromEnvironment(t *testing.T) {
	setRequired(t)
	t.Setenv("DATABASE_CALL_TIMEOUT_MS", "2500")

	cfg, err := config.LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "whsec_env", cfg.Stripe.SigningSecret)
	assert.Equal(t, 300, cfg.Stripe.ToleranceSeconds)
	assert.Equal(t, 2500, cfg.Database.CallTimeoutMs)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, int64(64*1024), cfg.Server.MaxBodyBytes)
	assert.True(t, cfg.Ledger.Enabled)
	assert.False(t, cfg.Flutterwave.Enabled())
}

func TestLoadConfig_FileWithEnvOverride(t *testing.T) {
	dir := t.TempDir()
	yaml := `
stripe:
  signing-secret: whsec_file
  tolerance-seconds: 60
flutterwave:
  secret-hash: hash_1
  secret-key: FLWSECK_TEST-1
kafka:
  broker:
    url: localhost:9092
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600))
	setRequired(t)

	cfg, err := config.LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "whsec_env", cfg.Stripe.SigningSecret)
	assert.Equal(t, 60, cfg.Stripe.ToleranceSeconds)
	assert.True(t, cfg.Flutterwave.Enabled())
	assert.Equal(t, "https://api.flutterwave.com", cfg.Flutterwave.BaseURL)
	assert.Equal(t, "localhost:9092", cfg.Kafka.Broker.URL)
	assert.Equal(t, "payment-outcomes", cfg.Kafka.Topic.PaymentOutcomes)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "Missing signing secret", env: map[string]string{"STRIPE_SIGNING_SECRET": ""}},
		{name: "Missing database password", env: map[string]string{"DATABASE_PASSWORD": ""}},
		{name: "Call timeout above 5s", env: map[string]string{"DATABASE_CALL_TIMEOUT_MS": "10000"}},
		{name: "Flutterwave hash without key", env: map[string]string{"FLUTTERWAVE_SECRET_HASH": "hash_1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequired(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := config.LoadConfig(t.TempDir())
			assert.ErrorContains(t, err, "invalid config")
		})
	}
}
