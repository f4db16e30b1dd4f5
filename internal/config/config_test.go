package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	cfg := Defaults()
	cfg.Wallet.PrivateKey = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	return cfg
}

func TestValidateBuilderCredentialsAllOrNothing(t *testing.T) {
	cfg := validConfig()
	cfg.Builder.APIKey = "key"
	require.Error(t, cfg.Validate(), "partial builder credentials rejected")

	cfg.Builder.APISecret = "secret"
	cfg.Builder.APIPassphrase = "passphrase"
	require.NoError(t, cfg.Validate())
}

func TestEnvOverridesBuilderCredentials(t *testing.T) {
	t.Setenv("TRADECORE_BUILDER_API_KEY", "env-key")
	t.Setenv("TRADECORE_BUILDER_API_SECRET", "env-secret")
	t.Setenv("TRADECORE_BUILDER_API_PASSPHRASE", "env-passphrase")

	cfg := Defaults()
	applyEnvOverrides(&cfg)

	assert.Equal(t, "env-key", cfg.Builder.APIKey)
	assert.Equal(t, "env-secret", cfg.Builder.APISecret)
	assert.Equal(t, "env-passphrase", cfg.Builder.APIPassphrase)
}

func TestRedactedConfigMasksBuilderSecrets(t *testing.T) {
	cfg := validConfig()
	cfg.Builder.GatewayToken = "token"
	cfg.Builder.APIKey = "key"
	cfg.Builder.APISecret = "secret"
	cfg.Builder.APIPassphrase = "passphrase"

	red := RedactedConfig(&cfg)

	assert.Equal(t, "***", red.Wallet.PrivateKey)
	assert.Equal(t, "***", red.Builder.GatewayToken)
	assert.Equal(t, "***", red.Builder.APIKey)
	assert.Equal(t, "***", red.Builder.APISecret)
	assert.Equal(t, "***", red.Builder.APIPassphrase)

	// The original is untouched.
	assert.Equal(t, "key", cfg.Builder.APIKey)
}
