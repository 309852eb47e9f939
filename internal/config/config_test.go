package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("PRIVATE_KEY", "0xdeadbeef")
	t.Setenv("DUCK_SIGNALS_ADDRESS", "0x000000000000000000000000000000000000aa")
	t.Setenv("DUCK_TOKEN_ADDRESS", "0x000000000000000000000000000000000000bb")
	t.Setenv("PORT", "9090")
	t.Setenv("VITE_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "a-key")

	cfg, err := Load()
	assert.NoError(t, err)
	assert.Equal(t, "0xdeadbeef", cfg.PrivateKeyHex)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "a-key", cfg.AdvisorAPIKey)
	assert.False(t, cfg.ReadOnly())
	assert.True(t, cfg.RegistrationEnabled())
}

func TestReadOnlyWhenNoPrivateKey(t *testing.T) {
	t.Setenv("PRIVATE_KEY", "")
	cfg, err := Load()
	assert.NoError(t, err)
	assert.True(t, cfg.ReadOnly())
}

func TestRegistrationDisabledForZeroAddress(t *testing.T) {
	cfg := &Config{SignalsAddress: "0x0000000000000000000000000000000000000000"}
	assert.False(t, cfg.RegistrationEnabled())

	cfg.SignalsAddress = ""
	assert.False(t, cfg.RegistrationEnabled())
}

func TestPortFallsBackOnInvalidValue(t *testing.T) {
	t.Setenv("PORT", "not-a-number")
	cfg, err := Load()
	assert.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
}
