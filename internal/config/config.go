// Package config loads process configuration from the environment.
//
// Configuration is read once at process startup from a ".env" file (if present)
// and the process environment; environment variables always take precedence
// over ".env" file values, matching the precedence rule of godotenv.Load.
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds every environment-derived setting consumed by one or more
// processes (spec §6). Not every process reads every field.
type Config struct {
	PrivateKeyHex       string // PRIVATE_KEY, hex with or without 0x prefix; empty = read-only mode
	RPCURL              string // RPC_URL
	SignalsAddress      string // DUCK_SIGNALS_ADDRESS; empty or zero-address = skip registration
	TokenAddress        string // DUCK_TOKEN_ADDRESS
	WrappedNativeAddr   string // WMON_ADDRESS
	RouterAddress       string // DUCK_ROUTER_ADDRESS; on-chain swap-quote contract for the Price Service fallback (spec §4.2 step 2). Not in spec §6's explicit list — added because the fallback quote read needs a concrete contract address; empty disables the fallback path (priceservice.New tolerates a nil FallbackQuoter).
	BondingCurveAddress string // DUCK_BONDING_CURVE_ADDRESS; the contract getBondingProgress's two reads target (spec §4.2). Not in spec §6's explicit list for the same reason as RouterAddress; empty disables the Liquidity agent's bonding reads (GetBondingProgress degrades to {0, false} with a nil reader).
	HubURL              string // WEBSOCKET_SERVER_URL (agent -> hub base URL, ws or http)
	Port                int    // PORT (hub HTTP port)
	AdvisorAPIKey       string // VITE_API_KEY or GEMINI_API_KEY
	AdvisorEndpoint     string // ADVISOR_ENDPOINT_URL; not in spec §6's explicit list, added so the Advisor Proxy (spec §4.9) has a concrete URL to POST to
	LogLevel            string
	LogPretty           bool
}

// Load reads a ".env" file if present and then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load() // optional; missing .env is not an error

	cfg := &Config{
		PrivateKeyHex:       os.Getenv("PRIVATE_KEY"),
		RPCURL:              getenv("RPC_URL", "http://127.0.0.1:8545"),
		SignalsAddress:      os.Getenv("DUCK_SIGNALS_ADDRESS"),
		TokenAddress:        os.Getenv("DUCK_TOKEN_ADDRESS"),
		WrappedNativeAddr:   os.Getenv("WMON_ADDRESS"),
		RouterAddress:       os.Getenv("DUCK_ROUTER_ADDRESS"),
		BondingCurveAddress: os.Getenv("DUCK_BONDING_CURVE_ADDRESS"),
		HubURL:              getenv("WEBSOCKET_SERVER_URL", "http://127.0.0.1:8080"),
		Port:                getenvInt("PORT", 8080),
		AdvisorAPIKey:       firstNonEmpty(os.Getenv("VITE_API_KEY"), os.Getenv("GEMINI_API_KEY")),
		AdvisorEndpoint:     getenv("ADVISOR_ENDPOINT_URL", "https://generativelanguage.googleapis.com/v1beta/models/gemini-1.5-flash:generateContent"),
		LogLevel:            getenv("LOG_LEVEL", "info"),
		LogPretty:           getenvBool("LOG_PRETTY", true),
	}
	return cfg, nil
}

// ReadOnly reports whether no wallet key was configured, in which case agents
// must skip registration and all on-chain writes (spec §6).
func (c *Config) ReadOnly() bool {
	return strings.TrimSpace(c.PrivateKeyHex) == ""
}

// RegistrationEnabled reports whether the registry contract address is usable.
func (c *Config) RegistrationEnabled() bool {
	addr := strings.ToLower(strings.TrimSpace(c.SignalsAddress))
	return addr != "" && addr != "0x0000000000000000000000000000000000000000"
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getenvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
