package app

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/lumonlab/crecheauth/internal/auth/identity"
	"github.com/lumonlab/crecheauth/internal/auth/service"
)

type Config struct {
	Issuer         string // Issuer claim for access tokens and the TOTP label
	DatabaseFile   string // Path to the SQLite database file (default: ./auth.db)
	PepperFile     string // Path to the password hashing pepper (default: ./pepper)
	SigningKeyFile string // Path to the Ed25519 signing key PEM; empty means ephemeral

	LockoutThreshold int           // Failed attempts before lockout (default: 5)
	LockoutDuration  time.Duration // Lock window after threshold (default: 15m)
	ResetTokenTTL    time.Duration // Password reset token lifetime (default: 1h)

	OIDCProviders []identity.ProviderConfig // Federated login providers

	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // debug, info, warn, error (default: info)
	LogFormat            string        // json, text (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Expired token sweep interval (default: 1h)
	NotifyBuffer         int           // Audit/email queue depth (default: 256)
}

func LoadConfig() Config {
	cfg := Config{
		Issuer:         getEnvOrDefault("AUTH_ISSUER", "creche-auth"),
		DatabaseFile:   getEnvOrDefault("AUTH_DATABASE_FILE", "auth.db"),
		PepperFile:     getEnvOrDefault("AUTH_PEPPER_FILE", "pepper"),
		SigningKeyFile: os.Getenv("AUTH_SIGNING_KEY_FILE"),

		LockoutThreshold: getEnvIntOrDefault("AUTH_LOCKOUT_THRESHOLD", service.DefaultLockoutThreshold),
		LockoutDuration:  getEnvDurationOrDefault("AUTH_LOCKOUT_DURATION", service.DefaultLockoutDuration),
		ResetTokenTTL:    getEnvDurationOrDefault("AUTH_RESET_TOKEN_TTL", service.DefaultResetTokenTTL),

		OIDCProviders: parseOIDCProviders(os.Getenv("AUTH_OIDC_PROVIDERS")),

		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),
		NotifyBuffer:         getEnvIntOrDefault("AUTH_NOTIFY_BUFFER", 256),
	}

	return cfg
}

// parseOIDCProviders decodes AUTH_OIDC_PROVIDERS, a semicolon-separated list
// of `name=issuer-url|client-id` entries, e.g.
//
//	google=https://accounts.google.com|1234.apps.googleusercontent.com
//
// Malformed entries are skipped.
func parseOIDCProviders(raw string) []identity.ProviderConfig {
	var out []identity.ProviderConfig
	for _, entry := range strings.Split(raw, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		name, rest, ok := strings.Cut(entry, "=")
		if !ok {
			continue
		}
		issuerURL, clientID, ok := strings.Cut(rest, "|")
		if !ok || name == "" || issuerURL == "" || clientID == "" {
			continue
		}
		out = append(out, identity.ProviderConfig{
			Name:      strings.TrimSpace(name),
			IssuerURL: strings.TrimSpace(issuerURL),
			ClientID:  strings.TrimSpace(clientID),
		})
	}
	return out
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if d, err := time.ParseDuration(value); err == nil {
		return d
	}

	return defaultValue
}
