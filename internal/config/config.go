// Package config provides application configuration through environment variables.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/allisson/go-env"
	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	// LogLevel is the logging level (e.g., "debug", "info", "warn", "error").
	LogLevel string

	// TokenAudience identifies the execution host that tokens are minted for.
	TokenAudience string
	// TokenTTL is the default lifetime applied when a mint request passes no TTL.
	TokenTTL time.Duration
	// TokenMaxTTL is the upper bound on any requested token lifetime.
	TokenMaxTTL time.Duration

	// SigningKey is the base64-encoded HMAC signing key. Mutually exclusive
	// with the KMS settings below.
	SigningKey string

	// KMSProvider is the KMS provider to use (e.g., "gcpkms", "awskms", "localsecrets").
	KMSProvider string
	// KMSKeyURI is the URI for the key-wrapping key in the KMS.
	KMSKeyURI string
	// KMSWrappedKey is the base64-encoded, KMS-encrypted signing key.
	KMSWrappedKey string
	// KMSTimeout bounds the KMS unwrap call so a mint can never hang on key material.
	KMSTimeout time.Duration

	// ProjectRoot is the directory that path-scoped capabilities are resolved against.
	ProjectRoot string

	// ChainMaxDepth is the maximum executor-chain length before resolution fails.
	ChainMaxDepth int

	// AuditBufferSize is the queue size of the asynchronous audit sink.
	AuditBufferSize int

	// RateLimitEnabled indicates whether gateway invocation rate limiting is enabled.
	RateLimitEnabled bool
	// RateLimitRequestsPerSec is the number of tool invocations allowed per second.
	RateLimitRequestsPerSec float64
	// RateLimitBurst is the burst size for invocation rate limiting.
	RateLimitBurst int

	// MetricsEnabled indicates whether metrics collection is enabled.
	MetricsEnabled bool
	// MetricsNamespace is the namespace for the application metrics.
	MetricsNamespace string
}

// Load loads configuration from environment variables and .env file.
func Load() *Config {
	// Try to load .env file recursively
	loadDotEnv()

	return &Config{
		// Logging
		LogLevel: env.GetString("LOG_LEVEL", "info"),

		// Tokens
		TokenAudience: env.GetString("TOKEN_AUDIENCE", "warden"),
		TokenTTL:      env.GetDuration("TOKEN_TTL_SECONDS", 3600, time.Second),
		TokenMaxTTL:   env.GetDuration("TOKEN_MAX_TTL_SECONDS", 86400, time.Second),

		// Signing key material
		SigningKey:    env.GetString("SIGNING_KEY", ""),
		KMSProvider:   env.GetString("KMS_PROVIDER", ""),
		KMSKeyURI:     env.GetString("KMS_KEY_URI", ""),
		KMSWrappedKey: env.GetString("KMS_WRAPPED_KEY", ""),
		KMSTimeout:    env.GetDuration("KMS_TIMEOUT_SECONDS", 10, time.Second),

		// Path scoping
		ProjectRoot: env.GetString("PROJECT_ROOT", "."),

		// Executor chains
		ChainMaxDepth: env.GetInt("CHAIN_MAX_DEPTH", 16),

		// Audit
		AuditBufferSize: env.GetInt("AUDIT_BUFFER_SIZE", 1024),

		// Rate Limiting (gateway invocations)
		RateLimitEnabled:        env.GetBool("RATE_LIMIT_ENABLED", false),
		RateLimitRequestsPerSec: env.GetFloat64("RATE_LIMIT_REQUESTS_PER_SEC", 50.0),
		RateLimitBurst:          env.GetInt("RATE_LIMIT_BURST", 100),

		// Metrics
		MetricsEnabled:   env.GetBool("METRICS_ENABLED", true),
		MetricsNamespace: env.GetString("METRICS_NAMESPACE", "warden"),
	}
}

// loadDotEnv searches for a .env file recursively from the current directory
// up to the root directory and loads it if found.
func loadDotEnv() {
	// Get current working directory
	cwd, err := os.Getwd()
	if err != nil {
		return
	}

	// Search for .env file recursively up the directory tree
	dir := cwd
	for {
		envPath := filepath.Join(dir, ".env")
		if _, err := os.Stat(envPath); err == nil {
			// .env file found, load it
			_ = godotenv.Load(envPath)
			return
		}

		// Move to parent directory
		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root directory
			break
		}
		dir = parent
	}
}
