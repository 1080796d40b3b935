package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name     string
		envVars  map[string]string
		validate func(t *testing.T, cfg *Config)
	}{
		{
			name:    "load default configuration",
			envVars: map[string]string{},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "info", cfg.LogLevel)
				assert.Equal(t, "warden", cfg.TokenAudience)
				assert.Equal(t, 3600*time.Second, cfg.TokenTTL)
				assert.Equal(t, 86400*time.Second, cfg.TokenMaxTTL)
				assert.Equal(t, "", cfg.SigningKey)
				assert.Equal(t, "", cfg.KMSProvider)
				assert.Equal(t, 10*time.Second, cfg.KMSTimeout)
				assert.Equal(t, ".", cfg.ProjectRoot)
				assert.Equal(t, 16, cfg.ChainMaxDepth)
				assert.Equal(t, 1024, cfg.AuditBufferSize)
				assert.False(t, cfg.RateLimitEnabled)
				assert.True(t, cfg.MetricsEnabled)
				assert.Equal(t, "warden", cfg.MetricsNamespace)
			},
		},
		{
			name: "load custom token configuration",
			envVars: map[string]string{
				"TOKEN_AUDIENCE":    "agent-host-1",
				"TOKEN_TTL_SECONDS": "600",
				"CHAIN_MAX_DEPTH":   "8",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "agent-host-1", cfg.TokenAudience)
				assert.Equal(t, 600*time.Second, cfg.TokenTTL)
				assert.Equal(t, 8, cfg.ChainMaxDepth)
			},
		},
		{
			name: "load KMS configuration",
			envVars: map[string]string{
				"KMS_PROVIDER":        "localsecrets",
				"KMS_KEY_URI":         "base64key://c2VjcmV0",
				"KMS_WRAPPED_KEY":     "d3JhcHBlZA==",
				"KMS_TIMEOUT_SECONDS": "3",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "localsecrets", cfg.KMSProvider)
				assert.Equal(t, "base64key://c2VjcmV0", cfg.KMSKeyURI)
				assert.Equal(t, "d3JhcHBlZA==", cfg.KMSWrappedKey)
				assert.Equal(t, 3*time.Second, cfg.KMSTimeout)
			},
		},
		{
			name: "load rate limit configuration",
			envVars: map[string]string{
				"RATE_LIMIT_ENABLED":          "true",
				"RATE_LIMIT_REQUESTS_PER_SEC": "5.5",
				"RATE_LIMIT_BURST":            "11",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.True(t, cfg.RateLimitEnabled)
				assert.Equal(t, 5.5, cfg.RateLimitRequestsPerSec)
				assert.Equal(t, 11, cfg.RateLimitBurst)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for key, value := range tt.envVars {
				os.Setenv(key, value)
			}
			defer func() {
				for key := range tt.envVars {
					os.Unsetenv(key)
				}
			}()

			cfg := Load()
			tt.validate(t, cfg)
		})
	}
}
