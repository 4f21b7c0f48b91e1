package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{
		"VERIFICATION_TTL_MINUTES", "VERIFICATION_CODE_LENGTH",
		"VERIFICATION_RESEND_INTERVAL_MINUTES", "VERIFICATION_STORE", "SMTP_PORT",
		"TRUST_PROXY_HEADERS",
	} {
		t.Setenv(k, "")
	}
	cfg := Load()
	assert.Equal(t, 10*time.Minute, cfg.Verification.TTL)
	assert.Equal(t, 6, cfg.Verification.CodeLength)
	assert.Equal(t, time.Minute, cfg.Verification.ResendInterval)
	assert.Equal(t, "dynamo", cfg.VerificationStore)
	assert.Equal(t, 1025, cfg.SMTPPort)
	assert.Equal(t, "verification_codes", cfg.DynamoTables.Verifications)
	assert.False(t, cfg.TrustProxyHeaders)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("VERIFICATION_TTL_MINUTES", "30")
	t.Setenv("VERIFICATION_CODE_LENGTH", "8")
	t.Setenv("VERIFICATION_RESEND_INTERVAL_MINUTES", "2")
	t.Setenv("VERIFICATION_STORE", "Memory")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("TRUST_PROXY_HEADERS", "true")

	cfg := Load()
	assert.Equal(t, 30*time.Minute, cfg.Verification.TTL)
	assert.Equal(t, 8, cfg.Verification.CodeLength)
	assert.Equal(t, 2*time.Minute, cfg.Verification.ResendInterval)
	assert.Equal(t, "memory", cfg.VerificationStore)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.True(t, cfg.TrustProxyHeaders)
}

func TestGetEnvInt_InvalidFallsBack(t *testing.T) {
	t.Setenv("VERIFICATION_CODE_LENGTH", "six")
	assert.Equal(t, 6, getEnvInt("VERIFICATION_CODE_LENGTH", 6))
}
