package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort        string
	AppEnv         string
	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string
	DynamoTables   DynamoTables
	// VerificationStore selects the record store: "dynamo" or "memory".
	VerificationStore string
	Verification      Verification
	JWTPrivateKeyPath string
	JWTPublicKeyPath  string
	GrantExpiry       time.Duration
	SMTPHost          string
	SMTPPort          int
	SMTPFrom          string
	SMTPUsername      string
	SMTPPassword      string
	AllowedOrigins    []string // CORS allowed origins
	// TrustProxyHeaders lets X-Forwarded-For / X-Real-IP replace the socket
	// address. Enable only behind a proxy that overwrites those headers.
	TrustProxyHeaders bool
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	Verifications string
}

// Verification holds the engine defaults exposed to deployment configuration.
type Verification struct {
	TTL            time.Duration
	CodeLength     int
	ResendInterval time.Duration
}

// Load reads all configuration from environment variables.
func Load() *Config {
	return &Config{
		AppPort:        getEnv("APP_PORT", "3000"),
		AppEnv:         getEnv("APP_ENV", "development"),
		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		DynamoTables: DynamoTables{
			Verifications: getEnv("DYNAMO_TABLE_VERIFICATIONS", "verification_codes"),
		},
		VerificationStore: strings.ToLower(getEnv("VERIFICATION_STORE", "dynamo")),
		Verification: Verification{
			TTL:            time.Duration(getEnvInt("VERIFICATION_TTL_MINUTES", 10)) * time.Minute,
			CodeLength:     getEnvInt("VERIFICATION_CODE_LENGTH", 6),
			ResendInterval: time.Duration(getEnvInt("VERIFICATION_RESEND_INTERVAL_MINUTES", 1)) * time.Minute,
		},
		JWTPrivateKeyPath: getEnv("JWT_PRIVATE_KEY_PATH", "./private_key.pem"),
		JWTPublicKeyPath:  getEnv("JWT_PUBLIC_KEY_PATH", "./public_key.pem"),
		GrantExpiry:       time.Duration(getEnvInt("GRANT_EXPIRY_MINUTES", 15)) * time.Minute,
		SMTPHost:          getEnv("SMTP_HOST", "localhost"),
		SMTPPort:          getEnvInt("SMTP_PORT", 1025),
		SMTPFrom:          getEnv("SMTP_FROM", "noreply@example.com"),
		SMTPUsername:      getEnv("SMTP_USERNAME", ""),
		SMTPPassword:      getEnv("SMTP_PASSWORD", ""),
		AllowedOrigins:    strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
		TrustProxyHeaders: getEnvBool("TRUST_PROXY_HEADERS", false),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
