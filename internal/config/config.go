// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the HTTP server listens on (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// DatabaseURL is the Postgres DSN.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// JWTSecret is the HMAC secret for HS256 access tokens. Ignored when JWTPrivateKey is set.
	JWTSecret string `mapstructure:"JWT_SECRET"`
	// JWTPrivateKey is a PEM-encoded private key (RSA or ECDSA) or a path to one; enables RS256/ES256.
	JWTPrivateKey string `mapstructure:"JWT_PRIVATE_KEY"`
	// JWTPublicKey is the matching PEM-encoded public key or a path to one.
	JWTPublicKey string `mapstructure:"JWT_PUBLIC_KEY"`
	// JWTIssuer is the iss claim on access tokens.
	JWTIssuer string `mapstructure:"JWT_ISSUER"`
	// JWTAccessTTL is the access token lifetime (e.g. "15m").
	JWTAccessTTL string `mapstructure:"JWT_ACCESS_TTL"`
	// RefreshTTL is the refresh session lifetime (e.g. "1440h" = 60d).
	RefreshTTL string `mapstructure:"REFRESH_TTL"`
	// BcryptCost is the bcrypt cost factor (4–31) for refresh-secret digests; default 12.
	BcryptCost int `mapstructure:"BCRYPT_COST"`
	// QuotaTimezone anchors the weekly usage window (IANA name). The reset boundary is
	// local Monday midnight in this zone regardless of the server's own timezone.
	QuotaTimezone string `mapstructure:"QUOTA_TIMEZONE"`
	// GoogleIssuer and GoogleAudience validate Google ID tokens. Empty audience disables the provider.
	GoogleIssuer   string `mapstructure:"GOOGLE_ISSUER"`
	GoogleAudience string `mapstructure:"GOOGLE_AUDIENCE"`
	// AppleIssuer and AppleAudience validate Apple ID tokens. Empty audience disables the provider.
	AppleIssuer   string `mapstructure:"APPLE_ISSUER"`
	AppleAudience string `mapstructure:"APPLE_AUDIENCE"`
	// CORSOrigins is a comma-separated list of allowed origins; "*" allows all.
	CORSOrigins string `mapstructure:"CORS_ORIGINS"`
	// OTLPEndpoint is the OTLP gRPC collector endpoint (e.g. http://localhost:4317). Empty disables export.
	OTLPEndpoint string `mapstructure:"OTLP_ENDPOINT"`
	// OTLPInsecure forces plaintext OTLP export even for https endpoints.
	OTLPInsecure bool `mapstructure:"OTLP_INSECURE"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("JWT_ISSUER", "legalrisk-auth")
	v.SetDefault("JWT_ACCESS_TTL", "15m")
	v.SetDefault("REFRESH_TTL", "1440h") // 60d
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("QUOTA_TIMEZONE", "America/Lima")
	v.SetDefault("GOOGLE_ISSUER", "https://accounts.google.com")
	v.SetDefault("GOOGLE_AUDIENCE", "")
	v.SetDefault("APPLE_ISSUER", "https://appleid.apple.com")
	v.SetDefault("APPLE_AUDIENCE", "")
	v.SetDefault("CORS_ORIGINS", "*")
	v.SetDefault("OTLP_ENDPOINT", "")
	v.SetDefault("OTLP_INSECURE", false)
	v.SetDefault("APP_ENV", "")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}

	if cfg.JWTSecret == "" && cfg.JWTPrivateKey == "" {
		return nil, errors.New("config: JWT_SECRET or JWT_PRIVATE_KEY must be set")
	}
	if cfg.JWTPrivateKey != "" && cfg.JWTPublicKey == "" {
		return nil, errors.New("config: JWT_PUBLIC_KEY must be set when JWT_PRIVATE_KEY is set")
	}

	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = 12
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return nil, errors.New("config: BCRYPT_COST must be between 4 and 31")
	}

	if cfg.QuotaTimezone == "" {
		return nil, errors.New("config: QUOTA_TIMEZONE must be set")
	}

	return &cfg, nil
}

// AccessTTL parses JWTAccessTTL as a time.Duration. Returns 15m if unset or invalid.
func (c *Config) AccessTTL() time.Duration {
	d, err := time.ParseDuration(c.JWTAccessTTL)
	if err != nil || d <= 0 {
		return 15 * time.Minute
	}
	return d
}

// SessionTTL parses RefreshTTL as a time.Duration. Returns 1440h (60 days) if unset or invalid.
func (c *Config) SessionTTL() time.Duration {
	d, err := time.ParseDuration(c.RefreshTTL)
	if err != nil || d <= 0 {
		return 1440 * time.Hour
	}
	return d
}

// CORSOriginsList returns allowed origins from the comma-separated config.
func (c *Config) CORSOriginsList() []string {
	if c == nil || c.CORSOrigins == "" {
		return nil
	}
	parts := strings.Split(c.CORSOrigins, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
