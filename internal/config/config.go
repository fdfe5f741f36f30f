// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the HTTP server listens on (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// DatabaseURL is the Postgres DSN; empty until DB is wired.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// JWTPrivateKey is the PEM-encoded private key (RSA or ECDSA) or path to file; used with JWT_PUBLIC_KEY for RS256/ES256.
	JWTPrivateKey string `mapstructure:"JWT_PRIVATE_KEY"`
	// JWTPublicKey is the PEM-encoded public key or path to file; used with JWT_PRIVATE_KEY.
	JWTPublicKey string `mapstructure:"JWT_PUBLIC_KEY"`
	// JWTIssuer is the iss claim (e.g. "veo-auth"); required when auth is enabled.
	JWTIssuer string `mapstructure:"JWT_ISSUER"`
	// JWTAudience is the aud claim (e.g. "veo-api"); required when auth is enabled.
	JWTAudience string `mapstructure:"JWT_AUDIENCE"`
	// JWTAccessTTL is the access token lifetime (e.g. "15m").
	JWTAccessTTL string `mapstructure:"JWT_ACCESS_TTL"`
	// JWTRefreshTTL is the refresh token lifetime and the session absolute TTL (e.g. "168h").
	JWTRefreshTTL string `mapstructure:"JWT_REFRESH_TTL"`
	// BcryptCost is the bcrypt cost factor (4–31) for the optional registration password; default 12.
	BcryptCost int `mapstructure:"BCRYPT_COST"`

	// MagicLinkTTL is the magic-link lifetime (e.g. "15m").
	MagicLinkTTL string `mapstructure:"MAGIC_LINK_TTL"`
	// MagicLinkSupersede, when true, invalidates a user's prior unconsumed links on each new issue.
	MagicLinkSupersede bool `mapstructure:"MAGIC_LINK_SUPERSEDE"`
	// MagicLinkBaseURL is the frontend URL the token is embedded into (e.g. https://app.example.com/auth/verify).
	MagicLinkBaseURL string `mapstructure:"MAGIC_LINK_BASE_URL"`
	// OTPTTL is the registration code lifetime (e.g. "10m").
	OTPTTL string `mapstructure:"OTP_TTL"`
	// OTPMaxAttempts is the attempt budget per registration code; default 3.
	OTPMaxAttempts int `mapstructure:"OTP_MAX_ATTEMPTS"`
	// RetentionWindow is how long expired challenges, links, and dead sessions
	// are kept for audit before the worker purges them (e.g. "72h").
	RetentionWindow string `mapstructure:"RETENTION_WINDOW"`

	// SMSAPIKey is the API key for the SMS gateway. When empty, SMS delivery is disabled.
	SMSAPIKey string `mapstructure:"SMS_API_KEY"`
	// SMSSender is the optional sender ID for the SMS gateway.
	SMSSender string `mapstructure:"SMS_SENDER"`
	// SMSBaseURL is the SMS gateway API base URL.
	SMSBaseURL string `mapstructure:"SMS_BASE_URL"`
	// MailAPIKey is the API key for the transactional mail provider. When empty, email delivery is disabled.
	MailAPIKey string `mapstructure:"MAIL_API_KEY"`
	// MailFrom is the From address for outgoing mail.
	MailFrom string `mapstructure:"MAIL_FROM"`
	// MailBaseURL is the mail provider API base URL.
	MailBaseURL string `mapstructure:"MAIL_BASE_URL"`
	// NotifyTimeout bounds each channel send independently of the request (e.g. "15s").
	NotifyTimeout string `mapstructure:"NOTIFY_TIMEOUT"`

	// RedisAddr enables the issue/resend rate limiter when set (e.g. localhost:6379).
	RedisAddr string `mapstructure:"REDIS_ADDR"`
	// RateLimitMax is the max issue/resend requests per identifier per window; default 5.
	RateLimitMax int `mapstructure:"RATE_LIMIT_MAX"`
	// RateLimitWindow is the fixed limiter window (e.g. "10m").
	RateLimitWindow string `mapstructure:"RATE_LIMIT_WINDOW"`

	// OTLPEndpoint enables OTLP trace/metric export when set (e.g. http://localhost:4317).
	OTLPEndpoint string `mapstructure:"OTLP_ENDPOINT"`
	// OTLPInsecure forces plaintext OTLP export even for https endpoints.
	OTLPInsecure bool `mapstructure:"OTLP_INSECURE"`

	// DevOTPEnabled exposes issued codes via GET /dev/auth/otp for local development
	// without SMS/mail credentials. Must not be true when Env is production.
	DevOTPEnabled bool `mapstructure:"DEV_OTP_ENABLED"`
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
	v.SetDefault("JWT_ISSUER", "veo-auth")
	v.SetDefault("JWT_AUDIENCE", "veo-api")
	v.SetDefault("JWT_ACCESS_TTL", "15m")
	v.SetDefault("JWT_REFRESH_TTL", "168h") // 7d
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("MAGIC_LINK_TTL", "15m")
	v.SetDefault("MAGIC_LINK_SUPERSEDE", false)
	v.SetDefault("MAGIC_LINK_BASE_URL", "http://localhost:3000/auth/verify")
	v.SetDefault("OTP_TTL", "10m")
	v.SetDefault("OTP_MAX_ATTEMPTS", 3)
	v.SetDefault("RETENTION_WINDOW", "72h")
	v.SetDefault("SMS_BASE_URL", "https://www.smslocal.com/dev/bulkV2")
	v.SetDefault("MAIL_BASE_URL", "https://api.sendgrid.com/v3/mail/send")
	v.SetDefault("NOTIFY_TIMEOUT", "15s")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("RATE_LIMIT_MAX", 5)
	v.SetDefault("RATE_LIMIT_WINDOW", "10m")
	v.SetDefault("OTLP_ENDPOINT", "")
	v.SetDefault("OTLP_INSECURE", false)
	v.SetDefault("DEV_OTP_ENABLED", false)
	v.SetDefault("APP_ENV", "")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}

	if cfg.DevOTPEnabled && cfg.Env == "production" {
		return nil, errors.New("config: DEV_OTP_ENABLED must not be true when APP_ENV=production")
	}

	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = 12
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return nil, errors.New("config: BCRYPT_COST must be between 4 and 31")
	}
	if cfg.OTPMaxAttempts <= 0 {
		return nil, errors.New("config: OTP_MAX_ATTEMPTS must be positive")
	}

	return &cfg, nil
}

// AccessTTL parses JWTAccessTTL as a time.Duration. Returns 15m if unset or invalid.
func (c *Config) AccessTTL() time.Duration {
	return durationOr(c.JWTAccessTTL, 15*time.Minute)
}

// RefreshTTL parses JWTRefreshTTL as a time.Duration. Returns 168h if unset or invalid.
func (c *Config) RefreshTTL() time.Duration {
	return durationOr(c.JWTRefreshTTL, 168*time.Hour)
}

// LinkTTL parses MagicLinkTTL as a time.Duration. Returns 15m if unset or invalid.
func (c *Config) LinkTTL() time.Duration {
	return durationOr(c.MagicLinkTTL, 15*time.Minute)
}

// ChallengeTTL parses OTPTTL as a time.Duration. Returns 10m if unset or invalid.
func (c *Config) ChallengeTTL() time.Duration {
	return durationOr(c.OTPTTL, 10*time.Minute)
}

// Retention parses RetentionWindow as a time.Duration. Returns 72h if unset or invalid.
func (c *Config) Retention() time.Duration {
	return durationOr(c.RetentionWindow, 72*time.Hour)
}

// DispatchTimeout parses NotifyTimeout as a time.Duration. Returns 15s if unset or invalid.
func (c *Config) DispatchTimeout() time.Duration {
	return durationOr(c.NotifyTimeout, 15*time.Second)
}

// LimiterWindow parses RateLimitWindow as a time.Duration. Returns 10m if unset or invalid.
func (c *Config) LimiterWindow() time.Duration {
	return durationOr(c.RateLimitWindow, 10*time.Minute)
}

func durationOr(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
