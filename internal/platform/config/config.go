package config

import (
	"os"
	"strconv"
	"time"
)

// Server captures process-level configuration assembled from the environment
// so main stays lean.
type Server struct {
	Addr        string
	DatabaseURL string
	Redis       RedisConfig

	// Session cookie settings. TokenTTL doubles as the revocation-list TTL:
	// a revoked token only needs to stay blacklisted for as long as the
	// cookie that carried it could still be replayed.
	CookieName string
	TokenTTL   time.Duration

	BcryptCost int

	// Login throttling (per identifier).
	LoginRatePerMinute int
	LoginBurst         int

	SMTP SMTPConfig

	// Where contact-form submissions land.
	ContactInbox string
}

// RedisConfig holds connection settings for the revocation list backend.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// SMTPConfig holds outbound mail settings. Empty host disables SMTP and the
// server falls back to a log-only mailer.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

const defaultTokenTTL = 7 * 24 * time.Hour // matches the authToken cookie max-age

// FromEnv builds a Server config from environment variables.
func FromEnv() Server {
	cfg := Server{
		Addr:               envOr("VRAS_ADDR", ":8080"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		CookieName:         envOr("VRAS_COOKIE_NAME", "authToken"),
		TokenTTL:           envDuration("VRAS_TOKEN_TTL", defaultTokenTTL),
		BcryptCost:         envInt("VRAS_BCRYPT_COST", 10),
		LoginRatePerMinute: envInt("VRAS_LOGIN_RATE_PER_MINUTE", 10),
		LoginBurst:         envInt("VRAS_LOGIN_BURST", 5),
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		ContactInbox: envOr("VRAS_CONTACT_INBOX", "support@vras.local"),
		SMTP: SMTPConfig{
			Host:     os.Getenv("SMTP_HOST"),
			Port:     envInt("SMTP_PORT", 587),
			Username: os.Getenv("SMTP_USERNAME"),
			Password: os.Getenv("SMTP_PASSWORD"),
			From:     envOr("SMTP_FROM", "no-reply@vras.local"),
		},
	}
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
