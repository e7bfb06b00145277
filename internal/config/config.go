package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port             string
	DBDSN            string
	LogFile          string
	LogLevel         string
	Timezone         string
	JWTSecret        string
	TokenTTL         time.Duration
	RedisAddr        string
	RequestTimeout   time.Duration
	BodyLimit        int
	PhoneRegion      string
	OperatorUsername string
	OperatorPassword string
	SeedDemo         bool
}

// Location resolves the configured timezone, falling back to UTC.
func (c Config) Location() *time.Location {
	if c.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func Load() Config {
	// .env is optional
	_ = godotenv.Load()

	cfg := Config{
		Port:             env("PORT", "8080"),
		DBDSN:            env("DB_DSN", "stockpos.db"),
		LogFile:          env("LOG_FILE", ""),
		LogLevel:         env("LOG_LEVEL", "info"),
		Timezone:         env("TZ_NAME", "Africa/Kinshasa"),
		JWTSecret:        env("JWT_SECRET", "change-me"),
		TokenTTL:         envDuration("TOKEN_TTL", 12*time.Hour),
		RedisAddr:        env("REDIS_ADDR", ""),
		RequestTimeout:   envDuration("REQUEST_TIMEOUT", 15*time.Second),
		BodyLimit:        envInt("BODY_LIMIT", 1<<20),
		PhoneRegion:      env("PHONE_REGION", "CD"),
		OperatorUsername: env("OPERATOR_USERNAME", "operator"),
		OperatorPassword: env("OPERATOR_PASSWORD", ""),
		SeedDemo:         envBool("SEED_DEMO", false),
	}
	if cfg.JWTSecret == "change-me" {
		log.Printf("[config] JWT_SECRET not set, using an insecure development secret")
	}
	log.Printf("[config] PORT=%s DB_DSN=%s LOG_FILE=%s TZ_NAME=%s REDIS_ADDR=%s SEED_DEMO=%v",
		cfg.Port, maskDSN(cfg.DBDSN), cfg.LogFile, cfg.Timezone, cfg.RedisAddr, cfg.SeedDemo)
	return cfg
}

func env(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	n, err := strconv.Atoi(env(key, ""))
	if err != nil {
		return def
	}
	return n
}

func envBool(key string, def bool) bool {
	b, err := strconv.ParseBool(env(key, ""))
	if err != nil {
		return def
	}
	return b
}

func envDuration(key string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(env(key, ""))
	if err != nil || d <= 0 {
		return def
	}
	return d
}

// maskDSN hides the password of a postgres URL.
func maskDSN(dsn string) string {
	at := strings.LastIndex(dsn, "@")
	scheme := strings.Index(dsn, "://")
	if at < 0 || scheme < 0 {
		return dsn
	}
	creds := dsn[scheme+3 : at]
	if i := strings.Index(creds, ":"); i >= 0 {
		return dsn[:scheme+3] + creds[:i] + ":***" + dsn[at:]
	}
	return dsn
}
