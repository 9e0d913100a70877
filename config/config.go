/*
Package config loads server settings from the environment.

PURPOSE:
  A .env file, when present, seeds the process environment; explicit
  environment variables win. Flags in main can still override the result.

VARIABLES:
  PORT            listen port (default 8080)
  DB_PATH         sqlite database path, ":memory:" for ephemeral (default finance.db)
  JWT_SECRET      HS256 signing secret (required outside dev)
  TOKEN_TTL       access token lifetime, Go duration (default 24h)
  CORS_ORIGINS    comma-separated allowed origins (default *)
*/
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	DBPath      string
	JWTSecret   string
	TokenTTL    time.Duration
	CORSOrigins []string
}

// Load reads .env (if present) and the environment.
func Load() (Config, error) {
	// Missing .env is fine; the environment alone is a valid source.
	_ = godotenv.Load()

	cfg := Config{
		Port:      getenv("PORT", "8080"),
		DBPath:    getenv("DB_PATH", "finance.db"),
		JWTSecret: getenv("JWT_SECRET", "dev-secret-do-not-use"),
	}

	ttl := getenv("TOKEN_TTL", "24h")
	d, err := time.ParseDuration(ttl)
	if err != nil {
		return Config{}, fmt.Errorf("parse TOKEN_TTL %q: %w", ttl, err)
	}
	cfg.TokenTTL = d

	for _, origin := range strings.Split(getenv("CORS_ORIGINS", "*"), ",") {
		if o := strings.TrimSpace(origin); o != "" {
			cfg.CORSOrigins = append(cfg.CORSOrigins, o)
		}
	}
	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
