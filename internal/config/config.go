// Package config loads server configuration from the environment, with an
// optional .env file for development.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/fernwood/hearth/internal/push"
)

// Config is everything the server needs at startup.
type Config struct {
	Port       string
	DBPath     string
	LogLevel   string
	SessionTTL time.Duration
	Push       push.Config
}

// Load reads configuration from the environment. A .env file in the
// working directory is applied first if present; real environment
// variables win. Missing VAPID keys are generated and logged so a fresh
// install can send pushes without any setup.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Port:       getenv("HEARTH_PORT", "8080"),
		DBPath:     getenv("HEARTH_DB_PATH", "hearth.db"),
		LogLevel:   getenv("HEARTH_LOG_LEVEL", "info"),
		SessionTTL: 30 * 24 * time.Hour,
		Push: push.Config{
			VAPIDPublicKey:  os.Getenv("HEARTH_VAPID_PUBLIC_KEY"),
			VAPIDPrivateKey: os.Getenv("HEARTH_VAPID_PRIVATE_KEY"),
			Subscriber:      os.Getenv("HEARTH_VAPID_SUBSCRIBER"),
		},
	}

	if v := os.Getenv("HEARTH_SESSION_TTL_HOURS"); v != "" {
		hours, err := strconv.Atoi(v)
		if err != nil || hours <= 0 {
			return Config{}, fmt.Errorf("invalid HEARTH_SESSION_TTL_HOURS %q", v)
		}
		cfg.SessionTTL = time.Duration(hours) * time.Hour
	}

	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
