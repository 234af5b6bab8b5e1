package config

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// ErrMissingSessionSecret means the service cannot sign session tokens.
// This is the one startup failure that must abort the process.
var ErrMissingSessionSecret = errors.New("session secret not configured (set PRESETWAVE_SESSION_SECRET)")

const (
	// DefaultSessionMaxAge matches the storefront's 30-day session lifetime.
	DefaultSessionMaxAge = 30 * 24 * time.Hour

	// DefaultCookieName is the session cookie carrier name.
	DefaultCookieName = "presetwave_session"
)

// Config holds all runtime configuration, sourced from environment variables.
type Config struct {
	Addr          string
	DataDir       string
	DBPath        string
	LogFile       string
	SessionSecret string
	SessionMaxAge time.Duration
	CookieName    string
	CookieSecure  bool
	// StorefrontOrigins are public origins allowed to call the API
	// cross-origin, beyond the always-allowed private networks.
	StorefrontOrigins []string
	// DevMode permits a fixed development secret when none is configured.
	DevMode bool
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// Load reads configuration from the environment, applying defaults.
func Load() Config {
	dataDir := getenv("PRESETWAVE_DATA_DIR", "data")

	cfg := Config{
		Addr:          getenv("PRESETWAVE_ADDR", ":8080"),
		DataDir:       dataDir,
		DBPath:        getenv("PRESETWAVE_DB_PATH", filepath.Join(dataDir, "presetwave.db")),
		LogFile:       getenv("PRESETWAVE_LOG_FILE", ""),
		SessionSecret: os.Getenv("PRESETWAVE_SESSION_SECRET"),
		CookieName:    getenv("PRESETWAVE_COOKIE_NAME", DefaultCookieName),
		CookieSecure:  getenvBool("PRESETWAVE_COOKIE_SECURE", false),
		DevMode:       getenvBool("PRESETWAVE_DEV", false),
		SessionMaxAge: DefaultSessionMaxAge,
	}

	if v := os.Getenv("PRESETWAVE_STOREFRONT_ORIGINS"); v != "" {
		for _, origin := range strings.Split(v, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				cfg.StorefrontOrigins = append(cfg.StorefrontOrigins, origin)
			}
		}
	}

	if v := os.Getenv("PRESETWAVE_SESSION_MAX_AGE"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.SessionMaxAge = d
		}
	}

	return cfg
}

// Validate checks that the configuration is usable. A missing session secret
// outside dev mode is fatal: the auth subsystem cannot function at all.
func (c *Config) Validate() error {
	if c.SessionSecret == "" {
		if !c.DevMode {
			return ErrMissingSessionSecret
		}
		c.SessionSecret = "dev-secret-change-me"
	}
	return nil
}
