package config

import (
	"testing"
	"time"
)

// clearEnv blanks every variable Load reads so a test sees only what it
// sets itself.
func clearEnv(t *testing.T) {
	t.Helper()
	keys := []string{
		"PRESETWAVE_ADDR",
		"PRESETWAVE_DATA_DIR",
		"PRESETWAVE_DB_PATH",
		"PRESETWAVE_LOG_FILE",
		"PRESETWAVE_SESSION_SECRET",
		"PRESETWAVE_SESSION_MAX_AGE",
		"PRESETWAVE_COOKIE_NAME",
		"PRESETWAVE_COOKIE_SECURE",
		"PRESETWAVE_STOREFRONT_ORIGINS",
		"PRESETWAVE_DEV",
	}
	for _, key := range keys {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg := Load()

	if cfg.Addr != ":8080" {
		t.Errorf("expected default addr :8080, got %q", cfg.Addr)
	}
	if cfg.CookieName != DefaultCookieName {
		t.Errorf("expected default cookie name, got %q", cfg.CookieName)
	}
	if cfg.SessionMaxAge != DefaultSessionMaxAge {
		t.Errorf("expected 30 day session lifetime, got %v", cfg.SessionMaxAge)
	}
	if len(cfg.StorefrontOrigins) != 0 {
		t.Errorf("expected no storefront origins by default, got %v", cfg.StorefrontOrigins)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PRESETWAVE_ADDR", ":9999")
	t.Setenv("PRESETWAVE_SESSION_MAX_AGE", "24h")
	t.Setenv("PRESETWAVE_COOKIE_SECURE", "true")
	t.Setenv("PRESETWAVE_STOREFRONT_ORIGINS", "https://presetwave.com, https://www.presetwave.com")

	cfg := Load()

	if cfg.Addr != ":9999" {
		t.Errorf("expected overridden addr, got %q", cfg.Addr)
	}
	if cfg.SessionMaxAge != 24*time.Hour {
		t.Errorf("expected 24h lifetime, got %v", cfg.SessionMaxAge)
	}
	if !cfg.CookieSecure {
		t.Error("expected secure cookies")
	}
	if len(cfg.StorefrontOrigins) != 2 || cfg.StorefrontOrigins[0] != "https://presetwave.com" {
		t.Errorf("expected two trimmed storefront origins, got %v", cfg.StorefrontOrigins)
	}
}

func TestValidate_SecretRequired(t *testing.T) {
	cfg := Config{}
	if err := cfg.Validate(); err != ErrMissingSessionSecret {
		t.Errorf("expected ErrMissingSessionSecret, got %v", err)
	}

	dev := Config{DevMode: true}
	if err := dev.Validate(); err != nil {
		t.Errorf("dev mode must substitute a secret, got %v", err)
	}
	if dev.SessionSecret == "" {
		t.Error("expected dev secret to be filled in")
	}

	configured := Config{SessionSecret: "s3cret"}
	if err := configured.Validate(); err != nil {
		t.Errorf("expected configured secret to pass, got %v", err)
	}
}
