package auth

import (
	"os"
	"strconv"
	"time"
)

// Config holds token and cookie settings.
type Config struct {
	Issuer       string
	KeyFile      string
	AccessTTL    time.Duration
	RefreshTTL   time.Duration
	CookieName   string
	CookieSecure bool
}

// ConfigFromEnv reads AUTH_* and COOKIE_* variables.
func ConfigFromEnv() Config {
	cfg := Config{
		Issuer:     "http://localhost:8431",
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 30 * 24 * time.Hour,
		CookieName: "profile_admin_session",
	}
	if v := os.Getenv("AUTH_ISSUER"); v != "" {
		cfg.Issuer = v
	}
	cfg.KeyFile = os.Getenv("AUTH_SIGNING_KEY_FILE")
	if v := os.Getenv("AUTH_TOKEN_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.AccessTTL = d
		}
	}
	if v := os.Getenv("AUTH_REFRESH_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.RefreshTTL = d
		}
	}
	if v := os.Getenv("COOKIE_NAME"); v != "" {
		cfg.CookieName = v
	}
	if v := os.Getenv("COOKIE_SECURE"); v != "" {
		cfg.CookieSecure, _ = strconv.ParseBool(v)
	}
	return cfg
}
