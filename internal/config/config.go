package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Auth modes accepted by AUTH_MODE.
const (
	AuthModeJWT  = "jwt"
	AuthModeNone = "none"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// General
	Environment    string `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`
	HTTPListenAddr string `envconfig:"HTTP_LISTEN_ADDR" default:":8080"`

	// Auth: "jwt" verifies HS256 bearer tokens, "none" trusts X-Tenant-ID / X-Role headers (dev only)
	AuthMode  string `envconfig:"AUTH_MODE" default:"jwt"`
	JWTSecret string `envconfig:"JWT_SECRET"`

	// Persistence
	DBPath         string        `envconfig:"DB_PATH" default:"safety.db"`
	OverridesDir   string        `envconfig:"OVERRIDES_DIR"` // seed YAML overrides, <dir>/<tenant>/<module>.yaml
	AuditCapacity  int           `envconfig:"AUDIT_CAPACITY" default:"1000"`
	AuditRetention time.Duration `envconfig:"AUDIT_RETENTION" default:"720h"`

	// Access gate fallback paths
	LoginPath     string `envconfig:"LOGIN_PATH" default:"/login"`
	PaymentPath   string `envconfig:"PAYMENT_PATH" default:"/payment"`
	DashboardPath string `envconfig:"DASHBOARD_PATH" default:"/dashboard"`

	// HTTP edge
	RateLimitRPS   int    `envconfig:"RATE_LIMIT_RPS" default:"100"`
	RateLimitBurst int    `envconfig:"RATE_LIMIT_BURST" default:"200"`
	CORSOrigins    string `envconfig:"CORS_ORIGINS"`
}

// IsDevelopment reports whether the service runs in development mode.
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.Environment, "development")
}

// CORSOriginList returns the parsed list of allowed CORS origins.
// Returns nil if not configured.
func (c *Config) CORSOriginList() []string {
	if c.CORSOrigins == "" {
		return nil
	}
	parts := strings.Split(c.CORSOrigins, ",")
	origins := make([]string, 0, len(parts))
	for _, o := range parts {
		o = strings.TrimSpace(o)
		if o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

// Validate checks combinations envconfig cannot express.
func (c *Config) Validate() error {
	switch strings.ToLower(c.AuthMode) {
	case AuthModeJWT:
		if c.JWTSecret == "" {
			return fmt.Errorf("JWT_SECRET is required when AUTH_MODE=jwt")
		}
	case AuthModeNone:
	default:
		return fmt.Errorf("invalid AUTH_MODE %q, expected jwt or none", c.AuthMode)
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		return fmt.Errorf("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
	}
	if c.AuditCapacity <= 0 {
		return fmt.Errorf("AUDIT_CAPACITY must be positive")
	}
	return nil
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	return LoadWithPrefix("")
}

// LoadWithPrefix reads configuration with a prefix.
func LoadWithPrefix(prefix string) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(prefix, &cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return &cfg, nil
}
