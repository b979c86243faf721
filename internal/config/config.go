// Package config loads application configuration with multi-source
// priority.
//
// Sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (~/.voyago/config.yaml or ./config.yaml)
//  3. Default values
//
// Sensitive fields (API key, database password) are masked in
// MarshalJSON and String so a logged Config never leaks secrets.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/viper"

	"github.com/voyago/voyago/internal/persona"
)

var (
	// ErrMissingAPIKey indicates GEMINI_API_KEY is not set.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrInvalidPostgresPort indicates the PostgreSQL port is out of range.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")

	// ErrInvalidTimezone indicates the configured timezone does not load.
	ErrInvalidTimezone = errors.New("invalid timezone")

	// ErrInvalidRateLimit indicates a non-positive rate limit.
	ErrInvalidRateLimit = errors.New("invalid rate limit")

	// ErrInvalidHistoryTurns indicates the history window is out of range.
	ErrInvalidHistoryTurns = errors.New("invalid max history turns")
)

// MaxAllowedHistoryTurns is the absolute ceiling for the history window.
const MaxAllowedHistoryTurns = 10000

// PersonaConfig declares an extra persona in the config file.
type PersonaConfig struct {
	ID     string `mapstructure:"id" json:"id"`
	Name   string `mapstructure:"name" json:"name"`
	Marker string `mapstructure:"marker" json:"marker"`
	Prompt string `mapstructure:"prompt" json:"prompt"`
}

// Config stores application configuration.
// Sensitive fields are explicitly masked in MarshalJSON; when adding a
// new secret, update MarshalJSON too.
type Config struct {
	// HTTP server
	Addr       string `mapstructure:"addr" json:"addr"`
	TrustProxy bool   `mapstructure:"trust_proxy" json:"trust_proxy"`

	// Model configuration
	GeminiAPIKey   string  `mapstructure:"gemini_api_key" json:"gemini_api_key"` // SENSITIVE: masked in MarshalJSON
	ModelName      string  `mapstructure:"model_name" json:"model_name"`
	TitleModelName string  `mapstructure:"title_model_name" json:"title_model_name"`
	ModelQPS       float64 `mapstructure:"model_qps" json:"model_qps"`
	ModelBurst     int     `mapstructure:"model_burst" json:"model_burst"`

	// Conversation behavior
	MaxHistoryTurns   int    `mapstructure:"max_history_turns" json:"max_history_turns"`
	RateLimit         int    `mapstructure:"rate_limit" json:"rate_limit"`
	RateWindowSeconds int    `mapstructure:"rate_window_seconds" json:"rate_window_seconds"`
	Timezone          string `mapstructure:"timezone" json:"timezone"`

	// Extra personas on top of the built-ins
	Personas []PersonaConfig `mapstructure:"personas" json:"personas"`

	// Storage
	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"postgres_password"` // SENSITIVE: masked in MarshalJSON
	PostgresDBName   string `mapstructure:"postgres_db_name" json:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode" json:"postgres_ssl_mode"`
}

// Load loads configuration.
// Priority: environment variables > configuration file > defaults.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".voyago"))
	}
	v.AddConfigPath(".")

	setDefaults(v)
	bindEnvVariables(v)

	if err := v.ReadInConfig(); err != nil {
		// A missing file is fine; defaults and env cover everything.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// DATABASE_URL wins over discrete postgres_* settings.
	if err := cfg.parseDatabaseURL(); err != nil {
		return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("addr", "127.0.0.1:8080")
	v.SetDefault("trust_proxy", false)

	v.SetDefault("model_name", "gemini-2.5-flash")
	v.SetDefault("title_model_name", "gemini-2.5-flash-lite")
	v.SetDefault("model_qps", 2.0)
	v.SetDefault("model_burst", 4)

	v.SetDefault("max_history_turns", 200)
	v.SetDefault("rate_limit", 10)
	v.SetDefault("rate_window_seconds", 60)
	v.SetDefault("timezone", "Asia/Kolkata")

	// PostgreSQL defaults matching docker-compose.yml
	v.SetDefault("postgres_host", "localhost")
	v.SetDefault("postgres_port", 5432)
	v.SetDefault("postgres_user", "voyago")
	v.SetDefault("postgres_password", "voyago_dev_password")
	v.SetDefault("postgres_db_name", "voyago")
	v.SetDefault("postgres_ssl_mode", "disable")
}

// bindEnvVariables binds environment overrides explicitly.
func bindEnvVariables(v *viper.Viper) {
	// Hardcoded keys cannot fail to bind; a panic here is a bug.
	mustBind := func(key, envVar string) {
		if err := v.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("gemini_api_key", "GEMINI_API_KEY")

	mustBind("addr", "VOYAGO_ADDR")
	mustBind("trust_proxy", "VOYAGO_TRUST_PROXY")
	mustBind("model_name", "VOYAGO_MODEL_NAME")
	mustBind("title_model_name", "VOYAGO_TITLE_MODEL_NAME")
	mustBind("max_history_turns", "VOYAGO_MAX_HISTORY_TURNS")
	mustBind("rate_limit", "VOYAGO_RATE_LIMIT")
	mustBind("rate_window_seconds", "VOYAGO_RATE_WINDOW_SECONDS")
	mustBind("timezone", "VOYAGO_TIMEZONE")
}

// parseDatabaseURL overlays postgres settings from DATABASE_URL when it
// is set.
func (c *Config) parseDatabaseURL() error {
	raw := os.Getenv("DATABASE_URL")
	if raw == "" {
		return nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}

	c.PostgresHost = u.Hostname()
	if port := u.Port(); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return fmt.Errorf("invalid port %q", port)
		}
		c.PostgresPort = p
	}
	if u.User != nil {
		c.PostgresUser = u.User.Username()
		if pw, ok := u.User.Password(); ok {
			c.PostgresPassword = pw
		}
	}
	if name := filepath.Base(u.Path); name != "." && name != "/" {
		c.PostgresDBName = name
	}
	if mode := u.Query().Get("sslmode"); mode != "" {
		c.PostgresSSLMode = mode
	}
	return nil
}

// Validate fails fast on configuration the service cannot run with.
func (c *Config) Validate() error {
	if c.GeminiAPIKey == "" {
		return fmt.Errorf("%w: set GEMINI_API_KEY", ErrMissingAPIKey)
	}
	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: %d", ErrInvalidPostgresPort, c.PostgresPort)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidTimezone, c.Timezone)
	}
	if c.RateLimit < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidRateLimit, c.RateLimit)
	}
	if c.MaxHistoryTurns < 1 || c.MaxHistoryTurns > MaxAllowedHistoryTurns {
		return fmt.Errorf("%w: %d (must be 1..%d)", ErrInvalidHistoryTurns, c.MaxHistoryTurns, MaxAllowedHistoryTurns)
	}
	return nil
}

// ConnString returns the PostgreSQL connection URL.
func (c *Config) ConnString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(c.PostgresUser),
		url.QueryEscape(c.PostgresPassword),
		c.PostgresHost,
		c.PostgresPort,
		c.PostgresDBName,
		c.PostgresSSLMode)
}

// Location returns the configured civil timezone. Validate has already
// checked it loads.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

// RateWindow returns the rate-limit window as a duration.
func (c *Config) RateWindow() time.Duration {
	return time.Duration(c.RateWindowSeconds) * time.Second
}

// ExtraPersonas converts configured personas into registry entries.
func (c *Config) ExtraPersonas() []persona.Persona {
	out := make([]persona.Persona, 0, len(c.Personas))
	for _, p := range c.Personas {
		out = append(out, persona.Persona{
			ID:     p.ID,
			Name:   p.Name,
			Marker: p.Marker,
			Prompt: p.Prompt,
		})
	}
	return out
}

// maskedValue is the placeholder for masked sensitive data.
const maskedValue = "████████"

// maskSecret masks a secret for safe logging. Short secrets are fully
// masked; longer ones keep two characters at each end for debugging.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return maskedValue
	}
	return s[:2] + "<" + maskedValue + ">" + s[len(s)-2:]
}

// MarshalJSON implements json.Marshaler with sensitive field masking.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	a := alias(c)
	a.GeminiAPIKey = maskSecret(a.GeminiAPIKey)
	a.PostgresPassword = maskSecret(a.PostgresPassword)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// String implements Stringer so printing a Config never leaks secrets.
func (c Config) String() string {
	data, err := c.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}
