// Package config loads the service configuration from a YAML file and
// SIGNUP_SHEETS_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-signupsheets/pkg/mail"
)

// DefaultFile is the config file looked up when no path is given.
const DefaultFile = "signup-sheets.yaml"

// EnvPrefix prefixes every environment override, e.g.
// SIGNUP_SHEETS_DATABASE_DSN for database.dsn.
const EnvPrefix = "SIGNUP_SHEETS"

// SiteConfig describes the public site.
type SiteConfig struct {
	Name         string `mapstructure:"name" yaml:"name"`
	URL          string `mapstructure:"url" yaml:"url"`
	FromEmail    string `mapstructure:"from_email" yaml:"from_email"`
	Theme        string `mapstructure:"theme" yaml:"theme"`
	Variant      string `mapstructure:"variant" yaml:"variant"`
	TemplatesDir string `mapstructure:"templates_dir" yaml:"templates_dir"`
	Pro          bool   `mapstructure:"pro" yaml:"pro"`
}

// Mail returns the sender identity used in messages.
func (s SiteConfig) Mail() mail.Site {
	return mail.Site{Name: s.Name, URL: s.URL, FromEmail: s.FromEmail}
}

// DatabaseConfig selects the SQL driver and connection string.
type DatabaseConfig struct {
	Driver string `mapstructure:"driver" yaml:"driver"` // sqlite or postgres
	DSN    string `mapstructure:"dsn" yaml:"dsn"`
}

// CacheConfig configures the page cache. Pages are kept in process unless
// RedisAddr is set.
type CacheConfig struct {
	RedisAddr string        `mapstructure:"redis_addr" yaml:"redis_addr"`
	TTL       time.Duration `mapstructure:"ttl" yaml:"ttl"`
	// PurgeURLs sends PURGE requests for changed pages to an upstream proxy.
	PurgeURLs bool `mapstructure:"purge_urls" yaml:"purge_urls"`
}

// SchedulerConfig configures background jobs.
type SchedulerConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	Reminders    string        `mapstructure:"reminders" yaml:"reminders"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"` // json or console
}

// SecurityConfig holds the signing keys and cookie policy.
//
// WARNING: the keys are secrets and should come from the environment
// rather than the config file.
type SecurityConfig struct {
	SessionKey    string        `mapstructure:"session_key" yaml:"session_key"`
	NonceKey      string        `mapstructure:"nonce_key" yaml:"nonce_key"`
	SessionTTL    time.Duration `mapstructure:"session_ttl" yaml:"session_ttl"`
	SecureCookies bool          `mapstructure:"secure_cookies" yaml:"secure_cookies"`
}

// Config is the whole service configuration.
type Config struct {
	Listen        string          `mapstructure:"listen" yaml:"listen"`
	ShutdownGrace time.Duration   `mapstructure:"shutdown_grace" yaml:"shutdown_grace"`
	Site          SiteConfig      `mapstructure:"site" yaml:"site"`
	Database      DatabaseConfig  `mapstructure:"database" yaml:"database"`
	SMTP          mail.SMTPConfig `mapstructure:"smtp" yaml:"smtp"`
	Cache         CacheConfig     `mapstructure:"cache" yaml:"cache"`
	Scheduler     SchedulerConfig `mapstructure:"scheduler" yaml:"scheduler"`
	Log           LogConfig       `mapstructure:"log" yaml:"log"`
	Security      SecurityConfig  `mapstructure:"security" yaml:"security"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Listen:        ":8080",
		ShutdownGrace: 10 * time.Second,
		Site: SiteConfig{
			Name:      "Sign-up Sheets",
			URL:       "http://localhost:8080",
			FromEmail: "no-reply@localhost",
			Theme:     "default",
		},
		Database: DatabaseConfig{Driver: "sqlite", DSN: "signup-sheets.db"},
		SMTP:     mail.SMTPConfig{Host: "localhost", Port: 25},
		Cache:    CacheConfig{TTL: time.Hour},
		Scheduler: SchedulerConfig{
			PollInterval: time.Minute,
			Reminders:    "0 * * * *",
		},
		Log:      LogConfig{Level: "info", Format: "json"},
		Security: SecurityConfig{SessionTTL: 14 * 24 * time.Hour},
	}
}

// Load reads path over the defaults and applies environment overrides. A
// missing file is not an error when path is DefaultFile or empty.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v, Default())
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	explicit := path != "" && path != DefaultFile
	if path == "" {
		path = DefaultFile
	}
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	_, err := os.Stat(path)
	switch {
	case err == nil:
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return Config{}, fmt.Errorf("config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}
	return cfg, nil
}

// setDefaults registers every key so environment overrides apply even
// when the file does not mention them.
func setDefaults(v *viper.Viper, cfg Config) {
	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return
	}
	var tree map[string]any
	if err := yaml.Unmarshal(raw, &tree); err != nil {
		return
	}
	walk("", tree, v.SetDefault)
}

func walk(prefix string, tree map[string]any, set func(string, any)) {
	for k, val := range tree {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if sub, ok := val.(map[string]any); ok {
			walk(key, sub, set)
			continue
		}
		set(key, val)
	}
}

// WriteDefault writes the default configuration to path. An existing file
// is only replaced when force is set.
func WriteDefault(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config: %s already exists", path)
		}
	}
	raw, err := yaml.Marshal(Default())
	if err != nil {
		return fmt.Errorf("config: encode: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}

// Validate reports settings the server cannot start without.
func (c Config) Validate() error {
	var missing []string
	if strings.TrimSpace(c.Security.SessionKey) == "" {
		missing = append(missing, "security.session_key")
	}
	if strings.TrimSpace(c.Security.NonceKey) == "" {
		missing = append(missing, "security.nonce_key")
	}
	if strings.TrimSpace(c.Database.DSN) == "" {
		missing = append(missing, "database.dsn")
	}
	if len(missing) > 0 {
		return fmt.Errorf("config: missing %s", strings.Join(missing, ", "))
	}
	return nil
}
