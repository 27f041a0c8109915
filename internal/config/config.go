package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Environments. Production turns on Secure session cookies.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Config is the top-level bachejoa configuration.
type Config struct {
	Env     string        `yaml:"env" mapstructure:"env"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Uploads UploadsConfig `yaml:"uploads" mapstructure:"uploads"`
	Logging LoggingConfig `yaml:"logging" mapstructure:"logging"`
}

// ServerConfig controls the HTTP server behavior.
type ServerConfig struct {
	Host                string        `yaml:"host" mapstructure:"host"`
	Port                int           `yaml:"port" mapstructure:"port"`
	PublicURL           string        `yaml:"public_url" mapstructure:"public_url"`
	ReadTimeout         time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout        time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	ShutdownTimeout     time.Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
	RequestTimeout      time.Duration `yaml:"request_timeout" mapstructure:"request_timeout"`
	CORSOrigins         []string      `yaml:"cors_origins" mapstructure:"cors_origins"`
	GlobalRatePerMinute int           `yaml:"global_rate_per_minute" mapstructure:"global_rate_per_minute"`
	MaxBodySize         int64         `yaml:"max_body_size" mapstructure:"max_body_size"`
}

// StoreConfig selects the database holding users, sessions, counters and
// reports.
type StoreConfig struct {
	Driver          string        `yaml:"driver" mapstructure:"driver"`
	DSN             string        `yaml:"dsn" mapstructure:"dsn"`
	Schema          string        `yaml:"schema" mapstructure:"schema"`
	MaxOpenConns    int           `yaml:"max_open_conns" mapstructure:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns" mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" mapstructure:"conn_max_lifetime"`
}

// UploadsConfig configures presigned photo uploads. An empty Bucket
// disables uploads.
type UploadsConfig struct {
	Bucket        string        `yaml:"bucket" mapstructure:"bucket"`
	Region        string        `yaml:"region" mapstructure:"region"`
	Endpoint      string        `yaml:"endpoint" mapstructure:"endpoint"`
	AccessKey     string        `yaml:"access_key" mapstructure:"access_key"`
	SecretKey     string        `yaml:"secret_key" mapstructure:"secret_key"`
	PublicBaseURL string        `yaml:"public_base_url" mapstructure:"public_base_url"`
	MaxBytes      int64         `yaml:"max_bytes" mapstructure:"max_bytes"`
	URLTTL        time.Duration `yaml:"url_ttl" mapstructure:"url_ttl"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Default returns a Config pre-filled with sensible defaults: a local SQLite
// file, development cookies, and uploads disabled.
func Default() *Config {
	return &Config{
		Env: EnvDevelopment,
		Server: ServerConfig{
			Host:                "0.0.0.0",
			Port:                8080,
			ReadTimeout:         15 * time.Second,
			WriteTimeout:        60 * time.Second,
			ShutdownTimeout:     30 * time.Second,
			RequestTimeout:      30 * time.Second,
			CORSOrigins:         []string{"http://localhost:3000"},
			GlobalRatePerMinute: 300,
			MaxBodySize:         2 << 20,
		},
		Store: StoreConfig{
			Driver:          "sqlite",
			DSN:             "bachejoa.db",
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
		},
		Uploads: UploadsConfig{
			Region:   "us-east-1",
			MaxBytes: 8 << 20,
			URLTTL:   15 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Production reports whether the configuration targets production.
func (c *Config) Production() bool {
	return c.Env == EnvProduction
}

// SetDefaults registers every key of Default on v, so environment variables
// can override keys that appear in no config file.
func SetDefaults(v *viper.Viper) error {
	data, err := yaml.Marshal(Default())
	if err != nil {
		return err
	}
	var tree map[string]interface{}
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return err
	}
	setDefaults(v, "", tree)
	return nil
}

func setDefaults(v *viper.Viper, prefix string, tree map[string]interface{}) {
	for k, val := range tree {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if sub, ok := val.(map[string]interface{}); ok {
			setDefaults(v, key, sub)
			continue
		}
		v.SetDefault(key, val)
	}
}

// Load decodes the effective configuration held by v on top of Default and
// validates it.
func Load(v *viper.Viper) (*Config, error) {
	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch c.Env {
	case EnvDevelopment, EnvProduction:
	default:
		return fmt.Errorf("env: must be %s or %s, got %q", EnvDevelopment, EnvProduction, c.Env)
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port: %d out of range", c.Server.Port)
	}
	if c.Server.GlobalRatePerMinute < 0 {
		return fmt.Errorf("server.global_rate_per_minute: must not be negative")
	}
	if c.Server.MaxBodySize < 0 {
		return fmt.Errorf("server.max_body_size: must not be negative")
	}
	switch c.Store.Driver {
	case "sqlite", "postgres", "mysql", "mssql":
	default:
		return fmt.Errorf("store.driver: unsupported driver %q", c.Store.Driver)
	}
	if strings.TrimSpace(c.Store.DSN) == "" {
		return fmt.Errorf("store.dsn: required")
	}
	if c.Uploads.MaxBytes < 0 {
		return fmt.Errorf("uploads.max_bytes: must not be negative")
	}
	if (c.Uploads.AccessKey == "") != (c.Uploads.SecretKey == "") {
		return fmt.Errorf("uploads: access_key and secret_key must be set together")
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unknown level %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format: must be text or json, got %q", c.Logging.Format)
	}
	return nil
}

// Redacted returns a copy with secrets masked, for display.
func (c *Config) Redacted() *Config {
	out := *c
	out.Server.CORSOrigins = append([]string(nil), c.Server.CORSOrigins...)
	if out.Uploads.SecretKey != "" {
		out.Uploads.SecretKey = "********"
	}
	if i := strings.Index(out.Store.DSN, "@"); i >= 0 && out.Store.Driver != "sqlite" {
		out.Store.DSN = "********" + out.Store.DSN[i:]
	}
	return &out
}

// WriteDefault writes the default configuration to a YAML file. It refuses
// to replace an existing file unless force is set.
func WriteDefault(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
	}
	data, err := yaml.Marshal(Default())
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
