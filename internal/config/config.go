package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig holds the database DSN. Postgres and sqlite DSNs are both
// accepted; the dialect is sniffed from the DSN shape.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// JWTConfig holds token signing settings shared by user and admin tokens.
type JWTConfig struct {
	Secret      string `yaml:"secret"`
	ExpiryHours int    `yaml:"expiry-hours"`
}

// Expiry returns the token lifetime.
func (j JWTConfig) Expiry() time.Duration {
	if j.ExpiryHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(j.ExpiryHours) * time.Hour
}

// RedisConfig holds the optional Redis connection for the discount store.
// An empty Addr selects the in-process fallback store.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"` // Empty logs to stderr only.
	MaxSizeMB  int    `yaml:"max-size-mb"`
	MaxBackups int    `yaml:"max-backups"`
	MaxAgeDays int    `yaml:"max-age-days"`
}

// Config is the root application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	JWT      JWTConfig      `yaml:"jwt"`
	Redis    RedisConfig    `yaml:"redis"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ResolveConfigPath picks the config file path from the argument, the
// WALLET_CONFIG environment variable, or the default, in that order.
func ResolveConfigPath(path string) string {
	if strings.TrimSpace(path) != "" {
		return path
	}
	if env := strings.TrimSpace(os.Getenv("WALLET_CONFIG")); env != "" {
		return env
	}
	return "config.yaml"
}

// Load reads and parses the YAML config file, then applies environment
// overrides and defaults. A missing file is not an error as long as the
// required values arrive through the environment.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, errRead := os.ReadFile(path)
	if errRead == nil {
		if errParse := yaml.Unmarshal(data, cfg); errParse != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, errParse)
		}
	} else if !os.IsNotExist(errRead) {
		return nil, fmt.Errorf("read config %s: %w", path, errRead)
	}

	applyEnvOverrides(cfg)

	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Database.DSN == "" {
		return nil, fmt.Errorf("config %s: database dsn is required", path)
	}
	if cfg.JWT.Secret == "" {
		return nil, fmt.Errorf("config %s: jwt secret is required", path)
	}
	return cfg, nil
}

// applyEnvOverrides lets deployment secrets stay out of the YAML file.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("WALLET_DATABASE_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("WALLET_JWT_SECRET"); v != "" {
		cfg.JWT.Secret = v
	}
	if v := os.Getenv("WALLET_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("WALLET_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
}
