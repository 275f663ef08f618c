package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const minSecretLength = 32

var (
	ErrWeakSecret        = errors.New("JWT_SECRET must be at least 32 bytes")
	ErrUnsupportedDriver = errors.New("database driver must be postgres or sqlite")
)

type Config struct {
	Server struct {
		Port         string `yaml:"port"`
		ReadTimeout  string `yaml:"read_timeout"`
		WriteTimeout string `yaml:"write_timeout"`
	} `yaml:"server"`
	Database struct {
		Driver string `yaml:"driver"`
		DSN    string `yaml:"dsn"`
	} `yaml:"database"`
	Auth struct {
		JWTSecret    string `yaml:"jwt_secret"`
		SessionTTL   string `yaml:"session_ttl"`
		SecureCookie bool   `yaml:"secure_cookie"`
		BcryptCost   int    `yaml:"bcrypt_cost"`
	} `yaml:"auth"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	RabbitMQ struct {
		URL   string `yaml:"url"`
		Queue string `yaml:"queue"`
	} `yaml:"rabbitmq"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

// Load reads the YAML config at path, applies environment overrides and
// defaults, and validates the result. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	overrides := map[string]*string{
		"PORT":            &c.Server.Port,
		"DATABASE_DRIVER": &c.Database.Driver,
		"DATABASE_DSN":    &c.Database.DSN,
		"JWT_SECRET":      &c.Auth.JWTSecret,
		"REDIS_ADDR":      &c.Redis.Addr,
		"REDIS_PASSWORD":  &c.Redis.Password,
		"RABBITMQ_URL":    &c.RabbitMQ.URL,
		"LOG_LEVEL":       &c.Log.Level,
		"LOG_FORMAT":      &c.Log.Format,
	}
	for key, dst := range overrides {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	if v := os.Getenv("SECURE_COOKIE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Auth.SecureCookie = b
		}
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "postgres"
	}
	if c.Auth.SessionTTL == "" {
		c.Auth.SessionTTL = "24h"
	}
	if c.RabbitMQ.Queue == "" {
		c.RabbitMQ.Queue = "quiz.attempt_evaluated"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

func (c Config) Validate() error {
	if len(c.Auth.JWTSecret) < minSecretLength {
		return ErrWeakSecret
	}
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedDriver, c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return errors.New("database dsn not configured")
	}
	return nil
}

// Duration parses a duration string or returns the fallback if empty or invalid.
func Duration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil && d > 0 {
		return d
	}
	return fallback
}
