package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	SQLite struct {
		Path string `yaml:"path"`
	} `yaml:"sqlite"`
	Session struct {
		// Backend is one of memory, redis, sqlite, postgres.
		Backend string `yaml:"backend"`
	} `yaml:"session"`
	Quiz struct {
		CatalogPath   string `yaml:"catalog_path"`
		TTL           string `yaml:"ttl"`
		SessionLength int    `yaml:"session_length"`
		Name          string `yaml:"name"`
		SignOff       string `yaml:"sign_off"`
		Credits       string `yaml:"credits"`
	} `yaml:"quiz"`
}

const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Load reads YAML config from path and fills in defaults.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

// Default returns the configuration used when no file is present.
func Default() Config {
	cfg := Config{}
	cfg.applyDefaults()
	return cfg
}

// SessionBackend resolves the session backend, inferring it from the
// configured connections when not set explicitly.
func (c Config) SessionBackend() string {
	if c.Session.Backend != "" {
		return c.Session.Backend
	}
	switch {
	case c.Redis.Addr != "":
		return BackendRedis
	case c.Postgres.URL != "":
		return BackendPostgres
	case c.SQLite.Path != "":
		return BackendSQLite
	default:
		return BackendMemory
	}
}

func (c *Config) applyDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Quiz.SessionLength <= 0 {
		c.Quiz.SessionLength = 10
	}
	if c.Quiz.Name == "" {
		c.Quiz.Name = "Quiz for America"
	}
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
