package config

import (
	"errors"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type HTTP struct {
	Addr           string   `yaml:"addr"`
	AllowedOrigins []string `yaml:"allowedOrigins"`
}

type Logging struct {
	Env       string `yaml:"env"`       // dev|prod
	Service   string `yaml:"service"`   // live-service
	Version   string `yaml:"version"`   // v0.1.0
	Backend   string `yaml:"backend"`   // std|zap
	AddSource bool   `yaml:"addSource"` // false|true
	Debug     bool   `yaml:"debug"`     // false|true
}

type Postgres struct {
	DSN string `yaml:"dsn"`
}

type Auth struct {
	PublicKeyPath string `yaml:"publicKeyPath"`
	Issuer        string `yaml:"issuer"`
	Audience      string `yaml:"audience"`
	ClockSkew     string `yaml:"clockSkew"`
	Timeout       string `yaml:"timeout"`
}

type Moderation struct {
	BlockWords []string `yaml:"blockWords"`
	FlagWords  []string `yaml:"flagWords"`
	Timeout    string   `yaml:"timeout"`
}

type History struct {
	Backend       string `yaml:"backend"` // memory|postgres
	AppendRetries int    `yaml:"appendRetries"`
	AppendBackoff string `yaml:"appendBackoff"`
}

type Config struct {
	HTTP       HTTP       `yaml:"http"`
	Logging    Logging    `yaml:"logging"`
	Postgres   Postgres   `yaml:"postgres"`
	Auth       Auth       `yaml:"auth"`
	Moderation Moderation `yaml:"moderation"`
	History    History    `yaml:"history"`
}

func LoadConfig() (*Config, error) {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "./config/config.yaml"
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.HTTP.Addr == "" {
		return errors.New("http.addr is required")
	}
	if c.Auth.PublicKeyPath == "" {
		return errors.New("auth.publicKeyPath is required")
	}
	if c.History.Backend == "" {
		c.History.Backend = "memory"
	}
	if c.History.Backend != "memory" && c.History.Backend != "postgres" {
		return errors.New("history.backend must be memory or postgres")
	}
	if c.History.Backend == "postgres" && c.Postgres.DSN == "" {
		return errors.New("postgres.dsn is required when history.backend=postgres")
	}
	// установка дефолтов, если значения не указаны
	if c.Logging.Service == "" {
		c.Logging.Service = "live-service"
	}
	if c.Logging.Env == "" {
		c.Logging.Env = "dev"
	}
	if c.Logging.Version == "" {
		c.Logging.Version = "v0.1.0"
	}
	if c.Logging.Backend == "" {
		c.Logging.Backend = "std"
	}
	return nil
}

func (a Auth) ClockSkewOr(def time.Duration) time.Duration {
	return parseDurationOr(def, a.ClockSkew)
}

func (a Auth) TimeoutOr(def time.Duration) time.Duration {
	return parseDurationOr(def, a.Timeout)
}

func (m Moderation) TimeoutOr(def time.Duration) time.Duration {
	return parseDurationOr(def, m.Timeout)
}

func (h History) AppendBackoffOr(def time.Duration) time.Duration {
	return parseDurationOr(def, h.AppendBackoff)
}

// helper для парсинга timeout-ов
func parseDurationOr(def time.Duration, s string) time.Duration {
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	return def
}
