package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const devJWTSecret = "dev-secret-only"

type Config struct {
	DSN             string        `yaml:"dsn"`
	JWTSecret       string        `yaml:"jwt_secret"`
	AppPort         string        `yaml:"app_port"`
	GinMode         string        `yaml:"gin_mode"`
	SlotHorizonDays int           `yaml:"slot_horizon_days"`
	JobInterval     time.Duration `yaml:"job_interval"`
	Timezone        string        `yaml:"timezone"`
	LogLevel        string        `yaml:"log_level"`
	LogFile         string        `yaml:"log_file"`
	AdminUsername   string        `yaml:"admin_username"`
	AdminEmail      string        `yaml:"admin_email"`
	AdminPassword   string        `yaml:"admin_password"`
}

func defaults() Config {
	return Config{
		DSN:             "file:data/serverbook.db",
		AppPort:         "8080",
		GinMode:         "release",
		SlotHorizonDays: 30,
		JobInterval:     24 * time.Hour,
		LogLevel:        "info",
		AdminUsername:   "admin",
		AdminEmail:      "admin@system.local",
	}
}

// Load builds the configuration from defaults, an optional YAML file named by
// CONFIG_FILE, and environment variables (a .env file is loaded first).
// Environment variables win over the file.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug(".env file not found, using system environment variables")
	} else {
		log.Info("✅ .env file loaded")
	}

	cfg := defaults()
	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	str("DATABASE_DSN", &cfg.DSN)
	str("JWT_SECRET", &cfg.JWTSecret)
	str("APP_PORT", &cfg.AppPort)
	str("GIN_MODE", &cfg.GinMode)
	str("TZ_NAME", &cfg.Timezone)
	str("LOG_LEVEL", &cfg.LogLevel)
	str("LOG_FILE", &cfg.LogFile)
	str("ADMIN_USERNAME", &cfg.AdminUsername)
	str("ADMIN_EMAIL", &cfg.AdminEmail)
	str("ADMIN_PASSWORD", &cfg.AdminPassword)

	if v, ok := lookup("SLOT_HORIZON_DAYS"); ok && strings.TrimSpace(v) != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("config: SLOT_HORIZON_DAYS: %w", err)
		}
		cfg.SlotHorizonDays = n
	}
	if v, ok := lookup("JOB_INTERVAL"); ok && strings.TrimSpace(v) != "" {
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("config: JOB_INTERVAL: %w", err)
		}
		cfg.JobInterval = d
	}
	return nil
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.DSN) == "" {
		return fmt.Errorf("config: DATABASE_DSN not set")
	}
	if c.SlotHorizonDays <= 0 {
		return fmt.Errorf("config: slot horizon must be positive, got %d", c.SlotHorizonDays)
	}
	if c.JobInterval <= 0 {
		return fmt.Errorf("config: job interval must be positive, got %s", c.JobInterval)
	}
	if c.JWTSecret == "" {
		log.Warn("⚠️ JWT_SECRET not set, using development secret")
		c.JWTSecret = devJWTSecret
	}
	if c.Timezone != "" {
		if _, err := time.LoadLocation(c.Timezone); err != nil {
			return fmt.Errorf("config: timezone %q: %w", c.Timezone, err)
		}
	}
	return nil
}

// Location returns the configured timezone, falling back to the host's.
func (c Config) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}
