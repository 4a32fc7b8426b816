package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	MaxConns int    `yaml:"max_conns"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"` // catalog cache TTL
}

type AdminConfig struct {
	Port      int           `yaml:"port"`
	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
}

// ReactivationPolicy names what Activate does to an already-activated
// redemption: reissue a fresh code (the default) or reject the call.
type ReactivationPolicy string

const (
	ReactivationReissue ReactivationPolicy = "reissue"
	ReactivationReject  ReactivationPolicy = "reject"
)

type LoyaltyConfig struct {
	// CodeTTL bounds how long an issued code stays completable.
	CodeTTL      time.Duration      `yaml:"code_ttl"`
	Reactivation ReactivationPolicy `yaml:"reactivation"`
	PageSize     int                `yaml:"page_size"`
	MaxPageSize  int                `yaml:"max_page_size"`
	// CompleteAttempts caps code guesses per staff account per window.
	CompleteAttempts int           `yaml:"complete_attempts"`
	CompleteWindow   time.Duration `yaml:"complete_window"`
}

type SchedulerConfig struct {
	SweepInterval time.Duration `yaml:"sweep_interval"`
	SweepBatch    int           `yaml:"sweep_batch"`
	Workers       int           `yaml:"workers"`
}

type Config struct {
	Log       LogConfig       `yaml:"log"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Admin     AdminConfig     `yaml:"admin"`
	Loyalty   LoyaltyConfig   `yaml:"loyalty"`
	Scheduler SchedulerConfig `yaml:"scheduler"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.Runtime.Dev = dev
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Database.MaxConns <= 0 {
		cfg.Database.MaxConns = 10
	}
	if cfg.Redis.TTL <= 0 {
		cfg.Redis.TTL = time.Hour
	}
	if cfg.Admin.TokenTTL <= 0 {
		cfg.Admin.TokenTTL = 30 * time.Minute
	}
	if cfg.Loyalty.CodeTTL <= 0 {
		cfg.Loyalty.CodeTTL = 15 * time.Minute
	}
	if cfg.Loyalty.Reactivation == "" {
		cfg.Loyalty.Reactivation = ReactivationReissue
	}
	if cfg.Loyalty.PageSize <= 0 {
		cfg.Loyalty.PageSize = 20
	}
	if cfg.Loyalty.MaxPageSize <= 0 {
		cfg.Loyalty.MaxPageSize = 100
	}
	if cfg.Loyalty.CompleteAttempts <= 0 {
		cfg.Loyalty.CompleteAttempts = 10
	}
	if cfg.Loyalty.CompleteWindow <= 0 {
		cfg.Loyalty.CompleteWindow = time.Minute
	}
	if cfg.Scheduler.SweepInterval <= 0 {
		cfg.Scheduler.SweepInterval = time.Minute
	}
	if cfg.Scheduler.SweepBatch <= 0 {
		cfg.Scheduler.SweepBatch = 100
	}
	if cfg.Scheduler.Workers <= 0 {
		cfg.Scheduler.Workers = 4
	}
}

func (cfg *Config) validate() error {
	if cfg.Database.URL == "" {
		return errors.New("database.url is required")
	}
	switch cfg.Loyalty.Reactivation {
	case ReactivationReissue, ReactivationReject:
	default:
		return fmt.Errorf("loyalty.reactivation must be %q or %q", ReactivationReissue, ReactivationReject)
	}
	switch strings.ToLower(cfg.Log.Format) {
	case "json", "console":
	default:
		return fmt.Errorf("log.format must be json or console, got %q", cfg.Log.Format)
	}
	return nil
}
