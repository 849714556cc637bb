// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	MaxConns int32  `yaml:"max_conns"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type PaymentConfig struct {
	// Gateway selects the default charge gateway: paymob | tap | mock.
	Gateway string `yaml:"gateway"`
	Paymob  struct {
		APIKey        string `yaml:"api_key"`
		IntegrationID string `yaml:"integration_id"`
		IframeID      string `yaml:"iframe_id"`
		HMACSecret    string `yaml:"hmac_secret"`
		BaseURL       string `yaml:"base_url"`
	} `yaml:"paymob"`
	Tap struct {
		SecretKey string `yaml:"secret_key"`
		BaseURL   string `yaml:"base_url"`
	} `yaml:"tap"`
}

type BillingConfig struct {
	Interval      time.Duration `yaml:"interval"`        // billing tick period
	MaxRetries    int           `yaml:"max_retries"`     // dunning threshold before past_due
	OrderExpiry   time.Duration `yaml:"order_expiry"`    // pending order lifetime
	ExpirySweep   time.Duration `yaml:"expiry_sweep"`    // order expiry tick period
	VoucherCodeTTL time.Duration `yaml:"voucher_code_ttl"` // QR redemption code lifetime
}

type SecurityConfig struct {
	EncryptionKey  string `yaml:"encryption_key"`   // 32 bytes, AES-256-GCM for card tokens
	JWTSecret      string `yaml:"jwt_secret"`       // membership card tokens
	TerminalAPIKey string `yaml:"terminal_api_key"` // bearer token for provider terminals; empty disables
}

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Payment  PaymentConfig  `yaml:"payment"`
	Billing  BillingConfig  `yaml:"billing"`
	Security SecurityConfig `yaml:"security"`

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

	// defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Database.MaxConns <= 0 {
		cfg.Database.MaxConns = 10
	}
	if cfg.Payment.Gateway == "" {
		cfg.Payment.Gateway = "paymob"
	}
	if cfg.Billing.Interval <= 0 {
		cfg.Billing.Interval = time.Hour
	}
	if cfg.Billing.MaxRetries <= 0 {
		cfg.Billing.MaxRetries = 3
	}
	if cfg.Billing.OrderExpiry <= 0 {
		cfg.Billing.OrderExpiry = 5 * time.Minute
	}
	if cfg.Billing.ExpirySweep <= 0 {
		cfg.Billing.ExpirySweep = time.Minute
	}
	if cfg.Billing.VoucherCodeTTL <= 0 {
		cfg.Billing.VoucherCodeTTL = 90 * time.Second
	}
	cfg.Redis.TTL = normalizeTTL(cfg.Redis.TTL)

	// Minimal validation
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Redis.URL == "" {
		return nil, errors.New("redis.url is required")
	}
	if cfg.Security.JWTSecret == "" {
		return nil, errors.New("security.jwt_secret is required")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}

func normalizeTTL(d time.Duration) time.Duration {
	if d <= 0 {
		return time.Hour
	}
	return d
}
