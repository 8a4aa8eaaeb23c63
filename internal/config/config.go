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

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type AuthConfig struct {
	// HMAC secret used both to mint device tokens and to verify caller tokens.
	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
}

type PairingConfig struct {
	// Pepper is server-side secret material mixed into the pairing-secret hash.
	Pepper string `yaml:"pepper"`
	// SweepInterval is how often the expiry worker deactivates stale secrets.
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

// SubscriptionPack prices a (tier, days) subscription in credits.
type SubscriptionPack struct {
	Tier string `yaml:"tier"`
	Days int    `yaml:"days"`
	Cost int64  `yaml:"cost"`
}

type BillingConfig struct {
	PlayPackageName   string `yaml:"play_package_name"`
	PlayAccessToken   string `yaml:"play_access_token"`
	AppleBundleID     string `yaml:"apple_bundle_id"`
	AppleSharedSecret string `yaml:"apple_shared_secret"`

	// Products maps a credit SKU to the fixed number of credits it grants.
	Products map[string]int64   `yaml:"products"`
	Packs    []SubscriptionPack `yaml:"packs"`
}

type DebugConfig struct {
	// AllowedEmails gates the fixed-coupon and nonce-reset operations.
	AllowedEmails []string `yaml:"allowed_emails"`
}

type Config struct {
	Log      LogConfig      `yaml:"log"`
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Auth     AuthConfig     `yaml:"auth"`
	Pairing  PairingConfig  `yaml:"pairing"`
	Billing  BillingConfig  `yaml:"billing"`
	Debug    DebugConfig    `yaml:"debug"`

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
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Auth.TokenTTL <= 0 {
		cfg.Auth.TokenTTL = time.Hour
	}
	if cfg.Pairing.SweepInterval <= 0 {
		cfg.Pairing.SweepInterval = 5 * time.Minute
	}
	if cfg.Billing.Products == nil {
		cfg.Billing.Products = map[string]int64{}
	}

	// Minimal validation
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Redis.URL == "" {
		return nil, errors.New("redis.url is required")
	}
	if cfg.Auth.JWTSecret == "" {
		return nil, errors.New("auth.jwt_secret is required")
	}
	if cfg.Pairing.Pepper == "" {
		return nil, errors.New("pairing.pepper is required")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}

// FindPack returns the pack matching (tier, days), or nil.
func (b *BillingConfig) FindPack(tier string, days int) *SubscriptionPack {
	for i := range b.Packs {
		if b.Packs[i].Tier == tier && b.Packs[i].Days == days {
			return &b.Packs[i]
		}
	}
	return nil
}
