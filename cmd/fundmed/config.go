package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/xraph/fundme/campaign"
	"github.com/xraph/fundme/network"
	"github.com/xraph/fundme/oracle/chainlink"
	"github.com/xraph/fundme/publisher"
	"github.com/xraph/fundme/types"
)

// Config is the daemon configuration file.
type Config struct {
	Addr      string               `yaml:"addr"`
	Network   string               `yaml:"network"`
	LogLevel  string               `yaml:"log_level"`
	Metrics   bool                 `yaml:"metrics"`
	RateLimit float64              `yaml:"rate_limit"` // requests per second, 0 disables
	RateBurst int                  `yaml:"rate_burst"`
	ReadOnly  bool                 `yaml:"read_only"` // serve GET routes only
	Oracle    chainlink.Config     `yaml:"oracle"`
	Publisher publisher.AMQPConfig `yaml:"publisher"`
	Campaigns []CampaignConfig     `yaml:"campaigns"`
}

// CampaignConfig describes a campaign deployed at startup.
type CampaignConfig struct {
	Name          string `yaml:"name"`
	Owner         string `yaml:"owner"`
	WindowSeconds int64  `yaml:"window_seconds"`
	MinimumUSD    string `yaml:"minimum_usd"`
}

// DefaultConfig serves on :8080 against the local development chain.
func DefaultConfig() Config {
	return Config{
		Addr:      ":8080",
		Network:   network.Hardhat.Name,
		LogLevel:  "info",
		Metrics:   true,
		RateBurst: 20,
		Oracle:    chainlink.DefaultConfig(),
	}
}

// LoadConfig reads path over the defaults. Environment variables in the
// file are expanded. An empty path returns the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(raw))), &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Validate checks the configuration for errors.
func (c Config) Validate() error {
	if c.Addr == "" {
		return errors.New("addr is required")
	}
	if _, err := network.Lookup(c.Network); err != nil {
		return err
	}
	if c.RateLimit < 0 {
		return errors.New("rate_limit must not be negative")
	}
	if c.RateLimit > 0 && c.RateBurst < 1 {
		return errors.New("rate_burst must be at least 1 when rate_limit is set")
	}
	for i, cc := range c.Campaigns {
		if _, err := cc.Params(); err != nil {
			return fmt.Errorf("campaigns[%d]: %w", i, err)
		}
	}
	return nil
}

// Level maps LogLevel onto slog.
func (c Config) Level() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// Params converts the entry into deployment parameters.
func (cc CampaignConfig) Params() (campaign.Params, error) {
	owner, err := types.ParseAddress(cc.Owner)
	if err != nil {
		return campaign.Params{}, err
	}
	if cc.WindowSeconds <= 0 {
		return campaign.Params{}, errors.New("window_seconds must be positive")
	}
	minimum := decimal.Zero
	if cc.MinimumUSD != "" {
		if minimum, err = decimal.NewFromString(cc.MinimumUSD); err != nil {
			return campaign.Params{}, fmt.Errorf("minimum_usd: %w", err)
		}
	}
	return campaign.Params{
		Name:       cc.Name,
		Owner:      owner,
		Window:     time.Duration(cc.WindowSeconds) * time.Second,
		MinimumUSD: minimum,
	}, nil
}
