package chainlink

import (
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Config holds the settings for reading an AggregatorV3 price feed.
type Config struct {
	// RPCURL is the JSON-RPC endpoint used by Dial.
	RPCURL string `json:"rpc_url" mapstructure:"rpc_url" yaml:"rpc_url"`

	// FeedAddress is the AggregatorV3 contract address.
	FeedAddress string `json:"feed_address" mapstructure:"feed_address" yaml:"feed_address"`

	// Timeout bounds a single round of RPC calls.
	Timeout time.Duration `json:"timeout" mapstructure:"timeout" yaml:"timeout"`

	// MaxRetryTimes is the number of attempts per quote (at least 1).
	MaxRetryTimes uint `json:"max_retry_times" mapstructure:"max_retry_times" yaml:"max_retry_times"`

	// RetryInterval is the delay between attempts.
	RetryInterval time.Duration `json:"retry_interval" mapstructure:"retry_interval" yaml:"retry_interval"`

	// MaxAge rejects answers older than this. Zero disables the check.
	MaxAge time.Duration `json:"max_age" mapstructure:"max_age" yaml:"max_age"`

	// BreakerFailures is the number of consecutive failed quotes that opens
	// the circuit breaker.
	BreakerFailures uint32 `json:"breaker_failures" mapstructure:"breaker_failures" yaml:"breaker_failures"`

	// BreakerTimeout is how long the breaker stays open before probing again.
	BreakerTimeout time.Duration `json:"breaker_timeout" mapstructure:"breaker_timeout" yaml:"breaker_timeout"`
}

// DefaultConfig returns a Config with sensible defaults and no endpoint.
func DefaultConfig() Config {
	return Config{
		Timeout:         10 * time.Second,
		MaxRetryTimes:   3,
		RetryInterval:   500 * time.Millisecond,
		MaxAge:          time.Hour,
		BreakerFailures: 3,
		BreakerTimeout:  30 * time.Second,
	}
}

// Validate checks the configuration for errors.
func (c Config) Validate() error {
	if !common.IsHexAddress(c.FeedAddress) {
		return fmt.Errorf("chainlink: invalid feed address %q", c.FeedAddress)
	}
	if c.Timeout <= 0 {
		return errors.New("chainlink: timeout must be positive")
	}
	if c.MaxRetryTimes == 0 {
		return errors.New("chainlink: max_retry_times must be at least 1")
	}
	if c.RetryInterval < 0 {
		return errors.New("chainlink: retry_interval must not be negative")
	}
	if c.MaxAge < 0 {
		return errors.New("chainlink: max_age must not be negative")
	}
	if c.BreakerFailures == 0 {
		return errors.New("chainlink: breaker_failures must be at least 1")
	}
	return nil
}
