package extension

import (
	"github.com/xraph/fundme/network"
	"github.com/xraph/fundme/oracle/chainlink"
	"github.com/xraph/fundme/publisher"
)

// Config holds the FundMe extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.fundme" or "fundme" keys).
type Config struct {
	// DisableRoutes prevents the HTTP API from being provided.
	DisableRoutes bool `json:"disable_routes" mapstructure:"disable_routes" yaml:"disable_routes"`

	// EnableWrites serves the contribute and sweep POST routes. The caller
	// address comes from the request body, so only enable this behind an
	// authenticating proxy.
	EnableWrites bool `json:"enable_writes" mapstructure:"enable_writes" yaml:"enable_writes"`

	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// BasePath is the URL prefix for fundme routes (default: "/fundme").
	BasePath string `json:"base_path" mapstructure:"base_path" yaml:"base_path"`

	// Network selects the chain. Development networks ("hardhat",
	// "localhost") use the mock price feed; others dial Chainlink
	// (default: "hardhat").
	Network string `json:"network" mapstructure:"network" yaml:"network"`

	// Oracle configures the Chainlink ETH/USD feed. An empty feed address
	// falls back to the network's registered feed.
	Oracle chainlink.Config `json:"oracle" mapstructure:"oracle" yaml:"oracle"`

	// Publisher enables AMQP event publishing when URL is set.
	Publisher publisher.AMQPConfig `json:"publisher" mapstructure:"publisher" yaml:"publisher"`

	// Metrics registers the Prometheus metrics plugin.
	Metrics bool `json:"metrics" mapstructure:"metrics" yaml:"metrics"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		BasePath: "/fundme",
		Network:  network.Hardhat.Name,
		Oracle:   chainlink.DefaultConfig(),
	}
}
