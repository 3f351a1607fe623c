// Package network maps deployment targets to their price feed.
//
// Development chains run against a static mock aggregator; public chains read
// the Chainlink ETH/USD feed deployed on that chain.
package network

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/xraph/fundme/oracle"
	"github.com/xraph/fundme/oracle/chainlink"
)

// ErrUnknownNetwork is returned for names or chain IDs with no entry.
var ErrUnknownNetwork = errors.New("network: unknown network")

// Network describes a deployment target.
type Network struct {
	Name        string `json:"name"`
	ChainID     uint64 `json:"chain_id"`
	FeedAddress string `json:"feed_address,omitempty"`
	Development bool   `json:"development"`
}

// Known networks.
var (
	Hardhat   = Network{Name: "hardhat", ChainID: 31337, Development: true}
	Localhost = Network{Name: "localhost", ChainID: 31337, Development: true}
	Sepolia   = Network{
		Name:        "sepolia",
		ChainID:     11155111,
		FeedAddress: "0x694AA1769357215DE4FAC081bf1f309aDC325306",
	}
)

var registry = map[string]Network{
	Hardhat.Name:   Hardhat,
	Localhost.Name: Localhost,
	Sepolia.Name:   Sepolia,
}

// Lookup returns the network registered under name (case-insensitive).
func Lookup(name string) (Network, error) {
	n, ok := registry[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Network{}, fmt.Errorf("%w: %q", ErrUnknownNetwork, name)
	}
	return n, nil
}

// ByChainID returns the public network with the given chain ID. Development
// chains share an ID and resolve to Hardhat.
func ByChainID(chainID uint64) (Network, error) {
	if chainID == Hardhat.ChainID {
		return Hardhat, nil
	}
	for _, n := range registry {
		if n.ChainID == chainID {
			return n, nil
		}
	}
	return Network{}, fmt.Errorf("%w: chain id %d", ErrUnknownNetwork, chainID)
}

// IsDevelopment reports whether name is a development chain.
func IsDevelopment(name string) bool {
	n, err := Lookup(name)
	return err == nil && n.Development
}

// Names returns the registered network names in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ResolveOracle returns the price oracle for n together with a function that
// releases its resources.
//
// Development networks get the default mock aggregator. Other networks dial
// cfg.RPCURL and read the chain's feed; cfg.FeedAddress overrides the
// registered address when set.
func ResolveOracle(ctx context.Context, n Network, cfg chainlink.Config, opts ...chainlink.Option) (oracle.PriceOracle, func(), error) {
	if n.Development {
		return oracle.NewDefaultMock(), func() {}, nil
	}

	if cfg.FeedAddress == "" {
		cfg.FeedAddress = n.FeedAddress
	}
	if cfg.FeedAddress == "" {
		return nil, nil, fmt.Errorf("network: %s has no price feed", n.Name)
	}

	feed, err := chainlink.Dial(ctx, cfg, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("network: %s: %w", n.Name, err)
	}
	return feed, feed.Close, nil
}
