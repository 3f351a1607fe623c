package extension

import (
	"testing"
	"time"

	"github.com/xraph/fundme/network"
	"github.com/xraph/fundme/publisher"
)

func TestMergeWithDefaults(t *testing.T) {
	cfg := mergeWithDefaults(Config{})

	if cfg.BasePath != "/fundme" {
		t.Errorf("BasePath = %q", cfg.BasePath)
	}
	if cfg.Network != network.Hardhat.Name {
		t.Errorf("Network = %q", cfg.Network)
	}
	if cfg.Oracle.MaxRetryTimes != 3 || cfg.Oracle.Timeout != 10*time.Second {
		t.Errorf("oracle defaults not applied: %+v", cfg.Oracle)
	}
	if cfg.Publisher.Exchange != "" {
		t.Error("exchange should stay empty when publishing is disabled")
	}

	cfg = mergeWithDefaults(Config{Publisher: publisher.AMQPConfig{URL: "amqp://broker"}})
	if cfg.Publisher.Exchange != "fundme.events" {
		t.Errorf("Exchange = %q", cfg.Publisher.Exchange)
	}
}

func TestMergeConfigurations(t *testing.T) {
	yaml := Config{Network: "sepolia"}
	yaml.Oracle.RPCURL = "https://rpc.example"
	yaml.Oracle.MaxRetryTimes = 5

	prog := Config{
		Network:        "hardhat",
		BasePath:       "/crowd",
		DisableMigrate: true,
		EnableWrites:   true,
		Metrics:        true,
	}
	prog.Oracle.RPCURL = "http://ignored"
	prog.Oracle.BreakerFailures = 7

	cfg := mergeConfigurations(yaml, prog)

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"network from yaml", cfg.Network, "sepolia"},
		{"base path from options", cfg.BasePath, "/crowd"},
		{"disable migrate", cfg.DisableMigrate, true},
		{"enable writes", cfg.EnableWrites, true},
		{"metrics", cfg.Metrics, true},
		{"rpc url from yaml", cfg.Oracle.RPCURL, "https://rpc.example"},
		{"retries from yaml", cfg.Oracle.MaxRetryTimes, uint(5)},
		{"breaker from options", cfg.Oracle.BreakerFailures, uint32(7)},
		{"timeout from defaults", cfg.Oracle.Timeout, 10 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}
}
