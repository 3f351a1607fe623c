package chainlink

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/jonboulle/clockwork"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/fundme/oracle"
)

const sepoliaFeed = "0x694AA1769357215DE4FAC081bf1f309aDC325306"

type fakeCaller struct {
	t   *testing.T
	abi abi.ABI

	mu        sync.Mutex
	decimals  uint8
	answer    *big.Int
	updatedAt time.Time
	failures  int // remaining latestRoundData calls to fail
	err       error
	calls     map[string]int
}

func newFakeCaller(t *testing.T, updatedAt time.Time) *fakeCaller {
	t.Helper()
	parsed, err := abi.JSON(strings.NewReader(aggregatorV3ABI))
	require.NoError(t, err)
	return &fakeCaller{
		t:         t,
		abi:       parsed,
		decimals:  8,
		answer:    big.NewInt(300000000000),
		updatedAt: updatedAt,
		calls:     map[string]int{},
	}
}

func (f *fakeCaller) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for name, m := range f.abi.Methods {
		if !bytes.Equal(msg.Data[:4], m.ID) {
			continue
		}
		f.calls[name]++
		switch name {
		case "decimals":
			return m.Outputs.Pack(f.decimals)
		case "latestRoundData":
			if f.failures > 0 {
				f.failures--
				return nil, f.err
			}
			ts := big.NewInt(f.updatedAt.Unix())
			return m.Outputs.Pack(big.NewInt(42), f.answer, ts, ts, big.NewInt(42))
		}
	}
	f.t.Fatalf("unexpected call data %x", msg.Data)
	return nil, nil
}

func (f *fakeCaller) count(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.FeedAddress = sepoliaFeed
	cfg.MaxRetryTimes = 1
	cfg.RetryInterval = 0
	return cfg
}

func TestFeedQuote(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	caller := newFakeCaller(t, clock.Now().Add(-time.Minute))

	feed, err := New(caller, testConfig(), WithClock(clock))
	require.NoError(t, err)

	q, err := feed.Quote(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint8(8), q.Decimals)
	assert.Equal(t, int64(300000000000), q.Answer.Int64())
	assert.Equal(t, int64(42), q.RoundID.Int64())
	assert.Equal(t, "3000", q.Price().String())

	_, err = feed.Quote(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, caller.count("decimals"), "decimals should be cached")
	assert.Equal(t, 2, caller.count("latestRoundData"))
}

func TestFeedRetriesTransientFailures(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	caller := newFakeCaller(t, clock.Now())
	caller.failures = 2
	caller.err = errors.New("connection reset")

	cfg := testConfig()
	cfg.MaxRetryTimes = 3
	feed, err := New(caller, cfg, WithClock(clock))
	require.NoError(t, err)

	_, err = feed.Quote(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, caller.count("latestRoundData"))
}

func TestFeedUnavailable(t *testing.T) {
	caller := newFakeCaller(t, time.Now())
	caller.failures = 100
	caller.err = errors.New("rpc down")

	feed, err := New(caller, testConfig())
	require.NoError(t, err)

	_, err = feed.Quote(context.Background())
	assert.ErrorIs(t, err, oracle.ErrUnavailable)
}

func TestFeedBreakerOpens(t *testing.T) {
	caller := newFakeCaller(t, time.Now())
	caller.failures = 100
	caller.err = errors.New("rpc down")

	cfg := testConfig()
	cfg.BreakerFailures = 2
	cfg.BreakerTimeout = time.Hour
	feed, err := New(caller, cfg)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err = feed.Quote(context.Background())
		require.ErrorIs(t, err, oracle.ErrUnavailable)
	}
	assert.Equal(t, gobreaker.StateOpen, feed.BreakerState())

	_, err = feed.Quote(context.Background())
	assert.ErrorIs(t, err, oracle.ErrUnavailable)
	assert.Contains(t, err.Error(), gobreaker.ErrOpenState.Error())
	assert.Equal(t, 2, caller.count("latestRoundData"), "open breaker must not reach the feed")
}

func TestFeedStaleAnswer(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	caller := newFakeCaller(t, clock.Now().Add(-2*time.Hour))

	cfg := testConfig()
	cfg.MaxRetryTimes = 3
	feed, err := New(caller, cfg, WithClock(clock))
	require.NoError(t, err)

	_, err = feed.Quote(context.Background())
	assert.ErrorIs(t, err, oracle.ErrStale)
	assert.Equal(t, 1, caller.count("latestRoundData"), "stale answers are not retried")
}

func TestFeedInvalidAnswer(t *testing.T) {
	caller := newFakeCaller(t, time.Now())
	caller.answer = big.NewInt(-1)

	feed, err := New(caller, testConfig())
	require.NoError(t, err)

	_, err = feed.Quote(context.Background())
	assert.ErrorIs(t, err, oracle.ErrInvalidAnswer)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		ok     bool
	}{
		{"valid", func(*Config) {}, true},
		{"bad address", func(c *Config) { c.FeedAddress = "0x123" }, false},
		{"zero timeout", func(c *Config) { c.Timeout = 0 }, false},
		{"zero attempts", func(c *Config) { c.MaxRetryTimes = 0 }, false},
		{"negative interval", func(c *Config) { c.RetryInterval = -time.Second }, false},
		{"negative max age", func(c *Config) { c.MaxAge = -time.Second }, false},
		{"zero breaker failures", func(c *Config) { c.BreakerFailures = 0 }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.modify(&cfg)
			err := cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestDialRequiresURL(t *testing.T) {
	_, err := Dial(context.Background(), testConfig())
	assert.Error(t, err)
}
