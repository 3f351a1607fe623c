// Package chainlink reads ETH/USD quotes from a Chainlink AggregatorV3
// contract over JSON-RPC.
//
// Every quote runs inside a circuit breaker; each breaker attempt retries the
// RPC round a bounded number of times. Failures surface as
// oracle.ErrUnavailable so the ledger treats them as hard precondition
// failures.
package chainlink

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"sync"
	"time"

	retry "github.com/avast/retry-go/v4"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/jonboulle/clockwork"
	"github.com/sony/gobreaker"

	"github.com/xraph/fundme/oracle"
)

const aggregatorV3ABI = `[
  {"inputs":[],"name":"decimals","outputs":[{"internalType":"uint8","name":"","type":"uint8"}],"stateMutability":"view","type":"function"},
  {"inputs":[],"name":"latestRoundData","outputs":[
    {"internalType":"uint80","name":"roundId","type":"uint80"},
    {"internalType":"int256","name":"answer","type":"int256"},
    {"internalType":"uint256","name":"startedAt","type":"uint256"},
    {"internalType":"uint256","name":"updatedAt","type":"uint256"},
    {"internalType":"uint80","name":"answeredInRound","type":"uint80"}
  ],"stateMutability":"view","type":"function"}
]`

var _ oracle.PriceOracle = (*Feed)(nil)

// Caller is the subset of an Ethereum client used to read contract state.
// *ethclient.Client satisfies it.
type Caller interface {
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Feed is a PriceOracle backed by an AggregatorV3 contract.
type Feed struct {
	caller  Caller
	address common.Address
	abi     abi.ABI
	cfg     Config
	breaker *gobreaker.CircuitBreaker
	clock   clockwork.Clock
	logger  *slog.Logger
	closeFn func()

	mu       sync.Mutex
	decimals *uint8
}

// Option configures a Feed.
type Option func(*Feed)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Feed) { f.logger = logger }
}

// WithClock sets the clock used for staleness checks.
func WithClock(c clockwork.Clock) Option {
	return func(f *Feed) { f.clock = c }
}

// New creates a Feed that reads through caller.
func New(caller Caller, cfg Config, opts ...Option) (*Feed, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	parsed, err := abi.JSON(strings.NewReader(aggregatorV3ABI))
	if err != nil {
		return nil, fmt.Errorf("chainlink: parse abi: %w", err)
	}

	f := &Feed{
		caller:  caller,
		address: common.HexToAddress(cfg.FeedAddress),
		abi:     parsed,
		cfg:     cfg,
		clock:   clockwork.NewRealClock(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}

	f.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "chainlink:" + f.address.Hex(),
		Timeout: cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			f.logger.Warn("price feed breaker state changed",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	})

	return f, nil
}

// Dial connects to cfg.RPCURL and returns a Feed using that connection.
// Close releases the connection.
func Dial(ctx context.Context, cfg Config, opts ...Option) (*Feed, error) {
	if cfg.RPCURL == "" {
		return nil, errors.New("chainlink: rpc_url is required")
	}

	client, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("chainlink: dial %s: %w", cfg.RPCURL, err)
	}

	f, err := New(client, cfg, opts...)
	if err != nil {
		client.Close()
		return nil, err
	}
	f.closeFn = client.Close
	return f, nil
}

// Close releases the RPC connection opened by Dial.
func (f *Feed) Close() {
	if f.closeFn != nil {
		f.closeFn()
	}
}

// Address returns the feed contract address.
func (f *Feed) Address() common.Address { return f.address }

// BreakerState reports the circuit breaker state.
func (f *Feed) BreakerState() gobreaker.State { return f.breaker.State() }

// Quote implements oracle.PriceOracle.
func (f *Feed) Quote(ctx context.Context) (oracle.Quote, error) {
	res, err := f.breaker.Execute(func() (interface{}, error) {
		return retry.DoWithData(
			func() (oracle.Quote, error) { return f.latest(ctx) },
			retry.Context(ctx),
			retry.Attempts(f.cfg.MaxRetryTimes),
			retry.Delay(f.cfg.RetryInterval),
			retry.LastErrorOnly(true),
			retry.OnRetry(func(n uint, err error) {
				f.logger.Debug("price feed call failed",
					"feed", f.address.Hex(),
					"attempt", n+1,
					"max_attempts", f.cfg.MaxRetryTimes,
					"error", err,
				)
			}),
		)
	})
	if err != nil {
		if errors.Is(err, oracle.ErrStale) || errors.Is(err, oracle.ErrInvalidAnswer) {
			return oracle.Quote{}, err
		}
		return oracle.Quote{}, fmt.Errorf("%w: %v", oracle.ErrUnavailable, err)
	}

	q, ok := res.(oracle.Quote)
	if !ok {
		return oracle.Quote{}, fmt.Errorf("%w: unexpected result %T", oracle.ErrUnavailable, res)
	}
	return q, nil
}

// Decimals returns the feed precision. The value is cached after the first
// successful read.
func (f *Feed) Decimals(ctx context.Context) (uint8, error) {
	f.mu.Lock()
	if f.decimals != nil {
		d := *f.decimals
		f.mu.Unlock()
		return d, nil
	}
	f.mu.Unlock()

	values, err := f.call(ctx, "decimals")
	if err != nil {
		return 0, err
	}
	d, ok := values[0].(uint8)
	if !ok {
		return 0, fmt.Errorf("chainlink: decimals: unexpected type %T", values[0])
	}

	f.mu.Lock()
	f.decimals = &d
	f.mu.Unlock()
	return d, nil
}

func (f *Feed) latest(ctx context.Context) (oracle.Quote, error) {
	callCtx, cancel := context.WithTimeout(ctx, f.cfg.Timeout)
	defer cancel()

	decimals, err := f.Decimals(callCtx)
	if err != nil {
		return oracle.Quote{}, err
	}

	values, err := f.call(callCtx, "latestRoundData")
	if err != nil {
		return oracle.Quote{}, err
	}
	if len(values) != 5 {
		return oracle.Quote{}, fmt.Errorf("chainlink: latestRoundData: got %d values", len(values))
	}

	roundID, ok1 := values[0].(*big.Int)
	answer, ok2 := values[1].(*big.Int)
	updatedAt, ok3 := values[3].(*big.Int)
	if !ok1 || !ok2 || !ok3 {
		return oracle.Quote{}, errors.New("chainlink: latestRoundData: unexpected value types")
	}

	q := oracle.Quote{
		Answer:    answer,
		Decimals:  decimals,
		RoundID:   roundID,
		UpdatedAt: time.Unix(updatedAt.Int64(), 0).UTC(),
	}
	if err := q.Validate(); err != nil {
		return oracle.Quote{}, retry.Unrecoverable(err)
	}
	if f.cfg.MaxAge > 0 {
		if age := f.clock.Since(q.UpdatedAt); age > f.cfg.MaxAge {
			return oracle.Quote{}, retry.Unrecoverable(
				fmt.Errorf("%w: round %s is %s old", oracle.ErrStale, roundID, age.Truncate(time.Second)))
		}
	}
	return q, nil
}

func (f *Feed) call(ctx context.Context, method string) ([]interface{}, error) {
	data, err := f.abi.Pack(method)
	if err != nil {
		return nil, fmt.Errorf("chainlink: pack %s: %w", method, err)
	}

	out, err := f.caller.CallContract(ctx, ethereum.CallMsg{To: &f.address, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("chainlink: call %s: %w", method, err)
	}

	values, err := f.abi.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("chainlink: unpack %s: %w", method, err)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("chainlink: %s returned no values", method)
	}
	return values, nil
}
