// Package oracle defines the price feed consumed by FundMe campaigns.
//
// A PriceOracle supplies the latest ETH/USD answer at a fixed decimal
// precision. The Mock implementation returns a static answer and is used on
// development networks; the chainlink subpackage reads a live
// AggregatorV3 feed.
package oracle

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xraph/fundme/types"
)

// Deployment fixture used by development networks: 8 decimals, 3000 USD/ETH.
const (
	DefaultDecimals      uint8 = 8
	DefaultInitialAnswer int64 = 300000000000
)

var (
	// ErrUnavailable is returned when the upstream feed cannot be read.
	ErrUnavailable = errors.New("oracle: price feed unavailable")

	// ErrInvalidAnswer is returned for non-positive answers.
	ErrInvalidAnswer = errors.New("oracle: invalid answer")

	// ErrStale is returned when the latest answer is older than the accepted age.
	ErrStale = errors.New("oracle: stale answer")
)

// PriceOracle supplies price quotes. Implementations must be safe for
// concurrent use and must not be mutated by consumers.
type PriceOracle interface {
	Quote(ctx context.Context) (Quote, error)
}

// Quote is a single price observation.
type Quote struct {
	Answer    *big.Int  `json:"answer"`
	Decimals  uint8     `json:"decimals"`
	RoundID   *big.Int  `json:"round_id,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Price returns the answer scaled by its decimals (USD per ETH).
func (q Quote) Price() decimal.Decimal {
	if q.Answer == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(q.Answer, -int32(q.Decimals))
}

// Validate checks that the quote carries a usable answer.
func (q Quote) Validate() error {
	if q.Answer == nil || q.Answer.Sign() <= 0 {
		return fmt.Errorf("%w: %v", ErrInvalidAnswer, q.Answer)
	}
	return nil
}

// ToUSD converts a wei amount into USD using the quote.
func ToUSD(amount types.Amount, q Quote) decimal.Decimal {
	return amount.Ether().Mul(q.Price())
}

// Func adapts a plain function to the PriceOracle interface.
type Func func(ctx context.Context) (Quote, error)

// Quote implements PriceOracle.
func (f Func) Quote(ctx context.Context) (Quote, error) { return f(ctx) }
