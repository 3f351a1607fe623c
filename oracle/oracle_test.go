package oracle_test

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/fundme/oracle"
	"github.com/xraph/fundme/types"
)

func TestMockReturnsFixture(t *testing.T) {
	m := oracle.NewDefaultMock()

	q, err := m.Quote(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint8(8), q.Decimals)
	assert.Equal(t, int64(300000000000), q.Answer.Int64())
	assert.True(t, q.Price().Equal(decimal.NewFromInt(3000)), "price %s", q.Price())
	require.NoError(t, q.Validate())
}

func TestMockIsDeterministic(t *testing.T) {
	m := oracle.NewMock(8, 123)

	a, err := m.Quote(context.Background())
	require.NoError(t, err)
	b, err := m.Quote(context.Background())
	require.NoError(t, err)
	assert.Equal(t, a.Answer, b.Answer)

	// callers cannot mutate the mock through a returned quote
	a.Answer.SetInt64(1)
	c, err := m.Quote(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(123), c.Answer.Int64())
}

func TestMockUpdateAnswer(t *testing.T) {
	m := oracle.NewMock(8, 100)
	before, _ := m.Quote(context.Background())

	m.UpdateAnswer(200)

	after, err := m.Quote(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(200), after.Answer.Int64())
	assert.Equal(t, 1, after.RoundID.Cmp(before.RoundID))
}

func TestMockConcurrentReads(t *testing.T) {
	m := oracle.NewDefaultMock()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.Quote(context.Background())
			assert.NoError(t, err)
		}()
	}
	m.UpdateAnswer(1)
	wg.Wait()
}

func TestToUSD(t *testing.T) {
	q := oracle.Quote{Answer: big.NewInt(300000000000), Decimals: 8}

	tests := []struct {
		ether string
		usd   string
	}{
		{"0.5", "1500"},
		{"1", "3000"},
		{"0.001", "3"},
		{"0", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.ether, func(t *testing.T) {
			got := oracle.ToUSD(types.MustEther(tt.ether), q)
			assert.True(t, got.Equal(decimal.RequireFromString(tt.usd)), "got %s want %s", got, tt.usd)
		})
	}
}

func TestQuoteValidate(t *testing.T) {
	for _, answer := range []*big.Int{nil, big.NewInt(0), big.NewInt(-5)} {
		err := oracle.Quote{Answer: answer, Decimals: 8}.Validate()
		assert.True(t, errors.Is(err, oracle.ErrInvalidAnswer), "answer %v: %v", answer, err)
	}
	assert.True(t, oracle.Quote{}.Price().IsZero())
}

func TestFuncAdapter(t *testing.T) {
	var f oracle.PriceOracle = oracle.Func(func(context.Context) (oracle.Quote, error) {
		return oracle.Quote{}, oracle.ErrUnavailable
	})
	_, err := f.Quote(context.Background())
	assert.ErrorIs(t, err, oracle.ErrUnavailable)
}
