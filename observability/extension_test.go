package observability_test

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/fundme"
	"github.com/xraph/fundme/campaign"
	"github.com/xraph/fundme/observability"
	"github.com/xraph/fundme/oracle"
	"github.com/xraph/fundme/store/memory"
)

var (
	owner = fundme.MustAddress("0x1000000000000000000000000000000000000001")
	alice = fundme.MustAddress("0x2000000000000000000000000000000000000002")
)

func TestMetricsExtension(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	metrics := observability.NewMetricsExtension(observability.NewPrometheusFactory(reg))
	clock := clockwork.NewFakeClockAt(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))

	e := fundme.New(memory.New(),
		fundme.WithClock(clock),
		fundme.WithOracle(oracle.NewMock(8, 300000000000)),
		fundme.WithPlugin(metrics),
	)
	require.NoError(t, e.Start(ctx))
	defer e.Stop()

	l, err := e.Deploy(ctx, campaign.Params{
		Owner:      owner,
		Window:     180 * time.Second,
		MinimumUSD: decimal.NewFromInt(100),
	})
	require.NoError(t, err)

	_, err = l.Contribute(ctx, alice, fundme.MustEther("0.5"))
	require.NoError(t, err)
	_, err = l.Contribute(ctx, alice, fundme.MustEther("0.01"))
	require.ErrorIs(t, err, fundme.ErrBelowMinimum)

	_, err = l.Sweep(ctx, alice)
	require.ErrorIs(t, err, fundme.ErrNotOwner)
	_, err = l.Sweep(ctx, owner)
	require.ErrorIs(t, err, fundme.ErrWindowOpen)

	clock.Advance(181 * time.Second)
	_, err = l.Contribute(ctx, alice, fundme.MustEther("1"))
	require.ErrorIs(t, err, fundme.ErrWindowClosed)
	_, err = l.Sweep(ctx, owner)
	require.NoError(t, err)

	assert.Equal(t, 1.0, value(metrics.CampaignsDeployed))
	assert.Equal(t, 1.0, value(metrics.ContributionsAccepted))
	assert.Equal(t, 0.5, value(metrics.ContributedEtherTotal))
	assert.Equal(t, 2.0, value(metrics.ContributionsRejected))
	assert.Equal(t, 1.0, value(metrics.RejectedBelowMinimum))
	assert.Equal(t, 1.0, value(metrics.RejectedWindowClosed))
	assert.Equal(t, 0.0, value(metrics.RejectedOracle))
	assert.Equal(t, 1.0, value(metrics.SweepRejectedOwner))
	assert.Equal(t, 1.0, value(metrics.SweepRejectedWindow))
	assert.Equal(t, 1.0, value(metrics.Sweeps))
}

func TestPrometheusFactoryNames(t *testing.T) {
	reg := prometheus.NewRegistry()
	f := observability.NewPrometheusFactory(reg)

	f.Counter("fundme.sweep.completed").Inc()
	f.Histogram("fundme.sweep.amount_eth").Observe(2)

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make([]string, 0, len(families))
	for _, mf := range families {
		names = append(names, mf.GetName())
	}
	assert.ElementsMatch(t, []string{"fundme_sweep_completed", "fundme_sweep_amount_eth"}, names)
}

func TestPrometheusFactoryReusesCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()

	a := observability.NewPrometheusFactory(reg).Counter("fundme.campaign.deployed")
	b := observability.NewPrometheusFactory(reg).Counter("fundme.campaign.deployed")
	a.Inc()
	b.Inc()

	count, err := testutil.GatherAndCount(reg, "fundme_campaign_deployed")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, 2.0, value(a))
}

func value(m any) float64 {
	return testutil.ToFloat64(m.(prometheus.Collector))
}
