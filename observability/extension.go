// Package observability provides a metrics extension for FundMe that records
// campaign, contribution and sweep counts through a MetricFactory.
package observability

import (
	"context"
	"errors"

	"github.com/xraph/fundme"
	"github.com/xraph/fundme/campaign"
	"github.com/xraph/fundme/contribution"
	"github.com/xraph/fundme/id"
	"github.com/xraph/fundme/plugin"
	"github.com/xraph/fundme/sweep"
	"github.com/xraph/fundme/types"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin                 = (*MetricsExtension)(nil)
	_ plugin.OnInit                 = (*MetricsExtension)(nil)
	_ plugin.OnCampaignDeployed     = (*MetricsExtension)(nil)
	_ plugin.OnContribution         = (*MetricsExtension)(nil)
	_ plugin.OnContributionRejected = (*MetricsExtension)(nil)
	_ plugin.OnFundsSwept           = (*MetricsExtension)(nil)
	_ plugin.OnSweepRejected        = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records system-wide funding metrics.
// Register it as a FundMe plugin to track campaign activity.
type MetricsExtension struct {
	factory MetricFactory

	// Campaign metrics
	CampaignsDeployed Counter
	CampaignWindow    Histogram

	// Contribution metrics
	ContributionsAccepted Counter
	ContributionEther     Histogram
	ContributionUSD       Histogram
	RejectedWindowClosed  Counter
	RejectedBelowMinimum  Counter
	RejectedOracle        Counter
	RejectedInvalid       Counter
	ContributionsRejected Counter
	ContributedEtherTotal Counter

	// Sweep metrics
	Sweeps              Counter
	SweptEther          Histogram
	SweepRejectedOwner  Counter
	SweepRejectedWindow Counter
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
// Use app.Metrics() in forge extensions, or NewPrometheusFactory.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		CampaignsDeployed: factory.Counter("fundme.campaign.deployed"),
		CampaignWindow:    factory.Histogram("fundme.campaign.window_seconds"),

		ContributionsAccepted: factory.Counter("fundme.contribution.accepted"),
		ContributionEther:     factory.Histogram("fundme.contribution.amount_eth"),
		ContributionUSD:       factory.Histogram("fundme.contribution.amount_usd"),
		ContributionsRejected: factory.Counter("fundme.contribution.rejected"),
		RejectedWindowClosed:  factory.Counter("fundme.contribution.rejected.window_closed"),
		RejectedBelowMinimum:  factory.Counter("fundme.contribution.rejected.below_minimum"),
		RejectedOracle:        factory.Counter("fundme.contribution.rejected.oracle_unavailable"),
		RejectedInvalid:       factory.Counter("fundme.contribution.rejected.invalid"),
		ContributedEtherTotal: factory.Counter("fundme.contribution.eth_total"),

		Sweeps:              factory.Counter("fundme.sweep.completed"),
		SweptEther:          factory.Histogram("fundme.sweep.amount_eth"),
		SweepRejectedOwner:  factory.Counter("fundme.sweep.rejected.not_owner"),
		SweepRejectedWindow: factory.Counter("fundme.sweep.rejected.window_open"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ interface{}) error {
	return nil
}

// OnCampaignDeployed implements plugin.OnCampaignDeployed.
func (m *MetricsExtension) OnCampaignDeployed(_ context.Context, c *campaign.Campaign) error {
	m.CampaignsDeployed.Inc()
	m.CampaignWindow.Observe(float64(c.WindowSeconds()))
	return nil
}

// OnContribution implements plugin.OnContribution.
func (m *MetricsExtension) OnContribution(_ context.Context, c *contribution.Contribution) error {
	eth := ether(c.Amount)
	m.ContributionsAccepted.Inc()
	m.ContributionEther.Observe(eth)
	m.ContributedEtherTotal.Add(eth)
	if c.USDValue.IsPositive() {
		m.ContributionUSD.Observe(c.USDValue.InexactFloat64())
	}
	return nil
}

// OnContributionRejected implements plugin.OnContributionRejected.
func (m *MetricsExtension) OnContributionRejected(_ context.Context, _ id.CampaignID, _ types.Address, _ types.Amount, reason error) error {
	m.ContributionsRejected.Inc()
	switch {
	case errors.Is(reason, fundme.ErrWindowClosed):
		m.RejectedWindowClosed.Inc()
	case errors.Is(reason, fundme.ErrBelowMinimum):
		m.RejectedBelowMinimum.Inc()
	case errors.Is(reason, fundme.ErrOracleUnavailable):
		m.RejectedOracle.Inc()
	default:
		m.RejectedInvalid.Inc()
	}
	return nil
}

// OnFundsSwept implements plugin.OnFundsSwept.
func (m *MetricsExtension) OnFundsSwept(_ context.Context, s *sweep.Sweep) error {
	m.Sweeps.Inc()
	m.SweptEther.Observe(ether(s.Amount))
	return nil
}

// OnSweepRejected implements plugin.OnSweepRejected.
func (m *MetricsExtension) OnSweepRejected(_ context.Context, _ id.CampaignID, _ types.Address, reason error) error {
	if errors.Is(reason, fundme.ErrNotOwner) {
		m.SweepRejectedOwner.Inc()
	} else {
		m.SweepRejectedWindow.Inc()
	}
	return nil
}

func ether(a types.Amount) float64 {
	return a.Ether().InexactFloat64()
}
