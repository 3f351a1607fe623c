// Package plugin provides an extensible plugin system for FundMe.
// Plugins can hook into campaign lifecycle events to extend functionality.
package plugin

import (
	"context"

	"github.com/xraph/fundme/campaign"
	"github.com/xraph/fundme/contribution"
	"github.com/xraph/fundme/event"
	"github.com/xraph/fundme/id"
	"github.com/xraph/fundme/sweep"
	"github.com/xraph/fundme/types"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the engine starts.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, engine interface{}) error
}

// OnShutdown is called when the engine stops.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Campaign hooks
// ──────────────────────────────────────────────────

// OnCampaignDeployed is called after a campaign is persisted.
type OnCampaignDeployed interface {
	Plugin
	OnCampaignDeployed(ctx context.Context, c *campaign.Campaign) error
}

// ──────────────────────────────────────────────────
// Contribution hooks
// ──────────────────────────────────────────────────

// OnContribution is called after a contribution is accepted.
type OnContribution interface {
	Plugin
	OnContribution(ctx context.Context, c *contribution.Contribution) error
}

// OnContributionRejected is called when a contribution is refused.
type OnContributionRejected interface {
	Plugin
	OnContributionRejected(ctx context.Context, campaignID id.CampaignID, contributor types.Address, amount types.Amount, reason error) error
}

// ──────────────────────────────────────────────────
// Sweep hooks
// ──────────────────────────────────────────────────

// OnFundsSwept is called after the owner withdraws the held balance.
type OnFundsSwept interface {
	Plugin
	OnFundsSwept(ctx context.Context, s *sweep.Sweep) error
}

// OnSweepRejected is called when a sweep is refused.
type OnSweepRejected interface {
	Plugin
	OnSweepRejected(ctx context.Context, campaignID id.CampaignID, caller types.Address, reason error) error
}

// ──────────────────────────────────────────────────
// Event stream
// ──────────────────────────────────────────────────

// OnEvent receives every event appended to a campaign's event log, in order.
type OnEvent interface {
	Plugin
	OnEvent(ctx context.Context, e event.Event) error
}
