package store

import (
	"context"

	"github.com/xraph/fundme/campaign"
	"github.com/xraph/fundme/contribution"
	"github.com/xraph/fundme/id"
	"github.com/xraph/fundme/sweep"
)

// Store is the unified storage interface for all FundMe entities.
// Instead of embedding the sub-interfaces, we explicitly declare all methods
// to avoid naming conflicts.
type Store interface {
	// Campaign methods
	CreateCampaign(ctx context.Context, c *campaign.Campaign) error
	GetCampaign(ctx context.Context, campaignID id.CampaignID) (*campaign.Campaign, error)
	ListCampaigns(ctx context.Context, opts campaign.ListOpts) ([]*campaign.Campaign, error)

	// Contribution methods
	RecordContribution(ctx context.Context, c *contribution.Contribution) error
	ListContributions(ctx context.Context, campaignID id.CampaignID, opts contribution.ListOpts) ([]*contribution.Contribution, error)

	// Sweep methods
	RecordSweep(ctx context.Context, s *sweep.Sweep) error
	ListSweeps(ctx context.Context, campaignID id.CampaignID) ([]*sweep.Sweep, error)

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
