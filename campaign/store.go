package campaign

import (
	"context"

	"github.com/xraph/fundme/id"
	"github.com/xraph/fundme/types"
)

type Store interface {
	Create(ctx context.Context, c *Campaign) error
	Get(ctx context.Context, campaignID id.CampaignID) (*Campaign, error)
	List(ctx context.Context, opts ListOpts) ([]*Campaign, error)
}

// ListOpts filters campaign listings. A zero Owner matches every owner.
type ListOpts struct {
	Owner  types.Address
	Limit  int
	Offset int
}
