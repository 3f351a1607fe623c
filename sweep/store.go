package sweep

import (
	"context"

	"github.com/xraph/fundme/id"
)

type Store interface {
	Record(ctx context.Context, s *Sweep) error
	// List returns the sweeps of a campaign ordered by Timestamp ascending.
	List(ctx context.Context, campaignID id.CampaignID) ([]*Sweep, error)
}
