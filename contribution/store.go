package contribution

import (
	"context"
	"time"

	"github.com/xraph/fundme/id"
	"github.com/xraph/fundme/types"
)

type Store interface {
	Record(ctx context.Context, c *Contribution) error
	List(ctx context.Context, campaignID id.CampaignID, opts ListOpts) ([]*Contribution, error)
}

// ListOpts filters contribution listings. Results are ordered by Timestamp
// ascending. A zero Contributor matches every contributor; zero times are
// unbounded.
type ListOpts struct {
	Contributor types.Address
	Start       time.Time
	End         time.Time
	Limit       int
	Offset      int
}
