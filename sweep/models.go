package sweep

import (
	"time"

	"github.com/xraph/fundme/id"
	"github.com/xraph/fundme/types"
)

// Sweep records a transfer of the held balance to the campaign owner.
type Sweep struct {
	ID         id.SweepID    `json:"id"`
	CampaignID id.CampaignID `json:"campaign_id"`
	Owner      types.Address `json:"owner"`
	Amount     types.Amount  `json:"amount"`
	Timestamp  time.Time     `json:"timestamp"`
}

// Total sums the amounts of ss.
func Total(ss []*Sweep) types.Amount {
	total := types.ZeroAmount()
	for _, s := range ss {
		total = total.Add(s.Amount)
	}
	return total
}
