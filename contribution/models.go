package contribution

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/xraph/fundme/id"
	"github.com/xraph/fundme/types"
)

// Contribution is one accepted payment into a campaign.
type Contribution struct {
	ID          id.ContributionID `json:"id"`
	CampaignID  id.CampaignID     `json:"campaign_id"`
	Contributor types.Address     `json:"contributor"`
	Amount      types.Amount      `json:"amount"`
	USDValue    decimal.Decimal   `json:"usd_value"`
	OracleRound string            `json:"oracle_round,omitempty"`
	Timestamp   time.Time         `json:"timestamp"`
}

// Total sums the amounts of cs.
func Total(cs []*Contribution) types.Amount {
	total := types.ZeroAmount()
	for _, c := range cs {
		total = total.Add(c.Amount)
	}
	return total
}

// Balances sums the amounts of cs per contributor.
func Balances(cs []*Contribution) map[types.Address]types.Amount {
	out := make(map[types.Address]types.Amount)
	for _, c := range cs {
		out[c.Contributor] = out[c.Contributor].Add(c.Amount)
	}
	return out
}
