package campaign

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/xraph/fundme/id"
	"github.com/xraph/fundme/types"
)

// State is the contribution window state of a campaign.
type State string

const (
	StateOpen   State = "open"
	StateClosed State = "closed"
)

// Campaign is one deployment of the funding ledger. Every field except
// Metadata is fixed at deployment.
type Campaign struct {
	types.Entity
	ID         id.CampaignID     `json:"id"`
	Name       string            `json:"name"`
	Owner      types.Address     `json:"owner"`
	DeployedAt time.Time         `json:"deployed_at"`
	Window     time.Duration     `json:"window"`
	MinimumUSD decimal.Decimal   `json:"minimum_usd"`
	Network    string            `json:"network,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// Deadline is the first instant at which the campaign is closed.
func (c *Campaign) Deadline() time.Time {
	return c.DeployedAt.Add(c.Window)
}

// StateAt reports the window state at now. The window is open while
// now < DeployedAt + Window.
func (c *Campaign) StateAt(now time.Time) State {
	if now.Before(c.Deadline()) {
		return StateOpen
	}
	return StateClosed
}

// IsOpenAt reports whether contributions are accepted at now.
func (c *Campaign) IsOpenAt(now time.Time) bool {
	return c.StateAt(now) == StateOpen
}

// HasMinimum reports whether contributions are gated by a USD minimum.
func (c *Campaign) HasMinimum() bool {
	return c.MinimumUSD.IsPositive()
}

// WindowSeconds returns the window length in whole seconds.
func (c *Campaign) WindowSeconds() int64 {
	return int64(c.Window / time.Second)
}

// Params are the deployment parameters of a new campaign.
type Params struct {
	Name       string
	Owner      types.Address
	Window     time.Duration
	MinimumUSD decimal.Decimal
	Network    string
	Metadata   map[string]string
}
