// Package event defines the notifications a campaign emits. Events are a
// side channel: they report accepted mutations and carry no state of their
// own.
package event

import (
	"time"

	"github.com/xraph/fundme/id"
	"github.com/xraph/fundme/types"
)

// Kind names an event.
type Kind string

const (
	// KindContribution is emitted for every accepted contribution.
	KindContribution Kind = "Contribution"
	// KindFundsSwept is emitted for every successful owner sweep.
	KindFundsSwept Kind = "FundsSwept"
)

// Event is one entry of a campaign's append-only event log.
//
// Account is the contributor for KindContribution and the owner for
// KindFundsSwept.
type Event struct {
	Seq        uint64        `json:"seq"`
	Kind       Kind          `json:"kind"`
	CampaignID id.CampaignID `json:"campaign_id"`
	Account    types.Address `json:"account"`
	Amount     types.Amount  `json:"amount"`
	Timestamp  time.Time     `json:"timestamp"`
}
