package fundme

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xraph/fundme/campaign"
	"github.com/xraph/fundme/contribution"
	"github.com/xraph/fundme/event"
	"github.com/xraph/fundme/id"
	"github.com/xraph/fundme/oracle"
	"github.com/xraph/fundme/sweep"
	"github.com/xraph/fundme/types"
)

// Ledger is the funding ledger of a single campaign.
//
// Mutations hold the write lock from the window check through the store
// write and the event append, so every accepted contribution and sweep is
// applied atomically and in a single order. Plugins are notified after the
// lock is released, strictly in Seq order.
type Ledger struct {
	engine   *Engine
	campaign campaign.Campaign

	mu       sync.RWMutex
	balances map[types.Address]types.Amount
	total    types.Amount
	swept    types.Amount
	events   []event.Event

	// nextDispatch is the Seq whose notifications go out next.
	dispatchMu   sync.Mutex
	dispatchCond *sync.Cond
	nextDispatch uint64
}

func newLedger(e *Engine, c *campaign.Campaign) *Ledger {
	l := &Ledger{
		engine:       e,
		campaign:     *c,
		balances:     make(map[types.Address]types.Amount),
		total:        types.ZeroAmount(),
		swept:        types.ZeroAmount(),
		nextDispatch: 1,
	}
	l.dispatchCond = sync.NewCond(&l.dispatchMu)
	return l
}

func (l *Ledger) hydrate(contributions []*contribution.Contribution, sweeps []*sweep.Sweep) {
	l.balances = contribution.Balances(contributions)
	l.total = contribution.Total(contributions)
	l.swept = sweep.Total(sweeps)
	l.events = replayEvents(l.campaign.ID, contributions, sweeps)
	l.nextDispatch = uint64(len(l.events)) + 1
}

// ──────────────────────────────────────────────────
// Mutations
// ──────────────────────────────────────────────────

// Contribute records amount (wei) from caller.
//
// The contribution is refused with ErrWindowClosed once the window has
// elapsed. When the campaign has a USD minimum the oracle is consulted;
// an unreadable feed fails with ErrOracleUnavailable and a short payment with
// ErrBelowMinimum. A refused contribution changes nothing.
func (l *Ledger) Contribute(ctx context.Context, caller types.Address, amount types.Amount) (*contribution.Contribution, error) {
	c := &l.campaign

	if !c.IsOpenAt(l.engine.clock.Now()) {
		return nil, l.rejectContribution(ctx, caller, amount, ErrWindowClosed)
	}
	if amount.IsNegative() {
		return nil, l.rejectContribution(ctx, caller, amount, ErrInvalidAmount)
	}
	if types.IsZeroAddress(caller) {
		return nil, l.rejectContribution(ctx, caller, amount,
			fmt.Errorf("%w: contributor address is zero", ErrInvalidInput))
	}

	usd := decimal.Zero
	var round string
	if c.HasMinimum() {
		q, err := l.engine.quote(ctx)
		if err != nil {
			return nil, l.rejectContribution(ctx, caller, amount, err)
		}
		usd = oracle.ToUSD(amount, q)
		if q.RoundID != nil {
			round = q.RoundID.String()
		}
		if usd.LessThan(c.MinimumUSD) {
			return nil, l.rejectContribution(ctx, caller, amount,
				fmt.Errorf("%w: %s USD is less than %s USD", ErrBelowMinimum, usd.StringFixed(2), c.MinimumUSD.StringFixed(2)))
		}
	}

	l.mu.Lock()
	// The window may have closed while the oracle was consulted.
	now := l.now()
	if !c.IsOpenAt(now) {
		l.mu.Unlock()
		return nil, l.rejectContribution(ctx, caller, amount, ErrWindowClosed)
	}

	entry := &contribution.Contribution{
		ID:          id.NewContributionID(),
		CampaignID:  c.ID,
		Contributor: caller,
		Amount:      amount,
		USDValue:    usd,
		OracleRound: round,
		Timestamp:   now,
	}
	if err := l.engine.store.RecordContribution(ctx, entry); err != nil {
		l.mu.Unlock()
		return nil, err
	}

	l.balances[caller] = l.balances[caller].Add(amount)
	l.total = l.total.Add(amount)
	ev := l.appendEvent(event.KindContribution, caller, amount, now)
	l.mu.Unlock()

	l.engine.logger.Debug("contribution accepted",
		"campaign_id", c.ID.String(),
		"contributor", caller.Hex(),
		"amount_wei", amount.String(),
		"seq", ev.Seq,
	)

	l.dispatch(ev.Seq, func() {
		l.engine.plugins.EmitContribution(ctx, entry)
		l.engine.plugins.EmitEvent(ctx, ev)
	})
	return entry, nil
}

// Sweep transfers the held balance to the owner.
//
// Only the owner may sweep (ErrNotOwner otherwise, regardless of the window),
// and only after the window has closed (ErrWindowOpen). A sweep with nothing
// held succeeds and transfers zero.
func (l *Ledger) Sweep(ctx context.Context, caller types.Address) (*sweep.Sweep, error) {
	c := &l.campaign

	if caller != c.Owner {
		return nil, l.rejectSweep(ctx, caller, ErrNotOwner)
	}

	l.mu.Lock()
	now := l.now()
	if c.IsOpenAt(now) {
		l.mu.Unlock()
		return nil, l.rejectSweep(ctx, caller, ErrWindowOpen)
	}

	entry := &sweep.Sweep{
		ID:         id.NewSweepID(),
		CampaignID: c.ID,
		Owner:      c.Owner,
		Amount:     l.total.Sub(l.swept),
		Timestamp:  now,
	}
	if err := l.engine.store.RecordSweep(ctx, entry); err != nil {
		l.mu.Unlock()
		return nil, err
	}

	l.swept = l.swept.Add(entry.Amount)
	ev := l.appendEvent(event.KindFundsSwept, c.Owner, entry.Amount, now)
	l.mu.Unlock()

	l.engine.logger.Info("funds swept",
		"campaign_id", c.ID.String(),
		"owner", c.Owner.Hex(),
		"amount_wei", entry.Amount.String(),
	)

	l.dispatch(ev.Seq, func() {
		l.engine.plugins.EmitFundsSwept(ctx, entry)
		l.engine.plugins.EmitEvent(ctx, ev)
	})
	return entry, nil
}

func (l *Ledger) rejectContribution(ctx context.Context, caller types.Address, amount types.Amount, reason error) error {
	l.engine.logger.Debug("contribution rejected",
		"campaign_id", l.campaign.ID.String(),
		"contributor", caller.Hex(),
		"amount_wei", amount.String(),
		"reason", reason,
	)
	l.engine.plugins.EmitContributionRejected(ctx, l.campaign.ID, caller, amount, reason)
	return reason
}

func (l *Ledger) rejectSweep(ctx context.Context, caller types.Address, reason error) error {
	l.engine.logger.Debug("sweep rejected",
		"campaign_id", l.campaign.ID.String(),
		"caller", caller.Hex(),
		"reason", reason,
	)
	l.engine.plugins.EmitSweepRejected(ctx, l.campaign.ID, caller, reason)
	return reason
}

// now is the mutation timestamp. SQL stores keep microseconds, so live and
// reloaded entries carry the same time.
func (l *Ledger) now() time.Time {
	return l.engine.clock.Now().UTC().Truncate(time.Microsecond)
}

// dispatch runs notify once every event before seq has been dispatched.
// It must be called without l.mu held so plugins may read the ledger.
func (l *Ledger) dispatch(seq uint64, notify func()) {
	l.dispatchMu.Lock()
	for l.nextDispatch != seq {
		l.dispatchCond.Wait()
	}
	l.dispatchMu.Unlock()

	notify()

	l.dispatchMu.Lock()
	l.nextDispatch++
	l.dispatchCond.Broadcast()
	l.dispatchMu.Unlock()
}

// appendEvent must be called with l.mu held.
func (l *Ledger) appendEvent(kind event.Kind, account types.Address, amount types.Amount, at time.Time) event.Event {
	ev := event.Event{
		Seq:        uint64(len(l.events) + 1),
		Kind:       kind,
		CampaignID: l.campaign.ID,
		Account:    account,
		Amount:     amount,
		Timestamp:  at,
	}
	l.events = append(l.events, ev)
	return ev
}

// ──────────────────────────────────────────────────
// Queries
// ──────────────────────────────────────────────────

// ID returns the campaign ID.
func (l *Ledger) ID() id.CampaignID { return l.campaign.ID }

// Campaign returns a copy of the campaign record.
func (l *Ledger) Campaign() campaign.Campaign {
	c := l.campaign
	if l.campaign.Metadata != nil {
		c.Metadata = make(map[string]string, len(l.campaign.Metadata))
		for k, v := range l.campaign.Metadata {
			c.Metadata[k] = v
		}
	}
	return c
}

// Owner returns the campaign owner.
func (l *Ledger) Owner() types.Address { return l.campaign.Owner }

// DeploymentTimestamp returns the deployment time.
func (l *Ledger) DeploymentTimestamp() time.Time { return l.campaign.DeployedAt }

// Window returns the contribution window length.
func (l *Ledger) Window() time.Duration { return l.campaign.Window }

// Deadline returns the first instant at which contributions are refused.
func (l *Ledger) Deadline() time.Time { return l.campaign.Deadline() }

// MinimumUSD returns the minimum contribution in USD (zero when disabled).
func (l *Ledger) MinimumUSD() decimal.Decimal { return l.campaign.MinimumUSD }

// State reports the window state at the current clock time.
func (l *Ledger) State() campaign.State {
	return l.campaign.StateAt(l.engine.clock.Now())
}

// IsOpen reports whether contributions are currently accepted.
func (l *Ledger) IsOpen() bool { return l.State() == campaign.StateOpen }

// BalanceOf returns the cumulative amount contributed by addr. It is zero for
// addresses that never contributed and is not reset by a sweep.
func (l *Ledger) BalanceOf(addr types.Address) types.Amount {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.balances[addr]
}

// Balances returns a snapshot of every contributor balance.
func (l *Ledger) Balances() map[types.Address]types.Amount {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make(map[types.Address]types.Amount, len(l.balances))
	for k, v := range l.balances {
		out[k] = v
	}
	return out
}

// TotalContributed returns the sum of all accepted contributions.
func (l *Ledger) TotalContributed() types.Amount {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.total
}

// TotalSwept returns the sum transferred to the owner so far.
func (l *Ledger) TotalSwept() types.Amount {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.swept
}

// HeldBalance returns the funds currently held by the campaign. It is zero
// immediately after a sweep.
func (l *Ledger) HeldBalance() types.Amount {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.total.Sub(l.swept)
}

// Events returns a snapshot of the event log.
func (l *Ledger) Events() []event.Event {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]event.Event, len(l.events))
	copy(out, l.events)
	return out
}

// EventsSince returns the events with Seq greater than seq.
func (l *Ledger) EventsSince(seq uint64) []event.Event {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if seq >= uint64(len(l.events)) {
		return []event.Event{}
	}
	out := make([]event.Event, len(l.events)-int(seq))
	copy(out, l.events[seq:])
	return out
}
