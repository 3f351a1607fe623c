package fundme

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"

	"github.com/xraph/fundme/campaign"
	"github.com/xraph/fundme/contribution"
	"github.com/xraph/fundme/event"
	"github.com/xraph/fundme/id"
	"github.com/xraph/fundme/oracle"
	"github.com/xraph/fundme/plugin"
	"github.com/xraph/fundme/store"
	"github.com/xraph/fundme/sweep"
	"github.com/xraph/fundme/types"
)

// Engine deploys campaigns and hands out their ledgers.
type Engine struct {
	store   store.Store
	plugins *plugin.Registry
	logger  *slog.Logger
	clock   clockwork.Clock
	oracle  oracle.PriceOracle

	mu      sync.Mutex
	ledgers map[string]*Ledger
}

// New creates a new Engine instance.
func New(s store.Store, opts ...Option) *Engine {
	e := &Engine{
		store:   s,
		plugins: plugin.NewRegistry(),
		logger:  slog.Default(),
		clock:   clockwork.NewRealClock(),
		ledgers: make(map[string]*Ledger),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Option configures an Engine instance.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
		e.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Engine) {
		_ = e.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithPluginTimeout bounds each plugin hook invocation.
func WithPluginTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.plugins.WithTimeout(d)
	}
}

// WithOracle sets the price feed used by campaigns with a USD minimum.
func WithOracle(o oracle.PriceOracle) Option {
	return func(e *Engine) {
		e.oracle = o
	}
}

// WithClock sets the clock that drives contribution windows.
func WithClock(c clockwork.Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// Start migrates the store and initializes plugins.
func (e *Engine) Start(ctx context.Context) error {
	if err := e.store.Migrate(ctx); err != nil {
		return err
	}

	e.plugins.EmitInit(ctx, e)

	e.logger.Info("fundme engine started",
		"plugins", e.plugins.Count(),
		"oracle", e.oracle != nil,
	)

	return nil
}

// Stop notifies plugins and closes the store.
func (e *Engine) Stop() error {
	ctx := context.Background()
	e.plugins.EmitShutdown(ctx)

	return e.store.Close()
}

// Plugins returns the plugin registry.
func (e *Engine) Plugins() *plugin.Registry { return e.plugins }

// Store returns the underlying store.
func (e *Engine) Store() store.Store { return e.store }

// Oracle returns the configured price feed, or nil.
func (e *Engine) Oracle() oracle.PriceOracle { return e.oracle }

// Clock returns the engine clock.
func (e *Engine) Clock() clockwork.Clock { return e.clock }

// ──────────────────────────────────────────────────
// Campaigns
// ──────────────────────────────────────────────────

// Deploy validates p, persists a new campaign deployed at the current clock
// time, and returns its ledger.
func (e *Engine) Deploy(ctx context.Context, p campaign.Params) (*Ledger, error) {
	if types.IsZeroAddress(p.Owner) {
		return nil, ErrInvalidOwner
	}
	window := p.Window.Truncate(time.Second)
	if window <= 0 {
		return nil, fmt.Errorf("%w: got %s", ErrInvalidWindow, p.Window)
	}
	if p.MinimumUSD.IsNegative() {
		return nil, ValidationError{Field: "minimum_usd", Message: "must not be negative"}
	}
	if p.MinimumUSD.IsPositive() && e.oracle == nil {
		return nil, ValidationError{Field: "minimum_usd", Message: "requires a price oracle"}
	}

	now := e.clock.Now().UTC().Truncate(time.Second)
	c := &campaign.Campaign{
		Entity:     types.NewEntity(now),
		ID:         id.NewCampaignID(),
		Name:       p.Name,
		Owner:      p.Owner,
		DeployedAt: now,
		Window:     window,
		MinimumUSD: p.MinimumUSD,
		Network:    p.Network,
		Metadata:   p.Metadata,
	}

	if err := e.store.CreateCampaign(ctx, c); err != nil {
		return nil, err
	}

	l := newLedger(e, c)

	e.mu.Lock()
	e.ledgers[c.ID.String()] = l
	e.mu.Unlock()

	e.logger.Info("campaign deployed",
		"campaign_id", c.ID.String(),
		"owner", c.Owner.Hex(),
		"window", c.Window,
		"deadline", c.Deadline(),
		"minimum_usd", c.MinimumUSD.String(),
	)

	e.plugins.EmitCampaignDeployed(ctx, c)
	return l, nil
}

// Open returns the ledger of an existing campaign. The engine keeps exactly
// one ledger per campaign so that mutations stay serialized.
func (e *Engine) Open(ctx context.Context, campaignID id.CampaignID) (*Ledger, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if l, ok := e.ledgers[campaignID.String()]; ok {
		return l, nil
	}

	c, err := e.store.GetCampaign(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	contributions, err := e.store.ListContributions(ctx, campaignID, contribution.ListOpts{})
	if err != nil {
		return nil, err
	}
	sweeps, err := e.store.ListSweeps(ctx, campaignID)
	if err != nil {
		return nil, err
	}

	l := newLedger(e, c)
	l.hydrate(contributions, sweeps)
	e.ledgers[campaignID.String()] = l

	e.logger.Debug("campaign ledger opened",
		"campaign_id", campaignID.String(),
		"contributions", len(contributions),
		"sweeps", len(sweeps),
	)

	return l, nil
}

// GetCampaign retrieves a campaign by ID.
func (e *Engine) GetCampaign(ctx context.Context, campaignID id.CampaignID) (*campaign.Campaign, error) {
	return e.store.GetCampaign(ctx, campaignID)
}

// ListCampaigns lists deployed campaigns.
func (e *Engine) ListCampaigns(ctx context.Context, opts campaign.ListOpts) ([]*campaign.Campaign, error) {
	return e.store.ListCampaigns(ctx, opts)
}

// Contributions lists the accepted contributions of a campaign.
func (e *Engine) Contributions(ctx context.Context, campaignID id.CampaignID, opts contribution.ListOpts) ([]*contribution.Contribution, error) {
	return e.store.ListContributions(ctx, campaignID, opts)
}

// Sweeps lists the sweeps of a campaign.
func (e *Engine) Sweeps(ctx context.Context, campaignID id.CampaignID) ([]*sweep.Sweep, error) {
	return e.store.ListSweeps(ctx, campaignID)
}

// QuoteUSD converts amount into USD at the current oracle price.
func (e *Engine) QuoteUSD(ctx context.Context, amount types.Amount) (decimal.Decimal, oracle.Quote, error) {
	q, err := e.quote(ctx)
	if err != nil {
		return decimal.Zero, oracle.Quote{}, err
	}
	return oracle.ToUSD(amount, q), q, nil
}

func (e *Engine) quote(ctx context.Context) (oracle.Quote, error) {
	if e.oracle == nil {
		return oracle.Quote{}, fmt.Errorf("%w: no price oracle configured", ErrOracleUnavailable)
	}
	q, err := e.oracle.Quote(ctx)
	if err != nil {
		return oracle.Quote{}, fmt.Errorf("%w: %w", ErrOracleUnavailable, err)
	}
	if err := q.Validate(); err != nil {
		return oracle.Quote{}, fmt.Errorf("%w: %w", ErrOracleUnavailable, err)
	}
	return q, nil
}

// replayEvents rebuilds the event log from persisted entries. Contributions
// sort before sweeps at equal timestamps.
func replayEvents(campaignID id.CampaignID, contributions []*contribution.Contribution, sweeps []*sweep.Sweep) []event.Event {
	events := make([]event.Event, 0, len(contributions)+len(sweeps))
	for _, c := range contributions {
		events = append(events, event.Event{
			Kind:       event.KindContribution,
			CampaignID: campaignID,
			Account:    c.Contributor,
			Amount:     c.Amount,
			Timestamp:  c.Timestamp,
		})
	}
	for _, s := range sweeps {
		events = append(events, event.Event{
			Kind:       event.KindFundsSwept,
			CampaignID: campaignID,
			Account:    s.Owner,
			Amount:     s.Amount,
			Timestamp:  s.Timestamp,
		})
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp.Before(events[j].Timestamp)
	})
	for i := range events {
		events[i].Seq = uint64(i + 1)
	}
	return events
}
