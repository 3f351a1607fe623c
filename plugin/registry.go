package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/xraph/fundme/campaign"
	"github.com/xraph/fundme/contribution"
	"github.com/xraph/fundme/event"
	"github.com/xraph/fundme/id"
	"github.com/xraph/fundme/sweep"
	"github.com/xraph/fundme/types"
)

// DefaultTimeout bounds a single hook invocation.
const DefaultTimeout = 5 * time.Second

// Registry manages all registered plugins and provides efficient dispatch.
// It uses type-cached discovery for O(1) dispatch performance.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger
	timeout time.Duration

	// Type-cached plugin lists for efficient dispatch
	onInit                 []OnInit
	onShutdown             []OnShutdown
	onCampaignDeployed     []OnCampaignDeployed
	onContribution         []OnContribution
	onContributionRejected []OnContributionRejected
	onFundsSwept           []OnFundsSwept
	onSweepRejected        []OnSweepRejected
	onEvent                []OnEvent
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger:  slog.Default(),
		timeout: DefaultTimeout,
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// WithTimeout sets the per-hook timeout.
func (r *Registry) WithTimeout(d time.Duration) *Registry {
	if d > 0 {
		r.timeout = d
	}
	return r
}

// Register adds a plugin to the registry and caches its interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Check for duplicate
	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	// Type-switch to cache interfaces
	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
	}
	if v, ok := p.(OnCampaignDeployed); ok {
		r.onCampaignDeployed = append(r.onCampaignDeployed, v)
	}
	if v, ok := p.(OnContribution); ok {
		r.onContribution = append(r.onContribution, v)
	}
	if v, ok := p.(OnContributionRejected); ok {
		r.onContributionRejected = append(r.onContributionRejected, v)
	}
	if v, ok := p.(OnFundsSwept); ok {
		r.onFundsSwept = append(r.onFundsSwept, v)
	}
	if v, ok := p.(OnSweepRejected); ok {
		r.onSweepRejected = append(r.onSweepRejected, v)
	}
	if v, ok := p.(OnEvent); ok {
		r.onEvent = append(r.onEvent, v)
	}

	r.logger.Info("plugin registered",
		"name", p.Name(),
		"interfaces", implementedInterfaces(p),
	)

	return nil
}

var hookTypes = []struct {
	name string
	typ  reflect.Type
}{
	{"OnInit", reflect.TypeOf((*OnInit)(nil)).Elem()},
	{"OnShutdown", reflect.TypeOf((*OnShutdown)(nil)).Elem()},
	{"OnCampaignDeployed", reflect.TypeOf((*OnCampaignDeployed)(nil)).Elem()},
	{"OnContribution", reflect.TypeOf((*OnContribution)(nil)).Elem()},
	{"OnContributionRejected", reflect.TypeOf((*OnContributionRejected)(nil)).Elem()},
	{"OnFundsSwept", reflect.TypeOf((*OnFundsSwept)(nil)).Elem()},
	{"OnSweepRejected", reflect.TypeOf((*OnSweepRejected)(nil)).Elem()},
	{"OnEvent", reflect.TypeOf((*OnEvent)(nil)).Elem()},
}

// implementedInterfaces returns the hook interfaces implemented by p.
func implementedInterfaces(p Plugin) []string {
	var interfaces []string
	v := reflect.TypeOf(p)
	for _, h := range hookTypes {
		if v.Implements(h.typ) {
			interfaces = append(interfaces, h.name)
		}
	}
	return interfaces
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// EmitInit notifies all OnInit plugins.
func (r *Registry) EmitInit(ctx context.Context, engine interface{}) {
	r.mu.RLock()
	plugins := r.onInit
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnInit(ctx, engine)
		}); err != nil {
			r.logger.Warn("plugin OnInit failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitShutdown notifies all OnShutdown plugins.
func (r *Registry) EmitShutdown(ctx context.Context) {
	r.mu.RLock()
	plugins := r.onShutdown
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnShutdown(ctx)
		}); err != nil {
			r.logger.Warn("plugin OnShutdown failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitCampaignDeployed notifies all OnCampaignDeployed plugins.
func (r *Registry) EmitCampaignDeployed(ctx context.Context, c *campaign.Campaign) {
	r.mu.RLock()
	plugins := r.onCampaignDeployed
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnCampaignDeployed(ctx, c)
		}); err != nil {
			r.logger.Warn("plugin OnCampaignDeployed failed",
				"plugin", p.Name(),
				"campaign_id", c.ID.String(),
				"error", err,
			)
		}
	}
}

// EmitContribution notifies all OnContribution plugins.
func (r *Registry) EmitContribution(ctx context.Context, c *contribution.Contribution) {
	r.mu.RLock()
	plugins := r.onContribution
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnContribution(ctx, c)
		}); err != nil {
			r.logger.Warn("plugin OnContribution failed",
				"plugin", p.Name(),
				"campaign_id", c.CampaignID.String(),
				"error", err,
			)
		}
	}
}

// EmitContributionRejected notifies all OnContributionRejected plugins.
func (r *Registry) EmitContributionRejected(ctx context.Context, campaignID id.CampaignID, contributor types.Address, amount types.Amount, reason error) {
	r.mu.RLock()
	plugins := r.onContributionRejected
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnContributionRejected(ctx, campaignID, contributor, amount, reason)
		}); err != nil {
			r.logger.Warn("plugin OnContributionRejected failed",
				"plugin", p.Name(),
				"campaign_id", campaignID.String(),
				"error", err,
			)
		}
	}
}

// EmitFundsSwept notifies all OnFundsSwept plugins.
func (r *Registry) EmitFundsSwept(ctx context.Context, s *sweep.Sweep) {
	r.mu.RLock()
	plugins := r.onFundsSwept
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnFundsSwept(ctx, s)
		}); err != nil {
			r.logger.Warn("plugin OnFundsSwept failed",
				"plugin", p.Name(),
				"campaign_id", s.CampaignID.String(),
				"error", err,
			)
		}
	}
}

// EmitSweepRejected notifies all OnSweepRejected plugins.
func (r *Registry) EmitSweepRejected(ctx context.Context, campaignID id.CampaignID, caller types.Address, reason error) {
	r.mu.RLock()
	plugins := r.onSweepRejected
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnSweepRejected(ctx, campaignID, caller, reason)
		}); err != nil {
			r.logger.Warn("plugin OnSweepRejected failed",
				"plugin", p.Name(),
				"campaign_id", campaignID.String(),
				"error", err,
			)
		}
	}
}

// EmitEvent notifies all OnEvent plugins.
func (r *Registry) EmitEvent(ctx context.Context, e event.Event) {
	r.mu.RLock()
	plugins := r.onEvent
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnEvent(ctx, e)
		}); err != nil {
			r.logger.Warn("plugin OnEvent failed",
				"plugin", p.Name(),
				"kind", string(e.Kind),
				"seq", e.Seq,
				"error", err,
			)
		}
	}
}

// callWithTimeout calls a plugin function with a timeout.
// Plugins should never block the ledger.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	timer := time.NewTimer(r.timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.C:
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
