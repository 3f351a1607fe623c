// Package audithook bridges FundMe ledger events to an audit trail backend.
//
// It defines a local Recorder interface so the package does not import
// Chronicle directly. Callers inject a RecorderFunc adapter that bridges
// to Chronicle at wiring time.
package audithook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/xraph/fundme"
	"github.com/xraph/fundme/campaign"
	"github.com/xraph/fundme/contribution"
	"github.com/xraph/fundme/id"
	"github.com/xraph/fundme/plugin"
	"github.com/xraph/fundme/sweep"
	"github.com/xraph/fundme/types"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin                 = (*Extension)(nil)
	_ plugin.OnCampaignDeployed     = (*Extension)(nil)
	_ plugin.OnContribution         = (*Extension)(nil)
	_ plugin.OnContributionRejected = (*Extension)(nil)
	_ plugin.OnFundsSwept           = (*Extension)(nil)
	_ plugin.OnSweepRejected        = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
// This matches chronicle.Emitter but is defined locally so that the
// audit_hook package does not import Chronicle directly.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a local representation of an audit event.
// It mirrors chronicle/audit.Event but avoids a module dependency.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges ledger events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Campaign hooks
// ──────────────────────────────────────────────────

// OnCampaignDeployed implements plugin.OnCampaignDeployed.
func (e *Extension) OnCampaignDeployed(ctx context.Context, c *campaign.Campaign) error {
	return e.record(ctx, ActionCampaignDeployed, SeverityInfo, OutcomeSuccess,
		ResourceCampaign, c.ID.String(), CategoryLifecycle, nil,
		"owner", c.Owner.Hex(),
		"deployed_at", c.DeployedAt,
		"window_seconds", c.WindowSeconds(),
		"minimum_usd", c.MinimumUSD.String(),
		"network", c.Network,
	)
}

// ──────────────────────────────────────────────────
// Contribution hooks
// ──────────────────────────────────────────────────

// OnContribution implements plugin.OnContribution.
func (e *Extension) OnContribution(ctx context.Context, c *contribution.Contribution) error {
	return e.record(ctx, ActionContributionAccepted, SeverityInfo, OutcomeSuccess,
		ResourceContribution, c.ID.String(), CategoryFunding, nil,
		"campaign_id", c.CampaignID.String(),
		"contributor", c.Contributor.Hex(),
		"amount_wei", c.Amount.String(),
		"usd_value", c.USDValue.String(),
	)
}

// OnContributionRejected implements plugin.OnContributionRejected.
func (e *Extension) OnContributionRejected(ctx context.Context, campaignID id.CampaignID, contributor types.Address, amount types.Amount, reason error) error {
	severity := SeverityWarning
	if errors.Is(reason, fundme.ErrOracleUnavailable) {
		severity = SeverityError
	}
	return e.record(ctx, ActionContributionRejected, severity, OutcomeFailure,
		ResourceCampaign, campaignID.String(), CategoryFunding, reason,
		"contributor", contributor.Hex(),
		"amount_wei", amount.String(),
	)
}

// ──────────────────────────────────────────────────
// Sweep hooks
// ──────────────────────────────────────────────────

// OnFundsSwept implements plugin.OnFundsSwept.
func (e *Extension) OnFundsSwept(ctx context.Context, s *sweep.Sweep) error {
	return e.record(ctx, ActionFundsSwept, SeverityInfo, OutcomeSuccess,
		ResourceSweep, s.ID.String(), CategoryFunding, nil,
		"campaign_id", s.CampaignID.String(),
		"owner", s.Owner.Hex(),
		"amount_wei", s.Amount.String(),
	)
}

// OnSweepRejected implements plugin.OnSweepRejected. A non-owner attempt is
// an access violation; an early owner attempt is only a warning.
func (e *Extension) OnSweepRejected(ctx context.Context, campaignID id.CampaignID, caller types.Address, reason error) error {
	severity, category := SeverityWarning, CategoryFunding
	if errors.Is(reason, fundme.ErrNotOwner) {
		severity, category = SeverityCritical, CategoryAccess
	}
	return e.record(ctx, ActionSweepRejected, severity, OutcomeFailure,
		ResourceCampaign, campaignID.String(), category, reason,
		"caller", caller.Hex(),
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
