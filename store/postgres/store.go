package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/pgdriver"
	"github.com/xraph/grove/migrate"

	"github.com/xraph/fundme"
	"github.com/xraph/fundme/campaign"
	"github.com/xraph/fundme/contribution"
	"github.com/xraph/fundme/id"
	fundmestore "github.com/xraph/fundme/store"
	"github.com/xraph/fundme/sweep"
	"github.com/xraph/fundme/types"
)

// compile-time interface check
var _ fundmestore.Store = (*Store)(nil)

// Store implements store.Store using PostgreSQL via Grove ORM.
type Store struct {
	db *grove.DB
	pg *pgdriver.PgDB
}

// New creates a new PostgreSQL store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db: db,
		pg: pgdriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.pg)
	if err != nil {
		return fmt.Errorf("fundme/postgres: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("%w: postgres: %w", fundme.ErrMigrationFailed, err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Campaign Store ====================

func (s *Store) CreateCampaign(ctx context.Context, c *campaign.Campaign) error {
	m := toCampaignModel(c)
	if m.Metadata == nil {
		m.Metadata = map[string]string{}
	}
	if _, err := s.pg.NewInsert(m).Exec(ctx); err != nil {
		return fmt.Errorf("fundme/postgres: create campaign: %w", err)
	}
	return nil
}

func (s *Store) GetCampaign(ctx context.Context, campaignID id.CampaignID) (*campaign.Campaign, error) {
	m := new(campaignModel)
	err := s.pg.NewSelect(m).
		Where("id = $1", campaignID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, fundme.ErrCampaignNotFound
		}
		return nil, fmt.Errorf("fundme/postgres: get campaign: %w", err)
	}
	return fromCampaignModel(m)
}

func (s *Store) ListCampaigns(ctx context.Context, opts campaign.ListOpts) ([]*campaign.Campaign, error) {
	var models []campaignModel
	q := s.pg.NewSelect(&models)

	if !types.IsZeroAddress(opts.Owner) {
		q = q.Where("owner = $1", opts.Owner.Hex())
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("deployed_at ASC, id ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("fundme/postgres: list campaigns: %w", err)
	}

	result := make([]*campaign.Campaign, len(models))
	for i := range models {
		c, err := fromCampaignModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = c
	}
	return result, nil
}

// ==================== Contribution Store ====================

func (s *Store) RecordContribution(ctx context.Context, c *contribution.Contribution) error {
	if _, err := s.pg.NewInsert(toContributionModel(c)).Exec(ctx); err != nil {
		return fmt.Errorf("fundme/postgres: record contribution: %w", err)
	}
	return nil
}

func (s *Store) ListContributions(ctx context.Context, campaignID id.CampaignID, opts contribution.ListOpts) ([]*contribution.Contribution, error) {
	var models []contributionModel
	q := s.pg.NewSelect(&models).Where("campaign_id = $1", campaignID.String())

	argIdx := 1
	if !types.IsZeroAddress(opts.Contributor) {
		argIdx++
		q = q.Where(fmt.Sprintf("contributor = $%d", argIdx), opts.Contributor.Hex())
	}
	if !opts.Start.IsZero() {
		argIdx++
		q = q.Where(fmt.Sprintf("timestamp >= $%d", argIdx), opts.Start)
	}
	if !opts.End.IsZero() {
		argIdx++
		q = q.Where(fmt.Sprintf("timestamp < $%d", argIdx), opts.End)
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("timestamp ASC, id ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("fundme/postgres: list contributions: %w", err)
	}

	result := make([]*contribution.Contribution, len(models))
	for i := range models {
		c, err := fromContributionModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = c
	}
	return result, nil
}

// ==================== Sweep Store ====================

func (s *Store) RecordSweep(ctx context.Context, sw *sweep.Sweep) error {
	if _, err := s.pg.NewInsert(toSweepModel(sw)).Exec(ctx); err != nil {
		return fmt.Errorf("fundme/postgres: record sweep: %w", err)
	}
	return nil
}

func (s *Store) ListSweeps(ctx context.Context, campaignID id.CampaignID) ([]*sweep.Sweep, error) {
	var models []sweepModel
	err := s.pg.NewSelect(&models).
		Where("campaign_id = $1", campaignID.String()).
		OrderExpr("timestamp ASC, id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("fundme/postgres: list sweeps: %w", err)
	}

	result := make([]*sweep.Sweep, len(models))
	for i := range models {
		sw, err := fromSweepModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = sw
	}
	return result, nil
}

// ==================== Helpers ====================

// isNoRows checks for the standard sql.ErrNoRows sentinel.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
