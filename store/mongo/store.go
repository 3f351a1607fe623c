package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	"github.com/xraph/fundme"
	"github.com/xraph/fundme/campaign"
	"github.com/xraph/fundme/contribution"
	"github.com/xraph/fundme/id"
	fundmestore "github.com/xraph/fundme/store"
	"github.com/xraph/fundme/sweep"
	"github.com/xraph/fundme/types"
)

// Collection name constants.
const (
	colCampaigns     = "fundme_campaigns"
	colContributions = "fundme_contributions"
	colSweeps        = "fundme_sweeps"
)

// compile-time interface check
var _ fundmestore.Store = (*Store)(nil)

// Store implements store.Store using MongoDB via Grove ORM.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates indexes for all fundme collections.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := migrationIndexes()

	for col, models := range indexes {
		if len(models) == 0 {
			continue
		}
		_, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("%w: mongo: %s indexes: %w", fundme.ErrMigrationFailed, col, err)
		}
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
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fundme.ErrAlreadyExists
		}
		return fmt.Errorf("fundme/mongo: create campaign: %w", err)
	}
	return nil
}

func (s *Store) GetCampaign(ctx context.Context, campaignID id.CampaignID) (*campaign.Campaign, error) {
	var m campaignModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": campaignID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, fundme.ErrCampaignNotFound
		}
		return nil, fmt.Errorf("fundme/mongo: get campaign: %w", err)
	}
	return fromCampaignModel(&m)
}

func (s *Store) ListCampaigns(ctx context.Context, opts campaign.ListOpts) ([]*campaign.Campaign, error) {
	var models []campaignModel

	filter := bson.M{}
	if !types.IsZeroAddress(opts.Owner) {
		filter["owner"] = opts.Owner.Hex()
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "deployed_at", Value: 1}, {Key: "_id", Value: 1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("fundme/mongo: list campaigns: %w", err)
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
	_, err := s.mdb.NewInsert(toContributionModel(c)).Exec(ctx)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fundme.ErrAlreadyExists
		}
		return fmt.Errorf("fundme/mongo: record contribution: %w", err)
	}
	return nil
}

func (s *Store) ListContributions(ctx context.Context, campaignID id.CampaignID, opts contribution.ListOpts) ([]*contribution.Contribution, error) {
	var models []contributionModel

	filter := bson.M{"campaign_id": campaignID.String()}
	if !types.IsZeroAddress(opts.Contributor) {
		filter["contributor"] = opts.Contributor.Hex()
	}
	if !opts.Start.IsZero() || !opts.End.IsZero() {
		tsFilter := bson.M{}
		if !opts.Start.IsZero() {
			tsFilter["$gte"] = opts.Start
		}
		if !opts.End.IsZero() {
			tsFilter["$lt"] = opts.End
		}
		filter["timestamp"] = tsFilter
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "timestamp", Value: 1}, {Key: "_id", Value: 1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("fundme/mongo: list contributions: %w", err)
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
	_, err := s.mdb.NewInsert(toSweepModel(sw)).Exec(ctx)
	if err != nil {
		return fmt.Errorf("fundme/mongo: record sweep: %w", err)
	}
	return nil
}

func (s *Store) ListSweeps(ctx context.Context, campaignID id.CampaignID) ([]*sweep.Sweep, error) {
	var models []sweepModel
	err := s.mdb.NewFind(&models).
		Filter(bson.M{"campaign_id": campaignID.String()}).
		Sort(bson.D{{Key: "timestamp", Value: 1}, {Key: "_id", Value: 1}}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("fundme/mongo: list sweeps: %w", err)
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

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// migrationIndexes returns the index definitions for all fundme collections.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colCampaigns: {
			{Keys: bson.D{{Key: "owner", Value: 1}}},
			{Keys: bson.D{{Key: "deployed_at", Value: 1}}},
		},
		colContributions: {
			{Keys: bson.D{{Key: "campaign_id", Value: 1}, {Key: "timestamp", Value: 1}}},
			{Keys: bson.D{{Key: "campaign_id", Value: 1}, {Key: "contributor", Value: 1}}},
		},
		colSweeps: {
			{Keys: bson.D{{Key: "campaign_id", Value: 1}, {Key: "timestamp", Value: 1}}},
		},
	}
}
