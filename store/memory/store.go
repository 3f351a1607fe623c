package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/xraph/fundme"
	"github.com/xraph/fundme/campaign"
	"github.com/xraph/fundme/contribution"
	"github.com/xraph/fundme/id"
	"github.com/xraph/fundme/store"
	"github.com/xraph/fundme/sweep"
	"github.com/xraph/fundme/types"
)

var _ store.Store = (*Store)(nil)

type Store struct {
	mu sync.RWMutex

	// Campaign storage, plus deployment order for listing
	campaigns map[string]*campaign.Campaign
	order     []string

	// Append-only ledgers keyed by campaign ID
	contributions map[string][]contribution.Contribution
	sweeps        map[string][]sweep.Sweep

	closed bool
}

func New() *Store {
	return &Store{
		campaigns:     make(map[string]*campaign.Campaign),
		order:         make([]string, 0),
		contributions: make(map[string][]contribution.Contribution),
		sweeps:        make(map[string][]sweep.Sweep),
	}
}

// Campaign Store implementation
func (s *Store) CreateCampaign(_ context.Context, c *campaign.Campaign) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fundme.ErrStoreClosed
	}
	key := c.ID.String()
	if _, exists := s.campaigns[key]; exists {
		return fundme.ErrAlreadyExists
	}
	cp := *c
	cp.Metadata = copyMetadata(c.Metadata)
	s.campaigns[key] = &cp
	s.order = append(s.order, key)
	return nil
}

func (s *Store) GetCampaign(_ context.Context, campaignID id.CampaignID) (*campaign.Campaign, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if c, ok := s.campaigns[campaignID.String()]; ok {
		cp := *c
		cp.Metadata = copyMetadata(c.Metadata)
		return &cp, nil
	}
	return nil, fundme.ErrCampaignNotFound
}

func (s *Store) ListCampaigns(_ context.Context, opts campaign.ListOpts) ([]*campaign.Campaign, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*campaign.Campaign, 0)
	for _, key := range s.order {
		c := s.campaigns[key]
		if !types.IsZeroAddress(opts.Owner) && c.Owner != opts.Owner {
			continue
		}
		cp := *c
		cp.Metadata = copyMetadata(c.Metadata)
		result = append(result, &cp)
	}

	return paginate(result, opts.Offset, opts.Limit), nil
}

// Contribution Store implementation
func (s *Store) RecordContribution(_ context.Context, c *contribution.Contribution) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fundme.ErrStoreClosed
	}
	key := c.CampaignID.String()
	if _, ok := s.campaigns[key]; !ok {
		return fundme.ErrCampaignNotFound
	}
	for i := range s.contributions[key] {
		if s.contributions[key][i].ID == c.ID {
			return fundme.ErrAlreadyExists
		}
	}
	s.contributions[key] = append(s.contributions[key], *c)
	return nil
}

func (s *Store) ListContributions(_ context.Context, campaignID id.CampaignID, opts contribution.ListOpts) ([]*contribution.Contribution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*contribution.Contribution, 0)
	for i := range s.contributions[campaignID.String()] {
		c := s.contributions[campaignID.String()][i]
		if !types.IsZeroAddress(opts.Contributor) && c.Contributor != opts.Contributor {
			continue
		}
		if (!opts.Start.IsZero() && c.Timestamp.Before(opts.Start)) ||
			(!opts.End.IsZero() && !c.Timestamp.Before(opts.End)) {
			continue
		}
		result = append(result, &c)
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Timestamp.Before(result[j].Timestamp)
	})

	return paginate(result, opts.Offset, opts.Limit), nil
}

// Sweep Store implementation
func (s *Store) RecordSweep(_ context.Context, sw *sweep.Sweep) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fundme.ErrStoreClosed
	}
	key := sw.CampaignID.String()
	if _, ok := s.campaigns[key]; !ok {
		return fundme.ErrCampaignNotFound
	}
	s.sweeps[key] = append(s.sweeps[key], *sw)
	return nil
}

func (s *Store) ListSweeps(_ context.Context, campaignID id.CampaignID) ([]*sweep.Sweep, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*sweep.Sweep, 0, len(s.sweeps[campaignID.String()]))
	for i := range s.sweeps[campaignID.String()] {
		sw := s.sweeps[campaignID.String()][i]
		result = append(result, &sw)
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Timestamp.Before(result[j].Timestamp)
	})
	return result, nil
}

// Core methods
func (s *Store) Migrate(_ context.Context) error {
	return nil
}

func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return fundme.ErrStoreClosed
	}
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	return nil
}

func paginate[T any](items []T, offset, limit int) []T {
	start := offset
	if start > len(items) {
		start = len(items)
	}
	end := start + limit
	if limit == 0 || end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

func copyMetadata(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
