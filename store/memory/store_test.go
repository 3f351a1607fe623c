package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/xraph/fundme"
	"github.com/xraph/fundme/campaign"
	"github.com/xraph/fundme/contribution"
	"github.com/xraph/fundme/id"
	"github.com/xraph/fundme/store/memory"
	"github.com/xraph/fundme/sweep"
	"github.com/xraph/fundme/types"
)

var (
	owner = types.MustAddress("0x1000000000000000000000000000000000000001")
	alice = types.MustAddress("0x2000000000000000000000000000000000000002")
	bob   = types.MustAddress("0x3000000000000000000000000000000000000003")
	t0    = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
)

func newCampaign(t *testing.T, s *memory.Store, who types.Address) *campaign.Campaign {
	t.Helper()
	c := &campaign.Campaign{
		Entity:     types.NewEntity(t0),
		ID:         id.NewCampaignID(),
		Owner:      who,
		DeployedAt: t0,
		Window:     180 * time.Second,
		Metadata:   map[string]string{"k": "v"},
	}
	if err := s.CreateCampaign(context.Background(), c); err != nil {
		t.Fatalf("CreateCampaign: %v", err)
	}
	return c
}

func TestCampaigns(t *testing.T) {
	ctx := context.Background()
	s := memory.New()

	c := newCampaign(t, s, owner)
	if err := s.CreateCampaign(ctx, c); !errors.Is(err, fundme.ErrAlreadyExists) {
		t.Fatalf("duplicate create: got %v", err)
	}

	got, err := s.GetCampaign(ctx, c.ID)
	if err != nil {
		t.Fatalf("GetCampaign: %v", err)
	}
	if got.Owner != owner || got.Window != 180*time.Second || !got.DeployedAt.Equal(t0) {
		t.Errorf("unexpected campaign %+v", got)
	}

	// returned copies are detached from the store
	got.Metadata["k"] = "changed"
	again, _ := s.GetCampaign(ctx, c.ID)
	if again.Metadata["k"] != "v" {
		t.Error("metadata mutated through returned copy")
	}

	if _, err := s.GetCampaign(ctx, id.NewCampaignID()); !errors.Is(err, fundme.ErrCampaignNotFound) {
		t.Errorf("expected ErrCampaignNotFound, got %v", err)
	}

	newCampaign(t, s, alice)
	newCampaign(t, s, owner)

	tests := []struct {
		name string
		opts campaign.ListOpts
		want int
	}{
		{"all", campaign.ListOpts{}, 3},
		{"by owner", campaign.ListOpts{Owner: owner}, 2},
		{"limit", campaign.ListOpts{Limit: 1}, 1},
		{"offset", campaign.ListOpts{Offset: 2}, 1},
		{"offset past end", campaign.ListOpts{Offset: 10}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			list, err := s.ListCampaigns(ctx, tt.opts)
			if err != nil {
				t.Fatalf("ListCampaigns: %v", err)
			}
			if len(list) != tt.want {
				t.Errorf("got %d campaigns, want %d", len(list), tt.want)
			}
		})
	}
}

func TestContributions(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	c := newCampaign(t, s, owner)

	record := func(who types.Address, ether string, at time.Time) {
		t.Helper()
		err := s.RecordContribution(ctx, &contribution.Contribution{
			ID:          id.NewContributionID(),
			CampaignID:  c.ID,
			Contributor: who,
			Amount:      types.MustEther(ether),
			Timestamp:   at,
		})
		if err != nil {
			t.Fatalf("RecordContribution: %v", err)
		}
	}
	record(alice, "0.5", t0.Add(20*time.Second))
	record(bob, "1", t0.Add(10*time.Second))
	record(alice, "0.25", t0.Add(30*time.Second))

	all, err := s.ListContributions(ctx, c.ID, contribution.ListOpts{})
	if err != nil {
		t.Fatalf("ListContributions: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("got %d contributions, want 3", len(all))
	}
	if all[0].Contributor != bob {
		t.Error("contributions should be ordered by timestamp")
	}
	if got := contribution.Total(all); !got.Equal(types.MustEther("1.75")) {
		t.Errorf("total = %s", got.FormatEther())
	}
	if got := contribution.Balances(all)[alice]; !got.Equal(types.MustEther("0.75")) {
		t.Errorf("alice balance = %s", got.FormatEther())
	}

	mine, _ := s.ListContributions(ctx, c.ID, contribution.ListOpts{Contributor: alice})
	if len(mine) != 2 {
		t.Errorf("alice has %d contributions, want 2", len(mine))
	}

	window, _ := s.ListContributions(ctx, c.ID, contribution.ListOpts{
		Start: t0.Add(15 * time.Second),
		End:   t0.Add(30 * time.Second),
	})
	if len(window) != 1 {
		t.Errorf("time range returned %d contributions, want 1", len(window))
	}

	err = s.RecordContribution(ctx, &contribution.Contribution{
		ID:         id.NewContributionID(),
		CampaignID: id.NewCampaignID(),
		Amount:     types.WeiInt64(1),
	})
	if !errors.Is(err, fundme.ErrCampaignNotFound) {
		t.Errorf("expected ErrCampaignNotFound, got %v", err)
	}
}

func TestSweeps(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	c := newCampaign(t, s, owner)

	for i, ether := range []string{"2", "0"} {
		err := s.RecordSweep(ctx, &sweep.Sweep{
			ID:         id.NewSweepID(),
			CampaignID: c.ID,
			Owner:      owner,
			Amount:     types.MustEther(ether),
			Timestamp:  t0.Add(time.Duration(200+i) * time.Second),
		})
		if err != nil {
			t.Fatalf("RecordSweep: %v", err)
		}
	}

	list, err := s.ListSweeps(ctx, c.ID)
	if err != nil {
		t.Fatalf("ListSweeps: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("got %d sweeps, want 2", len(list))
	}
	if got := sweep.Total(list); !got.Equal(types.MustEther("2")) {
		t.Errorf("total swept = %s", got.FormatEther())
	}
}

func TestClose(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	if err := s.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := s.Ping(ctx); !errors.Is(err, fundme.ErrStoreClosed) {
		t.Errorf("expected ErrStoreClosed, got %v", err)
	}
	err := s.CreateCampaign(ctx, &campaign.Campaign{ID: id.NewCampaignID()})
	if !errors.Is(err, fundme.ErrStoreClosed) {
		t.Errorf("expected ErrStoreClosed, got %v", err)
	}
}
