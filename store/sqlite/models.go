package sqlite

import (
	"encoding/json"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/xraph/grove"

	"github.com/xraph/fundme/campaign"
	"github.com/xraph/fundme/contribution"
	"github.com/xraph/fundme/id"
	"github.com/xraph/fundme/sweep"
	"github.com/xraph/fundme/types"
)

// ==================== Campaign models ====================

type campaignModel struct {
	grove.BaseModel `grove:"table:fundme_campaigns"`

	ID            string    `grove:"id,pk"`
	Name          string    `grove:"name"`
	Owner         string    `grove:"owner"`
	DeployedAt    time.Time `grove:"deployed_at"`
	WindowSeconds int64     `grove:"window_seconds"`
	MinimumUSD    string    `grove:"minimum_usd"`
	Network       string    `grove:"network"`
	Metadata      string    `grove:"metadata"`
	CreatedAt     time.Time `grove:"created_at"`
	UpdatedAt     time.Time `grove:"updated_at"`
}

func toCampaignModel(c *campaign.Campaign) *campaignModel {
	metadata := "{}"
	if len(c.Metadata) > 0 {
		raw, _ := json.Marshal(c.Metadata) //nolint:errcheck // map[string]string always encodes
		metadata = string(raw)
	}

	return &campaignModel{
		ID:            c.ID.String(),
		Name:          c.Name,
		Owner:         c.Owner.Hex(),
		DeployedAt:    c.DeployedAt,
		WindowSeconds: c.WindowSeconds(),
		MinimumUSD:    c.MinimumUSD.String(),
		Network:       c.Network,
		Metadata:      metadata,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
}

func fromCampaignModel(m *campaignModel) (*campaign.Campaign, error) {
	campaignID, err := id.ParseCampaignID(m.ID)
	if err != nil {
		return nil, err
	}
	minimum, err := parseDecimal(m.MinimumUSD)
	if err != nil {
		return nil, err
	}

	var metadata map[string]string
	if m.Metadata != "" && m.Metadata != "{}" {
		if err := json.Unmarshal([]byte(m.Metadata), &metadata); err != nil {
			return nil, err
		}
	}

	return &campaign.Campaign{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:         campaignID,
		Name:       m.Name,
		Owner:      common.HexToAddress(m.Owner),
		DeployedAt: m.DeployedAt.UTC(),
		Window:     time.Duration(m.WindowSeconds) * time.Second,
		MinimumUSD: minimum,
		Network:    m.Network,
		Metadata:   metadata,
	}, nil
}

// ==================== Contribution models ====================

type contributionModel struct {
	grove.BaseModel `grove:"table:fundme_contributions"`

	ID          string    `grove:"id,pk"`
	CampaignID  string    `grove:"campaign_id"`
	Contributor string    `grove:"contributor"`
	Amount      string    `grove:"amount"`
	USDValue    string    `grove:"usd_value"`
	OracleRound string    `grove:"oracle_round"`
	Timestamp   time.Time `grove:"timestamp"`
}

func toContributionModel(c *contribution.Contribution) *contributionModel {
	return &contributionModel{
		ID:          c.ID.String(),
		CampaignID:  c.CampaignID.String(),
		Contributor: c.Contributor.Hex(),
		Amount:      c.Amount.String(),
		USDValue:    c.USDValue.String(),
		OracleRound: c.OracleRound,
		Timestamp:   c.Timestamp,
	}
}

func fromContributionModel(m *contributionModel) (*contribution.Contribution, error) {
	contributionID, err := id.ParseContributionID(m.ID)
	if err != nil {
		return nil, err
	}
	campaignID, err := id.ParseCampaignID(m.CampaignID)
	if err != nil {
		return nil, err
	}
	amount, err := types.ParseWei(m.Amount)
	if err != nil {
		return nil, err
	}
	usd, err := parseDecimal(m.USDValue)
	if err != nil {
		return nil, err
	}

	return &contribution.Contribution{
		ID:          contributionID,
		CampaignID:  campaignID,
		Contributor: common.HexToAddress(m.Contributor),
		Amount:      amount,
		USDValue:    usd,
		OracleRound: m.OracleRound,
		Timestamp:   m.Timestamp.UTC(),
	}, nil
}

// ==================== Sweep models ====================

type sweepModel struct {
	grove.BaseModel `grove:"table:fundme_sweeps"`

	ID         string    `grove:"id,pk"`
	CampaignID string    `grove:"campaign_id"`
	Owner      string    `grove:"owner"`
	Amount     string    `grove:"amount"`
	Timestamp  time.Time `grove:"timestamp"`
}

func toSweepModel(s *sweep.Sweep) *sweepModel {
	return &sweepModel{
		ID:         s.ID.String(),
		CampaignID: s.CampaignID.String(),
		Owner:      s.Owner.Hex(),
		Amount:     s.Amount.String(),
		Timestamp:  s.Timestamp,
	}
}

func fromSweepModel(m *sweepModel) (*sweep.Sweep, error) {
	sweepID, err := id.ParseSweepID(m.ID)
	if err != nil {
		return nil, err
	}
	campaignID, err := id.ParseCampaignID(m.CampaignID)
	if err != nil {
		return nil, err
	}
	amount, err := types.ParseWei(m.Amount)
	if err != nil {
		return nil, err
	}

	return &sweep.Sweep{
		ID:         sweepID,
		CampaignID: campaignID,
		Owner:      common.HexToAddress(m.Owner),
		Amount:     amount,
		Timestamp:  m.Timestamp.UTC(),
	}, nil
}

func parseDecimal(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}
