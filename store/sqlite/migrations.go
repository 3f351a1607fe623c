package sqlite

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the FundMe store (SQLite).
var Migrations = migrate.NewGroup("fundme")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_fundme_campaigns",
			Version: "20240501000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS fundme_campaigns (
    id             TEXT PRIMARY KEY,
    name           TEXT NOT NULL DEFAULT '',
    owner          TEXT NOT NULL,
    deployed_at    TEXT NOT NULL,
    window_seconds INTEGER NOT NULL CHECK (window_seconds > 0),
    minimum_usd    TEXT NOT NULL DEFAULT '0',
    network        TEXT NOT NULL DEFAULT '',
    metadata       TEXT NOT NULL DEFAULT '{}',
    created_at     TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at     TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_fundme_campaigns_owner ON fundme_campaigns (owner);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS fundme_campaigns`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_fundme_contributions",
			Version: "20240501000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS fundme_contributions (
    id           TEXT PRIMARY KEY,
    campaign_id  TEXT NOT NULL REFERENCES fundme_campaigns (id),
    contributor  TEXT NOT NULL,
    amount       TEXT NOT NULL,
    usd_value    TEXT NOT NULL DEFAULT '0',
    oracle_round TEXT NOT NULL DEFAULT '',
    timestamp    TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_fundme_contributions_campaign ON fundme_contributions (campaign_id, timestamp);
CREATE INDEX IF NOT EXISTS idx_fundme_contributions_contributor ON fundme_contributions (campaign_id, contributor);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS fundme_contributions`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_fundme_sweeps",
			Version: "20240501000003",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS fundme_sweeps (
    id          TEXT PRIMARY KEY,
    campaign_id TEXT NOT NULL REFERENCES fundme_campaigns (id),
    owner       TEXT NOT NULL,
    amount      TEXT NOT NULL,
    timestamp   TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_fundme_sweeps_campaign ON fundme_sweeps (campaign_id, timestamp);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS fundme_sweeps`)
				return err
			},
		},
	)
}
