package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

const schema = `
CREATE TABLE IF NOT EXISTS games (
    id        BIGSERIAL PRIMARY KEY,
    table_num INTEGER NOT NULL,
    start     TIMESTAMPTZ NOT NULL,
    "end"     TIMESTAMPTZ,
    playtime  INTEGER NOT NULL DEFAULT 0,
    fee       NUMERIC(18, 2) NOT NULL DEFAULT 0,
    finished  BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE INDEX IF NOT EXISTS games_table_num_start ON games (table_num, start);

CREATE UNIQUE INDEX IF NOT EXISTS one_open_game_per_table
    ON games (table_num) WHERE NOT finished;

CREATE TABLE IF NOT EXISTS records (
    id        BIGSERIAL PRIMARY KEY,
    table_num INTEGER NOT NULL,
    date      TIMESTAMPTZ NOT NULL,
    start     TIMESTAMPTZ NOT NULL,
    "end"     TIMESTAMPTZ,
    playtime  INTEGER NOT NULL DEFAULT 0,
    fee       NUMERIC(18, 2) NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS records_date ON records (date DESC);

CREATE TABLE IF NOT EXISTS settings (
    id             BIGSERIAL PRIMARY KEY,
    fee_per_minute NUMERIC NOT NULL CHECK (fee_per_minute > 0)
);
`

// Migrate creates the schema and seeds the default fee row when none exists.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}

	tag, err := pool.Exec(ctx, `
		INSERT INTO settings (fee_per_minute)
		SELECT 0.5
		WHERE NOT EXISTS (SELECT 1 FROM settings)
	`)
	if err != nil {
		return fmt.Errorf("seed settings: %w", err)
	}
	if tag.RowsAffected() > 0 {
		log.Info("seeded default fee per minute 0.5")
	}

	return nil
}
