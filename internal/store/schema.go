// Package store persists the engine's durable state: games, resolved
// contracts, shard assignments, price history, signals, and paper
// trades/positions, in a single struct wrapping a *sql.DB that opens
// and ensures its schema on construction, backed by sqlx+postgres
// sized for this engine's relational and time-series tables.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/charleschow/arb-engine/internal/alerts"
	"github.com/charleschow/arb-engine/internal/dbpool"
	"github.com/charleschow/arb-engine/internal/telemetry"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS games (
		game_id         TEXT PRIMARY KEY,
		sport           TEXT NOT NULL,
		home_team       TEXT NOT NULL,
		away_team       TEXT NOT NULL,
		start_time      TIMESTAMPTZ NOT NULL,
		status          TEXT NOT NULL,
		home_score      INTEGER NOT NULL DEFAULT 0,
		away_score      INTEGER NOT NULL DEFAULT 0,
		model_prob_home DOUBLE PRECISION,
		updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS markets (
		venue       TEXT NOT NULL,
		market_id   TEXT NOT NULL,
		game_id     TEXT NOT NULL REFERENCES games(game_id),
		market_type TEXT NOT NULL,
		team        TEXT,
		status      TEXT NOT NULL,
		PRIMARY KEY (venue, market_id)
	)`,
	`CREATE TABLE IF NOT EXISTS assignments (
		game_id       TEXT PRIMARY KEY,
		shard_id      TEXT NOT NULL,
		assigned_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
		prev_shard_id TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS market_prices (
		venue        TEXT NOT NULL,
		market_id    TEXT NOT NULL,
		ts           TIMESTAMPTZ NOT NULL,
		yes_bid      DOUBLE PRECISION NOT NULL,
		yes_ask      DOUBLE PRECISION NOT NULL,
		no_bid       DOUBLE PRECISION NOT NULL,
		no_ask       DOUBLE PRECISION NOT NULL,
		yes_bid_size DOUBLE PRECISION NOT NULL,
		yes_ask_size DOUBLE PRECISION NOT NULL,
		liquidity    DOUBLE PRECISION NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_market_prices_lookup ON market_prices(venue, market_id, ts DESC)`,
	`CREATE TABLE IF NOT EXISTS signals (
		signal_id           TEXT PRIMARY KEY,
		game_id             TEXT NOT NULL,
		market_type         TEXT NOT NULL,
		team                TEXT NOT NULL,
		direction           TEXT NOT NULL,
		model_prob          DOUBLE PRECISION NOT NULL,
		market_prob         DOUBLE PRECISION NOT NULL,
		edge                DOUBLE PRECISION NOT NULL,
		liquidity_available DOUBLE PRECISION NOT NULL,
		confidence          DOUBLE PRECISION NOT NULL,
		proposed_size       DOUBLE PRECISION NOT NULL,
		venue               TEXT NOT NULL,
		created_at          TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS paper_trades (
		trade_id    TEXT PRIMARY KEY,
		venue       TEXT NOT NULL,
		market_id   TEXT NOT NULL,
		side        TEXT NOT NULL,
		price       DOUBLE PRECISION NOT NULL,
		size        DOUBLE PRECISION NOT NULL,
		placed_at   TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS positions (
		position_id    TEXT PRIMARY KEY,
		opportunity_id TEXT NOT NULL,
		leg_a          JSONB NOT NULL,
		leg_b          JSONB,
		fill_state     TEXT NOT NULL,
		opened_at      TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS alerts_log (
		id         BIGSERIAL PRIMARY KEY,
		kind       TEXT NOT NULL,
		message    TEXT NOT NULL,
		sent_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
}

// Store wraps a dbpool.Pool with the engine's query surface.
type Store struct {
	pool *dbpool.Pool
}

// New wraps an already-open pool, skipping schema initialization —
// used by tests that construct a Store around a sqlmock-backed pool,
// where CREATE TABLE statements would just be more expectations to
// stub rather than anything worth exercising.
func New(pool *dbpool.Pool) *Store {
	return &Store{pool: pool}
}

// Open connects and ensures the schema exists.
func Open(dsn string, bounds dbpool.Bounds) (*Store, error) {
	pool, err := dbpool.Open(dsn, bounds)
	if err != nil {
		return nil, err
	}
	for _, stmt := range schemaStatements {
		if _, err := pool.DB.Exec(stmt); err != nil {
			pool.Close()
			return nil, fmt.Errorf("store: init schema: %w", err)
		}
	}
	telemetry.Infof("store: schema ready")
	return &Store{pool: pool}, nil
}

// HealthMonitor delegates to the underlying pool's periodic SELECT 1
// check — exported here since callers only ever hold a *Store, pool
// being unexported.
func (s *Store) HealthMonitor(ctx context.Context, notifier *alerts.Notifier, interval time.Duration, failureThreshold int) {
	s.pool.HealthMonitor(ctx, notifier, interval, failureThreshold)
}

func (s *Store) Close() error {
	if s == nil || s.pool == nil {
		return nil
	}
	return s.pool.Close()
}
