package store

import (
	"context"
	"fmt"

	"github.com/charleschow/arb-engine/internal/dbpool"
	"github.com/charleschow/arb-engine/internal/model"
)

func (s *Store) UpsertMarket(ctx context.Context, c model.Contract) error {
	_, err := s.pool.DB.NamedExecContext(ctx, `
		INSERT INTO markets (venue, market_id, game_id, market_type, team, status)
		VALUES (:venue, :market_id, :game_id, :market_type, :team, :status)
		ON CONFLICT (venue, market_id) DO UPDATE SET status = EXCLUDED.status
	`, c)
	if err != nil {
		return fmt.Errorf("store: upsert market: %w", dbpool.Classify(err))
	}
	return nil
}

func (s *Store) MarketsForGame(ctx context.Context, gameID string) ([]model.Contract, error) {
	var contracts []model.Contract
	err := s.pool.DB.SelectContext(ctx, &contracts, `SELECT venue, market_id, game_id, market_type, team, status FROM markets WHERE game_id = $1`, gameID)
	if err != nil {
		return nil, dbpool.Classify(err)
	}
	return contracts, nil
}

// RecordPrice appends one order book snapshot to the market_prices
// time series; this table is insert-only, never updated in place.
func (s *Store) RecordPrice(ctx context.Context, snap model.OrderBookSnapshot) error {
	_, err := s.pool.DB.NamedExecContext(ctx, `
		INSERT INTO market_prices (venue, market_id, ts, yes_bid, yes_ask, no_bid, no_ask, yes_bid_size, yes_ask_size, liquidity)
		VALUES (:venue, :market_id, :ts, :yes_bid, :yes_ask, :no_bid, :no_ask, :yes_bid_size, :yes_ask_size, :liquidity)
	`, snap)
	if err != nil {
		return fmt.Errorf("store: record price: %w", dbpool.Classify(err))
	}
	return nil
}

func (s *Store) RecentPrices(ctx context.Context, venue model.Venue, marketID string, limit int) ([]model.OrderBookSnapshot, error) {
	var snaps []model.OrderBookSnapshot
	err := s.pool.DB.SelectContext(ctx, &snaps, `
		SELECT venue, market_id, ts, yes_bid, yes_ask, no_bid, no_ask, yes_bid_size, yes_ask_size, liquidity
		FROM market_prices WHERE venue = $1 AND market_id = $2 ORDER BY ts DESC LIMIT $3
	`, venue, marketID, limit)
	if err != nil {
		return nil, dbpool.Classify(err)
	}
	return snaps, nil
}
