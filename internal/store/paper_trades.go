package store

import (
	"context"
	"fmt"
	"time"

	"github.com/charleschow/arb-engine/internal/dbpool"
	"github.com/charleschow/arb-engine/internal/model"
)

// PaperTrade is one simulated fill recorded by the paper venue client.
type PaperTrade struct {
	TradeID  string      `json:"trade_id" db:"trade_id"`
	Venue    model.Venue `json:"venue" db:"venue"`
	MarketID string      `json:"market_id" db:"market_id"`
	Side     model.Side  `json:"side" db:"side"`
	Price    float64     `json:"price" db:"price"`
	Size     float64     `json:"size" db:"size"`
	PlacedAt time.Time   `json:"placed_at" db:"placed_at"`
}

func (s *Store) RecordPaperTrade(ctx context.Context, t PaperTrade) error {
	_, err := s.pool.DB.NamedExecContext(ctx, `
		INSERT INTO paper_trades (trade_id, venue, market_id, side, price, size, placed_at)
		VALUES (:trade_id, :venue, :market_id, :side, :price, :size, :placed_at)
	`, t)
	if err != nil {
		return fmt.Errorf("store: record paper trade: %w", dbpool.Classify(err))
	}
	return nil
}

func (s *Store) PaperTradesForMarket(ctx context.Context, venue model.Venue, marketID string) ([]PaperTrade, error) {
	var trades []PaperTrade
	err := s.pool.DB.SelectContext(ctx, &trades, `
		SELECT trade_id, venue, market_id, side, price, size, placed_at
		FROM paper_trades WHERE venue = $1 AND market_id = $2 ORDER BY placed_at DESC
	`, venue, marketID)
	if err != nil {
		return nil, dbpool.Classify(err)
	}
	return trades, nil
}
