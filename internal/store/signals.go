package store

import (
	"context"
	"fmt"

	"github.com/charleschow/arb-engine/internal/dbpool"
	"github.com/charleschow/arb-engine/internal/model"
)

// RecordSignal persists an emitted trading signal for audit and
// post-hoc calibration; signals are never updated once written.
func (s *Store) RecordSignal(ctx context.Context, sig model.TradingSignal) error {
	_, err := s.pool.DB.NamedExecContext(ctx, `
		INSERT INTO signals (signal_id, game_id, market_type, team, direction, model_prob, market_prob, edge, liquidity_available, confidence, proposed_size, venue, created_at)
		VALUES (:signal_id, :game_id, :market_type, :team, :direction, :model_prob, :market_prob, :edge, :liquidity_available, :confidence, :proposed_size, :venue, :created_at)
	`, sig)
	if err != nil {
		return fmt.Errorf("store: record signal: %w", dbpool.Classify(err))
	}
	return nil
}

func (s *Store) SignalsForGame(ctx context.Context, gameID string) ([]model.TradingSignal, error) {
	var sigs []model.TradingSignal
	err := s.pool.DB.SelectContext(ctx, &sigs, `
		SELECT signal_id, game_id, market_type, team, direction, model_prob, market_prob, edge, liquidity_available, confidence, proposed_size, venue, created_at
		FROM signals WHERE game_id = $1 ORDER BY created_at DESC
	`, gameID)
	if err != nil {
		return nil, dbpool.Classify(err)
	}
	return sigs, nil
}
