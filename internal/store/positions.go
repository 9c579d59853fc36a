package store

import (
	"context"
	"fmt"

	"github.com/charleschow/arb-engine/internal/dbpool"
	"github.com/charleschow/arb-engine/internal/model"
)

// UpsertPosition persists a position's current fill state. Execution
// calls it once per attempt, after reconciliation, with the final
// FillState (both_filled, partial_closed, failed); a repeated write of
// the same position_id updates the legs and fill state in place.
func (s *Store) UpsertPosition(ctx context.Context, p model.Position) error {
	_, err := s.pool.DB.NamedExecContext(ctx, `
		INSERT INTO positions (position_id, opportunity_id, leg_a, leg_b, fill_state, opened_at)
		VALUES (:position_id, :opportunity_id, :leg_a, :leg_b, :fill_state, :opened_at)
		ON CONFLICT (position_id) DO UPDATE SET
			leg_a      = EXCLUDED.leg_a,
			leg_b      = EXCLUDED.leg_b,
			fill_state = EXCLUDED.fill_state
	`, p)
	if err != nil {
		return fmt.Errorf("store: upsert position: %w", dbpool.Classify(err))
	}
	return nil
}

func (s *Store) Position(ctx context.Context, positionID string) (model.Position, error) {
	var p model.Position
	err := s.pool.DB.GetContext(ctx, &p, `
		SELECT position_id, opportunity_id, leg_a, leg_b, fill_state, opened_at
		FROM positions WHERE position_id = $1
	`, positionID)
	if err != nil {
		return model.Position{}, dbpool.Classify(err)
	}
	return p, nil
}

func (s *Store) OpenPositions(ctx context.Context) ([]model.Position, error) {
	var positions []model.Position
	err := s.pool.DB.SelectContext(ctx, &positions, `
		SELECT position_id, opportunity_id, leg_a, leg_b, fill_state, opened_at
		FROM positions WHERE fill_state = $1
	`, model.FillPending)
	if err != nil {
		return nil, dbpool.Classify(err)
	}
	return positions, nil
}
