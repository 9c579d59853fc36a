package store

import (
	"context"
	"fmt"

	"github.com/charleschow/arb-engine/internal/dbpool"
	"github.com/charleschow/arb-engine/internal/model"
)

// RecordAssignment persists a (game -> shard) binding, overwriting
// whatever was previously assigned to that game. Call sites pass the
// prior shard ID (if any) as PrevShardID so the audit trail shows the
// reassignment chain.
func (s *Store) RecordAssignment(ctx context.Context, a model.Assignment) error {
	_, err := s.pool.DB.NamedExecContext(ctx, `
		INSERT INTO assignments (game_id, shard_id, assigned_at, prev_shard_id)
		VALUES (:game_id, :shard_id, :assigned_at, :prev_shard_id)
		ON CONFLICT (game_id) DO UPDATE SET
			shard_id      = EXCLUDED.shard_id,
			assigned_at   = EXCLUDED.assigned_at,
			prev_shard_id = EXCLUDED.prev_shard_id
	`, a)
	if err != nil {
		return fmt.Errorf("store: record assignment: %w", dbpool.Classify(err))
	}
	return nil
}

func (s *Store) AssignmentsForShard(ctx context.Context, shardID string) ([]model.Assignment, error) {
	var assignments []model.Assignment
	err := s.pool.DB.SelectContext(ctx, &assignments, `SELECT game_id, shard_id, assigned_at, prev_shard_id FROM assignments WHERE shard_id = $1`, shardID)
	if err != nil {
		return nil, dbpool.Classify(err)
	}
	return assignments, nil
}
