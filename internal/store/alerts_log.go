package store

import (
	"context"
	"fmt"
	"time"

	"github.com/charleschow/arb-engine/internal/dbpool"
)

// AlertRecord is a durable copy of each alert the orchestrator raises
// (other services' alerts are not recorded here), independent of the
// alerts.Notifier's own file fallback — this is the queryable record
// an operator joins against game/shard activity during an incident.
type AlertRecord struct {
	ID      int64     `db:"id"`
	Kind    string    `db:"kind"`
	Message string    `db:"message"`
	SentAt  time.Time `db:"sent_at"`
}

func (s *Store) RecordAlert(ctx context.Context, kind, message string) error {
	_, err := s.pool.DB.ExecContext(ctx, `INSERT INTO alerts_log (kind, message) VALUES ($1, $2)`, kind, message)
	if err != nil {
		return fmt.Errorf("store: record alert: %w", dbpool.Classify(err))
	}
	return nil
}

func (s *Store) RecentAlerts(ctx context.Context, limit int) ([]AlertRecord, error) {
	var alerts []AlertRecord
	err := s.pool.DB.SelectContext(ctx, &alerts, `SELECT id, kind, message, sent_at FROM alerts_log ORDER BY sent_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, dbpool.Classify(err)
	}
	return alerts, nil
}
