package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ServiceRole distinguishes orchestrator-tracked service instances.
type ServiceRole string

const (
	RoleShard     ServiceRole = "shard"
	RoleDiscovery ServiceRole = "discovery"
)

// HealthStatus is the derived health of a service instance.
type HealthStatus string

const (
	Healthy  HealthStatus = "healthy"
	Degraded HealthStatus = "degraded"
	Dead     HealthStatus = "dead"
)

// ServiceState is the orchestrator's authoritative record of one
// service instance's health and load.
type ServiceState struct {
	ServiceID      string       `json:"service_id"`
	Role           ServiceRole  `json:"role"`
	Status         HealthStatus `json:"status"`
	PreviousStatus HealthStatus `json:"previous_status"`
	LastHeartbeat  time.Time    `json:"last_heartbeat"`
	AssignedGames  []string     `json:"assigned_games"`
	Capacity       int          `json:"capacity"`
}

// Load is games-held divided by capacity, used by the greedy
// assignment policy. A zero-capacity shard has infinite load (never
// selected).
func (s ServiceState) Load() float64 {
	if s.Capacity <= 0 {
		return 1e18
	}
	return float64(len(s.AssignedGames)) / float64(s.Capacity)
}

// TransitionedWorse reports whether Status regressed relative to
// PreviousStatus (healthy -> degraded -> dead), which is what triggers
// reassignment of every game the shard holds.
func (s ServiceState) TransitionedWorse() bool {
	rank := map[HealthStatus]int{Healthy: 0, Degraded: 1, Dead: 2}
	return rank[s.Status] > rank[s.PreviousStatus]
}

// Heartbeat is what a shard publishes periodically to the orchestrator.
type Heartbeat struct {
	ShardID       string             `json:"shard_id"`
	Sequence      uint64             `json:"sequence"`
	AssignedGames []string           `json:"assigned_games"`
	StalenessSec  map[string]float64 `json:"staleness_sec"`
	FreeCapacity  int                `json:"free_capacity"`
	SentAt        time.Time          `json:"sent_at"`
}

// Assignment is a persisted (game -> shard) binding, logged for audit
// on every transition.
type Assignment struct {
	GameID      string    `json:"game_id" db:"game_id"`
	ShardID     string    `json:"shard_id" db:"shard_id"`
	AssignedAt  time.Time `json:"assigned_at" db:"assigned_at"`
	PrevShardID string    `json:"prev_shard_id,omitempty" db:"prev_shard_id"`
}

// FillState is the lifecycle of a two-leg execution attempt.
type FillState string

const (
	FillPending       FillState = "pending"
	FillBothFilled    FillState = "both_filled"
	FillPartialClosed FillState = "partial_closed"
	FillFailed        FillState = "failed"
)

// Leg is one side of a (possibly two-leg) order placement.
type Leg struct {
	Venue    Venue  `json:"venue"`
	MarketID string `json:"market_id"`
	Side     Side   `json:"side"`
	OrderID  string `json:"order_id,omitempty"`
	Filled   bool   `json:"filled"`
}

// Value implements driver.Valuer so a Leg can be written directly to a
// JSONB column.
func (l Leg) Value() (driver.Value, error) {
	return json.Marshal(l)
}

// Scan implements sql.Scanner for reading a Leg back out of a JSONB
// column.
func (l *Leg) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	case nil:
		return nil
	default:
		return fmt.Errorf("model: cannot scan %T into Leg", src)
	}
	return json.Unmarshal(raw, l)
}

// NullLeg wraps *Leg so sqlx can scan a nullable leg_b JSONB column.
type NullLeg struct {
	Leg   Leg
	Valid bool
}

func (n NullLeg) Value() (driver.Value, error) {
	if !n.Valid {
		return nil, nil
	}
	return json.Marshal(n.Leg)
}

func (n *NullLeg) Scan(src any) error {
	if src == nil {
		n.Valid = false
		return nil
	}
	n.Valid = true
	return (&n.Leg).Scan(src)
}

// Position records the outcome of one execution attempt.
type Position struct {
	PositionID    string    `json:"position_id" db:"position_id"`
	OpportunityID string    `json:"opportunity_id" db:"opportunity_id"`
	LegA          Leg       `json:"leg_a" db:"leg_a"`
	LegB          NullLeg   `json:"leg_b,omitempty" db:"leg_b"`
	FillState     FillState `json:"fill_state" db:"fill_state"`
	OpenedAt      time.Time `json:"opened_at" db:"opened_at"`
}
