package orchestrator

import (
	"time"

	"github.com/charleschow/arb-engine/internal/model"
)

// DeriveStatus computes a shard's health from its heartbeat age and the
// per-game price staleness it reports: healthy requires both a
// heartbeat within 2x the configured interval and every game's
// staleness under staleThreshold; a heartbeat within 2x but one or
// more stale games is degraded, as is a heartbeat within 3x; beyond
// 3x is dead regardless of reported staleness.
func DeriveStatus(hb model.Heartbeat, now time.Time, heartbeatInterval, staleThreshold time.Duration) model.HealthStatus {
	age := now.Sub(hb.SentAt)
	if age > 3*heartbeatInterval {
		return model.Dead
	}
	if age > 2*heartbeatInterval {
		return model.Degraded
	}
	for _, sec := range hb.StalenessSec {
		if time.Duration(sec*float64(time.Second)) > staleThreshold {
			return model.Degraded
		}
	}
	return model.Healthy
}

// ApplyHeartbeat upserts a shard's ServiceState from a heartbeat,
// discarding out-of-order deliveries (Sequence <= last seen), and
// returns the updated state plus whether its status regressed.
func (r *Registry) ApplyHeartbeat(hb model.Heartbeat, capacity int, heartbeatInterval, staleThreshold time.Duration) (model.ServiceState, bool) {
	r.mu.Lock()
	existing, hadExisting := r.services[hb.ShardID]
	if lastSeq, ok := r.lastSeq[hb.ShardID]; ok && hb.Sequence <= lastSeq {
		r.mu.Unlock()
		return existing, false
	}
	r.mu.Unlock()

	now := time.Now()
	next := model.ServiceState{
		ServiceID:     hb.ShardID,
		Role:          model.RoleShard,
		Status:        model.Healthy,
		LastHeartbeat: hb.SentAt,
		AssignedGames: hb.AssignedGames,
		Capacity:      capacity,
	}
	if hadExisting {
		next.PreviousStatus = existing.Status
	}
	next.Status = DeriveStatus(hb, now, heartbeatInterval, staleThreshold)

	r.mu.Lock()
	r.lastSeq[hb.ShardID] = hb.Sequence
	r.services[hb.ShardID] = next
	r.mu.Unlock()

	return next, next.TransitionedWorse()
}
