package orchestrator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charleschow/arb-engine/internal/model"
)

func healthyShard(id string, capacity int, games ...string) model.ServiceState {
	return model.ServiceState{
		ServiceID:     id,
		Role:          model.RoleShard,
		Status:        model.Healthy,
		LastHeartbeat: time.Now(),
		AssignedGames: append([]string{}, games...),
		Capacity:      capacity,
	}
}

func TestAssignPicksLowestLoadWithServiceIDTieBreak(t *testing.T) {
	r := NewRegistry()
	r.RegisterService(healthyShard("shard-b", 10, "g1", "g2"))
	r.RegisterService(healthyShard("shard-a", 10, "g1", "g2"))
	r.UpsertGame(model.Game{GameID: "g3"})

	shardID, err := r.Assign("g3")
	require.NoError(t, err)
	assert.Equal(t, "shard-a", shardID)
}

func TestAssignFailsWhenNoHealthyShards(t *testing.T) {
	r := NewRegistry()
	r.UpsertGame(model.Game{GameID: "g1"})

	_, err := r.Assign("g1")
	assert.Error(t, err)
}

func TestAssignFailsWhenAllShardsAtCapacity(t *testing.T) {
	r := NewRegistry()
	r.RegisterService(healthyShard("shard-a", 1, "g1"))
	r.UpsertGame(model.Game{GameID: "g2"})

	_, err := r.Assign("g2")
	assert.Error(t, err)
}

func TestAssignAllPlacesEveryUnassignedGame(t *testing.T) {
	r := NewRegistry()
	r.RegisterService(healthyShard("shard-a", 10))
	r.UpsertGame(model.Game{GameID: "g1"})
	r.UpsertGame(model.Game{GameID: "g2"})

	placed, orphaned := r.AssignAll()
	assert.Len(t, placed, 2)
	assert.Empty(t, orphaned)
	assert.ElementsMatch(t, []string{"g1", "g2"}, r.GamesAssignedTo("shard-a"))
}

func TestAssignAllOrphansGamesThatDoNotFit(t *testing.T) {
	r := NewRegistry()
	r.RegisterService(healthyShard("shard-a", 1))
	r.UpsertGame(model.Game{GameID: "g1"})
	r.UpsertGame(model.Game{GameID: "g2"})

	placed, orphaned := r.AssignAll()
	assert.Len(t, placed, 1)
	assert.Len(t, orphaned, 1)
}

// Reassignment completeness: every game a dead shard held is either
// moved to a healthy shard or explicitly reported orphaned, never
// silently dropped.
func TestReassignMovesEveryGameOffDeadShard(t *testing.T) {
	r := NewRegistry()
	r.RegisterService(healthyShard("shard-a", 10, "g1", "g2", "g3"))
	r.RegisterService(healthyShard("shard-b", 10))
	for _, g := range []string{"g1", "g2", "g3"} {
		r.UpsertGame(model.Game{GameID: g})
		r.SetAssignment(g, "shard-a")
	}

	moved, orphaned := r.Reassign("shard-a")
	assert.Len(t, moved, 3)
	assert.Empty(t, orphaned)
	for _, g := range []string{"g1", "g2", "g3"} {
		assert.Equal(t, "shard-b", moved[g])
		shardID, ok := r.AssignedShard(g)
		require.True(t, ok)
		assert.Equal(t, "shard-b", shardID)
	}
	assert.Empty(t, r.GamesAssignedTo("shard-a"))
}

func TestReassignOrphansGamesWhenNoCapacityElsewhere(t *testing.T) {
	r := NewRegistry()
	r.RegisterService(healthyShard("shard-a", 2, "g1", "g2"))
	for _, g := range []string{"g1", "g2"} {
		r.UpsertGame(model.Game{GameID: g})
		r.SetAssignment(g, "shard-a")
	}

	moved, orphaned := r.Reassign("shard-a")
	assert.Empty(t, moved)
	assert.Len(t, orphaned, 2)
}

func TestZombieGamesDetectsMismatchedHeartbeatClaims(t *testing.T) {
	r := NewRegistry()
	r.RegisterService(healthyShard("shard-a", 10, "g1"))
	r.UpsertGame(model.Game{GameID: "g1"})
	r.SetAssignment("g1", "shard-a")
	r.UpsertGame(model.Game{GameID: "g2"})
	r.SetAssignment("g2", "shard-b")

	zombies := r.ZombieGames("shard-a", []string{"g1", "g2"})
	assert.Equal(t, []string{"g2"}, zombies)
}

func TestPruneStaleServicesRemovesOldHeartbeats(t *testing.T) {
	r := NewRegistry()
	stale := healthyShard("shard-a", 10)
	stale.LastHeartbeat = time.Now().Add(-time.Hour)
	r.RegisterService(stale)
	r.RegisterService(healthyShard("shard-b", 10))

	removed := r.PruneStaleServices(time.Minute)
	assert.Equal(t, []string{"shard-a"}, removed)
	_, ok := r.Service("shard-a")
	assert.False(t, ok)
	_, ok = r.Service("shard-b")
	assert.True(t, ok)
}

func TestApplyHeartbeatDiscardsOutOfOrderSequence(t *testing.T) {
	r := NewRegistry()
	now := time.Now()
	first := model.Heartbeat{ShardID: "shard-a", Sequence: 5, SentAt: now}
	state, _ := r.ApplyHeartbeat(first, 10, time.Second, time.Second)

	stale := model.Heartbeat{ShardID: "shard-a", Sequence: 3, SentAt: now.Add(time.Second)}
	reapplied, regressed := r.ApplyHeartbeat(stale, 10, time.Second, time.Second)
	assert.False(t, regressed)
	assert.Equal(t, state.LastHeartbeat, reapplied.LastHeartbeat)
}

func TestApplyHeartbeatReportsRegressionToDead(t *testing.T) {
	r := NewRegistry()
	heartbeatInterval := 10 * time.Millisecond
	fresh := model.Heartbeat{ShardID: "shard-a", Sequence: 1, SentAt: time.Now()}
	_, regressed := r.ApplyHeartbeat(fresh, 10, heartbeatInterval, time.Second)
	assert.False(t, regressed)

	stale := model.Heartbeat{ShardID: "shard-a", Sequence: 2, SentAt: time.Now().Add(-time.Hour)}
	_, regressed = r.ApplyHeartbeat(stale, 10, heartbeatInterval, time.Second)
	assert.True(t, regressed)
}

func TestApplyHeartbeatDegradesOnStaleGamePrices(t *testing.T) {
	r := NewRegistry()
	heartbeatInterval := time.Second
	staleThreshold := 5 * time.Second

	fresh := model.Heartbeat{
		ShardID:      "shard-a",
		Sequence:     1,
		SentAt:       time.Now(),
		StalenessSec: map[string]float64{"g1": 30},
	}
	state, _ := r.ApplyHeartbeat(fresh, 10, heartbeatInterval, staleThreshold)
	assert.Equal(t, model.Degraded, state.Status)
}

func TestDeriveStatusThresholds(t *testing.T) {
	now := time.Now()
	interval := time.Second
	staleThreshold := 5 * time.Second

	hb := func(age time.Duration, staleness map[string]float64) model.Heartbeat {
		return model.Heartbeat{SentAt: now.Add(-age), StalenessSec: staleness}
	}

	assert.Equal(t, model.Healthy, DeriveStatus(hb(0, nil), now, interval, staleThreshold))
	assert.Equal(t, model.Healthy, DeriveStatus(hb(2*interval, map[string]float64{"g1": 1}), now, interval, staleThreshold))
	assert.Equal(t, model.Degraded, DeriveStatus(hb(0, map[string]float64{"g1": 30}), now, interval, staleThreshold))
	assert.Equal(t, model.Degraded, DeriveStatus(hb(3*interval, nil), now, interval, staleThreshold))
	assert.Equal(t, model.Dead, DeriveStatus(hb(4*interval, nil), now, interval, staleThreshold))
}
