// Package orchestrator owns the control-plane view of the system: what
// games exist, which shard each is assigned to, and how healthy every
// shard and discovery service is. It is a control-plane store — unlike
// the hot-path per-game GameContext, a plain sync.Mutex is the right
// tool here, holding a distributed map of ServiceID -> ServiceState
// plus a GameID -> ShardID assignment map.
package orchestrator

import (
	"sync"
	"time"

	"github.com/charleschow/arb-engine/internal/model"
)

// Registry is the orchestrator's authoritative in-memory state. All
// access goes through its mutex; this is a control-plane structure
// touched at heartbeat/reassignment frequency, not per-tick.
type Registry struct {
	mu sync.Mutex

	games    map[string]model.Game
	services map[string]model.ServiceState
	assign   map[string]string // game_id -> shard_id
	lastSeq  map[string]uint64 // shard_id -> last accepted heartbeat sequence
}

func NewRegistry() *Registry {
	return &Registry{
		games:    make(map[string]model.Game),
		services: make(map[string]model.ServiceState),
		assign:   make(map[string]string),
		lastSeq:  make(map[string]uint64),
	}
}

func (r *Registry) UpsertGame(g model.Game) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.games[g.GameID] = g
}

func (r *Registry) Game(gameID string) (model.Game, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.games[gameID]
	return g, ok
}

// UnassignedGames returns every known game that has no shard.
func (r *Registry) UnassignedGames() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for id := range r.games {
		if _, ok := r.assign[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}

// RegisterService adds or refreshes a service instance's state, storing
// it exactly as given; PreviousStatus is whatever the caller set on it.
func (r *Registry) RegisterService(state model.ServiceState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.services[state.ServiceID] = state
}

func (r *Registry) Service(serviceID string) (model.ServiceState, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.services[serviceID]
	return s, ok
}

// ServicesByRole returns a snapshot of every service of the given role.
func (r *Registry) ServicesByRole(role model.ServiceRole) []model.ServiceState {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.ServiceState
	for _, s := range r.services {
		if s.Role == role {
			out = append(out, s)
		}
	}
	return out
}

// HealthyShards returns shards currently Healthy, sorted by ServiceID
// for deterministic tie-breaking in the assignment policy.
func (r *Registry) HealthyShards() []model.ServiceState {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.ServiceState
	for _, s := range r.services {
		if s.Role == model.RoleShard && s.Status == model.Healthy {
			out = append(out, s)
		}
	}
	sortByServiceID(out)
	return out
}

// AssignedShard returns the shard currently holding gameID.
func (r *Registry) AssignedShard(gameID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	shardID, ok := r.assign[gameID]
	return shardID, ok
}

// SetAssignment atomically records gameID -> shardID and reflects it
// into the shard's AssignedGames list.
func (r *Registry) SetAssignment(gameID, shardID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.assign[gameID] = shardID
	if s, ok := r.services[shardID]; ok {
		s.AssignedGames = appendUnique(s.AssignedGames, gameID)
		r.services[shardID] = s
	}
}

// ClearAssignment removes gameID's assignment, reflecting the removal
// into shardID's AssignedGames list if it still holds it.
func (r *Registry) ClearAssignment(gameID, shardID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.assign[gameID] == shardID {
		delete(r.assign, gameID)
	}
	if s, ok := r.services[shardID]; ok {
		s.AssignedGames = removeOne(s.AssignedGames, gameID)
		r.services[shardID] = s
	}
}

// GamesAssignedTo returns every game currently assigned to shardID.
func (r *Registry) GamesAssignedTo(shardID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for gameID, sid := range r.assign {
		if sid == shardID {
			out = append(out, gameID)
		}
	}
	return out
}

// PruneStaleServices removes any service whose last heartbeat is older
// than maxAge, returning the removed ids for reassignment.
func (r *Registry) PruneStaleServices(maxAge time.Duration) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var removed []string
	now := time.Now()
	for id, s := range r.services {
		if now.Sub(s.LastHeartbeat) > maxAge {
			delete(r.services, id)
			removed = append(removed, id)
		}
	}
	return removed
}

func appendUnique(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}

func removeOne(list []string, v string) []string {
	for i, existing := range list {
		if existing == v {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}

func sortByServiceID(list []model.ServiceState) {
	for i := 1; i < len(list); i++ {
		for j := i; j > 0 && list[j].ServiceID < list[j-1].ServiceID; j-- {
			list[j], list[j-1] = list[j-1], list[j]
		}
	}
}
