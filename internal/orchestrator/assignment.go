package orchestrator

import (
	"fmt"

	"github.com/charleschow/arb-engine/internal/errs"
)

// Assign picks the healthy shard with the lowest load for gameID, ties
// broken by ascending ServiceID (stable, deterministic), and records
// the assignment. Returns an error if no healthy shard has capacity.
func (r *Registry) Assign(gameID string) (string, error) {
	candidates := r.HealthyShards()
	if len(candidates) == 0 {
		return "", errs.New(errs.Conflict, "orchestrator: no healthy shards available")
	}

	best := candidates[0]
	bestLoad := best.Load()
	for _, c := range candidates[1:] {
		load := c.Load()
		if load < bestLoad {
			best, bestLoad = c, load
		}
	}

	if bestLoad >= 1.0 {
		return "", errs.Newf(errs.Conflict, "orchestrator: all healthy shards at capacity, lowest load=%.2f", bestLoad)
	}

	r.SetAssignment(gameID, best.ServiceID)
	return best.ServiceID, nil
}

// AssignAll assigns every currently-unassigned game, returning the
// games that could not be placed (no shard with free capacity).
func (r *Registry) AssignAll() (placed map[string]string, orphaned []string) {
	placed = make(map[string]string)
	for _, gameID := range r.UnassignedGames() {
		shardID, err := r.Assign(gameID)
		if err != nil {
			orphaned = append(orphaned, gameID)
			continue
		}
		placed[gameID] = shardID
	}
	return placed, orphaned
}

func (r *Registry) String() string {
	return fmt.Sprintf("Registry{games=%d, services=%d, assignments=%d}", len(r.games), len(r.services), len(r.assign))
}
