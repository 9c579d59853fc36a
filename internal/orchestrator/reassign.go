package orchestrator

import (
	"errors"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"github.com/charleschow/arb-engine/internal/model"
	"github.com/charleschow/arb-engine/internal/telemetry"
)

var errReassignAttempt = errors.New("orchestrator: reassignment attempt")

// ReassignGuard rate-limits reassignment attempts per shard with a
// circuit breaker: a shard flapping healthy/degraded/dead should not
// trigger a reassignment attempt on every single heartbeat.
type ReassignGuard struct {
	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker
}

func NewReassignGuard() *ReassignGuard {
	return &ReassignGuard{breakers: make(map[string]*gobreaker.CircuitBreaker)}
}

func (g *ReassignGuard) breakerFor(shardID string) *gobreaker.CircuitBreaker {
	g.mu.Lock()
	defer g.mu.Unlock()
	if cb, ok := g.breakers[shardID]; ok {
		return cb
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "reassign-" + shardID,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.Requests >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			telemetry.Metrics.CircuitState.WithLabelValues(name).Set(float64(to))
			telemetry.Warnf("orchestrator: reassignment breaker %s %s -> %s", name, from, to)
		},
	})
	g.breakers[shardID] = cb
	return cb
}

// Allow reports whether a reassignment attempt for shardID may proceed
// right now. Every allowed attempt is recorded on the breaker as a
// failed call, because gobreaker consults ReadyToTrip only after a
// failure; the third attempt within the breaker's interval opens it,
// and further attempts are refused until its timeout elapses.
func (g *ReassignGuard) Allow(shardID string) bool {
	cb := g.breakerFor(shardID)
	_, err := cb.Execute(func() (any, error) { return nil, errReassignAttempt })
	return errors.Is(err, errReassignAttempt)
}

// Reassign moves every game held by shardID to the least-loaded other
// healthy shard with free capacity (ties broken by ascending ServiceID).
// Games that cannot be placed anywhere stay unassigned and are returned
// in orphaned. The callers in server.go check ReassignGuard.Allow
// before calling this.
func (r *Registry) Reassign(shardID string) (moved map[string]string, orphaned []string) {
	moved = make(map[string]string)
	for _, gameID := range r.GamesAssignedTo(shardID) {
		r.ClearAssignment(gameID, shardID)
		var best model.ServiceState
		found := false
		for _, c := range r.HealthyShards() {
			if c.ServiceID == shardID || c.Load() >= 1.0 {
				continue
			}
			if !found || c.Load() < best.Load() {
				best, found = c, true
			}
		}
		if !found {
			orphaned = append(orphaned, gameID)
			continue
		}
		r.SetAssignment(gameID, best.ServiceID)
		moved[gameID] = best.ServiceID
	}
	return moved, orphaned
}

// ZombieGames returns games a shard's heartbeat lists as held that the
// registry does not currently assign to it — a zombie-cleanup check
// run on every heartbeat.
func (r *Registry) ZombieGames(shardID string, heartbeatGames []string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var zombies []string
	for _, gameID := range heartbeatGames {
		if r.assign[gameID] != shardID {
			zombies = append(zombies, gameID)
		}
	}
	return zombies
}
