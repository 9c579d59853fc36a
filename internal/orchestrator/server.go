package orchestrator

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/charleschow/arb-engine/internal/alerts"
	"github.com/charleschow/arb-engine/internal/busproto"
	"github.com/charleschow/arb-engine/internal/model"
	"github.com/charleschow/arb-engine/internal/store"
	"github.com/charleschow/arb-engine/internal/telemetry"

	busPkg "github.com/charleschow/arb-engine/internal/bus"
)

// Server wires the registry to the bus: it consumes game-state and
// shard-heartbeat channels, runs the assignment/reassignment/zombie
// policies, and persists every transition via the store.
type Server struct {
	reg      *Registry
	b        *busPkg.Bus
	store    *store.Store
	notifier *alerts.Notifier
	guard    *ReassignGuard

	heartbeatInterval time.Duration
	shardCapacity     int
	staleThreshold    time.Duration

	discoMu           sync.Mutex
	discoveryLastSeen time.Time
}

func NewServer(b *busPkg.Bus, st *store.Store, notifier *alerts.Notifier, heartbeatInterval time.Duration, shardCapacity int, staleThreshold time.Duration) *Server {
	return &Server{
		reg:               NewRegistry(),
		b:                 b,
		store:             st,
		notifier:          notifier,
		guard:             NewReassignGuard(),
		heartbeatInterval: heartbeatInterval,
		shardCapacity:     shardCapacity,
		staleThreshold:    staleThreshold,
	}
}

// Run subscribes to games:state, discovery heartbeats, and every shard
// heartbeat channel, and starts the periodic zombie/dead-shard sweep.
// Blocks until ctx is cancelled.
func (s *Server) Run(ctx context.Context) {
	go s.b.Subscribe(ctx, busproto.ChanGamesState, s.onGameState)
	go s.b.Subscribe(ctx, busproto.ChanDiscoveryHeartbeat, s.onDiscoveryHeartbeat)

	ticker := time.NewTicker(s.heartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Server) onGameState(env busproto.Envelope, raw []byte) {
	var g model.Game
	if err := json.Unmarshal(env.Payload, &g); err != nil {
		telemetry.Warnf("orchestrator: bad game state payload: %v", err)
		return
	}
	s.reg.UpsertGame(g)
	if err := s.store.UpsertGame(context.Background(), g); err != nil {
		telemetry.Warnf("orchestrator: persist game %s: %v", g.GameID, err)
	}

	if _, assigned := s.reg.AssignedShard(g.GameID); !assigned {
		shardID, err := s.reg.Assign(g.GameID)
		if err != nil {
			telemetry.Warnf("orchestrator: could not assign game %s: %v", g.GameID, err)
			return
		}
		s.recordAssignment(context.Background(), g.GameID, shardID, "")
		s.sendControl(context.Background(), shardID, "add", g.GameID)
	}
}

// recordAssignment persists the new binding; store failures are logged
// and never block the in-memory assignment that callers already acted
// on — the registry is the source of truth for live routing, the store
// is the audit trail.
func (s *Server) recordAssignment(ctx context.Context, gameID, shardID, prevShardID string) {
	err := s.store.RecordAssignment(ctx, model.Assignment{
		GameID:      gameID,
		ShardID:     shardID,
		AssignedAt:  time.Now(),
		PrevShardID: prevShardID,
	})
	if err != nil {
		telemetry.Warnf("orchestrator: persist assignment %s->%s: %v", gameID, shardID, err)
	}
}

// onDiscoveryHeartbeat records the last time any market-discovery
// instance was heard from, checked by sweep against a grace window.
func (s *Server) onDiscoveryHeartbeat(env busproto.Envelope, raw []byte) {
	s.discoMu.Lock()
	s.discoveryLastSeen = time.Now()
	s.discoMu.Unlock()
}

// OnHeartbeat applies a shard's heartbeat, triggers reassignment when
// its status regresses, and issues zombie cleanup commands.
func (s *Server) OnHeartbeat(ctx context.Context, hb model.Heartbeat) {
	state, transitionedWorse := s.reg.ApplyHeartbeat(hb, s.shardCapacity, s.heartbeatInterval, s.staleThreshold)

	for _, gameID := range s.reg.ZombieGames(hb.ShardID, hb.AssignedGames) {
		s.sendControl(ctx, hb.ShardID, "remove", gameID)
	}

	if transitionedWorse && state.Status != model.Healthy {
		if !s.guard.Allow(hb.ShardID) {
			telemetry.Warnf("orchestrator: reassignment breaker open for shard %s, skipping", hb.ShardID)
			return
		}
		moved, orphaned := s.reg.Reassign(hb.ShardID)
		for gameID, newShard := range moved {
			s.recordAssignment(ctx, gameID, newShard, hb.ShardID)
			s.sendControl(ctx, newShard, "add", gameID)
		}
		if len(orphaned) > 0 {
			telemetry.Warnf("orchestrator: shard %s reassignment left %d games orphaned", hb.ShardID, len(orphaned))
		}
	}

	if len(s.reg.HealthyShards()) == 0 {
		s.alert(ctx, alerts.AllShardsUnhealthy, "all shards unhealthy", nil)
	}
}

// alert fans the notifier's delivery out to the store's audit log too;
// a store failure here is logged but never suppresses the live alert.
func (s *Server) alert(ctx context.Context, kind alerts.Kind, message string, fields map[string]string) {
	s.notifier.Send(kind, message, fields)
	if err := s.store.RecordAlert(ctx, string(kind), message); err != nil {
		telemetry.Warnf("orchestrator: persist alert %s: %v", kind, err)
	}
}

func (s *Server) sweep(ctx context.Context) {
	stale := s.reg.PruneStaleServices(3 * s.heartbeatInterval)
	for _, shardID := range stale {
		if !s.guard.Allow(shardID) {
			continue
		}
		moved, orphaned := s.reg.Reassign(shardID)
		for gameID, newShard := range moved {
			s.recordAssignment(ctx, gameID, newShard, shardID)
			s.sendControl(ctx, newShard, "add", gameID)
		}
		if len(orphaned) > 0 {
			telemetry.Warnf("orchestrator: stale-shard sweep of %s left %d games orphaned", shardID, len(orphaned))
		}
	}

	s.discoMu.Lock()
	lastSeen := s.discoveryLastSeen
	s.discoMu.Unlock()
	if lastSeen.IsZero() || time.Since(lastSeen) > 3*s.heartbeatInterval {
		s.alert(ctx, alerts.NoMarketDiscoveryServices, "no discovery heartbeat seen within grace window", nil)
	}
}

type controlCommand struct {
	Action string `json:"action"`
	GameID string `json:"game_id"`
}

func (s *Server) sendControl(ctx context.Context, shardID, action, gameID string) {
	channel := busproto.ChanShardControl(shardID)
	if err := s.b.Publish(ctx, channel, "shard_control", gameID, 0, controlCommand{Action: action, GameID: gameID}); err != nil {
		telemetry.Warnf("orchestrator: failed to send %s control for game %s to shard %s: %v", action, gameID, shardID, err)
	}
}
