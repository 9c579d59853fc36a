package shard

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/charleschow/arb-engine/internal/bus"
	"github.com/charleschow/arb-engine/internal/busproto"
	"github.com/charleschow/arb-engine/internal/discovery"
	"github.com/charleschow/arb-engine/internal/hotbus"
	"github.com/charleschow/arb-engine/internal/model"
	"github.com/charleschow/arb-engine/internal/store"
	"github.com/charleschow/arb-engine/internal/teammatch"
	"github.com/charleschow/arb-engine/internal/telemetry"
)

// Manager owns the bounded set of GameContexts assigned to this shard
// process, wiring each one to the Redis general bus plus the dedicated
// hotbus price channel.
type Manager struct {
	shardID string
	b       *bus.Bus
	hot     *hotbus.Client
	disco   *discovery.Client
	store   *store.Store

	cfg       SignalConfig
	staleness time.Duration
	arbMaxAge time.Duration

	mu    sync.Mutex
	games map[string]*GameContext
	seq   uint64
}

func NewManager(shardID string, b *bus.Bus, hotBusAddr string, disco *discovery.Client, st *store.Store, cfg SignalConfig, staleness, arbMaxAge time.Duration) *Manager {
	return &Manager{
		shardID:   shardID,
		b:         b,
		hot:       hotbus.NewClient(hotBusAddr, "", ""), // "" venue/market subscribes to every topic
		disco:     disco,
		store:     st,
		cfg:       cfg,
		staleness: staleness,
		arbMaxAge: arbMaxAge,
		games:     make(map[string]*GameContext),
	}
}

// Run wires the shard's three input channels and the periodic
// heartbeat/staleness-sweep loop. Blocks until ctx is cancelled.
func (m *Manager) Run(ctx context.Context, heartbeatInterval time.Duration) {
	go m.b.Subscribe(ctx, busproto.ChanShardControl(m.shardID), m.onControl)
	go m.b.Subscribe(ctx, busproto.ChanGamesState, m.onGameState)
	go m.hot.ConnectWithRetry(ctx, m.onSnapshot)

	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			m.closeAll()
			return
		case <-ticker.C:
			m.sweepStaleness()
			m.sendHeartbeat(ctx)
		}
	}
}

type controlCommand struct {
	Action string `json:"action"`
	GameID string `json:"game_id"`
}

func (m *Manager) onControl(env busproto.Envelope, raw []byte) {
	var cmd controlCommand
	if err := json.Unmarshal(env.Payload, &cmd); err != nil {
		telemetry.Warnf("shard: bad control payload: %v", err)
		return
	}
	switch cmd.Action {
	case "add":
		m.addGame(cmd.GameID)
	case "remove":
		m.removeGame(cmd.GameID)
	}
}

func (m *Manager) addGame(gameID string) {
	m.mu.Lock()
	if _, exists := m.games[gameID]; exists {
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	g, err := m.store.Game(context.Background(), gameID)
	if err != nil {
		telemetry.Warnf("shard: cannot load game %s for assignment: %v", gameID, err)
		return
	}

	gc := NewGameContext(g)
	m.mu.Lock()
	m.games[gameID] = gc
	m.mu.Unlock()
	telemetry.Metrics.ActiveGames.Inc()

	go m.resolveContracts(gc)
}

func (m *Manager) removeGame(gameID string) {
	m.mu.Lock()
	gc, ok := m.games[gameID]
	if ok {
		delete(m.games, gameID)
	}
	m.mu.Unlock()
	if !ok {
		return
	}
	gc.Close()
	telemetry.Metrics.ActiveGames.Dec()
}

// resolveContracts asks discovery for this game's contract on every
// venue and persists/registers whatever it finds. Runs off the game's
// own goroutine since discovery RPCs block on the network; the
// registration itself is dispatched back onto the goroutine via Send.
func (m *Manager) resolveContracts(gc *GameContext) {
	sport := teammatch.Sport(gc.Game.Sport)
	for _, venue := range []model.Venue{model.VenueCEX, model.VenueDEX} {
		resp, err := m.disco.Resolve(context.Background(), discovery.Request{
			Venue:         venue,
			Sport:         sport,
			MarketType:    m.cfg.MarketType,
			HomeTeam:      gc.Game.HomeTeam,
			AwayTeam:      gc.Game.AwayTeam,
			GameStartedAt: gc.Game.StartTime,
		})
		if err != nil {
			telemetry.Warnf("shard: discovery RPC failed game=%s venue=%s: %v", gc.GameID, venue, err)
			continue
		}
		if !resp.Found {
			continue
		}

		contract := resp.Contract
		contract.GameID = gc.GameID
		if err := m.store.UpsertMarket(context.Background(), contract); err != nil {
			telemetry.Warnf("shard: persist market %s: %v", contract.Key(), err)
		}
		gc.Send(func() {
			gc.RegisterContract(contract)
		})
	}
}

func (m *Manager) onGameState(env busproto.Envelope, raw []byte) {
	var g model.Game
	if err := json.Unmarshal(env.Payload, &g); err != nil {
		telemetry.Warnf("shard: bad game state payload: %v", err)
		return
	}

	m.mu.Lock()
	gc, ok := m.games[g.GameID]
	m.mu.Unlock()
	if !ok {
		return // not assigned to this shard
	}

	gc.Send(func() {
		gc.Game = g
		sig, emit := gc.GenerateSignal(g.ModelProbHome, m.cfg, time.Now())
		if emit {
			m.publishSignal(sig)
		}
		opps := gc.DetectArbitrage(m.cfg.MarketType, m.arbMaxAge, time.Now())
		for _, opp := range opps {
			m.publishOpportunity(opp)
		}
	})
}

func (m *Manager) onSnapshot(snap model.OrderBookSnapshot) {
	m.mu.Lock()
	games := make([]*GameContext, 0, len(m.games))
	for _, gc := range m.games {
		games = append(games, gc)
	}
	m.mu.Unlock()

	for _, gc := range games {
		gc.Send(func() {
			contract, ok := gc.ApplySnapshot(snap)
			if !ok {
				return
			}
			telemetry.Metrics.PriceLatency.Observe(time.Since(snap.Timestamp).Seconds())
			if err := m.store.RecordPrice(context.Background(), snap); err != nil {
				telemetry.Warnf("shard: persist price %s: %v", contract.Key(), err)
			}
			opps := gc.DetectArbitrage(contract.MarketType, m.arbMaxAge, time.Now())
			for _, opp := range opps {
				m.publishOpportunity(opp)
			}
		})
	}
}

func (m *Manager) publishSignal(sig model.TradingSignal) {
	telemetry.Metrics.SignalsEmitted.WithLabelValues(string(sig.MarketType)).Inc()
	if err := m.store.RecordSignal(context.Background(), sig); err != nil {
		telemetry.Warnf("shard: persist signal %s: %v", sig.SignalID, err)
	}
	if err := m.b.Publish(context.Background(), busproto.ChanSignals, "trading_signal", sig.SignalID, 0, sig); err != nil {
		telemetry.Warnf("shard: publish signal %s: %v", sig.SignalID, err)
	}
}

func (m *Manager) publishOpportunity(opp model.Opportunity) {
	if !opp.Valid() {
		return
	}
	telemetry.Metrics.OpportunitiesSeen.Inc()
	if err := m.b.Publish(context.Background(), busproto.ChanOpportunities, "opportunity", opp.OpportunityID, 0, opp); err != nil {
		telemetry.Warnf("shard: publish opportunity %s: %v", opp.OpportunityID, err)
	}
}

// sweepStaleness transitions any ACTIVE game past its staleness bound
// to IDLE, so heartbeats report it honestly even between price ticks.
func (m *Manager) sweepStaleness() {
	m.mu.Lock()
	games := make([]*GameContext, 0, len(m.games))
	for _, gc := range m.games {
		games = append(games, gc)
	}
	m.mu.Unlock()

	now := time.Now()
	for _, gc := range games {
		gc.Send(func() {
			gc.MarkIdleIfStale(now, m.staleness)
		})
	}
}

func (m *Manager) closeAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, gc := range m.games {
		gc.Close()
		delete(m.games, id)
	}
}

// sendHeartbeat reports this shard's assigned games and per-game
// staleness to the orchestrator, with a monotonic sequence so stale
// reports arriving out of order are ignored (internal/orchestrator's
// ApplyHeartbeat).
func (m *Manager) sendHeartbeat(ctx context.Context) {
	m.mu.Lock()
	assigned := make([]string, 0, len(m.games))
	staleness := make(map[string]float64, len(m.games))
	now := time.Now()
	for id, gc := range m.games {
		assigned = append(assigned, id)
		staleness[id] = gc.StalenessSeconds(now)
	}
	m.mu.Unlock()

	m.seq++
	hb := model.Heartbeat{
		ShardID:       m.shardID,
		Sequence:      m.seq,
		AssignedGames: assigned,
		StalenessSec:  staleness,
		SentAt:        now,
	}
	channel := busproto.ChanShardHeartbeat(m.shardID)
	if err := m.b.Publish(ctx, channel, "shard_heartbeat", m.shardID, m.seq, hb); err != nil {
		telemetry.Warnf("shard: heartbeat publish failed: %v", err)
	}
}
