// Package shard owns the per-game trading state for whatever subset of
// live games the orchestrator has assigned to this process: a single-
// owner-goroutine GameContext holding a flat game+price+signal model.
// A signal passes the noise gate and the edge gate before it reaches
// the bus; an opportunity needs fresh snapshots from two venues whose
// combined cost is below 1.
package shard

import (
	"fmt"
	"time"

	"github.com/charleschow/arb-engine/internal/model"
	"github.com/charleschow/arb-engine/internal/teammatch"
	"github.com/charleschow/arb-engine/internal/telemetry"
)

const sideMatchCacheSize = 256

// Lifecycle is the per-game state machine: ASSIGNING -> ACTIVE (has
// prices) -> IDLE (no prices within staleness) -> ACTIVE -> REMOVED.
type Lifecycle string

const (
	StateAssigning Lifecycle = "assigning"
	StateActive    Lifecycle = "active"
	StateIdle      Lifecycle = "idle"
	StateRemoved   Lifecycle = "removed"
)

// contractKey identifies one venue's contract for one market type.
// Discovery resolves exactly one contract per (venue, market type) per
// game; which side of the game the contract's YES settles on is read
// off model.Contract.Team via resolveSide, not assumed here.
type contractKey struct {
	MarketType model.MarketType
	Venue      model.Venue
}

// teamSide is which side of a game a contract's Team resolves to.
type teamSide int

const (
	sideUnknown teamSide = iota
	sideHome
	sideAway
)

// resolveSide matches a contract's team name against the game's home
// and away teams, tolerating the aliasing/nickname drift between a
// venue's own naming and the canonical names discovery persisted the
// game under. Returns sideUnknown if it matches neither (or both).
func (gc *GameContext) resolveSide(contractTeam string) teamSide {
	if contractTeam == "" {
		return sideUnknown
	}
	home := gc.matcher.Match(contractTeam, gc.Game.HomeTeam)
	away := gc.matcher.Match(contractTeam, gc.Game.AwayTeam)
	switch {
	case home.IsMatch && !away.IsMatch:
		return sideHome
	case away.IsMatch && !home.IsMatch:
		return sideAway
	default:
		return sideUnknown
	}
}

func (k contractKey) String() string {
	return fmt.Sprintf("%s|%s", k.MarketType, k.Venue)
}

// GameContext is the single source of truth for one assigned game.
//
// All state mutations are serialized through an inbox channel drained
// by one goroutine, so none of the fields below need a mutex. Any
// goroutine that wants to read or mutate a GameContext must do so via
// Send().
type GameContext struct {
	GameID string
	Game   model.Game

	LastModelProbHome float64
	HasModelProb      bool

	// Contracts known for this game, keyed by (market type, venue).
	Contracts  map[string]model.Contract
	Snapshots  map[string]model.OrderBookSnapshot
	SnapshotAt map[string]time.Time

	State       Lifecycle
	LastPriceAt time.Time

	matcher *teammatch.Matcher

	inbox chan func()
	stop  chan struct{}
}

func NewGameContext(g model.Game) *GameContext {
	gc := &GameContext{
		GameID:     g.GameID,
		Game:       g,
		Contracts:  make(map[string]model.Contract),
		Snapshots:  make(map[string]model.OrderBookSnapshot),
		SnapshotAt: make(map[string]time.Time),
		State:      StateAssigning,
		matcher:    teammatch.NewMatcher(teammatch.Sport(g.Sport), sideMatchCacheSize),
		inbox:      make(chan func(), 256),
		stop:       make(chan struct{}),
	}
	go gc.run()
	return gc
}

// run is the game's event loop — every closure sent via Send executes
// here, one at a time, on this single goroutine. No locks needed.
func (gc *GameContext) run() {
	defer close(gc.stop)
	for fn := range gc.inbox {
		fn()
	}
}

// Send enqueues a closure to run on the game's own goroutine.
// Non-blocking: drops and warns if the inbox is full rather than
// blocking whatever upstream goroutine is routing events.
func (gc *GameContext) Send(fn func()) {
	select {
	case gc.inbox <- fn:
	default:
		telemetry.Metrics.InboxOverflows.WithLabelValues(gc.GameID).Inc()
		telemetry.Warnf("shard: game %s inbox full (cap=%d), dropping event", gc.GameID, cap(gc.inbox))
	}
}

// Close shuts down the game's goroutine and waits for it to drain.
func (gc *GameContext) Close() {
	close(gc.inbox)
	<-gc.stop
	gc.State = StateRemoved
}

// RegisterContract records market metadata discovery resolved for one
// venue's contract. Must run on the game's goroutine.
func (gc *GameContext) RegisterContract(c model.Contract) {
	gc.Contracts[(contractKey{MarketType: c.MarketType, Venue: c.Venue}).String()] = c
}

// ApplySnapshot attributes an order book snapshot to whichever
// registered contract shares its (venue, market_id). Returns the
// matched contract and true, or a zero value and false if the
// snapshot cannot be attributed — callers drop and warn on false. Must
// run on the game's goroutine.
func (gc *GameContext) ApplySnapshot(snap model.OrderBookSnapshot) (model.Contract, bool) {
	for key, c := range gc.Contracts {
		if c.Venue != snap.Venue || c.MarketID != snap.MarketID {
			continue
		}
		gc.Snapshots[key] = snap
		gc.SnapshotAt[key] = time.Now()
		gc.LastPriceAt = time.Now()
		if gc.State == StateIdle || gc.State == StateAssigning {
			gc.State = StateActive
		}
		return c, true
	}
	return model.Contract{}, false
}

// MarkIdleIfStale transitions ACTIVE -> IDLE once no snapshot has
// landed within the staleness bound. Must run on the game's goroutine.
func (gc *GameContext) MarkIdleIfStale(now time.Time, staleness time.Duration) {
	if gc.State == StateActive && now.Sub(gc.LastPriceAt) > staleness {
		gc.State = StateIdle
	}
}

// StalenessSeconds is how long it has been since any price landed for
// this game — reported in heartbeats.
func (gc *GameContext) StalenessSeconds(now time.Time) float64 {
	if gc.LastPriceAt.IsZero() {
		return 0
	}
	return now.Sub(gc.LastPriceAt).Seconds()
}
