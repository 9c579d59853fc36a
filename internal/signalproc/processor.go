// Package signalproc validates every trading signal a game shard
// emits before it is allowed to reach execution, through a layered
// sequence of gates: freshness, team correctness, liquidity, an edge
// re-check, and Kelly-style position sizing.
package signalproc

import (
	"context"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/charleschow/arb-engine/internal/bus"
	"github.com/charleschow/arb-engine/internal/busproto"
	"github.com/charleschow/arb-engine/internal/config"
	"github.com/charleschow/arb-engine/internal/model"
	"github.com/charleschow/arb-engine/internal/store"
	"github.com/charleschow/arb-engine/internal/teammatch"
	"github.com/charleschow/arb-engine/internal/telemetry"
)

// minNotional is the floor below which a signal is rejected for
// insufficient liquidity: $10 of notional, where notional is the
// available liquidity times the signal's market price.
var minNotional = decimal.NewFromInt(10)

// Config holds the processor's gate thresholds, read once from
// config.Config at process start.
type Config struct {
	Freshness          time.Duration
	MinMatchConfidence float64
	MaxPositionPercent float64
	RiskLimits         config.RiskLimits
}

// Rejection is published on busproto.ChanSignalsRejected for every
// signal a gate drops, carrying the categorical reason the rejection
// surfaces.
type Rejection struct {
	SignalID   string    `json:"signal_id"`
	GameID     string    `json:"game_id"`
	Reason     string    `json:"reason"`
	DetectedAt time.Time `json:"detected_at"`
}

// teamMatcher is the slice of *teammatch.Client this package depends
// on, narrowed to a local interface so tests can stub the RPC round
// trip instead of running a bus.
type teamMatcher interface {
	Match(ctx context.Context, sport teammatch.Sport, input string, candidates []string) (teammatch.MatchResponse, error)
}

// Processor subscribes to raw signals, runs them through the gate
// pipeline, and republishes acceptances (sized) or rejections
// (reasoned).
type Processor struct {
	b       *bus.Bus
	store   *store.Store
	matcher teamMatcher
	cfg     Config
}

func NewProcessor(b *bus.Bus, st *store.Store, matcher *teammatch.Client, cfg Config) *Processor {
	return &Processor{b: b, store: st, matcher: matcher, cfg: cfg}
}

func (p *Processor) Run(ctx context.Context) {
	p.b.Subscribe(ctx, busproto.ChanSignals, p.onSignal)
}

func (p *Processor) onSignal(env busproto.Envelope, raw []byte) {
	var sig model.TradingSignal
	if err := json.Unmarshal(env.Payload, &sig); err != nil {
		telemetry.Warnf("signalproc: bad signal payload: %v", err)
		return
	}

	ctx := context.Background()
	sized, reason := p.validate(ctx, sig)
	if reason != "" {
		telemetry.Metrics.SignalsValidated.WithLabelValues(reason).Inc()
		p.publishRejection(ctx, sig, reason)
		return
	}

	telemetry.Metrics.SignalsValidated.WithLabelValues("accepted").Inc()
	p.publishValidated(ctx, sized)
}

// validate runs the ordered, short-circuiting gate sequence and
// returns the signal with ProposedSize set once every gate clears.
func (p *Processor) validate(ctx context.Context, sig model.TradingSignal) (model.TradingSignal, string) {
	if time.Since(sig.CreatedAt) > p.cfg.Freshness {
		return sig, "stale"
	}

	game, err := p.store.Game(ctx, sig.GameID)
	if err != nil {
		return sig, "unknown_game"
	}

	if !p.teamMatches(ctx, game, sig.Team) {
		return sig, "team_mismatch"
	}

	limits, haveLimits := p.cfg.RiskLimits.ForMarketType(string(sig.MarketType))

	liquidity, currentEdge := p.currentSnapshot(ctx, game, sig)

	notional := decimal.NewFromFloat(liquidity).Mul(decimal.NewFromFloat(sig.MarketProb))
	if notional.LessThan(minNotional) {
		return sig, "insufficient_liquidity"
	}
	if haveLimits && liquidity < limits.LiquidityFloor {
		return sig, "insufficient_liquidity"
	}

	if haveLimits && currentEdge < limits.MinEdge {
		return sig, "edge_evaporated"
	}
	if currentEdge <= 0 {
		return sig, "edge_evaporated"
	}

	size := p.kellySize(liquidity, sig.MarketProb, limits, haveLimits)
	sig.ProposedSize = size
	return sig, ""
}

// teamMatches confirms the signal's Team string actually names one of
// the game's two sides, via the unified matcher rather than string
// equality — Testable Property 1 (team consistency).
func (p *Processor) teamMatches(ctx context.Context, game model.Game, team string) bool {
	sport := teammatch.Sport(game.Sport)
	resp, err := p.matcher.Match(ctx, sport, team, []string{game.HomeTeam, game.AwayTeam})
	if err != nil {
		telemetry.Warnf("signalproc: team match RPC failed game=%s: %v", game.GameID, err)
		return false
	}
	return resp.Matched && resp.Confidence >= p.cfg.MinMatchConfidence
}

// currentSnapshot re-reads the freshest stored price for the signal's
// (venue, market type) contract and returns the liquidity and edge it
// implies right now, rather than trusting the values attached when the
// shard emitted the signal — prices move in the gap between emission
// and this gate running. Falls back to the signal's own fields when no
// fresher reading exists. Discovery fixes Team to the home team per
// contract (internal/discovery's Resolver), so the home side reads
// YesAsk/YesAskSize and the away side reads NoAsk/Liquidity.
func (p *Processor) currentSnapshot(ctx context.Context, game model.Game, sig model.TradingSignal) (liquidity, edge float64) {
	contracts, err := p.store.MarketsForGame(ctx, game.GameID)
	if err != nil {
		return sig.LiquidityAvailable, sig.Edge
	}
	for _, c := range contracts {
		if c.Venue != sig.Venue || c.MarketType != sig.MarketType {
			continue
		}
		snaps, err := p.store.RecentPrices(ctx, c.Venue, c.MarketID, 1)
		if err != nil || len(snaps) == 0 {
			continue
		}
		isHomeSide := sig.Team == game.HomeTeam
		if isHomeSide {
			return snaps[0].YesAskSize, sig.ModelProb - snaps[0].YesAsk
		}
		return snaps[0].Liquidity, sig.ModelProb - snaps[0].NoAsk
	}
	return sig.LiquidityAvailable, sig.Edge
}

// kellySize bounds the proposed position at MaxPositionPercent of
// available liquidity and RiskLimits' absolute per-market-type cap,
// whichever is smaller — a simplified Kelly-style sizing step (the
// favorable-odds fraction is already embedded in ModelProb/MarketProb
// having cleared the edge gate above, so the remaining job is purely
// bounding the notional).
func (p *Processor) kellySize(liquidity, marketProb float64, limits config.MarketTypeLimits, haveLimits bool) float64 {
	pct := decimal.NewFromFloat(p.cfg.MaxPositionPercent)
	notional := decimal.NewFromFloat(liquidity).Mul(decimal.NewFromFloat(marketProb))
	sized := notional.Mul(pct)

	if haveLimits {
		capAmt := decimal.NewFromFloat(limits.MaxPositionUSD)
		if sized.GreaterThan(capAmt) {
			sized = capAmt
		}
	}
	f, _ := sized.Float64()
	return f
}

func (p *Processor) publishValidated(ctx context.Context, sig model.TradingSignal) {
	if err := p.b.Publish(ctx, busproto.ChanSignalsValid, "trading_signal_validated", sig.SignalID, 0, sig); err != nil {
		telemetry.Warnf("signalproc: publish validated %s: %v", sig.SignalID, err)
	}
}

func (p *Processor) publishRejection(ctx context.Context, sig model.TradingSignal, reason string) {
	rej := Rejection{SignalID: sig.SignalID, GameID: sig.GameID, Reason: reason, DetectedAt: time.Now()}
	if err := p.b.Publish(ctx, busproto.ChanSignalsRejected, "signal_rejection", sig.SignalID, 0, rej); err != nil {
		telemetry.Warnf("signalproc: publish rejection %s: %v", sig.SignalID, err)
	}
}
