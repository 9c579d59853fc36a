package shard

import (
	"fmt"
	"time"

	"github.com/charleschow/arb-engine/internal/busproto"
	"github.com/charleschow/arb-engine/internal/model"
	"github.com/charleschow/arb-engine/internal/telemetry"
)

// SignalConfig holds the shard's signal-generation thresholds, read
// once from config.Config at process start.
type SignalConfig struct {
	NoiseGate       float64
	EdgeThreshold   float64
	LiquidityFloor  float64
	VenuePreference []model.Venue
	MarketType      model.MarketType
}

// sidePrices walks every venue holding a snapshot (of any age) of the
// configured market type's contract and routes YesAsk/NoAsk into
// home/away per-venue maps according to which side of the game the
// contract's team resolves to. A contract whose team cannot be matched
// to either the home or away team is dropped and logged rather than
// guessed at.
func (gc *GameContext) sidePrices(marketType model.MarketType) (prices model.TeamScopedPrices, homeSize, awaySize map[model.Venue]float64) {
	prices = model.NewTeamScopedPrices()
	homeSize = make(map[model.Venue]float64)
	awaySize = make(map[model.Venue]float64)
	for key, c := range gc.Contracts {
		if c.MarketType != marketType {
			continue
		}
		snap, have := gc.Snapshots[key]
		if !have {
			continue
		}
		switch gc.resolveSide(c.Team) {
		case sideHome:
			prices.HomePrices[c.Venue] = snap.YesAsk
			homeSize[c.Venue] = snap.YesAskSize
			prices.AwayPrices[c.Venue] = snap.NoAsk
			awaySize[c.Venue] = snap.Liquidity
		case sideAway:
			prices.AwayPrices[c.Venue] = snap.YesAsk
			awaySize[c.Venue] = snap.YesAskSize
			prices.HomePrices[c.Venue] = snap.NoAsk
			homeSize[c.Venue] = snap.Liquidity
		default:
			telemetry.Warnf("shard: game %s contract %s team %q undetermined (home=%q away=%q), dropping snapshot", gc.GameID, key, c.Team, gc.Game.HomeTeam, gc.Game.AwayTeam)
		}
	}
	return
}

// GenerateSignal implements the noise-gate/directional/edge-gate
// pipeline: a |delta| < NoiseGate move emits nothing; otherwise the
// favored team's model probability is compared
// against the best venue price for the same team, and a signal is
// emitted only once edge clears EdgeThreshold. Must run on the game's
// goroutine (LastModelProbHome is mutated here).
func (gc *GameContext) GenerateSignal(newModelProbHome float64, cfg SignalConfig, now time.Time) (model.TradingSignal, bool) {
	if !gc.HasModelProb {
		gc.LastModelProbHome = newModelProbHome
		gc.HasModelProb = true
		return model.TradingSignal{}, false
	}

	delta := newModelProbHome - gc.LastModelProbHome
	gc.LastModelProbHome = newModelProbHome

	if absFloat(delta) < cfg.NoiseGate {
		return model.TradingSignal{}, false
	}

	prices, homeSize, awaySize := gc.sidePrices(cfg.MarketType)

	var team string
	var modelProb float64
	var marketProb, size float64
	var venue model.Venue
	var ok bool
	if delta > 0 {
		team = gc.Game.HomeTeam
		modelProb = newModelProbHome
		marketProb, venue, ok = model.Best(prices.HomePrices, cfg.VenuePreference)
		if ok {
			size = homeSize[venue]
		}
	} else {
		team = gc.Game.AwayTeam
		modelProb = 1 - newModelProbHome
		marketProb, venue, ok = model.Best(prices.AwayPrices, cfg.VenuePreference)
		if ok {
			size = awaySize[venue]
		}
	}
	if team == "" || !ok {
		return model.TradingSignal{}, false
	}

	edge := modelProb - marketProb
	if edge < cfg.EdgeThreshold {
		return model.TradingSignal{}, false
	}

	liquidity := size
	if liquidity <= 0 {
		liquidity = cfg.LiquidityFloor
	}

	return model.TradingSignal{
		SignalID:           fmt.Sprintf("%s-%d", gc.GameID, now.UnixNano()),
		GameID:             gc.GameID,
		MarketType:         cfg.MarketType,
		Team:               team,
		Direction:           model.DirBuy,
		ModelProb:          modelProb,
		MarketProb:         marketProb,
		Edge:               edge,
		LiquidityAvailable: liquidity,
		Confidence:         1.0,
		Venue:              venue,
		CreatedAt:          now,
		SchemaVersion:      busproto.CurrentSchemaVersion,
	}, true
}

func absFloat(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
