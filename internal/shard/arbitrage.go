package shard

import (
	"fmt"
	"time"

	"github.com/charleschow/arb-engine/internal/model"
)

// DetectArbitrage runs the cross-venue riskless-cost check: for the
// configured market type's contract, compute
// cost = yes_ask[A] + no_ask[B] for every ordered venue pair and
// report each pairing whose cost clears below 1 as a riskless
// opportunity. Must run on the game's goroutine.
func (gc *GameContext) DetectArbitrage(marketType model.MarketType, maxAge time.Duration, now time.Time) []model.Opportunity {
	fresh := gc.freshSnapshotsByVenue(marketType, maxAge, now)
	return pairwiseArbitrage(gc.GameID, marketType, fresh, now)
}

func (gc *GameContext) freshSnapshotsByVenue(marketType model.MarketType, maxAge time.Duration, now time.Time) map[model.Venue]model.OrderBookSnapshot {
	out := make(map[model.Venue]model.OrderBookSnapshot)
	for key, c := range gc.Contracts {
		if c.MarketType != marketType {
			continue
		}
		snap, have := gc.Snapshots[key]
		if !have {
			continue
		}
		at, seen := gc.SnapshotAt[key]
		if !seen || now.Sub(at) > maxAge || !snap.Fresh(now, maxAge) {
			continue
		}
		out[c.Venue] = snap
	}
	return out
}

func pairwiseArbitrage(gameID string, marketType model.MarketType, snaps map[model.Venue]model.OrderBookSnapshot, now time.Time) []model.Opportunity {
	if len(snaps) < 2 {
		return nil
	}
	venues := make([]model.Venue, 0, len(snaps))
	for v := range snaps {
		venues = append(venues, v)
	}

	var opps []model.Opportunity
	for i := range venues {
		for j := range venues {
			if i == j {
				continue
			}
			a, b := venues[i], venues[j]
			cost := snaps[a].YesAsk + snaps[b].NoAsk
			if cost >= 1 {
				continue
			}
			opps = append(opps, model.Opportunity{
				OpportunityID: fmt.Sprintf("%s-%s-%s-%s-%d", gameID, marketType, a, b, now.UnixNano()),
				GameID:        gameID,
				MarketType:    marketType,
				VenueBuyYes:   a,
				VenueBuyNo:    b,
				Cost:          cost,
				Profit:        1 - cost,
				SizeCap:       min(snaps[a].Liquidity, snaps[b].Liquidity),
				DetectedAt:    now,
			})
		}
	}
	return opps
}
