package shard

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charleschow/arb-engine/internal/model"
)

func registerVenue(gc *GameContext, venue model.Venue, yesAsk, noAsk, liquidity float64) {
	gc.RegisterContract(model.Contract{Venue: venue, MarketID: "m-" + string(venue), GameID: gc.GameID, MarketType: model.MarketMoneyline, Team: gc.Game.HomeTeam, Status: model.ContractOpen})
	gc.ApplySnapshot(model.OrderBookSnapshot{
		Venue: venue, MarketID: "m-" + string(venue), Timestamp: time.Now(),
		YesAsk: yesAsk, NoAsk: noAsk, Liquidity: liquidity,
	})
}

func TestDetectArbitrageFindsCrossVenueMispricing(t *testing.T) {
	gc := NewGameContext(model.Game{GameID: "g1", HomeTeam: "Lakers", AwayTeam: "Celtics"})
	defer gc.Close()

	// CEX yes_ask=0.55, DEX no_ask=0.40 -> cost 0.95 < 1
	registerVenue(gc, model.VenueCEX, 0.55, 0.50, 200)
	registerVenue(gc, model.VenueDEX, 0.50, 0.40, 150)

	opps := gc.DetectArbitrage(model.MarketMoneyline, time.Minute, time.Now())
	require.NotEmpty(t, opps)
	for _, o := range opps {
		assert.True(t, o.Valid())
		assert.Less(t, o.Cost, 1.0)
		assert.Equal(t, 150.0, o.SizeCap)
	}
}

func TestDetectArbitrageNoOpportunityWhenPricesConsistent(t *testing.T) {
	gc := NewGameContext(model.Game{GameID: "g2", HomeTeam: "Lakers", AwayTeam: "Celtics"})
	defer gc.Close()

	registerVenue(gc, model.VenueCEX, 0.55, 0.50, 200)
	registerVenue(gc, model.VenueDEX, 0.52, 0.53, 150) // cost = 0.55+0.53=1.08, 0.52+0.50=1.02

	opps := gc.DetectArbitrage(model.MarketMoneyline, time.Minute, time.Now())
	assert.Empty(t, opps)
}

func TestDetectArbitrageIgnoresStaleSnapshots(t *testing.T) {
	gc := NewGameContext(model.Game{GameID: "g3", HomeTeam: "Lakers", AwayTeam: "Celtics"})
	defer gc.Close()

	gc.RegisterContract(model.Contract{Venue: model.VenueCEX, MarketID: "m-cex", GameID: "g3", MarketType: model.MarketMoneyline, Team: "Lakers"})
	gc.ApplySnapshot(model.OrderBookSnapshot{Venue: model.VenueCEX, MarketID: "m-cex", Timestamp: time.Now().Add(-time.Hour), YesAsk: 0.4, NoAsk: 0.4})
	registerVenue(gc, model.VenueDEX, 0.4, 0.4, 100)

	opps := gc.DetectArbitrage(model.MarketMoneyline, time.Minute, time.Now())
	assert.Empty(t, opps)
}

func TestApplySnapshotUnattributableReturnsFalse(t *testing.T) {
	gc := NewGameContext(model.Game{GameID: "g4", HomeTeam: "Lakers", AwayTeam: "Celtics"})
	defer gc.Close()

	_, ok := gc.ApplySnapshot(model.OrderBookSnapshot{Venue: model.VenueCEX, MarketID: "unregistered"})
	assert.False(t, ok)
}

func TestMarkIdleIfStaleTransitions(t *testing.T) {
	gc := NewGameContext(model.Game{GameID: "g5", HomeTeam: "A", AwayTeam: "B"})
	defer gc.Close()

	registerVenue(gc, model.VenueCEX, 0.5, 0.5, 100)
	require.Equal(t, StateActive, gc.State)

	gc.MarkIdleIfStale(time.Now().Add(10*time.Second), 5*time.Second)
	assert.Equal(t, StateIdle, gc.State)
}
