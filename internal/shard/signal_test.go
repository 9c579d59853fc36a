package shard

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charleschow/arb-engine/internal/model"
)

func testConfig() SignalConfig {
	return SignalConfig{
		NoiseGate:       0.02,
		EdgeThreshold:   0.01,
		LiquidityFloor:  50,
		VenuePreference: []model.Venue{model.VenueCEX, model.VenueDEX},
		MarketType:      model.MarketMoneyline,
	}
}

func gameContextWithQuote(t *testing.T, venue model.Venue, yesAsk, noAsk, yesAskSize, liquidity float64) *GameContext {
	t.Helper()
	gc := NewGameContext(model.Game{GameID: "g1", Sport: "nba", HomeTeam: "Lakers", AwayTeam: "Celtics"})
	t.Cleanup(gc.Close)

	contract := model.Contract{Venue: venue, MarketID: "m1", GameID: "g1", MarketType: model.MarketMoneyline, Team: "Lakers", Status: model.ContractOpen}
	gc.RegisterContract(contract)
	snap, ok := gc.ApplySnapshot(model.OrderBookSnapshot{
		Venue: venue, MarketID: "m1", Timestamp: time.Now(),
		YesAsk: yesAsk, NoAsk: noAsk, YesAskSize: yesAskSize, Liquidity: liquidity,
	})
	require.True(t, ok)
	_ = snap
	return gc
}

func TestGenerateSignalFirstUpdateSeedsNoSignal(t *testing.T) {
	gc := gameContextWithQuote(t, model.VenueCEX, 0.5, 0.5, 100, 100)
	_, emitted := gc.GenerateSignal(0.55, testConfig(), time.Now())
	assert.False(t, emitted)
	assert.True(t, gc.HasModelProb)
}

func TestGenerateSignalBelowNoiseGateSuppressed(t *testing.T) {
	gc := gameContextWithQuote(t, model.VenueCEX, 0.5, 0.5, 100, 100)
	gc.GenerateSignal(0.55, testConfig(), time.Now())

	_, emitted := gc.GenerateSignal(0.56, testConfig(), time.Now()) // delta 0.01 < 0.02
	assert.False(t, emitted)
}

func TestGenerateSignalFavorsHomeOnPositiveDelta(t *testing.T) {
	gc := gameContextWithQuote(t, model.VenueCEX, 0.5, 0.5, 100, 100)
	gc.GenerateSignal(0.55, testConfig(), time.Now())

	sig, emitted := gc.GenerateSignal(0.60, testConfig(), time.Now())
	require.True(t, emitted)
	assert.Equal(t, "Lakers", sig.Team)
	assert.Equal(t, model.DirBuy, sig.Direction)
	assert.InDelta(t, 0.60, sig.ModelProb, 1e-9)
	assert.InDelta(t, 0.5, sig.MarketProb, 1e-9)
	assert.True(t, sig.EdgeMatches(1e-9))
}

func TestGenerateSignalFavorsAwayOnNegativeDelta(t *testing.T) {
	// away price is NoAsk 0.40, so the away model prob 0.50 clears the edge gate
	gc := gameContextWithQuote(t, model.VenueCEX, 0.5, 0.40, 100, 100)
	gc.GenerateSignal(0.55, testConfig(), time.Now())

	sig, emitted := gc.GenerateSignal(0.50, testConfig(), time.Now())
	require.True(t, emitted)
	assert.Equal(t, "Celtics", sig.Team)
	assert.InDelta(t, 0.5, sig.ModelProb, 1e-9) // 1 - 0.50
}

func TestGenerateSignalEdgeBelowThresholdSuppressed(t *testing.T) {
	gc := gameContextWithQuote(t, model.VenueCEX, 0.60, 0.40, 100, 100)
	gc.GenerateSignal(0.55, testConfig(), time.Now())

	// model moves to 0.605: delta = 0.055 clears the noise gate, but
	// edge = 0.605 - 0.60 = 0.005 < 0.01 threshold
	_, emitted := gc.GenerateSignal(0.605, testConfig(), time.Now())
	assert.False(t, emitted)
}

func TestGenerateSignalNoPriceNoSignal(t *testing.T) {
	gc := NewGameContext(model.Game{GameID: "g2", HomeTeam: "A", AwayTeam: "B"})
	defer gc.Close()
	gc.GenerateSignal(0.5, testConfig(), time.Now())
	_, emitted := gc.GenerateSignal(0.6, testConfig(), time.Now())
	assert.False(t, emitted)
}

func TestGenerateSignalLiquidityFallsBackToFloorWhenSizeZero(t *testing.T) {
	gc := gameContextWithQuote(t, model.VenueCEX, 0.5, 0.5, 0, 0)
	gc.GenerateSignal(0.55, testConfig(), time.Now())
	sig, emitted := gc.GenerateSignal(0.60, testConfig(), time.Now())
	require.True(t, emitted)
	assert.Equal(t, 50.0, sig.LiquidityAvailable)
}

// TestSidePricesRoutesAwayTeamContract checks that a contract whose
// Team resolves to the away team routes YesAsk into AwayPrices, not
// HomePrices — the inverse of every gameContextWithQuote fixture above,
// which always registers the home team's contract.
func TestSidePricesRoutesAwayTeamContract(t *testing.T) {
	gc := NewGameContext(model.Game{GameID: "g3", Sport: "nba", HomeTeam: "Lakers", AwayTeam: "Celtics"})
	defer gc.Close()

	contract := model.Contract{Venue: model.VenueCEX, MarketID: "m1", GameID: "g3", MarketType: model.MarketMoneyline, Team: "Celtics", Status: model.ContractOpen}
	gc.RegisterContract(contract)
	_, ok := gc.ApplySnapshot(model.OrderBookSnapshot{
		Venue: model.VenueCEX, MarketID: "m1", Timestamp: time.Now(),
		YesAsk: 0.4, NoAsk: 0.6, YesAskSize: 100, Liquidity: 100,
	})
	require.True(t, ok)

	prices, homeSize, awaySize := gc.sidePrices(model.MarketMoneyline)
	assert.InDelta(t, 0.4, prices.AwayPrices[model.VenueCEX], 1e-9)
	assert.InDelta(t, 0.6, prices.HomePrices[model.VenueCEX], 1e-9)
	assert.Equal(t, 100.0, awaySize[model.VenueCEX])
	assert.Equal(t, 100.0, homeSize[model.VenueCEX])
}

// TestSidePricesDropsUndeterminedTeam checks that a contract whose team
// matches neither the home nor away team is dropped rather than routed
// to either side.
func TestSidePricesDropsUndeterminedTeam(t *testing.T) {
	gc := NewGameContext(model.Game{GameID: "g4", Sport: "nba", HomeTeam: "Lakers", AwayTeam: "Celtics"})
	defer gc.Close()

	contract := model.Contract{Venue: model.VenueCEX, MarketID: "m1", GameID: "g4", MarketType: model.MarketMoneyline, Team: "Warriors", Status: model.ContractOpen}
	gc.RegisterContract(contract)
	_, ok := gc.ApplySnapshot(model.OrderBookSnapshot{
		Venue: model.VenueCEX, MarketID: "m1", Timestamp: time.Now(),
		YesAsk: 0.4, NoAsk: 0.6, YesAskSize: 100, Liquidity: 100,
	})
	require.True(t, ok)

	prices, _, _ := gc.sidePrices(model.MarketMoneyline)
	assert.Empty(t, prices.HomePrices)
	assert.Empty(t, prices.AwayPrices)
}
