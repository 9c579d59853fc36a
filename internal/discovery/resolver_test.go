package discovery

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charleschow/arb-engine/internal/model"
	"github.com/charleschow/arb-engine/internal/teammatch"
)

type stubFetcher struct {
	markets []VenueMarket
}

func (s *stubFetcher) FetchMarkets(ctx context.Context, seriesTicker string) ([]VenueMarket, error) {
	return s.markets, nil
}

func TestTeamNamesFromTitle(t *testing.T) {
	t.Parallel()
	t1, t2 := teamNamesFromTitle("Lakers at Celtics Winner?")
	assert.Equal(t, "lakers", t1)
	assert.Equal(t, "celtics", t2)
}

func TestTeamNamesFromTitleNoSeparator(t *testing.T) {
	t.Parallel()
	t1, t2 := teamNamesFromTitle("Lakers Championship Odds")
	assert.Equal(t, "", t1)
	assert.Equal(t, "", t2)
}

func TestResolveDisambiguatesDoubleheaderByClosestExpiry(t *testing.T) {
	t.Parallel()

	gameStart := time.Date(2026, 7, 29, 19, 0, 0, 0, time.UTC)

	fetcher := &stubFetcher{markets: []VenueMarket{
		{
			Venue: model.VenueCEX, MarketID: "early-game", Title: "Yankees at Red Sox Winner?",
			MarketType: model.MarketMoneyline, ExpiresAt: gameStart.Add(-6 * time.Hour).Format(time.RFC3339),
		},
		{
			Venue: model.VenueCEX, MarketID: "close-game", Title: "Yankees at Red Sox Winner?",
			MarketType: model.MarketMoneyline, ExpiresAt: gameStart.Add(30 * time.Minute).Format(time.RFC3339),
		},
	}}

	r := NewResolver("", map[model.Venue]MarketFetcher{model.VenueCEX: fetcher})
	contract, found := r.Resolve(context.Background(), model.VenueCEX, teammatch.SportMLB, model.MarketMoneyline,
		"red sox", "yankees", gameStart)

	require.True(t, found)
	assert.Equal(t, "close-game", contract.MarketID)
}

func TestResolveNoMatchReturnsFalse(t *testing.T) {
	t.Parallel()

	fetcher := &stubFetcher{markets: []VenueMarket{
		{Venue: model.VenueCEX, MarketID: "m1", Title: "Lakers at Celtics Winner?", MarketType: model.MarketMoneyline},
	}}

	r := NewResolver("", map[model.Venue]MarketFetcher{model.VenueCEX: fetcher})
	_, found := r.Resolve(context.Background(), model.VenueCEX, teammatch.SportNBA, model.MarketMoneyline,
		"warriors", "suns", time.Now())

	assert.False(t, found)
}
