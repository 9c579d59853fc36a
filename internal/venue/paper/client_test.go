package paper

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charleschow/arb-engine/internal/discovery"
	"github.com/charleschow/arb-engine/internal/model"
	"github.com/charleschow/arb-engine/internal/venue"
)

func TestPlaceOrderAlwaysFillsAtRequestedPrice(t *testing.T) {
	c := NewClient(model.VenueCEX, nil, nil)

	res, err := c.PlaceOrder(context.Background(), venue.OrderRequest{
		Venue: model.VenueCEX, MarketID: "m1", Side: model.SideYes, Price: 0.55, Size: 10,
	})
	require.NoError(t, err)
	assert.True(t, res.Filled)
	assert.Equal(t, 10.0, res.FillSize)
	assert.InDelta(t, 5.5, res.FillCost, 1e-9)
	assert.NotEmpty(t, res.OrderID)
}

func TestPlaceOrderOrderIDsAreUnique(t *testing.T) {
	c := NewClient(model.VenueCEX, nil, nil)
	req := venue.OrderRequest{Venue: model.VenueCEX, MarketID: "m1", Side: model.SideYes, Price: 0.5, Size: 1}

	r1, _ := c.PlaceOrder(context.Background(), req)
	r2, _ := c.PlaceOrder(context.Background(), req)
	assert.NotEqual(t, r1.OrderID, r2.OrderID)
}

func TestCancelOrderIsANoOp(t *testing.T) {
	c := NewClient(model.VenueCEX, nil, nil)
	assert.NoError(t, c.CancelOrder(context.Background(), "anything"))
}

func TestFetchMarketsReturnsSeedCatalog(t *testing.T) {
	seed := map[string][]discovery.VenueMarket{
		"KXNBAGAME": {{Venue: model.VenueCEX, MarketID: "m1", Title: "Lakers at Celtics Winner?"}},
	}
	c := NewClient(model.VenueCEX, nil, seed)

	markets, err := c.FetchMarkets(context.Background(), "KXNBAGAME")
	require.NoError(t, err)
	require.Len(t, markets, 1)
	assert.Equal(t, "m1", markets[0].MarketID)

	empty, err := c.GetMarkets(context.Background(), "UNKNOWN")
	require.NoError(t, err)
	assert.Empty(t, empty)
}
