// Package venue is the fixed capability contract every tradeable
// exchange implements: place, cancel, and list-markets, so
// internal/execution depends on this interface rather than on any one
// venue's concrete client.
package venue

import (
	"context"

	"github.com/charleschow/arb-engine/internal/discovery"
	"github.com/charleschow/arb-engine/internal/model"
)

// OrderRequest is a single-leg order instruction.
type OrderRequest struct {
	Venue    model.Venue
	MarketID string
	Side     model.Side
	Price    float64 // probability in [0,1]
	Size     float64
}

// OrderResult is what a venue returns for a placed order.
type OrderResult struct {
	OrderID  string
	Filled   bool
	FillSize float64
	FillCost float64
}

// Client is the fixed contract every venue is specified by — venue
// adapters are specified only by the events they publish on the
// inbound price feed side; this is the outbound order-placement half
// of the same boundary. Both the paper-trading default and any future
// live CEX/DEX client satisfy this.
type Client interface {
	PlaceOrder(ctx context.Context, req OrderRequest) (OrderResult, error)
	CancelOrder(ctx context.Context, orderID string) error
	GetMarkets(ctx context.Context, seriesTicker string) ([]discovery.VenueMarket, error)
}

// Registry resolves a model.Venue to its Client, the way
// internal/discovery.Resolver resolves a venue to its MarketFetcher —
// kept as a thin map rather than a switch so adding a venue never
// touches call sites.
type Registry map[model.Venue]Client

func (r Registry) For(v model.Venue) (Client, bool) {
	c, ok := r[v]
	return c, ok
}
