// Package paper is a deterministic paper-trading venue client: it
// fills every order at the requested price after a fixed simulated
// latency, and serves discovery.MarketFetcher from a static seed list
// instead of a live exchange's market catalog, so the engine is
// runnable and testable without live venue credentials.
package paper

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charleschow/arb-engine/internal/discovery"
	"github.com/charleschow/arb-engine/internal/model"
	"github.com/charleschow/arb-engine/internal/store"
	"github.com/charleschow/arb-engine/internal/telemetry"
	"github.com/charleschow/arb-engine/internal/venue"
)

const simulatedLatency = 50 * time.Millisecond

// Client fills every order at its requested price, persisting each
// fill as a store.PaperTrade when a store is configured. Safe for
// concurrent use.
type Client struct {
	venueName model.Venue
	store     *store.Store

	mu   sync.Mutex
	seed map[string][]discovery.VenueMarket // keyed by series ticker

	orderSeq int64
}

var _ venue.Client = (*Client)(nil)
var _ discovery.MarketFetcher = (*Client)(nil)

// NewClient builds a paper client for v, seeded with the market
// catalog a discovery.Resolver will match games against. st may be nil
// in tests that do not need fills persisted.
func NewClient(v model.Venue, st *store.Store, seed map[string][]discovery.VenueMarket) *Client {
	return &Client{venueName: v, store: st, seed: seed}
}

// PlaceOrder simulates venue round-trip latency and then reports a
// full fill at the requested price — no partial fills, no rejects,
// since paper trading exists to exercise the execution pipeline, not
// to model microstructure.
func (c *Client) PlaceOrder(ctx context.Context, req venue.OrderRequest) (venue.OrderResult, error) {
	select {
	case <-time.After(simulatedLatency):
	case <-ctx.Done():
		return venue.OrderResult{}, ctx.Err()
	}

	c.mu.Lock()
	c.orderSeq++
	orderID := fmt.Sprintf("paper-%s-%d", c.venueName, c.orderSeq)
	c.mu.Unlock()

	result := venue.OrderResult{
		OrderID:  orderID,
		Filled:   true,
		FillSize: req.Size,
		FillCost: req.Price * req.Size,
	}

	if c.store != nil {
		trade := store.PaperTrade{
			TradeID:  orderID,
			Venue:    req.Venue,
			MarketID: req.MarketID,
			Side:     req.Side,
			Price:    req.Price,
			Size:     req.Size,
			PlacedAt: time.Now(),
		}
		if err := c.store.RecordPaperTrade(context.Background(), trade); err != nil {
			telemetry.Warnf("paper: persist trade %s: %v", orderID, err)
		}
	}

	return result, nil
}

// CancelOrder is a no-op: paper orders fill synchronously inside
// PlaceOrder, so by the time a caller could cancel, there is nothing
// left in flight.
func (c *Client) CancelOrder(ctx context.Context, orderID string) error {
	return nil
}

// GetMarkets satisfies venue.Client; it fetches from the same seed
// catalog FetchMarkets uses.
func (c *Client) GetMarkets(ctx context.Context, seriesTicker string) ([]discovery.VenueMarket, error) {
	return c.FetchMarkets(ctx, seriesTicker)
}

// FetchMarkets satisfies discovery.MarketFetcher from the static seed
// catalog this client was constructed with.
func (c *Client) FetchMarkets(ctx context.Context, seriesTicker string) ([]discovery.VenueMarket, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seed[seriesTicker], nil
}
