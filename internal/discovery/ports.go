// Package discovery resolves (game, market_type, venue) to a concrete
// Contract by fetching each venue's listed markets, parsing team names
// out of their titles, and disambiguating same-matchup doubleheaders
// by kickoff proximity, behind a venue-agnostic MarketFetcher port any
// exchange client can satisfy, served as a bus RPC the way
// internal/teammatch is.
package discovery

import (
	"context"

	"github.com/charleschow/arb-engine/internal/model"
)

// MarketFetcher is the venue-side port discovery depends on. Each
// venue client (paper, and eventually live CEX/DEX clients) implements
// this by exposing a GetMarkets-style listing call.
type MarketFetcher interface {
	FetchMarkets(ctx context.Context, seriesTicker string) ([]VenueMarket, error)
}

// VenueMarket is the raw listing shape a venue returns before it is
// parsed into a model.Contract — title and subtitle carry the team
// names discovery extracts via regex.
type VenueMarket struct {
	Venue      model.Venue
	MarketID   string
	Title      string
	Subtitle   string
	MarketType model.MarketType
	ExpiresAt  string // RFC3339; parsed lazily since not every fetch needs it
}
