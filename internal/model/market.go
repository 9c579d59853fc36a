package model

import (
	"fmt"
	"time"
)

// Venue is the fixed tagged variant of tradeable exchanges. New venues
// are added here, never as scattered string literals or conditionals
// elsewhere (spec's "dynamic dispatch across venues" design note).
type Venue string

const (
	VenueCEX Venue = "CEX"
	VenueDEX Venue = "DEX"
)

// MarketType is the kind of outcome a contract resolves on.
type MarketType string

const (
	MarketMoneyline MarketType = "moneyline"
	MarketSpread    MarketType = "spread"
	MarketTotal     MarketType = "total"
)

// ContractStatus mirrors the venue's own lifecycle for a listed contract.
type ContractStatus string

const (
	ContractOpen   ContractStatus = "open"
	ContractClosed ContractStatus = "closed"
)

// Contract identifies one tradeable YES/NO instrument at one venue.
//
// Invariant: for any two contracts compared in an arbitrage check, their
// (GameID, MarketType, Line) must match and their Team fields must be
// the two sides of the same game — enforced by callers via the unified
// team matcher, never assumed from string equality alone.
type Contract struct {
	Venue      Venue      `json:"venue" db:"venue"`
	MarketID   string     `json:"market_id" db:"market_id"`
	GameID     string     `json:"game_id" db:"game_id"`
	MarketType MarketType `json:"market_type" db:"market_type"`
	// Team is the side whose YES resolves this contract. Empty for
	// totals markets, which have no team association.
	Team   string         `json:"team,omitempty" db:"team"`
	Line   *float64       `json:"line,omitempty" db:"line"`
	Status ContractStatus `json:"status" db:"status"`
}

// Key returns the (venue, market_id) identity pair as a stable string,
// used as a map key throughout the shard and discovery packages.
func (c Contract) Key() string {
	return fmt.Sprintf("%s:%s", c.Venue, c.MarketID)
}

// OrderBookSnapshot is one point-in-time quote for a contract.
// Prices are probabilities in [0,1]; YesBid <= YesAsk by construction
// at the venue; YesBid + NoAsk is approximately 1 (spread/fees account
// for the gap, so this is never asserted as an exact invariant).
type OrderBookSnapshot struct {
	Venue      Venue     `json:"venue" db:"venue"`
	MarketID   string    `json:"market_id" db:"market_id"`
	Timestamp  time.Time `json:"timestamp" db:"ts"`
	YesBid     float64   `json:"yes_bid" db:"yes_bid"`
	YesAsk     float64   `json:"yes_ask" db:"yes_ask"`
	NoBid      float64   `json:"no_bid" db:"no_bid"`
	NoAsk      float64   `json:"no_ask" db:"no_ask"`
	YesBidSize float64   `json:"yes_bid_size" db:"yes_bid_size"`
	YesAskSize float64   `json:"yes_ask_size" db:"yes_ask_size"`
	Liquidity  float64   `json:"liquidity" db:"liquidity"`
}

// Fresh reports whether the snapshot is within the given staleness
// bound of now.
func (s OrderBookSnapshot) Fresh(now time.Time, maxAge time.Duration) bool {
	return now.Sub(s.Timestamp) <= maxAge
}

// TeamScopedPrices holds, for one game, the best-side probability per
// venue for each team — derived from snapshots by matching the
// contract's team to home/away. A snapshot that cannot be attributed to
// exactly one side is dropped by the caller, never stored here.
type TeamScopedPrices struct {
	HomePrices map[Venue]float64 `json:"home_prices"`
	AwayPrices map[Venue]float64 `json:"away_prices"`
}

func NewTeamScopedPrices() TeamScopedPrices {
	return TeamScopedPrices{
		HomePrices: make(map[Venue]float64),
		AwayPrices: make(map[Venue]float64),
	}
}

// Best returns the price for the preferred venue present in prices,
// walking the preference order; ok is false if none of the preferred
// venues have a price.
func Best(prices map[Venue]float64, preference []Venue) (price float64, venue Venue, ok bool) {
	for _, v := range preference {
		if p, found := prices[v]; found {
			return p, v, true
		}
	}
	return 0, "", false
}
