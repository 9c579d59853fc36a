package model

import "time"

// TradingSignal is a single directional recommendation emitted by a
// game shard after gating against the noise and edge thresholds.
//
// Invariant: ModelProb and MarketProb refer to the same Team. Callers
// that cannot prove this (e.g. the signal processor's team-correctness
// gate) must reject or invert the signal rather than forward it.
type TradingSignal struct {
	SignalID           string     `json:"signal_id" db:"signal_id"`
	GameID             string     `json:"game_id" db:"game_id"`
	MarketType         MarketType `json:"market_type" db:"market_type"`
	Team               string     `json:"team" db:"team"`
	Direction          Direction  `json:"direction" db:"direction"`
	ModelProb          float64    `json:"model_prob" db:"model_prob"`
	MarketProb         float64    `json:"market_prob" db:"market_prob"`
	Edge               float64    `json:"edge" db:"edge"`
	LiquidityAvailable float64    `json:"liquidity_available" db:"liquidity_available"`
	Confidence         float64    `json:"confidence" db:"confidence"`
	ProposedSize       float64    `json:"proposed_size" db:"proposed_size"`
	Venue              Venue      `json:"venue" db:"venue"`
	CreatedAt          time.Time  `json:"created_at" db:"created_at"`
	SchemaVersion      int        `json:"schema_version" db:"-"`
}

// EdgeMatches reports whether Edge equals ModelProb-MarketProb within a
// float tolerance — Testable Property 2 (edge identity).
func (s TradingSignal) EdgeMatches(tolerance float64) bool {
	diff := s.Edge - (s.ModelProb - s.MarketProb)
	if diff < 0 {
		diff = -diff
	}
	return diff <= tolerance
}

// Opportunity is a detected cross-venue arbitrage: buying YES on one
// venue and NO on the other for a combined cost below 1.
type Opportunity struct {
	OpportunityID string     `json:"opportunity_id"`
	GameID        string     `json:"game_id"`
	MarketType    MarketType `json:"market_type"`
	VenueBuyYes   Venue      `json:"venue_buy_yes"`
	VenueBuyNo    Venue      `json:"venue_buy_no"`
	Cost          float64    `json:"cost"`
	Profit        float64    `json:"profit"`
	SizeCap       float64    `json:"size_cap"`
	DetectedAt    time.Time  `json:"detected_at"`
}

// Key returns the dedup key execution uses to prevent double-placing
// the same opportunity: (game_id, market_type, venues, implied team
// pairing is fixed by game_id+market_type so it is not included
// separately).
func (o Opportunity) Key() string {
	return string(o.GameID) + "|" + string(o.MarketType) + "|" + string(o.VenueBuyYes) + "|" + string(o.VenueBuyNo)
}

// Valid reports the arbitrage invariant: cost < 1 on the snapshots used
// — Testable Property 3.
func (o Opportunity) Valid() bool {
	return o.Cost < 1 && o.Profit > 0
}
