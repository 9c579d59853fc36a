package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// MarketTypeLimits bounds position size and edge requirements for one
// market type — the per-market-type risk caps this engine's signal
// processor and execution service gate against.
type MarketTypeLimits struct {
	MaxPositionUSD float64 `yaml:"max_position_usd"`
	MinEdge        float64 `yaml:"min_edge"`
	LiquidityFloor float64 `yaml:"liquidity_floor"`
}

// RiskLimits is keyed by model.MarketType string value ("moneyline",
// "spread", "total").
type RiskLimits map[string]MarketTypeLimits

func LoadRiskLimits(path string) (RiskLimits, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read risk limits: %w", err)
	}

	var limits RiskLimits
	if err := yaml.Unmarshal(data, &limits); err != nil {
		return nil, fmt.Errorf("parse risk limits: %w", err)
	}

	return limits, nil
}

func (rl RiskLimits) ForMarketType(marketType string) (MarketTypeLimits, bool) {
	l, ok := rl[marketType]
	return l, ok
}
